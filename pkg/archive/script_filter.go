package archive

import (
	"fmt"
	"log/slog"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
	"github.com/glorpus-work/librestore/internal/logger"
)

// ScriptFilter compiles a Tengo script into a Filter. The script sees the entry name in
// the variable "name" and sets "include" (initially true) to keep or drop the entry:
//
//	text := import("text")
//	include = !text.has_suffix(name, ".pdb")
//
// Entries for which the script fails at runtime are excluded.
func ScriptFilter(source string) (Filter, error) {
	script := tengo.NewScript([]byte(source))
	script.SetImports(stdlib.GetModuleMap("text", "fmt"))
	if err := script.Add("name", ""); err != nil {
		return nil, fmt.Errorf("failed to add name to filter script: %w", err)
	}
	if err := script.Add("include", true); err != nil {
		return nil, fmt.Errorf("failed to add include to filter script: %w", err)
	}

	compiled, err := script.Compile()
	if err != nil {
		return nil, fmt.Errorf("failed to compile filter script: %w", err)
	}

	return func(name string) bool {
		c := compiled.Clone()
		if err := c.Set("name", name); err != nil {
			return false
		}
		if err := c.Run(); err != nil {
			logger.GetLogger().Warn("extract filter script failed", slog.String("entry", name), slog.Any("error", err))
			return false
		}
		return c.Get("include").Bool()
	}, nil
}
