package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/glorpus-work/librestore/internal/logger"
	"github.com/glorpus-work/librestore/pkg/cache"
	"github.com/glorpus-work/librestore/pkg/config"
	"github.com/glorpus-work/librestore/pkg/errors"
	"github.com/glorpus-work/librestore/pkg/installer"
	"github.com/glorpus-work/librestore/pkg/model"
	"github.com/glorpus-work/librestore/pkg/provider"
	"github.com/glorpus-work/librestore/pkg/restore"
	"github.com/glorpus-work/librestore/pkg/source"
	"github.com/glorpus-work/librestore/pkg/versioning"
)

// These variables will be set by the main package
var (
	ConfigPath   *string
	Verbose      *bool
	NoColor      *bool
	OutputFormat *string
)

// TabWidth is the padding used by tabular output.
const TabWidth = 2

func getConfigPath() string {
	if ConfigPath != nil && *ConfigPath != "" {
		return *ConfigPath
	}

	defaultPath, err := config.GetDefaultConfigPath()
	if err != nil {
		// An empty path surfaces as ErrEmptyConfigPath on first use.
		logger.Warn("Failed to get default config path", logger.Fields{"error": err})
		return ""
	}
	return defaultPath
}

// loadConfig reads the configuration, applies the global flags and configures logging.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(getConfigPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if OutputFormat != nil && *OutputFormat != "" {
		cfg.Settings.OutputFormat = *OutputFormat
	}
	if Verbose != nil && *Verbose {
		cfg.Settings.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	format := logger.OutputFormat(cfg.Settings.OutputFormat)
	if format == logger.FormatPretty && NoColor != nil && *NoColor {
		format = logger.FormatText
	}
	logger.InitLogger(cfg.Settings.LogLevel, format)

	return cfg, nil
}

func jsonOutput(cfg *config.Config) bool {
	return cfg.Settings.OutputFormat == string(logger.FormatJSON)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// newProviders returns one provider per enabled source, in priority order.
func newProviders(cfg *config.Config) ([]*provider.Provider, error) {
	sources := cfg.EnabledSources()
	if len(sources) == 0 {
		return nil, fmt.Errorf("no enabled sources, add one with 'librestore source add'")
	}

	opts := source.Options{
		NoCache:     cfg.Settings.NoCache,
		HTTPTimeout: cfg.Settings.HTTPTimeout,
		Logger:      logger.GetLogger(),
	}
	providers := make([]*provider.Provider, 0, len(sources))
	for _, s := range sources {
		providers = append(providers, provider.New(
			source.ForLocation(s.Name, s.URL),
			provider.WithSourceOptions(opts),
			provider.WithLogger(logger.GetLogger()),
		))
	}
	return providers, nil
}

func newRestorer(cfg *config.Config, hooks restore.Hooks) (*restore.Restorer, error) {
	providers, err := newProviders(cfg)
	if err != nil {
		return nil, err
	}
	filter, err := cfg.ExtractFilter()
	if err != nil {
		return nil, err
	}

	cacheDir := cfg.GetCacheDir()
	inst := installer.New(cacheDir,
		installer.WithFilter(filter),
		installer.WithLockOptions(cfg.LockOptions()),
		installer.WithLogger(logger.GetLogger()),
	)

	lps := make([]restore.LibraryProvider, 0, len(providers))
	for _, p := range providers {
		lps = append(lps, p)
	}
	return restore.New(lps, inst, cache.NewManager(cacheDir), hooks), nil
}

// ParseDependencies turns NAME or NAME@RANGE arguments into dependencies.
func ParseDependencies(args []string) ([]model.LibraryDependency, error) {
	deps := make([]model.LibraryDependency, 0, len(args))
	for _, arg := range args {
		name, rng, hasRange := strings.Cut(arg, "@")
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, errors.Wrapf(errors.ErrInvalidRange, "missing library name in %q", arg)
		}

		lr := model.LibraryRange{Name: name}
		if hasRange {
			r, err := versioning.Parse(rng)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", arg, err)
			}
			lr.VersionRange = r
		}
		deps = append(deps, model.NewDependency(lr))
	}
	return deps, nil
}

func progressHooks(w io.Writer) restore.Hooks {
	var mu sync.Mutex
	return restore.Hooks{OnEvent: func(e restore.Event) {
		mu.Lock()
		defer mu.Unlock()
		switch {
		case e.ID != "" && e.Msg != "":
			_, _ = fmt.Fprintf(w, "%s: %s (%s)\n", e.Phase, e.Msg, e.ID)
		case e.ID != "":
			_, _ = fmt.Fprintf(w, "%s: %s\n", e.Phase, e.ID)
		default:
			_, _ = fmt.Fprintf(w, "%s: %s\n", e.Phase, e.Msg)
		}
	}}
}
