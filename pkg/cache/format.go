package cache

import (
	"fmt"
	"strings"
)

// FormatInfo renders Info for terminal output.
func FormatInfo(info *Info) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Cache Information:\n")
	fmt.Fprintf(&b, "  Directory:   %s\n", info.Directory)
	fmt.Fprintf(&b, "  Total Size:  %s (%d files)\n", FormatBytes(info.TotalSize), info.TotalFiles)
	fmt.Fprintf(&b, "  Libraries:   %d\n", info.Libraries)
	fmt.Fprintf(&b, "  Incomplete:  %d", info.Incomplete)
	return b.String()
}

// FormatBytes converts bytes to a human-readable string.
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}

	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	units := []string{"K", "M", "G", "T", "P", "E"}
	if exp < len(units) {
		return fmt.Sprintf("%.1f %sB", float64(bytes)/float64(div), units[exp])
	}
	return fmt.Sprintf("%d B", bytes)
}
