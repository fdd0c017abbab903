// Package config loads and saves the librestore configuration: where the shared cache
// lives, which sources to restore from, and how restores behave.
package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/glorpus-work/librestore/internal/logger"
	"github.com/glorpus-work/librestore/pkg/archive"
	"github.com/glorpus-work/librestore/pkg/errors"
	"github.com/glorpus-work/librestore/pkg/filelock"
	"github.com/glorpus-work/librestore/pkg/framework"
	"github.com/glorpus-work/librestore/pkg/fsutil"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Sources  []*SourceConfig `yaml:"sources"`
	Settings Settings        `yaml:"settings"`
}

// SourceConfig is a package source. URL is an http(s) feed root, a file URL or a directory.
type SourceConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
	// Enabled defaults to true when omitted.
	Enabled *bool `yaml:"enabled,omitempty"`
	// Sources are consulted in ascending priority order.
	Priority uint `yaml:"priority"`
}

// IsEnabled reports whether the source takes part in restores.
func (s *SourceConfig) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// Settings represents general application settings.
type Settings struct {
	// Cache settings
	CacheDir    string        `yaml:"cache_dir,omitempty"`
	LockTimeout time.Duration `yaml:"lock_timeout"`
	NoCache     bool          `yaml:"no_cache"`

	// Network settings
	HTTPTimeout   time.Duration `yaml:"http_timeout"`
	MaxConcurrent int           `yaml:"max_concurrent"`

	// Resolution settings
	TargetFramework   string `yaml:"target_framework"`
	RuntimeIdentifier string `yaml:"runtime_identifier,omitempty"`
	IncludePrerelease bool   `yaml:"include_prerelease"`

	// ExtractFilter is a Tengo script further restricting which archive entries are installed.
	ExtractFilter string `yaml:"extract_filter,omitempty"`

	// Output settings
	OutputFormat string `yaml:"output_format"` // pretty, text, json
	LogLevel     string `yaml:"log_level"`     // debug, info, warn, error
}

// Default configuration values.
const (
	// DefaultLockTimeout bounds the wait for another process installing the same library.
	DefaultLockTimeout = 2 * time.Minute

	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second

	// DefaultMaxConcurrent is the default number of libraries installed in parallel.
	DefaultMaxConcurrent = 4

	// DefaultTargetFramework is used when no target framework is configured.
	DefaultTargetFramework = "netstandard2.0"

	// YAMLIndent is the number of spaces to use for YAML indentation.
	YAMLIndent = 2
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	cacheDir, err := fsutil.GetPackagesDir()
	if err != nil {
		cacheDir = filepath.Join(os.TempDir(), fsutil.AppName, "packages")
	}

	return &Config{
		Sources: []*SourceConfig{},
		Settings: Settings{
			CacheDir:        cacheDir,
			LockTimeout:     DefaultLockTimeout,
			HTTPTimeout:     DefaultHTTPTimeout,
			MaxConcurrent:   DefaultMaxConcurrent,
			TargetFramework: DefaultTargetFramework,
			OutputFormat:    string(logger.FormatPretty),
			LogLevel:        "info",
		},
	}
}

// LoadConfig loads configuration from a file. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, errors.ErrEmptyConfigPath
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInvalidConfigPath, err.Error())
	}

	file, err := os.Open(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, errors.Wrapf(err, "failed to open config file: %s", path)
	}
	defer func() { _ = file.Close() }()

	return LoadConfigFromReader(file)
}

// LoadConfigFromReader loads configuration from an io.Reader.
func LoadConfigFromReader(reader io.Reader) (*Config, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config data")
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errors.Wrap(errors.ErrConfigParse, err.Error())
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrConfigValidation, err)
	}

	return &config, nil
}

// SaveConfig writes the configuration to path, replacing it atomically.
func (c *Config) SaveConfig(path string) error {
	if path == "" {
		return errors.ErrEmptyConfigPath
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrap(errors.ErrInvalidConfigPath, err.Error())
	}

	if err := os.MkdirAll(filepath.Dir(absPath), fsutil.DirModeDefault); err != nil {
		return errors.Wrap(errors.ErrConfigDirectory, err.Error())
	}

	data, err := c.ToYAML()
	if err != nil {
		return err
	}
	return fsutil.WriteFileAtomic(absPath, data, fsutil.FileModeDefault)
}

// ToYAML converts the config to YAML bytes.
func (c *Config) ToYAML() ([]byte, error) {
	buf := &bytes.Buffer{}
	encoder := yaml.NewEncoder(buf)
	encoder.SetIndent(YAMLIndent)
	if err := encoder.Encode(c); err != nil {
		return nil, errors.Wrap(errors.ErrConfigEncode, err.Error())
	}
	if err := encoder.Close(); err != nil {
		return nil, errors.Wrap(errors.ErrConfigEncode, err.Error())
	}
	return buf.Bytes(), nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c == nil {
		return errors.ErrConfigValidation
	}
	if err := validateSources(c.Sources); err != nil {
		return err
	}
	return validateSettings(c.Settings)
}

func validateSources(sources []*SourceConfig) error {
	names := make(map[string]bool)
	for i, s := range sources {
		if s.Name == "" {
			return fmt.Errorf("source %d: name cannot be empty", i)
		}
		if s.URL == "" {
			return fmt.Errorf("source '%s': url cannot be empty", s.Name)
		}
		key := strings.ToLower(s.Name)
		if names[key] {
			return fmt.Errorf("source '%s': duplicate source name", s.Name)
		}
		names[key] = true
	}
	return nil
}

func validateSettings(s Settings) error {
	if s.HTTPTimeout < 0 {
		return fmt.Errorf("http_timeout cannot be negative")
	}
	if s.LockTimeout < 0 {
		return fmt.Errorf("lock_timeout cannot be negative")
	}
	if s.MaxConcurrent < 1 {
		return fmt.Errorf("max_concurrent must be at least 1")
	}
	if _, err := framework.Parse(s.TargetFramework); err != nil {
		return fmt.Errorf("target_framework: %w", err)
	}
	if s.ExtractFilter != "" {
		if _, err := archive.ScriptFilter(s.ExtractFilter); err != nil {
			return fmt.Errorf("extract_filter: %w", err)
		}
	}
	switch logger.OutputFormat(s.OutputFormat) {
	case logger.FormatPretty, logger.FormatText, logger.FormatJSON:
	default:
		return fmt.Errorf("invalid output_format '%s', must be one of: pretty, text, json", s.OutputFormat)
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(s.LogLevel)] {
		return fmt.Errorf("invalid log_level '%s', must be one of: debug, info, warn, error", s.LogLevel)
	}
	return nil
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() (string, error) {
	path, err := fsutil.GetConfigPath()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return path, nil
}

// AddSource adds a source. It returns an error if a source with the same name exists.
func (c *Config) AddSource(name, url string, priority uint) error {
	if c.GetSource(name) != nil {
		return fmt.Errorf("source '%s' already exists", name)
	}
	c.Sources = append(c.Sources, &SourceConfig{Name: name, URL: url, Priority: priority})
	return nil
}

// RemoveSource removes a source by name.
func (c *Config) RemoveSource(name string) bool {
	for i, s := range c.Sources {
		if strings.EqualFold(s.Name, name) {
			c.Sources = append(c.Sources[:i], c.Sources[i+1:]...)
			return true
		}
	}
	return false
}

// GetSource returns the source with the given name, or nil.
func (c *Config) GetSource(name string) *SourceConfig {
	for _, s := range c.Sources {
		if strings.EqualFold(s.Name, name) {
			return s
		}
	}
	return nil
}

// EnableSource enables or disables a source.
func (c *Config) EnableSource(name string, enabled bool) bool {
	s := c.GetSource(name)
	if s == nil {
		return false
	}
	s.Enabled = &enabled
	return true
}

// EnabledSources returns the enabled sources ordered by priority.
func (c *Config) EnabledSources() []*SourceConfig {
	var out []*SourceConfig
	for _, s := range c.Sources {
		if s.IsEnabled() {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out
}

// GetCacheDir returns the shared library cache root.
func (c *Config) GetCacheDir() string {
	return c.Settings.CacheDir
}

// GetTargetFramework returns the parsed target framework.
func (c *Config) GetTargetFramework() (framework.Framework, error) {
	return framework.Parse(c.Settings.TargetFramework)
}

// LockOptions returns the install lock options derived from the settings.
func (c *Config) LockOptions() filelock.Options {
	opts := filelock.DefaultOptions()
	if c.Settings.LockTimeout > 0 {
		opts.Timeout = c.Settings.LockTimeout
	}
	return opts
}

// ExtractFilter returns the filter applied when installing libraries: the bookkeeping
// filter, combined with the configured script when there is one.
func (c *Config) ExtractFilter() (archive.Filter, error) {
	if c.Settings.ExtractFilter == "" {
		return archive.DefaultFilter, nil
	}
	script, err := archive.ScriptFilter(c.Settings.ExtractFilter)
	if err != nil {
		return nil, err
	}
	return archive.All(archive.DefaultFilter, script), nil
}

// applyDefaults fills in missing values with defaults.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()

	if c.Settings.CacheDir == "" {
		c.Settings.CacheDir = defaults.Settings.CacheDir
	}
	if c.Settings.LockTimeout == 0 {
		c.Settings.LockTimeout = defaults.Settings.LockTimeout
	}
	if c.Settings.HTTPTimeout == 0 {
		c.Settings.HTTPTimeout = defaults.Settings.HTTPTimeout
	}
	if c.Settings.MaxConcurrent == 0 {
		c.Settings.MaxConcurrent = defaults.Settings.MaxConcurrent
	}
	if c.Settings.TargetFramework == "" {
		c.Settings.TargetFramework = defaults.Settings.TargetFramework
	}
	if c.Settings.OutputFormat == "" {
		c.Settings.OutputFormat = defaults.Settings.OutputFormat
	}
	if c.Settings.LogLevel == "" {
		c.Settings.LogLevel = defaults.Settings.LogLevel
	}
}
