package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"
)

// FileName is the config file name inside the global and repo directories.
const FileName = "config.yaml"

// RepoDirName is the per-repository config directory.
const RepoDirName = ".jot"

// Config holds application configuration.
type Config struct {
	// DefaultTTLDays applies when a jot is created without a TTL. 0 means permanent;
	// nil means "not set" so a file can explicitly choose 0.
	DefaultTTLDays *int `yaml:"default_ttl_days,omitempty"`

	// ExpiringWindowDays is the default horizon for expiring-soon queries.
	ExpiringWindowDays int `yaml:"expiring_window_days"`

	DefaultSearchLimit int `yaml:"default_search_limit"`
	MaxSearchLimit     int `yaml:"max_search_limit"`

	// DefaultContext is the context name used when auto-detection finds nothing usable.
	DefaultContext string `yaml:"default_context"`

	// PrimaryBranches are branch names that map to the bare repository context
	// (no "/branch" suffix).
	PrimaryBranches []string `yaml:"primary_branches,omitempty"`

	// AutoCleanup enables the opportunistic expiration sweep after reads.
	// nil means "not set" so repo config can turn it off over a global true.
	AutoCleanup *bool `yaml:"auto_cleanup,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// AllowedPaths is an allowlist of directories for import/export operations.
	// Paths outside <home>/exports require either being in this list or AllowUnsafePaths=true.
	AllowedPaths []string `yaml:"allowed_paths,omitempty"`

	// AllowUnsafePaths disables directory restrictions for import/export.
	// Symlink and extension checks still apply.
	AllowUnsafePaths bool `yaml:"allow_unsafe_paths,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// 0 means use sql.DB default (unlimited).
	DBMaxOpenConns int `yaml:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	DBMaxIdleConns int `yaml:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `yaml:"disabled_tools,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	autoCleanup := true
	ttl := 30
	return &Config{
		DefaultTTLDays:     &ttl,
		ExpiringWindowDays: 7,
		DefaultSearchLimit: 50,
		MaxSearchLimit:     500,
		DefaultContext:     "default",
		PrimaryBranches:    []string{"main", "master"},
		AutoCleanup:        &autoCleanup,
		LogLevel:           "info",
	}
}

// DefaultTTL returns the default TTL in days (30 when unset).
func (c *Config) DefaultTTL() int {
	if c.DefaultTTLDays == nil {
		return 30
	}
	return *c.DefaultTTLDays
}

// AutoCleanupEnabled reports whether opportunistic sweeps are on.
func (c *Config) AutoCleanupEnabled() bool {
	return c.AutoCleanup == nil || *c.AutoCleanup
}

// SlogLevel maps LogLevel to a slog.Level. Unknown values fall back to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.DefaultTTLDays, validation.Min(0)),
		validation.Field(&c.ExpiringWindowDays, validation.Required, validation.Min(1)),
		validation.Field(&c.DefaultSearchLimit, validation.Required, validation.Min(1), validation.Max(c.MaxSearchLimit)),
		validation.Field(&c.MaxSearchLimit, validation.Required, validation.Min(1)),
		validation.Field(&c.DefaultContext, validation.Required),
		validation.Field(&c.LogLevel, validation.In("debug", "info", "warn", "error")),
		validation.Field(&c.DBMaxOpenConns, validation.Min(0)),
		validation.Field(&c.DBMaxIdleConns, validation.Min(0)),
	)
}

// Load loads configuration from baseDir/config.yaml.
// Returns default config if the file doesn't exist.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFileRaw(filepath.Join(baseDir, FileName))
	if err != nil {
		return nil, err
	}
	merged := Merge(DefaultConfig(), cfg)
	if err := merged.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return merged, nil
}

// LoadWithRepo loads configuration from both the global directory and the
// nearest repo directory (.jot/config.yaml found by walking upward from startDir).
// Repo config takes precedence for scalar values; arrays are merged (deduplicated).
// Either or both configs may be missing.
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, FileName))
	if err != nil {
		return nil, err
	}

	repo, err := loadFileRaw(FindRepoConfig(startDir))
	if err != nil {
		return nil, err
	}

	merged := Merge(Merge(DefaultConfig(), global), repo)
	if err := merged.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return merged, nil
}

// FindRepoConfig walks upward from startDir to find the nearest .jot/config.yaml.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	if startDir == "" {
		return ""
	}
	dir := startDir
	for {
		configPath := filepath.Join(dir, RepoDirName, FileName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadFileRaw loads configuration from a specific file path, expanding
// ${VAR} references from the environment.
// Returns zero-valued config if the path is empty or the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	if configPath == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	return cfg, nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	result.DefaultTTLDays = overlay.DefaultTTLDays
	if result.DefaultTTLDays == nil {
		result.DefaultTTLDays = base.DefaultTTLDays
	}
	result.ExpiringWindowDays = pickInt(overlay.ExpiringWindowDays, base.ExpiringWindowDays)
	result.DefaultSearchLimit = pickInt(overlay.DefaultSearchLimit, base.DefaultSearchLimit)
	result.MaxSearchLimit = pickInt(overlay.MaxSearchLimit, base.MaxSearchLimit)
	result.DBMaxOpenConns = pickInt(overlay.DBMaxOpenConns, base.DBMaxOpenConns)
	result.DBMaxIdleConns = pickInt(overlay.DBMaxIdleConns, base.DBMaxIdleConns)

	result.DefaultContext = strings.TrimSpace(overlay.DefaultContext)
	if result.DefaultContext == "" {
		result.DefaultContext = base.DefaultContext
	}
	result.LogLevel = strings.TrimSpace(overlay.LogLevel)
	if result.LogLevel == "" {
		result.LogLevel = base.LogLevel
	}

	result.AutoCleanup = overlay.AutoCleanup
	if result.AutoCleanup == nil {
		result.AutoCleanup = base.AutoCleanup
	}

	// Booleans: overlay wins if true, else base
	result.AllowUnsafePaths = base.AllowUnsafePaths || overlay.AllowUnsafePaths

	result.PrimaryBranches = mergeStringSlice(base.PrimaryBranches, overlay.PrimaryBranches)
	result.AllowedPaths = mergeStringSlice(base.AllowedPaths, overlay.AllowedPaths)
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

// pickInt returns overlay if non-zero, else base.
func pickInt(overlay, base int) int {
	if overlay != 0 {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string{}, a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
