// Package config loads talendar settings from defaults, an optional YAML
// file and TALENDAR_* environment variables, in increasing precedence.
// Command-line flags are applied on top by the caller.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/teemow/talendar/internal/logging"
	"github.com/teemow/talendar/internal/store"
)

const (
	appName = "talendar"

	// Defaults applied by Normalize.
	DefaultRequestTimeout = 30 * time.Second
	DefaultParallelism    = 1
	MaxParallelism        = 16
	DefaultRefresh        = "*/15 * * * *"
	DefaultMetricsAddr    = "127.0.0.1:9090"
	DefaultLogLevel       = "info"
)

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the application configuration.
type Config struct {
	// DataDir holds the cache, token and client secret unless their paths are set.
	DataDir string `yaml:"data_dir"`

	CachePath    string `yaml:"cache_path"`
	CacheBackend string `yaml:"cache_backend"`

	ClientSecretPath string `yaml:"client_secret_path"`
	TokenPath        string `yaml:"token_path"`

	// TimeZone is an IANA name. Empty means the local zone.
	TimeZone string `yaml:"time_zone"`

	RequestTimeout time.Duration `yaml:"request_timeout"`

	// Parallelism is the number of calendars synced concurrently.
	Parallelism int `yaml:"parallelism"`

	// Refresh is the cron schedule used by watch.
	Refresh string `yaml:"refresh"`

	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
}

// DefaultConfig returns the built-in defaults with all paths resolved.
func DefaultConfig() *Config {
	c := &Config{}
	c.Normalize()
	return c
}

// DefaultConfigPath is <user config dir>/talendar/config.yaml.
func DefaultConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve config directory: %w", err)
	}
	return filepath.Join(dir, appName, "config.yaml"), nil
}

// DefaultDataDir returns $XDG_DATA_HOME/talendar, falling back to
// ~/.local/share/talendar. macOS and Windows use the user config directory.
func DefaultDataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	switch runtime.GOOS {
	case "darwin", "windows":
		if dir, err := os.UserConfigDir(); err == nil {
			return filepath.Join(dir, appName)
		}
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", appName)
	}
	return appName
}

// Load reads the YAML file at path, applies the environment and then each
// override, and normalizes the result. An empty path means DefaultConfigPath,
// which may be absent; an explicit path must exist.
func Load(path string, overrides ...func(*Config)) (*Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := DefaultConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg := &Config{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	for _, override := range overrides {
		override(cfg)
	}
	cfg.Normalize()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	vars := map[string]*string{
		"TALENDAR_DATA_DIR":      &c.DataDir,
		"TALENDAR_CACHE_PATH":    &c.CachePath,
		"TALENDAR_CACHE_BACKEND": &c.CacheBackend,
		"TALENDAR_CLIENT_SECRET": &c.ClientSecretPath,
		"TALENDAR_TOKEN_PATH":    &c.TokenPath,
		"TALENDAR_TIME_ZONE":     &c.TimeZone,
		"TALENDAR_REFRESH":       &c.Refresh,
		"TALENDAR_METRICS_ADDR":  &c.MetricsAddr,
		"TALENDAR_LOG_LEVEL":     &c.LogLevel,
	}
	for key, dst := range vars {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}

	if v, ok := os.LookupEnv("TALENDAR_REQUEST_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: TALENDAR_REQUEST_TIMEOUT: %v", ErrInvalidConfig, err)
		}
		c.RequestTimeout = d
	}
	if v, ok := os.LookupEnv("TALENDAR_PARALLELISM"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: TALENDAR_PARALLELISM: %v", ErrInvalidConfig, err)
		}
		c.Parallelism = n
	}
	return nil
}

// Normalize fills unset values with defaults and derives paths from DataDir.
func (c *Config) Normalize() {
	if c.DataDir == "" {
		c.DataDir = DefaultDataDir()
	}
	if c.CacheBackend == "" {
		c.CacheBackend = store.BackendJSON
	}
	if c.CachePath == "" {
		name := "cache.json"
		if c.CacheBackend == store.BackendBolt {
			name = "cache.db"
		}
		c.CachePath = filepath.Join(c.DataDir, name)
	}
	if c.ClientSecretPath == "" {
		c.ClientSecretPath = filepath.Join(c.DataDir, "client_secret.json")
	}
	if c.TokenPath == "" {
		c.TokenPath = filepath.Join(c.DataDir, "token.json")
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	if c.Parallelism == 0 {
		c.Parallelism = DefaultParallelism
	}
	if c.Refresh == "" {
		c.Refresh = DefaultRefresh
	}
	if c.MetricsAddr == "" {
		c.MetricsAddr = DefaultMetricsAddr
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
}

// Validate reports every invalid field.
func (c *Config) Validate() error {
	var errs []error
	if _, err := store.New(c.CacheBackend, c.CachePath); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("request_timeout must be positive, got %s", c.RequestTimeout))
	}
	if c.Parallelism < 1 || c.Parallelism > MaxParallelism {
		errs = append(errs, fmt.Errorf("parallelism must be between 1 and %d, got %d", MaxParallelism, c.Parallelism))
	}
	if _, err := c.Schedule(); err != nil {
		errs = append(errs, err)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// Location resolves TimeZone.
func (c *Config) Location() (*time.Location, error) {
	if c.TimeZone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("unknown time_zone %q: %w", c.TimeZone, err)
	}
	return loc, nil
}

// Schedule parses Refresh as a standard five-field cron spec.
func (c *Config) Schedule() (cron.Schedule, error) {
	s, err := cron.ParseStandard(c.Refresh)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", c.Refresh, err)
	}
	return s, nil
}

// Store returns the configured cache store.
func (c *Config) Store() (store.Store, error) {
	return store.New(c.CacheBackend, c.CachePath)
}
