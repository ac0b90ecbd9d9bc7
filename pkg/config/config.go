// Package config loads reportflow settings.
//
// Settings come from three layers, later layers winning:
//
//  1. [Default] values
//  2. a TOML file, by default $XDG_CONFIG_HOME/reportflow/config.toml
//  3. REPORTFLOW_* environment variables
//
// A missing default config file is not an error. A file given explicitly
// must exist. Unknown keys in the file are rejected so typos surface early.
//
// Example config.toml:
//
//	[server]
//	addr = ":8080"
//	read_timeout = "15s"
//
//	[store]
//	driver = "sqlite"
//
//	[cache]
//	driver = "redis"
//	redis_url = "redis://localhost:6379/0"
//	key_prefix = "staging:"
//
//	[layout]
//	page_size = "LETTER"
//
//	[export]
//	formats = ["pdf", "json"]
//	concurrency = 8
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/adrg/xdg"

	"github.com/matzehuels/reportflow/pkg/core/layout"
	"github.com/matzehuels/reportflow/pkg/errors"
	"github.com/matzehuels/reportflow/pkg/pipeline"
)

// AppName names the XDG directories.
const AppName = "reportflow"

// Store drivers.
const (
	StoreSQLite = "sqlite"
	StoreMongo  = "mongo"
	StoreMemory = "memory"
)

// Cache drivers.
const (
	CacheFile  = "file"
	CacheRedis = "redis"
	CacheNone  = "none"
)

const maxConcurrency = 32

// Config is the full set of settings.
type Config struct {
	Server ServerConfig `toml:"server"`
	Store  StoreConfig  `toml:"store"`
	Cache  CacheConfig  `toml:"cache"`
	Layout LayoutConfig `toml:"layout"`
	Export ExportConfig `toml:"export"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr            string        `toml:"addr"`
	ReadTimeout     time.Duration `toml:"read_timeout"`
	WriteTimeout    time.Duration `toml:"write_timeout"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout"`
	MaxBodyBytes    int64         `toml:"max_body_bytes"`
}

// StoreConfig selects the report store.
type StoreConfig struct {
	Driver        string `toml:"driver"`
	Path          string `toml:"path"`
	MongoURI      string `toml:"mongo_uri"`
	MongoDatabase string `toml:"mongo_database"`
}

// CacheConfig selects the result cache.
type CacheConfig struct {
	Driver   string `toml:"driver"`
	Dir      string `toml:"dir"`
	RedisURL string `toml:"redis_url"`
	// KeyPrefix namespaces cache keys, e.g. "staging:" on a shared Redis.
	KeyPrefix string `toml:"key_prefix"`
}

// LayoutConfig holds defaults for pipeline runs that do not set them.
type LayoutConfig struct {
	PageSize    string `toml:"page_size"`
	Intent      string `toml:"intent"`
	StylePreset string `toml:"style_preset"`
}

// ExportConfig holds export defaults.
type ExportConfig struct {
	Formats     []string `toml:"formats"`
	Concurrency int      `toml:"concurrency"`
	Scale       float64  `toml:"scale"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxBodyBytes:    2 << 20,
		},
		Store: StoreConfig{
			Driver:        StoreSQLite,
			Path:          filepath.Join(DataDir(), "reports.db"),
			MongoDatabase: AppName,
		},
		Cache: CacheConfig{
			Driver: CacheFile,
			Dir:    CacheDir(),
		},
		Layout: LayoutConfig{
			PageSize: pipeline.DefaultPageSize,
			Intent:   pipeline.DefaultIntent,
		},
		Export: ExportConfig{
			Formats:     []string{pipeline.FormatPDF},
			Concurrency: 4,
			Scale:       pipeline.DefaultScale,
		},
	}
}

// ConfigDir is $XDG_CONFIG_HOME/reportflow.
func ConfigDir() string { return filepath.Join(xdg.ConfigHome, AppName) }

// CacheDir is $XDG_CACHE_HOME/reportflow.
func CacheDir() string { return filepath.Join(xdg.CacheHome, AppName) }

// DataDir is $XDG_DATA_HOME/reportflow.
func DataDir() string { return filepath.Join(xdg.DataHome, AppName) }

// DefaultPath is the config file read when no path is given.
func DefaultPath() string { return filepath.Join(ConfigDir(), "config.toml") }

// Load reads the config file at path (DefaultPath when empty), applies
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if err := cfg.loadFile(path, explicit); err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string, required bool) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) && !required {
			return nil
		}
		return fmt.Errorf("config %s: %w", path, err)
	}
	md, err := toml.DecodeFile(path, c)
	if err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return errors.New(errors.ErrCodeInvalidInput, "config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	return nil
}

// ApplyEnv overrides settings from REPORTFLOW_* variables read via getenv.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	str("REPORTFLOW_ADDR", &c.Server.Addr)
	str("REPORTFLOW_STORE", &c.Store.Driver)
	str("REPORTFLOW_STORE_PATH", &c.Store.Path)
	str("REPORTFLOW_MONGO_URI", &c.Store.MongoURI)
	str("REPORTFLOW_MONGO_DATABASE", &c.Store.MongoDatabase)
	str("REPORTFLOW_CACHE", &c.Cache.Driver)
	str("REPORTFLOW_CACHE_DIR", &c.Cache.Dir)
	str("REPORTFLOW_REDIS_URL", &c.Cache.RedisURL)
	str("REPORTFLOW_CACHE_PREFIX", &c.Cache.KeyPrefix)
	str("REPORTFLOW_PAGE_SIZE", &c.Layout.PageSize)
	str("REPORTFLOW_INTENT", &c.Layout.Intent)
	str("REPORTFLOW_STYLE", &c.Layout.StylePreset)

	if v := strings.TrimSpace(getenv("REPORTFLOW_EXPORT_FORMATS")); v != "" {
		c.Export.Formats = splitList(v)
	}
	if v := strings.TrimSpace(getenv("REPORTFLOW_EXPORT_CONCURRENCY")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.New(errors.ErrCodeInvalidInput, "REPORTFLOW_EXPORT_CONCURRENCY: %q is not a number", v)
		}
		c.Export.Concurrency = n
	}
	return nil
}

// Validate checks drivers, layout defaults and export settings, and
// normalizes their casing.
func (c *Config) Validate() error {
	c.Store.Driver = strings.ToLower(c.Store.Driver)
	switch c.Store.Driver {
	case StoreSQLite:
		if c.Store.Path == "" {
			return errors.New(errors.ErrCodeInvalidInput, "store.path is required for the sqlite store")
		}
	case StoreMongo:
		if c.Store.MongoURI == "" {
			return errors.New(errors.ErrCodeInvalidInput, "store.mongo_uri is required for the mongo store")
		}
		if c.Store.MongoDatabase == "" {
			c.Store.MongoDatabase = AppName
		}
	case StoreMemory:
	default:
		return errors.New(errors.ErrCodeInvalidInput, "invalid store driver: %q (must be sqlite, mongo, or memory)", c.Store.Driver)
	}

	c.Cache.Driver = strings.ToLower(c.Cache.Driver)
	switch c.Cache.Driver {
	case CacheFile:
		if c.Cache.Dir == "" {
			return errors.New(errors.ErrCodeInvalidInput, "cache.dir is required for the file cache")
		}
	case CacheRedis:
		if c.Cache.RedisURL == "" {
			return errors.New(errors.ErrCodeInvalidInput, "cache.redis_url is required for the redis cache")
		}
	case CacheNone:
	default:
		return errors.New(errors.ErrCodeInvalidInput, "invalid cache driver: %q (must be file, redis, or none)", c.Cache.Driver)
	}

	ps, err := layout.ResolvePageSize(c.Layout.PageSize)
	if err != nil {
		return err
	}
	c.Layout.PageSize = string(ps.Key)
	if c.Layout.Intent == "" {
		c.Layout.Intent = pipeline.DefaultIntent
	}
	c.Layout.Intent = strings.ToLower(c.Layout.Intent)
	if err := pipeline.ValidateIntent(c.Layout.Intent); err != nil {
		return err
	}
	if c.Layout.StylePreset != "" {
		p, err := layout.ResolvePreset(c.Layout.StylePreset)
		if err != nil {
			return err
		}
		c.Layout.StylePreset = string(p.Name)
	}

	if len(c.Export.Formats) == 0 {
		c.Export.Formats = []string{pipeline.FormatPDF}
	}
	if err := pipeline.ValidateFormats(c.Export.Formats); err != nil {
		return err
	}
	if c.Export.Concurrency < 1 || c.Export.Concurrency > maxConcurrency {
		return errors.New(errors.ErrCodeInvalidInput, "export.concurrency must be between 1 and %d, got %d", maxConcurrency, c.Export.Concurrency)
	}
	if c.Export.Scale <= 0 {
		c.Export.Scale = pipeline.DefaultScale
	}
	if c.Server.MaxBodyBytes <= 0 {
		c.Server.MaxBodyBytes = 2 << 20
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, strings.ToLower(part))
		}
	}
	return out
}
