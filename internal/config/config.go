// Package config loads devscout's TOML configuration file.
//
// The file is optional: a missing file yields [Default]. Environment
// variables are applied after the file, so a value exported in the shell
// always wins over the one on disk.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/devscout/pkg/candidate"
	errs "github.com/matzehuels/devscout/pkg/errors"
	"github.com/matzehuels/devscout/pkg/rank"
	"github.com/matzehuels/devscout/pkg/registry"
)

const appName = "devscout"

// Environment variables consulted by [Load].
const (
	EnvConfig      = "DEVSCOUT_CONFIG"
	EnvGitHubToken = "GITHUB_TOKEN"
	EnvRedisAddr   = "DEVSCOUT_REDIS_ADDR"
	EnvMongoURI    = "DEVSCOUT_MONGO_URI"
	EnvPostgresDSN = "DEVSCOUT_POSTGRES_DSN"
)

// Cache backends.
const (
	CacheFile   = "file"
	CacheRedis  = "redis"
	CacheMemory = "memory"
	CacheNone   = "none"
)

// Store backends.
const (
	StoreFile     = "file"
	StoreMongo    = "mongo"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config is the in-memory representation of config.toml.
type Config struct {
	Search Search `toml:"search"`
	Cache  Cache  `toml:"cache"`
	Store  Store  `toml:"store"`
	Server Server `toml:"server"`
	Filter Filter `toml:"filter"`
	GitHub GitHub `toml:"github"`
}

// Search holds discovery defaults.
type Search struct {
	PageSize  int    `toml:"page_size"`
	EnrichCap int    `toml:"enrich_cap"`
	Mode      string `toml:"mode"`
	Registry  string `toml:"registry"`
}

// Cache selects the profile cache backend.
type Cache struct {
	Backend       string `toml:"backend"`
	Dir           string `toml:"dir"`
	Freshness     string `toml:"freshness"`
	RedisAddr     string `toml:"redis_addr"`
	RedisDB       int    `toml:"redis_db"`
	RedisPassword string `toml:"redis_password"`
}

// Store selects the saved-candidate backend.
type Store struct {
	Backend       string `toml:"backend"`
	Path          string `toml:"path"`
	MongoURI      string `toml:"mongo_uri"`
	MongoDatabase string `toml:"mongo_database"`
	PostgresDSN   string `toml:"postgres_dsn"`
}

// Server configures `devscout serve`.
type Server struct {
	Addr        string `toml:"addr"`
	MaxSessions int    `toml:"max_sessions"`
}

// Filter points at an optional organization list.
type Filter struct {
	OrgsFile        string `toml:"orgs_file"`
	ReplaceDefaults bool   `toml:"replace_defaults"`
}

// GitHub carries an optional API token.
type GitHub struct {
	Token string `toml:"token"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Search: Search{
			PageSize:  50,
			EnrichCap: 15,
			Mode:      string(rank.ModeOptimal),
			Registry:  string(candidate.ProvenanceNPM),
		},
		Cache: Cache{
			Backend:   CacheFile,
			Freshness: "24h",
		},
		Store: Store{
			Backend:       StoreFile,
			MongoDatabase: appName,
		},
		Server: Server{Addr: ":8080", MaxSessions: 1000},
	}
}

// Path returns the config file location: $DEVSCOUT_CONFIG if set, else
// $XDG_CONFIG_HOME/devscout/config.toml, else ~/.config/devscout/config.toml.
func Path() (string, error) {
	if p := os.Getenv(EnvConfig); p != "" {
		return p, nil
	}
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}

// Load reads path (or [Path] when empty), applies environment overrides
// and validates the result.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := Path()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("cannot read config %s: %w", path, err)
	default:
		if err := Parse(data, cfg); err != nil {
			return nil, errs.Wrap(errs.ErrCodeInvalidConfig, err, "invalid TOML in %s", path)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes TOML data over cfg. Keys absent from data keep their
// current values; unknown keys are rejected.
func Parse(data []byte, cfg *Config) error {
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvGitHubToken); v != "" {
		c.GitHub.Token = v
	}
	if v := os.Getenv(EnvRedisAddr); v != "" {
		c.Cache.RedisAddr = v
	}
	if v := os.Getenv(EnvMongoURI); v != "" {
		c.Store.MongoURI = v
	}
	if v := os.Getenv(EnvPostgresDSN); v != "" {
		c.Store.PostgresDSN = v
	}
}

// Validate checks every section and returns the first problem as an
// INVALID_CONFIG error.
func (c *Config) Validate() error {
	if c.Search.PageSize <= 0 {
		return invalid("search.page_size must be positive, got %d", c.Search.PageSize)
	}
	if _, err := rank.ParseMode(c.Search.Mode); err != nil {
		return invalid("search.mode: %s", errs.UserMessage(err))
	}
	if _, err := registry.ParseRegistry(c.Search.Registry); err != nil {
		return invalid("search.registry: %s", errs.UserMessage(err))
	}

	switch c.Cache.Backend {
	case CacheFile, CacheMemory, CacheNone:
	case CacheRedis:
		if c.Cache.RedisAddr == "" {
			return invalid("cache.redis_addr is required for the redis backend")
		}
	default:
		return invalid("unknown cache.backend %q", c.Cache.Backend)
	}
	if _, err := c.Freshness(); err != nil {
		return err
	}

	switch c.Store.Backend {
	case StoreFile, StoreMemory:
	case StoreMongo:
		if c.Store.MongoURI == "" {
			return invalid("store.mongo_uri is required for the mongo backend")
		}
	case StorePostgres:
		if c.Store.PostgresDSN == "" {
			return invalid("store.postgres_dsn is required for the postgres backend")
		}
	default:
		return invalid("unknown store.backend %q", c.Store.Backend)
	}

	if c.Server.Addr == "" {
		return invalid("server.addr cannot be empty")
	}
	if c.Server.MaxSessions < 0 {
		return invalid("server.max_sessions must not be negative")
	}
	return nil
}

// Freshness parses cache.freshness. An empty value selects 24h.
func (c *Config) Freshness() (time.Duration, error) {
	if c.Cache.Freshness == "" {
		return 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(c.Cache.Freshness)
	if err != nil {
		return 0, invalid("cache.freshness: %v", err)
	}
	if d <= 0 {
		return 0, invalid("cache.freshness must be positive, got %s", d)
	}
	return d, nil
}

// Mode returns the validated default ranking mode.
func (c *Config) Mode() rank.Mode {
	m, _ := rank.ParseMode(c.Search.Mode)
	return m
}

// Registry returns the validated default registry.
func (c *Config) Registry() candidate.Provenance {
	p, _ := registry.ParseRegistry(c.Search.Registry)
	return p
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(p string) (string, error) {
	if !strings.HasPrefix(p, "~") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot expand ~: %w", err)
	}
	return filepath.Join(home, p[1:]), nil
}

func invalid(format string, args ...any) error {
	return errs.New(errs.ErrCodeInvalidConfig, format, args...)
}
