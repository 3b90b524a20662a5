// Package cli implements the devscout command-line interface.
package cli

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/devscout/internal/config"
	"github.com/matzehuels/devscout/pkg/buildinfo"
	"github.com/matzehuels/devscout/pkg/cache"
	"github.com/matzehuels/devscout/pkg/filter"
	"github.com/matzehuels/devscout/pkg/integrations/github"
	"github.com/matzehuels/devscout/pkg/integrations/npm"
	"github.com/matzehuels/devscout/pkg/observability"
	"github.com/matzehuels/devscout/pkg/profile"
	"github.com/matzehuels/devscout/pkg/registry"
	"github.com/matzehuels/devscout/pkg/session"
	"github.com/matzehuels/devscout/pkg/store"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "devscout"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath  string
	githubToken string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "devscout finds developers through the packages they publish",
		Long: `devscout searches package registries (npm, and PyPI or GitHub through
GitHub repository search) for a set of skills, deduplicates the results by
publisher, drops organization accounts and enriches the top hits with
their GitHub profiles.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			observability.SetSearchHooks(logHooks{c.Logger})
			observability.SetCacheHooks(logHooks{c.Logger})
			observability.SetHTTPHooks(logHooks{c.Logger})
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/devscout/config.toml)")
	root.PersistentFlags().StringVar(&c.githubToken, "github-token", "", "GitHub token (overrides config and saved login)")

	// Register all subcommands
	root.AddCommand(c.searchCommand())
	root.AddCommand(c.profileCommand())
	root.AddCommand(c.savedCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.githubCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Service Factory
// =============================================================================

// services bundles the collaborators a discovery command needs.
type services struct {
	cfg      *config.Config
	cache    cache.Cache
	github   *github.Client
	sources  registry.Sources
	profiles *profile.Enricher
	orgs     filter.OrgList
}

// Close releases the cache backend.
func (s *services) Close() error {
	return s.cache.Close()
}

func (c *CLI) loadConfig() (*config.Config, error) {
	return config.Load(c.configPath)
}

// newServices loads config and builds clients, cache and enricher.
func (c *CLI) newServices(ctx context.Context, noCache bool) (*services, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}

	orgs, err := loadOrgs(cfg)
	if err != nil {
		return nil, err
	}

	freshness, err := cfg.Freshness()
	if err != nil {
		return nil, err
	}

	ch, err := newCache(ctx, cfg, noCache)
	if err != nil {
		return nil, err
	}

	token, err := c.resolveToken(ctx, cfg)
	if err != nil {
		c.Logger.Debug("token lookup failed", "err", err)
	}
	gh := github.NewClient(token)
	if gh.Authenticated() {
		c.Logger.Debug("using authenticated GitHub client")
	}

	return &services{
		cfg:     cfg,
		cache:   ch,
		github:  gh,
		sources: registry.NewSources(npm.NewClient(""), gh),
		profiles: profile.New(gh, ch, profile.Options{
			Freshness: freshness,
			Logger:    c.Logger,
		}),
		orgs: orgs,
	}, nil
}

// resolveToken applies the token precedence: --github-token, then
// GITHUB_TOKEN or the config file, then the saved login.
func (c *CLI) resolveToken(ctx context.Context, cfg *config.Config) (string, error) {
	chain := session.Chain{session.StaticToken(c.githubToken), session.StaticToken(cfg.GitHub.Token)}
	if st, err := session.NewCLIStore(""); err == nil {
		chain = append(chain, st)
	}
	return chain.Token(ctx)
}

func loadOrgs(cfg *config.Config) (filter.OrgList, error) {
	if cfg.Filter.OrgsFile == "" {
		return filter.DefaultOrgs(), nil
	}
	path, err := config.ExpandPath(cfg.Filter.OrgsFile)
	if err != nil {
		return filter.OrgList{}, err
	}
	return filter.LoadOrgList(path, cfg.Filter.ReplaceDefaults)
}

func newCache(ctx context.Context, cfg *config.Config, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	switch cfg.Cache.Backend {
	case config.CacheNone:
		return cache.NewNullCache(), nil
	case config.CacheMemory:
		return cache.NewMemoryCache(), nil
	case config.CacheRedis:
		return cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
			Prefix:   appName + ":",
		})
	default:
		dir, err := resolveCacheDir(cfg)
		if err != nil {
			return cache.NewNullCache(), nil
		}
		return cache.NewFileCache(dir)
	}
}

// openStore opens the configured saved-candidate backend.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Backend {
	case config.StoreMemory:
		return store.NewMemoryStore(), nil
	case config.StoreMongo:
		return store.NewMongoStore(ctx, cfg.Store.MongoURI, cfg.Store.MongoDatabase)
	case config.StorePostgres:
		return store.NewPostgresStore(ctx, cfg.Store.PostgresDSN)
	default:
		path, err := config.ExpandPath(cfg.Store.Path)
		if err != nil {
			return nil, err
		}
		return store.NewFileStore(path)
	}
}

// savedBy names the current user for saved records: the GitHub login of
// the saved session if there is one.
func savedBy(ctx context.Context) string {
	st, err := session.NewCLIStore("")
	if err != nil {
		return ""
	}
	sess, err := st.GetSession(ctx)
	if err != nil || sess == nil {
		return ""
	}
	return sess.UserID()
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/devscout/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// resolveCacheDir prefers cache.dir from the config file.
func resolveCacheDir(cfg *config.Config) (string, error) {
	if cfg != nil && cfg.Cache.Dir != "" {
		return config.ExpandPath(cfg.Cache.Dir)
	}
	return cacheDir()
}

// errNotLoggedIn is returned by commands that need a saved GitHub login.
var errNotLoggedIn = errors.New("not logged in (run 'devscout github login' first)")
