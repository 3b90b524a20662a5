package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/matzehuels/devscout/internal/server"
	"github.com/matzehuels/devscout/pkg/discovery"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serve discovery sessions and saved candidates as a JSON API under /api/v1.

The server uses the same config as the CLI: cache and store backends,
page size, enrichment cap and GitHub token. Stop it with Ctrl+C.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, addr string) error {
	svc, err := c.newServices(ctx, false)
	if err != nil {
		return err
	}
	defer svc.Close()

	st, err := openStore(ctx, svc.cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	if addr == "" {
		addr = svc.cfg.Server.Addr
	}

	srv := server.New(server.Config{
		Sources:  svc.sources,
		Profiles: svc.profiles,
		Store:    st,
		Search: discovery.Options{
			PageSize:  svc.cfg.Search.PageSize,
			EnrichCap: svc.cfg.Search.EnrichCap,
			Orgs:      &svc.orgs,
			Logger:    c.Logger,
		},
		MaxSessions: svc.cfg.Server.MaxSessions,
		Logger:      c.Logger,
	})

	c.Logger.Info("starting API",
		"cache", svc.cfg.Cache.Backend,
		"store", svc.cfg.Store.Backend,
		"github_auth", svc.github.Authenticated())
	return srv.ListenAndServe(ctx, addr)
}
