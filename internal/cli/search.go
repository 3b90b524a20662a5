package cli

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/devscout/pkg/candidate"
	"github.com/matzehuels/devscout/pkg/discovery"
	errs "github.com/matzehuels/devscout/pkg/errors"
	"github.com/matzehuels/devscout/pkg/rank"
	"github.com/matzehuels/devscout/pkg/registry"
	"github.com/matzehuels/devscout/pkg/store"
)

// searchOpts holds the flags of the search command.
type searchOpts struct {
	registry    string
	sort        string
	format      string
	pages       int
	saveTop     int
	interactive bool
	noCache     bool
}

// searchCommand creates the search command.
func (c *CLI) searchCommand() *cobra.Command {
	opts := searchOpts{pages: 1, format: formatTable}

	cmd := &cobra.Command{
		Use:   "search <skills>",
		Short: "Find developers who publish packages for a set of skills",
		Long: `Search a package registry for comma-separated skills and list the
publishers behind the results.

Results are deduplicated by publisher and organization accounts are dropped.
The first candidates of every page are enriched with their GitHub profile.

Examples:
  devscout search "react, typescript"
  devscout search fastapi --registry pypi --sort quality
  devscout search "rust, wasm" --registry github --pages 3 --format csv
  devscout search react --interactive`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runSearch(cmd.Context(), strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.registry, "registry", "r", "", "registry: npm, pypi or github (default from config)")
	cmd.Flags().StringVarP(&opts.sort, "sort", "s", "", "ranking mode: optimal, popularity, freshness or quality")
	cmd.Flags().StringVarP(&opts.format, "format", "f", formatTable, "output format: table, json or csv")
	cmd.Flags().IntVarP(&opts.pages, "pages", "n", 1, "number of pages to load")
	cmd.Flags().IntVar(&opts.saveTop, "save-top", 0, "save the first N candidates")
	cmd.Flags().BoolVarP(&opts.interactive, "interactive", "i", false, "browse results in an interactive table")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "skip the profile cache")

	modes := make([]string, len(rank.Modes))
	for i, m := range rank.Modes {
		modes[i] = string(m)
	}
	noFile := cobra.ShellCompDirectiveNoFileComp
	cmd.RegisterFlagCompletionFunc("registry", cobra.FixedCompletions([]string{
		string(candidate.ProvenanceNPM), string(candidate.ProvenancePyPI), string(candidate.ProvenanceGitHub),
	}, noFile))
	cmd.RegisterFlagCompletionFunc("sort", cobra.FixedCompletions(modes, noFile))
	cmd.RegisterFlagCompletionFunc("format", cobra.FixedCompletions([]string{formatTable, formatJSON, formatCSV}, noFile))

	return cmd
}

func (c *CLI) runSearch(ctx context.Context, query string, opts searchOpts) error {
	if opts.pages < 1 {
		return errs.New(errs.ErrCodeInvalidInput, "--pages must be at least 1")
	}
	switch opts.format {
	case formatTable, formatJSON, formatCSV:
	default:
		return errs.New(errs.ErrCodeInvalidInput, "unknown format %q (want table, json or csv)", opts.format)
	}

	svc, err := c.newServices(ctx, opts.noCache)
	if err != nil {
		return err
	}
	defer svc.Close()

	reg := svc.cfg.Registry()
	if opts.registry != "" {
		if reg, err = registry.ParseRegistry(opts.registry); err != nil {
			return err
		}
	}
	mode := svc.cfg.Mode()
	if opts.sort != "" {
		if mode, err = rank.ParseMode(opts.sort); err != nil {
			return err
		}
	}

	orch := discovery.New(svc.sources, svc.profiles, discovery.Options{
		PageSize:  svc.cfg.Search.PageSize,
		EnrichCap: svc.cfg.Search.EnrichCap,
		Orgs:      &svc.orgs,
		Logger:    c.Logger,
	})

	human := opts.format == formatTable || opts.interactive
	prog := newProgress(c.Logger)
	if err := c.loadPages(ctx, orch, query, reg, mode, opts.pages, human); err != nil {
		if human && errs.IsRateLimit(err) {
			printNextStep("Sign in for higher GitHub limits", "devscout github login")
		}
		return err
	}
	state := orch.State()
	if state.Query == "" {
		return errs.New(errs.ErrCodeInvalidInput, "query is empty")
	}
	prog.done(fmt.Sprintf("Loaded %d candidates from %s", len(state.Results), reg))

	if opts.interactive {
		st, err := openStore(ctx, svc.cfg)
		if err != nil {
			return err
		}
		defer st.Close()
		return runResultsTUI(ctx, orch, st, savedBy(ctx))
	}

	if human {
		printNewline()
	}
	if err := writeResults(stdout, opts.format, state.Results); err != nil {
		return err
	}
	if human {
		printResultStats(len(state.Results), countEnriched(state.Results), state.HasMore)
	}
	reportFailure(c, state.Error, human)

	if opts.saveTop > 0 {
		return c.saveTop(ctx, svc, state.Results, opts.saveTop, human)
	}
	return nil
}

// loadPages runs the search and then load-more until pages are loaded or
// the registry runs dry. A failed load-more stops paging but keeps what
// was already loaded; a failed first page with nothing to show is an error.
func (c *CLI) loadPages(ctx context.Context, orch *discovery.Orchestrator, query string, reg candidate.Provenance, mode rank.Mode, pages int, human bool) error {
	var spinner *Spinner
	if human {
		spinner = newSpinnerWithContext(ctx, fmt.Sprintf("Searching %s...", reg))
		spinner.Start()
		defer spinner.Stop()
	}

	err := orch.Search(ctx, query, reg, mode)
	if err != nil && len(orch.State().Results) == 0 {
		return err
	}
	for page := 1; page < pages && orch.State().HasMore; page++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if spinner != nil {
			spinner.SetMessage(fmt.Sprintf("Loading page %d of %d...", page+1, pages))
		}
		if err := orch.LoadMore(ctx); err != nil {
			c.Logger.Debug("load more failed", "page", page+1, "err", err)
			break
		}
	}
	return nil
}

// reportFailure surfaces a session error left after a partial load.
func reportFailure(c *CLI, f *discovery.Failure, human bool) {
	if f == nil {
		return
	}
	if !human {
		c.Logger.Warn(f.Message, "code", f.Code)
		return
	}
	printNewline()
	printWarning("%s", f.Message)
	if f.RateLimited() {
		printNextStep("Sign in for higher GitHub limits", "devscout github login")
	}
}

func (c *CLI) saveTop(ctx context.Context, svc *services, cands []candidate.Candidate, n int, human bool) error {
	st, err := openStore(ctx, svc.cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	by := savedBy(ctx)
	saved := 0
	for _, cand := range cands[:min(n, len(cands))] {
		if cand.Username() == "" {
			continue
		}
		if _, err := st.Save(ctx, store.FromCandidate(cand, by)); err != nil {
			return err
		}
		saved++
	}
	if human {
		printSuccess("Saved %d candidates", saved)
		printNextStep("Review them", "devscout saved list")
	} else {
		c.Logger.Info("saved candidates", "count", saved)
	}
	return nil
}

// runResultsTUI opens the interactive results table.
func runResultsTUI(ctx context.Context, orch *discovery.Orchestrator, st store.Store, by string) error {
	model := newResultsModel(ctx, orch, st, by)
	_, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}
