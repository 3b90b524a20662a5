package discovery

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/devscout/pkg/candidate"
	errs "github.com/matzehuels/devscout/pkg/errors"
	"github.com/matzehuels/devscout/pkg/filter"
	"github.com/matzehuels/devscout/pkg/observability"
	"github.com/matzehuels/devscout/pkg/rank"
	"github.com/matzehuels/devscout/pkg/registry"
)

// Defaults for [Options].
const (
	DefaultPageSize  = 50
	DefaultEnrichCap = 15
)

// ErrBusy is returned when a search or load-more is already in flight.
var ErrBusy = errs.New(errs.ErrCodeBusy, "a search is already in progress")

// Options configures an [Orchestrator]. Zero values select defaults; a
// negative EnrichCap disables enrichment.
type Options struct {
	PageSize  int
	EnrichCap int
	Orgs      *filter.OrgList // nil selects filter.DefaultOrgs
	Logger    *log.Logger
}

// ProfileSource resolves GitHub profiles. *profile.Enricher satisfies it.
type ProfileSource interface {
	Get(ctx context.Context, login string) (*candidate.Profile, error)
}

// Orchestrator drives one [Session]. It is safe for concurrent use, but
// overlapping Search and LoadMore calls are rejected with [ErrBusy] rather
// than queued.
type Orchestrator struct {
	sources  registry.Sources
	profiles ProfileSource
	orgs     filter.OrgList
	pageSize int
	cap      int
	logger   *log.Logger

	mu      sync.Mutex
	session Session
}

// New creates an Orchestrator. profiles may be nil to skip enrichment.
func New(sources registry.Sources, profiles ProfileSource, opts Options) *Orchestrator {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.EnrichCap < 0 {
		opts.EnrichCap = 0
	} else if opts.EnrichCap == 0 {
		opts.EnrichCap = DefaultEnrichCap
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	orgs := filter.DefaultOrgs()
	if opts.Orgs != nil {
		orgs = *opts.Orgs
	}
	return &Orchestrator{
		sources:  sources,
		profiles: profiles,
		orgs:     orgs,
		pageSize: opts.PageSize,
		cap:      opts.EnrichCap,
		logger:   opts.Logger,
	}
}

// Search resets the session and loads the first page of query from reg.
//
// An empty query is a no-op. A registry failure is recorded in the session
// and also returned; an enrichment rate limit is only recorded, since the
// page itself loaded.
func (o *Orchestrator) Search(ctx context.Context, query string, reg candidate.Provenance, mode rank.Mode) error {
	if err := errs.ValidateQuery(query); err != nil {
		return err
	}
	terms := registry.ParseTerms(query)
	if len(terms) == 0 {
		return nil
	}
	if _, err := o.sources.Get(reg); err != nil {
		return err
	}
	if mode == "" {
		mode = rank.ModeOptimal
	}

	o.mu.Lock()
	if o.session.Loading {
		o.mu.Unlock()
		return ErrBusy
	}
	o.session = Reduce(o.session, SearchStarted{
		Query:    strings.TrimSpace(query),
		Terms:    terms,
		Registry: reg,
		Mode:     mode,
	})
	snap := o.session
	o.mu.Unlock()

	return o.load(ctx, snap, map[string]struct{}{})
}

// LoadMore fetches the next page and appends its survivors. It is a no-op
// before the first search and once the registry has run out of results.
func (o *Orchestrator) LoadMore(ctx context.Context) error {
	o.mu.Lock()
	if o.session.Loading {
		o.mu.Unlock()
		return ErrBusy
	}
	next := Reduce(o.session, LoadMoreStarted{PageSize: o.pageSize})
	if !next.Loading {
		o.mu.Unlock()
		return nil
	}
	o.session = next
	snap := o.session
	o.mu.Unlock()

	return o.load(ctx, snap, snap.Seen())
}

// Reset discards the session. Results still in flight are dropped when
// they arrive.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	o.session = Reduce(o.session, Reset{})
	o.mu.Unlock()
}

// Session returns a copy of the current session.
func (o *Orchestrator) Session() Session {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.session
}

// State returns the observable snapshot of the session.
func (o *Orchestrator) State() State {
	return StateOf(o.Session())
}

func (o *Orchestrator) dispatch(ev Event) {
	o.mu.Lock()
	o.session = Reduce(o.session, ev)
	o.mu.Unlock()
}

// load fetches the page at snap.Offset, filters it against seen, enriches
// the survivors and dispatches the outcome tagged with snap's generation.
func (o *Orchestrator) load(ctx context.Context, snap Session, seen map[string]struct{}) error {
	hooks := observability.Search()
	reg := string(snap.Registry)
	hooks.OnSearchStart(ctx, reg, snap.Query, snap.Offset)
	start := time.Now()

	src, err := o.sources.Get(snap.Registry)
	var recs []candidate.Record
	if err == nil {
		recs, err = src.Fetch(ctx, snap.Terms, o.pageSize, snap.Offset, rank.WeightsFor(snap.Mode))
	}
	if err != nil {
		hooks.OnPageLoaded(ctx, reg, 0, 0, time.Since(start), err)
		if errs.IsRateLimit(err) {
			hooks.OnRateLimited(ctx, reg)
		}
		o.logger.Debug("registry fetch failed", "registry", reg, "offset", snap.Offset, "err", err)
		o.dispatch(FetchFailed{Generation: snap.Generation, Failure: failureFrom(err), PageSize: o.pageSize})
		return fetchError(err)
	}

	admitted := filter.Dedupe(recs, seen, o.orgs)
	hooks.OnPageLoaded(ctx, reg, len(recs), len(admitted), time.Since(start), nil)

	var fn ProfileFunc
	if o.profiles != nil {
		fn = o.profiles.Get
	}
	enrichStart := time.Now()
	cands, res, enrichErr := EnrichBatch(ctx, admitted, o.cap, fn)
	hooks.OnEnrichComplete(ctx, res.Attempted, res.Enriched, time.Since(enrichStart))

	o.logger.Debug("page loaded",
		"registry", reg, "offset", snap.Offset,
		"fetched", len(recs), "admitted", len(admitted), "enriched", res.Enriched)

	o.dispatch(PageLoaded{
		Generation: snap.Generation,
		Candidates: cands,
		Fetched:    len(recs),
		PageSize:   o.pageSize,
	})
	if enrichErr != nil {
		hooks.OnRateLimited(ctx, "github")
		o.logger.Warn("GitHub rate limit reached; remaining candidates are unenriched")
		o.dispatch(EnrichmentRateLimited{Generation: snap.Generation, Message: errs.UserMessage(enrichErr)})
	}
	return nil
}

// fetchError gives an uncoded source failure the FETCH_FAILED code the
// session already recorded for it. Cancellation passes through unchanged.
func fetchError(err error) error {
	if errs.GetCode(err) != "" || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &errs.RegistryError{Cause: err}
}
