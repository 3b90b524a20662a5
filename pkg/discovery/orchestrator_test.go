package discovery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/matzehuels/devscout/pkg/candidate"
	errs "github.com/matzehuels/devscout/pkg/errors"
	"github.com/matzehuels/devscout/pkg/rank"
	"github.com/matzehuels/devscout/pkg/registry"
)

// fakeSource serves pages from a fixed list of publishers.
type fakeSource struct {
	mu      sync.Mutex
	users   []string
	offsets []int
	weights []rank.Weights
	err     error
	block   chan struct{}
}

func (f *fakeSource) Name() candidate.Provenance { return candidate.ProvenanceNPM }

func (f *fakeSource) Fetch(ctx context.Context, terms []string, size, offset int, w rank.Weights) ([]candidate.Record, error) {
	f.mu.Lock()
	f.offsets = append(f.offsets, offset)
	f.weights = append(f.weights, w)
	err, block := f.err, f.block
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	if err != nil {
		return nil, err
	}
	var recs []candidate.Record
	for i := offset; i < min(offset+size, len(f.users)); i++ {
		recs = append(recs, candidate.Record{
			Name:      fmt.Sprintf("pkg%d", i),
			Publisher: &candidate.Person{Username: f.users[i]},
			Score:     candidate.Score{Quality: 0.95, Popularity: 0.5},
		})
	}
	return recs, nil
}

func (f *fakeSource) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

type fakeProfiles struct {
	err error
}

func (f fakeProfiles) Get(_ context.Context, login string) (*candidate.Profile, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &candidate.Profile{Login: login}, nil
}

// gatedProfiles holds every lookup while closed and fails it with err once
// released. Lookups made after open succeed immediately.
type gatedProfiles struct {
	mu      sync.Mutex
	closed  bool
	once    sync.Once
	started chan struct{}
	release chan struct{}
	err     error
}

func newGatedProfiles(err error) *gatedProfiles {
	return &gatedProfiles{closed: true, started: make(chan struct{}), release: make(chan struct{}), err: err}
}

func (g *gatedProfiles) Get(_ context.Context, login string) (*candidate.Profile, error) {
	g.mu.Lock()
	closed := g.closed
	g.mu.Unlock()
	if !closed {
		return &candidate.Profile{Login: login}, nil
	}
	g.once.Do(func() { close(g.started) })
	<-g.release
	return nil, g.err
}

func (g *gatedProfiles) open() {
	g.mu.Lock()
	g.closed = false
	g.mu.Unlock()
}

func users(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s%d", prefix, i)
	}
	return out
}

func newTestOrchestrator(src *fakeSource, profiles ProfileSource) *Orchestrator {
	return New(registry.Sources{candidate.ProvenanceNPM: src}, profiles, Options{})
}

func TestSearchFirstPage(t *testing.T) {
	src := &fakeSource{users: users("dev", 120)}
	o := newTestOrchestrator(src, fakeProfiles{})

	if err := o.Search(context.Background(), "react", candidate.ProvenanceNPM, ""); err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	st := o.State()
	if len(st.Results) != 50 || !st.HasMore || st.Loading || st.Error != nil {
		t.Fatalf("state = results:%d hasMore:%v loading:%v err:%v", len(st.Results), st.HasMore, st.Loading, st.Error)
	}
	for i, c := range st.Results {
		if c.Enriched() != (i < DefaultEnrichCap) {
			t.Errorf("result %d enriched = %v", i, c.Enriched())
		}
	}
	if st.Results[0].Impact.Tier != rank.TierSeniorArchitect {
		t.Errorf("Impact = %+v", st.Results[0].Impact)
	}
	if src.weights[0] != rank.WeightsFor(rank.ModeOptimal) {
		t.Errorf("weights = %+v, want optimal", src.weights[0])
	}
}

func TestSearchEmptyQueryIsNoop(t *testing.T) {
	src := &fakeSource{users: users("dev", 10)}
	o := newTestOrchestrator(src, nil)

	for _, q := range []string{"", "   ", " , ,"} {
		if err := o.Search(context.Background(), q, candidate.ProvenanceNPM, ""); err != nil {
			t.Errorf("Search(%q) error: %v", q, err)
		}
	}
	if len(src.offsets) != 0 {
		t.Errorf("empty query fetched %d times", len(src.offsets))
	}
	if o.Session().Generation != 0 {
		t.Error("empty query touched the session")
	}
}

func TestSearchUnknownRegistry(t *testing.T) {
	o := newTestOrchestrator(&fakeSource{}, nil)
	err := o.Search(context.Background(), "react", candidate.ProvenancePyPI, "")
	if !errs.Is(err, errs.ErrCodeInvalidRegistry) {
		t.Errorf("error = %v, want INVALID_REGISTRY", err)
	}
}

func TestLoadMoreAppendsAndDedupes(t *testing.T) {
	// Page 2 repeats two publishers from page 1 and one org account.
	list := users("dev", 50)
	page2 := append([]string{"dev3", "DEV7", "facebook"}, users("more", 20)...)
	src := &fakeSource{users: append(list, page2...)}
	o := newTestOrchestrator(src, fakeProfiles{})
	ctx := context.Background()

	if err := o.Search(ctx, "react", candidate.ProvenanceNPM, ""); err != nil {
		t.Fatal(err)
	}
	if err := o.LoadMore(ctx); err != nil {
		t.Fatal(err)
	}

	st := o.State()
	if len(st.Results) != 70 {
		t.Fatalf("len(Results) = %d, want 70", len(st.Results))
	}
	seen := map[string]bool{}
	for _, c := range st.Results {
		key := c.Username()
		if seen[key] {
			t.Errorf("duplicate publisher %q", key)
		}
		seen[key] = true
	}
	if st.HasMore {
		t.Error("short second page should clear HasMore")
	}
	if st.Offset != 50 {
		t.Errorf("Offset = %d, want 50", st.Offset)
	}
	if got := src.offsets; len(got) != 2 || got[0] != 0 || got[1] != 50 {
		t.Errorf("fetched offsets = %v, want [0 50]", got)
	}
	if st.Results[50].Username() != "more0" || !st.Results[50].Enriched() {
		t.Errorf("first new result = %q enriched=%v", st.Results[50].Username(), st.Results[50].Enriched())
	}

	if err := o.LoadMore(ctx); err != nil {
		t.Fatal(err)
	}
	if len(src.offsets) != 2 {
		t.Error("LoadMore after the last page should not fetch")
	}
}

func TestLoadMoreFailureKeepsResults(t *testing.T) {
	src := &fakeSource{users: users("dev", 200)}
	o := newTestOrchestrator(src, nil)
	ctx := context.Background()

	if err := o.Search(ctx, "react", candidate.ProvenanceNPM, ""); err != nil {
		t.Fatal(err)
	}
	src.setErr(&errs.RegistryError{Status: 502})

	err := o.LoadMore(ctx)
	if !errs.Is(err, errs.ErrCodeFetchFailed) {
		t.Fatalf("LoadMore() error = %v", err)
	}
	st := o.State()
	if len(st.Results) != 50 {
		t.Errorf("results after failed load-more = %d, want 50", len(st.Results))
	}
	if st.Error == nil || st.Error.Code != errs.ErrCodeFetchFailed {
		t.Errorf("Error = %v, want FETCH_FAILED", st.Error)
	}

	src.setErr(nil)
	if err := o.LoadMore(ctx); err != nil {
		t.Fatal(err)
	}
	if last := src.offsets[len(src.offsets)-1]; last != 50 {
		t.Errorf("retry fetched offset %d, want 50", last)
	}
	if st := o.State(); st.Error != nil || len(st.Results) != 100 {
		t.Errorf("after retry: err=%v results=%d", st.Error, len(st.Results))
	}
}

func TestSearchUncodedSourceError(t *testing.T) {
	notFound := errors.New("resource not found")
	src := &fakeSource{err: fmt.Errorf("%w: https://registry.example/-/v1/search", notFound)}
	o := newTestOrchestrator(src, nil)

	err := o.Search(context.Background(), "react", candidate.ProvenanceNPM, "")
	if errs.GetCode(err) != errs.ErrCodeFetchFailed {
		t.Fatalf("code = %q, want FETCH_FAILED (err %v)", errs.GetCode(err), err)
	}
	if !errors.Is(err, notFound) {
		t.Error("cause should stay reachable through errors.Is")
	}
	if st := o.State(); st.Error == nil || st.Error.Code != errs.ErrCodeFetchFailed {
		t.Errorf("state error = %v, want FETCH_FAILED", st.Error)
	}
}

func TestSearchCancelledIsNotWrapped(t *testing.T) {
	src := &fakeSource{err: context.Canceled}
	o := newTestOrchestrator(src, nil)

	err := o.Search(context.Background(), "react", candidate.ProvenanceNPM, "")
	if err != context.Canceled {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestSearchRegistryRateLimit(t *testing.T) {
	src := &fakeSource{err: &errs.RateLimitError{Status: 429}}
	o := newTestOrchestrator(src, nil)

	err := o.Search(context.Background(), "react", candidate.ProvenanceNPM, "")
	if !errs.IsRateLimit(err) {
		t.Fatalf("error = %v, want RateLimitError", err)
	}
	if st := o.State(); !st.Error.RateLimited() {
		t.Errorf("state error = %v, want RATE_LIMIT", st.Error)
	}
}

func TestSearchEnrichmentRateLimit(t *testing.T) {
	src := &fakeSource{users: users("dev", 20)}
	o := newTestOrchestrator(src, fakeProfiles{err: &errs.RateLimitError{Status: 403}})

	if err := o.Search(context.Background(), "react", candidate.ProvenanceNPM, ""); err != nil {
		t.Fatalf("Search() error = %v; enrichment limits are recorded, not returned", err)
	}
	st := o.State()
	if !st.Error.RateLimited() {
		t.Errorf("Error = %v, want RATE_LIMIT", st.Error)
	}
	if len(st.Results) != 20 {
		t.Errorf("len(Results) = %d, want 20", len(st.Results))
	}
	for i, c := range st.Results {
		if c.Enriched() {
			t.Errorf("result %d enriched despite rate limit", i)
		}
	}
}

func TestBusy(t *testing.T) {
	block := make(chan struct{})
	src := &fakeSource{users: users("dev", 100), block: block}
	o := newTestOrchestrator(src, nil)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- o.Search(ctx, "react", candidate.ProvenanceNPM, "") }()

	waitLoading(t, o)
	if err := o.Search(ctx, "vue", candidate.ProvenanceNPM, ""); !errors.Is(err, ErrBusy) {
		t.Errorf("overlapping Search error = %v, want ErrBusy", err)
	}
	if err := o.LoadMore(ctx); !errors.Is(err, ErrBusy) {
		t.Errorf("overlapping LoadMore error = %v, want ErrBusy", err)
	}
	if q := o.State().Query; q != "react" {
		t.Errorf("busy call changed query to %q", q)
	}

	close(block)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if len(o.State().Results) != 50 {
		t.Error("first search did not complete")
	}
}

func TestResetDiscardsInFlightResults(t *testing.T) {
	block := make(chan struct{})
	src := &fakeSource{users: users("dev", 100), block: block}
	o := newTestOrchestrator(src, nil)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- o.Search(ctx, "react", candidate.ProvenanceNPM, "") }()
	waitLoading(t, o)

	o.Reset()
	close(block)
	<-done

	st := o.State()
	if len(st.Results) != 0 || st.Query != "" || st.Loading {
		t.Errorf("stale page merged after reset: %+v", st)
	}
}

func TestResetDuringEnrichmentThenSearch(t *testing.T) {
	src := &fakeSource{users: users("dev", 20)}
	profiles := newGatedProfiles(&errs.RateLimitError{Status: 403})
	o := newTestOrchestrator(src, profiles)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- o.Search(ctx, "react", candidate.ProvenanceNPM, "") }()
	select {
	case <-profiles.started:
	case <-time.After(5 * time.Second):
		t.Fatal("enrichment never started")
	}

	o.Reset()
	profiles.open()
	if err := o.Search(ctx, "vue", candidate.ProvenanceNPM, ""); err != nil {
		t.Fatalf("Search() after reset error: %v", err)
	}

	// Let the stale lookups fail with a rate limit and the stale page land.
	close(profiles.release)
	<-done

	st := o.State()
	if st.Query != "vue" || st.Loading {
		t.Fatalf("state = query:%q loading:%v", st.Query, st.Loading)
	}
	if st.Error != nil {
		t.Errorf("stale enrichment rate limit leaked into the new session: %v", st.Error)
	}
	if len(st.Results) != 20 {
		t.Errorf("len(Results) = %d, want 20", len(st.Results))
	}
	for i, c := range st.Results {
		if c.Enriched() != (i < DefaultEnrichCap) {
			t.Errorf("result %d enriched = %v", i, c.Enriched())
		}
	}
}

func waitLoading(t *testing.T, o *Orchestrator) {
	t.Helper()
	for range 1000 {
		if o.State().Loading {
			src := o.sources[candidate.ProvenanceNPM].(*fakeSource)
			src.mu.Lock()
			n := len(src.offsets)
			src.mu.Unlock()
			if n > 0 {
				return
			}
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("search never started")
}
