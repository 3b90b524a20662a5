package profile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matzehuels/devscout/pkg/cache"
	errs "github.com/matzehuels/devscout/pkg/errors"
	"github.com/matzehuels/devscout/pkg/integrations"
	"github.com/matzehuels/devscout/pkg/integrations/github"
)

type fakeFetcher struct {
	calls atomic.Int32
	users map[string]*github.User
	err   error
	gate  chan struct{}
}

func (f *fakeFetcher) FetchUser(ctx context.Context, login string) (*github.User, error) {
	f.calls.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	if f.err != nil {
		return nil, f.err
	}
	if u, ok := f.users[login]; ok {
		return u, nil
	}
	return nil, fmt.Errorf("%w: %s", integrations.ErrNotFound, login)
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func ptr[T any](v T) *T { return &v }

func newTestEnricher(f UserFetcher) (*Enricher, *clock, *cache.MemoryCache) {
	clk := &clock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	mem := cache.NewMemoryCache()
	return New(f, mem, Options{Clock: clk.now}), clk, mem
}

func TestGetCachesProfile(t *testing.T) {
	f := &fakeFetcher{users: map[string]*github.User{
		"octocat": {Login: "octocat", Location: ptr("SF"), Bio: ptr(""), Followers: ptr(10), Following: ptr(0)},
	}}
	e, _, mem := newTestEnricher(f)
	ctx := context.Background()

	p, err := e.Get(ctx, "octocat")
	if err != nil || p == nil {
		t.Fatalf("Get() = %v, %v", p, err)
	}
	if p.Location == nil || *p.Location != "SF" {
		t.Errorf("Location = %v", p.Location)
	}
	if p.Bio != nil {
		t.Error("empty bio should be absent")
	}
	if p.Following == nil || *p.Following != 0 {
		t.Error("zero following should be kept")
	}

	if _, ok, _ := mem.Get(ctx, "profile:octocat"); !ok {
		t.Error("entry not stored under profile:octocat")
	}

	if _, err := e.Get(ctx, "OctoCat"); err != nil {
		t.Fatal(err)
	}
	if n := f.calls.Load(); n != 1 {
		t.Errorf("fetch calls = %d, want 1 (second lookup served from cache)", n)
	}
}

func TestGetCachesAbsence(t *testing.T) {
	f := &fakeFetcher{}
	e, _, _ := newTestEnricher(f)
	ctx := context.Background()

	for range 3 {
		p, err := e.Get(ctx, "ghost")
		if err != nil || p != nil {
			t.Fatalf("Get(ghost) = %v, %v; want nil, nil", p, err)
		}
	}
	if n := f.calls.Load(); n != 1 {
		t.Errorf("fetch calls = %d, want 1", n)
	}
}

func TestGetRefetchesStaleEntry(t *testing.T) {
	f := &fakeFetcher{users: map[string]*github.User{"octocat": {Login: "octocat"}}}
	e, clk, _ := newTestEnricher(f)
	ctx := context.Background()

	e.Get(ctx, "octocat")
	clk.advance(23 * time.Hour)
	e.Get(ctx, "octocat")
	if n := f.calls.Load(); n != 1 {
		t.Fatalf("fresh entry refetched: calls = %d", n)
	}

	clk.advance(2 * time.Hour)
	e.Get(ctx, "octocat")
	if n := f.calls.Load(); n != 2 {
		t.Errorf("stale entry not refetched: calls = %d, want 2", n)
	}
}

func TestGetRateLimit(t *testing.T) {
	f := &fakeFetcher{err: &errs.RateLimitError{Status: 403}}
	e, _, mem := newTestEnricher(f)

	_, err := e.Get(context.Background(), "octocat")
	var rl *errs.RateLimitError
	if !errors.As(err, &rl) {
		t.Fatalf("error = %v, want RateLimitError", err)
	}
	if mem.Len() != 0 {
		t.Error("rate-limited lookup must not be cached")
	}
}

func TestGetSwallowsOtherFailures(t *testing.T) {
	f := &fakeFetcher{err: &errs.RegistryError{Status: 500}}
	e, _, mem := newTestEnricher(f)
	ctx := context.Background()

	p, err := e.Get(ctx, "octocat")
	if err != nil || p != nil {
		t.Fatalf("Get() = %v, %v; want nil, nil", p, err)
	}
	if mem.Len() != 0 {
		t.Error("transient failure must not be cached")
	}
	e.Get(ctx, "octocat")
	if n := f.calls.Load(); n != 2 {
		t.Errorf("calls = %d, want 2", n)
	}
}

func TestGetCollapsesConcurrentLookups(t *testing.T) {
	f := &fakeFetcher{
		users: map[string]*github.User{"octocat": {Login: "octocat"}},
		gate:  make(chan struct{}),
	}
	e, _, _ := newTestEnricher(f)

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if p, err := e.Get(context.Background(), "octocat"); err != nil || p == nil {
				t.Errorf("Get() = %v, %v", p, err)
			}
		}()
	}
	// Let the goroutines reach the singleflight before releasing the fetch.
	time.Sleep(50 * time.Millisecond)
	close(f.gate)
	wg.Wait()

	if n := f.calls.Load(); n != 1 {
		t.Errorf("fetch calls = %d, want 1", n)
	}
}

func TestInvalidate(t *testing.T) {
	f := &fakeFetcher{users: map[string]*github.User{"octocat": {Login: "octocat"}}}
	e, _, _ := newTestEnricher(f)
	ctx := context.Background()

	e.Get(ctx, "octocat")
	if err := e.Invalidate(ctx, "OCTOCAT"); err != nil {
		t.Fatal(err)
	}
	e.Get(ctx, "octocat")
	if n := f.calls.Load(); n != 2 {
		t.Errorf("calls = %d, want 2 after invalidation", n)
	}
}

func TestGetEmptyUsername(t *testing.T) {
	f := &fakeFetcher{}
	e, _, _ := newTestEnricher(f)
	if p, err := e.Get(context.Background(), "  "); p != nil || err != nil {
		t.Errorf("Get(blank) = %v, %v", p, err)
	}
	if f.calls.Load() != 0 {
		t.Error("blank username should not hit the network")
	}
}
