package discovery

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/devscout/pkg/candidate"
	errs "github.com/matzehuels/devscout/pkg/errors"
)

// ProfileFunc resolves the profile for a login. A nil profile with a nil
// error means none is available.
type ProfileFunc func(ctx context.Context, login string) (*candidate.Profile, error)

// BatchResult summarizes an [EnrichBatch] run.
type BatchResult struct {
	Attempted int
	Enriched  int
}

// EnrichBatch converts recs to candidates and attaches profiles to the
// first limit of them. Lookups run concurrently and are merged by index, so
// the output order always matches recs.
//
// Lookup errors are dropped per candidate except *errors.RateLimitError:
// the first one cancels the lookups still in flight, skips the ones not yet
// started and is returned alongside the full candidate list.
func EnrichBatch(ctx context.Context, recs []candidate.Record, limit int, fn ProfileFunc) ([]candidate.Candidate, BatchResult, error) {
	out := make([]candidate.Candidate, len(recs))
	for i, r := range recs {
		out[i] = candidate.New(r)
	}

	n := min(max(limit, 0), len(recs))
	if n == 0 || fn == nil {
		return out, BatchResult{}, nil
	}

	profiles := make([]*candidate.Profile, n)
	var attempted atomic.Int32

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(n)
	for i := range n {
		login := recs[i].GitHubLogin()
		if login == "" {
			continue
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			attempted.Add(1)
			p, err := fn(gctx, login)
			if errs.IsRateLimit(err) {
				return err
			}
			if err == nil {
				profiles[i] = p
			}
			return nil
		})
	}
	err := g.Wait()

	res := BatchResult{Attempted: int(attempted.Load())}
	for i, p := range profiles {
		if p != nil {
			out[i].Profile = p
			res.Enriched++
		}
	}
	return out, res, err
}
