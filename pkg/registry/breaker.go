package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenk/backoff"
	circuit "github.com/rubyist/circuitbreaker"

	"github.com/matzehuels/devscout/pkg/candidate"
	errs "github.com/matzehuels/devscout/pkg/errors"
	"github.com/matzehuels/devscout/pkg/integrations/github"
	"github.com/matzehuels/devscout/pkg/integrations/npm"
	"github.com/matzehuels/devscout/pkg/rank"
)

// BreakerThreshold is the number of consecutive failures that opens a
// breaker.
const BreakerThreshold = 5

// Breaker wraps a [Source] with a circuit breaker. While the breaker is
// open, Fetch fails immediately with a *errors.RegistryError. Rate-limit
// errors are returned unchanged and never trip it: a quota problem has its
// own remediation and is not evidence the registry is down.
type Breaker struct {
	Source
	breaker *circuit.Breaker
}

// NewBreaker wraps src with a breaker that opens after [BreakerThreshold]
// consecutive failures and probes again after an exponential backoff
// starting at 30 seconds.
func NewBreaker(src Source) *Breaker {
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 30 * time.Second
	expBackoff.MaxInterval = 5 * time.Minute
	expBackoff.Multiplier = 2.0
	expBackoff.Reset()

	return &Breaker{
		Source: src,
		breaker: circuit.NewBreakerWithOptions(&circuit.Options{
			BackOff:    expBackoff,
			ShouldTrip: circuit.ConsecutiveTripFunc(BreakerThreshold),
		}),
	}
}

// Fetch implements [Source].
func (b *Breaker) Fetch(ctx context.Context, terms []string, size, offset int, w rank.Weights) ([]candidate.Record, error) {
	if !b.breaker.Ready() {
		return nil, b.openError()
	}

	var (
		recs      []candidate.Record
		rateLimit error
	)
	err := b.breaker.Call(func() error {
		var fetchErr error
		recs, fetchErr = b.Source.Fetch(ctx, terms, size, offset, w)
		if errs.IsRateLimit(fetchErr) {
			rateLimit = fetchErr
			return nil
		}
		return fetchErr
	}, 0)

	switch {
	case rateLimit != nil:
		return nil, rateLimit
	case errors.Is(err, circuit.ErrBreakerOpen):
		return nil, b.openError()
	case err != nil:
		return nil, err
	}
	return recs, nil
}

func (b *Breaker) openError() error {
	return &errs.RegistryError{Cause: fmt.Errorf("circuit breaker open for %s", b.Name())}
}

// Tripped reports whether the breaker is currently open.
func (b *Breaker) Tripped() bool { return b.breaker.Tripped() }

// NewSources builds the standard source set, each behind its own breaker.
// Either client may be nil to leave its sources out.
func NewSources(n *npm.Client, gh *github.Client) Sources {
	s := Sources{}
	if n != nil {
		s[candidate.ProvenanceNPM] = NewBreaker(NewNPM(n))
	}
	if gh != nil {
		s[candidate.ProvenancePyPI] = NewBreaker(NewPyPI(gh))
		s[candidate.ProvenanceGitHub] = NewBreaker(NewGitHub(gh))
	}
	return s
}
