// Package profile enriches candidates with GitHub profile data.
//
// [Enricher.Get] is cache-first: a fresh cache entry, including a cached
// "no such user", is returned without touching the network. On a miss it
// issues one lookup and classifies the outcome:
//
//   - found: cached and returned
//   - 404: cached as absent, returns (nil, nil)
//   - 403/429: returns *errors.RateLimitError, nothing cached
//   - anything else: logged, returns (nil, nil), nothing cached
//
// Enrichment is best-effort. Only a rate limit escapes as an error, because
// the caller must stop issuing lookups and ask the user to sign in.
package profile

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/matzehuels/devscout/pkg/cache"
	"github.com/matzehuels/devscout/pkg/candidate"
	errs "github.com/matzehuels/devscout/pkg/errors"
	"github.com/matzehuels/devscout/pkg/integrations"
	"github.com/matzehuels/devscout/pkg/integrations/github"
)

// DefaultFreshness is how long a cached lookup stays valid.
const DefaultFreshness = 24 * time.Hour

// Namespace is the cache namespace profile entries live under.
const Namespace = "profile"

// UserFetcher looks up a GitHub account. *github.Client satisfies it.
type UserFetcher interface {
	FetchUser(ctx context.Context, login string) (*github.User, error)
}

// Options configures an [Enricher]. Zero values select defaults.
type Options struct {
	Freshness time.Duration
	Clock     func() time.Time
	Logger    *log.Logger
}

// Enricher resolves GitHub profiles through a persistent cache. It is safe
// for concurrent use; concurrent lookups of the same login share one
// network call.
type Enricher struct {
	fetcher   UserFetcher
	cache     *cache.Scoped
	freshness time.Duration
	now       func() time.Time
	logger    *log.Logger
	group     singleflight.Group
}

// entry is the stored cache value. A nil Profile records a confirmed
// absence.
type entry struct {
	Profile   *candidate.Profile `json:"profile"`
	FetchedAt time.Time          `json:"fetched_at"`
}

// New creates an Enricher. A nil cache disables caching.
func New(f UserFetcher, c cache.Cache, opts Options) *Enricher {
	if opts.Freshness <= 0 {
		opts.Freshness = DefaultFreshness
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Enricher{
		fetcher:   f,
		cache:     cache.NewScoped(c, Namespace),
		freshness: opts.Freshness,
		now:       opts.Clock,
		logger:    opts.Logger,
	}
}

// Get returns the profile for username, or nil when none is available.
// The only error it returns is a *errors.RateLimitError.
func (e *Enricher) Get(ctx context.Context, username string) (*candidate.Profile, error) {
	key := cacheKey(username)
	if key == "" {
		return nil, nil
	}
	if p, ok := e.lookup(ctx, key); ok {
		return p, nil
	}

	v, err, _ := e.group.Do(key, func() (any, error) {
		return e.fetch(ctx, username, key)
	})
	if err != nil {
		return nil, err
	}
	return v.(*candidate.Profile), nil
}

// Invalidate drops the cached entry for username.
func (e *Enricher) Invalidate(ctx context.Context, username string) error {
	key := cacheKey(username)
	if key == "" {
		return nil
	}
	return e.cache.Delete(ctx, key)
}

// Freshness returns the configured freshness window.
func (e *Enricher) Freshness() time.Duration { return e.freshness }

func (e *Enricher) lookup(ctx context.Context, key string) (*candidate.Profile, bool) {
	data, ok, err := e.cache.Get(ctx, key)
	if err != nil {
		e.logger.Debug("profile cache read failed", "key", key, "err", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var ent entry
	if err := json.Unmarshal(data, &ent); err != nil {
		e.logger.Debug("profile cache entry unreadable", "key", key, "err", err)
		return nil, false
	}
	if e.now().Sub(ent.FetchedAt) > e.freshness {
		return nil, false
	}
	return ent.Profile, true
}

func (e *Enricher) fetch(ctx context.Context, username, key string) (*candidate.Profile, error) {
	u, err := e.fetcher.FetchUser(ctx, username)
	switch {
	case err == nil:
		p := FromUser(u)
		e.store(ctx, key, p)
		return p, nil
	case errors.Is(err, integrations.ErrNotFound):
		e.store(ctx, key, nil)
		return nil, nil
	case errs.IsRateLimit(err):
		return nil, err
	default:
		e.logger.Debug("profile lookup failed", "login", username, "err", err)
		return nil, nil
	}
}

func (e *Enricher) store(ctx context.Context, key string, p *candidate.Profile) {
	data, err := json.Marshal(entry{Profile: p, FetchedAt: e.now()})
	if err != nil {
		return
	}
	// Backends evict on their own clock; keep entries well past the
	// freshness window so staleness is always decided by e.now.
	if err := e.cache.Set(ctx, key, data, 2*e.freshness); err != nil {
		e.logger.Debug("profile cache write failed", "key", key, "err", err)
	}
}

func cacheKey(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// FromUser converts a GitHub account to a candidate profile. Empty strings
// become nil so undisclosed fields stay absent.
func FromUser(u *github.User) *candidate.Profile {
	if u == nil {
		return nil
	}
	return &candidate.Profile{
		Login:           u.Login,
		Name:            nonEmpty(u.Name),
		AvatarURL:       nonEmpty(u.AvatarURL),
		HTMLURL:         nonEmpty(u.HTMLURL),
		Location:        nonEmpty(u.Location),
		Bio:             nonEmpty(u.Bio),
		Company:         nonEmpty(u.Company),
		Blog:            nonEmpty(u.Blog),
		TwitterUsername: nonEmpty(u.TwitterUsername),
		Followers:       u.Followers,
		Following:       u.Following,
		PublicRepos:     u.PublicRepos,
	}
}

func nonEmpty(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}
