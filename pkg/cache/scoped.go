package cache

import (
	"context"
	"time"

	"github.com/matzehuels/devscout/pkg/observability"
)

// Scoped namespaces another cache and reports traffic to
// [observability.Cache] under the namespace name.
//
//	profiles := cache.NewScoped(backend, "profile")
//	profiles.Set(ctx, "octocat", data, 0) // stored as "profile:octocat"
type Scoped struct {
	inner     Cache
	namespace string
}

// NewScoped wraps inner. Keys are stored as "<namespace>:<key>".
func NewScoped(inner Cache, namespace string) *Scoped {
	if inner == nil {
		inner = NullCache{}
	}
	return &Scoped{inner: inner, namespace: namespace}
}

// Key returns the backend key for key.
func (s *Scoped) Key(key string) string { return s.namespace + ":" + key }

func (s *Scoped) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, ok, err := s.inner.Get(ctx, s.Key(key))
	if err == nil {
		if ok {
			observability.Cache().OnCacheHit(ctx, s.namespace)
		} else {
			observability.Cache().OnCacheMiss(ctx, s.namespace)
		}
	}
	return data, ok, err
}

func (s *Scoped) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if err := s.inner.Set(ctx, s.Key(key), data, ttl); err != nil {
		return err
	}
	observability.Cache().OnCacheSet(ctx, s.namespace, len(data))
	return nil
}

func (s *Scoped) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, s.Key(key))
}

// Close closes the wrapped cache.
func (s *Scoped) Close() error { return s.inner.Close() }

var _ Cache = (*Scoped)(nil)
