package discovery

import (
	"github.com/matzehuels/devscout/pkg/candidate"
	errs "github.com/matzehuels/devscout/pkg/errors"
	"github.com/matzehuels/devscout/pkg/filter"
	"github.com/matzehuels/devscout/pkg/rank"
)

// Failure is the user-visible error slot of a session.
type Failure struct {
	Code    errs.Code `json:"code"`
	Message string    `json:"message"`
}

func (f *Failure) Error() string { return string(f.Code) + ": " + f.Message }

// RateLimited reports whether the failure asks the user to sign in.
func (f *Failure) RateLimited() bool { return f != nil && f.Code == errs.ErrCodeRateLimit }

// failureFrom classifies err into the two codes a session exposes.
func failureFrom(err error) *Failure {
	if errs.IsRateLimit(err) {
		return &Failure{Code: errs.ErrCodeRateLimit, Message: errs.UserMessage(err)}
	}
	return &Failure{Code: errs.ErrCodeFetchFailed, Message: "Failed to fetch results. Please try again."}
}

// Session is the state of one search. Treat it as a value: transitions
// return a new Session and never mutate the Candidates slice in place.
type Session struct {
	Query      string
	Terms      []string
	Registry   candidate.Provenance
	Mode       rank.Mode
	Candidates []candidate.Candidate
	Offset     int
	HasMore    bool
	Loading    bool
	Err        *Failure
	Generation uint64
}

// Seen returns a fresh seen set built from the accepted candidates.
func (s Session) Seen() map[string]struct{} {
	return filter.SeenFrom(s.Candidates)
}

// Event is a session transition input.
type Event interface{ event() }

// SearchStarted resets the session for a new query.
type SearchStarted struct {
	Query    string
	Terms    []string
	Registry candidate.Provenance
	Mode     rank.Mode
}

// LoadMoreStarted requests the next page. It is ignored while a fetch is in
// flight, when the registry reported no more results or before any search.
type LoadMoreStarted struct {
	PageSize int
}

// PageLoaded delivers the survivors of one page. Fetched is the raw number
// of registry hits, compared against PageSize to decide HasMore.
type PageLoaded struct {
	Generation uint64
	Candidates []candidate.Candidate
	Fetched    int
	PageSize   int
}

// FetchFailed reports a registry failure. A failed load-more rolls the
// offset back by PageSize so a retry requests the same page again.
type FetchFailed struct {
	Generation uint64
	Failure    *Failure
	PageSize   int
}

// EnrichmentRateLimited marks the session as rate limited after enrichment
// was cut short. Results already merged stay.
type EnrichmentRateLimited struct {
	Generation uint64
	Message    string
}

// Reset discards the session and starts a new generation.
type Reset struct{}

func (SearchStarted) event()         {}
func (LoadMoreStarted) event()       {}
func (PageLoaded) event()            {}
func (FetchFailed) event()           {}
func (EnrichmentRateLimited) event() {}
func (Reset) event()                 {}

// Reduce applies ev to s and returns the resulting session. Results tagged
// with a generation other than s.Generation are stale and leave s unchanged.
func Reduce(s Session, ev Event) Session {
	switch e := ev.(type) {
	case SearchStarted:
		return Session{
			Query:      e.Query,
			Terms:      e.Terms,
			Registry:   e.Registry,
			Mode:       e.Mode,
			HasMore:    true,
			Loading:    true,
			Generation: s.Generation + 1,
		}

	case LoadMoreStarted:
		if s.Loading || !s.HasMore || len(s.Terms) == 0 {
			return s
		}
		s.Offset += e.PageSize
		s.Loading = true
		s.Err = nil
		return s

	case PageLoaded:
		if e.Generation != s.Generation {
			return s
		}
		s.Loading = false
		if e.Fetched < e.PageSize {
			s.HasMore = false
		}
		s.Candidates = merge(s.Candidates, e.Candidates)
		return s

	case FetchFailed:
		if e.Generation != s.Generation {
			return s
		}
		s.Loading = false
		s.Err = e.Failure
		if s.Offset >= e.PageSize {
			s.Offset -= e.PageSize
		}
		return s

	case EnrichmentRateLimited:
		if e.Generation != s.Generation {
			return s
		}
		msg := e.Message
		if msg == "" {
			msg = errs.UserMessage(&errs.RateLimitError{})
		}
		s.Err = &Failure{Code: errs.ErrCodeRateLimit, Message: msg}
		return s

	case Reset:
		return Session{Generation: s.Generation + 1}
	}
	return s
}

// merge appends page to acc, skipping any publisher acc already holds.
// The result never aliases acc's backing array.
func merge(acc, page []candidate.Candidate) []candidate.Candidate {
	seen := filter.SeenFrom(acc)
	out := make([]candidate.Candidate, len(acc), len(acc)+len(page))
	copy(out, acc)
	for _, c := range page {
		key := filter.SeenKey(c.Username())
		if _, dup := seen[key]; dup || key == "" {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}
	return out
}
