// Package store persists saved candidates and their outreach status.
//
// A [Saved] record pins a [candidate.Candidate] snapshot together with the
// recruiter's annotations: a pipeline [Status], free-form labels and notes.
// Records are keyed by publisher username, case-insensitively.
//
// Backends:
//   - [MemoryStore]: process-local, for tests and the API server default
//   - [FileStore]: one JSON file guarded by a cross-process lock, for the CLI
//   - [MongoStore]: one document per candidate
//   - [PostgresStore]: one row per candidate with a JSONB snapshot column
package store

import (
	"context"
	"errors"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/matzehuels/devscout/pkg/candidate"
	errs "github.com/matzehuels/devscout/pkg/errors"
)

// ErrNotFound is returned when no candidate is saved under a username.
var ErrNotFound = errors.New("saved candidate not found")

// Status is a candidate's position in the outreach pipeline.
type Status string

const (
	StatusNew          Status = "new"
	StatusContacted    Status = "contacted"
	StatusReplied      Status = "replied"
	StatusInterviewing Status = "interviewing"
	StatusHired        Status = "hired"
	StatusRejected     Status = "rejected"
)

// Statuses lists every status in pipeline order.
var Statuses = []Status{StatusNew, StatusContacted, StatusReplied, StatusInterviewing, StatusHired, StatusRejected}

// ParseStatus validates a status name. The empty string yields [StatusNew].
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if st == "" {
		return StatusNew, nil
	}
	if !slices.Contains(Statuses, st) {
		return "", errs.New(errs.ErrCodeInvalidStatus, "unknown status %q", s)
	}
	return st, nil
}

func checkStatus(st Status) error {
	if !slices.Contains(Statuses, st) {
		return errs.New(errs.ErrCodeInvalidStatus, "unknown status %q", st)
	}
	return nil
}

// Saved is a bookmarked candidate.
type Saved struct {
	Username  string              `json:"username" bson:"username"`
	Candidate candidate.Candidate `json:"candidate" bson:"candidate"`
	Status    Status              `json:"status" bson:"status"`
	Labels    []string            `json:"labels" bson:"labels"`
	Notes     string              `json:"notes,omitempty" bson:"notes"`
	SavedBy   string              `json:"saved_by,omitempty" bson:"saved_by"`
	SavedAt   time.Time           `json:"saved_at" bson:"saved_at"`
	UpdatedAt time.Time           `json:"updated_at" bson:"updated_at"`
}

// Filter narrows [Store.List]. Zero fields match everything.
type Filter struct {
	Status Status
	Label  string
}

// Match reports whether s passes the filter.
func (f Filter) Match(s Saved) bool {
	if f.Status != "" && s.Status != f.Status {
		return false
	}
	if f.Label != "" && !slices.ContainsFunc(s.Labels, func(l string) bool { return strings.EqualFold(l, f.Label) }) {
		return false
	}
	return true
}

// Store is implemented by every backend.
type Store interface {
	// Save inserts or replaces the record for s.Username. SavedAt is kept
	// from an existing record; UpdatedAt is always refreshed.
	Save(ctx context.Context, s Saved) (Saved, error)

	// Get returns the record for username or ErrNotFound.
	Get(ctx context.Context, username string) (Saved, error)

	// List returns matching records, most recently saved first.
	List(ctx context.Context, f Filter) ([]Saved, error)

	// UpdateStatus moves a record through the pipeline.
	UpdateStatus(ctx context.Context, username string, st Status) error

	// Delete removes a record. Missing records return ErrNotFound.
	Delete(ctx context.Context, username string) error

	Close() error
}

// FromCandidate builds a new record for c.
func FromCandidate(c candidate.Candidate, savedBy string) Saved {
	return Saved{
		Username:  c.Username(),
		Candidate: c,
		Status:    StatusNew,
		SavedBy:   savedBy,
	}
}

// Key is the case-insensitive storage key for a username.
func Key(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// prepare validates s and stamps its timestamps. prev is the stored record
// being replaced, if any.
func prepare(s Saved, prev *Saved, now time.Time) (Saved, error) {
	if Key(s.Username) == "" {
		return Saved{}, errs.New(errs.ErrCodeInvalidInput, "saved candidate needs a username")
	}
	st, err := ParseStatus(string(s.Status))
	if err != nil {
		return Saved{}, err
	}
	s.Status = st
	s.Labels = normalizeLabels(s.Labels)

	switch {
	case prev != nil:
		s.SavedAt = prev.SavedAt
	case s.SavedAt.IsZero():
		s.SavedAt = now
	}
	s.UpdatedAt = now
	return s, nil
}

func normalizeLabels(labels []string) []string {
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		l = strings.TrimSpace(l)
		if l == "" || slices.ContainsFunc(out, func(o string) bool { return strings.EqualFold(o, l) }) {
			continue
		}
		out = append(out, l)
	}
	return out
}

// sortNewest orders records by SavedAt descending, then by username.
func sortNewest(list []Saved) {
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].SavedAt.Equal(list[j].SavedAt) {
			return list[i].SavedAt.After(list[j].SavedAt)
		}
		return Key(list[i].Username) < Key(list[j].Username)
	})
}
