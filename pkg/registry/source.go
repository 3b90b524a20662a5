package registry

import (
	"context"
	"strings"
	"time"

	"github.com/matzehuels/devscout/pkg/candidate"
	errs "github.com/matzehuels/devscout/pkg/errors"
	"github.com/matzehuels/devscout/pkg/rank"
)

// Source fetches one page of records for a query.
type Source interface {
	// Name is the provenance stamped on every record the source returns.
	Name() candidate.Provenance

	// Fetch returns up to size records starting at offset. An empty result
	// with a nil error means the registry has nothing more.
	Fetch(ctx context.Context, terms []string, size, offset int, w rank.Weights) ([]candidate.Record, error)
}

// Sources maps a provenance to the source serving it.
type Sources map[candidate.Provenance]Source

// Get returns the source for p, or an INVALID_REGISTRY error.
func (s Sources) Get(p candidate.Provenance) (Source, error) {
	src, ok := s[p]
	if !ok {
		return nil, errs.New(errs.ErrCodeInvalidRegistry, "registry %q is not configured", p)
	}
	return src, nil
}

// ParseRegistry validates a user-supplied registry name. The empty string
// selects npm.
func ParseRegistry(s string) (candidate.Provenance, error) {
	switch p := candidate.Provenance(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return candidate.ProvenanceNPM, nil
	case candidate.ProvenanceNPM, candidate.ProvenancePyPI, candidate.ProvenanceGitHub:
		return p, nil
	default:
		return "", errs.New(errs.ErrCodeInvalidRegistry, "unknown registry %q (want npm, pypi or github)", s)
	}
}

// ParseTerms splits a comma-separated query into trimmed, non-empty terms.
// A nil result means the query is empty.
func ParseTerms(query string) []string {
	var terms []string
	for t := range strings.SplitSeq(query, ",") {
		if t = strings.TrimSpace(t); t != "" {
			terms = append(terms, t)
		}
	}
	return terms
}

// BuildNPMQuery turns terms into npm search text. A single term without
// whitespace becomes an exact keyword match; anything else is free text.
func BuildNPMQuery(terms []string) string {
	if len(terms) == 1 && !strings.ContainsFunc(terms[0], isSpace) {
		return "keywords:" + terms[0]
	}
	return strings.Join(terms, " ")
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

// parseDate reads an RFC 3339 timestamp, returning the zero time when the
// value is missing or malformed.
func parseDate(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
