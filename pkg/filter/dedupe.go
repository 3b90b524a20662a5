package filter

import (
	"strings"

	"github.com/matzehuels/devscout/pkg/candidate"
)

// SeenKey normalizes a publisher username for the seen set.
func SeenKey(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// Dedupe returns the admissible records of batch in input order. A record is
// dropped when it has no publisher, when its publisher is already in seen, or
// when [IsOrganization] flags it. Every admitted publisher is added to seen
// before the next record is examined, so duplicates inside batch are caught
// too. seen must be non-nil.
func Dedupe(batch []candidate.Record, seen map[string]struct{}, orgs OrgList) []candidate.Record {
	out := make([]candidate.Record, 0, len(batch))
	for _, rec := range batch {
		key := SeenKey(rec.PublisherUsername())
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		if IsOrganization(rec, orgs) {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, rec)
	}
	return out
}

// SeenFrom seeds a seen set from the publishers of already accepted
// candidates.
func SeenFrom(cands []candidate.Candidate) map[string]struct{} {
	seen := make(map[string]struct{}, len(cands))
	for _, c := range cands {
		if key := SeenKey(c.Username()); key != "" {
			seen[key] = struct{}{}
		}
	}
	return seen
}
