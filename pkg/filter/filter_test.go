package filter

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/matzehuels/devscout/pkg/candidate"
	errs "github.com/matzehuels/devscout/pkg/errors"
)

func rec(name, publisher string) candidate.Record {
	r := candidate.Record{Name: name}
	if publisher != "" {
		r.Publisher = &candidate.Person{Username: publisher}
	}
	return r
}

func names(recs []candidate.Record) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Name
	}
	return out
}

func TestIsOrganization(t *testing.T) {
	orgs := DefaultOrgs()

	tests := []struct {
		name string
		rec  candidate.Record
		want bool
	}{
		{"listed vendor", rec("react-dom", "facebook"), true},
		{"listed vendor mixed case", rec("thing", "FaceBook"), true},
		{"bot substring", rec("release-tool", "acme-bot"), true},
		{"team substring", rec("widgets", "widgetteam"), true},
		{"official substring", rec("sdk", "acme-official"), true},
		{"scoped to publisher", rec("@reactjs/core", "reactjs"), true},
		{"plain user", rec("left-pad", "stevemao"), false},
		{"scoped to someone else", rec("@babel/core", "stevemao"), false},
		{"no publisher", rec("orphan", ""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsOrganization(tt.rec, orgs); got != tt.want {
				t.Errorf("IsOrganization(%q by %q) = %v, want %v", tt.rec.Name, tt.rec.PublisherUsername(), got, tt.want)
			}
		})
	}
}

func TestIsOrganizationCustomList(t *testing.T) {
	orgs := NewOrgList("initech")
	if !IsOrganization(rec("tps", "Initech"), orgs) {
		t.Error("custom list entry not matched")
	}
	if IsOrganization(rec("react-dom", "facebook"), orgs) {
		t.Error("replaced list still matched a default entry")
	}
}

func TestDedupe(t *testing.T) {
	batch := []candidate.Record{
		rec("a1", "alice"),
		rec("b1", "bob"),
		rec("a2", "alice"),
		rec("nobody", ""),
		rec("react", "facebook"),
		rec("c1", "carol"),
		rec("b2", "BOB"),
	}

	seen := map[string]struct{}{}
	got := Dedupe(batch, seen, DefaultOrgs())

	want := []string{"a1", "b1", "c1"}
	if gotNames := names(got); !slices.Equal(gotNames, want) {
		t.Fatalf("Dedupe() = %v, want %v", gotNames, want)
	}
	for _, u := range []string{"alice", "bob", "carol"} {
		if _, ok := seen[u]; !ok {
			t.Errorf("seen set missing %q", u)
		}
	}
	if _, ok := seen["facebook"]; ok {
		t.Error("rejected organization was added to seen set")
	}
}

func TestDedupeAcrossBatches(t *testing.T) {
	first := Dedupe([]candidate.Record{rec("a1", "alice")}, map[string]struct{}{}, DefaultOrgs())
	cands := []candidate.Candidate{candidate.New(first[0])}

	seen := SeenFrom(cands)
	got := Dedupe([]candidate.Record{rec("a2", "alice"), rec("d1", "dave")}, seen, DefaultOrgs())
	if gotNames := names(got); !slices.Equal(gotNames, []string{"d1"}) {
		t.Errorf("second batch = %v, want [d1]", gotNames)
	}
}

func TestLoadOrgList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orgs.yaml")
	if err := os.WriteFile(path, []byte("orgs:\n  - Initech\n  - globex\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	extended, err := LoadOrgList(path, false)
	if err != nil {
		t.Fatalf("LoadOrgList() error: %v", err)
	}
	if !extended.Contains("initech") || !extended.Contains("facebook") {
		t.Error("extended list should hold file and default names")
	}

	replaced, err := LoadOrgList(path, true)
	if err != nil {
		t.Fatalf("LoadOrgList() error: %v", err)
	}
	if replaced.Len() != 2 || replaced.Contains("facebook") {
		t.Errorf("replaced list = %v", replaced.Names())
	}
}

func TestParseOrgListInvalid(t *testing.T) {
	_, err := ParseOrgList([]byte("orgs: [unterminated"))
	if !errs.Is(err, errs.ErrCodeInvalidConfig) {
		t.Errorf("ParseOrgList() error = %v, want INVALID_CONFIG", err)
	}
}
