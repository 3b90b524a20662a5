package cli

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/matzehuels/devscout/pkg/candidate"
	errs "github.com/matzehuels/devscout/pkg/errors"
	"github.com/matzehuels/devscout/pkg/rank"
)

func ptr[T any](v T) *T { return &v }

func sampleCandidates() []candidate.Candidate {
	enriched := candidate.Candidate{
		Record: candidate.Record{
			Name:      "left-pad",
			Publisher: &candidate.Person{Username: "azer"},
			Score:     candidate.Score{Final: 0.91, Quality: 0.8, Popularity: 0.7},
		},
		Profile: &candidate.Profile{
			Login:     "azer",
			HTMLURL:   ptr("https://github.com/azer"),
			Name:      ptr("Azer Koçulu"),
			Location:  ptr("Berlin"),
			Followers: ptr(1200),
		},
		Impact: rank.Impact{Tier: rank.TierSeniorArchitect, TopTier: true},
	}
	bare := candidate.Candidate{
		Record: candidate.Record{
			Name:      "tiny",
			Publisher: &candidate.Person{Username: "newbie"},
			Score:     candidate.Score{Final: 0.2},
		},
	}
	return []candidate.Candidate{enriched, bare}
}

func TestResultRow(t *testing.T) {
	cands := sampleCandidates()

	row := resultRow(0, cands[0])
	if len(row) != len(resultColumns) {
		t.Fatalf("row has %d cells, want %d", len(row), len(resultColumns))
	}
	if row[0] != "1" {
		t.Errorf("index = %q, want 1", row[0])
	}
	if !strings.HasPrefix(row[1], "azer") || !strings.Contains(row[1], iconEnriched) {
		t.Errorf("username = %q, want azer with enriched marker", row[1])
	}
	if row[4] != "91" {
		t.Errorf("score = %q, want 91", row[4])
	}
	if row[5] != "1200" || row[6] != "Berlin" {
		t.Errorf("followers/location = %q/%q", row[5], row[6])
	}

	row = resultRow(1, cands[1])
	if row[1] != "newbie" {
		t.Errorf("unenriched username = %q", row[1])
	}
	if row[2] != "—" || row[5] != "—" {
		t.Errorf("missing profile fields should render as dashes: %v", row)
	}
}

func TestWriteResults(t *testing.T) {
	cands := sampleCandidates()

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		if err := writeResults(&buf, formatJSON, cands); err != nil {
			t.Fatal(err)
		}
		var got []candidate.Candidate
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatalf("output is not JSON: %v", err)
		}
		if len(got) != 2 || got[0].Username() != "azer" {
			t.Errorf("decoded %d candidates, first %q", len(got), got[0].Username())
		}
	})

	t.Run("csv", func(t *testing.T) {
		var buf bytes.Buffer
		if err := writeResults(&buf, formatCSV, cands); err != nil {
			t.Fatal(err)
		}
		recs, err := csv.NewReader(&buf).ReadAll()
		if err != nil {
			t.Fatal(err)
		}
		if len(recs) != 3 {
			t.Fatalf("got %d csv rows, want header + 2", len(recs))
		}
		if recs[0][0] != "username" || recs[1][0] != "azer" {
			t.Errorf("unexpected csv: %v", recs[:2])
		}
		if recs[1][3] != "true" || recs[2][3] != "false" {
			t.Errorf("top_tier column = %q, %q", recs[1][3], recs[2][3])
		}
		if recs[1][8] != "pkg:github/azer/left-pad" {
			t.Errorf("purl = %q", recs[1][8])
		}
		if recs[1][len(recs[1])-1] != "https://github.com/azer" {
			t.Errorf("profile_url = %q", recs[1][len(recs[1])-1])
		}
	})

	t.Run("table", func(t *testing.T) {
		var buf bytes.Buffer
		if err := writeResults(&buf, formatTable, cands); err != nil {
			t.Fatal(err)
		}
		out := buf.String()
		for _, want := range []string{"Username", "azer", "newbie", "left-pad"} {
			if !strings.Contains(out, want) {
				t.Errorf("table missing %q", want)
			}
		}
	})

	t.Run("unknown", func(t *testing.T) {
		err := writeResults(&bytes.Buffer{}, "xml", cands)
		if errs.GetCode(err) != errs.ErrCodeInvalidInput {
			t.Errorf("code = %q, want %q", errs.GetCode(err), errs.ErrCodeInvalidInput)
		}
	})
}

func TestCountEnriched(t *testing.T) {
	if n := countEnriched(sampleCandidates()); n != 1 {
		t.Errorf("countEnriched = %d, want 1", n)
	}
	if n := countEnriched(nil); n != 0 {
		t.Errorf("countEnriched(nil) = %d", n)
	}
}
