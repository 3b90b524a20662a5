package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/devscout/pkg/candidate"
	errs "github.com/matzehuels/devscout/pkg/errors"
)

// Output formats for search results.
const (
	formatTable = "table"
	formatJSON  = "json"
	formatCSV   = "csv"
)

var resultColumns = []string{"#", "Username", "Name", "Tier", "Score", "Followers", "Location", "Package"}

// writeResults renders cands in format.
func writeResults(w io.Writer, format string, cands []candidate.Candidate) error {
	switch format {
	case formatTable, "":
		_, err := fmt.Fprintln(w, renderResultTable(cands))
		return err
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(cands)
	case formatCSV:
		return writeResultCSV(w, cands)
	default:
		return errs.New(errs.ErrCodeInvalidInput, "unknown format %q (want table, json or csv)", format)
	}
}

// resultRow is the display row shared by the static table and the TUI.
func resultRow(i int, c candidate.Candidate) []string {
	name, location, followers := "—", "—", "—"
	if p := c.Profile; p != nil {
		if p.Name != nil {
			name = *p.Name
		}
		if p.Location != nil {
			location = *p.Location
		}
		if p.Followers != nil {
			followers = strconv.Itoa(*p.Followers)
		}
	}
	username := c.Username()
	if c.Enriched() {
		username += " " + iconEnriched
	}
	return []string{
		strconv.Itoa(i + 1),
		username,
		name,
		c.Impact.Tier,
		fmt.Sprintf("%.0f", c.Record.Score.Final*100),
		followers,
		location,
		c.Record.Name,
	}
}

func renderResultTable(cands []candidate.Candidate) string {
	rows := make([][]string, len(cands))
	for i, c := range cands {
		rows[i] = resultRow(i, c)
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers(resultColumns...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			base := lipgloss.NewStyle().Padding(0, 1)
			if row < 0 || row >= len(cands) {
				return base
			}
			switch col {
			case 0:
				return base.Foreground(colorDim)
			case 1:
				return base.Foreground(colorCyan)
			case 3:
				if cands[row].Impact.TopTier {
					return base.Foreground(colorPurple).Bold(true)
				}
				return base.Foreground(colorGray)
			}
			return base
		})
	return t.Render()
}

var csvHeader = []string{
	"username", "name", "tier", "top_tier", "score", "quality", "popularity",
	"package", "purl", "location", "company", "followers", "profile_url",
}

func writeResultCSV(w io.Writer, cands []candidate.Candidate) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, c := range cands {
		var name, location, company, followers string
		if p := c.Profile; p != nil {
			name = str(p.Name)
			location = str(p.Location)
			company = str(p.Company)
			if p.Followers != nil {
				followers = strconv.Itoa(*p.Followers)
			}
		}
		s := c.Record.Score
		rec := []string{
			c.Username(), name, c.Impact.Tier, strconv.FormatBool(c.Impact.TopTier),
			strconv.FormatFloat(s.Final, 'f', 3, 64),
			strconv.FormatFloat(s.Quality, 'f', 3, 64),
			strconv.FormatFloat(s.Popularity, 'f', 3, 64),
			c.Record.Name, c.Record.PURL(), location, company, followers, c.ProfileURL(),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// countEnriched counts candidates with a profile attached.
func countEnriched(cands []candidate.Candidate) int {
	n := 0
	for _, c := range cands {
		if c.Enriched() {
			n++
		}
	}
	return n
}
