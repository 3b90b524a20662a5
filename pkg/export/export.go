// Package export writes saved candidates as CSV or JSON.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	errs "github.com/matzehuels/devscout/pkg/errors"
	"github.com/matzehuels/devscout/pkg/store"
)

// Format names an export format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// Row is the flattened, spreadsheet-friendly view of a saved candidate.
type Row struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Username        string `json:"username"`
	Status          string `json:"status"`
	Score           int    `json:"score"`
	Labels          string `json:"labels"`
	Location        string `json:"location"`
	Company         string `json:"company"`
	TwitterUsername string `json:"twitter_username"`
	GitHubURL       string `json:"github_url"`
	Homepage        string `json:"homepage"`
	RegistryURL     string `json:"npm_link"`
	Description     string `json:"description"`
	PublicRepos     int    `json:"public_repos"`
	Followers       int    `json:"followers"`
	SavedDate       string `json:"saved_date"`
}

// Header is the CSV header, in column order.
var Header = []string{
	"name", "email", "username", "status", "score", "labels", "location",
	"company", "twitter_username", "github_url", "homepage", "npm_link",
	"description", "public_repos", "followers", "saved_date",
}

// Flatten converts s into a Row. The score is the final registry score as a
// percentage; the display name falls back to the username.
func Flatten(s store.Saved) Row {
	rec := s.Candidate.Record
	p := s.Candidate.Profile

	row := Row{
		Name:        s.Username,
		Username:    s.Username,
		Status:      string(s.Status),
		Score:       int(math.Round(rec.Score.Final * 100)),
		Labels:      strings.Join(s.Labels, ", "),
		GitHubURL:   rec.Links.Repository,
		Homepage:    rec.Links.Homepage,
		RegistryURL: rec.Links.Registry,
		Description: rec.Description,
	}
	if row.Status == "" {
		row.Status = string(store.StatusNew)
	}
	if rec.Publisher != nil {
		row.Email = rec.Publisher.Email
	}
	if !s.SavedAt.IsZero() {
		row.SavedDate = s.SavedAt.UTC().Format(time.DateOnly)
	}
	if p != nil {
		row.Name = deref(p.Name, row.Name)
		row.Location = deref(p.Location, "")
		row.Company = deref(p.Company, "")
		row.TwitterUsername = deref(p.TwitterUsername, "")
		row.PublicRepos = derefInt(p.PublicRepos)
		row.Followers = derefInt(p.Followers)
	}
	return row
}

func (r Row) record() []string {
	return []string{
		r.Name, r.Email, r.Username, r.Status, strconv.Itoa(r.Score), r.Labels,
		r.Location, r.Company, r.TwitterUsername, r.GitHubURL, r.Homepage,
		r.RegistryURL, r.Description, strconv.Itoa(r.PublicRepos),
		strconv.Itoa(r.Followers), r.SavedDate,
	}
}

// WriteCSV writes a header and one flattened row per candidate.
func WriteCSV(w io.Writer, list []store.Saved) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, s := range list {
		if err := cw.Write(Flatten(s).record()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes the full saved records as an indented JSON array.
func WriteJSON(w io.Writer, list []store.Saved) error {
	if list == nil {
		list = []store.Saved{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(list)
}

// Write dispatches on format.
func Write(w io.Writer, format Format, list []store.Saved) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, list)
	case FormatJSON, "":
		return WriteJSON(w, list)
	default:
		return errs.New(errs.ErrCodeInvalidInput, "unsupported export format %q (want csv or json)", format)
	}
}

// Filename returns the conventional export file name for day.
func Filename(format Format, day time.Time) string {
	return "candidates_export_" + day.Format(time.DateOnly) + "." + string(format)
}

func deref(s *string, fallback string) string {
	if s == nil || *s == "" {
		return fallback
	}
	return *s
}

func derefInt(n *int) int {
	if n == nil {
		return 0
	}
	return *n
}
