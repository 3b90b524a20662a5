// Package candidate defines the records that flow through the discovery
// pipeline.
//
// A [Record] is one registry hit, immutable once fetched. A [Candidate] is a
// Record that survived deduplication, optionally carrying a GitHub [Profile].
// Each registry source decodes its own wire format and converts to Record,
// so the rest of the pipeline never sees source-specific shapes.
package candidate

import (
	"regexp"
	"strings"
	"time"

	"github.com/matzehuels/devscout/pkg/rank"
)

// Provenance identifies the registry that produced a record.
type Provenance string

const (
	ProvenanceNPM    Provenance = "npm"
	ProvenancePyPI   Provenance = "pypi"   // PyPI via GitHub repository search
	ProvenanceGitHub Provenance = "github" // GitHub repository search, unfiltered
)

// Links groups the URLs a registry publishes for a package.
type Links struct {
	Registry   string `json:"npm,omitempty"`
	Homepage   string `json:"homepage,omitempty"`
	Repository string `json:"repository,omitempty"`
	Bugs       string `json:"bugs,omitempty"`
}

// Person is a publisher, maintainer or author identity.
type Person struct {
	Username string `json:"username,omitempty"`
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	URL      string `json:"url,omitempty"`
}

// Score is the registry's score triple plus its derived final score.
type Score struct {
	Final       float64 `json:"final"`
	Quality     float64 `json:"quality"`
	Popularity  float64 `json:"popularity"`
	Maintenance float64 `json:"maintenance"`
}

// Record is one hit from a registry.
type Record struct {
	Name        string     `json:"name"`
	Version     string     `json:"version,omitempty"`
	Description string     `json:"description,omitempty"`
	Keywords    []string   `json:"keywords,omitempty"`
	Date        time.Time  `json:"date,omitzero"`
	Links       Links      `json:"links"`
	Publisher   *Person    `json:"publisher,omitempty"`
	Author      *Person    `json:"author,omitempty"`
	Maintainers []Person   `json:"maintainers,omitempty"`
	Score       Score      `json:"score"`
	SearchScore float64    `json:"search_score"`
	Provenance  Provenance `json:"source"`
}

// PublisherUsername returns the publisher login, or "" when absent.
func (r Record) PublisherUsername() string {
	if r.Publisher == nil {
		return ""
	}
	return strings.TrimSpace(r.Publisher.Username)
}

var githubOwnerRe = regexp.MustCompile(`github\.com[:/]([^/]+)`)

// GitHubLogin returns the account to enrich for this record: the owner
// segment of a GitHub repository link, or the publisher username.
func (r Record) GitHubLogin() string {
	if m := githubOwnerRe.FindStringSubmatch(r.Links.Repository); len(m) == 2 {
		return m[1]
	}
	return r.PublisherUsername()
}

// Profile is the enrichment data for a GitHub account. Nil fields were not
// fetched or not disclosed; they never mean zero.
type Profile struct {
	Login           string  `json:"login"`
	Name            *string `json:"name,omitempty"`
	AvatarURL       *string `json:"avatar_url,omitempty"`
	HTMLURL         *string `json:"html_url,omitempty"`
	Location        *string `json:"location,omitempty"`
	Bio             *string `json:"bio,omitempty"`
	Company         *string `json:"company,omitempty"`
	Blog            *string `json:"blog,omitempty"`
	TwitterUsername *string `json:"twitter_username,omitempty"`
	Followers       *int    `json:"followers,omitempty"`
	Following       *int    `json:"following,omitempty"`
	PublicRepos     *int    `json:"public_repos,omitempty"`
}

// Candidate is a deduplicated, possibly enriched record.
type Candidate struct {
	Record    Record      `json:"record"`
	Profile   *Profile    `json:"profile,omitempty"`
	Impact    rank.Impact `json:"impact"`
	Relevance float64     `json:"relevance"`
}

// New builds an unenriched candidate with its impact tier computed.
func New(r Record) Candidate {
	return Candidate{
		Record:    r,
		Impact:    rank.Classify(r.Score.Quality, r.Score.Popularity),
		Relevance: r.SearchScore,
	}
}

// Username is the publisher username the session deduplicates on.
func (c Candidate) Username() string { return c.Record.PublisherUsername() }

// Enriched reports whether a profile is attached.
func (c Candidate) Enriched() bool { return c.Profile != nil }
