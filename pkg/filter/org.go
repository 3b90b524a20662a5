package filter

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/matzehuels/devscout/pkg/candidate"
	errs "github.com/matzehuels/devscout/pkg/errors"
)

// Username substrings that mark an account as non-human. Matching is
// case-insensitive and deliberately broad.
const (
	markerBot      = "bot"
	markerTeam     = "team"
	markerOfficial = "official"
)

var markers = []string{markerBot, markerTeam, markerOfficial}

var defaultOrgNames = []string{
	"facebook", "google", "microsoft", "angular", "react", "vue", "npm",
	"vercel", "nextjs", "aws", "amazon", "salesforce", "adobe", "netflix",
	"uber", "airbnb", "shopify", "twitter", "linkedin", "dropbox",
	"atlassian", "slack", "square", "stripe", "twilio", "auth0", "heroku",
	"netlify", "cloudflare", "types", "definitelytyped", "ionic", "expo",
	"firebase", "sentry", "algolia", "datadog", "newrelic",
}

// OrgList is a case-insensitive set of organization account names.
// The zero value is an empty list.
type OrgList struct {
	names map[string]struct{}
}

// NewOrgList builds a list from names.
func NewOrgList(names ...string) OrgList {
	l := OrgList{names: make(map[string]struct{}, len(names))}
	l.add(names...)
	return l
}

// DefaultOrgs returns a fresh copy of the built-in vendor list.
func DefaultOrgs() OrgList {
	return NewOrgList(defaultOrgNames...)
}

func (l *OrgList) add(names ...string) {
	if l.names == nil {
		l.names = make(map[string]struct{}, len(names))
	}
	for _, n := range names {
		if n = strings.ToLower(strings.TrimSpace(n)); n != "" {
			l.names[n] = struct{}{}
		}
	}
}

// With returns a new list holding the names of l plus names.
func (l OrgList) With(names ...string) OrgList {
	out := NewOrgList(l.Names()...)
	out.add(names...)
	return out
}

// Contains reports whether username is on the list.
func (l OrgList) Contains(username string) bool {
	_, ok := l.names[strings.ToLower(username)]
	return ok
}

// Len returns the number of names.
func (l OrgList) Len() int { return len(l.names) }

// Names returns the names in sorted order.
func (l OrgList) Names() []string {
	out := make([]string, 0, len(l.names))
	for n := range l.names {
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}

type orgFile struct {
	Orgs []string `yaml:"orgs"`
}

// ParseOrgList decodes a YAML document of the form `orgs: [..]`.
func ParseOrgList(data []byte) (OrgList, error) {
	var f orgFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return OrgList{}, errs.Wrap(errs.ErrCodeInvalidConfig, err, "parse org list")
	}
	return NewOrgList(f.Orgs...), nil
}

// LoadOrgList reads an org list file. With replace set, the file's names
// are the whole list; otherwise they extend [DefaultOrgs].
func LoadOrgList(path string, replace bool) (OrgList, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return OrgList{}, fmt.Errorf("read org list: %w", err)
	}
	fromFile, err := ParseOrgList(data)
	if err != nil {
		return OrgList{}, err
	}
	if replace {
		return fromFile, nil
	}
	return DefaultOrgs().With(fromFile.Names()...), nil
}

// IsOrganization reports whether rec was published by an organization or bot
// account. Records without a publisher are never flagged.
func IsOrganization(rec candidate.Record, orgs OrgList) bool {
	username := strings.ToLower(rec.PublisherUsername())
	if username == "" {
		return false
	}
	if orgs.Contains(username) {
		return true
	}
	for _, m := range markers {
		if strings.Contains(username, m) {
			return true
		}
	}
	return strings.HasPrefix(strings.ToLower(rec.Name), "@"+username+"/")
}
