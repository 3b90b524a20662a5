package candidate

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/package-url/packageurl-go"

	errs "github.com/matzehuels/devscout/pkg/errors"
)

// AvatarURL returns the profile avatar, the GitHub avatar for the record's
// login, or a generated placeholder when no login is known.
func (c Candidate) AvatarURL() string {
	if c.Profile != nil && c.Profile.AvatarURL != nil && *c.Profile.AvatarURL != "" {
		return *c.Profile.AvatarURL
	}
	if login := c.Record.GitHubLogin(); login != "" {
		return "https://github.com/" + login + ".png"
	}
	name := "User"
	if c.Record.Author != nil && c.Record.Author.Name != "" {
		name = c.Record.Author.Name
	}
	return "https://ui-avatars.com/api/?name=" + url.QueryEscape(name) + "&background=random&color=fff"
}

// ProfileURL returns the GitHub profile for the candidate, falling back to
// the cleaned repository link. Returns "" when neither is known.
func (c Candidate) ProfileURL() string {
	if c.Profile != nil && c.Profile.HTMLURL != nil && *c.Profile.HTMLURL != "" {
		return *c.Profile.HTMLURL
	}
	if m := githubOwnerRe.FindStringSubmatch(c.Record.Links.Repository); len(m) == 2 {
		return "https://github.com/" + m[1]
	}
	return CleanRepoURL(c.Record.Links.Repository)
}

var (
	gitPlusPrefix = regexp.MustCompile(`^git\+`)
	gitScheme     = regexp.MustCompile(`^git://`)
)

// CleanRepoURL converts git+ and git:// repository links to browsable https
// URLs and drops a trailing .git.
func CleanRepoURL(raw string) string {
	if raw == "" {
		return ""
	}
	s := gitPlusPrefix.ReplaceAllString(strings.TrimSpace(raw), "")
	s = gitScheme.ReplaceAllString(s, "https://")
	return strings.TrimSuffix(s, ".git")
}

// PURL returns the package-url for the record, e.g. pkg:npm/%40scope/name@1.0.0.
// An npm record whose name breaks the registry naming rules has no PURL.
func (r Record) PURL() string {
	var p *packageurl.PackageURL
	switch r.Provenance {
	case ProvenanceNPM:
		if errs.ValidateNpmPackageName(r.Name) != nil {
			return ""
		}
		ns, name := "", r.Name
		if strings.HasPrefix(name, "@") {
			if i := strings.Index(name, "/"); i > 0 {
				ns, name = name[:i], name[i+1:]
			}
		}
		p = packageurl.NewPackageURL(packageurl.TypeNPM, ns, name, r.Version, nil, "")
	case ProvenancePyPI:
		version := r.Version
		if version == "latest" {
			version = ""
		}
		p = packageurl.NewPackageURL(packageurl.TypePyPi, "", strings.ToLower(r.Name), version, nil, "")
	default:
		p = packageurl.NewPackageURL(packageurl.TypeGithub, r.PublisherUsername(), r.Name, "", nil, "")
	}
	return p.ToString()
}
