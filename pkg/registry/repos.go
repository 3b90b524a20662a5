package registry

import (
	"context"
	"strings"

	"github.com/matzehuels/devscout/pkg/candidate"
	"github.com/matzehuels/devscout/pkg/integrations/github"
	"github.com/matzehuels/devscout/pkg/rank"
)

// starsForFullScore is the star count that maps to a quality and
// popularity of 1.0 for repository-search hits.
const starsForFullScore = 1000

// Repos is a GitHub repository-search source. The PyPI stand-in restricts
// results to Python; the GitHub source searches every language.
type Repos struct {
	client   *github.Client
	language string
	name     candidate.Provenance
}

// NewPyPI returns the PyPI stand-in: Python repositories sorted by stars.
func NewPyPI(c *github.Client) *Repos {
	return &Repos{client: c, language: "python", name: candidate.ProvenancePyPI}
}

// NewGitHub returns a repository search across all languages.
func NewGitHub(c *github.Client) *Repos {
	return &Repos{client: c, name: candidate.ProvenanceGitHub}
}

// Name implements [Source].
func (s *Repos) Name() candidate.Provenance { return s.name }

// Fetch implements [Source]. Weights are ignored: repository search only
// sorts by stars. offset is converted to a 1-based page number.
func (s *Repos) Fetch(ctx context.Context, terms []string, size, offset int, _ rank.Weights) ([]candidate.Record, error) {
	size = max(size, 1)
	items, err := s.client.SearchRepositories(ctx, github.RepoQuery{
		Text:     strings.Join(terms, " "),
		Language: s.language,
		PerPage:  size,
		Page:     offset/size + 1,
	})
	if err != nil {
		return nil, err
	}
	recs := make([]candidate.Record, 0, len(items))
	for _, it := range items {
		recs = append(recs, s.convert(it))
	}
	return recs, nil
}

func (s *Repos) convert(it github.RepoItem) candidate.Record {
	score := min(float64(it.Stars)/starsForFullScore, 1)

	rec := candidate.Record{
		Name:        it.Name,
		Version:     "latest",
		Description: it.Description,
		Date:        parseDate(it.UpdatedAt),
		Links: candidate.Links{
			Registry:   it.HTMLURL,
			Homepage:   it.HTMLURL,
			Repository: it.HTMLURL,
		},
		Score: candidate.Score{
			Final:       score,
			Quality:     score,
			Popularity:  score,
			Maintenance: 1,
		},
		SearchScore: float64(it.Stars),
		Provenance:  s.name,
	}
	if it.Homepage != "" {
		rec.Links.Homepage = it.Homepage
	}
	if s.name == candidate.ProvenancePyPI {
		rec.Links.Registry = "https://pypi.org/project/" + it.Name + "/"
		rec.Keywords = []string{"python"}
	}
	if it.Language != "" {
		rec.Keywords = append(rec.Keywords, it.Language)
	}
	if it.Owner.Login != "" {
		rec.Publisher = &candidate.Person{Username: it.Owner.Login}
		rec.Author = &candidate.Person{Name: it.Owner.Login}
	}
	return rec
}
