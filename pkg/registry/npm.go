package registry

import (
	"context"

	"github.com/matzehuels/devscout/pkg/candidate"
	"github.com/matzehuels/devscout/pkg/integrations/npm"
	"github.com/matzehuels/devscout/pkg/rank"
)

// NPM is the npm search source.
type NPM struct {
	client *npm.Client
}

// NewNPM wraps an npm client.
func NewNPM(c *npm.Client) *NPM { return &NPM{client: c} }

// Name implements [Source].
func (*NPM) Name() candidate.Provenance { return candidate.ProvenanceNPM }

// Fetch implements [Source].
func (s *NPM) Fetch(ctx context.Context, terms []string, size, offset int, w rank.Weights) ([]candidate.Record, error) {
	objs, err := s.client.Search(ctx, BuildNPMQuery(terms), size, offset, w)
	if err != nil {
		return nil, err
	}
	recs := make([]candidate.Record, 0, len(objs))
	for _, o := range objs {
		recs = append(recs, fromNPM(o))
	}
	return recs, nil
}

func fromNPM(o npm.SearchObject) candidate.Record {
	p := o.Package
	rec := candidate.Record{
		Name:        p.Name,
		Version:     p.Version,
		Description: p.Description,
		Keywords:    p.Keywords,
		Date:        parseDate(p.Date),
		Links: candidate.Links{
			Registry:   p.Links.NPM,
			Homepage:   p.Links.Homepage,
			Repository: p.Links.Repository,
			Bugs:       p.Links.Bugs,
		},
		Score: candidate.Score{
			Final:       o.Score.Final,
			Quality:     o.Score.Detail.Quality,
			Popularity:  o.Score.Detail.Popularity,
			Maintenance: o.Score.Detail.Maintenance,
		},
		SearchScore: o.SearchScore,
		Provenance:  candidate.ProvenanceNPM,
	}
	if p.Publisher != nil {
		rec.Publisher = &candidate.Person{Username: p.Publisher.Username, Email: p.Publisher.Email}
	}
	if p.Author != nil {
		rec.Author = &candidate.Person{Name: p.Author.Name, Email: p.Author.Email, URL: p.Author.URL}
	}
	for _, m := range p.Maintainers {
		rec.Maintainers = append(rec.Maintainers, candidate.Person{Username: m.Username, Email: m.Email})
	}
	return rec
}
