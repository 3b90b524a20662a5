package discovery

import (
	"github.com/matzehuels/devscout/pkg/candidate"
	"github.com/matzehuels/devscout/pkg/rank"
)

// State is what a presentation layer observes of a session.
type State struct {
	Query    string                `json:"query"`
	Registry candidate.Provenance  `json:"registry,omitempty"`
	Mode     rank.Mode             `json:"mode,omitempty"`
	Results  []candidate.Candidate `json:"results"`
	Loading  bool                  `json:"loading"`
	Error    *Failure              `json:"error"`
	HasMore  bool                  `json:"has_more"`
	Offset   int                   `json:"offset"`
}

// StateOf projects s into a State. Results is never nil.
func StateOf(s Session) State {
	results := s.Candidates
	if results == nil {
		results = []candidate.Candidate{}
	}
	return State{
		Query:    s.Query,
		Registry: s.Registry,
		Mode:     s.Mode,
		Results:  results,
		Loading:  s.Loading,
		Error:    s.Err,
		HasMore:  s.HasMore,
		Offset:   s.Offset,
	}
}
