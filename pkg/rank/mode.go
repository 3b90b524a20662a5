package rank

import (
	"strings"

	errs "github.com/matzehuels/devscout/pkg/errors"
)

// Mode selects a weighting preset for registry ranking.
type Mode string

const (
	ModeOptimal    Mode = "optimal"
	ModePopularity Mode = "popularity"
	ModeFreshness  Mode = "freshness"
	ModeQuality    Mode = "quality"
)

// Modes lists the supported modes in display order.
var Modes = []Mode{ModeOptimal, ModePopularity, ModeFreshness, ModeQuality}

// Weights is the score weighting forwarded to the registry.
type Weights struct {
	Quality     float64 `json:"quality"`
	Popularity  float64 `json:"popularity"`
	Maintenance float64 `json:"maintenance"`
}

var presets = map[Mode]Weights{
	ModeOptimal:    {Quality: 1.0, Popularity: 1.0, Maintenance: 1.0},
	ModePopularity: {Quality: 0.1, Popularity: 1.0, Maintenance: 0.1},
	ModeFreshness:  {Quality: 0.5, Popularity: 0.1, Maintenance: 1.0},
	ModeQuality:    {Quality: 1.0, Popularity: 0.5, Maintenance: 0.5},
}

// WeightsFor returns the preset for m. Unknown modes get the optimal preset.
func WeightsFor(m Mode) Weights {
	if w, ok := presets[m]; ok {
		return w
	}
	return presets[ModeOptimal]
}

// ParseMode validates a user-supplied mode name. The empty string yields
// [ModeOptimal] and "maintenance" is accepted as an alias for freshness.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeOptimal, nil
	case "maintenance":
		return ModeFreshness, nil
	case ModeOptimal, ModePopularity, ModeFreshness, ModeQuality:
		return m, nil
	default:
		return "", errs.New(errs.ErrCodeInvalidMode, "unknown ranking mode %q (want optimal, popularity, freshness or quality)", s)
	}
}

// String implements fmt.Stringer.
func (m Mode) String() string { return string(m) }
