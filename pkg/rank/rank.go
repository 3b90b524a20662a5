// Package rank derives impact tiers from registry scores and maps ranking
// modes to the score weights sent to the npm search endpoint.
//
// # Impact tiers
//
// [Classify] is a pure, total function over quality and popularity scores in
// [0,1]. Every comparison is strict: a quality of exactly 0.8 stays at
// [TierEngineer].
//
//	rank.Classify(0.81, 0.11) // Senior Engineer
//	rank.Classify(0.95, 0.35) // Senior Architect, TopTier
//
// # Ranking modes
//
// [Mode] names one of four weighting presets. [WeightsFor] returns the
// quality/popularity/maintenance triple for a mode; registry clients only
// forward the numbers.
package rank

// Tier thresholds. Both bounds of a tier must be exceeded strictly.
const (
	SeniorQualityMin       = 0.8
	SeniorPopularityMin    = 0.1
	ArchitectQualityMin    = 0.9
	ArchitectPopularityMin = 0.3
)

// Tier names.
const (
	TierEngineer        = "Engineer"
	TierSeniorEngineer  = "Senior Engineer"
	TierSeniorArchitect = "Senior Architect"
)

// Impact is the derived seniority label for a candidate.
type Impact struct {
	Tier    string `json:"tier"`
	TopTier bool   `json:"top_tier"`
}

// Classify maps a quality/popularity pair to an [Impact].
func Classify(quality, popularity float64) Impact {
	impact := Impact{Tier: TierEngineer}
	if quality > SeniorQualityMin && popularity > SeniorPopularityMin {
		impact.Tier = TierSeniorEngineer
	}
	// The architect bar is checked on its own so it overrides the senior tier.
	if quality > ArchitectQualityMin && popularity > ArchitectPopularityMin {
		impact.Tier = TierSeniorArchitect
		impact.TopTier = true
	}
	return impact
}
