package heuristics

import "github.com/abelzeko/ecms-bot/internal/entities"

const (
	acidicBelow = 3.0
	basicAbove  = 11.0
)

const (
	GuidanceAcidic   = "Highly acidic — neutralize with suitable base (e.g., dilute NaOH) and follow PPE guidelines."
	GuidanceBasic    = "Highly basic — neutralize with suitable acid (e.g., dilute HCl) and follow PPE guidelines."
	GuidanceStandard = "Near neutral — standard containment and disposal measures."
)

// EvaluateChemical returns neutralization guidance for a pH reading.
// Readings of exactly 3 or 11 get standard guidance.
func EvaluateChemical(phLevel float64) string {
	switch {
	case phLevel < acidicBelow:
		return GuidanceAcidic
	case phLevel > basicAbove:
		return GuidanceBasic
	default:
		return GuidanceStandard
	}
}

// ChemicalEvaluation wraps EvaluateChemical in the shared evaluator shape
func ChemicalEvaluation(phLevel float64) Evaluation {
	rec := EvaluateChemical(phLevel)
	label := "neutral"
	switch rec {
	case GuidanceAcidic:
		label = "acidic"
	case GuidanceBasic:
		label = "basic"
	}
	return Evaluation{
		Kind:           entities.KindChemical,
		Label:          label,
		Score:          phLevel,
		Recommendation: rec,
	}
}
