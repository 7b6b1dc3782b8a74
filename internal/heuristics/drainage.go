package heuristics

import "github.com/abelzeko/ecms-bot/internal/entities"

const (
	obstructionPenalty = 50.0
	densityUnit        = 1000.0 // people per km²
	densityWeight      = 20.0
	highRiskAbove      = 50.0
	mediumRiskAbove    = 20.0
)

// DrainageResult is the outcome of the drainage risk scorer
type DrainageResult struct {
	RiskScore float64
	RiskLevel entities.RiskLevel
}

// Evaluation converts the result to the shared evaluator shape
func (r DrainageResult) Evaluation() Evaluation {
	return Evaluation{
		Kind:  entities.KindDrainage,
		Label: string(r.RiskLevel),
		Score: r.RiskScore,
	}
}

// ScoreDrainageRisk estimates waterborne disease risk near a drain.
// Negative densities are clamped to zero.
func ScoreDrainageRisk(flow entities.FlowStatus, populationDensity float64) DrainageResult {
	if populationDensity < 0 {
		populationDensity = 0
	}

	score := 0.0
	if flow == entities.FlowBlocked || flow == entities.FlowStagnant {
		score += obstructionPenalty
	}
	score += populationDensity / densityUnit * densityWeight

	return DrainageResult{RiskScore: score, RiskLevel: riskLevelFor(score)}
}

// riskLevelFor maps a score to its band; each band excludes its lower bound
func riskLevelFor(score float64) entities.RiskLevel {
	switch {
	case score > highRiskAbove:
		return entities.RiskHigh
	case score > mediumRiskAbove:
		return entities.RiskMedium
	default:
		return entities.RiskLow
	}
}
