package heuristics

import "github.com/abelzeko/ecms-bot/internal/entities"

const healthyAbove = 0.3

// ClassifyVegetation maps an NDVI reading to a forest health status
func ClassifyVegetation(vegetationIndex float64) entities.AlertLevel {
	switch {
	case vegetationIndex > healthyAbove:
		return entities.Healthy
	case vegetationIndex > 0:
		return entities.AtRisk
	default:
		return entities.Degraded
	}
}

// VegetationEvaluation wraps ClassifyVegetation in the shared evaluator shape
func VegetationEvaluation(vegetationIndex float64) Evaluation {
	return Evaluation{
		Kind:  entities.KindForest,
		Label: string(ClassifyVegetation(vegetationIndex)),
		Score: vegetationIndex,
	}
}
