// Package heuristics implements the deterministic evaluators behind each
// monitoring module. Every evaluator is a pure function of its input.
package heuristics

import "github.com/abelzeko/ecms-bot/internal/entities"

// Evaluation is the shape shared by all evaluator results, used wherever a
// caller handles results without caring which module produced them.
type Evaluation struct {
	Kind           entities.RecordKind
	Label          string
	Score          float64
	Recommendation string
}
