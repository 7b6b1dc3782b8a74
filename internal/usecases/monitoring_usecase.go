// Package usecases contains the application's business logic
package usecases

import (
	"context"
	"errors"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/abelzeko/ecms-bot/internal/entities"
	"github.com/abelzeko/ecms-bot/internal/heuristics"
	"github.com/abelzeko/ecms-bot/internal/integration/openai"
	"github.com/abelzeko/ecms-bot/internal/metrics"
	"github.com/abelzeko/ecms-bot/internal/repository"
	"github.com/abelzeko/ecms-bot/internal/uploads"
)

// ErrUnknownKind is returned for record kinds outside entities.AllKinds
var ErrUnknownKind = eris.New("unknown record kind")

// MonitoringUseCase runs evaluations and persists their results
type MonitoringUseCase struct {
	repo          repository.ObservationRepository
	uploads       *uploads.Store
	openAIService openai.OpenAIService
	defaultCoord  heuristics.Coordinate
}

// NewMonitoringUseCase creates a new monitoring use case. openAIService may be
// nil, which disables free-text interpretation.
func NewMonitoringUseCase(repo repository.ObservationRepository, store *uploads.Store, openAIService openai.OpenAIService) *MonitoringUseCase {
	return &MonitoringUseCase{
		repo:          repo,
		uploads:       store,
		openAIService: openAIService,
		defaultCoord:  heuristics.DefaultCoordinate,
	}
}

// WithDefaultCoordinate sets where unparsable drainage locations are mapped
func (uc *MonitoringUseCase) WithDefaultCoordinate(c heuristics.Coordinate) *MonitoringUseCase {
	uc.defaultCoord = c
	return uc
}

// DefaultCoordinate returns the fallback map point
func (uc *MonitoringUseCase) DefaultCoordinate() heuristics.Coordinate {
	return uc.defaultCoord
}

// WasteSubmission is a stored waste observation with its heuristic result
type WasteSubmission struct {
	Observation entities.WasteObservation
	Result      heuristics.WasteResult
}

// DrainageInput is the raw drainage form
type DrainageInput struct {
	Location          string
	FlowStatus        entities.FlowStatus
	PopulationDensity float64 // people per km², not persisted
}

// DrainageSubmission is a stored drainage observation with its score
type DrainageSubmission struct {
	Observation entities.DrainageObservation
	Result      heuristics.DrainageResult
}

func (uc *MonitoringUseCase) storageFailed(kind entities.RecordKind, err error) error {
	var storageErr *repository.StorageError
	if errors.As(err, &storageErr) {
		metrics.ObserveStorageError(string(kind))
	}
	zap.L().Error("failed to save observation", zap.String("kind", string(kind)), zap.Error(err))
	return err
}

// SubmitWaste stores the uploaded image, classifies it and records the result
func (uc *MonitoringUseCase) SubmitWaste(ctx context.Context, filename string, data []byte) (*WasteSubmission, error) {
	ref, err := uc.uploads.Save(filename, data)
	if err != nil {
		return nil, err
	}

	result, err := heuristics.ClassifyWasteBytes(data)
	if err != nil {
		zap.L().Warn("uploaded file is not an image", zap.String("file", filename), zap.Error(err))
		if rmErr := os.Remove(ref); rmErr != nil {
			zap.L().Warn("failed to remove rejected upload", zap.String("ref", ref), zap.Error(rmErr))
		}
		return nil, err
	}

	obs := entities.WasteObservation{
		SourceReference:   ref,
		Classification:    result.Label,
		RecommendedAction: result.RecommendedAction,
	}
	id, err := uc.repo.AppendWaste(ctx, obs)
	if err != nil {
		return nil, uc.storageFailed(entities.KindWaste, err)
	}
	obs.ID = id

	metrics.ObserveEvaluation(string(entities.KindWaste), string(result.Label))
	zap.L().Info("waste observation saved",
		zap.Int64("id", id),
		zap.String("label", string(result.Label)),
		zap.Float64("green_ratio", result.Score),
	)
	return &WasteSubmission{Observation: obs, Result: result}, nil
}

// SubmitDrainage scores a drainage report and records it
func (uc *MonitoringUseCase) SubmitDrainage(ctx context.Context, in DrainageInput) (*DrainageSubmission, error) {
	if in.PopulationDensity < 0 {
		zap.L().Warn("negative population density clamped to zero", zap.Float64("density", in.PopulationDensity))
	}
	result := heuristics.ScoreDrainageRisk(in.FlowStatus, in.PopulationDensity)

	obs := entities.DrainageObservation{
		Location:   in.Location,
		FlowStatus: in.FlowStatus,
		RiskLevel:  result.RiskLevel,
	}
	id, err := uc.repo.AppendDrainage(ctx, obs)
	if err != nil {
		return nil, uc.storageFailed(entities.KindDrainage, err)
	}
	obs.ID = id

	metrics.ObserveEvaluation(string(entities.KindDrainage), string(result.RiskLevel))
	zap.L().Info("drainage observation saved",
		zap.Int64("id", id),
		zap.String("flow", string(in.FlowStatus)),
		zap.String("risk", string(result.RiskLevel)),
		zap.Float64("score", result.RiskScore),
	)
	return &DrainageSubmission{Observation: obs, Result: result}, nil
}

// SubmitChemical evaluates a pH reading and records it
func (uc *MonitoringUseCase) SubmitChemical(ctx context.Context, chemicalName string, phLevel float64) (*entities.ChemicalObservation, error) {
	ev := heuristics.ChemicalEvaluation(phLevel)

	obs := entities.ChemicalObservation{
		ChemicalName:   chemicalName,
		PHLevel:        phLevel,
		Recommendation: ev.Recommendation,
	}
	id, err := uc.repo.AppendChemical(ctx, obs)
	if err != nil {
		return nil, uc.storageFailed(entities.KindChemical, err)
	}
	obs.ID = id

	metrics.ObserveEvaluation(string(entities.KindChemical), ev.Label)
	zap.L().Info("chemical observation saved",
		zap.Int64("id", id),
		zap.String("chemical", chemicalName),
		zap.Float64("ph", phLevel),
		zap.String("band", ev.Label),
	)
	return &obs, nil
}

// SubmitForest classifies a vegetation index and records it
func (uc *MonitoringUseCase) SubmitForest(ctx context.Context, vegetationIndex float64) (*entities.ForestObservation, error) {
	status := heuristics.ClassifyVegetation(vegetationIndex)

	obs := entities.ForestObservation{
		VegetationIndex: vegetationIndex,
		AlertLevel:      status,
	}
	id, err := uc.repo.AppendForest(ctx, obs)
	if err != nil {
		return nil, uc.storageFailed(entities.KindForest, err)
	}
	obs.ID = id

	metrics.ObserveEvaluation(string(entities.KindForest), string(status))
	zap.L().Info("forest observation saved",
		zap.Int64("id", id),
		zap.Float64("ndvi", vegetationIndex),
		zap.String("status", string(status)),
	)
	return &obs, nil
}

// ListWaste returns all waste records
func (uc *MonitoringUseCase) ListWaste(ctx context.Context) ([]entities.WasteObservation, error) {
	return uc.repo.ListWaste(ctx)
}

// ListDrainage returns all drainage records
func (uc *MonitoringUseCase) ListDrainage(ctx context.Context) ([]entities.DrainageObservation, error) {
	return uc.repo.ListDrainage(ctx)
}

// ListChemical returns all chemical records
func (uc *MonitoringUseCase) ListChemical(ctx context.Context) ([]entities.ChemicalObservation, error) {
	return uc.repo.ListChemical(ctx)
}

// ListForest returns all forest records
func (uc *MonitoringUseCase) ListForest(ctx context.Context) ([]entities.ForestObservation, error) {
	return uc.repo.ListForest(ctx)
}

// Records returns the rows of kind as a slice of the matching entity type
func (uc *MonitoringUseCase) Records(ctx context.Context, kind entities.RecordKind) (any, error) {
	switch kind {
	case entities.KindWaste:
		return uc.ListWaste(ctx)
	case entities.KindDrainage:
		return uc.ListDrainage(ctx)
	case entities.KindChemical:
		return uc.ListChemical(ctx)
	case entities.KindForest:
		return uc.ListForest(ctx)
	}
	return nil, eris.Wrapf(ErrUnknownKind, "kind %q", kind)
}

// Counts returns the dashboard totals
func (uc *MonitoringUseCase) Counts(ctx context.Context) (entities.Counts, error) {
	return uc.repo.Counts(ctx)
}

// Marker is a drainage observation placed on the map
type Marker struct {
	Observation entities.DrainageObservation
	Point       heuristics.Coordinate
	Located     bool // false when the default coordinate was substituted
}

// Popup is the marker label, "<flow> / <risk>"
func (m Marker) Popup() string {
	return string(m.Observation.FlowStatus) + " / " + string(m.Observation.RiskLevel)
}

// DrainageMarkers places every drainage observation on the map
func (uc *MonitoringUseCase) DrainageMarkers(ctx context.Context) ([]Marker, error) {
	records, err := uc.repo.ListDrainage(ctx)
	if err != nil {
		return nil, err
	}

	markers := make([]Marker, 0, len(records))
	for _, r := range records {
		point, ok := heuristics.CoordinatesOrDefault(r.Location, uc.defaultCoord)
		if !ok {
			zap.L().Debug("drainage location is not a coordinate pair, using default",
				zap.Int64("id", r.ID), zap.String("location", r.Location))
		}
		markers = append(markers, Marker{Observation: r, Point: point, Located: ok})
	}
	return markers, nil
}
