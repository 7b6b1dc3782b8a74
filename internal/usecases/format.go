package usecases

import (
	"fmt"
	"strings"

	"github.com/abelzeko/ecms-bot/internal/entities"
)

const timeLayout = "2006-01-02 15:04:05 MST"

// FormatCounts renders the dashboard metrics
func FormatCounts(c entities.Counts) string {
	var result strings.Builder
	result.WriteString("📊 ECMS dashboard\n\n")
	result.WriteString(fmt.Sprintf("🗑️ Waste items: %d\n", c.Waste))
	result.WriteString(fmt.Sprintf("🌊 Drainage reports: %d\n", c.Drainage))
	result.WriteString(fmt.Sprintf("🧪 Chemical records: %d\n", c.Chemical))
	result.WriteString(fmt.Sprintf("🌳 Forest records: %d", c.Forest))
	return result.String()
}

// FormatWasteSubmission renders a classified upload
func FormatWasteSubmission(s *WasteSubmission) string {
	var result strings.Builder
	result.WriteString(fmt.Sprintf("Predicted class: %s\n", s.Result.Label.Description()))
	result.WriteString(fmt.Sprintf("Confidence (heuristic score): %.2f\n", s.Result.Score))
	result.WriteString(fmt.Sprintf("Recommended action: %s\n", s.Result.RecommendedAction))
	result.WriteString(fmt.Sprintf("Saved as waste record #%d.", s.Observation.ID))
	return result.String()
}

// FormatDrainageSubmission renders a scored drainage report
func FormatDrainageSubmission(s *DrainageSubmission) string {
	return fmt.Sprintf("Predicted waterborne disease risk: %s (score %.1f)\nDrainage record #%d saved.",
		s.Result.RiskLevel, s.Result.RiskScore, s.Observation.ID)
}

// FormatChemicalSubmission renders a chemical recommendation
func FormatChemicalSubmission(o *entities.ChemicalObservation) string {
	return fmt.Sprintf("Recommendation: %s\nChemical record #%d saved.", o.Recommendation, o.ID)
}

// FormatForestSubmission renders a recorded vegetation index
func FormatForestSubmission(o *entities.ForestObservation) string {
	return fmt.Sprintf("Recorded NDVI %.2f — status: %s\nForest record #%d saved.", o.VegetationIndex, o.AlertLevel, o.ID)
}

// FormatRecords renders a list returned by Records as plain text lines
func FormatRecords(kind entities.RecordKind, records any) string {
	var lines []string
	switch rows := records.(type) {
	case []entities.WasteObservation:
		for _, r := range rows {
			lines = append(lines, fmt.Sprintf("#%d %s — %s — %s (%s)",
				r.ID, r.SourceReference, r.Classification.Description(), r.RecommendedAction, r.CreatedAt.Format(timeLayout)))
		}
	case []entities.DrainageObservation:
		for _, r := range rows {
			lines = append(lines, fmt.Sprintf("#%d %s — %s / %s (%s)",
				r.ID, r.Location, r.FlowStatus, r.RiskLevel, r.CreatedAt.Format(timeLayout)))
		}
	case []entities.ChemicalObservation:
		for _, r := range rows {
			lines = append(lines, fmt.Sprintf("#%d %s pH %.1f — %s (%s)",
				r.ID, r.ChemicalName, r.PHLevel, r.Recommendation, r.CreatedAt.Format(timeLayout)))
		}
	case []entities.ForestObservation:
		for _, r := range rows {
			lines = append(lines, fmt.Sprintf("#%d NDVI %.2f — %s (%s)",
				r.ID, r.VegetationIndex, r.AlertLevel, r.CreatedAt.Format(timeLayout)))
		}
	}

	if len(lines) == 0 {
		return fmt.Sprintf("No %s records yet.", kind)
	}
	return fmt.Sprintf("%s records (%d):\n\n%s", kind, len(lines), strings.Join(lines, "\n"))
}
