// Package entities contains the core domain objects for the ECMS monitoring application
package entities

import (
	"time"
)

// RecordKind identifies one of the four independent observation tables
type RecordKind string

const (
	KindWaste    RecordKind = "waste"
	KindDrainage RecordKind = "drainage"
	KindChemical RecordKind = "chemical"
	KindForest   RecordKind = "forest"
)

// AllKinds lists every record kind in dashboard order
var AllKinds = []RecordKind{KindWaste, KindDrainage, KindChemical, KindForest}

// ParseRecordKind converts a user supplied name into a RecordKind
func ParseRecordKind(s string) (RecordKind, bool) {
	for _, k := range AllKinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// WasteClass is the binary outcome of the image color heuristic
type WasteClass string

const (
	Biodegradable    WasteClass = "Biodegradable"
	NonBiodegradable WasteClass = "NonBiodegradable"
)

// Description returns the long label shown next to a classification
func (c WasteClass) Description() string {
	switch c {
	case Biodegradable:
		return "biodegradable (plant/organic likely)"
	case NonBiodegradable:
		return "non-biodegradable (plastic/metal/glass likely)"
	}
	return string(c)
}

// FlowStatus is the observed state of a drain
type FlowStatus string

const (
	FlowNormal   FlowStatus = "normal"
	FlowSlow     FlowStatus = "slow"
	FlowBlocked  FlowStatus = "blocked"
	FlowStagnant FlowStatus = "stagnant"
)

// FlowStatuses lists the accepted flow states in form order
var FlowStatuses = []FlowStatus{FlowNormal, FlowSlow, FlowBlocked, FlowStagnant}

// ParseFlowStatus converts form input into a FlowStatus
func ParseFlowStatus(s string) (FlowStatus, bool) {
	for _, f := range FlowStatuses {
		if string(f) == s {
			return f, true
		}
	}
	return "", false
}

// RiskLevel is the three-level waterborne disease risk
type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

// AlertLevel is the vegetation health status
type AlertLevel string

const (
	Healthy  AlertLevel = "Healthy"
	AtRisk   AlertLevel = "At Risk"
	Degraded AlertLevel = "Degraded"
)

// WasteObservation is one classified waste image
type WasteObservation struct {
	ID                int64      `json:"id"`
	SourceReference   string     `json:"source_reference"` // Path of the stored image
	Classification    WasteClass `json:"classification"`   // Outcome of the green pixel heuristic
	RecommendedAction string     `json:"recommended_action"`
	CreatedAt         time.Time  `json:"created_at"`
}

// DrainageObservation is one drainage report. Population density is not stored.
type DrainageObservation struct {
	ID         int64      `json:"id"`
	Location   string     `json:"location"` // Free-form, may or may not be "lat,lng"
	FlowStatus FlowStatus `json:"flow_status"`
	RiskLevel  RiskLevel  `json:"risk_level"`
	CreatedAt  time.Time  `json:"created_at"`
}

// ChemicalObservation is one pH reading with its handling recommendation
type ChemicalObservation struct {
	ID             int64     `json:"id"`
	ChemicalName   string    `json:"chemical_name"`
	PHLevel        float64   `json:"ph_level"`
	Recommendation string    `json:"recommendation"`
	CreatedAt      time.Time `json:"created_at"`
}

// ForestObservation is one vegetation index reading
type ForestObservation struct {
	ID              int64      `json:"id"`
	VegetationIndex float64    `json:"vegetation_index"` // NDVI, conventionally -1..1
	AlertLevel      AlertLevel `json:"alert_level"`
	CreatedAt       time.Time  `json:"created_at"`
}

// Counts holds the number of stored rows per record kind
type Counts struct {
	Waste    int `json:"waste"`
	Drainage int `json:"drainage"`
	Chemical int `json:"chemical"`
	Forest   int `json:"forest"`
}

// Of returns the count for a single kind
func (c Counts) Of(kind RecordKind) int {
	switch kind {
	case KindWaste:
		return c.Waste
	case KindDrainage:
		return c.Drainage
	case KindChemical:
		return c.Chemical
	case KindForest:
		return c.Forest
	}
	return 0
}
