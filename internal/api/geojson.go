package api

import (
	"encoding/json"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/abelzeko/ecms-bot/internal/usecases"
)

// MarkersGeoJSON encodes drainage markers as a FeatureCollection of points
func MarkersGeoJSON(markers []usecases.Marker) ([]byte, error) {
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(markers))}
	for _, m := range markers {
		fc.Features = append(fc.Features, &geojson.Feature{
			Geometry: geom.NewPointFlat(geom.XY, []float64{m.Point.Lng, m.Point.Lat}).SetSRID(4326),
			Properties: map[string]interface{}{
				"id":          m.Observation.ID,
				"location":    m.Observation.Location,
				"flow_status": m.Observation.FlowStatus,
				"risk_level":  m.Observation.RiskLevel,
				"popup":       m.Popup(),
				"located":     m.Located,
				"created_at":  m.Observation.CreatedAt,
			},
		})
	}
	return json.Marshal(fc)
}
