package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Record is one ingested, geotagged unit of source data. Records are written
// by ingestion and are read-only input to the fusion engine.
type Record struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name     string    `gorm:"column:name;not null" json:"name"`
	Category Category  `gorm:"column:category;not null;index" json:"category"`
	SourceID string    `gorm:"column:source_id;index" json:"source_id"`
	// Point records carry lat/lon directly; polygon records carry GeoJSON in
	// Geometry and do not participate in the proximity join.
	Lat         *float64       `gorm:"column:lat" json:"lat,omitempty"`
	Lon         *float64       `gorm:"column:lon" json:"lon,omitempty"`
	Geometry    datatypes.JSON `gorm:"column:geometry;type:jsonb" json:"geometry,omitempty"`
	Properties  datatypes.JSON `gorm:"column:properties;type:jsonb" json:"properties,omitempty"`
	CollectedAt time.Time      `gorm:"column:collected_at;not null" json:"collected_at"`
	CreatedAt   time.Time      `gorm:"not null" json:"created_at"`
}

func (Record) TableName() string { return "record" }

type geoJSONGeometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

// Coordinates resolves the record's point location. The lat/lon columns win;
// a GeoJSON Point geometry is the fallback. ok is false for polygons and for
// records with no resolvable location.
func (r *Record) Coordinates() (lat, lon float64, ok bool) {
	if r == nil {
		return 0, 0, false
	}
	if r.Lat != nil && r.Lon != nil {
		return *r.Lat, *r.Lon, true
	}
	if len(r.Geometry) == 0 {
		return 0, 0, false
	}
	var g geoJSONGeometry
	if err := json.Unmarshal(r.Geometry, &g); err != nil {
		return 0, 0, false
	}
	if g.Type != "Point" || len(g.Coordinates) < 2 {
		return 0, 0, false
	}
	// GeoJSON order is [lon, lat].
	return g.Coordinates[1], g.Coordinates[0], true
}

// PropertyMap decodes the open key/value bag; nil when absent or malformed.
func (r *Record) PropertyMap() map[string]any {
	if r == nil || len(r.Properties) == 0 {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(r.Properties, &m); err != nil {
		return nil
	}
	return m
}
