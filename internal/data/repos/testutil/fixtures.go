package testutil

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/civicmesh/civicmesh-backend/internal/domain"
)

// SeedRecord inserts a point record at (lat, lon).
func SeedRecord(tb testing.TB, ctx context.Context, tx *gorm.DB, name string, category domain.Category, lat, lon float64) *domain.Record {
	tb.Helper()
	r := &domain.Record{
		ID:          uuid.New(),
		Name:        name,
		Category:    category,
		SourceID:    "test-source",
		Lat:         &lat,
		Lon:         &lon,
		Properties:  datatypes.JSON([]byte(`{}`)),
		CollectedAt: time.Now().UTC(),
	}
	if err := tx.WithContext(ctx).Create(r).Error; err != nil {
		tb.Fatalf("seed record: %v", err)
	}
	return r
}

// SeedRecordWithProps inserts a point record with an explicit property bag.
func SeedRecordWithProps(tb testing.TB, ctx context.Context, tx *gorm.DB, name string, category domain.Category, lat, lon float64, props map[string]any) *domain.Record {
	tb.Helper()
	r := SeedRecord(tb, ctx, tx, name, category, lat, lon)
	if len(props) > 0 {
		raw, err := json.Marshal(props)
		if err != nil {
			tb.Fatalf("marshal props: %v", err)
		}
		r.Properties = datatypes.JSON(raw)
		if err := tx.WithContext(ctx).Model(r).Update("properties", r.Properties).Error; err != nil {
			tb.Fatalf("update props: %v", err)
		}
	}
	return r
}

// SeedGeoPointRecord inserts a record whose location exists only as GeoJSON
// Point geometry, with no lat/lon columns.
func SeedGeoPointRecord(tb testing.TB, ctx context.Context, tx *gorm.DB, name string, category domain.Category, lat, lon float64) *domain.Record {
	tb.Helper()
	geom, err := json.Marshal(map[string]any{
		"type":        "Point",
		"coordinates": []float64{lon, lat},
	})
	if err != nil {
		tb.Fatalf("marshal point geometry: %v", err)
	}
	r := &domain.Record{
		ID:          uuid.New(),
		Name:        name,
		Category:    category,
		SourceID:    "test-source",
		Geometry:    datatypes.JSON(geom),
		Properties:  datatypes.JSON([]byte(`{}`)),
		CollectedAt: time.Now().UTC(),
	}
	if err := tx.WithContext(ctx).Create(r).Error; err != nil {
		tb.Fatalf("seed geo point record: %v", err)
	}
	return r
}

// SeedPolygonRecord inserts a record with polygon geometry and no point
// coordinates; it must not participate in proximity joins.
func SeedPolygonRecord(tb testing.TB, ctx context.Context, tx *gorm.DB, name string, category domain.Category) *domain.Record {
	tb.Helper()
	r := &domain.Record{
		ID:          uuid.New(),
		Name:        name,
		Category:    category,
		SourceID:    "test-source",
		Geometry:    datatypes.JSON([]byte(`{"type":"Polygon","coordinates":[]}`)),
		Properties:  datatypes.JSON([]byte(`{}`)),
		CollectedAt: time.Now().UTC(),
	}
	if err := tx.WithContext(ctx).Create(r).Error; err != nil {
		tb.Fatalf("seed polygon record: %v", err)
	}
	return r
}
