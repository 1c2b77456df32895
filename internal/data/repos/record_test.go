package repos

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/civicmesh/civicmesh-backend/internal/data/repos/testutil"
	"github.com/civicmesh/civicmesh-backend/internal/domain"
	"github.com/civicmesh/civicmesh-backend/internal/pkg/dbctx"
)

func TestRecordRepoSelectors(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewRecordRepo(tx, testutil.Logger(t))

	a := testutil.SeedRecord(t, ctx, tx, "a", domain.CategoryWeather, 39.0, -76.0)
	b := testutil.SeedRecord(t, ctx, tx, "b", domain.CategoryWeather, 39.1, -76.0)
	c := testutil.SeedRecord(t, ctx, tx, "c", domain.CategoryMarine, 39.2, -76.0)

	rows, err := repo.FetchRecords(dbc, RecordSelector{IDs: []uuid.UUID{a.ID, c.ID}})
	if err != nil || len(rows) != 2 {
		t.Fatalf("by ids: err=%v len=%d", err, len(rows))
	}

	rows, err = repo.FetchRecords(dbc, RecordSelector{Category: domain.CategoryWeather})
	if err != nil || len(rows) != 2 {
		t.Fatalf("by category: err=%v len=%d", err, len(rows))
	}

	// Explicit ids win over category.
	rows, err = repo.FetchRecords(dbc, RecordSelector{IDs: []uuid.UUID{c.ID}, Category: domain.CategoryWeather})
	if err != nil || len(rows) != 1 || rows[0].ID != c.ID {
		t.Fatalf("ids over category: err=%v rows=%v", err, rows)
	}

	rows, err = repo.FetchRecords(dbc, RecordSelector{Limit: 1})
	if err != nil || len(rows) != 1 {
		t.Fatalf("limit: err=%v len=%d", err, len(rows))
	}
	_ = b
}

func TestRecordRepoFetchCandidates(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewRecordRepo(tx, testutil.Logger(t))

	point := testutil.SeedRecord(t, ctx, tx, "point", domain.CategoryEnergy, 35.0, -101.0)
	geoPoint := testutil.SeedGeoPointRecord(t, ctx, tx, "buoy", domain.CategoryMarine, 35.01, -101.0)
	polygon := testutil.SeedPolygonRecord(t, ctx, tx, "boundary", domain.CategoryGeospatial)

	rows, err := repo.FetchCandidates(dbc, uuid.Nil, 100)
	if err != nil {
		t.Fatalf("FetchCandidates: %v", err)
	}
	// Column-located and GeoJSON-located records both qualify. The polygon
	// survives the query too; it is dropped later at index construction.
	byID := map[uuid.UUID]bool{}
	for _, row := range rows {
		byID[row.ID] = true
	}
	if !byID[point.ID] || !byID[geoPoint.ID] {
		t.Fatalf("candidate window missing located records: %v", byID)
	}
	_ = polygon

	rows, err = repo.FetchCandidates(dbc, point.ID, 100)
	if err != nil {
		t.Fatalf("FetchCandidates exclude: %v", err)
	}
	for _, row := range rows {
		if row.ID == point.ID {
			t.Fatalf("excluded record returned")
		}
	}
}

func TestGeoJSONPointRecordIsCandidate(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewRecordRepo(tx, testutil.Logger(t))

	subject := testutil.SeedRecord(t, ctx, tx, "station", domain.CategoryWeather, 39.30, -76.61)
	buoy := testutil.SeedGeoPointRecord(t, ctx, tx, "harbor buoy", domain.CategoryMarine, 39.31, -76.61)

	rows, err := repo.FetchCandidates(dbc, subject.ID, 100)
	if err != nil {
		t.Fatalf("FetchCandidates: %v", err)
	}
	found := false
	for _, row := range rows {
		if row.ID == buoy.ID {
			found = true
		}
	}
	if !found {
		t.Fatalf("GeoJSON-point record absent from candidate window")
	}
}
