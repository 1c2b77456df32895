package enrichment

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/civicmesh/civicmesh-backend/internal/data/repos"
	"github.com/civicmesh/civicmesh-backend/internal/data/repos/testutil"
	"github.com/civicmesh/civicmesh-backend/internal/domain"
	"github.com/civicmesh/civicmesh-backend/internal/pkg/dbctx"
)

func TestFusionSlotTable(t *testing.T) {
	inTable := map[domain.Category]string{
		domain.CategoryWeather:      "weather",
		domain.CategoryDemographics: "demographics",
		domain.CategoryRegulations:  "regulations",
		domain.CategoryEconomic:     "economic",
		domain.CategoryGovernment:   "government",
	}
	for _, category := range domain.AllCategories() {
		slot, ok := fusionSlot(category)
		want, wantOK := inTable[category]
		if ok != wantOK || slot != want {
			t.Fatalf("fusionSlot(%s) = (%q, %v), want (%q, %v)", category, slot, ok, want, wantOK)
		}
	}
}

func TestFuseOutOfTableCategoriesWriteNothing(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	subject := testutil.SeedRecord(t, ctx, tx, "trailhead", domain.CategoryRecreation, 44.0, -110.0)
	wildlife := testutil.SeedRecord(t, ctx, tx, "elk herd", domain.CategoryWildlife, 44.01, -110.0)
	imagery := testutil.SeedRecord(t, ctx, tx, "aerial tile", domain.CategoryImagery, 44.02, -110.0)

	fusedRepo := repos.NewFusedRecordRepo(tx, testutil.Logger(t))
	fuser := &propertyFuser{fused: fusedRepo, log: testutil.Logger(t)}

	fused, err := fuser.fuse(dbc, subject, []Candidate{
		{Record: wildlife, DistanceMeters: 1100},
		{Record: imagery, DistanceMeters: 2200},
	})
	if err != nil {
		t.Fatalf("fuse: %v", err)
	}
	if fused {
		t.Fatalf("fuse returned true with only out-of-table categories")
	}

	row, err := fusedRepo.GetByBaseRecordID(dbc, subject.ID)
	if err != nil {
		t.Fatalf("GetByBaseRecordID: %v", err)
	}
	if row != nil {
		t.Fatalf("fused record created despite zero contributing slots")
	}
}

func TestFuseClosestRepresentativeWins(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	subject := testutil.SeedRecord(t, ctx, tx, "harbor", domain.CategoryMarine, 39.25, -76.58)
	nearStation := testutil.SeedRecordWithProps(t, ctx, tx, "inner station", domain.CategoryWeather, 39.26, -76.58,
		map[string]any{"conditions": "fog", "temperature": 12.5})
	farStation := testutil.SeedRecordWithProps(t, ctx, tx, "outer station", domain.CategoryWeather, 39.40, -76.58,
		map[string]any{"conditions": "clear", "temperature": 18.0})

	fusedRepo := repos.NewFusedRecordRepo(tx, testutil.Logger(t))
	fuser := &propertyFuser{fused: fusedRepo, log: testutil.Logger(t)}

	fused, err := fuser.fuse(dbc, subject, []Candidate{
		{Record: farStation, DistanceMeters: 16700},
		{Record: nearStation, DistanceMeters: 1100},
	})
	if err != nil {
		t.Fatalf("fuse: %v", err)
	}
	if !fused {
		t.Fatalf("fuse returned false, want true")
	}

	row, err := fusedRepo.GetByBaseRecordID(dbc, subject.ID)
	if err != nil || row == nil {
		t.Fatalf("GetByBaseRecordID: row=%v err=%v", row, err)
	}

	var props map[string]map[string]any
	if err := json.Unmarshal(row.Properties, &props); err != nil {
		t.Fatalf("unmarshal properties: %v", err)
	}
	weather, ok := props["weather"]
	if !ok {
		t.Fatalf("weather slot missing: %v", props)
	}
	if weather["conditions"] != "fog" {
		t.Fatalf("closest representative not selected: %v", weather)
	}

	var sources []string
	if err := json.Unmarshal(row.Sources, &sources); err != nil {
		t.Fatalf("unmarshal sources: %v", err)
	}
	if len(sources) != 1 || sources[0] != "weather" {
		t.Fatalf("sources = %v, want [weather]", sources)
	}
}

func TestFuseUpsertReplacesSlots(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	subject := testutil.SeedRecord(t, ctx, tx, "district office", domain.CategoryGovernment, 39.30, -76.61)
	oldEcon := testutil.SeedRecordWithProps(t, ctx, tx, "old indicator", domain.CategoryEconomic, 39.32, -76.61,
		map[string]any{"indicator": "gdp", "value": 1.0, "trend": "flat"})
	newEcon := testutil.SeedRecordWithProps(t, ctx, tx, "fresh indicator", domain.CategoryEconomic, 39.305, -76.61,
		map[string]any{"indicator": "employment", "value": 2.0, "trend": "up"})

	fusedRepo := repos.NewFusedRecordRepo(tx, testutil.Logger(t))
	fuser := &propertyFuser{fused: fusedRepo, log: testutil.Logger(t)}

	if _, err := fuser.fuse(dbc, subject, []Candidate{{Record: oldEcon, DistanceMeters: 2200}}); err != nil {
		t.Fatalf("first fuse: %v", err)
	}
	first, err := fusedRepo.GetByBaseRecordID(dbc, subject.ID)
	if err != nil || first == nil {
		t.Fatalf("first row: %v err=%v", first, err)
	}

	// A later pass with nearer evidence fully replaces the slot.
	if _, err := fuser.fuse(dbc, subject, []Candidate{{Record: newEcon, DistanceMeters: 550}}); err != nil {
		t.Fatalf("second fuse: %v", err)
	}
	second, err := fusedRepo.GetByBaseRecordID(dbc, subject.ID)
	if err != nil || second == nil {
		t.Fatalf("second row: %v err=%v", second, err)
	}

	if second.ID != first.ID {
		t.Fatalf("upsert created a second row instead of replacing")
	}
	if second.Version <= first.Version {
		t.Fatalf("version not bumped: %d -> %d", first.Version, second.Version)
	}

	var props map[string]map[string]any
	if err := json.Unmarshal(second.Properties, &props); err != nil {
		t.Fatalf("unmarshal properties: %v", err)
	}
	if props["economic"]["indicator"] != "employment" {
		t.Fatalf("slot not replaced: %v", props["economic"])
	}
}

func TestFuseIdempotentContents(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	subject := testutil.SeedRecord(t, ctx, tx, "clinic", domain.CategoryHealth, 41.0, -74.0)
	demo := testutil.SeedRecordWithProps(t, ctx, tx, "tract", domain.CategoryDemographics, 41.01, -74.0,
		map[string]any{"population": 5400, "median_income": 61000, "area_name": "Tract 12"})

	fusedRepo := repos.NewFusedRecordRepo(tx, testutil.Logger(t))
	fuser := &propertyFuser{fused: fusedRepo, log: testutil.Logger(t)}

	candidates := []Candidate{{Record: demo, DistanceMeters: 1100}}
	if _, err := fuser.fuse(dbc, subject, candidates); err != nil {
		t.Fatalf("first fuse: %v", err)
	}
	first, _ := fusedRepo.GetByBaseRecordID(dbc, subject.ID)

	if _, err := fuser.fuse(dbc, subject, candidates); err != nil {
		t.Fatalf("second fuse: %v", err)
	}
	second, _ := fusedRepo.GetByBaseRecordID(dbc, subject.ID)

	if string(first.Properties) != string(second.Properties) {
		t.Fatalf("fused contents changed across identical passes:\n%s\n%s", first.Properties, second.Properties)
	}
	if string(first.Sources) != string(second.Sources) {
		t.Fatalf("fused sources changed across identical passes")
	}
}
