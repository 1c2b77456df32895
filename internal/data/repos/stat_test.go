package repos

import (
	"context"
	"testing"

	"github.com/civicmesh/civicmesh-backend/internal/data/repos/testutil"
	"github.com/civicmesh/civicmesh-backend/internal/domain"
	"github.com/civicmesh/civicmesh-backend/internal/pkg/dbctx"
)

func TestEnrichmentStatAdditiveUpsert(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	repo := NewEnrichmentStatRepo(tx, testutil.Logger(t))

	date := "2026-08-28"
	if err := repo.UpsertDailyStat(dbc, date, domain.CategoryMarine, StatDelta{
		RecordsEnriched: 3, RelationshipsCreated: 7, KnowledgeEdges: 5, FusedRecords: 2,
	}); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if err := repo.UpsertDailyStat(dbc, date, domain.CategoryMarine, StatDelta{
		RecordsEnriched: 1, RelationshipsCreated: 2, KnowledgeEdges: 1, FusedRecords: 1,
	}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	// A different category gets its own row.
	if err := repo.UpsertDailyStat(dbc, date, domain.CategoryEnergy, StatDelta{RecordsEnriched: 1}); err != nil {
		t.Fatalf("energy upsert: %v", err)
	}

	rows, err := repo.GetByDate(dbc, date)
	if err != nil {
		t.Fatalf("GetByDate: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("row count = %d, want 2", len(rows))
	}

	var marine *domain.EnrichmentStat
	for _, row := range rows {
		if row.Category == domain.CategoryMarine {
			marine = row
		}
	}
	if marine == nil {
		t.Fatalf("marine row missing")
	}
	if marine.RecordsEnriched != 4 || marine.RelationshipsCreated != 9 ||
		marine.KnowledgeEdges != 6 || marine.FusedRecords != 3 {
		t.Fatalf("counters not additive: %+v", marine)
	}
}

func TestEnrichmentStatIgnoresEmptyKey(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	repo := NewEnrichmentStatRepo(tx, testutil.Logger(t))

	if err := repo.UpsertDailyStat(dbc, "", domain.CategoryMarine, StatDelta{RecordsEnriched: 1}); err != nil {
		t.Fatalf("empty date should be a no-op: %v", err)
	}
	rows, err := repo.GetByDate(dbc, "")
	if err != nil || len(rows) != 0 {
		t.Fatalf("rows=%d err=%v", len(rows), err)
	}
}
