package repos

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/civicmesh/civicmesh-backend/internal/domain"
	"github.com/civicmesh/civicmesh-backend/internal/pkg/dbctx"
	"github.com/civicmesh/civicmesh-backend/internal/platform/logger"
)

// StatDelta is one batch's contribution to a (date, category) rollup row.
type StatDelta struct {
	RecordsEnriched      int
	RelationshipsCreated int
	KnowledgeEdges       int
	FusedRecords         int
}

type EnrichmentStatRepo interface {
	// UpsertDailyStat adds the delta onto the (date, category) row, creating
	// it if absent. Counters only accumulate.
	UpsertDailyStat(dbc dbctx.Context, date string, category domain.Category, delta StatDelta) error
	GetByDate(dbc dbctx.Context, date string) ([]*domain.EnrichmentStat, error)
}

type enrichmentStatRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEnrichmentStatRepo(db *gorm.DB, baseLog *logger.Logger) EnrichmentStatRepo {
	return &enrichmentStatRepo{db: db, log: baseLog.With("repo", "EnrichmentStatRepo")}
}

func (r *enrichmentStatRepo) UpsertDailyStat(dbc dbctx.Context, date string, category domain.Category, delta StatDelta) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if date == "" || category == "" {
		return nil
	}

	now := time.Now().UTC()
	row := &domain.EnrichmentStat{
		ID:                   uuid.New(),
		StatDate:             date,
		Category:             category,
		RecordsEnriched:      delta.RecordsEnriched,
		RelationshipsCreated: delta.RelationshipsCreated,
		KnowledgeEdges:       delta.KnowledgeEdges,
		FusedRecords:         delta.FusedRecords,
		UpdatedAt:            now,
	}

	return transaction.WithContext(dbc.Ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "stat_date"}, {Name: "category"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"records_enriched":      gorm.Expr("enrichment_stat.records_enriched + excluded.records_enriched"),
			"relationships_created": gorm.Expr("enrichment_stat.relationships_created + excluded.relationships_created"),
			"knowledge_edges":       gorm.Expr("enrichment_stat.knowledge_edges + excluded.knowledge_edges"),
			"fused_records":         gorm.Expr("enrichment_stat.fused_records + excluded.fused_records"),
			"updated_at":            now,
		}),
	}).Create(row).Error
}

func (r *enrichmentStatRepo) GetByDate(dbc dbctx.Context, date string) ([]*domain.EnrichmentStat, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*domain.EnrichmentStat
	if date == "" {
		return results, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("stat_date = ?", date).
		Order("category ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
