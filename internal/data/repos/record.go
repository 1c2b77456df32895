package repos

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/civicmesh/civicmesh-backend/internal/domain"
	"github.com/civicmesh/civicmesh-backend/internal/pkg/dbctx"
	"github.com/civicmesh/civicmesh-backend/internal/platform/logger"
)

// RecordSelector picks a batch working set: explicit ids win over category;
// an empty selector means "any records up to limit".
type RecordSelector struct {
	IDs      []uuid.UUID
	Category domain.Category
	Limit    int
}

type RecordRepo interface {
	FetchRecords(dbc dbctx.Context, sel RecordSelector) ([]*domain.Record, error)
	// FetchCandidates returns the bounded candidate window for proximity
	// scanning: records other than excludeID with lat/lon columns or any
	// geometry. Non-point geometry survives the query; the proximity index
	// skips it at construction.
	FetchCandidates(dbc dbctx.Context, excludeID uuid.UUID, limit int) ([]*domain.Record, error)
}

type recordRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRecordRepo(db *gorm.DB, baseLog *logger.Logger) RecordRepo {
	return &recordRepo{db: db, log: baseLog.With("repo", "RecordRepo")}
}

func (r *recordRepo) FetchRecords(dbc dbctx.Context, sel RecordSelector) ([]*domain.Record, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	limit := sel.Limit
	if limit <= 0 {
		limit = 100
	}

	q := transaction.WithContext(dbc.Ctx).Model(&domain.Record{})
	switch {
	case len(sel.IDs) > 0:
		q = q.Where("id IN ?", sel.IDs)
	case sel.Category != "":
		q = q.Where("category = ?", sel.Category)
	}

	var results []*domain.Record
	if err := q.Order("collected_at DESC").Limit(limit).Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *recordRepo) FetchCandidates(dbc dbctx.Context, excludeID uuid.UUID, limit int) ([]*domain.Record, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	if limit <= 0 {
		limit = 500
	}

	var results []*domain.Record
	q := transaction.WithContext(dbc.Ctx).
		Model(&domain.Record{}).
		Where("(lat IS NOT NULL AND lon IS NOT NULL) OR geometry IS NOT NULL")
	if excludeID != uuid.Nil {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Order("collected_at DESC").Limit(limit).Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
