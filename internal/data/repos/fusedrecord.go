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

type FusedRecordRepo interface {
	// Upsert replaces slot contents for the base record (last-fusion-wins)
	// and bumps the version counter. Concurrent batches racing on the same
	// base record resolve last-writer-wins.
	Upsert(dbc dbctx.Context, fused *domain.FusedRecord) error
	GetByBaseRecordID(dbc dbctx.Context, baseID uuid.UUID) (*domain.FusedRecord, error)
}

type fusedRecordRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFusedRecordRepo(db *gorm.DB, baseLog *logger.Logger) FusedRecordRepo {
	return &fusedRecordRepo{db: db, log: baseLog.With("repo", "FusedRecordRepo")}
}

func (r *fusedRecordRepo) Upsert(dbc dbctx.Context, fused *domain.FusedRecord) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if fused == nil || fused.BaseRecordID == uuid.Nil {
		return nil
	}
	if fused.ID == uuid.Nil {
		fused.ID = uuid.New()
	}
	if fused.Version <= 0 {
		fused.Version = 1
	}

	now := time.Now().UTC()
	fused.UpdatedAt = now

	return transaction.WithContext(dbc.Ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "base_record_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"sources":    fused.Sources,
			"properties": fused.Properties,
			"version":    gorm.Expr("fused_record.version + 1"),
			"updated_at": now,
		}),
	}).Create(fused).Error
}

func (r *fusedRecordRepo) GetByBaseRecordID(dbc dbctx.Context, baseID uuid.UUID) (*domain.FusedRecord, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var result domain.FusedRecord
	err := transaction.WithContext(dbc.Ctx).
		Where("base_record_id = ?", baseID).
		First(&result).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}
