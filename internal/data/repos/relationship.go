package repos

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/civicmesh/civicmesh-backend/internal/domain"
	"github.com/civicmesh/civicmesh-backend/internal/pkg/dbctx"
	"github.com/civicmesh/civicmesh-backend/internal/platform/logger"
)

type RelationshipRepo interface {
	// Create inserts the edge unless the (source, target, type) triple already
	// exists. Returns created=false on collision; collisions are not errors.
	Create(dbc dbctx.Context, edge *domain.RelationshipEdge) (created bool, err error)
	GetBySourceID(dbc dbctx.Context, sourceID uuid.UUID) ([]*domain.RelationshipEdge, error)
}

type relationshipRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRelationshipRepo(db *gorm.DB, baseLog *logger.Logger) RelationshipRepo {
	return &relationshipRepo{db: db, log: baseLog.With("repo", "RelationshipRepo")}
}

func (r *relationshipRepo) Create(dbc dbctx.Context, edge *domain.RelationshipEdge) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if edge == nil {
		return false, nil
	}
	if edge.ID == uuid.Nil {
		edge.ID = uuid.New()
	}

	res := transaction.WithContext(dbc.Ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "source_record_id"},
			{Name: "target_record_id"},
			{Name: "relationship_type"},
		},
		DoNothing: true,
	}).Create(edge)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *relationshipRepo) GetBySourceID(dbc dbctx.Context, sourceID uuid.UUID) ([]*domain.RelationshipEdge, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*domain.RelationshipEdge
	if sourceID == uuid.Nil {
		return results, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("source_record_id = ?", sourceID).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
