package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// FusedRecord is the enriched per-subject view: one slot per contributing
// neighbor category, assembled from the closest candidate in that category.
// Upserted by base record id; re-running fusion replaces slot contents
// (last-fusion-wins) and bumps Version.
type FusedRecord struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	BaseRecordID uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex" json:"base_record_id"`
	Sources      datatypes.JSON `gorm:"column:sources;type:jsonb;not null" json:"sources"`
	Properties   datatypes.JSON `gorm:"column:properties;type:jsonb;not null" json:"properties"`
	Version      int            `gorm:"column:version;not null;default:1" json:"version"`
	CreatedAt    time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"not null" json:"updated_at"`
}

func (FusedRecord) TableName() string { return "fused_record" }
