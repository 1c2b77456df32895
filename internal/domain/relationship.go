package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Relationship types emitted by the synthesizer.
const (
	RelationshipNear    = "near"
	RelationshipAffects = "affects"
)

// MinConfidence is the floor for spatial confidence scores.
const MinConfidence = 0.1

// RelationshipEdge is a directed, typed, confidence-scored link between two
// records. At most one edge exists per (source, target, type); inserts that
// collide are absorbed, not errors.
type RelationshipEdge struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	SourceRecordID   uuid.UUID      `gorm:"type:uuid;not null;index:idx_relationship_triple,unique,priority:1" json:"source_record_id"`
	TargetRecordID   uuid.UUID      `gorm:"type:uuid;not null;index:idx_relationship_triple,unique,priority:2" json:"target_record_id"`
	RelationshipType string         `gorm:"column:relationship_type;not null;index:idx_relationship_triple,unique,priority:3" json:"relationship_type"`
	Confidence       float64        `gorm:"column:confidence;not null" json:"confidence"`
	DistanceMeters   float64        `gorm:"column:distance_meters;not null" json:"distance_meters"`
	Metadata         datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata,omitempty"`
	CreatedAt        time.Time      `gorm:"not null" json:"created_at"`
}

func (RelationshipEdge) TableName() string { return "relationship_edge" }
