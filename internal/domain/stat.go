package domain

import (
	"time"

	"github.com/google/uuid"
)

// EnrichmentStat is the per-(date, category) observability rollup. Upserts
// are additive: counters accumulate across batches within a day.
type EnrichmentStat struct {
	ID                   uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	StatDate             string    `gorm:"column:stat_date;not null;index:idx_stat_date_category,unique,priority:1" json:"stat_date"`
	Category             Category  `gorm:"column:category;not null;index:idx_stat_date_category,unique,priority:2" json:"category"`
	RecordsEnriched      int       `gorm:"column:records_enriched;not null;default:0" json:"records_enriched"`
	RelationshipsCreated int       `gorm:"column:relationships_created;not null;default:0" json:"relationships_created"`
	KnowledgeEdges       int       `gorm:"column:knowledge_edges;not null;default:0" json:"knowledge_edges"`
	FusedRecords         int       `gorm:"column:fused_records;not null;default:0" json:"fused_records"`
	CreatedAt            time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt            time.Time `gorm:"not null" json:"updated_at"`
}

func (EnrichmentStat) TableName() string { return "enrichment_stat" }

// StatDateOf formats a timestamp as the rollup's day key.
func StatDateOf(t time.Time) string { return t.UTC().Format("2006-01-02") }
