package domain

import "time"

// Knowledge edge subject/object node kinds.
const (
	KnowledgeNodeRecord   = "record"
	KnowledgeNodeLocation = "location"
	KnowledgeNodeCategory = "category"
)

// Weights for knowledge facts: direct facts (location, category membership)
// are certain; cross-record facts are inferred from proximity.
const (
	KnowledgeWeightDirect   = 1.0
	KnowledgeWeightInferred = 0.8
)

// KnowledgeEvidence is one provenance entry on a knowledge edge. Evidence is
// append-only: repeated enrichment passes add entries, never overwrite.
type KnowledgeEvidence struct {
	Source         string    `json:"source"`
	ObservedAt     time.Time `json:"observed_at"`
	DistanceMeters float64   `json:"distance_meters,omitempty"`
}

// KnowledgeEdge is a subject-predicate-object semantic fact layered over
// records and categories. Persisted to the graph store, not the relational
// store.
type KnowledgeEdge struct {
	SubjectType string
	SubjectID   string
	Predicate   string
	ObjectType  string
	ObjectID    string
	Weight      float64
	Evidence    []KnowledgeEvidence
}
