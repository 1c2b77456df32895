package enrichment

import (
	"encoding/json"
	"sort"
	"time"

	"gorm.io/datatypes"

	"github.com/civicmesh/civicmesh-backend/internal/data/repos"
	"github.com/civicmesh/civicmesh-backend/internal/domain"
	"github.com/civicmesh/civicmesh-backend/internal/pkg/dbctx"
	"github.com/civicmesh/civicmesh-backend/internal/platform/logger"
)

// maxRelationshipFanOut caps edges per subject so a dense cluster can't blow
// up the edge table.
const maxRelationshipFanOut = 20

type relationshipSynthesizer struct {
	relationships repos.RelationshipRepo
	log           *logger.Logger
}

// Confidence scores closeness within the search radius, floored at
// MinConfidence so even far-edge matches keep a nonzero score.
func Confidence(distanceMeters, radiusMeters float64) float64 {
	if radiusMeters <= 0 {
		return domain.MinConfidence
	}
	c := 1 - distanceMeters/radiusMeters
	if c < domain.MinConfidence {
		return domain.MinConfidence
	}
	return c
}

// RelationshipTypeFor is "near" for same-category pairs, "affects" otherwise.
func RelationshipTypeFor(subject, target domain.Category) string {
	if subject == target {
		return domain.RelationshipNear
	}
	return domain.RelationshipAffects
}

// synthesize turns candidates into typed edges. Insert collisions count as
// already-existing, not created and not errors; storeErrs counts write
// failures, which degrade the record's contribution without aborting it.
func (s *relationshipSynthesizer) synthesize(dbc dbctx.Context, subject *domain.Record, candidates []Candidate, radiusMeters float64) (created int, storeErrs int) {
	if subject == nil || len(candidates) == 0 {
		return 0, 0
	}

	picked := make([]Candidate, len(candidates))
	copy(picked, candidates)
	sort.Slice(picked, func(i, j int) bool { return picked[i].DistanceMeters < picked[j].DistanceMeters })
	if len(picked) > maxRelationshipFanOut {
		picked = picked[:maxRelationshipFanOut]
	}

	for _, cand := range picked {
		meta, _ := json.Marshal(map[string]any{
			"radius_meters":  radiusMeters,
			"synthesized_at": time.Now().UTC().Format(time.RFC3339),
		})
		edge := &domain.RelationshipEdge{
			SourceRecordID:   subject.ID,
			TargetRecordID:   cand.Record.ID,
			RelationshipType: RelationshipTypeFor(subject.Category, cand.Record.Category),
			Confidence:       Confidence(cand.DistanceMeters, radiusMeters),
			DistanceMeters:   cand.DistanceMeters,
			Metadata:         datatypes.JSON(meta),
		}
		ok, err := s.relationships.Create(dbc, edge)
		if err != nil {
			storeErrs++
			s.log.Warn("relationship write failed (continuing)", "error", err,
				"source", subject.ID.String(), "target", cand.Record.ID.String())
			continue
		}
		if ok {
			created++
		}
	}
	return created, storeErrs
}
