package enrichment

import (
	"context"
	"fmt"
	"time"

	"github.com/civicmesh/civicmesh-backend/internal/data/graph"
	"github.com/civicmesh/civicmesh-backend/internal/domain"
	"github.com/civicmesh/civicmesh-backend/internal/platform/logger"
)

// Cross-category predicates. The mapping below is closed: any pair it does
// not name falls back to PredicateRelatedTo.
const (
	PredicateLocatedAt  = "locatedAt"
	PredicateBelongsTo  = "belongsTo"
	PredicateRegulated  = "regulatedBy"
	PredicateAffectedBy = "affectedBy"
	PredicateLocatedIn  = "locatedIn"
	PredicateCoversArea = "coversArea"
	PredicateIssues     = "issues"
	PredicateFunds      = "funds"
	PredicateServes     = "serves"
	PredicateFundedBy   = "fundedBy"
	PredicateImpacts    = "impacts"
	PredicateRelatedTo  = "relatedTo"
)

// maxKnowledgeCandidates bounds cross-category facts per subject.
const maxKnowledgeCandidates = 5

// CrossCategoryPredicate maps an ordered category pair to its semantic
// predicate.
func CrossCategoryPredicate(subject, target domain.Category) string {
	switch subject {
	case domain.CategoryWildlife:
		switch target {
		case domain.CategoryRegulations:
			return PredicateRegulated
		case domain.CategoryWeather:
			return PredicateAffectedBy
		case domain.CategoryGeospatial:
			return PredicateLocatedIn
		}
	case domain.CategoryWeather:
		if target == domain.CategoryGeospatial {
			return PredicateCoversArea
		}
	case domain.CategoryGovernment:
		switch target {
		case domain.CategoryRegulations:
			return PredicateIssues
		case domain.CategoryEconomic:
			return PredicateFunds
		}
	case domain.CategoryEconomic:
		switch target {
		case domain.CategoryDemographics:
			return PredicateServes
		case domain.CategoryGovernment:
			return PredicateFundedBy
		}
	case domain.CategoryMarine:
		switch target {
		case domain.CategoryWeather:
			return PredicateAffectedBy
		case domain.CategoryRegulations:
			return PredicateRegulated
		}
	case domain.CategoryHealth:
		switch target {
		case domain.CategoryDemographics:
			return PredicateServes
		case domain.CategoryGovernment:
			return PredicateRegulated
		}
	case domain.CategoryEnergy:
		switch target {
		case domain.CategoryRegulations:
			return PredicateRegulated
		case domain.CategoryEconomic:
			return PredicateImpacts
		}
	}
	return PredicateRelatedTo
}

// LocationBucket rounds coordinates to 4 decimal places (~11 m), the coarse
// bucket id used for locatedAt facts.
func LocationBucket(lat, lon float64) string {
	return fmt.Sprintf("%.4f,%.4f", lat, lon)
}

type knowledgeBuilder struct {
	store graph.KnowledgeStore
	log   *logger.Logger
}

// build emits the subject's two direct facts plus up to five cross-category
// facts. Each write is best-effort: one failure never blocks the others.
// A nil store means the graph collaborator is unconfigured; nothing is
// written and nothing fails.
func (b *knowledgeBuilder) build(ctx context.Context, subject *domain.Record, candidates []Candidate) (created int, storeErrs int) {
	if b.store == nil || subject == nil {
		return 0, 0
	}

	now := time.Now().UTC()
	subjectID := subject.ID.String()

	if lat, lon, ok := subject.Coordinates(); ok {
		edge := &domain.KnowledgeEdge{
			SubjectType: domain.KnowledgeNodeRecord,
			SubjectID:   subjectID,
			Predicate:   PredicateLocatedAt,
			ObjectType:  domain.KnowledgeNodeLocation,
			ObjectID:    LocationBucket(lat, lon),
			Weight:      domain.KnowledgeWeightDirect,
			Evidence:    []domain.KnowledgeEvidence{{Source: subject.SourceID, ObservedAt: now}},
		}
		if err := b.store.AddEdge(ctx, edge); err != nil {
			storeErrs++
			b.log.Warn("locatedAt edge write failed (continuing)", "error", err, "record", subjectID)
		} else {
			created++
		}
	}

	belongs := &domain.KnowledgeEdge{
		SubjectType: domain.KnowledgeNodeRecord,
		SubjectID:   subjectID,
		Predicate:   PredicateBelongsTo,
		ObjectType:  domain.KnowledgeNodeCategory,
		ObjectID:    string(subject.Category),
		Weight:      domain.KnowledgeWeightDirect,
		Evidence:    []domain.KnowledgeEvidence{{Source: subject.SourceID, ObservedAt: now}},
	}
	if err := b.store.AddEdge(ctx, belongs); err != nil {
		storeErrs++
		b.log.Warn("belongsTo edge write failed (continuing)", "error", err, "record", subjectID)
	} else {
		created++
	}

	emitted := 0
	for _, cand := range candidates {
		if emitted >= maxKnowledgeCandidates {
			break
		}
		if cand.Record.Category == subject.Category {
			continue
		}
		edge := &domain.KnowledgeEdge{
			SubjectType: domain.KnowledgeNodeRecord,
			SubjectID:   subjectID,
			Predicate:   CrossCategoryPredicate(subject.Category, cand.Record.Category),
			ObjectType:  domain.KnowledgeNodeRecord,
			ObjectID:    cand.Record.ID.String(),
			Weight:      domain.KnowledgeWeightInferred,
			Evidence: []domain.KnowledgeEvidence{{
				Source:         subject.SourceID,
				ObservedAt:     now,
				DistanceMeters: cand.DistanceMeters,
			}},
		}
		emitted++
		if err := b.store.AddEdge(ctx, edge); err != nil {
			storeErrs++
			b.log.Warn("cross-category edge write failed (continuing)", "error", err,
				"record", subjectID, "target", cand.Record.ID.String())
			continue
		}
		created++
	}

	return created, storeErrs
}
