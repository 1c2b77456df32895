package enrichment

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/civicmesh/civicmesh-backend/internal/data/repos/testutil"
	"github.com/civicmesh/civicmesh-backend/internal/domain"
)

type fakeKnowledgeStore struct {
	mu     sync.Mutex
	edges  []*domain.KnowledgeEdge
	failOn func(edge *domain.KnowledgeEdge) bool
}

func (f *fakeKnowledgeStore) AddEdge(_ context.Context, edge *domain.KnowledgeEdge) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn != nil && f.failOn(edge) {
		return fmt.Errorf("forced store failure")
	}
	f.edges = append(f.edges, edge)
	return nil
}

func (f *fakeKnowledgeStore) byPredicate(predicate string) []*domain.KnowledgeEdge {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.KnowledgeEdge
	for _, e := range f.edges {
		if e.Predicate == predicate {
			out = append(out, e)
		}
	}
	return out
}

var knownPredicates = map[string]bool{
	PredicateRegulated:  true,
	PredicateAffectedBy: true,
	PredicateLocatedIn:  true,
	PredicateCoversArea: true,
	PredicateIssues:     true,
	PredicateFunds:      true,
	PredicateServes:     true,
	PredicateFundedBy:   true,
	PredicateImpacts:    true,
	PredicateRelatedTo:  true,
}

func TestCrossCategoryPredicateClosure(t *testing.T) {
	// Every ordered pair must resolve to a table predicate or relatedTo.
	for _, subject := range domain.AllCategories() {
		for _, target := range domain.AllCategories() {
			p := CrossCategoryPredicate(subject, target)
			if !knownPredicates[p] {
				t.Fatalf("predicate %q for %s->%s is outside the table", p, subject, target)
			}
		}
	}

	cases := []struct {
		subject, target domain.Category
		want            string
	}{
		{domain.CategoryWildlife, domain.CategoryRegulations, PredicateRegulated},
		{domain.CategoryWildlife, domain.CategoryWeather, PredicateAffectedBy},
		{domain.CategoryWildlife, domain.CategoryGeospatial, PredicateLocatedIn},
		{domain.CategoryWeather, domain.CategoryGeospatial, PredicateCoversArea},
		{domain.CategoryGovernment, domain.CategoryRegulations, PredicateIssues},
		{domain.CategoryGovernment, domain.CategoryEconomic, PredicateFunds},
		{domain.CategoryEconomic, domain.CategoryDemographics, PredicateServes},
		{domain.CategoryEconomic, domain.CategoryGovernment, PredicateFundedBy},
		{domain.CategoryMarine, domain.CategoryWeather, PredicateAffectedBy},
		{domain.CategoryMarine, domain.CategoryRegulations, PredicateRegulated},
		{domain.CategoryHealth, domain.CategoryDemographics, PredicateServes},
		{domain.CategoryHealth, domain.CategoryGovernment, PredicateRegulated},
		{domain.CategoryEnergy, domain.CategoryRegulations, PredicateRegulated},
		{domain.CategoryEnergy, domain.CategoryEconomic, PredicateImpacts},
		{domain.CategoryRecreation, domain.CategoryImagery, PredicateRelatedTo},
	}
	for _, tc := range cases {
		if got := CrossCategoryPredicate(tc.subject, tc.target); got != tc.want {
			t.Fatalf("%s->%s = %q, want %q", tc.subject, tc.target, got, tc.want)
		}
	}
}

func TestLocationBucket(t *testing.T) {
	if got := LocationBucket(39.30001, -76.61004); got != "39.3000,-76.6100" {
		t.Fatalf("LocationBucket = %q", got)
	}
}

func TestBuildEmitsDirectAndCrossCategoryFacts(t *testing.T) {
	store := &fakeKnowledgeStore{}
	builder := &knowledgeBuilder{store: store, log: testutil.Logger(t)}

	subject := pointRecord("city hall", domain.CategoryGovernment, 39.30, -76.61)
	econ := pointRecord("census", domain.CategoryEconomic, 39.318, -76.61)
	sameCat := pointRecord("county office", domain.CategoryGovernment, 39.31, -76.61)

	created, errs := builder.build(context.Background(), subject, []Candidate{
		{Record: econ, DistanceMeters: 2001},
		{Record: sameCat, DistanceMeters: 1100},
	})
	if errs != 0 {
		t.Fatalf("store errors: %d", errs)
	}
	// locatedAt + belongsTo + one cross-category (same-category neighbor skipped).
	if created != 3 {
		t.Fatalf("created = %d, want 3", created)
	}

	located := store.byPredicate(PredicateLocatedAt)
	if len(located) != 1 || located[0].ObjectID != "39.3000,-76.6100" {
		t.Fatalf("locatedAt fact wrong: %+v", located)
	}
	if located[0].Weight != domain.KnowledgeWeightDirect {
		t.Fatalf("locatedAt weight = %.1f, want %.1f", located[0].Weight, domain.KnowledgeWeightDirect)
	}

	belongs := store.byPredicate(PredicateBelongsTo)
	if len(belongs) != 1 || belongs[0].ObjectID != string(domain.CategoryGovernment) {
		t.Fatalf("belongsTo fact wrong: %+v", belongs)
	}

	funds := store.byPredicate(PredicateFunds)
	if len(funds) != 1 {
		t.Fatalf("funds edge count = %d, want 1", len(funds))
	}
	if funds[0].Weight != domain.KnowledgeWeightInferred {
		t.Fatalf("inferred weight = %.1f, want %.1f", funds[0].Weight, domain.KnowledgeWeightInferred)
	}
	if len(funds[0].Evidence) != 1 || funds[0].Evidence[0].DistanceMeters != 2001 {
		t.Fatalf("evidence missing observed distance: %+v", funds[0].Evidence)
	}
}

func TestBuildCandidateCap(t *testing.T) {
	store := &fakeKnowledgeStore{}
	builder := &knowledgeBuilder{store: store, log: testutil.Logger(t)}

	subject := pointRecord("plant", domain.CategoryEnergy, 40.0, -75.0)
	var candidates []Candidate
	for i := 0; i < 8; i++ {
		candidates = append(candidates, Candidate{
			Record:         pointRecord("rule", domain.CategoryRegulations, 40.0, -75.0),
			DistanceMeters: float64(500 + i),
		})
	}

	created, errs := builder.build(context.Background(), subject, candidates)
	if errs != 0 {
		t.Fatalf("store errors: %d", errs)
	}
	// 2 direct facts + capped cross-category facts.
	if created != 2+maxKnowledgeCandidates {
		t.Fatalf("created = %d, want %d", created, 2+maxKnowledgeCandidates)
	}
}

func TestBuildDirectFactFailureDoesNotBlockOthers(t *testing.T) {
	store := &fakeKnowledgeStore{
		failOn: func(edge *domain.KnowledgeEdge) bool { return edge.Predicate == PredicateLocatedAt },
	}
	builder := &knowledgeBuilder{store: store, log: testutil.Logger(t)}

	subject := pointRecord("buoy", domain.CategoryMarine, 38.0, -75.0)
	weather := pointRecord("station", domain.CategoryWeather, 38.01, -75.0)

	created, errs := builder.build(context.Background(), subject, []Candidate{
		{Record: weather, DistanceMeters: 1100},
	})
	if errs != 1 {
		t.Fatalf("store errors = %d, want 1", errs)
	}
	// belongsTo and the affectedBy cross-category fact still land.
	if created != 2 {
		t.Fatalf("created = %d, want 2", created)
	}
	if len(store.byPredicate(PredicateBelongsTo)) != 1 {
		t.Fatalf("belongsTo missing after locatedAt failure")
	}
	if len(store.byPredicate(PredicateAffectedBy)) != 1 {
		t.Fatalf("affectedBy missing after locatedAt failure")
	}
}

func TestBuildNilStoreSkips(t *testing.T) {
	builder := &knowledgeBuilder{store: nil, log: testutil.Logger(t)}
	subject := pointRecord("any", domain.CategoryWildlife, 40.0, -75.0)

	created, errs := builder.build(context.Background(), subject, nil)
	if created != 0 || errs != 0 {
		t.Fatalf("nil store: created=%d errs=%d, want 0/0", created, errs)
	}
}
