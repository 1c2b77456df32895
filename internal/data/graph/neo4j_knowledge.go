package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/civicmesh/civicmesh-backend/internal/domain"
	"github.com/civicmesh/civicmesh-backend/internal/platform/logger"
	"github.com/civicmesh/civicmesh-backend/internal/platform/neo4jdb"
)

// KnowledgeStore persists subject-predicate-object facts. AddEdge merges on
// the (subject, predicate, object) triple and appends evidence, so repeated
// enrichment passes accumulate provenance instead of overwriting it.
type KnowledgeStore interface {
	AddEdge(ctx context.Context, edge *domain.KnowledgeEdge) error
}

type neo4jKnowledgeStore struct {
	client *neo4jdb.Client
	log    *logger.Logger

	schemaOnce sync.Once
}

// NewNeo4jKnowledgeStore returns nil when the client is nil (graph store
// unconfigured); callers treat a nil store as "skip knowledge edges".
func NewNeo4jKnowledgeStore(client *neo4jdb.Client, baseLog *logger.Logger) KnowledgeStore {
	if client == nil || client.Driver == nil {
		return nil
	}
	return &neo4jKnowledgeStore{client: client, log: baseLog.With("store", "Neo4jKnowledgeStore")}
}

func nodeLabel(kind string) (string, error) {
	switch kind {
	case domain.KnowledgeNodeRecord:
		return "Record", nil
	case domain.KnowledgeNodeLocation:
		return "Location", nil
	case domain.KnowledgeNodeCategory:
		return "Category", nil
	default:
		return "", fmt.Errorf("graph: unknown node kind %q", kind)
	}
}

func (s *neo4jKnowledgeStore) AddEdge(ctx context.Context, edge *domain.KnowledgeEdge) error {
	if edge == nil || edge.SubjectID == "" || edge.ObjectID == "" || edge.Predicate == "" {
		return fmt.Errorf("graph: incomplete knowledge edge")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	subjectLabel, err := nodeLabel(edge.SubjectType)
	if err != nil {
		return err
	}
	objectLabel, err := nodeLabel(edge.ObjectType)
	if err != nil {
		return err
	}

	evidence := make([]string, 0, len(edge.Evidence))
	for _, ev := range edge.Evidence {
		raw, err := json.Marshal(ev)
		if err != nil {
			continue
		}
		evidence = append(evidence, string(raw))
	}

	session := s.client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: s.client.Database,
	})
	defer session.Close(ctx)

	// Constraints are created once per store; edge writes after the first
	// are a single MERGE round-trip.
	s.schemaOnce.Do(func() { s.ensureSchema(ctx, session) })

	// Labels cannot be parameterized, so the statement is assembled from the
	// closed label set above.
	stmt := fmt.Sprintf(`
MERGE (a:%s {id: $subject_id})
MERGE (b:%s {id: $object_id})
MERGE (a)-[e:KNOWLEDGE {predicate: $predicate}]->(b)
SET e.weight = $weight,
    e.evidence = coalesce(e.evidence, []) + $evidence,
    e.synced_at = $synced_at
`, subjectLabel, objectLabel)

	_, err = session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, stmt, map[string]any{
			"subject_id": edge.SubjectID,
			"object_id":  edge.ObjectID,
			"predicate":  edge.Predicate,
			"weight":     edge.Weight,
			"evidence":   evidence,
			"synced_at":  time.Now().UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return nil, err
		}
		if _, err := res.Consume(ctx); err != nil {
			return nil, err
		}
		return nil, nil
	})
	return err
}

// ensureSchema creates uniqueness constraints best-effort; restricted users
// may not be allowed to, and writes still work without them.
func (s *neo4jKnowledgeStore) ensureSchema(ctx context.Context, session neo4j.SessionWithContext) {
	stmts := []string{
		`CREATE CONSTRAINT record_id_unique IF NOT EXISTS FOR (r:Record) REQUIRE r.id IS UNIQUE`,
		`CREATE CONSTRAINT location_id_unique IF NOT EXISTS FOR (l:Location) REQUIRE l.id IS UNIQUE`,
		`CREATE CONSTRAINT category_id_unique IF NOT EXISTS FOR (c:Category) REQUIRE c.id IS UNIQUE`,
	}
	for _, stmt := range stmts {
		if res, err := session.Run(ctx, stmt, nil); err != nil {
			if s.log != nil {
				s.log.Warn("neo4j schema init failed (continuing)", "error", err)
			}
		} else {
			_, _ = res.Consume(ctx)
		}
	}
}
