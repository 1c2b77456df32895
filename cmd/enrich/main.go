// Command enrich runs a single enrichment batch and prints the JSON summary.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/civicmesh/civicmesh-backend/internal/clients/redis"
	"github.com/civicmesh/civicmesh-backend/internal/data/graph"
	"github.com/civicmesh/civicmesh-backend/internal/data/repos"
	"github.com/civicmesh/civicmesh-backend/internal/db"
	"github.com/civicmesh/civicmesh-backend/internal/modules/enrichment"
	"github.com/civicmesh/civicmesh-backend/internal/platform/envutil"
	"github.com/civicmesh/civicmesh-backend/internal/platform/logger"
	"github.com/civicmesh/civicmesh-backend/internal/platform/neo4jdb"
	"github.com/civicmesh/civicmesh-backend/internal/platform/openai"
)

func main() {
	var (
		idsFlag      = flag.String("ids", "", "comma-separated record ids to enrich")
		categoryFlag = flag.String("category", "", "restrict the batch to one category")
		limitFlag    = flag.Int("limit", 0, "max records in the batch")
		radiusFlag   = flag.Float64("radius-km", 0, "search radius in km")
	)
	flag.Parse()

	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	var ids []uuid.UUID
	for _, raw := range strings.Split(*idsFlag, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			log.Fatal("Invalid record id", "id", raw, "error", err)
		}
		ids = append(ids, id)
	}

	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Fatal("Postgres init failed", "error", err)
	}
	thePG := postgresService.DB()

	neo4jClient, err := neo4jdb.NewFromEnv(log)
	if err != nil {
		log.Warn("Neo4j init failed, knowledge edges disabled", "error", err)
	}
	if neo4jClient != nil {
		defer neo4jClient.Close(context.Background())
	}

	aiClient, err := openai.NewFromEnv(log)
	if err != nil {
		log.Warn("OpenAI init failed, insights disabled", "error", err)
	}

	cache, err := redis.NewCandidateCache(log)
	if err != nil {
		log.Warn("Redis init failed, candidate cache disabled", "error", err)
	}
	if cache != nil {
		defer cache.Close()
	}

	engine, err := enrichment.NewEngine(enrichment.Deps{
		Log:           log,
		Records:       repos.NewRecordRepo(thePG, log),
		Relationships: repos.NewRelationshipRepo(thePG, log),
		Fused:         repos.NewFusedRecordRepo(thePG, log),
		Stats:         repos.NewEnrichmentStatRepo(thePG, log),
		Graph:         graph.NewNeo4jKnowledgeStore(neo4jClient, log),
		AI:            aiClient,
		Cache:         cache,
	}, enrichment.Config{
		RadiusKM:        envutil.Float("ENRICH_RADIUS_KM", 50),
		BatchLimit:      envutil.Int("ENRICH_BATCH_LIMIT", 100),
		CandidateWindow: envutil.Int("ENRICH_CANDIDATE_WINDOW", 500),
		MaxConcurrency:  envutil.Int("ENRICH_MAX_CONCURRENCY", 8),
		BatchTimeout:    time.Duration(envutil.Int("ENRICH_BATCH_TIMEOUT_SECONDS", 300)) * time.Second,
	})
	if err != nil {
		log.Fatal("Engine init failed", "error", err)
	}

	out, err := engine.Run(context.Background(), enrichment.BatchInput{
		RecordIDs: ids,
		Category:  *categoryFlag,
		Limit:     *limitFlag,
		RadiusKM:  *radiusFlag,
	})
	if err != nil {
		log.Error("Batch failed", "error", err)
	}

	raw, _ := json.MarshalIndent(out, "", "  ")
	fmt.Println(string(raw))
	if err != nil {
		os.Exit(1)
	}
}
