package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/civicmesh/civicmesh-backend/internal/clients/redis"
	"github.com/civicmesh/civicmesh-backend/internal/data/graph"
	"github.com/civicmesh/civicmesh-backend/internal/data/repos"
	"github.com/civicmesh/civicmesh-backend/internal/db"
	"github.com/civicmesh/civicmesh-backend/internal/handlers"
	"github.com/civicmesh/civicmesh-backend/internal/modules/enrichment"
	"github.com/civicmesh/civicmesh-backend/internal/platform/envutil"
	"github.com/civicmesh/civicmesh-backend/internal/platform/logger"
	"github.com/civicmesh/civicmesh-backend/internal/platform/neo4jdb"
	"github.com/civicmesh/civicmesh-backend/internal/platform/openai"
	"github.com/civicmesh/civicmesh-backend/internal/server"
)

func main() {
	logMode := envutil.String("LOG_MODE", "development")
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Fatal("Postgres init failed", "error", err)
	}
	if err := postgresService.AutoMigrateAll(); err != nil {
		log.Fatal("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up repos...")
	recordRepo := repos.NewRecordRepo(thePG, log)
	relationshipRepo := repos.NewRelationshipRepo(thePG, log)
	fusedRepo := repos.NewFusedRecordRepo(thePG, log)
	statRepo := repos.NewEnrichmentStatRepo(thePG, log)

	// Optional collaborators: knowledge graph, summarization, cache.
	neo4jClient, err := neo4jdb.NewFromEnv(log)
	if err != nil {
		log.Warn("Neo4j init failed, knowledge edges disabled", "error", err)
	}
	if neo4jClient != nil {
		defer neo4jClient.Close(context.Background())
	}
	knowledgeStore := graph.NewNeo4jKnowledgeStore(neo4jClient, log)

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

	// Engine
	engine, err := enrichment.NewEngine(enrichment.Deps{
		Log:           log,
		Records:       recordRepo,
		Relationships: relationshipRepo,
		Fused:         fusedRepo,
		Stats:         statRepo,
		Graph:         knowledgeStore,
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

	router := server.NewRouter(server.RouterConfig{
		EnrichmentHandler: handlers.NewEnrichmentHandler(engine),
	})

	addr := ":" + envutil.String("PORT", "8080")
	log.Info("Starting server", "addr", addr)
	if err := router.Run(addr); err != nil {
		log.Fatal("Server exited", "error", err)
	}
}
