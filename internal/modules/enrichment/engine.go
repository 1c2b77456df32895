package enrichment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/civicmesh/civicmesh-backend/internal/clients/redis"
	"github.com/civicmesh/civicmesh-backend/internal/data/graph"
	"github.com/civicmesh/civicmesh-backend/internal/data/repos"
	"github.com/civicmesh/civicmesh-backend/internal/domain"
	"github.com/civicmesh/civicmesh-backend/internal/pkg/dbctx"
	"github.com/civicmesh/civicmesh-backend/internal/platform/logger"
	"github.com/civicmesh/civicmesh-backend/internal/platform/openai"
)

// ErrNoRecords is returned when the batch selector resolves zero records; it
// maps to an input error (400), not a crash.
var ErrNoRecords = errors.New("no records found for batch selection")

const candidateWindowCacheKey = "enrich:candidate_window"

// Deps are the engine's collaborators. Graph, AI and Cache are optional:
// nil disables knowledge edges, insight generation and window caching
// respectively.
type Deps struct {
	Log           *logger.Logger
	Records       repos.RecordRepo
	Relationships repos.RelationshipRepo
	Fused         repos.FusedRecordRepo
	Stats         repos.EnrichmentStatRepo
	Graph         graph.KnowledgeStore
	AI            openai.Client
	Cache         redis.CandidateCache
}

// Config carries the product-heuristic defaults. The confidence formula and
// 50 km radius are preserved as-is from the product, configurable rather
// than derived.
type Config struct {
	RadiusKM        float64
	BatchLimit      int
	CandidateWindow int
	MaxConcurrency  int
	BatchTimeout    time.Duration
}

func DefaultConfig() Config {
	return Config{
		RadiusKM:        50,
		BatchLimit:      100,
		CandidateWindow: 500,
		MaxConcurrency:  8,
		BatchTimeout:    5 * time.Minute,
	}
}

// BatchInput selects the working set for one invocation. Explicit ids win
// over category; zero values fall back to configured defaults.
type BatchInput struct {
	RecordIDs []uuid.UUID `json:"record_ids,omitempty"`
	Category  string      `json:"category,omitempty"`
	Limit     int         `json:"limit,omitempty"`
	RadiusKM  float64     `json:"radius_km,omitempty"`
}

// BatchOutput is the terminal batch summary. Partial failure is the expected
// steady state: counts report what was achieved and StoreErrors how many
// writes degraded.
type BatchOutput struct {
	Success              bool           `json:"success"`
	EnrichedCount        int            `json:"enrichedCount"`
	RelationshipsCreated int            `json:"relationshipsCreated"`
	KnowledgeEdges       int            `json:"knowledgeEdges"`
	FusedRecords         int            `json:"fusedRecords"`
	AIInsight            *string        `json:"aiInsight"`
	ProcessingTimeMs     int64          `json:"processingTimeMs"`
	RecordsProcessed     int            `json:"recordsProcessed"`
	StoreErrors          int            `json:"storeErrors"`
	Error                string         `json:"error,omitempty"`
	Trace                map[string]any `json:"trace,omitempty"`
}

// Engine runs the per-batch fusion pipeline: proximity, relationship
// synthesis, knowledge graph facts, property fusion, stats rollup and an
// optional batch insight.
type Engine struct {
	deps Deps
	cfg  Config

	synth   *relationshipSynthesizer
	builder *knowledgeBuilder
	fuser   *propertyFuser
	insight *insightGenerator
}

func NewEngine(deps Deps, cfg Config) (*Engine, error) {
	if deps.Log == nil || deps.Records == nil || deps.Relationships == nil || deps.Fused == nil || deps.Stats == nil {
		return nil, fmt.Errorf("enrichment: missing deps")
	}
	def := DefaultConfig()
	if cfg.RadiusKM <= 0 {
		cfg.RadiusKM = def.RadiusKM
	}
	if cfg.BatchLimit <= 0 {
		cfg.BatchLimit = def.BatchLimit
	}
	if cfg.CandidateWindow <= 0 {
		cfg.CandidateWindow = def.CandidateWindow
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = def.MaxConcurrency
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = def.BatchTimeout
	}

	log := deps.Log.With("engine", "Enrichment")
	return &Engine{
		deps:    deps,
		cfg:     cfg,
		synth:   &relationshipSynthesizer{relationships: deps.Relationships, log: log},
		builder: &knowledgeBuilder{store: deps.Graph, log: log},
		fuser:   &propertyFuser{fused: deps.Fused, log: log},
		insight: &insightGenerator{ai: deps.AI, log: log},
	}, nil
}

type recordResult struct {
	category      domain.Category
	relationships int
	knowledge     int
	fused         bool
	storeErrs     int
	enriched      bool
}

// Run executes one batch. Only an empty working set or a fetch failure is
// terminal; per-record write failures degrade that record's contribution and
// the batch reports what it achieved.
func (e *Engine) Run(ctx context.Context, in BatchInput) (BatchOutput, error) {
	start := time.Now()
	out := BatchOutput{Trace: map[string]any{}}
	if ctx == nil {
		ctx = context.Background()
	}

	limit := in.Limit
	if limit <= 0 {
		limit = e.cfg.BatchLimit
	}
	radiusMeters := in.RadiusKM * 1000
	if radiusMeters <= 0 {
		radiusMeters = e.cfg.RadiusKM * 1000
	}

	category := domain.Category("")
	if in.Category != "" {
		category = domain.ParseCategory(in.Category)
		if category == "" {
			out.Error = fmt.Sprintf("unknown category %q", in.Category)
			return out, fmt.Errorf("%w: unknown category %q", ErrNoRecords, in.Category)
		}
	}

	// Fetching: a store failure here is fatal, there is no data to work on.
	targets, err := e.deps.Records.FetchRecords(dbctx.Context{Ctx: ctx}, repos.RecordSelector{
		IDs:      in.RecordIDs,
		Category: category,
		Limit:    limit,
	})
	if err != nil {
		out.Error = "failed to fetch batch records"
		return out, fmt.Errorf("fetch batch records: %w", err)
	}
	if len(targets) == 0 {
		out.Error = "no records found"
		return out, ErrNoRecords
	}

	window, fromCache, err := e.candidateWindow(ctx)
	if err != nil {
		out.Error = "failed to fetch candidate window"
		return out, fmt.Errorf("fetch candidate window: %w", err)
	}
	finder := NewProximityFinder(window)
	out.Trace["candidate_window"] = len(window)
	out.Trace["window_from_cache"] = fromCache

	// Processing: per record, bounded fan-out, abandon-in-place at deadline.
	procCtx, cancel := context.WithTimeout(ctx, e.cfg.BatchTimeout)
	defer cancel()

	results := make([]recordResult, len(targets))
	g, gctx := errgroup.WithContext(procCtx)
	g.SetLimit(e.cfg.MaxConcurrency)

	for i, rec := range targets {
		i, rec := i, rec
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			results[i] = e.enrichRecord(gctx, finder, rec, radiusMeters)
			return nil
		})
	}
	_ = g.Wait()

	deltas := map[domain.Category]repos.StatDelta{}
	for _, res := range results {
		out.RelationshipsCreated += res.relationships
		out.KnowledgeEdges += res.knowledge
		out.StoreErrors += res.storeErrs
		if res.fused {
			out.FusedRecords++
		}
		if res.enriched {
			out.EnrichedCount++
			d := deltas[res.category]
			d.RecordsEnriched++
			d.RelationshipsCreated += res.relationships
			d.KnowledgeEdges += res.knowledge
			if res.fused {
				d.FusedRecords++
			}
			deltas[res.category] = d
		}
	}
	out.RecordsProcessed = len(targets)

	statDate := domain.StatDateOf(time.Now())
	for cat, delta := range deltas {
		if err := e.deps.Stats.UpsertDailyStat(dbctx.Context{Ctx: ctx}, statDate, cat, delta); err != nil {
			out.StoreErrors++
			e.deps.Log.Warn("stats rollup failed (continuing)", "error", err, "category", string(cat))
		}
	}

	// Summarizing always runs after Processing, even with zero enrichments.
	if text := e.insight.summarize(ctx, targets, out.RelationshipsCreated); text != "" {
		out.AIInsight = &text
	}

	out.Success = true
	out.ProcessingTimeMs = time.Since(start).Milliseconds()
	return out, nil
}

func (e *Engine) candidateWindow(ctx context.Context) ([]*domain.Record, bool, error) {
	if e.deps.Cache != nil {
		if cached, ok := e.deps.Cache.Get(ctx, candidateWindowCacheKey); ok {
			return cached, true, nil
		}
	}
	window, err := e.deps.Records.FetchCandidates(dbctx.Context{Ctx: ctx}, uuid.Nil, e.cfg.CandidateWindow)
	if err != nil {
		return nil, false, err
	}
	if e.deps.Cache != nil {
		e.deps.Cache.Set(ctx, candidateWindowCacheKey, window)
	}
	return window, false, nil
}

func (e *Engine) enrichRecord(ctx context.Context, finder *ProximityFinder, rec *domain.Record, radiusMeters float64) recordResult {
	res := recordResult{category: rec.Category}
	dbc := dbctx.Context{Ctx: ctx}

	candidates := finder.FindNearby(rec, radiusMeters)

	created, errs := e.synth.synthesize(dbc, rec, candidates, radiusMeters)
	res.relationships = created
	res.storeErrs += errs

	kCreated, kErrs := e.builder.build(ctx, rec, candidates)
	res.knowledge = kCreated
	res.storeErrs += kErrs

	fused, err := e.fuser.fuse(dbc, rec, candidates)
	if err != nil {
		res.storeErrs++
		e.deps.Log.Warn("fusion write failed (continuing)", "error", err, "record", rec.ID.String())
	}
	res.fused = fused

	res.enriched = res.relationships > 0 || res.knowledge > 0 || res.fused
	return res
}
