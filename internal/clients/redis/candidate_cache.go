package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/civicmesh/civicmesh-backend/internal/domain"
	"github.com/civicmesh/civicmesh-backend/internal/platform/envutil"
	"github.com/civicmesh/civicmesh-backend/internal/platform/logger"
)

// CandidateCache holds the proximity scan's candidate window between batches
// so concurrent batches don't each re-scan the record store. Best-effort:
// every failure degrades to a store fetch.
type CandidateCache interface {
	Get(ctx context.Context, key string) ([]*domain.Record, bool)
	Set(ctx context.Context, key string, records []*domain.Record)
	Close() error
}

type candidateCache struct {
	log *logger.Logger
	rdb *goredis.Client
	ttl time.Duration
}

// NewCandidateCache returns (nil, nil) when REDIS_ADDR is unset; the cache is
// an optional collaborator.
func NewCandidateCache(log *logger.Logger) (CandidateCache, error) {
	if log == nil {
		return nil, fmt.Errorf("redis: logger required")
	}

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, nil
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &candidateCache{
		log: log.With("client", "RedisCandidateCache"),
		rdb: rdb,
		ttl: time.Duration(envutil.Int("ENRICH_CACHE_TTL_SECONDS", 60)) * time.Second,
	}, nil
}

func (c *candidateCache) Get(ctx context.Context, key string) ([]*domain.Record, bool) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err != goredis.Nil {
			c.log.Warn("cache get failed (continuing)", "error", err, "key", key)
		}
		return nil, false
	}
	var records []*domain.Record
	if err := json.Unmarshal(raw, &records); err != nil {
		c.log.Warn("cache payload corrupt (continuing)", "error", err, "key", key)
		return nil, false
	}
	return records, true
}

func (c *candidateCache) Set(ctx context.Context, key string, records []*domain.Record) {
	raw, err := json.Marshal(records)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.log.Warn("cache set failed (continuing)", "error", err, "key", key)
	}
}

func (c *candidateCache) Close() error {
	return c.rdb.Close()
}
