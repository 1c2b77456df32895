package enrichment

import (
	"context"
	"fmt"
	"strings"

	"github.com/civicmesh/civicmesh-backend/internal/domain"
	"github.com/civicmesh/civicmesh-backend/internal/platform/logger"
	"github.com/civicmesh/civicmesh-backend/internal/platform/openai"
)

// minInsightBatchSize: batches below this size carry too little signal for a
// narrative summary.
const minInsightBatchSize = 5

const insightSystemPrompt = `You are an analyst for a public-sector data platform. ` +
	`Given a batch of geotagged records and the spatial relationships discovered between them, ` +
	`write a short, concrete insight (2-4 sentences) about what the batch reveals. ` +
	`Do not restate the raw numbers; interpret them.`

type insightGenerator struct {
	ai  openai.Client
	log *logger.Logger
}

// summarize produces a best-effort narrative for the batch. Any failure, and
// an unconfigured AI client, degrade to "" without affecting the batch.
func (g *insightGenerator) summarize(ctx context.Context, records []*domain.Record, relationshipsCreated int) string {
	if g.ai == nil || len(records) < minInsightBatchSize {
		return ""
	}

	distribution := map[domain.Category]int{}
	for _, rec := range records {
		distribution[rec.Category]++
	}

	var b strings.Builder
	b.WriteString("Category distribution:\n")
	for _, category := range domain.AllCategories() {
		if n := distribution[category]; n > 0 {
			fmt.Fprintf(&b, "- %s: %d\n", category, n)
		}
	}
	fmt.Fprintf(&b, "\nSpatial relationships discovered: %d\n\nSample records:\n", relationshipsCreated)
	for i, rec := range records {
		if i >= 10 {
			break
		}
		if lat, lon, ok := rec.Coordinates(); ok {
			fmt.Fprintf(&b, "- %s (%s) at %.4f,%.4f\n", rec.Name, rec.Category, lat, lon)
		} else {
			fmt.Fprintf(&b, "- %s (%s), no point location\n", rec.Name, rec.Category)
		}
	}

	text, err := g.ai.GenerateText(ctx, insightSystemPrompt, b.String())
	if err != nil {
		g.log.Warn("insight generation failed (continuing)", "error", err)
		return ""
	}
	return strings.TrimSpace(text)
}
