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

// fusionSlot names the fused-record slot a neighbor category contributes to.
// Categories outside this closed table never contribute a slot, even though
// they still produce relationship and knowledge edges.
func fusionSlot(category domain.Category) (string, bool) {
	switch category {
	case domain.CategoryWeather:
		return "weather", true
	case domain.CategoryDemographics:
		return "demographics", true
	case domain.CategoryRegulations:
		return "regulations", true
	case domain.CategoryEconomic:
		return "economic", true
	case domain.CategoryGovernment:
		return "government", true
	default:
		return "", false
	}
}

// extractSlot pulls the category's fixed attribute set from the
// representative candidate. Missing source properties leave their key absent
// rather than failing the slot. Two provenance keys ride along beyond the
// fixed set: every slot records distance_meters to its representative, and a
// government slot with no entity property falls back to the record name.
// Consumers of the fused view must tolerate these extra keys.
func extractSlot(cand Candidate) map[string]any {
	rec := cand.Record
	props := rec.PropertyMap()
	pick := func(keys ...string) map[string]any {
		out := map[string]any{}
		for _, k := range keys {
			if v, ok := props[k]; ok {
				out[k] = v
			}
		}
		return out
	}

	var slot map[string]any
	switch rec.Category {
	case domain.CategoryWeather:
		slot = pick("conditions", "temperature")
		slot["source"] = rec.SourceID
		slot["timestamp"] = rec.CollectedAt.UTC().Format(time.RFC3339)
	case domain.CategoryDemographics:
		slot = pick("population", "median_income", "area_name")
	case domain.CategoryRegulations:
		slot = pick("applicable_rules", "agency", "effective_date")
	case domain.CategoryEconomic:
		slot = pick("indicator", "value", "trend")
	case domain.CategoryGovernment:
		slot = pick("entity", "type", "jurisdiction")
		if _, ok := slot["entity"]; !ok && rec.Name != "" {
			slot["entity"] = rec.Name
		}
	default:
		return nil
	}

	slot["distance_meters"] = cand.DistanceMeters
	return slot
}

type propertyFuser struct {
	fused repos.FusedRecordRepo
	log   *logger.Logger
}

// fuse merges the closest candidate per contributing category into one
// enriched view of the subject. Returns false (and writes nothing) when no
// candidate category is in the fusion table.
func (f *propertyFuser) fuse(dbc dbctx.Context, subject *domain.Record, candidates []Candidate) (bool, error) {
	if subject == nil || len(candidates) == 0 {
		return false, nil
	}

	// Best representative per category: minimum distance.
	best := map[domain.Category]Candidate{}
	for _, cand := range candidates {
		cur, ok := best[cand.Record.Category]
		if !ok || cand.DistanceMeters < cur.DistanceMeters {
			best[cand.Record.Category] = cand
		}
	}

	properties := map[string]any{}
	var sources []string
	for category, cand := range best {
		slot, ok := fusionSlot(category)
		if !ok {
			continue
		}
		properties[slot] = extractSlot(cand)
		sources = append(sources, slot)
	}
	if len(properties) == 0 {
		return false, nil
	}
	sort.Strings(sources)

	propsRaw, err := json.Marshal(properties)
	if err != nil {
		return false, err
	}
	sourcesRaw, err := json.Marshal(sources)
	if err != nil {
		return false, err
	}

	fusedRow := &domain.FusedRecord{
		BaseRecordID: subject.ID,
		Sources:      datatypes.JSON(sourcesRaw),
		Properties:   datatypes.JSON(propsRaw),
	}
	if err := f.fused.Upsert(dbc, fusedRow); err != nil {
		return false, err
	}
	return true, nil
}
