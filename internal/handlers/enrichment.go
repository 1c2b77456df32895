package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/civicmesh/civicmesh-backend/internal/modules/enrichment"
)

type EnrichmentHandler struct {
	engine *enrichment.Engine
}

func NewEnrichmentHandler(engine *enrichment.Engine) *EnrichmentHandler {
	return &EnrichmentHandler{engine: engine}
}

// POST /api/enrichment/batch
func (h *EnrichmentHandler) RunBatch(c *gin.Context) {
	var in enrichment.BatchInput
	if err := c.ShouldBindJSON(&in); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	out, err := h.engine.Run(c.Request.Context(), in)
	if err != nil {
		if errors.Is(err, enrichment.ErrNoRecords) {
			RespondError(c, http.StatusBadRequest, "no_records_found", err)
			return
		}
		RespondError(c, http.StatusInternalServerError, "batch_failed", err)
		return
	}

	RespondOK(c, out)
}
