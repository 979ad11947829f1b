package controllers

import (
	"context"
	"net/http"

	"bizdesk-backend/cache"
	"bizdesk-backend/services"

	"github.com/gin-gonic/gin"
)

// ReportController handles all reporting functions
type ReportController struct {
	Reports *services.ReportService
	Cache   *cache.QueryCache
}

// GetSummary returns the company overview. Document writes invalidate it.
func (rc *ReportController) GetSummary(c *gin.Context) {
	tenant, ok := tenantOf(c)
	if !ok {
		return
	}
	summary, err := rc.Cache.GetOrLoad(c.Request.Context(), tenant, "reports", func(ctx context.Context) (any, error) {
		return rc.Reports.Summary(ctx, tenant)
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
