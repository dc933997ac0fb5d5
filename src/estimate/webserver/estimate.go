package webserver

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/claimworks/estimate-api/src/estimate/estimator"
	"github.com/claimworks/estimate-api/src/estimate/metrics"
	"github.com/claimworks/estimate-api/src/estimate/types"
)

type Estimates struct {
	orch      *estimator.Orchestrator
	maxItems  int
	sanitizer *bluemonday.Policy
	log       *zap.Logger
}

func NewEstimates(orch *estimator.Orchestrator, maxItems int, log *zap.Logger) Estimates {
	return Estimates{
		orch:     orch,
		maxItems: maxItems,
		// Free-text item fields end up inside research instructions; strip
		// all markup first.
		sanitizer: bluemonday.StrictPolicy(),
		log:       log,
	}
}

func (e Estimates) Create(c *gin.Context) {
	var req types.EstimateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		e.reject(c, err.Error())
		return
	}

	if len(req.InventoryItems) > e.maxItems {
		e.reject(c, fmt.Sprintf("at most %d inventory items per request", e.maxItems))
		return
	}

	seen := make(map[string]struct{}, len(req.InventoryItems))
	for i := range req.InventoryItems {
		item := &req.InventoryItems[i]
		if _, dup := seen[item.ItemID]; dup {
			e.reject(c, "duplicate itemId: "+item.ItemID)
			return
		}
		seen[item.ItemID] = struct{}{}

		if item.OriginalCost.IsNegative() {
			e.reject(c, "originalCost must be non-negative for item "+item.ItemID)
			return
		}

		item.ItemName = e.sanitizer.Sanitize(item.ItemName)
		item.Category = e.sanitizer.Sanitize(item.Category)
		item.Location = e.sanitizer.Sanitize(item.Location)
	}
	req.UserLocation.City = e.sanitizer.Sanitize(req.UserLocation.City)
	req.UserLocation.Region = e.sanitizer.Sanitize(req.UserLocation.Region)

	clientKey := c.GetString("clientKey")
	if clientKey == "" {
		clientKey = c.ClientIP()
	}

	resp := e.orch.Run(c.Request.Context(), req, clientKey)
	if resp.RateLimited {
		metrics.RequestsTotal.WithLabelValues("rate_limited").Inc()
		c.Header("Retry-After", strconv.Itoa(resp.RetryAfterSeconds))
		c.JSON(http.StatusTooManyRequests, gin.H{
			"rateLimited":       true,
			"retryAfterSeconds": resp.RetryAfterSeconds,
		})
		return
	}

	metrics.RequestsTotal.WithLabelValues("ok").Inc()
	c.JSON(http.StatusOK, resp)
}

func (e Estimates) reject(c *gin.Context, reason string) {
	metrics.RequestsTotal.WithLabelValues("validation_error").Inc()
	e.log.Debug("request rejected", zap.String("reason", reason), zap.String("ip", c.ClientIP()))
	c.JSON(http.StatusBadRequest, gin.H{"err": reason})
}
