package webserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/claimworks/estimate-api/src/estimate/ratelimit"
)

type Health struct {
	limiter *ratelimit.Limiter
}

// Check reports process liveness plus whether the durable rate-limit store is
// reachable, so operators can tell degraded-but-serving from fully down.
func (h Health) Check(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":       "ok",
		"isStoreReady": h.limiter.Probe(c.Request.Context()),
	})
}
