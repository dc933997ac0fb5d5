package webserver

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/claimworks/estimate-api/src/estimate/config"
	"github.com/claimworks/estimate-api/src/estimate/estimator"
	"github.com/claimworks/estimate-api/src/estimate/ratelimit"
)

func New(cfg config.Config, orch *estimator.Orchestrator, limiter *ratelimit.Limiter, log *zap.Logger) *gin.Engine {
	g := gin.New()
	g.Use(RequestLogger(log), gin.Recovery())
	g.Use(cors.Default())
	attachRoutes(g, cfg, orch, limiter, log)
	return g
}

func attachRoutes(g *gin.Engine, cfg config.Config, orch *estimator.Orchestrator, limiter *ratelimit.Limiter, log *zap.Logger) {
	health := Health{limiter: limiter}
	g.GET("/health", health.Check)
	g.GET("/metrics", gin.WrapH(promhttp.Handler()))

	est := NewEstimates(orch, cfg.MaxItemsPerRequest, log)
	api := g.Group("/api", APIKeyAuth(cfg.APIKeys))
	api.POST("/estimate", est.Create)
}
