package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/claimworks/estimate-api/src/estimate/config"
	"github.com/claimworks/estimate-api/src/estimate/estimator"
	"github.com/claimworks/estimate-api/src/estimate/ratelimit"
	"github.com/claimworks/estimate-api/src/estimate/tools"
	"github.com/claimworks/estimate-api/src/estimate/webserver"
	"github.com/claimworks/estimate-api/src/shared/ai"
	"github.com/claimworks/estimate-api/src/shared/logx"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logx.New(cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	if len(cfg.APIKeys) == 0 {
		log.Fatal("API_KEYS must be configured")
	}

	client, err := ai.NewClient(ai.FactoryConfig{
		Provider:  cfg.AIProvider,
		OpenAIKey: cfg.OpenAIKey,
		ClaudeKey: cfg.ClaudeKey,
		Model:     cfg.AIModel,
	})
	if err != nil {
		log.Fatal("ai client", zap.Error(err))
	}

	rdb := ratelimit.MustRedis(cfg.RedisURL, log)
	limiter := ratelimit.New(rdb, cfg.RateLimitRequests, cfg.RateLimitWindow, log)
	limiter.StartCleanup(cfg.RateLimitWindow)

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 3*time.Second)
	if !limiter.Probe(startupCtx) {
		log.Warn("rate limit store unreachable at startup, local fallback active")
	}
	cancelStartup()

	tcfg := tools.Config{
		Timeout:   cfg.ToolTimeout,
		Model:     cfg.AIModel,
		DeepModel: cfg.AIDeepModel,
	}
	items := estimator.NewItemEstimator(
		tools.NewLabor(client, tcfg),
		tools.NewMaterial(client, tcfg),
		tools.NewRepairInstructions(client, tcfg),
		log,
	)
	orch := estimator.NewOrchestrator(limiter, items, cfg.MaxItemConcurrency, log)

	router := webserver.New(cfg, orch, limiter, log)

	httpSrv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     router,
		ReadTimeout: 30 * time.Second,
		// Batches wait on research calls, so responses can take minutes.
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("http", zap.Error(err))
		}
	}()
	log.Info("estimate API listening", zap.String("port", cfg.Port))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutCtx, cancelShut := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShut()
	_ = httpSrv.Shutdown(shutCtx)
	_ = rdb.Close()
}
