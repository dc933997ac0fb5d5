package estimator

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/claimworks/estimate-api/src/estimate/metrics"
	"github.com/claimworks/estimate-api/src/estimate/ratelimit"
	"github.com/claimworks/estimate-api/src/estimate/types"
)

// Orchestrator runs one estimate batch: admission first, then a bounded
// fan-out of per-item estimates.
type Orchestrator struct {
	limiter       *ratelimit.Limiter
	items         *ItemEstimator
	maxConcurrent int
	log           *zap.Logger
}

func NewOrchestrator(limiter *ratelimit.Limiter, items *ItemEstimator, maxConcurrent int, log *zap.Logger) *Orchestrator {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Orchestrator{
		limiter:       limiter,
		items:         items,
		maxConcurrent: maxConcurrent,
		log:           log,
	}
}

// Run checks admission before any tool work so rejected requests incur no
// research cost. Every input item gets exactly one result, in input order,
// no matter how individual items fare.
func (o *Orchestrator) Run(ctx context.Context, req types.EstimateRequest, clientKey string) types.EstimateResponse {
	adm := o.limiter.Check(ctx, clientKey)
	if !adm.Allowed {
		metrics.RateLimitRejections.Inc()
		o.log.Info("request rate limited",
			zap.String("clientKey", clientKey),
			zap.Int("retryAfterSeconds", adm.RetryAfterSeconds))
		return types.EstimateResponse{
			Results:           []types.ItemEstimate{},
			RateLimited:       true,
			RetryAfterSeconds: adm.RetryAfterSeconds,
		}
	}

	results := make([]types.ItemEstimate, len(req.InventoryItems))
	sem := make(chan struct{}, o.maxConcurrent)
	var wg sync.WaitGroup
	for i, item := range req.InventoryItems {
		// Acquire before spawning so items start in input order.
		sem <- struct{}{}
		wg.Add(1)
		go func(i int, item types.InventoryItem) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = o.items.Estimate(ctx, item, req.UserLocation, req.Currency)
		}(i, item)
	}
	wg.Wait()

	return types.EstimateResponse{Results: results}
}
