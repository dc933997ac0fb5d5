package estimator

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/claimworks/estimate-api/src/estimate/metrics"
	"github.com/claimworks/estimate-api/src/estimate/tools"
	"github.com/claimworks/estimate-api/src/estimate/types"
)

// ItemEstimator reduces the three tool answers for one item into an
// ItemEstimate. It never returns an error: tool failures are captured in the
// estimate itself.
type ItemEstimator struct {
	adapters []*tools.Adapter
	log      *zap.Logger
}

func NewItemEstimator(labor, material, repair *tools.Adapter, log *zap.Logger) *ItemEstimator {
	return &ItemEstimator{
		adapters: []*tools.Adapter{labor, material, repair},
		log:      log,
	}
}

// Estimate runs the tool lookups concurrently and waits for all of them to
// settle; a partial estimate is assembled from whatever answered. Siblings
// are not cancelled when one tool fails.
func (e *ItemEstimator) Estimate(ctx context.Context, item types.InventoryItem, loc types.UserLocation, currency string) types.ItemEstimate {
	q := tools.Query{
		ItemName:  item.ItemName,
		Category:  item.Category,
		Condition: item.CurrentCondition,
		Placement: item.Location,
		City:      loc.City,
		Region:    loc.Region,
		Currency:  currency,
	}

	answers := make([]tools.Answer, len(e.adapters))
	failures := make([]error, len(e.adapters))

	start := time.Now()
	var wg sync.WaitGroup
	for i, a := range e.adapters {
		wg.Add(1)
		go func(i int, a *tools.Adapter) {
			defer wg.Done()
			answers[i], failures[i] = a.Answer(ctx, q)
		}(i, a)
	}
	wg.Wait()
	metrics.ItemDuration.Observe(time.Since(start).Seconds())

	est := types.ItemEstimate{ItemID: item.ItemID}
	succeeded := 0
	for i, a := range e.adapters {
		if failures[i] != nil {
			reason := failures[i].Error()
			var toolErr *tools.ToolError
			if errors.As(failures[i], &toolErr) {
				reason = string(toolErr.Kind)
			}
			if est.Errors == nil {
				est.Errors = make(map[string]string)
			}
			est.Errors[a.Name()] = reason
			metrics.ToolFailures.WithLabelValues(a.Name(), reason).Inc()
			e.log.Warn("tool call failed",
				zap.String("itemId", item.ItemID),
				zap.String("tool", a.Name()),
				zap.Error(failures[i]))
			continue
		}
		succeeded++
		switch a.Name() {
		case tools.ToolLabor:
			est.LaborFindings = answers[i].Findings
		case tools.ToolMaterial:
			est.MaterialFindings = answers[i].Findings
		case tools.ToolRepair:
			est.RepairFindings = answers[i].Findings
		}
	}

	switch succeeded {
	case len(e.adapters):
		est.Status = types.StatusSucceeded
	case 0:
		est.Status = types.StatusFailed
	default:
		est.Status = types.StatusPartiallyFailed
	}
	return est
}
