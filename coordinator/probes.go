package coordinator

import (
	"context"
	"fmt"

	"github.com/jonwraymond/reportops/health"
	"github.com/jonwraymond/reportops/memory"
)

// budgetCriticalUtilization is the utilization at which the memory-budget
// probe reports unhealthy.
const budgetCriticalUtilization = 0.95

func newBudgetChecker(b *memory.Budget) health.Checker {
	return health.NewCheckerFunc(ProbeMemoryBudget, func(ctx context.Context) health.Result {
		s := b.Stats()
		threshold := b.Config().PressureThreshold
		details := map[string]any{
			"tracked_bytes": s.TrackedTotal,
			"max_bytes":     s.MaxTotal,
			"allocations":   s.Allocations,
			"utilization":   s.Utilization,
			"rejections":    s.Rejections,
		}
		msg := fmt.Sprintf("memory budget %.1f%% used", s.Utilization*100)

		switch {
		case s.Utilization >= budgetCriticalUtilization:
			return health.Unhealthy(msg, memory.ErrBudgetExceeded).WithDetails(details)
		case s.Utilization >= threshold:
			return health.Degraded(msg).WithDetails(details)
		default:
			return health.Healthy(msg).WithDetails(details)
		}
	})
}
