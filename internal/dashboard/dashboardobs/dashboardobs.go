package dashboardobs

import (
	"context"
	"time"

	"sales-dashboard/internal/interfaces"
	"sales-dashboard/internal/logger"
	"sales-dashboard/internal/trace"
	"sales-dashboard/internal/types"
)

type observableDashboard struct {
	dashboard interfaces.Dashboard
}

var _ interfaces.Dashboard = (*observableDashboard)(nil)

func Wrap(d interfaces.Dashboard) interfaces.Dashboard {
	return &observableDashboard{
		dashboard: d,
	}
}

func (od *observableDashboard) Snapshot(ctx context.Context, req types.DashboardRequest) (*types.Snapshot, error) {
	ctx, span := trace.StartSpan(ctx, "dashboard.Snapshot")
	defer span.End()

	start := time.Now()

	logger.InfoSkip(ctx, 1, "Building dashboard",
		"range", req.Range.String(),
		"status", req.Status,
		"with_margins", req.WithMargins,
		"force", req.Force,
	)

	snap, err := od.dashboard.Snapshot(ctx, req)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Dashboard failed", err,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	logger.InfoSkip(ctx, 1, "Dashboard ready",
		"period", snap.Period.String(),
		"orders", len(snap.Orders),
		"from_cache", snap.FromCache,
		"daily_fp", snap.Fingerprints.Daily.String(),
		"month_fp", snap.Fingerprints.Month.String(),
		"warnings", len(snap.Warnings),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return snap, nil
}

func (od *observableDashboard) LastRaw(ctx context.Context) (types.RawPair, bool) {
	raw, ok := od.dashboard.LastRaw(ctx)
	logger.DebugSkip(ctx, 1, "Last raw order requested", "available", ok)
	return raw, ok
}
