package interfaces

import (
	"context"

	"sales-dashboard/internal/types"
)

// Dashboard assembles dashboard snapshots
type Dashboard interface {
	Snapshot(ctx context.Context, req types.DashboardRequest) (*types.Snapshot, error)
	// LastRaw is the raw summary/detail pair of the last order of the most
	// recent snapshot
	LastRaw(ctx context.Context) (types.RawPair, bool)
}
