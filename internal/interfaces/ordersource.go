package interfaces

import (
	"context"

	"sales-dashboard/internal/types"
)

// OrderSource is the upstream sales-order API.
// A page shorter than pageSize marks the end of the range.
type OrderSource interface {
	ListOrders(ctx context.Context, r types.DateRange, status string, page, pageSize int) ([]types.RawRecord, error)
	// GetOrder returns false when the record is absent or could not be fetched
	GetOrder(ctx context.Context, id string) (types.RawRecord, bool)
}
