package blingobs

import (
	"context"

	"sales-dashboard/internal/interfaces"
	"sales-dashboard/internal/logger"
	"sales-dashboard/internal/trace"
	"sales-dashboard/internal/types"
)

// observableSource wraps an OrderSource with observability (logging & tracing)
type observableSource struct {
	source interfaces.OrderSource
}

// Compile-time interface check
var _ interfaces.OrderSource = (*observableSource)(nil)

// Wrap wraps an order source with observability middleware
func Wrap(source interfaces.OrderSource) interfaces.OrderSource {
	return &observableSource{
		source: source,
	}
}

// ListOrders lists one page of orders with observability
func (o *observableSource) ListOrders(ctx context.Context, r types.DateRange, status string, page, pageSize int) ([]types.RawRecord, error) {
	ctx, span := trace.StartSpan(ctx, "bling.ListOrders")
	defer span.End()

	logger.DebugSkip(ctx, 1, "Listing orders",
		"range", r.String(),
		"status", status,
		"page", page,
		"page_size", pageSize,
	)

	recs, err := o.source.ListOrders(ctx, r, status, page, pageSize)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to list orders", err,
			"range", r.String(),
			"page", page,
		)
		return nil, err
	}

	logger.DebugSkip(ctx, 1, "Orders listed", "range", r.String(), "page", page, "count", len(recs))
	return recs, nil
}

// GetOrder fetches one order detail with observability
func (o *observableSource) GetOrder(ctx context.Context, id string) (types.RawRecord, bool) {
	ctx, span := trace.StartSpan(ctx, "bling.GetOrder")
	defer span.End()

	logger.DebugSkip(ctx, 1, "Fetching order detail", "order_id", id)

	rec, ok := o.source.GetOrder(ctx, id)
	if !ok {
		logger.WarnSkip(ctx, 1, "Order detail not available", "order_id", id)
		return nil, false
	}

	logger.DebugSkip(ctx, 1, "Order detail fetched", "order_id", id, "fields", len(rec))
	return rec, true
}
