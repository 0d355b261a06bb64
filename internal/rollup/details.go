package rollup

import (
	"context"

	"sales-dashboard/internal/interfaces"
	"sales-dashboard/internal/types"
)

// DetailCache memoizes detail fetches for the duration of one pass.
// Failed lookups are remembered too so an order is requested at most once.
type DetailCache struct {
	source  interfaces.OrderSource
	entries map[string]types.RawRecord
}

func NewDetailCache(source interfaces.OrderSource) *DetailCache {
	return &DetailCache{source: source, entries: make(map[string]types.RawRecord)}
}

func (c *DetailCache) Get(ctx context.Context, id string) (types.RawRecord, bool) {
	if c.source == nil || id == "" {
		return nil, false
	}
	if rec, ok := c.entries[id]; ok {
		return rec, rec != nil
	}
	rec, ok := c.source.GetOrder(ctx, id)
	if !ok {
		rec = nil
	}
	c.entries[id] = rec
	return rec, rec != nil
}
