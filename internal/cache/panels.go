package cache

import (
	"context"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"sales-dashboard/internal/logger"
	"sales-dashboard/internal/metrics"
	"sales-dashboard/internal/types"
)

const panelCacheName = "panel"

type panelEntry struct {
	key   string
	panel types.Panel
}

// Panels holds one computed panel per (kind, filters) slot. Entries never
// expire; a new key for a slot replaces its value.
type Panels struct {
	store *gocache.Cache
	group singleflight.Group
}

func NewPanels() *Panels {
	return &Panels{store: gocache.New(gocache.NoExpiration, 0)}
}

// Compute builds a panel. keep is false when the panel was built from an
// interrupted fetch and must not be stored.
type Compute func(ctx context.Context) (panel types.Panel, keep bool)

// Get returns the stored panel when its key matches, otherwise computes it.
// A forced lookup computes fresh and leaves the stored entry untouched.
// The bool reports a cache hit.
func (p *Panels) Get(ctx context.Context, key PanelKey, force bool, compute Compute) (types.Panel, bool) {
	want := key.String()

	if force {
		metrics.RecordCacheLookup(panelCacheName, metrics.ResultBypass)
		logger.CacheEvent(ctx, panelCacheName, metrics.ResultBypass, "key", want)
		panel, _ := compute(ctx)
		return panel, false
	}

	if obj, ok := p.store.Get(key.slot()); ok {
		if e := obj.(panelEntry); e.key == want {
			metrics.RecordCacheLookup(panelCacheName, metrics.ResultHit)
			logger.CacheEvent(ctx, panelCacheName, metrics.ResultHit, "key", want)
			return e.panel, true
		}
	}

	metrics.RecordCacheLookup(panelCacheName, metrics.ResultMiss)
	logger.CacheEvent(ctx, panelCacheName, metrics.ResultMiss, "key", want)

	v, _, _ := p.group.Do(want, func() (any, error) {
		panel, keep := compute(ctx)
		if !keep {
			logger.Warn(ctx, "Interrupted panel not cached", "key", want)
			return panel, nil
		}
		p.store.Set(key.slot(), panelEntry{key: want, panel: panel}, gocache.NoExpiration)
		return panel, nil
	})
	return v.(types.Panel), false
}

// Len is the number of occupied slots
func (p *Panels) Len() int {
	return p.store.ItemCount()
}
