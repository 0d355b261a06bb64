package cache

import (
	"context"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"sales-dashboard/internal/logger"
	"sales-dashboard/internal/metrics"
	"sales-dashboard/internal/types"
)

const (
	snapshotCacheName = "snapshot"
	snapshotSlot      = "page"
)

type snapshotEntry struct {
	key  string
	snap *types.Snapshot
}

// Snapshots holds the last assembled dashboard snapshot in a single slot
type Snapshots struct {
	store *gocache.Cache
	group singleflight.Group
}

func NewSnapshots() *Snapshots {
	return &Snapshots{store: gocache.New(gocache.NoExpiration, 0)}
}

// SnapshotCompute builds a snapshot; keep false leaves it out of the store
type SnapshotCompute func(ctx context.Context) (snap *types.Snapshot, keep bool, err error)

// Get returns the stored snapshot when its key matches, otherwise computes
// and stores it. Compute errors are returned and nothing is stored. A forced
// lookup computes without storing. The bool reports a cache hit; callers
// must not mutate a returned snapshot.
func (s *Snapshots) Get(ctx context.Context, key SnapshotKey, force bool, compute SnapshotCompute) (*types.Snapshot, bool, error) {
	want := key.String()

	if force {
		metrics.RecordCacheLookup(snapshotCacheName, metrics.ResultBypass)
		logger.CacheEvent(ctx, snapshotCacheName, metrics.ResultBypass)
		snap, _, err := compute(ctx)
		return snap, false, err
	}

	if obj, ok := s.store.Get(snapshotSlot); ok {
		if e := obj.(snapshotEntry); e.key == want {
			metrics.RecordCacheLookup(snapshotCacheName, metrics.ResultHit)
			logger.CacheEvent(ctx, snapshotCacheName, metrics.ResultHit, "key", want)
			return e.snap, true, nil
		}
	}

	metrics.RecordCacheLookup(snapshotCacheName, metrics.ResultMiss)
	logger.CacheEvent(ctx, snapshotCacheName, metrics.ResultMiss, "key", want)

	v, err, _ := s.group.Do(want, func() (any, error) {
		snap, keep, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		if !keep {
			logger.Warn(ctx, "Interrupted snapshot not cached", "key", want)
			return snap, nil
		}
		s.store.Set(snapshotSlot, snapshotEntry{key: want, snap: snap}, gocache.NoExpiration)
		return snap, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.(*types.Snapshot), false, nil
}

// Current returns the stored snapshot, if any
func (s *Snapshots) Current() (*types.Snapshot, bool) {
	obj, ok := s.store.Get(snapshotSlot)
	if !ok {
		return nil, false
	}
	return obj.(snapshotEntry).snap, true
}
