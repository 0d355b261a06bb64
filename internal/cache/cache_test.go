package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sales-dashboard/internal/types"
)

func monthRange() types.DateRange {
	return types.NewDateRange(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC))
}

func panelKey(fp types.Fingerprint) PanelKey {
	return PanelKey{Range: monthRange(), Fingerprint: fp, Kind: KindMonthStatus, Filters: "valor"}
}

func counting(label string, n *int32) Compute {
	return func(context.Context) (types.Panel, bool) {
		atomic.AddInt32(n, 1)
		return types.Panel{Label: label}, true
	}
}

func TestPanelsHitShortCircuits(t *testing.T) {
	p := NewPanels()
	var calls int32
	key := panelKey(types.Fingerprint{HeadID: "1", HeadEmitted: "2024-03-05"})

	v, hit := p.Get(context.Background(), key, false, counting("a", &calls))
	assert.False(t, hit)
	assert.Equal(t, "a", v.Label)

	v, hit = p.Get(context.Background(), key, false, counting("b", &calls))
	assert.True(t, hit)
	assert.Equal(t, "a", v.Label)
	assert.Equal(t, int32(1), calls)
}

func TestPanelsFingerprintChangeReplacesSlot(t *testing.T) {
	p := NewPanels()
	var calls int32
	old := panelKey(types.Fingerprint{HeadID: "1"})
	fresh := panelKey(types.Fingerprint{HeadID: "2"})

	p.Get(context.Background(), old, false, counting("old", &calls))
	v, hit := p.Get(context.Background(), fresh, false, counting("new", &calls))
	assert.False(t, hit)
	assert.Equal(t, "new", v.Label)
	assert.Equal(t, 1, p.Len())

	v, hit = p.Get(context.Background(), old, false, counting("old-again", &calls))
	assert.False(t, hit)
	assert.Equal(t, "old-again", v.Label)
}

func TestPanelsSeparateSlots(t *testing.T) {
	p := NewPanels()
	var calls int32
	a := panelKey(types.EmptyFingerprint)
	b := a
	b.Kind = KindMonthVendor

	p.Get(context.Background(), a, false, counting("a", &calls))
	p.Get(context.Background(), b, false, counting("b", &calls))

	v, hit := p.Get(context.Background(), a, false, counting("x", &calls))
	assert.True(t, hit)
	assert.Equal(t, "a", v.Label)
	assert.Equal(t, 2, p.Len())
}

func TestPanelsForceBypassesWithoutEvicting(t *testing.T) {
	p := NewPanels()
	var calls int32
	key := panelKey(types.Fingerprint{HeadID: "1"})

	p.Get(context.Background(), key, false, counting("stored", &calls))

	v, hit := p.Get(context.Background(), key, true, counting("forced", &calls))
	assert.False(t, hit)
	assert.Equal(t, "forced", v.Label)

	v, hit = p.Get(context.Background(), key, false, counting("unused", &calls))
	assert.True(t, hit)
	assert.Equal(t, "stored", v.Label)
	assert.Equal(t, int32(2), calls)
}

func TestPanelsCollapseConcurrentMisses(t *testing.T) {
	p := NewPanels()
	var calls int32
	key := panelKey(types.Fingerprint{HeadID: "1"})
	release := make(chan struct{})
	slow := func(context.Context) (types.Panel, bool) {
		atomic.AddInt32(&calls, 1)
		<-release
		return types.Panel{Label: "slow"}, true
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, _ := p.Get(context.Background(), key, false, slow)
			assert.Equal(t, "slow", v.Label)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt32(&calls), int32(5))
	_, hit := p.Get(context.Background(), key, false, slow)
	assert.True(t, hit)
}

func snapKey(fp string) SnapshotKey {
	return SnapshotKey{
		Daily:   monthRange(),
		DailyFP: types.Fingerprint{HeadID: fp},
		Month:   monthRange(),
		MonthFP: types.EmptyFingerprint,
		Sort:    types.DefaultSortToggles(),
	}
}

func TestSnapshotsGet(t *testing.T) {
	s := NewSnapshots()
	compute := func(label string) SnapshotCompute {
		return func(context.Context) (*types.Snapshot, bool, error) {
			return &types.Snapshot{MonthLabel: label}, true, nil
		}
	}

	snap, hit, err := s.Get(context.Background(), snapKey("1"), false, compute("first"))
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "first", snap.MonthLabel)

	snap, hit, err = s.Get(context.Background(), snapKey("1"), false, compute("second"))
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "first", snap.MonthLabel)

	snap, hit, _ = s.Get(context.Background(), snapKey("1"), true, compute("forced"))
	assert.False(t, hit)
	assert.Equal(t, "forced", snap.MonthLabel)

	cur, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, "first", cur.MonthLabel)

	snap, hit, _ = s.Get(context.Background(), snapKey("2"), false, compute("third"))
	assert.False(t, hit)
	cur, _ = s.Current()
	assert.Equal(t, "third", cur.MonthLabel)
}

func TestSnapshotsKeyIncludesFilters(t *testing.T) {
	a := snapKey("1")
	b := a
	b.Status = "9"
	c := a
	c.Sort.ProductsDay = types.SortByQuantity
	d := a
	d.WithMargins = true

	assert.NotEqual(t, a.String(), b.String())
	assert.NotEqual(t, a.String(), c.String())
	assert.NotEqual(t, a.String(), d.String())
}

func TestSnapshotsErrorNotStored(t *testing.T) {
	s := NewSnapshots()
	boom := errors.New("boom")

	_, _, err := s.Get(context.Background(), snapKey("1"), false, func(context.Context) (*types.Snapshot, bool, error) {
		return nil, true, boom
	})
	assert.ErrorIs(t, err, boom)
	_, ok := s.Current()
	assert.False(t, ok)
}

func TestPanelsInterruptedNotStored(t *testing.T) {
	p := NewPanels()
	key := panelKey(types.Fingerprint{HeadID: "1"})

	v, hit := p.Get(context.Background(), key, false, func(context.Context) (types.Panel, bool) {
		return types.Panel{Label: "empty"}, false
	})
	assert.False(t, hit)
	assert.Equal(t, "empty", v.Label)
	assert.Zero(t, p.Len())

	var calls int32
	v, hit = p.Get(context.Background(), key, false, counting("full", &calls))
	assert.False(t, hit)
	assert.Equal(t, "full", v.Label)
	assert.Equal(t, int32(1), calls)
}

func TestSnapshotsInterruptedNotStored(t *testing.T) {
	s := NewSnapshots()

	snap, hit, err := s.Get(context.Background(), snapKey("1"), false, func(context.Context) (*types.Snapshot, bool, error) {
		return &types.Snapshot{MonthLabel: "partial"}, false, nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "partial", snap.MonthLabel)

	_, ok := s.Current()
	assert.False(t, ok)
}
