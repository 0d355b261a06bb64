package rollup

import (
	"sort"

	"sales-dashboard/internal/types"
)

// accumulator builds buckets in first-seen order
type accumulator struct {
	index   map[string]int
	buckets []types.Bucket
}

func newAccumulator() *accumulator {
	return &accumulator{index: make(map[string]int)}
}

func (a *accumulator) bucket(key, label, sku string) *types.Bucket {
	if i, ok := a.index[key]; ok {
		return &a.buckets[i]
	}
	a.index[key] = len(a.buckets)
	a.buckets = append(a.buckets, types.Bucket{Key: key, Label: label, SKU: sku, Details: []types.Detail{}})
	return &a.buckets[len(a.buckets)-1]
}

func (a *accumulator) has(key string) bool {
	_, ok := a.index[key]
	return ok
}

// add records one member. Cancelled members only reach Details.
func add(b *types.Bucket, d types.Detail) {
	b.Details = append(b.Details, d)
	if d.Cancelled {
		b.HasCancelled = true
		return
	}
	b.Count++
	b.Quantity = b.Quantity.Add(d.Quantity)
	b.Value = b.Value.Add(d.Value)
}

// panel sums buckets into a Panel
func panel(label string, buckets []types.Bucket) types.Panel {
	p := types.Panel{Label: label, Buckets: buckets}
	if p.Buckets == nil {
		p.Buckets = []types.Bucket{}
	}
	for _, b := range buckets {
		p.TotalCount += b.Count
		p.TotalQuantity = p.TotalQuantity.Add(b.Quantity)
		p.TotalValue = p.TotalValue.Add(b.Value)
	}
	return p
}

// sortBuckets orders buckets descending by the selected measure.
// Equal buckets keep accumulation order.
func sortBuckets(buckets []types.Bucket, mode types.SortMode) {
	sort.SliceStable(buckets, func(i, j int) bool {
		if mode == types.SortByQuantity {
			return buckets[i].Quantity.GreaterThan(buckets[j].Quantity)
		}
		return buckets[i].Value.GreaterThan(buckets[j].Value)
	})
}
