// Package rollup aggregates normalized orders into dashboard panels.
//
// Every pass is independent and deterministic: the same orders in the same
// order produce the same buckets in the same order. Count, quantity and
// value never include cancelled orders; bucket details always do.
package rollup

import (
	"context"
	"sort"
	"strconv"

	"github.com/shopspring/decimal"

	"sales-dashboard/internal/catalog"
	"sales-dashboard/internal/interfaces"
	"sales-dashboard/internal/normalize"
	"sales-dashboard/internal/types"
)

const (
	dayKeyLayout  = "2006-01-02"
	monthLabel    = "01/2006"
	productKeySep = "\x00"
	defaultDayCap = 3
	noStatusKey   = "-"
)

var one = decimal.NewFromInt(1)

type Engine struct {
	catalog *catalog.Catalog
	norm    *normalize.Normalizer
	source  interfaces.OrderSource
}

// New builds an engine. source serves the on-demand detail fetches of the
// vendor and product passes and may be nil.
func New(c *catalog.Catalog, norm *normalize.Normalizer, source interfaces.OrderSource) *Engine {
	if c == nil {
		c = catalog.Default()
	}
	if norm == nil {
		norm = normalize.New(c, nil)
	}
	return &Engine{catalog: c, norm: norm, source: source}
}

// Days buckets orders by emission day, most recent first
func (e *Engine) Days(orders []types.Order, rng types.DateRange) types.Panel {
	acc := newAccumulator()
	for _, o := range orders {
		if o.EmittedAt == nil || !rng.Contains(o.EmittedAt) {
			continue
		}
		day := *o.EmittedAt
		add(acc.bucket(day.Format(dayKeyLayout), day.Format(normalize.DayLabelLayout), ""), e.orderDetail(o))
	}
	sort.SliceStable(acc.buckets, func(i, j int) bool {
		return acc.buckets[i].Key > acc.buckets[j].Key
	})
	return panel(rangeLabel(rng), acc.buckets)
}

// DailyVendors breaks the most recent maxDays days down by vendor. Every
// known vendor is listed in catalog order; the unknown-vendor bucket is
// appended when it has members.
func (e *Engine) DailyVendors(orders []types.Order, rng types.DateRange, maxDays int) ([]types.DayPanel, types.Totals) {
	if maxDays <= 0 {
		maxDays = defaultDayCap
	}

	byDay := make(map[string]*accumulator)
	days := make(map[string]types.DayPanel)
	var keys []string
	for _, o := range orders {
		if o.EmittedAt == nil || !rng.Contains(o.EmittedAt) {
			continue
		}
		key := o.EmittedAt.Format(dayKeyLayout)
		acc, ok := byDay[key]
		if !ok {
			acc = newAccumulator()
			byDay[key] = acc
			days[key] = types.DayPanel{Day: *o.EmittedAt, Label: o.EmittedAt.Format(normalize.DayLabelLayout)}
			keys = append(keys, key)
		}
		vendor := e.catalog.RollupVendor(o.VendorName)
		add(acc.bucket(vendor, vendor, ""), e.orderDetail(o))
	}

	sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	if len(keys) > maxDays {
		keys = keys[:maxDays]
	}

	panels := make([]types.DayPanel, 0, len(keys))
	var totals types.Totals
	for _, key := range keys {
		acc := byDay[key]
		dp := days[key]
		for _, v := range e.catalog.Vendors() {
			dp.Vendors = append(dp.Vendors, *acc.bucket(v.Name, v.Name, ""))
		}
		if acc.has(catalog.UnknownVendor) {
			dp.Vendors = append(dp.Vendors, *acc.bucket(catalog.UnknownVendor, catalog.UnknownVendor, ""))
		}
		for _, b := range dp.Vendors {
			dp.TotalCount += b.Count
			dp.TotalValue = dp.TotalValue.Add(b.Value)
		}
		totals.Orders += dp.TotalCount
		totals.Value = totals.Value.Add(dp.TotalValue)
		panels = append(panels, dp)
	}
	return panels, totals
}

// Vendors buckets orders by vendor. Orders listed without a vendor get a
// detail fetch through details, which may be shared across the passes of
// one request; nil uses a private cache. Names outside the closed set fold
// into the unknown bucket.
func (e *Engine) Vendors(ctx context.Context, orders []types.Order, rng types.DateRange, mode types.SortMode, details *DetailCache) types.Panel {
	details = e.detailCache(details)
	acc := newAccumulator()
	for _, o := range orders {
		if !rng.Contains(o.EmittedAt) {
			continue
		}
		vendor := e.vendorOf(ctx, o, details)
		add(acc.bucket(vendor, vendor, ""), e.orderDetail(o))
	}
	sortBuckets(acc.buckets, mode)
	return panel(rangeLabel(rng), acc.buckets)
}

func (e *Engine) detailCache(c *DetailCache) *DetailCache {
	if c != nil {
		return c
	}
	return NewDetailCache(e.source)
}

func (e *Engine) vendorOf(ctx context.Context, o types.Order, details *DetailCache) string {
	if o.VendorID == "" && !o.DetailLoaded && o.ID != "" {
		if det, ok := details.Get(ctx, o.ID); ok {
			id, name := normalize.VendorRef(det)
			if known, ok := e.catalog.VendorName(id); ok {
				return known
			}
			return e.catalog.RollupVendor(name)
		}
	}
	return e.catalog.RollupVendor(o.VendorName)
}

// Statuses buckets orders by raw status code
func (e *Engine) Statuses(orders []types.Order, rng types.DateRange, mode types.SortMode) types.Panel {
	acc := newAccumulator()
	for _, o := range orders {
		if !rng.Contains(o.EmittedAt) {
			continue
		}
		key := noStatusKey
		if o.StatusCode != nil {
			key = strconv.Itoa(*o.StatusCode)
		}
		add(acc.bucket(key, e.catalog.StatusLabel(o.StatusCode), ""), e.orderDetail(o))
	}
	sortBuckets(acc.buckets, mode)
	return panel(rangeLabel(rng), acc.buckets)
}

// Products expands line items and buckets them by (name, SKU). Orders
// listed without items get a detail fetch through details, as in Vendors.
func (e *Engine) Products(ctx context.Context, orders []types.Order, rng types.DateRange, mode types.SortMode, details *DetailCache) types.Panel {
	details = e.detailCache(details)
	acc := newAccumulator()
	for _, o := range orders {
		if !rng.Contains(o.EmittedAt) {
			continue
		}
		items := o.Items
		if len(items) == 0 && !o.DetailLoaded && o.ID != "" {
			if det, ok := details.Get(ctx, o.ID); ok {
				items = e.norm.Items(ctx, det)
			}
		}
		base := e.orderDetail(o)
		for _, it := range items {
			d := base
			d.Quantity = it.Quantity
			d.Value = it.Amount()
			add(acc.bucket(it.Name+productKeySep+it.SKU, it.Name, it.SKU), d)
		}
	}
	sortBuckets(acc.buckets, mode)
	return panel(rangeLabel(rng), acc.buckets)
}

// orderDetail is the drill-down entry of one order; it counts as quantity 1
func (e *Engine) orderDetail(o types.Order) types.Detail {
	d := types.Detail{
		OrderID:     o.ID,
		OrderNumber: o.DisplayNumber(),
		Date:        o.EmittedAt,
		DateLabel:   o.EmittedLabel,
		Quantity:    one,
		Value:       o.Total,
		StatusCode:  o.StatusCode,
		StatusLabel: e.catalog.StatusLabel(o.StatusCode),
		Cancelled:   e.catalog.IsCancelled(o.StatusCode),
	}
	if d.DateLabel == "" {
		d.DateLabel = "-"
	}
	return d
}

func rangeLabel(rng types.DateRange) string {
	if rng.IsZero() {
		return ""
	}
	if rng.From.Equal(rng.To) {
		return rng.From.Format(normalize.DayLabelLayout)
	}
	if rng.From.Year() == rng.To.Year() && rng.From.Month() == rng.To.Month() {
		return rng.From.Format(monthLabel)
	}
	return rng.From.Format(normalize.DayLabelLayout) + " - " + rng.To.Format(normalize.DayLabelLayout)
}
