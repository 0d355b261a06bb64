// Package cache memoizes computed panels and assembled snapshots behind
// fingerprint-bearing keys.
package cache

import (
	"fmt"
	"strconv"

	"sales-dashboard/internal/types"
)

// PanelKind names one cached panel computation
type PanelKind string

const (
	KindMonthStatus   PanelKind = "month-status"
	KindMonthVendor   PanelKind = "month-vendor"
	KindMonthDay      PanelKind = "month-day"
	KindProductsMonth PanelKind = "products-month"
)

// PanelKey identifies one computed panel. Kind and Filters select the slot;
// Range and Fingerprint decide whether the stored value is still current.
type PanelKey struct {
	Range       types.DateRange
	Fingerprint types.Fingerprint
	Kind        PanelKind
	Filters     string
}

func (k PanelKey) slot() string {
	return string(k.Kind) + "|" + k.Filters
}

func (k PanelKey) String() string {
	return fmt.Sprintf("%s|%s|%s|%s", k.Kind, k.Filters, k.Range, k.Fingerprint)
}

// SnapshotKey identifies one assembled dashboard snapshot
type SnapshotKey struct {
	Daily       types.DateRange
	Status      string
	DailyFP     types.Fingerprint
	Month       types.DateRange
	MonthFP     types.Fingerprint
	Sort        types.SortToggles
	WithMargins bool
}

func (k SnapshotKey) String() string {
	return fmt.Sprintf("daily=%s|status=%s|dfp=%s|month=%s|mfp=%s|sort=%s,%s,%s,%s|margins=%s",
		k.Daily, k.Status, k.DailyFP, k.Month, k.MonthFP,
		k.Sort.ProductsDay, k.Sort.ProductsMonth, k.Sort.Statuses, k.Sort.Vendors,
		strconv.FormatBool(k.WithMargins))
}
