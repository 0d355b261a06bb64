package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// SortToggles holds the active sort mode of each value-ranked panel
type SortToggles struct {
	ProductsDay   SortMode `json:"products_day"`
	ProductsMonth SortMode `json:"products_month"`
	Statuses      SortMode `json:"statuses"`
	Vendors       SortMode `json:"vendors"`
}

// DefaultSortToggles sorts every panel by value
func DefaultSortToggles() SortToggles {
	return SortToggles{
		ProductsDay:   SortByValue,
		ProductsMonth: SortByValue,
		Statuses:      SortByValue,
		Vendors:       SortByValue,
	}
}

// DashboardRequest describes one dashboard request
type DashboardRequest struct {
	// Range is the short daily range; zero means the default span ending today
	Range       DateRange
	Status      string
	Sort        SortToggles
	WithMargins bool
	Force       bool
}

// Chart is the month's daily value series, oldest day first
type Chart struct {
	Labels []string          `json:"labels"`
	Values []decimal.Decimal `json:"values"`
}

// Fingerprints are the freshness keys the snapshot was computed under
type Fingerprints struct {
	Daily Fingerprint `json:"daily"`
	Month Fingerprint `json:"month"`
}

// Snapshot is the fully assembled multi-panel bundle of one request
type Snapshot struct {
	Period        DateRange    `json:"period"`
	Month         DateRange    `json:"month"`
	Status        string       `json:"status,omitempty"`
	Orders        []Order      `json:"orders"`
	DailyPanels   []DayPanel   `json:"daily_panels"`
	DailyTotals   Totals       `json:"daily_totals"`
	MonthLabel    string       `json:"month_label"`
	MonthStatus   Panel        `json:"month_status"`
	MonthVendor   Panel        `json:"month_vendor"`
	MonthDay      Panel        `json:"month_day"`
	ProductsToday Panel        `json:"products_today"`
	ProductsMonth Panel        `json:"products_month"`
	Chart         Chart        `json:"chart"`
	Sort          SortToggles  `json:"sort"`
	WithMargins   bool         `json:"with_margins"`
	Fingerprints  Fingerprints `json:"fingerprints"`
	GeneratedAt   time.Time    `json:"generated_at"`
	Warnings      []string     `json:"warnings,omitempty"`
	FromCache     bool         `json:"from_cache"`
}

// LastRaw returns the raw payload pair of the last daily order
func (s *Snapshot) LastRaw() (RawPair, bool) {
	if s == nil || len(s.Orders) == 0 {
		return RawPair{}, false
	}
	return s.Orders[len(s.Orders)-1].Raw, true
}
