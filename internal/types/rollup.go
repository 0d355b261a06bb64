package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// SortMode selects the ordering of value-ranked panels
type SortMode string

const (
	SortByValue    SortMode = "valor"
	SortByQuantity SortMode = "qtd"
)

// ParseSortMode maps a query value to a SortMode, defaulting to SortByValue
func ParseSortMode(s string) SortMode {
	if SortMode(s) == SortByQuantity {
		return SortByQuantity
	}
	return SortByValue
}

// Detail is one member of a bucket, kept for drill-down
type Detail struct {
	OrderID     string          `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	Date        *time.Time      `json:"date,omitempty"`
	DateLabel   string          `json:"date_label"`
	Quantity    decimal.Decimal `json:"quantity"`
	Value       decimal.Decimal `json:"value"`
	StatusCode  *int            `json:"status_code,omitempty"`
	StatusLabel string          `json:"status_label"`
	Cancelled   bool            `json:"cancelled"`
}

// Bucket is one aggregation unit of a rollup.
// Count, Quantity and Value never include cancelled members; Details does.
type Bucket struct {
	Key          string          `json:"key"`
	Label        string          `json:"label"`
	SKU          string          `json:"sku,omitempty"`
	Count        int             `json:"count"`
	Quantity     decimal.Decimal `json:"quantity"`
	Value        decimal.Decimal `json:"value"`
	HasCancelled bool            `json:"has_cancelled"`
	Details      []Detail        `json:"details"`
}

// Panel is a consumable rollup view
type Panel struct {
	Label         string          `json:"label"`
	Buckets       []Bucket        `json:"buckets"`
	TotalCount    int             `json:"total_count"`
	TotalQuantity decimal.Decimal `json:"total_quantity"`
	TotalValue    decimal.Decimal `json:"total_value"`
}

// DayPanel is the per-vendor breakdown of one day of the short range
type DayPanel struct {
	Day        time.Time       `json:"day"`
	Label      string          `json:"label"`
	Vendors    []Bucket        `json:"vendors"`
	TotalCount int             `json:"total_count"`
	TotalValue decimal.Decimal `json:"total_value"`
}

// Totals sums the daily panels
type Totals struct {
	Orders int             `json:"orders"`
	Value  decimal.Decimal `json:"value"`
}
