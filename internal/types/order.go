package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// RawRecord is one upstream order record as decoded from JSON
type RawRecord map[string]any

// RawPair keeps the upstream payloads an Order was normalized from
type RawPair struct {
	Summary RawRecord `json:"lista"`
	Detail  RawRecord `json:"detalhes"`
}

// Order is the canonical, normalized sales order
type Order struct {
	ID            string          `json:"id"`
	Number        string          `json:"number"`
	EmittedAt     *time.Time      `json:"emitted_at,omitempty"`
	EmittedLabel  string          `json:"emitted_label"`
	StatusCode    *int            `json:"status_code,omitempty"`
	StatusLabel   string          `json:"status_label"`
	VendorID      string          `json:"vendor_id,omitempty"`
	VendorName    string          `json:"vendor_name"`
	Total         decimal.Decimal `json:"total"`
	Freight       decimal.Decimal `json:"freight"`
	Items         []LineItem      `json:"items"`
	Installments  []Installment   `json:"installments,omitempty"`
	Notes         string          `json:"notes,omitempty"`
	InternalNotes string          `json:"internal_notes,omitempty"`
	Margin        string          `json:"margin,omitempty"`
	DetailLoaded  bool            `json:"-"`
	Raw           RawPair         `json:"-"`
}

// DisplayNumber returns the number shown to users, falling back to the id
func (o Order) DisplayNumber() string {
	if o.Number != "" {
		return o.Number
	}
	return o.ID
}

// LineItem is one product line of an order
type LineItem struct {
	Name      string          `json:"name"`
	SKU       string          `json:"sku"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Amount is quantity times unit price
func (li LineItem) Amount() decimal.Decimal {
	return li.Quantity.Mul(li.UnitPrice)
}

// Installment is one payment installment of an order
type Installment struct {
	ID              string          `json:"id,omitempty"`
	DueDate         string          `json:"due_date"`
	Value           decimal.Decimal `json:"value"`
	Notes           string          `json:"notes,omitempty"`
	Authorization   string          `json:"authorization,omitempty"`
	PaymentMethodID string          `json:"payment_method_id,omitempty"`
	PaymentMethod   string          `json:"payment_method,omitempty"`
}
