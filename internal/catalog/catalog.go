// Package catalog holds the fixed lookup tables of the upstream ERP:
// status labels, the closed vendor set and payment methods.
package catalog

import (
	"strconv"
	"strings"
)

// UnknownVendor is the catch-all bucket for vendors outside the closed set
const UnknownVendor = "SEM VENDEDOR"

// DefaultCancelledStatus is the upstream status code for cancelled orders
const DefaultCancelledStatus = 12

// Vendor is one entry of the closed vendor table
type Vendor struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// Catalog resolves codes to display labels
type Catalog struct {
	statuses  map[int]string
	vendors   []Vendor
	vendorIDs map[string]string
	names     map[string]string
	payments  map[string]string
	cancelled int
}

// New builds a catalog. Vendor order is kept for panels that list every
// known vendor.
func New(statuses map[int]string, vendors []Vendor, payments map[string]string, cancelled int) *Catalog {
	c := &Catalog{
		statuses:  make(map[int]string, len(statuses)),
		vendorIDs: make(map[string]string, len(vendors)),
		names:     make(map[string]string, len(vendors)),
		payments:  make(map[string]string, len(payments)),
		cancelled: cancelled,
	}
	for code, label := range statuses {
		c.statuses[code] = label
	}
	for _, v := range vendors {
		name := strings.TrimSpace(v.Name)
		c.vendors = append(c.vendors, Vendor{ID: v.ID, Name: name})
		c.vendorIDs[strings.TrimSpace(v.ID)] = name
		c.names[canonicalName(name)] = name
	}
	for id, label := range payments {
		c.payments[strings.TrimSpace(id)] = label
	}
	return c
}

// Default returns the tables used by the production ERP account
func Default() *Catalog {
	return New(DefaultStatuses(), DefaultVendors(), DefaultPaymentMethods(), DefaultCancelledStatus)
}

func DefaultStatuses() map[int]string {
	return map[int]string{
		56035:  "AGUARDANDO SEPARAÇÃO",
		6:      "EM ABERTO",
		466202: "ENVIO ESTOQUE FULL",
		12:     "CANCELADO",
		9:      "ATENDIDO",
		67578:  "ENTREGUE",
		446927: "SEPARADO AGUARD. COLETA",
		21:     "EM DIGITAÇÃO",
		67577:  "ENVIADO",
	}
}

func DefaultVendors() []Vendor {
	return []Vendor{
		{ID: "4664550185", Name: "MERCADO LIVRE"},
		{ID: "15596309360", Name: "WENIO"},
		{ID: "15596488325", Name: "JOICE"},
		{ID: "14402874266", Name: "RANGEL"},
	}
}

func DefaultPaymentMethods() map[string]string {
	return map[string]string{
		"2515978": "CONTA A RECEBER",
		"1917260": "PAGAR.ME",
		"554129":  "CONTA A RECEBER",
	}
}

// CancelledStatus returns the sentinel status code excluded from totals
func (c *Catalog) CancelledStatus() int {
	return c.cancelled
}

// IsCancelled reports whether code is the cancelled sentinel
func (c *Catalog) IsCancelled(code *int) bool {
	return code != nil && *code == c.cancelled
}

// StatusLabel renders a status code. Unmapped codes embed the raw code.
func (c *Catalog) StatusLabel(code *int) string {
	if code == nil {
		return "STATUS -"
	}
	if label, ok := c.statuses[*code]; ok {
		return label
	}
	return "STATUS " + strconv.Itoa(*code)
}

// VendorName looks up a vendor id in the closed table
func (c *Catalog) VendorName(id string) (string, bool) {
	name, ok := c.vendorIDs[strings.TrimSpace(id)]
	return name, ok
}

// KnownVendor maps a display name onto the closed set, ignoring case and
// surrounding space.
func (c *Catalog) KnownVendor(name string) (string, bool) {
	known, ok := c.names[canonicalName(name)]
	return known, ok
}

// RollupVendor returns the bucket name for a display name
func (c *Catalog) RollupVendor(name string) string {
	if known, ok := c.KnownVendor(name); ok {
		return known
	}
	return UnknownVendor
}

// Vendors returns the closed vendor set in table order
func (c *Catalog) Vendors() []Vendor {
	out := make([]Vendor, len(c.vendors))
	copy(out, c.vendors)
	return out
}

// PaymentMethod renders a payment method id, falling back to the raw id
func (c *Catalog) PaymentMethod(id string) string {
	if id == "" {
		return ""
	}
	if label, ok := c.payments[strings.TrimSpace(id)]; ok {
		return label
	}
	return id
}

func canonicalName(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}
