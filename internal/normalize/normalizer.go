package normalize

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"sales-dashboard/internal/catalog"
	"sales-dashboard/internal/logger"
	"sales-dashboard/internal/types"
)

// Normalizer maps raw records onto types.Order. It is evaluated once at
// ingestion; nothing downstream reads raw keys.
type Normalizer struct {
	catalog *catalog.Catalog
	loc     *time.Location
}

func New(c *catalog.Catalog, loc *time.Location) *Normalizer {
	if c == nil {
		c = catalog.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Normalizer{catalog: c, loc: loc}
}

// Location is the timezone emission dates are interpreted in
func (n *Normalizer) Location() *time.Location {
	return n.loc
}

// Order normalizes a summary record, enriched by its detail record when one
// was fetched. Detail-level fields (vendor, items, installments, notes)
// prefer the detail; list-level fields prefer the summary.
func (n *Normalizer) Order(ctx context.Context, summary, detail types.RawRecord) types.Order {
	o := types.Order{
		DetailLoaded: detail != nil,
		Raw:          types.RawPair{Summary: summary, Detail: detail},
	}

	o.ID = firstString(IDPaths, summary, detail)
	o.Number = firstString(NumberPaths, summary, detail)

	if raw, ok := firstValue(EmissionPaths, summary, detail); ok {
		if t, ok := ParseDate(raw, n.loc); ok {
			o.EmittedAt = t
		} else {
			logger.Debug(ctx, "Unparsed emission date", "order_id", o.ID, "raw", String(raw))
		}
		o.EmittedLabel = DateLabel(raw, n.loc)
	} else {
		o.EmittedLabel = "-"
	}

	o.StatusCode = n.Status(ctx, summary)
	if o.StatusCode == nil {
		o.StatusCode = n.Status(ctx, detail)
	}
	o.StatusLabel = n.catalog.StatusLabel(o.StatusCode)

	o.VendorID, o.VendorName = n.vendor(detail, summary)

	if raw, ok := firstValue([]string{"total"}, summary, detail); ok {
		o.Total = n.money(ctx, o.ID, "total", raw)
	}
	if raw, ok := firstValue(FreightPaths, detail, summary); ok {
		o.Freight = n.money(ctx, o.ID, "frete", raw)
	}

	o.Items = n.Items(ctx, detail)
	if len(o.Items) == 0 {
		o.Items = n.Items(ctx, summary)
	}

	o.Installments = n.installments(ctx, o.ID, detail)
	if len(o.Installments) == 0 {
		o.Installments = n.installments(ctx, o.ID, summary)
	}

	o.Notes = firstString(NotesPaths, detail, summary)
	o.InternalNotes = firstString([]string{"observacoesInternas"}, detail, summary)

	return o
}

// Status extracts the status code of a raw record
func (n *Normalizer) Status(ctx context.Context, rec types.RawRecord) *int {
	raw, ok := Lookup(rec, StatusPaths...)
	if !ok {
		return nil
	}
	code, ok := ParseInt(raw)
	if !ok {
		logger.Debug(ctx, "Unparsed status code", "raw", String(raw))
		return nil
	}
	return &code
}

// VendorRef returns the vendor id and name carried by a raw record
func VendorRef(rec types.RawRecord) (id, name string) {
	id, _ = LookupString(rec, VendorPaths...)
	name, _ = LookupString(rec, "vendedor.nome")
	return id, name
}

// vendor resolves the per-order vendor display: the closed table by id, the
// name carried by the record, the raw id, or "-".
func (n *Normalizer) vendor(recs ...types.RawRecord) (id, display string) {
	var name string
	for _, rec := range recs {
		rid, rname := VendorRef(rec)
		if id == "" {
			id = rid
		}
		if name == "" {
			name = rname
		}
	}
	if known, ok := n.catalog.VendorName(id); ok {
		return id, known
	}
	if name != "" {
		return id, name
	}
	if id != "" {
		return id, id
	}
	return "", "-"
}

// Items normalizes the "itens" array of a raw record
func (n *Normalizer) Items(ctx context.Context, rec types.RawRecord) []types.LineItem {
	raw, ok := Lookup(rec, "itens")
	if !ok {
		return nil
	}
	list := objects(raw)
	items := make([]types.LineItem, 0, len(list))
	for _, it := range list {
		li := types.LineItem{Name: "-", SKU: "-"}
		if s, ok := LookupString(it, "produto.nome", "descricao"); ok {
			li.Name = s
		}
		if s, ok := LookupString(it, "produto.codigo", "codigo"); ok {
			li.SKU = s
		}
		if q, ok := Lookup(it, "quantidade"); ok {
			qty, parsed := ParseQuantity(q)
			if !parsed {
				logger.Debug(ctx, "Unparsed item quantity", "sku", li.SKU, "raw", String(q))
			}
			li.Quantity = qty
		}
		if p, ok := Lookup(it, "valor"); ok {
			price, parsed := ParseMoney(p)
			if !parsed {
				logger.Debug(ctx, "Unparsed item price", "sku", li.SKU, "raw", String(p))
			}
			li.UnitPrice = price
		}
		items = append(items, li)
	}
	return items
}

func (n *Normalizer) installments(ctx context.Context, orderID string, rec types.RawRecord) []types.Installment {
	raw, ok := Lookup(rec, "parcelas")
	if !ok {
		return nil
	}
	list := objects(raw)
	out := make([]types.Installment, 0, len(list))
	for _, p := range list {
		inst := types.Installment{}
		inst.ID, _ = LookupString(p, "id")
		if due, ok := Lookup(p, "dataVencimento", "vencimento"); ok {
			inst.DueDate = DateLabel(due, n.loc)
		} else {
			inst.DueDate = "-"
		}
		if v, ok := Lookup(p, "valor"); ok {
			inst.Value = n.money(ctx, orderID, "parcelas.valor", v)
		}
		inst.Notes, _ = LookupString(p, "observacoes")
		inst.Authorization, _ = LookupString(p, "caut")
		inst.PaymentMethodID, _ = LookupString(p, "formaPagamento.id")
		inst.PaymentMethod = n.catalog.PaymentMethod(inst.PaymentMethodID)
		out = append(out, inst)
	}
	return out
}

func (n *Normalizer) money(ctx context.Context, orderID, field string, raw any) decimal.Decimal {
	d, ok := ParseMoney(raw)
	if !ok {
		logger.Debug(ctx, "Unparsed monetary value", "order_id", orderID, "field", field, "raw", String(raw))
	}
	return d
}

// Total parses the monetary total of a raw record, zero when absent
func Total(rec types.RawRecord) decimal.Decimal {
	raw, ok := Lookup(rec, "total")
	if !ok {
		return decimal.Zero
	}
	d, _ := ParseMoney(raw)
	return d
}

func firstValue(paths []string, recs ...types.RawRecord) (any, bool) {
	for _, rec := range recs {
		if v, ok := Lookup(rec, paths...); ok {
			return v, true
		}
	}
	return nil, false
}

func firstString(paths []string, recs ...types.RawRecord) string {
	v, ok := firstValue(paths, recs...)
	if !ok {
		return ""
	}
	return String(v)
}
