package rollup

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sales-dashboard/internal/catalog"
	"sales-dashboard/internal/normalize"
	"sales-dashboard/internal/sourcefake"
	"sales-dashboard/internal/types"
)

func day(d int) *time.Time {
	t := time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func status(code int) *int { return &code }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func order(id string, d int, total string, code int, vendor string) types.Order {
	o := types.Order{
		ID:           id,
		Number:       id,
		EmittedAt:    day(d),
		EmittedLabel: day(d).Format(normalize.DayLabelLayout),
		StatusCode:   status(code),
		VendorName:   vendor,
		VendorID:     "x",
		Total:        dec(total),
		DetailLoaded: true,
	}
	return o
}

func march() types.DateRange {
	return types.NewDateRange(*day(1), *day(31))
}

func keys(p types.Panel) []string {
	out := make([]string, 0, len(p.Buckets))
	for _, b := range p.Buckets {
		out = append(out, b.Key)
	}
	return out
}

func newEngine(src *sourcefake.Source) *Engine {
	cat := catalog.Default()
	if src == nil {
		return New(cat, normalize.New(cat, time.UTC), nil)
	}
	return New(cat, normalize.New(cat, time.UTC), src)
}

func TestCancellationExclusion(t *testing.T) {
	e := newEngine(nil)
	orders := []types.Order{
		order("1", 5, "100", catalog.DefaultCancelledStatus, "WENIO"),
		order("2", 5, "50", 9, "WENIO"),
	}

	p := e.Vendors(context.Background(), orders, march(), types.SortByValue, nil)

	require.Len(t, p.Buckets, 1)
	b := p.Buckets[0]
	assert.Equal(t, "WENIO", b.Label)
	assert.Equal(t, 1, b.Count)
	assert.True(t, b.Value.Equal(dec("50")))
	assert.True(t, b.HasCancelled)
	require.Len(t, b.Details, 2)
	assert.True(t, b.Details[0].Cancelled)
	assert.False(t, b.Details[1].Cancelled)
	assert.Equal(t, 1, p.TotalCount)
	assert.True(t, p.TotalValue.Equal(dec("50")))
}

func TestStatusesKeepCancelledBucket(t *testing.T) {
	e := newEngine(nil)
	orders := []types.Order{
		order("1", 5, "100", 12, "WENIO"),
		order("2", 5, "50", 9, "WENIO"),
		order("3", 6, "70", 777, "JOICE"),
	}
	orders = append(orders, types.Order{ID: "4", EmittedAt: day(7), Total: dec("5")})

	p := e.Statuses(orders, march(), types.SortByValue)

	assert.Equal(t, []string{"777", "9", "-", "12"}, keys(p))
	labels := map[string]string{}
	for _, b := range p.Buckets {
		labels[b.Key] = b.Label
	}
	assert.Equal(t, "STATUS 777", labels["777"])
	assert.Equal(t, "ATENDIDO", labels["9"])
	assert.Equal(t, "STATUS -", labels["-"])
	assert.Equal(t, "CANCELADO", labels["12"])
	assert.Equal(t, 3, p.TotalCount)
}

func TestProductSortToggle(t *testing.T) {
	e := newEngine(nil)
	o1 := order("1", 5, "0", 9, "WENIO")
	o1.Items = []types.LineItem{{Name: "P1", SKU: "A", Quantity: dec("10"), UnitPrice: dec("10")}}
	o2 := order("2", 5, "0", 9, "WENIO")
	o2.Items = []types.LineItem{{Name: "P2", SKU: "B", Quantity: dec("5"), UnitPrice: dec("40")}}
	orders := []types.Order{o1, o2}

	byValue := e.Products(context.Background(), orders, march(), types.SortByValue, nil)
	byQty := e.Products(context.Background(), orders, march(), types.SortByQuantity, nil)

	assert.Equal(t, []string{"P2", "P1"}, []string{byValue.Buckets[0].Label, byValue.Buckets[1].Label})
	assert.Equal(t, []string{"P1", "P2"}, []string{byQty.Buckets[0].Label, byQty.Buckets[1].Label})
	assert.True(t, byValue.TotalQuantity.Equal(dec("15")))
	assert.True(t, byValue.TotalValue.Equal(dec("300")))
}

func TestProductsCancelledContributions(t *testing.T) {
	e := newEngine(nil)
	o1 := order("1", 5, "0", 12, "WENIO")
	o1.Items = []types.LineItem{{Name: "P1", SKU: "A", Quantity: dec("2"), UnitPrice: dec("10")}}
	o2 := order("2", 5, "0", 9, "WENIO")
	o2.Items = []types.LineItem{{Name: "P1", SKU: "A", Quantity: dec("1.5"), UnitPrice: dec("10")}}

	p := e.Products(context.Background(), []types.Order{o1, o2}, march(), types.SortByValue, nil)

	require.Len(t, p.Buckets, 1)
	b := p.Buckets[0]
	assert.Equal(t, "A", b.SKU)
	assert.True(t, b.Quantity.Equal(dec("1.5")))
	assert.True(t, b.Value.Equal(dec("15")))
	assert.True(t, b.HasCancelled)
	assert.Len(t, b.Details, 2)
}

func TestProductsFetchMissingItems(t *testing.T) {
	src := sourcefake.New()
	src.SetDetail("7", types.RawRecord{
		"itens": []any{map[string]any{"descricao": "Caneca", "codigo": "C1", "quantidade": float64(3), "valor": float64(2)}},
	})
	e := newEngine(src)
	o := order("7", 5, "6", 9, "WENIO")
	o.DetailLoaded = false
	dup := o

	p := e.Products(context.Background(), []types.Order{o, dup}, march(), types.SortByValue, nil)

	require.Len(t, p.Buckets, 1)
	assert.True(t, p.Buckets[0].Quantity.Equal(dec("6")))
	assert.Equal(t, []string{"7"}, src.DetailCalls())
}

func TestSharedDetailCache(t *testing.T) {
	src := sourcefake.New()
	src.SetDetail("7", types.RawRecord{
		"vendedor": map[string]any{"id": "15596488325"},
		"itens":    []any{map[string]any{"descricao": "Caneca", "codigo": "C1", "quantidade": float64(1), "valor": float64(2)}},
	})
	e := newEngine(src)
	o := order("7", 5, "2", 9, "")
	o.VendorID = ""
	o.DetailLoaded = false

	details := NewDetailCache(src)
	vendors := e.Vendors(context.Background(), []types.Order{o}, march(), types.SortByValue, details)
	products := e.Products(context.Background(), []types.Order{o}, march(), types.SortByValue, details)

	require.Len(t, vendors.Buckets, 1)
	assert.Equal(t, "JOICE", vendors.Buckets[0].Label)
	require.Len(t, products.Buckets, 1)
	assert.Equal(t, []string{"7"}, src.DetailCalls(), "one detail fetch serves both passes")
}

func TestVendorsResolveThroughDetail(t *testing.T) {
	src := sourcefake.New()
	src.SetDetail("1", types.RawRecord{"vendedor": map[string]any{"id": "15596488325"}})
	src.SetDetail("2", types.RawRecord{"vendedor": map[string]any{"id": "999", "nome": " rangel "}})
	e := newEngine(src)

	o1 := order("1", 5, "10", 9, "-")
	o1.VendorID, o1.DetailLoaded = "", false
	o2 := order("2", 5, "20", 9, "-")
	o2.VendorID, o2.DetailLoaded = "", false
	o3 := order("3", 5, "30", 9, "FULANO")
	o4 := order("4", 5, "1", 9, "mercado livre")

	p := e.Vendors(context.Background(), []types.Order{o1, o2, o3, o4}, march(), types.SortByValue, nil)

	assert.Equal(t, []string{catalog.UnknownVendor, "RANGEL", "JOICE", "MERCADO LIVRE"}, keys(p))
	assert.ElementsMatch(t, []string{"1", "2"}, src.DetailCalls())
}

func TestDaysDescending(t *testing.T) {
	e := newEngine(nil)
	orders := []types.Order{
		order("1", 3, "10", 9, "WENIO"),
		order("2", 9, "10", 9, "WENIO"),
		order("3", 3, "15", 12, "WENIO"),
		{ID: "4", Total: dec("99")},
	}

	p := e.Days(orders, march())

	assert.Equal(t, []string{"2024-03-09", "2024-03-03"}, keys(p))
	assert.Equal(t, "09/03/24", p.Buckets[0].Label)
	assert.True(t, p.Buckets[1].HasCancelled)
	assert.Equal(t, 1, p.Buckets[1].Count)
	assert.Equal(t, "03/2024", p.Label)
}

func TestDailyVendorsDayCap(t *testing.T) {
	e := newEngine(nil)
	var orders []types.Order
	for _, d := range []int{1, 2, 3, 4, 5} {
		orders = append(orders, order(string(rune('a'+d)), d, "10", 9, "JOICE"))
	}
	orders = append(orders, order("z", 5, "7", 9, "SOMEONE"))

	panels, totals := e.DailyVendors(orders, march(), 3)

	require.Len(t, panels, 3)
	assert.Equal(t, []string{"05/03/24", "04/03/24", "03/03/24"}, []string{panels[0].Label, panels[1].Label, panels[2].Label})

	var names []string
	for _, b := range panels[0].Vendors {
		names = append(names, b.Label)
	}
	assert.Equal(t, []string{"MERCADO LIVRE", "WENIO", "JOICE", "RANGEL", catalog.UnknownVendor}, names)
	assert.Len(t, panels[1].Vendors, 4)

	assert.Equal(t, 2, panels[0].TotalCount)
	assert.True(t, panels[0].TotalValue.Equal(dec("17")))
	assert.Equal(t, 4, totals.Orders)
	assert.True(t, totals.Value.Equal(dec("37")))
}

func TestIdempotence(t *testing.T) {
	e := newEngine(nil)
	orders := []types.Order{
		order("1", 5, "10", 9, "WENIO"),
		order("2", 6, "10", 9, "JOICE"),
		order("3", 6, "10", 6, "RANGEL"),
		order("4", 7, "10", 12, "WENIO"),
	}

	a := e.Vendors(context.Background(), orders, march(), types.SortByValue, nil)
	b := e.Vendors(context.Background(), orders, march(), types.SortByValue, nil)

	if diff := cmp.Diff(keys(a), keys(b)); diff != "" {
		t.Errorf("vendor order changed (-first +second):\n%s", diff)
	}
	assert.Equal(t, []string{"WENIO", "JOICE", "RANGEL"}, keys(a))
	assert.Equal(t, e.Statuses(orders, march(), types.SortByValue), e.Statuses(orders, march(), types.SortByValue))
}

func TestRangeBoundsAndUndated(t *testing.T) {
	e := newEngine(nil)
	orders := []types.Order{
		order("1", 5, "10", 9, "WENIO"),
		{ID: "2", Total: dec("20"), StatusCode: status(9)},
	}
	outside := order("3", 5, "30", 9, "WENIO")
	apr := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	outside.EmittedAt = &apr
	orders = append(orders, outside)

	bounded := e.Statuses(orders, march(), types.SortByValue)
	unbounded := e.Statuses(orders, types.DateRange{}, types.SortByValue)

	assert.Equal(t, 1, bounded.TotalCount)
	assert.Equal(t, 3, unbounded.TotalCount)
}
