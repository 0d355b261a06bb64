package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func code(c int) *int { return &c }

func TestStatusLabel(t *testing.T) {
	c := Default()

	assert.Equal(t, "ATENDIDO", c.StatusLabel(code(9)))
	assert.Equal(t, "CANCELADO", c.StatusLabel(code(12)))
	assert.Equal(t, "STATUS 777", c.StatusLabel(code(777)))
	assert.Equal(t, "STATUS -", c.StatusLabel(nil))
}

func TestIsCancelled(t *testing.T) {
	c := Default()
	assert.True(t, c.IsCancelled(code(12)))
	assert.False(t, c.IsCancelled(code(9)))
	assert.False(t, c.IsCancelled(nil))

	custom := New(nil, nil, nil, 99)
	assert.True(t, custom.IsCancelled(code(99)))
	assert.Equal(t, 99, custom.CancelledStatus())
}

func TestVendors(t *testing.T) {
	c := Default()

	name, ok := c.VendorName(" 15596309360 ")
	assert.True(t, ok)
	assert.Equal(t, "WENIO", name)

	_, ok = c.VendorName("123")
	assert.False(t, ok)

	assert.Equal(t, "JOICE", c.RollupVendor("  joice "))
	assert.Equal(t, UnknownVendor, c.RollupVendor("123"))
	assert.Equal(t, UnknownVendor, c.RollupVendor("-"))

	vendors := c.Vendors()
	assert.Len(t, vendors, 4)
	assert.Equal(t, "MERCADO LIVRE", vendors[0].Name)

	vendors[0].Name = "changed"
	assert.Equal(t, "MERCADO LIVRE", c.Vendors()[0].Name)
}

func TestPaymentMethod(t *testing.T) {
	c := Default()
	assert.Equal(t, "PAGAR.ME", c.PaymentMethod("1917260"))
	assert.Equal(t, "CONTA A RECEBER", c.PaymentMethod("554129"))
	assert.Equal(t, "42", c.PaymentMethod("42"))
	assert.Empty(t, c.PaymentMethod(""))
}
