package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/bracelet-orders/internal/orders"
)

func standardPolicy() orders.PricingPolicy {
	return orders.PricingPolicy{
		Variant:       orders.VariantStandard,
		BasePrice:     1280,
		ShippingCost:  60,
		SizeThreshold: 17,
		Surcharge:     100,
		AddonCost:     80,
	}
}

func customPolicy() orders.PricingPolicy {
	return orders.PricingPolicy{
		Variant:       orders.VariantCustom,
		BasePrice:     1980,
		ShippingCost:  0,
		SizeThreshold: 17,
		Surcharge:     200,
		AddonCost:     80,
	}
}

func TestSurchargeApplies_Standard(t *testing.T) {
	p := standardPolicy()
	tests := []struct {
		name string
		sel  Selections
		want bool
	}{
		{"toggle off, large size", Selections{WristSize: "25", CustomSize: false}, false},
		{"toggle on, small size", Selections{WristSize: "12", CustomSize: true}, true},
		{"toggle on, empty size", Selections{WristSize: "", CustomSize: true}, true},
		{"toggle on, garbage size", Selections{WristSize: "abc", CustomSize: true}, true},
		{"toggle off, default size", Selections{WristSize: "16", CustomSize: false}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SurchargeApplies(p, tt.sel))
		})
	}
}

func TestSurchargeApplies_Custom(t *testing.T) {
	p := customPolicy()
	tests := []struct {
		name string
		size string
		want bool
	}{
		{"below threshold", "16.9", false},
		{"at threshold", "17", true},
		{"at threshold with decimals", "17.0", true},
		{"above threshold", "18.5", true},
		{"surrounding spaces", " 17.5 ", true},
		{"empty", "", false},
		{"not a number", "large", false},
		{"unit suffix", "17cm", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// the toggle is irrelevant for custom products
			assert.Equal(t, tt.want, SurchargeApplies(p, Selections{WristSize: tt.size, CustomSize: true}))
			assert.Equal(t, tt.want, SurchargeApplies(p, Selections{WristSize: tt.size}))
		})
	}
}

func TestCalculate_Breakdown(t *testing.T) {
	coupon := &orders.Coupon{Code: "SAVE10", DiscountAmount: 100, EventName: "Anniversary", IsEnabled: true}
	q := Calculate(standardPolicy(), Selections{WristSize: "18", CustomSize: true, PurificationBag: true}, coupon)

	require.Len(t, q.LineItems, 5)
	kinds := make([]LineKind, 0, len(q.LineItems))
	for _, li := range q.LineItems {
		kinds = append(kinds, li.Kind)
	}
	assert.Equal(t, []LineKind{KindBase, KindShipping, KindSurcharge, KindAddon, KindDiscount}, kinds)
	assert.Equal(t, int64(1280+60+100+80-100), q.Total)
	assert.True(t, q.SurchargeApplied)

	d, ok := q.Line(KindDiscount)
	require.True(t, ok)
	assert.Equal(t, int64(-100), d.Amount)
	assert.Equal(t, "Anniversary (SAVE10)", d.Label)
}

func TestCalculate_NoOptionalLines(t *testing.T) {
	q := Calculate(customPolicy(), Selections{WristSize: "15"}, nil)

	require.Len(t, q.LineItems, 2)
	ship, ok := q.Line(KindShipping)
	require.True(t, ok)
	assert.Equal(t, int64(0), ship.Amount)
	assert.Equal(t, "Shipping (included)", ship.Label)
	_, ok = q.Line(KindSurcharge)
	assert.False(t, ok)
	assert.Equal(t, int64(1980), q.Total)
}

func TestCalculate_DiscountClampsAtZero(t *testing.T) {
	p := orders.PricingPolicy{Variant: orders.VariantCustom, BasePrice: 100, SizeThreshold: 17}
	q := Calculate(p, Selections{}, &orders.Coupon{Code: "FREE", DiscountAmount: 500, IsEnabled: true})

	assert.Equal(t, int64(0), q.Total)
	d, ok := q.Line(KindDiscount)
	require.True(t, ok)
	assert.Equal(t, int64(-100), d.Amount)
}

func TestCalculate_ZeroDiscountCouponAddsNoLine(t *testing.T) {
	q := Calculate(customPolicy(), Selections{}, &orders.Coupon{Code: "NOOP"})
	_, ok := q.Line(KindDiscount)
	assert.False(t, ok)
	assert.Equal(t, int64(1980), q.Total)
}

func TestCalculate_Reproducible(t *testing.T) {
	sel := Selections{WristSize: "17.5", PurificationBag: true}
	a := Calculate(customPolicy(), sel, nil)
	b := Calculate(customPolicy(), sel, nil)
	assert.Equal(t, a, b)
}

func TestSelectionsFrom(t *testing.T) {
	d := orders.DraftFields{WristSize: "16", CustomSize: true, PurificationBag: true, PreferredColors: []string{"pink"}}
	assert.Equal(t, Selections{WristSize: "16", CustomSize: true, PurificationBag: true}, SelectionsFrom(d))
}
