// Package pricing turns a pricing policy and the customer's selections into an
// itemized total. It has no I/O and no failure mode.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/bracelet-orders/internal/orders"
)

type LineKind string

const (
	KindBase      LineKind = "base"
	KindShipping  LineKind = "shipping"
	KindSurcharge LineKind = "surcharge"
	KindAddon     LineKind = "addon"
	KindDiscount  LineKind = "discount"
)

type LineItem struct {
	Kind   LineKind `json:"kind"`
	Label  string   `json:"label"`
	Amount int64    `json:"amount"` // discounts are negative
}

type Quote struct {
	LineItems        []LineItem `json:"lineItems"`
	Total            int64      `json:"total"`
	SurchargeApplied bool       `json:"surchargeApplied"`
}

// Selections are the pricing-relevant parts of a draft. Preferred colors never
// affect the price.
type Selections struct {
	WristSize       string
	CustomSize      bool
	PurificationBag bool
}

func SelectionsFrom(d orders.DraftFields) Selections {
	return Selections{
		WristSize:       d.WristSize,
		CustomSize:      d.CustomSize,
		PurificationBag: d.PurificationBag,
	}
}

// SurchargeApplies: standard products charge the surcharge whenever the customer
// opted into a custom size, whatever number was typed. Custom products charge it
// when the parsed size reaches the threshold; unparseable sizes never do.
func SurchargeApplies(policy orders.PricingPolicy, sel Selections) bool {
	switch policy.Variant {
	case orders.VariantStandard:
		return sel.CustomSize
	case orders.VariantCustom:
		size, ok := orders.ParseWristSize(sel.WristSize)
		if !ok {
			return false
		}
		return size.GreaterThanOrEqual(decimal.NewFromFloat(policy.SizeThreshold))
	default:
		return false
	}
}

// Calculate returns the breakdown and the total. The line amounts always sum to
// the total; a discount larger than the subtotal is cut down so the total stops at 0.
func Calculate(policy orders.PricingPolicy, sel Selections, coupon *orders.Coupon) Quote {
	q := Quote{LineItems: make([]LineItem, 0, 5)}

	q.add(KindBase, "Base price", policy.BasePrice)
	if policy.ShippingCost == 0 {
		q.add(KindShipping, "Shipping (included)", 0)
	} else {
		q.add(KindShipping, "Shipping", policy.ShippingCost)
	}
	if SurchargeApplies(policy, sel) {
		q.SurchargeApplied = true
		q.add(KindSurcharge, "Size surcharge", policy.Surcharge)
	}
	if sel.PurificationBag {
		q.add(KindAddon, "Purification bag", policy.AddonCost)
	}
	if coupon != nil && coupon.DiscountAmount > 0 {
		discount := coupon.DiscountAmount
		if discount > q.Total {
			discount = q.Total
		}
		label := "Coupon " + coupon.Code
		if coupon.EventName != "" {
			label = coupon.EventName + " (" + coupon.Code + ")"
		}
		q.add(KindDiscount, label, -discount)
	}
	if q.Total < 0 {
		q.Total = 0
	}
	return q
}

func (q *Quote) add(kind LineKind, label string, amount int64) {
	q.LineItems = append(q.LineItems, LineItem{Kind: kind, Label: label, Amount: amount})
	q.Total += amount
}

// Line returns the line of the given kind, if present.
func (q Quote) Line(kind LineKind) (LineItem, bool) {
	for _, li := range q.LineItems {
		if li.Kind == kind {
			return li, true
		}
	}
	return LineItem{}, false
}
