// Package form drives one shipping form: it keeps the draft persisted on every
// edit, keeps the price current, and turns a valid draft into ShippingDetails.
package form

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/ariefcatur/bracelet-orders/internal/draft"
	"github.com/ariefcatur/bracelet-orders/internal/orders"
	"github.com/ariefcatur/bracelet-orders/internal/pricing"
	"github.com/ariefcatur/bracelet-orders/internal/validation"
)

var (
	ErrCouponsDisabled = errors.New("coupons are disabled")
	ErrInvalidCoupon   = errors.New("invalid coupon code")
	ErrSubmitted       = errors.New("form already submitted")
)

// DefaultWristSize is the baseline size of standard products; it carries no surcharge.
const DefaultWristSize = "16"

type Controller struct {
	policy orders.PricingPolicy
	coupon orders.Coupon
	store  draft.Store
	logger *zap.Logger

	fields    orders.DraftFields
	errs      validation.Errors
	quote     pricing.Quote
	applied   *orders.Coupon
	couponErr error
	focus     validation.Field
	restored  bool
	submitted *orders.ShippingDetails
}

// New restores the draft from store and prices it. policy and coupon are the
// configured values for this product; the controller never changes them.
func New(ctx context.Context, policy orders.PricingPolicy, coupon orders.Coupon, store draft.Store, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Controller{
		policy: policy,
		coupon: coupon,
		store:  store,
		logger: logger.Named("form"),
		errs:   validation.Errors{},
	}

	c.fields, c.restored = store.Load(ctx)
	if policy.Variant == orders.VariantStandard && strings.TrimSpace(c.fields.WristSize) == "" {
		c.fields.WristSize = DefaultWristSize
		c.fields.CustomSize = false
	}
	if c.fields.AppliedCoupon != "" {
		// a restored coupon that no longer applies is dropped quietly
		if cp, err := c.match(c.fields.AppliedCoupon); err == nil {
			c.applied = &cp
		} else {
			c.fields.AppliedCoupon = ""
		}
	}
	c.reprice()
	return c
}

// TakeRestored reports whether a non-empty draft was restored. It answers true at
// most once per controller so the notice is not repeated.
func (c *Controller) TakeRestored() bool {
	r := c.restored
	c.restored = false
	return r
}

func (c *Controller) Fields() orders.DraftFields { return c.fields }

func (c *Controller) Quote() pricing.Quote { return c.quote }

func (c *Controller) Errors() validation.Errors { return c.errs }

// Focus is the field to emphasize after the last failed submit.
func (c *Controller) Focus() validation.Field { return c.focus }

func (c *Controller) AppliedCoupon() *orders.Coupon { return c.applied }

func (c *Controller) CouponError() error { return c.couponErr }

func (c *Controller) SetRealName(ctx context.Context, v string) {
	if c.done() {
		return
	}
	c.fields.RealName = v
	c.changed(ctx, validation.FieldRealName, false)
}

// SetPhone keeps backspaces verbatim and reformats every other edit.
func (c *Controller) SetPhone(ctx context.Context, v string) {
	if c.done() {
		return
	}
	c.fields.Phone = validation.FormatPhoneInput(c.fields.Phone, v)
	c.changed(ctx, validation.FieldPhone, false)
}

// SetStoreCode accepts either a typed code or a pasted store description. A paste
// that parses fills in code and name; anything else is stored as typed.
func (c *Controller) SetStoreCode(ctx context.Context, v string) {
	if c.done() {
		return
	}
	if p, ok := validation.ParseStorePaste(v); ok {
		c.fields.StoreCode = p.Code
		if p.Name != "" {
			c.fields.StoreName = p.Name
			validation.ClearIfNowNonEmpty(c.errs, validation.FieldStoreName, c.fields)
		}
	} else {
		c.fields.StoreCode = v
	}
	c.changed(ctx, validation.FieldStoreCode, false)
}

func (c *Controller) SetStoreName(ctx context.Context, v string) {
	if c.done() {
		return
	}
	c.fields.StoreName = v
	c.changed(ctx, validation.FieldStoreName, false)
}

func (c *Controller) SetSocialID(ctx context.Context, v string) {
	if c.done() {
		return
	}
	c.fields.SocialID = v
	c.changed(ctx, validation.FieldSocialID, false)
}

func (c *Controller) SetWristSize(ctx context.Context, v string) {
	if c.done() {
		return
	}
	c.fields.WristSize = v
	c.changed(ctx, validation.FieldWristSize, true)
}

// SetCustomSize toggles the custom-size opt-in. Turning it off on a standard
// product puts the baseline size back.
func (c *Controller) SetCustomSize(ctx context.Context, on bool) {
	if c.done() {
		return
	}
	c.fields.CustomSize = on
	if !on && c.policy.Variant == orders.VariantStandard {
		c.fields.WristSize = DefaultWristSize
	}
	c.changed(ctx, validation.FieldWristSize, true)
}

func (c *Controller) SetPurificationBag(ctx context.Context, on bool) {
	if c.done() {
		return
	}
	c.fields.PurificationBag = on
	c.changed(ctx, "", true)
}

// SetPreferredColors stores the colors as a set, keeping first-seen order.
func (c *Controller) SetPreferredColors(ctx context.Context, colors []string) {
	if c.done() {
		return
	}
	seen := make(map[string]bool, len(colors))
	out := make([]string, 0, len(colors))
	for _, col := range colors {
		col = strings.TrimSpace(col)
		if col == "" || seen[col] {
			continue
		}
		seen[col] = true
		out = append(out, col)
	}
	c.fields.PreferredColors = out
	c.changed(ctx, "", false)
}

func (c *Controller) SetAgreement(ctx context.Context, on bool) {
	if c.done() {
		return
	}
	c.fields.Agreement = on
	c.changed(ctx, validation.FieldAgreement, false)
}

// SetCouponInput updates the coupon text box. The applied coupon is left as is;
// only ApplyCoupon and RemoveCoupon change it.
func (c *Controller) SetCouponInput(ctx context.Context, v string) {
	if c.done() {
		return
	}
	c.fields.CouponCode = v
	c.changed(ctx, "", false)
}

// ApplyCoupon replaces the applied coupon when code matches the configured one,
// ignoring case. On failure the previous coupon stays applied.
func (c *Controller) ApplyCoupon(ctx context.Context, code string) error {
	if c.done() {
		return ErrSubmitted
	}
	cp, err := c.match(code)
	if err != nil {
		c.couponErr = err
		return err
	}
	c.applied = &cp
	c.couponErr = nil
	c.fields.CouponCode = strings.TrimSpace(code)
	c.fields.AppliedCoupon = cp.Code
	c.changed(ctx, "", true)
	return nil
}

// RemoveCoupon drops the applied coupon and the coupon text.
func (c *Controller) RemoveCoupon(ctx context.Context) {
	if c.done() {
		return
	}
	c.applied = nil
	c.couponErr = nil
	c.fields.CouponCode = ""
	c.fields.AppliedCoupon = ""
	c.changed(ctx, "", true)
}

func (c *Controller) match(code string) (orders.Coupon, error) {
	if !c.coupon.IsEnabled {
		return orders.Coupon{}, ErrCouponsDisabled
	}
	code = strings.TrimSpace(code)
	if code == "" || c.coupon.Code == "" || !strings.EqualFold(code, c.coupon.Code) {
		return orders.Coupon{}, ErrInvalidCoupon
	}
	return c.coupon, nil
}

type SubmitResult struct {
	Details *orders.ShippingDetails
	Quote   pricing.Quote
	Errors  validation.Errors
	Focus   validation.Field
}

func (r SubmitResult) OK() bool { return r.Details != nil }

// Submit validates the whole draft. On failure it records the errors and the
// earliest failing field and leaves the draft in place. On success it clears the
// draft and returns the finalized record; later calls return the same record and
// later edits are ignored.
func (c *Controller) Submit(ctx context.Context) SubmitResult {
	if c.submitted != nil {
		return SubmitResult{Details: c.submitted, Quote: c.quote, Errors: validation.Errors{}}
	}

	errs := validation.ValidateAll(c.fields)
	c.errs = errs
	if len(errs) > 0 {
		c.focus, _ = errs.First()
		return SubmitResult{Errors: errs, Focus: c.focus, Quote: c.quote}
	}
	c.focus = ""

	if phone, ok := validation.NormalizePhone(c.fields.Phone); ok {
		c.fields.Phone = phone
	}
	c.reprice()

	d := &orders.ShippingDetails{
		RealName:        strings.TrimSpace(c.fields.RealName),
		Phone:           c.fields.Phone,
		StoreCode:       strings.TrimSpace(c.fields.StoreCode),
		StoreName:       strings.TrimSpace(c.fields.StoreName),
		SocialID:        strings.TrimSpace(c.fields.SocialID),
		WristSize:       c.fields.WristSize,
		PurificationBag: c.fields.PurificationBag,
		PreferredColors: append([]string(nil), c.fields.PreferredColors...),
		TotalPrice:      c.quote.Total,
	}
	if c.applied != nil {
		d.CouponCode = c.applied.Code
		d.DiscountAmount = c.applied.DiscountAmount
	}

	if err := c.store.Clear(ctx); err != nil {
		c.logger.Warn("draft clear failed after submit", zap.Error(err))
	}
	c.submitted = d
	return SubmitResult{Details: d, Quote: c.quote, Errors: errs}
}

// done reports whether the form was submitted. A submitted form ignores edits so
// the cleared draft is not written back.
func (c *Controller) done() bool { return c.submitted != nil }

// changed persists the draft, drops a now-stale error for field and reprices
// when the edit touched a pricing input.
func (c *Controller) changed(ctx context.Context, field validation.Field, pricingInput bool) {
	if err := c.store.Save(ctx, c.fields); err != nil {
		c.logger.Warn("draft save failed", zap.Error(err))
	}
	if field != "" {
		validation.ClearIfNowNonEmpty(c.errs, field, c.fields)
	}
	if pricingInput {
		c.reprice()
	}
}

func (c *Controller) reprice() {
	c.quote = pricing.Calculate(c.policy, pricing.SelectionsFrom(c.fields), c.applied)
}
