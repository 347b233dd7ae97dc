package form

import "context"

// Patch is a batch of field edits; nil members are left alone.
type Patch struct {
	RealName        *string   `json:"realName,omitempty"`
	Phone           *string   `json:"phone,omitempty"`
	StoreCode       *string   `json:"storeCode,omitempty"`
	StoreName       *string   `json:"storeName,omitempty"`
	SocialID        *string   `json:"socialId,omitempty"`
	WristSize       *string   `json:"wristSize,omitempty"`
	CustomSize      *bool     `json:"customSize,omitempty"`
	PurificationBag *bool     `json:"addPurificationBag,omitempty"`
	PreferredColors *[]string `json:"preferredColors,omitempty"`
	Agreement       *bool     `json:"agreement,omitempty"`
	CouponCode      *string   `json:"couponCode,omitempty"`
}

// Apply runs each present edit through its setter, in form order. Store name is
// applied after store code so an explicit name wins over one parsed from a paste.
func (c *Controller) Apply(ctx context.Context, p Patch) {
	if p.RealName != nil {
		c.SetRealName(ctx, *p.RealName)
	}
	if p.Phone != nil {
		c.SetPhone(ctx, *p.Phone)
	}
	if p.StoreCode != nil {
		c.SetStoreCode(ctx, *p.StoreCode)
	}
	if p.StoreName != nil {
		c.SetStoreName(ctx, *p.StoreName)
	}
	if p.SocialID != nil {
		c.SetSocialID(ctx, *p.SocialID)
	}
	if p.CustomSize != nil {
		c.SetCustomSize(ctx, *p.CustomSize)
	}
	if p.WristSize != nil {
		c.SetWristSize(ctx, *p.WristSize)
	}
	if p.PurificationBag != nil {
		c.SetPurificationBag(ctx, *p.PurificationBag)
	}
	if p.PreferredColors != nil {
		c.SetPreferredColors(ctx, *p.PreferredColors)
	}
	if p.Agreement != nil {
		c.SetAgreement(ctx, *p.Agreement)
	}
	if p.CouponCode != nil {
		c.SetCouponInput(ctx, *p.CouponCode)
	}
}
