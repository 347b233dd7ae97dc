package orders

import "time"

type Variant string

const (
	VariantStandard Variant = "standard"
	VariantCustom   Variant = "custom"
)

func (v Variant) Valid() bool {
	return v == VariantStandard || v == VariantCustom
}

// PricingPolicy describes how one product variant is priced. Amounts are whole
// currency units. ShippingCost 0 means shipping is bundled into the base price.
type PricingPolicy struct {
	Variant       Variant `json:"variant" validate:"required,oneof=standard custom"`
	BasePrice     int64   `json:"basePrice" validate:"gte=0"`
	ShippingCost  int64   `json:"shippingCost" validate:"gte=0"`
	SizeThreshold float64 `json:"sizeThreshold" validate:"gt=0"`
	Surcharge     int64   `json:"surcharge" validate:"gte=0"`
	AddonCost     int64   `json:"addonCost" validate:"gte=0"` // purification bag
}

type Coupon struct {
	Code           string `json:"code"`
	DiscountAmount int64  `json:"discountAmount" validate:"gte=0"`
	EventName      string `json:"eventName"`
	IsEnabled      bool   `json:"isEnabled"`
}

// DraftFields is the working state of one in-progress shipping form.
type DraftFields struct {
	RealName        string   `json:"realName"`
	Phone           string   `json:"phone"`
	StoreCode       string   `json:"storeCode"`
	StoreName       string   `json:"storeName"`
	SocialID        string   `json:"socialId"`
	WristSize       string   `json:"wristSize"`
	CustomSize      bool     `json:"customSize"`
	PurificationBag bool     `json:"addPurificationBag"`
	PreferredColors []string `json:"preferredColors"`
	Agreement       bool     `json:"agreement"`
	CouponCode      string   `json:"couponCode,omitempty"`
	// AppliedCoupon is the code that was last applied; CouponCode is only the text box.
	AppliedCoupon   string   `json:"appliedCoupon,omitempty"`
}

func (d DraftFields) IsZero() bool {
	return d.RealName == "" && d.Phone == "" && d.StoreCode == "" && d.StoreName == "" &&
		d.SocialID == "" && d.WristSize == "" && !d.CustomSize && !d.PurificationBag &&
		len(d.PreferredColors) == 0 && !d.Agreement && d.CouponCode == "" && d.AppliedCoupon == ""
}

// ShippingDetails is the finalized, validated form output.
type ShippingDetails struct {
	RealName        string   `json:"realName"`
	Phone           string   `json:"phone"`
	StoreCode       string   `json:"storeCode"`
	StoreName       string   `json:"storeName"`
	SocialID        string   `json:"socialId"`
	WristSize       string   `json:"wristSize"`
	PurificationBag bool     `json:"addPurificationBag"`
	PreferredColors []string `json:"preferredColors"`
	CouponCode      string   `json:"couponCode,omitempty"`
	DiscountAmount  int64    `json:"discountAmount,omitempty"`
	TotalPrice      int64    `json:"totalPrice"`
}

// Analysis is produced by the external reading collaborator for custom products.
type Analysis struct {
	ZodiacSign        string   `json:"zodiacSign"`
	Element           string   `json:"element"`
	LuckyElement      string   `json:"luckyElement"`
	Bazi              string   `json:"bazi"`
	FiveElements      string   `json:"fiveElements"`
	SuggestedCrystals []string `json:"suggestedCrystals"`
	Reasoning         string   `json:"reasoning"`
	VisualDescription string   `json:"visualDescription"`
	ColorPalette      []string `json:"colorPalette"`
}

// CustomerRecord is the parent order a ShippingDetails record is attached to.
// ImageRef is either a remote URL or a base64 data URL.
type CustomerRecord struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Gender    string           `json:"gender"`
	BirthDate string           `json:"birthDate"`
	BirthTime string           `json:"birthTime"`
	Wish      string           `json:"wish"`
	Variant   Variant          `json:"variant"`
	Analysis  *Analysis        `json:"analysis,omitempty"`
	ImageRef  string           `json:"imageRef,omitempty"`
	CreatedAt time.Time        `json:"createdAt"`
	Shipping  *ShippingDetails `json:"shipping,omitempty"`
}

// SyncStatus is the locally stored outcome of delivering a record to the ledger.
type SyncStatus struct {
	RecordID  string    `json:"recordId"`
	Status    Status    `json:"status"`
	Outcome   string    `json:"outcome,omitempty"`
	Attempts  int       `json:"attempts"`
	Notice    string    `json:"notice,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}
