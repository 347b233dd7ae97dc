package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/ariefcatur/bracelet-orders/internal/orders"
)

// NotApplicable replaces reading-derived fields on standard products.
const NotApplicable = "N/A"

// Payload is the flat row the ledger appends. Every member is a string or a number
// so nothing is ever sent as null.
type Payload struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	Gender             string `json:"gender"`
	BirthDate          string `json:"birthDate"`
	BirthTime          string `json:"birthTime"`
	Wish               string `json:"wish"`
	ZodiacSign         string `json:"zodiacSign"`
	Element            string `json:"element"`
	LuckyElement       string `json:"luckyElement"`
	Bazi               string `json:"bazi"`
	FiveElements       string `json:"fiveElements"`
	SuggestedCrystals  string `json:"suggestedCrystals"`
	Reasoning          string `json:"reasoning"`
	VisualDescription  string `json:"visualDescription"`
	ColorPalette       string `json:"colorPalette"`
	ImageBase64        string `json:"imageBase64"`
	CreatedAt          string `json:"createdAt"`
	RealName           string `json:"realName"`
	Phone              string `json:"phone"`
	StoreCode          string `json:"storeCode"`
	StoreName          string `json:"storeName"`
	SocialID           string `json:"socialId"`
	WristSize          string `json:"wristSize"`
	AddPurificationBag string `json:"addPurificationBag"`
	PreferredColors    string `json:"preferredColors"`
	TotalPrice         int64  `json:"totalPrice"`
	CouponCode         string `json:"couponCode"`
	DiscountAmount     int64  `json:"discountAmount"`
}

// BuildPayload flattens a record. image is the already prepared image field.
func BuildPayload(rec orders.CustomerRecord, image string, loc *time.Location) Payload {
	p := Payload{
		ID:          rec.ID,
		Name:        rec.Name,
		Gender:      rec.Gender,
		BirthDate:   rec.BirthDate,
		BirthTime:   rec.BirthTime,
		Wish:        rec.Wish,
		ImageBase64: image,
		CreatedAt:   FormatLocaleTime(rec.CreatedAt, loc),
	}

	switch {
	case rec.Variant == orders.VariantStandard:
		p.ZodiacSign = NotApplicable
		p.Element = NotApplicable
		p.LuckyElement = NotApplicable
		p.Bazi = NotApplicable
		p.FiveElements = NotApplicable
		p.SuggestedCrystals = NotApplicable
		p.Reasoning = NotApplicable
		p.VisualDescription = NotApplicable
		p.ColorPalette = NotApplicable
	case rec.Analysis != nil:
		a := rec.Analysis
		p.ZodiacSign = a.ZodiacSign
		p.Element = a.Element
		p.LuckyElement = a.LuckyElement
		p.Bazi = a.Bazi
		p.FiveElements = a.FiveElements
		p.SuggestedCrystals = strings.Join(a.SuggestedCrystals, ", ")
		p.Reasoning = a.Reasoning
		p.VisualDescription = a.VisualDescription
		p.ColorPalette = strings.Join(a.ColorPalette, ", ")
	}

	if s := rec.Shipping; s != nil {
		p.RealName = s.RealName
		p.Phone = s.Phone
		p.StoreCode = s.StoreCode
		p.StoreName = s.StoreName
		p.SocialID = s.SocialID
		p.WristSize = s.WristSize
		p.AddPurificationBag = yesNo(s.PurificationBag)
		p.PreferredColors = strings.Join(s.PreferredColors, ", ")
		p.TotalPrice = s.TotalPrice
		p.CouponCode = s.CouponCode
		p.DiscountAmount = s.DiscountAmount
	}
	return p
}

func yesNo(b bool) string {
	if b {
		return "是"
	}
	return "否"
}

// FormatLocaleTime renders t the way a zh-TW browser prints a timestamp,
// e.g. 2026/10/19 下午3:04:05. A zero time renders empty.
func FormatLocaleTime(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	if loc != nil {
		t = t.In(loc)
	}
	period := "上午"
	h := t.Hour()
	if h >= 12 {
		period = "下午"
	}
	if h = h % 12; h == 0 {
		h = 12
	}
	return fmt.Sprintf("%d/%d/%d %s%d:%02d:%02d", t.Year(), int(t.Month()), t.Day(), period, h, t.Minute(), t.Second())
}
