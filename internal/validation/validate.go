package validation

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/bracelet-orders/internal/orders"
)

var (
	mobileRe    = regexp.MustCompile(`^09\d{8}$`)
	storeCodeRe = regexp.MustCompile(`^\d{6}$`)

	maxWristSize = decimal.NewFromInt(30)
)

var messages = map[Field]string{
	FieldRealName:  "請填寫真實姓名",
	FieldPhone:     "手機號碼格式錯誤，須為 09 開頭共 10 碼",
	FieldStoreCode: "門市店號須為 6 位數字",
	FieldStoreName: "請填寫門市名稱",
	FieldSocialID:  "請填寫社群帳號",
	FieldWristSize: "手圍須為大於 0 且不超過 30 的數字",
	FieldAgreement: "請閱讀並勾選同意事項",
}

// checked is the normalized view of a draft the struct tags run against.
type checked struct {
	RealName  string `json:"realName" validate:"required"`
	Phone     string `json:"phone" validate:"twmobile"`
	StoreCode string `json:"storeCode" validate:"storecode"`
	StoreName string `json:"storeName" validate:"required"`
	SocialID  string `json:"socialId" validate:"required"`
	WristSize string `json:"wristSize" validate:"wristsize"`
	Agreement bool   `json:"agreement" validate:"required"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("twmobile", func(fl validator.FieldLevel) bool {
		return mobileRe.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("storecode", func(fl validator.FieldLevel) bool {
		return storeCodeRe.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("wristsize", func(fl validator.FieldLevel) bool {
		size, ok := orders.ParseWristSize(fl.Field().String())
		return ok && size.IsPositive() && size.LessThanOrEqual(maxWristSize)
	})
	return v
}

// ValidateAll runs every rule against the draft and never stops at the first failure.
func ValidateAll(d orders.DraftFields) Errors {
	in := checked{
		RealName:  strings.TrimSpace(d.RealName),
		Phone:     DigitsOnly(d.Phone),
		StoreCode: strings.TrimSpace(d.StoreCode),
		StoreName: strings.TrimSpace(d.StoreName),
		SocialID:  strings.TrimSpace(d.SocialID),
		WristSize: strings.TrimSpace(d.WristSize),
		Agreement: d.Agreement,
	}

	errs := Errors{}
	err := validate.Struct(in)
	if err == nil {
		return errs
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		// only reachable on a programming error in checked; report nothing rather than panic
		return errs
	}
	for _, fe := range ves {
		f := Field(fe.Field())
		errs[f] = Issue{Code: codeFor(fe.Tag()), Message: messages[f]}
	}
	return errs
}

func codeFor(tag string) Code {
	switch tag {
	case "twmobile", "storecode":
		return CodeInvalidFormat
	case "wristsize":
		return CodeOutOfRange
	default:
		return CodeRequired
	}
}
