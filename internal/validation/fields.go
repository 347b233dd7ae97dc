// Package validation checks a shipping draft before it may be submitted.
//
// ValidateAll is the authoritative check run at submit time. ClearIfNowNonEmpty
// is the per-edit shortcut that drops a stale message as soon as the field is
// filled in; it never adds errors and never replaces ValidateAll.
package validation

import (
	"strings"

	"github.com/ariefcatur/bracelet-orders/internal/orders"
)

type Field string

const (
	FieldRealName  Field = "realName"
	FieldPhone     Field = "phone"
	FieldStoreCode Field = "storeCode"
	FieldStoreName Field = "storeName"
	FieldSocialID  Field = "socialId"
	FieldWristSize Field = "wristSize"
	FieldAgreement Field = "agreement"
)

// CanonicalOrder decides which failing field is brought to the user's attention first.
var CanonicalOrder = []Field{
	FieldRealName,
	FieldPhone,
	FieldStoreCode,
	FieldStoreName,
	FieldSocialID,
	FieldWristSize,
	FieldAgreement,
}

type Code string

const (
	CodeRequired      Code = "Required"
	CodeInvalidFormat Code = "InvalidFormat"
	CodeOutOfRange    Code = "OutOfRange"
)

type Issue struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

// Errors maps a field to its problem. An empty map means the draft is valid.
type Errors map[Field]Issue

func (e Errors) Has(f Field) bool {
	_, ok := e[f]
	return ok
}

// First returns the earliest failing field in CanonicalOrder.
func (e Errors) First() (Field, bool) {
	for _, f := range CanonicalOrder {
		if e.Has(f) {
			return f, true
		}
	}
	return "", false
}

// Filled reports whether the draft currently holds a non-empty / true value for f.
func Filled(d orders.DraftFields, f Field) bool {
	switch f {
	case FieldRealName:
		return strings.TrimSpace(d.RealName) != ""
	case FieldPhone:
		return strings.TrimSpace(d.Phone) != ""
	case FieldStoreCode:
		return strings.TrimSpace(d.StoreCode) != ""
	case FieldStoreName:
		return strings.TrimSpace(d.StoreName) != ""
	case FieldSocialID:
		return strings.TrimSpace(d.SocialID) != ""
	case FieldWristSize:
		return strings.TrimSpace(d.WristSize) != ""
	case FieldAgreement:
		return d.Agreement
	default:
		return false
	}
}

// ClearIfNowNonEmpty drops the message for f once the draft has a value for it.
// The value may still be invalid; that is left for the next ValidateAll.
func ClearIfNowNonEmpty(errs Errors, f Field, d orders.DraftFields) Errors {
	if errs != nil && Filled(d, f) {
		delete(errs, f)
	}
	return errs
}
