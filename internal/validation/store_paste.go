package validation

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// StorePaste is what could be recovered from text copied out of a map or store locator.
type StorePaste struct {
	Code string
	Name string // may be empty when only the code was found
}

const storeSuffix = "門市"

var (
	sixDigitRe = regexp.MustCompile(`(?:^|\D)(\d{6})(?:\D|$)`)

	// longest first so "門市店號" goes before "店號"
	boilerplate = []string{
		"統一超商股份有限公司",
		"門市店號",
		"門市名稱",
		"門市地址",
		"門市電話",
		"統一超商",
		"7-ELEVEN",
		"7-Eleven",
		"7-11",
		"店號",
		"地址",
		"電話",
	}

	brackets = "()（）[]【】「」『』<>〈〉《》{}"
)

// ParseStorePaste pulls a store code and name out of pasted text. It reports false
// for short input or text with no 6-digit run; callers then keep what they had.
func ParseStorePaste(text string) (StorePaste, bool) {
	if utf8.RuneCountInString(text) <= 8 {
		return StorePaste{}, false
	}
	m := sixDigitRe.FindStringSubmatchIndex(text)
	if m == nil {
		return StorePaste{}, false
	}
	code := text[m[2]:m[3]]
	rest := text[:m[2]] + " " + text[m[3]:]

	for _, b := range boilerplate {
		rest = strings.ReplaceAll(rest, b, " ")
	}
	rest = strings.Map(func(r rune) rune {
		if strings.ContainsRune(brackets, r) {
			return ' '
		}
		return r
	}, rest)

	tokens := strings.FieldsFunc(rest, func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune(",，:：、|/;；", r)
	})

	return StorePaste{Code: code, Name: pickStoreName(tokens)}, true
}

func pickStoreName(tokens []string) string {
	for _, t := range tokens {
		if strings.HasSuffix(t, storeSuffix) && utf8.RuneCountInString(t) > utf8.RuneCountInString(storeSuffix) {
			return t
		}
	}
	for _, t := range tokens {
		if utf8.RuneCountInString(t) >= 2 {
			return t
		}
	}
	return ""
}
