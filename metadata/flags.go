package metadata

import (
	"strings"

	"golang.org/x/text/language"
)

// regionalIndicatorA is REGIONAL INDICATOR SYMBOL LETTER A. A pair of these
// renders as the flag of the matching ISO 3166-1 alpha-2 code.
const regionalIndicatorA = 0x1F1E6

// Flag renders a two letter country code as a flag emoji. Codes that aren't
// an ISO 3166 country are rejected.
func Flag(code string) (string, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !isLetterPair(code) {
		return "", false
	}
	region, err := language.ParseRegion(code)
	if err != nil || !region.IsCountry() {
		return "", false
	}
	return regionalIndicators(code), true
}

// CodeFromFlag recovers the country code from a flag emoji.
func CodeFromFlag(flag string) (string, bool) {
	runes := []rune(flag)
	if len(runes) != 2 {
		return "", false
	}
	code := make([]byte, 0, 2)
	for _, r := range runes {
		offset := r - regionalIndicatorA
		if offset < 0 || offset > 'Z'-'A' {
			return "", false
		}
		code = append(code, byte('A'+offset))
	}
	return string(code), true
}

func regionalIndicators(code string) string {
	runes := make([]rune, 0, len(code))
	for _, letter := range code {
		runes = append(runes, regionalIndicatorA+(letter-'A'))
	}
	return string(runes)
}

func isLetterPair(code string) bool {
	if len(code) != 2 {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < 'A' || code[i] > 'Z' {
			return false
		}
	}
	return true
}
