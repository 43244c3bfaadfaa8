// Package normalize holds the string canonicalization used for
// identity resolution: diacritics stripping, phone and address keys,
// and the name-similarity heuristic.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MinPhoneLen is the shortest normalized phone treated as a real,
// near-unique identifier. Anything shorter is ignored by the phone
// index and never used as a customer id.
const MinPhoneLen = 9

var stripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// StripDiacritics removes combining marks and maps the letters NFD
// does not decompose (Vietnamese đ) to their ASCII equivalents.
func StripDiacritics(s string) string {
	out, _, err := transform.String(stripper, s)
	if err != nil {
		out = s
	}
	out = strings.ReplaceAll(out, "đ", "d")
	out = strings.ReplaceAll(out, "Đ", "D")
	return out
}

// Key lowercases, strips diacritics and drops every non-alphanumeric
// rune. Used for address keys and id hashing.
func Key(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(StripDiacritics(s)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Words lowercases, strips diacritics, replaces punctuation with spaces
// and collapses whitespace, preserving token boundaries for the
// similarity heuristic.
func Words(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(StripDiacritics(s)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Phone keeps only digits and coerces country-code prefixes to the
// local 0-leading convention ("+84912..." -> "0912...").
func Phone(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	switch {
	case strings.HasPrefix(digits, "0084"):
		return "0" + digits[4:]
	case strings.HasPrefix(digits, "84") && len(digits) >= 10:
		return "0" + digits[2:]
	}
	return digits
}

// Address is the index key for a free-text address.
func Address(s string) string {
	return Key(s)
}
