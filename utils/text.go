package utils

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/unicode/norm"
)

// mojibakeReplacer undoes UTF-8 text that was decoded as Windows-1252, limited
// to the characters that show up in Finnish listings.
var mojibakeReplacer = strings.NewReplacer(
	"Ã¤", "ä",
	"Ã¶", "ö",
	"Ã¥", "å",
	"Ã„", "Ä",
	"Ã–", "Ö",
	"Ã…", "Å",
	"Ã©", "é",
	"â‚¬", "€",
	"mÂ²", "m²",
	"Â²", "²",
	"Â ", " ",
)

// FixMojibake repairs doubly-encoded Finnish text and returns NFC-normalised output.
// A string that round-trips cleanly through Windows-1252 is decoded as a whole;
// mixed strings fall back to the replacement table.
func FixMojibake(s string) string {
	if strings.ContainsAny(s, "Ãâ") || strings.Contains(s, "Â") {
		if raw, err := charmap.Windows1252.NewEncoder().String(s); err == nil && utf8.ValidString(raw) && raw != s {
			s = raw
		} else {
			s = mojibakeReplacer.Replace(s)
		}
	}
	return norm.NFC.String(s)
}

// CleanText strips leading/trailing whitespace and collapses internal whitespace,
// including non-breaking spaces.
func CleanText(s string) string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r)
	})
	return strings.Join(fields, " ")
}
