// Package normalize canonicalizes free-text genre names into a display form
// and a machine code.
package normalize

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	nonCodeChars   = regexp.MustCompile(`[^A-Z0-9]+`)
	isbnSeparators = strings.NewReplacer("-", "", " ", "")
)

// FormatName trims the input, collapses whitespace runs to a single space and
// capitalizes the first letter of each word.
// "  cienCIa   FICCIÓN " -> "Ciencia Ficción".
func FormatName(text string) string {
	words := strings.Fields(cases.Lower(language.Und).String(text))
	if len(words) == 0 {
		return ""
	}

	upper := cases.Upper(language.Und)
	for i, w := range words {
		_, size := utf8.DecodeRuneInString(w)
		words[i] = upper.String(w[:size]) + w[size:]
	}

	return strings.Join(words, " ")
}

// GenerateCode derives the uppercase ASCII code of a name.
// "Ciencia Ficción" -> "CIENCIA_FICCION".
// "Auto-ayuda & Motivación!" -> "AUTO_AYUDA_MOTIVACION".
func GenerateCode(name string) string {
	s := strings.TrimSpace(name)
	if s == "" {
		return ""
	}

	s = stripMarks(cases.Upper(language.Und).String(s))
	s = nonCodeChars.ReplaceAllString(s, "_")

	return strings.Trim(s, "_")
}

// ISBN drops the hyphens and spaces of a printed ISBN so both forms share one key.
// "978-0-441-17271-9" -> "9780441172719", "0-8044-2957-x" -> "080442957X".
func ISBN(isbn string) string {
	return strings.ToUpper(isbnSeparators.Replace(strings.TrimSpace(isbn)))
}

// stripMarks decomposes s and drops combining marks ("Ó" -> "O").
func stripMarks(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
