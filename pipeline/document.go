// Package pipeline turns one listing URL into the canonical markdown document,
// one implementation per listing site.
package pipeline

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/MarkkuSeppala/asuntoanalyysi-2-sub000/models"
)

// ErrNoPropertyID is returned when a listing URL carries no usable property id.
var ErrNoPropertyID = eris.New("no property id in url")

// Pipeline processes one listing. Failures come back as an unsuccessful
// result, never as a panic or a bare error.
type Pipeline interface {
	Process(ctx context.Context, ref models.ListingReference) models.RawExtractionResult
}

// Field is one key fact pulled from converted listing text.
type Field struct {
	Label string
	Value string
}

type fieldPattern struct {
	label string
	re    *regexp.Regexp
}

// sep matches what sits between a label and its value in both plain PDF
// text ("Hinta: x", or the value on the next line) and layout markdown
// ("**Hinta:** x").
const sep = `[:*\s\x{00A0}]*`

func labelled(label, labels, value string) fieldPattern {
	return fieldPattern{label: label, re: regexp.MustCompile(`(?i)\b(?:` + labels + `)` + sep + `(` + value + `)`)}
}

const (
	moneyValue = `\d[\d \x{00A0}]*(?:,\d{1,2})?[ \x{00A0}]*(?:€|eur)`
	areaValue  = `\d+(?:[,.]\d+)?[ \x{00A0}]*m²`
	lineValue  = `[^\n*|#][^\n*|]{0,119}`
)

var commonPatterns = []fieldPattern{
	labelled("Velaton hinta", `velaton\s+hinta`, moneyValue),
	labelled("Myyntihinta", `myyntihinta`, moneyValue),
	labelled("Asuinpinta-ala", `asuinpinta-ala|asuinala`, areaValue),
	labelled("Kokonaispinta-ala", `kokonaispinta-ala|kokonaisala`, areaValue),
	labelled("Huoneita", `huoneiden\s+lukumäärä|huoneita`, `\d+`),
	labelled("Huoneistoselitelmä", `huoneistoselitelmä|kokoonpano`, lineValue),
	labelled("Rakennusvuosi", `rakennusvuosi|valmistumisvuosi`, `\d{4}`),
	labelled("Rakennuksen tyyppi", `rakennuksen\s+tyyppi|talotyyppi`, lineValue),
	labelled("Sijainti", `sijainti|osoite`, lineValue),
	labelled("Kunto", `kunto[:\s*]`, `[A-Za-zÅÄÖåäö]+`),
	labelled("Hoitovastike", `hoitovastike`, moneyValue),
}

// ExtractFields applies patterns in order and keeps the first match of each label.
func ExtractFields(text string, patterns []fieldPattern) []Field {
	var fields []Field
	for _, p := range patterns {
		m := p.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		value := strings.Join(strings.Fields(m[1]), " ")
		value = strings.TrimRight(value, " ,.;")
		if value == "" {
			continue
		}
		fields = append(fields, Field{Label: p.label, Value: value})
	}
	return fields
}

// EmptyBodyNote stands in for a body that could not be extracted.
const EmptyBodyNote = "Ilmoituksen sisältöä ei saatu poimittua."

// FormatDocument builds the canonical document. The header with source, URL
// and id is always present; the key facts section only when fields were found.
func FormatDocument(ref models.ListingReference, fields []Field, body string) string {
	var b strings.Builder

	id := ref.PropertyID
	if id == "" {
		id = "tuntematon"
	}
	fmt.Fprintf(&b, "# %s-kohde %s\n\n", ref.Source.DisplayName(), id)

	b.WriteString("## Perustiedot\n")
	fmt.Fprintf(&b, "- Lähde: %s\n", ref.Source.DisplayName())
	fmt.Fprintf(&b, "- URL: %s\n", ref.URL)
	fmt.Fprintf(&b, "- Kohdenumero: %s\n\n", id)

	if len(fields) > 0 {
		b.WriteString("## Keskeiset tiedot\n")
		for _, f := range fields {
			fmt.Fprintf(&b, "- %s: %s\n", f.Label, f.Value)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Ilmoituksen sisältö\n")
	if body = strings.TrimSpace(body); body == "" {
		body = EmptyBodyNote
	}
	b.WriteString(body + "\n")
	return b.String()
}

var unsafeFilenameChars = regexp.MustCompile(`[\\/*?:"<>|\x00-\x1f]`)

// SanitizeFilename strips characters that are unsafe in a path component.
// Dot-only names would escape the work directory and become "_".
func SanitizeFilename(name string) string {
	s := unsafeFilenameChars.ReplaceAllString(name, "")
	s = strings.TrimSpace(s)
	if strings.Trim(s, ".") == "" {
		return "_"
	}
	if r := []rune(s); len(r) > 120 {
		s = string(r[:120])
	}
	return s
}

// maxIDRunes bounds the id part of an artifact name.
const maxIDRunes = 64

// ArtifactName returns a file name unique to one call. Only the id is
// sanitized and shortened, so the uuid suffix always survives.
func ArtifactName(prefix, id, ext string) string {
	s := SanitizeFilename(id)
	if r := []rune(s); len(r) > maxIDRunes {
		s = string(r[:maxIDRunes])
	}
	return fmt.Sprintf("%s_%s_%s%s", prefix, s, uuid.NewString(), ext)
}

// failure builds an unsuccessful result.
func failure(source models.Source, err error) models.RawExtractionResult {
	return models.RawExtractionResult{Success: false, Error: err.Error(), Source: source}
}

func recovered(source models.Source, r any) models.RawExtractionResult {
	return failure(source, eris.Errorf("unexpected panic: %v", r))
}
