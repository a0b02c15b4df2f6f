package services

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/MarkkuSeppala/asuntoanalyysi-2-sub000/models"
	"github.com/MarkkuSeppala/asuntoanalyysi-2-sub000/utils"
)

// UnknownAddress is stored when no address could be found.
const UnknownAddress = "Tuntematon"

// Candidate keys, in priority order, under which the extraction model tends
// to return each field.
var (
	BuildingTypeKeys = []string{"rakennustyyppi", "talotyyppi", "tyyppi", "asumistyyppi", "building_type", "property_type", "type"}
	PriceKeys        = []string{"hinta", "velaton_hinta", "velaton hinta", "myyntihinta", "price", "debt_free_price", "asking_price"}
	YearKeys         = []string{"rakennusvuosi", "valmistumisvuosi", "construction_year", "year_built", "vuosi", "year"}
	AddressKeys      = []string{"osoite", "address", "sijainti", "location"}
)

var buildingAliases = map[string]models.BuildingType{
	"omakotitalo":         models.BuildingDetached,
	"omakoti":             models.BuildingDetached,
	"okt":                 models.BuildingDetached,
	"ok-talo":             models.BuildingDetached,
	"erillistalo":         models.BuildingDetached,
	"et":                  models.BuildingDetached,
	"detached":            models.BuildingDetached,
	"detached house":      models.BuildingDetached,
	"house":               models.BuildingDetached,
	"single-family house": models.BuildingDetached,
	"single family house": models.BuildingDetached,
	"villa":               models.BuildingDetached,

	"kerrostalo":          models.BuildingApartment,
	"kt":                  models.BuildingApartment,
	"kerrostaloasunto":    models.BuildingApartment,
	"kerrostalohuoneisto": models.BuildingApartment,
	"luhtitalo":           models.BuildingApartment,
	"apartment":           models.BuildingApartment,
	"apartment building":  models.BuildingApartment,
	"flat":                models.BuildingApartment,
	"block of flats":      models.BuildingApartment,
	"condominium":         models.BuildingApartment,

	"rivitalo":       models.BuildingTerraced,
	"rt":             models.BuildingTerraced,
	"rivitaloasunto": models.BuildingTerraced,
	"terraced":       models.BuildingTerraced,
	"terraced house": models.BuildingTerraced,
	"terrace house":  models.BuildingTerraced,
	"townhouse":      models.BuildingTerraced,
	"town house":     models.BuildingTerraced,
	"row house":      models.BuildingTerraced,
	"rowhouse":       models.BuildingTerraced,

	"paritalo":            models.BuildingSemiDetached,
	"pt":                  models.BuildingSemiDetached,
	"paritaloasunto":      models.BuildingSemiDetached,
	"semi-detached":       models.BuildingSemiDetached,
	"semi detached":       models.BuildingSemiDetached,
	"semi_detached":       models.BuildingSemiDetached,
	"semi-detached house": models.BuildingSemiDetached,
	"duplex":              models.BuildingSemiDetached,
}

// substringAliases holds aliases long enough to be matched inside longer
// text, longest first so "semi-detached" wins over "detached".
var substringAliases = func() []string {
	var out []string
	for alias := range buildingAliases {
		if len(alias) >= 4 {
			out = append(out, alias)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i]) != len(out[j]) {
			return len(out[i]) > len(out[j])
		}
		return out[i] < out[j]
	})
	return out
}()

var (
	numericRegexp = regexp.MustCompile(`^-?\d+(?:[.,]\d+)*$`)
	yearRegexp    = regexp.MustCompile(`\b(1[6-9]\d{2}|20\d{2})\b`)
)

// Normalizer maps loosely-keyed extraction output onto a PropertyRecord.
// All methods are pure apart from logging rejected values.
type Normalizer struct {
	logger *utils.Logger
}

// NewNormalizer creates a Normalizer with the given logger.
func NewNormalizer(logger *utils.Logger) *Normalizer {
	return &Normalizer{logger: logger}
}

// BuildRecord resolves every PropertyRecord field from data.
func (n *Normalizer) BuildRecord(data map[string]any) models.PropertyRecord {
	rec := models.PropertyRecord{
		Address:          n.NormalizeAddress(ExtractFirstKey(data, AddressKeys)),
		BuildingType:     n.NormalizeBuildingType(asString(ExtractFirstKey(data, BuildingTypeKeys))),
		Price:            n.NormalizePrice(ExtractFirstKey(data, PriceKeys)),
		ConstructionYear: n.NormalizeYear(ExtractFirstKey(data, YearKeys)),
	}
	n.logger.Debug("[normalizer] Record: address=%q type=%s price=%v year=%v",
		rec.Address, rec.BuildingType, rec.Price, rec.ConstructionYear)
	return rec
}

// NormalizeBuildingType maps free text onto the building type vocabulary.
// Exact aliases are tried first, then containment; anything else is unknown.
func (n *Normalizer) NormalizeBuildingType(raw string) models.BuildingType {
	key := strings.Join(strings.Fields(strings.ToLower(raw)), " ")
	if key == "" {
		return models.BuildingUnknown
	}
	if bt, ok := buildingAliases[key]; ok {
		return bt
	}
	for _, alias := range substringAliases {
		if strings.Contains(key, alias) {
			return buildingAliases[alias]
		}
	}
	n.logger.Debug("[normalizer] Unmapped building type %q", raw)
	return models.BuildingUnknown
}

// NormalizePrice parses a price into a decimal. Unparseable input yields an
// invalid NullDecimal and a warning, never a zero value.
func (n *Normalizer) NormalizePrice(raw any) decimal.NullDecimal {
	switch v := raw.(type) {
	case nil:
		return decimal.NullDecimal{}
	case float64:
		return decimal.NewNullDecimal(decimal.NewFromFloat(v))
	case int:
		return decimal.NewNullDecimal(decimal.NewFromInt(int64(v)))
	case int64:
		return decimal.NewNullDecimal(decimal.NewFromInt(v))
	case json.Number:
		return n.parsePriceString(v.String())
	case string:
		return n.parsePriceString(v)
	default:
		n.logger.Warn("[normalizer] Rejected price of type %T: %v", raw, raw)
		return decimal.NullDecimal{}
	}
}

func (n *Normalizer) parsePriceString(raw string) decimal.NullDecimal {
	s := strings.ToLower(raw)
	for _, token := range []string{"€", "euroa", "eur"} {
		s = strings.ReplaceAll(s, token, "")
	}
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	s = strings.TrimSuffix(s, ",-")

	if s == "" || !numericRegexp.MatchString(s) {
		if strings.TrimSpace(raw) != "" {
			n.logger.Warn("[normalizer] Rejected price value %q", raw)
		}
		return decimal.NullDecimal{}
	}

	d, err := decimal.NewFromString(canonicalDecimal(s))
	if err != nil {
		n.logger.Warn("[normalizer] Rejected price value %q: %v", raw, err)
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

// canonicalDecimal turns Finnish and English digit grouping into a plain
// dotted decimal string.
func canonicalDecimal(s string) string {
	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")

	decimalSep := -1
	switch {
	case lastDot >= 0 && lastComma >= 0:
		decimalSep = max(lastDot, lastComma)
	case lastComma >= 0 && strings.Count(s, ",") == 1 && len(s)-lastComma-1 != 3:
		decimalSep = lastComma
	case lastDot >= 0 && strings.Count(s, ".") == 1 && len(s)-lastDot-1 != 3:
		decimalSep = lastDot
	}

	var b strings.Builder
	for i, r := range s {
		switch {
		case i == decimalSep:
			b.WriteByte('.')
		case r == '.' || r == ',':
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeYear returns a plausible construction year or nil.
func (n *Normalizer) NormalizeYear(raw any) *int {
	var year int
	switch v := raw.(type) {
	case nil:
		return nil
	case float64:
		year = int(v)
	case int:
		year = v
	case json.Number:
		i, err := v.Int64()
		if err != nil {
			return nil
		}
		year = int(i)
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			year = i
			break
		}
		m := yearRegexp.FindString(v)
		if m == "" {
			n.logger.Debug("[normalizer] No year in %q", v)
			return nil
		}
		year, _ = strconv.Atoi(m)
	default:
		return nil
	}

	if year < 1600 || year > time.Now().Year()+5 {
		n.logger.Warn("[normalizer] Rejected implausible year %d", year)
		return nil
	}
	return &year
}

// NormalizeAddress accepts either a plain string or a {katu, postinumero,
// kaupunki} object.
func (n *Normalizer) NormalizeAddress(raw any) string {
	var addr string
	switch v := raw.(type) {
	case string:
		addr = utils.CleanText(v)
	case map[string]any:
		street := utils.CleanText(asString(ExtractFirstKey(v, []string{"katu", "katuosoite", "street"})))
		postal := utils.CleanText(asString(ExtractFirstKey(v, []string{"postinumero", "postal_code", "zip"})))
		city := utils.CleanText(asString(ExtractFirstKey(v, []string{"kaupunki", "kunta", "city"})))
		var parts []string
		if street != "" {
			parts = append(parts, street)
		}
		if locality := strings.TrimSpace(postal + " " + city); locality != "" {
			parts = append(parts, locality)
		}
		addr = strings.Join(parts, ", ")
	}
	if addr == "" {
		return UnknownAddress
	}
	return addr
}

// ExtractFirstKey returns the value under the first candidate key present in
// data. Exact keys are checked in priority order before a case-insensitive pass.
func ExtractFirstKey(data map[string]any, candidates []string) any {
	for _, key := range candidates {
		if v, ok := data[key]; ok && v != nil {
			return v
		}
	}
	for _, key := range candidates {
		for k, v := range data {
			if v != nil && strings.EqualFold(strings.TrimSpace(k), key) {
				return v
			}
		}
	}
	return nil
}

func asString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case json.Number:
		return s.String()
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return fmt.Sprint(s)
	}
}
