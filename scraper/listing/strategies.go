package listing

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/MarkkuSeppala/asuntoanalyysi-2-sub000/utils"
)

// Strategy names reported by FindValue.
const (
	StrategyExactLabel     = "exact-label"
	StrategySubstringLabel = "substring-label"
	StrategyDefinitionList = "definition-list"
	StrategyTableRow       = "table-row"
	StrategyClassHeuristic = "class-heuristic"
	StrategyHeadingScan    = "heading-scan"
)

// maxValueLen rejects "values" that are really whole page sections.
const maxValueLen = 400

// labelStrategy locates the value shown next to a label. Strategies are
// independent and each may be tested on its own.
type labelStrategy struct {
	name string
	find func(doc *goquery.Document, label string) string
}

// labelStrategies is tried in order; the first non-empty value wins.
var labelStrategies = []labelStrategy{
	{StrategyExactLabel, exactLabelValue},
	{StrategySubstringLabel, substringLabelValue},
	{StrategyDefinitionList, definitionListValue},
	{StrategyTableRow, tableRowValue},
	{StrategyClassHeuristic, classHeuristicValue},
	{StrategyHeadingScan, headingScanValue},
}

// structuralTags are handled by their own strategies, so the free-text label
// strategies skip them.
const structuralTags = "script, style, noscript, dt, dd, th, td"

// FindValue runs the label strategies for one label and returns the first
// value found together with the name of the strategy that produced it.
func FindValue(doc *goquery.Document, label string) (value, strategy string) {
	for _, s := range labelStrategies {
		if v := runStrategy(s, doc, label); v != "" {
			return v, s.name
		}
	}
	return "", ""
}

// FindAny tries each label in turn and returns the first hit.
func FindAny(doc *goquery.Document, labels []string) string {
	for _, label := range labels {
		if v, _ := FindValue(doc, label); v != "" {
			return v
		}
	}
	return ""
}

func runStrategy(s labelStrategy, doc *goquery.Document, label string) (v string) {
	defer func() {
		if recover() != nil {
			v = ""
		}
	}()
	return plausible(s.find(doc, label))
}

func plausible(v string) string {
	v = utils.CleanText(v)
	if len([]rune(v)) > maxValueLen {
		return ""
	}
	return v
}

func exactLabelValue(doc *goquery.Document, label string) string {
	return firstSiblingValue(labelElements(doc, func(text string) bool {
		return strings.EqualFold(text, label)
	}))
}

func substringLabelValue(doc *goquery.Document, label string) string {
	return firstSiblingValue(labelElements(doc, func(text string) bool {
		return labelLike(text, label)
	}))
}

// labelLike reports whether text is label with some decoration ("Kerros:",
// "Asunnon kerros") rather than a label followed by an inline value.
func labelLike(text, label string) bool {
	lower := strings.ToLower(text)
	needle := strings.ToLower(label)
	i := strings.Index(lower, needle)
	if i < 0 {
		return false
	}
	rest := lower[:i] + lower[i+len(needle):]
	if len([]rune(rest)) > 20 || strings.ContainsAny(rest, "0123456789") {
		return false
	}
	if j := strings.Index(rest, ":"); j >= 0 && strings.TrimSpace(rest[j+1:]) != "" {
		return false
	}
	return true
}

// labelElements returns, in document order, the elements owning a direct text
// node accepted by match.
func labelElements(doc *goquery.Document, match func(text string) bool) []*goquery.Selection {
	var out []*goquery.Selection
	doc.Find("body *").Not(structuralTags).Each(func(_ int, el *goquery.Selection) {
		el.Contents().EachWithBreak(func(_ int, c *goquery.Selection) bool {
			if goquery.NodeName(c) == "#text" && match(utils.CleanText(c.Text())) {
				out = append(out, el)
				return false
			}
			return true
		})
	})
	return out
}

func firstSiblingValue(labels []*goquery.Selection) string {
	for _, el := range labels {
		if v := plausible(el.Next().Text()); v != "" {
			return v
		}
	}
	return ""
}

func definitionListValue(doc *goquery.Document, label string) string {
	return pairedValue(doc.Find("dt"), label, func(dt *goquery.Selection) *goquery.Selection {
		return dt.NextAllFiltered("dd").First()
	})
}

func tableRowValue(doc *goquery.Document, label string) string {
	if v := pairedValue(doc.Find("th"), label, func(th *goquery.Selection) *goquery.Selection {
		return th.NextAllFiltered("td").First()
	}); v != "" {
		return v
	}
	return pairedValue(doc.Find("tr > td:first-child"), label, func(td *goquery.Selection) *goquery.Selection {
		return td.Next()
	})
}

func classHeuristicValue(doc *goquery.Document, label string) string {
	labels := doc.Find(`div[class*="label"], div[class*="title"], div[class*="header"], span[class*="label"]`)
	return pairedValue(labels, label, func(el *goquery.Selection) *goquery.Selection {
		if v := el.NextAllFiltered(`[class*="value"], [class*="content"], [class*="data"]`).First(); v.Length() > 0 {
			return v
		}
		return el.Next()
	})
}

// pairedValue matches label against candidates, exact matches first, and reads
// the value element chosen by next.
func pairedValue(candidates *goquery.Selection, label string, next func(*goquery.Selection) *goquery.Selection) string {
	needle := strings.ToLower(label)
	matchers := []func(string) bool{
		func(text string) bool { return strings.EqualFold(strings.TrimSuffix(text, ":"), label) },
		func(text string) bool { return strings.Contains(strings.ToLower(text), needle) },
	}
	for _, match := range matchers {
		var found string
		candidates.EachWithBreak(func(_ int, el *goquery.Selection) bool {
			if !match(utils.CleanText(el.Text())) {
				return true
			}
			found = plausible(next(el).Text())
			return found == ""
		})
		if found != "" {
			return found
		}
	}
	return ""
}

func headingScanValue(doc *goquery.Document, label string) string {
	re, err := regexp.Compile(`(?i)^` + regexp.QuoteMeta(label) + `[:\s]\s*(.*)$`)
	if err != nil {
		return ""
	}
	var found string
	doc.Find("h1, h2, h3, h4, h5, h6, p, div, span").Not(structuralTags).EachWithBreak(func(_ int, el *goquery.Selection) bool {
		m := re.FindStringSubmatch(ownText(el))
		if m == nil {
			return true
		}
		if inline := plausible(m[1]); inline != "" {
			found = inline
			return false
		}
		found = plausible(el.NextAllFiltered("p, div, span").First().Text())
		return found == ""
	})
	return found
}

// ownText concatenates the element's direct text nodes.
func ownText(el *goquery.Selection) string {
	var b strings.Builder
	el.Contents().Each(func(_ int, c *goquery.Selection) {
		if goquery.NodeName(c) == "#text" {
			b.WriteString(c.Text())
			b.WriteByte(' ')
		}
	})
	return utils.CleanText(b.String())
}
