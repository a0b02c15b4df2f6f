package listing

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestFindValue_DefinitionList(t *testing.T) {
	doc := parse(t, `<dl><dt>Hinta</dt><dd>250 000 €</dd></dl>`)

	value, strategy := FindValue(doc, "Hinta")
	assert.Equal(t, "250 000 €", value)
	assert.Equal(t, StrategyDefinitionList, strategy)
}

func TestFindValue_Strategies(t *testing.T) {
	tests := []struct {
		name     string
		html     string
		label    string
		want     string
		strategy string
	}{
		{
			name:     "exact label then sibling",
			html:     `<div><span>Kerros</span><span>2/4</span></div>`,
			label:    "Kerros",
			want:     "2/4",
			strategy: StrategyExactLabel,
		},
		{
			name:     "substring label",
			html:     `<div><span>Kerros:</span><span>2/4</span></div>`,
			label:    "Kerros",
			want:     "2/4",
			strategy: StrategySubstringLabel,
		},
		{
			name:     "table header",
			html:     `<table><tr><th>Rakennusvuosi</th><td>1978</td></tr></table>`,
			label:    "Rakennusvuosi",
			want:     "1978",
			strategy: StrategyTableRow,
		},
		{
			name:     "table first cell",
			html:     `<table><tr><td>Hissi</td><td>On</td></tr></table>`,
			label:    "Hissi",
			want:     "On",
			strategy: StrategyTableRow,
		},
		{
			name:     "heading scan inline value",
			html:     `<p>Tontin omistus: Vuokratontti</p>`,
			label:    "Tontin omistus",
			want:     "Vuokratontti",
			strategy: StrategyHeadingScan,
		},
		{
			name:     "definition list prefers exact term",
			html:     `<dl><dt>Velaton hinta</dt><dd>300 000 €</dd><dt>Hinta</dt><dd>250 000 €</dd></dl>`,
			label:    "Hinta",
			want:     "250 000 €",
			strategy: StrategyDefinitionList,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value, strategy := FindValue(parse(t, tt.html), tt.label)
			assert.Equal(t, tt.want, value)
			assert.Equal(t, tt.strategy, strategy)
		})
	}
}

func TestLabelLike(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"Kerros:", true},
		{"Asunnon kerros", true},
		{"Kerros", true},
		{"Myyntihinta 189 000 €", false},
		{"Tontin omistus: Oma", false},
		{"Hissi", false},
	}
	for _, tt := range tests {
		label := "Kerros"
		if strings.HasPrefix(tt.text, "Myynti") {
			label = "Myyntihinta"
		} else if strings.HasPrefix(tt.text, "Tontin") {
			label = "Tontin omistus"
		}
		if got := labelLike(tt.text, label); got != tt.want {
			t.Errorf("labelLike(%q, %q) = %v; want %v", tt.text, label, got, tt.want)
		}
	}
}

func TestClassHeuristicValue(t *testing.T) {
	doc := parse(t, `<div class="info-label">Lämmitys</div><div class="note"></div><div class="info-value">Kaukolämpö</div>`)
	assert.Equal(t, "Kaukolämpö", classHeuristicValue(doc, "Lämmitys"))
}

func TestFindValue_NotFound(t *testing.T) {
	doc := parse(t, `<p>Ei mitään tietoa täällä.</p>`)
	value, strategy := FindValue(doc, "Hissi")
	assert.Empty(t, value)
	assert.Empty(t, strategy)
}

func TestFindValue_RejectsHugeValues(t *testing.T) {
	doc := parse(t, `<div><span>Kunto</span><span>`+strings.Repeat("sana ", 200)+`</span></div>`)
	value, _ := FindValue(doc, "Kunto")
	assert.Empty(t, value)
}

func TestFindAny_LabelOrder(t *testing.T) {
	doc := parse(t, `<dl><dt>Price</dt><dd>1 €</dd><dt>Myyntihinta</dt><dd>2 €</dd></dl>`)
	assert.Equal(t, "2 €", FindAny(doc, []string{"Myyntihinta", "Price"}))
}

func TestParseRenovations(t *testing.T) {
	got := parseRenovations("2015: Putkiremontti 2019 Julkisivun maalaus")
	assert.Equal(t, []Renovation{
		{Year: "2015", Description: "Putkiremontti"},
		{Year: "2019", Description: "Julkisivun maalaus"},
	}, got)

	assert.Equal(t, []Renovation{{Description: "Kattoremontti suunnitteilla"}}, parseRenovations("Kattoremontti suunnitteilla"))
	assert.Nil(t, parseRenovations("  "))
}

func TestAddressFromURL(t *testing.T) {
	assert.Equal(t, "Helsinki", addressFromURL("https://asunnot.oikotie.fi/myytavat-asunnot/helsinki/22964577"))
	assert.Equal(t, "Etela Espoo", addressFromURL("https://example.fi/myytavat/etela-espoo/123"))
	assert.Empty(t, addressFromURL("https://example.fi/123"))
}
