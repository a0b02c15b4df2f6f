package services

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MarkkuSeppala/asuntoanalyysi-2-sub000/llm"
	"github.com/MarkkuSeppala/asuntoanalyysi-2-sub000/models"
	"github.com/MarkkuSeppala/asuntoanalyysi-2-sub000/utils"
)

// fakeLLM returns canned replies and records the prompts it saw.
type fakeLLM struct {
	reply   string
	err     error
	systems []string
}

func (f *fakeLLM) Call(_ context.Context, system, _ string) (string, error) {
	f.systems = append(f.systems, system)
	return f.reply, f.err
}

func (f *fakeLLM) CallJSON(ctx context.Context, system, user string) (string, error) {
	return f.Call(ctx, system, user)
}

func TestAnalyzer_Success(t *testing.T) {
	f := &fakeLLM{reply: "```markdown\n# Analyysi\n\nHyvä kohde.\n```"}
	text, err := NewAnalyzer(f, utils.NewNopLogger()).Analyze(context.Background(), "# Oikotie-kohde 1")
	require.NoError(t, err)
	assert.Equal(t, "# Analyysi\n\nHyvä kohde.", text)
	assert.Equal(t, []string{AnalysisPrompt}, f.systems)
}

func TestAnalyzer_EmptyInput(t *testing.T) {
	f := &fakeLLM{}
	text, err := NewAnalyzer(f, utils.NewNopLogger()).Analyze(context.Background(), "  \n")
	require.Error(t, err)
	assert.Equal(t, llm.MessageFor(llm.CategoryInvalidRequest), text)
	assert.Empty(t, f.systems)
}

func TestAnalyzer_FailureReturnsUserMessage(t *testing.T) {
	cause := errors.New("boom")
	text, err := NewAnalyzer(&fakeLLM{err: cause}, utils.NewNopLogger()).Analyze(context.Background(), "x")
	require.ErrorIs(t, err, cause)
	assert.Equal(t, llm.UserMessage(cause), text)
}

func TestAnalyzer_EmptyReply(t *testing.T) {
	text, err := NewAnalyzer(&fakeLLM{reply: "```\n```"}, utils.NewNopLogger()).Analyze(context.Background(), "x")
	require.ErrorIs(t, err, llm.ErrEmptyResponse)
	assert.Equal(t, llm.MessageFor(llm.CategoryAPI), text)
}

func TestPropertyExtractor(t *testing.T) {
	f := &fakeLLM{reply: `{"osoite": "Mannerheimintie 1, Helsinki", "tyyppi": "KT", "hinta": "250 000 €", "rakennusvuosi": 1965}`}
	rec := NewPropertyExtractor(f, newTestNormalizer(), utils.NewNopLogger()).Extract(context.Background(), "doc")

	assert.Equal(t, "Mannerheimintie 1, Helsinki", rec.Address)
	assert.Equal(t, models.BuildingApartment, rec.BuildingType)
	require.True(t, rec.Price.Valid)
	assert.True(t, rec.Price.Decimal.Equal(decimal.NewFromInt(250000)))
	require.NotNil(t, rec.ConstructionYear)
	assert.Equal(t, 1965, *rec.ConstructionYear)
	assert.Equal(t, []string{PropertyPrompt}, f.systems)
}

func TestPropertyExtractor_FailureYieldsUnknown(t *testing.T) {
	for name, f := range map[string]*fakeLLM{
		"call error": {err: errors.New("down")},
		"not json":   {reply: "ei tietoja"},
	} {
		t.Run(name, func(t *testing.T) {
			rec := NewPropertyExtractor(f, newTestNormalizer(), utils.NewNopLogger()).Extract(context.Background(), "doc")
			assert.Equal(t, UnknownAddress, rec.Address)
			assert.Equal(t, models.BuildingUnknown, rec.BuildingType)
			assert.False(t, rec.Price.Valid)
			assert.Nil(t, rec.ConstructionYear)
		})
	}
}

func shareSum(items []models.RiskItem) int {
	total := 0
	for _, it := range items {
		total += it.Share
	}
	return total
}

func TestRepairRisk_Complete(t *testing.T) {
	r, err := RepairRisk(`{"kokonaisriskitaso": 4.25, "riskimittari": [
		{"osa_alue": "Taloyhtiöriski", "riski_taso": 3, "osuus_prosenttia": 40, "kuvaus": "Pieni yhtiö"},
		{"osa_alue": "Sijaintiriski", "riski_taso": 6, "osuus_prosenttia": 60, "kuvaus": "Syrjäinen"}
	], "yhteenveto": "Kohtalainen"}`)
	require.NoError(t, err)

	assert.InDelta(t, 4.3, r.Overall, 1e-9)
	assert.False(t, r.Fallback)
	assert.Equal(t, "Kohtalainen", r.Summary)
	require.Len(t, r.Items, 2)
	assert.Equal(t, models.RiskItem{Area: "Taloyhtiöriski", Level: 3, Share: 40, Description: "Pieni yhtiö"}, r.Items[0])
	assert.Equal(t, 60, r.Items[1].Share)
}

func TestRepairRisk_CoercesAndClamps(t *testing.T) {
	r, err := RepairRisk(`{"kokonaisriskitaso": "12", "riskimittari": [
		{"riski_taso": "4,56", "osuus_prosenttia": "30 %"},
		{"osa_alue": "Kunto", "riski_taso": -2, "osuus_prosenttia": 30}
	]}`)
	require.NoError(t, err)

	assert.Equal(t, 10.0, r.Overall)
	require.Len(t, r.Items, 2)
	assert.Equal(t, "Riski 1", r.Items[0].Area)
	assert.Equal(t, "Riskitaso kategorialle Riski 1", r.Items[0].Description)
	assert.InDelta(t, 4.6, r.Items[0].Level, 1e-9)
	assert.Equal(t, 0.0, r.Items[1].Level)
	assert.Equal(t, 50, r.Items[0].Share)
	assert.Equal(t, 50, r.Items[1].Share)
}

func TestRepairRisk_NonFiniteNumbersUseDefaults(t *testing.T) {
	r, err := RepairRisk(`{"kokonaisriskitaso": "Inf", "riskimittari": [
		{"osa_alue": "Kunto", "riski_taso": "NaN", "osuus_prosenttia": "Infinity"},
		{"osa_alue": "Sijainti", "riski_taso": "-Infinity", "osuus_prosenttia": 40}
	]}`)
	require.NoError(t, err)

	require.Len(t, r.Items, 2)
	assert.Equal(t, defaultRiskLevel, r.Items[0].Level)
	assert.Equal(t, defaultRiskLevel, r.Items[1].Level)
	assert.Equal(t, 60, r.Items[0].Share)
	assert.Equal(t, 40, r.Items[1].Share)
	assert.Equal(t, 100, shareSum(r.Items))
	assert.Equal(t, defaultRiskLevel, r.Overall)
}

func TestRiskScorer_NonFiniteReplyDoesNotPanic(t *testing.T) {
	f := &fakeLLM{reply: `{"riskimittari": [{"riski_taso": "NaN", "osuus_prosenttia": "Infinity"}]}`}
	var r models.RiskReport
	require.NotPanics(t, func() {
		r = NewRiskScorer(f, utils.NewNopLogger()).Score(context.Background(), "analyysi")
	})
	require.Len(t, r.Items, 1)
	assert.Equal(t, 100, r.Items[0].Share)
	assert.Equal(t, defaultRiskLevel, r.Overall)
}

func TestRepairRisk_SharesAlwaysSumTo100(t *testing.T) {
	inputs := []string{
		`{"riskimittari": [{"osuus_prosenttia": 1}, {"osuus_prosenttia": 1}, {"osuus_prosenttia": 1}]}`,
		`{"riskimittari": [{"osuus_prosenttia": 0}, {"osuus_prosenttia": 0}]}`,
		`{"riskimittari": [{"osuus_prosenttia": 70}, {}, {}]}`,
		`{"riskimittari": [{"osuus_prosenttia": 150}, {}]}`,
		`{"riskimittari": [{}, {}, {}, {}, {}, {}, {}]}`,
		`{"riskimittari": [{"osuus_prosenttia": 1e308}, {"osuus_prosenttia": 1e308}]}`,
	}
	for _, in := range inputs {
		r, err := RepairRisk(in)
		require.NoError(t, err, in)
		assert.Equal(t, 100, shareSum(r.Items), in)
		for _, it := range r.Items {
			assert.GreaterOrEqual(t, it.Share, 0, in)
		}
	}
}

func TestRepairRisk_MissingItems(t *testing.T) {
	r, err := RepairRisk(`{"kokonaisriskitaso": 7}`)
	require.NoError(t, err)
	require.Len(t, r.Items, 1)
	assert.Equal(t, "Kokonaisriski", r.Items[0].Area)
	assert.Equal(t, 7.0, r.Items[0].Level)
	assert.Equal(t, 100, r.Items[0].Share)
	assert.Equal(t, 7.0, r.Overall)
}

func TestRepairRisk_OverallFromItems(t *testing.T) {
	r, err := RepairRisk(`{"riskimittari": [
		{"riski_taso": 2, "osuus_prosenttia": 25},
		{"riski_taso": 6, "osuus_prosenttia": 75}
	]}`)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, r.Overall, 1e-9)

	r, err = RepairRisk(`{}`)
	require.NoError(t, err)
	assert.Equal(t, defaultRiskLevel, r.Overall)
}

func TestRepairRisk_Invalid(t *testing.T) {
	for _, in := range []string{"", "ei json", "[1,2]", "null"} {
		_, err := RepairRisk(in)
		assert.Error(t, err, in)
	}
}

func TestRiskScorer_FallbackIsMarked(t *testing.T) {
	scorer := NewRiskScorer(&fakeLLM{reply: "pahoittelen"}, utils.NewNopLogger())
	r := scorer.Score(context.Background(), "analyysi")
	assert.True(t, r.Fallback)
	assert.Equal(t, FallbackRisk(), r)
	assert.Equal(t, FallbackRiskDescription, r.Items[0].Description)

	scorer = NewRiskScorer(&fakeLLM{err: errors.New("down")}, utils.NewNopLogger())
	assert.True(t, scorer.Score(context.Background(), "analyysi").Fallback)
}

func TestRiskScorer_Success(t *testing.T) {
	f := &fakeLLM{reply: `{"kokonaisriskitaso": 3, "riskimittari": [{"osa_alue": "A", "riski_taso": 3, "osuus_prosenttia": 100, "kuvaus": "k"}]}`}
	r := NewRiskScorer(f, utils.NewNopLogger()).Score(context.Background(), "analyysi")
	assert.False(t, r.Fallback)
	assert.Equal(t, 3.0, r.Overall)
	assert.Equal(t, []string{RiskPrompt}, f.systems)
}

func TestSummary_Print(t *testing.T) {
	year := 1965
	a := &models.Analysis{
		URL:   "https://asunnot.oikotie.fi/myytavat-asunnot/helsinki/123",
		Title: "Oikotie-kohde 123",
		Property: models.PropertyRecord{
			Address:          "Mannerheimintie 1",
			BuildingType:     models.BuildingApartment,
			Price:            decimal.NewNullDecimal(decimal.NewFromInt(250000)),
			ConstructionYear: &year,
		},
		Risk:    &models.RiskReport{Overall: 4, Items: []models.RiskItem{{Area: "Kunto", Level: 4, Share: 100}}},
		Content: "Hyvä kohde.",
	}

	var buf bytes.Buffer
	NewSummary(false).Print(&buf, a)
	out := buf.String()

	assert.Contains(t, out, "Oikotie-kohde 123")
	assert.Contains(t, out, "kerrostalo")
	assert.Contains(t, out, "250000 €")
	assert.Contains(t, out, "1965")
	assert.Contains(t, out, "████")
	assert.Contains(t, out, "Hyvä kohde.")
	assert.NotContains(t, out, "\033[")
}

func TestSummary_UnknownFields(t *testing.T) {
	var buf bytes.Buffer
	NewSummary(true).Print(&buf, &models.Analysis{URL: "u", Property: models.PropertyRecord{Address: UnknownAddress}})
	out := buf.String()
	assert.Contains(t, out, "Hinta        : ei tiedossa")
	assert.Contains(t, out, "Rakennusvuosi: ei tiedossa")
	assert.Contains(t, out, "\033[1;35m")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "lyhyt", truncate("lyhyt", 10))
	assert.Equal(t, "äääää...", truncate("ääääääääääää", 8))
}
