package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"

	"github.com/MarkkuSeppala/asuntoanalyysi-2-sub000/models"
	"github.com/MarkkuSeppala/asuntoanalyysi-2-sub000/utils"
)

const (
	defaultRiskLevel = 5.0
	maxRiskLevel     = 10.0
	// FallbackRiskDescription marks a default payload in place of a real score.
	FallbackRiskDescription = "Kohteen riskitason arviointiin liittyi ongelmia. Tämä on oletusarvio."
)

// FallbackRisk is substituted when the model's answer cannot be repaired.
func FallbackRisk() models.RiskReport {
	return models.RiskReport{
		Overall: defaultRiskLevel,
		Items: []models.RiskItem{{
			Area:        "Kokonaisriski",
			Level:       defaultRiskLevel,
			Share:       100,
			Description: FallbackRiskDescription,
		}},
		Fallback: true,
	}
}

// RiskScorer turns an analysis into a validated risk report.
type RiskScorer struct {
	llm    LLM
	logger *utils.Logger
}

func NewRiskScorer(l LLM, logger *utils.Logger) *RiskScorer {
	return &RiskScorer{llm: l, logger: logger}
}

// Score never fails; it returns FallbackRisk when the model or its JSON does.
func (r *RiskScorer) Score(ctx context.Context, analysis string) models.RiskReport {
	raw, err := r.llm.CallJSON(ctx, RiskPrompt, analysis)
	if err != nil {
		r.logger.Error("[risk] Risk call failed, using fallback: %v", err)
		return FallbackRisk()
	}
	report, err := RepairRisk(raw)
	if err != nil {
		r.logger.Error("[risk] Unrepairable risk JSON, using fallback: %v", err)
		return FallbackRisk()
	}
	r.logger.Info("[risk] Overall risk %.1f over %d areas", report.Overall, len(report.Items))
	return report
}

// RepairRisk validates a risk JSON object and fills in what is missing:
// levels are coerced to numbers in 0..10 with one decimal, missing areas get
// names and descriptions, shares are normalized to sum to exactly 100, and a
// missing overall level becomes the share-weighted average of the areas.
// Only input that is not a JSON object is an error.
func RepairRisk(raw string) (models.RiskReport, error) {
	data, err := decodeObject(raw)
	if err != nil {
		return models.RiskReport{}, eris.Wrap(err, "decode risk json")
	}
	if data == nil {
		return models.RiskReport{}, eris.New("risk json is null")
	}

	var report models.RiskReport
	if s, ok := data["yhteenveto"].(string); ok {
		report.Summary = strings.TrimSpace(s)
	}

	overall, hasOverall := toFloat(data["kokonaisriskitaso"])

	rawItems, _ := data["riskimittari"].([]any)
	shares := make([]float64, 0, len(rawItems))
	knownShares := 0
	for i, ri := range rawItems {
		m, ok := ri.(map[string]any)
		if !ok {
			continue
		}
		item := models.RiskItem{}
		if area, ok := m["osa_alue"].(string); ok && strings.TrimSpace(area) != "" {
			item.Area = strings.TrimSpace(area)
		} else {
			item.Area = fmt.Sprintf("Riski %d", i+1)
		}
		if level, ok := toFloat(m["riski_taso"]); ok {
			item.Level = clampLevel(level)
		} else {
			item.Level = defaultRiskLevel
		}
		if desc, ok := m["kuvaus"].(string); ok && strings.TrimSpace(desc) != "" {
			item.Description = strings.TrimSpace(desc)
		} else {
			item.Description = "Riskitaso kategorialle " + item.Area
		}
		share, ok := toFloat(m["osuus_prosenttia"])
		if ok && share >= 0 {
			knownShares++
		} else {
			share = -1
		}
		shares = append(shares, share)
		report.Items = append(report.Items, item)
	}

	if len(report.Items) == 0 {
		level := defaultRiskLevel
		if hasOverall {
			level = clampLevel(overall)
		}
		report.Items = []models.RiskItem{{
			Area:        "Kokonaisriski",
			Level:       level,
			Share:       100,
			Description: "Arvioitu kokonaisriski kohteelle.",
		}}
	} else {
		normalizeShares(report.Items, shares, knownShares)
	}

	if hasOverall {
		report.Overall = clampLevel(overall)
	} else {
		report.Overall = weightedLevel(report.Items)
	}
	return report, nil
}

// normalizeShares assigns integer shares summing to 100. Missing shares split
// what the known ones leave over; known shares are then scaled proportionally.
func normalizeShares(items []models.RiskItem, shares []float64, known int) {
	missing := len(shares) - known
	if missing > 0 {
		var used float64
		for _, s := range shares {
			if s >= 0 {
				used += s
			}
		}
		each := (100 - used) / float64(missing)
		if each < 0 {
			each = 0
		}
		for i, s := range shares {
			if s < 0 {
				shares[i] = each
			}
		}
	}

	var total float64
	for _, s := range shares {
		total += s
	}
	if total <= 0 || math.IsInf(total, 0) {
		for i := range shares {
			shares[i] = 1
		}
		total = float64(len(shares))
	}

	// Largest-remainder rounding keeps the sum at exactly 100.
	assigned := 0
	remainders := make([]float64, len(shares))
	for i, s := range shares {
		exact := s * 100 / total
		if math.IsInf(exact, 0) {
			exact = s / total * 100
		}
		items[i].Share = int(exact)
		remainders[i] = exact - float64(items[i].Share)
		assigned += items[i].Share
	}
	for ; assigned < 100; assigned++ {
		best := 0
		for i := range remainders {
			if remainders[i] > remainders[best] {
				best = i
			}
		}
		items[best].Share++
		remainders[best] = -1
	}
}

func weightedLevel(items []models.RiskItem) float64 {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(decimal.NewFromFloat(it.Level).Mul(decimal.NewFromInt(int64(it.Share))))
	}
	return sum.Div(decimal.NewFromInt(100)).Round(1).InexactFloat64()
}

func clampLevel(v float64) float64 {
	if v < 0 {
		v = 0
	}
	if v > maxRiskLevel {
		v = maxRiskLevel
	}
	return decimal.NewFromFloat(v).Round(1).InexactFloat64()
}

// toFloat coerces JSON numbers and numeric strings such as "4,5" or "25 %".
// NaN and infinities are rejected.
func toFloat(v any) (float64, bool) {
	f, ok := parseNumber(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func parseNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case int:
		return float64(n), true
	case string:
		s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(n), "%"))
		f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
		return f, err == nil
	}
	return 0, false
}
