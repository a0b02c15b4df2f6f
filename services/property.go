package services

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/MarkkuSeppala/asuntoanalyysi-2-sub000/models"
	"github.com/MarkkuSeppala/asuntoanalyysi-2-sub000/utils"
)

// PropertyExtractor asks the model for the canonical property fields and
// normalizes whatever keys it answers with.
type PropertyExtractor struct {
	llm        LLM
	normalizer *Normalizer
	logger     *utils.Logger
}

func NewPropertyExtractor(l LLM, n *Normalizer, logger *utils.Logger) *PropertyExtractor {
	return &PropertyExtractor{llm: l, normalizer: n, logger: logger}
}

// Extract never fails: an unusable answer yields a record of unknowns.
func (p *PropertyExtractor) Extract(ctx context.Context, markdown string) models.PropertyRecord {
	raw, err := p.llm.CallJSON(ctx, PropertyPrompt, markdown)
	if err != nil {
		p.logger.Error("[property] Extraction call failed: %v", err)
		return p.normalizer.BuildRecord(nil)
	}

	data, err := decodeObject(raw)
	if err != nil {
		p.logger.Error("[property] Reply is not a JSON object: %v", err)
		return p.normalizer.BuildRecord(nil)
	}
	return p.normalizer.BuildRecord(data)
}

// decodeObject decodes a JSON object keeping numbers as json.Number.
func decodeObject(raw string) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var data map[string]any
	if err := dec.Decode(&data); err != nil {
		return nil, err
	}
	return data, nil
}
