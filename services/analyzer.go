package services

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/MarkkuSeppala/asuntoanalyysi-2-sub000/llm"
	"github.com/MarkkuSeppala/asuntoanalyysi-2-sub000/utils"
)

// LLM is the part of llm.Service the analysis services use.
type LLM interface {
	Call(ctx context.Context, system, user string) (string, error)
	CallJSON(ctx context.Context, system, user string) (string, error)
}

// Analyzer produces the narrative buyer analysis of a listing document.
type Analyzer struct {
	llm    LLM
	logger *utils.Logger
}

func NewAnalyzer(l LLM, logger *utils.Logger) *Analyzer {
	return &Analyzer{llm: l, logger: logger}
}

// Analyze returns the sanitized analysis. On failure the text is the Finnish
// message to show the user and err carries the cause.
func (a *Analyzer) Analyze(ctx context.Context, markdown string) (string, error) {
	if strings.TrimSpace(markdown) == "" {
		return llm.MessageFor(llm.CategoryInvalidRequest), eris.New("empty listing document")
	}

	reply, err := a.llm.Call(ctx, AnalysisPrompt, markdown)
	if err != nil {
		a.logger.Error("[analyzer] Analysis failed: %v", err)
		return llm.UserMessage(err), err
	}

	text := llm.SanitizeMarkdown(reply)
	if text == "" {
		err := eris.Wrap(llm.ErrEmptyResponse, "analysis empty after sanitizing")
		return llm.UserMessage(err), err
	}
	a.logger.Info("[analyzer] Analysis ready (%d characters)", len(text))
	return text, nil
}
