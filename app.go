package main

import (
	"context"
	"net/http"
	"os"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"

	"github.com/MarkkuSeppala/asuntoanalyysi-2-sub000/config"
	"github.com/MarkkuSeppala/asuntoanalyysi-2-sub000/converter"
	"github.com/MarkkuSeppala/asuntoanalyysi-2-sub000/extract"
	"github.com/MarkkuSeppala/asuntoanalyysi-2-sub000/llm"
	"github.com/MarkkuSeppala/asuntoanalyysi-2-sub000/models"
	"github.com/MarkkuSeppala/asuntoanalyysi-2-sub000/pipeline"
	"github.com/MarkkuSeppala/asuntoanalyysi-2-sub000/scraper/headless"
	"github.com/MarkkuSeppala/asuntoanalyysi-2-sub000/services"
	"github.com/MarkkuSeppala/asuntoanalyysi-2-sub000/storage"
	"github.com/MarkkuSeppala/asuntoanalyysi-2-sub000/utils"
)

// app holds the components shared by the commands of one process.
type app struct {
	cfg     *config.Config
	logger  *utils.Logger
	client  *http.Client
	limiter *utils.HostLimiter
}

func newApp(cfg *config.Config, logger *utils.Logger) *app {
	return &app{
		cfg:     cfg,
		logger:  logger,
		client:  &http.Client{Timeout: cfg.HTTPTimeout},
		limiter: utils.NewHostLimiter(cfg.RateLimit, 1),
	}
}

// component returns the logger of one component, tagged with its name.
func (a *app) component(name string) *utils.Logger {
	return a.logger.With("component", name)
}

func (a *app) acquirer() *headless.Acquirer {
	hc := headless.DefaultConfig()
	hc.MaxAttempts = a.cfg.MaxRetries
	hc.BaseDelay = a.cfg.RetryBaseDelay
	hc.PageLoadTimeout = a.cfg.PageLoadTimeout
	hc.DownloadWait = a.cfg.DownloadWait
	hc.MinBytes = a.cfg.MinPDFBytes
	hc.TempRoot = a.cfg.WorkDir

	factory := headless.NewChromeFactory(headless.ChromeOptions{
		Headless:      a.cfg.Headless,
		ExecPath:      a.cfg.ChromeBin,
		ActionTimeout: a.cfg.PageLoadTimeout,
	}, a.component("headless"))
	return headless.NewAcquirer(hc, factory, a.client, a.limiter, a.component("headless"))
}

// etuoviConverter prefers the layout-preserving converter and falls back to
// page text unless ETUOVI_CONVERTER=text.
func (a *app) etuoviConverter() converter.Converter {
	pageText := converter.NewPageText(a.component("converter"))
	if a.cfg.EtuoviConverter == "text" {
		return pageText
	}
	return converter.Chain{converter.NewLayout(a.cfg.PdftotextBin, a.component("converter")), pageText}
}

func (a *app) extractor() *extract.Extractor {
	oikotie := pipeline.NewOikotie(a.client, a.limiter, converter.NewPageText(a.component("converter")),
		pipeline.ListingPageScraper(a.client, a.limiter, a.component("scraper")), a.cfg.WorkDir, a.cfg.MinPDFBytes, a.component("oikotie"))
	etuovi := pipeline.NewEtuovi(a.acquirer(), a.etuoviConverter(), a.cfg.WorkDir, a.component("etuovi"))

	return extract.New(map[models.Source]pipeline.Pipeline{
		models.SourceOikotie: oikotie,
		models.SourceEtuovi:  etuovi,
	}, a.component("extract"))
}

// analysis bundles the model-backed services.
type analysis struct {
	analyzer *services.Analyzer
	property *services.PropertyExtractor
	risk     *services.RiskScorer
}

func (a *app) analysisServices() (*analysis, error) {
	if a.cfg.AnthropicAPIKey == "" {
		return nil, eris.New("ANTHROPIC_API_KEY is not set")
	}
	client := llm.NewAnthropicClient(a.cfg.AnthropicAPIKey, option.WithRequestTimeout(a.cfg.HTTPTimeout*4))

	analysisLLM := llm.NewService(client, llm.ServiceConfig{
		Model:       a.cfg.AnalysisModel,
		MaxTokens:   4096,
		MaxAttempts: a.cfg.LLMMaxRetries,
	}, a.component("llm"))
	extractionLLM := llm.NewService(client, llm.ServiceConfig{
		Model:       a.cfg.ExtractionModel,
		MaxTokens:   1024,
		MaxAttempts: a.cfg.LLMMaxRetries,
	}, a.component("llm"))

	return &analysis{
		analyzer: services.NewAnalyzer(analysisLLM, a.component("analyzer")),
		property: services.NewPropertyExtractor(extractionLLM, services.NewNormalizer(a.component("normalizer")), a.component("property")),
		risk:     services.NewRiskScorer(extractionLLM, a.component("risk")),
	}, nil
}

func (a *app) store(ctx context.Context) (storage.AnalysisStore, error) {
	return storage.NewPostgresStore(ctx, a.cfg.DSN(), a.component("storage"))
}

// writeOutput writes text to path, or to stdout when path is empty.
func writeOutput(path, text string) error {
	if path == "" {
		_, err := os.Stdout.WriteString(text + "\n")
		return err
	}
	return eris.Wrapf(os.WriteFile(path, []byte(text), 0o644), "write %s", path)
}
