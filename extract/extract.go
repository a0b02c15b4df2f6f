// Package extract is the single entry point that turns a listing URL into
// canonical markdown, dispatching on the listing site.
package extract

import (
	"context"
	"net/url"
	"strings"

	"github.com/MarkkuSeppala/asuntoanalyysi-2-sub000/models"
	"github.com/MarkkuSeppala/asuntoanalyysi-2-sub000/pipeline"
	"github.com/MarkkuSeppala/asuntoanalyysi-2-sub000/utils"
)

// UnsupportedSiteError is the Finnish message for URLs outside the known sites.
const UnsupportedSiteError = "Tuntematon sivusto. Tuetut sivustot: oikotie.fi ja etuovi.com."

var knownHosts = []struct {
	marker string
	source models.Source
}{
	{"oikotie.fi", models.SourceOikotie},
	{"etuovi.com", models.SourceEtuovi},
}

// Route derives the listing reference for rawURL. The host set is closed:
// anything else is SourceUnknown.
func Route(rawURL string) models.ListingReference {
	ref := models.ListingReference{Source: models.SourceUnknown, URL: strings.TrimSpace(rawURL)}

	host := strings.ToLower(ref.URL)
	if u, err := url.Parse(ref.URL); err == nil && u.Host != "" {
		host = strings.ToLower(u.Host)
	}
	for _, h := range knownHosts {
		if strings.Contains(host, h.marker) {
			ref.Source = h.source
			break
		}
	}

	switch ref.Source {
	case models.SourceOikotie:
		ref.PropertyID, _ = pipeline.OikotieID(ref.URL)
	case models.SourceEtuovi:
		ref.PropertyID, _ = pipeline.EtuoviID(ref.URL)
	}
	return ref
}

// Extractor dispatches URLs to their site pipeline.
type Extractor struct {
	pipelines map[models.Source]pipeline.Pipeline
	logger    *utils.Logger
}

// New creates an Extractor over the given per-site pipelines.
func New(pipelines map[models.Source]pipeline.Pipeline, logger *utils.Logger) *Extractor {
	return &Extractor{pipelines: pipelines, logger: logger}
}

// Extract returns the canonical markdown for rawURL. It never panics and
// never routes an unknown site to a default pipeline.
func (e *Extractor) Extract(ctx context.Context, rawURL string) models.ExtractionResult {
	ref := Route(rawURL)
	p, ok := e.pipelines[ref.Source]
	if ref.Source == models.SourceUnknown || !ok {
		e.logger.Warn("[extract] No pipeline for %q (source %s)", rawURL, ref.Source)
		return models.ExtractionResult{Success: false, Source: models.SourceUnknown, Error: UnsupportedSiteError}
	}

	e.logger.Info("[extract] Routing %s to the %s pipeline", ref.URL, ref.Source)
	res := p.Process(ctx, ref)
	if !res.Success {
		return models.ExtractionResult{Success: false, Source: ref.Source, Error: res.Error}
	}
	return models.ExtractionResult{Success: true, Markdown: res.Document, Source: ref.Source}
}
