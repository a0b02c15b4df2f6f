package pipeline

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"regexp"

	"github.com/rotisserie/eris"

	"github.com/MarkkuSeppala/asuntoanalyysi-2-sub000/converter"
	"github.com/MarkkuSeppala/asuntoanalyysi-2-sub000/models"
	"github.com/MarkkuSeppala/asuntoanalyysi-2-sub000/scraper/listing"
	"github.com/MarkkuSeppala/asuntoanalyysi-2-sub000/utils"
)

// ShowcaseBaseURL serves the printable brochure of an Oikotie listing by id.
const ShowcaseBaseURL = "https://asunnot.oikotie.fi/nayttoesite/"

var oikotieID = regexp.MustCompile(`/(\d+)/?$`)

// OikotieID returns the numeric id that ends an Oikotie listing URL.
func OikotieID(rawURL string) (string, error) {
	m := oikotieID.FindStringSubmatch(stripQuery(rawURL))
	if m == nil {
		return "", eris.Wrapf(ErrNoPropertyID, "%s does not end with a numeric id", rawURL)
	}
	return m[1], nil
}

// PageScraper renders a listing page as markdown without a brochure.
type PageScraper func(ctx context.Context, url string) (string, error)

// ListingPageScraper adapts the HTML listing scraper to a PageScraper.
func ListingPageScraper(client *http.Client, limiter *utils.HostLimiter, logger *utils.Logger) PageScraper {
	return func(ctx context.Context, url string) (string, error) {
		return listing.New(url, client, limiter, logger).Run(ctx)
	}
}

// Oikotie downloads the showcase brochure over plain HTTP and converts it page by page.
type Oikotie struct {
	client    *http.Client
	limiter   *utils.HostLimiter
	converter converter.Converter
	fallback  PageScraper
	workDir   string
	minBytes  int64
	baseURL   string
	logger    *utils.Logger
}

// NewOikotie creates the Oikotie pipeline. fallback may be nil.
func NewOikotie(client *http.Client, limiter *utils.HostLimiter, conv converter.Converter, fallback PageScraper, workDir string, minBytes int64, logger *utils.Logger) *Oikotie {
	if workDir == "" {
		workDir = os.TempDir()
	}
	return &Oikotie{
		client:    client,
		limiter:   limiter,
		converter: conv,
		fallback:  fallback,
		workDir:   workDir,
		minBytes:  minBytes,
		baseURL:   ShowcaseBaseURL,
		logger:    logger,
	}
}

// Process implements Pipeline.
func (o *Oikotie) Process(ctx context.Context, ref models.ListingReference) (res models.RawExtractionResult) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("[oikotie] Panic while processing %s: %v", ref.URL, r)
			res = recovered(models.SourceOikotie, r)
		}
	}()

	if ref.PropertyID == "" {
		id, err := OikotieID(ref.URL)
		if err != nil {
			o.logger.Error("[oikotie] %v", err)
			return failure(models.SourceOikotie, err)
		}
		ref.PropertyID = id
	}

	text, err := o.brochureText(ctx, ref.PropertyID)
	if err != nil {
		o.logger.Warn("[oikotie] Brochure for %s unavailable: %v", ref.PropertyID, err)
		if o.fallback == nil {
			return failure(models.SourceOikotie, err)
		}
		o.logger.Info("[oikotie] Falling back to the listing page %s", ref.URL)
		text, err = o.fallback(ctx, ref.URL)
		if err != nil {
			o.logger.Error("[oikotie] Listing page fallback failed: %v", err)
			return failure(models.SourceOikotie, eris.Wrap(err, "brochure and listing page both failed"))
		}
	}

	doc := FormatDocument(ref, ExtractFields(text, commonPatterns), text)
	o.logger.Info("[oikotie] Built document for %s (%d characters)", ref.PropertyID, len(doc))
	return models.RawExtractionResult{Success: true, RawText: text, Document: doc, Source: models.SourceOikotie}
}

func (o *Oikotie) brochureText(ctx context.Context, id string) (string, error) {
	pdfPath := filepath.Join(o.workDir, ArtifactName("oikotie", id, ".pdf"))
	defer func() {
		if err := os.Remove(pdfPath); err != nil && !os.IsNotExist(err) {
			o.logger.Warn("[oikotie] Could not remove %s: %v", pdfPath, err)
		}
	}()

	showcase := o.baseURL + id
	o.logger.Info("[oikotie] Downloading brochure %s", showcase)
	n, err := utils.DownloadFile(ctx, o.client, o.limiter, showcase, pdfPath, o.minBytes)
	if err != nil {
		return "", err
	}
	o.logger.Debug("[oikotie] Downloaded %d bytes to %s", n, pdfPath)

	return o.converter.Convert(ctx, pdfPath)
}
