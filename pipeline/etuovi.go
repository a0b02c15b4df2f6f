package pipeline

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/MarkkuSeppala/asuntoanalyysi-2-sub000/converter"
	"github.com/MarkkuSeppala/asuntoanalyysi-2-sub000/models"
	"github.com/MarkkuSeppala/asuntoanalyysi-2-sub000/utils"
)

// Acquirer fetches a listing brochure to dest. headless.Acquirer satisfies it.
type Acquirer interface {
	Acquire(ctx context.Context, pageURL, dest string) (string, error)
}

// EtuoviID returns the last path segment of an Etuovi listing URL, e.g. "w67778".
func EtuoviID(rawURL string) (string, error) {
	id := SanitizeFilename(path.Base(strings.TrimRight(stripQuery(rawURL), "/")))
	if id == "_" || id == "" || strings.Contains(id, ".") {
		return "", eris.Wrapf(ErrNoPropertyID, "%s", rawURL)
	}
	return id, nil
}

// Etuovi captures the brochure in a headless browser and converts it with
// layout awareness.
type Etuovi struct {
	acquirer  Acquirer
	converter converter.Converter
	workDir   string
	logger    *utils.Logger
}

// NewEtuovi creates the Etuovi pipeline.
func NewEtuovi(acq Acquirer, conv converter.Converter, workDir string, logger *utils.Logger) *Etuovi {
	if workDir == "" {
		workDir = os.TempDir()
	}
	return &Etuovi{acquirer: acq, converter: conv, workDir: workDir, logger: logger}
}

// Process implements Pipeline.
func (e *Etuovi) Process(ctx context.Context, ref models.ListingReference) (res models.RawExtractionResult) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("[etuovi] Panic while processing %s: %v", ref.URL, r)
			res = recovered(models.SourceEtuovi, r)
		}
	}()

	if ref.PropertyID == "" {
		id, err := EtuoviID(ref.URL)
		if err != nil {
			e.logger.Error("[etuovi] %v", err)
			return failure(models.SourceEtuovi, err)
		}
		ref.PropertyID = id
	}

	pdfPath := filepath.Join(e.workDir, ArtifactName("etuovi", ref.PropertyID, ".pdf"))
	defer func() {
		if err := os.Remove(pdfPath); err != nil && !os.IsNotExist(err) {
			e.logger.Warn("[etuovi] Could not remove %s: %v", pdfPath, err)
		}
	}()

	if _, err := e.acquirer.Acquire(ctx, ref.URL, pdfPath); err != nil {
		e.logger.Error("[etuovi] PDF acquisition for %s failed: %v", ref.URL, err)
		return failure(models.SourceEtuovi, err)
	}

	text, err := e.converter.Convert(ctx, pdfPath)
	if err != nil {
		e.logger.Error("[etuovi] Conversion of %s failed: %v", pdfPath, err)
		return failure(models.SourceEtuovi, err)
	}

	doc := FormatDocument(ref, ExtractFields(text, commonPatterns), text)
	e.logger.Info("[etuovi] Built document for %s (%d characters)", ref.PropertyID, len(doc))
	return models.RawExtractionResult{Success: true, RawText: text, Document: doc, Source: models.SourceEtuovi}
}

func stripQuery(rawURL string) string {
	if i := strings.IndexAny(rawURL, "?#"); i >= 0 {
		return rawURL[:i]
	}
	return rawURL
}
