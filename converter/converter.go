// Package converter turns downloaded listing PDFs into text or markdown.
package converter

import (
	"context"

	"github.com/rotisserie/eris"
)

var (
	// ErrNoPages is returned for PDFs that open but contain no pages.
	ErrNoPages = eris.New("pdf has no pages")
	// ErrNoText is returned when conversion succeeds but yields no text at all.
	ErrNoText = eris.New("pdf contains no extractable text")
)

// Converter extracts the textual content of a PDF. Conversion is
// deterministic, so implementations do not retry.
type Converter interface {
	Convert(ctx context.Context, pdfPath string) (string, error)
}

// Chain tries converters in order and returns the first successful result.
type Chain []Converter

func (c Chain) Convert(ctx context.Context, pdfPath string) (string, error) {
	var lastErr error = ErrNoText
	for _, conv := range c {
		text, err := conv.Convert(ctx, pdfPath)
		if err == nil {
			return text, nil
		}
		lastErr = err
	}
	return "", lastErr
}
