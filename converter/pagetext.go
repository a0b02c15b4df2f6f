package converter

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/rotisserie/eris"

	"github.com/MarkkuSeppala/asuntoanalyysi-2-sub000/utils"
)

// EmptyPageNote replaces the text of pages that yield nothing.
const EmptyPageNote = "Sivulta ei löytynyt tekstiä."

// PageText extracts plain text page by page, separated by "--- Sivu N ---" markers.
type PageText struct {
	logger *utils.Logger
}

// NewPageText creates a PageText converter.
func NewPageText(logger *utils.Logger) *PageText {
	return &PageText{logger: logger}
}

// Convert reads every page of the PDF. Unreadable files and zero-page
// documents are errors, never empty output.
func (p *PageText) Convert(ctx context.Context, pdfPath string) (text string, err error) {
	// The parser panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			err = eris.Errorf("read %s: malformed pdf: %v", pdfPath, r)
		}
	}()

	f, r, err := pdf.Open(pdfPath)
	if err != nil {
		return "", eris.Wrapf(err, "open pdf %s", pdfPath)
	}
	defer f.Close()

	total := r.NumPage()
	if total == 0 {
		return "", eris.Wrapf(ErrNoPages, "%s", pdfPath)
	}

	var b strings.Builder
	extracted := 0
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return "", eris.Wrap(err, "conversion cancelled")
		}
		fmt.Fprintf(&b, "--- Sivu %d ---\n", i)

		page := r.Page(i)
		var content string
		if !page.V.IsNull() {
			content, err = page.GetPlainText(nil)
			if err != nil {
				p.logger.Warn("[converter] Page %d of %s unreadable: %v", i, pdfPath, err)
			}
		}
		content = strings.TrimSpace(utils.FixMojibake(content))
		if content == "" {
			b.WriteString(EmptyPageNote + "\n\n")
			continue
		}
		extracted++
		b.WriteString(content + "\n\n")
	}

	if extracted == 0 {
		return "", eris.Wrapf(ErrNoText, "%s (%d pages)", pdfPath, total)
	}
	p.logger.Info("[converter] Extracted text from %d/%d pages of %s", extracted, total, pdfPath)
	return strings.TrimSpace(b.String()), nil
}
