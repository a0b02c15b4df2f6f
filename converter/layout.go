package converter

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"unicode"

	"github.com/rotisserie/eris"

	"github.com/MarkkuSeppala/asuntoanalyysi-2-sub000/utils"
)

var (
	columnGap    = regexp.MustCompile(`\s{2,}`)
	bulletPrefix = regexp.MustCompile(`^(?:[•●▪◦‣∙·*]|[-–—](?:\s|$))\s*`)
)

// Layout converts PDFs with `pdftotext -layout` and restructures the
// column-preserving output as markdown.
type Layout struct {
	binPath string
	logger  *utils.Logger
}

// NewLayout creates a Layout converter. If binPath is empty, "pdftotext" is used.
func NewLayout(binPath string, logger *utils.Logger) *Layout {
	if binPath == "" {
		binPath = "pdftotext"
	}
	return &Layout{binPath: binPath, logger: logger}
}

// Convert runs pdftotext and returns markdown.
func (l *Layout) Convert(ctx context.Context, pdfPath string) (string, error) {
	cmd := exec.CommandContext(ctx, l.binPath, "-layout", "-enc", "UTF-8", pdfPath, "-")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", eris.Wrapf(err, "pdftotext failed for %s: %s", pdfPath, strings.TrimSpace(stderr.String()))
	}

	md := LayoutToMarkdown(utils.FixMojibake(stdout.String()))
	if md == "" {
		return "", eris.Wrapf(ErrNoText, "%s", pdfPath)
	}
	l.logger.Info("[converter] Layout conversion of %s produced %d characters", pdfPath, len(md))
	return md, nil
}

// LayoutToMarkdown restructures pdftotext -layout output. Pages (form feeds)
// become "---" separated blocks, standalone upper-case or short title lines
// become headings, two-column rows become bold key/value bullets and bullet
// glyphs become markdown list items.
func LayoutToMarkdown(text string) string {
	var pages []string
	for _, page := range strings.Split(text, "\f") {
		if md := pageToMarkdown(page); md != "" {
			pages = append(pages, md)
		}
	}
	return strings.Join(pages, "\n\n---\n\n")
}

func pageToMarkdown(page string) string {
	raw := strings.Split(strings.ReplaceAll(page, "\r\n", "\n"), "\n")
	lines := make([]string, len(raw))
	for i, l := range raw {
		lines[i] = strings.TrimRightFunc(l, unicode.IsSpace)
	}

	var out []string
	blank := func(i int) bool { return i < 0 || i >= len(lines) || strings.TrimSpace(lines[i]) == "" }
	for i, l := range lines {
		trimmed := strings.TrimSpace(l)
		if trimmed == "" {
			if len(out) > 0 && out[len(out)-1] != "" {
				out = append(out, "")
			}
			continue
		}

		switch {
		case bulletPrefix.MatchString(trimmed):
			out = append(out, "- "+collapse(bulletPrefix.ReplaceAllString(trimmed, "")))
		case isUpperHeading(trimmed):
			out = appendBlock(out, "## "+collapse(trimmed))
		case blank(i-1) && blank(i+1) && isTitleLine(trimmed):
			out = appendBlock(out, "### "+collapse(trimmed))
		default:
			if key, value, ok := keyValue(trimmed); ok {
				out = append(out, fmt.Sprintf("- **%s:** %s", key, value))
			} else {
				out = append(out, collapse(trimmed))
			}
		}
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// appendBlock adds a heading separated from surrounding text by blank lines.
func appendBlock(out []string, heading string) []string {
	if len(out) > 0 && out[len(out)-1] != "" {
		out = append(out, "")
	}
	return append(out, heading, "")
}

func isUpperHeading(s string) bool {
	if len([]rune(s)) > 60 || columnGap.MatchString(s) {
		return false
	}
	letters := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			if !unicode.IsUpper(r) {
				return false
			}
			letters++
		}
	}
	return letters >= 3
}

func isTitleLine(s string) bool {
	r := []rune(s)
	if len(r) < 3 || len(r) > 50 || columnGap.MatchString(s) {
		return false
	}
	if !unicode.IsUpper(r[0]) || strings.ContainsAny(s, ":.,;€") {
		return false
	}
	for _, c := range r {
		if unicode.IsDigit(c) {
			return false
		}
	}
	return true
}

// keyValue splits "Velaton hinta        215 000 €" into its two columns.
func keyValue(s string) (string, string, bool) {
	parts := columnGap.Split(s, -1)
	if len(parts) != 2 {
		return "", "", false
	}
	key := strings.TrimSuffix(strings.TrimSpace(parts[0]), ":")
	value := strings.TrimSpace(parts[1])
	if key == "" || value == "" || len([]rune(key)) > 40 || !strings.ContainsFunc(key, unicode.IsLetter) {
		return "", "", false
	}
	return key, value, true
}

func collapse(s string) string {
	return utils.CleanText(s)
}
