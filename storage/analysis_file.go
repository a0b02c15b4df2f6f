package storage

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/MarkkuSeppala/asuntoanalyysi-2-sub000/models"
)

// AnalysisFileWriter archives analyses as text files named
// analyysi_<YYYYmmdd_HHMMSS>_<hash>.txt, where hash identifies the listing
// document the analysis was made from.
type AnalysisFileWriter struct {
	dir string
	now func() time.Time
}

func NewAnalysisFileWriter(dir string) *AnalysisFileWriter {
	return &AnalysisFileWriter{dir: dir, now: time.Now}
}

// Write creates the archive file and returns its path. Intermediate
// directories are created automatically.
func (w *AnalysisFileWriter) Write(a *models.Analysis) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", eris.Wrapf(err, "create analyses dir %s", w.dir)
	}

	now := w.now()
	stamp := now.Format("20060102_150405")
	path := filepath.Join(w.dir, fmt.Sprintf("analyysi_%s_%s.txt", stamp, previewHash(a.Markdown)))

	var b strings.Builder
	fmt.Fprintf(&b, "# Asuntoanalyysi %s\n\n", stamp)
	if title := FirstHeading(a.Markdown); title != "" {
		fmt.Fprintf(&b, "Kohde: %s\n\n", title)
	}
	b.WriteString("## ANALYYSI\n\n")
	b.WriteString(a.Content)
	fmt.Fprintf(&b, "\n\n---\nGeneroitu %s\n", now.Format("02.01.2006 klo 15:04:05"))

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", eris.Wrapf(err, "write analysis %s", path)
	}
	return path, nil
}

// previewHash is the first 8 hex digits of the md5 of the first 100
// characters of the document.
func previewHash(markdown string) string {
	preview := []rune(markdown)
	if len(preview) > 100 {
		preview = preview[:100]
	}
	sum := md5.Sum([]byte(string(preview)))
	return hex.EncodeToString(sum[:])[:8]
}

// FirstHeading returns the text of the first level-one markdown heading.
func FirstHeading(markdown string) string {
	for _, line := range strings.Split(markdown, "\n") {
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(line[2:])
		}
	}
	return ""
}
