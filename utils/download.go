package utils

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// BrowserUserAgent is sent with every plain HTTP request so listing sites
// serve the same markup they serve to a desktop Chrome.
const BrowserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// ErrFileTooSmall marks an artifact below the minimum plausible size. A
// near-empty PDF is treated as a failed download, not as a document.
var ErrFileTooSmall = eris.New("file too small, presumed corrupt")

// NewHTTPRequest builds a GET request carrying the browser user agent.
func NewHTTPRequest(ctx context.Context, rawURL string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrapf(err, "build request for %s", rawURL)
	}
	req.Header.Set("User-Agent", BrowserUserAgent)
	req.Header.Set("Accept-Language", "fi-FI,fi;q=0.9,en;q=0.8")
	return req, nil
}

// DownloadFile streams rawURL into dest and rejects results smaller than minBytes.
// A partially written or rejected dest is removed.
func DownloadFile(ctx context.Context, client *http.Client, limiter *HostLimiter, rawURL, dest string, minBytes int64) (int64, error) {
	if err := limiter.WaitURL(ctx, rawURL); err != nil {
		return 0, eris.Wrap(err, "rate limiter")
	}
	req, err := NewHTTPRequest(ctx, rawURL)
	if err != nil {
		return 0, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, eris.Wrapf(err, "download %s", rawURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, eris.Errorf("download %s: unexpected status %d", rawURL, resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, eris.Wrap(err, "create download dir")
	}
	f, err := os.Create(dest)
	if err != nil {
		return 0, eris.Wrapf(err, "create %s", dest)
	}
	n, copyErr := io.Copy(f, resp.Body)
	closeErr := f.Close()
	if copyErr != nil {
		_ = os.Remove(dest)
		return n, eris.Wrapf(copyErr, "stream %s", rawURL)
	}
	if closeErr != nil {
		_ = os.Remove(dest)
		return n, eris.Wrapf(closeErr, "close %s", dest)
	}
	if n < minBytes {
		_ = os.Remove(dest)
		return n, eris.Wrapf(ErrFileTooSmall, "%s is %d bytes (minimum %d)", rawURL, n, minBytes)
	}
	return n, nil
}

// CheckFileSize returns the size of path, or ErrFileTooSmall when it is below minBytes.
func CheckFileSize(path string, minBytes int64) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, eris.Wrapf(err, "stat %s", path)
	}
	if info.Size() < minBytes {
		return info.Size(), eris.Wrapf(ErrFileTooSmall, "%s is %d bytes (minimum %d)", path, info.Size(), minBytes)
	}
	return info.Size(), nil
}

// CopyFile copies src to dst, creating dst's directory if needed.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return eris.Wrapf(err, "open %s", src)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return eris.Wrap(err, "create destination dir")
	}
	out, err := os.Create(dst)
	if err != nil {
		return eris.Wrapf(err, "create %s", dst)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return eris.Wrapf(err, "copy %s to %s", src, dst)
	}
	return eris.Wrapf(out.Close(), "close %s", dst)
}
