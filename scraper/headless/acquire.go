package headless

import (
	"bytes"
	"errors"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/MarkkuSeppala/asuntoanalyysi-2-sub000/utils"
)

var (
	// ErrControlNotFound means no locator strategy matched a print/PDF control.
	ErrControlNotFound = eris.New("pdf control not found")
	// ErrDownloadTimeout means no file appeared and neither the blob nor the direct fallback produced one.
	ErrDownloadTimeout = eris.New("pdf download timed out")
	// ErrNotPDF marks an artifact that does not start with a PDF header.
	ErrNotPDF = eris.New("artifact is not a pdf")
)

// Config holds the timings and limits of one acquisition.
type Config struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration

	PageLoadTimeout time.Duration
	ScrollSteps     int
	ScrollStep      int
	ScrollPause     time.Duration
	ClickSettle     time.Duration
	TabSettle       time.Duration
	DownloadWait    time.Duration
	PollInterval    time.Duration

	MinBytes int64
	// TempRoot holds the per-attempt download directories. Empty uses os.TempDir.
	TempRoot string
}

// DefaultConfig returns the timings that work against live listing pages.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:     3,
		BaseDelay:       2 * time.Second,
		MaxDelay:        30 * time.Second,
		PageLoadTimeout: 20 * time.Second,
		ScrollSteps:     5,
		ScrollStep:      300,
		ScrollPause:     time.Second,
		ClickSettle:     2 * time.Second,
		TabSettle:       7 * time.Second,
		DownloadWait:    45 * time.Second,
		PollInterval:    time.Second,
		MinBytes:        1024,
	}
}

// Acquirer captures listing brochures through a headless browser.
type Acquirer struct {
	cfg        Config
	newSession SessionFactory
	locators   []Locator
	client     *http.Client
	limiter    *utils.HostLimiter
	logger     *utils.Logger

	// wait covers the fixed settle pauses; backoff covers the waits between attempts.
	wait    func(ctx context.Context, d time.Duration) error
	backoff func(ctx context.Context, d time.Duration) error
}

// NewAcquirer creates an Acquirer. client and limiter serve the direct-download fallback.
func NewAcquirer(cfg Config, factory SessionFactory, client *http.Client, limiter *utils.HostLimiter, logger *utils.Logger) *Acquirer {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Acquirer{
		cfg:        cfg,
		newSession: factory,
		locators:   DefaultLocators(),
		client:     client,
		limiter:    limiter,
		logger:     logger,
		wait:       utils.SleepContext,
		backoff:    utils.SleepContext,
	}
}

// Acquire saves the brochure of the listing at pageURL to dest and returns dest.
// Every attempt runs in a fresh browser and download directory; both are gone
// when Acquire returns.
func (a *Acquirer) Acquire(ctx context.Context, pageURL, dest string) (string, error) {
	retry := &utils.RetryConfig{
		MaxAttempts: a.cfg.MaxAttempts,
		BaseDelay:   a.cfg.BaseDelay,
		MaxDelay:    a.cfg.MaxDelay,
		Jitter:      0.25,
		Sleep:       a.backoff,
		Logger:      a.logger,
	}

	attempt := 0
	err := retry.Do(ctx, "pdf acquisition", func(ctx context.Context) error {
		attempt++
		return a.attempt(ctx, attempt, pageURL, dest)
	})
	if err != nil {
		return "", err
	}
	a.logger.Info("[headless] PDF saved to %s (attempt %d)", dest, attempt)
	return dest, nil
}

func (a *Acquirer) attempt(ctx context.Context, n int, pageURL, dest string) error {
	root := a.cfg.TempRoot
	if root == "" {
		root = os.TempDir()
	}
	dir := filepath.Join(root, fmt.Sprintf("pdf_download_%d_%s", time.Now().Unix(), uuid.NewString()))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrap(err, "create download dir")
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			a.logger.Warn("[headless] Could not remove %s: %v", dir, err)
		}
	}()

	sess, err := a.newSession(ctx, dir)
	if err != nil {
		return err
	}
	defer sess.Close()

	a.logger.Info("[headless] Attempt %d: opening %s", n, pageURL)
	if err := sess.Open(pageURL, a.cfg.PageLoadTimeout); err != nil {
		return err
	}

	// Controls below the fold are neither found nor clickable until scrolled to.
	for i := 0; i < a.cfg.ScrollSteps; i++ {
		if err := sess.Scroll(a.cfg.ScrollStep); err != nil {
			return err
		}
		if err := a.wait(ctx, a.cfg.ScrollPause); err != nil {
			return err
		}
	}

	strategy, err := a.locate(sess)
	if err != nil {
		return err
	}
	a.logger.Debug("[headless] Control found with %s", strategy)

	if err := a.click(ctx, sess); err != nil {
		return err
	}

	if err := a.wait(ctx, a.cfg.TabSettle); err != nil {
		return err
	}
	if switched, err := sess.FollowNewTab(); err != nil {
		a.logger.Warn("[headless] Could not inspect new tabs: %v", err)
	} else if switched {
		a.logger.Debug("[headless] Switched to the newly opened tab")
	}

	current, err := sess.CurrentURL()
	if err != nil {
		return err
	}

	if found, ok := WaitForDownload(ctx, dir, a.cfg.DownloadWait, a.cfg.PollInterval); ok {
		if err := checkPDF(found, a.cfg.MinBytes); err != nil {
			return err
		}
		return utils.CopyFile(found, dest)
	}

	if strings.HasPrefix(current, "blob:") {
		a.logger.Info("[headless] No download, reading blob %s", current)
		data, err := sess.ReadBlob(current)
		if err != nil {
			return err
		}
		return writePDF(dest, data, a.cfg.MinBytes)
	}

	a.logger.Info("[headless] No download, fetching %s directly", current)
	if _, err := utils.DownloadFile(ctx, a.client, a.limiter, current, dest, a.cfg.MinBytes); err != nil {
		if errors.Is(err, utils.ErrFileTooSmall) {
			return err
		}
		return eris.Wrapf(ErrDownloadTimeout, "after %v, direct fallback: %v", a.cfg.DownloadWait, err)
	}
	if err := checkPDF(dest, a.cfg.MinBytes); err != nil {
		_ = os.Remove(dest)
		return err
	}
	return nil
}

// locate runs the locator cascade and returns the name of the first strategy
// that marked a control. A failing strategy does not stop the cascade.
func (a *Acquirer) locate(sess Session) (string, error) {
	for _, l := range a.locators {
		found, err := sess.Mark(l.Script)
		if err != nil {
			a.logger.Debug("[headless] Locator %s failed: %v", l.Name, err)
			continue
		}
		if found {
			return l.Name, nil
		}
	}
	return "", eris.Wrapf(ErrControlNotFound, "tried %d strategies", len(a.locators))
}

// click scrolls the control into view and clicks it, falling back to a
// script click when the native click is intercepted.
func (a *Acquirer) click(ctx context.Context, sess Session) error {
	if err := sess.ScrollIntoView(); err != nil {
		a.logger.Debug("[headless] Scroll into view failed: %v", err)
	}
	if err := a.wait(ctx, a.cfg.ClickSettle); err != nil {
		return err
	}
	if err := sess.NativeClick(); err != nil {
		a.logger.Warn("[headless] Native click failed, using script click: %v", err)
		return sess.ScriptClick()
	}
	return nil
}

// WaitForDownload polls dir every interval for a finished .pdf file until
// window elapses. In-progress downloads carry another extension and are ignored.
func WaitForDownload(ctx context.Context, dir string, window, interval time.Duration) (string, bool) {
	if interval <= 0 {
		interval = time.Second
	}
	deadline := time.Now().Add(window)
	for {
		matches, _ := filepath.Glob(filepath.Join(dir, "*.pdf"))
		if len(matches) > 0 {
			return matches[0], true
		}
		if !time.Now().Before(deadline) {
			return "", false
		}
		if err := utils.SleepContext(ctx, min(interval, time.Until(deadline))); err != nil {
			return "", false
		}
	}
}

var pdfMagic = []byte("%PDF")

func checkPDF(path string, minBytes int64) error {
	if _, err := utils.CheckFileSize(path, minBytes); err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return eris.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	head := make([]byte, len(pdfMagic))
	if _, err := io.ReadFull(f, head); err != nil || !bytes.Equal(head, pdfMagic) {
		return eris.Wrapf(ErrNotPDF, "%s", path)
	}
	return nil
}

func writePDF(dest string, data []byte, minBytes int64) error {
	if int64(len(data)) < minBytes {
		return eris.Wrapf(utils.ErrFileTooSmall, "blob is %d bytes (minimum %d)", len(data), minBytes)
	}
	if !bytes.HasPrefix(data, pdfMagic) {
		return eris.Wrap(ErrNotPDF, "blob")
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return eris.Wrap(err, "create destination dir")
	}
	return eris.Wrapf(os.WriteFile(dest, data, 0o644), "write %s", dest)
}
