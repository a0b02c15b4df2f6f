package headless

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/rotisserie/eris"

	"github.com/MarkkuSeppala/asuntoanalyysi-2-sub000/utils"
)

// controlSelector matches the element a locator script marked.
const controlSelector = `[data-pdf-control="1"]`

// ChromeOptions configures the browser launched for every session.
type ChromeOptions struct {
	Headless bool
	// ExecPath overrides binary discovery.
	ExecPath string
	// ActionTimeout bounds single element operations such as clicks.
	ActionTimeout time.Duration
}

type chromeSession struct {
	ctx     context.Context
	cancels []context.CancelFunc
	timeout time.Duration
}

// NewChromeFactory returns a SessionFactory backed by chromedp.
func NewChromeFactory(opts ChromeOptions, logger *utils.Logger) SessionFactory {
	return func(ctx context.Context, downloadDir string) (Session, error) {
		chromeBin := opts.ExecPath
		if chromeBin == "" {
			chromeBin = FindChromeBinary()
		}
		logger.Debug("[headless] Using browser binary: %q (headless=%t)", chromeBin, opts.Headless)

		allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", opts.Headless),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.Flag("disable-setuid-sandbox", true),
			chromedp.Flag("disable-popup-blocking", true),
			chromedp.WindowSize(1920, 1080),
			chromedp.UserAgent(utils.BrowserUserAgent),
		)
		if chromeBin != "" {
			allocOpts = append(allocOpts, chromedp.ExecPath(chromeBin))
		}

		allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
		// Suppress chromedp log noise
		tabCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...any) {}))

		s := &chromeSession{
			ctx:     tabCtx,
			cancels: []context.CancelFunc{cancelAlloc, cancelTab},
			timeout: opts.ActionTimeout,
		}
		if s.timeout <= 0 {
			s.timeout = 10 * time.Second
		}

		// PDFs must be saved to disk instead of opening in the built-in viewer.
		err := chromedp.Run(tabCtx,
			browser.SetDownloadBehavior(browser.SetDownloadBehaviorBehaviorAllow).
				WithDownloadPath(downloadDir).
				WithEventsEnabled(true),
		)
		if err != nil {
			s.Close()
			return nil, eris.Wrap(err, "launch browser")
		}
		return s, nil
	}
}

func (s *chromeSession) run(timeout time.Duration, actions ...chromedp.Action) error {
	ctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	return chromedp.Run(ctx, actions...)
}

func (s *chromeSession) Open(url string, timeout time.Duration) error {
	err := s.run(timeout,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	return eris.Wrapf(err, "open %s", url)
}

func (s *chromeSession) Scroll(dy int) error {
	return eris.Wrap(s.run(s.timeout, chromedp.Evaluate(fmt.Sprintf("window.scrollBy(0, %d)", dy), nil)), "scroll")
}

func (s *chromeSession) Mark(script string) (bool, error) {
	var found bool
	if err := s.run(s.timeout, chromedp.Evaluate(script, &found)); err != nil {
		return false, eris.Wrap(err, "evaluate locator")
	}
	return found, nil
}

func (s *chromeSession) ScrollIntoView() error {
	return eris.Wrap(s.run(s.timeout, chromedp.ScrollIntoView(controlSelector, chromedp.ByQuery)), "scroll control into view")
}

func (s *chromeSession) NativeClick() error {
	return eris.Wrap(s.run(s.timeout, chromedp.Click(controlSelector, chromedp.ByQuery, chromedp.NodeVisible)), "native click")
}

func (s *chromeSession) ScriptClick() error {
	script := fmt.Sprintf(`(function() {
		var el = document.querySelector('%s');
		if (!el) { return false; }
		el.click();
		return true;
	})()`, controlSelector)

	var clicked bool
	if err := s.run(s.timeout, chromedp.Evaluate(script, &clicked)); err != nil {
		return eris.Wrap(err, "script click")
	}
	if !clicked {
		return eris.New("script click: marked control disappeared")
	}
	return nil
}

func (s *chromeSession) FollowNewTab() (bool, error) {
	current := chromedp.FromContext(s.ctx).Target
	targets, err := chromedp.Targets(s.ctx)
	if err != nil {
		return false, eris.Wrap(err, "list targets")
	}
	for _, t := range targets {
		if t.Type != "page" || (current != nil && t.TargetID == current.TargetID) {
			continue
		}
		tabCtx, cancel := chromedp.NewContext(s.ctx, chromedp.WithTargetID(t.TargetID))
		if err := chromedp.Run(tabCtx); err != nil {
			cancel()
			return false, eris.Wrapf(err, "attach to tab %s", t.URL)
		}
		s.ctx = tabCtx
		s.cancels = append(s.cancels, cancel)
		return true, nil
	}
	return false, nil
}

func (s *chromeSession) CurrentURL() (string, error) {
	var u string
	if err := s.run(s.timeout, chromedp.Location(&u)); err != nil {
		return "", eris.Wrap(err, "read location")
	}
	return u, nil
}

func (s *chromeSession) ReadBlob(blobURL string) ([]byte, error) {
	script := fmt.Sprintf(`fetch(%q)
		.then(function(r) { return r.blob(); })
		.then(function(b) {
			return new Promise(function(resolve, reject) {
				var reader = new FileReader();
				reader.onloadend = function() { resolve(reader.result); };
				reader.onerror = reject;
				reader.readAsDataURL(b);
			});
		})`, blobURL)

	var dataURL string
	err := s.run(s.timeout, chromedp.Evaluate(script, &dataURL, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
		return p.WithAwaitPromise(true)
	}))
	if err != nil {
		return nil, eris.Wrap(err, "read blob")
	}

	_, payload, ok := strings.Cut(dataURL, "base64,")
	if !ok {
		return nil, eris.New("blob reader returned no base64 payload")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, eris.Wrap(err, "decode blob payload")
	}
	return data, nil
}

func (s *chromeSession) Close() error {
	for i := len(s.cancels) - 1; i >= 0; i-- {
		s.cancels[i]()
	}
	s.cancels = nil
	return nil
}

// FindChromeBinary tries to locate a Chrome/Chromium binary on the system.
func FindChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
