// Package listing scrapes a single real-estate listing page over plain HTTP
// and renders what it finds as markdown.
package listing

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/MarkkuSeppala/asuntoanalyysi-2-sub000/utils"
)

// Fields maps a field key to its extracted value. Missing keys mean "not found".
type Fields map[string]string

// Get returns the value for key, or "" when absent.
func (f Fields) Get(key string) string {
	if f == nil {
		return ""
	}
	return f[key]
}

// combine folds a details field into its main field as "main - details".
func (f Fields) combine(main, details string) {
	d := f.Get(details)
	if d == "" {
		return
	}
	if m := f.Get(main); m != "" && !strings.Contains(m, d) {
		f[main] = m + " - " + d
	} else if m == "" {
		f[main] = d
	}
	delete(f, details)
}

// Renovation is one planned or completed renovation. Year is empty when the
// listing did not date it.
type Renovation struct {
	Year        string
	Description string
}

// Data is everything extracted from one page. It is plain state: formatting
// it never touches the network or the clock.
type Data struct {
	URL     string
	Title   string
	Address string

	Basic    Fields
	Price    Fields
	Features Fields
	Building Fields
	Land     Fields
	Location Fields
	Contact  Fields

	UpcomingRenovations  []Renovation
	CompletedRenovations []Renovation
	ViewingTimes         []string
	Description          string

	ExtractedAt time.Time
}

// Scraper fetches and parses one listing page. It does not retry; callers
// decide whether a failed fetch is worth repeating.
type Scraper struct {
	url     string
	client  *http.Client
	limiter *utils.HostLimiter
	logger  *utils.Logger
	now     func() time.Time

	doc        *goquery.Document
	cachedText string
}

// New creates a Scraper for rawURL. A nil client gets a 30 second timeout.
func New(rawURL string, client *http.Client, limiter *utils.HostLimiter, logger *utils.Logger) *Scraper {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Scraper{
		url:     rawURL,
		client:  client,
		limiter: limiter,
		logger:  logger,
		now:     time.Now,
	}
}

// Fetch downloads and parses the page with a single GET.
func (s *Scraper) Fetch(ctx context.Context) error {
	if err := s.limiter.WaitURL(ctx, s.url); err != nil {
		return eris.Wrap(err, "rate limiter")
	}
	req, err := utils.NewHTTPRequest(ctx, s.url)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Error("[scraper] Fetch %s failed: %v", s.url, err)
		return eris.Wrapf(err, "fetch %s", s.url)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.logger.Error("[scraper] Fetch %s returned status %d", s.url, resp.StatusCode)
		return eris.Errorf("fetch %s: unexpected status %d", s.url, resp.StatusCode)
	}
	s.logger.Info("[scraper] Fetched %s", s.url)
	return s.Load(resp.Body)
}

// Load parses already-downloaded HTML.
func (s *Scraper) Load(r io.Reader) error {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return eris.Wrap(err, "parse html")
	}
	s.doc = doc
	s.cachedText = ""
	return nil
}

// ExtractData runs every field category. Categories fail independently and a
// failing one only leaves its own fields empty. Returns nil before a page is loaded.
func (s *Scraper) ExtractData() *Data {
	if s.doc == nil {
		return nil
	}
	d := &Data{
		URL:         s.url,
		Title:       s.title(),
		ExtractedAt: s.now(),
	}

	steps := []struct {
		name string
		fn   func(*Data)
	}{
		{"basic info", s.extractBasic},
		{"price", s.extractPrice},
		{"features", s.extractFeatures},
		{"building", s.extractBuilding},
		{"renovations", s.extractRenovations},
		{"land", s.extractLand},
		{"location", s.extractLocation},
		{"contact", s.extractContact},
		{"description", s.extractDescription},
	}
	for _, step := range steps {
		s.safeRun(step.name, func() { step.fn(d) })
	}
	return d
}

func (s *Scraper) safeRun(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("[scraper] Extracting %s failed: %v", name, r)
		}
	}()
	fn()
}

// Run fetches, extracts and formats the page.
func (s *Scraper) Run(ctx context.Context) (string, error) {
	if err := s.Fetch(ctx); err != nil {
		return "", err
	}
	data := s.ExtractData()
	if data == nil {
		return "", eris.New("no document loaded")
	}
	return FormatMarkdown(data), nil
}

func (s *Scraper) title() string {
	if t := utils.CleanText(s.doc.Find("h1").First().Text()); t != "" {
		return t
	}
	t := utils.CleanText(s.doc.Find("title").First().Text())
	if i := strings.Index(t, " | "); i > 0 {
		t = t[:i]
	}
	return t
}

// pageText is the whitespace-collapsed text of the body, computed once per page.
func (s *Scraper) pageText() string {
	if s.cachedText == "" {
		body := s.doc.Find("body").Clone()
		body.Find("script, style, noscript").Remove()
		s.cachedText = utils.CleanText(body.Text())
	}
	return s.cachedText
}

func (s *Scraper) path() string {
	u, err := url.Parse(s.url)
	if err != nil {
		return s.url
	}
	return u.Path
}
