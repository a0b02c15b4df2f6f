package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/MarkkuSeppala/asuntoanalyysi-2-sub000/extract"
	"github.com/MarkkuSeppala/asuntoanalyysi-2-sub000/models"
	"github.com/MarkkuSeppala/asuntoanalyysi-2-sub000/pipeline"
	"github.com/MarkkuSeppala/asuntoanalyysi-2-sub000/scraper/listing"
	"github.com/MarkkuSeppala/asuntoanalyysi-2-sub000/services"
	"github.com/MarkkuSeppala/asuntoanalyysi-2-sub000/storage"
	"github.com/MarkkuSeppala/asuntoanalyysi-2-sub000/utils"
)

var extractCmd = &cobra.Command{
	Use:   "extract <url> [output]",
	Short: "Build the markdown document of a listing",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		res := newApp(cfg, logger).extractor().Extract(cmd.Context(), args[0])
		if !res.Success {
			return eris.New(res.Error)
		}
		return writeOutput(optionalArg(args, 1), res.Markdown)
	},
}

var noText bool

var downloadCmd = &cobra.Command{
	Use:   "download-pdf <url> [output]",
	Short: "Download the brochure PDF of a listing",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a := newApp(cfg, logger)

		ref := extract.Route(args[0])
		out := optionalArg(args, 1)
		if out == "" {
			out = pipeline.SanitizeFilename(fmt.Sprintf("%s_%s.pdf", ref.Source, ref.PropertyID))
		}

		switch ref.Source {
		case models.SourceEtuovi:
			if _, err := a.acquirer().Acquire(ctx, ref.URL, out); err != nil {
				return err
			}
		case models.SourceOikotie:
			if ref.PropertyID == "" {
				return pipeline.ErrNoPropertyID
			}
			if _, err := utils.DownloadFile(ctx, a.client, a.limiter, pipeline.ShowcaseBaseURL+ref.PropertyID, out, cfg.MinPDFBytes); err != nil {
				return err
			}
		default:
			return eris.New(extract.UnsupportedSiteError)
		}
		logger.Info("PDF saved to %s", out)

		if noText {
			return nil
		}
		text, err := a.etuoviConverter().Convert(ctx, out)
		if err != nil {
			return err
		}
		txtPath := strings.TrimSuffix(out, filepath.Ext(out)) + ".txt"
		if err := writeOutput(txtPath, text); err != nil {
			return err
		}
		logger.Info("Text saved to %s", txtPath)
		return nil
	},
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape <url> [output]",
	Short: "Scrape a listing page's HTML into markdown",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a := newApp(cfg, logger)
		md, err := listing.New(args[0], a.client, a.limiter, logger).Run(cmd.Context())
		if err != nil {
			return err
		}
		return writeOutput(optionalArg(args, 1), md)
	},
}

var (
	userID  int64
	noStore bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <url>",
	Short: "Extract, analyse and risk-score a listing",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a := newApp(cfg, logger)

		svc, err := a.analysisServices()
		if err != nil {
			return err
		}

		res := a.extractor().Extract(ctx, args[0])
		if !res.Success {
			return eris.New(res.Error)
		}

		content, err := svc.analyzer.Analyze(ctx, res.Markdown)
		if err != nil {
			fmt.Fprintln(os.Stdout, content)
			return err
		}

		// The property facts and the risk score are independent model calls.
		var (
			wg     sync.WaitGroup
			record models.PropertyRecord
			risk   models.RiskReport
		)
		wg.Add(2)
		go func() { defer wg.Done(); record = svc.property.Extract(ctx, res.Markdown) }()
		go func() { defer wg.Done(); risk = svc.risk.Score(ctx, content) }()
		wg.Wait()

		result := &models.Analysis{
			UserID:    userID,
			URL:       args[0],
			Title:     storage.FirstHeading(res.Markdown),
			Markdown:  res.Markdown,
			Content:   content,
			Property:  record,
			Risk:      &risk,
			CreatedAt: time.Now(),
		}

		path, err := storage.NewAnalysisFileWriter(cfg.AnalysesDir).Write(result)
		if err != nil {
			logger.Warn("Could not archive analysis: %v", err)
		}
		result.ArchivePath = path

		if !noStore {
			if err := saveAnalysis(ctx, a, result); err != nil {
				logger.Error("Could not store analysis: %v", err)
			}
		}

		services.NewSummary(isTerminal(os.Stdout)).Print(os.Stdout, result)
		return nil
	},
}

func saveAnalysis(ctx context.Context, a *app, result *models.Analysis) error {
	store, err := a.store(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	id, err := store.SaveAnalysis(ctx, result)
	if err != nil {
		return err
	}
	result.ID = id
	return nil
}

var outDir string

var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Extract every listing URL in a file, one per line",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		urls, err := readURLs(args[0])
		if err != nil {
			return err
		}
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return eris.Wrapf(err, "create %s", outDir)
		}

		a := newApp(cfg, logger)
		extractor := a.extractor()
		seen := utils.NewURLSet()
		pool := utils.NewWorkerPool(cfg.MaxConcurrency, cfg.RateLimit)

		var ok, failed atomic.Int64
		for _, u := range urls {
			if !seen.Add(u) {
				logger.Debug("Skipping duplicate %s", u)
				continue
			}
			pool.Submit(ctx, func(ctx context.Context) {
				log := logger.With("url", u)
				res := extractor.Extract(ctx, u)
				if !res.Success {
					failed.Add(1)
					log.Error("Extraction failed: %s", res.Error)
					return
				}
				ref := extract.Route(u)
				name := pipeline.ArtifactName(string(ref.Source), ref.PropertyID, ".md")
				if err := writeOutput(filepath.Join(outDir, name), res.Markdown); err != nil {
					failed.Add(1)
					log.Error("Could not write document: %v", err)
					return
				}
				log.Debug("Document written to %s", name)
				ok.Add(1)
			})
		}
		pool.Wait()

		logger.Info("Batch done: %d extracted, %d failed, %d unique URLs", ok.Load(), failed.Load(), seen.Size())
		if failed.Load() > 0 {
			return eris.Errorf("%d of %d listings failed", failed.Load(), seen.Size())
		}
		return nil
	},
}

// readURLs returns the non-empty, non-comment lines of path.
func readURLs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	var urls []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	return urls, eris.Wrapf(sc.Err(), "read %s", path)
}

func optionalArg(args []string, i int) string {
	if len(args) > i {
		return args[i]
	}
	return ""
}

func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}

func init() {
	downloadCmd.Flags().BoolVar(&noText, "no-text", false, "skip converting the PDF to text")
	analyzeCmd.Flags().Int64Var(&userID, "user-id", 0, "owner of the stored analysis")
	analyzeCmd.Flags().BoolVar(&noStore, "no-store", false, "do not save the analysis to PostgreSQL")
	batchCmd.Flags().StringVar(&outDir, "out-dir", "output", "directory for the extracted documents")

	rootCmd.AddCommand(extractCmd, downloadCmd, scrapeCmd, analyzeCmd, batchCmd)
}
