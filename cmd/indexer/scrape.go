package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/modulescout/modulescout/internal/catalog"
	"github.com/modulescout/modulescout/internal/config"
	apperrors "github.com/modulescout/modulescout/internal/errors"
	"github.com/modulescout/modulescout/internal/logger"
	"github.com/modulescout/modulescout/internal/metrics"
	"github.com/modulescout/modulescout/internal/scraper"
	"github.com/modulescout/modulescout/internal/scraper/ucl"
)

// scrapeWorkers bounds concurrent page fetches. The shared client's rate
// limiter still spaces the actual requests.
const scrapeWorkers = 4

// scrapeCatalog fetches every listed module page and writes the catalog
// JSON. Pages that 404 are logged and skipped; the catalogue retires slugs
// without notice and one dead link must not sink the whole run.
func scrapeCatalog(ctx context.Context, cfg *config.Config, slugsFile string, m *metrics.Metrics, log *logger.Logger) error {
	slugs, err := readSlugs(slugsFile)
	if err != nil {
		return err
	}
	if len(slugs) == 0 {
		return fmt.Errorf("no slugs found in %s", slugsFile)
	}
	log.WithField("slugs", len(slugs)).Info("Scraping module catalogue")

	client := scraper.NewClient(cfg.ScraperTimeout, cfg.ScraperMaxRetries)

	var mu sync.Mutex
	records := make([]*catalog.ModuleRecord, 0, len(slugs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(scrapeWorkers)

	for _, slug := range slugs {
		g.Go(func() error {
			start := time.Now()
			record, err := ucl.Fetch(gctx, client, cfg.CatalogBaseURL, slug)
			if err != nil {
				var scraperErr *apperrors.ScraperError
				if errors.As(err, &scraperErr) && scraperErr.StatusCode == 404 {
					m.RecordScraperRequest("module", "not_found", time.Since(start).Seconds())
					log.WithField("slug", slug).Warn("Module page not found, skipping")
					return nil
				}
				m.RecordScraperRequest("module", "error", time.Since(start).Seconds())
				return fmt.Errorf("scrape %s: %w", slug, err)
			}
			m.RecordScraperRequest("module", "success", time.Since(start).Seconds())

			mu.Lock()
			records = append(records, record)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	// Catalog order is the embedding row order, so it must be stable
	// across runs.
	sort.Slice(records, func(i, j int) bool { return records[i].Slug < records[j].Slug })

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal catalog: %w", err)
	}
	if err := os.WriteFile(cfg.CatalogPath, data, 0o644); err != nil {
		return fmt.Errorf("write catalog: %w", err)
	}

	log.WithFields(map[string]any{
		"scraped": len(records),
		"skipped": len(slugs) - len(records),
		"path":    cfg.CatalogPath,
	}).Info("Catalogue scrape complete")
	return nil
}

// readSlugs reads one slug per line, ignoring blanks and # comments.
func readSlugs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open slugs file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var slugs []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		slugs = append(slugs, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read slugs file: %w", err)
	}
	return slugs, nil
}
