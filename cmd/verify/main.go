// Data consistency verification tool for catalogue artifacts. Loads the
// configured catalog, stats and embedding files and checks the invariants
// the server relies on. Exits 1 on any failure.
package main

import (
	"fmt"
	"os"

	"github.com/modulescout/modulescout/internal/catalog"
	"github.com/modulescout/modulescout/internal/config"
)

type verifyResult struct {
	name    string
	passed  bool
	message string
}

func main() {
	fmt.Println("Module catalogue artifact verification")
	fmt.Println("======================================")

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	paths := catalog.Paths{
		Catalog:        cfg.CatalogPath,
		Stats:          cfg.StatsPath,
		Embeddings:     cfg.EmbeddingsPath,
		EmbeddingsMeta: cfg.EmbeddingsMetaPath(),
	}

	var results []verifyResult

	snap, err := catalog.Load(paths)
	results = append(results, verifyResult{
		name:    "Catalog load",
		passed:  err == nil,
		message: loadMessage(snap, err),
	})

	if err == nil {
		results = append(results, verifySnapshot(snap)...)
	}

	fmt.Println("\nResults:")
	fmt.Println("========")

	passed, failed := 0, 0
	for _, r := range results {
		status := "FAIL"
		if r.passed {
			status = "ok"
			passed++
		} else {
			failed++
		}
		fmt.Printf("[%-4s] %s: %s\n", status, r.name, r.message)
	}

	fmt.Printf("\nSummary: %d passed, %d failed\n", passed, failed)
	if failed > 0 {
		os.Exit(1)
	}
}

func loadMessage(snap *catalog.Snapshot, err error) string {
	if err != nil {
		return err.Error()
	}
	return fmt.Sprintf("%d modules loaded", snap.Len())
}

func verifySnapshot(snap *catalog.Snapshot) []verifyResult {
	var results []verifyResult

	matrix := snap.Matrix()
	rows := 0
	if matrix != nil {
		rows = matrix.Rows()
	}
	results = append(results, verifyResult{
		name:    "Embedding row count",
		passed:  rows == 0 || rows == snap.Len(),
		message: fmt.Sprintf("%d rows for %d modules", rows, snap.Len()),
	})

	meta := snap.Meta()
	results = append(results, verifyResult{
		name:    "Embedding meta",
		passed:  rows == 0 || (meta.Model != "" && meta.Dimensions > 0),
		message: fmt.Sprintf("model=%q dimensions=%d", meta.Model, meta.Dimensions),
	})

	badLevels := 0
	withStats := 0
	for _, m := range snap.Modules() {
		if m.Level != 0 && (m.Level < 4 || m.Level > 7) {
			badLevels++
		}
		if snap.Stats(m.Slug) != nil {
			withStats++
		}
	}
	results = append(results, verifyResult{
		name:    "Module levels",
		passed:  badLevels == 0,
		message: fmt.Sprintf("%d modules with a level outside 4-7", badLevels),
	})
	results = append(results, verifyResult{
		name:    "Grade statistics",
		passed:  true,
		message: fmt.Sprintf("%d of %d modules carry stats", withStats, snap.Len()),
	})

	return results
}
