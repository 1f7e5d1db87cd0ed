// Package main provides the module match server entry point.
package main

import (
	"context"
	"errors"
	"time"

	"github.com/modulescout/modulescout/internal/catalog"
	apperrors "github.com/modulescout/modulescout/internal/errors"
	"github.com/modulescout/modulescout/internal/logger"
	"github.com/modulescout/modulescout/internal/metrics"
	"github.com/modulescout/modulescout/internal/retrieval"
)

// snapshotMetricsInterval controls how often the snapshot gauges refresh.
const snapshotMetricsInterval = 5 * time.Minute

// reloadCatalog periodically reloads the catalog files and rebuilds the
// keyword index. A failed reload keeps the previous snapshot serving.
func reloadCatalog(ctx context.Context, store *catalog.Store, index *retrieval.Index, m *metrics.Metrics, interval time.Duration, log *logger.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			performReload(store, index, m, log)
		}
	}
}

func performReload(store *catalog.Store, index *retrieval.Index, m *metrics.Metrics, log *logger.Logger) {
	before := store.Snapshot()

	if err := store.Reload(); err != nil {
		m.RecordSnapshotReload("error")
		var integrity *apperrors.CatalogIntegrityError
		if errors.As(err, &integrity) {
			m.RecordCatalogIntegrityIssue("reload")
		}
		log.WithError(err).Error("Periodic catalog reload failed, keeping previous snapshot")
		return
	}

	snap := store.Snapshot()
	if err := index.Build(snap.Modules()); err != nil {
		log.WithError(err).Warn("Keyword index rebuild failed after reload")
	}

	m.RecordSnapshotReload("success")
	m.RecordSnapshot(snap.Len(), 0)
	log.WithFields(map[string]any{
		"modules_before": before.Len(),
		"modules_after":  snap.Len(),
	}).Info("Periodic catalog reload complete")
}

// updateSnapshotMetrics keeps the snapshot size and age gauges current.
func updateSnapshotMetrics(ctx context.Context, store *catalog.Store, m *metrics.Metrics) {
	ticker := time.NewTicker(snapshotMetricsInterval)
	defer ticker.Stop()

	record := func() {
		snap := store.Snapshot()
		if snap == nil {
			return
		}
		m.RecordSnapshot(snap.Len(), time.Since(snap.LoadedAt()).Seconds())
	}

	record()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			record()
		}
	}
}
