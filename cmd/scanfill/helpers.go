package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/scanfill/internal/classification"
	"github.com/Veraticus/scanfill/internal/config"
	"github.com/Veraticus/scanfill/internal/contenthash"
	"github.com/Veraticus/scanfill/internal/engine"
	"github.com/Veraticus/scanfill/internal/extractor"
	"github.com/Veraticus/scanfill/internal/metrics"
	"github.com/Veraticus/scanfill/internal/model"
	"github.com/Veraticus/scanfill/internal/ocr"
	"github.com/Veraticus/scanfill/internal/scanner"
	"github.com/Veraticus/scanfill/internal/service"
	"github.com/Veraticus/scanfill/internal/sheets"
	"github.com/Veraticus/scanfill/internal/storage"
	"github.com/spf13/viper"
)

const hashMemoTTL = 30 * time.Minute

// initStorage opens and migrates the cache database.
func initStorage(ctx context.Context) (service.Storage, error) {
	return openSQLite(ctx)
}

// openSQLite is initStorage for callers that need the concrete store.
func openSQLite(ctx context.Context) (*storage.SQLiteStorage, error) {
	dbPath, err := config.DatabasePath(viper.GetViper())
	if err != nil {
		return nil, err
	}

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// newExtractor wires the text layer, OCR engine and classifier together.
func newExtractor(store service.OCRCache, hasher *contenthash.Hasher, recorder extractor.Recorder) (*extractor.Extractor, error) {
	v := viper.GetViper()

	tables, err := config.Keywords(v)
	if err != nil {
		return nil, err
	}
	tieBreak, err := config.TieBreak(v)
	if err != nil {
		return nil, err
	}

	logger := slog.Default()
	classifier := classification.NewClassifier(tables, tieBreak, logger)
	ex := extractor.New(
		extractor.Config{MinTextLength: v.GetInt("extraction.min_text_length")},
		classifier,
		extractor.PDFText{},
		ocr.NewSubprocessEngine(config.OCR(v)),
		hasher,
		store,
		logger,
	)
	if recorder != nil {
		ex.SetRecorder(recorder)
	}
	return ex, nil
}

// app bundles everything a run needs.
type app struct {
	store   service.Storage
	engine  *engine.Engine
	metrics *metrics.Run
	sinks   *sheets.Router
}

// newApp builds the orchestrator. withSink false leaves the engine without a
// spreadsheet sink.
func newApp(ctx context.Context, withSink bool) (*app, error) {
	store, err := initStorage(ctx)
	if err != nil {
		return nil, err
	}

	recorder := metrics.NewRun()
	hasher := contenthash.New(hashMemoTTL)

	ex, err := newExtractor(store, hasher, recorder)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	sinks := sheets.NewRouter(config.LoadGoogleConfig(), slog.Default())
	deps := engine.Dependencies{
		Scanner:   scanner.New(slog.Default()),
		Extractor: ex,
		Hasher:    hasher,
		Store:     store,
		Recorder:  recorder,
		Logger:    slog.Default(),
	}
	if withSink {
		deps.Sink = sinks
	}

	return &app{
		store:   store,
		engine:  engine.New(engine.Config{Workers: config.Workers(viper.GetViper())}, deps),
		metrics: recorder,
		sinks:   sinks,
	}, nil
}

// Close flushes metrics and closes the database.
func (a *app) Close() {
	if err := a.metrics.WriteTextfile(config.MetricsTextfile(viper.GetViper())); err != nil {
		slog.Warn("Failed to export metrics", "error", err)
	}
	if err := a.store.Close(); err != nil {
		slog.Warn("Failed to close storage", "error", err)
	}
}

// loadProject fetches a project by id.
func loadProject(ctx context.Context, store service.ProjectStore, id string) (*model.Project, error) {
	project, err := store.GetProject(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load project %q: %w", id, err)
	}
	return project, nil
}
