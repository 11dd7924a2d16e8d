// Package engine implements the scan, extract, resolve and write state machine.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Veraticus/scanfill/internal/common"
	"github.com/Veraticus/scanfill/internal/model"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Per-file outcomes reported to a Recorder.
const (
	OutcomeSkipped = "skipped"
	OutcomeDone    = "done"
)

// Config holds configuration options for the engine.
type Config struct {
	Workers int `mapstructure:"workers"`
}

// DefaultConfig returns the default configuration: one document at a time.
func DefaultConfig() Config {
	return Config{Workers: 1}
}

// Dependencies are the collaborators an Engine drives. Sink and Recorder
// may be nil; without a sink Finalize only updates totals and caches.
type Dependencies struct {
	Scanner   Scanner
	Extractor Extractor
	Hasher    Hasher
	Store     Store
	Sink      Sink
	Recorder  Recorder
	Logger    *slog.Logger
}

// Engine orchestrates runs. At most one run or finalization is in flight per
// project, across every process sharing the store.
type Engine struct {
	scanner   Scanner
	extractor Extractor
	hasher    Hasher
	store     Store
	sink      Sink
	recorder  Recorder
	logger    *slog.Logger
	running   map[string]struct{}
	owner     string
	workers   int
	mu        sync.Mutex
}

// New creates a new engine with the given dependencies.
func New(cfg Config, deps Dependencies) *Engine {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		scanner:   deps.Scanner,
		extractor: deps.Extractor,
		hasher:    deps.Hasher,
		store:     deps.Store,
		sink:      deps.Sink,
		recorder:  deps.Recorder,
		logger:    logger,
		running:   make(map[string]struct{}),
		owner:     uuid.NewString(),
		workers:   cfg.Workers,
	}
}

func (e *Engine) acquire(ctx context.Context, projectID string) error {
	e.mu.Lock()
	if _, busy := e.running[projectID]; busy {
		e.mu.Unlock()
		return fmt.Errorf("project %q: %w", projectID, common.ErrRunInProgress)
	}
	e.running[projectID] = struct{}{}
	e.mu.Unlock()

	if err := e.store.AcquireRunLock(ctx, projectID, e.owner); err != nil {
		e.mu.Lock()
		delete(e.running, projectID)
		e.mu.Unlock()
		return err
	}
	return nil
}

func (e *Engine) release(ctx context.Context, projectID string) {
	if err := e.store.ReleaseRunLock(context.WithoutCancel(ctx), projectID, e.owner); err != nil {
		e.logger.Warn("Failed to release run lock", "project", projectID, "error", err)
	}
	e.mu.Lock()
	delete(e.running, projectID)
	e.mu.Unlock()
}

type job struct {
	month    string
	category string
	path     string
	index    int
}

type outcome struct {
	err       error
	cached    *model.CachedExtraction
	suggested *float64
	modTime   time.Time
	result    model.ExtractionResult
	duration  time.Duration
}

// Run scans the project, extracts every document and returns the summary in
// either the waiting-resolutions or review-results state.
func (e *Engine) Run(ctx context.Context, project *model.Project, onProgress ProgressFunc) (*model.RunSummary, error) {
	if project == nil {
		return nil, fmt.Errorf("%w: nil project", common.ErrInvalidConfig)
	}
	if err := project.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
	}
	if err := e.acquire(ctx, project.ID); err != nil {
		return nil, err
	}
	defer e.release(ctx, project.ID)

	emit := e.emitter(onProgress)
	summary := model.NewRunSummary(uuid.NewString(), project.ID)

	fail := func(err error) (*model.RunSummary, error) {
		emit(model.ProgressEvent{State: model.StateError, Message: err.Error(), Err: err, Summary: summary})
		return nil, err
	}

	logger := e.logger.With("project", project.ID, "run", summary.RunID)

	if project.ForceRescan {
		cleared, err := e.store.ClearProjectCache(ctx, project.ID)
		if err != nil {
			logger.Warn("Failed to clear extraction cache", "error", err)
		} else {
			logger.Info("Cleared extraction cache for rescan", "entries", cleared)
		}
	}

	emit(model.ProgressEvent{State: model.StateScanning, Message: "Scanning directory structure..."})

	scan, err := e.scanner.Scan(ctx, project.RootPath, project.CategoryAliases, project.MonthFilter)
	if err != nil {
		return fail(fmt.Errorf("failed to scan %s: %w", project.RootPath, err))
	}

	jobs := e.plan(scan, summary)
	summary.Stats.Total = len(jobs)
	logger.Info("Scan complete", "months", len(scan.Months), "files", len(jobs))

	emit(model.ProgressEvent{
		State:   model.StateParsing,
		Message: fmt.Sprintf("Processing %d documents...", len(jobs)),
	})

	if err := e.parse(ctx, project, jobs, summary, emit); err != nil {
		return fail(err)
	}

	next := model.StateReviewResults
	message := "All documents processed"
	if len(summary.Conflicts) > 0 {
		next = model.StateWaitingResolutions
		message = "Waiting for manual resolutions..."
	}

	logger.Info("Run parsed",
		"done", summary.Stats.Done,
		"skipped", summary.Stats.Skipped,
		"ambiguous", summary.Stats.Ambiguous,
		"failed", summary.Stats.Failed)

	emit(model.ProgressEvent{State: next, Message: message, Percentage: 100, Summary: summary})
	return summary, nil
}

// plan registers every month and category in the summary and lists the
// documents in discovery order: months by calendar, categories by name.
func (e *Engine) plan(scan *model.ScanResult, summary *model.RunSummary) []job {
	jobs := make([]job, 0, scan.FileCount())
	for _, monthName := range scan.MonthNames() {
		entry := scan.Months[monthName]
		summary.EnsureMonth(monthName, entry.Index, entry.OriginalName)
		for _, category := range entry.CategoryNames() {
			summary.EnsureCategory(monthName, entry.Index, entry.OriginalName, category)
			for _, path := range entry.Categories[category] {
				jobs = append(jobs, job{month: monthName, category: category, path: path, index: len(jobs)})
			}
		}
	}
	return jobs
}

// parse fans documents out to the worker pool and folds their outcomes back
// in discovery order, so totals, cache writes and progress stay sequential.
func (e *Engine) parse(ctx context.Context, project *model.Project, jobs []job, summary *model.RunSummary, emit ProgressFunc) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]chan outcome, len(jobs))
	for i := range results {
		results[i] = make(chan outcome, 1)
	}

	var g errgroup.Group
	g.SetLimit(e.workers)

	dispatched := make(chan struct{})
	go func() {
		defer close(dispatched)
		for _, j := range jobs {
			g.Go(func() error {
				results[j.index] <- e.process(runCtx, project, j)
				return nil
			})
		}
	}()

	var parseErr error
	for i, j := range jobs {
		out := <-results[i]
		if out.err != nil {
			parseErr = out.err
			break
		}
		e.fold(runCtx, project, j, out, summary)
		emit(model.ProgressEvent{
			State:      model.StateParsing,
			Message:    fmt.Sprintf("Processing %s - %s...", j.month, j.category),
			File:       j.path,
			Percentage: float64(i+1) / float64(len(jobs)) * 100,
		})
	}

	cancel()
	<-dispatched
	_ = g.Wait()

	if parseErr != nil {
		return fmt.Errorf("run interrupted: %w", parseErr)
	}
	return nil
}

func (e *Engine) process(ctx context.Context, project *model.Project, j job) outcome {
	if err := ctx.Err(); err != nil {
		return outcome{err: err}
	}
	start := time.Now()

	info, err := os.Stat(j.path)
	if err != nil {
		return outcome{
			result:   model.FailedResult("%v", fmt.Errorf("%w: %w", common.ErrDocumentUnreadable, err)),
			duration: time.Since(start),
		}
	}
	modTime := info.ModTime()

	if !project.ForceRescan {
		cached, cacheErr := e.store.GetValidExtraction(ctx, project.ID, j.path, modTime)
		if cacheErr != nil {
			e.logger.Warn("Extraction cache read failed", "file", j.path, "error", cacheErr)
		} else if cached != nil {
			return outcome{cached: cached, modTime: modTime, duration: time.Since(start)}
		}
	}

	result := e.extractor.ExtractAmount(ctx, j.path, project.CustomPattern)
	if err := ctx.Err(); err != nil {
		return outcome{err: err}
	}

	out := outcome{result: result, modTime: modTime, duration: time.Since(start)}
	if result.Status != model.StatusSuccess {
		out.suggested = e.suggestion(ctx, j.path)
	}
	return out
}

func (e *Engine) suggestion(ctx context.Context, path string) *float64 {
	if e.hasher == nil {
		return nil
	}
	hash, err := e.hasher.Sum(path)
	if err != nil {
		e.logger.Warn("Failed to hash document", "file", path, "error", err)
		return nil
	}
	entry, err := e.store.GetManualEntry(ctx, hash)
	if err != nil {
		e.logger.Warn("Manual entry lookup failed", "file", path, "error", err)
		return nil
	}
	if entry == nil {
		return nil
	}
	amount := entry.Amount
	return &amount
}

func (e *Engine) fold(ctx context.Context, project *model.Project, j job, out outcome, summary *model.RunSummary) {
	if out.cached != nil {
		summary.Add(j.month, j.category, out.cached.Amount)
		summary.Stats.Skipped++
		e.recordFile(OutcomeSkipped, out.duration)
		return
	}

	switch out.result.Status {
	case model.StatusSuccess:
		summary.Add(j.month, j.category, out.result.Amount)
		summary.Stats.Done++
		e.recordFile(OutcomeDone, out.duration)
		e.cacheAmount(ctx, project.ID, j.path, out.modTime, out.result.Amount)
		return
	case model.StatusAmbiguous:
		summary.Stats.Ambiguous++
	default:
		summary.Stats.Failed++
	}
	e.recordFile(string(out.result.Status), out.duration)

	summary.Conflicts = append(summary.Conflicts, model.Conflict{
		ID:         len(summary.Conflicts) + 1,
		Month:      j.month,
		Category:   j.category,
		FilePath:   j.path,
		FileName:   filepath.Base(j.path),
		Status:     out.result.Status,
		Message:    out.result.Message,
		Candidates: out.result.Candidates,
		Suggested:  out.suggested,
	})
}

func (e *Engine) cacheAmount(ctx context.Context, projectID, path string, modTime time.Time, amount float64) {
	entry := &model.CachedExtraction{
		ProjectID: projectID,
		FilePath:  path,
		Amount:    amount,
		Status:    model.StatusSuccess,
		ModTime:   modTime,
	}
	if err := e.store.SaveExtraction(ctx, entry); err != nil {
		e.logger.Warn("Extraction cache write failed", "file", path, "error", err)
	}
}

// Resolve records the operator's amount for a conflict. Typed amounts are
// remembered by content hash so the same document is prefilled next time.
func (e *Engine) Resolve(ctx context.Context, summary *model.RunSummary, conflictID int, amount float64, manual bool) error {
	conflict := summary.Conflict(conflictID)
	if conflict == nil {
		return fmt.Errorf("conflict %d: %w", conflictID, common.ErrUnknownConflict)
	}
	if conflict.Applied {
		return fmt.Errorf("conflict %d already applied to totals", conflictID)
	}
	if amount < 0 {
		return fmt.Errorf("%w: negative amount %v", common.ErrInvalidConfig, amount)
	}

	conflict.ResolvedAmount = &amount
	conflict.Manual = manual

	if manual && e.hasher != nil {
		hash, err := e.hasher.Sum(conflict.FilePath)
		if err != nil {
			e.logger.Warn("Failed to hash document", "file", conflict.FilePath, "error", err)
			return nil
		}
		entry := &model.ManualEntry{Hash: hash, FileName: conflict.FileName, Amount: amount}
		if err := e.store.SaveManualEntry(ctx, entry); err != nil {
			e.logger.Warn("Manual entry write failed", "file", conflict.FilePath, "error", err)
		}
	}
	return nil
}

// Finalize adds resolved amounts to the totals, caches them, and hands the
// totals to the sink. Unresolved conflicts block unless allowPartial is set.
func (e *Engine) Finalize(ctx context.Context, project *model.Project, summary *model.RunSummary, allowPartial bool, onProgress ProgressFunc) error {
	if project == nil || summary == nil {
		return fmt.Errorf("%w: nil project or summary", common.ErrInvalidConfig)
	}
	if unresolved := summary.UnresolvedCount(); unresolved > 0 && !allowPartial {
		return fmt.Errorf("%d conflicts: %w", unresolved, common.ErrUnresolvedConflicts)
	}
	if err := e.acquire(ctx, project.ID); err != nil {
		return err
	}
	defer e.release(ctx, project.ID)

	emit := e.emitter(onProgress)

	for i := range summary.Conflicts {
		conflict := &summary.Conflicts[i]
		if !conflict.Resolved() || conflict.Applied {
			continue
		}
		summary.Add(conflict.Month, conflict.Category, *conflict.ResolvedAmount)
		conflict.Applied = true

		info, err := os.Stat(conflict.FilePath)
		if err != nil {
			e.logger.Warn("Cannot cache resolution", "file", conflict.FilePath, "error", err)
			continue
		}
		e.cacheAmount(ctx, project.ID, conflict.FilePath, info.ModTime(), *conflict.ResolvedAmount)
	}

	emit(model.ProgressEvent{State: model.StateWriting, Message: "Writing totals...", Percentage: 100, Summary: summary})

	if e.sink == nil || !project.Sheet.Configured() {
		e.logger.Info("No spreadsheet configured, skipping write", "project", project.ID)
		emit(model.ProgressEvent{State: model.StateDone, Message: "Totals computed", Percentage: 100, Summary: summary})
		return nil
	}

	if err := e.sink.UpdateSheet(ctx, project.Sheet, summary.SheetData()); err != nil {
		err = fmt.Errorf("failed to update sheet: %w", err)
		emit(model.ProgressEvent{State: model.StateError, Message: err.Error(), Err: err, Summary: summary})
		return err
	}

	emit(model.ProgressEvent{State: model.StateDone, Message: "Spreadsheet updated successfully", Percentage: 100, Summary: summary})
	return nil
}

func (e *Engine) emitter(onProgress ProgressFunc) ProgressFunc {
	var last model.RunState
	return func(ev model.ProgressEvent) {
		if e.recorder != nil && ev.State != last {
			e.recorder.RecordRun(ev.State)
		}
		last = ev.State
		if ev.State == model.StateError {
			e.logger.Error("Run failed", "error", ev.Err)
		}
		if onProgress != nil {
			onProgress(ev)
		}
	}
}

func (e *Engine) recordFile(outcome string, d time.Duration) {
	if e.recorder != nil {
		e.recorder.RecordFile(outcome, d)
	}
}

// IsInterrupted reports whether err came from a canceled run.
func IsInterrupted(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
