package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"redcapprep/internal/domain"
	"redcapprep/internal/etl"
	"redcapprep/internal/logging"
	"redcapprep/internal/redcap"
)

// ─────────────────────────────────────────────────────────────
// Prep Service: batch template generation and remapping
// ─────────────────────────────────────────────────────────────

// ErrBatchRunning is returned when a batch for the same output directory is
// already in progress.
var ErrBatchRunning = errors.New("batch already running")

// PrepOptions configures how source files are identified and written.
type PrepOptions struct {
	Rules          []domain.PrefixRule
	FallbackFormID string
	Variant        redcap.Variant
	Delimiter      rune // zero uses each source type's default

	// Exports receive every processed table after its CSV is written,
	// under ExportTableName(base).
	Exports []etl.Destination
}

// PrepService runs the batch operations over directories of source files.
type PrepService struct {
	opts        PrepOptions
	store       domain.RunStore // optional
	emitter     EventEmitter
	guard       batchGuard

	watchers watchers
}

// NewPrepService creates a PrepService. store may be nil to skip run history.
func NewPrepService(opts PrepOptions, store domain.RunStore, emitter EventEmitter) *PrepService {
	if opts.Rules == nil {
		opts.Rules = domain.DefaultPrefixRules()
	}
	if opts.FallbackFormID == "" {
		opts.FallbackFormID = domain.DefaultFormID
	}
	if opts.Variant == "" {
		opts.Variant = redcap.VariantPinned
	}
	if emitter == nil {
		emitter = NopEmitter{}
	}
	return &PrepService{opts: opts, store: store, emitter: emitter}
}

// FileFailure pairs a source file with the error that stopped it.
type FileFailure struct {
	File string
	Err  error
}

// BatchResult is the outcome of one batch run. Processed, Skipped and
// Failed hold source file names in processing order.
type BatchResult struct {
	Run       *domain.BatchRun
	Files     []domain.BatchFile
	Processed []string
	Skipped   []string
	Failed    []FileFailure
	Warnings  []string
}

// Count is the number of files processed.
func (r *BatchResult) Count() int {
	return len(r.Processed)
}

// ExportTableName is the table or collection a processed file is exported to.
func ExportTableName(base string) string {
	return base + "_redcap_processed"
}

// ── Templates ──────────────────────────────────────────────

// DiscoverAndTemplate writes a header list and a dictionary template for
// every file in sourceDir. Form identifiers are assigned in name order
// starting at form_2.
func (s *PrepService) DiscoverAndTemplate(ctx context.Context, sourceDir, outputDir string) (*BatchResult, error) {
	return s.runTemplates(ctx, "manual", sourceDir, outputDir)
}

func (s *PrepService) runTemplates(ctx context.Context, trigger, sourceDir, outputDir string) (*BatchResult, error) {
	key, ok := s.guard.Acquire(domain.BatchTemplates, outputDir)
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, ErrBatchRunning)
	}
	defer s.guard.Release(key)

	names, err := listFiles(sourceDir)
	if err != nil {
		return nil, err
	}

	b := s.newBatch(ctx, domain.BatchTemplates, trigger, sourceDir, outputDir)
	counter := 2
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return s.finish(b, err)
		}
		formID := fmt.Sprintf("form_%d", counter)
		counter++

		base := domain.BaseName(name)
		src := filepath.Join(sourceDir, name)
		headerPath := filepath.Join(outputDir, redcap.HeaderListFileName(base))
		templatePath := filepath.Join(outputDir, redcap.TemplateFileName(base))
		file := domain.BatchFile{SourceFile: name, FormID: formID}

		opts := redcap.TemplateOptions{FormID: formID, Variant: s.opts.Variant, Delimiter: s.opts.Delimiter}
		res, err := redcap.GenerateTemplate(b.ctx, src, headerPath, opts)
		if err == nil {
			res, err = redcap.GenerateTemplate(b.ctx, src, templatePath, opts)
		}
		if err != nil {
			b.fail(file, err)
			continue
		}
		// Rows stays 0: templates carry no source rows.
		file.Outputs = []string{headerPath, templatePath}
		b.processed(file, "fields", len(res.Headers))
	}
	return s.finish(b, nil)
}

// ── Remap ──────────────────────────────────────────────────

// DiscoverAndRemap remaps every source file that has an acronym and a
// dictionary in dictDir whose name starts with the file's base name. A
// missing dictDir is reported as a warning on an empty result.
func (s *PrepService) DiscoverAndRemap(ctx context.Context, sourceDir, dictDir, outputDir string) (*BatchResult, error) {
	return s.runRemap(ctx, "manual", sourceDir, dictDir, outputDir)
}

func (s *PrepService) runRemap(ctx context.Context, trigger, sourceDir, dictDir, outputDir string) (*BatchResult, error) {
	key, ok := s.guard.Acquire(domain.BatchRemap, outputDir)
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, ErrBatchRunning)
	}
	defer s.guard.Release(key)

	b := s.newBatch(ctx, domain.BatchRemap, trigger, sourceDir, outputDir)

	if info, err := os.Stat(dictDir); err != nil || !info.IsDir() {
		msg := fmt.Sprintf("%s: %s", domain.ErrDictionaryDirMissing, dictDir)
		logging.WarnContext(b.ctx, "dictionary_dir_missing", "path", dictDir)
		b.result.Warnings = append(b.result.Warnings, msg)
		return s.finish(b, nil)
	}

	templates, err := listFiles(dictDir)
	if err != nil {
		return nil, err
	}
	names, err := listFiles(sourceDir)
	if err != nil {
		return nil, err
	}

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return s.finish(b, err)
		}
		base := domain.BaseName(name)
		id := domain.IdentifySource(name, s.opts.Rules, s.opts.FallbackFormID)
		file := domain.BatchFile{SourceFile: name, FormID: id.FormID}

		tmpl, ok := matchTemplate(templates, base)
		if !ok {
			logging.Debug("no dictionary for source", "file", name)
			b.skip(file)
			continue
		}
		file.Template = tmpl
		if id.Acronym == "" {
			logging.Debug("no acronym for source", "file", name, "template", tmpl)
			b.skip(file)
			continue
		}

		outPath := filepath.Join(outputDir, redcap.ProcessedFileName(base))
		req := redcap.RemapRequest{
			Acronym:        id.Acronym,
			SourcePath:     filepath.Join(sourceDir, name),
			DictionaryPath: filepath.Join(dictDir, tmpl),
			FormID:         id.FormID,
			OutputPath:     outPath,
			Delimiter:      s.opts.Delimiter,
		}
		outputs := []string{outPath}
		for _, dest := range s.opts.Exports {
			req.Exports = append(req.Exports, etl.Target{Dest: dest, Name: ExportTableName(base)})
			outputs = append(outputs, ExportTableName(base))
		}

		table, err := redcap.Remap(b.ctx, req)
		if err != nil {
			b.fail(file, err)
			continue
		}
		file.Outputs = outputs
		file.Rows = table.NumRows()
		b.processed(file, "rows", file.Rows)
	}
	return s.finish(b, nil)
}

// matchTemplate returns the first name that starts with base.
func matchTemplate(templates []string, base string) (string, bool) {
	for _, t := range templates {
		if strings.HasPrefix(t, base) {
			return t, true
		}
	}
	return "", false
}

// listFiles returns the names of non-directory entries of dir, sorted.
func listFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.NewNotFound("directory", dir)
		}
		return nil, domain.NewIO("list", dir, err)
	}
	var names []string
	for _, e := range entries {
		info, err := os.Stat(filepath.Join(dir, e.Name()))
		if err != nil || info.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

// ── Batch bookkeeping ──────────────────────────────────────

type batch struct {
	ctx    context.Context
	kind   domain.BatchKind
	result *BatchResult
}

func (s *PrepService) newBatch(ctx context.Context, kind domain.BatchKind, trigger, sourceDir, outputDir string) *batch {
	run := &domain.BatchRun{
		ID:        uuid.New().String(),
		Kind:      kind,
		Trigger:   trigger,
		SourceDir: sourceDir,
		OutputDir: outputDir,
		StartedAt: time.Now(),
	}
	return &batch{
		ctx:    logging.WithRunID(ctx, run.ID),
		kind:   kind,
		result: &BatchResult{Run: run},
	}
}

func (b *batch) processed(f domain.BatchFile, logArgs ...any) {
	f.Status = domain.FileProcessed
	logging.FileProcessed(b.ctx, string(b.kind), f.SourceFile, logArgs...)
	b.result.Files = append(b.result.Files, f)
	b.result.Processed = append(b.result.Processed, f.SourceFile)
}

func (b *batch) skip(f domain.BatchFile) {
	f.Status = domain.FileSkipped
	b.result.Files = append(b.result.Files, f)
	b.result.Skipped = append(b.result.Skipped, f.SourceFile)
}

func (b *batch) fail(f domain.BatchFile, err error) {
	f.Status = domain.FileFailed
	f.Error = err.Error()
	logging.FileFailed(b.ctx, string(b.kind), f.SourceFile, err)
	b.result.Files = append(b.result.Files, f)
	b.result.Failed = append(b.result.Failed, FileFailure{File: f.SourceFile, Err: err})
}

// finish stamps the run, records it and emits EventBatchCompleted. A non-nil
// cause is returned alongside the partial result.
func (s *PrepService) finish(b *batch, cause error) (*BatchResult, error) {
	res := b.result
	run := res.Run
	run.FinishedAt = time.Now()
	run.Processed = len(res.Processed)
	run.Skipped = len(res.Skipped)
	run.Failed = len(res.Failed)
	run.Warnings = res.Warnings

	logging.BatchSummary(b.ctx, string(b.kind), run.Processed, run.Skipped, run.Failed, run.FinishedAt.Sub(run.StartedAt))

	if s.store != nil {
		if err := s.store.CreateRun(run, res.Files); err != nil {
			logging.ErrorContext(b.ctx, "record batch run failed", "error", err)
		}
	}

	s.emitter.Emit(b.ctx, EventBatchCompleted, BatchCompleted{
		Kind:    b.kind,
		Trigger: run.Trigger,
		Count:   run.Processed,
	})
	return res, cause
}

// ── History ────────────────────────────────────────────────

// ListRuns returns the most recent recorded runs.
func (s *PrepService) ListRuns(limit int) ([]domain.BatchRun, error) {
	if s.store == nil {
		return nil, domain.NewUnsupported("history", "run history is disabled")
	}
	return s.store.ListRuns(limit)
}

// ListRunFiles returns the file outcomes of a recorded run.
func (s *PrepService) ListRunFiles(runID string) ([]domain.BatchFile, error) {
	if s.store == nil {
		return nil, domain.NewUnsupported("history", "run history is disabled")
	}
	return s.store.ListFiles(runID)
}

// RunningBatches lists the kind:outputDir slots of batches in progress.
func (s *PrepService) RunningBatches() []string {
	return s.guard.Active()
}

// WaitRunning blocks until all running batches finish or ctx is cancelled.
// Used for graceful shutdown.
func (s *PrepService) WaitRunning(ctx context.Context) {
	s.guard.WaitAll(ctx)
}
