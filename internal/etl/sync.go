package etl

import (
	"context"
	"fmt"
	"time"
)

// ── Job ────────────────────────────────────────────────────
// Orchestrates: source.Read → transform chain → destination.Write.

// Job describes one file's trip through the pipeline.
type Job struct {
	SourcePath string
	Delimiter  rune
	Transforms []Transformer
	Targets    []Target // empty means transform only
}

// SyncResult is the outcome of running a job.
type SyncResult struct {
	Status      string        `json:"status"` // "success" | "error"
	RowsRead    int           `json:"rowsRead"`
	RowsWritten int           `json:"rowsWritten"`
	Duration    time.Duration `json:"duration"`
	Error       string        `json:"error,omitempty"`
}

// ── Engine ─────────────────────────────────────────────────

// Engine runs jobs using the registered sources.
type Engine struct{}

// Run executes a job end-to-end and returns the transformed table.
// Targets are written in order; the first failing target aborts the job.
func (e *Engine) Run(ctx context.Context, job *Job) (*Table, *SyncResult, error) {
	start := time.Now()
	result := &SyncResult{}
	fail := func(stage string, err error) (*Table, *SyncResult, error) {
		result.Status = "error"
		result.Error = fmt.Sprintf("%s: %s", stage, err)
		result.Duration = time.Since(start)
		return nil, result, err
	}

	// 1. Resolve source from registry.
	source, err := SourceFor(job.SourcePath)
	if err != nil {
		return fail("source", err)
	}

	// 2. Load the table.
	table, err := source.Read(ctx, SourceConfig{Path: job.SourcePath, Delimiter: job.Delimiter})
	if err != nil {
		return fail("read", err)
	}
	result.RowsRead = table.NumRows()

	// 3. Transform.
	table, err = ApplyTransformers(table, job.Transforms)
	if err != nil {
		return fail("transform", err)
	}

	// 4. Write to every target.
	for _, tgt := range job.Targets {
		written, err := tgt.Dest.Write(ctx, tgt.Name, table)
		if err != nil {
			return fail("write "+tgt.Name, err)
		}
		result.RowsWritten = written
	}

	result.Status = "success"
	result.Duration = time.Since(start)
	return table, result, nil
}

// Preview reads a source and returns its header plus up to maxRows rows.
func (e *Engine) Preview(ctx context.Context, path string, delimiter rune, maxRows int) (*Table, error) {
	source, err := SourceFor(path)
	if err != nil {
		return nil, err
	}
	table, err := source.Read(ctx, SourceConfig{Path: path, Delimiter: delimiter})
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	return Head(table, maxRows), nil
}

// Head returns a copy of t truncated to at most n rows.
func Head(t *Table, n int) *Table {
	out := t.Clone()
	if n >= 0 && len(out.Rows) > n {
		out.Rows = out.Rows[:n]
	}
	return out
}
