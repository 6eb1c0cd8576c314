package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"redcapprep/internal/domain"
)

// RunStore implements domain.RunStore on SQLite.
type RunStore struct {
	db *DB
}

// NewRunStore creates a new RunStore.
func NewRunStore(db *DB) *RunStore {
	return &RunStore{db: db}
}

var _ domain.RunStore = (*RunStore)(nil)

// ── Runs ───────────────────────────────────────────────────

// CreateRun stores run and its file outcomes in one transaction. Missing IDs
// are generated and written back.
func (s *RunStore) CreateRun(run *domain.BatchRun, files []domain.BatchFile) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	warnings, err := json.Marshal(nonNil(run.Warnings))
	if err != nil {
		return err
	}

	tx, err := s.db.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO batch_runs (id, kind, trigger_type, source_dir, output_dir,
		 started_at, finished_at, processed, skipped, failed, warnings_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, string(run.Kind), run.Trigger, run.SourceDir, run.OutputDir,
		run.StartedAt, run.FinishedAt, run.Processed, run.Skipped, run.Failed, string(warnings),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for i := range files {
		f := &files[i]
		if f.ID == "" {
			f.ID = uuid.New().String()
		}
		f.RunID = run.ID
		outputs, err := json.Marshal(nonNil(f.Outputs))
		if err != nil {
			return err
		}
		_, err = tx.Exec(
			`INSERT INTO batch_files (id, run_id, seq, source_file, template, form_id,
			 outputs_json, status, row_count, error)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			f.ID, f.RunID, i, f.SourceFile, f.Template, f.FormID,
			string(outputs), string(f.Status), f.Rows, f.Error,
		)
		if err != nil {
			return fmt.Errorf("insert file %s: %w", f.SourceFile, err)
		}
	}

	return tx.Commit()
}

func (s *RunStore) GetRun(id string) (*domain.BatchRun, error) {
	row := s.db.conn.QueryRow(
		`SELECT id, kind, trigger_type, source_dir, output_dir, started_at, finished_at,
		 processed, skipped, failed, warnings_json
		 FROM batch_runs WHERE id = ?`, id,
	)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, domain.NewNotFound("batch run", id)
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns returns the most recent runs first. limit <= 0 returns all.
func (s *RunStore) ListRuns(limit int) ([]domain.BatchRun, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.conn.Query(
		`SELECT id, kind, trigger_type, source_dir, output_dir, started_at, finished_at,
		 processed, skipped, failed, warnings_json
		 FROM batch_runs ORDER BY started_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []domain.BatchRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// ── Files ──────────────────────────────────────────────────

// ListFiles returns a run's file outcomes in processing order.
func (s *RunStore) ListFiles(runID string) ([]domain.BatchFile, error) {
	rows, err := s.db.conn.Query(
		`SELECT id, run_id, source_file, template, form_id, outputs_json, status, row_count, error
		 FROM batch_files WHERE run_id = ? ORDER BY seq ASC`, runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []domain.BatchFile
	for rows.Next() {
		var f domain.BatchFile
		var outputs, status string
		if err := rows.Scan(
			&f.ID, &f.RunID, &f.SourceFile, &f.Template, &f.FormID,
			&outputs, &status, &f.Rows, &f.Error,
		); err != nil {
			return nil, err
		}
		f.Status = domain.FileStatus(status)
		json.Unmarshal([]byte(outputs), &f.Outputs)
		files = append(files, f)
	}
	return files, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*domain.BatchRun, error) {
	var run domain.BatchRun
	var kind, warnings string
	if err := sc.Scan(
		&run.ID, &kind, &run.Trigger, &run.SourceDir, &run.OutputDir,
		&run.StartedAt, &run.FinishedAt,
		&run.Processed, &run.Skipped, &run.Failed, &warnings,
	); err != nil {
		return nil, err
	}
	run.Kind = domain.BatchKind(kind)
	json.Unmarshal([]byte(warnings), &run.Warnings)
	return &run, nil
}

func nonNil(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}
