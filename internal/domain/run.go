package domain

import "time"

// BatchKind names the batch operation a run performed.
type BatchKind string

const (
	BatchTemplates BatchKind = "templates"
	BatchRemap     BatchKind = "remap"
)

// FileStatus is the outcome of one file inside a batch run.
type FileStatus string

const (
	FileProcessed FileStatus = "processed"
	FileSkipped   FileStatus = "skipped"
	FileFailed    FileStatus = "failed"
)

// BatchRun is the persisted summary of a batch invocation.
type BatchRun struct {
	ID         string    `json:"id"`
	Kind       BatchKind `json:"kind"`
	Trigger    string    `json:"trigger"` // "manual" | "schedule" | "file_watch"
	SourceDir  string    `json:"sourceDir"`
	OutputDir  string    `json:"outputDir"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Processed  int       `json:"processed"`
	Skipped    int       `json:"skipped"`
	Failed     int       `json:"failed"`
	Warnings   []string  `json:"warnings,omitempty"`
}

// BatchFile is the persisted outcome of one file in a batch run.
type BatchFile struct {
	ID         string     `json:"id"`
	RunID      string     `json:"runId"`
	SourceFile string     `json:"sourceFile"`
	Template   string     `json:"template,omitempty"`
	FormID     string     `json:"formId,omitempty"`
	Outputs    []string   `json:"outputs,omitempty"`
	Status     FileStatus `json:"status"`
	Rows       int        `json:"rows"`
	Error      string     `json:"error,omitempty"`
}

// RunStore persists batch runs and their per-file outcomes.
type RunStore interface {
	CreateRun(run *BatchRun, files []BatchFile) error
	GetRun(id string) (*BatchRun, error)
	ListRuns(limit int) ([]BatchRun, error)
	ListFiles(runID string) ([]BatchFile, error)
}
