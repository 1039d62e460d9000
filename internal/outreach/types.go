// Package outreach defines core types shared across subsystems.
package outreach

import "time"

// JobStatus represents the lifecycle state of an outreach job.
type JobStatus string

// Job status values persisted in the job repository.
const (
	StatusQueued     JobStatus = "queued"
	StatusProcessing JobStatus = "processing"
	StatusSucceeded  JobStatus = "succeeded"
	StatusFailed     JobStatus = "failed"
)

// Terminal reports whether a status is an end state. Failed jobs remain
// re-enterable through the retry controller.
func (s JobStatus) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// Job is the metadata persisted for each submitted lead list.
type Job struct {
	ID         string            `json:"id"`
	UserID     string            `json:"user_id"`
	Filename   string            `json:"filename"`
	UploadPath string            `json:"upload_path"`
	Status     JobStatus         `json:"status"`
	Progress   int               `json:"progress"`
	OutputURL  string            `json:"output_url,omitempty"`
	ErrorText  string            `json:"error,omitempty"`
	Payload    map[string]string `json:"payload,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// ClonePayload returns a copy of the job's payload map so callers cannot
// mutate stored records through a shared reference.
func (j Job) ClonePayload() map[string]string {
	if j.Payload == nil {
		return nil
	}
	out := make(map[string]string, len(j.Payload))
	for k, v := range j.Payload {
		out[k] = v
	}
	return out
}

// JobPatch is a partial update applied to a job record. Nil fields are left
// untouched; updated_at is refreshed by the repository on every patch.
type JobPatch struct {
	Status    *JobStatus
	Progress  *int
	OutputURL *string
	ErrorText *string
}

// StatusPatch builds a patch that only moves the status.
func StatusPatch(status JobStatus) JobPatch {
	return JobPatch{Status: &status}
}

// ProgressPatch builds a patch that only advances progress.
func ProgressPatch(progress int) JobPatch {
	return JobPatch{Progress: &progress}
}

// ClaimPatch is the queued -> processing transition applied when a worker
// claims a job: a small non-zero progress distinguishes "claimed" from
// "never started", and any stale failure message is cleared.
func ClaimPatch() JobPatch {
	status := StatusProcessing
	progress := ClaimProgress
	empty := ""
	return JobPatch{Status: &status, Progress: &progress, ErrorText: &empty}
}

// FailurePatch marks a job failed with a human-readable cause. Progress is
// deliberately not touched so operators can see how far the job got.
func FailurePatch(errText string) JobPatch {
	status := StatusFailed
	return JobPatch{Status: &status, ErrorText: &errText}
}

// SuccessPatch is the single terminal update for a completed job.
func SuccessPatch(outputURL string) JobPatch {
	status := StatusSucceeded
	progress := 100
	return JobPatch{Status: &status, Progress: &progress, OutputURL: &outputURL}
}

// RequeuePatch is the failed -> queued retry transition: error cleared,
// progress reset to zero.
func RequeuePatch() JobPatch {
	status := StatusQueued
	progress := 0
	empty := ""
	return JobPatch{Status: &status, Progress: &progress, ErrorText: &empty}
}

// ClaimProgress is the progress value set when a worker claims a job.
const ClaimProgress = 5

// QueueItem wraps a job id ready to run.
type QueueItem struct {
	JobID     string
	Attempt   int
	Submitted int64
}

// TerminalEvent is the notification published when a job reaches a terminal
// state. OutputURL is set on success, Error on failure.
type TerminalEvent struct {
	JobID     string    `json:"job_id"`
	Status    JobStatus `json:"status"`
	OutputURL string    `json:"output_url,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp string    `json:"timestamp"`
}

// Table is the tabular artifact passed between pipeline stages: one header
// row plus one row per lead. Rows are kept as strings end to end, matching
// the CSV/XLSX source and sink formats.
type Table struct {
	Header []string
	Rows   [][]string
}

// ColumnIndex returns the position of a header column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// EnsureColumn appends a column with the given default value if it is not
// already present, returning its index.
func (t *Table) EnsureColumn(name, defaultValue string) int {
	if idx := t.ColumnIndex(name); idx >= 0 {
		return idx
	}
	t.Header = append(t.Header, name)
	for i := range t.Rows {
		t.Rows[i] = append(t.Rows[i], defaultValue)
	}
	return len(t.Header) - 1
}

// Value returns the cell at (row, column name), tolerating ragged rows.
func (t *Table) Value(row int, name string) string {
	idx := t.ColumnIndex(name)
	if idx < 0 || row < 0 || row >= len(t.Rows) || idx >= len(t.Rows[row]) {
		return ""
	}
	return t.Rows[row][idx]
}

// SetValue writes the cell at (row, column name), extending the row if the
// column exists but the row is short.
func (t *Table) SetValue(row int, name, value string) {
	idx := t.ColumnIndex(name)
	if idx < 0 || row < 0 || row >= len(t.Rows) {
		return
	}
	for len(t.Rows[row]) <= idx {
		t.Rows[row] = append(t.Rows[row], "")
	}
	t.Rows[row][idx] = value
}

// Artifact is the unit passed between pipeline stages: the raw upload bytes
// before parsing, then the parsed lead table.
type Artifact struct {
	// Ref points at the blob the artifact was read from or written to.
	Ref string
	// Data holds the raw upload prior to the parse stage.
	Data []byte
	// Table holds the structured leads from the parse stage onward.
	Table *Table
}
