package database

import "time"

// Regulation is a persisted regulatory document row.
type Regulation struct {
	ID                   int64
	Regulator            string
	SourceSystem         string
	Category             string
	Title                string
	DocumentURL          string
	UrduURL              string
	PublishedDate        string // raw source string, part of the dedup key
	PublishedAt          *time.Time
	ReferenceNo          string
	DocPath              string
	Department           string
	Year                 string
	SourcePageURL        string
	FileType             string
	ContentHash          string
	DocumentHTML         string
	ExtraMeta            map[string]string
	ComplianceCategoryID *int64
	CreatedAt            time.Time
}

// Category is one node in the compliance folder tree.
type Category struct {
	ID        int64
	Title     string
	ParentID  *int64
	CreatedAt time.Time
}

// ProcessingLogEntry is an append-only audit record for one pipeline step.
type ProcessingLogEntry struct {
	ID           int64
	RegulationID *int64
	Step         string
	Status       string
	Message      string
	DocumentURL  string
	CreatedAt    time.Time
}

// PipelineRun tracks one regulator run, including the liveness heartbeat.
type PipelineRun struct {
	ID          int64
	Regulator   string
	Status      string
	New         int
	Existing    int
	Skipped     int
	Succeeded   int
	Failed      int
	StartedAt   time.Time
	HeartbeatAt time.Time
	FinishedAt  *time.Time
}

// Run status values.
const (
	RunStatusRunning   = "RUNNING"
	RunStatusCompleted = "COMPLETED"
	RunStatusFailed    = "FAILED"
)
