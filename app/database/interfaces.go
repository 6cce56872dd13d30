package database

import "github.com/regpipe/regpipe/app/crawler"

// RegulationRepository is the persistence gateway for regulation rows.
type RegulationRepository interface {
	// DocumentExists checks the dedup key (title, published_date, doc_path).
	// An empty publishedDate matches rows stored with a NULL date; a nil
	// docPath matches rows stored without one.
	DocumentExists(title, publishedDate string, docPath []string) (bool, error)

	// InsertRegulation maps a descriptor to a row and returns the new id.
	InsertRegulation(doc *crawler.Document, categoryID *int64, contentHash string) (int64, error)

	// StoreComplianceAnalysis attaches a serialized analysis result to a row.
	StoreComplianceAnalysis(regulationID int64, analysisJSON string, requirementCount int) error

	GetRegulationCount() (int, error)
	GetRegulationCountByRegulator() (map[string]int, error)
}

// CategoryRepository manages the lazily-built compliance folder tree.
type CategoryRepository interface {
	GetFolderID(title string, parentID *int64) (*int64, error)
	InsertFolder(title string, parentID *int64) (int64, error)
}

// ProcessingLogRepository writes append-only audit records.
type ProcessingLogRepository interface {
	LogProcessing(regulationID *int64, step, status, message, documentURL string) error
	GetEntriesForRegulation(regulationID int64) ([]ProcessingLogEntry, error)
}

// RunRepository tracks pipeline run bookkeeping and liveness.
type RunRepository interface {
	StartRun(regulator string) (int64, error)
	Heartbeat(runID int64) error
	FinishRun(runID int64, status string, newCount, existing, skipped, succeeded, failed int) error
	GetRecentRuns(limit int) ([]PipelineRun, error)
}
