package pipeline

import (
	"log/slog"

	"github.com/regpipe/regpipe/app/database"
)

// Processing log steps and statuses.
const (
	StepFilter     = "filter"
	StepCategory   = "category_resolution"
	StepDownload   = "download"
	StepConversion = "pdf_conversion"
	StepInsert     = "insert"
	StepAnalysis   = "llm_analysis"

	StatusStarted = "STARTED"
	StatusSuccess = "SUCCESS"
	StatusError   = "ERROR"
)

// AuditLog writes processing log entries with a guaranteed non-throwing
// contract: a storage failure is reported to the application log and
// swallowed, so the audit trail can never abort the pipeline.
type AuditLog struct {
	repo database.ProcessingLogRepository
}

func NewAuditLog(repo database.ProcessingLogRepository) *AuditLog {
	return &AuditLog{repo: repo}
}

// Log appends one audit record, best-effort.
func (l *AuditLog) Log(regulationID *int64, step, status, message, documentURL string) {
	if err := l.repo.LogProcessing(regulationID, step, status, message, documentURL); err != nil {
		slog.Error("Failed to write processing log entry",
			"step", step, "status", status, "error", err)
	}
}
