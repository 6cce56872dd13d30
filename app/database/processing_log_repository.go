package database

import "fmt"

// SQLProcessingLogRepository writes append-only audit records. Callers that
// need the best-effort guarantee wrap this behind the pipeline's logger; the
// repository itself reports errors normally.
type SQLProcessingLogRepository struct {
	db *DB
}

var _ ProcessingLogRepository = (*SQLProcessingLogRepository)(nil)

// NewProcessingLogRepository creates a new processing log repository.
func NewProcessingLogRepository(db *DB) *SQLProcessingLogRepository {
	return &SQLProcessingLogRepository{db: db}
}

// LogProcessing appends one audit record.
func (r *SQLProcessingLogRepository) LogProcessing(regulationID *int64, step, status, message, documentURL string) error {
	_, err := r.db.Exec(`
		INSERT INTO processing_log (regulation_id, step, status, message, document_url)
		VALUES (?, ?, ?, ?, ?)
	`, regulationID, step, status, message, nullableString(documentURL))

	if err != nil {
		return fmt.Errorf("failed to write processing log: %w", err)
	}

	return nil
}

// GetEntriesForRegulation returns the audit trail for one regulation.
func (r *SQLProcessingLogRepository) GetEntriesForRegulation(regulationID int64) ([]ProcessingLogEntry, error) {
	rows, err := r.db.Query(`
		SELECT id, regulation_id, step, status, message, COALESCE(document_url, ''), created_at
		FROM processing_log
		WHERE regulation_id = ?
		ORDER BY id
	`, regulationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get processing log entries: %w", err)
	}
	defer rows.Close()

	var entries []ProcessingLogEntry
	for rows.Next() {
		var entry ProcessingLogEntry
		err := rows.Scan(&entry.ID, &entry.RegulationID, &entry.Step, &entry.Status,
			&entry.Message, &entry.DocumentURL, &entry.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan processing log row: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating processing log rows: %w", err)
	}

	return entries, nil
}
