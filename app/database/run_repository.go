package database

import "fmt"

// SQLRunRepository tracks pipeline runs. The heartbeat column is refreshed by
// a background reporter for the duration of a run, so a stuck run is visible
// as a stale heartbeat on a RUNNING row.
type SQLRunRepository struct {
	db *DB
}

var _ RunRepository = (*SQLRunRepository)(nil)

// NewRunRepository creates a new run repository.
func NewRunRepository(db *DB) *SQLRunRepository {
	return &SQLRunRepository{db: db}
}

// StartRun records a new RUNNING row and returns its id.
func (r *SQLRunRepository) StartRun(regulator string) (int64, error) {
	res, err := r.db.Exec(`
		INSERT INTO pipeline_runs (regulator, status) VALUES (?, ?)
	`, regulator, RunStatusRunning)
	if err != nil {
		return 0, fmt.Errorf("failed to start pipeline run: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run id: %w", err)
	}
	return id, nil
}

// Heartbeat refreshes the run's liveness timestamp.
func (r *SQLRunRepository) Heartbeat(runID int64) error {
	_, err := r.db.Exec(`
		UPDATE pipeline_runs SET heartbeat_at = CURRENT_TIMESTAMP WHERE id = ?
	`, runID)
	if err != nil {
		return fmt.Errorf("failed to update run heartbeat: %w", err)
	}
	return nil
}

// FinishRun closes a run with its final status and counters.
func (r *SQLRunRepository) FinishRun(runID int64, status string, newCount, existing, skipped, succeeded, failed int) error {
	_, err := r.db.Exec(`
		UPDATE pipeline_runs
		SET status = ?, new_count = ?, existing_count = ?, skipped_count = ?,
		    succeeded_count = ?, failed_count = ?, finished_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, status, newCount, existing, skipped, succeeded, failed, runID)
	if err != nil {
		return fmt.Errorf("failed to finish pipeline run: %w", err)
	}
	return nil
}

// GetRecentRuns returns the latest runs, newest first.
func (r *SQLRunRepository) GetRecentRuns(limit int) ([]PipelineRun, error) {
	rows, err := r.db.Query(`
		SELECT id, regulator, status, new_count, existing_count, skipped_count,
		       succeeded_count, failed_count, started_at, heartbeat_at, finished_at
		FROM pipeline_runs
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent runs: %w", err)
	}
	defer rows.Close()

	var runs []PipelineRun
	for rows.Next() {
		var run PipelineRun
		err := rows.Scan(&run.ID, &run.Regulator, &run.Status, &run.New, &run.Existing,
			&run.Skipped, &run.Succeeded, &run.Failed, &run.StartedAt, &run.HeartbeatAt,
			&run.FinishedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating run rows: %w", err)
	}

	return runs, nil
}
