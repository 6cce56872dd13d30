package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/regpipe/regpipe/app/cfg"
	"github.com/regpipe/regpipe/app/crawler"
	"github.com/regpipe/regpipe/app/database"
)

const heartbeatInterval = 30 * time.Second

// RunLock enforces at most one RUNNING pipeline across all regulators. A
// trigger that finds the lock held is skipped, not queued.
type RunLock struct {
	mu sync.Mutex
}

func (l *RunLock) TryAcquire() bool {
	return l.mu.TryLock()
}

func (l *RunLock) Release() {
	l.mu.Unlock()
}

// RunPipelineTask executes one regulator's pipeline. In direct mode it runs
// the pipeline in-process with run bookkeeping and a heartbeat; in api mode
// it posts a trigger request to a remote pipeline service instead.
type RunPipelineTask struct {
	Task
	collector  crawler.Collector
	runner     PipelineRunner
	runs       database.RunRepository
	lock       *RunLock
	httpClient *http.Client
}

func NewRunPipelineTask(collector crawler.Collector, runner PipelineRunner,
	runs database.RunRepository, lock *RunLock, httpClient *http.Client) *RunPipelineTask {
	return &RunPipelineTask{
		Task:       NewTask(TaskTypeRunPipeline, string(collector.Regulator())),
		collector:  collector,
		runner:     runner,
		runs:       runs,
		lock:       lock,
		httpClient: httpClient,
	}
}

func (t *RunPipelineTask) Execute(ctx context.Context) error {
	if cfg.Get().ExecutionMode == cfg.ExecutionModeAPI {
		return t.triggerRemote(ctx)
	}
	return t.runDirect(ctx)
}

func (t *RunPipelineTask) runDirect(ctx context.Context) error {
	if !t.lock.TryAcquire() {
		slog.Info("Pipeline already running, skipping trigger", "regulator", t.Regulator)
		return nil
	}
	defer t.lock.Release()

	runID, err := t.runs.StartRun(t.Regulator)
	if err != nil {
		return fmt.Errorf("failed to record pipeline run: %w", err)
	}

	stopHeartbeat := t.startHeartbeat(runID)
	defer stopHeartbeat()

	summary, err := t.runner.Run(ctx, t.collector)
	if err != nil {
		if finishErr := t.runs.FinishRun(runID, database.RunStatusFailed, 0, 0, 0, 0, 0); finishErr != nil {
			slog.Error("Failed to close pipeline run record", "run_id", runID, "error", finishErr)
		}
		return err
	}

	if err := t.runs.FinishRun(runID, database.RunStatusCompleted,
		summary.New, summary.Existing, summary.Skipped, summary.Succeeded, summary.Failed); err != nil {
		slog.Error("Failed to close pipeline run record", "run_id", runID, "error", err)
	}
	return nil
}

// startHeartbeat refreshes the run's liveness timestamp on an interval until
// the returned stop function is called.
func (t *RunPipelineTask) startHeartbeat(runID int64) func() {
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()
		ticker := time.NewTicker(heartbeatInterval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if err := t.runs.Heartbeat(runID); err != nil {
					slog.Warn("Failed to update run heartbeat", "run_id", runID, "error", err)
				}
			}
		}
	}()

	return func() {
		close(stop)
		wg.Wait()
	}
}

func (t *RunPipelineTask) triggerRemote(ctx context.Context) error {
	appCfg := cfg.Get()

	body, err := json.Marshal(map[string]string{"regulator": t.Regulator})
	if err != nil {
		return fmt.Errorf("failed to encode trigger request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", appCfg.PipelineAPIURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create trigger request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if appCfg.APIAccessKey != "" {
		req.Header.Set("X-API-Key", appCfg.APIAccessKey)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to trigger remote pipeline: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("remote pipeline trigger returned %d %s", resp.StatusCode, resp.Status)
	}

	slog.Info("Remote pipeline triggered", "regulator", t.Regulator, "url", appCfg.PipelineAPIURL)
	return nil
}
