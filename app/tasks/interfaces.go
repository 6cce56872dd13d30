package tasks

import (
	"context"

	"github.com/regpipe/regpipe/app/crawler"
	"github.com/regpipe/regpipe/app/pipeline"
)

// PipelineRunner executes one regulator's full ingestion run.
type PipelineRunner interface {
	Run(ctx context.Context, collector crawler.Collector) (*pipeline.Summary, error)
}

// TaskSchedulerInterface defines the interface for task scheduling operations.
// Used by the main application and the API server to manage background task
// processing.
// Example usage:
//
//	scheduler := NewScheduler(scheduleCache, collectors, runner, runRepo, httpClient)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.Trigger("SBP")
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
	Trigger(regulator string) error
	TriggerAll() []string
}
