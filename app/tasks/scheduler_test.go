package tasks

import (
	"context"
	"fmt"
	"testing"
	"time"
)

type failingTask struct {
	Task
}

func (t *failingTask) Execute(ctx context.Context) error {
	return fmt.Errorf("always fails")
}

func TestStopWaitsForPendingRetry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		ctx:       ctx,
		cancel:    cancel,
		interval:  time.Minute,
		lastFired: make(map[string]time.Time),
		taskQueue: make(chan TaskInterface, 1),
	}

	// A failed execution schedules a delayed retry goroutine; Stop must wait
	// for it instead of closing the queue underneath its re-enqueue.
	task := &failingTask{Task: NewTask(TaskTypeRunPipeline, "SBP")}
	s.executeTask(task)

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Expected Stop to return once the retry goroutine is released")
	}

	// The queue is closed now; draining it must not panic.
	for range s.taskQueue {
	}
}
