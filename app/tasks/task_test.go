package tasks

import (
	"testing"
	"time"
)

func TestNewTask(t *testing.T) {
	task := NewTask(TaskTypeRunPipeline, "SBP")

	if task.ID == "" {
		t.Error("Expected non-empty task id")
	}
	if task.Type != TaskTypeRunPipeline {
		t.Errorf("Expected type '%s', got '%s'", TaskTypeRunPipeline, task.Type)
	}
	if task.Regulator != "SBP" {
		t.Errorf("Expected regulator 'SBP', got '%s'", task.Regulator)
	}
	if task.RetryCount != 0 {
		t.Errorf("Expected 0 retries, got %d", task.RetryCount)
	}
	if task.MaxRetries != DefaultMaxRetries {
		t.Errorf("Expected max retries %d, got %d", DefaultMaxRetries, task.MaxRetries)
	}

	other := NewTask(TaskTypeRunPipeline, "SBP")
	if task.ID == other.ID {
		t.Error("Expected unique task ids")
	}
}

func TestTaskRetryAccounting(t *testing.T) {
	task := NewTask(TaskTypeRunPipeline, "SECP")

	for i := 0; i < DefaultMaxRetries; i++ {
		if !task.CanRetry() {
			t.Fatalf("Expected retry %d to be allowed", i+1)
		}
		task.IncrementRetryCount()
	}

	if task.CanRetry() {
		t.Error("Expected no retries left after reaching the maximum")
	}
	if task.GetRetryCount() != DefaultMaxRetries {
		t.Errorf("Expected retry count %d, got %d", DefaultMaxRetries, task.GetRetryCount())
	}
}

func TestTaskDuration(t *testing.T) {
	task := NewTask(TaskTypeRunPipeline, "SAMA")

	if task.GetDuration() != 0 {
		t.Error("Expected zero duration before start")
	}

	task.Start()
	time.Sleep(10 * time.Millisecond)

	if task.GetDuration() <= 0 {
		t.Error("Expected positive duration after start")
	}
}

func TestRunLock(t *testing.T) {
	lock := &RunLock{}

	if !lock.TryAcquire() {
		t.Fatal("Expected first acquisition to succeed")
	}
	if lock.TryAcquire() {
		t.Error("Expected second acquisition to be skipped while held")
	}

	lock.Release()
	if !lock.TryAcquire() {
		t.Error("Expected acquisition to succeed after release")
	}
	lock.Release()
}
