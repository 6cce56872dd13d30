package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/regpipe/regpipe/app/cfg"
	"github.com/regpipe/regpipe/app/config"
	"github.com/regpipe/regpipe/app/crawler"
	"github.com/regpipe/regpipe/app/database"
)

// taskTimeout bounds one pipeline execution. Browser-driven collectors and
// OCR conversion make runs slow; the timeout only guards against a run that
// never finishes.
const taskTimeout = 2 * time.Hour

var _ TaskSchedulerInterface = (*Scheduler)(nil)

// Scheduler fires regulator pipelines at their configured daily times and
// serves manual triggers from the API. Tasks run on a single worker; the run
// lock additionally guarantees one pipeline at a time even for manual
// triggers racing a scheduled run.
type Scheduler struct {
	scheduleCache *config.ScheduleCache
	collectors    map[string]crawler.Collector
	runner        PipelineRunner
	runs          database.RunRepository
	lock          *RunLock
	httpClient    *http.Client
	interval      time.Duration
	lastFired     map[string]time.Time
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	taskQueue     chan TaskInterface
}

func NewScheduler(scheduleCache *config.ScheduleCache, collectors map[string]crawler.Collector,
	runner PipelineRunner, runs database.RunRepository, httpClient *http.Client) TaskSchedulerInterface {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		scheduleCache: scheduleCache,
		collectors:    collectors,
		runner:        runner,
		runs:          runs,
		lock:          &RunLock{},
		httpClient:    httpClient,
		interval:      time.Duration(cfg.Get().SchedulerInterval) * time.Second,
		lastFired:     make(map[string]time.Time),
		ctx:           ctx,
		cancel:        cancel,
		taskQueue:     make(chan TaskInterface, 50),
	}
}

func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.worker()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		startedAt := time.Now()
		for regulator := range s.collectors {
			s.lastFired[regulator] = startedAt
		}

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueDueTasks()
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	close(s.taskQueue)
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

// Trigger enqueues a manual run for one regulator.
func (s *Scheduler) Trigger(regulator string) error {
	collector, ok := s.collectors[strings.ToUpper(regulator)]
	if !ok {
		return fmt.Errorf("unknown regulator: %s", regulator)
	}

	task := NewRunPipelineTask(collector, s.runner, s.runs, s.lock, s.httpClient)
	return s.EnqueueTask(task)
}

// TriggerAll enqueues a run for every registered regulator and returns the
// regulators that were actually queued.
func (s *Scheduler) TriggerAll() []string {
	var queued []string
	for regulator := range s.collectors {
		if err := s.Trigger(regulator); err != nil {
			slog.Warn("Failed to enqueue pipeline run", "regulator", regulator, "error", err)
			continue
		}
		queued = append(queued, regulator)
	}
	return queued
}

// enqueueDueTasks fires every enabled schedule whose daily slot has passed
// since it last fired. Schedule updates made through the API take effect on
// the next tick.
func (s *Scheduler) enqueueDueTasks() {
	now := time.Now()

	for _, schedule := range s.scheduleCache.GetEnabledSchedules() {
		collector, ok := s.collectors[schedule.Regulator]
		if !ok {
			slog.Warn("Schedule refers to unregistered regulator", "regulator", schedule.Regulator)
			continue
		}

		last, ok := s.lastFired[schedule.Regulator]
		if !ok {
			last = now
			s.lastFired[schedule.Regulator] = last
		}
		if schedule.NextRun(last).After(now) {
			continue
		}

		task := NewRunPipelineTask(collector, s.runner, s.runs, s.lock, s.httpClient)
		if err := s.EnqueueTask(task); err != nil {
			slog.Warn("Failed to enqueue scheduled pipeline run", "regulator", schedule.Regulator, "error", err)
			continue
		}

		slog.Info("Scheduled pipeline run enqueued", "regulator", schedule.Regulator,
			"hour", schedule.Hour, "minute", schedule.Minute)
		s.lastFired[schedule.Regulator] = now
	}
}

func (s *Scheduler) worker() {
	defer s.wg.Done()

	for {
		select {
		case task, ok := <-s.taskQueue:
			if !ok {
				return
			}
			s.executeTask(task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, taskTimeout)
	defer cancel()

	err := task.Execute(taskCtx)

	if err != nil {
		slog.Error("Task execution failed", "type", string(task.GetType()), "id", task.GetID(),
			"regulator", task.GetRegulator(), "retry_count", task.GetRetryCount(), "error", err)

		if task.CanRetry() {
			task.IncrementRetryCount()
			retryDelay := time.Duration(1<<uint(task.GetRetryCount()-1)) * time.Second
			if retryDelay > 30*time.Second {
				retryDelay = 30 * time.Second
			}

			slog.Warn("Task retry scheduled", "type", string(task.GetType()), "regulator", task.GetRegulator(),
				"retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

			// The retry goroutine joins the WaitGroup so Stop cannot close
			// the queue while a re-enqueue is still pending.
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				select {
				case <-s.ctx.Done():
					slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
					return
				case <-time.After(retryDelay):
				}
				if retryErr := s.EnqueueTask(task); retryErr != nil {
					slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()),
						"id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
				}
			}()
		} else {
			slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(),
				"retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		}
	} else {
		slog.Debug("Task completed", "type", string(task.GetType()), "id", task.GetID(),
			"regulator", task.GetRegulator(), "duration", task.GetDuration().String())
	}
}
