package config

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

var validRegulators = map[string]bool{
	"SBP":  true,
	"SECP": true,
	"SAMA": true,
}

// ScheduleCache holds the schedule configuration in memory. The API can
// update schedules at runtime; updates are written back to the file so they
// survive a restart.
type ScheduleCache struct {
	path      string
	schedules map[string]Schedule
	rssFeeds  []RSSFeed
	mu        sync.RWMutex
}

func NewScheduleCache(path string) *ScheduleCache {
	return &ScheduleCache{
		path:      path,
		schedules: make(map[string]Schedule),
	}
}

// Run loads the configuration file. A missing file is not an error: the
// scheduler simply has nothing to trigger until schedules are set.
func (sc *ScheduleCache) Run() error {
	data, err := os.ReadFile(sc.path)
	if os.IsNotExist(err) {
		slog.Info("No schedule configuration file, starting with empty schedules", "path", sc.path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read schedule file: %w", err)
	}

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse schedule file: %w", err)
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()

	for _, schedule := range file.Schedules {
		schedule.Regulator = strings.ToUpper(strings.TrimSpace(schedule.Regulator))
		if err := validateSchedule(schedule); err != nil {
			return fmt.Errorf("invalid schedule in %s: %w", sc.path, err)
		}
		sc.schedules[schedule.Regulator] = schedule
		slog.Debug("Schedule loaded", "regulator", schedule.Regulator,
			"enabled", schedule.Enabled, "hour", schedule.Hour, "minute", schedule.Minute)
	}

	for _, feed := range file.RSSFeeds {
		if feed.URL == "" || feed.Name == "" {
			return fmt.Errorf("invalid rss feed in %s: name and url are required", sc.path)
		}
	}
	sc.rssFeeds = file.RSSFeeds

	return nil
}

// GetSchedule returns the schedule for a regulator, nil if none is set.
func (sc *ScheduleCache) GetSchedule(regulator string) *Schedule {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	schedule, ok := sc.schedules[strings.ToUpper(regulator)]
	if !ok {
		return nil
	}
	return &schedule
}

// GetSchedules returns all schedules, sorted by regulator for stable output.
func (sc *ScheduleCache) GetSchedules() []Schedule {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	schedules := make([]Schedule, 0, len(sc.schedules))
	for _, schedule := range sc.schedules {
		schedules = append(schedules, schedule)
	}
	sort.Slice(schedules, func(i, j int) bool {
		return schedules[i].Regulator < schedules[j].Regulator
	})
	return schedules
}

// GetEnabledSchedules returns the schedules the scheduler should act on.
func (sc *ScheduleCache) GetEnabledSchedules() []Schedule {
	schedules := sc.GetSchedules()
	enabled := schedules[:0]
	for _, schedule := range schedules {
		if schedule.Enabled {
			enabled = append(enabled, schedule)
		}
	}
	return enabled
}

// SetSchedule updates or creates one regulator's schedule and persists the
// whole configuration back to disk.
func (sc *ScheduleCache) SetSchedule(schedule Schedule) error {
	schedule.Regulator = strings.ToUpper(strings.TrimSpace(schedule.Regulator))
	if err := validateSchedule(schedule); err != nil {
		return err
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()

	sc.schedules[schedule.Regulator] = schedule
	return sc.persistLocked()
}

// GetRSSFeeds returns the configured press-release feeds.
func (sc *ScheduleCache) GetRSSFeeds() []RSSFeed {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	feeds := make([]RSSFeed, len(sc.rssFeeds))
	copy(feeds, sc.rssFeeds)
	return feeds
}

func (sc *ScheduleCache) persistLocked() error {
	file := File{RSSFeeds: sc.rssFeeds}
	for _, schedule := range sc.schedules {
		file.Schedules = append(file.Schedules, schedule)
	}
	sort.Slice(file.Schedules, func(i, j int) bool {
		return file.Schedules[i].Regulator < file.Schedules[j].Regulator
	})

	data, err := yaml.Marshal(&file)
	if err != nil {
		return fmt.Errorf("failed to serialize schedule file: %w", err)
	}
	if err := os.WriteFile(sc.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write schedule file: %w", err)
	}
	return nil
}

func validateSchedule(schedule Schedule) error {
	if !validRegulators[schedule.Regulator] {
		return fmt.Errorf("unknown regulator %q", schedule.Regulator)
	}
	if schedule.Hour < 0 || schedule.Hour > 23 {
		return fmt.Errorf("hour must be between 0 and 23, got %d", schedule.Hour)
	}
	if schedule.Minute < 0 || schedule.Minute > 59 {
		return fmt.Errorf("minute must be between 0 and 59, got %d", schedule.Minute)
	}
	return nil
}
