package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeScheduleFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schedules.yml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write schedule file: %v", err)
	}
	return path
}

func TestScheduleCacheRun(t *testing.T) {
	path := writeScheduleFile(t, `
schedules:
  - regulator: sbp
    enabled: true
    hour: 2
    minute: 30
  - regulator: SAMA
    enabled: false
    hour: 4
    minute: 0
rss_feeds:
  - name: SBP Press Releases
    url: https://www.sbp.org.pk/press/rss.xml
    regulator: SBP
    category: Press Release
`)

	cache := NewScheduleCache(path)
	if err := cache.Run(); err != nil {
		t.Fatalf("Failed to load schedules: %v", err)
	}

	schedules := cache.GetSchedules()
	if len(schedules) != 2 {
		t.Fatalf("Expected 2 schedules, got %d", len(schedules))
	}

	sbp := cache.GetSchedule("SBP")
	if sbp == nil {
		t.Fatal("Expected SBP schedule (regulator names are case-insensitive)")
	}
	if !sbp.Enabled || sbp.Hour != 2 || sbp.Minute != 30 {
		t.Errorf("Unexpected SBP schedule: %+v", sbp)
	}

	enabled := cache.GetEnabledSchedules()
	if len(enabled) != 1 {
		t.Fatalf("Expected 1 enabled schedule, got %d", len(enabled))
	}
	if enabled[0].Regulator != "SBP" {
		t.Errorf("Expected enabled schedule for SBP, got %s", enabled[0].Regulator)
	}

	feeds := cache.GetRSSFeeds()
	if len(feeds) != 1 {
		t.Fatalf("Expected 1 rss feed, got %d", len(feeds))
	}
	if feeds[0].Name != "SBP Press Releases" {
		t.Errorf("Unexpected feed name: %s", feeds[0].Name)
	}
}

func TestScheduleCacheMissingFile(t *testing.T) {
	cache := NewScheduleCache(filepath.Join(t.TempDir(), "nope.yml"))
	if err := cache.Run(); err != nil {
		t.Fatalf("Expected missing file to be tolerated, got %v", err)
	}
	if len(cache.GetSchedules()) != 0 {
		t.Error("Expected no schedules")
	}
}

func TestScheduleCacheRejectsUnknownRegulator(t *testing.T) {
	path := writeScheduleFile(t, `
schedules:
  - regulator: FED
    enabled: true
    hour: 1
    minute: 0
`)

	cache := NewScheduleCache(path)
	if err := cache.Run(); err == nil {
		t.Error("Expected error for unknown regulator")
	}
}

func TestScheduleCacheRejectsInvalidTime(t *testing.T) {
	path := writeScheduleFile(t, `
schedules:
  - regulator: SBP
    enabled: true
    hour: 24
    minute: 0
`)

	cache := NewScheduleCache(path)
	if err := cache.Run(); err == nil {
		t.Error("Expected error for hour out of range")
	}
}

func TestSetSchedulePersists(t *testing.T) {
	path := writeScheduleFile(t, `
schedules:
  - regulator: SBP
    enabled: true
    hour: 2
    minute: 0
`)

	cache := NewScheduleCache(path)
	if err := cache.Run(); err != nil {
		t.Fatalf("Failed to load schedules: %v", err)
	}

	if err := cache.SetSchedule(Schedule{Regulator: "SECP", Enabled: true, Hour: 3, Minute: 15}); err != nil {
		t.Fatalf("Failed to set schedule: %v", err)
	}

	// A fresh cache reading the same file must see the update
	reloaded := NewScheduleCache(path)
	if err := reloaded.Run(); err != nil {
		t.Fatalf("Failed to reload schedules: %v", err)
	}

	secp := reloaded.GetSchedule("SECP")
	if secp == nil {
		t.Fatal("Expected persisted SECP schedule")
	}
	if secp.Hour != 3 || secp.Minute != 15 {
		t.Errorf("Unexpected persisted schedule: %+v", secp)
	}
	if reloaded.GetSchedule("SBP") == nil {
		t.Error("Expected original SBP schedule to survive the update")
	}
}

func TestSetScheduleValidates(t *testing.T) {
	cache := NewScheduleCache(filepath.Join(t.TempDir(), "schedules.yml"))

	if err := cache.SetSchedule(Schedule{Regulator: "SBP", Hour: 0, Minute: 75}); err == nil {
		t.Error("Expected error for minute out of range")
	}
	if err := cache.SetSchedule(Schedule{Regulator: "NOPE", Hour: 0, Minute: 0}); err == nil {
		t.Error("Expected error for unknown regulator")
	}
}

func TestNextRun(t *testing.T) {
	schedule := &Schedule{Regulator: "SBP", Hour: 2, Minute: 30}

	before := time.Date(2025, 3, 1, 1, 0, 0, 0, time.UTC)
	next := schedule.NextRun(before)
	want := time.Date(2025, 3, 1, 2, 30, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("Expected next run %v, got %v", want, next)
	}

	after := time.Date(2025, 3, 1, 3, 0, 0, 0, time.UTC)
	next = schedule.NextRun(after)
	want = time.Date(2025, 3, 2, 2, 30, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("Expected next run %v, got %v", want, next)
	}

	// Exactly at the slot: the next run is tomorrow, not now
	at := time.Date(2025, 3, 1, 2, 30, 0, 0, time.UTC)
	next = schedule.NextRun(at)
	if !next.Equal(want) {
		t.Errorf("Expected next run %v, got %v", want, next)
	}
}
