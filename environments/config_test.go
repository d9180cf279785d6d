package environments

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("RECOVERY_STALE_AFTER", "")
	t.Setenv("RECOVERY_MAX_ATTEMPTS", "")

	cfg := Load()

	if cfg.Recovery.StaleAfter != 10*time.Minute {
		t.Errorf("expected default staleness 10m, got %v", cfg.Recovery.StaleAfter)
	}
	if cfg.Recovery.MaxAttempts != 3 {
		t.Errorf("expected default max attempts 3, got %d", cfg.Recovery.MaxAttempts)
	}
	if cfg.Dispatch.MaxPages != 5 {
		t.Errorf("expected default max pages 5, got %d", cfg.Dispatch.MaxPages)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SCHEDULER_INTERVAL", "30s")
	t.Setenv("DISPATCH_CONCURRENCY", "2")
	t.Setenv("SWEEP_LOCK_ENABLED", "false")

	cfg := Load()

	if cfg.Scheduler.Interval != 30*time.Second {
		t.Errorf("expected 30s interval, got %v", cfg.Scheduler.Interval)
	}
	if cfg.Dispatch.Concurrency != 2 {
		t.Errorf("expected concurrency 2, got %d", cfg.Dispatch.Concurrency)
	}
	if cfg.Lock.Enabled {
		t.Errorf("expected sweep lock disabled")
	}
}

func TestValidate_RejectsImpossibleValues(t *testing.T) {
	cfg := Load()
	cfg.Dispatch.MaxPages = 0
	cfg.Scheduler.Interval = 0

	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("X_INT", "notanint")
	t.Setenv("X_BOOL", "true")
	t.Setenv("X_DUR", "1500ms")

	if got := GetEnvAsInt("X_INT", 7); got != 7 {
		t.Errorf("expected fallback 7, got %d", got)
	}
	if got := GetEnvAsBool("X_BOOL", false); !got {
		t.Errorf("expected true")
	}
	if got := GetEnvAsDuration("X_DUR", 0); got != 1500*time.Millisecond {
		t.Errorf("expected 1.5s, got %v", got)
	}
}
