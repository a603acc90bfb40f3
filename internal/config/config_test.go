package config

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.HTTP.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.HTTP.Port)
	}
	if cfg.Storage.Driver != StorageDriverPostgres {
		t.Fatalf("expected postgres driver, got %q", cfg.Storage.Driver)
	}
	if !reflect.DeepEqual(cfg.Scheduler.ReminderDays, []int{3, 1, 0}) {
		t.Fatalf("unexpected reminder days %v", cfg.Scheduler.ReminderDays)
	}
	if cfg.Scheduler.ReminderDedupe != 20*time.Hour {
		t.Fatalf("unexpected dedupe window %s", cfg.Scheduler.ReminderDedupe)
	}
	if cfg.Location != time.UTC {
		t.Fatalf("expected UTC location, got %v", cfg.Location)
	}
	if cfg.Graph.Enabled() {
		t.Fatal("graph should be disabled without GRAPH_URI")
	}
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "")
	if _, err := Load(); !errors.Is(err, ErrMissingSecret) {
		t.Fatalf("expected ErrMissingSecret, got %v", err)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"SERVER_PORT":          "70000",
		"STORAGE_DRIVER":       "sqlite",
		"SERVER_READ_TIMEOUT":  "soon",
		"SCHEDULER_RUN_HOUR":   "24",
		"REMINDER_DAYS_BEFORE": "3,-1",
		"APP_TIMEZONE":         "Mars/Olympus",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv("AUTH_JWT_SECRET", "secret")
			t.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%s", key, value)
			}
		})
	}
}

func TestParseDaysDeduplicatesAndSorts(t *testing.T) {
	got, err := parseDays("0, 3,1,3")
	if err != nil {
		t.Fatalf("parseDays returned error: %v", err)
	}
	if !reflect.DeepEqual(got, []int{3, 1, 0}) {
		t.Fatalf("unexpected days %v", got)
	}
}
