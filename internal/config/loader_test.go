package config

import (
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"RESERVATIONS_HTTP_PORT",
		"RESERVATIONS_SQLITE_DSN",
		"RESERVATIONS_OPERATOR_TOKEN",
		"RESERVATIONS_RECONCILE_EVERY",
		"RESERVATIONS_SANCTION_DAYS",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("RESERVATIONS_OPERATOR_TOKEN", "ops-token")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.HTTPPort != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.HTTPPort)
	}
	if cfg.SQLiteDSN != "file:reservations.db?_foreign_keys=on" {
		t.Errorf("unexpected default DSN %q", cfg.SQLiteDSN)
	}
	if cfg.OperatorToken != "ops-token" {
		t.Errorf("unexpected operator token %q", cfg.OperatorToken)
	}
	if cfg.ReconcileEvery != time.Hour {
		t.Errorf("expected hourly reconciliation default, got %s", cfg.ReconcileEvery)
	}
	if cfg.SanctionDays != 60 {
		t.Errorf("expected 60 sanction days, got %d", cfg.SanctionDays)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("unexpected shutdown timeout %s", cfg.ShutdownTimeout)
	}
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("RESERVATIONS_HTTP_PORT", "9191")
	t.Setenv("RESERVATIONS_SQLITE_DSN", "file:/tmp/alt.db?_foreign_keys=on")
	t.Setenv("RESERVATIONS_OPERATOR_TOKEN", "ops-token")
	t.Setenv("RESERVATIONS_RECONCILE_EVERY", "30m")
	t.Setenv("RESERVATIONS_SANCTION_DAYS", "14")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.HTTPPort != 9191 {
		t.Errorf("expected port 9191, got %d", cfg.HTTPPort)
	}
	if cfg.SQLiteDSN != "file:/tmp/alt.db?_foreign_keys=on" {
		t.Errorf("unexpected DSN %q", cfg.SQLiteDSN)
	}
	if cfg.ReconcileEvery != 30*time.Minute {
		t.Errorf("expected 30m interval, got %s", cfg.ReconcileEvery)
	}
	if cfg.SanctionDays != 14 {
		t.Errorf("expected 14 sanction days, got %d", cfg.SanctionDays)
	}
}

func TestLoad_MissingOperatorToken(t *testing.T) {
	clearEnv(t)

	_, err := Load()
	if err == nil {
		t.Fatal("expected an error for the missing operator token")
	}
	if !strings.Contains(err.Error(), "RESERVATIONS_OPERATOR_TOKEN") {
		t.Errorf("error should name the missing variable, got %q", err)
	}
}

func TestLoad_InvalidValuesAccumulate(t *testing.T) {
	clearEnv(t)
	t.Setenv("RESERVATIONS_OPERATOR_TOKEN", "ops-token")
	t.Setenv("RESERVATIONS_HTTP_PORT", "not-a-port")
	t.Setenv("RESERVATIONS_RECONCILE_EVERY", "-5m")
	t.Setenv("RESERVATIONS_SANCTION_DAYS", "0")

	_, err := Load()
	if err == nil {
		t.Fatal("expected an error for invalid values")
	}
	for _, name := range []string{
		"RESERVATIONS_HTTP_PORT",
		"RESERVATIONS_RECONCILE_EVERY",
		"RESERVATIONS_SANCTION_DAYS",
	} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error should name %s, got %q", name, err)
		}
	}
}
