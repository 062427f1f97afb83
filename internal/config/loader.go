package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures environment driven configuration values for the
// reservations service.
type Config struct {
	HTTPPort        int
	SQLiteDSN       string
	OperatorToken   string
	ReconcileEvery  time.Duration
	SanctionDays    int
	ShutdownTimeout time.Duration
}

// Load parses configuration values from the current process environment.
//
// Optional fields fall back to sensible defaults; required values and
// malformed entries are accumulated and reported together.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:        8080,
		SQLiteDSN:       "file:reservations.db?_foreign_keys=on",
		ReconcileEvery:  time.Hour,
		SanctionDays:    60,
		ShutdownTimeout: 10 * time.Second,
	}

	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("RESERVATIONS_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "RESERVATIONS_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("RESERVATIONS_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if token := strings.TrimSpace(os.Getenv("RESERVATIONS_OPERATOR_TOKEN")); token == "" {
		missing = append(missing, "RESERVATIONS_OPERATOR_TOKEN")
	} else {
		cfg.OperatorToken = token
	}

	if everyValue := strings.TrimSpace(os.Getenv("RESERVATIONS_RECONCILE_EVERY")); everyValue != "" {
		every, err := time.ParseDuration(everyValue)
		if err != nil || every <= 0 {
			invalid = append(invalid, "RESERVATIONS_RECONCILE_EVERY")
		} else {
			cfg.ReconcileEvery = every
		}
	}

	if daysValue := strings.TrimSpace(os.Getenv("RESERVATIONS_SANCTION_DAYS")); daysValue != "" {
		days, err := strconv.Atoi(daysValue)
		if err != nil || days <= 0 {
			invalid = append(invalid, "RESERVATIONS_SANCTION_DAYS")
		} else {
			cfg.SanctionDays = days
		}
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variable values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
