package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures environment driven configuration values for the booking service.
type Config struct {
	HTTPPort       int
	SQLiteDSN      string
	SessionSecret  string
	SessionTTL     time.Duration
	SweepInterval  time.Duration
	MaxOccurrences int
}

// Load parses configuration values from the current process environment.
//
// Optional fields fall back to defaults; required values are validated and
// reported together so a misconfigured deployment fails with one message.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:       8080,
		SQLiteDSN:      "file:roombooker.db?_foreign_keys=on",
		SessionTTL:     24 * time.Hour,
		SweepInterval:  time.Minute,
		MaxOccurrences: 0,
	}

	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("ROOMBOOKER_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "ROOMBOOKER_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("ROOMBOOKER_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if secret := strings.TrimSpace(os.Getenv("ROOMBOOKER_SESSION_SECRET")); secret == "" {
		missing = append(missing, "ROOMBOOKER_SESSION_SECRET")
	} else {
		cfg.SessionSecret = secret
	}

	if ttlValue := strings.TrimSpace(os.Getenv("ROOMBOOKER_SESSION_TTL")); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "ROOMBOOKER_SESSION_TTL")
		} else {
			cfg.SessionTTL = ttl
		}
	}

	if sweepValue := strings.TrimSpace(os.Getenv("ROOMBOOKER_SWEEP_INTERVAL")); sweepValue != "" {
		interval, err := time.ParseDuration(sweepValue)
		if err != nil || interval <= 0 {
			invalid = append(invalid, "ROOMBOOKER_SWEEP_INTERVAL")
		} else {
			cfg.SweepInterval = interval
		}
	}

	if occValue := strings.TrimSpace(os.Getenv("ROOMBOOKER_MAX_OCCURRENCES")); occValue != "" {
		occurrences, err := strconv.Atoi(occValue)
		if err != nil || occurrences < 0 {
			invalid = append(invalid, "ROOMBOOKER_MAX_OCCURRENCES")
		} else {
			cfg.MaxOccurrences = occurrences
		}
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables are not set: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("environment variables have invalid values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
