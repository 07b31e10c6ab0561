// Package config loads runtime configuration from the environment.
// Fail-fast: a missing required variable aborts startup.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr     string
	PostgresConn string

	// StrictStatusTransitions enforces the job status transition table.
	// Disable only for backward compatibility with the legacy free-form
	// status updates.
	StrictStatusTransitions bool
}

func Load() (*Config, error) {
	// A missing .env file is fine; variables may come from the environment.
	_ = godotenv.Load()

	conn := os.Getenv("POSTGRES_CONN")
	if conn == "" {
		return nil, fmt.Errorf("POSTGRES_CONN is required")
	}

	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	strict := true
	if v := os.Getenv("STRICT_STATUS_TRANSITIONS"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("STRICT_STATUS_TRANSITIONS must be a boolean, got %q", v)
		}
		strict = parsed
	}

	return &Config{
		HTTPAddr:                addr,
		PostgresConn:            conn,
		StrictStatusTransitions: strict,
	}, nil
}
