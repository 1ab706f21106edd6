// Package config reads the small set of environment-driven values the
// primer binaries need, following the same plain os.Getenv idiom the
// teacher uses for its own ENV=dev gate — no config file format, no
// env-binding library, just named variables with sane defaults.
package config

import (
	"os"
	"strconv"

	"github.com/edirooss/primer/internal/prioqueue"
)

// Config holds everything a primerd/primerctl binary needs to wire up a
// Sieve over a Redis-backed TieredPQ.
type Config struct {
	RedisAddr string
	RedisDB   int

	// High/Low are the TieredPQ offload/reload watermarks.
	High int
	Low  int

	// Dev gates development-only HTTP conveniences (CORS for a local
	// frontend), mirroring the teacher's ENV=dev check.
	Dev bool
}

// FromEnv loads a Config from environment variables, falling back to the
// design's defaults (HIGH=5000, LOW=1000) where unset.
//
//   - PRIMER_REDIS_ADDR: default "localhost:6379"
//   - PRIMER_REDIS_DB: default 0
//   - PRIMER_HIGH: default prioqueue.DefaultHigh
//   - PRIMER_LOW: default prioqueue.DefaultLow
//   - ENV=dev: enables the dev-only CORS policy
func FromEnv() Config {
	return Config{
		RedisAddr: getenvOr("PRIMER_REDIS_ADDR", "localhost:6379"),
		RedisDB:   getenvIntOr("PRIMER_REDIS_DB", 0),
		High:      getenvIntOr("PRIMER_HIGH", prioqueue.DefaultHigh),
		Low:       getenvIntOr("PRIMER_LOW", prioqueue.DefaultLow),
		Dev:       os.Getenv("ENV") == "dev",
	}
}

func getenvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvIntOr(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
