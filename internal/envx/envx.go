// Package envx provides utility functions for extracting information from environment variables
package envx

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/anchor/marquise/internal/errorsx"
)

// Int retrieve an integer flag from the environment, checks each key in order
// first to parse successfully is returned.
func Int(fallback int, keys ...string) int {
	return envval(fallback, func(s string) (int, error) {
		decoded, err := strconv.ParseInt(s, 10, 64)
		return int(decoded), errorsx.Wrapf(err, "integer '%s' is invalid", s)
	}, keys...)
}

// Int64 retrieve a 64-bit integer flag from the environment.
func Int64(fallback int64, keys ...string) int64 {
	return envval(fallback, func(s string) (int64, error) {
		decoded, err := strconv.ParseInt(s, 10, 64)
		return decoded, errorsx.Wrapf(err, "integer '%s' is invalid", s)
	}, keys...)
}

// Float64 retrieve a float flag from the environment.
func Float64(fallback float64, keys ...string) float64 {
	return envval(fallback, func(s string) (float64, error) {
		decoded, err := strconv.ParseFloat(s, 64)
		return decoded, errorsx.Wrapf(err, "float64 '%s' is invalid", s)
	}, keys...)
}

// Boolean retrieve a boolean flag from the environment, checks each key in order
// first to parse successfully is returned.
func Boolean(fallback bool, keys ...string) bool {
	return envval(fallback, func(s string) (bool, error) {
		decoded, err := strconv.ParseBool(s)
		return decoded, errorsx.Wrapf(err, "boolean '%s' is invalid", s)
	}, keys...)
}

// String retrieve a string value from the environment, checks each key in order
// first string found is returned.
func String(fallback string, keys ...string) string {
	return envval(fallback, func(s string) (string, error) {
		// we'll never receive an empty string because envval skips empty strings.
		return s, nil
	}, keys...)
}

// Duration retrieves a time.Duration from the environment, checks each key in order
// first successful parse to a duration is returned.
func Duration(fallback time.Duration, keys ...string) time.Duration {
	return envval(fallback, func(s string) (time.Duration, error) {
		decoded, err := time.ParseDuration(s)
		return decoded, errorsx.Wrapf(err, "time.Duration '%s' is invalid", s)
	}, keys...)
}

func envval[T any](fallback T, parse func(string) (T, error), keys ...string) T {
	for _, k := range keys {
		s := strings.TrimSpace(os.Getenv(k))
		if s == "" {
			continue
		}

		decoded, err := parse(s)
		if err != nil {
			log.Printf("%s stored an invalid value %v\n", k, err)
			continue
		}

		return decoded
	}

	return fallback
}
