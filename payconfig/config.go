// Package payconfig holds PayMCP's process-wide configuration
// singleton: the shared validator instance and the coordinator's
// tunable defaults, overridable from the environment the same way the
// teacher's infra/config package does.
package payconfig

import (
	"crypto/rand"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

// Defaults mirrors spec §6's "Recognized options" table.
const (
	DefaultTTL            = 30 * time.Minute
	DefaultPollInterval   = 3 * time.Second
	DefaultMaxWait        = 15 * time.Minute
	DefaultElicitAttempts = 5
)

// Config is the process-wide singleton: a shared validator plus
// environment-overridable coordinator defaults.
type Config struct {
	Validator *validator.Validate

	TTL            time.Duration
	PollInterval   time.Duration
	MaxWait        time.Duration
	ElicitAttempts int
	Environment    string

	// InstanceID distinguishes log lines from different coordinator
	// instances in a multi-process deployment; regenerated at startup,
	// same rationale as the teacher's auto-rotating secret key.
	InstanceID string
}

var instance *Config

// App returns the process-wide Config, constructing it from the
// environment on first call.
func App() *Config {
	if instance == nil {
		instance = &Config{
			Validator:      validator.New(),
			TTL:            GetDurationEnv("PAYMCP_TTL_SECONDS", DefaultTTL),
			PollInterval:   GetDurationEnv("PAYMCP_POLL_INTERVAL_SECONDS", DefaultPollInterval),
			MaxWait:        GetDurationEnv("PAYMCP_MAX_WAIT_SECONDS", DefaultMaxWait),
			ElicitAttempts: GetIntEnv("PAYMCP_ELICIT_ATTEMPTS", DefaultElicitAttempts),
			Environment:    GetEnv("ENVIRONMENT", "development"),
			InstanceID:     RandomString(12),
		}
	}
	return instance
}

// GetEnv returns the environment variable at key, or fallback if unset
// or empty.
func GetEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// GetBoolEnv parses the environment variable at key as a bool,
// returning fallback if unset, empty, or unparseable.
func GetBoolEnv(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

// GetIntEnv parses the environment variable at key as an int,
// returning fallback if unset, empty, or unparseable.
func GetIntEnv(key string, fallback int) int {
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

// GetDurationEnv parses the environment variable at key as a whole
// number of seconds, returning fallback if unset, empty, or
// unparseable.
func GetDurationEnv(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return time.Duration(secs) * time.Second
}

const randomCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// RandomString returns a cryptographically-random alphanumeric string
// of length n.
func RandomString(n int) string {
	if n <= 0 {
		return ""
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand.Read failing means the platform has no secure
		// randomness source; fall back to a fixed, clearly-marked
		// placeholder rather than panicking.
		for i := range buf {
			buf[i] = randomCharset[0]
		}
		return string(buf)
	}
	out := make([]byte, n)
	for i, b := range buf {
		out[i] = randomCharset[int(b)%len(randomCharset)]
	}
	return string(out)
}
