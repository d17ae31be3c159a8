package main

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/xhit/go-str2duration/v2"

	"github.com/jonwraymond/memocache/cache"
)

const envPrefix = "PAGECACHE_"

// settings is the resolved configuration of one command run.
type settings struct {
	backend     string
	redisURL    string
	redisPrefix string
	sqlitePath  string
	expiry      time.Duration
	hash        cache.Hash

	singleFlight bool
	zeroAsMiss   bool

	timeout     time.Duration
	retries     int
	concurrency int
	maxRequests int

	logLevel string
	metrics  string
	tracing  string
}

// envName maps a flag name to its environment variable.
// Format: PAGECACHE_<FLAG_NAME> with dashes as underscores.
func envName(flag string) string {
	return envPrefix + strings.ToUpper(strings.ReplaceAll(flag, "-", "_"))
}

// flagOrEnv returns the flag value if it was set on the command line, then
// the environment value, then the flag default.
func flagOrEnv(cmd *cobra.Command, name string) string {
	f := cmd.Flags().Lookup(name)
	if f != nil && f.Changed {
		return f.Value.String()
	}
	if v, ok := os.LookupEnv(envName(name)); ok && v != "" {
		return v
	}
	if f != nil {
		return f.Value.String()
	}
	return ""
}

func durationFlagOrEnv(cmd *cobra.Command, name string) (time.Duration, error) {
	raw := flagOrEnv(cmd, name)
	d, err := str2duration.ParseDuration(raw)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid --%s %q", name, raw)
	}
	return d, nil
}

func intFlagOrEnv(cmd *cobra.Command, name string) (int, error) {
	raw := flagOrEnv(cmd, name)
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid --%s %q", name, raw)
	}
	return n, nil
}

func boolFlagOrEnv(cmd *cobra.Command, name string) (bool, error) {
	raw := flagOrEnv(cmd, name)
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, errors.Wrapf(err, "invalid --%s %q", name, raw)
	}
	return b, nil
}

func loadSettings(cmd *cobra.Command) (settings, error) {
	s := settings{
		backend:     strings.ToLower(flagOrEnv(cmd, "backend")),
		redisURL:    flagOrEnv(cmd, "redis-url"),
		redisPrefix: flagOrEnv(cmd, "redis-prefix"),
		sqlitePath:  flagOrEnv(cmd, "sqlite-path"),
		logLevel:    strings.ToLower(flagOrEnv(cmd, "log-level")),
		metrics:     flagOrEnv(cmd, "metrics"),
		tracing:     flagOrEnv(cmd, "tracing"),
	}

	var err error
	if s.hash, err = cache.ParseHash(flagOrEnv(cmd, "hash")); err != nil {
		return s, err
	}
	if s.expiry, err = durationFlagOrEnv(cmd, "expiry"); err != nil {
		return s, err
	}
	if s.timeout, err = durationFlagOrEnv(cmd, "timeout"); err != nil {
		return s, err
	}
	if s.retries, err = intFlagOrEnv(cmd, "retries"); err != nil {
		return s, err
	}
	if s.concurrency, err = intFlagOrEnv(cmd, "concurrency"); err != nil {
		return s, err
	}
	if s.maxRequests, err = intFlagOrEnv(cmd, "max-requests"); err != nil {
		return s, err
	}
	if s.singleFlight, err = boolFlagOrEnv(cmd, "single-flight"); err != nil {
		return s, err
	}
	if s.zeroAsMiss, err = boolFlagOrEnv(cmd, "zero-as-miss"); err != nil {
		return s, err
	}

	return s, s.validate()
}

func (s settings) validate() error {
	switch s.backend {
	case "memory":
	case "redis":
		if s.redisURL == "" {
			return errors.New("--redis-url is required for the redis backend")
		}
	case "sqlite":
		if s.sqlitePath == "" {
			return errors.New("--sqlite-path is required for the sqlite backend")
		}
	default:
		return errors.Newf("unknown backend %q (want memory, redis or sqlite)", s.backend)
	}

	if s.expiry < 0 {
		return errors.New("--expiry must be >= 0")
	}
	if s.timeout <= 0 {
		return errors.New("--timeout must be > 0")
	}
	if s.retries < 0 {
		return errors.New("--retries must be >= 0")
	}
	if s.concurrency < 1 {
		return errors.New("--concurrency must be >= 1")
	}
	if s.maxRequests < 1 {
		return errors.New("--max-requests must be >= 1")
	}
	return nil
}
