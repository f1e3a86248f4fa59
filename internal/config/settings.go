// Package config handles service configuration: defaults, an optional .env
// file, environment variables, and command-line flags, applied in that order.
package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Environment keys
const (
	EnvListenAddr          = "LISTEN_ADDR"
	EnvDownloadDir         = "DOWNLOAD_DIR"
	EnvMaxParallel         = "MAX_PARALLEL"
	EnvRetentionWindow     = "RETENTION_WINDOW"
	EnvCleanupInterval     = "CLEANUP_INTERVAL"
	EnvDeleteAfterDelivery = "DELETE_AFTER_DELIVERY"
	EnvRateLimitBPS        = "RATE_LIMIT_BPS"
	EnvInactivityTimeout   = "INACTIVITY_TIMEOUT"
	EnvFFmpegBin           = "FFMPEG_BIN"
)

// Default values
const (
	DefaultListenAddr          = ":8080"
	DefaultDownloadDir         = "downloads"
	DefaultMaxParallel         = 2
	DefaultRetentionWindow     = 1 * time.Hour
	DefaultCleanupInterval     = 5 * time.Minute
	DefaultDeleteAfterDelivery = true
	DefaultRateLimitBPS        = 0 // unlimited
	DefaultInactivityTimeout   = 2 * time.Minute
)

// Parallel download clamp, matching the job service slot model
const (
	MinParallel = 1
	MaxParallel = 10
)

// Settings holds runtime configuration for the service.
//
// Fields:
//   - ListenAddr: bind address for the HTTP server.
//   - DownloadDir: temporary storage for finished files.
//   - MaxParallel: concurrent external-tool invocations.
//   - RetentionWindow: how long a finished file may stay on disk.
//   - CleanupInterval: how often the janitor sweeps DownloadDir.
//   - DeleteAfterDelivery: reclaim a file right after a successful delivery.
//   - RateLimitBPS: delivery bandwidth cap in bytes/sec, 0 for unlimited.
//   - InactivityTimeout: abort a job when no progress arrives for this long.
//   - FFmpegPath: explicit ffmpeg location if it is not on PATH.
type Settings struct {
	ListenAddr          string
	DownloadDir         string
	MaxParallel         int
	RetentionWindow     time.Duration
	CleanupInterval     time.Duration
	DeleteAfterDelivery bool
	RateLimitBPS        int64
	InactivityTimeout   time.Duration
	FFmpegPath          string
}

// LoadDefaults populates Settings with development defaults
func (s *Settings) LoadDefaults() {
	s.ListenAddr = DefaultListenAddr
	s.DownloadDir = DefaultDownloadDir
	s.MaxParallel = DefaultMaxParallel
	s.RetentionWindow = DefaultRetentionWindow
	s.CleanupInterval = DefaultCleanupInterval
	s.DeleteAfterDelivery = DefaultDeleteAfterDelivery
	s.RateLimitBPS = DefaultRateLimitBPS
	s.InactivityTimeout = DefaultInactivityTimeout
	s.FFmpegPath = ""
}

// Load builds Settings by applying defaults, then overlaying values from an
// optional .env file plus the environment, and finally command-line flags.
func Load(args []string) (*Settings, error) {
	s := &Settings{}
	s.LoadDefaults()

	// .env is optional; a missing file is not an error.
	_ = godotenv.Load()

	if err := s.applyEnv(); err != nil {
		return nil, err
	}
	if err := s.applyFlags(args); err != nil {
		return nil, err
	}

	s.clamp()
	return s, nil
}

func (s *Settings) applyEnv() error {
	s.ListenAddr = getEnv(EnvListenAddr, s.ListenAddr)
	s.DownloadDir = getEnv(EnvDownloadDir, s.DownloadDir)
	s.FFmpegPath = getEnv(EnvFFmpegBin, s.FFmpegPath)

	var err error
	if s.MaxParallel, err = getEnvInt(EnvMaxParallel, s.MaxParallel); err != nil {
		return err
	}
	if s.RetentionWindow, err = getEnvDuration(EnvRetentionWindow, s.RetentionWindow); err != nil {
		return err
	}
	if s.CleanupInterval, err = getEnvDuration(EnvCleanupInterval, s.CleanupInterval); err != nil {
		return err
	}
	if s.DeleteAfterDelivery, err = getEnvBool(EnvDeleteAfterDelivery, s.DeleteAfterDelivery); err != nil {
		return err
	}

	bps, err := getEnvInt(EnvRateLimitBPS, int(s.RateLimitBPS))
	if err != nil {
		return err
	}
	s.RateLimitBPS = int64(bps)
	return nil
}

// applyFlags populates selected Settings fields from command-line flags.
//
// Supported flags:
//
//	-a string     HTTP bind address (e.g., ":8080")
//	-d string     download directory
//	-p int        max parallel downloads
//	-retention duration   file retention window
//	-cleanup duration     janitor sweep interval
func (s *Settings) applyFlags(args []string) error {
	fs := flag.NewFlagSet("ethicadl", flag.ContinueOnError)

	fs.StringVar(&s.ListenAddr, "a", s.ListenAddr, "address and port to run server")
	fs.StringVar(&s.DownloadDir, "d", s.DownloadDir, "download directory")
	fs.IntVar(&s.MaxParallel, "p", s.MaxParallel, "max parallel downloads")
	fs.DurationVar(&s.RetentionWindow, "retention", s.RetentionWindow, "file retention window")
	fs.DurationVar(&s.CleanupInterval, "cleanup", s.CleanupInterval, "cleanup sweep interval")

	return fs.Parse(args)
}

func (s *Settings) clamp() {
	if s.MaxParallel < MinParallel {
		s.MaxParallel = MinParallel
	}
	if s.MaxParallel > MaxParallel {
		s.MaxParallel = MaxParallel
	}
	if s.RateLimitBPS < 0 {
		s.RateLimitBPS = 0
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
