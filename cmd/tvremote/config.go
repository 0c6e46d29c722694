package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dstrants/tvremote/internal/cache"
	"github.com/dstrants/tvremote/internal/logger"
)

const version = "0.1.0"

// Config holds runtime configuration shared by all commands.
type Config struct {
	Home           string
	CacheBackend   string
	CommandTimeout time.Duration
	PairTimeout    time.Duration
	Secure         bool
	TVPort         int
	LogLevel       string
}

// ServeConfig holds the extra configuration of the serve command.
type ServeConfig struct {
	Port         int
	Bind         string // "loopback" or "lan"
	Rate         float64
	Burst        int
	DiscordToken string
	GuildID      string
	Advertise    bool
}

func validateConfig(cfg Config) error {
	if cfg.Home == "" {
		return fmt.Errorf("home directory is required")
	}
	if _, err := cache.ParseBackend(cfg.CacheBackend); err != nil {
		return err
	}
	if cfg.CommandTimeout <= 0 {
		return fmt.Errorf("invalid timeout: %s (must be positive)", cfg.CommandTimeout)
	}
	if cfg.PairTimeout <= 0 {
		return fmt.Errorf("invalid pair timeout: %s (must be positive)", cfg.PairTimeout)
	}
	if cfg.TVPort < 0 || cfg.TVPort > 65535 {
		return fmt.Errorf("invalid tv port: %d (must be 0-65535)", cfg.TVPort)
	}
	if _, err := logger.ParseLevel(cfg.LogLevel); err != nil {
		return err
	}
	return nil
}

func validateServeConfig(cfg ServeConfig) error {
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("invalid port: %d (must be 1-65535)", cfg.Port)
	}
	if cfg.Bind != "loopback" && cfg.Bind != "lan" {
		return fmt.Errorf("invalid bind mode: %q (must be \"loopback\" or \"lan\")", cfg.Bind)
	}
	if cfg.Rate < 0 {
		return fmt.Errorf("invalid rate: %g (must be >= 0)", cfg.Rate)
	}
	if cfg.Burst < 0 {
		return fmt.Errorf("invalid burst: %d (must be >= 0)", cfg.Burst)
	}
	return nil
}

// bindAddress maps a bind mode to the listen host.
func bindAddress(mode string) string {
	if mode == "lan" {
		return "0.0.0.0"
	}
	return "127.0.0.1"
}

// Env helpers
func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
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

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func envBool(key string, fallback bool) bool {
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

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

// defaultHome returns ~/.tvremote, or ./.tvremote when no home directory is known.
func defaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".tvremote")
	}
	return filepath.Join(home, ".tvremote")
}
