package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/dstrants/tvremote/internal/cache"
	"github.com/dstrants/tvremote/internal/logger"
	"github.com/dstrants/tvremote/internal/pairing"
	"github.com/dstrants/tvremote/internal/remote"
	"github.com/dstrants/tvremote/internal/session"
	"github.com/dstrants/tvremote/internal/transport"
)

var (
	// Persistent flags
	cfg Config

	// Set by the root pre-run hook.
	log *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:           "tvremote",
	Short:         "Remote control for LG webOS TVs",
	Long:          `Pair once with an LG webOS TV, then drive power, volume, channels and apps from the command line or an HTTP API.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := validateConfig(cfg); err != nil {
			return err
		}
		level, _ := logger.ParseLevel(cfg.LogLevel)
		log = logger.Setup(cfg.Home, level)
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfg.Home, "home", envStr("TVREMOTE_HOME", defaultHome()), "Directory for the pairing file, caches and logs")
	flags.StringVar(&cfg.CacheBackend, "cache-backend", envStr("TVREMOTE_CACHE", string(cache.BackendFile)), "Cache backend: file or sqlite")
	flags.DurationVar(&cfg.CommandTimeout, "timeout", envDuration("TVREMOTE_TIMEOUT", 10*time.Second), "Timeout for a single TV command")
	flags.DurationVar(&cfg.PairTimeout, "pair-timeout", envDuration("TVREMOTE_PAIR_TIMEOUT", 60*time.Second), "How long to wait for the pairing prompt to be accepted")
	flags.BoolVar(&cfg.Secure, "secure", envBool("TVREMOTE_SECURE", false), "Use wss on port 3001 (newer firmware)")
	flags.IntVar(&cfg.TVPort, "tv-port", envInt("TVREMOTE_TV_PORT", 0), "TV control port (0 picks 3000, or 3001 with --secure)")
	flags.StringVar(&cfg.LogLevel, "log-level", envStr("TVREMOTE_LOG_LEVEL", "info"), "Log level: debug, info, warn, error")
}

// app bundles the wired components a command needs.
type app struct {
	remote *remote.Remote
	store  *pairing.Store
	cache  cache.Store
	logger *slog.Logger
}

func (a *app) Close() {
	if err := a.cache.Close(); err != nil {
		a.logger.Warn("cache close failed", "error", err)
	}
}

// buildApp wires the pairing store, transport, session manager and cache
// into a Remote.
func buildApp(cfg Config, lg *slog.Logger) (*app, error) {
	if lg == nil {
		lg = slog.Default()
	}
	backend, err := cache.ParseBackend(cfg.CacheBackend)
	if err != nil {
		return nil, err
	}
	store := pairing.NewStore(cfg.Home)

	tr := transport.NewWebSocket(transport.Config{
		Port:            cfg.TVPort,
		Secure:          cfg.Secure,
		RegisterTimeout: cfg.PairTimeout,
		CommandTimeout:  cfg.CommandTimeout,
	})

	c, err := cache.Open(backend, cfg.Home)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}

	r := remote.New(remote.Options{
		Sessions: session.NewManager(store, tr, lg),
		Records:  store,
		Cache:    c,
		Logger:   lg,
	})
	return &app{remote: r, store: store, cache: c, logger: lg}, nil
}
