package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/dstrants/tvremote/internal/api"
	"github.com/dstrants/tvremote/internal/discord"
	"github.com/dstrants/tvremote/internal/discovery"
)

var serveCfg ServeConfig

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP remote API",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validateServeConfig(serveCfg); err != nil {
			return err
		}
		return runServer(cmd.Context(), cfg, serveCfg)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	flags := serveCmd.Flags()
	flags.IntVar(&serveCfg.Port, "port", envInt("TVREMOTE_PORT", 8000), "HTTP API port")
	flags.StringVar(&serveCfg.Bind, "bind", envStr("TVREMOTE_BIND", "loopback"), "Bind mode: loopback or lan")
	flags.Float64Var(&serveCfg.Rate, "rate", envFloat("TVREMOTE_RATE", 5), "Requests per second allowed per client IP (0 disables)")
	flags.IntVar(&serveCfg.Burst, "burst", envInt("TVREMOTE_BURST", 10), "Request burst allowed per client IP")
	flags.StringVar(&serveCfg.DiscordToken, "discord-token", envStr("DISCORD_BOT_TOKEN", ""), "Discord bot token")
	flags.StringVar(&serveCfg.GuildID, "guild-id", envStr("DISCORD_GUILD_ID", ""), "Discord guild ID")
	flags.BoolVar(&serveCfg.Advertise, "advertise", envBool("TVREMOTE_ADVERTISE", false), "Advertise the API over mDNS as _tvremote._tcp")
}

func runServer(ctx context.Context, cfg Config, scfg ServeConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}

	// 1. Remote
	a, err := buildApp(cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	// 2. HTTP API
	limiter := api.NewRateLimiter(scfg.Rate, scfg.Burst)
	defer limiter.Stop()

	addr := net.JoinHostPort(bindAddress(scfg.Bind), strconv.Itoa(scfg.Port))
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.NewRouter(a.remote, api.Config{Logger: log, Limiter: limiter}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 3. Bonjour (optional)
	var advertiser *discovery.Advertiser
	if scfg.Advertise {
		advertiser = startAdvertiser(ctx, a, scfg.Port)
	}

	// 4. Discord bot (optional)
	var bot *discord.Bot
	if scfg.DiscordToken != "" {
		bot, err = discord.NewBot(discord.BotConfig{
			Token:   scfg.DiscordToken,
			GuildID: scfg.GuildID,
		}, log)
		if err != nil {
			return fmt.Errorf("discord init: %w", err)
		}
		bot.SetRouter(discord.NewCommandRouter(a.remote))

		if err := bot.Start(ctx); err != nil {
			log.Warn("discord failed to connect", "error", err)
			bot = nil
		}
	}

	printBanner(cfg, scfg, addr, bot != nil, advertiser != nil)

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if bot != nil {
		if err := bot.Stop(); err != nil {
			log.Warn("discord stop failed", "error", err)
		}
	}
	if advertiser != nil {
		if err := advertiser.Stop(); err != nil {
			log.Warn("mdns stop failed", "error", err)
		}
	}
	return srv.Shutdown(shutdownCtx)
}

func startAdvertiser(ctx context.Context, a *app, port int) *discovery.Advertiser {
	host, _ := os.Hostname()
	meta := discovery.Metadata{DisplayName: "tvremote"}
	if host != "" {
		meta.LanHost = host + ".local"
		meta.DisplayName = "tvremote on " + host
	}
	if st, err := a.remote.Status(ctx); err == nil && st.Paired {
		meta.TVAddress = st.IP
	}

	advertiser, err := discovery.NewAdvertiser(discovery.Config{
		InstanceName: meta.DisplayName,
		Port:         port,
		Meta:         meta,
	})
	if err != nil {
		log.Warn("failed to init bonjour", "error", err)
		return nil
	}
	if err := advertiser.Start(); err != nil {
		log.Warn("failed to start bonjour", "error", err)
		return nil
	}
	log.Info("bonjour advertising started", "service", discovery.ServiceType)
	return advertiser
}

func printBanner(cfg Config, scfg ServeConfig, addr string, discordConnected, advertising bool) {
	discordStatus := "disabled"
	if discordConnected {
		discordStatus = "connected"
	}
	bonjour := "disabled"
	if advertising {
		bonjour = "enabled"
	}
	rate := "off"
	if scfg.Rate > 0 {
		rate = fmt.Sprintf("%g/s burst %d", scfg.Rate, scfg.Burst)
	}

	fmt.Printf("\n")
	fmt.Printf("  tvremote v%s\n", version)
	fmt.Printf("  http://%s  bind=%s  rate=%s\n", addr, scfg.Bind, rate)
	fmt.Printf("  discord: %s  bonjour: %s  cache: %s\n", discordStatus, bonjour, cfg.CacheBackend)
	fmt.Printf("  home: %s\n", cfg.Home)
	fmt.Printf("  health: http://%s/health\n", addr)
	fmt.Printf("\n")
	if scfg.Bind == "lan" {
		log.Warn("the API has no authentication; anyone on the LAN can drive the TV")
	}
}
