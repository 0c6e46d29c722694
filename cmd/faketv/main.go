// Command faketv serves an emulated LG webOS TV so the remote can be driven
// without real hardware.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dstrants/tvremote/internal/faketv"
)

var (
	port      int
	bind      string
	tvCfg     faketv.Config
	knownKeys []string
)

var rootCmd = &cobra.Command{
	Use:          "faketv",
	Short:        "Emulated LG webOS TV speaking SSAP over WebSocket",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		tvCfg.KnownKeys = knownKeys
		return serve(cmd.Context())
	},
}

func init() {
	rootCmd.Flags().IntVar(&port, "port", 3000, "Listen port")
	rootCmd.Flags().StringVar(&bind, "bind", "127.0.0.1", "Listen address")
	rootCmd.Flags().StringVar(&tvCfg.ClientKey, "client-key", "", "Key issued on fresh pairings (random when empty)")
	rootCmd.Flags().BoolVar(&tvCfg.Prompt, "prompt", true, "Send the on-screen prompt ack before registering")
	rootCmd.Flags().BoolVar(&tvCfg.Reject, "reject", false, "Deny every pairing")
	rootCmd.Flags().StringSliceVar(&knownKeys, "known-key", nil, "Keys accepted without a prompt")
	rootCmd.Flags().BoolVar(&tvCfg.CloseOnTurnOff, "close-on-turnoff", true, "Drop connections after turnOff")
}

func serve(ctx context.Context) error {
	tv := faketv.New(tvCfg)
	defer tv.Close()

	addr := net.JoinHostPort(bind, strconv.Itoa(port))
	srv := &http.Server{Addr: addr, Handler: tv, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("shutdown failed", "error", err)
		}
	}()

	slog.Info("fake tv listening", "addr", "ws://"+addr+"/", "prompt", tvCfg.Prompt, "reject", tvCfg.Reject)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	cancel()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
