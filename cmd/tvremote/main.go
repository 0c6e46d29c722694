package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dstrants/tvremote/internal/pairing"
	"github.com/dstrants/tvremote/internal/session"
	"github.com/dstrants/tvremote/internal/transport"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		if hint := hintFor(err); hint != "" {
			fmt.Fprintf(os.Stderr, "hint: %s\n", hint)
		}
		os.Exit(1)
	}
}

// hintFor suggests the next step for errors a user can fix.
func hintFor(err error) string {
	switch {
	case errors.Is(err, session.ErrPairingRequired):
		return "run `tvremote configure <tv-ip>` first"
	case errors.Is(err, pairing.ErrConfigInvalid):
		return "fix or delete the pairing file and run `tvremote configure <tv-ip>` again"
	case errors.Is(err, transport.ErrPairingRejected):
		return "accept the prompt on the TV screen, or raise --pair-timeout"
	case errors.Is(err, transport.ErrDeviceUnreachable):
		return "check that the TV is on and reachable, or try --secure on newer firmware"
	default:
		return ""
	}
}
