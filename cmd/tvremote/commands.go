package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/netip"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dstrants/tvremote/internal/cache"
	"github.com/dstrants/tvremote/internal/remote"
	"github.com/dstrants/tvremote/internal/transport"
)

// operation runs one remote call and returns the message and payload to print.
type operation func(ctx context.Context, r *remote.Remote) (string, any, error)

// runOperation wires the app, runs op and prints its result.
func runOperation(cmd *cobra.Command, op operation) error {
	a, err := buildApp(cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	msg, payload, err := op(cmd.Context(), a.remote)
	if err != nil {
		return err
	}
	return printResult(cmd.OutOrStdout(), msg, payload)
}

// command adapts a facade method that returns a device response. Method
// expressions such as (*remote.Remote).Unmute fit call directly.
func command(msg string, call func(*remote.Remote, context.Context) (transport.Response, error)) operation {
	return func(ctx context.Context, r *remote.Remote) (string, any, error) {
		resp, err := call(r, ctx)
		return msg, resp, err
	}
}

func printResult(w io.Writer, msg string, payload any) error {
	if msg != "" {
		fmt.Fprintln(w, msg)
	}
	if payload == nil {
		return nil
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

var configureCmd = &cobra.Command{
	Use:   "configure [tv-ip]",
	Short: "Pair with the TV at an IPv4 address",
	Long:  `Pair with the TV at the given address. Accept the prompt on the TV screen; the issued key is stored for later commands.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := netip.ParseAddr(args[0])
		if err != nil || !addr.Is4() {
			return fmt.Errorf("invalid TV address %q: must be an IPv4 address", args[0])
		}
		fmt.Fprintln(cmd.ErrOrStderr(), "Pairing... accept the prompt on the TV if one appears.")
		return runOperation(cmd, func(ctx context.Context, r *remote.Remote) (string, any, error) {
			return "Configuration done!", nil, r.Configure(ctx, addr)
		})
	},
}

var turnOffCmd = &cobra.Command{
	Use:   "turnoff",
	Short: "Show a notice on the TV, then turn it off",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOperation(cmd, command("TV closed", (*remote.Remote).TurnOff))
	},
}

var muteCmd = &cobra.Command{
	Use:   "mute",
	Short: "Mute the TV",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOperation(cmd, command("TV muted", func(r *remote.Remote, ctx context.Context) (transport.Response, error) {
			return r.Mute(ctx, true)
		}))
	},
}

var unmuteCmd = &cobra.Command{
	Use:   "unmute",
	Short: "Unmute the TV",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOperation(cmd, command("TV unmuted", (*remote.Remote).Unmute))
	},
}

var volumeCmd = &cobra.Command{
	Use:   "volume",
	Short: "Show the volume, or change it with a subcommand",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOperation(cmd, command("Volume fetched", (*remote.Remote).GetVolume))
	},
}

var volumeUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Raise the volume one step",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOperation(cmd, command("Volume up", (*remote.Remote).VolumeUp))
	},
}

var volumeDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Lower the volume one step",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOperation(cmd, command("Volume down", (*remote.Remote).VolumeDown))
	},
}

var volumeSetCmd = &cobra.Command{
	Use:   "set [level]",
	Short: "Set the volume to a level between 0 and 100",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		level, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid volume %q: %w", args[0], remote.ErrInvalidVolume)
		}
		return runOperation(cmd, command("Volume set", func(r *remote.Remote, ctx context.Context) (transport.Response, error) {
			return r.SetVolume(ctx, level)
		}))
	},
}

var channelCmd = &cobra.Command{
	Use:   "channel",
	Short: "Change or show the current channel",
}

var channelUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Next channel",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOperation(cmd, command("Channel up", (*remote.Remote).ChannelUp))
	},
}

var channelDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Previous channel",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOperation(cmd, command("Channel down", (*remote.Remote).ChannelDown))
	},
}

var channelCurrentCmd = &cobra.Command{
	Use:   "current",
	Short: "Show the channel on screen",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOperation(cmd, command("Current channel", (*remote.Remote).GetCurrentChannel))
	},
}

var (
	channelsSync bool
	appsSync     bool
)

var channelsCmd = &cobra.Command{
	Use:   "channels",
	Short: "List channels from the local cache",
	Long:  `List channels from the local cache. The cache is filled from the TV on first use or when --sync is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runList(cmd, "channels", func(ctx context.Context, r *remote.Remote) ([]cache.Record, error) {
			return r.GetChannels(ctx, channelsSync)
		}, channelRow)
	},
}

var appsCmd = &cobra.Command{
	Use:   "apps",
	Short: "List installed apps from the local cache",
	Long:  `List installed apps from the local cache. The cache is filled from the TV on first use or when --sync is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runList(cmd, "apps", func(ctx context.Context, r *remote.Remote) ([]cache.Record, error) {
			return r.GetApps(ctx, appsSync)
		}, appRow)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show pairing and cache status without contacting the TV",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cfg, log)
		if err != nil {
			return err
		}
		defer a.Close()

		st, err := a.remote.Status(cmd.Context())
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "home:      %s\n", cfg.Home)
		if st.Paired {
			fmt.Fprintf(w, "paired:    yes (%s)\n", st.IP)
		} else {
			fmt.Fprintln(w, "paired:    no")
		}
		fmt.Fprintf(w, "cache:     %s\n", cfg.CacheBackend)
		fmt.Fprintf(w, "channels:  %d\n", st.Channels)
		fmt.Fprintf(w, "apps:      %d\n", st.Apps)
		return nil
	},
}

func runList(cmd *cobra.Command, what string, list func(context.Context, *remote.Remote) ([]cache.Record, error), row func(cache.Record) (string, string)) error {
	return runOperation(cmd, func(ctx context.Context, r *remote.Remote) (string, any, error) {
		recs, err := list(ctx, r)
		if err != nil {
			return "", nil, err
		}
		w := cmd.OutOrStdout()
		if len(recs) == 0 {
			fmt.Fprintf(w, "No %s cached. Run with --sync to fetch them from the TV.\n", what)
			return "", nil, nil
		}
		fmt.Fprintf(w, "%d %s\n", len(recs), what)
		for _, rec := range recs {
			a, b := row(rec)
			fmt.Fprintf(w, "%-8s  %s\n", a, b)
		}
		return "", nil, nil
	})
}

func channelRow(rec cache.Record) (string, string) {
	return field(rec, "channelNumber"), field(rec, "channelName")
}

func appRow(rec cache.Record) (string, string) {
	title, id := field(rec, "title"), field(rec, "id")
	if title == "" {
		return id, ""
	}
	return title, id
}

func field(rec cache.Record, key string) string {
	v, ok := rec[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return fmt.Sprint(v)
}

func init() {
	rootCmd.AddCommand(configureCmd, turnOffCmd, muteCmd, unmuteCmd,
		volumeCmd, channelCmd, channelsCmd, appsCmd, statusCmd)

	volumeCmd.AddCommand(volumeUpCmd, volumeDownCmd, volumeSetCmd)
	channelCmd.AddCommand(channelUpCmd, channelDownCmd, channelCurrentCmd)

	channelsCmd.Flags().BoolVar(&channelsSync, "sync", false, "Refresh the list from the TV first")
	appsCmd.Flags().BoolVar(&appsSync, "sync", false, "Refresh the list from the TV first")
}
