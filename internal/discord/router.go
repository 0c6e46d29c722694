package discord

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/dstrants/tvremote/internal/cache"
	"github.com/dstrants/tvremote/internal/pairing"
	"github.com/dstrants/tvremote/internal/remote"
	"github.com/dstrants/tvremote/internal/session"
	"github.com/dstrants/tvremote/internal/transport"
)

// maxListed caps how many list entries go into one message.
const maxListed = 20

// CommandResponse is the result returned by command handlers.
type CommandResponse struct {
	OK      bool
	Message string
}

// CommandRouter dispatches slash commands to the remote.
type CommandRouter struct {
	remote Remote
}

// NewCommandRouter creates a router backed by r.
func NewCommandRouter(r Remote) *CommandRouter {
	return &CommandRouter{remote: r}
}

// Commands returns the slash command definitions for Discord registration.
func (r *CommandRouter) Commands() []SlashCommand {
	syncOpt := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionBoolean,
		Name:        "sync",
		Description: "Refresh the list from the TV first",
	}
	return []SlashCommand{
		{
			Name:        "configure",
			Description: "Pair with the TV at an address",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "ip", Description: "TV IPv4 address", Required: true},
			},
		},
		{
			Name:        "turnoff",
			Description: "Turn the TV off",
		},
		{
			Name:        "mute",
			Description: "Mute the TV",
		},
		{
			Name:        "unmute",
			Description: "Unmute the TV",
		},
		{
			Name:        "volume",
			Description: "Read or change the volume",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "action", Description: "What to do", Required: true,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "Get", Value: "get"},
						{Name: "Up", Value: "up"},
						{Name: "Down", Value: "down"},
						{Name: "Set", Value: "set"},
					},
				},
				{Type: discordgo.ApplicationCommandOptionInteger, Name: "level", Description: "Level 0-100 for set"},
			},
		},
		{
			Name:        "channel",
			Description: "Change or show the channel",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "action", Description: "What to do", Required: true,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "Up", Value: "up"},
						{Name: "Down", Value: "down"},
						{Name: "Current", Value: "current"},
					},
				},
			},
		},
		{
			Name:        "channels",
			Description: "List channels",
			Options:     []*discordgo.ApplicationCommandOption{syncOpt},
		},
		{
			Name:        "apps",
			Description: "List installed apps",
			Options:     []*discordgo.ApplicationCommandOption{syncOpt},
		},
		{
			Name:        "status",
			Description: "Show pairing and cache status",
		},
	}
}

// HandleConfigure pairs with the TV at ip.
func (r *CommandRouter) HandleConfigure(ctx context.Context, ip string) CommandResponse {
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil || !addr.Is4() {
		return CommandResponse{Message: fmt.Sprintf("❌ `%s` is not an IPv4 address", ip)}
	}
	if err := r.remote.Configure(ctx, addr); err != nil {
		return failure(err)
	}
	return CommandResponse{OK: true, Message: fmt.Sprintf("✅ Paired with TV at `%s`", addr)}
}

// HandleTurnOff powers the TV off after the on-screen notice.
func (r *CommandRouter) HandleTurnOff(ctx context.Context) CommandResponse {
	if _, err := r.remote.TurnOff(ctx); err != nil {
		return failure(err)
	}
	return CommandResponse{OK: true, Message: "📴 TV closed"}
}

func (r *CommandRouter) HandleMute(ctx context.Context) CommandResponse {
	if _, err := r.remote.Mute(ctx, true); err != nil {
		return failure(err)
	}
	return CommandResponse{OK: true, Message: "🔇 TV muted"}
}

func (r *CommandRouter) HandleUnmute(ctx context.Context) CommandResponse {
	if _, err := r.remote.Unmute(ctx); err != nil {
		return failure(err)
	}
	return CommandResponse{OK: true, Message: "🔊 TV unmuted"}
}

// HandleVolume runs a volume action. level is only used by "set".
func (r *CommandRouter) HandleVolume(ctx context.Context, action string, level int) CommandResponse {
	switch action {
	case "get", "":
		resp, err := r.remote.GetVolume(ctx)
		if err != nil {
			return failure(err)
		}
		return CommandResponse{OK: true, Message: formatVolume(resp)}
	case "up":
		if _, err := r.remote.VolumeUp(ctx); err != nil {
			return failure(err)
		}
		return CommandResponse{OK: true, Message: "🔊 Volume up"}
	case "down":
		if _, err := r.remote.VolumeDown(ctx); err != nil {
			return failure(err)
		}
		return CommandResponse{OK: true, Message: "🔉 Volume down"}
	case "set":
		if _, err := r.remote.SetVolume(ctx, level); err != nil {
			return failure(err)
		}
		return CommandResponse{OK: true, Message: fmt.Sprintf("🔊 Volume set to %d", level)}
	default:
		return CommandResponse{Message: fmt.Sprintf("❌ Unknown volume action `%s`", action)}
	}
}

// HandleChannel runs a channel action.
func (r *CommandRouter) HandleChannel(ctx context.Context, action string) CommandResponse {
	switch action {
	case "up":
		if _, err := r.remote.ChannelUp(ctx); err != nil {
			return failure(err)
		}
		return CommandResponse{OK: true, Message: "⏫ Channel up"}
	case "down":
		if _, err := r.remote.ChannelDown(ctx); err != nil {
			return failure(err)
		}
		return CommandResponse{OK: true, Message: "⏬ Channel down"}
	case "current", "":
		resp, err := r.remote.GetCurrentChannel(ctx)
		if err != nil {
			return failure(err)
		}
		return CommandResponse{OK: true, Message: "📺 Now on " + formatChannel(cache.Record(resp))}
	default:
		return CommandResponse{Message: fmt.Sprintf("❌ Unknown channel action `%s`", action)}
	}
}

// HandleChannels lists channels, from cache unless sync is set.
func (r *CommandRouter) HandleChannels(ctx context.Context, sync bool) CommandResponse {
	recs, err := r.remote.GetChannels(ctx, sync)
	if err != nil {
		return failure(err)
	}
	if len(recs) == 0 {
		return CommandResponse{OK: true, Message: "No channels cached. Run `/channels sync:true`."}
	}
	return CommandResponse{OK: true, Message: formatList("📺 Channels", recs, formatChannel)}
}

// HandleApps lists installed apps, from cache unless sync is set.
func (r *CommandRouter) HandleApps(ctx context.Context, sync bool) CommandResponse {
	recs, err := r.remote.GetApps(ctx, sync)
	if err != nil {
		return failure(err)
	}
	if len(recs) == 0 {
		return CommandResponse{OK: true, Message: "No apps cached. Run `/apps sync:true`."}
	}
	return CommandResponse{OK: true, Message: formatList("🧩 Apps", recs, formatApp)}
}

// HandleStatus shows pairing state and cache sizes.
func (r *CommandRouter) HandleStatus(ctx context.Context) CommandResponse {
	st, err := r.remote.Status(ctx)
	if err != nil {
		return failure(err)
	}
	if !st.Paired {
		return CommandResponse{OK: true, Message: "🔌 Not paired. Run `/configure ip:<address>`."}
	}
	return CommandResponse{OK: true, Message: fmt.Sprintf("📺 Paired with `%s`\n💾 Cached: %d channels, %d apps",
		st.IP, st.Channels, st.Apps)}
}

// failure turns an operation error into a user-facing message.
func failure(err error) CommandResponse {
	var msg string
	switch {
	case errors.Is(err, session.ErrPairingRequired):
		msg = "🔌 No TV configured. Run `/configure ip:<address>` first."
	case errors.Is(err, pairing.ErrConfigInvalid):
		msg = "⚠️ Stored pairing is invalid. Run `/configure` again."
	case errors.Is(err, transport.ErrPairingRejected):
		msg = "🚫 The TV rejected the pairing. Accept the prompt on screen and retry."
	case errors.Is(err, transport.ErrDeviceUnreachable):
		msg = "📡 TV unreachable. Is it on and on the network?"
	case errors.Is(err, transport.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		msg = "⏱️ The TV did not answer in time"
	case errors.Is(err, remote.ErrInvalidVolume):
		msg = "❌ Volume must be between 0 and 100"
	default:
		msg = fmt.Sprintf("❌ Error: %s", err.Error())
	}
	return CommandResponse{Message: msg}
}

func formatVolume(resp transport.Response) string {
	vol, muted := resp["volume"], resp["muted"]
	if vs, ok := resp["volumeStatus"].(map[string]any); ok {
		vol, muted = vs["volume"], vs["muteStatus"]
	}
	msg := fmt.Sprintf("🔊 Volume: %v", vol)
	if m, _ := muted.(bool); m {
		msg += " (muted)"
	}
	return msg
}

func formatChannel(rec cache.Record) string {
	num, _ := rec["channelNumber"].(string)
	name, _ := rec["channelName"].(string)
	switch {
	case num != "" && name != "":
		return fmt.Sprintf("%s %s", num, name)
	case name != "":
		return name
	case num != "":
		return num
	default:
		return "unknown channel"
	}
}

func formatApp(rec cache.Record) string {
	id, _ := rec["id"].(string)
	title, _ := rec["title"].(string)
	if title == "" {
		return id
	}
	return fmt.Sprintf("%s (`%s`)", title, id)
}

func formatList(title string, recs []cache.Record, format func(cache.Record) string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("**%s** (%d)\n", title, len(recs)))
	for i, rec := range recs {
		if i == maxListed {
			sb.WriteString(fmt.Sprintf("… and %d more\n", len(recs)-maxListed))
			break
		}
		sb.WriteString("• " + format(rec) + "\n")
	}
	return sb.String()
}
