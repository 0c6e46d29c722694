package discord

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
)

// interactionTimeout bounds one slash command. It covers an on-TV pairing
// prompt plus the shutdown notice wait.
const interactionTimeout = 90 * time.Second

// BotConfig holds the configuration for the Discord bot.
type BotConfig struct {
	Token   string
	GuildID string
}

// Bot wraps a discordgo session with command routing.
type Bot struct {
	config   BotConfig
	session  *discordgo.Session
	router   *CommandRouter
	commands []SlashCommand
	logger   *slog.Logger
}

// NewBot validates config and creates a new Bot.
func NewBot(config BotConfig, logger *slog.Logger) (*Bot, error) {
	if config.Token == "" {
		return nil, fmt.Errorf("discord bot token is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Bot{config: config, logger: logger.With("component", "discord")}, nil
}

// SetRouter sets the command router and the commands it serves.
func (b *Bot) SetRouter(router *CommandRouter) {
	b.router = router
	b.commands = router.Commands()
}

// Start connects to Discord, registers slash commands, and installs the
// interaction handler.
func (b *Bot) Start(ctx context.Context) error {
	session, err := discordgo.New("Bot " + b.config.Token)
	if err != nil {
		return fmt.Errorf("discord session: %w", err)
	}
	b.session = session

	b.session.Identify.Intents = discordgo.IntentsGuilds
	b.session.AddHandler(b.handleInteraction)

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("discord open: %w", err)
	}

	b.logger.Info("connected", "user", b.session.State.User.Username)

	for _, cmd := range toApplicationCommands(b.commands) {
		if _, err := b.session.ApplicationCommandCreate(b.session.State.User.ID, b.config.GuildID, cmd); err != nil {
			b.logger.Warn("failed to register command", "command", cmd.Name, "error", err)
		}
	}
	return nil
}

// Stop closes the Discord session.
func (b *Bot) Stop() error {
	if b.session != nil {
		return b.session.Close()
	}
	return nil
}

func (b *Bot) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand || b.router == nil {
		return
	}

	// Defer immediately to avoid Discord's 3s interaction timeout.
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	}); err != nil {
		b.logger.Warn("failed to defer interaction", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), interactionTimeout)
	defer cancel()

	resp := b.dispatch(ctx, i.ApplicationCommandData())

	if _, err := s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Content: resp.Message,
	}); err != nil {
		b.logger.Warn("failed to send follow-up", "error", err)
	}
}

// dispatch routes one command to its handler.
func (b *Bot) dispatch(ctx context.Context, data discordgo.ApplicationCommandInteractionData) CommandResponse {
	opts := optionMap(data.Options)

	strOpt := func(name string) string {
		if opt, ok := opts[name]; ok {
			return opt.StringValue()
		}
		return ""
	}
	intOpt := func(name string, def int) int {
		if opt, ok := opts[name]; ok {
			return int(opt.IntValue())
		}
		return def
	}
	boolOpt := func(name string) bool {
		if opt, ok := opts[name]; ok {
			return opt.BoolValue()
		}
		return false
	}

	b.logger.Info("slash command", "command", data.Name)

	switch data.Name {
	case "configure":
		return b.router.HandleConfigure(ctx, strOpt("ip"))
	case "turnoff":
		return b.router.HandleTurnOff(ctx)
	case "mute":
		return b.router.HandleMute(ctx)
	case "unmute":
		return b.router.HandleUnmute(ctx)
	case "volume":
		return b.router.HandleVolume(ctx, strOpt("action"), intOpt("level", -1))
	case "channel":
		return b.router.HandleChannel(ctx, strOpt("action"))
	case "channels":
		return b.router.HandleChannels(ctx, boolOpt("sync"))
	case "apps":
		return b.router.HandleApps(ctx, boolOpt("sync"))
	case "status":
		return b.router.HandleStatus(ctx)
	default:
		return CommandResponse{Message: fmt.Sprintf("Unknown command: %s", data.Name)}
	}
}

func optionMap(opts []*discordgo.ApplicationCommandInteractionDataOption) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	m := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(opts))
	for _, opt := range opts {
		m[opt.Name] = opt
	}
	return m
}

// SlashCommand defines a Discord slash command with options.
type SlashCommand struct {
	Name        string
	Description string
	Options     []*discordgo.ApplicationCommandOption
}

// toApplicationCommands converts SlashCommands to discordgo format.
func toApplicationCommands(cmds []SlashCommand) []*discordgo.ApplicationCommand {
	out := make([]*discordgo.ApplicationCommand, len(cmds))
	for i, cmd := range cmds {
		out[i] = &discordgo.ApplicationCommand{
			Name:        cmd.Name,
			Description: cmd.Description,
			Options:     cmd.Options,
		}
	}
	return out
}
