// Package music holds the voice playback commands.
package music

import (
	"context"
	"fmt"
	"strings"

	"github.com/keshon/taint-fm/internal/bot"
	"github.com/keshon/taint-fm/internal/command"
	"github.com/keshon/taint-fm/internal/music/player"
	"github.com/keshon/taint-fm/pkg/cmd"

	"github.com/rs/zerolog"
)

// Commands returns every music command bound to b
func Commands(b bot.BotVoice, log zerolog.Logger) []cmd.Command {
	base := musicCommand{bot: b, log: log}
	return []cmd.Command{
		&JoinCommand{base},
		&PlayCommand{base},
		&SkipCommand{base},
		&QueueCommand{base},
		&ClearCommand{base},
		&LeaveCommand{base},
	}
}

type musicCommand struct {
	bot bot.BotVoice
	log zerolog.Logger
}

// session resolves the guild player and a context that carries replies back
// to the channel the command came from
func (m musicCommand) session(ctx context.Context, inv *cmd.Invocation) (context.Context, *command.MessageContext, bot.Player, bool) {
	mc, ok := inv.Data.(*command.MessageContext)
	if !ok || mc.GuildID() == "" {
		return ctx, nil, nil, false
	}

	p := m.bot.GetOrCreatePlayer(mc.GuildID())
	ctx = player.WithNotifier(ctx, player.NotifierFunc(func(msg string) {
		if err := mc.Reply(msg); err != nil {
			m.log.Warn().Err(err).Str("guild", mc.GuildID()).Str("channel", mc.ChannelID()).Msg("Failed to send message")
		}
	}))
	return ctx, mc, p, true
}

func (m musicCommand) voiceChannel(mc *command.MessageContext) player.VoiceChannel {
	return m.bot.FindUserVoiceState(mc.GuildID(), mc.UserID())
}

type JoinCommand struct{ musicCommand }

func (c *JoinCommand) Name() string        { return "join" }
func (c *JoinCommand) Description() string { return "Joins your voice channel." }

func (c *JoinCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	ctx, mc, p, ok := c.session(ctx, inv)
	if !ok {
		return nil
	}
	c.log.Info().Str("guild", mc.GuildID()).Str("user", mc.Username()).Msg("Join requested")
	p.Join(ctx, c.voiceChannel(mc))
	return nil
}

type PlayCommand struct{ musicCommand }

func (c *PlayCommand) Name() string { return "play" }
func (c *PlayCommand) Description() string {
	return "Loads a playlist or single video (flat) and queues it for incremental playing."
}
func (c *PlayCommand) Usage() string { return "<url or search query>" }

func (c *PlayCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	ctx, mc, p, ok := c.session(ctx, inv)
	if !ok {
		return nil
	}
	locator := strings.TrimSpace(strings.Join(inv.Args, " "))
	if locator == "" {
		return mc.Reply(fmt.Sprintf("Usage: `%s %s`", c.Name(), c.Usage()))
	}
	c.log.Info().Str("guild", mc.GuildID()).Str("user", mc.Username()).Str("locator", locator).Msg("Play requested")
	p.Play(ctx, c.voiceChannel(mc), locator)
	return nil
}

type SkipCommand struct{ musicCommand }

func (c *SkipCommand) Name() string        { return "skip" }
func (c *SkipCommand) Description() string { return "Skips the current song." }

func (c *SkipCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	if ctx, _, p, ok := c.session(ctx, inv); ok {
		p.Skip(ctx)
	}
	return nil
}

type QueueCommand struct{ musicCommand }

func (c *QueueCommand) Name() string        { return "queue" }
func (c *QueueCommand) Description() string { return "Shows the current music queue." }

func (c *QueueCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	if ctx, _, p, ok := c.session(ctx, inv); ok {
		p.QueueList(ctx)
	}
	return nil
}

type ClearCommand struct{ musicCommand }

func (c *ClearCommand) Name() string        { return "clear" }
func (c *ClearCommand) Description() string { return "Clears the current music queue." }

func (c *ClearCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	if ctx, _, p, ok := c.session(ctx, inv); ok {
		p.Clear(ctx)
	}
	return nil
}

type LeaveCommand struct{ musicCommand }

func (c *LeaveCommand) Name() string        { return "leave" }
func (c *LeaveCommand) Description() string { return "Leaves the voice channel." }

func (c *LeaveCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	ctx, mc, p, ok := c.session(ctx, inv)
	if !ok {
		return nil
	}
	c.log.Info().Str("guild", mc.GuildID()).Str("user", mc.Username()).Msg("Leave requested")
	p.Leave(ctx)
	return nil
}
