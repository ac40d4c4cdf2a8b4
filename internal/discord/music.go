package discord

import (
	"context"

	"github.com/keshon/taint-fm/internal/bot"
	"github.com/keshon/taint-fm/internal/logging"
	"github.com/keshon/taint-fm/internal/music/player"
	"github.com/keshon/taint-fm/internal/music/voice"
)

// connector hands voice connections to a player
type connector struct {
	*voice.Connector
}

func (c connector) Join(ctx context.Context, channelID string) (player.VoiceConn, error) {
	conn, err := c.Connector.Join(ctx, channelID)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// GetOrCreatePlayer returns the player of a guild, starting one on first use
func (b *Bot) GetOrCreatePlayer(guildID string) bot.Player {
	b.mu.Lock()
	defer b.mu.Unlock()

	if p, ok := b.players[guildID]; ok {
		return p
	}

	log := logging.Component(b.base, "player").With().Str("guild", guildID).Logger()
	conn := connector{voice.NewConnector(b.dg, guildID, logging.Component(b.base, "voice"))}
	p := player.New(guildID, conn, b.resolver, b.decoder, b.janitor, player.Options{Volume: b.cfg.DefaultVolume}, log)
	b.players[guildID] = p
	return p
}

// FindUserVoiceState returns the voice channel userID is connected to
func (b *Bot) FindUserVoiceState(guildID, userID string) player.VoiceChannel {
	vs, err := b.dg.State.VoiceState(guildID, userID)
	if err != nil || vs.ChannelID == "" {
		return player.VoiceChannel{}
	}
	ch := player.VoiceChannel{ID: vs.ChannelID, Name: vs.ChannelID}
	if c, err := b.dg.State.Channel(vs.ChannelID); err == nil {
		ch.Name = c.Name
	}
	return ch
}

// names resolves guild and channel names for the command history
func (b *Bot) names(guildID, channelID string) (guild, channel string) {
	if b.dg == nil {
		return "", ""
	}
	if g, err := b.dg.State.Guild(guildID); err == nil {
		guild = g.Name
	}
	if c, err := b.dg.State.Channel(channelID); err == nil {
		channel = c.Name
	}
	return guild, channel
}
