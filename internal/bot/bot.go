// Package bot holds what commands need from the running bot.
package bot

import (
	"context"

	"github.com/keshon/taint-fm/internal/music/player"
)

// Player is the per-guild playback session as seen by commands
type Player interface {
	Join(ctx context.Context, ch player.VoiceChannel) string
	Play(ctx context.Context, ch player.VoiceChannel, locator string) string
	Skip(ctx context.Context) string
	QueueList(ctx context.Context) string
	Clear(ctx context.Context) string
	Leave(ctx context.Context) string
}

type BotVoice interface {
	GetOrCreatePlayer(guildID string) Player
	// FindUserVoiceState returns the voice channel the user sits in. The zero
	// value means the user is not connected to voice in that guild.
	FindUserVoiceState(guildID, userID string) player.VoiceChannel
}
