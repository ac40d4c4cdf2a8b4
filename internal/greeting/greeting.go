// Package greeting picks where to say hello when the bot joins a guild.
package greeting

import (
	"cmp"
	"slices"

	"github.com/bwmarrin/discordgo"
)

const Message = "Hello everyone!"

// WelcomeChannel returns the guild's system channel when one is set. Otherwise
// it returns the first text channel, by position, that canSend accepts. The
// result is empty when nothing qualifies.
func WelcomeChannel(systemChannelID string, channels []*discordgo.Channel, canSend func(channelID string) bool) string {
	if systemChannelID != "" {
		return systemChannelID
	}

	text := make([]*discordgo.Channel, 0, len(channels))
	for _, ch := range channels {
		if ch != nil && ch.Type == discordgo.ChannelTypeGuildText {
			text = append(text, ch)
		}
	}
	slices.SortStableFunc(text, func(a, b *discordgo.Channel) int {
		return cmp.Compare(a.Position, b.Position)
	})

	for _, ch := range text {
		if canSend(ch.ID) {
			return ch.ID
		}
	}
	return ""
}
