package greeting

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
)

func channels() []*discordgo.Channel {
	return []*discordgo.Channel{
		{ID: "voice", Type: discordgo.ChannelTypeGuildVoice, Position: 0},
		{ID: "rules", Type: discordgo.ChannelTypeGuildText, Position: 2},
		{ID: "general", Type: discordgo.ChannelTypeGuildText, Position: 1},
		{ID: "memes", Type: discordgo.ChannelTypeGuildText, Position: 3},
	}
}

func TestWelcomeChannelPrefersSystemChannel(t *testing.T) {
	never := func(string) bool { return false }
	assert.Equal(t, "sys", WelcomeChannel("sys", channels(), never))
}

func TestWelcomeChannelFirstSendableByPosition(t *testing.T) {
	allowed := map[string]bool{"rules": true, "memes": true, "voice": true}
	got := WelcomeChannel("", channels(), func(id string) bool { return allowed[id] })
	assert.Equal(t, "rules", got)
}

func TestWelcomeChannelNone(t *testing.T) {
	assert.Empty(t, WelcomeChannel("", channels(), func(string) bool { return false }))
	assert.Empty(t, WelcomeChannel("", nil, func(string) bool { return true }))
}
