// Package command adapts chat messages to the pkg/cmd command core.
package command

import (
	"strings"
	"unicode"

	"github.com/keshon/taint-fm/internal/storage"

	"github.com/bwmarrin/discordgo"
)

// MessageContext is the Invocation payload of a prefix command
type MessageContext struct {
	Session *discordgo.Session
	Event   *discordgo.MessageCreate
	Storage *storage.Storage
	// Send posts a message to a text channel
	Send func(channelID, content string) error
}

func (c *MessageContext) GuildID() string   { return c.Event.GuildID }
func (c *MessageContext) ChannelID() string { return c.Event.ChannelID }

func (c *MessageContext) UserID() string {
	if c.Event.Author == nil {
		return ""
	}
	return c.Event.Author.ID
}

func (c *MessageContext) Username() string {
	if c.Event.Author == nil {
		return ""
	}
	return c.Event.Author.Username
}

// Reply posts content to the channel the command came from
func (c *MessageContext) Reply(content string) error {
	return c.Send(c.Event.ChannelID, content)
}

// Parse splits "!play some song" into the command name and its argument
// string. ok is false when content does not start with prefix or names no command.
func Parse(prefix, content string) (name, args string, ok bool) {
	rest, found := strings.CutPrefix(strings.TrimSpace(content), prefix)
	if !found || rest == "" {
		return "", "", false
	}
	switch i := strings.IndexFunc(rest, unicode.IsSpace); {
	case i == 0:
		return "", "", false
	case i > 0:
		name, args = rest[:i], rest[i:]
	default:
		name = rest
	}
	return strings.ToLower(name), strings.TrimSpace(args), true
}
