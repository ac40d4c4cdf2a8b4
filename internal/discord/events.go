package discord

import (
	"strings"
	"sync"

	"github.com/keshon/taint-fm/internal/command"
	"github.com/keshon/taint-fm/internal/greeting"
	"github.com/keshon/taint-fm/pkg/cmd"

	"github.com/bwmarrin/discordgo"
)

// guildSet remembers the guilds the bot was already in when it connected
type guildSet struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

func (g *guildSet) reset(ids []string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ids = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		g.ids[id] = struct{}{}
	}
}

// add reports whether id is new to the set
func (g *guildSet) add(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.ids == nil {
		g.ids = make(map[string]struct{})
	}
	if _, ok := g.ids[id]; ok {
		return false
	}
	g.ids[id] = struct{}{}
	return true
}

// onReady is called when the bot is ready
func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	ids := make([]string, 0, len(r.Guilds))
	for _, g := range r.Guilds {
		ids = append(ids, g.ID)
	}
	b.ready.reset(ids)
	b.log.Info().Str("user", r.User.Username).Int("guilds", len(ids)).Msg("Logged in and ready to serve")
}

// onGuildCreate greets guilds that were not known at Ready time
func (b *Bot) onGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	if !b.ready.add(g.ID) {
		return
	}
	b.log.Info().Str("guild", g.ID).Str("name", g.Name).Msg("Joined new guild")

	canSend := func(channelID string) bool {
		perms, err := s.State.UserChannelPermissions(s.State.User.ID, channelID)
		return err == nil && perms&discordgo.PermissionSendMessages != 0
	}
	channelID := greeting.WelcomeChannel(g.SystemChannelID, g.Channels, canSend)
	if channelID == "" {
		b.log.Warn().Str("guild", g.Name).Msg("Could not find a channel to send a message in")
		return
	}
	if err := b.send(channelID, greeting.Message); err != nil {
		b.log.Warn().Err(err).Str("guild", g.ID).Str("channel", channelID).Msg("Greeting failed")
	}
}

// onMessageCreate dispatches prefix commands
func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || (s.State.User != nil && m.Author.ID == s.State.User.ID) {
		return
	}
	name, args, ok := command.Parse(b.cfg.CommandPrefix, m.Content)
	if !ok {
		return
	}
	c, ok := b.registry.Get(name)
	if !ok {
		return
	}

	inv := &cmd.Invocation{Args: strings.Fields(args), Data: b.messageContext(m)}
	if err := c.Run(b.ctx, inv); err != nil {
		b.log.Error().Err(err).Str("command", name).Msg("Command failed")
	}
}
