package music

import (
	"context"
	"sync"
	"testing"

	"github.com/keshon/taint-fm/internal/bot"
	"github.com/keshon/taint-fm/internal/command"
	"github.com/keshon/taint-fm/internal/music/player"
	"github.com/keshon/taint-fm/pkg/cmd"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePlayer struct {
	mu       sync.Mutex
	calls    []string
	channels []player.VoiceChannel
}

func (p *fakePlayer) record(ctx context.Context, call string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, call)
	if n := player.NotifierFrom(ctx); n != nil {
		n.Notify("did " + call)
	}
	return call
}

func (p *fakePlayer) Join(ctx context.Context, ch player.VoiceChannel) string {
	p.channels = append(p.channels, ch)
	return p.record(ctx, "join")
}

func (p *fakePlayer) Play(ctx context.Context, ch player.VoiceChannel, locator string) string {
	p.channels = append(p.channels, ch)
	return p.record(ctx, "play "+locator)
}

func (p *fakePlayer) Skip(ctx context.Context) string      { return p.record(ctx, "skip") }
func (p *fakePlayer) QueueList(ctx context.Context) string { return p.record(ctx, "queue") }
func (p *fakePlayer) Clear(ctx context.Context) string     { return p.record(ctx, "clear") }
func (p *fakePlayer) Leave(ctx context.Context) string     { return p.record(ctx, "leave") }

type fakeBot struct {
	players map[string]*fakePlayer
	voice   map[string]player.VoiceChannel
}

func (b *fakeBot) GetOrCreatePlayer(guildID string) bot.Player {
	p, ok := b.players[guildID]
	if !ok {
		p = &fakePlayer{}
		b.players[guildID] = p
	}
	return p
}

func (b *fakeBot) FindUserVoiceState(_, userID string) player.VoiceChannel {
	return b.voice[userID]
}

type sent struct {
	channel, content string
}

func invocation(guildID, channelID, userID string, out *[]sent, args ...string) *cmd.Invocation {
	return &cmd.Invocation{
		Args: args,
		Data: &command.MessageContext{
			Event: &discordgo.MessageCreate{Message: &discordgo.Message{
				GuildID:   guildID,
				ChannelID: channelID,
				Author:    &discordgo.User{ID: userID, Username: userID},
			}},
			Send: func(channelID, content string) error {
				*out = append(*out, sent{channelID, content})
				return nil
			},
		},
	}
}

func setup() (*fakeBot, map[string]cmd.Command) {
	b := &fakeBot{
		players: map[string]*fakePlayer{},
		voice:   map[string]player.VoiceChannel{"u1": {ID: "v1", Name: "Lounge"}},
	}
	byName := map[string]cmd.Command{}
	for _, c := range Commands(b, zerolog.Nop()) {
		byName[c.Name()] = c
	}
	return b, byName
}

func TestCommandsRouteToGuildPlayer(t *testing.T) {
	b, cmds := setup()
	var out []sent
	ctx := context.Background()

	require.NoError(t, cmds["join"].Run(ctx, invocation("g1", "t1", "u1", &out)))
	require.NoError(t, cmds["play"].Run(ctx, invocation("g1", "t2", "u1", &out, "lofi", "beats")))
	for _, name := range []string{"skip", "queue", "clear"} {
		require.NoError(t, cmds[name].Run(ctx, invocation("g1", "t2", "u1", &out)))
	}
	require.NoError(t, cmds["leave"].Run(ctx, invocation("g1", "t3", "u1", &out)))

	p := b.players["g1"]
	require.NotNil(t, p)
	assert.Equal(t, []string{"join", "play lofi beats", "skip", "queue", "clear", "leave"}, p.calls)
	assert.Equal(t, []player.VoiceChannel{{ID: "v1", Name: "Lounge"}, {ID: "v1", Name: "Lounge"}}, p.channels)

	// each reply goes to the channel of its own command
	require.Len(t, out, 6)
	assert.Equal(t, sent{"t1", "did join"}, out[0])
	assert.Equal(t, sent{"t2", "did play lofi beats"}, out[1])
	assert.Equal(t, sent{"t2", "did queue"}, out[3])
	assert.Equal(t, sent{"t3", "did leave"}, out[5])
}

func TestJoinWithoutVoicePassesEmptyChannel(t *testing.T) {
	b, cmds := setup()
	var out []sent

	require.NoError(t, cmds["join"].Run(context.Background(), invocation("g1", "t1", "u2", &out)))
	assert.Equal(t, []player.VoiceChannel{{}}, b.players["g1"].channels)
}

func TestPlayWithoutArgumentShowsUsage(t *testing.T) {
	b, cmds := setup()
	var out []sent

	require.NoError(t, cmds["play"].Run(context.Background(), invocation("g1", "t1", "u1", &out)))
	assert.Empty(t, b.players["g1"].calls)
	require.Len(t, out, 1)
	assert.Contains(t, out[0].content, "Usage:")
}

func TestCommandsIgnoreDirectMessages(t *testing.T) {
	b, cmds := setup()
	var out []sent

	require.NoError(t, cmds["skip"].Run(context.Background(), invocation("", "dm", "u1", &out)))
	require.NoError(t, cmds["skip"].Run(context.Background(), &cmd.Invocation{Data: "not a message"}))
	assert.Empty(t, b.players)
	assert.Empty(t, out)
}
