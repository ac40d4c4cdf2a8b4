// Package discord runs the bot on a discordgo session.
package discord

import (
	"context"
	"fmt"
	"sync"

	"github.com/keshon/taint-fm/internal/command"
	"github.com/keshon/taint-fm/internal/command/core"
	"github.com/keshon/taint-fm/internal/command/music"
	"github.com/keshon/taint-fm/internal/config"
	"github.com/keshon/taint-fm/internal/logging"
	"github.com/keshon/taint-fm/internal/middleware"
	"github.com/keshon/taint-fm/internal/music/audio"
	"github.com/keshon/taint-fm/internal/music/janitor"
	"github.com/keshon/taint-fm/internal/music/player"
	"github.com/keshon/taint-fm/internal/music/resolver"
	"github.com/keshon/taint-fm/internal/storage"
	"github.com/keshon/taint-fm/pkg/cmd"
	"github.com/keshon/taint-fm/pkg/util"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

const intents = discordgo.IntentGuilds |
	discordgo.IntentGuildMessages |
	discordgo.IntentGuildVoiceStates |
	discordgo.IntentMessageContent

// Bot is a Discord bot
type Bot struct {
	dg       *discordgo.Session
	cfg      *config.Config
	storage  *storage.Storage
	registry *cmd.Registry
	base     zerolog.Logger
	log      zerolog.Logger

	resolver resolver.Resolver
	decoder  audio.Decoder
	janitor  *janitor.Janitor

	ctx     context.Context
	mu      sync.Mutex
	players map[string]*player.Player
	ready   guildSet
}

// New prepares the bot. Run connects it.
func New(cfg *config.Config, store *storage.Storage, log zerolog.Logger) (*Bot, error) {
	res, _, err := resolver.Build(resolver.Settings{
		Backends:   cfg.Resolvers,
		ScratchDir: cfg.ScratchDir,
		Mode:       cfg.Mode(),
		Proxy:      cfg.Proxy,
		Retry: resolver.RetryOptions{
			FlatTimeout:     cfg.ResolveTimeout,
			PlaybackTimeout: cfg.DownloadTimeout,
			Attempts:        cfg.ResolveAttempts,
			Rate:            cfg.ResolveRate,
		},
	}, logging.Component(log, "resolver"))
	if err != nil {
		return nil, fmt.Errorf("build resolver: %w", err)
	}

	b := &Bot{
		cfg:      cfg,
		storage:  store,
		registry: cmd.NewRegistry(),
		base:     log,
		log:      logging.Component(log, "discord"),
		resolver: res,
		decoder:  audio.NewFFmpeg(cfg.FFmpegPath, logging.Component(log, "ffmpeg")),
		janitor:  janitor.New(logging.Component(log, "janitor")),
		ctx:      context.Background(),
		players:  make(map[string]*player.Player),
	}

	var history middleware.HistoryStore
	if store != nil {
		history = store
	}
	mws := []cmd.Middleware{
		middleware.WithGuildOnly(),
		middleware.WithCommandLogger(history, b.names, logging.Component(log, "command")),
	}
	cmds := append(music.Commands(b, logging.Component(log, "command")),
		&core.HelpCommand{Registry: b.registry, Prefix: cfg.CommandPrefix})
	if err := b.registry.Register(mws, cmds...); err != nil {
		return nil, err
	}
	return b, nil
}

// Run connects to Discord and blocks until ctx is done
func (b *Bot) Run(ctx context.Context) error {
	if n, err := b.janitor.SweepStale(b.cfg.ScratchDir); err != nil {
		b.log.Warn().Err(err).Str("dir", b.cfg.ScratchDir).Msg("Scratch sweep failed")
	} else if n > 0 {
		b.log.Info().Int("removed", n).Msg("Removed stale scratch files")
	}

	dg, err := discordgo.New("Bot " + b.cfg.DiscordToken)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	dg.Identify.Intents = intents
	dg.AddHandler(b.onReady)
	dg.AddHandler(b.onGuildCreate)
	dg.AddHandler(b.onMessageCreate)

	b.dg = dg
	b.ctx = ctx

	if err := dg.Open(); err != nil {
		return fmt.Errorf("open Discord session: %w", err)
	}

	<-ctx.Done()
	b.log.Info().Msg("Shutdown signal received, cleaning up")
	b.shutdown()
	if err := dg.Close(); err != nil {
		b.log.Warn().Err(err).Msg("Closing session failed")
	}
	return nil
}

// shutdown stops every player and deletes what they left behind
func (b *Bot) shutdown() {
	b.mu.Lock()
	players := make([]*player.Player, 0, len(b.players))
	for _, p := range b.players {
		players = append(players, p)
	}
	clear(b.players)
	b.mu.Unlock()

	_ = util.Parallel(context.Background(), players, 8, func(_ context.Context, p *player.Player) error {
		p.Close()
		return nil
	})

	if n := b.janitor.ReleaseAll(); n > 0 {
		b.log.Info().Int("released", n).Msg("Released playback files")
	}
}

// send posts a plain message to a text channel
func (b *Bot) send(channelID, content string) error {
	_, err := b.dg.ChannelMessageSend(channelID, content)
	return err
}

func (b *Bot) messageContext(m *discordgo.MessageCreate) *command.MessageContext {
	return &command.MessageContext{
		Session: b.dg,
		Event:   m,
		Storage: b.storage,
		Send:    b.send,
	}
}
