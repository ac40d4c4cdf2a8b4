package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/keshon/taint-fm/internal/command"
	"github.com/keshon/taint-fm/internal/storage"
	"github.com/keshon/taint-fm/pkg/cmd"

	"github.com/rs/zerolog"
)

// HistoryStore receives one record per executed command
type HistoryStore interface {
	AppendCommandToHistory(guildID string, rec storage.CommandHistoryRecord) error
}

// Names looks up display names of a guild and one of its channels. Empty
// strings are fine when they are unknown.
type Names func(guildID, channelID string) (guild, channel string)

// WithCommandLogger logs every command and appends it to the guild history
func WithCommandLogger(store HistoryStore, names Names, log zerolog.Logger) cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			start := time.Now()
			err := c.Run(ctx, inv)

			mc, ok := inv.Data.(*command.MessageContext)
			if !ok {
				return err
			}
			param := strings.Join(inv.Args, " ")
			ev := log.Info()
			if err != nil {
				ev = log.Error().Err(err)
			}
			ev.Str("command", c.Name()).
				Str("param", param).
				Str("guild", mc.GuildID()).
				Str("user", mc.Username()).
				Dur("took", time.Since(start)).
				Msg("Command executed")

			if mc.GuildID() == "" || store == nil {
				return err
			}
			var guildName, channelName string
			if names != nil {
				guildName, channelName = names(mc.GuildID(), mc.ChannelID())
			}
			rec := storage.CommandHistoryRecord{
				ChannelID:   mc.ChannelID(),
				ChannelName: channelName,
				GuildName:   guildName,
				UserID:      mc.UserID(),
				Username:    mc.Username(),
				Command:     c.Name(),
				Param:       param,
				Datetime:    start,
			}
			if e := store.AppendCommandToHistory(mc.GuildID(), rec); e != nil {
				log.Warn().Err(e).Str("command", c.Name()).Msg("Failed to store command history")
			}
			return err
		})
	}
}
