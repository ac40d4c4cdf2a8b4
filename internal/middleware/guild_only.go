package middleware

import (
	"context"

	"github.com/keshon/taint-fm/internal/command"
	"github.com/keshon/taint-fm/pkg/cmd"
)

// WithGuildOnly drops commands sent outside a guild
func WithGuildOnly() cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			if mc, ok := inv.Data.(*command.MessageContext); ok && mc.GuildID() == "" {
				return nil
			}
			return c.Run(ctx, inv)
		})
	}
}
