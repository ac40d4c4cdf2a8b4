package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/keshon/taint-fm/internal/command"
	"github.com/keshon/taint-fm/internal/version"
	"github.com/keshon/taint-fm/pkg/cmd"
)

type HelpCommand struct {
	Registry *cmd.Registry
	Prefix   string
}

func (c *HelpCommand) Name() string        { return "help" }
func (c *HelpCommand) Description() string { return "Shows this message." }

func (c *HelpCommand) Run(_ context.Context, inv *cmd.Invocation) error {
	mc, ok := inv.Data.(*command.MessageContext)
	if !ok {
		return nil
	}
	return mc.Reply(c.text())
}

func (c *HelpCommand) text() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "**%s** %s\n", version.AppName, version.Version)
	for _, cm := range c.Registry.All() {
		usage := ""
		if u, ok := cmd.Root(cm).(cmd.Usage); ok {
			usage = " " + u.Usage()
		}
		fmt.Fprintf(&sb, "`%s%s%s` %s\n", c.Prefix, cm.Name(), usage, cm.Description())
	}
	return strings.TrimSuffix(sb.String(), "\n")
}
