// Package cmd is the transport-agnostic command core. A command has a name, a
// description and a Run method; adapters (chat messages, CLI) parse their own
// input into an Invocation and look commands up in a Registry.
package cmd

import "context"

// Invocation is what an adapter hands to a command. Data carries the
// adapter-specific context, e.g. the chat message that triggered the command.
type Invocation struct {
	Args []string
	Data any
}

type Command interface {
	Name() string
	Description() string
	Run(ctx context.Context, inv *Invocation) error
}

// Usage is implemented by commands that take arguments
type Usage interface {
	Usage() string
}

// Middleware wraps a command; the result is still a Command.
type Middleware func(Command) Command

// Apply wraps c with mws. The first middleware ends up outermost.
func Apply(c Command, mws ...Middleware) Command {
	for i := len(mws) - 1; i >= 0; i-- {
		c = mws[i](c)
	}
	return c
}

type wrapped struct {
	inner Command
	run   func(ctx context.Context, inv *Invocation) error
}

func (w *wrapped) Name() string        { return w.inner.Name() }
func (w *wrapped) Description() string { return w.inner.Description() }
func (w *wrapped) Unwrap() Command     { return w.inner }

func (w *wrapped) Run(ctx context.Context, inv *Invocation) error {
	return w.run(ctx, inv)
}

// Wrap returns a command that keeps c's identity but runs run instead.
// Middlewares use it; Root gets back to c.
func Wrap(c Command, run func(ctx context.Context, inv *Invocation) error) Command {
	return &wrapped{inner: c, run: run}
}

// Root strips every Wrap layer
func Root(c Command) Command {
	for {
		w, ok := c.(interface{ Unwrap() Command })
		if !ok {
			return c
		}
		c = w.Unwrap()
	}
}
