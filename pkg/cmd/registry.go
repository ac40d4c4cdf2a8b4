package cmd

import (
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Registry stores commands by lower-cased name. Dispatch is left to adapters.
type Registry struct {
	mu       sync.RWMutex
	commands map[string]Command
}

func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]Command)}
}

// Register adds commands, wrapping each with mws. Names must be unique.
func (r *Registry) Register(mws []Middleware, cmds ...Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range cmds {
		name := strings.ToLower(c.Name())
		if name == "" {
			return fmt.Errorf("command with empty name")
		}
		if _, dup := r.commands[name]; dup {
			return fmt.Errorf("command %q registered twice", name)
		}
		r.commands[name] = Apply(c, mws...)
	}
	return nil
}

func (r *Registry) Get(name string) (Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.commands[strings.ToLower(name)]
	return c, ok
}

// All returns every command sorted by name
func (r *Registry) All() []Command {
	r.mu.RLock()
	list := make([]Command, 0, len(r.commands))
	for _, c := range r.commands {
		list = append(list, c)
	}
	r.mu.RUnlock()

	slices.SortFunc(list, func(a, b Command) int {
		return strings.Compare(a.Name(), b.Name())
	})
	return list
}
