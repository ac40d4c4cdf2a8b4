package resolver

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Settings selects and tunes the resolver stack
type Settings struct {
	Backends   []string
	ScratchDir string
	Mode       Mode
	Proxy      string
	Retry      RetryOptions
}

// Build returns the named backends chained in order, wrapped with retries
func Build(s Settings, log zerolog.Logger) (*Retrying, *Chain, error) {
	backends := make([]Backend, 0, len(s.Backends))
	for _, name := range s.Backends {
		switch name {
		case "ytdlp":
			backends = append(backends, NewYTDLP(s.ScratchDir, s.Mode, s.Proxy, log))
		case "youtube":
			backends = append(backends, NewYouTube(s.Proxy, log))
		default:
			return nil, nil, fmt.Errorf("unknown resolver backend %q", name)
		}
	}
	chain, err := NewChain(log, backends...)
	if err != nil {
		return nil, nil, err
	}
	return NewRetrying(chain, s.Retry, log), chain, nil
}
