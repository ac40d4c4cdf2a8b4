package resolver

import (
	"context"
	"errors"
	"fmt"

	"github.com/keshon/taint-fm/internal/music/queue"

	"github.com/rs/zerolog"
)

// Chain tries backends in order until one succeeds.
type Chain struct {
	backends []Backend
	log      zerolog.Logger
}

// NewChain creates a fallback chain. At least one backend is required.
func NewChain(log zerolog.Logger, backends ...Backend) (*Chain, error) {
	if len(backends) == 0 {
		return nil, errors.New("resolver chain needs at least one backend")
	}
	return &Chain{backends: backends, log: log}, nil
}

// Names returns the backend names in order
func (c *Chain) Names() []string {
	names := make([]string, len(c.backends))
	for i, b := range c.backends {
		names[i] = b.Name()
	}
	return names
}

// ResolveFlat returns the first non-empty result. An empty result from every
// backend that did not fail is returned as is.
func (c *Chain) ResolveFlat(ctx context.Context, locator string) ([]Entry, error) {
	var errs []error
	for _, b := range c.backends {
		entries, err := b.ResolveFlat(ctx, locator)
		if err == nil && len(entries) > 0 {
			return entries, nil
		}
		if ctx.Err() != nil {
			return nil, resolutionError(locator, ctx.Err())
		}
		if err != nil {
			if !errors.Is(err, ErrUnsupported) {
				c.log.Debug().Err(err).Str("backend", b.Name()).Msg("Flat resolution failed, trying next backend")
			}
			errs = append(errs, fmt.Errorf("%s: %w", b.Name(), err))
		}
	}
	if len(errs) == len(c.backends) {
		return nil, &ResolutionError{Locator: locator, Err: errors.Join(errs...)}
	}
	return nil, nil
}

// ResolveForPlayback returns the first backend's successful result
func (c *Chain) ResolveForPlayback(ctx context.Context, track queue.Track) (Playable, error) {
	var errs []error
	for _, b := range c.backends {
		p, err := b.ResolveForPlayback(ctx, track)
		if err == nil {
			return p, nil
		}
		if ctx.Err() != nil {
			return Playable{}, resolutionError(track.Locator, ctx.Err())
		}
		c.log.Debug().Err(err).Str("backend", b.Name()).Str("title", track.Title).Msg("Playback resolution failed, trying next backend")
		errs = append(errs, fmt.Errorf("%s: %w", b.Name(), err))
	}
	return Playable{}, &ResolutionError{Locator: track.Locator, Err: errors.Join(errs...)}
}
