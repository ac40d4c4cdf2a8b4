package resolver

import (
	"context"
	"errors"
	"time"

	"github.com/keshon/taint-fm/internal/music/queue"
	"github.com/keshon/taint-fm/pkg/retrylimit"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// RetryOptions bounds every call made through Retrying.
type RetryOptions struct {
	FlatTimeout     time.Duration
	PlaybackTimeout time.Duration
	Attempts        int
	// Rate is the initial number of backend calls per second
	Rate float64
	// Backoff is the delay before the first retry
	Backoff time.Duration
}

// Retrying adds timeouts, retries and pacing to a Resolver.
type Retrying struct {
	next    Resolver
	opts    RetryOptions
	limiter *retrylimit.AdaptiveLimiter
	log     zerolog.Logger
}

// NewRetrying wraps next
func NewRetrying(next Resolver, opts RetryOptions, log zerolog.Logger) *Retrying {
	if opts.Backoff <= 0 {
		opts.Backoff = time.Second
	}
	r := rate.Limit(opts.Rate)
	if r <= 0 {
		r = 2
	}
	return &Retrying{
		next:    next,
		opts:    opts,
		limiter: retrylimit.NewAdaptiveLimiter(r, r/4, r*2, r/4, 0.5),
		log:     log,
	}
}

func (r *Retrying) config(timeout time.Duration, locator string) retrylimit.Config {
	return retrylimit.Config{
		MaxAttempts:    r.opts.Attempts,
		AttemptTimeout: timeout,
		InitialDelay:   r.opts.Backoff,
		MaxDelay:       8 * r.opts.Backoff,
		Multiplier:     2,
		Jitter:         true,
		OnRetry: func(attempt int, err error) {
			r.log.Warn().Err(err).Int("attempt", attempt).Str("locator", locator).Msg("Resolution failed, retrying")
		},
	}
}

// classify marks errors that will not go away on retry
func classify(err error) error {
	if err != nil && permanent(err) {
		return retrylimit.Fatal(err)
	}
	return err
}

// permanent reports whether err cannot improve on retry. A joined error from
// a chain is permanent only when every backend failed permanently.
func permanent(err error) bool {
	if errors.Is(err, context.Canceled) {
		return true
	}
	switch u := err.(type) {
	case interface{ Unwrap() []error }:
		errs := u.Unwrap()
		for _, e := range errs {
			if !permanent(e) {
				return false
			}
		}
		return len(errs) > 0
	case interface{ Unwrap() error }:
		return permanent(u.Unwrap())
	}
	return err == ErrNoStream || err == ErrNoFile || err == ErrUnsupported
}

func (r *Retrying) ResolveFlat(ctx context.Context, locator string) ([]Entry, error) {
	var entries []Entry
	err := retrylimit.Do(ctx, r.limiter, r.config(r.opts.FlatTimeout, locator), func(ctx context.Context) error {
		var err error
		entries, err = r.next.ResolveFlat(ctx, locator)
		return classify(err)
	})
	if err != nil {
		return nil, resolutionError(locator, err)
	}
	return entries, nil
}

func (r *Retrying) ResolveForPlayback(ctx context.Context, track queue.Track) (Playable, error) {
	var p Playable
	err := retrylimit.Do(ctx, r.limiter, r.config(r.opts.PlaybackTimeout, track.Locator), func(ctx context.Context) error {
		var err error
		p, err = r.next.ResolveForPlayback(ctx, track)
		return classify(err)
	})
	if err != nil {
		return Playable{}, resolutionError(track.Locator, err)
	}
	return p, nil
}
