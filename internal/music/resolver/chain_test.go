package resolver

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/keshon/taint-fm/internal/music/queue"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubBackend struct {
	name     string
	flat     []Entry
	flatErr  error
	play     Playable
	playErrs []error // consumed one per call, last one repeats
	calls    atomic.Int32
}

func (s *stubBackend) Name() string { return s.name }

func (s *stubBackend) ResolveFlat(ctx context.Context, _ string) ([]Entry, error) {
	s.calls.Add(1)
	return s.flat, s.flatErr
}

func (s *stubBackend) ResolveForPlayback(ctx context.Context, _ queue.Track) (Playable, error) {
	n := int(s.calls.Add(1)) - 1
	if len(s.playErrs) == 0 {
		return s.play, nil
	}
	err := s.playErrs[min(n, len(s.playErrs)-1)]
	if err != nil {
		return Playable{}, err
	}
	return s.play, nil
}

func TestChainFallsBack(t *testing.T) {
	first := &stubBackend{name: "first", flatErr: ErrUnsupported, playErrs: []error{errors.New("blocked")}}
	second := &stubBackend{name: "second", flat: []Entry{{"id": "a"}}, play: Playable{Locator: "https://cdn/a"}}

	c, err := NewChain(zerolog.Nop(), first, second)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, c.Names())

	entries, err := c.ResolveFlat(context.Background(), "q")
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	p, err := c.ResolveForPlayback(context.Background(), queue.Track{Locator: "q"})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/a", p.Locator)
}

func TestChainAllFail(t *testing.T) {
	a := &stubBackend{name: "a", flatErr: errors.New("a down"), playErrs: []error{ErrNoStream}}
	b := &stubBackend{name: "b", flatErr: errors.New("b down"), playErrs: []error{errors.New("b down")}}
	c, err := NewChain(zerolog.Nop(), a, b)
	require.NoError(t, err)

	_, err = c.ResolveFlat(context.Background(), "q")
	var re *ResolutionError
	require.ErrorAs(t, err, &re)
	assert.Contains(t, err.Error(), "a down")
	assert.Contains(t, err.Error(), "b down")

	_, err = c.ResolveForPlayback(context.Background(), queue.Track{Locator: "q"})
	assert.ErrorIs(t, err, ErrNoStream)
}

func TestChainEmptyResult(t *testing.T) {
	a := &stubBackend{name: "a"}
	c, err := NewChain(zerolog.Nop(), a)
	require.NoError(t, err)

	entries, err := c.ResolveFlat(context.Background(), "q")
	assert.NoError(t, err)
	assert.Empty(t, entries)
}

func TestNewChainRequiresBackend(t *testing.T) {
	_, err := NewChain(zerolog.Nop())
	assert.Error(t, err)
}

func TestRetryingRetriesTransientFailures(t *testing.T) {
	b := &stubBackend{name: "b", playErrs: []error{errors.New("timeout"), nil}, play: Playable{Locator: "ok"}}
	r := NewRetrying(b, RetryOptions{Attempts: 3, Rate: 100, Backoff: time.Millisecond}, zerolog.Nop())

	p, err := r.ResolveForPlayback(context.Background(), queue.Track{Locator: "x"})
	require.NoError(t, err)
	assert.Equal(t, "ok", p.Locator)
	assert.EqualValues(t, 2, b.calls.Load())
}

func TestRetryingDoesNotRetryMissingStream(t *testing.T) {
	b := &stubBackend{name: "b", playErrs: []error{&ResolutionError{Locator: "x", Err: ErrNoStream}}}
	r := NewRetrying(b, RetryOptions{Attempts: 3, Rate: 100, Backoff: time.Millisecond}, zerolog.Nop())

	_, err := r.ResolveForPlayback(context.Background(), queue.Track{Locator: "x"})
	assert.ErrorIs(t, err, ErrNoStream)
	assert.EqualValues(t, 1, b.calls.Load())
}

func TestRetryingRetriesChainWhenOneBackendIsTransient(t *testing.T) {
	ytdlp := &stubBackend{name: "ytdlp", playErrs: []error{errors.New("HTTP Error 503"), nil}, play: Playable{Locator: "https://cdn/a"}}
	youtube := &stubBackend{name: "youtube", playErrs: []error{ErrUnsupported}}
	chain, err := NewChain(zerolog.Nop(), ytdlp, youtube)
	require.NoError(t, err)
	r := NewRetrying(chain, RetryOptions{Attempts: 3, Rate: 100, Backoff: time.Millisecond}, zerolog.Nop())

	p, err := r.ResolveForPlayback(context.Background(), queue.Track{Locator: "https://soundcloud.com/a"})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/a", p.Locator)
	assert.EqualValues(t, 2, ytdlp.calls.Load())
	assert.EqualValues(t, 1, youtube.calls.Load())
}

func TestRetryingStopsWhenEveryBackendFailsPermanently(t *testing.T) {
	a := &stubBackend{name: "a", playErrs: []error{ErrNoStream}}
	b := &stubBackend{name: "b", playErrs: []error{ErrUnsupported}}
	chain, err := NewChain(zerolog.Nop(), a, b)
	require.NoError(t, err)
	r := NewRetrying(chain, RetryOptions{Attempts: 3, Rate: 100, Backoff: time.Millisecond}, zerolog.Nop())

	_, err = r.ResolveForPlayback(context.Background(), queue.Track{Locator: "x"})
	assert.ErrorIs(t, err, ErrNoStream)
	assert.EqualValues(t, 1, a.calls.Load())
	assert.EqualValues(t, 1, b.calls.Load())
}

func TestRetryingGivesUp(t *testing.T) {
	b := &stubBackend{name: "b", flatErr: errors.New("503")}
	r := NewRetrying(b, RetryOptions{Attempts: 2, Rate: 100, Backoff: time.Millisecond}, zerolog.Nop())

	_, err := r.ResolveFlat(context.Background(), "x")
	var re *ResolutionError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "x", re.Locator)
	assert.EqualValues(t, 2, b.calls.Load())
}

func TestRetryingAppliesTimeout(t *testing.T) {
	slow := &blockingBackend{}
	r := NewRetrying(slow, RetryOptions{Attempts: 1, FlatTimeout: 10 * time.Millisecond, Rate: 100}, zerolog.Nop())

	_, err := r.ResolveFlat(context.Background(), "x")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

type blockingBackend struct{}

func (blockingBackend) ResolveFlat(ctx context.Context, _ string) ([]Entry, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (blockingBackend) ResolveForPlayback(ctx context.Context, _ queue.Track) (Playable, error) {
	<-ctx.Done()
	return Playable{}, ctx.Err()
}
