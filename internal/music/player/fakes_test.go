package player

import (
	"bytes"
	"context"
	"errors"
	"io"
	"slices"
	"sync"

	"github.com/keshon/taint-fm/internal/music/audio"
	"github.com/keshon/taint-fm/internal/music/queue"
	"github.com/keshon/taint-fm/internal/music/resolver"
)

type fakeConn struct {
	mu           sync.Mutex
	channelID    string
	src          *audio.Source
	onComplete   func(error)
	played       []string
	disconnected bool
	playErr      error
}

func (c *fakeConn) ChannelID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channelID
}

func (c *fakeConn) Move(_ context.Context, channelID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.channelID = channelID
	return nil
}

func (c *fakeConn) Disconnect() error {
	c.Stop()
	c.mu.Lock()
	c.disconnected = true
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) Play(src *audio.Source, onComplete func(error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.playErr != nil {
		return c.playErr
	}
	if c.src != nil {
		return errors.New("busy")
	}
	c.src = src
	c.onComplete = onComplete
	c.played = append(c.played, src.Title())
	return nil
}

// finish ends the current source like the transport would
func (c *fakeConn) finish(err error) bool {
	c.mu.Lock()
	src, cb := c.src, c.onComplete
	c.src, c.onComplete = nil, nil
	c.mu.Unlock()

	if src == nil {
		return false
	}
	src.Close()
	go cb(err)
	return true
}

func (c *fakeConn) Stop() { c.finish(nil) }

func (c *fakeConn) IsPlaying() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.src != nil
}

func (c *fakeConn) Played() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.played)
}

func (c *fakeConn) Disconnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disconnected
}

type fakeConnector struct {
	mu    sync.Mutex
	conns []*fakeConn
	err   error
}

func (f *fakeConnector) Join(_ context.Context, channelID string) (VoiceConn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	c := &fakeConn{channelID: channelID}
	f.conns = append(f.conns, c)
	return c, nil
}

func (f *fakeConnector) last() *fakeConn {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.conns) == 0 {
		return nil
	}
	return f.conns[len(f.conns)-1]
}

func (f *fakeConnector) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.conns)
}

type fakeResolver struct {
	mu      sync.Mutex
	flat    map[string][]resolver.Entry
	flatErr error
	fail    map[string]bool
	local   map[string]string
	gates   map[string]chan struct{}
	held    map[string]flatGate
	calls   []string
}

// flatGate holds a flat resolution until release is closed
type flatGate struct {
	entered chan struct{}
	release chan struct{}
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{
		flat:  map[string][]resolver.Entry{},
		fail:  map[string]bool{},
		local: map[string]string{},
		gates: map[string]chan struct{}{},
		held:  map[string]flatGate{},
	}
}

func (r *fakeResolver) playlist(locator string, titles ...string) {
	entries := make([]resolver.Entry, len(titles))
	for i, t := range titles {
		entries[i] = resolver.Entry{"title": t, "id": t}
	}
	r.mu.Lock()
	r.flat[locator] = entries
	r.mu.Unlock()
}

func (r *fakeResolver) gate(title string) chan struct{} {
	ch := make(chan struct{})
	r.mu.Lock()
	r.gates[resolverURL(title)] = ch
	r.mu.Unlock()
	return ch
}

func (r *fakeResolver) holdFlat(locator string) flatGate {
	g := flatGate{entered: make(chan struct{}), release: make(chan struct{})}
	r.mu.Lock()
	r.held[locator] = g
	r.mu.Unlock()
	return g
}

func resolverURL(id string) string {
	l, _ := resolver.Locator(resolver.Entry{"id": id})
	return l
}

func (r *fakeResolver) ResolveFlat(ctx context.Context, locator string) ([]resolver.Entry, error) {
	r.mu.Lock()
	g, held := r.held[locator]
	delete(r.held, locator)
	r.mu.Unlock()
	if held {
		close(g.entered)
		select {
		case <-g.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.flatErr != nil {
		return nil, r.flatErr
	}
	return r.flat[locator], nil
}

func (r *fakeResolver) ResolveForPlayback(ctx context.Context, t queue.Track) (resolver.Playable, error) {
	r.mu.Lock()
	r.calls = append(r.calls, t.Title)
	gate := r.gates[t.Locator]
	fail := r.fail[t.Title]
	local := r.local[t.Title]
	r.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return resolver.Playable{}, ctx.Err()
		}
	}
	if fail {
		return resolver.Playable{}, &resolver.ResolutionError{Locator: t.Locator, Err: resolver.ErrNoStream}
	}
	if local != "" {
		return resolver.Playable{Locator: local, Local: true, Title: t.Title}, nil
	}
	return resolver.Playable{Locator: "https://cdn/" + t.Title, Title: t.Title}, nil
}

func (r *fakeResolver) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.calls)
}

type fakeDecoder struct{}

func (fakeDecoder) Decode(context.Context, string) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(nil)), nil
}

type recorder struct {
	mu   sync.Mutex
	msgs []string
}

func (r *recorder) Notify(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func (r *recorder) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.msgs)
}

func (r *recorder) Last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.msgs) == 0 {
		return ""
	}
	return r.msgs[len(r.msgs)-1]
}

type removals struct {
	mu    sync.Mutex
	paths map[string]int
}

func (r *removals) remove(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths[path]++
	return nil
}

func (r *removals) count(path string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.paths[path]
}
