// Package player implements the per-guild playback session: a FIFO queue fed
// by play requests, on-demand resolution of the next track and automatic
// advancement when a track ends.
//
// Every state change of a Player runs on one goroutine that drains a channel
// of closures. Commands, resolution results and completion callbacks are all
// posted to it, so they never race each other and user-visible messages of a
// guild come out in order.
package player

import (
	"context"
	"fmt"
	"sync"

	"github.com/keshon/taint-fm/internal/music/audio"
	"github.com/keshon/taint-fm/internal/music/janitor"
	"github.com/keshon/taint-fm/internal/music/queue"
	"github.com/keshon/taint-fm/internal/music/resolver"

	"github.com/rs/zerolog"
)

// VoiceChannel identifies a voice channel of the guild
type VoiceChannel struct {
	ID   string
	Name string
}

// VoiceConn is a connected voice session.
type VoiceConn interface {
	ChannelID() string
	Move(ctx context.Context, channelID string) error
	Disconnect() error
	// Play starts src in the background and calls onComplete exactly once
	// when it ends, is stopped or fails.
	Play(src *audio.Source, onComplete func(error)) error
	Stop()
	IsPlaying() bool
}

// Connector opens voice sessions.
type Connector interface {
	Join(ctx context.Context, channelID string) (VoiceConn, error)
}

// Notifier delivers status messages to users
type Notifier interface {
	Notify(msg string)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(msg string)

func (f NotifierFunc) Notify(msg string) { f(msg) }

type notifierKey struct{}

// WithNotifier attaches the destination of replies to a request
func WithNotifier(ctx context.Context, n Notifier) context.Context {
	return context.WithValue(ctx, notifierKey{}, n)
}

// NotifierFrom returns the notifier attached by WithNotifier, or nil
func NotifierFrom(ctx context.Context) Notifier {
	n, _ := ctx.Value(notifierKey{}).(Notifier)
	return n
}

// State of a session
type State int

const (
	StateIdle State = iota
	StateConnected
	StateAdvancing
	StatePlaying
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnected:
		return "connected"
	case StateAdvancing:
		return "advancing"
	case StatePlaying:
		return "playing"
	case StateDisconnected:
		return "disconnected"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Options tunes a Player.
type Options struct {
	// Volume of every source, 0..1
	Volume float64
	// Events is the size of the event buffer
	Events int
}

// Player is the playback session of one guild.
type Player struct {
	guildID   string
	connector Connector
	resolver  resolver.Resolver
	decoder   audio.Decoder
	janitor   *janitor.Janitor
	opts      Options
	log       zerolog.Logger

	events    chan func()
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	// owned by the loop goroutine
	notifier  Notifier
	queue     *queue.Queue
	conn      VoiceConn
	channel   VoiceChannel
	state     State
	advancing bool
	pending   *queue.Track
	current   *playback
	gen       uint64
	ctx       context.Context
	cancel    context.CancelFunc
}

// playback is the track currently handed to the voice connection
type playback struct {
	track    queue.Track
	title    string
	resource string
}

// New creates a player and starts its loop. Close stops it.
func New(guildID string, connector Connector, res resolver.Resolver, dec audio.Decoder, jan *janitor.Janitor, opts Options, log zerolog.Logger) *Player {
	if opts.Events <= 0 {
		opts.Events = 64
	}
	p := &Player{
		guildID:   guildID,
		connector: connector,
		resolver:  res,
		decoder:   dec,
		janitor:   jan,
		opts:      opts,
		log:       log.With().Str("guild", guildID).Logger(),
		events:    make(chan func(), opts.Events),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
		notifier:  NotifierFunc(func(string) {}),
		queue:     queue.New(),
		state:     StateIdle,
	}
	go p.run()
	return p
}

func (p *Player) run() {
	defer close(p.done)
	for {
		select {
		case fn := <-p.events:
			fn()
		case <-p.quit:
			return
		}
	}
}

// post schedules fn on the loop. It reports false once the player is closed.
// Never call it from the loop itself.
func (p *Player) post(fn func()) bool {
	select {
	case p.events <- fn:
		return true
	case <-p.done:
		return false
	}
}

// do runs fn on the loop and waits for its result
func (p *Player) do(fn func() string) string {
	reply := make(chan string, 1)
	if !p.post(func() { reply <- fn() }) {
		return ""
	}
	select {
	case msg := <-reply:
		return msg
	case <-p.done:
		return ""
	}
}

func (p *Player) notify(msg string) {
	p.notifier.Notify(msg)
}

// notifyTo sends msg to the requester when ctx names one. Runs on the loop.
func (p *Player) notifyTo(ctx context.Context, msg string) {
	if n := NotifierFrom(ctx); n != nil {
		n.Notify(msg)
		return
	}
	p.notify(msg)
}

// adopt makes the requester's channel the target of session messages such as
// track announcements. Runs on the loop.
func (p *Player) adopt(ctx context.Context) {
	if n := NotifierFrom(ctx); n != nil {
		p.notifier = n
	}
}

// SetNotifier replaces where session messages go until a join or play
// request brings its own notifier
func (p *Player) SetNotifier(n Notifier) {
	if n == nil {
		return
	}
	p.do(func() string {
		p.notifier = n
		return ""
	})
}

// GuildID returns the guild this player belongs to
func (p *Player) GuildID() string { return p.guildID }

// State returns the current session state
func (p *Player) State() State {
	var s State
	p.do(func() string {
		s = p.state
		return ""
	})
	return s
}

// Close disconnects and stops the loop. Later calls do nothing.
func (p *Player) Close() {
	p.closeOnce.Do(func() {
		p.do(func() string {
			p.endSession()
			p.queue.Clear()
			return ""
		})
		close(p.quit)
		<-p.done
	})
}
