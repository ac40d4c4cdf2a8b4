// Package voice sends audio sources to a Discord voice channel.
package voice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/keshon/taint-fm/internal/music/audio"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"layeh.com/gopus"
)

// maxPacketBytes bounds a single encoded opus packet
const maxPacketBytes = audio.FrameSamples * 2

// ErrBusy is returned by Play while another source is playing
var ErrBusy = errors.New("voice connection is already playing")

type encoder interface {
	Encode(pcm []int16, frameSize, maxDataBytes int) ([]byte, error)
}

func newOpusEncoder() (encoder, error) {
	return gopus.NewEncoder(audio.SampleRate, audio.Channels, gopus.Audio)
}

// Connector joins voice channels of one guild.
type Connector struct {
	session *discordgo.Session
	guildID string
	log     zerolog.Logger
}

// NewConnector creates a connector for guildID
func NewConnector(s *discordgo.Session, guildID string, log zerolog.Logger) *Connector {
	return &Connector{session: s, guildID: guildID, log: log}
}

// Join connects to channelID, deafened
func (c *Connector) Join(ctx context.Context, channelID string) (*Conn, error) {
	type result struct {
		vc  *discordgo.VoiceConnection
		err error
	}
	ch := make(chan result, 1)
	go func() {
		vc, err := c.session.ChannelVoiceJoin(c.guildID, channelID, false, true)
		ch <- result{vc, err}
	}()

	select {
	case <-ctx.Done():
		go func() {
			// a late join is dropped
			if r := <-ch; r.err == nil {
				_ = r.vc.Disconnect()
			}
		}()
		return nil, ctx.Err()
	case r := <-ch:
		if r.err != nil {
			return nil, fmt.Errorf("join voice channel %s: %w", channelID, r.err)
		}
		c.log.Info().Str("channel", channelID).Msg("Joined voice channel")
		return newConn(r.vc, r.vc.OpusSend, channelID, c.log), nil
	}
}

// Conn is one voice connection.
type Conn struct {
	vc   *discordgo.VoiceConnection
	opus chan<- []byte
	log  zerolog.Logger

	newEncoder func() (encoder, error)
	speaking   func(bool) error

	mu        sync.Mutex
	channelID string
	stop      chan struct{}
	src       *audio.Source
	playing   atomic.Bool
}

func newConn(vc *discordgo.VoiceConnection, opus chan<- []byte, channelID string, log zerolog.Logger) *Conn {
	c := &Conn{
		vc:         vc,
		opus:       opus,
		channelID:  channelID,
		log:        log,
		newEncoder: newOpusEncoder,
		speaking:   func(bool) error { return nil },
	}
	if vc != nil {
		c.speaking = vc.Speaking
	}
	return c
}

// ChannelID returns the current voice channel
func (c *Conn) ChannelID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channelID
}

// Move switches to another channel of the same guild
func (c *Conn) Move(ctx context.Context, channelID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.vc.ChangeChannel(channelID, false, true); err != nil {
		return fmt.Errorf("move to %s: %w", channelID, err)
	}
	c.mu.Lock()
	c.channelID = channelID
	c.mu.Unlock()
	return nil
}

// Disconnect stops playback and leaves the channel
func (c *Conn) Disconnect() error {
	c.Stop()
	if c.vc == nil {
		return nil
	}
	return c.vc.Disconnect()
}

// IsPlaying reports whether a source is being sent
func (c *Conn) IsPlaying() bool {
	return c.playing.Load()
}

// Play starts sending src in the background. onComplete is called exactly
// once when the source ends, is stopped or fails; a nil error means the
// source ended or was stopped.
func (c *Conn) Play(src *audio.Source, onComplete func(error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.playing.Load() {
		return ErrBusy
	}
	enc, err := c.newEncoder()
	if err != nil {
		return fmt.Errorf("encoder error: %w", err)
	}

	stop := make(chan struct{})
	c.stop = stop
	c.src = src
	c.playing.Store(true)

	go c.stream(enc, src, stop, onComplete)
	return nil
}

// Stop ends the current source. The completion callback of Play still runs.
func (c *Conn) Stop() {
	c.mu.Lock()
	stop, src := c.stop, c.src
	c.stop, c.src = nil, nil
	c.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	// unblocks a pending read on a stalled decoder
	_ = src.Close()
}

func (c *Conn) stream(enc encoder, src *audio.Source, stop <-chan struct{}, onComplete func(error)) {
	err := c.send(enc, src, stop)
	src.Close()

	c.mu.Lock()
	if c.src == src {
		c.stop, c.src = nil, nil
	}
	c.playing.Store(false)
	c.mu.Unlock()

	if err != nil {
		c.log.Warn().Err(err).Str("title", src.Title()).Msg("Playback ended with error")
	}
	if onComplete != nil {
		onComplete(err)
	}
}

func (c *Conn) send(enc encoder, src *audio.Source, stop <-chan struct{}) error {
	if err := c.speaking(true); err != nil {
		c.log.Debug().Err(err).Msg("Speaking(true) failed")
	}
	defer func() {
		if err := c.speaking(false); err != nil {
			c.log.Debug().Err(err).Msg("Speaking(false) failed")
		}
	}()

	pcm := make([]int16, audio.FrameSamples)
	for {
		select {
		case <-stop:
			return nil
		default:
		}

		if err := src.ReadFrame(pcm); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, audio.ErrClosed) {
				return nil
			}
			return fmt.Errorf("read error: %w", err)
		}

		packet, err := enc.Encode(pcm, audio.FrameSize, maxPacketBytes)
		if err != nil {
			return fmt.Errorf("encode error: %w", err)
		}

		select {
		case c.opus <- packet:
		case <-stop:
			return nil
		}
	}
}
