package player

import (
	"fmt"
	"io"

	"github.com/keshon/taint-fm/internal/music/audio"
	"github.com/keshon/taint-fm/internal/music/queue"
)

// kick starts the next track unless something is already playing or resolving
func (p *Player) kick() {
	if p.current != nil || p.advancing {
		return
	}
	p.advance()
}

// advance pops the head and resolves it on a worker. With an empty queue the
// session ends. Only one advance is in flight per session; a failed track
// calls advance again from onResolved, so a run of failures is a loop over
// events rather than a recursion.
func (p *Player) advance() {
	if p.advancing || p.conn == nil {
		return
	}

	track, ok := p.queue.Dequeue()
	if !ok {
		p.log.Info().Msg("Queue drained, leaving")
		p.notify(msgLeavingEmpty)
		p.endSession()
		return
	}

	p.advancing = true
	p.pending = &track
	p.state = StateAdvancing

	gen, ctx := p.gen, p.ctx
	go func() {
		var (
			stream   io.ReadCloser
			resource string
			title    = track.Title
		)
		playable, err := p.resolver.ResolveForPlayback(ctx, track)
		if err == nil {
			if playable.Local {
				resource = playable.Locator
				p.janitor.Register(resource)
			}
			if playable.Title != "" {
				title = playable.Title
			}
			stream, err = p.decoder.Decode(ctx, playable.Locator)
		}

		posted := p.post(func() {
			p.onResolved(gen, track, title, resource, stream, err)
		})
		if !posted {
			discard(stream)
			p.janitor.Release(resource)
		}
	}()
}

func (p *Player) onResolved(gen uint64, track queue.Track, title, resource string, stream io.ReadCloser, err error) {
	if gen != p.gen {
		// the session ended while resolving; leave already requeued the track
		discard(stream)
		p.janitor.Release(resource)
		return
	}
	p.advancing = false
	p.pending = nil
	p.state = StateConnected

	if err != nil {
		p.log.Error().Err(err).Str("title", track.Title).Str("locator", track.Locator).Msg("Could not resolve track")
		p.janitor.Release(resource)
		p.notify(fmt.Sprintf(msgPlayFailed, track.Title))
		p.advance()
		return
	}

	cur := &playback{track: track, title: title, resource: resource}
	src := audio.NewSource(stream, title, track.Locator, p.opts.Volume)
	err = p.conn.Play(src, func(err error) {
		// released right away, the loop may already be gone
		p.janitor.Release(cur.resource)
		p.post(func() { p.onComplete(cur, err) })
	})
	if err != nil {
		p.log.Error().Err(err).Str("title", title).Msg("Voice transport refused the track")
		src.Close()
		p.janitor.Release(resource)
		p.notify(fmt.Sprintf(msgPlayFailed, title))
		p.advance()
		return
	}

	p.current = cur
	p.state = StatePlaying
	p.log.Info().Str("title", title).Int("queued", p.queue.Len()).Msg("Now playing")
	p.notify(fmt.Sprintf(msgNowPlaying, title))
}

// onComplete runs when the transport is done with cur, after a natural end,
// a skip or a transport error
func (p *Player) onComplete(cur *playback, err error) {
	if p.current != cur {
		return
	}
	p.current = nil
	p.state = StateConnected
	if err != nil {
		p.log.Warn().Err(err).Str("title", cur.title).Msg("Playback error, moving on")
	}
	p.advance()
}

func discard(stream io.ReadCloser) {
	if stream != nil {
		_ = stream.Close()
	}
}
