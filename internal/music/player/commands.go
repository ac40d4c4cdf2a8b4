package player

import (
	"context"
	"fmt"

	"github.com/keshon/taint-fm/internal/music/resolver"
)

// Status messages
const (
	msgJoinNoVoice  = "You are not connected to a voice channel."
	msgPlayNoVoice  = "You are not connected to a voice channel!"
	msgJoined       = "Joined **%s**."
	msgMoved        = "Moved to **%s**."
	msgJoinFailed   = "Could not join **%s**."
	msgAddedOne     = "Added **%s** to the queue."
	msgAddedMany    = "Added **%d** items to the queue."
	msgNothingFound = "Nothing playable found for %s."
	msgLoadFailed   = "Could not load %s."
	msgNowPlaying   = "Now playing: **%s**"
	msgPlayFailed   = "Could not play **%s**, skipping."
	msgSkipped      = "Skipped the current song."
	msgNotPlaying   = "No song is currently playing."
	msgQueueEmpty   = "The queue is empty."
	msgAlreadyEmpty = "The queue is already empty."
	msgClearing     = "Clearing the queue."
	msgNotInVoice   = "I'm not in a voice channel."
	msgDisconnected = "Disconnected from %s"
	msgLeavingEmpty = "Queue is empty. Leaving the voice channel."
)

// Join connects to ch, or moves there when already connected. A queue left
// over from a previous session resumes playing.
func (p *Player) Join(ctx context.Context, ch VoiceChannel) string {
	if ch.ID == "" {
		return p.reply(ctx, msgJoinNoVoice)
	}
	return p.do(func() string {
		p.adopt(ctx)
		msg := p.join(ctx, ch)
		p.notify(msg)
		if p.conn != nil && !p.queue.IsEmpty() {
			p.kick()
		}
		return msg
	})
}

// Play resolves locator without downloading anything, queues the results and
// starts playback when nothing is playing. The caller's channel is joined first
// when the bot is not connected, and joined again if the session ended while
// the locator was being resolved.
func (p *Player) Play(ctx context.Context, ch VoiceChannel, locator string) string {
	if ch.ID == "" {
		return p.reply(ctx, msgPlayNoVoice)
	}

	ok := p.do(func() string {
		if p.conn != nil {
			return "ok"
		}
		p.adopt(ctx)
		msg := p.join(ctx, ch)
		p.notify(msg)
		if p.conn == nil {
			return ""
		}
		return "ok"
	})
	if ok == "" {
		return fmt.Sprintf(msgJoinFailed, ch.Name)
	}

	// flat resolution runs on the caller's goroutine, the loop stays responsive
	entries, err := p.resolver.ResolveFlat(ctx, locator)
	if err != nil {
		p.log.Error().Err(err).Str("locator", locator).Msg("Flat resolution failed")
		return p.reply(ctx, fmt.Sprintf(msgLoadFailed, locator))
	}
	tracks := resolver.Tracks(entries, p.log)

	return p.do(func() string {
		p.adopt(ctx)
		var msg string
		switch n := p.queue.Enqueue(tracks...); n {
		case 0:
			msg = fmt.Sprintf(msgNothingFound, locator)
		case 1:
			msg = fmt.Sprintf(msgAddedOne, tracks[0].Title)
		default:
			msg = fmt.Sprintf(msgAddedMany, n)
		}
		p.log.Info().Str("locator", locator).Int("tracks", len(tracks)).Int("queued", p.queue.Len()).Msg("Queued")
		p.notify(msg)
		if len(tracks) == 0 {
			return msg
		}
		// the previous queue may have drained and disconnected meanwhile
		if p.conn == nil {
			p.notify(p.join(ctx, ch))
		}
		p.kick()
		return msg
	})
}

// Skip stops the current track. The next one starts through the normal
// completion path.
func (p *Player) Skip(ctx context.Context) string {
	return p.do(func() string {
		msg := msgNotPlaying
		if p.conn != nil && p.current != nil {
			p.conn.Stop()
			msg = msgSkipped
		}
		p.notifyTo(ctx, msg)
		return msg
	})
}

// QueueList describes the pending tracks
func (p *Player) QueueList(ctx context.Context) string {
	return p.do(func() string {
		msg := FormatQueue(p.queue.Snapshot(), p.queue.Len())
		p.notifyTo(ctx, msg)
		return msg
	})
}

// Clear drops every pending track. The current track keeps playing.
func (p *Player) Clear(ctx context.Context) string {
	return p.do(func() string {
		msg := msgAlreadyEmpty
		if !p.queue.IsEmpty() {
			p.queue.Clear()
			msg = msgClearing
		}
		p.notifyTo(ctx, msg)
		return msg
	})
}

// Leave disconnects. A track that is playing or being resolved goes back to
// the head of the queue.
func (p *Player) Leave(ctx context.Context) string {
	return p.do(func() string {
		if p.conn == nil {
			p.notifyTo(ctx, msgNotInVoice)
			return msgNotInVoice
		}

		switch {
		case p.current != nil:
			p.queue.PushFront(p.current.track)
		case p.pending != nil:
			p.queue.PushFront(*p.pending)
		}
		name := p.channel.Name
		p.endSession()

		msg := fmt.Sprintf(msgDisconnected, name)
		p.log.Info().Str("channel", name).Int("queued", p.queue.Len()).Msg("Left voice channel")
		p.notifyTo(ctx, msg)
		return msg
	})
}

// reply sends msg through the loop so it stays ordered with other messages
func (p *Player) reply(ctx context.Context, msg string) string {
	p.do(func() string {
		p.notifyTo(ctx, msg)
		return ""
	})
	return msg
}

// join connects or moves. Runs on the loop.
func (p *Player) join(ctx context.Context, ch VoiceChannel) string {
	if p.conn != nil {
		if err := p.conn.Move(ctx, ch.ID); err != nil {
			p.log.Error().Err(err).Str("channel", ch.ID).Msg("Failed to move")
			return fmt.Sprintf(msgJoinFailed, ch.Name)
		}
		p.channel = ch
		return fmt.Sprintf(msgMoved, ch.Name)
	}

	conn, err := p.connector.Join(ctx, ch.ID)
	if err != nil {
		p.log.Error().Err(err).Str("channel", ch.ID).Msg("Failed to join")
		return fmt.Sprintf(msgJoinFailed, ch.Name)
	}

	p.conn = conn
	p.channel = ch
	p.state = StateConnected
	p.ctx, p.cancel = context.WithCancel(context.Background())
	return fmt.Sprintf(msgJoined, ch.Name)
}

// endSession disconnects and invalidates everything in flight. Runs on the loop.
func (p *Player) endSession() {
	p.gen++
	p.advancing = false
	p.pending = nil
	p.current = nil
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	if p.conn != nil {
		if err := p.conn.Disconnect(); err != nil {
			p.log.Warn().Err(err).Msg("Voice disconnect failed")
		}
		p.conn = nil
		p.state = StateDisconnected
	}
	p.channel = VoiceChannel{}
}
