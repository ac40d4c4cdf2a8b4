// Package audio turns a resolved track into 48kHz stereo PCM frames.
package audio

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
	"sync"
	"sync/atomic"
)

const (
	Channels   = 2
	SampleRate = 48000
	FrameSize  = 960 // 20ms at 48kHz

	// FrameSamples is the number of int16 values in one frame
	FrameSamples = FrameSize * Channels
	// DefaultVolume is applied when nothing else is configured
	DefaultVolume = 0.5
)

// ErrClosed is returned when reading from a closed source
var ErrClosed = errors.New("audio source closed")

// Source is a single-use PCM stream with track metadata and a volume control.
type Source struct {
	stream  io.ReadCloser
	title   string
	locator string

	volume atomic.Uint64 // math.Float64bits
	buf    []byte
	done   bool

	closeOnce sync.Once
	closeErr  error
	closed    atomic.Bool
}

// NewSource wraps a raw s16le stream. volume is clamped to [0,1].
func NewSource(stream io.ReadCloser, title, locator string, volume float64) *Source {
	s := &Source{
		stream:  stream,
		title:   title,
		locator: locator,
		buf:     make([]byte, FrameSamples*2),
	}
	s.SetVolume(volume)
	return s
}

func (s *Source) Title() string   { return s.title }
func (s *Source) Locator() string { return s.locator }

// Volume returns the current volume
func (s *Source) Volume() float64 {
	return math.Float64frombits(s.volume.Load())
}

// SetVolume changes the volume for the following frames
func (s *Source) SetVolume(v float64) {
	if math.IsNaN(v) {
		v = DefaultVolume
	}
	v = min(max(v, 0), 1)
	s.volume.Store(math.Float64bits(v))
}

// ReadFrame fills pcm with the next frame scaled by the volume. pcm must hold
// FrameSamples values. A short last frame is padded with silence. io.EOF is
// returned once the stream is exhausted.
func (s *Source) ReadFrame(pcm []int16) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if s.done {
		return io.EOF
	}
	if len(pcm) < FrameSamples {
		return io.ErrShortBuffer
	}

	n, err := io.ReadFull(s.stream, s.buf)
	switch {
	case errors.Is(err, io.EOF):
		s.done = true
		return io.EOF
	case errors.Is(err, io.ErrUnexpectedEOF):
		s.done = true
		clear(s.buf[n:])
	case err != nil:
		if s.closed.Load() {
			return ErrClosed
		}
		return err
	}

	vol := s.Volume()
	for i := range FrameSamples {
		sample := int16(binary.LittleEndian.Uint16(s.buf[i*2:]))
		pcm[i] = scale(sample, vol)
	}
	return nil
}

func scale(sample int16, vol float64) int16 {
	if vol == 1 {
		return sample
	}
	v := math.Round(float64(sample) * vol)
	return int16(min(max(v, math.MinInt16), math.MaxInt16))
}

// Close releases the underlying stream. It is safe to call more than once.
func (s *Source) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.closeErr = s.stream.Close()
	})
	return s.closeErr
}
