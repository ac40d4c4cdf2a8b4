package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Decoder opens a raw PCM stream for a file path or URL.
type Decoder interface {
	Decode(ctx context.Context, input string) (io.ReadCloser, error)
}

// FFmpeg decodes any input ffmpeg understands into s16le PCM.
type FFmpeg struct {
	Path string
	log  zerolog.Logger
}

// NewFFmpeg creates a decoder using the ffmpeg binary at path ("ffmpeg" when empty)
func NewFFmpeg(path string, log zerolog.Logger) *FFmpeg {
	if path == "" {
		path = "ffmpeg"
	}
	return &FFmpeg{Path: path, log: log}
}

func ffmpegArgs(input string) []string {
	args := []string{"-hide_banner", "-loglevel", "warning"}
	if strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://") {
		args = append(args,
			"-reconnect", "1",
			"-reconnect_streamed", "1",
			"-reconnect_delay_max", "5",
		)
	}
	return append(args,
		"-i", input,
		"-vn",
		"-f", "s16le",
		"-ar", strconv.Itoa(SampleRate),
		"-ac", strconv.Itoa(Channels),
		"pipe:1",
	)
}

// Decode starts ffmpeg. Closing the returned stream stops the process.
func (f *FFmpeg) Decode(ctx context.Context, input string) (io.ReadCloser, error) {
	cmd := exec.CommandContext(ctx, f.Path, ffmpegArgs(input)...)
	var stderr strings.Builder
	cmd.Stderr = &stderr

	out, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe error: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("ffmpeg start error: %w", err)
	}

	return &process{cmd: cmd, out: out, stderr: &stderr, log: f.log}, nil
}

type process struct {
	cmd    *exec.Cmd
	out    io.ReadCloser
	stderr *strings.Builder
	log    zerolog.Logger
	once   sync.Once
}

func (p *process) Read(b []byte) (int, error) {
	return p.out.Read(b)
}

func (p *process) Close() error {
	p.once.Do(func() {
		if p.cmd.ProcessState == nil {
			_ = p.cmd.Process.Kill()
		}
		err := p.cmd.Wait()
		var exitErr *exec.ExitError
		if err != nil && !errors.As(err, &exitErr) {
			p.log.Debug().Err(err).Msg("ffmpeg wait")
		}
		if msg := strings.TrimSpace(p.stderr.String()); msg != "" {
			p.log.Debug().Str("stderr", msg).Msg("ffmpeg output")
		}
	})
	return nil
}
