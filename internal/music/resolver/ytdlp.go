package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/keshon/taint-fm/internal/music/janitor"
	"github.com/keshon/taint-fm/internal/music/queue"

	"github.com/rs/zerolog"
)

// minFileSize is the size below which a downloaded file is suspicious
const minFileSize = 1024

// runFunc executes yt-dlp with a preset and returns its stdout
type runFunc func(ctx context.Context, p Preset, locator string) (string, error)

// YTDLP resolves locators with the yt-dlp executable.
type YTDLP struct {
	flat     Preset
	playback Preset
	proxy    string
	run      runFunc
	log      zerolog.Logger
}

// NewYTDLP creates a yt-dlp backend. proxy may be empty.
func NewYTDLP(scratchDir string, mode Mode, proxy string, log zerolog.Logger) *YTDLP {
	y := &YTDLP{
		flat:     FlatPreset(),
		playback: PlaybackPreset(scratchDir, mode),
		proxy:    proxy,
		log:      log.With().Str("backend", "ytdlp").Logger(),
	}
	y.run = y.exec
	return y
}

func (y *YTDLP) Name() string { return "ytdlp" }

func (y *YTDLP) exec(ctx context.Context, p Preset, locator string) (string, error) {
	args := append(p.Args(), locator)
	res, err := p.command(y.proxy).Run(ctx, args...)
	if res == nil {
		return "", err
	}
	if err != nil {
		y.log.Debug().Err(err).Str("stderr", strings.TrimSpace(res.Stderr)).Msg("yt-dlp exited with error")
	}
	return res.Stdout, err
}

// ResolveFlat reads metadata for a single item or a whole playlist. A failed
// run that still printed a document is treated as a partial success.
func (y *YTDLP) ResolveFlat(ctx context.Context, locator string) ([]Entry, error) {
	out, runErr := y.run(ctx, y.flat, locator)
	if ctx.Err() != nil {
		return nil, resolutionError(locator, ctx.Err())
	}

	entries, err := parseDocument(out)
	if err != nil {
		if runErr != nil {
			return nil, resolutionError(locator, runErr)
		}
		return nil, resolutionError(locator, err)
	}
	if runErr != nil {
		y.log.Warn().Err(runErr).Str("locator", locator).Int("entries", len(entries)).Msg("Partial flat resolution")
	}
	return entries, nil
}

// ResolveForPlayback downloads the track or extracts its stream URL, depending on the preset
func (y *YTDLP) ResolveForPlayback(ctx context.Context, track queue.Track) (Playable, error) {
	out, err := y.run(ctx, y.playback, track.Locator)
	if err != nil {
		return Playable{}, resolutionError(track.Locator, err)
	}

	info, err := firstDocument(out)
	if err != nil {
		return Playable{}, resolutionError(track.Locator, err)
	}
	p, err := y.playable(info)
	if err != nil {
		return Playable{}, resolutionError(track.Locator, err)
	}
	return p, nil
}

func (y *YTDLP) playable(info Entry) (Playable, error) {
	p := Playable{
		ID:    info.String("id"),
		Ext:   info.String("ext"),
		Title: info.String("title"),
		Raw:   info,
	}

	if !y.playback.Downloads() {
		p.Locator = info.String("url")
		if p.Locator == "" {
			return Playable{}, ErrNoStream
		}
		return p, nil
	}

	path := info.String("_filename")
	if path == "" {
		path = info.String("filename")
	}
	if path == "" {
		if p.ID == "" || p.Ext == "" {
			return Playable{}, ErrNoStream
		}
		path = filepath.Join(filepath.Dir(y.playback.OutputTmpl()), janitor.FilePrefix+p.ID+"."+p.Ext)
	}

	st, err := os.Stat(path)
	if err != nil {
		return Playable{}, fmt.Errorf("%w: %s", ErrNoFile, path)
	}
	if st.Size() < minFileSize {
		y.log.Warn().Str("path", path).Int64("size", st.Size()).Msg("Downloaded file is suspiciously small")
	}

	p.Locator = path
	p.Local = true
	return p, nil
}

// parseDocument decodes a yt-dlp JSON document. Playlists are flattened into
// their entries; null entries are dropped.
func parseDocument(out string) ([]Entry, error) {
	doc, err := firstDocument(out)
	if err != nil {
		return nil, err
	}
	return flatten(doc), nil
}

func flatten(doc Entry) []Entry {
	raw, ok := doc["entries"]
	if !ok {
		return []Entry{doc}
	}
	items, _ := raw.([]any)

	entries := make([]Entry, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		entries = append(entries, flatten(Entry(m))...)
	}
	return entries
}

func firstDocument(out string) (Entry, error) {
	for line := range strings.Lines(out) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var doc Entry
		if err := json.Unmarshal([]byte(line), &doc); err != nil {
			return nil, fmt.Errorf("decode yt-dlp output: %w", err)
		}
		if doc == nil {
			continue
		}
		return doc, nil
	}
	return nil, errors.New("yt-dlp returned no metadata")
}
