package resolver

import (
	"fmt"
	"path/filepath"
	"slices"

	"github.com/keshon/taint-fm/internal/music/janitor"

	"github.com/lrstanley/go-ytdlp"
)

// Mode selects how a track is made playable
type Mode string

const (
	// ModeDownload fetches the audio to the scratch directory before playback
	ModeDownload Mode = "download"
	// ModeStream extracts a direct media URL and plays it remotely
	ModeStream Mode = "stream"
)

// ParseMode validates a mode name
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeDownload, ModeStream:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown playback mode %q", s)
}

// Preset is an immutable set of extractor options. Use FlatPreset or PlaybackPreset.
type Preset struct {
	name         string
	format       string
	playlist     bool
	ignoreErrors bool
	download     bool
	output       string
}

// FlatPreset reads metadata only. Playlists are expanded into entries and
// broken entries are skipped.
func FlatPreset() Preset {
	return Preset{
		name:         "flat",
		format:       "bestaudio/best",
		playlist:     true,
		ignoreErrors: true,
	}
}

// PlaybackPreset resolves a single item. In download mode the audio is saved
// under dir with a name derived from the media id.
func PlaybackPreset(dir string, mode Mode) Preset {
	p := Preset{
		name:   "playback",
		format: "bestaudio/best",
	}
	if mode == ModeDownload {
		p.download = true
		p.output = filepath.Join(dir, janitor.FilePrefix+"%(id)s.%(ext)s")
	}
	return p
}

func (p Preset) Name() string       { return p.name }
func (p Preset) Downloads() bool    { return p.download }
func (p Preset) Playlist() bool     { return p.playlist }
func (p Preset) OutputTmpl() string { return p.output }

// Args returns the raw flags passed after the builder options
func (p Preset) Args() []string {
	args := []string{
		"--default-search", "auto",
		"--source-address", "0.0.0.0",
		"--restrict-filenames",
	}
	if p.playlist {
		args = append(args, "--dump-single-json")
	} else {
		args = append(args, "--dump-json")
	}
	if p.ignoreErrors {
		args = append(args, "--ignore-errors")
	}
	if !p.playlist && !p.download {
		args = append(args, "--skip-download")
	}
	return slices.Clip(args)
}

// command builds the yt-dlp invocation for this preset
func (p Preset) command(proxy string) *ytdlp.Command {
	cmd := ytdlp.New().
		IgnoreConfig().
		NoWarnings().
		NoCheckCertificates().
		Format(p.format)

	if p.playlist {
		cmd.FlatPlaylist()
	} else {
		cmd.NoPlaylist()
	}
	if p.download {
		cmd.NoSimulate().NoPart().Output(p.output)
	}
	if proxy != "" {
		cmd.Proxy(proxy)
	}
	return cmd
}
