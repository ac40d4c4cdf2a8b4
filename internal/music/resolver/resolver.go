// Package resolver turns locators into queueable tracks and playable audio.
//
// Two operations with different costs are exposed. ResolveFlat only reads
// metadata and may expand a playlist; ResolveForPlayback produces a stream URL
// or a downloaded file for exactly one track and is only called right before
// that track plays.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/keshon/taint-fm/internal/music/queue"

	"github.com/rs/zerolog"
)

// Entry is one raw metadata document returned by a backend
type Entry map[string]any

// String returns the string value stored under key, or "" when it is absent or not a string
func (e Entry) String(key string) string {
	if v, ok := e[key].(string); ok {
		return v
	}
	return ""
}

// Playable is the result of a full resolution.
type Playable struct {
	// Locator is a direct media URL, or a file path when Local is set
	Locator string
	Local   bool
	ID      string
	Ext     string
	Title   string
	Raw     Entry
}

// Resolver is the metadata/resolution backend consumed by the player.
type Resolver interface {
	ResolveFlat(ctx context.Context, locator string) ([]Entry, error)
	ResolveForPlayback(ctx context.Context, track queue.Track) (Playable, error)
}

// Backend is a named Resolver that can take part in a Chain
type Backend interface {
	Resolver
	Name() string
}

var (
	// ErrNoStream means the backend answered but gave nothing playable
	ErrNoStream = errors.New("no playable stream in result")
	// ErrNoFile means a download finished without leaving the expected file
	ErrNoFile = errors.New("downloaded file not found")
	// ErrUnsupported means the backend cannot handle this kind of locator
	ErrUnsupported = errors.New("locator not supported")
)

// ResolutionError is returned when a locator cannot be resolved.
type ResolutionError struct {
	Locator string
	Err     error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve %q: %v", e.Locator, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

func resolutionError(locator string, err error) error {
	var re *ResolutionError
	if errors.As(err, &re) {
		return err
	}
	return &ResolutionError{Locator: locator, Err: err}
}

// unavailable lists placeholder titles that providers return for removed media
var unavailable = map[string]struct{}{
	"[Deleted video]":     {},
	"[Private video]":     {},
	"[Unavailable video]": {},
}

// IsUnavailable reports whether title is a removed-media placeholder
func IsUnavailable(title string) bool {
	_, ok := unavailable[strings.TrimSpace(title)]
	return ok
}

// WatchURL is the template used when an entry carries only a video id
const WatchURL = "https://www.youtube.com/watch?v=%s"

// Locator derives the canonical locator of an entry. ok is false when no
// locator and no id are present.
func Locator(e Entry) (string, bool) {
	if u := e.String("webpage_url"); u != "" {
		return u, true
	}
	if u := e.String("url"); strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
		return u, true
	}
	if id := e.String("id"); id != "" {
		return fmt.Sprintf(WatchURL, id), true
	}
	return "", false
}

// Tracks converts flat entries into tracks, in order. Placeholder entries are
// skipped and entries without any locator are dropped with an error log.
func Tracks(entries []Entry, log zerolog.Logger) []queue.Track {
	tracks := make([]queue.Track, 0, len(entries))
	for i, e := range entries {
		if e == nil {
			continue
		}
		title := e.String("title")
		if IsUnavailable(title) {
			log.Debug().Str("title", title).Msg("Skipping unavailable entry")
			continue
		}

		locator, ok := Locator(e)
		if !ok {
			log.Error().Int("index", i).Str("title", title).Msg("Entry has no url or id, dropping it")
			continue
		}
		if title == "" {
			title = locator
		}

		tracks = append(tracks, queue.Track{
			Title:   title,
			Locator: locator,
			Raw:     e,
		})
	}
	return tracks
}
