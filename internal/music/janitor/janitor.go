// Package janitor keeps track of temporary files created for playback and
// makes sure each one is deleted exactly once.
package janitor

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// FilePrefix is the name prefix of every file the janitor may sweep
const FilePrefix = "taint-fm-"

// Janitor owns temporary resources between Register and Release.
type Janitor struct {
	mu     sync.Mutex
	owned  map[string]struct{}
	remove func(string) error
	log    zerolog.Logger
}

// New creates a janitor that deletes files from disk
func New(log zerolog.Logger) *Janitor {
	return NewWithRemover(log, os.Remove)
}

// NewWithRemover creates a janitor with a custom delete function
func NewWithRemover(log zerolog.Logger, remove func(string) error) *Janitor {
	return &Janitor{
		owned:  make(map[string]struct{}),
		remove: remove,
		log:    log,
	}
}

// Register marks a resource as owned. Registering twice is a no-op.
func (j *Janitor) Register(id string) {
	if id == "" {
		return
	}
	j.mu.Lock()
	j.owned[id] = struct{}{}
	n := len(j.owned)
	j.mu.Unlock()

	j.log.Debug().Str("resource", id).Int("owned", n).Msg("Registered resource")
}

// Release deletes a registered resource. It reports whether the resource was
// owned; releasing an unknown or already released resource does nothing.
func (j *Janitor) Release(id string) bool {
	j.mu.Lock()
	_, ok := j.owned[id]
	delete(j.owned, id)
	j.mu.Unlock()

	if !ok {
		return false
	}
	j.delete(id)
	return true
}

// ReleaseAll deletes everything still owned and returns how many resources were released
func (j *Janitor) ReleaseAll() int {
	j.mu.Lock()
	ids := make([]string, 0, len(j.owned))
	for id := range j.owned {
		ids = append(ids, id)
	}
	clear(j.owned)
	j.mu.Unlock()

	for _, id := range ids {
		j.delete(id)
	}
	if len(ids) > 0 {
		j.log.Info().Int("count", len(ids)).Msg("Released all resources")
	}
	return len(ids)
}

// Owned returns the number of resources awaiting release
func (j *Janitor) Owned() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.owned)
}

// SweepStale removes leftover files in dir from a previous run. Files that are
// currently owned are kept. It returns the number of files removed.
func (j *Janitor) SweepStale(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}

	removed := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), FilePrefix) {
			continue
		}
		path := filepath.Join(dir, e.Name())

		j.mu.Lock()
		_, owned := j.owned[path]
		j.mu.Unlock()
		if owned {
			continue
		}

		if j.delete(path) {
			removed++
		}
	}
	if removed > 0 {
		j.log.Info().Int("count", removed).Str("dir", dir).Msg("Swept stale files")
	}
	return removed, nil
}

func (j *Janitor) delete(id string) bool {
	if err := j.remove(id); err != nil && !errors.Is(err, fs.ErrNotExist) {
		j.log.Warn().Err(err).Str("resource", id).Msg("Failed to delete resource")
		return false
	}
	j.log.Debug().Str("resource", id).Msg("Deleted resource")
	return true
}
