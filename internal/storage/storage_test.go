package storage

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func open(t *testing.T, path string) *Storage {
	t.Helper()
	s, err := New(path)
	require.NoError(t, err)
	return s
}

func TestFetchCommandHistoryEmpty(t *testing.T) {
	s := open(t, filepath.Join(t.TempDir(), "db.json"))
	defer s.Close()

	history, err := s.FetchCommandHistory("guild")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestAppendCommandToHistoryKeepsLatest(t *testing.T) {
	s := open(t, filepath.Join(t.TempDir(), "db.json"))
	defer s.Close()

	for i := range commandHistoryLimit + 5 {
		require.NoError(t, s.AppendCommandToHistory("guild", CommandHistoryRecord{
			Command:  "play",
			Param:    fmt.Sprint(i),
			Datetime: time.Now(),
		}))
	}

	history, err := s.FetchCommandHistory("guild")
	require.NoError(t, err)
	require.Len(t, history, commandHistoryLimit)
	assert.Equal(t, "5", history[0].Param)
	assert.Equal(t, fmt.Sprint(commandHistoryLimit+4), history[len(history)-1].Param)

	other, err := s.FetchCommandHistory("other")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestCommandHistorySurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")

	s := open(t, path)
	require.NoError(t, s.AppendCommandToHistory("guild", CommandHistoryRecord{UserID: "u1", Command: "skip"}))
	require.NoError(t, s.Close())

	s = open(t, path)
	defer s.Close()
	history, err := s.FetchCommandHistory("guild")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "u1", history[0].UserID)
	assert.Equal(t, "skip", history[0].Command)
}
