package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/keshon/datastore"
)

const commandHistoryLimit int = 20

type Storage struct {
	ds *datastore.DataStore
}

type CommandHistoryRecord struct {
	ChannelID   string    `json:"channel_id"`
	ChannelName string    `json:"channel_name"`
	GuildName   string    `json:"guild_name"`
	UserID      string    `json:"user_id"`
	Username    string    `json:"username"`
	Command     string    `json:"command"`
	Param       string    `json:"param"`
	Datetime    time.Time `json:"datetime"`
}

type Record struct {
	CommandsHistoryList []CommandHistoryRecord `json:"cmd_history"`
}

func New(filePath string) (*Storage, error) {
	ds, err := datastore.New(filePath)
	if err != nil {
		return nil, fmt.Errorf("open datastore %s: %w", filePath, err)
	}
	return &Storage{ds: ds}, nil
}

func (s *Storage) Close() error {
	return s.ds.Close()
}

// guildRecord loads the record of a guild, creating an empty one on first use.
// Values read back from the file are plain maps, hence the JSON round-trip.
func (s *Storage) guildRecord(guildID string) (*Record, error) {
	data, exists := s.ds.Get(guildID)
	if !exists {
		rec := &Record{CommandsHistoryList: []CommandHistoryRecord{}}
		s.ds.Add(guildID, rec)
		return rec, nil
	}
	if rec, ok := data.(*Record); ok {
		return rec, nil
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal guild record %s: %w", guildID, err)
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal guild record %s: %w", guildID, err)
	}
	if rec.CommandsHistoryList == nil {
		rec.CommandsHistoryList = []CommandHistoryRecord{}
	}
	return &rec, nil
}

// AppendCommandToHistory stores a command invocation, keeping the most recent ones only
func (s *Storage) AppendCommandToHistory(guildID string, command CommandHistoryRecord) error {
	rec, err := s.guildRecord(guildID)
	if err != nil {
		return err
	}

	history := append(rec.CommandsHistoryList, command)
	if len(history) > commandHistoryLimit {
		history = history[len(history)-commandHistoryLimit:]
	}
	s.ds.Add(guildID, &Record{CommandsHistoryList: history})
	return nil
}

func (s *Storage) FetchCommandHistory(guildID string) ([]CommandHistoryRecord, error) {
	rec, err := s.guildRecord(guildID)
	if err != nil {
		return nil, err
	}
	return rec.CommandsHistoryList, nil
}
