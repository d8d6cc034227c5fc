package tui

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const maxRecent = 10

type RecentEntry struct {
	Path     string    `json:"path"`
	Rows     int       `json:"rows"`
	OpenedAt time.Time `json:"opened_at"`
}

// RecentStore keeps the most recently opened workbooks in a JSON file.
type RecentStore struct {
	Path string
}

func DefaultRecentStore() RecentStore {
	cfg, err := os.UserConfigDir()
	if err != nil {
		cfg = os.TempDir()
	}
	return RecentStore{Path: filepath.Join(cfg, "kectap", "recent.json")}
}

// Load returns the entries newest first. A missing or corrupt file yields
// an empty list.
func (s RecentStore) Load() []RecentEntry {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil
	}
	var entries []RecentEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil
	}
	return entries
}

// Add moves path to the front of the list, trimming it to maxRecent.
func (s RecentStore) Add(path string, rows int) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	entries := s.Load()
	filtered := make([]RecentEntry, 0, len(entries)+1)
	filtered = append(filtered, RecentEntry{Path: abs, Rows: rows, OpenedAt: time.Now()})
	for _, e := range entries {
		if e.Path != abs {
			filtered = append(filtered, e)
		}
	}
	if len(filtered) > maxRecent {
		filtered = filtered[:maxRecent]
	}

	data, err := json.MarshalIndent(filtered, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return fmt.Errorf("creating recent dir: %w", err)
	}
	return os.WriteFile(s.Path, data, 0o644)
}
