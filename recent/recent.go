// Package recent persists the recent-search history as an append-only
// JSONL file.
package recent

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
)

// Entry is one remembered search.
type Entry struct {
	AccountID   uint32 `json:"account_id"`
	Personaname string `json:"personaname"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// Load reads the history at path and returns up to max entries, newest
// first, deduplicated by account id (the latest occurrence wins). A
// missing file yields an empty history.
func Load(path string, max int) []Entry {
	file, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer file.Close()

	var all []Entry
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var entry Entry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			continue
		}
		all = append(all, entry)
	}

	// Walk backwards so the most recent occurrence of each id wins.
	seen := make(map[uint32]bool)
	var entries []Entry
	for i := len(all) - 1; i >= 0 && len(entries) < max; i-- {
		if seen[all[i].AccountID] {
			continue
		}
		seen[all[i].AccountID] = true
		entries = append(entries, all[i])
	}
	return entries
}

// Append adds one entry to the history. Best effort: the history is a
// convenience artifact and callers treat failures as non-fatal.
func Append(path string, entry Entry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	line, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()
	_, err = file.Write(append(line, '\n'))
	return err
}
