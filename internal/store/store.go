// Package store persists the action list and UI preferences as one JSON document.
package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/tidwall/gjson"

	"github.com/msyamsudin/S-Trade-Executor/internal/core/macro"
)

const (
	KeyActions           = "actions"
	KeyAlwaysOnTop       = "always_on_top"
	KeyTheme             = "theme"
	KeyCancelOnMouseMove = "cancel_on_mouse_move"
	KeyDuplicatePolicy   = "duplicate_policy"

	legacyProfiles    = "profiles"
	legacyLastProfile = "last_profile"
)

// Store holds the decoded document in memory. Keys it does not know about are kept
// verbatim and written back on every save.
type Store struct {
	path string

	mu  sync.Mutex
	doc map[string]json.RawMessage
	// last holds the bytes most recently read from or written to disk, so the watcher
	// can tell our own writes apart from external edits.
	last []byte
}

func DefaultPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil || configDir == "" {
		return filepath.Join(".", "config.json")
	}
	return filepath.Join(configDir, "s-trade-executor", "config.json")
}

// New returns a store with the default document. Nothing is read or written.
func New(path string) *Store {
	return &Store{path: path, doc: defaultDocument()}
}

// Open reads path. A missing file yields the default document.
func Open(path string) (*Store, error) {
	s := New(path)
	if _, err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

func defaultDocument() map[string]json.RawMessage {
	return map[string]json.RawMessage{
		KeyActions:     json.RawMessage("[]"),
		KeyAlwaysOnTop: json.RawMessage("true"),
		KeyTheme:       json.RawMessage(`"Dark"`),
	}
}

func (s *Store) Path() string {
	return s.path
}

// Reload re-reads the file and reports whether its content differs from what the store
// last read or wrote.
func (s *Store) Reload() (bool, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config %s: %w", s.path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last != nil && bytes.Equal(bytes.TrimSpace(data), bytes.TrimSpace(s.last)) {
		return false, nil
	}

	doc := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &doc); err != nil {
		return false, fmt.Errorf("failed to parse config %s: %w", s.path, err)
	}
	if doc == nil {
		doc = defaultDocument()
	}
	s.doc = doc
	s.last = data
	return true, nil
}

// Actions returns the persisted action list. Documents written by older versions keep
// their actions under "profiles"; the first profile in document order is used.
func (s *Store) Actions() []macro.ActionRecord {
	s.mu.Lock()
	raw := s.actionsRawLocked()
	s.mu.Unlock()

	if len(raw) == 0 {
		return nil
	}
	records, err := macro.DecodeRecords(raw)
	if err != nil {
		return nil
	}
	return records
}

func (s *Store) actionsRawLocked() []byte {
	if profiles, ok := s.doc[legacyProfiles]; ok {
		var first gjson.Result
		gjson.ParseBytes(profiles).ForEach(func(_, value gjson.Result) bool {
			first = value
			return false
		})
		if first.Exists() {
			return []byte(first.Get(KeyActions).Raw)
		}
	}
	return s.doc[KeyActions]
}

// HasLegacyProfiles reports whether the loaded document still uses the profile layout.
func (s *Store) HasLegacyProfiles() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.doc[legacyProfiles]
	return ok
}

// SaveActions replaces the action list, drops the legacy profile keys and writes the
// document to disk.
func (s *Store) SaveActions(actions []macro.ActionRecord) error {
	if actions == nil {
		actions = []macro.ActionRecord{}
	}
	data, err := json.Marshal(actions)
	if err != nil {
		return fmt.Errorf("failed to encode actions: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc[KeyActions] = data
	delete(s.doc, legacyProfiles)
	delete(s.doc, legacyLastProfile)
	return s.writeLocked()
}

// Bool reads a boolean preference, falling back to def when the key is missing or not a bool.
func (s *Store) Bool(key string, def bool) bool {
	s.mu.Lock()
	raw, ok := s.doc[key]
	s.mu.Unlock()
	if !ok {
		return def
	}
	value := gjson.ParseBytes(raw)
	if value.Type != gjson.True && value.Type != gjson.False {
		return def
	}
	return value.Bool()
}

func (s *Store) String(key, def string) string {
	s.mu.Lock()
	raw, ok := s.doc[key]
	s.mu.Unlock()
	if !ok {
		return def
	}
	value := gjson.ParseBytes(raw)
	if value.Type != gjson.String {
		return def
	}
	return value.String()
}

// Set stores a preference value and writes the document.
func (s *Store) Set(key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc[key] = data
	return s.writeLocked()
}

func (s *Store) writeLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}

	data, err := json.MarshalIndent(s.doc, "", "    ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to persist config: %w", err)
	}
	s.last = data
	return nil
}
