// Package store persists Zoom OAuth connection records.
//
// All records live in a single JSON document on disk keyed by the Zoom user
// id. Every operation is a whole-file read-modify-write guarded by a
// process-local mutex; concurrent writers in other processes are
// last-writer-wins. That is acceptable at this write volume (one OAuth
// exchange and occasional webhook events per user) and is a documented
// limitation, not a bug to fix here.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"sync"
)

// ErrNotFound is returned when no record exists for the requested user.
var ErrNotFound = errors.New("not found")

const dbFileName = "users.json"

// Record is the connection document returned by the Attendee API. The relay
// never interprets its contents beyond the reconciler's status fields.
type Record = map[string]any

// statusFields are the only keys a webhook merge may overwrite.
var statusFields = []string{
	"state",
	"last_attempted_sync_at",
	"last_successful_sync_at",
	"connection_failure_data",
}

// Store is a JSON-document store of connection records.
type Store struct {
	mu   sync.Mutex
	path string
}

// Open prepares a store rooted at dataDir, creating the directory if needed.
func Open(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return &Store{path: filepath.Join(dataDir, dbFileName)}, nil
}

// Put stores record under userID, replacing any existing record. A repeat
// OAuth exchange for the same user is a fresh authorization, so a full
// overwrite is the intended semantics.
func (s *Store) Put(userID string, record Record) error {
	if userID == "" {
		return errors.New("empty user id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.read()
	if err != nil {
		return err
	}
	all[userID] = record
	return s.write(all)
}

// Get returns the record for userID, or ErrNotFound.
func (s *Store) Get(userID string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.read()
	if err != nil {
		return nil, err
	}
	rec, ok := all[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return rec, nil
}

// List returns the full mapping of user id to record. Debug/admin use only.
func (s *Store) List() (map[string]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

// StatusPatch carries the connection status fields reported by a webhook.
// Values are stored as-is, including explicit nulls.
type StatusPatch struct {
	State                 any `json:"state"`
	LastAttemptedSyncAt   any `json:"last_attempted_sync_at"`
	LastSuccessfulSyncAt  any `json:"last_successful_sync_at"`
	ConnectionFailureData any `json:"connection_failure_data"`
}

func (p StatusPatch) fields() map[string]any {
	return map[string]any{
		"state":                   p.State,
		"last_attempted_sync_at":  p.LastAttemptedSyncAt,
		"last_successful_sync_at": p.LastSuccessfulSyncAt,
		"connection_failure_data": p.ConnectionFailureData,
	}
}

// Merge overlays the status fields of patch onto the existing record for
// userID and writes the result back. Every other field of the stored record
// is preserved. Returns ErrNotFound if no record exists; a merge never
// creates one, since a webhook carries only a status delta, not a full
// connection payload.
func (s *Store) Merge(userID string, patch StatusPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.read()
	if err != nil {
		return err
	}
	prev, ok := all[userID]
	if !ok {
		return ErrNotFound
	}

	merged := make(Record, len(prev)+len(statusFields))
	maps.Copy(merged, prev)
	for k, v := range patch.fields() {
		merged[k] = v
	}

	all[userID] = merged
	return s.write(all)
}

func (s *Store) read() (map[string]Record, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading store: %w", err)
	}
	var all map[string]Record
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("decoding store: %w", err)
	}
	if all == nil {
		all = map[string]Record{}
	}
	return all, nil
}

// write serializes the full document to a temp file and renames it into
// place, so a crash mid-write cannot truncate the store.
func (s *Store) write(all map[string]Record) error {
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding store: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), dbFileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("writing store: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing store: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing store: %w", err)
	}
	return nil
}
