package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jonathan/chat-exporter/internal/export"
)

const (
	runStateKey = "export_state"
	destDirKey  = "destination_dir"
)

// RunStore persists the single export-state snapshot. It implements
// export.Store.
type RunStore struct {
	db *DB
}

// NewRunStore creates a RunStore on the shared database.
func NewRunStore(db *DB) *RunStore {
	return &RunStore{db: db}
}

// Load returns the persisted state, or nil when no run has been recorded.
func (s *RunStore) Load(ctx context.Context) (*export.State, error) {
	raw, err := s.db.Get(ctx, runStateKey)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	var st export.State
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("corrupt run state: %w", err)
	}
	if err := st.Validate(); err != nil {
		return nil, fmt.Errorf("corrupt run state: %w", err)
	}
	return &st, nil
}

// Save persists the snapshot.
func (s *RunStore) Save(ctx context.Context, st *export.State) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to encode run state: %w", err)
	}
	return s.db.Put(ctx, runStateKey, raw)
}

// Reset clears the snapshot, leaving nothing in flight.
func (s *RunStore) Reset(ctx context.Context) error {
	return s.db.Delete(ctx, runStateKey)
}

// HandleStore persists the user-chosen destination directory across
// sessions, the CLI analog of a persisted directory handle.
type HandleStore struct {
	db *DB
}

// NewHandleStore creates a HandleStore on the shared database.
func NewHandleStore(db *DB) *HandleStore {
	return &HandleStore{db: db}
}

// Get returns the persisted destination path, or "" when none is stored.
func (h *HandleStore) Get(ctx context.Context) (string, error) {
	raw, err := h.db.Get(ctx, destDirKey)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// Put records the destination path.
func (h *HandleStore) Put(ctx context.Context, path string) error {
	return h.db.Put(ctx, destDirKey, []byte(path))
}

// Delete forgets the destination path.
func (h *HandleStore) Delete(ctx context.Context) error {
	return h.db.Delete(ctx, destDirKey)
}
