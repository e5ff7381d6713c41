// Package export runs the bulk-export state machine: discover the
// conversations, convert them one by one, then finalize the collected
// results to disk. Every transition is persisted before the action it
// precedes, so a crashed or interrupted run resumes where it left off.
package export

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/jonathan/chat-exporter/internal/types"
)

// Mode is the phase of an export run.
type Mode string

const (
	// ModeInitializing is set before the source page has been reached.
	ModeInitializing Mode = "initializing"
	// ModeScanning means the conversation list is being collected.
	ModeScanning Mode = "scanning"
	// ModeProcessing means queued conversations are being converted.
	ModeProcessing Mode = "processing"
	// ModeFinished means all queued conversations have been visited and
	// the results are awaiting finalization.
	ModeFinished Mode = "finished"
)

var validModes = map[Mode]bool{
	ModeInitializing: true,
	ModeScanning:     true,
	ModeProcessing:   true,
	ModeFinished:     true,
}

// ConversionError records one conversation that failed during processing.
// A failed conversation does not stop the run.
type ConversionError struct {
	ConversationID string `json:"conversation_id"`
	Title          string `json:"title"`
	Message        string `json:"message"`
}

// State is the persisted snapshot of an export run. It is written before
// every navigation so that a restarted process can pick the run back up.
type State struct {
	RunID        string                        `json:"run_id" validate:"required"`
	Mode         Mode                          `json:"mode" validate:"required"`
	IsRunning    bool                          `json:"is_running"`
	ProjectID    string                        `json:"project_id,omitempty"`
	Queue        []types.ConversationRef       `json:"queue"`
	CurrentIndex int                           `json:"current_index" validate:"gte=0"`
	Results      map[string]types.ExportResult `json:"results"`
	Errors       []ConversionError             `json:"errors"`
	Settings     types.Settings                `json:"settings"`
}

var validate = validator.New()

// NewState creates a fresh run snapshot. Settings are frozen into the
// state here; later configuration changes do not affect a run in flight.
func NewState(projectID string, settings types.Settings) *State {
	return &State{
		RunID:     uuid.New().String(),
		Mode:      ModeInitializing,
		IsRunning: true,
		ProjectID: projectID,
		Results:   make(map[string]types.ExportResult),
		Settings:  settings,
	}
}

// Validate checks structural integrity of a snapshot, typically one just
// loaded from the store.
func (s *State) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid run state: %w", err)
	}
	if !validModes[s.Mode] {
		return fmt.Errorf("invalid run state: unknown mode %q", s.Mode)
	}
	if s.CurrentIndex > len(s.Queue) {
		return fmt.Errorf("invalid run state: index %d beyond queue of %d", s.CurrentIndex, len(s.Queue))
	}
	return nil
}

// Remaining is the number of queued conversations not yet visited.
func (s *State) Remaining() int {
	if s.CurrentIndex >= len(s.Queue) {
		return 0
	}
	return len(s.Queue) - s.CurrentIndex
}
