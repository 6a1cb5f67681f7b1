package store

import (
	"encoding/json"
	"os"
	"time"
)

// Event type constants for the plan journal.
const (
	EventPlanCreated       = "plan_created"
	EventStepStatusChanged = "step_status_changed"
	EventPlanUpdated       = "plan_updated"
	EventPlanFinalized     = "plan_finalized"
	EventPlanDeleted       = "plan_deleted"
)

// JournalEvent is a single journal entry.
type JournalEvent struct {
	Timestamp time.Time      `json:"timestamp"`
	Event     string         `json:"event"`
	Data      map[string]any `json:"data,omitempty"`
}

// Journal appends plan lifecycle events to a JSON Lines file. A nil Journal
// is valid and drops everything, so callers never have to guard.
type Journal struct {
	path string
}

// NewJournal creates a journal writing to the given path.
func NewJournal(path string) *Journal {
	return &Journal{path: path}
}

// Log appends an event to the journal file. Journal failures are returned but
// never block plan mutations; callers may ignore them.
func (j *Journal) Log(event string, data map[string]any) error {
	if j == nil {
		return nil
	}

	entry := JournalEvent{
		Timestamp: time.Now(),
		Event:     event,
		Data:      data,
	}
	jsonBytes, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	jsonBytes = append(jsonBytes, '\n')

	f, err := os.OpenFile(j.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write(jsonBytes)
	return err
}
