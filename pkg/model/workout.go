package model

import (
	"time"

	"github.com/google/uuid"
)

type LogID string

// NewLogID generates a new unique LogID
func NewLogID() LogID {
	return LogID(uuid.New().String())
}

// DateLayout is the canonical calendar date format for log entries.
const DateLayout = "2006-01-02"

// LogEntry is one recorded exercise performance. Entries are append-only.
type LogEntry struct {
	ID        LogID     `json:"id"`
	Exercise  string    `json:"exercise"`
	Sets      int       `json:"sets"`
	Reps      string    `json:"reps"`
	Weight    string    `json:"weight"`
	Date      string    `json:"date"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"-"`
}
