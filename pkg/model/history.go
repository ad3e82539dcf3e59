package model

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
	"google.golang.org/genai"
)

type TranscriptID string

// NewTranscriptID generates a new time-ordered TranscriptID
func NewTranscriptID() TranscriptID {
	return TranscriptID(ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String())
}

// Message is one prior chat message supplied by the caller.
type Message struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Transcript is the full model exchange of one agent turn, kept for audit.
type Transcript struct {
	ID        TranscriptID     `json:"id"`
	Message   string           `json:"message"`
	Response  string           `json:"response"`
	ToolsUsed []string         `json:"tools_used"`
	Success   bool             `json:"success"`
	CreatedAt time.Time        `json:"created_at"`
	Contents  []*genai.Content `json:"contents"`
}
