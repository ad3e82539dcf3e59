package model

import (
	"time"

	"github.com/google/uuid"
)

type TurnID string

// NewTurnID generates a new unique TurnID
func NewTurnID() TurnID {
	return TurnID(uuid.New().String())
}

type EpisodeID string

// NewEpisodeID generates a new unique EpisodeID
func NewEpisodeID() EpisodeID {
	return EpisodeID(uuid.New().String())
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one user/assistant exchange kept in the bounded short-term window.
type Turn struct {
	ID            TurnID
	UserText      string
	AssistantText string
	CreatedAt     time.Time
}

// Episode is a single utterance kept forever for keyword recall.
type Episode struct {
	ID        EpisodeID `json:"id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// PinnedFact is a durable key/value fact about the user.
type PinnedFact struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Sticky context keys.
const (
	ContextLastComparison = "last_comparison"
	ContextLastLogsQuery  = "last_logs_query"
)

// QueryContext records the parameters of the most recent query of a kind so
// follow-up questions can omit them.
type QueryContext struct {
	Key       string
	Value     map[string]any
	UpdatedAt time.Time
}
