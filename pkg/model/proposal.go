package model

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

type ProposalID string

// NewProposalID generates a new time-ordered ProposalID
func NewProposalID() ProposalID {
	return ProposalID(ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String())
}

type Action string

const (
	ActionAddBlock    Action = "add_block"
	ActionUpdateBlock Action = "update_block"
	ActionRemoveBlock Action = "remove_block"
)

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	switch a {
	case ActionAddBlock, ActionUpdateBlock, ActionRemoveBlock:
		return true
	}
	return false
}

// Proposal is a validated, not yet applied plan change.
type Proposal struct {
	ID          ProposalID `firestore:"id"`
	Day         string     `firestore:"day"`
	Action      Action     `firestore:"action"`
	Block       *PlanBlock `firestore:"-"`
	BlockJSON   string     `firestore:"block"`
	TargetID    BlockID    `firestore:"target_id"`
	TargetLabel string     `firestore:"target_label"`
	InsertAt    *int       `firestore:"insert_at"`
	CreatedAt   time.Time  `firestore:"created_at"`
}
