package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type BlockID string

// NewBlockID generates a new unique BlockID
func NewBlockID() BlockID {
	return BlockID(uuid.New().String())
}

type BlockType string

const (
	BlockTypeSingle  BlockType = "single"
	BlockTypeCircuit BlockType = "circuit"
)

// Weekdays lists canonical day names in calendar order starting on Monday.
var Weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// CanonicalDay returns the capitalized weekday name for s, or false if s is
// not a day name or three-letter abbreviation (case-insensitive).
func CanonicalDay(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, d := range Weekdays {
		if strings.EqualFold(d, s) || (len(s) == 3 && strings.EqualFold(d[:3], s)) {
			return d, true
		}
	}
	return "", false
}

// BlockMeta carries circuit parameters.
type BlockMeta struct {
	Rounds      int `json:"rounds,omitempty" yaml:"rounds,omitempty"`
	RestSeconds int `json:"rest_seconds,omitempty" yaml:"rest_seconds,omitempty"`
}

// Member is one exercise inside a circuit.
type Member struct {
	Exercise string `json:"exercise" yaml:"exercise"`
	Reps     string `json:"reps,omitempty" yaml:"reps,omitempty"`
	Weight   string `json:"weight,omitempty" yaml:"weight,omitempty"`
	Tempo    string `json:"tempo,omitempty" yaml:"tempo,omitempty"`
}

// PlannedSet is a single expected set derived from a circuit block.
type PlannedSet struct {
	Exercise  string `json:"exercise"`
	MemberIdx int    `json:"member_idx"`
	SetIdx    int    `json:"set_idx"`
	Reps      string `json:"reps,omitempty"`
	Weight    string `json:"weight,omitempty"`
	Tempo     string `json:"tempo,omitempty"`
	Status    string `json:"status"`
}

const PlannedSetStatus = "planned"

// PlanBlock is a unit of a day's plan: a single exercise or a circuit.
type PlanBlock struct {
	ID           BlockID      `json:"id,omitempty" yaml:"-"`
	Day          string       `json:"day,omitempty" yaml:"-"`
	BlockType    BlockType    `json:"block_type" yaml:"block_type"`
	Label        string       `json:"label,omitempty" yaml:"label,omitempty"`
	Exercise     string       `json:"exercise,omitempty" yaml:"exercise,omitempty"`
	OrderIndex   int          `json:"order_index" yaml:"order_index,omitempty"`
	TargetSets   int          `json:"target_sets,omitempty" yaml:"target_sets,omitempty"`
	TargetReps   string       `json:"target_reps,omitempty" yaml:"target_reps,omitempty"`
	TargetWeight string       `json:"target_weight,omitempty" yaml:"target_weight,omitempty"`
	Meta         BlockMeta    `json:"meta" yaml:"meta,omitempty"`
	Members      []Member     `json:"members,omitempty" yaml:"members,omitempty"`
	PlannedSets  []PlannedSet `json:"planned_sets,omitempty" yaml:"-"`
	UpdatedAt    time.Time    `json:"-" yaml:"-"`
}

// IsCircuit reports whether the block is a circuit.
func (b *PlanBlock) IsCircuit() bool {
	return b.BlockType == BlockTypeCircuit
}

// PlanBlockRecord is the persisted form of a PlanBlock. Meta and Members are
// stored as JSON text and decoded by the plan reader.
type PlanBlockRecord struct {
	ID           BlockID
	Day          string
	BlockType    string
	Label        string
	Exercise     string
	OrderIndex   int
	TargetSets   int
	TargetReps   string
	TargetWeight string
	Meta         string
	Members      string
	UpdatedAt    time.Time
}
