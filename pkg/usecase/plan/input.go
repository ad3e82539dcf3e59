package plan

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/spotter/pkg/model"
)

// FlexString accepts either a JSON string or a JSON number, since models
// often send reps as 8 instead of "8".
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return goerr.Wrap(err, "failed to decode string value")
		}
		*f = FlexString(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return goerr.Wrap(err, "value must be a string or number", goerr.V("value", string(data)))
	}
	if i, err := n.Int64(); err == nil {
		*f = FlexString(strconv.FormatInt(i, 10))
		return nil
	}
	*f = FlexString(n.String())
	return nil
}

// MemberInput is a circuit member as supplied by a caller.
type MemberInput struct {
	Exercise string     `json:"exercise" yaml:"exercise"`
	Reps     FlexString `json:"reps,omitempty" yaml:"reps,omitempty"`
	Weight   FlexString `json:"weight,omitempty" yaml:"weight,omitempty"`
	Tempo    string     `json:"tempo,omitempty" yaml:"tempo,omitempty"`
}

// BlockInput is an unnormalized block description from the model, the CLI
// or a seed file. Target fields identify an existing block for update and
// remove.
type BlockInput struct {
	ID           string        `json:"id,omitempty" yaml:"id,omitempty"`
	Target       string        `json:"target,omitempty" yaml:"target,omitempty"`
	BlockType    string        `json:"block_type,omitempty" yaml:"block_type,omitempty"`
	Type         string        `json:"type,omitempty" yaml:"type,omitempty"`
	Label        string        `json:"label,omitempty" yaml:"label,omitempty"`
	Exercise     string        `json:"exercise,omitempty" yaml:"exercise,omitempty"`
	OrderIndex   *int          `json:"order_index,omitempty" yaml:"order_index,omitempty"`
	TargetSets   int           `json:"target_sets,omitempty" yaml:"target_sets,omitempty"`
	TargetReps   FlexString    `json:"target_reps,omitempty" yaml:"target_reps,omitempty"`
	TargetWeight FlexString    `json:"target_weight,omitempty" yaml:"target_weight,omitempty"`
	Sets         int           `json:"sets,omitempty" yaml:"sets,omitempty"`
	Reps         FlexString    `json:"reps,omitempty" yaml:"reps,omitempty"`
	Weight       FlexString    `json:"weight,omitempty" yaml:"weight,omitempty"`
	Rounds       *int          `json:"rounds,omitempty" yaml:"rounds,omitempty"`
	RestSeconds  int           `json:"rest_seconds,omitempty" yaml:"rest_seconds,omitempty"`
	Members      []MemberInput `json:"members,omitempty" yaml:"members,omitempty"`
}

// TargetName returns the label used to find an existing block.
func (in *BlockInput) TargetName() string {
	for _, s := range []string{in.Target, in.Label, in.Exercise} {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

// NormalizeBlock validates in and fills defaults: block type single unless
// members are given, "complex" and "rounds" as circuit aliases, one round,
// and a label derived from the exercise or "Circuit".
func NormalizeBlock(in *BlockInput) (*model.PlanBlock, error) {
	if in == nil {
		return nil, goerr.Wrap(ErrInvalidBlock, "block is required")
	}

	kind := strings.ToLower(strings.TrimSpace(in.BlockType))
	if kind == "" {
		kind = strings.ToLower(strings.TrimSpace(in.Type))
	}
	switch kind {
	case "":
		if len(in.Members) > 0 {
			kind = string(model.BlockTypeCircuit)
		} else {
			kind = string(model.BlockTypeSingle)
		}
	case "complex", "rounds":
		kind = string(model.BlockTypeCircuit)
	case string(model.BlockTypeSingle), string(model.BlockTypeCircuit):
	default:
		return nil, goerr.Wrap(ErrInvalidBlock, "unsupported block type", goerr.V("block_type", kind))
	}

	b := &model.PlanBlock{
		BlockType:    model.BlockType(kind),
		Label:        strings.TrimSpace(in.Label),
		Exercise:     strings.TrimSpace(in.Exercise),
		TargetSets:   firstNonZero(in.TargetSets, in.Sets),
		TargetReps:   firstNonEmpty(string(in.TargetReps), string(in.Reps)),
		TargetWeight: firstNonEmpty(string(in.TargetWeight), string(in.Weight)),
	}
	if in.OrderIndex != nil {
		b.OrderIndex = *in.OrderIndex
	}
	if b.TargetSets < 0 {
		return nil, goerr.Wrap(ErrInvalidBlock, "target sets must not be negative", goerr.V("target_sets", b.TargetSets))
	}

	if b.BlockType == model.BlockTypeSingle {
		if b.Exercise == "" {
			b.Exercise = b.Label
		}
		if b.Exercise == "" {
			return nil, goerr.Wrap(ErrInvalidBlock, "single block requires an exercise")
		}
		if b.Label == "" {
			b.Label = b.Exercise
		}
		return b, nil
	}

	rounds := 1
	if in.Rounds != nil {
		rounds = *in.Rounds
	}
	if rounds < 1 {
		return nil, goerr.Wrap(ErrInvalidBlock, "rounds must be at least 1", goerr.V("rounds", rounds))
	}
	if len(in.Members) == 0 {
		return nil, goerr.Wrap(ErrInvalidBlock, "circuit block requires at least one member")
	}
	for i, m := range in.Members {
		name := strings.TrimSpace(m.Exercise)
		if name == "" {
			return nil, goerr.Wrap(ErrInvalidBlock, "circuit member requires an exercise", goerr.V("member_idx", i))
		}
		b.Members = append(b.Members, model.Member{
			Exercise: name,
			Reps:     string(m.Reps),
			Weight:   string(m.Weight),
			Tempo:    m.Tempo,
		})
	}
	if in.RestSeconds < 0 {
		return nil, goerr.Wrap(ErrInvalidBlock, "rest seconds must not be negative")
	}

	b.Meta = model.BlockMeta{Rounds: rounds, RestSeconds: in.RestSeconds}
	b.Exercise = ""
	if b.Label == "" {
		b.Label = "Circuit"
	}
	b.PlannedSets = ExpandPlannedSets(b)
	return b, nil
}

func firstNonZero(values ...int) int {
	for _, v := range values {
		if v != 0 {
			return v
		}
	}
	return 0
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
