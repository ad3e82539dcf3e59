package plan

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/spotter/pkg/interfaces"
	"github.com/m-mizutani/spotter/pkg/model"
	"github.com/m-mizutani/spotter/pkg/utils/logging"
)

// Reader loads plan blocks and expands circuits into planned sets.
type Reader struct {
	repo interfaces.PlanRepository
}

// NewReader creates a Reader.
func NewReader(repo interfaces.PlanRepository) *Reader {
	return &Reader{repo: repo}
}

// DayPlan returns the blocks of one weekday ordered by order_index.
func (r *Reader) DayPlan(ctx context.Context, day string) ([]*model.PlanBlock, error) {
	canonical, ok := model.CanonicalDay(day)
	if !ok {
		return nil, goerr.Wrap(ErrInvalidDay, "unknown weekday", goerr.V("day", day))
	}

	records, err := r.repo.ListPlanBlocks(ctx, canonical)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read day plan", goerr.V("day", canonical))
	}

	blocks := make([]*model.PlanBlock, 0, len(records))
	for _, rec := range records {
		blocks = append(blocks, DecodeBlock(ctx, rec))
	}
	return blocks, nil
}

// WeeklyPlan returns every day's blocks keyed by weekday name. Days without
// blocks are omitted.
func (r *Reader) WeeklyPlan(ctx context.Context) (map[string][]*model.PlanBlock, error) {
	records, err := r.repo.ListPlanBlocks(ctx, "")
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read weekly plan")
	}

	week := make(map[string][]*model.PlanBlock)
	for _, rec := range records {
		week[rec.Day] = append(week[rec.Day], DecodeBlock(ctx, rec))
	}
	return week, nil
}

// DecodeBlock converts a stored record into a PlanBlock. A circuit whose
// meta or members cannot be decoded is returned as a single block so one
// corrupt row does not break the whole plan.
func DecodeBlock(ctx context.Context, rec *model.PlanBlockRecord) *model.PlanBlock {
	b := &model.PlanBlock{
		ID:           rec.ID,
		Day:          rec.Day,
		BlockType:    model.BlockType(rec.BlockType),
		Label:        rec.Label,
		Exercise:     rec.Exercise,
		OrderIndex:   rec.OrderIndex,
		TargetSets:   rec.TargetSets,
		TargetReps:   rec.TargetReps,
		TargetWeight: rec.TargetWeight,
		UpdatedAt:    rec.UpdatedAt,
	}

	if b.BlockType != model.BlockTypeCircuit {
		b.BlockType = model.BlockTypeSingle
		if b.Exercise == "" {
			b.Exercise = b.Label
		}
		return b
	}

	var meta model.BlockMeta
	var members []model.Member
	metaErr := json.Unmarshal([]byte(defaultString(rec.Meta, "{}")), &meta)
	membersErr := json.Unmarshal([]byte(defaultString(rec.Members, "[]")), &members)
	if metaErr != nil || membersErr != nil || len(members) == 0 {
		logging.From(ctx).Warn("circuit block is malformed, treating as single",
			"block_id", rec.ID, "meta_error", metaErr, "members_error", membersErr)
		b.BlockType = model.BlockTypeSingle
		if b.Exercise == "" {
			b.Exercise = b.Label
		}
		return b
	}

	if meta.Rounds < 1 {
		meta.Rounds = 1
	}
	b.Meta = meta
	b.Members = members
	b.PlannedSets = ExpandPlannedSets(b)
	return b
}

// EncodeBlock converts a PlanBlock into its stored form.
func EncodeBlock(b *model.PlanBlock) (*model.PlanBlockRecord, error) {
	meta, err := json.Marshal(b.Meta)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal block meta")
	}
	members := []byte("[]")
	if len(b.Members) > 0 {
		if members, err = json.Marshal(b.Members); err != nil {
			return nil, goerr.Wrap(err, "failed to marshal block members")
		}
	}

	return &model.PlanBlockRecord{
		ID:           b.ID,
		Day:          b.Day,
		BlockType:    string(b.BlockType),
		Label:        b.Label,
		Exercise:     b.Exercise,
		OrderIndex:   b.OrderIndex,
		TargetSets:   b.TargetSets,
		TargetReps:   b.TargetReps,
		TargetWeight: b.TargetWeight,
		Meta:         string(meta),
		Members:      string(members),
	}, nil
}

// ExpandPlannedSets lists rounds x members expected sets, round by round.
func ExpandPlannedSets(b *model.PlanBlock) []model.PlannedSet {
	if !b.IsCircuit() || len(b.Members) == 0 {
		return nil
	}
	rounds := b.Meta.Rounds
	if rounds < 1 {
		rounds = 1
	}

	sets := make([]model.PlannedSet, 0, rounds*len(b.Members))
	for r := 0; r < rounds; r++ {
		for m, member := range b.Members {
			sets = append(sets, model.PlannedSet{
				Exercise:  member.Exercise,
				MemberIdx: m,
				SetIdx:    r,
				Reps:      member.Reps,
				Weight:    member.Weight,
				Tempo:     member.Tempo,
				Status:    model.PlannedSetStatus,
			})
		}
	}
	return sets
}

func defaultString(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
