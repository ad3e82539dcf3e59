package plan

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/spotter/pkg/interfaces"
	"github.com/m-mizutani/spotter/pkg/model"
	"github.com/m-mizutani/spotter/pkg/utils/logging"
)

// DefaultProposalTTL bounds how long an uncommitted proposal stays valid.
const DefaultProposalTTL = 30 * time.Minute

// ProposeInput is a requested plan change.
type ProposeInput struct {
	Day    string      `json:"day"`
	Action string      `json:"action"`
	Block  *BlockInput `json:"block"`
}

// ProposeOutput is what the caller sees before deciding to commit.
type ProposeOutput struct {
	ProposalID      model.ProposalID `json:"proposal_id"`
	Summary         string           `json:"summary"`
	NormalizedBlock *model.PlanBlock `json:"normalized_block,omitempty"`
	Action          model.Action     `json:"action"`
	Day             string           `json:"day"`
	TargetLabel     string           `json:"target_label,omitempty"`
}

// CommitOutput is the confirmed result of applying a proposal.
type CommitOutput struct {
	Status      string             `json:"status"`
	Action      model.Action       `json:"action"`
	Day         string             `json:"day"`
	BlockID     model.BlockID      `json:"block_id,omitempty"`
	Removed     int                `json:"removed"`
	Wrote       bool               `json:"wrote"`
	UpdatedPlan []*model.PlanBlock `json:"updated_plan"`
}

// Planner implements the two phase propose/commit protocol. Plan rows are
// only written by Commit.
type Planner struct {
	repo   interfaces.PlanRepository
	store  interfaces.ProposalStore
	reader *Reader
	ttl    time.Duration
	now    func() time.Time
	policy PolicyChecker
}

// PolicyChecker decides whether a proposed change is allowed. It returns the
// reasons a change is denied, or none when it is allowed.
type PolicyChecker interface {
	Check(ctx context.Context, input any) ([]string, error)
}

type PlannerOption func(*Planner)

// WithProposalTTL sets the proposal lifetime. Zero or less disables expiry.
func WithProposalTTL(ttl time.Duration) PlannerOption {
	return func(p *Planner) {
		p.ttl = ttl
	}
}

// WithPlannerClock overrides the clock used for proposal expiry.
func WithPlannerClock(now func() time.Time) PlannerOption {
	return func(p *Planner) {
		p.now = now
	}
}

// WithPolicy rejects proposals that checker denies.
func WithPolicy(checker PolicyChecker) PlannerOption {
	return func(p *Planner) {
		p.policy = checker
	}
}

// NewPlanner creates a Planner.
func NewPlanner(repo interfaces.PlanRepository, store interfaces.ProposalStore, opts ...PlannerOption) *Planner {
	p := &Planner{
		repo:   repo,
		store:  store,
		reader: NewReader(repo),
		ttl:    DefaultProposalTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Propose validates and normalizes a change and stores it as a pending
// proposal. No plan row is touched.
func (p *Planner) Propose(ctx context.Context, input ProposeInput) (*ProposeOutput, error) {
	day, ok := model.CanonicalDay(input.Day)
	if !ok {
		return nil, goerr.Wrap(ErrInvalidDay, "day must be a weekday name", goerr.V("day", input.Day))
	}
	action := model.Action(strings.ToLower(strings.TrimSpace(input.Action)))
	if !action.Valid() {
		return nil, goerr.Wrap(ErrInvalidAction, "action must be add_block, update_block or remove_block",
			goerr.V("action", input.Action))
	}

	proposal := &model.Proposal{
		ID:        model.NewProposalID(),
		Day:       day,
		Action:    action,
		CreatedAt: p.now(),
	}

	switch action {
	case model.ActionRemoveBlock:
		if input.Block == nil {
			return nil, goerr.Wrap(ErrInvalidBlock, "remove_block requires a block id or label")
		}
		proposal.TargetID = model.BlockID(strings.TrimSpace(input.Block.ID))
		proposal.TargetLabel = input.Block.TargetName()
		if proposal.TargetID == "" && proposal.TargetLabel == "" {
			return nil, goerr.Wrap(ErrInvalidBlock, "remove_block requires a block id or label")
		}

	case model.ActionAddBlock, model.ActionUpdateBlock:
		block, err := NormalizeBlock(input.Block)
		if err != nil {
			return nil, err
		}
		block.Day = day
		proposal.Block = block
		if input.Block.OrderIndex != nil {
			idx := *input.Block.OrderIndex
			proposal.InsertAt = &idx
		}

		if action == model.ActionUpdateBlock {
			proposal.TargetID = model.BlockID(strings.TrimSpace(input.Block.ID))
			proposal.TargetLabel = firstNonEmpty(input.Block.Target, block.Label)
		}
	}

	if err := p.checkPolicy(ctx, proposal); err != nil {
		return nil, err
	}

	if err := p.store.PutProposal(ctx, proposal); err != nil {
		return nil, goerr.Wrap(err, "failed to store proposal", goerr.V("proposal_id", proposal.ID))
	}

	logging.From(ctx).Debug("plan change proposed", "proposal_id", proposal.ID, "action", action, "day", day)

	return &ProposeOutput{
		ProposalID:      proposal.ID,
		Summary:         Summarize(proposal),
		NormalizedBlock: proposal.Block,
		Action:          action,
		Day:             day,
		TargetLabel:     proposal.TargetLabel,
	}, nil
}

func (p *Planner) checkPolicy(ctx context.Context, proposal *model.Proposal) error {
	if p.policy == nil {
		return nil
	}

	current, err := p.reader.DayPlan(ctx, proposal.Day)
	if err != nil {
		return err
	}

	reasons, err := p.policy.Check(ctx, map[string]any{
		"proposal": map[string]any{
			"id":           proposal.ID,
			"day":          proposal.Day,
			"action":       proposal.Action,
			"block":        proposal.Block,
			"target_id":    proposal.TargetID,
			"target_label": proposal.TargetLabel,
		},
		"plan": current,
	})
	if err != nil {
		return goerr.Wrap(err, "failed to check plan policy", goerr.V("proposal_id", proposal.ID))
	}
	if len(reasons) > 0 {
		logging.From(ctx).Info("plan change denied by policy", "day", proposal.Day, "reasons", reasons)
		return &PolicyError{Reasons: reasons}
	}
	return nil
}

// Commit applies a stored proposal in one transaction. On success the
// proposal is consumed; on failure it stays so the same id can be retried.
func (p *Planner) Commit(ctx context.Context, id model.ProposalID) (*CommitOutput, error) {
	proposal, err := p.store.GetProposal(ctx, id)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load proposal", goerr.V("proposal_id", id))
	}
	if proposal == nil {
		return nil, goerr.Wrap(ErrProposalNotFound, "proposal does not exist or was already committed", goerr.V("proposal_id", id))
	}
	if p.ttl > 0 && p.now().Sub(proposal.CreatedAt) > p.ttl {
		if err := p.store.DeleteProposal(ctx, id); err != nil {
			logging.From(ctx).Warn("failed to delete expired proposal", "error", err, "proposal_id", id)
		}
		return nil, goerr.Wrap(ErrProposalNotFound, "proposal expired", goerr.V("proposal_id", id))
	}

	out := &CommitOutput{
		Status: "ok",
		Action: proposal.Action,
		Day:    proposal.Day,
	}

	err = p.repo.ApplyPlanChange(ctx, func(ctx context.Context, tx interfaces.PlanTx) error {
		switch proposal.Action {
		case model.ActionRemoveBlock:
			removed, err := removeBlocks(ctx, tx, proposal)
			if err != nil {
				return err
			}
			out.Removed = removed
			out.Wrote = removed > 0

		case model.ActionAddBlock:
			blockID, err := addBlock(ctx, tx, proposal)
			if err != nil {
				return err
			}
			out.BlockID = blockID
			out.Wrote = true

		case model.ActionUpdateBlock:
			blockID, err := updateBlock(ctx, tx, proposal)
			if err != nil {
				return err
			}
			out.BlockID = blockID
			out.Wrote = true

		default:
			return goerr.Wrap(ErrInvalidAction, "stored proposal has unknown action", goerr.V("action", proposal.Action))
		}

		return compact(ctx, tx, proposal.Day)
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to commit proposal", goerr.V("proposal_id", id))
	}

	if err := p.store.DeleteProposal(ctx, id); err != nil {
		logging.From(ctx).Warn("failed to delete committed proposal", "error", err, "proposal_id", id)
	}

	updated, err := p.reader.DayPlan(ctx, proposal.Day)
	if err != nil {
		logging.From(ctx).Warn("failed to re-read plan after commit", "error", err, "day", proposal.Day)
	}
	out.UpdatedPlan = updated

	logging.From(ctx).Info("plan change committed",
		"proposal_id", id, "action", proposal.Action, "day", proposal.Day, "wrote", out.Wrote)
	return out, nil
}

func matchesTarget(rec *model.PlanBlockRecord, targetID model.BlockID, label string) bool {
	if targetID != "" {
		return rec.ID == targetID
	}
	return label != "" && (strings.EqualFold(strings.TrimSpace(rec.Label), label) ||
		strings.EqualFold(strings.TrimSpace(rec.Exercise), label))
}

func removeBlocks(ctx context.Context, tx interfaces.PlanTx, proposal *model.Proposal) (int, error) {
	records, err := tx.ListPlanBlocks(ctx, proposal.Day)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, rec := range records {
		if !matchesTarget(rec, proposal.TargetID, proposal.TargetLabel) {
			continue
		}
		n, err := tx.DeletePlanBlock(ctx, rec.ID)
		if err != nil {
			return 0, err
		}
		removed += n
	}
	return removed, nil
}

func addBlock(ctx context.Context, tx interfaces.PlanTx, proposal *model.Proposal) (model.BlockID, error) {
	records, err := tx.ListPlanBlocks(ctx, proposal.Day)
	if err != nil {
		return "", err
	}

	pos := len(records)
	if proposal.InsertAt != nil {
		pos = max(0, min(*proposal.InsertAt, len(records)))
		// Open a slot by pushing later blocks down one position.
		for i := pos; i < len(records); i++ {
			if err := tx.SetOrderIndex(ctx, records[i].ID, i+1); err != nil {
				return "", err
			}
		}
	}

	block := *proposal.Block
	block.ID = model.NewBlockID()
	block.Day = proposal.Day
	block.OrderIndex = pos

	rec, err := EncodeBlock(&block)
	if err != nil {
		return "", err
	}
	if err := tx.InsertPlanBlock(ctx, rec); err != nil {
		return "", err
	}
	return block.ID, nil
}

func updateBlock(ctx context.Context, tx interfaces.PlanTx, proposal *model.Proposal) (model.BlockID, error) {
	records, err := tx.ListPlanBlocks(ctx, proposal.Day)
	if err != nil {
		return "", err
	}

	var target *model.PlanBlockRecord
	for _, rec := range records {
		if matchesTarget(rec, proposal.TargetID, proposal.TargetLabel) {
			target = rec
			break
		}
	}
	if target == nil {
		return "", goerr.Wrap(ErrBlockNotFound, "no block matches the update target",
			goerr.V("day", proposal.Day), goerr.V("target_id", proposal.TargetID), goerr.V("target_label", proposal.TargetLabel))
	}

	block := *proposal.Block
	block.ID = target.ID
	block.Day = proposal.Day
	block.OrderIndex = target.OrderIndex
	if proposal.InsertAt != nil {
		// Moving a block later must skip past its own old slot.
		block.OrderIndex = *proposal.InsertAt
		if block.OrderIndex > target.OrderIndex {
			block.OrderIndex++
		}
		for _, rec := range records {
			if rec.ID != target.ID && rec.OrderIndex >= block.OrderIndex {
				if err := tx.SetOrderIndex(ctx, rec.ID, rec.OrderIndex+1); err != nil {
					return "", err
				}
			}
		}
	}

	rec, err := EncodeBlock(&block)
	if err != nil {
		return "", err
	}
	if err := tx.UpdatePlanBlock(ctx, rec); err != nil {
		return "", err
	}
	return block.ID, nil
}

// compact renumbers the day's blocks to 0..n-1 keeping their relative order.
func compact(ctx context.Context, tx interfaces.PlanTx, day string) error {
	records, err := tx.ListPlanBlocks(ctx, day)
	if err != nil {
		return err
	}
	for i, rec := range records {
		if rec.OrderIndex == i {
			continue
		}
		if err := tx.SetOrderIndex(ctx, rec.ID, i); err != nil {
			return err
		}
	}
	return nil
}

// Summarize describes a proposal in one line for confirmation prompts.
func Summarize(p *model.Proposal) string {
	switch p.Action {
	case model.ActionRemoveBlock:
		target := p.TargetLabel
		if target == "" {
			target = string(p.TargetID)
		}
		return fmt.Sprintf("Remove %q from %s", target, p.Day)
	case model.ActionAddBlock:
		return fmt.Sprintf("Add %s to %s", describeBlock(p.Block), p.Day)
	case model.ActionUpdateBlock:
		target := p.TargetLabel
		if target == "" {
			target = string(p.TargetID)
		}
		return fmt.Sprintf("Update %q on %s to %s", target, p.Day, describeBlock(p.Block))
	}
	return string(p.Action)
}

func describeBlock(b *model.PlanBlock) string {
	if b == nil {
		return ""
	}
	if !b.IsCircuit() {
		detail := describe(b.TargetSets, b.TargetReps, b.TargetWeight)
		if detail == "" {
			return fmt.Sprintf("%q", b.Label)
		}
		return fmt.Sprintf("%q (%s)", b.Label, detail)
	}

	names := make([]string, 0, len(b.Members))
	for _, m := range b.Members {
		names = append(names, m.Exercise)
	}
	return fmt.Sprintf("circuit %q (%d rounds: %s)", b.Label, b.Meta.Rounds, strings.Join(names, ", "))
}
