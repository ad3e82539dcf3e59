package interfaces

import (
	"context"

	"github.com/m-mizutani/spotter/pkg/model"
)

// PlanRepository persists plan blocks.
type PlanRepository interface {
	// ListPlanBlocks returns raw blocks for day ordered by order_index, or all
	// days when day is empty.
	ListPlanBlocks(ctx context.Context, day string) ([]*model.PlanBlockRecord, error)

	// ApplyPlanChange runs fn inside one transaction. The transaction is
	// committed only when fn returns nil.
	ApplyPlanChange(ctx context.Context, fn func(ctx context.Context, tx PlanTx) error) error
}

// PlanTx is the write surface available inside ApplyPlanChange.
type PlanTx interface {
	ListPlanBlocks(ctx context.Context, day string) ([]*model.PlanBlockRecord, error)
	InsertPlanBlock(ctx context.Context, rec *model.PlanBlockRecord) error
	UpdatePlanBlock(ctx context.Context, rec *model.PlanBlockRecord) error
	DeletePlanBlock(ctx context.Context, id model.BlockID) (int, error)
	SetOrderIndex(ctx context.Context, id model.BlockID, orderIndex int) error
}

// LogRepository persists workout log entries.
type LogRepository interface {
	InsertLog(ctx context.Context, entry *model.LogEntry) error
	// ListLogs returns entries for date (all dates when empty), newest first,
	// at most limit entries when limit > 0.
	ListLogs(ctx context.Context, date string, limit int) ([]*model.LogEntry, error)
	// ListLogsByExercise returns entries whose exercise matches name
	// case-insensitively, newest first.
	ListLogsByExercise(ctx context.Context, name string, limit int) ([]*model.LogEntry, error)
}

// MemoryRepository persists the four conversation memory layers.
type MemoryRepository interface {
	InsertTurn(ctx context.Context, turn *model.Turn) error
	// ListTurns returns at most limit most recent turns in chronological order.
	ListTurns(ctx context.Context, limit int) ([]*model.Turn, error)
	// TrimTurns deletes all but the keep most recent turns.
	TrimTurns(ctx context.Context, keep int) error

	InsertEpisode(ctx context.Context, episode *model.Episode) error
	// ListEpisodes returns episodes newest first.
	ListEpisodes(ctx context.Context) ([]*model.Episode, error)
	// SearchEpisodes returns at most limit episodes, newest first, whose
	// lowercased text contains any of tokens.
	SearchEpisodes(ctx context.Context, tokens []string, limit int) ([]*model.Episode, error)

	PutPinnedFact(ctx context.Context, fact *model.PinnedFact) error
	ListPinnedFacts(ctx context.Context) ([]*model.PinnedFact, error)

	PutQueryContext(ctx context.Context, qc *model.QueryContext) error
	ListQueryContexts(ctx context.Context) ([]*model.QueryContext, error)
}

// Repository is the complete relational store.
type Repository interface {
	PlanRepository
	LogRepository
	MemoryRepository
	Close() error
}

// ProposalStore holds pending proposals between propose and commit.
type ProposalStore interface {
	PutProposal(ctx context.Context, p *model.Proposal) error
	// GetProposal returns nil without error when id is unknown.
	GetProposal(ctx context.Context, id model.ProposalID) (*model.Proposal, error)
	DeleteProposal(ctx context.Context, id model.ProposalID) error
}
