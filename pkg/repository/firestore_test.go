package repository_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/spotter/pkg/model"
	"github.com/m-mizutani/spotter/pkg/repository"
)

func setupFirestore(t *testing.T) *repository.ProposalFirestore {
	projectID := os.Getenv("TEST_FIRESTORE_PROJECT_ID")
	databaseID := os.Getenv("TEST_FIRESTORE_DATABASE_ID")

	if projectID == "" || databaseID == "" {
		t.Skip("TEST_FIRESTORE_PROJECT_ID and TEST_FIRESTORE_DATABASE_ID must be set to run Firestore tests")
	}

	store, err := repository.NewProposalFirestore(context.Background(), projectID, databaseID)
	gt.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func TestFirestoreProposalLifecycle(t *testing.T) {
	store := setupFirestore(t)
	ctx := context.Background()

	p := &model.Proposal{
		ID:     model.NewProposalID(),
		Day:    "Monday",
		Action: model.ActionAddBlock,
		Block: &model.PlanBlock{
			BlockType: model.BlockTypeCircuit,
			Label:     "Finisher",
			Meta:      model.BlockMeta{Rounds: 2},
			Members:   []model.Member{{Exercise: "Burpee", Reps: "10"}},
		},
		CreatedAt: time.Now(),
	}
	gt.NoError(t, store.PutProposal(ctx, p))

	got, err := store.GetProposal(ctx, p.ID)
	gt.NoError(t, err)
	gt.V(t, got).NotNil()
	gt.Equal(t, got.Day, "Monday")
	gt.Equal(t, got.Action, model.ActionAddBlock)
	gt.V(t, got.Block).NotNil()
	gt.Equal(t, got.Block.Label, "Finisher")
	gt.A(t, got.Block.Members).Length(1)

	gt.NoError(t, store.DeleteProposal(ctx, p.ID))

	got, err = store.GetProposal(ctx, p.ID)
	gt.NoError(t, err)
	gt.Nil(t, got)
}

func TestFirestoreRemoveProposalHasNoBlock(t *testing.T) {
	store := setupFirestore(t)
	ctx := context.Background()

	p := &model.Proposal{
		ID:          model.NewProposalID(),
		Day:         "Friday",
		Action:      model.ActionRemoveBlock,
		TargetLabel: "Deadlift",
		CreatedAt:   time.Now(),
	}
	gt.NoError(t, store.PutProposal(ctx, p))
	t.Cleanup(func() { _ = store.DeleteProposal(ctx, p.ID) })

	got, err := store.GetProposal(ctx, p.ID)
	gt.NoError(t, err)
	gt.V(t, got).NotNil()
	gt.True(t, got.Block == nil)
	gt.Equal(t, got.TargetLabel, "Deadlift")
}

func TestFirestoreGetUnknownProposal(t *testing.T) {
	store := setupFirestore(t)

	got, err := store.GetProposal(context.Background(), model.NewProposalID())
	gt.NoError(t, err)
	gt.Nil(t, got)
}
