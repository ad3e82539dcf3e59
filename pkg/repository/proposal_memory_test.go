package repository_test

import (
	"context"
	"sync"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/spotter/pkg/model"
	"github.com/m-mizutani/spotter/pkg/repository"
)

func TestProposalMemory(t *testing.T) {
	store := repository.NewProposalMemory()
	ctx := context.Background()

	p := &model.Proposal{ID: model.NewProposalID(), Day: "Friday", Action: model.ActionRemoveBlock, TargetLabel: "Deadlift"}
	gt.NoError(t, store.PutProposal(ctx, p))

	// mutating the caller's copy must not leak into the store
	p.Day = "Sunday"

	got, err := store.GetProposal(ctx, p.ID)
	gt.NoError(t, err)
	gt.Equal(t, got.Day, "Friday")

	gt.NoError(t, store.DeleteProposal(ctx, p.ID))
	got, err = store.GetProposal(ctx, p.ID)
	gt.NoError(t, err)
	gt.Nil(t, got)
}

func TestProposalMemoryConcurrent(t *testing.T) {
	store := repository.NewProposalMemory()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := model.NewProposalID()
			_ = store.PutProposal(ctx, &model.Proposal{ID: id})
			_, _ = store.GetProposal(ctx, id)
			_ = store.DeleteProposal(ctx, id)
		}()
	}
	wg.Wait()
}
