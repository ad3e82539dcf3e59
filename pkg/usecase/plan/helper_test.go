package plan_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/spotter/pkg/interfaces"
	"github.com/m-mizutani/spotter/pkg/model"
	"github.com/m-mizutani/spotter/pkg/repository"
)

func newTestRepo(t *testing.T) *repository.SQLite {
	t.Helper()
	repo, err := repository.NewSQLite(context.Background(), filepath.Join(t.TempDir(), "plan.db"))
	gt.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func seedBlocks(t *testing.T, repo *repository.SQLite, recs ...*model.PlanBlockRecord) {
	t.Helper()
	err := repo.ApplyPlanChange(context.Background(), func(ctx context.Context, tx interfaces.PlanTx) error {
		for _, rec := range recs {
			if rec.ID == "" {
				rec.ID = model.NewBlockID()
			}
			if err := tx.InsertPlanBlock(ctx, rec); err != nil {
				return err
			}
		}
		return nil
	})
	gt.NoError(t, err)
}

func ptr[T any](v T) *T {
	return &v
}

// 2025-08-14 is a Thursday.
var thursday = time.Date(2025, 8, 14, 9, 0, 0, 0, time.UTC)
