package repository_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/spotter/pkg/interfaces"
	"github.com/m-mizutani/spotter/pkg/model"
	"github.com/m-mizutani/spotter/pkg/repository"
)

func newTestSQLite(t *testing.T) *repository.SQLite {
	t.Helper()
	repo, err := repository.NewSQLite(context.Background(), filepath.Join(t.TempDir(), "nested", "test.db"))
	gt.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestSQLiteCreatesTables(t *testing.T) {
	repo := newTestSQLite(t)

	for _, table := range []string{"plan_blocks", "workout_logs", "turns", "episodes", "pinned_facts", "query_context"} {
		var count int
		err := repo.DB().QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
		gt.NoError(t, err)
		gt.V(t, count).Describe(table).Equal(1)
	}
}

func TestSQLitePlanTransaction(t *testing.T) {
	repo := newTestSQLite(t)
	ctx := context.Background()

	err := repo.ApplyPlanChange(ctx, func(ctx context.Context, tx interfaces.PlanTx) error {
		for i, name := range []string{"Squat", "Bench Press"} {
			if err := tx.InsertPlanBlock(ctx, &model.PlanBlockRecord{
				ID:         model.NewBlockID(),
				Day:        "Monday",
				BlockType:  "single",
				Label:      name,
				Exercise:   name,
				OrderIndex: i,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	gt.NoError(t, err)

	blocks, err := repo.ListPlanBlocks(ctx, "Monday")
	gt.NoError(t, err)
	gt.A(t, blocks).Length(2)
	gt.Equal(t, blocks[0].Exercise, "Squat")
	gt.Equal(t, blocks[0].Meta, "{}")
	gt.Equal(t, blocks[1].Members, "[]")

	t.Run("rollback on error", func(t *testing.T) {
		errBoom := errors.New("boom")
		err := repo.ApplyPlanChange(ctx, func(ctx context.Context, tx interfaces.PlanTx) error {
			n, err := tx.DeletePlanBlock(ctx, blocks[0].ID)
			gt.NoError(t, err)
			gt.Equal(t, n, 1)
			return errBoom
		})
		gt.True(t, errors.Is(err, errBoom))

		after, err := repo.ListPlanBlocks(ctx, "Monday")
		gt.NoError(t, err)
		gt.A(t, after).Length(2)
	})

	t.Run("update and reorder", func(t *testing.T) {
		err := repo.ApplyPlanChange(ctx, func(ctx context.Context, tx interfaces.PlanTx) error {
			rec := *blocks[1]
			rec.TargetSets = 5
			if err := tx.UpdatePlanBlock(ctx, &rec); err != nil {
				return err
			}
			if err := tx.SetOrderIndex(ctx, blocks[0].ID, 1); err != nil {
				return err
			}
			return tx.SetOrderIndex(ctx, blocks[1].ID, 0)
		})
		gt.NoError(t, err)

		after, err := repo.ListPlanBlocks(ctx, "Monday")
		gt.NoError(t, err)
		gt.Equal(t, after[0].Exercise, "Bench Press")
		gt.Equal(t, after[0].TargetSets, 5)
	})

	t.Run("update missing block fails", func(t *testing.T) {
		err := repo.ApplyPlanChange(ctx, func(ctx context.Context, tx interfaces.PlanTx) error {
			return tx.UpdatePlanBlock(ctx, &model.PlanBlockRecord{ID: "missing", Day: "Monday"})
		})
		gt.True(t, errors.Is(err, repository.ErrInvalidRecord))
	})
}

func TestSQLiteLogs(t *testing.T) {
	repo := newTestSQLite(t)
	ctx := context.Background()

	entries := []*model.LogEntry{
		{Exercise: "Bench Press", Sets: 3, Reps: "8", Weight: "185lbs", Date: "2025-08-12"},
		{Exercise: "Squat", Sets: 5, Reps: "5", Weight: "225lbs", Date: "2025-08-12"},
		{Exercise: "bench press", Sets: 3, Reps: "8", Weight: "180lbs", Date: "2025-08-05"},
	}
	for _, e := range entries {
		gt.NoError(t, repo.InsertLog(ctx, e))
		gt.S(t, string(e.ID)).NotContains(" ")
	}

	day, err := repo.ListLogs(ctx, "2025-08-12", 0)
	gt.NoError(t, err)
	gt.A(t, day).Length(2)
	gt.Equal(t, day[0].Exercise, "Bench Press")

	all, err := repo.ListLogs(ctx, "", 2)
	gt.NoError(t, err)
	gt.A(t, all).Length(2)

	bench, err := repo.ListLogsByExercise(ctx, "BENCH PRESS", 0)
	gt.NoError(t, err)
	gt.A(t, bench).Length(2)
	gt.Equal(t, bench[0].Date, "2025-08-12")

	err = repo.InsertLog(ctx, &model.LogEntry{Exercise: "Row"})
	gt.True(t, errors.Is(err, repository.ErrInvalidRecord))
}

func TestSQLiteTurnsAndEpisodes(t *testing.T) {
	repo := newTestSQLite(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		gt.NoError(t, repo.InsertTurn(ctx, &model.Turn{
			UserText:      fmt.Sprintf("question %d", i),
			AssistantText: fmt.Sprintf("answer %d", i),
		}))
		gt.NoError(t, repo.InsertEpisode(ctx, &model.Episode{Role: model.RoleUser, Text: fmt.Sprintf("question %d", i)}))
	}

	turns, err := repo.ListTurns(ctx, 3)
	gt.NoError(t, err)
	gt.A(t, turns).Length(3)
	gt.Equal(t, turns[0].UserText, "question 2")
	gt.Equal(t, turns[2].UserText, "question 4")

	gt.NoError(t, repo.TrimTurns(ctx, 2))
	turns, err = repo.ListTurns(ctx, 10)
	gt.NoError(t, err)
	gt.A(t, turns).Length(2)
	gt.Equal(t, turns[0].UserText, "question 3")

	episodes, err := repo.ListEpisodes(ctx)
	gt.NoError(t, err)
	gt.A(t, episodes).Length(5)
	gt.Equal(t, episodes[0].Text, "question 4")
}

func TestSQLiteSearchEpisodes(t *testing.T) {
	repo, err := repository.NewSQLite(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	gt.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	ctx := context.Background()

	for _, text := range []string{
		"Squats felt heavy",
		"bench press day",
		"100% effort on SQUAT",
		"deadlift_pr noted",
		"rest",
	} {
		gt.NoError(t, repo.InsertEpisode(ctx, &model.Episode{Role: model.RoleUser, Text: text}))
	}

	t.Run("any token, newest first", func(t *testing.T) {
		hits, err := repo.SearchEpisodes(ctx, []string{"squat", "bench"}, 10)
		gt.NoError(t, err)
		gt.A(t, hits).Length(3)
		gt.Equal(t, hits[0].Text, "100% effort on SQUAT")
		gt.Equal(t, hits[1].Text, "bench press day")
		gt.Equal(t, hits[2].Text, "Squats felt heavy")
	})

	t.Run("limit applied in the query", func(t *testing.T) {
		hits, err := repo.SearchEpisodes(ctx, []string{"squat"}, 1)
		gt.NoError(t, err)
		gt.A(t, hits).Length(1)
		gt.Equal(t, hits[0].Text, "100% effort on SQUAT")
	})

	t.Run("wildcards are literal", func(t *testing.T) {
		hits, err := repo.SearchEpisodes(ctx, []string{"%"}, 10)
		gt.NoError(t, err)
		gt.A(t, hits).Length(1)

		hits, err = repo.SearchEpisodes(ctx, []string{"t_pr"}, 10)
		gt.NoError(t, err)
		gt.A(t, hits).Length(1)
		gt.Equal(t, hits[0].Text, "deadlift_pr noted")

		hits, err = repo.SearchEpisodes(ctx, []string{"e_d"}, 10)
		gt.NoError(t, err)
		gt.A(t, hits).Length(0)
	})

	t.Run("no tokens", func(t *testing.T) {
		hits, err := repo.SearchEpisodes(ctx, nil, 10)
		gt.NoError(t, err)
		gt.A(t, hits).Length(0)
	})
}

func TestSQLiteUpserts(t *testing.T) {
	now := time.Date(2025, 8, 12, 9, 0, 0, 0, time.UTC)
	repo, err := repository.NewSQLite(context.Background(), filepath.Join(t.TempDir(), "test.db"),
		repository.WithSQLiteClock(func() time.Time { return now }))
	gt.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	ctx := context.Background()

	gt.NoError(t, repo.PutPinnedFact(ctx, &model.PinnedFact{Key: "goal", Value: "5k run"}))
	gt.NoError(t, repo.PutPinnedFact(ctx, &model.PinnedFact{Key: "goal", Value: "half marathon"}))

	facts, err := repo.ListPinnedFacts(ctx)
	gt.NoError(t, err)
	gt.A(t, facts).Length(1)
	gt.Equal(t, facts[0].Value, "half marathon")
	gt.True(t, facts[0].UpdatedAt.Equal(now))

	gt.NoError(t, repo.PutQueryContext(ctx, &model.QueryContext{
		Key:   model.ContextLastComparison,
		Value: map[string]any{"date": "2025-08-12"},
	}))
	gt.NoError(t, repo.PutQueryContext(ctx, &model.QueryContext{
		Key:   model.ContextLastComparison,
		Value: map[string]any{"date": "2025-08-13"},
	}))

	contexts, err := repo.ListQueryContexts(ctx)
	gt.NoError(t, err)
	gt.A(t, contexts).Length(1)
	gt.Equal(t, contexts[0].Value["date"], any("2025-08-13"))
}
