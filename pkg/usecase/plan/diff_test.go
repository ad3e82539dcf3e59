package plan_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/spotter/pkg/model"
	"github.com/m-mizutani/spotter/pkg/repository"
	"github.com/m-mizutani/spotter/pkg/usecase/calendar"
	"github.com/m-mizutani/spotter/pkg/usecase/memory"
	"github.com/m-mizutani/spotter/pkg/usecase/plan"
)

func newTestDiffer(t *testing.T) (*plan.Differ, *repository.SQLite, *memory.Store) {
	t.Helper()
	repo := newTestRepo(t)
	mem := memory.New(repo)
	resolver := calendar.New(calendar.WithClock(func() time.Time { return thursday }))
	return plan.NewDiffer(plan.NewReader(repo), repo, mem, resolver), repo, mem
}

func statuses(diff []plan.DiffEntry) []string {
	out := make([]string, 0, len(diff))
	for _, d := range diff {
		out = append(out, d.Status)
	}
	return out
}

func TestCompareIdenticalSession(t *testing.T) {
	differ, repo, mem := newTestDiffer(t)
	ctx := context.Background()

	// 2025-08-12 is a Tuesday.
	seedBlocks(t, repo, &model.PlanBlockRecord{
		Day: "Tuesday", BlockType: "single", Label: "Bench Press", Exercise: "Bench Press",
		TargetSets: 3, TargetReps: "8", TargetWeight: "185lbs",
	})
	gt.NoError(t, repo.InsertLog(ctx, &model.LogEntry{
		Exercise: "bench press", Sets: 3, Reps: "8", Weight: "185 LBS", Date: "2025-08-12",
	}))

	cmp, err := differ.Compare(ctx, "2025-08-12", "")
	gt.NoError(t, err)
	gt.Equal(t, cmp.Criteria, plan.Criteria{Date: "2025-08-12", Day: "Tuesday", Source: plan.SourceExplicit})
	gt.Equal(t, statuses(cmp.Diff), []string{plan.StatusMatched})
	gt.Equal(t, cmp.Summary[plan.StatusMatched], 1)

	qc := mem.LastQueryContext(ctx)
	gt.Equal(t, qc[model.ContextLastComparison]["date"], any("2025-08-12"))
}

func TestCompareMissingCriteria(t *testing.T) {
	differ, _, _ := newTestDiffer(t)

	_, err := differ.Compare(context.Background(), "", "")
	gt.True(t, errors.Is(err, plan.ErrMissingCriteria))

	_, err = differ.Compare(context.Background(), "", "someday")
	gt.True(t, errors.Is(err, plan.ErrMissingCriteria))
}

func TestCompareFallsBackToStickyContext(t *testing.T) {
	differ, _, mem := newTestDiffer(t)
	ctx := context.Background()

	gt.NoError(t, mem.SaveQueryContext(ctx, model.ContextLastLogsQuery, map[string]any{"date": "2025-08-11"}))

	cmp, err := differ.Compare(ctx, "", "")
	gt.NoError(t, err)
	gt.Equal(t, cmp.Criteria.Date, "2025-08-11")
	gt.Equal(t, cmp.Criteria.Source, model.ContextLastLogsQuery)

	// The comparison itself becomes the preferred fallback.
	gt.NoError(t, mem.SaveQueryContext(ctx, model.ContextLastLogsQuery, map[string]any{"date": "2025-08-01"}))
	cmp, err = differ.Compare(ctx, "", "")
	gt.NoError(t, err)
	gt.Equal(t, cmp.Criteria.Date, "2025-08-11")
	gt.Equal(t, cmp.Criteria.Source, model.ContextLastComparison)
}

func TestDiffSingleBlocks(t *testing.T) {
	blocks := []*model.PlanBlock{
		{BlockType: model.BlockTypeSingle, Label: "Bench Press", Exercise: "Bench Press", TargetSets: 3, TargetReps: "8", TargetWeight: "185lbs"},
		{BlockType: model.BlockTypeSingle, Label: "Row", Exercise: "Row", TargetSets: 3, TargetReps: "10"},
	}
	entries := []*model.LogEntry{
		{Exercise: "Bench Press", Sets: 3, Reps: "6", Weight: "185lbs"},
		{Exercise: "Curl", Sets: 2, Reps: "12", Weight: "30lbs"},
	}

	diff := plan.Diff(blocks, entries)
	gt.Equal(t, statuses(diff), []string{plan.StatusModified, plan.StatusMissing, plan.StatusExtra})
	gt.Equal(t, diff[0].Planned, "3x8@185lbs")
	gt.Equal(t, diff[0].Actual, "3x6@185lbs")
	gt.Equal(t, diff[0].Detail, "3x8@185lbs → 3x6@185lbs")
	gt.Equal(t, diff[1].Detail, "3x10 not logged")
	gt.S(t, diff[2].Detail).Contains("not in plan")
	gt.Equal(t, diff[2].Exercise, "Curl")
}

func TestDiffCircuit(t *testing.T) {
	circuit := &model.PlanBlock{
		BlockType: model.BlockTypeCircuit,
		Label:     "Finisher",
		Meta:      model.BlockMeta{Rounds: 2},
		Members: []model.Member{
			{Exercise: "Burpee", Reps: "10"},
			{Exercise: "Push-up", Reps: "15"},
		},
	}
	circuit.PlannedSets = plan.ExpandPlannedSets(circuit)

	t.Run("all rounds done", func(t *testing.T) {
		entries := []*model.LogEntry{
			{Exercise: "burpee", Sets: 2, Reps: "10"},
			{Exercise: "Push-up", Sets: 1, Reps: "15"},
			{Exercise: "Push-up", Sets: 1, Reps: "12"},
		}
		diff := plan.Diff([]*model.PlanBlock{circuit}, entries)
		gt.Equal(t, statuses(diff), []string{
			plan.StatusMatched, plan.StatusMatched,
			plan.StatusMatched, plan.StatusModified,
		})
		gt.Equal(t, *diff[3].MemberIdx, 1)
		gt.Equal(t, *diff[3].SetIdx, 1)
		gt.Equal(t, diff[3].Actual, "12")
	})

	t.Run("short and extra", func(t *testing.T) {
		entries := []*model.LogEntry{
			{Exercise: "Burpee", Sets: 3, Reps: "10"},
		}
		diff := plan.Diff([]*model.PlanBlock{circuit}, entries)
		gt.Equal(t, statuses(diff), []string{
			plan.StatusMatched, plan.StatusMissing,
			plan.StatusMatched, plan.StatusMissing,
			plan.StatusExtra,
		})
		gt.Equal(t, *diff[4].SetIdx, 2)
	})
}

func TestDiffIgnoresUnspecifiedTargets(t *testing.T) {
	blocks := []*model.PlanBlock{
		{BlockType: model.BlockTypeSingle, Label: "Plank", Exercise: "Plank", TargetReps: "60s"},
	}
	entries := []*model.LogEntry{{Exercise: "Plank", Sets: 3, Reps: "60s"}}

	gt.Equal(t, statuses(plan.Diff(blocks, entries)), []string{plan.StatusMatched})
}
