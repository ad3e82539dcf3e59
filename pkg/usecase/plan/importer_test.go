package plan_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/spotter/pkg/model"
	"github.com/m-mizutani/spotter/pkg/usecase/plan"
)

const weekYAML = `
Monday:
  - exercise: Squat
    sets: 5
    reps: 5
    weight: 225lbs
  - label: Finisher
    rounds: 3
    members:
      - {exercise: Push-up, reps: 15}
      - {exercise: Plank, reps: 45s}
thu:
  - exercise: Bench Press
    target_sets: 3
    target_reps: 8-10
`

func TestImportWeek(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedBlocks(t, repo, &model.PlanBlockRecord{Day: "Monday", BlockType: "single", Exercise: "Deadlift", Label: "Deadlift"})

	week, err := plan.ParseWeekYAML(strings.NewReader(weekYAML))
	gt.NoError(t, err)

	n, err := plan.ImportWeek(ctx, repo, week)
	gt.NoError(t, err)
	gt.Equal(t, n, 3)

	reader := plan.NewReader(repo)
	monday, err := reader.DayPlan(ctx, "Monday")
	gt.NoError(t, err)
	gt.A(t, monday).Length(2)
	gt.Equal(t, monday[0].Exercise, "Squat")
	gt.Equal(t, monday[0].TargetReps, "5")
	gt.Equal(t, monday[1].BlockType, model.BlockTypeCircuit)
	gt.A(t, monday[1].PlannedSets).Length(6)
	gt.Equal(t, monday[1].Members[0].Reps, "15")

	thursday, err := reader.DayPlan(ctx, "Thursday")
	gt.NoError(t, err)
	gt.A(t, thursday).Length(1)
	gt.Equal(t, thursday[0].TargetReps, "8-10")
}

func TestImportWeekRejectsBadInput(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := plan.ImportWeek(ctx, repo, plan.WeekInput{"Someday": {{Exercise: "Squat"}}})
	gt.True(t, errors.Is(err, plan.ErrInvalidDay))

	_, err = plan.ImportWeek(ctx, repo, plan.WeekInput{
		"Monday":  {{Exercise: "Squat"}},
		"Tuesday": {{BlockType: "circuit"}},
	})
	gt.True(t, errors.Is(err, plan.ErrInvalidBlock))

	// Nothing is written when any day is invalid.
	recs, err := repo.ListPlanBlocks(ctx, "")
	gt.NoError(t, err)
	gt.A(t, recs).Length(0)
}

func TestParseWeekYAMLEmptyInput(t *testing.T) {
	week, err := plan.ParseWeekYAML(strings.NewReader(""))
	gt.NoError(t, err)
	gt.V(t, week).NotNil()
	gt.Equal(t, len(week), 0)

	_, err = plan.ParseWeekYAML(strings.NewReader("monday: ["))
	gt.Error(t, err)
}
