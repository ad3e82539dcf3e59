package plan

import (
	"context"
	"errors"
	"io"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/spotter/pkg/interfaces"
	"github.com/m-mizutani/spotter/pkg/model"
	"gopkg.in/yaml.v3"
)

// WeekInput maps weekday names to the blocks planned on that day.
type WeekInput map[string][]*BlockInput

// ParseWeekYAML reads a plan file such as:
//
//	monday:
//	  - exercise: Squat
//	    sets: 5
//	    reps: 5
//	  - label: Finisher
//	    rounds: 3
//	    members:
//	      - {exercise: Push-up, reps: 15}
func ParseWeekYAML(r io.Reader) (WeekInput, error) {
	var week WeekInput
	if err := yaml.NewDecoder(r).Decode(&week); err != nil {
		if errors.Is(err, io.EOF) {
			return WeekInput{}, nil
		}
		return nil, goerr.Wrap(err, "failed to decode plan yaml")
	}
	return week, nil
}

// ImportWeek replaces the plan of every day present in week. Days not in
// week are left untouched. Everything is validated before anything is
// written and all days are written in one transaction.
func ImportWeek(ctx context.Context, repo interfaces.PlanRepository, week WeekInput) (int, error) {
	normalized := make(map[string][]*model.PlanBlock, len(week))
	for rawDay, inputs := range week {
		day, ok := model.CanonicalDay(rawDay)
		if !ok {
			return 0, goerr.Wrap(ErrInvalidDay, "unknown weekday in plan file", goerr.V("day", rawDay))
		}
		if _, dup := normalized[day]; dup {
			return 0, goerr.Wrap(ErrInvalidDay, "weekday listed twice", goerr.V("day", day))
		}

		blocks := make([]*model.PlanBlock, 0, len(inputs))
		for i, in := range inputs {
			b, err := NormalizeBlock(in)
			if err != nil {
				return 0, goerr.Wrap(err, "invalid block in plan file", goerr.V("day", day), goerr.V("index", i))
			}
			b.ID = model.NewBlockID()
			b.Day = day
			b.OrderIndex = i
			blocks = append(blocks, b)
		}
		normalized[day] = blocks
	}

	var written int
	err := repo.ApplyPlanChange(ctx, func(ctx context.Context, tx interfaces.PlanTx) error {
		for day, blocks := range normalized {
			existing, err := tx.ListPlanBlocks(ctx, day)
			if err != nil {
				return err
			}
			for _, rec := range existing {
				if _, err := tx.DeletePlanBlock(ctx, rec.ID); err != nil {
					return err
				}
			}
			for _, b := range blocks {
				rec, err := EncodeBlock(b)
				if err != nil {
					return err
				}
				if err := tx.InsertPlanBlock(ctx, rec); err != nil {
					return err
				}
				written++
			}
		}
		return nil
	})
	if err != nil {
		return 0, goerr.Wrap(err, "failed to import plan")
	}
	return written, nil
}
