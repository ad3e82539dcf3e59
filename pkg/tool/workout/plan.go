package workout

import (
	"context"
	"errors"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/spotter/pkg/model"
	"github.com/m-mizutani/spotter/pkg/tool"
	"github.com/m-mizutani/spotter/pkg/usecase/plan"
	"google.golang.org/genai"
)

type weeklyPlanArgs struct {
	Day string `json:"day"`
}

func newGetWeeklyPlan(client *tool.Client) tool.Tool {
	decl := &genai.FunctionDeclaration{
		Name:        "get_weekly_plan",
		Description: "Return the training plan for the week or for one weekday. Circuit blocks include planned_sets expanded round by round.",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"day": {Type: genai.TypeString, Description: "Optional weekday name", Enum: model.Weekdays},
			},
		},
	}

	return tool.NewFunc(decl, func(ctx context.Context, args weeklyPlanArgs) (map[string]any, error) {
		if strings.TrimSpace(args.Day) != "" {
			blocks, err := client.Reader.DayPlan(ctx, args.Day)
			if err != nil {
				return nil, toolError(err)
			}
			day, _ := model.CanonicalDay(args.Day)
			return tool.ToMap(map[string]any{"day": day, "blocks": blocks})
		}

		week, err := client.Reader.WeeklyPlan(ctx)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to get weekly plan")
		}
		return tool.ToMap(map[string]any{"plan": week})
	})
}

type compareArgs struct {
	Date string `json:"date"`
	Day  string `json:"day"`
}

func newCompareWorkoutToPlan(client *tool.Client) tool.Tool {
	decl := &genai.FunctionDeclaration{
		Name: "compare_workout_to_plan",
		Description: "Compare what was logged on a date against the plan for that weekday. " +
			"Each diff item is matched, modified, missing or extra. Without date and day the previous comparison or log query is reused.",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"date": {Type: genai.TypeString, Description: "Session date, YYYY-MM-DD"},
				"day":  {Type: genai.TypeString, Description: "Weekday name, resolved to the most recent occurrence"},
			},
		},
	}

	return tool.NewFunc(decl, func(ctx context.Context, args compareArgs) (map[string]any, error) {
		cmp, err := client.Differ.Compare(ctx, args.Date, args.Day)
		if err != nil {
			return nil, toolError(err)
		}
		return tool.ToMap(cmp)
	})
}

const planChangePrompt = `Plan changes take two steps. Call propose_plan_update, show the user the summary, and only after they confirm call commit_plan_update with the returned proposal_id. Never say a change was made unless commit_plan_update returned status "ok" and wrote true.`

func newProposePlanUpdate(client *tool.Client) tool.Tool {
	memberSchema := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"exercise": {Type: genai.TypeString},
			"reps":     {Type: genai.TypeString},
			"weight":   {Type: genai.TypeString},
			"tempo":    {Type: genai.TypeString},
		},
		Required: []string{"exercise"},
	}

	decl := &genai.FunctionDeclaration{
		Name:        "propose_plan_update",
		Description: "Validate a plan change and stage it as a proposal. Nothing is written until commit_plan_update is called with the returned proposal_id.",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"day": {Type: genai.TypeString, Description: "Weekday to change", Enum: model.Weekdays},
				"action": {
					Type: genai.TypeString,
					Enum: []string{string(model.ActionAddBlock), string(model.ActionUpdateBlock), string(model.ActionRemoveBlock)},
				},
				"block": {
					Type:        genai.TypeObject,
					Description: "Block to add, the new content for update, or the id/label to remove. Use target to name the block being updated.",
					Properties: map[string]*genai.Schema{
						"id":            {Type: genai.TypeString, Description: "Existing block id for update or remove"},
						"target":        {Type: genai.TypeString, Description: "Label of the existing block for update or remove"},
						"block_type":    {Type: genai.TypeString, Enum: []string{"single", "circuit"}},
						"label":         {Type: genai.TypeString},
						"exercise":      {Type: genai.TypeString, Description: "Exercise for a single block"},
						"order_index":   {Type: genai.TypeInteger, Description: "Position in the day, 0-based"},
						"target_sets":   {Type: genai.TypeInteger},
						"target_reps":   {Type: genai.TypeString},
						"target_weight": {Type: genai.TypeString},
						"rounds":        {Type: genai.TypeInteger, Description: "Circuit rounds, default 1"},
						"rest_seconds":  {Type: genai.TypeInteger},
						"members":       {Type: genai.TypeArray, Items: memberSchema, Description: "Circuit members in order"},
					},
				},
			},
			Required: []string{"day", "action", "block"},
		},
	}

	return tool.NewFunc(decl, func(ctx context.Context, args plan.ProposeInput) (map[string]any, error) {
		out, err := client.Planner.Propose(ctx, args)
		if err != nil {
			return nil, toolError(err)
		}
		return tool.ToMap(out)
	}).WithPrompt(planChangePrompt)
}

type commitArgs struct {
	ProposalID string `json:"proposal_id"`
}

func (a *commitArgs) Validate() error {
	a.ProposalID = strings.TrimSpace(a.ProposalID)
	if a.ProposalID == "" {
		return tool.NewError("invalid_arguments", "proposal_id from propose_plan_update is required", nil)
	}
	return nil
}

func newCommitPlanUpdate(client *tool.Client) tool.Tool {
	decl := &genai.FunctionDeclaration{
		Name:        "commit_plan_update",
		Description: "Apply a staged proposal. Returns status ok, wrote, and the updated day plan.",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"proposal_id": {Type: genai.TypeString},
			},
			Required: []string{"proposal_id"},
		},
	}

	return tool.NewFunc(decl, func(ctx context.Context, args commitArgs) (map[string]any, error) {
		out, err := client.Planner.Commit(ctx, model.ProposalID(args.ProposalID))
		switch {
		case errors.Is(err, plan.ErrProposalNotFound), errors.Is(err, plan.ErrBlockNotFound):
			return nil, toolError(err)
		case err != nil:
			return nil, tool.NewError("commit_failed", "retry commit_plan_update with the same proposal_id", err)
		}
		return tool.ToMap(out)
	})
}
