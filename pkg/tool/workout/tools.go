package workout

import (
	"errors"
	"strings"

	"github.com/m-mizutani/spotter/pkg/tool"
	"github.com/m-mizutani/spotter/pkg/usecase/plan"
)

const (
	defaultHistoryLimit     = 20
	maxHistoryLimit         = 200
	defaultProgressionLimit = 10
	defaultMemoryLimit      = 5
)

// Tools returns every workout tool bound to client.
func Tools(client *tool.Client) []tool.Tool {
	return []tool.Tool{
		newGetWorkoutHistory(client),
		newGetWeeklyPlan(client),
		newGetExerciseProgression(client),
		newGetSession(client),
		newCompareWorkoutToPlan(client),
		newProposePlanUpdate(client),
		newCommitPlanUpdate(client),
		newRememberFact(client),
		newSearchMemory(client),
	}
}

// NewRegistry builds a registry holding every workout tool.
func NewRegistry(client *tool.Client) *tool.Registry {
	return tool.New(Tools(client)...)
}

// toolError maps domain errors onto payload codes the model understands.
func toolError(err error) error {
	var pe *plan.PolicyError
	switch {
	case errors.As(err, &pe):
		return tool.NewError("policy_denied", "do not retry; tell the user the change was rejected because: "+strings.Join(pe.Reasons, "; "), err)
	case errors.Is(err, plan.ErrMissingCriteria):
		return tool.NewError("missing_criteria", "ask the user which date or weekday they mean, or pass date (YYYY-MM-DD) or day", err)
	case errors.Is(err, plan.ErrInvalidDay):
		return tool.NewError("invalid_day", "day must be one of Monday..Sunday", err)
	case errors.Is(err, plan.ErrInvalidAction):
		return tool.NewError("invalid_action", "action must be add_block, update_block or remove_block", err)
	case errors.Is(err, plan.ErrInvalidBlock):
		return tool.NewError("invalid_block", "fix the block fields and call propose_plan_update again", err)
	case errors.Is(err, plan.ErrProposalNotFound):
		return tool.NewError("not_found", "please re-propose the change with propose_plan_update", err)
	case errors.Is(err, plan.ErrBlockNotFound):
		return tool.NewError("not_found", "no matching block on that day; check get_weekly_plan and re-propose", err)
	}
	return err
}

func clampLimit(limit, def, maxLimit int) int {
	if limit <= 0 {
		return def
	}
	return min(limit, maxLimit)
}
