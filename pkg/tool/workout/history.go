package workout

import (
	"context"
	"slices"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/spotter/pkg/model"
	"github.com/m-mizutani/spotter/pkg/tool"
	"github.com/m-mizutani/spotter/pkg/usecase/plan"
	"github.com/m-mizutani/spotter/pkg/utils/logging"
	"google.golang.org/genai"
)

type historyArgs struct {
	Date  string `json:"date"`
	Day   string `json:"day"`
	Limit int    `json:"limit"`
}

func newGetWorkoutHistory(client *tool.Client) tool.Tool {
	decl := &genai.FunctionDeclaration{
		Name:        "get_workout_history",
		Description: "List logged exercise entries, newest first. Filter to one session with date (YYYY-MM-DD) or a weekday name in day (the most recent such day).",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"date":  {Type: genai.TypeString, Description: "Session date, YYYY-MM-DD"},
				"day":   {Type: genai.TypeString, Description: "Weekday name, resolved to the most recent occurrence"},
				"limit": {Type: genai.TypeInteger, Description: "Max entries (default 20, max 200)"},
			},
		},
	}

	return tool.NewFunc(decl, func(ctx context.Context, args historyArgs) (map[string]any, error) {
		limit := clampLimit(args.Limit, defaultHistoryLimit, maxHistoryLimit)

		date := ""
		if args.Date != "" || args.Day != "" {
			res, ok := client.Resolver.Resolve(args.Date, args.Day)
			if !ok {
				return nil, toolError(goerr.Wrap(plan.ErrMissingCriteria, "date and day could not be resolved"))
			}
			date = res.DateString
			saveLogsQuery(ctx, client, res.DateString, res.Weekday)
		}

		entries, err := client.Repo.ListLogs(ctx, date, limit)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to get workout history")
		}

		out := map[string]any{
			"entries": entries,
			"count":   len(entries),
		}
		if date != "" {
			out["date"] = date
		}
		return tool.ToMap(out)
	})
}

type sessionArgs struct {
	Date string `json:"date"`
	Day  string `json:"day"`
}

func newGetSession(client *tool.Client) tool.Tool {
	decl := &genai.FunctionDeclaration{
		Name:        "get_session",
		Description: "Return everything logged for one training session. Pass date (YYYY-MM-DD) or a weekday name in day.",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"date": {Type: genai.TypeString, Description: "Session date, YYYY-MM-DD"},
				"day":  {Type: genai.TypeString, Description: "Weekday name, resolved to the most recent occurrence"},
			},
		},
	}

	return tool.NewFunc(decl, func(ctx context.Context, args sessionArgs) (map[string]any, error) {
		res, ok := client.Resolver.Resolve(args.Date, args.Day)
		if !ok {
			return nil, toolError(goerr.Wrap(plan.ErrMissingCriteria, "session date is required"))
		}

		entries, err := client.Repo.ListLogs(ctx, res.DateString, 0)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to get session", goerr.V("date", res.DateString))
		}
		saveLogsQuery(ctx, client, res.DateString, res.Weekday)

		return tool.ToMap(map[string]any{
			"date":    res.DateString,
			"day":     res.Weekday,
			"entries": entries,
			"count":   len(entries),
		})
	})
}

type progressionArgs struct {
	ExerciseName string `json:"exercise_name"`
	Limit        int    `json:"limit"`
}

func (a *progressionArgs) Validate() error {
	a.ExerciseName = strings.TrimSpace(a.ExerciseName)
	if a.ExerciseName == "" {
		return tool.NewError("invalid_arguments", "exercise_name is required", nil)
	}
	return nil
}

func newGetExerciseProgression(client *tool.Client) tool.Tool {
	decl := &genai.FunctionDeclaration{
		Name:        "get_exercise_progression",
		Description: "Show how one exercise has progressed over time, oldest to newest.",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"exercise_name": {Type: genai.TypeString, Description: "Exercise name, case-insensitive"},
				"limit":         {Type: genai.TypeInteger, Description: "Max sessions (default 10)"},
			},
			Required: []string{"exercise_name"},
		},
	}

	return tool.NewFunc(decl, func(ctx context.Context, args progressionArgs) (map[string]any, error) {
		limit := clampLimit(args.Limit, defaultProgressionLimit, maxHistoryLimit)

		entries, err := client.Repo.ListLogsByExercise(ctx, args.ExerciseName, limit)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to get exercise progression", goerr.V("exercise", args.ExerciseName))
		}
		slices.Reverse(entries)

		return tool.ToMap(map[string]any{
			"exercise": args.ExerciseName,
			"entries":  entries,
			"count":    len(entries),
		})
	})
}

func saveLogsQuery(ctx context.Context, client *tool.Client, date, day string) {
	if err := client.Memory.SaveQueryContext(ctx, model.ContextLastLogsQuery, map[string]any{
		"date": date,
		"day":  day,
	}); err != nil {
		logging.From(ctx).Warn("failed to save logs query context", "error", err)
	}
}
