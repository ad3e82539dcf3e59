package chat

import (
	"testing"

	"github.com/m-mizutani/gt"
	"google.golang.org/genai"
)

func TestClaimsWrite(t *testing.T) {
	testCases := map[string]struct {
		text   string
		expect bool
	}{
		"added":          {"Done! I've added squats to Monday.", true},
		"curly quote":    {"I’ve updated your Thursday circuit.", true},
		"passive":        {"Bench press has been removed.", true},
		"proposal only":  {"Here is the proposal. Shall I apply it?", false},
		"plain question": {"What weight did you use?", false},
		// Phrase matching is heuristic. These document known misses and
		// false alarms rather than desired behavior.
		"miss: done":         {"Done, Monday now has squats.", false},
		"false alarm: quote": {"Last week you said 'I added a set' to deadlifts.", true},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			gt.Equal(t, claimsWrite(tc.text), tc.expect)
		})
	}
}

func TestHasCommittedWrite(t *testing.T) {
	gt.False(t, hasCommittedWrite(nil))
	gt.False(t, hasCommittedWrite([]ToolResult{
		{Name: "propose_plan_update", Result: map[string]any{"proposal_id": "x"}},
	}))
	gt.False(t, hasCommittedWrite([]ToolResult{
		{Name: "commit_plan_update", Result: map[string]any{"error": "not_found"}},
	}))
	gt.True(t, hasCommittedWrite([]ToolResult{
		{Name: "commit_plan_update", Result: map[string]any{"status": "ok", "wrote": true}},
	}))
}

func TestCallKeyIgnoresArgOrder(t *testing.T) {
	a := callKey(&genai.FunctionCall{Name: "get_session", Args: map[string]any{"date": "2025-08-14", "day": "Thursday"}})
	b := callKey(&genai.FunctionCall{Name: "get_session", Args: map[string]any{"day": "Thursday", "date": "2025-08-14"}})
	c := callKey(&genai.FunctionCall{Name: "get_session", Args: map[string]any{"date": "2025-08-13"}})
	d := callKey(&genai.FunctionCall{Name: "get_workout_history", Args: map[string]any{"date": "2025-08-14", "day": "Thursday"}})

	gt.Equal(t, a, b)
	gt.NotEqual(t, a, c)
	gt.NotEqual(t, a, d)
}
