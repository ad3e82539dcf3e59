package chat

import (
	"encoding/json"
	"sort"
	"strings"

	"google.golang.org/genai"
)

const commitToolName = "commit_plan_update"

// writeClaimPhrases are matched case-insensitively against a final answer.
// The list is a heuristic and will miss some phrasings and flag some
// harmless ones.
var writeClaimPhrases = []string{
	"i've added",
	"i have added",
	"i added",
	"i've updated",
	"i have updated",
	"i updated",
	"i've removed",
	"i have removed",
	"i removed",
	"i've saved",
	"i have saved",
	"i've written",
	"i wrote",
	"i've committed",
	"has been added",
	"have been added",
	"has been updated",
	"have been updated",
	"has been removed",
	"have been removed",
	"has been saved",
	"was added to your plan",
	"was updated in your plan",
	"was removed from your plan",
	"your plan is updated",
	"your plan has been",
	"plan is now updated",
}

const phantomWriteCorrection = "[system] Your last answer says the plan was changed, but no commit_plan_update call succeeded in this turn, so nothing was written. " +
	"Do not claim a change that was not committed. Either call propose_plan_update and ask the user to confirm, " +
	"call commit_plan_update with a proposal_id the user already approved, or tell the user that nothing has been saved yet."

// claimsWrite reports whether text asserts that a plan mutation happened.
func claimsWrite(text string) bool {
	lower := strings.ToLower(strings.ReplaceAll(text, "’", "'"))
	for _, phrase := range writeClaimPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// hasCommittedWrite reports whether a commit in results actually wrote.
func hasCommittedWrite(results []ToolResult) bool {
	for _, r := range results {
		if r.Name != commitToolName || r.Result == nil {
			continue
		}
		status, _ := r.Result["status"].(string)
		wrote, _ := r.Result["wrote"].(bool)
		if status == "ok" && wrote {
			return true
		}
	}
	return false
}

// callKey identifies a function call by name and arguments, independent of
// argument order.
func callKey(fc *genai.FunctionCall) string {
	keys := make([]string, 0, len(fc.Args))
	for k := range fc.Args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(fc.Name)
	for _, k := range keys {
		v, err := json.Marshal(fc.Args[k])
		if err != nil {
			v = []byte("?")
		}
		b.WriteString("|")
		b.WriteString(k)
		b.WriteString("=")
		b.Write(v)
	}
	return b.String()
}

func duplicateCallResponse(fc *genai.FunctionCall) *genai.FunctionResponse {
	return &genai.FunctionResponse{
		ID:   fc.ID,
		Name: fc.Name,
		Response: map[string]any{
			"error": "duplicate_call",
			"hint":  "this exact call already ran in this turn; reuse its earlier result",
		},
	}
}
