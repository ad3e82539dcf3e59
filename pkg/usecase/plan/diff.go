package plan

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/spotter/pkg/interfaces"
	"github.com/m-mizutani/spotter/pkg/model"
	"github.com/m-mizutani/spotter/pkg/usecase/calendar"
	"github.com/m-mizutani/spotter/pkg/utils/logging"
)

const (
	StatusMatched  = "matched"
	StatusModified = "modified"
	StatusMissing  = "missing"
	StatusExtra    = "extra"

	SourceExplicit = "explicit"
)

// QueryContextStore keeps sticky query parameters between turns.
type QueryContextStore interface {
	SaveQueryContext(ctx context.Context, key string, value map[string]any) error
	LastQueryContext(ctx context.Context) map[string]map[string]any
}

// DiffEntry describes how one planned item or logged item lines up.
type DiffEntry struct {
	Status    string `json:"status"`
	Exercise  string `json:"exercise"`
	Block     string `json:"block,omitempty"`
	MemberIdx *int   `json:"member_idx,omitempty"`
	SetIdx    *int   `json:"set_idx,omitempty"`
	Planned   string `json:"planned,omitempty"`
	Actual    string `json:"actual,omitempty"`
	Detail    string `json:"detail,omitempty"`
}

// Criteria is the date a comparison ran for and where it came from.
type Criteria struct {
	Date   string `json:"date"`
	Day    string `json:"day"`
	Source string `json:"source"`
}

// Comparison is the plan-vs-actual result for one date.
type Comparison struct {
	Criteria Criteria           `json:"criteria"`
	Plan     []*model.PlanBlock `json:"plan"`
	Actual   []*model.LogEntry  `json:"actual"`
	Diff     []DiffEntry        `json:"diff"`
	Summary  map[string]int     `json:"summary"`
}

// Differ compares a day's plan against what was logged.
type Differ struct {
	reader   *Reader
	logs     interfaces.LogRepository
	contexts QueryContextStore
	resolver *calendar.Resolver
}

// NewDiffer creates a Differ.
func NewDiffer(reader *Reader, logs interfaces.LogRepository, contexts QueryContextStore, resolver *calendar.Resolver) *Differ {
	return &Differ{
		reader:   reader,
		logs:     logs,
		contexts: contexts,
		resolver: resolver,
	}
}

// Compare resolves the target date, falling back to the last comparison and
// then the last log query when neither dateStr nor dayStr is given. It never
// assumes today.
func (d *Differ) Compare(ctx context.Context, dateStr, dayStr string) (*Comparison, error) {
	res, source, err := d.resolveCriteria(ctx, dateStr, dayStr)
	if err != nil {
		return nil, err
	}

	blocks, err := d.reader.DayPlan(ctx, res.Weekday)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load plan for comparison", goerr.V("day", res.Weekday))
	}
	entries, err := d.logs.ListLogs(ctx, res.DateString, 0)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load logs for comparison", goerr.V("date", res.DateString))
	}

	diff := Diff(blocks, entries)
	summary := map[string]int{StatusMatched: 0, StatusModified: 0, StatusMissing: 0, StatusExtra: 0}
	for _, e := range diff {
		summary[e.Status]++
	}

	if err := d.contexts.SaveQueryContext(ctx, model.ContextLastComparison, map[string]any{
		"date": res.DateString,
		"day":  res.Weekday,
	}); err != nil {
		logging.From(ctx).Warn("failed to save comparison context", "error", err)
	}

	return &Comparison{
		Criteria: Criteria{Date: res.DateString, Day: res.Weekday, Source: source},
		Plan:     blocks,
		Actual:   entries,
		Diff:     diff,
		Summary:  summary,
	}, nil
}

func (d *Differ) resolveCriteria(ctx context.Context, dateStr, dayStr string) (calendar.Resolution, string, error) {
	if strings.TrimSpace(dateStr) != "" || strings.TrimSpace(dayStr) != "" {
		res, ok := d.resolver.Resolve(dateStr, dayStr)
		if !ok {
			return res, "", goerr.Wrap(ErrMissingCriteria, "date and day could not be resolved",
				goerr.V("date", dateStr), goerr.V("day", dayStr))
		}
		return res, SourceExplicit, nil
	}

	sticky := d.contexts.LastQueryContext(ctx)
	for _, key := range []string{model.ContextLastComparison, model.ContextLastLogsQuery} {
		v, ok := sticky[key]
		if !ok {
			continue
		}
		date, _ := v["date"].(string)
		day, _ := v["day"].(string)
		if res, ok := d.resolver.Resolve(date, day); ok {
			return res, key, nil
		}
	}

	return calendar.Resolution{}, "", goerr.Wrap(ErrMissingCriteria, "no date, day, or previous query to compare")
}

type actualSet struct {
	entry  *model.LogEntry
	setIdx int
}

// Diff matches planned blocks against logged entries. Single blocks take the
// first unused entry with the same exercise name. Circuit blocks expand the
// remaining entries of their member exercises into one item per set and
// pair them with planned sets by (exercise, member_idx, set_idx). Entries
// nothing claimed are reported as extra.
func Diff(blocks []*model.PlanBlock, entries []*model.LogEntry) []DiffEntry {
	used := make([]bool, len(entries))
	var result []DiffEntry

	for _, b := range blocks {
		if b.IsCircuit() {
			continue
		}
		label := blockLabel(b)
		planned := describe(b.TargetSets, b.TargetReps, b.TargetWeight)

		idx := -1
		for i, e := range entries {
			if !used[i] && sameExercise(e.Exercise, b.Exercise) {
				idx = i
				break
			}
		}
		if idx < 0 {
			result = append(result, DiffEntry{Status: StatusMissing, Exercise: b.Exercise, Block: label, Planned: planned})
			continue
		}

		used[idx] = true
		e := entries[idx]
		status := StatusMatched
		if !fieldMatches(b.TargetSets, e.Sets) || !valueMatches(b.TargetReps, e.Reps) || !valueMatches(b.TargetWeight, e.Weight) {
			status = StatusModified
		}
		result = append(result, DiffEntry{
			Status:   status,
			Exercise: b.Exercise,
			Block:    label,
			Planned:  planned,
			Actual:   describe(e.Sets, e.Reps, e.Weight),
		})
	}

	for _, b := range blocks {
		if b.IsCircuit() {
			result = append(result, diffCircuit(b, entries, used)...)
		}
	}

	for i, e := range entries {
		if used[i] {
			continue
		}
		result = append(result, DiffEntry{
			Status:   StatusExtra,
			Exercise: e.Exercise,
			Actual:   describe(e.Sets, e.Reps, e.Weight),
		})
	}

	for i := range result {
		result[i].Detail = detail(result[i])
	}
	return result
}

// detail renders one entry as a short human readable change.
func detail(e DiffEntry) string {
	switch e.Status {
	case StatusModified:
		return e.Planned + " → " + e.Actual
	case StatusMissing:
		if e.Planned == "" {
			return "not logged"
		}
		return e.Planned + " not logged"
	case StatusExtra:
		if e.Actual == "" {
			return "not in plan"
		}
		return e.Actual + " not in plan"
	}
	return ""
}

func diffCircuit(b *model.PlanBlock, entries []*model.LogEntry, used []bool) []DiffEntry {
	label := blockLabel(b)
	planned := b.PlannedSets
	if len(planned) == 0 {
		planned = ExpandPlannedSets(b)
	}

	members := make(map[string]bool, len(b.Members))
	for _, m := range b.Members {
		members[normalizeName(m.Exercise)] = true
	}

	// Expand each claimed entry into one item per set, numbered per exercise.
	actual := make(map[string][]actualSet)
	for i, e := range entries {
		key := normalizeName(e.Exercise)
		if used[i] || !members[key] {
			continue
		}
		used[i] = true
		n := e.Sets
		if n < 1 {
			n = 1
		}
		for s := 0; s < n; s++ {
			actual[key] = append(actual[key], actualSet{entry: e, setIdx: len(actual[key])})
		}
	}

	consumed := make(map[string]int)
	var result []DiffEntry
	for _, ps := range planned {
		key := normalizeName(ps.Exercise)
		memberIdx, setIdx := ps.MemberIdx, ps.SetIdx
		entry := DiffEntry{
			Exercise:  ps.Exercise,
			Block:     label,
			MemberIdx: &memberIdx,
			SetIdx:    &setIdx,
			Planned:   describe(0, ps.Reps, ps.Weight),
		}

		k := consumed[key]
		if k >= len(actual[key]) {
			entry.Status = StatusMissing
			result = append(result, entry)
			continue
		}
		consumed[key] = k + 1

		got := actual[key][k].entry
		entry.Actual = describe(0, got.Reps, got.Weight)
		entry.Status = StatusMatched
		if !valueMatches(ps.Reps, got.Reps) || !valueMatches(ps.Weight, got.Weight) {
			entry.Status = StatusModified
		}
		result = append(result, entry)
	}

	// Sets logged beyond what the circuit planned.
	for _, m := range b.Members {
		key := normalizeName(m.Exercise)
		for k := consumed[key]; k < len(actual[key]); k++ {
			setIdx := actual[key][k].setIdx
			got := actual[key][k].entry
			result = append(result, DiffEntry{
				Status:   StatusExtra,
				Exercise: got.Exercise,
				Block:    label,
				SetIdx:   &setIdx,
				Actual:   describe(0, got.Reps, got.Weight),
			})
		}
		consumed[key] = len(actual[key])
	}
	return result
}

func blockLabel(b *model.PlanBlock) string {
	if b.Label != "" {
		return b.Label
	}
	return b.Exercise
}

func sameExercise(a, b string) bool {
	return normalizeName(a) == normalizeName(b)
}

func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// normalizeValue lowercases and drops all whitespace so "185 lbs" and
// "185lbs" compare equal. No numeric tolerance is applied.
func normalizeValue(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, s)
}

// valueMatches treats an empty planned value as unspecified.
func valueMatches(planned, actual string) bool {
	p := normalizeValue(planned)
	return p == "" || p == normalizeValue(actual)
}

func fieldMatches(planned, actual int) bool {
	return planned == 0 || planned == actual
}

func describe(sets int, reps, weight string) string {
	var b strings.Builder
	if sets > 0 {
		fmt.Fprintf(&b, "%dx", sets)
	}
	if reps != "" {
		b.WriteString(reps)
	} else if sets > 0 {
		b.WriteString("?")
	}
	if weight != "" {
		if b.Len() > 0 {
			b.WriteString("@")
		}
		b.WriteString(weight)
	}
	return b.String()
}
