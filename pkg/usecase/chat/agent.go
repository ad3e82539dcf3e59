package chat

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/spotter/pkg/adapter"
	"github.com/m-mizutani/spotter/pkg/model"
	"github.com/m-mizutani/spotter/pkg/tool"
	"github.com/m-mizutani/spotter/pkg/usecase/calendar"
	"github.com/m-mizutani/spotter/pkg/usecase/memory"
	"github.com/m-mizutani/spotter/pkg/utils/logging"
	"google.golang.org/genai"
)

//go:embed prompt/system.md
var systemPromptRaw string

var systemPromptTmpl = template.Must(template.New("system").Parse(systemPromptRaw))

const (
	// DefaultMaxToolCalls bounds model invocations per user turn.
	DefaultMaxToolCalls = 5
	// DefaultHistoryMessages is how many caller supplied messages are replayed.
	DefaultHistoryMessages = 3

	recentWindowTurns = 10

	warnToolLimit = "tool call limit reached"
)

// Agent runs the bounded planning loop for one user message at a time.
type Agent struct {
	gemini   adapter.Gemini
	registry *tool.Registry
	memory   *memory.Store
	resolver *calendar.Resolver
	storage  adapter.Storage

	maxToolCalls    int
	historyMessages int
	temperature     *float32
}

type Option func(*Agent)

// WithMaxToolCalls overrides DefaultMaxToolCalls. Values below 1 are ignored.
func WithMaxToolCalls(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.maxToolCalls = n
		}
	}
}

// WithHistoryMessages overrides DefaultHistoryMessages.
func WithHistoryMessages(n int) Option {
	return func(a *Agent) {
		if n >= 0 {
			a.historyMessages = n
		}
	}
}

// WithStorage archives every turn transcript to storage.
func WithStorage(storage adapter.Storage) Option {
	return func(a *Agent) {
		a.storage = storage
	}
}

func WithTemperature(t float32) Option {
	return func(a *Agent) {
		a.temperature = &t
	}
}

// New creates an Agent.
func New(gemini adapter.Gemini, registry *tool.Registry, mem *memory.Store, resolver *calendar.Resolver, opts ...Option) *Agent {
	a := &Agent{
		gemini:          gemini,
		registry:        registry,
		memory:          mem,
		resolver:        resolver,
		maxToolCalls:    DefaultMaxToolCalls,
		historyMessages: DefaultHistoryMessages,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Request is one user message plus optional prior conversation.
type Request struct {
	Message string
	History []model.Message
}

// ToolResult records one executed tool call.
type ToolResult struct {
	Name   string         `json:"name"`
	Args   map[string]any `json:"args"`
	Result map[string]any `json:"result"`
}

// Result is the outcome of one planning loop run.
type Result struct {
	Response    string       `json:"response"`
	ToolsUsed   []string     `json:"tools_used"`
	ToolResults []ToolResult `json:"tool_results"`
	Success     bool         `json:"success"`
	Warning     string       `json:"warning,omitempty"`
	Error       string       `json:"error,omitempty"`
}

type turnState struct {
	contents []*genai.Content
	seen     map[string]bool
	results  []ToolResult
	used     []string
	lastText string
}

func (s *turnState) result(response string) *Result {
	return &Result{
		Response:    response,
		ToolsUsed:   s.used,
		ToolResults: s.results,
		Success:     true,
	}
}

// Run answers req. It never returns nil and never panics.
func (a *Agent) Run(ctx context.Context, req Request) *Result {
	st := &turnState{seen: make(map[string]bool)}
	result := a.run(ctx, req, st)
	a.archive(ctx, req, st, result)
	return result
}

func (a *Agent) run(ctx context.Context, req Request, st *turnState) (result *Result) {
	logger := logging.From(ctx)

	defer func() {
		if rec := recover(); rec != nil {
			result = a.failure(ctx, st, goerr.New("planning loop panicked", goerr.V("panic", fmt.Sprint(rec))))
		}
	}()

	config, err := a.buildConfig(ctx)
	if err != nil {
		return a.failure(ctx, st, err)
	}
	st.contents = a.buildContents(req)

	for i := 0; i < a.maxToolCalls; i++ {
		resp, err := a.gemini.GenerateContent(ctx, st.contents, config)
		if err != nil {
			return a.failure(ctx, st, goerr.Wrap(err, "failed to generate content", goerr.V("iteration", i)))
		}

		content := firstContent(resp)
		calls := functionCalls(content)
		text := strings.TrimSpace(textOf(content))
		unbacked := claimsWrite(text) && !hasCommittedWrite(st.results)
		if text != "" && !unbacked {
			st.lastText = text
		}

		if len(calls) == 0 {
			if unbacked {
				logger.Warn("answer claims an uncommitted plan change", "iteration", i)
				st.contents = append(st.contents, content, genai.NewContentFromText(phantomWriteCorrection, genai.RoleUser))
				continue
			}
			return a.accept(ctx, req, st, text)
		}

		st.contents = append(st.contents, content)
		parts := make([]*genai.Part, 0, len(calls))
		for _, fc := range calls {
			parts = append(parts, &genai.Part{FunctionResponse: a.execute(ctx, st, fc)})
		}
		st.contents = append(st.contents, &genai.Content{Role: genai.RoleUser, Parts: parts})
	}

	logger.Warn("tool call limit reached", "max", a.maxToolCalls, "tools", st.used)
	res := st.result(a.exhaustedResponse(st))
	res.Warning = warnToolLimit
	if err := a.memory.AppendTurn(ctx, req.Message, res.Response); err != nil {
		logger.Warn("failed to persist turn", "error", err)
	}
	return res
}

func (a *Agent) execute(ctx context.Context, st *turnState, fc *genai.FunctionCall) *genai.FunctionResponse {
	key := callKey(fc)
	if st.seen[key] {
		logging.From(ctx).Info("skipping duplicate tool call", "tool", fc.Name)
		return duplicateCallResponse(fc)
	}
	st.seen[key] = true

	resp := a.registry.Dispatch(ctx, *fc)
	st.used = append(st.used, fc.Name)
	st.results = append(st.results, ToolResult{Name: fc.Name, Args: fc.Args, Result: resp.Response})
	return resp
}

func (a *Agent) accept(ctx context.Context, req Request, st *turnState, text string) *Result {
	if text == "" {
		text = "I don't have an answer for that yet. Could you rephrase or give me a date or weekday to look at?"
	}
	res := st.result(text)
	if err := a.memory.AppendTurn(ctx, req.Message, text); err != nil {
		logging.From(ctx).Warn("failed to persist turn", "error", err)
		res.Warning = "conversation memory was not saved: " + err.Error()
	}
	return res
}

func (a *Agent) failure(ctx context.Context, st *turnState, err error) *Result {
	logging.From(ctx).Error("planning loop failed", "error", err)
	res := st.result("Sorry, something went wrong while working on that. Please try again in a moment.")
	res.Success = false
	res.Error = err.Error()
	return res
}

func (a *Agent) exhaustedResponse(st *turnState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "I hit the limit of %d tool rounds before finishing this request.", a.maxToolCalls)
	if len(st.used) > 0 {
		fmt.Fprintf(&b, " I checked: %s.", strings.Join(uniq(st.used), ", "))
	}
	if st.lastText != "" {
		b.WriteString(" So far: ")
		b.WriteString(st.lastText)
	}
	b.WriteString(" Try asking a narrower question or ask me to continue.")
	return b.String()
}

func (a *Agent) buildConfig(ctx context.Context) (*genai.GenerateContentConfig, error) {
	now := a.resolver.Now()
	today := a.resolver.Today()

	var buf bytes.Buffer
	if err := systemPromptTmpl.Execute(&buf, map[string]any{
		"Now":          now.Format("2006-01-02 15:04"),
		"Weekday":      today.Weekday,
		"Today":        today.DateString,
		"Timezone":     a.resolver.Location().String(),
		"MaxToolCalls": a.maxToolCalls,
		"ToolPrompts":  a.registry.Prompts(ctx),
		"Facts":        a.memory.PinnedFacts(ctx),
		"Recent":       a.memory.RecentWindow(ctx, recentWindowTurns),
	}); err != nil {
		return nil, goerr.Wrap(err, "failed to render system prompt")
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(buf.String(), ""),
		Tools:             a.registry.Specs(),
		Temperature:       a.temperature,
	}
	return config, nil
}

func (a *Agent) buildContents(req Request) []*genai.Content {
	history := req.History
	if len(history) > a.historyMessages {
		history = history[len(history)-a.historyMessages:]
	}

	contents := make([]*genai.Content, 0, len(history)+1)
	for _, m := range history {
		if strings.TrimSpace(m.Text) == "" {
			continue
		}
		role := genai.Role(genai.RoleUser)
		if m.Role == model.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Text, role))
	}
	return append(contents, genai.NewContentFromText(req.Message, genai.RoleUser))
}

func firstContent(resp *genai.GenerateContentResponse) *genai.Content {
	if resp == nil {
		return &genai.Content{Role: genai.RoleModel}
	}
	for _, c := range resp.Candidates {
		if c != nil && c.Content != nil {
			if c.Content.Role == "" {
				c.Content.Role = genai.RoleModel
			}
			return c.Content
		}
	}
	return &genai.Content{Role: genai.RoleModel}
}

func functionCalls(content *genai.Content) []*genai.FunctionCall {
	var calls []*genai.FunctionCall
	for _, part := range content.Parts {
		if part != nil && part.FunctionCall != nil {
			calls = append(calls, part.FunctionCall)
		}
	}
	return calls
}

func textOf(content *genai.Content) string {
	var texts []string
	for _, part := range content.Parts {
		if part != nil && part.Text != "" && !part.Thought {
			texts = append(texts, part.Text)
		}
	}
	return strings.Join(texts, "\n")
}

func uniq(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}
