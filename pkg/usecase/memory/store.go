package memory

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/spotter/pkg/interfaces"
	"github.com/m-mizutani/spotter/pkg/model"
	"github.com/m-mizutani/spotter/pkg/utils/logging"
	"github.com/m-mizutani/spotter/pkg/utils/text"
)

const (
	DefaultMaxTurns = 50

	maxUserRunes      = 200
	maxAssistantRunes = 500
	maxEpisodeRunes   = 400
)

// Searcher finds past episodes relevant to a query.
type Searcher interface {
	Search(ctx context.Context, query string, maxItems int) ([]*model.Episode, error)
}

// Store layers short-term turns, episodic history, pinned facts and sticky
// query context on top of the repository. Reads degrade to empty results on
// failure; writes return errors.
type Store struct {
	repo     interfaces.MemoryRepository
	searcher Searcher
	maxTurns int
}

type Option func(*Store)

// WithMaxTurns sets how many turns the short-term window keeps.
func WithMaxTurns(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxTurns = n
		}
	}
}

// WithSearcher swaps the episodic search strategy.
func WithSearcher(searcher Searcher) Option {
	return func(s *Store) {
		s.searcher = searcher
	}
}

// New creates a Store. The default searcher is keyword based.
func New(repo interfaces.MemoryRepository, opts ...Option) *Store {
	s := &Store{
		repo:     repo,
		searcher: NewKeywordSearcher(repo),
		maxTurns: DefaultMaxTurns,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AppendTurn records one exchange in the window and both utterances as
// episodes, then trims the window. Episodes are never trimmed.
func (s *Store) AppendTurn(ctx context.Context, userText, assistantText string) error {
	if err := s.repo.InsertTurn(ctx, &model.Turn{
		UserText:      userText,
		AssistantText: assistantText,
	}); err != nil {
		return goerr.Wrap(err, "failed to append turn")
	}

	for _, ep := range []*model.Episode{
		{Role: model.RoleUser, Text: userText},
		{Role: model.RoleAssistant, Text: assistantText},
	} {
		if err := s.repo.InsertEpisode(ctx, ep); err != nil {
			return goerr.Wrap(err, "failed to append episode", goerr.V("role", ep.Role))
		}
	}

	if err := s.repo.TrimTurns(ctx, s.maxTurns); err != nil {
		return goerr.Wrap(err, "failed to trim turns", goerr.V("max_turns", s.maxTurns))
	}
	return nil
}

// RecentWindow renders the last maxTurns exchanges in chronological order.
func (s *Store) RecentWindow(ctx context.Context, maxTurns int) string {
	if maxTurns <= 0 {
		return ""
	}
	turns, err := s.repo.ListTurns(ctx, maxTurns)
	if err != nil {
		logging.From(ctx).Warn("failed to load recent turns", "error", err)
		return ""
	}

	var b strings.Builder
	for _, t := range turns {
		b.WriteString("User: ")
		b.WriteString(text.Truncate(t.UserText, maxUserRunes))
		b.WriteString("\nAssistant: ")
		b.WriteString(text.Truncate(t.AssistantText, maxAssistantRunes))
		b.WriteString("\n")
	}
	return b.String()
}

// SetPinnedFact creates or overwrites a fact.
func (s *Store) SetPinnedFact(ctx context.Context, key, value string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return goerr.New("pinned fact key is empty")
	}
	if err := s.repo.PutPinnedFact(ctx, &model.PinnedFact{Key: key, Value: value}); err != nil {
		return goerr.Wrap(err, "failed to set pinned fact", goerr.V("key", key))
	}
	return nil
}

// PinnedFacts returns all facts ordered by key.
func (s *Store) PinnedFacts(ctx context.Context) []*model.PinnedFact {
	facts, err := s.repo.ListPinnedFacts(ctx)
	if err != nil {
		logging.From(ctx).Warn("failed to load pinned facts", "error", err)
		return nil
	}
	return facts
}

// Search returns up to maxItems relevant episodes, newest first.
func (s *Store) Search(ctx context.Context, query string, maxItems int) []*model.Episode {
	episodes, err := s.searcher.Search(ctx, query, maxItems)
	if err != nil {
		logging.From(ctx).Warn("failed to search episodes", "error", err, "query", query)
		return nil
	}
	return episodes
}

// SaveQueryContext stores the parameters of the latest query under key.
func (s *Store) SaveQueryContext(ctx context.Context, key string, value map[string]any) error {
	if err := s.repo.PutQueryContext(ctx, &model.QueryContext{Key: key, Value: value}); err != nil {
		return goerr.Wrap(err, "failed to save query context", goerr.V("key", key))
	}
	return nil
}

// LastQueryContext returns every sticky context keyed by name.
func (s *Store) LastQueryContext(ctx context.Context) map[string]map[string]any {
	contexts, err := s.repo.ListQueryContexts(ctx)
	if err != nil {
		logging.From(ctx).Warn("failed to load query context", "error", err)
		return map[string]map[string]any{}
	}

	result := make(map[string]map[string]any, len(contexts))
	for _, qc := range contexts {
		result[qc.Key] = qc.Value
	}
	return result
}
