package memory_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/spotter/pkg/interfaces"
	"github.com/m-mizutani/spotter/pkg/model"
	"github.com/m-mizutani/spotter/pkg/repository"
	"github.com/m-mizutani/spotter/pkg/usecase/memory"
)

func newTestRepo(t *testing.T) *repository.SQLite {
	t.Helper()
	repo, err := repository.NewSQLite(context.Background(), filepath.Join(t.TempDir(), "memory.db"))
	gt.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestAppendTurnTrimsWindowButKeepsEpisodes(t *testing.T) {
	repo := newTestRepo(t)
	store := memory.New(repo)
	ctx := context.Background()

	for i := 0; i < 51; i++ {
		gt.NoError(t, store.AppendTurn(ctx, fmt.Sprintf("user %d", i), fmt.Sprintf("assistant %d", i)))
	}

	turns, err := repo.ListTurns(ctx, 1000)
	gt.NoError(t, err)
	gt.A(t, turns).Length(50)
	gt.Equal(t, turns[0].UserText, "user 1")

	episodes, err := repo.ListEpisodes(ctx)
	gt.NoError(t, err)
	gt.A(t, episodes).Length(102)
}

func TestRecentWindow(t *testing.T) {
	store := memory.New(newTestRepo(t), memory.WithMaxTurns(3))
	ctx := context.Background()

	gt.Equal(t, store.RecentWindow(ctx, 5), "")

	gt.NoError(t, store.AppendTurn(ctx, "first question", "first answer"))
	gt.NoError(t, store.AppendTurn(ctx, strings.Repeat("u", 300), strings.Repeat("a", 600)))

	window := store.RecentWindow(ctx, 5)
	lines := strings.Split(strings.TrimSpace(window), "\n")
	gt.A(t, lines).Length(4)
	gt.Equal(t, lines[0], "User: first question")
	gt.Equal(t, lines[1], "Assistant: first answer")
	gt.Equal(t, len([]rune(strings.TrimPrefix(lines[2], "User: "))), 200)
	gt.Equal(t, len([]rune(strings.TrimPrefix(lines[3], "Assistant: "))), 500)

	only := store.RecentWindow(ctx, 1)
	gt.S(t, only).NotContains("first question")
}

func TestPinnedFacts(t *testing.T) {
	store := memory.New(newTestRepo(t))
	ctx := context.Background()

	gt.NoError(t, store.SetPinnedFact(ctx, "injury", "left knee"))
	gt.NoError(t, store.SetPinnedFact(ctx, "injury", "right shoulder"))
	gt.NoError(t, store.SetPinnedFact(ctx, "goal", "bench 225"))
	gt.Error(t, store.SetPinnedFact(ctx, "  ", "nothing"))

	facts := store.PinnedFacts(ctx)
	gt.A(t, facts).Length(2)
	gt.Equal(t, facts[1].Key, "injury")
	gt.Equal(t, facts[1].Value, "right shoulder")
}

func TestSearch(t *testing.T) {
	store := memory.New(newTestRepo(t))
	ctx := context.Background()

	gt.NoError(t, store.AppendTurn(ctx, "my knee hurts after squats", "Try lighter squats."))
	gt.NoError(t, store.AppendTurn(ctx, "what about bench press?", "Bench looks fine."))
	gt.NoError(t, store.AppendTurn(ctx, "Squat PR today!", strings.Repeat("great ", 100)))

	t.Run("newest first and capped", func(t *testing.T) {
		hits := store.Search(ctx, "SQUAT", 2)
		gt.A(t, hits).Length(2)
		gt.Equal(t, hits[0].Text, "Squat PR today!")
		gt.Equal(t, hits[1].Text, "Try lighter squats.")
	})

	t.Run("short tokens ignored", func(t *testing.T) {
		gt.A(t, store.Search(ctx, "a I ?", 10)).Length(0)
	})

	t.Run("long text truncated", func(t *testing.T) {
		hits := store.Search(ctx, "great", 10)
		gt.A(t, hits).Length(1)
		gt.Equal(t, len([]rune(hits[0].Text)), 400)
	})
}

func TestQueryContext(t *testing.T) {
	store := memory.New(newTestRepo(t))
	ctx := context.Background()

	gt.Equal(t, len(store.LastQueryContext(ctx)), 0)

	gt.NoError(t, store.SaveQueryContext(ctx, model.ContextLastLogsQuery, map[string]any{"date": "2025-08-12"}))
	gt.NoError(t, store.SaveQueryContext(ctx, model.ContextLastComparison, map[string]any{"day": "Tuesday"}))

	qc := store.LastQueryContext(ctx)
	gt.Map(t, qc).HasKey(model.ContextLastLogsQuery)
	gt.Equal(t, qc[model.ContextLastComparison]["day"], any("Tuesday"))
}

type brokenRepo struct {
	interfaces.MemoryRepository
}

var errBroken = errors.New("disk on fire")

func (brokenRepo) ListTurns(ctx context.Context, limit int) ([]*model.Turn, error) {
	return nil, errBroken
}
func (brokenRepo) ListEpisodes(ctx context.Context) ([]*model.Episode, error) {
	return nil, errBroken
}
func (brokenRepo) SearchEpisodes(ctx context.Context, tokens []string, limit int) ([]*model.Episode, error) {
	return nil, errBroken
}
func (brokenRepo) ListPinnedFacts(ctx context.Context) ([]*model.PinnedFact, error) {
	return nil, errBroken
}
func (brokenRepo) ListQueryContexts(ctx context.Context) ([]*model.QueryContext, error) {
	return nil, errBroken
}
func (brokenRepo) InsertTurn(ctx context.Context, turn *model.Turn) error {
	return errBroken
}
func (brokenRepo) PutQueryContext(ctx context.Context, qc *model.QueryContext) error {
	return errBroken
}

func TestReadsDegradeWritesFail(t *testing.T) {
	store := memory.New(brokenRepo{})
	ctx := context.Background()

	gt.Equal(t, store.RecentWindow(ctx, 5), "")
	gt.A(t, store.PinnedFacts(ctx)).Length(0)
	gt.A(t, store.Search(ctx, "squat", 5)).Length(0)
	gt.Equal(t, len(store.LastQueryContext(ctx)), 0)

	gt.True(t, errors.Is(store.AppendTurn(ctx, "u", "a"), errBroken))
	gt.True(t, errors.Is(store.SaveQueryContext(ctx, "k", map[string]any{}), errBroken))
}

type stubSearcher struct {
	query string
}

func (s *stubSearcher) Search(ctx context.Context, query string, maxItems int) ([]*model.Episode, error) {
	s.query = query
	return []*model.Episode{{Role: model.RoleUser, Text: "semantic hit"}}, nil
}

func TestSearcherIsSwappable(t *testing.T) {
	stub := &stubSearcher{}
	store := memory.New(newTestRepo(t), memory.WithSearcher(stub))

	hits := store.Search(context.Background(), "leg day", 3)
	gt.A(t, hits).Length(1)
	gt.Equal(t, stub.query, "leg day")
}

func TestTokenize(t *testing.T) {
	gt.Equal(t, memory.Tokenize("Bench-press, BENCH x 3!"), []string{"bench", "press"})
}
