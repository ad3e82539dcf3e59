package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/spotter/pkg/model"
)

// InsertTurn implements interfaces.MemoryRepository.
func (s *SQLite) InsertTurn(ctx context.Context, turn *model.Turn) error {
	if turn.ID == "" {
		turn.ID = model.NewTurnID()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = s.now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO turns (id, user_text, assistant_text, created_at) VALUES (?, ?, ?, ?)`,
		turn.ID, turn.UserText, turn.AssistantText, formatTime(turn.CreatedAt))
	if err != nil {
		return goerr.Wrap(err, "failed to insert turn")
	}
	return nil
}

// ListTurns implements interfaces.MemoryRepository.
func (s *SQLite) ListTurns(ctx context.Context, limit int) ([]*model.Turn, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_text, assistant_text, created_at FROM (
			SELECT seq, id, user_text, assistant_text, created_at
			FROM turns ORDER BY seq DESC LIMIT ?
		) ORDER BY seq ASC`, limit)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list turns")
	}
	defer rows.Close()

	var turns []*model.Turn
	for rows.Next() {
		var (
			t         model.Turn
			createdAt string
		)
		if err := rows.Scan(&t.ID, &t.UserText, &t.AssistantText, &createdAt); err != nil {
			return nil, goerr.Wrap(err, "failed to scan turn")
		}
		t.CreatedAt = parseTime(createdAt)
		turns = append(turns, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate turns")
	}
	return turns, nil
}

// TrimTurns implements interfaces.MemoryRepository.
func (s *SQLite) TrimTurns(ctx context.Context, keep int) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM turns WHERE seq NOT IN (
			SELECT seq FROM turns ORDER BY seq DESC LIMIT ?
		)`, keep)
	if err != nil {
		return goerr.Wrap(err, "failed to trim turns", goerr.V("keep", keep))
	}
	return nil
}

// InsertEpisode implements interfaces.MemoryRepository.
func (s *SQLite) InsertEpisode(ctx context.Context, episode *model.Episode) error {
	if episode.ID == "" {
		episode.ID = model.NewEpisodeID()
	}
	if episode.CreatedAt.IsZero() {
		episode.CreatedAt = s.now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO episodes (id, role, text, created_at) VALUES (?, ?, ?, ?)`,
		episode.ID, episode.Role, episode.Text, formatTime(episode.CreatedAt))
	if err != nil {
		return goerr.Wrap(err, "failed to insert episode")
	}
	return nil
}

// ListEpisodes implements interfaces.MemoryRepository.
func (s *SQLite) ListEpisodes(ctx context.Context) ([]*model.Episode, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, role, text, created_at FROM episodes ORDER BY seq DESC`)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list episodes")
	}
	defer rows.Close()
	return scanEpisodes(rows)
}

// SearchEpisodes implements interfaces.MemoryRepository.
func (s *SQLite) SearchEpisodes(ctx context.Context, tokens []string, limit int) ([]*model.Episode, error) {
	if len(tokens) == 0 || limit <= 0 {
		return nil, nil
	}

	conds := make([]string, 0, len(tokens))
	args := make([]any, 0, len(tokens)+1)
	for _, tok := range tokens {
		conds = append(conds, `lower(text) LIKE ? ESCAPE '\'`)
		args = append(args, "%"+likeEscaper.Replace(strings.ToLower(tok))+"%")
	}
	args = append(args, limit)

	query := `SELECT id, role, text, created_at FROM episodes WHERE ` +
		strings.Join(conds, " OR ") + ` ORDER BY seq DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to search episodes", goerr.V("tokens", tokens))
	}
	defer rows.Close()
	return scanEpisodes(rows)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

func scanEpisodes(rows *sql.Rows) ([]*model.Episode, error) {
	var episodes []*model.Episode
	for rows.Next() {
		var (
			e         model.Episode
			createdAt string
		)
		if err := rows.Scan(&e.ID, &e.Role, &e.Text, &createdAt); err != nil {
			return nil, goerr.Wrap(err, "failed to scan episode")
		}
		e.CreatedAt = parseTime(createdAt)
		episodes = append(episodes, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate episodes")
	}
	return episodes, nil
}

// PutPinnedFact implements interfaces.MemoryRepository.
func (s *SQLite) PutPinnedFact(ctx context.Context, fact *model.PinnedFact) error {
	if fact.Key == "" {
		return goerr.Wrap(ErrInvalidRecord, "pinned fact requires key")
	}
	fact.UpdatedAt = s.now()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pinned_facts (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		fact.Key, fact.Value, formatTime(fact.UpdatedAt))
	if err != nil {
		return goerr.Wrap(err, "failed to put pinned fact", goerr.V("key", fact.Key))
	}
	return nil
}

// ListPinnedFacts implements interfaces.MemoryRepository.
func (s *SQLite) ListPinnedFacts(ctx context.Context) ([]*model.PinnedFact, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value, updated_at FROM pinned_facts ORDER BY key`)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list pinned facts")
	}
	defer rows.Close()

	var facts []*model.PinnedFact
	for rows.Next() {
		var (
			f         model.PinnedFact
			updatedAt string
		)
		if err := rows.Scan(&f.Key, &f.Value, &updatedAt); err != nil {
			return nil, goerr.Wrap(err, "failed to scan pinned fact")
		}
		f.UpdatedAt = parseTime(updatedAt)
		facts = append(facts, &f)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate pinned facts")
	}
	return facts, nil
}

// PutQueryContext implements interfaces.MemoryRepository.
func (s *SQLite) PutQueryContext(ctx context.Context, qc *model.QueryContext) error {
	if qc.Key == "" {
		return goerr.Wrap(ErrInvalidRecord, "query context requires key")
	}
	raw, err := json.Marshal(qc.Value)
	if err != nil {
		return goerr.Wrap(err, "failed to marshal query context", goerr.V("key", qc.Key))
	}
	qc.UpdatedAt = s.now()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO query_context (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		qc.Key, string(raw), formatTime(qc.UpdatedAt))
	if err != nil {
		return goerr.Wrap(err, "failed to put query context", goerr.V("key", qc.Key))
	}
	return nil
}

// ListQueryContexts implements interfaces.MemoryRepository.
func (s *SQLite) ListQueryContexts(ctx context.Context) ([]*model.QueryContext, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value, updated_at FROM query_context`)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list query contexts")
	}
	defer rows.Close()

	var contexts []*model.QueryContext
	for rows.Next() {
		var (
			qc        model.QueryContext
			raw       string
			updatedAt string
		)
		if err := rows.Scan(&qc.Key, &raw, &updatedAt); err != nil {
			return nil, goerr.Wrap(err, "failed to scan query context")
		}
		if err := json.Unmarshal([]byte(raw), &qc.Value); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal query context", goerr.V("key", qc.Key))
		}
		qc.UpdatedAt = parseTime(updatedAt)
		contexts = append(contexts, &qc)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate query contexts")
	}
	return contexts, nil
}
