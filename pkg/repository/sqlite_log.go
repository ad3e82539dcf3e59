package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/spotter/pkg/model"
)

const logColumns = `id, exercise, sets, reps, weight, date, notes, created_at`

// InsertLog implements interfaces.LogRepository.
func (s *SQLite) InsertLog(ctx context.Context, entry *model.LogEntry) error {
	if entry.Exercise == "" || entry.Date == "" {
		return goerr.Wrap(ErrInvalidRecord, "log entry requires exercise and date")
	}
	if entry.ID == "" {
		entry.ID = model.NewLogID()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO workout_logs (`+logColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Exercise, entry.Sets, entry.Reps, entry.Weight,
		entry.Date, entry.Notes, formatTime(entry.CreatedAt))
	if err != nil {
		return goerr.Wrap(err, "failed to insert log entry", goerr.V("exercise", entry.Exercise))
	}
	return nil
}

// ListLogs implements interfaces.LogRepository.
func (s *SQLite) ListLogs(ctx context.Context, date string, limit int) ([]*model.LogEntry, error) {
	query := `SELECT ` + logColumns + ` FROM workout_logs`
	var args []any
	if date != "" {
		query += ` WHERE date = ?`
		args = append(args, date)
	}
	// Within a date, keep insertion order so sessions read top to bottom.
	query += ` ORDER BY date DESC, created_at ASC, rowid ASC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list logs", goerr.V("date", date))
	}
	return scanLogs(rows)
}

// ListLogsByExercise implements interfaces.LogRepository.
func (s *SQLite) ListLogsByExercise(ctx context.Context, name string, limit int) ([]*model.LogEntry, error) {
	query := `SELECT ` + logColumns + ` FROM workout_logs WHERE lower(exercise) = ? ORDER BY date DESC, created_at DESC, rowid DESC`
	args := []any{strings.ToLower(strings.TrimSpace(name))}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list logs by exercise", goerr.V("exercise", name))
	}
	return scanLogs(rows)
}

func scanLogs(rows *sql.Rows) ([]*model.LogEntry, error) {
	defer rows.Close()

	var entries []*model.LogEntry
	for rows.Next() {
		var (
			e         model.LogEntry
			createdAt string
		)
		if err := rows.Scan(&e.ID, &e.Exercise, &e.Sets, &e.Reps, &e.Weight, &e.Date, &e.Notes, &createdAt); err != nil {
			return nil, goerr.Wrap(err, "failed to scan log entry")
		}
		e.CreatedAt = parseTime(createdAt)
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate log entries")
	}
	return entries, nil
}
