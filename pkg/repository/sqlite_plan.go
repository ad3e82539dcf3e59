package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/spotter/pkg/interfaces"
	"github.com/m-mizutani/spotter/pkg/model"
)

const planBlockColumns = `id, day, block_type, label, exercise, order_index, target_sets, target_reps, target_weight, meta, members, updated_at`

// ListPlanBlocks implements interfaces.PlanRepository.
func (s *SQLite) ListPlanBlocks(ctx context.Context, day string) ([]*model.PlanBlockRecord, error) {
	return listPlanBlocks(ctx, s.db, day)
}

// ApplyPlanChange implements interfaces.PlanRepository.
func (s *SQLite) ApplyPlanChange(ctx context.Context, fn func(ctx context.Context, tx interfaces.PlanTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return goerr.Wrap(err, "failed to begin transaction")
	}

	if err := fn(ctx, &sqlitePlanTx{tx: tx, now: s.now}); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return goerr.Wrap(err, "failed to commit plan change")
	}
	return nil
}

type sqlitePlanTx struct {
	tx  *sql.Tx
	now func() time.Time
}

func (t *sqlitePlanTx) ListPlanBlocks(ctx context.Context, day string) ([]*model.PlanBlockRecord, error) {
	return listPlanBlocks(ctx, t.tx, day)
}

func (t *sqlitePlanTx) InsertPlanBlock(ctx context.Context, rec *model.PlanBlockRecord) error {
	if rec.ID == "" || rec.Day == "" {
		return goerr.Wrap(ErrInvalidRecord, "plan block requires id and day", goerr.V("id", rec.ID))
	}
	rec.UpdatedAt = t.now()

	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO plan_blocks (`+planBlockColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Day, rec.BlockType, rec.Label, rec.Exercise, rec.OrderIndex,
		rec.TargetSets, rec.TargetReps, rec.TargetWeight, defaultJSON(rec.Meta, "{}"),
		defaultJSON(rec.Members, "[]"), formatTime(rec.UpdatedAt))
	if err != nil {
		return goerr.Wrap(err, "failed to insert plan block", goerr.V("id", rec.ID))
	}
	return nil
}

func (t *sqlitePlanTx) UpdatePlanBlock(ctx context.Context, rec *model.PlanBlockRecord) error {
	rec.UpdatedAt = t.now()

	res, err := t.tx.ExecContext(ctx, `
		UPDATE plan_blocks
		SET block_type = ?, label = ?, exercise = ?, order_index = ?, target_sets = ?,
			target_reps = ?, target_weight = ?, meta = ?, members = ?, updated_at = ?
		WHERE id = ?`,
		rec.BlockType, rec.Label, rec.Exercise, rec.OrderIndex, rec.TargetSets,
		rec.TargetReps, rec.TargetWeight, defaultJSON(rec.Meta, "{}"),
		defaultJSON(rec.Members, "[]"), formatTime(rec.UpdatedAt), rec.ID)
	if err != nil {
		return goerr.Wrap(err, "failed to update plan block", goerr.V("id", rec.ID))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return goerr.Wrap(ErrInvalidRecord, "plan block does not exist", goerr.V("id", rec.ID))
	}
	return nil
}

func (t *sqlitePlanTx) DeletePlanBlock(ctx context.Context, id model.BlockID) (int, error) {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM plan_blocks WHERE id = ?`, id)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to delete plan block", goerr.V("id", id))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, goerr.Wrap(err, "failed to get affected rows", goerr.V("id", id))
	}
	return int(n), nil
}

func (t *sqlitePlanTx) SetOrderIndex(ctx context.Context, id model.BlockID, orderIndex int) error {
	if _, err := t.tx.ExecContext(ctx, `UPDATE plan_blocks SET order_index = ? WHERE id = ?`, orderIndex, id); err != nil {
		return goerr.Wrap(err, "failed to set order index", goerr.V("id", id), goerr.V("order_index", orderIndex))
	}
	return nil
}

func listPlanBlocks(ctx context.Context, q querier, day string) ([]*model.PlanBlockRecord, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if day == "" {
		rows, err = q.QueryContext(ctx, `SELECT `+planBlockColumns+` FROM plan_blocks ORDER BY day, order_index, rowid`)
	} else {
		rows, err = q.QueryContext(ctx, `SELECT `+planBlockColumns+` FROM plan_blocks WHERE day = ? ORDER BY order_index, rowid`, day)
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list plan blocks", goerr.V("day", day))
	}
	defer rows.Close()

	var records []*model.PlanBlockRecord
	for rows.Next() {
		var (
			rec       model.PlanBlockRecord
			updatedAt string
		)
		if err := rows.Scan(&rec.ID, &rec.Day, &rec.BlockType, &rec.Label, &rec.Exercise,
			&rec.OrderIndex, &rec.TargetSets, &rec.TargetReps, &rec.TargetWeight,
			&rec.Meta, &rec.Members, &updatedAt); err != nil {
			return nil, goerr.Wrap(err, "failed to scan plan block")
		}
		rec.UpdatedAt = parseTime(updatedAt)
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate plan blocks")
	}
	return records, nil
}

func defaultJSON(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
