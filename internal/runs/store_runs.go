package runs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrDuplicateDraft is returned when a draft ID already has a run recorded.
var ErrDuplicateDraft = errors.New("draft ID already submitted")

const runColumns = "id, draft_id, template, job_json, status, error_message, receipt_json, created_at, updated_at, finished_at"

// NewRun inserts a pending run for a draft submission. The draft ID carries a
// UNIQUE constraint, so resubmitting an ID that was ever accepted fails with
// ErrDuplicateDraft.
func (s *Store) NewRun(ctx context.Context, draftID, template, jobJSON string) (*Run, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO runs (
            draft_id, template, job_json, status, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?)`,
		draftID,
		nullableString(template),
		nullableString(jobJSON),
		StatusPending,
		timestamp,
		timestamp,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateDraft, draftID)
		}
		return nil, fmt.Errorf("insert run: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "constraint failed: runs.draft_id")
}

// GetByID fetches a run by identifier.
func (s *Store) GetByID(ctx context.Context, id int64) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// GetByDraftID fetches the run recorded for a draft ID.
func (s *Store) GetByDraftID(ctx context.Context, draftID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE draft_id = ?`, draftID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run by draft: %w", err)
	}
	return run, nil
}

// Update persists changes to an existing run.
func (s *Store) Update(ctx context.Context, run *Run) error {
	if run == nil {
		return errors.New("run is nil")
	}
	run.UpdatedAt = time.Now().UTC()
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE runs
         SET template = ?, job_json = ?, status = ?, error_message = ?,
             receipt_json = ?, updated_at = ?, finished_at = ?
         WHERE id = ?`,
		nullableString(run.Template),
		nullableString(run.JobJSON),
		run.Status,
		nullableString(run.ErrorMessage),
		nullableString(run.ReceiptJSON),
		run.UpdatedAt.Format(time.RFC3339Nano),
		nullableTime(run.FinishedAt),
		run.ID,
	); err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	return nil
}

// List returns runs filtered by status set, oldest first. With no statuses it
// returns every run.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Run, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + runColumns + ` FROM runs`
	orderClause := ` ORDER BY created_at`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		rows, err = s.db.QueryContext(ctx, baseQuery+` WHERE status IN (`+placeholders+`)`+orderClause, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var results []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, run)
	}
	return results, rows.Err()
}

// ClaimNextPending atomically promotes the oldest pending run to provisioned
// and returns it, or nil when none is waiting. Claiming through a guarded
// UPDATE keeps concurrent workers from picking the same run.
func (s *Store) ClaimNextPending(ctx context.Context) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id FROM runs WHERE status = ? ORDER BY created_at LIMIT 1`, StatusPending)
	var id int64
	if err := row.Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("next pending run: %w", err)
	}

	res, err := s.execWithRetry(ctx,
		`UPDATE runs SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		StatusProvisioned,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
		StatusPending,
	)
	if err != nil {
		return nil, fmt.Errorf("claim run: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		// Another worker claimed it between the select and the update.
		return nil, nil
	}
	return s.GetByID(ctx, id)
}

// Remove deletes a run by identifier.
func (s *Store) Remove(ctx context.Context, id int64) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete run: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// ClearCompleted removes completed runs.
func (s *Store) ClearCompleted(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM runs WHERE status = ?`, StatusCompleted)
	if err != nil {
		return 0, fmt.Errorf("clear completed: %w", err)
	}
	return res.RowsAffected()
}

// ClearFailed removes failed runs.
func (s *Store) ClearFailed(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM runs WHERE status = ?`, StatusFailed)
	if err != nil {
		return 0, fmt.Errorf("clear failed: %w", err)
	}
	return res.RowsAffected()
}

// Clear removes all runs.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM runs`)
	if err != nil {
		return 0, fmt.Errorf("clear runs: %w", err)
	}
	return res.RowsAffected()
}
