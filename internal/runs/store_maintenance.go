package runs

import (
	"context"
	"fmt"
	"time"
)

// Stats returns a count of runs grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM runs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("run stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Health aggregates run state for diagnostic output.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	health := HealthSummary{}
	for status, count := range stats {
		health.Total += count
		switch status {
		case StatusPending:
			health.Pending += count
		case StatusFailed:
			health.Failed += count
		case StatusCompleted:
			health.Completed += count
		default:
			if _, ok := processingStatuses[status]; ok {
				health.Processing += count
			}
		}
	}
	return health, nil
}

// FailInFlight marks every in-flight run as failed with the given reason.
// The daemon calls this on startup so runs interrupted by a crash or shutdown
// don't report as processing forever; their workspaces are reclaimed by the
// stale sweep.
func (s *Store) FailInFlight(ctx context.Context, reason string) (int64, error) {
	statuses := make([]Status, 0, len(processingStatuses))
	for status := range processingStatuses {
		statuses = append(statuses, status)
	}
	placeholders := makePlaceholders(len(statuses))
	args := []any{StatusFailed, reason, time.Now().UTC().Format(time.RFC3339Nano)}
	for _, status := range statuses {
		args = append(args, status)
	}

	res, err := s.execWithRetry(ctx,
		`UPDATE runs SET status = ?, error_message = ?, updated_at = ? WHERE status IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("fail in-flight runs: %w", err)
	}
	return res.RowsAffected()
}
