package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/fieldday/eventsync/internal/types"
)

// RecordSyncRun persists one run's audit record. Upserts so the run can
// be written once at acquisition and again at completion.
func (s *Store) RecordSyncRun(ctx context.Context, run *types.SyncRun) error {
	projectStats, err := json.Marshal(run.Projects)
	if err != nil {
		return fmt.Errorf("store: encoding project stats: %w", err)
	}
	eventStats, err := json.Marshal(run.Events)
	if err != nil {
		return fmt.Errorf("store: encoding event stats: %w", err)
	}

	var errText interface{}
	if run.Error != "" {
		errText = run.Error
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sync_runs
			(run_id, started_at, finished_at, acquired, completed, error, project_stats, event_stats)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			finished_at = VALUES(finished_at),
			acquired = VALUES(acquired),
			completed = VALUES(completed),
			error = VALUES(error),
			project_stats = VALUES(project_stats),
			event_stats = VALUES(event_stats)`,
		run.RunID, run.StartedAt.UTC(), nullDateTime(run.FinishedAt), run.Acquired, run.Completed,
		errText, string(projectStats), string(eventStats))
	if err != nil {
		return fmt.Errorf("store: recording sync run %s: %w", run.RunID, err)
	}
	return nil
}

// LatestSyncRuns returns the most recent runs, newest first.
func (s *Store) LatestSyncRuns(ctx context.Context, limit int) ([]*types.SyncRun, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, started_at, finished_at, acquired, completed, error, project_stats, event_stats
		FROM sync_runs ORDER BY started_at DESC, run_id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: querying sync runs: %w", err)
	}
	defer rows.Close()

	var out []*types.SyncRun
	for rows.Next() {
		var (
			run                      types.SyncRun
			finishedAt               sql.NullTime
			errText                  sql.NullString
			projectStats, eventStats sql.NullString
		)
		if err := rows.Scan(&run.RunID, &run.StartedAt, &finishedAt, &run.Acquired,
			&run.Completed, &errText, &projectStats, &eventStats); err != nil {
			return nil, fmt.Errorf("store: scanning sync run: %w", err)
		}
		run.StartedAt = run.StartedAt.UTC()
		if finishedAt.Valid {
			run.FinishedAt = finishedAt.Time.UTC()
		}
		run.Error = errText.String
		if projectStats.Valid && projectStats.String != "" {
			if err := json.Unmarshal([]byte(projectStats.String), &run.Projects); err != nil {
				return nil, fmt.Errorf("store: decoding project stats for %s: %w", run.RunID, err)
			}
		}
		if eventStats.Valid && eventStats.String != "" {
			if err := json.Unmarshal([]byte(eventStats.String), &run.Events); err != nil {
				return nil, fmt.Errorf("store: decoding event stats for %s: %w", run.RunID, err)
			}
		}
		out = append(out, &run)
	}
	return out, rows.Err()
}
