package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/amsoltis/scenerender/internal/apperrors"
	"github.com/google/uuid"
)

func (db *DB) CreateJob(ctx context.Context, job *Job) error {
	query := `
		INSERT INTO jobs (
			id, version, status, preset_id, brand_safe, target_duration_seconds,
			progress_pct, fallback_used
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`
	return db.QueryRowContext(
		ctx, query,
		job.ID, job.Version, job.Status, job.PresetID, job.BrandSafe,
		job.TargetDurationSeconds, job.ProgressPct, job.FallbackUsed,
	).Scan(&job.CreatedAt, &job.UpdatedAt)
}

func (db *DB) GetJob(ctx context.Context, id uuid.UUID) (*Job, error) {
	query := `
		SELECT
			id, version, status, preset_id, brand_safe, target_duration_seconds,
			progress_pct, output_uri, thumbnail_uri, fallback_used, fallback_reason,
			error_message, scene_graph_json, timeline_json, render_spec_json,
			created_at, updated_at
		FROM jobs
		WHERE id = $1
	`
	job := &Job{}
	err := db.QueryRowContext(ctx, query, id).Scan(
		&job.ID, &job.Version, &job.Status, &job.PresetID, &job.BrandSafe,
		&job.TargetDurationSeconds, &job.ProgressPct, &job.OutputURI, &job.ThumbnailURI,
		&job.FallbackUsed, &job.FallbackReason, &job.ErrorMessage,
		&job.SceneGraphJSON, &job.TimelineJSON, &job.RenderSpecJSON,
		&job.CreatedAt, &job.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, &apperrors.StateError{Entity: "job", ID: id.String()}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

// NonTerminalJobs returns every job not in DONE/FAILED, used by the Job
// Runner's crash-recovery scan on startup.
func (db *DB) NonTerminalJobs(ctx context.Context) ([]Job, error) {
	query := `
		SELECT
			id, version, status, preset_id, brand_safe, target_duration_seconds,
			progress_pct, output_uri, thumbnail_uri, fallback_used, fallback_reason,
			error_message, scene_graph_json, timeline_json, render_spec_json,
			created_at, updated_at
		FROM jobs
		WHERE status NOT IN ($1, $2)
		ORDER BY created_at
	`
	rows, err := db.QueryContext(ctx, query, JobDone, JobFailed)
	if err != nil {
		return nil, fmt.Errorf("failed to query non-terminal jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		var job Job
		if err := rows.Scan(
			&job.ID, &job.Version, &job.Status, &job.PresetID, &job.BrandSafe,
			&job.TargetDurationSeconds, &job.ProgressPct, &job.OutputURI, &job.ThumbnailURI,
			&job.FallbackUsed, &job.FallbackReason, &job.ErrorMessage,
			&job.SceneGraphJSON, &job.TimelineJSON, &job.RenderSpecJSON,
			&job.CreatedAt, &job.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func (db *DB) UpdateJobStatus(ctx context.Context, id uuid.UUID, status JobStatus, progressPct int) error {
	query := `UPDATE jobs SET status = $1, progress_pct = $2, updated_at = now() WHERE id = $3`
	_, err := db.ExecContext(ctx, query, status, progressPct, id)
	return err
}

func (db *DB) SetJobSceneGraph(ctx context.Context, id uuid.UUID, sceneGraphJSON string) error {
	query := `UPDATE jobs SET scene_graph_json = $1, updated_at = now() WHERE id = $2`
	_, err := db.ExecContext(ctx, query, sceneGraphJSON, id)
	return err
}

func (db *DB) SetJobTimeline(ctx context.Context, id uuid.UUID, timelineJSON string) error {
	query := `UPDATE jobs SET timeline_json = $1, updated_at = now() WHERE id = $2`
	_, err := db.ExecContext(ctx, query, timelineJSON, id)
	return err
}

func (db *DB) SetJobOutput(ctx context.Context, id uuid.UUID, outputURI, thumbnailURI string) error {
	query := `
		UPDATE jobs
		SET output_uri = $1, thumbnail_uri = $2, status = $3, progress_pct = 100, updated_at = now()
		WHERE id = $4
	`
	_, err := db.ExecContext(ctx, query, outputURI, thumbnailURI, JobDone, id)
	return err
}

func (db *DB) SetJobFallback(ctx context.Context, id uuid.UUID, reason string) error {
	query := `UPDATE jobs SET fallback_used = true, fallback_reason = $1, updated_at = now() WHERE id = $2`
	_, err := db.ExecContext(ctx, query, reason, id)
	return err
}

func (db *DB) FailJob(ctx context.Context, id uuid.UUID, errorMessage string) error {
	query := `UPDATE jobs SET status = $1, error_message = $2, updated_at = now() WHERE id = $3`
	_, err := db.ExecContext(ctx, query, JobFailed, errorMessage, id)
	return err
}
