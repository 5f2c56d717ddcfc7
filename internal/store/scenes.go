package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/amsoltis/scenerender/internal/apperrors"
	"github.com/google/uuid"
)

func (db *DB) CreateScene(ctx context.Context, s *Scene) error {
	query := `
		INSERT INTO scenes (
			scene_id, job_id, index, description, duration_ms, media_type, status, fallback_used
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`
	return db.QueryRowContext(
		ctx, query,
		s.SceneID, s.JobID, s.Index, s.Description, s.DurationMs, s.MediaType, s.Status, s.FallbackUsed,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
}

// ScenesForJob returns every scene of a job ordered by index, the selection
// query the timeline and assembler both rely on for scene-graph order.
func (db *DB) ScenesForJob(ctx context.Context, jobID uuid.UUID) ([]Scene, error) {
	query := `
		SELECT
			scene_id, job_id, index, description, duration_ms, media_type, engine_used,
			status, asset_path, fallback_used, render_duration_ms, error_message,
			created_at, updated_at
		FROM scenes
		WHERE job_id = $1
		ORDER BY index
	`
	rows, err := db.QueryContext(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to query scenes: %w", err)
	}
	defer rows.Close()

	var scenes []Scene
	for rows.Next() {
		var s Scene
		if err := rows.Scan(
			&s.SceneID, &s.JobID, &s.Index, &s.Description, &s.DurationMs, &s.MediaType,
			&s.EngineUsed, &s.Status, &s.AssetPath, &s.FallbackUsed, &s.RenderDurationMs,
			&s.ErrorMessage, &s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan scene: %w", err)
		}
		scenes = append(scenes, s)
	}
	return scenes, nil
}

// IncompleteScenesForJob returns scenes not yet DONE/FALLBACK — the crash
// recovery resume set.
func (db *DB) IncompleteScenesForJob(ctx context.Context, jobID uuid.UUID) ([]Scene, error) {
	all, err := db.ScenesForJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	var incomplete []Scene
	for _, s := range all {
		if !s.Status.IsComplete() {
			incomplete = append(incomplete, s)
		}
	}
	return incomplete, nil
}

func (db *DB) GetScene(ctx context.Context, jobID uuid.UUID, sceneID int) (*Scene, error) {
	query := `
		SELECT
			scene_id, job_id, index, description, duration_ms, media_type, engine_used,
			status, asset_path, fallback_used, render_duration_ms, error_message,
			created_at, updated_at
		FROM scenes
		WHERE job_id = $1 AND scene_id = $2
	`
	s := &Scene{}
	err := db.QueryRowContext(ctx, query, jobID, sceneID).Scan(
		&s.SceneID, &s.JobID, &s.Index, &s.Description, &s.DurationMs, &s.MediaType,
		&s.EngineUsed, &s.Status, &s.AssetPath, &s.FallbackUsed, &s.RenderDurationMs,
		&s.ErrorMessage, &s.CreatedAt, &s.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, &apperrors.StateError{Entity: "scene", ID: fmt.Sprintf("%s/%d", jobID, sceneID)}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scene: %w", err)
	}
	return s, nil
}

func (db *DB) UpdateSceneStatus(ctx context.Context, jobID uuid.UUID, sceneID int, status SceneStatus) error {
	query := `UPDATE scenes SET status = $1, updated_at = now() WHERE job_id = $2 AND scene_id = $3`
	_, err := db.ExecContext(ctx, query, status, jobID, sceneID)
	return err
}

// CompleteScene persists a scene render outcome: engine used, fallback flag,
// resulting asset path, measured duration, and terminal status.
func (db *DB) CompleteScene(ctx context.Context, jobID uuid.UUID, sceneID int, status SceneStatus, engineUsed, assetPath string, fallbackUsed bool, renderDurationMs int) error {
	query := `
		UPDATE scenes
		SET status = $1, engine_used = $2, asset_path = $3, fallback_used = $4,
			render_duration_ms = $5, updated_at = now()
		WHERE job_id = $6 AND scene_id = $7
	`
	_, err := db.ExecContext(ctx, query, status, engineUsed, assetPath, fallbackUsed, renderDurationMs, jobID, sceneID)
	return err
}

func (db *DB) FailScene(ctx context.Context, jobID uuid.UUID, sceneID int, errorMessage string) error {
	query := `UPDATE scenes SET status = $1, error_message = $2, updated_at = now() WHERE job_id = $3 AND scene_id = $4`
	_, err := db.ExecContext(ctx, query, SceneFailed, errorMessage, jobID, sceneID)
	return err
}
