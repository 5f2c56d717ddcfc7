// Package api is the daemon's thin operational HTTP surface: health, job
// status reads, and a job-submission endpoint for exercising the pipeline
// without a separate API service. The full CRUD surface over jobs and
// assets lives outside this repository.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/amsoltis/scenerender/internal/apperrors"
	"github.com/amsoltis/scenerender/internal/planner"
	"github.com/amsoltis/scenerender/internal/queue"
	"github.com/amsoltis/scenerender/internal/store"
)

type Handler struct {
	db    *store.DB
	queue *queue.Queue
}

func NewHandler(db *store.DB, q *queue.Queue) *Handler {
	return &Handler{db: db, queue: q}
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	depth, err := h.queue.Depth(r.Context())
	status := "ok"
	if err != nil {
		status = "degraded"
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status":     status,
		"queueDepth": depth,
		"time":       time.Now().UTC().Format(time.RFC3339),
	})
}

// CreateJobRequest is the submission payload: the planner runs eagerly at
// acceptance time so the persisted scene graph is authoritative before the
// job ever reaches a worker.
type CreateJobRequest struct {
	Prompt                string   `json:"prompt"`
	MediaAssets           []string `json:"mediaAssets,omitempty"`
	PresetID              string   `json:"presetId,omitempty"`
	BrandSafe             bool     `json:"brandSafe"`
	TargetDurationSeconds int      `json:"targetDurationSeconds"`
	EnginePreference      string   `json:"enginePreference,omitempty"`
	VoiceScript           string   `json:"voiceScript,omitempty"`
	VoiceAssetRef         string   `json:"voiceAssetRef,omitempty"`
	MusicAssetRef         string   `json:"musicAssetRef,omitempty"`
}

// CreateJob handles POST /v1/jobs: plan, persist, enqueue.
func (h *Handler) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.TargetDurationSeconds <= 0 {
		req.TargetDurationSeconds = 30
	}
	if req.TargetDurationSeconds > 60 {
		respondError(w, http.StatusBadRequest, "targetDurationSeconds must be at most 60")
		return
	}

	graph, err := planner.Plan(planner.Request{
		MediaAssets:           req.MediaAssets,
		Prompt:                req.Prompt,
		PresetID:              req.PresetID,
		BrandSafe:             req.BrandSafe,
		TargetDurationSeconds: req.TargetDurationSeconds,
		EnginePreference:      req.EnginePreference,
		VoiceScript:           req.VoiceScript,
		VoiceAssetRef:         req.VoiceAssetRef,
		MusicAssetRef:         req.MusicAssetRef,
	})
	if err != nil {
		if _, ok := err.(*apperrors.PlanningError); ok {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "Planning failed")
		return
	}

	graphJSON, err := graph.ToJSON()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to serialize plan")
		return
	}

	presetID := req.PresetID
	job := &store.Job{
		ID:                    uuid.New(),
		Version:               1,
		Status:                store.JobQueued,
		BrandSafe:             req.BrandSafe,
		TargetDurationSeconds: req.TargetDurationSeconds,
	}
	if presetID != "" {
		job.PresetID = &presetID
	}

	if err := h.db.CreateJob(r.Context(), job); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to persist job")
		return
	}
	if err := h.db.SetJobSceneGraph(r.Context(), job.ID, string(graphJSON)); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to persist scene graph")
		return
	}
	if err := h.queue.Enqueue(r.Context(), job.ID); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to enqueue job")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"id":         job.ID,
		"status":     job.Status,
		"sceneCount": len(graph.Scenes),
	})
}

// GetJob handles GET /v1/jobs/{id}.
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid job id")
		return
	}

	job, err := h.db.GetJob(r.Context(), id)
	if err != nil {
		if _, ok := err.(*apperrors.StateError); ok {
			respondError(w, http.StatusNotFound, "Job not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to load job")
		return
	}

	scenes, err := h.db.ScenesForJob(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to load scenes")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"id":             job.ID,
		"status":         job.Status,
		"progressPct":    job.ProgressPct,
		"brandSafe":      job.BrandSafe,
		"outputUri":      job.OutputURI,
		"thumbnailUri":   job.ThumbnailURI,
		"fallbackUsed":   job.FallbackUsed,
		"fallbackReason": job.FallbackReason,
		"error":          job.ErrorMessage,
		"scenes":         sceneViews(scenes),
		"createdAt":      job.CreatedAt,
		"updatedAt":      job.UpdatedAt,
	})
}

type sceneView struct {
	SceneID      int     `json:"sceneId"`
	Status       string  `json:"status"`
	EngineUsed   *string `json:"engineUsed,omitempty"`
	FallbackUsed bool    `json:"fallbackUsed"`
	Error        *string `json:"error,omitempty"`
}

func sceneViews(scenes []store.Scene) []sceneView {
	out := make([]sceneView, len(scenes))
	for i, s := range scenes {
		out[i] = sceneView{
			SceneID:      s.SceneID,
			Status:       string(s.Status),
			EngineUsed:   s.EngineUsed,
			FallbackUsed: s.FallbackUsed,
			Error:        s.ErrorMessage,
		}
	}
	return out
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
