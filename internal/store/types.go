package store

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus is one state of the Job lifecycle.
type JobStatus string

const (
	JobQueued           JobStatus = "QUEUED"
	JobPlanningScenes   JobStatus = "PLANNING_SCENES"
	JobBuildingTimeline JobStatus = "BUILDING_TIMELINE"
	JobRenderingScenes  JobStatus = "RENDERING_SCENES"
	JobComposing        JobStatus = "COMPOSING"
	JobAudioAssembly    JobStatus = "AUDIO_ASSEMBLY"
	JobFinalizing       JobStatus = "FINALIZING"
	JobDone             JobStatus = "DONE"
	JobFailed           JobStatus = "FAILED"
)

// IsTerminal reports whether a job in this status will never transition again.
func (s JobStatus) IsTerminal() bool {
	return s == JobDone || s == JobFailed
}

// jobStatusOrder gives each non-terminal status its position in the
// monotonic sequence so the runner can assert forward-only progress.
var jobStatusOrder = map[JobStatus]int{
	JobQueued:           0,
	JobPlanningScenes:   1,
	JobBuildingTimeline: 2,
	JobRenderingScenes:  3,
	JobComposing:        4,
	JobAudioAssembly:    5,
	JobFinalizing:       6,
	JobDone:             7,
}

// Precedes reports whether `s` comes strictly before `other` in the
// lifecycle sequence (FAILED is absorbing and precedes nothing).
func (s JobStatus) Precedes(other JobStatus) bool {
	if s == JobFailed || other == JobFailed {
		return false
	}
	return jobStatusOrder[s] < jobStatusOrder[other]
}

// SceneStatus is one state of a Scene record.
type SceneStatus string

const (
	ScenePending   SceneStatus = "PENDING"
	SceneRendering SceneStatus = "RENDERING"
	SceneDone      SceneStatus = "DONE"
	SceneFallback  SceneStatus = "FALLBACK"
	SceneFailed    SceneStatus = "FAILED"
)

// IsComplete reports whether a scene has reached a terminal success state.
func (s SceneStatus) IsComplete() bool {
	return s == SceneDone || s == SceneFallback
}

// Job is the one process-wide durable record per render job.
type Job struct {
	ID                    uuid.UUID
	Version               int
	Status                JobStatus
	PresetID              *string
	BrandSafe             bool
	TargetDurationSeconds int
	ProgressPct           int
	OutputURI             *string
	ThumbnailURI          *string
	FallbackUsed          bool
	FallbackReason        *string
	ErrorMessage          *string
	SceneGraphJSON        *string
	TimelineJSON          *string
	RenderSpecJSON        *string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// Scene is the per-scene record of a job.
type Scene struct {
	SceneID          int
	JobID            uuid.UUID
	Index            int
	Description      string
	DurationMs       int
	MediaType        string
	EngineUsed       *string
	Status           SceneStatus
	AssetPath        *string
	FallbackUsed     bool
	RenderDurationMs *int
	ErrorMessage     *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Segment is the legacy equivalent of Scene, kept for read compatibility
// with callers that have not migrated to the scene-graph pipeline. New code
// always writes Scene rows; SegmentsFromScenes offers a thin re-projection.
type Segment struct {
	SegmentID        int
	JobID            uuid.UUID
	Index            int
	Description      string
	DurationMs       int
	MediaType        string
	EngineUsed       *string
	Status           SceneStatus
	AssetPath        *string
	FallbackUsed     bool
	RenderDurationMs *int
	ErrorMessage     *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// SegmentsFromScenes re-projects scene rows into the legacy Segment shape.
func SegmentsFromScenes(scenes []Scene) []Segment {
	out := make([]Segment, len(scenes))
	for i, s := range scenes {
		out[i] = Segment{
			SegmentID:        s.SceneID,
			JobID:            s.JobID,
			Index:            s.Index,
			Description:      s.Description,
			DurationMs:       s.DurationMs,
			MediaType:        s.MediaType,
			EngineUsed:       s.EngineUsed,
			Status:           s.Status,
			AssetPath:        s.AssetPath,
			FallbackUsed:     s.FallbackUsed,
			RenderDurationMs: s.RenderDurationMs,
			ErrorMessage:     s.ErrorMessage,
			CreatedAt:        s.CreatedAt,
			UpdatedAt:        s.UpdatedAt,
		}
	}
	return out
}
