package store

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestJobStatusPrecedes(t *testing.T) {
	require.True(t, JobQueued.Precedes(JobPlanningScenes))
	require.True(t, JobRenderingScenes.Precedes(JobDone))
	require.False(t, JobDone.Precedes(JobQueued))
	require.False(t, JobFailed.Precedes(JobDone))
	require.False(t, JobQueued.Precedes(JobFailed))
}

func TestJobStatusIsTerminal(t *testing.T) {
	require.True(t, JobDone.IsTerminal())
	require.True(t, JobFailed.IsTerminal())
	require.False(t, JobRenderingScenes.IsTerminal())
}

func TestSegmentsFromScenes(t *testing.T) {
	jobID := uuid.New()
	scenes := []Scene{
		{SceneID: 1, JobID: jobID, Index: 0, Description: "a", DurationMs: 2000, MediaType: "IMAGE", Status: SceneDone},
		{SceneID: 2, JobID: jobID, Index: 1, Description: "b", DurationMs: 3000, MediaType: "VIDEO", Status: SceneFallback, FallbackUsed: true},
	}

	segments := SegmentsFromScenes(scenes)
	require.Len(t, segments, 2)
	require.Equal(t, 1, segments[0].SegmentID)
	require.Equal(t, scenes[1].FallbackUsed, segments[1].FallbackUsed)
	require.Equal(t, scenes[1].Status, segments[1].Status)
}
