package assembler

import (
	"testing"

	"github.com/amsoltis/scenerender/internal/media"
	"github.com/amsoltis/scenerender/internal/renderspec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trPtr(tr renderspec.Transition) *renderspec.Transition { return &tr }

func TestTransitionSpecs(t *testing.T) {
	tl := &renderspec.Timeline{
		TotalDuration: 14500,
		Timeline: []renderspec.TimelineEntry{
			{SceneID: 1, Start: 0, End: 5000, Transition: trPtr(renderspec.TransitionFade)},
			{SceneID: 2, Start: 4500, End: 9500, Transition: trPtr(renderspec.TransitionCut)},
			{SceneID: 3, Start: 9500, End: 14500},
		},
	}

	specs := transitionSpecs(tl)
	require.Len(t, specs, 2)

	assert.Equal(t, media.TransitionSpec{Kind: "FADE", DurationMs: 500}, specs[0])
	assert.Equal(t, media.TransitionSpec{Kind: "cut", DurationMs: 1}, specs[1])
}

func TestTransitionSpecsSingleScene(t *testing.T) {
	tl := &renderspec.Timeline{
		TotalDuration: 5000,
		Timeline:      []renderspec.TimelineEntry{{SceneID: 1, Start: 0, End: 5000}},
	}
	assert.Nil(t, transitionSpecs(tl))
}

func TestTransitionSpecsMissingOverlapFallsBackToCutLength(t *testing.T) {
	tl := &renderspec.Timeline{
		Timeline: []renderspec.TimelineEntry{
			{SceneID: 1, Start: 0, End: 5000, Transition: trPtr(renderspec.TransitionFade)},
			{SceneID: 2, Start: 5000, End: 10000},
		},
	}
	specs := transitionSpecs(tl)
	require.Len(t, specs, 1)
	assert.Equal(t, 1, specs[0].DurationMs)
	assert.Equal(t, "FADE", specs[0].Kind)
}
