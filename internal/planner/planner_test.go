package planner

import (
	"fmt"
	"testing"

	"github.com/amsoltis/scenerender/internal/renderspec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanThreeSentences(t *testing.T) {
	graph, err := Plan(Request{
		Prompt:                "Product reveal. Key features. Call to action.",
		PresetID:              "product_hero_clean",
		BrandSafe:             true,
		TargetDurationSeconds: 15,
	})
	require.NoError(t, err)
	require.Len(t, graph.Scenes, 3)

	total := 0
	for i, s := range graph.Scenes {
		assert.Equal(t, i+1, s.ID)
		assert.Contains(t, []renderspec.Transition{renderspec.TransitionCut, renderspec.TransitionFade}, s.Transition)
		assert.InDelta(t, 5000, s.DurationMs, 1000)
		total += s.DurationMs
	}
	assert.LessOrEqual(t, total, 15000)
}

func TestPlanSingleSentence(t *testing.T) {
	graph, err := Plan(Request{
		Prompt:                "A stunning product reveal.",
		TargetDurationSeconds: 6,
	})
	require.NoError(t, err)
	require.Len(t, graph.Scenes, 1)
	assert.LessOrEqual(t, graph.Scenes[0].DurationMs, 6000)
	assert.Equal(t, renderspec.MediaVideo, graph.Scenes[0].Media.Kind)
	require.NotNil(t, graph.Scenes[0].Media.Prompt)
}

func TestPlanShotMarkers(t *testing.T) {
	graph, err := Plan(Request{
		Prompt:                "<SHOT 1> Opening wide shot of the city <SHOT 2> Close-up on the watch face <SHOT 3> Logo reveal",
		TargetDurationSeconds: 12,
	})
	require.NoError(t, err)
	require.Len(t, graph.Scenes, 3)
	assert.Equal(t, "Opening wide shot of the city", graph.Scenes[0].Description)
	assert.Equal(t, "Logo reveal", graph.Scenes[2].Description)
}

func TestPlanAssetsOnly(t *testing.T) {
	assets := make([]string, 15)
	for i := range assets {
		assets[i] = fmt.Sprintf("uploads/u/p%d.jpg", i+1)
	}
	graph, err := Plan(Request{
		MediaAssets:           assets,
		PresetID:              "product_hero_clean",
		TargetDurationSeconds: 60,
	})
	require.NoError(t, err)
	require.Len(t, graph.Scenes, 15)

	total := 0
	for _, s := range graph.Scenes {
		assert.Equal(t, renderspec.MediaImage, s.Media.Kind)
		require.NotNil(t, s.Media.Asset)
		total += s.DurationMs
	}
	assert.LessOrEqual(t, total, 60000)
}

func TestPlanTemplateFallback(t *testing.T) {
	graph, err := Plan(Request{
		PresetID:              "product_hero_clean",
		TargetDurationSeconds: 15,
	})
	require.NoError(t, err)
	require.Len(t, graph.Scenes, 3)
	for _, s := range graph.Scenes {
		assert.NotEmpty(t, s.Description)
		assert.NotEmpty(t, s.Caption)
	}
}

func TestPlanSentencesWithImagesCycle(t *testing.T) {
	graph, err := Plan(Request{
		Prompt:                "First. Second. Third.",
		MediaAssets:           []string{"uploads/u/a.jpg", "uploads/u/b.jpg"},
		TargetDurationSeconds: 9,
	})
	require.NoError(t, err)
	require.Len(t, graph.Scenes, 3)
	// Assets cycle i mod N: a, b, a.
	assert.Equal(t, "uploads/u/a.jpg", *graph.Scenes[0].Media.Asset)
	assert.Equal(t, "uploads/u/b.jpg", *graph.Scenes[1].Media.Asset)
	assert.Equal(t, "uploads/u/a.jpg", *graph.Scenes[2].Media.Asset)
}

func TestPlanVoiceoverWeightedDurations(t *testing.T) {
	graph, err := Plan(Request{
		Prompt:                "Short. This sentence is considerably longer than the first one.",
		TargetDurationSeconds: 30,
		VoiceoverDurationMs:   20000,
	})
	require.NoError(t, err)
	require.Len(t, graph.Scenes, 2)
	assert.Greater(t, graph.Scenes[1].DurationMs, graph.Scenes[0].DurationMs)
	assert.GreaterOrEqual(t, graph.Scenes[0].DurationMs, renderspec.MinSceneDurationMs)
}

func TestPlanBrandSafeRewritesTransitions(t *testing.T) {
	graph, err := Plan(Request{
		Prompt:                "One. Two. Three. Four.",
		BrandSafe:             true,
		TargetDurationSeconds: 20,
	})
	require.NoError(t, err)
	for _, s := range graph.Scenes {
		assert.Contains(t, []renderspec.Transition{renderspec.TransitionCut, renderspec.TransitionFade}, s.Transition)
	}
}

func TestPlanStyleKeywordExtraction(t *testing.T) {
	graph, err := Plan(Request{
		Prompt:                "A dramatic zoom on the product. A calm wide reveal of the room.",
		TargetDurationSeconds: 10,
	})
	require.NoError(t, err)
	require.Len(t, graph.Scenes, 2)
	assert.Equal(t, "dramatic", graph.Scenes[0].Style.Mood)
	assert.Equal(t, "zoom-in", graph.Scenes[0].Style.CameraMotion)
	assert.Equal(t, "calm", graph.Scenes[1].Style.Mood)
}

func TestPlanEmptyRequestStillPlans(t *testing.T) {
	graph, err := Plan(Request{TargetDurationSeconds: 15})
	require.NoError(t, err)
	assert.NotEmpty(t, graph.Scenes)
}

func TestSplitSentences(t *testing.T) {
	assert.Equal(t, []string{"One", "Two", "Three"}, SplitSentences("One. Two! Three?"))
	assert.Empty(t, SplitSentences("   "))
}
