package engine

import (
	"testing"

	"github.com/amsoltis/scenerender/internal/config"
	"github.com/amsoltis/scenerender/internal/renderspec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func testSelector() *Selector {
	return NewSelector(testSanitizer(), map[string]config.PresetEnginePref{
		"tech_bold": {PreferredEngine: EnginePika},
	}, EngineRunway)
}

func videoScene(description string, style *renderspec.Style) renderspec.Scene {
	media, _ := renderspec.NewVideoMedia(nil, strPtr(description), nil)
	return renderspec.Scene{
		ID:          1,
		Description: description,
		DurationMs:  5000,
		Media:       media,
		Style:       style,
		Transition:  renderspec.TransitionFade,
	}
}

func TestSelectExplicitEngineWins(t *testing.T) {
	media, err := renderspec.NewVideoMedia(strPtr("luma"), strPtr("a cinematic shot"), nil)
	require.NoError(t, err)
	scene := renderspec.Scene{ID: 1, Description: "a cinematic shot", DurationMs: 5000, Media: media}

	a := testSelector().Select(scene, "", false, "")
	assert.Equal(t, EngineLuma, a.Engine)
}

func TestSelectImageGoesLocal(t *testing.T) {
	scene := renderspec.Scene{
		ID: 1, Description: "a realistic photo", DurationMs: 5000,
		Media: renderspec.NewImageMedia(strPtr("uploads/u/a.jpg")),
	}
	a := testSelector().Select(scene, "", false, "/tmp/a.jpg")
	assert.Equal(t, EngineLocal, a.Engine)
	assert.Equal(t, "/tmp/a.jpg", a.ImagePath)
}

func TestSelectKeywordRouting(t *testing.T) {
	cases := []struct {
		description string
		want        string
	}{
		{"a photorealistic city street at dusk", EngineRunway},
		{"an abstract anime dreamscape", EnginePika},
		{"product showcase with smooth rotation", EngineLuma},
		{"an ordinary morning", EngineRunway}, // default
	}
	for _, tc := range cases {
		a := testSelector().Select(videoScene(tc.description, nil), "", false, "")
		assert.Equal(t, tc.want, a.Engine, tc.description)
	}
}

func TestSelectPresetPreference(t *testing.T) {
	a := testSelector().Select(videoScene("an ordinary morning", nil), "tech_bold", false, "")
	assert.Equal(t, EnginePika, a.Engine)
}

func TestSelectBrandSafeSuffix(t *testing.T) {
	a := testSelector().Select(videoScene("a quiet morning", nil), "", true, "")
	assert.Contains(t, a.Prompt, "professional, brand-safe, clean aesthetic")
}

func TestSelectPromptComposition(t *testing.T) {
	style := &renderspec.Style{Mood: "dramatic", CameraMotion: "zoom-in"}
	a := testSelector().Select(videoScene("a mountain vista", style), "product_hero_clean", false, "")
	assert.Contains(t, a.Prompt, "a mountain vista")
	assert.Contains(t, a.Prompt, "dramatic mood")
	assert.Contains(t, a.Prompt, "zoom-in camera motion")
	assert.Contains(t, a.Prompt, "clean studio lighting")
}

func TestSelectPromptSanitized(t *testing.T) {
	a := testSelector().Select(videoScene("shoot the product", nil), "", false, "")
	assert.Contains(t, a.Prompt, "film the product")
}

func TestSelectDurationSeconds(t *testing.T) {
	scene := videoScene("a quiet morning", nil)
	scene.DurationMs = 4500
	a := testSelector().Select(scene, "", false, "")
	assert.Equal(t, 4, a.DurationSeconds)

	scene.DurationMs = 500
	a = testSelector().Select(scene, "", false, "")
	assert.Equal(t, 1, a.DurationSeconds)
}
