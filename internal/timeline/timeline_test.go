package timeline

import (
	"testing"

	"github.com/amsoltis/scenerender/internal/renderspec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func videoScene(id, durationMs int, caption string, tr renderspec.Transition) renderspec.Scene {
	media, _ := renderspec.NewVideoMedia(nil, strPtr("a prompt"), nil)
	return renderspec.Scene{
		ID:          id,
		Description: "scene",
		DurationMs:  durationMs,
		Media:       media,
		Caption:     caption,
		Transition:  tr,
	}
}

func mustGraph(t *testing.T, scenes []renderspec.Scene, audio *renderspec.GlobalAudio) *renderspec.SceneGraph {
	t.Helper()
	g, err := renderspec.NewSceneGraph(scenes, audio)
	require.NoError(t, err)
	return g
}

func TestBuildCursorWalkWithOverlap(t *testing.T) {
	g := mustGraph(t, []renderspec.Scene{
		videoScene(1, 5000, "one", renderspec.TransitionFade),
		videoScene(2, 5000, "two", renderspec.TransitionCut),
		videoScene(3, 5000, "three", renderspec.TransitionFade),
	}, nil)

	tl, err := New(500).Build(g)
	require.NoError(t, err)

	require.Len(t, tl.Timeline, 3)
	// Scene 1 ends at 5000; fade borrows 500ms, so scene 2 starts at 4500.
	assert.Equal(t, 0, tl.Timeline[0].Start)
	assert.Equal(t, 5000, tl.Timeline[0].End)
	assert.Equal(t, 4500, tl.Timeline[1].Start)
	// Scene 2's cut borrows nothing.
	assert.Equal(t, 9500, tl.Timeline[2].Start)
	assert.Equal(t, 14500, tl.TotalDuration)

	// Last entry carries no transition.
	assert.Nil(t, tl.Timeline[2].Transition)
	require.NotNil(t, tl.Timeline[0].Transition)
	assert.Equal(t, renderspec.TransitionFade, *tl.Timeline[0].Transition)
}

func TestBuildMonotonicEntries(t *testing.T) {
	g := mustGraph(t, []renderspec.Scene{
		videoScene(1, 3000, "", renderspec.TransitionFade),
		videoScene(2, 4000, "", renderspec.TransitionFadeBlack),
		videoScene(3, 2000, "", renderspec.TransitionSwipeLeft),
		videoScene(4, 6000, "", renderspec.TransitionCut),
	}, nil)

	tl, err := New(500).Build(g)
	require.NoError(t, err)

	for i := 1; i < len(tl.Timeline); i++ {
		prev, cur := tl.Timeline[i-1], tl.Timeline[i]
		assert.LessOrEqual(t, prev.Start, cur.Start)
		assert.Greater(t, cur.End, cur.Start)
		assert.GreaterOrEqual(t, cur.Start, prev.End-500)
	}
}

func TestBuildCaptionWindows(t *testing.T) {
	g := mustGraph(t, []renderspec.Scene{
		videoScene(1, 5000, "Hello world", renderspec.TransitionFade),
		videoScene(2, 5000, "", renderspec.TransitionCut),
	}, nil)

	tl, err := New(500).Build(g)
	require.NoError(t, err)

	require.Len(t, tl.Tracks.Captions, 1)
	c := tl.Tracks.Captions[0]
	require.NotNil(t, c.SceneID)
	assert.Equal(t, 1, *c.SceneID)
	assert.Equal(t, 200, c.Start)
	assert.Equal(t, 4800, c.End)
}

func TestBuildAudioTracks(t *testing.T) {
	g := mustGraph(t, []renderspec.Scene{
		videoScene(1, 5000, "", renderspec.TransitionCut),
	}, &renderspec.GlobalAudio{VoiceScript: "hello", MusicAssetRef: "uploads/u/music.mp3"})

	tl, err := New(500).Build(g)
	require.NoError(t, err)

	require.Len(t, tl.Tracks.Audio, 2)
	assert.Equal(t, renderspec.AudioTrackVoiceover, tl.Tracks.Audio[0].Type)
	assert.Equal(t, 1.0, tl.Tracks.Audio[0].Volume)
	assert.Equal(t, renderspec.AudioTrackMusic, tl.Tracks.Audio[1].Type)
	assert.Equal(t, 0.5, tl.Tracks.Audio[1].Volume)
	assert.Equal(t, tl.TotalDuration, tl.Tracks.Audio[1].End)
}

func TestBuildOverlaysLayered(t *testing.T) {
	s := videoScene(1, 5000, "", renderspec.TransitionCut)
	s.Overlays = []renderspec.Overlay{
		{Type: "logo", Asset: "uploads/u/logo.png", Position: "top-right", Scale: 0.2, Opacity: 0.8},
	}
	g := mustGraph(t, []renderspec.Scene{s}, nil)

	tl, err := New(500).Build(g)
	require.NoError(t, err)

	require.Len(t, tl.Tracks.Video, 2)
	assert.Equal(t, 0, tl.Tracks.Video[0].Layer)
	assert.Equal(t, 1, tl.Tracks.Video[1].Layer)
	assert.Equal(t, "uploads/u/logo.png", tl.Tracks.Video[1].Asset)
}

func TestBuildDurationCapHolds(t *testing.T) {
	// 12 scenes of 5s each: 60s of raw material minus overlaps stays under cap.
	scenes := make([]renderspec.Scene, 12)
	for i := range scenes {
		scenes[i] = videoScene(i+1, 5000, "", renderspec.TransitionFade)
	}
	g := mustGraph(t, scenes, nil)

	tl, err := New(500).Build(g)
	require.NoError(t, err)
	assert.LessOrEqual(t, tl.TotalDuration, renderspec.MaxGraphDurationMs)

	// Duration-sum bound: |sum - total| <= (N-1) * transition.
	sum := 0
	for _, s := range g.Scenes {
		sum += s.DurationMs
	}
	diff := sum - tl.TotalDuration
	if diff < 0 {
		diff = -diff
	}
	assert.LessOrEqual(t, diff, (len(scenes)-1)*500)
}

func TestBuildShortScenesClampOverlap(t *testing.T) {
	// 1s scenes: overlap clamps to half the scene span so no span inverts.
	g := mustGraph(t, []renderspec.Scene{
		videoScene(1, 1000, "", renderspec.TransitionFade),
		videoScene(2, 1000, "", renderspec.TransitionFade),
		videoScene(3, 1000, "", renderspec.TransitionCut),
	}, nil)

	tl, err := New(500).Build(g)
	require.NoError(t, err)
	for _, e := range tl.Timeline {
		assert.Greater(t, e.End, e.Start)
	}
}

func TestTimelineJSONRoundTrip(t *testing.T) {
	g := mustGraph(t, []renderspec.Scene{
		videoScene(1, 5000, "caption", renderspec.TransitionFade),
		videoScene(2, 5000, "", renderspec.TransitionCut),
	}, &renderspec.GlobalAudio{VoiceScript: "hi"})

	tl, err := New(500).Build(g)
	require.NoError(t, err)

	data, err := tl.ToJSON()
	require.NoError(t, err)

	parsed, err := renderspec.TimelineFromJSON(data)
	require.NoError(t, err)

	again, err := parsed.ToJSON()
	require.NoError(t, err)
	assert.JSONEq(t, string(data), string(again))
}
