package renderspec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func validScene(id int) Scene {
	media, _ := NewVideoMedia(nil, strPtr("a prompt"), nil)
	return Scene{
		ID:          id,
		Description: "a scene",
		DurationMs:  5000,
		Media:       media,
		Transition:  TransitionFade,
	}
}

func TestNewVideoMediaRequiresPromptWithEngine(t *testing.T) {
	_, err := NewVideoMedia(strPtr("runway"), nil, nil)
	assert.Error(t, err)

	_, err = NewVideoMedia(strPtr("runway"), strPtr("a prompt"), nil)
	assert.NoError(t, err)
}

func TestNewVideoMediaRequiresSomething(t *testing.T) {
	_, err := NewVideoMedia(nil, nil, nil)
	assert.Error(t, err)

	_, err = NewVideoMedia(nil, nil, strPtr("uploads/u/a.mp4"))
	assert.NoError(t, err)
}

func TestNewSceneGraphRejectsDuplicateIDs(t *testing.T) {
	_, err := NewSceneGraph([]Scene{validScene(1), validScene(1)}, nil)
	assert.Error(t, err)
}

func TestNewSceneGraphRejectsEmpty(t *testing.T) {
	_, err := NewSceneGraph(nil, nil)
	assert.Error(t, err)
}

func TestNewSceneGraphRejectsDurationOutOfBounds(t *testing.T) {
	s := validScene(1)
	s.DurationMs = 500
	_, err := NewSceneGraph([]Scene{s}, nil)
	assert.Error(t, err)

	s.DurationMs = 61000
	_, err = NewSceneGraph([]Scene{s}, nil)
	assert.Error(t, err)
}

func TestNewSceneGraphRejectsTotalOverCap(t *testing.T) {
	scenes := make([]Scene, 4)
	for i := range scenes {
		scenes[i] = validScene(i + 1)
		scenes[i].DurationMs = 20000
	}
	_, err := NewSceneGraph(scenes, nil)
	assert.Error(t, err)
}

func TestSceneGraphJSONRoundTrip(t *testing.T) {
	asset := "uploads/u/a.jpg"
	imageScene := Scene{
		ID:          2,
		Description: "image scene",
		DurationMs:  3000,
		Media:       NewImageMedia(&asset),
		Caption:     "look",
		Style:       &Style{Mood: "calm", CameraMotion: "ken-burns"},
		Overlays:    []Overlay{{Type: "logo", Asset: "uploads/u/logo.png", Position: "top-right", Scale: 0.2, Opacity: 0.8}},
		Transition:  TransitionCut,
	}
	g, err := NewSceneGraph([]Scene{validScene(1), imageScene}, &GlobalAudio{VoiceScript: "hello", MusicAssetRef: "uploads/u/m.mp3"})
	require.NoError(t, err)

	data, err := g.ToJSON()
	require.NoError(t, err)

	parsed, err := SceneGraphFromJSON(data)
	require.NoError(t, err)

	again, err := parsed.ToJSON()
	require.NoError(t, err)
	assert.JSONEq(t, string(data), string(again))
	assert.Equal(t, SchemaVersion, parsed.SchemaVersion)
}

func TestSceneGraphFromJSONRevalidates(t *testing.T) {
	// A stored document with duplicate ids must not parse.
	doc := `{"schemaVersion":"2.0","scenes":[
		{"id":1,"description":"a","duration":2000,"media":{"type":"VIDEO","prompt":"p"},"caption":"","transition":"CUT"},
		{"id":1,"description":"b","duration":2000,"media":{"type":"VIDEO","prompt":"p"},"caption":"","transition":"CUT"}
	]}`
	_, err := SceneGraphFromJSON([]byte(doc))
	assert.Error(t, err)
}

func TestGlobalAudioHelpers(t *testing.T) {
	var nilAudio *GlobalAudio
	assert.False(t, nilAudio.HasVoice())
	assert.False(t, nilAudio.HasMusic())

	assert.True(t, (&GlobalAudio{VoiceScript: "hi"}).HasVoice())
	assert.True(t, (&GlobalAudio{VoiceAssetRef: "k"}).HasVoice())
	assert.True(t, (&GlobalAudio{MusicAssetRef: "k"}).HasMusic())
	assert.False(t, (&GlobalAudio{}).HasVoice())
}
