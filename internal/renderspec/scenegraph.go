// Package renderspec holds the Scene Graph and Timeline data model: the
// declarative plan produced by the planner and the authoritative timing
// derived from it by the timeline orchestrator.
package renderspec

import (
	"encoding/json"
	"fmt"

	"github.com/amsoltis/scenerender/internal/apperrors"
)

const (
	SchemaVersion = "2.0"

	MinSceneDurationMs = 1000
	MaxGraphDurationMs = 60000
)

// Transition is the temporal blend between two adjacent scenes.
type Transition string

const (
	TransitionCut        Transition = "CUT"
	TransitionFade       Transition = "FADE"
	TransitionFadeBlack  Transition = "FADE_BLACK"
	TransitionSwipeLeft  Transition = "SWIPE_LEFT"
	TransitionSwipeRight Transition = "SWIPE_RIGHT"
)

// MediaKind discriminates the SceneMedia tagged union.
type MediaKind string

const (
	MediaImage MediaKind = "IMAGE"
	MediaVideo MediaKind = "VIDEO"
)

// SceneMedia is a tagged union: an image scene carries only an optional
// asset; a video scene carries any combination of engine/prompt/asset.
// Construct via NewImageMedia/NewVideoMedia so invariants are enforced at
// construction time rather than deferred to a separate validation pass.
type SceneMedia struct {
	Kind   MediaKind `json:"type"`
	Asset  *string   `json:"asset,omitempty"`
	Engine *string   `json:"engine,omitempty"`
	Prompt *string   `json:"prompt,omitempty"`
}

// NewImageMedia builds an IMAGE-kind SceneMedia, asset optional.
func NewImageMedia(asset *string) SceneMedia {
	return SceneMedia{Kind: MediaImage, Asset: asset}
}

// NewVideoMedia builds a VIDEO-kind SceneMedia, enforcing that if engine is
// set a prompt is required, and that at least one of engine/asset/prompt is
// present.
func NewVideoMedia(engine, prompt, asset *string) (SceneMedia, error) {
	if engine != nil && *engine != "" && (prompt == nil || *prompt == "") {
		return SceneMedia{}, &apperrors.PlanningError{Reason: "video scene with engine set requires a prompt"}
	}
	if (engine == nil || *engine == "") && (prompt == nil || *prompt == "") && (asset == nil || *asset == "") {
		return SceneMedia{}, &apperrors.PlanningError{Reason: "video scene requires at least one of engine, prompt, asset"}
	}
	return SceneMedia{Kind: MediaVideo, Engine: engine, Prompt: prompt, Asset: asset}, nil
}

// Style holds optional per-scene mood/camera/lighting hints.
type Style struct {
	Mood         string `json:"mood,omitempty"`
	CameraMotion string `json:"cameraMotion,omitempty"`
	Lighting     string `json:"lighting,omitempty"`
}

// Overlay is one overlay record on a scene.
type Overlay struct {
	Type     string  `json:"type"`
	Asset    string  `json:"asset"`
	Position string  `json:"position"`
	Scale    float64 `json:"scale"`
	Opacity  float64 `json:"opacity"`
}

// Scene is one node of the Scene Graph.
type Scene struct {
	ID          int        `json:"id"`
	Description string     `json:"description"`
	DurationMs  int        `json:"duration"`
	Media       SceneMedia `json:"media"`
	Caption     string     `json:"caption"`
	Style       *Style     `json:"style,omitempty"`
	Overlays    []Overlay  `json:"overlays,omitempty"`
	Transition  Transition `json:"transition"`
}

// GlobalAudio is the optional graph-level voice/music script.
type GlobalAudio struct {
	VoiceScript   string `json:"voiceScript,omitempty"`
	VoiceAssetRef string `json:"voiceAssetRef,omitempty"`
	MusicAssetRef string `json:"musicAssetRef,omitempty"`
}

func (a *GlobalAudio) HasVoice() bool {
	return a != nil && (a.VoiceScript != "" || a.VoiceAssetRef != "")
}

func (a *GlobalAudio) HasMusic() bool {
	return a != nil && a.MusicAssetRef != ""
}

// SceneGraph is the declarative, hand-editable plan.
type SceneGraph struct {
	SchemaVersion string       `json:"schemaVersion"`
	Scenes        []Scene      `json:"scenes"`
	GlobalAudio   *GlobalAudio `json:"globalAudio,omitempty"`
}

// NewSceneGraph validates and returns a SceneGraph, enforcing scene id
// uniqueness, per-scene duration bounds, and the 60s total duration cap.
func NewSceneGraph(scenes []Scene, globalAudio *GlobalAudio) (*SceneGraph, error) {
	if len(scenes) == 0 {
		return nil, &apperrors.PlanningError{Reason: "scene graph has zero scenes"}
	}

	seen := make(map[int]struct{}, len(scenes))
	total := 0
	for _, s := range scenes {
		if _, dup := seen[s.ID]; dup {
			return nil, &apperrors.PlanningError{Reason: fmt.Sprintf("duplicate scene id %d", s.ID)}
		}
		seen[s.ID] = struct{}{}

		if s.DurationMs < MinSceneDurationMs || s.DurationMs > MaxGraphDurationMs {
			return nil, &apperrors.PlanningError{Reason: fmt.Sprintf("scene %d duration %dms out of bounds", s.ID, s.DurationMs)}
		}
		if s.Description == "" {
			return nil, &apperrors.PlanningError{Reason: fmt.Sprintf("scene %d has empty description", s.ID)}
		}
		total += s.DurationMs
	}

	if total > MaxGraphDurationMs {
		return nil, &apperrors.PlanningError{Reason: fmt.Sprintf("sum of scene durations %dms exceeds %dms cap", total, MaxGraphDurationMs)}
	}

	return &SceneGraph{
		SchemaVersion: SchemaVersion,
		Scenes:        scenes,
		GlobalAudio:   globalAudio,
	}, nil
}

// ToJSON round-trips to a canonical JSON document.
func (g *SceneGraph) ToJSON() ([]byte, error) {
	return json.Marshal(g)
}

// SceneGraphFromJSON parses a Scene Graph document, re-validating its
// invariants so a stored document can never silently violate them.
func SceneGraphFromJSON(data []byte) (*SceneGraph, error) {
	var g SceneGraph
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("parse scene graph: %w", err)
	}
	return NewSceneGraph(g.Scenes, g.GlobalAudio)
}
