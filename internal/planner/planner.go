// Package planner derives a validated Scene Graph from a render request:
// prompt text, uploaded media, preset and target duration. Planning is fully
// deterministic — the same request always yields the same graph.
package planner

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/amsoltis/scenerender/internal/apperrors"
	"github.com/amsoltis/scenerender/internal/renderspec"
)

// Request carries everything the planner needs to produce a Scene Graph.
type Request struct {
	MediaAssets           []string // storage keys of user-supplied images
	Prompt                string
	PresetID              string
	BrandSafe             bool
	TargetDurationSeconds int
	VoiceoverDurationMs   int    // 0 = no measured voiceover
	EnginePreference      string // "" = no preference
	VoiceScript           string
	VoiceAssetRef         string
	MusicAssetRef         string
}

var shotMarkerRe = regexp.MustCompile(`<SHOT\s+\d+>`)

// Plan selects a strategy (first match wins), assigns durations, and applies
// the brand-safe transition post-pass before validating the resulting graph.
func Plan(req Request) (*renderspec.SceneGraph, error) {
	var scenes []renderspec.Scene
	var err error

	switch {
	case shotMarkerRe.MatchString(req.Prompt):
		scenes, err = planFromShotMarkers(req)
	case strings.TrimSpace(req.Prompt) != "":
		scenes, err = planFromSentences(req)
	case len(req.MediaAssets) > 0:
		scenes, err = planFromAssets(req)
	default:
		scenes, err = planFromTemplate(req)
	}
	if err != nil {
		return nil, err
	}
	if len(scenes) == 0 {
		return nil, &apperrors.PlanningError{Reason: "no scenes could be derived from the request"}
	}

	assignDurations(scenes, req)

	if req.BrandSafe {
		for i := range scenes {
			if scenes[i].Transition != renderspec.TransitionCut && scenes[i].Transition != renderspec.TransitionFade {
				scenes[i].Transition = renderspec.TransitionFade
			}
		}
	}

	var audio *renderspec.GlobalAudio
	if req.VoiceScript != "" || req.VoiceAssetRef != "" || req.MusicAssetRef != "" {
		audio = &renderspec.GlobalAudio{
			VoiceScript:   req.VoiceScript,
			VoiceAssetRef: req.VoiceAssetRef,
			MusicAssetRef: req.MusicAssetRef,
		}
	}

	return renderspec.NewSceneGraph(scenes, audio)
}

// planFromShotMarkers splits the prompt on <SHOT N> markers, one scene per
// delimited segment.
func planFromShotMarkers(req Request) ([]renderspec.Scene, error) {
	parts := shotMarkerRe.Split(req.Prompt, -1)
	var segments []string
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			segments = append(segments, s)
		}
	}
	if len(segments) == 0 {
		return nil, &apperrors.PlanningError{Reason: "prompt contains shot markers but no shot text"}
	}
	return scenesFromSegments(segments, req), nil
}

// planFromSentences splits the prompt on sentence terminators, one scene per
// sentence.
func planFromSentences(req Request) ([]renderspec.Scene, error) {
	sentences := SplitSentences(req.Prompt)
	if len(sentences) == 0 {
		return nil, &apperrors.PlanningError{Reason: "prompt has no sentences"}
	}
	return scenesFromSegments(sentences, req), nil
}

// scenesFromSegments builds one scene per text segment. If an image asset is
// available at index i (mod the asset count), the scene is image-backed;
// otherwise it is a video scene carrying the segment as its prompt.
func scenesFromSegments(segments []string, req Request) []renderspec.Scene {
	defaults := defaultsForPreset(req.PresetID)
	scenes := make([]renderspec.Scene, 0, len(segments))

	for i, text := range segments {
		var media renderspec.SceneMedia
		if len(req.MediaAssets) > 0 {
			asset := req.MediaAssets[i%len(req.MediaAssets)]
			media = renderspec.NewImageMedia(&asset)
		} else {
			prompt := text
			var engine *string
			if req.EnginePreference != "" {
				e := req.EnginePreference
				engine = &e
			}
			// A non-empty prompt is always present here, so construction
			// cannot fail.
			media, _ = renderspec.NewVideoMedia(engine, &prompt, nil)
		}

		scenes = append(scenes, renderspec.Scene{
			ID:          i + 1,
			Description: text,
			Media:       media,
			Caption:     text,
			Style:       extractStyle(text, defaults),
			Transition:  renderspec.TransitionFade,
		})
	}
	return scenes
}

// planFromAssets makes one Ken-Burns image scene per supplied asset.
func planFromAssets(req Request) ([]renderspec.Scene, error) {
	defaults := defaultsForPreset(req.PresetID)
	scenes := make([]renderspec.Scene, 0, len(req.MediaAssets))
	for i, asset := range req.MediaAssets {
		a := asset
		scenes = append(scenes, renderspec.Scene{
			ID:          i + 1,
			Description: fmt.Sprintf("Image %d of %d", i+1, len(req.MediaAssets)),
			Media:       renderspec.NewImageMedia(&a),
			Caption:     "",
			Style:       &renderspec.Style{Mood: defaults.Mood, CameraMotion: "ken-burns"},
			Transition:  renderspec.TransitionFade,
		})
	}
	return scenes, nil
}

// planFromTemplate generates the 3-scene Intro/Feature/CTA template from the
// preset when the request carries neither prompt nor media.
func planFromTemplate(req Request) ([]renderspec.Scene, error) {
	defaults := defaultsForPreset(req.PresetID)
	scenes := make([]renderspec.Scene, 0, len(templateScenes))
	for i, t := range templateScenes {
		desc := t.Description
		if defaults.Keywords != "" {
			desc = desc + ", " + defaults.Keywords
		}
		prompt := desc
		var engine *string
		if req.EnginePreference != "" {
			e := req.EnginePreference
			engine = &e
		}
		media, _ := renderspec.NewVideoMedia(engine, &prompt, nil)
		scenes = append(scenes, renderspec.Scene{
			ID:          i + 1,
			Description: desc,
			Media:       media,
			Caption:     t.Caption,
			Style:       &renderspec.Style{Mood: t.Mood, CameraMotion: defaults.CameraMotion},
			Transition:  renderspec.TransitionFade,
		})
	}
	return scenes, nil
}

// extractStyle scans the sentence for mood and camera keywords, falling back
// to preset defaults per category.
func extractStyle(text string, defaults presetDefaults) *renderspec.Style {
	style := &renderspec.Style{Mood: defaults.Mood, CameraMotion: defaults.CameraMotion}
	moodFound, cameraFound := false, false
	for _, word := range tokenizeWords(text) {
		if !moodFound {
			if m, ok := moodKeywords[word]; ok {
				style.Mood = m
				moodFound = true
			}
		}
		if !cameraFound {
			if c, ok := cameraKeywords[word]; ok {
				style.CameraMotion = c
				cameraFound = true
			}
		}
	}
	return style
}

var wordRe = regexp.MustCompile(`[a-zA-Z0-9-]+`)

func tokenizeWords(text string) []string {
	raw := wordRe.FindAllString(strings.ToLower(text), -1)
	return raw
}

// SplitSentences splits text on sentence terminators, dropping empty parts.
var sentenceSplitRe = regexp.MustCompile(`[.!?]+`)

func SplitSentences(text string) []string {
	parts := sentenceSplitRe.Split(text, -1)
	var out []string
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// assignDurations distributes total duration across scenes: character-count
// weighted when a measured voiceover duration exists, equal split otherwise,
// with a 1s per-scene floor and a proportional clamp if the sum overruns the
// 60s graph cap.
func assignDurations(scenes []renderspec.Scene, req Request) {
	n := len(scenes)

	if req.VoiceoverDurationMs > 0 {
		total := req.VoiceoverDurationMs
		if total > renderspec.MaxGraphDurationMs {
			total = renderspec.MaxGraphDurationMs
		}
		charTotal := 0
		for _, s := range scenes {
			charTotal += len(s.Description)
		}
		if charTotal == 0 {
			charTotal = n
		}
		for i := range scenes {
			weight := float64(len(scenes[i].Description)) / float64(charTotal)
			d := int(weight * float64(total))
			if d < renderspec.MinSceneDurationMs {
				d = renderspec.MinSceneDurationMs
			}
			scenes[i].DurationMs = d
		}
	} else {
		per := req.TargetDurationSeconds * 1000 / n
		if per < renderspec.MinSceneDurationMs {
			per = renderspec.MinSceneDurationMs
		}
		for i := range scenes {
			scenes[i].DurationMs = per
		}
	}

	clampTotalDuration(scenes)
}

// clampTotalDuration proportionally scales durations down when their sum
// exceeds the graph cap, preserving the 1s floor. Scenes already at the
// floor cannot shrink, so the pass repeats until the sum fits (the floor
// bounds iterations at len(scenes)).
func clampTotalDuration(scenes []renderspec.Scene) {
	for {
		total := 0
		for _, s := range scenes {
			total += s.DurationMs
		}
		if total <= renderspec.MaxGraphDurationMs {
			return
		}
		scale := float64(renderspec.MaxGraphDurationMs) / float64(total)
		shrunk := false
		for i := range scenes {
			d := int(float64(scenes[i].DurationMs) * scale)
			if d < renderspec.MinSceneDurationMs {
				d = renderspec.MinSceneDurationMs
			}
			if d < scenes[i].DurationMs {
				shrunk = true
			}
			scenes[i].DurationMs = d
		}
		if !shrunk {
			return
		}
	}
}
