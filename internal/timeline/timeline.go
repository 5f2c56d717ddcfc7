// Package timeline computes the authoritative Timeline from a validated
// Scene Graph: time-ordered entries plus parallel video, audio and caption
// tracks. Timing decided here is final — every downstream stage (engine
// dispatch, audio alignment, assembly) reads scene windows from the Timeline,
// never from the graph.
package timeline

import (
	"fmt"

	"github.com/amsoltis/scenerender/internal/renderspec"
)

const (
	// captionInsetMs pulls each caption in from its scene boundaries so text
	// is never on screen during a transition frame.
	captionInsetMs = 200

	defaultMusicVolume = 0.5
)

// Orchestrator derives Timelines with a configured transition duration.
type Orchestrator struct {
	transitionMs int
}

func New(transitionMs int) *Orchestrator {
	if transitionMs <= 0 {
		transitionMs = 500
	}
	return &Orchestrator{transitionMs: transitionMs}
}

// Build walks the graph's scenes with a cursor, allocating each scene its
// window and borrowing the transition overlap from both neighbors. If the
// final cursor overruns the 60s cap, every duration is proportionally
// reduced and the walk repeats with overlaps clamped to half the reduced
// scene span so no scene can invert.
func (o *Orchestrator) Build(graph *renderspec.SceneGraph) (*renderspec.Timeline, error) {
	if graph == nil || len(graph.Scenes) == 0 {
		return nil, fmt.Errorf("timeline: empty scene graph")
	}

	durations := make([]int, len(graph.Scenes))
	for i, s := range graph.Scenes {
		durations[i] = s.DurationMs
	}

	entries, total := o.walk(graph.Scenes, durations, o.transitionMs)

	if total > renderspec.MaxGraphDurationMs {
		scale := float64(renderspec.MaxGraphDurationMs) / float64(total)
		for i := range durations {
			durations[i] = int(float64(durations[i]) * scale)
			if durations[i] < 1 {
				durations[i] = 1
			}
		}
		entries, total = o.walk(graph.Scenes, durations, o.transitionMs)
		if total > renderspec.MaxGraphDurationMs {
			total = renderspec.MaxGraphDurationMs
		}
	}

	tracks := renderspec.Tracks{
		Video:    buildVideoTracks(graph),
		Captions: buildCaptionTracks(graph, entries),
		Audio:    buildAudioTracks(graph, total),
	}

	return renderspec.NewTimeline(total, entries, tracks, o.transitionMs)
}

// walk lays out one entry per scene. The overlap toward the next scene is
// the current scene's transition duration, clamped to half of both adjacent
// scene spans so reduced durations keep every span positive.
func (o *Orchestrator) walk(scenes []renderspec.Scene, durations []int, transitionMs int) ([]renderspec.TimelineEntry, int) {
	entries := make([]renderspec.TimelineEntry, 0, len(scenes))
	t := 0
	for i, s := range scenes {
		d := durations[i]
		entry := renderspec.TimelineEntry{
			SceneID: s.ID,
			Start:   t,
			End:     t + d,
		}

		overlap := 0
		if i < len(scenes)-1 {
			tr := s.Transition
			entry.Transition = &tr
			overlap = transitionDuration(tr, transitionMs)
			if overlap > d/2 {
				overlap = d / 2
			}
			if next := durations[i+1]; overlap > next/2 {
				overlap = next / 2
			}
		}

		entries = append(entries, entry)
		t += d - overlap
	}

	total := 0
	if len(entries) > 0 {
		total = entries[len(entries)-1].End
	}
	return entries, total
}

func transitionDuration(tr renderspec.Transition, transitionMs int) int {
	if tr == renderspec.TransitionCut {
		return 0
	}
	return transitionMs
}

// buildVideoTracks places scene media on layer 0 and each overlay on the
// next layer up.
func buildVideoTracks(graph *renderspec.SceneGraph) []renderspec.VideoTrack {
	var tracks []renderspec.VideoTrack
	for _, s := range graph.Scenes {
		asset := ""
		if s.Media.Asset != nil {
			asset = *s.Media.Asset
		}
		effect := ""
		if s.Style != nil {
			effect = s.Style.CameraMotion
		}
		tracks = append(tracks, renderspec.VideoTrack{
			SceneID: s.ID,
			Asset:   asset,
			Effect:  effect,
			Layer:   0,
		})
		for j, ov := range s.Overlays {
			tracks = append(tracks, renderspec.VideoTrack{
				SceneID:   s.ID,
				Asset:     ov.Asset,
				Layer:     j + 1,
				Transform: fmt.Sprintf("%s scale=%.2f opacity=%.2f", ov.Position, ov.Scale, ov.Opacity),
			})
		}
	}
	return tracks
}

// buildCaptionTracks gives each non-empty scene caption a window inset from
// the scene's entry boundaries, clamped if the inset would invert the span.
func buildCaptionTracks(graph *renderspec.SceneGraph, entries []renderspec.TimelineEntry) []renderspec.CaptionTrack {
	byID := make(map[int]renderspec.TimelineEntry, len(entries))
	for _, e := range entries {
		byID[e.SceneID] = e
	}

	var tracks []renderspec.CaptionTrack
	for _, s := range graph.Scenes {
		if s.Caption == "" {
			continue
		}
		e, ok := byID[s.ID]
		if !ok {
			continue
		}
		start := e.Start + captionInsetMs
		end := e.End - captionInsetMs
		if end <= start {
			start = e.Start
			end = e.End
		}
		id := s.ID
		tracks = append(tracks, renderspec.CaptionTrack{
			Text:    s.Caption,
			Start:   start,
			End:     end,
			SceneID: &id,
		})
	}
	return tracks
}

// buildAudioTracks lays a voiceover track and a half-volume music track over
// the whole timeline when the graph's global audio asks for them.
func buildAudioTracks(graph *renderspec.SceneGraph, totalDuration int) []renderspec.AudioTrack {
	var tracks []renderspec.AudioTrack
	if graph.GlobalAudio.HasVoice() {
		tracks = append(tracks, renderspec.AudioTrack{
			Type:   renderspec.AudioTrackVoiceover,
			File:   graph.GlobalAudio.VoiceAssetRef,
			Start:  0,
			End:    totalDuration,
			Volume: 1.0,
		})
	}
	if graph.GlobalAudio.HasMusic() {
		tracks = append(tracks, renderspec.AudioTrack{
			Type:   renderspec.AudioTrackMusic,
			File:   graph.GlobalAudio.MusicAssetRef,
			Start:  0,
			End:    totalDuration,
			Volume: defaultMusicVolume,
		})
	}
	return tracks
}
