package renderspec

import (
	"encoding/json"
	"fmt"
)

// TimelineEntry is one scene's allocated window on the master cursor.
type TimelineEntry struct {
	SceneID    int         `json:"sceneId"`
	Start      int         `json:"start"`
	End        int         `json:"end"`
	Transition *Transition `json:"transition,omitempty"`
}

// VideoTrack places scene media (or an overlay) on a layer.
type VideoTrack struct {
	SceneID   int    `json:"sceneId"`
	Asset     string `json:"asset,omitempty"`
	Effect    string `json:"effect,omitempty"`
	Layer     int    `json:"layer"`
	Transform string `json:"transform,omitempty"`
}

// AudioTrackType enumerates the three audio roles a track can play.
type AudioTrackType string

const (
	AudioTrackVoiceover AudioTrackType = "voiceover"
	AudioTrackMusic     AudioTrackType = "music"
	AudioTrackSFX       AudioTrackType = "sfx"
)

// DuckRegion is one interval during which a music track is attenuated.
type DuckRegion struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// AudioTrack is one timed audio layer.
type AudioTrack struct {
	Type        AudioTrackType `json:"type"`
	File        string         `json:"file,omitempty"`
	Start       int            `json:"start"`
	End         int            `json:"end"`
	Volume      float64        `json:"volume"`
	DuckRegions []DuckRegion   `json:"duckRegions,omitempty"`
}

// CaptionTrack is one timed caption, optionally scene-tagged.
type CaptionTrack struct {
	Text    string `json:"text"`
	Start   int    `json:"start"`
	End     int    `json:"end"`
	SceneID *int   `json:"sceneId,omitempty"`
	Style   string `json:"style,omitempty"`
}

// Tracks groups the three parallel track lists.
type Tracks struct {
	Video    []VideoTrack   `json:"video"`
	Audio    []AudioTrack   `json:"audio"`
	Captions []CaptionTrack `json:"captions"`
}

// Timeline is the authoritative, derived timing document.
type Timeline struct {
	SchemaVersion string          `json:"schemaVersion"`
	TotalDuration int             `json:"totalDuration"`
	Timeline      []TimelineEntry `json:"timeline"`
	Tracks        Tracks          `json:"tracks"`
}

// NewTimeline validates the timeline invariants before returning: entries
// ascending, overlap bounded by the transition duration, captions inside
// their scene windows, and every timed record non-inverted.
func NewTimeline(totalDuration int, entries []TimelineEntry, tracks Tracks, transitionMs int) (*Timeline, error) {
	if totalDuration < MinSceneDurationMs || totalDuration > MaxGraphDurationMs {
		return nil, fmt.Errorf("timeline total duration %dms out of bounds", totalDuration)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("timeline has zero entries")
	}

	for i, e := range entries {
		if e.End <= e.Start {
			return nil, fmt.Errorf("timeline entry for scene %d has end <= start", e.SceneID)
		}
		if i > 0 {
			prev := entries[i-1]
			if e.Start < prev.Start {
				return nil, fmt.Errorf("timeline entries not ascending by start at index %d", i)
			}
			overlap := prev.End - e.Start
			if overlap > transitionMs {
				return nil, fmt.Errorf("timeline entries overlap by %dms, exceeding transition duration %dms", overlap, transitionMs)
			}
		}
	}

	byScene := make(map[int]TimelineEntry, len(entries))
	for _, e := range entries {
		byScene[e.SceneID] = e
	}
	for _, c := range tracks.Captions {
		if c.End <= c.Start {
			return nil, fmt.Errorf("caption track has end <= start")
		}
		if c.SceneID == nil {
			continue
		}
		e, ok := byScene[*c.SceneID]
		if !ok {
			continue
		}
		if c.Start < e.Start-200 || c.End > e.End+200 {
			return nil, fmt.Errorf("caption for scene %d falls outside its entry window", *c.SceneID)
		}
	}
	for _, a := range tracks.Audio {
		if a.End <= a.Start {
			return nil, fmt.Errorf("audio track has end <= start")
		}
	}

	return &Timeline{
		SchemaVersion: SchemaVersion,
		TotalDuration: totalDuration,
		Timeline:      entries,
		Tracks:        tracks,
	}, nil
}

// ToJSON round-trips to a canonical JSON document.
func (t *Timeline) ToJSON() ([]byte, error) {
	return json.Marshal(t)
}

// TimelineFromJSON parses a Timeline document.
func TimelineFromJSON(data []byte) (*Timeline, error) {
	var t Timeline
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse timeline: %w", err)
	}
	return &t, nil
}
