package audio

import (
	"strings"

	"github.com/amsoltis/scenerender/internal/renderspec"
)

// SceneWindow is a scene's authoritative window on the timeline.
type SceneWindow struct {
	SceneID    int
	StartMs    int
	EndMs      int
	DurationMs int
}

// SceneWindowsFromTimeline projects a timeline's entries into the mapping
// inputs.
func SceneWindowsFromTimeline(tl *renderspec.Timeline) []SceneWindow {
	out := make([]SceneWindow, len(tl.Timeline))
	for i, e := range tl.Timeline {
		out[i] = SceneWindow{
			SceneID:    e.SceneID,
			StartMs:    e.Start,
			EndMs:      e.End,
			DurationMs: e.End - e.Start,
		}
	}
	return out
}

// SceneSentences is the transcript portion assigned to one scene, with its
// estimated speaking time.
type SceneSentences struct {
	SceneID             int
	Sentences           []string
	EstimatedDurationMs int
}

// MapVoiceToScenes splits the transcript into sentences and distributes
// them over scenes: one per scene when they fit, proportionally by count
// otherwise. voiceDurationMs of 0 means no measured voice — speaking time
// is estimated from word count instead.
func MapVoiceToScenes(transcript string, scenes []SceneWindow, voiceDurationMs int) []SceneSentences {
	sentences := splitSentences(transcript)
	out := make([]SceneSentences, len(scenes))
	for i, s := range scenes {
		out[i] = SceneSentences{SceneID: s.SceneID}
	}
	if len(sentences) == 0 || len(scenes) == 0 {
		return out
	}

	if len(sentences) <= len(scenes) {
		for i, sentence := range sentences {
			out[i].Sentences = []string{sentence}
		}
	} else {
		// Distribute proportionally by count: every scene gets the base
		// share, the first `extra` scenes one more.
		base := len(sentences) / len(scenes)
		extra := len(sentences) % len(scenes)
		idx := 0
		for i := range out {
			n := base
			if i < extra {
				n++
			}
			out[i].Sentences = sentences[idx : idx+n]
			idx += n
		}
	}

	totalWords := len(splitWords(transcript))
	for i := range out {
		out[i].EstimatedDurationMs = estimateSceneSpeech(out[i].Sentences, totalWords, voiceDurationMs, scenes[i].DurationMs)
	}
	return out
}

// estimateSceneSpeech estimates one scene's speaking time: its word-count
// share of the measured voice duration when available, the speaking-rate
// estimate otherwise, clamped to [500ms, scene duration].
func estimateSceneSpeech(sentences []string, totalWords, voiceDurationMs, sceneDurationMs int) int {
	words := 0
	for _, s := range sentences {
		words += len(splitWords(s))
	}
	if words == 0 {
		return 0
	}

	var est int
	if voiceDurationMs > 0 && totalWords > 0 {
		est = int(float64(words) / float64(totalWords) * float64(voiceDurationMs))
	} else {
		est = int(float64(words) / wordsPerSecond * 1000)
	}

	if est < 500 {
		est = 500
	}
	if sceneDurationMs > 0 && est > sceneDurationMs {
		est = sceneDurationMs
	}
	return est
}

// splitSentences splits on sentence terminators, dropping empties.
func splitSentences(text string) []string {
	var out []string
	var sb strings.Builder
	flush := func() {
		if s := strings.TrimSpace(sb.String()); s != "" {
			out = append(out, s)
		}
		sb.Reset()
	}
	for _, r := range text {
		switch r {
		case '.', '!', '?':
			flush()
		default:
			sb.WriteRune(r)
		}
	}
	flush()
	return out
}
