package audio

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// AlignedCaption is one caption span produced by forced alignment, tagged
// with its owning scene and the aligner's confidence in the timing.
type AlignedCaption struct {
	Text       string
	StartMs    int
	EndMs      int
	SceneID    int
	Confidence float64
}

// evenSplitInsetMs insets the even-time fallback captions from scene
// boundaries.
const evenSplitInsetMs = 100

// WordAligner produces word-level timestamps for an audio file. The
// concrete implementation transcribes via Whisper; tests substitute a fake.
type WordAligner interface {
	AlignWords(ctx context.Context, audioPath string) ([]WordTimestamp, error)
}

// WordTimestamp is one word's measured span, in seconds.
type WordTimestamp struct {
	Word  string
	Start float64
	End   float64
}

// WhisperAligner transcribes with word-level granularity via the OpenAI
// transcription endpoint.
type WhisperAligner struct {
	client *openai.Client
}

var _ WordAligner = (*WhisperAligner)(nil)

func NewWhisperAligner(apiKey string) *WhisperAligner {
	if apiKey == "" {
		return nil
	}
	return &WhisperAligner{client: openai.NewClient(apiKey)}
}

func (a *WhisperAligner) AlignWords(ctx context.Context, audioPath string) ([]WordTimestamp, error) {
	audioData, err := os.ReadFile(audioPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read voice track: %w", err)
	}

	resp, err := a.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		Reader:   bytes.NewReader(audioData),
		FilePath: "audio.mp3",
		Format:   openai.AudioResponseFormatVerboseJSON,
		Language: "en",
		TimestampGranularities: []openai.TranscriptionTimestampGranularity{
			openai.TranscriptionTimestampGranularityWord,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("whisper transcription failed: %w", err)
	}
	if len(resp.Words) == 0 {
		return nil, fmt.Errorf("whisper returned no word timestamps")
	}

	words := make([]WordTimestamp, len(resp.Words))
	for i, w := range resp.Words {
		words[i] = WordTimestamp{
			Word:  strings.TrimSpace(w.Word),
			Start: w.Start,
			End:   w.End,
		}
	}
	return words, nil
}

// Align produces scene-tagged captions via the degrading chain: word-level
// alignment, then sentence-level proportional placement, then an even-time
// split within each scene.
func (m *Manager) Align(ctx context.Context, voice *VoiceResult, mapped []SceneSentences, scenes []SceneWindow) []AlignedCaption {
	if m.aligner != nil && voice != nil {
		words, err := m.aligner.AlignWords(ctx, voice.Path)
		if err == nil {
			if captions := captionsFromWords(words, mapped, scenes); len(captions) > 0 {
				return captions
			}
		} else {
			log.Printf("[audio] word-level alignment unavailable, degrading: %v", err)
		}
	}

	if voice != nil && voice.DurationMs > 0 {
		if captions := sentenceLevelAlign(mapped, scenes, voice.DurationMs); len(captions) > 0 {
			return captions
		}
	}

	return evenSplitAlign(mapped, scenes)
}

// captionsFromWords places each scene's sentences at the measured span of
// their words, walking the word list in transcript order.
func captionsFromWords(words []WordTimestamp, mapped []SceneSentences, scenes []SceneWindow) []AlignedCaption {
	byID := sceneWindowIndex(scenes)
	var captions []AlignedCaption
	wordIdx := 0
	for _, ss := range mapped {
		win, ok := byID[ss.SceneID]
		if !ok {
			continue
		}
		for _, sentence := range ss.Sentences {
			n := len(splitWords(sentence))
			if n == 0 || wordIdx >= len(words) {
				continue
			}
			end := wordIdx + n
			if end > len(words) {
				end = len(words)
			}
			startMs := int(words[wordIdx].Start * 1000)
			endMs := int(words[end-1].End * 1000)
			wordIdx = end

			if endMs <= startMs {
				endMs = startMs + 500
			}
			captions = append(captions, AlignedCaption{
				Text:       sentence,
				StartMs:    clampInt(startMs, win.StartMs, win.EndMs),
				EndMs:      clampInt(endMs, win.StartMs, win.EndMs),
				SceneID:    ss.SceneID,
				Confidence: 0.9,
			})
		}
	}
	return dropInverted(captions)
}

// sentenceLevelAlign spreads each scene's sentences across its window
// proportionally to their word counts.
func sentenceLevelAlign(mapped []SceneSentences, scenes []SceneWindow, voiceDurationMs int) []AlignedCaption {
	byID := sceneWindowIndex(scenes)
	var captions []AlignedCaption
	for _, ss := range mapped {
		win, ok := byID[ss.SceneID]
		if !ok || len(ss.Sentences) == 0 {
			continue
		}
		totalWords := 0
		for _, s := range ss.Sentences {
			totalWords += len(splitWords(s))
		}
		if totalWords == 0 {
			continue
		}
		span := ss.EstimatedDurationMs
		if span <= 0 || span > win.DurationMs {
			span = win.DurationMs
		}
		cursor := win.StartMs
		for _, sentence := range ss.Sentences {
			w := len(splitWords(sentence))
			d := span * w / totalWords
			if d < 300 {
				d = 300
			}
			end := cursor + d
			if end > win.EndMs {
				end = win.EndMs
			}
			captions = append(captions, AlignedCaption{
				Text:       sentence,
				StartMs:    cursor,
				EndMs:      end,
				SceneID:    ss.SceneID,
				Confidence: 0.6,
			})
			cursor = end
		}
	}
	return dropInverted(captions)
}

// evenSplitAlign is the terminal fallback: each scene's sentences split its
// window evenly, inset from the boundaries.
func evenSplitAlign(mapped []SceneSentences, scenes []SceneWindow) []AlignedCaption {
	byID := sceneWindowIndex(scenes)
	var captions []AlignedCaption
	for _, ss := range mapped {
		win, ok := byID[ss.SceneID]
		if !ok || len(ss.Sentences) == 0 {
			continue
		}
		start := win.StartMs + evenSplitInsetMs
		end := win.EndMs - evenSplitInsetMs
		if end <= start {
			start, end = win.StartMs, win.EndMs
		}
		per := (end - start) / len(ss.Sentences)
		for i, sentence := range ss.Sentences {
			captions = append(captions, AlignedCaption{
				Text:       sentence,
				StartMs:    start + i*per,
				EndMs:      start + (i+1)*per,
				SceneID:    ss.SceneID,
				Confidence: 0.3,
			})
		}
	}
	return dropInverted(captions)
}

func sceneWindowIndex(scenes []SceneWindow) map[int]SceneWindow {
	byID := make(map[int]SceneWindow, len(scenes))
	for _, s := range scenes {
		byID[s.SceneID] = s
	}
	return byID
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func dropInverted(captions []AlignedCaption) []AlignedCaption {
	out := captions[:0]
	for _, c := range captions {
		if c.EndMs > c.StartMs {
			out = append(out, c)
		}
	}
	return out
}
