package audio

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAligner returns scripted word timestamps or an error.
type fakeAligner struct {
	words []WordTimestamp
	err   error
}

func (f *fakeAligner) AlignWords(ctx context.Context, audioPath string) ([]WordTimestamp, error) {
	return f.words, f.err
}

func testManagerWithAligner(a WordAligner) *Manager {
	return &Manager{aligner: a, maxDurationMs: 60000}
}

func TestAlignWordLevel(t *testing.T) {
	// "hello world" spans 0.2–1.8s inside scene 1's 0–5s window.
	aligner := &fakeAligner{words: []WordTimestamp{
		{Word: "hello", Start: 0.2, End: 0.9},
		{Word: "world", Start: 1.0, End: 1.8},
		{Word: "second", Start: 5.2, End: 5.8},
		{Word: "part", Start: 5.9, End: 6.5},
	}}
	m := testManagerWithAligner(aligner)

	scenes := windows(5000, 5000)
	mapped := []SceneSentences{
		{SceneID: 1, Sentences: []string{"hello world"}},
		{SceneID: 2, Sentences: []string{"second part"}},
	}
	voice := &VoiceResult{Path: "voice.wav", DurationMs: 7000}

	captions := m.Align(context.Background(), voice, mapped, scenes)
	require.Len(t, captions, 2)

	assert.Equal(t, "hello world", captions[0].Text)
	assert.Equal(t, 200, captions[0].StartMs)
	assert.Equal(t, 1800, captions[0].EndMs)
	assert.Equal(t, 1, captions[0].SceneID)
	assert.InDelta(t, 0.9, captions[0].Confidence, 0.001)

	// Second caption clamps into scene 2's window.
	assert.Equal(t, 2, captions[1].SceneID)
	assert.GreaterOrEqual(t, captions[1].StartMs, 5000)
	assert.LessOrEqual(t, captions[1].EndMs, 10000)
}

func TestAlignDegradesToSentenceLevel(t *testing.T) {
	m := testManagerWithAligner(&fakeAligner{err: fmt.Errorf("no transcription available")})

	scenes := windows(5000)
	mapped := []SceneSentences{{SceneID: 1, Sentences: []string{"alpha beta", "gamma delta"}, EstimatedDurationMs: 4000}}
	voice := &VoiceResult{Path: "voice.wav", DurationMs: 5000}

	captions := m.Align(context.Background(), voice, mapped, scenes)
	require.Len(t, captions, 2)
	assert.InDelta(t, 0.6, captions[0].Confidence, 0.001)
	assert.Equal(t, 0, captions[0].StartMs)
	assert.Equal(t, captions[0].EndMs, captions[1].StartMs)
	assert.LessOrEqual(t, captions[1].EndMs, 5000)
}

func TestAlignDegradesToEvenSplit(t *testing.T) {
	m := testManagerWithAligner(nil)

	scenes := windows(4000)
	mapped := []SceneSentences{{SceneID: 1, Sentences: []string{"first", "second"}}}

	captions := m.Align(context.Background(), nil, mapped, scenes)
	require.Len(t, captions, 2)
	assert.InDelta(t, 0.3, captions[0].Confidence, 0.001)
	// Even split of [100, 3900]: 1900ms each.
	assert.Equal(t, 100, captions[0].StartMs)
	assert.Equal(t, 2000, captions[0].EndMs)
	assert.Equal(t, 2000, captions[1].StartMs)
	assert.Equal(t, 3900, captions[1].EndMs)
}

func TestAlignCaptionContainment(t *testing.T) {
	aligner := &fakeAligner{words: []WordTimestamp{
		// Word timings drift past the scene boundary; captions clamp inside.
		{Word: "overrun", Start: 4.8, End: 6.2},
	}}
	m := testManagerWithAligner(aligner)

	scenes := windows(5000, 5000)
	mapped := []SceneSentences{{SceneID: 1, Sentences: []string{"overrun"}}}
	voice := &VoiceResult{Path: "voice.wav", DurationMs: 7000}

	captions := m.Align(context.Background(), voice, mapped, scenes)
	require.Len(t, captions, 1)
	assert.GreaterOrEqual(t, captions[0].StartMs, 0)
	assert.LessOrEqual(t, captions[0].EndMs, 5000)
}

func TestVoiceSpansFromCaptions(t *testing.T) {
	spans := VoiceSpansFromCaptions([]AlignedCaption{
		{StartMs: 100, EndMs: 900},
		{StartMs: 1200, EndMs: 2000},
	})
	require.Len(t, spans, 2)
	assert.Equal(t, Span{StartMs: 100, EndMs: 900}, spans[0])
}

func TestTTSChainFallsThrough(t *testing.T) {
	failing := &fakeTTS{name: "primary", err: fmt.Errorf("unreachable")}
	chain := NewTTSChain(failing, NewSilenceSynthesizer())

	resp, err := chain.GenerateSpeech(context.Background(), "one two three four five", "")
	require.NoError(t, err)
	assert.Equal(t, "wav", resp.Format)
	assert.Equal(t, 2000, resp.DurationMs)
	assert.NotEmpty(t, resp.AudioData)
}

type fakeTTS struct {
	name string
	err  error
	resp *TTSResponse
}

func (f *fakeTTS) Name() string { return f.name }
func (f *fakeTTS) GenerateSpeech(ctx context.Context, text, style string) (*TTSResponse, error) {
	return f.resp, f.err
}

func TestSilentWAVHeader(t *testing.T) {
	data := silentWAV(1000)
	require.Greater(t, len(data), 44)
	assert.Equal(t, "RIFF", string(data[0:4]))
	assert.Equal(t, "WAVE", string(data[8:12]))
	// 1s of 44.1kHz stereo 16-bit: 176400 data bytes.
	assert.Equal(t, 44+176400, len(data))
}
