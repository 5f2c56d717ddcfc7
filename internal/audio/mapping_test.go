package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func windows(durations ...int) []SceneWindow {
	out := make([]SceneWindow, len(durations))
	t := 0
	for i, d := range durations {
		out[i] = SceneWindow{SceneID: i + 1, StartMs: t, EndMs: t + d, DurationMs: d}
		t += d
	}
	return out
}

func TestMapVoiceOneSentencePerScene(t *testing.T) {
	mapped := MapVoiceToScenes("First point. Second point.", windows(5000, 5000, 5000), 0)
	require.Len(t, mapped, 3)
	assert.Equal(t, []string{"First point"}, mapped[0].Sentences)
	assert.Equal(t, []string{"Second point"}, mapped[1].Sentences)
	assert.Empty(t, mapped[2].Sentences)
}

func TestMapVoiceProportionalDistribution(t *testing.T) {
	transcript := "One. Two. Three. Four. Five."
	mapped := MapVoiceToScenes(transcript, windows(5000, 5000), 0)
	require.Len(t, mapped, 2)
	// 5 sentences over 2 scenes: 3 then 2.
	assert.Len(t, mapped[0].Sentences, 3)
	assert.Len(t, mapped[1].Sentences, 2)
}

func TestMapVoiceDurationFromMeasuredVoice(t *testing.T) {
	// Two sentences with equal word counts over a 10s voice: ~5s each.
	mapped := MapVoiceToScenes("alpha beta gamma. delta epsilon zeta.", windows(6000, 6000), 10000)
	require.Len(t, mapped, 2)
	assert.InDelta(t, 5000, mapped[0].EstimatedDurationMs, 100)
	assert.InDelta(t, 5000, mapped[1].EstimatedDurationMs, 100)
}

func TestMapVoiceDurationClampedToScene(t *testing.T) {
	// A long sentence in a short scene clamps to the scene duration.
	mapped := MapVoiceToScenes("one two three four five six seven eight nine ten.", windows(2000), 0)
	require.Len(t, mapped, 1)
	assert.Equal(t, 2000, mapped[0].EstimatedDurationMs)
}

func TestMapVoiceDurationFloor(t *testing.T) {
	mapped := MapVoiceToScenes("Hi.", windows(5000), 10000)
	require.Len(t, mapped, 1)
	assert.GreaterOrEqual(t, mapped[0].EstimatedDurationMs, 500)
}

func TestMapVoiceEmptyTranscript(t *testing.T) {
	mapped := MapVoiceToScenes("   ", windows(5000, 5000), 0)
	require.Len(t, mapped, 2)
	for _, m := range mapped {
		assert.Empty(t, m.Sentences)
	}
}

func TestBuildDuckRegionsPadsAndMerges(t *testing.T) {
	regions := BuildDuckRegions([]Span{
		{StartMs: 500, EndMs: 1000},
		{StartMs: 1100, EndMs: 2000}, // padded spans touch: merged
		{StartMs: 5000, EndMs: 6000},
	}, 10000)

	require.Len(t, regions, 2)
	assert.Equal(t, Span{StartMs: 400, EndMs: 2100}, regions[0])
	assert.Equal(t, Span{StartMs: 4900, EndMs: 6100}, regions[1])
}

func TestBuildDuckRegionsClampsToBounds(t *testing.T) {
	regions := BuildDuckRegions([]Span{{StartMs: 50, EndMs: 9950}}, 10000)
	require.Len(t, regions, 1)
	assert.Equal(t, 0, regions[0].StartMs)
	assert.Equal(t, 10000, regions[0].EndMs)
}

func TestBuildDuckRegionsDropsInverted(t *testing.T) {
	assert.Nil(t, BuildDuckRegions([]Span{{StartMs: 100, EndMs: 100}}, 10000))
	assert.Nil(t, BuildDuckRegions(nil, 10000))
}

func TestSplitSentencesTerminators(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, splitSentences("a. b! c?"))
	assert.Empty(t, splitSentences(""))
}

func TestEstimateSpeechDuration(t *testing.T) {
	// 5 words at 2.5 words/s = 2s.
	assert.Equal(t, 2000, estimateSpeechDurationMs("one two three four five"))
	assert.Equal(t, 1000, estimateSpeechDurationMs(""))
}
