package audio

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

const (
	// silenceTrimThresholdDB is the level below which leading/trailing audio
	// counts as silence during ingest.
	silenceTrimThresholdDB = -40.0

	// trimFadeMs is the fade-out applied when an over-long voice track is
	// cut at the duration limit.
	trimFadeMs = 500
)

// acceptedVoiceFormats are the ingest container/codec extensions.
var acceptedVoiceFormats = map[string]bool{
	".wav":  true,
	".mp3":  true,
	".aac":  true,
	".m4a":  true,
	".ogg":  true,
	".flac": true,
}

// VoiceResult is the normalized voice track handed to mapping, alignment
// and mixing.
type VoiceResult struct {
	Path        string
	DurationMs  int
	Transcript  string // script text when synthesized, "" for raw ingests
	Synthesized bool
}

// AcquireVoice produces the job's voice track: a normalized ingest of the
// user-provided file when present, otherwise TTS of the script through the
// provider chain. Returns nil (no error) when the job has no voice at all.
func (m *Manager) AcquireVoice(ctx context.Context, script, voiceFilePath, workDir string) (*VoiceResult, error) {
	if voiceFilePath != "" {
		return m.ingestVoice(ctx, voiceFilePath, script, workDir)
	}
	if strings.TrimSpace(script) == "" {
		return nil, nil
	}
	return m.synthesizeVoice(ctx, script, workDir)
}

// ingestVoice resamples to 44.1kHz stereo, trims surrounding silence,
// measures the result, and trims with a fade when over the duration limit.
func (m *Manager) ingestVoice(ctx context.Context, voiceFilePath, transcript, workDir string) (*VoiceResult, error) {
	ext := strings.ToLower(filepath.Ext(voiceFilePath))
	if !acceptedVoiceFormats[ext] {
		return nil, fmt.Errorf("unsupported voice format %q", ext)
	}
	if _, err := os.Stat(voiceFilePath); err != nil {
		return nil, fmt.Errorf("voice file unreadable: %w", err)
	}

	trimmed := filepath.Join(workDir, "voice_ingest.wav")
	if err := m.media.TrimSilence(ctx, voiceFilePath, trimmed, silenceTrimThresholdDB); err != nil {
		return nil, fmt.Errorf("voice ingest normalization failed: %w", err)
	}

	durationMs, err := m.media.AudioDuration(ctx, trimmed)
	if err != nil {
		return nil, fmt.Errorf("voice ingest measurement failed: %w", err)
	}

	if m.maxDurationMs > 0 && durationMs > m.maxDurationMs {
		log.Printf("[audio] ingested voice %dms over the %dms limit, trimming with fade", durationMs, m.maxDurationMs)
		faded := filepath.Join(workDir, "voice_trimmed.wav")
		if err := m.media.LoopAudioToDuration(ctx, trimmed, faded, m.maxDurationMs); err != nil {
			return nil, fmt.Errorf("voice trim failed: %w", err)
		}
		withFade := filepath.Join(workDir, "voice_faded.wav")
		if err := m.media.FadeOut(ctx, faded, withFade, m.maxDurationMs, trimFadeMs); err != nil {
			return nil, fmt.Errorf("voice fade failed: %w", err)
		}
		trimmed = withFade
		durationMs = m.maxDurationMs
	}

	return &VoiceResult{Path: trimmed, DurationMs: durationMs, Transcript: transcript}, nil
}

// voiceLeadInMs pads the front of synthesized speech so the first word is
// never clipped by the mix.
const voiceLeadInMs = 500

// synthesizeVoice runs the TTS chain, writes the audio to disk with a short
// lead-in, and probes the real duration when possible.
func (m *Manager) synthesizeVoice(ctx context.Context, script, workDir string) (*VoiceResult, error) {
	resp, err := m.tts.GenerateSpeech(ctx, script, "")
	if err != nil {
		return nil, fmt.Errorf("voice synthesis failed: %w", err)
	}

	raw := filepath.Join(workDir, "voice_raw."+resp.Format)
	if err := os.WriteFile(raw, resp.AudioData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write voice track: %w", err)
	}

	path := filepath.Join(workDir, "voice."+resp.Format)
	if err := m.media.PrependSilence(ctx, raw, path, voiceLeadInMs); err != nil {
		log.Printf("[audio] could not prepend lead-in, using raw voice: %v", err)
		path = raw
	}

	durationMs := resp.DurationMs
	if measured, err := m.media.AudioDuration(ctx, path); err == nil && measured > 0 {
		durationMs = measured
	}

	return &VoiceResult{Path: path, DurationMs: durationMs, Transcript: script, Synthesized: true}, nil
}

var wordSplitRe = regexp.MustCompile(`\S+`)

func splitWords(text string) []string {
	return wordSplitRe.FindAllString(text, -1)
}
