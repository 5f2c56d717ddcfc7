package audio

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/amsoltis/scenerender/internal/media"
)

const (
	// Mix levels and mastering targets.
	voiceMixDB      = -6.0
	musicBaselineDB = -12.0
	normalizeLUFS   = -14.0
	truePeakDB      = -1.5

	musicFadeOutMs = 2000
)

// Manager runs the audio pipeline end to end for one job.
type Manager struct {
	media         *media.Facade
	tts           *TTSChain
	aligner       WordAligner // nil = skip word-level alignment
	maxDurationMs int
}

func NewManager(facade *media.Facade, tts *TTSChain, aligner WordAligner, maxDurationMs int) *Manager {
	if maxDurationMs <= 0 {
		maxDurationMs = 60000
	}
	return &Manager{
		media:         facade,
		tts:           tts,
		aligner:       aligner,
		maxDurationMs: maxDurationMs,
	}
}

// PrepareMusic loops or trims the music to exactly the total duration with
// a fade-out over the last two seconds. Its level is left unchanged here;
// the fixed baseline music level is applied at mix time.
func (m *Manager) PrepareMusic(ctx context.Context, musicPath string, totalDurationMs int, workDir string) (string, error) {
	if musicPath == "" {
		return "", nil
	}
	if _, err := os.Stat(musicPath); err != nil {
		log.Printf("[audio] music file %s unreadable, skipping music: %v", musicPath, err)
		return "", nil
	}

	fitted := filepath.Join(workDir, "music_fitted.wav")
	if err := m.media.LoopAudioToDuration(ctx, musicPath, fitted, totalDurationMs); err != nil {
		return "", fmt.Errorf("music fit failed: %w", err)
	}

	faded := filepath.Join(workDir, "music_prepared.wav")
	if err := m.media.FadeOut(ctx, fitted, faded, totalDurationMs, musicFadeOutMs); err != nil {
		return "", fmt.Errorf("music fade failed: %w", err)
	}
	m.media.Cleanup(fitted)
	return faded, nil
}

// MixAndMaster mixes voice and ducked music, normalizes loudness, and muxes
// the mastered track onto the composed video, returning the new video path.
// With neither voice nor music, a silent track of the full duration is
// muxed instead so the output always carries an audio stream.
func (m *Manager) MixAndMaster(ctx context.Context, videoPath, voicePath, musicPath string, duckRegions []Span, totalDurationMs int, workDir string) (string, error) {
	mixed := filepath.Join(workDir, "mix.wav")

	if voicePath == "" && musicPath == "" {
		if err := m.media.SilenceTrack(ctx, mixed, totalDurationMs); err != nil {
			return "", fmt.Errorf("silence synthesis failed: %w", err)
		}
	} else {
		regions := make([]media.DuckRegionSec, 0, len(duckRegions))
		if musicPath != "" {
			for _, r := range duckRegions {
				regions = append(regions, media.DuckRegionSec{
					Start: float64(r.StartMs) / 1000.0,
					End:   float64(r.EndMs) / 1000.0,
				})
			}
		}
		err := m.media.MixAudio(ctx, mixed, media.MixOptions{
			VoicePath:         voicePath,
			MusicPath:         musicPath,
			VoiceVolumeDB:     voiceMixDB,
			MusicVolumeDB:     musicBaselineDB,
			DuckRegions:       regions,
			DuckAttenuationDB: duckAttenuationDB,
			DuckFadeSec:       float64(duckFadeMs) / 1000.0,
			TargetDuration:    float64(totalDurationMs) / 1000.0,
		})
		if err != nil {
			return "", fmt.Errorf("audio mix failed: %w", err)
		}
	}

	normalized := filepath.Join(workDir, "mix_normalized.m4a")
	if err := m.media.LoudnessNormalize(ctx, mixed, normalized, normalizeLUFS, truePeakDB); err != nil {
		return "", fmt.Errorf("loudness normalization failed: %w", err)
	}

	muxed := filepath.Join(workDir, "with_audio.mp4")
	if err := m.media.Mux(ctx, videoPath, normalized, muxed); err != nil {
		return "", fmt.Errorf("audio mux failed: %w", err)
	}

	m.media.Cleanup(mixed, normalized)
	return muxed, nil
}
