// Package audio knits voice, music and captions to scene boundaries: TTS
// and voice ingest, voice-to-scene mapping, forced alignment with graceful
// degradation, music preparation, ducking, mixing, loudness normalization
// and the final mux.
package audio

import (
	"context"
	"fmt"
	"log"
)

// TTSResponse is the common response from any TTS provider.
type TTSResponse struct {
	AudioData  []byte
	DurationMs int
	Format     string // "mp3", "wav", ...
}

// TTSProvider is the capability every speech synthesizer satisfies. The
// silence synthesizer at the end of the chain also implements it, so the
// chain as a whole never returns empty-handed.
type TTSProvider interface {
	Name() string
	GenerateSpeech(ctx context.Context, text, voiceStyle string) (*TTSResponse, error)
}

// TTSChain tries providers in configured order (primary, backup, local,
// silence) and returns the first success.
type TTSChain struct {
	providers []TTSProvider
}

func NewTTSChain(providers ...TTSProvider) *TTSChain {
	return &TTSChain{providers: providers}
}

// GenerateSpeech walks the chain. The final provider is expected to be the
// silence synthesizer, which cannot fail, so an all-providers failure
// indicates a misconfigured chain.
func (c *TTSChain) GenerateSpeech(ctx context.Context, text, voiceStyle string) (*TTSResponse, error) {
	var lastErr error
	for _, p := range c.providers {
		resp, err := p.GenerateSpeech(ctx, text, voiceStyle)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		log.Printf("[TTS] provider %s failed, trying next: %v", p.Name(), err)
	}
	return nil, fmt.Errorf("all TTS providers failed: %w", lastErr)
}

// wordsPerSecond is the speaking-rate estimate used wherever a measured
// audio duration is unavailable.
const wordsPerSecond = 2.5

// estimateSpeechDurationMs estimates how long the text takes to speak.
func estimateSpeechDurationMs(text string) int {
	words := len(splitWords(text))
	if words == 0 {
		return 1000
	}
	return int(float64(words) / wordsPerSecond * 1000)
}
