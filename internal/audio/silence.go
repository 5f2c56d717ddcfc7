package audio

import (
	"context"
	"encoding/binary"
)

// SilenceSynthesizer is the terminal TTS provider: it fabricates a silent
// stereo WAV sized to the speaking-rate estimate of the text, so the voice
// pipeline always yields a playable track even with every real provider
// down.
type SilenceSynthesizer struct{}

var _ TTSProvider = (*SilenceSynthesizer)(nil)

func NewSilenceSynthesizer() *SilenceSynthesizer { return &SilenceSynthesizer{} }

func (s *SilenceSynthesizer) Name() string { return "silence" }

func (s *SilenceSynthesizer) GenerateSpeech(ctx context.Context, text, voiceStyle string) (*TTSResponse, error) {
	durationMs := estimateSpeechDurationMs(text)
	return &TTSResponse{
		AudioData:  silentWAV(durationMs),
		DurationMs: durationMs,
		Format:     "wav",
	}, nil
}

const (
	wavSampleRate = 44100
	wavChannels   = 2
	wavBitDepth   = 16
)

// silentWAV builds a canonical 44-byte-header PCM WAV of zeros.
func silentWAV(durationMs int) []byte {
	if durationMs < 1 {
		durationMs = 1
	}
	samples := wavSampleRate * durationMs / 1000
	dataSize := samples * wavChannels * wavBitDepth / 8
	byteRate := wavSampleRate * wavChannels * wavBitDepth / 8
	blockAlign := wavChannels * wavBitDepth / 8

	buf := make([]byte, 44+dataSize)
	copy(buf[0:], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:], uint32(36+dataSize))
	copy(buf[8:], "WAVE")
	copy(buf[12:], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:], 16)
	binary.LittleEndian.PutUint16(buf[20:], 1) // PCM
	binary.LittleEndian.PutUint16(buf[22:], wavChannels)
	binary.LittleEndian.PutUint32(buf[24:], wavSampleRate)
	binary.LittleEndian.PutUint32(buf[28:], uint32(byteRate))
	binary.LittleEndian.PutUint16(buf[32:], uint16(blockAlign))
	binary.LittleEndian.PutUint16(buf[34:], wavBitDepth)
	copy(buf[36:], "data")
	binary.LittleEndian.PutUint32(buf[40:], uint32(dataSize))
	return buf
}
