package audio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	cartesiaDefaultURL     = "https://api.cartesia.ai"
	cartesiaAPIVersion     = "2024-06-10"
	cartesiaModel          = "sonic-english"
	cartesiaDefaultVoiceID = "248be419-c632-4f23-adf1-5324ed7dbf1d"
)

// Cartesia is the backup TTS provider, used when the primary is not
// configured or fails.
type Cartesia struct {
	apiKey  string
	apiURL  string
	voiceID string
	speed   float64
	client  *http.Client
}

var _ TTSProvider = (*Cartesia)(nil)

func NewCartesia(apiKey, apiURL, voiceID string, speed float64) *Cartesia {
	if apiURL == "" {
		apiURL = cartesiaDefaultURL
	}
	if voiceID == "" {
		voiceID = cartesiaDefaultVoiceID
	}
	if speed <= 0 {
		speed = 1.0
	}
	return &Cartesia{
		apiKey:  apiKey,
		apiURL:  apiURL,
		voiceID: voiceID,
		speed:   speed,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (s *Cartesia) Name() string { return "cartesia" }

type cartesiaRequest struct {
	ModelID      string                    `json:"model_id"`
	Transcript   string                    `json:"transcript"`
	Voice        cartesiaVoiceSpecifier    `json:"voice"`
	OutputFormat cartesiaOutputFormat      `json:"output_format"`
	Language     *string                   `json:"language,omitempty"`
	Config       *cartesiaGenerationConfig `json:"generation_config,omitempty"`
}

type cartesiaVoiceSpecifier struct {
	Mode string `json:"mode"`
	ID   string `json:"id"`
}

type cartesiaOutputFormat struct {
	Container  string `json:"container"`
	SampleRate int    `json:"sample_rate"`
	BitRate    int    `json:"bit_rate"`
}

type cartesiaGenerationConfig struct {
	Emotion *string  `json:"emotion,omitempty"`
	Speed   *float64 `json:"speed,omitempty"`
}

func (s *Cartesia) GenerateSpeech(ctx context.Context, text, voiceStyle string) (*TTSResponse, error) {
	if s.apiKey == "" {
		return nil, fmt.Errorf("cartesia: no API key configured")
	}

	lang := "en"
	reqBody := cartesiaRequest{
		ModelID:    cartesiaModel,
		Transcript: text,
		Voice:      cartesiaVoiceSpecifier{Mode: "id", ID: s.voiceID},
		OutputFormat: cartesiaOutputFormat{
			Container:  "mp3",
			SampleRate: 44100,
			BitRate:    192000,
		},
		Language: &lang,
	}

	config := &cartesiaGenerationConfig{}
	if emotion := parseEmotionFromStyle(voiceStyle); emotion != "" {
		config.Emotion = &emotion
	}
	if s.speed != 1.0 {
		speed := s.speed
		config.Speed = &speed
	}
	if config.Emotion != nil || config.Speed != nil {
		reqBody.Config = config
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.apiURL+"/tts/bytes", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Cartesia-Version", cartesiaAPIVersion)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("cartesia returned status %d: %s", resp.StatusCode, string(body))
	}

	audioData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio: %w", err)
	}
	if len(audioData) == 0 {
		return nil, fmt.Errorf("cartesia returned empty audio")
	}

	return &TTSResponse{
		AudioData:  audioData,
		DurationMs: estimateSpeechDurationMs(text),
		Format:     "mp3",
	}, nil
}

// parseEmotionFromStyle maps descriptive style words to Cartesia emotions.
func parseEmotionFromStyle(style string) string {
	lower := strings.ToLower(style)
	switch {
	case strings.Contains(lower, "excited"), strings.Contains(lower, "energetic"):
		return "positivity:high"
	case strings.Contains(lower, "calm"), strings.Contains(lower, "peaceful"):
		return "positivity:low"
	case strings.Contains(lower, "dramatic"), strings.Contains(lower, "intense"):
		return "surprise:high"
	default:
		return ""
	}
}
