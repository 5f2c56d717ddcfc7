package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// OutputConfig controls the final encode parameters for every assembled video.
type OutputConfig struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	FPS         int    `json:"fps"`
	Codec       string `json:"codec"`
	PixelFormat string `json:"pixelFormat"`
	MaxBitrate  string `json:"maxBitrate"`
}

// LimitsConfig bounds asset size and total job duration.
type LimitsConfig struct {
	MaxAssetMB         int `json:"maxAssetMb"`
	MaxImageEdgePx     int `json:"maxImageEdgePx"`
	MaxTotalDurationMs int `json:"maxTotalDurationMs"`
}

// EngineConfig is the per-engine block under v2.engines.*.
type EngineConfig struct {
	Enabled                bool `json:"enabled"`
	TimeoutSeconds         int  `json:"timeoutSeconds"`
	MaxClipDurationSeconds int  `json:"maxClipDurationSeconds"`
}

// PromptSanitizationConfig drives the prompt cleanup pass in the engine manager.
type PromptSanitizationConfig struct {
	Blocklist       []string          `json:"blocklist"`
	Substitutions   map[string]string `json:"substitutions"`
	MaxPromptLength int               `json:"maxPromptLength"`
	BrandSafeSuffix string            `json:"brandSafeSuffix"`
}

// PresetEnginePref is one entry of v2.presetEnginePrefs.
type PresetEnginePref struct {
	PreferredEngine  string  `json:"preferredEngine"`
	FallbackOverride *string `json:"fallbackOverride,omitempty"`
}

// EngineRotationConfig governs the optional smart-rotation failure tracker.
type EngineRotationConfig struct {
	Enabled          bool    `json:"enabled"`
	FailureThreshold float64 `json:"failureThreshold"`
	WindowSeconds    int     `json:"windowSeconds"`
	MinAttempts      int     `json:"minAttempts"`
}

// ContentModerationConfig configures the optional moderation strictness level.
type ContentModerationConfig struct {
	Strictness string   `json:"strictness"` // strict | standard | off
	Blocklist  []string `json:"blocklist"`
}

// TTSConfig names the configured TTS providers and delivery defaults.
type TTSConfig struct {
	PrimaryProvider string  `json:"primaryProvider"`
	BackupProvider  string  `json:"backupProvider"`
	VoiceName       string  `json:"voiceName"`
	Speed           float64 `json:"speed"`
	OutputFormat    string  `json:"outputFormat"`
}

type Config struct {
	// Server
	APIPort            string
	WorkerEnabled      bool
	BackendAPIKey      string // API key for authenticating requests (empty = no auth, dev mode)
	CorsAllowedOrigins string // Comma-separated allowed origins (empty = *, dev mode)

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// Storage (S3-compatible object endpoint, or local disk when unset)
	StorageURL        string
	StorageServiceKey string
	StorageBucket     string
	StorageLocalRoot  string // used when StorageURL is empty

	// OpenAI (used only for Whisper-based forced alignment)
	OpenAIKey string

	// xAI-style video engines — real endpoint credentials per provider
	RunwayAPIKey string
	PikaAPIKey   string
	LumaAPIKey   string

	// ElevenLabs (preferred TTS provider)
	ElevenLabsKey     string
	ElevenLabsVoiceID string

	// Cartesia (backup TTS provider — used when ElevenLabs key is not set)
	CartesiaKey     string
	CartesiaURL     string
	CartesiaVoiceID string

	// Audio
	BackgroundMusicPath string // path to default background music file

	// Worker
	MaxConcurrentJobs int // Job Runner poll concurrency (workers pulled off the queue)
	SceneFanOut       int // bounded scene-dispatch semaphore, default 3
	TempDir           string

	Output              OutputConfig
	TransitionDefaultMs int
	Limits              LimitsConfig
	Engines             map[string]EngineConfig
	FallbackChain       []string
	PromptSanitization  PromptSanitizationConfig
	PresetEnginePrefs   map[string]PresetEnginePref
	EngineRotation      EngineRotationConfig
	ContentModeration   ContentModerationConfig
	TTS                 TTSConfig
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	_ = godotenv.Load()

	cfg := &Config{
		APIPort:             getEnv("API_PORT", "8080"),
		WorkerEnabled:       getEnvBool("WORKER_ENABLED", true),
		BackendAPIKey:       getEnv("BACKEND_API_KEY", ""),
		CorsAllowedOrigins:  getEnv("CORS_ALLOWED_ORIGINS", ""),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		RedisURL:            getEnv("REDIS_URL", "redis://localhost:6379"),
		StorageURL:          getEnv("STORAGE_URL", ""),
		StorageServiceKey:   getEnv("STORAGE_SERVICE_KEY", ""),
		StorageBucket:       getEnv("STORAGE_BUCKET", "scenerender"),
		StorageLocalRoot:    getEnv("STORAGE_LOCAL_ROOT", "./data/storage"),
		OpenAIKey:           getEnv("OPENAI_API_KEY", ""),
		RunwayAPIKey:        getEnv("RUNWAY_API_KEY", ""),
		PikaAPIKey:          getEnv("PIKA_API_KEY", ""),
		LumaAPIKey:          getEnv("LUMA_API_KEY", ""),
		ElevenLabsKey:       getEnv("ELEVENLABS_API_KEY", ""),
		ElevenLabsVoiceID:   getEnv("ELEVENLABS_VOICE_ID", ""),
		CartesiaKey:         getEnv("CARTESIA_API_KEY", ""),
		CartesiaURL:         getEnv("CARTESIA_API_URL", "https://api.cartesia.ai"),
		CartesiaVoiceID:     getEnv("CARTESIA_VOICE_ID", ""),
		BackgroundMusicPath: getEnv("BACKGROUND_MUSIC_PATH", "assets/music/music.mp3"),
		MaxConcurrentJobs:   getEnvInt("MAX_CONCURRENT_JOBS", 5),
		SceneFanOut:         getEnvInt("SCENE_FAN_OUT", 3),
		TempDir:             getEnv("TEMP_DIR", "./data/tmp"),

		Output: OutputConfig{
			Width:       getEnvInt("OUTPUT_WIDTH", 1080),
			Height:      getEnvInt("OUTPUT_HEIGHT", 1920),
			FPS:         getEnvInt("OUTPUT_FPS", 30),
			Codec:       getEnv("OUTPUT_CODEC", "h264"),
			PixelFormat: getEnv("OUTPUT_PIXEL_FORMAT", "yuv420p"),
			MaxBitrate:  getEnv("OUTPUT_MAX_BITRATE", "12M"),
		},
		TransitionDefaultMs: getEnvInt("TRANSITION_DEFAULT_MS", 500),
		Limits: LimitsConfig{
			MaxAssetMB:         getEnvInt("LIMITS_MAX_ASSET_MB", 20),
			MaxImageEdgePx:     getEnvInt("LIMITS_MAX_IMAGE_EDGE_PX", 4096),
			MaxTotalDurationMs: getEnvInt("LIMITS_MAX_TOTAL_DURATION_MS", 60000),
		},
		FallbackChain: getEnvStringSlice("V2_FALLBACK_CHAIN", []string{"runway", "pika", "luma"}),
		EngineRotation: EngineRotationConfig{
			Enabled:          getEnvBool("V2_ENGINE_ROTATION_ENABLED", false),
			FailureThreshold: getEnvFloat("V2_ENGINE_ROTATION_FAILURE_THRESHOLD", 0.5),
			WindowSeconds:    getEnvInt("V2_ENGINE_ROTATION_WINDOW_SECONDS", 300),
			MinAttempts:      getEnvInt("V2_ENGINE_ROTATION_MIN_ATTEMPTS", 3),
		},
		ContentModeration: ContentModerationConfig{
			Strictness: getEnv("V2_CONTENT_MODERATION_STRICTNESS", "standard"),
			Blocklist:  getEnvStringSlice("V2_CONTENT_MODERATION_BLOCKLIST", nil),
		},
		TTS: TTSConfig{
			PrimaryProvider: getEnv("TTS_PRIMARY_PROVIDER", "elevenlabs"),
			BackupProvider:  getEnv("TTS_BACKUP_PROVIDER", "cartesia"),
			VoiceName:       getEnv("TTS_VOICE_NAME", ""),
			Speed:           getEnvFloat("TTS_SPEED", 1.0),
			OutputFormat:    getEnv("TTS_OUTPUT_FORMAT", "mp3"),
		},
	}

	cfg.Engines = getEnvEngineConfigs("V2_ENGINES_JSON", map[string]EngineConfig{
		"runway": {Enabled: cfg.RunwayAPIKey != "", TimeoutSeconds: 60, MaxClipDurationSeconds: 15},
		"pika":   {Enabled: cfg.PikaAPIKey != "", TimeoutSeconds: 60, MaxClipDurationSeconds: 15},
		"luma":   {Enabled: cfg.LumaAPIKey != "", TimeoutSeconds: 60, MaxClipDurationSeconds: 15},
	})

	cfg.PromptSanitization = getEnvPromptSanitization("V2_PROMPT_SANITIZATION_JSON", PromptSanitizationConfig{
		Blocklist: []string{"violence", "weapon", "explicit"},
		Substitutions: map[string]string{
			"shoot": "film",
			"gun":   "device",
		},
		MaxPromptLength: 500,
		BrandSafeSuffix: "professional, brand-safe, clean aesthetic",
	})

	cfg.PresetEnginePrefs = getEnvPresetEnginePrefs("V2_PRESET_ENGINE_PREFS_JSON")

	// Validate required fields
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.ElevenLabsKey == "" && cfg.CartesiaKey == "" {
		return nil, fmt.Errorf("either ELEVENLABS_API_KEY or CARTESIA_API_KEY is required for TTS")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		b, err := strconv.ParseBool(value)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		i, err := strconv.Atoi(value)
		if err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		f, err := strconv.ParseFloat(value, 64)
		if err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	if err := json.Unmarshal([]byte(value), &out); err != nil {
		return defaultValue
	}
	return out
}

func getEnvEngineConfigs(key string, defaultValue map[string]EngineConfig) map[string]EngineConfig {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out map[string]EngineConfig
	if err := json.Unmarshal([]byte(value), &out); err != nil {
		return defaultValue
	}
	return out
}

func getEnvPromptSanitization(key string, defaultValue PromptSanitizationConfig) PromptSanitizationConfig {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out PromptSanitizationConfig
	if err := json.Unmarshal([]byte(value), &out); err != nil {
		return defaultValue
	}
	return out
}

func getEnvPresetEnginePrefs(key string) map[string]PresetEnginePref {
	value := os.Getenv(key)
	if value == "" {
		return map[string]PresetEnginePref{}
	}
	var out map[string]PresetEnginePref
	if err := json.Unmarshal([]byte(value), &out); err != nil {
		return map[string]PresetEnginePref{}
	}
	return out
}
