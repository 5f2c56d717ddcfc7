package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amsoltis/scenerender/internal/api"
	"github.com/amsoltis/scenerender/internal/assembler"
	"github.com/amsoltis/scenerender/internal/audio"
	"github.com/amsoltis/scenerender/internal/config"
	"github.com/amsoltis/scenerender/internal/engine"
	"github.com/amsoltis/scenerender/internal/engine/local"
	"github.com/amsoltis/scenerender/internal/engine/provider"
	"github.com/amsoltis/scenerender/internal/jobrunner"
	"github.com/amsoltis/scenerender/internal/media"
	"github.com/amsoltis/scenerender/internal/queue"
	"github.com/amsoltis/scenerender/internal/storage"
	"github.com/amsoltis/scenerender/internal/store"
	"github.com/amsoltis/scenerender/internal/timeline"
)

func main() {
	log.Println("Starting renderd...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	db, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Connected to database")

	q, err := queue.New(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to connect to queue: %v", err)
	}
	defer q.Close()
	log.Println("Connected to Redis queue")

	stor, err := buildStorage(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	handler := api.NewHandler(db, q)
	router := api.NewRouter(handler, api.RouterConfig{
		BackendAPIKey:      cfg.BackendAPIKey,
		CorsAllowedOrigins: cfg.CorsAllowedOrigins,
	})

	if cfg.BackendAPIKey != "" {
		log.Println("API key authentication enabled")
	} else {
		log.Println("WARNING: No BACKEND_API_KEY set — status API is unprotected (dev mode)")
	}

	server := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: router,
	}

	var workerCancel context.CancelFunc
	if cfg.WorkerEnabled {
		log.Println("Worker enabled, starting job runner...")

		runner, err := buildRunner(cfg, db, q, stor)
		if err != nil {
			log.Fatalf("Failed to build job runner: %v", err)
		}

		var workerCtx context.Context
		workerCtx, workerCancel = context.WithCancel(context.Background())
		go runner.Start(workerCtx, cfg.MaxConcurrentJobs)
	}

	go func() {
		log.Printf("Status API listening on :%s", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")

	if workerCancel != nil {
		workerCancel()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Exited")
}

func buildStorage(cfg *config.Config) (*storage.Storage, error) {
	local, err := storage.NewLocalBackend(cfg.StorageLocalRoot)
	if err != nil {
		return nil, err
	}
	if cfg.StorageURL != "" {
		remote := storage.NewObjectBackend(cfg.StorageURL, cfg.StorageServiceKey, cfg.StorageBucket)
		log.Printf("Storage: local tree at %s mirrored to object bucket %s", cfg.StorageLocalRoot, cfg.StorageBucket)
		return storage.New(storage.NewMirrorBackend(local, remote)), nil
	}
	log.Printf("Storage: local backend at %s", cfg.StorageLocalRoot)
	return storage.New(local), nil
}

func buildRunner(cfg *config.Config, db *store.DB, q *queue.Queue, stor *storage.Storage) (*jobrunner.Runner, error) {
	facade, err := media.NewFacade(cfg.TempDir)
	if err != nil {
		return nil, err
	}

	// Engine adapters — externals registered only when their key is set,
	// the local renderer always.
	adapters := map[string]engine.Adapter{
		engine.EngineLocal: local.New(facade, cfg.Output.Width, cfg.Output.Height),
	}
	if cfg.RunwayAPIKey != "" && cfg.Engines["runway"].Enabled {
		adapters[engine.EngineRunway] = provider.NewRunway(cfg.RunwayAPIKey, cfg.Engines["runway"].TimeoutSeconds)
		log.Println("Engine enabled: runway")
	}
	if cfg.PikaAPIKey != "" && cfg.Engines["pika"].Enabled {
		adapters[engine.EnginePika] = provider.NewPika(cfg.PikaAPIKey, cfg.Engines["pika"].TimeoutSeconds)
		log.Println("Engine enabled: pika")
	}
	if cfg.LumaAPIKey != "" && cfg.Engines["luma"].Enabled {
		adapters[engine.EngineLuma] = provider.NewLuma(cfg.LumaAPIKey, cfg.Engines["luma"].TimeoutSeconds)
		log.Println("Engine enabled: luma")
	}
	if len(adapters) == 1 {
		log.Println("No external engines configured — all scenes will render locally")
	}

	defaultEngine := engine.EngineRunway
	if len(cfg.FallbackChain) > 0 {
		defaultEngine = cfg.FallbackChain[0]
	}

	// Content-moderation blocklist folds into prompt sanitization unless
	// moderation is switched off entirely.
	sanitization := cfg.PromptSanitization
	if cfg.ContentModeration.Strictness != "off" {
		sanitization.Blocklist = append(append([]string{}, sanitization.Blocklist...), cfg.ContentModeration.Blocklist...)
	}
	sanitizer := engine.NewSanitizer(sanitization)
	selector := engine.NewSelector(sanitizer, cfg.PresetEnginePrefs, defaultEngine)
	validator := engine.NewValidator(facade)
	tracker := engine.NewRotationTracker(cfg.EngineRotation)
	manager := engine.NewManager(adapters, cfg.FallbackChain, selector, sanitizer, validator, tracker, cfg.SceneFanOut)

	// TTS chain in configured order, terminated by the silence synthesizer.
	var providers []audio.TTSProvider
	for _, name := range []string{cfg.TTS.PrimaryProvider, cfg.TTS.BackupProvider} {
		switch {
		case name == "elevenlabs" && cfg.ElevenLabsKey != "":
			providers = append(providers, audio.NewElevenLabs(cfg.ElevenLabsKey, cfg.ElevenLabsVoiceID, cfg.TTS.Speed))
			log.Printf("TTS provider: ElevenLabs (voice: %s)", cfg.ElevenLabsVoiceID)
		case name == "cartesia" && cfg.CartesiaKey != "":
			providers = append(providers, audio.NewCartesia(cfg.CartesiaKey, cfg.CartesiaURL, cfg.CartesiaVoiceID, cfg.TTS.Speed))
			log.Printf("TTS provider: Cartesia (voice: %s)", cfg.CartesiaVoiceID)
		}
	}
	providers = append(providers, audio.NewSilenceSynthesizer())
	ttsChain := audio.NewTTSChain(providers...)

	var aligner audio.WordAligner
	if whisper := audio.NewWhisperAligner(cfg.OpenAIKey); whisper != nil {
		aligner = whisper
		log.Println("Forced alignment: Whisper word-level")
	} else {
		log.Println("Forced alignment: degraded (no OpenAI key)")
	}

	audioMgr := audio.NewManager(facade, ttsChain, aligner, cfg.Limits.MaxTotalDurationMs)
	asm := assembler.New(facade, audioMgr, cfg.Output)
	tl := timeline.New(cfg.TransitionDefaultMs)

	return jobrunner.New(db, q, stor, tl, manager, audioMgr, asm, cfg.BackgroundMusicPath, ""), nil
}
