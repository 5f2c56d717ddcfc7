package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/amsoltis/scenerender/internal/apperrors"
	"github.com/amsoltis/scenerender/internal/engine"
)

const (
	lumaBaseURL      = "https://api.lumalabs.ai/dream-machine/v1"
	lumaModel        = "ray-2"
	lumaPollInterval = 5 * time.Second
	lumaPollBackoff  = 10 * time.Second
	lumaMaxDuration  = 9
	lumaAspect       = "9:16"
)

// Luma generates clips via the Luma Dream Machine API. Supports keyframe
// image conditioning, which this adapter uses for image-backed scenes.
type Luma struct {
	apiKey      string
	httpClient  *http.Client
	pollTimeout time.Duration
}

var _ engine.Adapter = (*Luma)(nil)

func NewLuma(apiKey string, timeoutSeconds int) *Luma {
	if timeoutSeconds <= 0 {
		timeoutSeconds = 60
	}
	return &Luma{
		apiKey:      apiKey,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		pollTimeout: time.Duration(timeoutSeconds) * time.Second,
	}
}

func (l *Luma) Name() string             { return "luma" }
func (l *Luma) MaxDuration() int         { return lumaMaxDuration }
func (l *Luma) SupportsImageInput() bool { return true }

func (l *Luma) HealthCheck(ctx context.Context) error {
	if l.apiKey == "" {
		return fmt.Errorf("luma: no API key configured")
	}
	status, _, err := getJSON(ctx, l.httpClient, lumaBaseURL+"/credits", l.apiKey)
	if err != nil {
		return fmt.Errorf("luma health check failed: %w", err)
	}
	if status >= 500 {
		return fmt.Errorf("luma health check returned status %d", status)
	}
	return nil
}

type lumaKeyframe struct {
	Type string `json:"type"` // "image"
	URL  string `json:"url"`
}

type lumaGenerationRequest struct {
	Prompt      string                  `json:"prompt"`
	Model       string                  `json:"model"`
	AspectRatio string                  `json:"aspect_ratio,omitempty"`
	Duration    string                  `json:"duration,omitempty"` // e.g. "5s"
	Keyframes   map[string]lumaKeyframe `json:"keyframes,omitempty"`
}

type lumaGeneration struct {
	ID            string `json:"id"`
	State         string `json:"state"` // queued, dreaming, completed, failed
	FailureReason string `json:"failure_reason,omitempty"`
	Assets        *struct {
		Video string `json:"video,omitempty"`
	} `json:"assets,omitempty"`
}

func (l *Luma) Generate(ctx context.Context, req engine.GenerateRequest) *engine.Result {
	if l.apiKey == "" {
		return engine.Failure(l.Name(), apperrors.EngineErrMissingAPIKey, "no API key configured")
	}

	body := lumaGenerationRequest{
		Prompt:      req.Prompt,
		Model:       lumaModel,
		AspectRatio: lumaAspect,
		Duration:    fmt.Sprintf("%ds", clamp(req.DurationSeconds, 1, lumaMaxDuration)),
	}
	if req.ImagePath != "" {
		if dataURI, err := imageDataURI(req.ImagePath); err == nil {
			body.Keyframes = map[string]lumaKeyframe{
				"frame0": {Type: "image", URL: dataURI},
			}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, l.pollTimeout)
	defer cancel()

	status, respBody, err := postJSON(ctx, l.httpClient, lumaBaseURL+"/generations", l.apiKey, body)
	if err != nil {
		if ctx.Err() != nil {
			return engine.Failure(l.Name(), apperrors.EngineErrTimeout, err.Error())
		}
		return engine.Failure(l.Name(), apperrors.EngineErrAPIError, err.Error())
	}
	switch {
	case status == http.StatusTooManyRequests:
		res := engine.Failure(l.Name(), apperrors.EngineErrRateLimited, string(respBody))
		res.RateLimited = true
		return res
	case status >= 400 && status < 500 && looksLikeModeration(string(respBody)):
		res := engine.Failure(l.Name(), apperrors.EngineErrModerationRejected, string(respBody))
		res.ModerationFlagged = true
		return res
	case status != http.StatusOK && status != http.StatusCreated && status != http.StatusAccepted:
		return engine.Failure(l.Name(), apperrors.EngineErrAPIError, fmt.Sprintf("status %d: %s", status, respBody))
	}

	var gen lumaGeneration
	if err := json.Unmarshal(respBody, &gen); err != nil || gen.ID == "" {
		return engine.Failure(l.Name(), apperrors.EngineErrAPIError, fmt.Sprintf("no generation id in response: %s", respBody))
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = lumaPollInterval
	bo.MaxInterval = lumaPollBackoff
	bo.MaxElapsedTime = l.pollTimeout

	err = backoff.Retry(func() error {
		st, pollBody, pollErr := getJSON(ctx, l.httpClient, fmt.Sprintf("%s/generations/%s", lumaBaseURL, gen.ID), l.apiKey)
		if pollErr != nil {
			return pollErr
		}
		if st == http.StatusTooManyRequests {
			return fmt.Errorf("throttled while polling")
		}
		if st != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("poll returned status %d: %s", st, pollBody))
		}
		if jsonErr := json.Unmarshal(pollBody, &gen); jsonErr != nil {
			return backoff.Permanent(fmt.Errorf("failed to parse generation: %w", jsonErr))
		}
		switch gen.State {
		case "completed":
			if gen.Assets == nil || gen.Assets.Video == "" {
				return backoff.Permanent(fmt.Errorf("completed with no video asset"))
			}
			return nil
		case "failed":
			return backoff.Permanent(fmt.Errorf("generation failed: %s", gen.FailureReason))
		default:
			return fmt.Errorf("generation still %s", gen.State)
		}
	}, backoff.WithContext(bo, ctx))

	if err != nil {
		if ctx.Err() != nil {
			return engine.Failure(l.Name(), apperrors.EngineErrTimeout, err.Error())
		}
		if gen.State == "failed" && looksLikeModeration(gen.FailureReason) {
			res := engine.Failure(l.Name(), apperrors.EngineErrModerationRejected, err.Error())
			res.ModerationFlagged = true
			return res
		}
		return engine.Failure(l.Name(), apperrors.EngineErrAPIError, err.Error())
	}

	path, err := downloadTo(ctx, gen.Assets.Video, req.OutputDir, fmt.Sprintf("scene_%d_luma.mp4", req.SceneID))
	if err != nil {
		return engine.Failure(l.Name(), apperrors.EngineErrAPIError, err.Error())
	}
	return &engine.Result{Success: true, ClipPath: path, Engine: l.Name()}
}
