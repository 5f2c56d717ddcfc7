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
	pikaBaseURL      = "https://api.pika.art/v1"
	pikaPollInterval = 4 * time.Second
	pikaPollBackoff  = 8 * time.Second
	pikaMaxDuration  = 10
	pikaAspect       = "9:16"
)

// Pika generates clips via the Pika text-to-video API. Text-only — image
// conditioning is not part of its public generation endpoint.
type Pika struct {
	apiKey      string
	httpClient  *http.Client
	pollTimeout time.Duration
}

var _ engine.Adapter = (*Pika)(nil)

func NewPika(apiKey string, timeoutSeconds int) *Pika {
	if timeoutSeconds <= 0 {
		timeoutSeconds = 60
	}
	return &Pika{
		apiKey:      apiKey,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		pollTimeout: time.Duration(timeoutSeconds) * time.Second,
	}
}

func (p *Pika) Name() string             { return "pika" }
func (p *Pika) MaxDuration() int         { return pikaMaxDuration }
func (p *Pika) SupportsImageInput() bool { return false }

func (p *Pika) HealthCheck(ctx context.Context) error {
	if p.apiKey == "" {
		return fmt.Errorf("pika: no API key configured")
	}
	status, _, err := getJSON(ctx, p.httpClient, pikaBaseURL+"/me", p.apiKey)
	if err != nil {
		return fmt.Errorf("pika health check failed: %w", err)
	}
	if status >= 500 {
		return fmt.Errorf("pika health check returned status %d", status)
	}
	return nil
}

type pikaGenerationRequest struct {
	Prompt      string  `json:"prompt"`
	Duration    int     `json:"duration,omitempty"`
	AspectRatio string  `json:"aspectRatio,omitempty"`
	Seed        *int64  `json:"seed,omitempty"`
	Style       *string `json:"style,omitempty"`
}

type pikaGenerationResponse struct {
	VideoID string `json:"video_id"`
}

type pikaVideoResult struct {
	Status   string `json:"status"` // queued, generating, completed, failed
	VideoURL string `json:"video_url,omitempty"`
	Error    string `json:"error,omitempty"`
}

func (p *Pika) Generate(ctx context.Context, req engine.GenerateRequest) *engine.Result {
	if p.apiKey == "" {
		return engine.Failure(p.Name(), apperrors.EngineErrMissingAPIKey, "no API key configured")
	}

	body := pikaGenerationRequest{
		Prompt:      req.Prompt,
		Duration:    clamp(req.DurationSeconds, 1, pikaMaxDuration),
		AspectRatio: pikaAspect,
		Seed:        req.Seed,
	}
	if len(req.StyleHints) > 0 {
		style := req.StyleHints[0]
		body.Style = &style
	}

	ctx, cancel := context.WithTimeout(ctx, p.pollTimeout)
	defer cancel()

	status, respBody, err := postJSON(ctx, p.httpClient, pikaBaseURL+"/videos", p.apiKey, body)
	if err != nil {
		if ctx.Err() != nil {
			return engine.Failure(p.Name(), apperrors.EngineErrTimeout, err.Error())
		}
		return engine.Failure(p.Name(), apperrors.EngineErrAPIError, err.Error())
	}
	switch {
	case status == http.StatusTooManyRequests:
		res := engine.Failure(p.Name(), apperrors.EngineErrRateLimited, string(respBody))
		res.RateLimited = true
		return res
	case status >= 400 && status < 500 && looksLikeModeration(string(respBody)):
		res := engine.Failure(p.Name(), apperrors.EngineErrModerationRejected, string(respBody))
		res.ModerationFlagged = true
		return res
	case status != http.StatusOK && status != http.StatusCreated && status != http.StatusAccepted:
		return engine.Failure(p.Name(), apperrors.EngineErrAPIError, fmt.Sprintf("status %d: %s", status, respBody))
	}

	var genResp pikaGenerationResponse
	if err := json.Unmarshal(respBody, &genResp); err != nil || genResp.VideoID == "" {
		return engine.Failure(p.Name(), apperrors.EngineErrAPIError, fmt.Sprintf("no video id in response: %s", respBody))
	}

	var result pikaVideoResult
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = pikaPollInterval
	bo.MaxInterval = pikaPollBackoff
	bo.MaxElapsedTime = p.pollTimeout

	err = backoff.Retry(func() error {
		st, pollBody, pollErr := getJSON(ctx, p.httpClient, fmt.Sprintf("%s/videos/%s", pikaBaseURL, genResp.VideoID), p.apiKey)
		if pollErr != nil {
			return pollErr
		}
		if st == http.StatusTooManyRequests {
			return fmt.Errorf("throttled while polling")
		}
		if st != http.StatusOK && st != http.StatusAccepted {
			return backoff.Permanent(fmt.Errorf("poll returned status %d: %s", st, pollBody))
		}
		if jsonErr := json.Unmarshal(pollBody, &result); jsonErr != nil {
			return backoff.Permanent(fmt.Errorf("failed to parse poll response: %w", jsonErr))
		}
		switch result.Status {
		case "completed":
			if result.VideoURL == "" {
				return backoff.Permanent(fmt.Errorf("completed with no video url"))
			}
			return nil
		case "failed":
			return backoff.Permanent(fmt.Errorf("generation failed: %s", result.Error))
		default:
			return fmt.Errorf("generation still %s", result.Status)
		}
	}, backoff.WithContext(bo, ctx))

	if err != nil {
		if ctx.Err() != nil {
			return engine.Failure(p.Name(), apperrors.EngineErrTimeout, err.Error())
		}
		if result.Status == "failed" && looksLikeModeration(result.Error) {
			res := engine.Failure(p.Name(), apperrors.EngineErrModerationRejected, err.Error())
			res.ModerationFlagged = true
			return res
		}
		return engine.Failure(p.Name(), apperrors.EngineErrAPIError, err.Error())
	}

	path, err := downloadTo(ctx, result.VideoURL, req.OutputDir, fmt.Sprintf("scene_%d_pika.mp4", req.SceneID))
	if err != nil {
		return engine.Failure(p.Name(), apperrors.EngineErrAPIError, err.Error())
	}
	return &engine.Result{Success: true, ClipPath: path, Engine: p.Name()}
}
