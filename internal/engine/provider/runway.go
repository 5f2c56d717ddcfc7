package provider

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/amsoltis/scenerender/internal/apperrors"
	"github.com/amsoltis/scenerender/internal/engine"
)

const (
	runwayBaseURL      = "https://api.dev.runwayml.com/v1"
	runwayModel        = "gen3a_turbo"
	runwayPollInterval = 5 * time.Second
	runwayPollBackoff  = 10 * time.Second // on transient 429 during polling
	runwayMaxDuration  = 10               // seconds per clip
	runwayAspect       = "768:1280"
)

// Runway generates clips via the Runway Gen-3 turbo image/text-to-video API.
type Runway struct {
	apiKey      string
	httpClient  *http.Client
	pollTimeout time.Duration
}

var _ engine.Adapter = (*Runway)(nil)

func NewRunway(apiKey string, timeoutSeconds int) *Runway {
	if timeoutSeconds <= 0 {
		timeoutSeconds = 60
	}
	return &Runway{
		apiKey:      apiKey,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		pollTimeout: time.Duration(timeoutSeconds) * time.Second,
	}
}

func (r *Runway) Name() string             { return "runway" }
func (r *Runway) MaxDuration() int         { return runwayMaxDuration }
func (r *Runway) SupportsImageInput() bool { return true }

func (r *Runway) HealthCheck(ctx context.Context) error {
	if r.apiKey == "" {
		return fmt.Errorf("runway: no API key configured")
	}
	status, _, err := getJSON(ctx, r.httpClient, runwayBaseURL+"/organization", r.apiKey)
	if err != nil {
		return fmt.Errorf("runway health check failed: %w", err)
	}
	if status >= 500 {
		return fmt.Errorf("runway health check returned status %d", status)
	}
	return nil
}

type runwayGenerationRequest struct {
	PromptText  string `json:"promptText"`
	PromptImage string `json:"promptImage,omitempty"` // data URI
	Model       string `json:"model"`
	Duration    int    `json:"duration,omitempty"`
	Ratio       string `json:"ratio,omitempty"`
	Seed        *int64 `json:"seed,omitempty"`
}

type runwayGenerationResponse struct {
	ID string `json:"id"`
}

type runwayTaskResult struct {
	ID            string   `json:"id"`
	Status        string   `json:"status"` // PENDING, RUNNING, SUCCEEDED, FAILED, THROTTLED
	Output        []string `json:"output,omitempty"`
	FailureReason string   `json:"failure,omitempty"`
	FailureCode   string   `json:"failureCode,omitempty"`
}

// Generate submits a generation task, polls it to completion within the
// configured deadline, and downloads the produced clip.
func (r *Runway) Generate(ctx context.Context, req engine.GenerateRequest) *engine.Result {
	if r.apiKey == "" {
		return engine.Failure(r.Name(), apperrors.EngineErrMissingAPIKey, "no API key configured")
	}

	body := runwayGenerationRequest{
		PromptText: req.Prompt,
		Model:      runwayModel,
		Duration:   clamp(req.DurationSeconds, 1, runwayMaxDuration),
		Ratio:      runwayAspect,
		Seed:       req.Seed,
	}
	if req.ImagePath != "" {
		if dataURI, err := imageDataURI(req.ImagePath); err == nil {
			body.PromptImage = dataURI
		}
	}

	deadline := time.Now().Add(r.pollTimeout)
	ctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	status, respBody, err := postJSON(ctx, r.httpClient, runwayBaseURL+"/image_to_video", r.apiKey, body)
	if err != nil {
		if ctx.Err() != nil {
			return engine.Failure(r.Name(), apperrors.EngineErrTimeout, err.Error())
		}
		return engine.Failure(r.Name(), apperrors.EngineErrAPIError, err.Error())
	}
	switch {
	case status == http.StatusTooManyRequests:
		res := engine.Failure(r.Name(), apperrors.EngineErrRateLimited, string(respBody))
		res.RateLimited = true
		return res
	case status >= 400 && status < 500 && looksLikeModeration(string(respBody)):
		res := engine.Failure(r.Name(), apperrors.EngineErrModerationRejected, string(respBody))
		res.ModerationFlagged = true
		return res
	case status != http.StatusOK && status != http.StatusCreated && status != http.StatusAccepted:
		return engine.Failure(r.Name(), apperrors.EngineErrAPIError, fmt.Sprintf("status %d: %s", status, respBody))
	}

	var genResp runwayGenerationResponse
	if err := json.Unmarshal(respBody, &genResp); err != nil || genResp.ID == "" {
		return engine.Failure(r.Name(), apperrors.EngineErrAPIError, fmt.Sprintf("no task id in response: %s", respBody))
	}

	task, res := r.poll(ctx, genResp.ID)
	if res != nil {
		return res
	}

	path, err := downloadTo(ctx, task.Output[0], req.OutputDir, fmt.Sprintf("scene_%d_runway.mp4", req.SceneID))
	if err != nil {
		return engine.Failure(r.Name(), apperrors.EngineErrAPIError, err.Error())
	}
	return &engine.Result{Success: true, ClipPath: path, Engine: r.Name()}
}

// poll drives GET /tasks/{id} with exponential backoff until the task
// settles. A non-nil *engine.Result is a terminal failure.
func (r *Runway) poll(ctx context.Context, taskID string) (*runwayTaskResult, *engine.Result) {
	var task runwayTaskResult

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = runwayPollInterval
	bo.MaxInterval = runwayPollBackoff
	bo.MaxElapsedTime = r.pollTimeout

	err := backoff.Retry(func() error {
		status, body, err := getJSON(ctx, r.httpClient, fmt.Sprintf("%s/tasks/%s", runwayBaseURL, taskID), r.apiKey)
		if err != nil {
			return err
		}
		if status == http.StatusTooManyRequests {
			return fmt.Errorf("throttled while polling")
		}
		if status != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("poll returned status %d: %s", status, body))
		}
		if err := json.Unmarshal(body, &task); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to parse task result: %w", err))
		}
		switch task.Status {
		case "SUCCEEDED":
			if len(task.Output) == 0 {
				return backoff.Permanent(fmt.Errorf("task succeeded with no output"))
			}
			return nil
		case "FAILED":
			return backoff.Permanent(fmt.Errorf("task failed: %s %s", task.FailureCode, task.FailureReason))
		default:
			return fmt.Errorf("task still %s", task.Status)
		}
	}, backoff.WithContext(bo, ctx))

	if err != nil {
		if ctx.Err() != nil {
			return nil, engine.Failure(r.Name(), apperrors.EngineErrTimeout, err.Error())
		}
		if task.Status == "FAILED" && looksLikeModeration(task.FailureReason+" "+task.FailureCode) {
			res := engine.Failure(r.Name(), apperrors.EngineErrModerationRejected, err.Error())
			res.ModerationFlagged = true
			return nil, res
		}
		return nil, engine.Failure(r.Name(), apperrors.EngineErrAPIError, err.Error())
	}
	return &task, nil
}

// imageDataURI inlines a local image as a data URI for promptImage.
func imageDataURI(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(data), nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
