// Package engine converts scenes into playable clips: it selects an engine
// per scene, composes and sanitizes the final prompt, dispatches renders
// concurrently behind a semaphore, and walks each scene through a
// three-level fallback chain that terminates in the local renderer.
package engine

import (
	"context"

	"github.com/amsoltis/scenerender/internal/apperrors"
)

// GenerateRequest is the capability-level render request handed to an
// adapter. OutputDir is owned by the caller; adapters write exactly one clip
// file under it on success.
type GenerateRequest struct {
	Prompt          string
	DurationSeconds int
	Width           int
	Height          int
	ImagePath       string // "" = text-only generation
	Seed            *int64
	StyleHints      []string
	OutputDir       string
	SceneID         int
}

// Result is the uniform outcome of one adapter call. Adapters never return
// a Go error for provider-side failures — every failure mode materializes
// here so the fallback chain can branch on kind.
type Result struct {
	Success           bool
	ClipPath          string
	Engine            string
	RateLimited       bool
	ModerationFlagged bool
	ErrorCode         apperrors.EngineErrorKind
	ErrorMessage      string
}

// Failure builds a failed Result with the given kind and message.
func Failure(engineName string, code apperrors.EngineErrorKind, msg string) *Result {
	return &Result{Engine: engineName, ErrorCode: code, ErrorMessage: msg}
}

// Adapter is the capability every engine satisfies: the three external
// providers and the local renderer are independent implementations sharing
// nothing but this interface.
type Adapter interface {
	Name() string
	Generate(ctx context.Context, req GenerateRequest) *Result
	HealthCheck(ctx context.Context) error
	MaxDuration() int // seconds
	SupportsImageInput() bool
}

// SceneRenderResult is the terminal outcome of one scene's fallback chain,
// published on the manager's progress channel and returned in scene order.
type SceneRenderResult struct {
	SceneID       int
	Success       bool
	ClipPath      string
	EngineUsed    string
	FallbackUsed  bool
	FallbackChain []string // engines attempted, in order
	ElapsedMs     int64
	Err           error
}
