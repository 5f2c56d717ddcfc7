// Package local is the terminal fallback engine: a deterministic renderer
// producing a valid 9:16 clip at the requested duration with no external
// calls — a Ken-Burns loop when the scene has an image, a colored
// background with drawn text otherwise.
package local

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/amsoltis/scenerender/internal/apperrors"
	"github.com/amsoltis/scenerender/internal/engine"
	"github.com/amsoltis/scenerender/internal/media"
)

const (
	defaultBackground = "0x0a1428" // dark navy
	defaultFontSize   = 56
	renderFPS         = 30
)

// kenBurnsEffect enumerates the motion variants; the scene id picks one so
// re-renders of the same scene always produce the same motion.
type kenBurnsEffect int

const (
	effectZoomIn kenBurnsEffect = iota
	effectZoomOut
	effectPanUp
	effectPanDown
	effectCount
)

// Renderer satisfies the engine capability with purely local media work.
type Renderer struct {
	media  *media.Facade
	width  int
	height int
}

var _ engine.Adapter = (*Renderer)(nil)

func New(facade *media.Facade, width, height int) *Renderer {
	if width <= 0 {
		width = 1080
	}
	if height <= 0 {
		height = 1920
	}
	return &Renderer{media: facade, width: width, height: height}
}

func (r *Renderer) Name() string                          { return "local" }
func (r *Renderer) MaxDuration() int                      { return 60 }
func (r *Renderer) SupportsImageInput() bool              { return true }
func (r *Renderer) HealthCheck(ctx context.Context) error { return nil }

// Generate renders the scene's clip into OutputDir. Local rendering has no
// provider failure modes; the only errors are media-processor failures.
func (r *Renderer) Generate(ctx context.Context, req engine.GenerateRequest) *engine.Result {
	if err := os.MkdirAll(req.OutputDir, 0755); err != nil {
		return engine.Failure(r.Name(), apperrors.EngineErrAPIError, fmt.Sprintf("failed to create output dir: %v", err))
	}
	outputPath := filepath.Join(req.OutputDir, fmt.Sprintf("scene_%d_local.mp4", req.SceneID))

	var err error
	if req.ImagePath != "" {
		err = r.renderKenBurns(ctx, req.ImagePath, outputPath, req.SceneID, req.DurationSeconds)
	} else {
		err = r.renderTextCard(ctx, outputPath, req.Prompt, req.DurationSeconds)
	}
	if err != nil {
		return engine.Failure(r.Name(), apperrors.EngineErrAPIError, err.Error())
	}
	return &engine.Result{Success: true, ClipPath: outputPath, Engine: r.Name()}
}

// renderKenBurns animates a still image with a zoompan expression chosen by
// scene id.
func (r *Renderer) renderKenBurns(ctx context.Context, imagePath, outputPath string, sceneID, durationSeconds int) error {
	frames := durationSeconds * renderFPS
	if frames < renderFPS {
		frames = renderFPS
	}

	zExpr, xExpr, yExpr := kenBurnsExpressions(effectForScene(sceneID), frames)
	if err := r.media.ZoompanVideo(ctx, imagePath, outputPath, zExpr, xExpr, yExpr, frames, r.width, r.height, renderFPS); err != nil {
		return fmt.Errorf("ken burns render failed: %w", err)
	}
	return nil
}

// renderTextCard draws the scene text centered on a dark navy background.
func (r *Renderer) renderTextCard(ctx context.Context, outputPath, text string, durationSeconds int) error {
	if text == "" {
		text = "Scene"
	}
	if len(text) > 80 {
		text = text[:80]
	}
	if err := r.media.ColorBackgroundText(ctx, outputPath, text, defaultBackground, defaultFontSize, r.width, r.height, renderFPS, durationSeconds*1000); err != nil {
		return fmt.Errorf("text card render failed: %w", err)
	}
	return nil
}

func effectForScene(sceneID int) kenBurnsEffect {
	if sceneID < 0 {
		sceneID = -sceneID
	}
	return kenBurnsEffect(sceneID % int(effectCount))
}

// kenBurnsExpressions builds the zoompan z/x/y expressions for an effect.
// Pan effects hold a fixed 1.3x zoom and traverse the cropped range; zooms
// run between 1.0x and 1.4x centered.
func kenBurnsExpressions(effect kenBurnsEffect, frames int) (zExpr, xExpr, yExpr string) {
	centerX := "iw/2-(iw/zoom/2)"
	centerY := "ih/2-(ih/zoom/2)"

	switch effect {
	case effectZoomIn:
		return fmt.Sprintf("1.0+0.4*on/%d", frames), centerX, centerY
	case effectZoomOut:
		return fmt.Sprintf("1.4-0.4*on/%d", frames), centerX, centerY
	case effectPanUp:
		return "1.3", centerX, fmt.Sprintf("(ih-ih/zoom)*(1-on/%d)", frames)
	case effectPanDown:
		return "1.3", centerX, fmt.Sprintf("(ih-ih/zoom)*on/%d", frames)
	default:
		return fmt.Sprintf("1.0+0.4*on/%d", frames), centerX, centerY
	}
}
