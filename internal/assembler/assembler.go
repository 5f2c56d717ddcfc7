// Package assembler composes processed scene clips into the final artifact:
// transition-aware concatenation, caption burn-in, optional brand logo
// overlay, audio mix/normalize/mux, final encode and thumbnail extraction.
// Each stage consumes the previous stage's output file under the job's
// assembly directory.
package assembler

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/amsoltis/scenerender/internal/audio"
	"github.com/amsoltis/scenerender/internal/caption"
	"github.com/amsoltis/scenerender/internal/config"
	"github.com/amsoltis/scenerender/internal/media"
	"github.com/amsoltis/scenerender/internal/renderspec"
)

const (
	// hardCutMs is the stand-in transition length used where a CUT must be
	// expressed inside an xfade chain.
	hardCutMs = 1

	thumbnailAtSec = 1.0

	logoScale   = 0.15
	logoOpacity = 0.6
)

// Input is everything the assembler needs for one job.
type Input struct {
	Timeline   *renderspec.Timeline
	SceneClips []string // processed clip paths, scene order
	WorkDir    string   // jobs/{id}/assembly
	OutputDir  string   // jobs/{id}

	VoicePath   string
	MusicPath   string
	DuckRegions []audio.Span

	PresetID  string
	BrandSafe bool
	LogoPath  string // "" = no logo overlay
}

// Output is the final artifact set.
type Output struct {
	VideoPath     string
	ThumbnailPath string
	SubtitlePath  string
}

// Assembler drives the staged composition.
type Assembler struct {
	media  *media.Facade
	audio  *audio.Manager
	output config.OutputConfig
}

func New(facade *media.Facade, audioMgr *audio.Manager, output config.OutputConfig) *Assembler {
	return &Assembler{media: facade, audio: audioMgr, output: output}
}

// Assemble runs the full stage sequence. Intermediates are numbered under
// WorkDir so a crashed run leaves an inspectable trail; they are pruned by
// the job runner at job termination, not here.
func (a *Assembler) Assemble(ctx context.Context, in Input) (*Output, error) {
	if len(in.SceneClips) == 0 {
		return nil, fmt.Errorf("no scene clips to assemble")
	}
	if err := os.MkdirAll(in.WorkDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create assembly dir: %w", err)
	}
	if err := os.MkdirAll(in.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}

	// Stage 1 — normalize every clip to the output frame, then compose with
	// the timeline's transitions. External engines deliver varying native
	// resolutions; the xfade chain needs uniform inputs.
	normalized := make([]string, len(in.SceneClips))
	for i, clip := range in.SceneClips {
		fitted := filepath.Join(in.WorkDir, fmt.Sprintf("00_fit_%02d.mp4", i))
		if err := a.media.ScaleCrop(ctx, clip, fitted, a.output.Width, a.output.Height); err != nil {
			return nil, fmt.Errorf("clip normalization failed: %w", err)
		}
		normalized[i] = fitted
	}

	composed := filepath.Join(in.WorkDir, "01_composed.mp4")
	if err := a.media.Concat(ctx, normalized, transitionSpecs(in.Timeline), composed, a.output.Width, a.output.Height, a.output.FPS); err != nil {
		return nil, fmt.Errorf("scene composition failed: %w", err)
	}
	current := composed

	// Stage 2 — burn styled captions.
	subtitlePath := ""
	if len(in.Timeline.Tracks.Captions) > 0 {
		style := caption.ResolveStyle(in.PresetID, in.BrandSafe)
		assPath := filepath.Join(in.WorkDir, "captions.ass")
		if err := caption.WriteASS(in.Timeline.Tracks.Captions, style, assPath); err != nil {
			return nil, fmt.Errorf("caption generation failed: %w", err)
		}
		burned := filepath.Join(in.WorkDir, "02_captioned.mp4")
		if err := a.media.BurnCaptions(ctx, current, assPath, burned); err != nil {
			return nil, fmt.Errorf("caption burn failed: %w", err)
		}
		current = burned

		subtitlePath = filepath.Join(in.OutputDir, "captions.srt")
		if err := caption.WriteSRT(in.Timeline.Tracks.Captions, subtitlePath); err != nil {
			log.Printf("[assembler] SRT export failed, continuing without: %v", err)
			subtitlePath = ""
		}
	}

	// Stage 3 — brand logo overlay.
	if in.BrandSafe && in.LogoPath != "" {
		overlaid := filepath.Join(in.WorkDir, "03_logo.mp4")
		if err := a.media.OverlayImage(ctx, current, in.LogoPath, overlaid, "top-right", logoScale, logoOpacity); err != nil {
			return nil, fmt.Errorf("logo overlay failed: %w", err)
		}
		current = overlaid
	}

	// Stage 4 — audio mix, normalize, mux.
	withAudio, err := a.audio.MixAndMaster(ctx, current, in.VoicePath, in.MusicPath, in.DuckRegions, in.Timeline.TotalDuration, in.WorkDir)
	if err != nil {
		return nil, fmt.Errorf("audio assembly failed: %w", err)
	}
	staged := filepath.Join(in.WorkDir, "04_audio.mp4")
	if err := os.Rename(withAudio, staged); err != nil {
		return nil, fmt.Errorf("failed to stage audio output: %w", err)
	}
	current = staged

	// Stage 5 — final encode to the configured output profile.
	final := filepath.Join(in.OutputDir, "output.mp4")
	if err := a.media.FinalEncode(ctx, current, final, a.output.Width, a.output.Height, a.output.FPS, a.output.MaxBitrate); err != nil {
		return nil, fmt.Errorf("final encode failed: %w", err)
	}

	// Stage 6 — thumbnail.
	thumbnail := filepath.Join(in.OutputDir, "thumbnail.jpg")
	if err := a.media.Thumbnail(ctx, final, thumbnail, thumbnailAtSec); err != nil {
		return nil, fmt.Errorf("thumbnail extraction failed: %w", err)
	}

	return &Output{VideoPath: final, ThumbnailPath: thumbnail, SubtitlePath: subtitlePath}, nil
}

// transitionSpecs projects the timeline entries' transitions into the concat
// primitive's per-pair specs: a crossfade of the transition duration, or the
// 1ms hard-cut stand-in for CUT.
func transitionSpecs(tl *renderspec.Timeline) []media.TransitionSpec {
	if len(tl.Timeline) < 2 {
		return nil
	}
	specs := make([]media.TransitionSpec, 0, len(tl.Timeline)-1)
	for i := 0; i < len(tl.Timeline)-1; i++ {
		e := tl.Timeline[i]
		if e.Transition == nil || *e.Transition == renderspec.TransitionCut {
			specs = append(specs, media.TransitionSpec{Kind: "cut", DurationMs: hardCutMs})
			continue
		}
		durationMs := tl.Timeline[i].End - tl.Timeline[i+1].Start
		if durationMs <= 0 {
			durationMs = hardCutMs
		}
		specs = append(specs, media.TransitionSpec{Kind: string(*e.Transition), DurationMs: durationMs})
	}
	return specs
}

// TemplateFallback writes a colored-background video of the target duration
// with a generic message — the guaranteed output for a fatally failed
// assembly.
func (a *Assembler) TemplateFallback(ctx context.Context, outputDir string, totalDurationMs int) (*Output, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}
	final := filepath.Join(outputDir, "output.mp4")
	if err := a.media.ColorBackgroundText(ctx, final, "Your video is being regenerated", "0x0a1428", 48, a.output.Width, a.output.Height, a.output.FPS, totalDurationMs); err != nil {
		return nil, fmt.Errorf("template fallback render failed: %w", err)
	}

	thumbnail := filepath.Join(outputDir, "thumbnail.jpg")
	if err := a.media.Thumbnail(ctx, final, thumbnail, thumbnailAtSec); err != nil {
		log.Printf("[assembler] template thumbnail failed, continuing without: %v", err)
		thumbnail = ""
	}
	return &Output{VideoPath: final, ThumbnailPath: thumbnail}, nil
}
