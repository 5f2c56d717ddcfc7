package engine

import (
	"context"
	"fmt"
	"os"

	"github.com/amsoltis/scenerender/internal/media"
)

const (
	// Produced clips must land within this tolerance of the requested
	// duration; external providers round to whole seconds.
	durationTolerance = 0.20

	minClipWidth  = 720
	minClipHeight = 1280

	maxClipSizeBytes = 200 * 1024 * 1024
)

// ValidationResult reports every check failure for one clip; a clip with an
// empty Errors list is valid.
type ValidationResult struct {
	Valid  bool
	Errors []string
}

// Prober is the slice of the media facade the validator needs.
type Prober interface {
	Probe(ctx context.Context, path string) (*media.ProbeResult, error)
}

// Validator applies the clip acceptance checks to every non-local engine
// result before the fallback chain accepts it.
type Validator struct {
	prober Prober
}

func NewValidator(prober Prober) *Validator {
	return &Validator{prober: prober}
}

// Validate checks existence, probe-ability, presence of a video stream,
// duration tolerance, minimum frame size, and the file-size ceiling.
func (v *Validator) Validate(ctx context.Context, clipPath string, requestedDurationMs int) ValidationResult {
	var errs []string

	info, err := os.Stat(clipPath)
	if err != nil {
		return ValidationResult{Errors: []string{fmt.Sprintf("clip file missing: %v", err)}}
	}
	if info.Size() == 0 {
		return ValidationResult{Errors: []string{"clip file is empty"}}
	}
	if info.Size() > maxClipSizeBytes {
		errs = append(errs, fmt.Sprintf("clip file is %d bytes, exceeding the %d byte limit", info.Size(), maxClipSizeBytes))
	}

	probe, err := v.prober.Probe(ctx, clipPath)
	if err != nil {
		errs = append(errs, fmt.Sprintf("probe failed: %v", err))
		return ValidationResult{Errors: errs}
	}
	if !probe.HasVideo {
		errs = append(errs, "no video stream present")
	}

	if requestedDurationMs > 0 {
		lo := float64(requestedDurationMs) * (1 - durationTolerance)
		hi := float64(requestedDurationMs) * (1 + durationTolerance)
		if d := float64(probe.DurationMs); d < lo || d > hi {
			errs = append(errs, fmt.Sprintf("duration %dms outside ±20%% of requested %dms", probe.DurationMs, requestedDurationMs))
		}
	}

	if probe.HasVideo && (probe.Width < minClipWidth || probe.Height < minClipHeight) {
		errs = append(errs, fmt.Sprintf("frame size %dx%d below minimum %dx%d", probe.Width, probe.Height, minClipWidth, minClipHeight))
	}

	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}
