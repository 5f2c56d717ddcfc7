package media

import (
	"context"
	"fmt"
	"strconv"

	"github.com/amsoltis/scenerender/internal/apperrors"
	ffprobe "gopkg.in/vansante/go-ffprobe.v2"
)

// ProbeResult is the subset of a structured ffprobe report the pipeline
// needs: duration and the first video stream's codec/dimensions.
type ProbeResult struct {
	DurationMs int
	Width      int
	Height     int
	VideoCodec string
	HasVideo   bool
	SizeBytes  int64
}

// Probe reads duration and the first video stream's codec/width/height via
// go-ffprobe.v2. The clip validator needs frame size, so the structured
// stream report matters here, not just format duration.
func (f *Facade) Probe(ctx context.Context, path string) (*ProbeResult, error) {
	data, err := ffprobe.ProbeURL(ctx, path)
	if err != nil {
		return nil, &apperrors.MediaError{Op: "probe", ExitErr: err}
	}

	result := &ProbeResult{
		DurationMs: int(data.Format.DurationSeconds * 1000),
	}
	if sz, err := strconv.ParseInt(data.Format.Size, 10, 64); err == nil {
		result.SizeBytes = sz
	}

	if stream := data.FirstVideoStream(); stream != nil {
		result.HasVideo = true
		result.Width = stream.Width
		result.Height = stream.Height
		result.VideoCodec = stream.CodecName
	}

	return result, nil
}

// AudioDuration returns the duration of an audio file in milliseconds.
func (f *Facade) AudioDuration(ctx context.Context, path string) (int, error) {
	p, err := f.Probe(ctx, path)
	if err != nil {
		return 0, fmt.Errorf("audio duration probe failed: %w", err)
	}
	return p.DurationMs, nil
}

// VideoDuration returns the duration of a video file in milliseconds.
func (f *Facade) VideoDuration(ctx context.Context, path string) (int, error) {
	p, err := f.Probe(ctx, path)
	if err != nil {
		return 0, fmt.Errorf("video duration probe failed: %w", err)
	}
	return p.DurationMs, nil
}
