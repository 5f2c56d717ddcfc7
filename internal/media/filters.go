package media

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// EscapeFilterPath escapes special characters in a file path for FFmpeg
// filter syntax — filter strings treat colons, backslashes and single
// quotes specially.
func EscapeFilterPath(path string) string {
	path = strings.ReplaceAll(path, "\\", "\\\\")
	path = strings.ReplaceAll(path, ":", "\\:")
	path = strings.ReplaceAll(path, "'", "'\\''")
	return path
}

// ScaleCrop fits a video/image to exactly W×H, scaling to cover and
// center-cropping the overflow.
func (f *Facade) ScaleCrop(ctx context.Context, inputPath, outputPath string, width, height int) error {
	vf := fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d",
		width, height, width, height,
	)
	args := []string{"-i", inputPath, "-vf", vf, "-c:a", "copy", "-y", outputPath}
	return runFFmpeg(ctx, "scale_crop", args)
}

// ZoompanVideo runs a single image through a zoompan expression, producing
// a video of `frames` length at w×h@fps. The z/x/y expressions are built by
// the local renderer per effect; this primitive only shells out.
func (f *Facade) ZoompanVideo(ctx context.Context, imagePath, outputPath string, zExpr, xExpr, yExpr string, frames, width, height, fps int) error {
	vf := fmt.Sprintf(
		"zoompan=z='%s':x='%s':y='%s':d=%d:s=%dx%d:fps=%d",
		zExpr, xExpr, yExpr, frames, width, height, fps,
	)
	args := []string{
		"-i", imagePath,
		"-vf", vf,
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-y",
		outputPath,
	}
	return runFFmpeg(ctx, "zoompan_video", args)
}

// ColorBackgroundText renders a solid-color video with centered drawtext,
// the local renderer's no-image fallback.
func (f *Facade) ColorBackgroundText(ctx context.Context, outputPath, text, bgColor string, fontSize, width, height, fps, durationMs int) error {
	durationSec := float64(durationMs) / 1000.0
	safeText := stripDrawtextUnsafe(text)

	drawtext := fmt.Sprintf(
		"drawtext=text='%s':fontcolor=white:fontsize=%d:x=(w-text_w)/2:y=(h-text_h)/2",
		safeText, fontSize,
	)

	args := []string{
		"-f", "lavfi",
		"-i", fmt.Sprintf("color=c=%s:s=%dx%d:d=%.3f:r=%d", bgColor, width, height, durationSec, fps),
		"-vf", drawtext,
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-y",
		outputPath,
	}
	return runFFmpeg(ctx, "color_background_text", args)
}

// stripDrawtextUnsafe removes quote and colon characters so arbitrary scene
// text is safe inside a drawtext filter expression.
func stripDrawtextUnsafe(text string) string {
	r := strings.NewReplacer(`'`, "", `"`, "", ":", "")
	return r.Replace(text)
}

// OverlayImage composites a PNG (with alpha) onto a video at a normalized
// position and scale.
func (f *Facade) OverlayImage(ctx context.Context, videoPath, imagePath, outputPath, position string, scale, opacity float64) error {
	x, y := overlayPosition(position)
	overlayFilter := fmt.Sprintf(
		"[1:v]scale=iw*%.3f:ih*%.3f,format=rgba,colorchannelmixer=aa=%.3f[ovl];[0:v][ovl]overlay=%s:%s",
		scale, scale, opacity, x, y,
	)
	args := []string{
		"-i", videoPath,
		"-i", imagePath,
		"-filter_complex", overlayFilter,
		"-c:a", "copy",
		"-y",
		outputPath,
	}
	return runFFmpeg(ctx, "overlay_image", args)
}

func overlayPosition(position string) (x, y string) {
	switch position {
	case "top-left":
		return "20", "20"
	case "top-right":
		return "W-w-20", "20"
	case "bottom-left":
		return "20", "H-h-20"
	case "bottom-right", "":
		return "W-w-20", "H-h-20"
	case "center":
		return "(W-w)/2", "(H-h)/2"
	default:
		return "W-w-20", "H-h-20"
	}
}

// BurnCaptions burns an ASS or SRT subtitle file into a video.
func (f *Facade) BurnCaptions(ctx context.Context, videoPath, subtitlePath, outputPath string) error {
	vf := fmt.Sprintf("ass='%s'", EscapeFilterPath(subtitlePath))
	if strings.HasSuffix(strings.ToLower(subtitlePath), ".srt") {
		vf = fmt.Sprintf("subtitles='%s'", EscapeFilterPath(subtitlePath))
	}
	args := []string{
		"-i", videoPath,
		"-vf", vf,
		"-c:a", "copy",
		"-y",
		outputPath,
	}
	return runFFmpeg(ctx, "burn_captions", args)
}

// TransitionSpec is one per-pair transition between adjacent concat inputs.
type TransitionSpec struct {
	Kind       string // xfade transition name, "" / "cut" for a hard cut
	DurationMs int
}

// Concat combines clips with per-pair transitions. A pure hard-cut chain
// (every TransitionSpec has Kind "" or "cut", or DurationMs <= 0) uses the fast concat
// demuxer (stream copy); any crossfade uses an xfade filter_complex chain.
func (f *Facade) Concat(ctx context.Context, clipPaths []string, transitions []TransitionSpec, outputPath string, width, height, fps int) error {
	if len(clipPaths) == 0 {
		return fmt.Errorf("no clips to concatenate")
	}

	allCuts := true
	for _, t := range transitions {
		if t.Kind != "" && t.Kind != "cut" && t.DurationMs > 0 {
			allCuts = false
			break
		}
	}

	if allCuts || len(clipPaths) == 1 {
		return f.concatDemuxer(ctx, clipPaths, outputPath)
	}
	return f.concatXfade(ctx, clipPaths, transitions, outputPath, width, height, fps)
}

func (f *Facade) concatDemuxer(ctx context.Context, clipPaths []string, outputPath string) error {
	listPath := f.TempFile("concat_list.txt")
	lines := make([]string, 0, len(clipPaths))
	for _, p := range clipPaths {
		lines = append(lines, fmt.Sprintf("file '%s'", p))
	}
	if err := os.WriteFile(listPath, []byte(strings.Join(lines, "\n")+"\n"), 0644); err != nil {
		return fmt.Errorf("failed to write concat list: %w", err)
	}
	defer os.Remove(listPath)

	args := []string{
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		"-y",
		outputPath,
	}
	return runFFmpeg(ctx, "concat_demuxer", args)
}

// concatXfade builds a chained xfade filter_complex across every clip. Each
// crossfade starts its transition's duration before the end of the chain
// built so far (probed clip lengths minus earlier overlaps), matching the
// timeline orchestrator's overlap bookkeeping.
func (f *Facade) concatXfade(ctx context.Context, clipPaths []string, transitions []TransitionSpec, outputPath string, width, height, fps int) error {
	args := []string{}
	for _, p := range clipPaths {
		args = append(args, "-i", p)
	}

	var filterParts []string
	offset := 0.0
	prevLabel := "0:v"
	for i := 1; i < len(clipPaths); i++ {
		t := TransitionSpec{Kind: "fade", DurationMs: 500}
		if i-1 < len(transitions) {
			t = transitions[i-1]
		}
		xfadeKind := xfadeTransitionName(t.Kind)
		durationSec := float64(t.DurationMs) / 1000.0
		if durationSec <= 0 {
			durationSec = 0.001
		}
		prevMs, err := f.VideoDuration(ctx, clipPaths[i-1])
		if err != nil {
			return err
		}
		offset += float64(prevMs)/1000.0 - durationSec
		if offset < 0 {
			offset = 0
		}

		outLabel := fmt.Sprintf("v%d", i)
		filterParts = append(filterParts, fmt.Sprintf(
			"[%s][%d:v]xfade=transition=%s:duration=%.3f:offset=%.3f[%s]",
			prevLabel, i, xfadeKind, durationSec, offset, outLabel,
		))
		prevLabel = outLabel
	}

	filterComplex := strings.Join(filterParts, ";")
	args = append(args,
		"-filter_complex", filterComplex,
		"-map", "["+prevLabel+"]",
		"-s", fmt.Sprintf("%dx%d", width, height),
		"-r", fmt.Sprintf("%d", fps),
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-y",
		outputPath,
	)
	return runFFmpeg(ctx, "concat_xfade", args)
}

func xfadeTransitionName(kind string) string {
	switch kind {
	case "FADE", "fade":
		return "fade"
	case "FADE_BLACK", "fade_black":
		return "fadeblack"
	case "SWIPE_LEFT", "swipe_left":
		return "wipeleft"
	case "SWIPE_RIGHT", "swipe_right":
		return "wiperight"
	default:
		return "fade"
	}
}

// MixOptions configures the audio mix stage.
type MixOptions struct {
	VoicePath         string
	MusicPath         string
	VoiceVolumeDB     float64
	MusicVolumeDB     float64
	DuckRegions       []DuckRegionSec
	DuckAttenuationDB float64 // music attenuation while voice is active
	DuckFadeSec       float64 // linear ramp on each side of a duck region
	TargetDuration    float64 // seconds
}

type DuckRegionSec struct {
	Start float64
	End   float64
}

// MixAudio combines voice and ducked music, applying a brick-wall limiter
// so the combined signal never exceeds -1 dBFS. Each duck region is a
// per-frame `volume` expression ramping linearly to the attenuation over
// DuckFadeSec at both edges, so the music never steps audibly.
func (f *Facade) MixAudio(ctx context.Context, outputPath string, opts MixOptions) error {
	inputs := []string{}
	filterInputs := []string{}
	idx := 0

	if opts.VoicePath != "" {
		inputs = append(inputs, "-i", opts.VoicePath)
		filterInputs = append(filterInputs, fmt.Sprintf("[%d:a]volume=%.2fdB[voice]", idx, opts.VoiceVolumeDB))
		idx++
	}
	if opts.MusicPath != "" {
		inputs = append(inputs, "-stream_loop", "-1", "-i", opts.MusicPath)
		musicChain := fmt.Sprintf("[%d:a]volume=%.2fdB", idx, opts.MusicVolumeDB)
		for _, d := range opts.DuckRegions {
			musicChain += "," + duckVolumeFilter(d, opts.DuckAttenuationDB, opts.DuckFadeSec)
		}
		musicChain += "[music]"
		filterInputs = append(filterInputs, musicChain)
		idx++
	}

	var mixLabel string
	switch {
	case opts.VoicePath != "" && opts.MusicPath != "":
		filterInputs = append(filterInputs, "[voice][music]amix=inputs=2:duration=longest,alimiter=limit=0.891[aout]")
		mixLabel = "aout"
	case opts.VoicePath != "":
		filterInputs = append(filterInputs, "[voice]alimiter=limit=0.891[aout]")
		mixLabel = "aout"
	case opts.MusicPath != "":
		filterInputs = append(filterInputs, "[music]alimiter=limit=0.891[aout]")
		mixLabel = "aout"
	default:
		return fmt.Errorf("mix audio: neither voice nor music provided")
	}

	args := append([]string{}, inputs...)
	args = append(args,
		"-filter_complex", strings.Join(filterInputs, ";"),
		"-map", "["+mixLabel+"]",
		"-t", fmt.Sprintf("%.3f", opts.TargetDuration),
		"-c:a", "pcm_s16le",
		"-y",
		outputPath,
	)
	return runFFmpeg(ctx, "mix_audio", args)
}

// duckVolumeFilter builds one region's attenuation: the gain interpolates
// 0 → attenuationDB over fadeSec after the region opens and back to 0 over
// the final fadeSec, holding attenuationDB in between. Regions shorter than
// two fades ramp triangularly — still continuous, never a step.
func duckVolumeFilter(d DuckRegionSec, attenuationDB, fadeSec float64) string {
	if attenuationDB == 0 {
		attenuationDB = -12.0
	}
	if fadeSec <= 0 {
		fadeSec = 0.2
	}
	depth := fmt.Sprintf("min(1,min((t-%.3f)/%.3f,(%.3f-t)/%.3f))", d.Start, fadeSec, d.End, fadeSec)
	return fmt.Sprintf(
		"volume=enable='between(t,%.3f,%.3f)':volume='pow(10,%.2f*%s/20)':eval=frame",
		d.Start, d.End, attenuationDB, depth,
	)
}

// LoudnessNormalize applies EBU R128 loudnorm to a target LUFS with a
// true-peak ceiling.
func (f *Facade) LoudnessNormalize(ctx context.Context, inputPath, outputPath string, targetLUFS, truePeakDB float64) error {
	vf := fmt.Sprintf("loudnorm=I=%.1f:TP=%.1f:LRA=11", targetLUFS, truePeakDB)
	args := []string{
		"-i", inputPath,
		"-af", vf,
		"-c:a", "aac",
		"-b:a", "192k",
		"-y",
		outputPath,
	}
	return runFFmpeg(ctx, "loudness_normalize", args)
}

// Mux replaces any existing audio stream on videoPath with audioPath.
func (f *Facade) Mux(ctx context.Context, videoPath, audioPath, outputPath string) error {
	args := []string{
		"-i", videoPath,
		"-i", audioPath,
		"-map", "0:v",
		"-map", "1:a",
		"-c:v", "copy",
		"-c:a", "aac",
		"-b:a", "192k",
		"-shortest",
		"-y",
		outputPath,
	}
	return runFFmpeg(ctx, "mux", args)
}

// Thumbnail extracts a single-frame JPEG at the given timestamp.
func (f *Facade) Thumbnail(ctx context.Context, videoPath, outputPath string, atSec float64) error {
	args := []string{
		"-ss", fmt.Sprintf("%.3f", atSec),
		"-i", videoPath,
		"-frames:v", "1",
		"-q:v", "2",
		"-y",
		outputPath,
	}
	return runFFmpeg(ctx, "thumbnail", args)
}

// FinalEncode re-encodes to the configured output profile (H.264/yuv420p,
// AAC 192k, faststart).
func (f *Facade) FinalEncode(ctx context.Context, inputPath, outputPath string, width, height, fps int, maxBitrate string) error {
	args := []string{
		"-i", inputPath,
		"-s", fmt.Sprintf("%dx%d", width, height),
		"-r", fmt.Sprintf("%d", fps),
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-maxrate", maxBitrate,
		"-bufsize", maxBitrate,
		"-c:a", "aac",
		"-b:a", "192k",
		"-movflags", "+faststart",
		"-y",
		outputPath,
	}
	return runFFmpeg(ctx, "final_encode", args)
}

// SilenceTrack synthesizes a silent stereo track of the given duration.
func (f *Facade) SilenceTrack(ctx context.Context, outputPath string, durationMs int) error {
	durationSec := float64(durationMs) / 1000.0
	args := []string{
		"-f", "lavfi",
		"-i", fmt.Sprintf("anullsrc=channel_layout=stereo:sample_rate=44100:d=%.3f", durationSec),
		"-y",
		outputPath,
	}
	return runFFmpeg(ctx, "silence_track", args)
}

// PrependSilence adds a silence buffer at the start of an audio file so
// the first word isn't clipped and scenes get a natural pause.
func (f *Facade) PrependSilence(ctx context.Context, inputAudioPath, outputAudioPath string, silenceMs int) error {
	delayFilter := fmt.Sprintf("adelay=%d|%d", silenceMs, silenceMs)
	args := []string{
		"-i", inputAudioPath,
		"-af", delayFilter,
		"-y",
		outputAudioPath,
	}
	return runFFmpeg(ctx, "prepend_silence", args)
}

// TrimSilence trims leading/trailing silence below the given dBFS
// threshold using the silenceremove filter, part of voice ingest
// normalization.
func (f *Facade) TrimSilence(ctx context.Context, inputPath, outputPath string, thresholdDB float64) error {
	af := fmt.Sprintf(
		"silenceremove=start_periods=1:start_threshold=%.1fdB:stop_periods=1:stop_threshold=%.1fdB",
		thresholdDB, thresholdDB,
	)
	args := []string{"-i", inputPath, "-af", af, "-ar", "44100", "-ac", "2", "-y", outputPath}
	return runFFmpeg(ctx, "trim_silence", args)
}

// FadeOut applies a linear fade-out over the last `durationMs` of an audio
// file whose total duration is `totalMs`.
func (f *Facade) FadeOut(ctx context.Context, inputPath, outputPath string, totalMs, durationMs int) error {
	startSec := float64(totalMs-durationMs) / 1000.0
	if startSec < 0 {
		startSec = 0
	}
	af := fmt.Sprintf("afade=t=out:st=%.3f:d=%.3f", startSec, float64(durationMs)/1000.0)
	args := []string{"-i", inputPath, "-af", af, "-y", outputPath}
	return runFFmpeg(ctx, "fade_out", args)
}

// LoopAudioToDuration loops (stream_loop) or trims audio to exactly match
// targetMs.
func (f *Facade) LoopAudioToDuration(ctx context.Context, inputPath, outputPath string, targetMs int) error {
	targetSec := float64(targetMs) / 1000.0
	args := []string{
		"-stream_loop", "-1",
		"-i", inputPath,
		"-t", fmt.Sprintf("%.3f", targetSec),
		"-ar", "44100",
		"-ac", "2",
		"-y",
		outputPath,
	}
	return runFFmpeg(ctx, "loop_audio", args)
}
