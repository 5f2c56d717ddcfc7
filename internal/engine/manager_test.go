package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/amsoltis/scenerender/internal/apperrors"
	"github.com/amsoltis/scenerender/internal/config"
	"github.com/amsoltis/scenerender/internal/media"
	"github.com/amsoltis/scenerender/internal/renderspec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAdapter returns scripted results and counts calls.
type fakeAdapter struct {
	name      string
	results   []*Result
	calls     atomic.Int32
	maxDur    int
	imageIn   bool
	writeClip bool
	dir       string
}

func (f *fakeAdapter) Name() string                          { return f.name }
func (f *fakeAdapter) MaxDuration() int                      { return f.maxDur }
func (f *fakeAdapter) SupportsImageInput() bool              { return f.imageIn }
func (f *fakeAdapter) HealthCheck(ctx context.Context) error { return nil }

func (f *fakeAdapter) Generate(ctx context.Context, req GenerateRequest) *Result {
	n := int(f.calls.Add(1)) - 1
	var res *Result
	if n < len(f.results) {
		res = f.results[n]
	} else {
		res = f.results[len(f.results)-1]
	}
	if res.Success && f.writeClip {
		path := filepath.Join(f.dir, fmt.Sprintf("scene_%d_%s.mp4", req.SceneID, f.name))
		os.WriteFile(path, []byte("clip-bytes"), 0644)
		out := *res
		out.ClipPath = path
		return &out
	}
	return res
}

// fakeProber reports a fixed probe result for every path.
type fakeProber struct {
	result media.ProbeResult
	err    error
}

func (f *fakeProber) Probe(ctx context.Context, path string) (*media.ProbeResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	r := f.result
	return &r, nil
}

func goodProber(durationMs int) *fakeProber {
	return &fakeProber{result: media.ProbeResult{
		DurationMs: durationMs,
		Width:      1080,
		Height:     1920,
		HasVideo:   true,
	}}
}

func successAdapter(name, dir string) *fakeAdapter {
	return &fakeAdapter{
		name:      name,
		maxDur:    10,
		writeClip: true,
		dir:       dir,
		results:   []*Result{{Success: true, Engine: name}},
	}
}

func failingAdapter(name string, kind apperrors.EngineErrorKind) *fakeAdapter {
	return &fakeAdapter{
		name:    name,
		maxDur:  10,
		results: []*Result{{Engine: name, ErrorCode: kind, ErrorMessage: "scripted failure"}},
	}
}

func newTestManager(adapters map[string]Adapter, prober Prober, fanOut int) *Manager {
	san := testSanitizer()
	sel := NewSelector(san, nil, EngineRunway)
	val := NewValidator(prober)
	tracker := NewRotationTracker(config.EngineRotationConfig{})
	return NewManager(adapters, []string{EngineRunway, EnginePika, EngineLuma}, sel, san, val, tracker, fanOut)
}

func sceneTask(id int, description, dir string) SceneTask {
	task := SceneTask{
		Scene:     videoScene(description, nil),
		OutputDir: dir,
	}
	task.Scene.ID = id
	return task
}

func TestRenderScenesAllExternalUnavailableFallsBackToLocal(t *testing.T) {
	dir := t.TempDir()
	adapters := map[string]Adapter{
		EngineLocal: successAdapter(EngineLocal, dir),
	}
	m := newTestManager(adapters, goodProber(5000), 3)

	tasks := []SceneTask{sceneTask(1, "first scene", dir), sceneTask(2, "second scene", dir), sceneTask(3, "third scene", dir)}
	for i := range tasks {
		tasks[i].Scene.ID = i + 1
	}

	results := m.RenderScenes(context.Background(), tasks, nil)
	require.Len(t, results, 3)
	for i, r := range results {
		assert.True(t, r.Success, "scene %d", i+1)
		assert.Equal(t, EngineLocal, r.EngineUsed)
		assert.True(t, r.FallbackUsed)
		assert.FileExists(t, r.ClipPath)
	}
}

func TestRenderScenesValidationRescue(t *testing.T) {
	dir := t.TempDir()
	// Runway produces a clip, but the probe reports 400x800 — the validator
	// rejects it and the chain continues to local.
	badProber := &fakeProber{result: media.ProbeResult{DurationMs: 5000, Width: 400, Height: 800, HasVideo: true}}
	adapters := map[string]Adapter{
		EngineRunway: successAdapter(EngineRunway, dir),
		EngineLocal:  successAdapter(EngineLocal, dir),
	}
	m := newTestManager(adapters, badProber, 1)

	results := m.RenderScenes(context.Background(), []SceneTask{sceneTask(1, "a realistic shot", dir)}, nil)
	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
	assert.Equal(t, EngineLocal, results[0].EngineUsed)
	assert.Contains(t, results[0].FallbackChain, EngineRunway)
}

func TestRenderScenesModerationRephraseRetry(t *testing.T) {
	dir := t.TempDir()
	runway := &fakeAdapter{
		name:      EngineRunway,
		maxDur:    10,
		writeClip: true,
		dir:       dir,
		results: []*Result{
			{Engine: EngineRunway, ModerationFlagged: true, ErrorCode: apperrors.EngineErrModerationRejected},
			{Success: true, Engine: EngineRunway},
		},
	}
	adapters := map[string]Adapter{
		EngineRunway: runway,
		EngineLocal:  successAdapter(EngineLocal, dir),
	}
	m := newTestManager(adapters, goodProber(5000), 1)

	results := m.RenderScenes(context.Background(), []SceneTask{sceneTask(1, "a realistic fight scene", dir)}, nil)
	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
	assert.Equal(t, EngineRunway, results[0].EngineUsed)
	assert.False(t, results[0].FallbackUsed)
	assert.Equal(t, int32(2), runway.calls.Load())
}

func TestRenderScenesAlternateEngines(t *testing.T) {
	dir := t.TempDir()
	adapters := map[string]Adapter{
		EngineRunway: failingAdapter(EngineRunway, apperrors.EngineErrAPIError),
		EnginePika:   successAdapter(EnginePika, dir),
		EngineLocal:  successAdapter(EngineLocal, dir),
	}
	m := newTestManager(adapters, goodProber(5000), 1)

	results := m.RenderScenes(context.Background(), []SceneTask{sceneTask(1, "a realistic shot", dir)}, nil)
	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
	assert.Equal(t, EnginePika, results[0].EngineUsed)
	assert.True(t, results[0].FallbackUsed)
	assert.Equal(t, []string{EngineRunway, EnginePika}, results[0].FallbackChain)
}

func TestRenderScenesPreservesOrder(t *testing.T) {
	dir := t.TempDir()
	adapters := map[string]Adapter{EngineLocal: successAdapter(EngineLocal, dir)}
	m := newTestManager(adapters, goodProber(5000), 2)

	tasks := make([]SceneTask, 6)
	for i := range tasks {
		tasks[i] = sceneTask(i+1, fmt.Sprintf("scene %d", i+1), dir)
		tasks[i].Scene.ID = i + 1
	}

	results := m.RenderScenes(context.Background(), tasks, nil)
	require.Len(t, results, 6)
	for i, r := range results {
		assert.Equal(t, i+1, r.SceneID)
	}
}

func TestRenderScenesProgressChannel(t *testing.T) {
	dir := t.TempDir()
	adapters := map[string]Adapter{EngineLocal: successAdapter(EngineLocal, dir)}
	m := newTestManager(adapters, goodProber(5000), 3)

	tasks := []SceneTask{sceneTask(1, "one", dir), sceneTask(2, "two", dir)}
	tasks[1].Scene.ID = 2

	progress := make(chan SceneRenderResult, len(tasks))
	m.RenderScenes(context.Background(), tasks, progress)
	close(progress)

	seen := map[int]bool{}
	for r := range progress {
		seen[r.SceneID] = true
		assert.True(t, r.Success)
	}
	assert.Len(t, seen, 2)
}

func TestRenderScenesImageSceneGoesStraightToLocal(t *testing.T) {
	dir := t.TempDir()
	runway := successAdapter(EngineRunway, dir)
	adapters := map[string]Adapter{
		EngineRunway: runway,
		EngineLocal:  successAdapter(EngineLocal, dir),
	}
	m := newTestManager(adapters, goodProber(5000), 1)

	task := SceneTask{
		Scene: renderspec.Scene{
			ID: 1, Description: "an image scene", DurationMs: 5000,
			Media: renderspec.NewImageMedia(strPtr("uploads/u/a.jpg")),
		},
		ImagePath: filepath.Join(dir, "a.jpg"),
		OutputDir: dir,
	}
	results := m.RenderScenes(context.Background(), []SceneTask{task}, nil)
	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
	assert.Equal(t, EngineLocal, results[0].EngineUsed)
	assert.False(t, results[0].FallbackUsed)
	assert.Equal(t, int32(0), runway.calls.Load())
}

func TestValidatorChecks(t *testing.T) {
	dir := t.TempDir()
	clip := filepath.Join(dir, "clip.mp4")
	require.NoError(t, os.WriteFile(clip, []byte("data"), 0644))

	v := NewValidator(goodProber(5000))
	res := v.Validate(context.Background(), clip, 5000)
	assert.True(t, res.Valid)

	// Duration outside ±20%.
	res = NewValidator(goodProber(9000)).Validate(context.Background(), clip, 5000)
	assert.False(t, res.Valid)

	// No video stream.
	res = NewValidator(&fakeProber{result: media.ProbeResult{DurationMs: 5000}}).Validate(context.Background(), clip, 5000)
	assert.False(t, res.Valid)

	// Missing file.
	res = v.Validate(context.Background(), filepath.Join(dir, "missing.mp4"), 5000)
	assert.False(t, res.Valid)
}

func TestRotationTracker(t *testing.T) {
	tr := NewRotationTracker(config.EngineRotationConfig{
		Enabled:          true,
		FailureThreshold: 0.5,
		WindowSeconds:    300,
		MinAttempts:      3,
	})

	tr.Record(EngineRunway, false)
	tr.Record(EngineRunway, false)
	// Below the sample minimum: still healthy.
	assert.False(t, tr.Unhealthy(EngineRunway))

	tr.Record(EngineRunway, false)
	assert.True(t, tr.Unhealthy(EngineRunway))

	tr.Record(EnginePika, true)
	assert.Equal(t, EnginePika, tr.Substitute(EngineRunway, []string{EngineRunway, EnginePika}))

	rate, samples := tr.FailureRate(EngineRunway)
	assert.Equal(t, 3, samples)
	assert.InDelta(t, 1.0, rate, 0.001)
}

func TestRotationTrackerDisabled(t *testing.T) {
	tr := NewRotationTracker(config.EngineRotationConfig{Enabled: false})
	tr.Record(EngineRunway, false)
	tr.Record(EngineRunway, false)
	tr.Record(EngineRunway, false)
	assert.False(t, tr.Unhealthy(EngineRunway))
	assert.Equal(t, EngineRunway, tr.Substitute(EngineRunway, []string{EnginePika}))
}
