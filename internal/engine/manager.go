package engine

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/amsoltis/scenerender/internal/apperrors"
	"github.com/amsoltis/scenerender/internal/renderspec"
)

// SceneTask is one scene queued for rendering, with its resolved inputs.
type SceneTask struct {
	Scene     renderspec.Scene
	ImagePath string // local path of the scene's image asset, "" when none
	OutputDir string
	PresetID  string
	BrandSafe bool
}

// Manager owns the per-scene fallback chains and the bounded fan-out.
type Manager struct {
	adapters  map[string]Adapter
	chain     []string // external fallback order, e.g. runway, pika, luma
	selector  *Selector
	sanitizer *Sanitizer
	validator *Validator
	tracker   *RotationTracker
	fanOut    int64
}

// NewManager wires the manager. adapters maps engine name to implementation;
// only engines with configured credentials should be registered, plus the
// local renderer under "local" which must always be present.
func NewManager(adapters map[string]Adapter, chain []string, selector *Selector, sanitizer *Sanitizer, validator *Validator, tracker *RotationTracker, fanOut int) *Manager {
	if fanOut <= 0 {
		fanOut = 3
	}
	if len(chain) == 0 {
		chain = []string{EngineRunway, EnginePika, EngineLuma}
	}
	return &Manager{
		adapters:  adapters,
		chain:     chain,
		selector:  selector,
		sanitizer: sanitizer,
		validator: validator,
		tracker:   tracker,
		fanOut:    int64(fanOut),
	}
}

// RenderScenes runs every task's fallback chain concurrently behind the
// fan-out semaphore. The returned slice preserves task order regardless of
// completion order; each terminal outcome is also published on progress (if
// non-nil) as soon as its chain finishes. A scene's failure never poisons
// the batch — it becomes a failed SceneRenderResult.
func (m *Manager) RenderScenes(ctx context.Context, tasks []SceneTask, progress chan<- SceneRenderResult) []SceneRenderResult {
	results := make([]SceneRenderResult, len(tasks))
	sem := semaphore.NewWeighted(m.fanOut)
	done := make(chan int, len(tasks))

	for i, task := range tasks {
		i, task := i, task
		go func() {
			defer func() { done <- i }()

			if err := sem.Acquire(ctx, 1); err != nil {
				results[i] = SceneRenderResult{
					SceneID: task.Scene.ID,
					Err:     fmt.Errorf("scene %d cancelled before dispatch: %w", task.Scene.ID, err),
				}
				return
			}
			defer sem.Release(1)

			results[i] = m.renderScene(ctx, task)
		}()
	}

	for range tasks {
		i := <-done
		if progress != nil {
			select {
			case progress <- results[i]:
			case <-ctx.Done():
			}
		}
	}
	return results
}

// renderScene walks one scene through the chain: primary engine with one
// moderation-rephrase retry, then the configured alternates, then the local
// renderer.
func (m *Manager) renderScene(ctx context.Context, task SceneTask) SceneRenderResult {
	start := time.Now()
	assign := m.selector.Select(task.Scene, task.PresetID, task.BrandSafe, task.ImagePath)

	if m.tracker != nil && assign.Engine != EngineLocal {
		assign.Engine = m.tracker.Substitute(assign.Engine, m.configuredExternals())
	}

	var tried []string
	finish := func(res *Result, engineName string, fallback bool, err error) SceneRenderResult {
		out := SceneRenderResult{
			SceneID:       task.Scene.ID,
			EngineUsed:    engineName,
			FallbackUsed:  fallback,
			FallbackChain: tried,
			ElapsedMs:     time.Since(start).Milliseconds(),
			Err:           err,
		}
		if res != nil {
			out.Success = res.Success
			out.ClipPath = res.ClipPath
		}
		return out
	}

	if assign.Engine != EngineLocal {
		// Level 1 — primary, with one moderation-rephrase retry.
		if res := m.tryExternal(ctx, assign.Engine, assign, task, &tried); res != nil {
			return finish(res, assign.Engine, false, nil)
		}

		// Level 2 — alternates in configured order, skipping the primary
		// and engines with no registered adapter (no API key).
		for _, alt := range m.chain {
			if alt == assign.Engine {
				continue
			}
			if _, ok := m.adapters[alt]; !ok {
				continue
			}
			if ctx.Err() != nil {
				break
			}
			if res := m.tryExternal(ctx, alt, assign, task, &tried); res != nil {
				return finish(res, alt, true, nil)
			}
		}
	}

	// Level 3 — local renderer, deterministic and always expected to
	// produce a playable clip.
	tried = append(tried, EngineLocal)
	local, ok := m.adapters[EngineLocal]
	if !ok {
		return finish(nil, "", true, fmt.Errorf("scene %d: no local renderer registered", task.Scene.ID))
	}
	res := local.Generate(ctx, GenerateRequest{
		Prompt:          assign.Prompt,
		DurationSeconds: assign.DurationSeconds,
		Width:           1080,
		Height:          1920,
		ImagePath:       assign.ImagePath,
		StyleHints:      assign.StyleHints,
		OutputDir:       task.OutputDir,
		SceneID:         task.Scene.ID,
	})
	if !res.Success {
		return finish(res, EngineLocal, true, &apperrors.EngineError{
			Engine: EngineLocal,
			Kind:   res.ErrorCode,
			Err:    fmt.Errorf("%s", res.ErrorMessage),
		})
	}
	fallback := assign.Engine != EngineLocal
	return finish(res, EngineLocal, fallback, nil)
}

// tryExternal runs one external engine attempt (plus its moderation retry)
// and validates any produced clip. A nil return means the attempt failed
// and the chain should continue.
func (m *Manager) tryExternal(ctx context.Context, engineName string, assign Assignment, task SceneTask, tried *[]string) *Result {
	*tried = append(*tried, engineName)

	adapter, ok := m.adapters[engineName]
	if !ok {
		return nil
	}

	req := GenerateRequest{
		Prompt:          assign.Prompt,
		DurationSeconds: clampDuration(assign.DurationSeconds, adapter.MaxDuration()),
		Width:           1080,
		Height:          1920,
		StyleHints:      assign.StyleHints,
		OutputDir:       task.OutputDir,
		SceneID:         task.Scene.ID,
	}
	if adapter.SupportsImageInput() {
		req.ImagePath = assign.ImagePath
	}

	res := adapter.Generate(ctx, req)
	if res.ModerationFlagged {
		log.Printf("[engine] scene %d: %s flagged moderation, retrying with rephrased prompt", task.Scene.ID, engineName)
		retry := req
		retry.Prompt = m.sanitizer.Rephrase(assign.Prompt)
		res = adapter.Generate(ctx, retry)
	}

	if !res.Success {
		m.record(engineName, false)
		log.Printf("[engine] scene %d: %s failed (%s): %s", task.Scene.ID, engineName, res.ErrorCode, res.ErrorMessage)
		return nil
	}

	validation := m.validator.Validate(ctx, res.ClipPath, task.Scene.DurationMs)
	if !validation.Valid {
		m.record(engineName, false)
		log.Printf("[engine] scene %d: %s clip rejected by validator: %v", task.Scene.ID, engineName, validation.Errors)
		return nil
	}

	m.record(engineName, true)
	return res
}

func (m *Manager) record(engineName string, success bool) {
	if m.tracker != nil {
		m.tracker.Record(engineName, success)
	}
}

// configuredExternals returns the chain filtered to registered adapters.
func (m *Manager) configuredExternals() []string {
	var out []string
	for _, e := range m.chain {
		if _, ok := m.adapters[e]; ok {
			out = append(out, e)
		}
	}
	return out
}

func clampDuration(requested, max int) int {
	if max > 0 && requested > max {
		return max
	}
	if requested < 1 {
		return 1
	}
	return requested
}
