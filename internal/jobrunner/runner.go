// Package jobrunner drives the job state machine: it dequeues job ids,
// walks each job through planning, timeline construction, scene rendering,
// assembly and finalization, resumes interrupted work after a restart, and
// guarantees a playable output via the template fallback when assembly
// fails fatally.
package jobrunner

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/amsoltis/scenerender/internal/apperrors"
	"github.com/amsoltis/scenerender/internal/assembler"
	"github.com/amsoltis/scenerender/internal/audio"
	"github.com/amsoltis/scenerender/internal/engine"
	"github.com/amsoltis/scenerender/internal/queue"
	"github.com/amsoltis/scenerender/internal/renderspec"
	"github.com/amsoltis/scenerender/internal/storage"
	"github.com/amsoltis/scenerender/internal/store"
	"github.com/amsoltis/scenerender/internal/timeline"
)

// Progress percentages pinned to state boundaries. Scene rendering advances
// linearly between renderStartPct and renderEndPct.
const (
	planPct        = 10
	timelinePct    = 20
	renderStartPct = 25
	renderEndPct   = 75
	composePct     = 80
	audioPct       = 90
	finalizePct    = 95
)

// Runner owns one worker pool's job processing.
type Runner struct {
	db        *store.DB
	queue     *queue.Queue
	storage   *storage.Storage
	timeline  *timeline.Orchestrator
	engines   *engine.Manager
	audio     *audio.Manager
	assembler *assembler.Assembler

	musicPath string // default background music, "" = none
	logoPath  string // brand logo for brand-safe jobs, "" = none
}

func New(db *store.DB, q *queue.Queue, stor *storage.Storage, tl *timeline.Orchestrator, engines *engine.Manager, audioMgr *audio.Manager, asm *assembler.Assembler, musicPath, logoPath string) *Runner {
	return &Runner{
		db:        db,
		queue:     q,
		storage:   stor,
		timeline:  tl,
		engines:   engines,
		audio:     audioMgr,
		assembler: asm,
		musicPath: musicPath,
		logoPath:  logoPath,
	}
}

// Start recovers interrupted jobs, then runs `concurrency` dequeue loops
// until the context is cancelled. Each loop processes one job at a time.
func (r *Runner) Start(ctx context.Context, concurrency int) {
	if concurrency < 1 {
		concurrency = 1
	}
	log.Printf("[runner] starting with concurrency %d", concurrency)

	if err := r.RecoverInterrupted(ctx); err != nil {
		log.Printf("[runner] crash recovery scan failed: %v", err)
	}

	for i := 0; i < concurrency; i++ {
		go r.processQueue(ctx)
	}

	<-ctx.Done()
	log.Println("[runner] shutting down...")
}

func (r *Runner) processQueue(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		jobID, err := r.queue.Pop(ctx, 5*time.Second)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("[runner] dequeue error: %v", err)
			time.Sleep(time.Second)
			continue
		}
		if jobID == uuid.Nil {
			continue
		}

		if err := r.Run(ctx, jobID); err != nil {
			log.Printf("[runner] job %s failed: %v", jobID, err)
		}
	}
}

// RecoverInterrupted re-enqueues every job left in a non-terminal state by
// a previous process. The state machine itself skips completed work, so
// requeueing is sufficient to resume from the earliest incomplete scene.
func (r *Runner) RecoverInterrupted(ctx context.Context) error {
	jobs, err := r.db.NonTerminalJobs(ctx)
	if err != nil {
		return fmt.Errorf("failed to scan for interrupted jobs: %w", err)
	}
	for _, job := range jobs {
		log.Printf("[runner] recovering interrupted job %s (status %s)", job.ID, job.Status)
		if err := r.queue.Enqueue(ctx, job.ID); err != nil {
			return fmt.Errorf("failed to requeue job %s: %w", job.ID, err)
		}
	}
	return nil
}

// Run drives one job from its current state to a terminal state. A fatal
// assembly error still produces a template output. A failure while loading
// the plan, building the timeline or rendering the scenes (or of the
// template fallback itself) marks the job FAILED without writing an artifact.
func (r *Runner) Run(ctx context.Context, jobID uuid.UUID) error {
	job, err := r.db.GetJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("failed to load job: %w", err)
	}
	if job.Status.IsTerminal() {
		log.Printf("[runner] job %s already %s, skipping", jobID, job.Status)
		return nil
	}

	log.Printf("[runner] processing job %s from status %s", jobID, job.Status)

	graph, err := r.plan(ctx, job)
	if err != nil {
		r.fail(ctx, job, err)
		return err
	}

	tl, err := r.buildTimeline(ctx, job, graph)
	if err != nil {
		r.fail(ctx, job, err)
		return err
	}

	clips, err := r.renderScenes(ctx, job, graph, tl)
	if err != nil {
		r.fail(ctx, job, err)
		return err
	}

	if err := r.assemble(ctx, job, graph, tl, clips); err != nil {
		// Fatal assembly failure: deliver the template fallback so the job
		// still reaches DONE with a playable artifact.
		log.Printf("[runner] job %s assembly failed, delivering template output: %v", jobID, err)
		if tmplErr := r.deliverTemplate(ctx, job, tl, err); tmplErr != nil {
			r.fail(ctx, job, fmt.Errorf("assembly failed (%v) and template fallback failed: %w", err, tmplErr))
			return tmplErr
		}
	}

	r.pruneIntermediates(job.ID)
	log.Printf("[runner] job %s done", jobID)
	return nil
}

// plan loads the Scene Graph persisted at job acceptance and ensures scene
// rows exist.
func (r *Runner) plan(ctx context.Context, job *store.Job) (*renderspec.SceneGraph, error) {
	r.transition(ctx, job, store.JobPlanningScenes, planPct)

	if job.SceneGraphJSON == nil || *job.SceneGraphJSON == "" {
		return nil, &apperrors.PlanningError{Reason: "job has no scene graph"}
	}
	graph, err := renderspec.SceneGraphFromJSON([]byte(*job.SceneGraphJSON))
	if err != nil {
		return nil, err
	}

	// Scene rows are created on first pass and found on resume.
	existing, err := r.db.ScenesForJob(ctx, job.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load scene rows: %w", err)
	}
	if len(existing) == 0 {
		for i, s := range graph.Scenes {
			row := &store.Scene{
				SceneID:     s.ID,
				JobID:       job.ID,
				Index:       i,
				Description: s.Description,
				DurationMs:  s.DurationMs,
				MediaType:   string(s.Media.Kind),
				Status:      store.ScenePending,
			}
			if err := r.db.CreateScene(ctx, row); err != nil {
				return nil, fmt.Errorf("failed to create scene row: %w", err)
			}
		}
	}

	// Persist the canonical planning artifact alongside the job's files.
	if data, err := graph.ToJSON(); err == nil {
		key := storage.GenerateStoragePath(job.ID.String(), "scene_graph.json")
		if _, err := r.storage.SaveBytes(ctx, key, data, "application/json"); err != nil {
			log.Printf("[runner] failed to persist scene graph artifact: %v", err)
		}
	}
	return graph, nil
}

func (r *Runner) buildTimeline(ctx context.Context, job *store.Job, graph *renderspec.SceneGraph) (*renderspec.Timeline, error) {
	r.transition(ctx, job, store.JobBuildingTimeline, timelinePct)

	tl, err := r.timeline.Build(graph)
	if err != nil {
		return nil, fmt.Errorf("timeline construction failed: %w", err)
	}

	data, err := tl.ToJSON()
	if err != nil {
		return nil, fmt.Errorf("timeline serialization failed: %w", err)
	}
	if err := r.db.SetJobTimeline(ctx, job.ID, string(data)); err != nil {
		return nil, fmt.Errorf("failed to persist timeline: %w", err)
	}
	key := storage.GenerateStoragePath(job.ID.String(), "timeline.json")
	if _, err := r.storage.SaveBytes(ctx, key, data, "application/json"); err != nil {
		log.Printf("[runner] failed to persist timeline artifact: %v", err)
	}
	return tl, nil
}

// renderScenes dispatches every incomplete scene through the engine manager
// and returns clip paths in scene order. Scenes already DONE/FALLBACK from
// a previous run keep their clips.
func (r *Runner) renderScenes(ctx context.Context, job *store.Job, graph *renderspec.SceneGraph, tl *renderspec.Timeline) ([]string, error) {
	r.transition(ctx, job, store.JobRenderingScenes, renderStartPct)

	rows, err := r.db.ScenesForJob(ctx, job.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load scene rows: %w", err)
	}
	rowByID := make(map[int]store.Scene, len(rows))
	for _, row := range rows {
		rowByID[row.SceneID] = row
	}

	clipByScene := make(map[int]string, len(graph.Scenes))
	outputDir := r.storage.LocalPath(storage.GenerateStoragePath(job.ID.String(), "scenes"))

	var tasks []engine.SceneTask
	for _, s := range graph.Scenes {
		if row, ok := rowByID[s.ID]; ok && row.Status.IsComplete() && row.AssetPath != nil {
			if _, statErr := os.Stat(*row.AssetPath); statErr == nil {
				clipByScene[s.ID] = *row.AssetPath
				continue
			}
		}
		imagePath := ""
		if s.Media.Asset != nil && *s.Media.Asset != "" {
			imagePath = r.storage.LocalPath(*s.Media.Asset)
		}
		if err := r.db.UpdateSceneStatus(ctx, job.ID, s.ID, store.SceneRendering); err != nil {
			log.Printf("[runner] failed to mark scene %d rendering: %v", s.ID, err)
		}
		tasks = append(tasks, engine.SceneTask{
			Scene:     s,
			ImagePath: imagePath,
			OutputDir: outputDir,
			PresetID:  derefStr(job.PresetID),
			BrandSafe: job.BrandSafe,
		})
	}

	completed := len(clipByScene)
	total := len(graph.Scenes)

	if len(tasks) > 0 {
		progress := make(chan engine.SceneRenderResult, len(tasks))
		done := make(chan struct{})
		go func() {
			defer close(done)
			for res := range progress {
				r.recordSceneResult(ctx, job, res)
				completed++
				pct := renderStartPct + (renderEndPct-renderStartPct)*completed/total
				r.updateProgress(ctx, job, pct)
			}
		}()

		results := r.engines.RenderScenes(ctx, tasks, progress)
		close(progress)
		<-done

		for _, res := range results {
			if !res.Success {
				return nil, fmt.Errorf("scene %d failed all fallback levels: %w", res.SceneID, res.Err)
			}
			clipByScene[res.SceneID] = res.ClipPath
		}
	}

	r.updateProgress(ctx, job, renderEndPct)

	clips := make([]string, 0, total)
	for _, s := range graph.Scenes {
		path, ok := clipByScene[s.ID]
		if !ok {
			return nil, fmt.Errorf("scene %d has no clip after rendering", s.ID)
		}
		clips = append(clips, path)
	}
	return clips, nil
}

// recordSceneResult persists one scene's terminal outcome and propagates
// the fallback flag to the job.
func (r *Runner) recordSceneResult(ctx context.Context, job *store.Job, res engine.SceneRenderResult) {
	status := store.SceneDone
	if res.FallbackUsed {
		status = store.SceneFallback
	}
	if !res.Success {
		msg := "render failed"
		if res.Err != nil {
			msg = res.Err.Error()
		}
		if err := r.db.FailScene(ctx, job.ID, res.SceneID, msg); err != nil {
			log.Printf("[runner] failed to record scene %d failure: %v", res.SceneID, err)
		}
		return
	}
	if err := r.db.CompleteScene(ctx, job.ID, res.SceneID, status, res.EngineUsed, res.ClipPath, res.FallbackUsed, int(res.ElapsedMs)); err != nil {
		log.Printf("[runner] failed to record scene %d result: %v", res.SceneID, err)
	}
	if res.FallbackUsed && !job.FallbackUsed {
		job.FallbackUsed = true
		reason := fmt.Sprintf("scene %d rendered via fallback chain %v", res.SceneID, res.FallbackChain)
		if err := r.db.SetJobFallback(ctx, job.ID, reason); err != nil {
			log.Printf("[runner] failed to record job fallback: %v", err)
		}
	}
}

// assemble runs audio acquisition and the assembler stages, then finalizes
// the job record.
func (r *Runner) assemble(ctx context.Context, job *store.Job, graph *renderspec.SceneGraph, tl *renderspec.Timeline, clips []string) error {
	r.transition(ctx, job, store.JobComposing, composePct)

	workDir := r.storage.LocalPath(storage.GenerateStoragePath(job.ID.String(), "assembly"))
	outputDir := r.storage.LocalPath(storage.GenerateStoragePath(job.ID.String(), ""))
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return fmt.Errorf("failed to create assembly dir: %w", err)
	}

	r.transition(ctx, job, store.JobAudioAssembly, audioPct)

	voicePath, musicPath, duckRegions, captionTracks, err := r.prepareAudio(ctx, job, graph, tl, workDir)
	if err != nil {
		return err
	}
	if len(captionTracks) > 0 {
		tl.Tracks.Captions = captionTracks
	}

	r.transition(ctx, job, store.JobFinalizing, finalizePct)

	out, err := r.assembler.Assemble(ctx, assembler.Input{
		Timeline:    tl,
		SceneClips:  clips,
		WorkDir:     workDir,
		OutputDir:   outputDir,
		VoicePath:   voicePath,
		MusicPath:   musicPath,
		DuckRegions: duckRegions,
		PresetID:    derefStr(job.PresetID),
		BrandSafe:   job.BrandSafe,
		LogoPath:    r.logoPath,
	})
	if err != nil {
		return err
	}

	outputKey := storage.GenerateStoragePath(job.ID.String(), "output.mp4")
	outputURI, err := r.storage.SaveFile(ctx, outputKey, out.VideoPath, "video/mp4")
	if err != nil {
		return fmt.Errorf("failed to store output: %w", err)
	}
	thumbnailURI := ""
	if out.ThumbnailPath != "" {
		thumbKey := storage.GenerateStoragePath(job.ID.String(), "thumbnail.jpg")
		if uri, err := r.storage.SaveFile(ctx, thumbKey, out.ThumbnailPath, "image/jpeg"); err == nil {
			thumbnailURI = uri
		}
	}

	if err := r.db.SetJobOutput(ctx, job.ID, outputURI, thumbnailURI); err != nil {
		return fmt.Errorf("failed to finalize job record: %w", err)
	}
	return nil
}

// prepareAudio acquires the voice track, maps and aligns it to scenes, and
// prepares the music bed. Aligned captions (when voice exists) replace the
// timeline's static scene captions for burn-in.
func (r *Runner) prepareAudio(ctx context.Context, job *store.Job, graph *renderspec.SceneGraph, tl *renderspec.Timeline, workDir string) (voicePath, musicPath string, duckRegions []audio.Span, captions []renderspec.CaptionTrack, err error) {
	script := ""
	voiceFile := ""
	if graph.GlobalAudio != nil {
		script = graph.GlobalAudio.VoiceScript
		if graph.GlobalAudio.VoiceAssetRef != "" {
			voiceFile = r.storage.LocalPath(graph.GlobalAudio.VoiceAssetRef)
		}
	}

	voice, err := r.audio.AcquireVoice(ctx, script, voiceFile, workDir)
	if err != nil {
		return "", "", nil, nil, fmt.Errorf("voice acquisition failed: %w", err)
	}

	if voice != nil {
		voicePath = voice.Path
		windows := audio.SceneWindowsFromTimeline(tl)
		mapped := audio.MapVoiceToScenes(voice.Transcript, windows, voice.DurationMs)
		aligned := r.audio.Align(ctx, voice, mapped, windows)
		duckRegions = audio.BuildDuckRegions(audio.VoiceSpansFromCaptions(aligned), tl.TotalDuration)
		for _, c := range aligned {
			id := c.SceneID
			captions = append(captions, renderspec.CaptionTrack{
				Text:    c.Text,
				Start:   c.StartMs,
				End:     c.EndMs,
				SceneID: &id,
			})
		}
	}

	music := r.musicPath
	if graph.GlobalAudio.HasMusic() {
		music = r.storage.LocalPath(graph.GlobalAudio.MusicAssetRef)
	}
	if music != "" {
		prepared, musicErr := r.audio.PrepareMusic(ctx, music, tl.TotalDuration, workDir)
		if musicErr != nil {
			log.Printf("[runner] music preparation failed, continuing without music: %v", musicErr)
		} else {
			musicPath = prepared
		}
	}
	return voicePath, musicPath, duckRegions, captions, nil
}

// deliverTemplate writes the guaranteed template output and marks the job
// DONE with the fallback flags set.
func (r *Runner) deliverTemplate(ctx context.Context, job *store.Job, tl *renderspec.Timeline, cause error) error {
	outputDir := r.storage.LocalPath(storage.GenerateStoragePath(job.ID.String(), ""))
	totalMs := job.TargetDurationSeconds * 1000
	if tl != nil {
		totalMs = tl.TotalDuration
	}
	if totalMs <= 0 {
		totalMs = 10000
	}

	out, err := r.assembler.TemplateFallback(ctx, outputDir, totalMs)
	if err != nil {
		return err
	}

	outputKey := storage.GenerateStoragePath(job.ID.String(), "output.mp4")
	outputURI, err := r.storage.SaveFile(ctx, outputKey, out.VideoPath, "video/mp4")
	if err != nil {
		return fmt.Errorf("failed to store template output: %w", err)
	}
	thumbnailURI := ""
	if out.ThumbnailPath != "" {
		thumbKey := storage.GenerateStoragePath(job.ID.String(), "thumbnail.jpg")
		if uri, err := r.storage.SaveFile(ctx, thumbKey, out.ThumbnailPath, "image/jpeg"); err == nil {
			thumbnailURI = uri
		}
	}

	if err := r.db.SetJobFallback(ctx, job.ID, fmt.Sprintf("assembly failed: %v", cause)); err != nil {
		log.Printf("[runner] failed to record template fallback reason: %v", err)
	}
	if err := r.db.SetJobOutput(ctx, job.ID, outputURI, thumbnailURI); err != nil {
		return fmt.Errorf("failed to finalize job record: %w", err)
	}
	return nil
}

// transition moves the job forward, never backward: a resumed job that is
// already past the requested state keeps its state and progress.
func (r *Runner) transition(ctx context.Context, job *store.Job, to store.JobStatus, pct int) {
	if !job.Status.Precedes(to) && job.Status != to {
		return
	}
	if pct < job.ProgressPct {
		pct = job.ProgressPct
	}
	job.Status = to
	job.ProgressPct = pct
	if err := r.db.UpdateJobStatus(ctx, job.ID, to, pct); err != nil {
		log.Printf("[runner] failed to persist transition to %s: %v", to, err)
	}
}

// updateProgress bumps progress within the current state, never decreasing.
func (r *Runner) updateProgress(ctx context.Context, job *store.Job, pct int) {
	if pct <= job.ProgressPct {
		return
	}
	job.ProgressPct = pct
	if err := r.db.UpdateJobStatus(ctx, job.ID, job.Status, pct); err != nil {
		log.Printf("[runner] failed to persist progress: %v", err)
	}
}

func (r *Runner) fail(ctx context.Context, job *store.Job, cause error) {
	if err := r.db.FailJob(ctx, job.ID, cause.Error()); err != nil {
		log.Printf("[runner] failed to persist job failure: %v", err)
	}
}

// pruneIntermediates removes the numbered assembly files once the job is
// terminal. Scene clips are retained for re-renders and inspection.
func (r *Runner) pruneIntermediates(jobID uuid.UUID) {
	workDir := r.storage.LocalPath(storage.GenerateStoragePath(jobID.String(), "assembly"))
	entries, err := os.ReadDir(workDir)
	if err != nil {
		return
	}
	for _, e := range entries {
		os.Remove(filepath.Join(workDir, e.Name()))
	}
	os.Remove(workDir)
}

func derefStr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
