// Package pipeline orchestrates a compose job end to end: fetch assets,
// analyze the audio, plan the timeline against the beat grid, render and
// join segments, mix and grade, upload, and report progress.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/ModawnAI/hydra-compose-runpod/internal/gate"
	"github.com/ModawnAI/hydra-compose-runpod/internal/jobstore"
	"github.com/ModawnAI/hydra-compose-runpod/internal/models"
	"github.com/ModawnAI/hydra-compose-runpod/internal/preset"
	"github.com/ModawnAI/hydra-compose-runpod/internal/progress"
	"github.com/ModawnAI/hydra-compose-runpod/internal/services"
	"github.com/ModawnAI/hydra-compose-runpod/internal/storage"
	"github.com/ModawnAI/hydra-compose-runpod/internal/timing"
)

const (
	// segmentWorkers bounds parallel ffmpeg segment renders within one job.
	segmentWorkers = 4

	// maxConcurrentUploads limits simultaneous output uploads across jobs.
	maxConcurrentUploads = 3
)

// Orchestrator wires the services a render needs. All collaborators are
// injected; analyzer and search may be nil when unconfigured and the
// pipeline degrades accordingly.
type Orchestrator struct {
	store    jobstore.Store
	storage  *storage.Client
	fetcher  *services.Fetcher
	analyzer *services.Analyzer
	engine   *services.Engine
	search   *services.ImageSearch
	gate     *gate.Gate
	hub      *progress.Hub

	uploadSem chan struct{}
}

func NewOrchestrator(
	store jobstore.Store,
	storageClient *storage.Client,
	fetcher *services.Fetcher,
	analyzer *services.Analyzer,
	engine *services.Engine,
	search *services.ImageSearch,
	g *gate.Gate,
	hub *progress.Hub,
) *Orchestrator {
	return &Orchestrator{
		store:     store,
		storage:   storageClient,
		fetcher:   fetcher,
		analyzer:  analyzer,
		engine:    engine,
		search:    search,
		gate:      g,
		hub:       hub,
		uploadSem: make(chan struct{}, maxConcurrentUploads),
	}
}

// Render runs a full compose job and returns the public URL of the
// uploaded video. Progress flows through the hub; on failure the job is
// marked failed with the error text before the error is returned.
func (o *Orchestrator) Render(ctx context.Context, req *models.RenderRequest) (string, error) {
	o.publish(progress.Event{
		JobID: req.JobID, Status: models.JobStatusQueued, Progress: 0,
		Step: "Waiting for render slot...", Callback: req.CallbackURL, Transition: true,
	})

	if err := o.gate.Acquire(ctx); err != nil {
		return "", o.fail(req, fmt.Errorf("cancelled while waiting for render slot: %w", err))
	}
	defer o.gate.Release()

	out, err := o.render(ctx, req)
	if err != nil {
		return "", o.fail(req, err)
	}
	return out, nil
}

func (o *Orchestrator) render(ctx context.Context, req *models.RenderRequest) (string, error) {
	jobID := req.JobID
	log.Printf("[Pipeline] [%s] starting render (%d images, vibe=%s)", jobID, len(req.Images), req.Settings.Vibe)

	o.step(req, models.JobStatusProcessing, 5, "Preparing assets", true)

	jobDir, err := o.engine.JobDir(jobID)
	if err != nil {
		return "", err
	}
	defer o.engine.CleanupJob(jobID)

	p := preset.ByVibe(req.Settings.Vibe)
	width, height := req.Settings.AspectRatio.Resolution()

	imagePaths, audioPath, err := o.fetchAssets(ctx, req, jobDir)
	if err != nil {
		return "", err
	}
	o.step(req, models.JobStatusProcessing, 15, "Analyzing audio", false)

	analysis, err := o.analyzeAudio(ctx, req, audioPath)
	if err != nil {
		return "", err
	}

	target, forced := timing.PlanDuration(p, len(req.Images), analysis.Duration, req.Settings.TargetDuration)
	if forced {
		log.Printf("[Pipeline] [%s] duration floor engaged: %d images into %.2fs bends the per-image minimum",
			jobID, len(req.Images), target)
	}

	cuts := timing.CalculateCuts(analysis.BeatTimes, len(req.Images), target, p.Pacing)
	o.step(req, models.JobStatusProcessing, 25, "Rendering segments", false)

	segmentPaths, err := o.renderSegments(ctx, req, imagePaths, cuts, p.Motion, width, height, jobDir)
	if err != nil {
		return "", err
	}
	o.step(req, models.JobStatusProcessing, 55, "Applying transitions", false)

	joined := filepath.Join(jobDir, "joined.mp4")
	td := transitionDuration(req.Settings.Transition, p)
	if err := o.engine.Concatenate(ctx, segmentPaths, cuts, req.Settings.Transition, td, joined); err != nil {
		return "", err
	}

	// The encode can drift a few frames from the plan; caption windows and
	// the audio trim key off what actually came out.
	actual, err := o.engine.ProbeDuration(ctx, joined)
	if err != nil {
		log.Printf("[Pipeline] [%s] probe of joined video failed (%v), using planned duration", jobID, err)
		actual = target
	}

	subtitlePath, err := o.buildCaptions(req, actual, jobDir)
	if err != nil {
		return "", err
	}
	o.step(req, models.JobStatusProcessing, 65, "Compositing audio", false)

	finalPath := filepath.Join(jobDir, "final.mp4")
	err = o.engine.Compose(ctx, services.ComposeOptions{
		VideoPath:     joined,
		AudioPath:     audioPath,
		SubtitlePath:  subtitlePath,
		OutputPath:    finalPath,
		AudioStart:    req.Audio.StartTime,
		VideoDuration: actual,
		Grade:         req.Settings.ColorGrade,
	})
	if err != nil {
		return "", err
	}
	o.step(req, models.JobStatusProcessing, 85, "Uploading video", false)

	outputURL, err := o.upload(ctx, req, finalPath)
	if err != nil {
		return "", err
	}

	o.complete(req, outputURL)
	log.Printf("[Pipeline] [%s] completed: %s", jobID, outputURL)
	return outputURL, nil
}

// fetchAssets downloads every image and the audio track in parallel,
// returning image paths ordered by their declared order.
func (o *Orchestrator) fetchAssets(ctx context.Context, req *models.RenderRequest, jobDir string) ([]string, string, error) {
	images := make([]models.ImageAsset, len(req.Images))
	copy(images, req.Images)
	sort.Slice(images, func(i, j int) bool { return images[i].Order < images[j].Order })

	imagePaths := make([]string, len(images))
	audioPath := filepath.Join(jobDir, "audio")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(segmentWorkers + 1)

	for i, img := range images {
		i, img := i, img
		g.Go(func() error {
			data, err := o.fetcher.Fetch(gctx, img.URL)
			if err != nil {
				return fmt.Errorf("image %d: %w", img.Order, err)
			}
			path := filepath.Join(jobDir, fmt.Sprintf("img_%03d%s", i, extensionOf(img.URL)))
			if err := os.WriteFile(path, data, 0644); err != nil {
				return fmt.Errorf("image %d: %w", img.Order, err)
			}
			imagePaths[i] = path
			return nil
		})
	}

	g.Go(func() error {
		data, err := o.fetcher.Fetch(gctx, req.Audio.URL)
		if err != nil {
			return fmt.Errorf("audio: %w", err)
		}
		return os.WriteFile(audioPath, data, 0644)
	})

	if err := g.Wait(); err != nil {
		return nil, "", err
	}
	return imagePaths, audioPath, nil
}

// analyzeAudio gets the beat grid and usable duration for the job's audio
// window. Without an analyzer the duration comes from ffprobe and the cut
// planner falls back to even spacing.
func (o *Orchestrator) analyzeAudio(ctx context.Context, req *models.RenderRequest, audioPath string) (*models.AudioAnalysis, error) {
	if o.analyzer != nil {
		analysis, err := o.analyzer.Analyze(ctx, req.Audio.URL, req.Audio.StartTime, req.Audio.Duration)
		if err == nil {
			return analysis, nil
		}
		log.Printf("[Pipeline] [%s] audio analysis failed (%v), continuing without beats", req.JobID, err)
	}

	total, err := o.engine.ProbeDuration(ctx, audioPath)
	if err != nil {
		return nil, fmt.Errorf("failed to determine audio duration: %w", err)
	}
	avail := total - req.Audio.StartTime
	if avail <= 0 {
		return nil, fmt.Errorf("audio start_time %.2fs is beyond the track length %.2fs", req.Audio.StartTime, total)
	}
	if req.Audio.Duration != nil && *req.Audio.Duration < avail {
		avail = *req.Audio.Duration
	}
	return &models.AudioAnalysis{Duration: avail}, nil
}

func (o *Orchestrator) renderSegments(ctx context.Context, req *models.RenderRequest, imagePaths []string, cuts []timing.Segment, motion models.MotionStyle, width, height int, jobDir string) ([]string, error) {
	segmentPaths := make([]string, len(cuts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(segmentWorkers)

	for i := range cuts {
		i := i
		g.Go(func() error {
			out := filepath.Join(jobDir, fmt.Sprintf("seg_%03d.mp4", i))
			if err := o.engine.RenderSegment(gctx, imagePaths[i], out, cuts[i].Duration(), motion, width, height); err != nil {
				return fmt.Errorf("segment %d: %w", i, err)
			}
			segmentPaths[i] = out
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return segmentPaths, nil
}

func (o *Orchestrator) buildCaptions(req *models.RenderRequest, videoDuration float64, jobDir string) (string, error) {
	lines := timing.RetimeCaptions(req.Captions, videoDuration)
	if len(lines) == 0 {
		return "", nil
	}

	width, height := req.Settings.AspectRatio.Resolution()
	path := filepath.Join(jobDir, "captions.ass")
	if err := services.GenerateASS(lines, req.Settings.TextStyle, width, height, path); err != nil {
		return "", err
	}
	return path, nil
}

func (o *Orchestrator) upload(ctx context.Context, req *models.RenderRequest, finalPath string) (string, error) {
	select {
	case o.uploadSem <- struct{}{}:
	case <-ctx.Done():
		return "", fmt.Errorf("cancelled waiting for upload slot: %w", ctx.Err())
	}
	defer func() { <-o.uploadSem }()

	data, err := os.ReadFile(finalPath)
	if err != nil {
		return "", fmt.Errorf("failed to read final video: %w", err)
	}

	o.step(req, models.JobStatusProcessing, 95, "Uploading video", false)
	if err := o.storage.Upload(ctx, req.Output.Bucket, req.Output.Key, data, "video/mp4"); err != nil {
		return "", err
	}
	return o.storage.PublicURL(req.Output.Bucket, req.Output.Key), nil
}

// transitionDuration returns the overlap for the effective transition. If
// the caller kept the vibe's native transition the preset timing applies;
// otherwise each kind carries its usual duration.
func transitionDuration(t models.TransitionKind, p preset.StylePreset) float64 {
	if t == p.Transition {
		return p.TransitionDuration
	}
	switch t {
	case models.TransitionCrossfade:
		return 1.0
	case models.TransitionBounce:
		return 0.25
	case models.TransitionSlide:
		return 0.3
	case models.TransitionZoomBeat:
		return 0.15
	default:
		return 0
	}
}

func (o *Orchestrator) step(req *models.RenderRequest, status models.JobStatus, pct int, step string, transition bool) {
	o.publish(progress.Event{
		JobID: req.JobID, Status: status, Progress: pct,
		Step: step, Callback: req.CallbackURL, Transition: transition,
	})
}

func (o *Orchestrator) publish(ev progress.Event) {
	o.hub.Publish(ev)
}

// complete and fail write the terminal record to the store directly before
// fanning the event out. The hub drops events when a subscriber lags, which
// is fine for progress bumps but must never lose a terminal transition.

func (o *Orchestrator) complete(req *models.RenderRequest, outputURL string) {
	err := o.store.Update(context.Background(), req.JobID, jobstore.Update{
		Status:    jobstore.StatusPtr(models.JobStatusCompleted),
		Progress:  jobstore.IntPtr(100),
		Step:      jobstore.StrPtr("Done"),
		OutputURL: jobstore.StrPtr(outputURL),
	})
	if err != nil {
		log.Printf("[Pipeline] [%s] failed to persist completion: %v", req.JobID, err)
	}
	o.publish(progress.Event{
		JobID: req.JobID, Status: models.JobStatusCompleted, Progress: 100,
		Step: "Done", OutputURL: outputURL, Callback: req.CallbackURL, Transition: true,
	})
}

func (o *Orchestrator) fail(req *models.RenderRequest, err error) error {
	log.Printf("[Pipeline] [%s] failed: %v", req.JobID, err)
	serr := o.store.Update(context.Background(), req.JobID, jobstore.Update{
		Status: jobstore.StatusPtr(models.JobStatusFailed),
		Error:  jobstore.StrPtr(err.Error()),
	})
	if serr != nil {
		log.Printf("[Pipeline] [%s] failed to persist failure: %v", req.JobID, serr)
	}
	o.publish(progress.Event{
		JobID: req.JobID, Status: models.JobStatusFailed,
		Err: err.Error(), Callback: req.CallbackURL, Transition: true,
	})
	return err
}

func extensionOf(rawURL string) string {
	ext := filepath.Ext(rawURL)
	if len(ext) > 5 || len(ext) < 2 {
		return ".img"
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return ".img"
		}
	}
	return ext
}
