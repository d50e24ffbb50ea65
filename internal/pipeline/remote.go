package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ModawnAI/hydra-compose-runpod/internal/backend"
	"github.com/ModawnAI/hydra-compose-runpod/internal/models"
	"github.com/ModawnAI/hydra-compose-runpod/internal/progress"
)

// Poll pacing; vars so tests can tighten them.
var (
	remotePollInterval = 3 * time.Second
	remotePollAttempts = 200
)

// RunRemote submits a job to a remote backend and babysits it: a bounded
// poll loop translates the worker's state into progress events. The loop
// gives up after remotePollAttempts polls and fails the job.
func (o *Orchestrator) RunRemote(ctx context.Context, b backend.Backend, req *models.RenderRequest) (string, error) {
	o.step(req, models.JobStatusProcessing, 5, fmt.Sprintf("Submitting to %s backend", b.Name()), true)

	handle, err := b.Submit(ctx, req)
	if err != nil {
		return "", o.fail(req, fmt.Errorf("remote submit failed: %w", err))
	}
	log.Printf("[Pipeline] [%s] submitted to %s backend (call_id=%s)", req.JobID, b.Name(), handle)

	o.publish(progress.Event{
		JobID: req.JobID, Status: models.JobStatusProcessing, Progress: 5,
		Step: fmt.Sprintf("Rendering on %s", b.Name()), Callback: req.CallbackURL,
	})
	if err := o.store.Update(ctx, req.JobID, storeMetadata(handle, b.Name())); err != nil {
		log.Printf("[Pipeline] [%s] failed to record call_id: %v", req.JobID, err)
	}

	ticker := time.NewTicker(remotePollInterval)
	defer ticker.Stop()

	for attempt := 1; attempt <= remotePollAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return "", o.fail(req, fmt.Errorf("remote render cancelled: %w", ctx.Err()))
		case <-ticker.C:
		}

		res, err := b.Poll(ctx, handle)
		if err != nil {
			log.Printf("[Pipeline] [%s] poll %d failed: %v", req.JobID, attempt, err)
			continue
		}

		switch res.Status {
		case backend.StatusCompleted:
			o.complete(req, res.OutputURL)
			log.Printf("[Pipeline] [%s] remote render completed: %s", req.JobID, res.OutputURL)
			return res.OutputURL, nil
		case backend.StatusFailed:
			return "", o.fail(req, fmt.Errorf("remote render failed: %s", res.Error))
		default:
			pct := 5 + attempt*85/remotePollAttempts
			if pct > 90 {
				pct = 90
			}
			o.publish(progress.Event{
				JobID: req.JobID, Status: models.JobStatusProcessing, Progress: pct,
				Step: fmt.Sprintf("Rendering on %s", b.Name()), Callback: req.CallbackURL,
			})
		}
	}

	return "", o.fail(req, fmt.Errorf("remote render timed out after %d polls", remotePollAttempts))
}
