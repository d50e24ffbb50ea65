package backend

import (
	"context"
	"log"

	"github.com/ModawnAI/hydra-compose-runpod/internal/jobstore"
	"github.com/ModawnAI/hydra-compose-runpod/internal/models"
)

// Renderer runs a full render synchronously and returns the output URL.
// The pipeline orchestrator satisfies this.
type Renderer interface {
	Render(ctx context.Context, req *models.RenderRequest) (string, error)
}

// Local runs renders in-process. Submit returns immediately; the render
// proceeds on its own goroutine and reports through the job store, so Poll
// just reads the store.
type Local struct {
	renderer Renderer
	store    jobstore.Store

	// baseCtx outlives the submitting HTTP request.
	baseCtx context.Context
}

func NewLocal(baseCtx context.Context, renderer Renderer, store jobstore.Store) *Local {
	return &Local{renderer: renderer, store: store, baseCtx: baseCtx}
}

func (l *Local) Name() string { return "local" }

func (l *Local) Submit(_ context.Context, req *models.RenderRequest) (string, error) {
	go func() {
		if _, err := l.renderer.Render(l.baseCtx, req); err != nil {
			log.Printf("[Backend] [%s] local render failed: %v", req.JobID, err)
		}
	}()
	return req.JobID, nil
}

func (l *Local) Poll(ctx context.Context, handle string) (*PollResult, error) {
	rec, err := l.store.Get(ctx, handle)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return &PollResult{Status: StatusFailed, Error: "job not found"}, nil
	}

	res := &PollResult{
		OutputURL: rec.OutputURL,
		Error:     rec.Error,
		Progress:  rec.Progress,
	}
	switch rec.Status {
	case models.JobStatusQueued:
		res.Status = StatusQueued
	case models.JobStatusProcessing:
		res.Status = StatusProcessing
	case models.JobStatusCompleted:
		res.Status = StatusCompleted
	default:
		res.Status = StatusFailed
	}
	return res, nil
}
