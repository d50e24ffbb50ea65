// Package backend abstracts where a render actually runs: in-process on
// this box, or on a remote GPU/CPU worker reached over HTTP.
package backend

import (
	"context"

	"github.com/ModawnAI/hydra-compose-runpod/internal/models"
)

// Status is a backend's view of a submitted render.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// PollResult is one observation of a remote render's state.
type PollResult struct {
	Status    Status
	OutputURL string
	Error     string
	Progress  int
}

// Backend submits render jobs and reports on their progress. Submit returns
// an opaque handle that Poll accepts; for the local backend the handle is
// the job id itself.
type Backend interface {
	Name() string
	Submit(ctx context.Context, req *models.RenderRequest) (handle string, err error)
	Poll(ctx context.Context, handle string) (*PollResult, error)
}
