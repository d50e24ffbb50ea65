// Package jobstore persists compose job records. The Redis-backed store is
// durable across process restarts; the in-memory store is an explicit
// fallback for environments without Redis and loses everything on exit.
// Both expire records 24 hours after their last update.
package jobstore

import (
	"context"
	"time"

	"github.com/ModawnAI/hydra-compose-runpod/internal/models"
)

// TTL is how long a job record lives after its last update.
const TTL = 24 * time.Hour

// Store holds job records keyed by job id.
type Store interface {
	// Create writes a fresh queued record for jobID.
	Create(ctx context.Context, jobID string, metadata map[string]interface{}) error
	// Get returns the record, or (nil, nil) when the job is unknown or
	// expired.
	Get(ctx context.Context, jobID string) (*models.JobRecord, error)
	// Update applies a partial update. Updating an unknown job is a no-op,
	// so late writes from a pipeline whose job was deleted do no harm.
	Update(ctx context.Context, jobID string, u Update) error
	// Delete removes the record. Deleting an unknown job is a no-op.
	Delete(ctx context.Context, jobID string) error
	// Durable reports whether records survive a process restart.
	Durable() bool
	Close() error
}

// Update is a partial job record update; nil fields are left untouched.
type Update struct {
	Status    *models.JobStatus
	Progress  *int
	Step      *string
	OutputURL *string
	Error     *string
	Metadata  map[string]interface{}
}

// apply merges u into rec, enforcing two invariants: terminal states absorb
// all later status changes, and progress never moves backwards.
func apply(rec *models.JobRecord, u Update, now time.Time) {
	if rec.Status.Terminal() {
		return
	}
	if u.Status != nil {
		rec.Status = *u.Status
	}
	if u.Progress != nil && *u.Progress > rec.Progress {
		rec.Progress = *u.Progress
	}
	if u.Step != nil {
		rec.CurrentStep = *u.Step
	}
	if u.OutputURL != nil {
		rec.OutputURL = *u.OutputURL
	}
	if u.Error != nil {
		rec.Error = *u.Error
	}
	if len(u.Metadata) > 0 {
		if rec.Metadata == nil {
			rec.Metadata = make(map[string]interface{}, len(u.Metadata))
		}
		for k, v := range u.Metadata {
			rec.Metadata[k] = v
		}
	}
	rec.UpdatedAt = now
}

func newRecord(jobID string, metadata map[string]interface{}, now time.Time) *models.JobRecord {
	return &models.JobRecord{
		JobID:     jobID,
		Status:    models.JobStatusQueued,
		Progress:  0,
		Metadata:  metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Helpers for building partial updates without local pointer juggling.

func StatusPtr(s models.JobStatus) *models.JobStatus { return &s }
func IntPtr(n int) *int                              { return &n }
func StrPtr(s string) *string                        { return &s }
