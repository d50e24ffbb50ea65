package backend

import (
	"context"
	"testing"
	"time"

	"github.com/ModawnAI/hydra-compose-runpod/internal/jobstore"
	"github.com/ModawnAI/hydra-compose-runpod/internal/models"
)

type funcRenderer func(ctx context.Context, req *models.RenderRequest) (string, error)

func (f funcRenderer) Render(ctx context.Context, req *models.RenderRequest) (string, error) {
	return f(ctx, req)
}

func TestLocalSubmitRunsRenderer(t *testing.T) {
	store := jobstore.NewMemory()
	done := make(chan string, 1)

	b := NewLocal(context.Background(), funcRenderer(func(ctx context.Context, req *models.RenderRequest) (string, error) {
		done <- req.JobID
		return "https://cdn.example.com/out.mp4", nil
	}), store)

	handle, err := b.Submit(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if handle != "job-1" {
		t.Errorf("handle = %q, want the job id", handle)
	}

	select {
	case id := <-done:
		if id != "job-1" {
			t.Errorf("rendered job = %q", id)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("renderer was never invoked")
	}
}

func TestLocalPollReadsStore(t *testing.T) {
	store := jobstore.NewMemory()
	ctx := context.Background()
	b := NewLocal(ctx, nil, store)

	if err := store.Create(ctx, "job-1", nil); err != nil {
		t.Fatalf("create: %v", err)
	}

	res, err := b.Poll(ctx, "job-1")
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if res.Status != StatusQueued {
		t.Errorf("status = %s, want queued", res.Status)
	}

	err = store.Update(ctx, "job-1", jobstore.Update{
		Status:    jobstore.StatusPtr(models.JobStatusCompleted),
		Progress:  jobstore.IntPtr(100),
		OutputURL: jobstore.StrPtr("https://cdn.example.com/out.mp4"),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	res, err = b.Poll(ctx, "job-1")
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if res.Status != StatusCompleted || res.OutputURL != "https://cdn.example.com/out.mp4" || res.Progress != 100 {
		t.Errorf("result = %+v", res)
	}
}

func TestLocalPollUnknownJob(t *testing.T) {
	b := NewLocal(context.Background(), nil, jobstore.NewMemory())

	res, err := b.Poll(context.Background(), "nope")
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if res.Status != StatusFailed || res.Error != "job not found" {
		t.Errorf("result = %+v", res)
	}
}
