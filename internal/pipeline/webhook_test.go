package pipeline

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/ModawnAI/hydra-compose-runpod/internal/gate"
	"github.com/ModawnAI/hydra-compose-runpod/internal/jobstore"
	"github.com/ModawnAI/hydra-compose-runpod/internal/models"
	"github.com/ModawnAI/hydra-compose-runpod/internal/progress"
)

func TestNotifierDeliversTransitionsOnly(t *testing.T) {
	var mu sync.Mutex
	var received []models.WebhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p models.WebhookPayload
		json.NewDecoder(r.Body).Decode(&p)
		mu.Lock()
		received = append(received, p)
		mu.Unlock()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := progress.NewHub()
	events := hub.Subscribe(16)
	done := make(chan struct{})
	go func() {
		NewNotifier().Run(ctx, events)
		close(done)
	}()

	// Intermediate progress: no delivery.
	hub.Publish(progress.Event{
		JobID: "j1", Status: models.JobStatusProcessing, Progress: 40,
		Callback: srv.URL,
	})
	// Transition without callback: no delivery.
	hub.Publish(progress.Event{
		JobID: "j2", Status: models.JobStatusCompleted, Progress: 100, Transition: true,
	})
	// Transition with callback: delivered.
	hub.Publish(progress.Event{
		JobID: "j1", Status: models.JobStatusCompleted, Progress: 100,
		OutputURL: "https://cdn.example.com/out.mp4", Callback: srv.URL, Transition: true,
	})
	hub.Close()
	<-done

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 1 {
		t.Fatalf("got %d deliveries, want 1: %+v", len(received), received)
	}
	got := received[0]
	if got.JobID != "j1" || got.Status != models.JobStatusCompleted || got.OutputURL != "https://cdn.example.com/out.mp4" {
		t.Errorf("payload = %+v", got)
	}
}

func TestNotifierDeliversQueuedOnSubmission(t *testing.T) {
	var mu sync.Mutex
	var statuses []models.JobStatus
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p models.WebhookPayload
		json.NewDecoder(r.Body).Decode(&p)
		mu.Lock()
		statuses = append(statuses, p.Status)
		mu.Unlock()
	}))
	defer srv.Close()

	hub := progress.NewHub()
	events := hub.Subscribe(16)
	done := make(chan struct{})
	go func() {
		NewNotifier().Run(context.Background(), events)
		close(done)
	}()

	store := jobstore.NewMemory()
	g := gate.New(1)
	g.TryAcquire() // hold the only slot so the job has to wait
	o := NewOrchestrator(store, nil, nil, nil, nil, nil, g, hub)
	store.Create(context.Background(), "job-1", nil)

	// A cancelled context fails the job while waiting for its render slot,
	// after the queued event has gone out.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := &models.RenderRequest{JobID: "job-1", CallbackURL: srv.URL}
	if _, err := o.Render(ctx, req); err == nil {
		t.Fatal("expected render to fail under a cancelled context")
	}

	hub.Close()
	<-done

	mu.Lock()
	defer mu.Unlock()
	if len(statuses) != 2 || statuses[0] != models.JobStatusQueued || statuses[1] != models.JobStatusFailed {
		t.Fatalf("delivered statuses = %v, want [queued failed]", statuses)
	}
}

func TestNotifierSurvivesDeadEndpoint(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := progress.NewHub()
	events := hub.Subscribe(4)
	done := make(chan struct{})
	go func() {
		NewNotifier().Run(ctx, events)
		close(done)
	}()

	hub.Publish(progress.Event{
		JobID: "j1", Status: models.JobStatusFailed, Err: "boom",
		Callback: "http://127.0.0.1:1/unreachable", Transition: true,
	})
	hub.Close()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("notifier wedged on an unreachable callback")
	}
}
