package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ModawnAI/hydra-compose-runpod/internal/models"
)

func testRequest() *models.RenderRequest {
	return &models.RenderRequest{
		JobID: "job-1",
		Images: []models.ImageAsset{
			{URL: "https://cdn.example.com/a.jpg", Order: 0},
		},
		Audio: models.AudioAsset{URL: "https://cdn.example.com/track.mp3"},
		Settings: models.RenderSettings{
			Vibe:        models.VibePop,
			Transition:  models.TransitionBounce,
			AspectRatio: models.AspectPortrait,
			TextStyle:   models.TextSlideIn,
			ColorGrade:  models.GradeBright,
		},
		Output: models.OutputSettings{Key: "compose/x/job-1.mp4"},
	}
}

func TestRemoteSubmit(t *testing.T) {
	var gotPayload map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotPayload)
		json.NewEncoder(w).Encode(map[string]string{"call_id": "call-42"})
	}))
	defer srv.Close()

	b := NewRemote("gpu", srv.URL, srv.URL, true)
	handle, err := b.Submit(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if handle != "call-42" {
		t.Errorf("handle = %q, want call-42", handle)
	}
	if gotPayload["use_gpu"] != true {
		t.Errorf("use_gpu = %v", gotPayload["use_gpu"])
	}
	settings := gotPayload["settings"].(map[string]interface{})
	if settings["vibe"] != "Pop" || settings["aspect_ratio"] != "9:16" {
		t.Errorf("settings = %+v", settings)
	}
}

func TestRemoteSubmitNoCallID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer srv.Close()

	b := NewRemote("gpu", srv.URL, srv.URL, true)
	if _, err := b.Submit(context.Background(), testRequest()); err == nil {
		t.Fatal("expected error when call_id is missing")
	}
}

func TestRemotePoll(t *testing.T) {
	state := "running"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("call_id") != "call-42" {
			t.Errorf("call_id = %q", r.URL.Query().Get("call_id"))
		}
		switch state {
		case "running":
			w.WriteHeader(http.StatusAccepted)
		case "done":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status": "completed",
				"result": map[string]string{"output_url": "https://cdn.example.com/out.mp4"},
			})
		case "failed":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status": "failed",
				"result": map[string]string{"error": "encoder crashed"},
			})
		}
	}))
	defer srv.Close()

	b := NewRemote("gpu", srv.URL, srv.URL, true)
	ctx := context.Background()

	res, err := b.Poll(ctx, "call-42")
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if res.Status != StatusProcessing {
		t.Errorf("status = %s, want processing while 202", res.Status)
	}

	state = "done"
	res, err = b.Poll(ctx, "call-42")
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if res.Status != StatusCompleted || res.OutputURL != "https://cdn.example.com/out.mp4" {
		t.Errorf("result = %+v", res)
	}

	state = "failed"
	res, err = b.Poll(ctx, "call-42")
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if res.Status != StatusFailed || res.Error != "encoder crashed" {
		t.Errorf("result = %+v", res)
	}
}
