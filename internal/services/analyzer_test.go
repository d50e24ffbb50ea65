package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAnalyzerNilWhenUnconfigured(t *testing.T) {
	if a := NewAnalyzer(""); a != nil {
		t.Error("expected nil analyzer for empty base URL")
	}
}

func TestAnalyzerAnalyze(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/analyze" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var req map[string]interface{}
		json.NewDecoder(r.Body).Decode(&req)
		if req["audio_url"] != "https://cdn.example.com/track.mp3" {
			t.Errorf("audio_url = %v", req["audio_url"])
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"bpm":        128,
			"beat_times": []float64{0.47, 0.94, 1.41},
			"duration":   31.5,
			"energy_curve": []map[string]float64{
				{"t": 0, "e": 0.4}, {"t": 1, "e": 0.9},
			},
			"suggested_vibe": "Exciting",
		})
	}))
	defer srv.Close()

	a := NewAnalyzer(srv.URL)
	got, err := a.Analyze(context.Background(), "https://cdn.example.com/track.mp3", 0, nil)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if got.BPM != 128 || len(got.BeatTimes) != 3 || got.Duration != 31.5 {
		t.Errorf("analysis = %+v", got)
	}
	if got.SuggestedVibe != "Exciting" {
		t.Errorf("suggested vibe = %q", got.SuggestedVibe)
	}
	if len(got.EnergyCurve) != 2 || got.EnergyCurve[1].Energy != 0.9 {
		t.Errorf("energy curve = %+v", got.EnergyCurve)
	}
}

func TestAnalyzerBestSegment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/best-segment" {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]float64{
			"start_time": 42.5,
			"end_time":   57.5,
		})
	}))
	defer srv.Close()

	a := NewAnalyzer(srv.URL)
	seg, err := a.FindBestSegment(context.Background(), "https://cdn.example.com/track.mp3", 15)
	if err != nil {
		t.Fatalf("best segment: %v", err)
	}
	if seg.Start != 42.5 || seg.End != 57.5 {
		t.Errorf("segment = %+v", seg)
	}
}

func TestAnalyzerErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "cannot decode audio", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	a := NewAnalyzer(srv.URL)
	if _, err := a.Analyze(context.Background(), "https://x.example.com/bad.mp3", 0, nil); err == nil {
		t.Fatal("expected error from non-200 response")
	}
}
