package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/ModawnAI/hydra-compose-runpod/internal/models"
)

// ---------------------------------------------------------------------------
// Audio Analyzer Client
// Calls the companion analysis service for BPM, beat grid, energy curve and
// best-segment selection. When no analyzer is configured the pipeline
// degrades gracefully: no beats means even cuts, and duration comes from
// ffprobe on the downloaded audio instead.
// ---------------------------------------------------------------------------

const analyzerTimeout = 120 * time.Second

type Analyzer struct {
	baseURL string
	client  *http.Client
}

// NewAnalyzer returns a client for the analysis service, or nil when
// baseURL is empty.
func NewAnalyzer(baseURL string) *Analyzer {
	if baseURL == "" {
		return nil
	}
	return &Analyzer{
		baseURL: baseURL,
		client:  &http.Client{Timeout: analyzerTimeout},
	}
}

type analyzeRequest struct {
	AudioURL  string   `json:"audio_url"`
	StartTime float64  `json:"start_time,omitempty"`
	Duration  *float64 `json:"duration,omitempty"`
}

// Analyze extracts tempo, beats and the energy curve for an audio URL,
// restricted to the given window when duration is non-nil.
func (a *Analyzer) Analyze(ctx context.Context, audioURL string, startTime float64, duration *float64) (*models.AudioAnalysis, error) {
	var result models.AudioAnalysis
	err := a.post(ctx, "/analyze", analyzeRequest{
		AudioURL:  audioURL,
		StartTime: startTime,
		Duration:  duration,
	}, &result)
	if err != nil {
		return nil, err
	}

	log.Printf("[Analyzer] %s: bpm=%d beats=%d duration=%.2fs vibe=%s",
		audioURL, result.BPM, len(result.BeatTimes), result.Duration, result.SuggestedVibe)
	return &result, nil
}

type bestSegmentRequest struct {
	AudioURL       string  `json:"audio_url"`
	TargetDuration float64 `json:"target_duration"`
}

// FindBestSegment asks the analyzer for the most energetic window of the
// given length, typically the hook of a track.
func (a *Analyzer) FindBestSegment(ctx context.Context, audioURL string, targetDuration float64) (*models.AudioSegment, error) {
	var result models.AudioSegment
	err := a.post(ctx, "/best-segment", bestSegmentRequest{
		AudioURL:       audioURL,
		TargetDuration: targetDuration,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (a *Analyzer) post(ctx context.Context, path string, payload, out interface{}) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal analyzer request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", a.baseURL+path, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create analyzer request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("analyzer request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("analyzer returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse analyzer response: %w", err)
	}
	return nil
}
