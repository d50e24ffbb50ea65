package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ModawnAI/hydra-compose-runpod/internal/models"
)

const remoteTimeout = 120 * time.Second

// Remote submits renders to a remote worker cluster over HTTP. The worker
// accepts a job payload on its submit URL and returns a call id; its status
// URL answers 202 while the render runs and 200 with a result when done.
type Remote struct {
	name      string
	submitURL string
	statusURL string
	useGPU    bool
	client    *http.Client
}

func NewRemote(name, submitURL, statusURL string, useGPU bool) *Remote {
	return &Remote{
		name:      name,
		submitURL: submitURL,
		statusURL: statusURL,
		useGPU:    useGPU,
		client:    &http.Client{Timeout: remoteTimeout},
	}
}

func (r *Remote) Name() string { return r.name }

// remoteJobPayload is the wire shape the worker expects. Enum fields go
// back out as their string forms.
type remoteJobPayload struct {
	JobID       string                `json:"job_id"`
	Images      []models.ImageAsset   `json:"images"`
	Audio       models.AudioAsset     `json:"audio"`
	Captions    []models.CaptionLine  `json:"script,omitempty"`
	Settings    remoteSettingsPayload `json:"settings"`
	Output      models.OutputSettings `json:"output"`
	CallbackURL string                `json:"callback_url,omitempty"`
	UseGPU      bool                  `json:"use_gpu"`
}

type remoteSettingsPayload struct {
	Vibe           string  `json:"vibe"`
	Transition     string  `json:"transition_type"`
	AspectRatio    string  `json:"aspect_ratio"`
	TargetDuration float64 `json:"target_duration,omitempty"`
	TextStyle      string  `json:"text_style"`
	ColorGrade     string  `json:"color_grade"`
}

func (r *Remote) Submit(ctx context.Context, req *models.RenderRequest) (string, error) {
	payload := remoteJobPayload{
		JobID:    req.JobID,
		Images:   req.Images,
		Audio:    req.Audio,
		Captions: req.Captions,
		Settings: remoteSettingsPayload{
			Vibe:           string(req.Settings.Vibe),
			Transition:     string(req.Settings.Transition),
			AspectRatio:    string(req.Settings.AspectRatio),
			TargetDuration: req.Settings.TargetDuration,
			TextStyle:      string(req.Settings.TextStyle),
			ColorGrade:     string(req.Settings.ColorGrade),
		},
		Output:      req.Output,
		CallbackURL: req.CallbackURL,
		UseGPU:      r.useGPU,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal remote payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", r.submitURL, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create submit request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("remote submit failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("remote submit returned status %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		CallID string `json:"call_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to parse submit response: %w", err)
	}
	if result.CallID == "" {
		return "", fmt.Errorf("remote submit returned no call_id")
	}
	return result.CallID, nil
}

func (r *Remote) Poll(ctx context.Context, handle string) (*PollResult, error) {
	url := fmt.Sprintf("%s?call_id=%s", r.statusURL, handle)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create status request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("remote status failed: %w", err)
	}
	defer resp.Body.Close()

	// 202 means the worker is still rendering.
	if resp.StatusCode == http.StatusAccepted {
		return &PollResult{Status: StatusProcessing}, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("remote status returned %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		Status string `json:"status"`
		Result struct {
			OutputURL string `json:"output_url"`
			Error     string `json:"error"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to parse status response: %w", err)
	}

	switch result.Status {
	case "completed", "success":
		return &PollResult{Status: StatusCompleted, OutputURL: result.Result.OutputURL, Progress: 100}, nil
	case "failed", "error":
		msg := result.Result.Error
		if msg == "" {
			msg = "remote render failed"
		}
		return &PollResult{Status: StatusFailed, Error: msg}, nil
	case "queued":
		return &PollResult{Status: StatusQueued}, nil
	default:
		return &PollResult{Status: StatusProcessing}, nil
	}
}
