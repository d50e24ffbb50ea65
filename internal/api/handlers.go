package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ModawnAI/hydra-compose-runpod/internal/backend"
	"github.com/ModawnAI/hydra-compose-runpod/internal/jobstore"
	"github.com/ModawnAI/hydra-compose-runpod/internal/models"
	"github.com/ModawnAI/hydra-compose-runpod/internal/pipeline"
	"github.com/ModawnAI/hydra-compose-runpod/internal/preset"
	"github.com/ModawnAI/hydra-compose-runpod/internal/services"
)

type Handler struct {
	store    jobstore.Store
	orch     *pipeline.Orchestrator
	analyzer *services.Analyzer
	search   *services.ImageSearch

	// local runs renders in-process; always available.
	local *backend.Local

	// Remote backends; nil when not configured.
	gpuBackend *backend.Remote
	cpuBackend *backend.Remote

	// defaultMode is local, gpu, cpu or auto.
	defaultMode string

	// baseCtx outlives individual requests; async renders run under it so
	// a closed client connection doesn't kill the job.
	baseCtx context.Context
}

func NewHandler(
	baseCtx context.Context,
	store jobstore.Store,
	orch *pipeline.Orchestrator,
	analyzer *services.Analyzer,
	search *services.ImageSearch,
	gpuBackend, cpuBackend *backend.Remote,
	defaultMode string,
) *Handler {
	if defaultMode == "" {
		defaultMode = "local"
	}
	return &Handler{
		store:       store,
		orch:        orch,
		local:       backend.NewLocal(baseCtx, orch, store),
		analyzer:    analyzer,
		search:      search,
		gpuBackend:  gpuBackend,
		cpuBackend:  cpuBackend,
		defaultMode: defaultMode,
		baseCtx:     baseCtx,
	}
}

// StartRender handles POST /v1/render — accepts a job and returns 202
// immediately; progress is observable via GET /v1/jobs/{id}.
func (h *Handler) StartRender(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parseRenderRequest(w, r)
	if !ok {
		return
	}

	h.dispatch(h.resolveBackend(r.URL.Query().Get("backend")), req)

	respondJSON(w, http.StatusAccepted, models.RenderResponse{
		Status: "queued",
		JobID:  req.JobID,
	})
}

// RenderSync handles POST /v1/render/sync — runs the render inline and
// answers with the finished output URL. Meant for tests and small jobs;
// the request is held open for the duration.
func (h *Handler) RenderSync(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parseRenderRequest(w, r)
	if !ok {
		return
	}

	outputURL, err := h.orch.Render(r.Context(), req)
	if err != nil {
		respondJSON(w, http.StatusInternalServerError, map[string]string{
			"status": "failed",
			"job_id": req.JobID,
			"error":  err.Error(),
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"status":     "completed",
		"job_id":     req.JobID,
		"output_url": outputURL,
	})
}

// StartRemoteRender handles POST /v1/render/remote — forces the job onto a
// remote worker. ?gpu=false selects the CPU pool; default is GPU.
func (h *Handler) StartRemoteRender(w http.ResponseWriter, r *http.Request) {
	useGPU := r.URL.Query().Get("gpu") != "false"

	var b *backend.Remote
	if useGPU {
		b = h.gpuBackend
	} else {
		b = h.cpuBackend
	}
	if b == nil {
		respondError(w, http.StatusServiceUnavailable, "Requested remote backend is not configured")
		return
	}

	req, ok := h.parseRenderRequest(w, r)
	if !ok {
		return
	}

	go func() {
		if _, err := h.orch.RunRemote(h.baseCtx, b, req); err != nil {
			log.Printf("[API] [%s] remote render failed: %v", req.JobID, err)
		}
	}()

	respondJSON(w, http.StatusAccepted, models.RenderResponse{
		Status:  "queued",
		JobID:   req.JobID,
		Message: "submitted to " + b.Name() + " backend",
	})
}

// AutoCompose handles POST /v1/auto-compose — builds a video from an image
// search query plus an audio track.
func (h *Handler) AutoCompose(w http.ResponseWriter, r *http.Request) {
	var in models.AutoComposeInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req, err := in.Parse()
	if err != nil {
		respondValidationError(w, err)
		return
	}

	if err := h.store.Create(r.Context(), req.JobID, map[string]interface{}{
		"mode":         "auto-compose",
		"search_query": req.SearchQuery,
		"vibe":         string(req.Settings.Vibe),
	}); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to create job")
		return
	}

	go func() {
		if _, err := h.orch.AutoCompose(h.baseCtx, req); err != nil {
			log.Printf("[API] [%s] auto-compose failed: %v", req.JobID, err)
		}
	}()

	respondJSON(w, http.StatusAccepted, models.AutoComposeResponse{
		Status: "queued",
		JobID:  req.JobID,
	})
}

// GetJobStatus handles GET /v1/jobs/{jobID}.
func (h *Handler) GetJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	rec, err := h.store.Get(r.Context(), jobID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to read job")
		return
	}
	if rec == nil {
		respondError(w, http.StatusNotFound, "Job not found")
		return
	}

	respondJSON(w, http.StatusOK, models.JobStatusResponse{
		JobID:       rec.JobID,
		Status:      rec.Status,
		Progress:    rec.Progress,
		CurrentStep: rec.CurrentStep,
		OutputURL:   rec.OutputURL,
		Error:       rec.Error,
	})
}

// DeleteJob handles DELETE /v1/jobs/{jobID}. Deleting removes the record
// only; an in-flight render keeps running but its late updates are
// discarded by the store.
func (h *Handler) DeleteJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	if err := h.store.Delete(r.Context(), jobID); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to delete job")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"status": "deleted",
		"job_id": jobID,
	})
}

// ListPresets handles GET /v1/presets.
func (h *Handler) ListPresets(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"presets": preset.All(),
	})
}

// AnalyzeAudio handles POST /v1/audio/analyze.
func (h *Handler) AnalyzeAudio(w http.ResponseWriter, r *http.Request) {
	if h.analyzer == nil {
		respondError(w, http.StatusServiceUnavailable, "Audio analysis is not configured")
		return
	}

	var in struct {
		AudioURL  string   `json:"audio_url"`
		StartTime float64  `json:"start_time"`
		Duration  *float64 `json:"duration"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if in.AudioURL == "" {
		respondError(w, http.StatusBadRequest, "audio_url is required")
		return
	}

	analysis, err := h.analyzer.Analyze(r.Context(), in.AudioURL, in.StartTime, in.Duration)
	if err != nil {
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, analysis)
}

// BestSegment handles POST /v1/audio/best-segment.
func (h *Handler) BestSegment(w http.ResponseWriter, r *http.Request) {
	if h.analyzer == nil {
		respondError(w, http.StatusServiceUnavailable, "Audio analysis is not configured")
		return
	}

	var in struct {
		AudioURL       string  `json:"audio_url"`
		TargetDuration float64 `json:"target_duration"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if in.AudioURL == "" {
		respondError(w, http.StatusBadRequest, "audio_url is required")
		return
	}
	if in.TargetDuration <= 0 {
		respondError(w, http.StatusBadRequest, "target_duration must be positive")
		return
	}

	seg, err := h.analyzer.FindBestSegment(r.Context(), in.AudioURL, in.TargetDuration)
	if err != nil {
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, seg)
}

// SearchImages handles POST /v1/images/search.
func (h *Handler) SearchImages(w http.ResponseWriter, r *http.Request) {
	if h.search == nil {
		respondError(w, http.StatusServiceUnavailable, "Image search is not configured")
		return
	}

	var in struct {
		Query         string `json:"query"`
		Count         int    `json:"count"`
		MinResolution int    `json:"min_resolution"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if in.Query == "" {
		respondError(w, http.StatusBadRequest, "query is required")
		return
	}

	candidates, err := h.search.Search(r.Context(), in.Query, in.Count, in.MinResolution)
	if err != nil {
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, models.ImageSearchResult{
		Candidates: candidates,
		TotalFound: len(candidates),
		Query:      in.Query,
	})
}

// Health handles GET /health. Reports whether job records survive a
// restart, so operators notice when the service silently fell back to the
// in-memory store.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	store := "memory"
	if h.store.Durable() {
		store = "redis"
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"store":  store,
	})
}

// parseRenderRequest decodes and validates a render submission, creates the
// job record, and reports false after writing the error response.
func (h *Handler) parseRenderRequest(w http.ResponseWriter, r *http.Request) (*models.RenderRequest, bool) {
	var in models.RenderInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return nil, false
	}

	req, err := in.Parse()
	if err != nil {
		respondValidationError(w, err)
		return nil, false
	}

	if err := h.store.Create(r.Context(), req.JobID, map[string]interface{}{
		"vibe":        string(req.Settings.Vibe),
		"image_count": len(req.Images),
	}); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to create job")
		return nil, false
	}
	return req, true
}

// dispatch routes a parsed job to a remote backend or the local one. Both
// paths return before the render finishes.
func (h *Handler) dispatch(b *backend.Remote, req *models.RenderRequest) {
	if b != nil {
		go func() {
			if _, err := h.orch.RunRemote(h.baseCtx, b, req); err != nil {
				log.Printf("[API] [%s] remote render failed: %v", req.JobID, err)
			}
		}()
		return
	}
	if _, err := h.local.Submit(h.baseCtx, req); err != nil {
		log.Printf("[API] [%s] local submit failed: %v", req.JobID, err)
	}
}

// resolveBackend maps a requested mode (or the configured default) to a
// remote backend, nil meaning local. Unconfigured remotes fall back to
// local rather than rejecting the job.
func (h *Handler) resolveBackend(mode string) *backend.Remote {
	if mode == "" {
		mode = h.defaultMode
	}
	switch mode {
	case "gpu":
		return h.gpuBackend
	case "cpu":
		return h.cpuBackend
	case "auto":
		return h.gpuBackend
	default:
		return nil
	}
}

func respondValidationError(w http.ResponseWriter, err error) {
	var ve *models.ValidationError
	if errors.As(err, &ve) {
		respondJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":   ve.Error(),
			"field":   ve.Field,
			"value":   ve.Value,
			"allowed": ve.Allowed,
		})
		return
	}
	respondError(w, http.StatusBadRequest, err.Error())
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
