package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ModawnAI/hydra-compose-runpod/internal/api"
	"github.com/ModawnAI/hydra-compose-runpod/internal/backend"
	"github.com/ModawnAI/hydra-compose-runpod/internal/config"
	"github.com/ModawnAI/hydra-compose-runpod/internal/gate"
	"github.com/ModawnAI/hydra-compose-runpod/internal/jobstore"
	"github.com/ModawnAI/hydra-compose-runpod/internal/pipeline"
	"github.com/ModawnAI/hydra-compose-runpod/internal/progress"
	"github.com/ModawnAI/hydra-compose-runpod/internal/services"
	"github.com/ModawnAI/hydra-compose-runpod/internal/storage"
)

func main() {
	log.Println("Starting Compose API...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Job store: Redis when configured and reachable, otherwise an explicit
	// in-memory fallback that loses records on restart.
	var store jobstore.Store
	if cfg.RedisURL != "" {
		redisStore, err := jobstore.NewRedis(cfg.RedisURL)
		if err != nil {
			log.Printf("WARNING: Redis unavailable (%v) — job records will not survive restarts", err)
			store = jobstore.NewMemory()
		} else {
			store = redisStore
			log.Println("Connected to Redis job store")
		}
	} else {
		log.Println("WARNING: No REDIS_URL set — using in-memory job store, records will not survive restarts")
		store = jobstore.NewMemory()
	}
	defer store.Close()

	// Object storage
	stor := storage.New(cfg.StorageURL, cfg.StorageServiceKey, cfg.StorageBucket)
	log.Printf("Initialized object storage (bucket: %s)", cfg.StorageBucket)

	// Services
	fetcher := services.NewFetcher(stor)
	engine := services.NewEngine(cfg.TempDir, cfg.UseNVENC)
	if cfg.UseNVENC {
		log.Println("Encoder: h264_nvenc")
	} else {
		log.Println("Encoder: libx264")
	}

	analyzer := services.NewAnalyzer(cfg.AnalyzerURL)
	if analyzer == nil {
		log.Println("Audio analyzer not configured — cuts fall back to even spacing")
	}

	search := services.NewImageSearch(cfg.GoogleSearchAPIKey, cfg.GoogleSearchCX)
	if search == nil {
		log.Println("Image search not configured — auto-compose disabled")
	}

	// Progress plumbing: one hub, a store updater and a webhook notifier.
	baseCtx, stop := context.WithCancel(context.Background())
	defer stop()

	hub := progress.NewHub()
	go progress.RunStoreUpdater(baseCtx, hub.Subscribe(256), store)
	go pipeline.NewNotifier().Run(baseCtx, hub.Subscribe(256))

	renderGate := gate.New(cfg.MaxConcurrentRenders)
	log.Printf("Render gate capacity: %d", renderGate.Capacity())

	orch := pipeline.NewOrchestrator(store, stor, fetcher, analyzer, engine, search, renderGate, hub)

	// Remote backends
	var gpuBackend, cpuBackend *backend.Remote
	if cfg.RemoteGPUSubmitURL != "" && cfg.RemoteGPUStatusURL != "" {
		gpuBackend = backend.NewRemote("gpu", cfg.RemoteGPUSubmitURL, cfg.RemoteGPUStatusURL, true)
		log.Println("Remote GPU backend configured")
	}
	if cfg.RemoteCPUSubmitURL != "" && cfg.RemoteCPUStatusURL != "" {
		cpuBackend = backend.NewRemote("cpu", cfg.RemoteCPUSubmitURL, cfg.RemoteCPUStatusURL, false)
		log.Println("Remote CPU backend configured")
	}
	log.Printf("Default render backend: %s", cfg.RenderBackend)

	// API
	handler := api.NewHandler(baseCtx, store, orch, analyzer, search, gpuBackend, cpuBackend, cfg.RenderBackend)
	router := api.NewRouter(handler, api.RouterConfig{
		BackendAPIKey:      cfg.BackendAPIKey,
		CorsAllowedOrigins: cfg.CorsAllowedOrigins,
	})

	if cfg.BackendAPIKey != "" {
		log.Println("API key authentication enabled")
	} else {
		log.Println("WARNING: No BACKEND_API_KEY set — API is unprotected (dev mode)")
	}

	server := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: router,
	}

	go func() {
		log.Printf("API server listening on :%s", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	// Stop background consumers after the server has drained.
	stop()

	log.Println("Server exited")
}
