package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	APIPort            string
	BackendAPIKey      string // API key for authenticating requests (empty = no auth, dev mode)
	CorsAllowedOrigins string // Comma-separated allowed origins (empty = *, dev mode)

	// Redis job store. Empty falls back to the in-memory store.
	RedisURL string

	// Object storage (Supabase Storage API)
	StorageURL        string
	StorageServiceKey string
	StorageBucket     string

	// Audio analysis companion service
	AnalyzerURL string

	// Google Custom Search (auto-compose image sourcing)
	GoogleSearchAPIKey string
	GoogleSearchCX     string

	// Remote render workers
	RemoteGPUSubmitURL string
	RemoteGPUStatusURL string
	RemoteCPUSubmitURL string
	RemoteCPUStatusURL string

	// RenderBackend is local, gpu, cpu or auto. auto prefers the GPU
	// worker when configured and falls back to local.
	RenderBackend string

	// Rendering
	MaxConcurrentRenders int
	UseNVENC             bool
	TempDir              string
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	_ = godotenv.Load()

	cfg := &Config{
		APIPort:              getEnv("API_PORT", "8080"),
		BackendAPIKey:        getEnv("BACKEND_API_KEY", ""),
		CorsAllowedOrigins:   getEnv("CORS_ALLOWED_ORIGINS", ""),
		RedisURL:             getEnv("REDIS_URL", ""),
		StorageURL:           getEnv("STORAGE_URL", ""),
		StorageServiceKey:    getEnv("STORAGE_SERVICE_KEY", ""),
		StorageBucket:        getEnv("STORAGE_BUCKET", "compose-videos"),
		AnalyzerURL:          getEnv("ANALYZER_URL", ""),
		GoogleSearchAPIKey:   getEnv("GOOGLE_SEARCH_API_KEY", ""),
		GoogleSearchCX:       getEnv("GOOGLE_SEARCH_CX", ""),
		RemoteGPUSubmitURL:   getEnv("REMOTE_GPU_SUBMIT_URL", ""),
		RemoteGPUStatusURL:   getEnv("REMOTE_GPU_STATUS_URL", ""),
		RemoteCPUSubmitURL:   getEnv("REMOTE_CPU_SUBMIT_URL", ""),
		RemoteCPUStatusURL:   getEnv("REMOTE_CPU_STATUS_URL", ""),
		RenderBackend:        getEnv("RENDER_BACKEND", "local"),
		MaxConcurrentRenders: getEnvInt("MAX_CONCURRENT_RENDERS", 4),
		UseNVENC:             getEnvBool("USE_NVENC", false),
		TempDir:              getEnv("TEMP_DIR", "/tmp/compose"),
	}

	switch cfg.RenderBackend {
	case "local", "gpu", "cpu", "auto":
	default:
		return nil, fmt.Errorf("RENDER_BACKEND must be local, gpu, cpu or auto, got %q", cfg.RenderBackend)
	}

	if cfg.StorageURL == "" || cfg.StorageServiceKey == "" {
		return nil, fmt.Errorf("STORAGE_URL and STORAGE_SERVICE_KEY are required")
	}

	if cfg.RenderBackend == "gpu" && (cfg.RemoteGPUSubmitURL == "" || cfg.RemoteGPUStatusURL == "") {
		return nil, fmt.Errorf("RENDER_BACKEND=gpu requires REMOTE_GPU_SUBMIT_URL and REMOTE_GPU_STATUS_URL")
	}
	if cfg.RenderBackend == "cpu" && (cfg.RemoteCPUSubmitURL == "" || cfg.RemoteCPUStatusURL == "") {
		return nil, fmt.Errorf("RENDER_BACKEND=cpu requires REMOTE_CPU_SUBMIT_URL and REMOTE_CPU_STATUS_URL")
	}

	if cfg.MaxConcurrentRenders < 1 {
		cfg.MaxConcurrentRenders = 1
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		b, err := strconv.ParseBool(value)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		i, err := strconv.Atoi(value)
		if err == nil {
			return i
		}
	}
	return defaultValue
}
