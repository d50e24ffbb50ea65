package services

import (
	"context"
	"fmt"
	"io"
	"log"
	"math"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/ModawnAI/hydra-compose-runpod/internal/storage"
)

// ---------------------------------------------------------------------------
// Asset Fetcher
// Downloads job inputs (images, audio) from arbitrary HTTP URLs or from the
// service's own object store. Many image hosts reject requests without a
// browser-like User-Agent, so external fetches masquerade as one.
// ---------------------------------------------------------------------------

const (
	fetchTimeout       = 60 * time.Second
	fetchMaxRetries    = 3
	fetchBaseDelay     = 1 * time.Second
	fetchMaxDelay      = 15 * time.Second
	browserUserAgent   = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	browserAcceptImage = "image/avif,image/webp,image/apng,image/*,*/*;q=0.8"
)

// Fetcher downloads remote assets. store may be nil when no object store is
// configured; own-store URLs then fall back to plain HTTP.
type Fetcher struct {
	store  *storage.Client
	client *http.Client
}

func NewFetcher(store *storage.Client) *Fetcher {
	return &Fetcher{
		store: store,
		client: &http.Client{
			Timeout: fetchTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// Fetch downloads the asset at rawURL. URLs pointing at the service's own
// object store go through the authenticated storage client so private
// buckets work too.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if f.store != nil && f.store.IsOwnURL(rawURL) {
		bucket, key, err := f.store.ParseOwnURL(rawURL)
		if err == nil {
			return f.store.Download(ctx, bucket, key)
		}
		log.Printf("[Fetcher] %v, falling back to plain HTTP", err)
	}

	var lastErr error
	for attempt := 0; attempt <= fetchMaxRetries; attempt++ {
		if attempt > 0 {
			delay := fetchRetryDelay(attempt)
			log.Printf("[Fetcher] Retry %d/%d for %s (waiting %v)...", attempt, fetchMaxRetries, rawURL, delay)
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("fetch cancelled: %w", ctx.Err())
			case <-time.After(delay):
			}
		}

		data, err := f.fetchOnce(ctx, rawURL)
		if err == nil {
			return data, nil
		}
		lastErr = err
		log.Printf("[Fetcher] Attempt %d failed for %s: %v", attempt+1, rawURL, err)
	}

	return nil, fmt.Errorf("failed to fetch %s after %d attempts: %w", rawURL, fetchMaxRetries+1, lastErr)
}

func (f *Fetcher) fetchOnce(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	setBrowserHeaders(req)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty response body")
	}
	return data, nil
}

// Verify issues a HEAD request to check that rawURL serves an image. Hosts
// that reject HEAD (405) get one ranged GET as a second opinion.
func (f *Fetcher) Verify(ctx context.Context, rawURL string) bool {
	req, err := http.NewRequestWithContext(ctx, "HEAD", rawURL, nil)
	if err != nil {
		return false
	}
	setBrowserHeaders(req)

	resp, err := f.client.Do(req)
	if err != nil {
		return false
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if resp.StatusCode == http.StatusMethodNotAllowed {
		return f.verifyByRangedGet(ctx, rawURL)
	}
	if resp.StatusCode != http.StatusOK {
		return false
	}
	ct := resp.Header.Get("Content-Type")
	return ct == "" || strings.HasPrefix(ct, "image/")
}

func (f *Fetcher) verifyByRangedGet(ctx context.Context, rawURL string) bool {
	req, err := http.NewRequestWithContext(ctx, "GET", rawURL, nil)
	if err != nil {
		return false
	}
	setBrowserHeaders(req)
	req.Header.Set("Range", "bytes=0-1023")

	resp, err := f.client.Do(req)
	if err != nil {
		return false
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusPartialContent
}

func setBrowserHeaders(req *http.Request) {
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", browserAcceptImage)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
}

func fetchRetryDelay(attempt int) time.Duration {
	delay := float64(fetchBaseDelay) * math.Pow(2, float64(attempt-1))
	if delay > float64(fetchMaxDelay) {
		delay = float64(fetchMaxDelay)
	}
	jitter := delay * 0.25 * rand.Float64()
	return time.Duration(delay + jitter)
}
