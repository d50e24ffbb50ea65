package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ModawnAI/hydra-compose-runpod/internal/models"
)

// ---------------------------------------------------------------------------
// Image Search Client
// Uses the Google Custom Search JSON API to find product/brand imagery for
// auto-composed videos. The API serves at most 10 results per request, so
// larger counts are paged.
// ---------------------------------------------------------------------------

const (
	googleSearchEndpoint = "https://www.googleapis.com/customsearch/v1"
	searchTimeout        = 30 * time.Second
	searchPageSize       = 10
)

type ImageSearch struct {
	apiKey   string
	cx       string
	endpoint string
	client   *http.Client
}

// NewImageSearch returns a search client, or nil when the API key or search
// engine id is missing.
func NewImageSearch(apiKey, cx string) *ImageSearch {
	if apiKey == "" || cx == "" {
		return nil
	}
	return &ImageSearch{
		apiKey:   apiKey,
		cx:       cx,
		endpoint: googleSearchEndpoint,
		client:   &http.Client{Timeout: searchTimeout},
	}
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

type googleSearchResponse struct {
	Items []struct {
		Link  string `json:"link"`
		Title string `json:"title"`
		Image struct {
			Width         int    `json:"width"`
			Height        int    `json:"height"`
			ThumbnailLink string `json:"thumbnailLink"`
		} `json:"image"`
	} `json:"items"`
}

// Search returns up to count image candidates matching query, keeping only
// images whose smaller edge is at least minResolution pixels. Pass 0 to
// skip the resolution filter.
func (s *ImageSearch) Search(ctx context.Context, query string, count, minResolution int) ([]models.ImageCandidate, error) {
	if count <= 0 {
		count = searchPageSize
	}

	var out []models.ImageCandidate
	for start := 1; len(out) < count && start <= 91; start += searchPageSize {
		page, err := s.searchPage(ctx, query, start)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}
		for _, c := range page {
			if minResolution > 0 && (c.Width < minResolution || c.Height < minResolution) {
				continue
			}
			out = append(out, c)
			if len(out) == count {
				break
			}
		}
	}

	log.Printf("[ImageSearch] %q: %d candidates (min resolution %dpx)", query, len(out), minResolution)
	return out, nil
}

func (s *ImageSearch) searchPage(ctx context.Context, query string, start int) ([]models.ImageCandidate, error) {
	params := url.Values{}
	params.Set("key", s.apiKey)
	params.Set("cx", s.cx)
	params.Set("q", query)
	params.Set("searchType", "image")
	params.Set("num", strconv.Itoa(searchPageSize))
	params.Set("start", strconv.Itoa(start))
	params.Set("safe", "active")

	req, err := http.NewRequestWithContext(ctx, "GET", s.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("image search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("image search returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed googleSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}

	candidates := make([]models.ImageCandidate, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		candidates = append(candidates, models.ImageCandidate{
			SourceURL:    item.Link,
			ThumbnailURL: item.Image.ThumbnailLink,
			Title:        item.Title,
			Domain:       hostOf(item.Link),
			Width:        item.Image.Width,
			Height:       item.Image.Height,
		})
	}
	return candidates, nil
}
