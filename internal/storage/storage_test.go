package storage

import (
	"testing"
	"time"
)

func TestPublicURL(t *testing.T) {
	c := New("https://store.example.com/", "key", "videos")

	got := c.PublicURL("", "compose/brand/j1.mp4")
	want := "https://store.example.com/storage/v1/object/public/videos/compose/brand/j1.mp4"
	if got != want {
		t.Errorf("PublicURL = %q, want %q", got, want)
	}

	got = c.PublicURL("other", "k.mp4")
	if got != "https://store.example.com/storage/v1/object/public/other/k.mp4" {
		t.Errorf("bucket override ignored: %q", got)
	}
}

func TestIsOwnURL(t *testing.T) {
	c := New("https://store.example.com", "key", "videos")

	if !c.IsOwnURL("https://store.example.com/storage/v1/object/public/videos/a.jpg") {
		t.Error("own URL not recognized")
	}
	if c.IsOwnURL("https://elsewhere.example.com/a.jpg") {
		t.Error("foreign URL claimed as own")
	}

	empty := New("", "", "videos")
	if empty.IsOwnURL("https://anything.example.com/a.jpg") {
		t.Error("unconfigured client must own nothing")
	}
}

func TestParseOwnURL(t *testing.T) {
	c := New("https://store.example.com", "key", "videos")

	tests := []struct {
		url, bucket, key string
		wantErr          bool
	}{
		{"https://store.example.com/storage/v1/object/public/videos/compose/a/j.mp4", "videos", "compose/a/j.mp4", false},
		{"https://store.example.com/storage/v1/object/assets/img/1.jpg", "assets", "img/1.jpg", false},
		{"https://store.example.com/storage/v1/object/public/videos", "", "", true},
		{"https://store.example.com/other/path", "", "", true},
	}
	for _, tt := range tests {
		bucket, key, err := c.ParseOwnURL(tt.url)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseOwnURL(%q) succeeded, want error", tt.url)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseOwnURL(%q): %v", tt.url, err)
			continue
		}
		if bucket != tt.bucket || key != tt.key {
			t.Errorf("ParseOwnURL(%q) = %q/%q, want %q/%q", tt.url, bucket, key, tt.bucket, tt.key)
		}
	}
}

func TestOutputKey(t *testing.T) {
	if got := OutputKey("summer-launch", "j1"); got != "compose/summer-launch/j1.mp4" {
		t.Errorf("OutputKey = %q", got)
	}
	if got := OutputKey("", "j2"); got != "compose/auto-compose/j2.mp4" {
		t.Errorf("OutputKey with empty campaign = %q", got)
	}
}

func TestRetryDelayBackoff(t *testing.T) {
	for attempt := 1; attempt <= 8; attempt++ {
		d := retryDelay(attempt)
		base := time.Duration(float64(baseRetryDelay) * float64(int(1)<<uint(attempt-1)))
		if base > maxRetryDelay {
			base = maxRetryDelay
		}
		if d < base || d > base+base/4 {
			t.Errorf("attempt %d: delay %v outside [%v, %v]", attempt, d, base, base+base/4)
		}
	}
}

func TestIsRetryableStatus(t *testing.T) {
	for _, code := range []int{408, 429, 502, 503, 504} {
		if !isRetryableStatus(code) {
			t.Errorf("status %d should be retryable", code)
		}
	}
	for _, code := range []int{400, 401, 403, 404, 413, 500} {
		if isRetryableStatus(code) {
			t.Errorf("status %d should not be retryable", code)
		}
	}
}
