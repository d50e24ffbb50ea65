package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
)

func searchItem(link string, w, h int) map[string]interface{} {
	return map[string]interface{}{
		"link":  link,
		"title": "item",
		"image": map[string]interface{}{
			"width":         w,
			"height":        h,
			"thumbnailLink": link + "?thumb",
		},
	}
}

func testSearchClient(srv *httptest.Server) *ImageSearch {
	s := NewImageSearch("key", "cx")
	s.endpoint = srv.URL
	return s
}

func TestSearchFiltersByResolution(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("searchType") != "image" || r.URL.Query().Get("safe") != "active" {
			t.Errorf("query params = %v", r.URL.Query())
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"items": []map[string]interface{}{
				searchItem("https://a.example.com/big.jpg", 1200, 800),
				searchItem("https://b.example.com/small.jpg", 640, 480),
				searchItem("https://c.example.com/tall.jpg", 720, 1280),
			},
		})
	}))
	defer srv.Close()

	got, err := testSearchClient(srv).Search(context.Background(), "sneakers", 10, 720)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d candidates, want 2 (min edge 720)", len(got))
	}
	if got[0].SourceURL != "https://a.example.com/big.jpg" || got[0].Domain != "a.example.com" {
		t.Errorf("first candidate = %+v", got[0])
	}
	if got[1].ThumbnailURL != "https://c.example.com/tall.jpg?thumb" {
		t.Errorf("thumbnail = %q", got[1].ThumbnailURL)
	}
}

func TestSearchPagesUntilCount(t *testing.T) {
	var starts []int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start, _ := strconv.Atoi(r.URL.Query().Get("start"))
		starts = append(starts, start)
		items := make([]map[string]interface{}, 10)
		for i := range items {
			items[i] = searchItem(fmt.Sprintf("https://img.example.com/%d-%d.jpg", start, i), 1080, 1080)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"items": items})
	}))
	defer srv.Close()

	got, err := testSearchClient(srv).Search(context.Background(), "sneakers", 15, 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 15 {
		t.Errorf("got %d candidates, want 15", len(got))
	}
	if len(starts) != 2 || starts[0] != 1 || starts[1] != 11 {
		t.Errorf("page starts = %v, want [1 11]", starts)
	}
}

func TestSearchStopsOnEmptyPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{})
	}))
	defer srv.Close()

	got, err := testSearchClient(srv).Search(context.Background(), "obscure query", 10, 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d candidates, want 0", len(got))
	}
}

func TestSearchErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	if _, err := testSearchClient(srv).Search(context.Background(), "sneakers", 10, 0); err == nil {
		t.Fatal("expected error on non-200 response")
	}
}

func TestNewImageSearchUnconfigured(t *testing.T) {
	if NewImageSearch("", "cx") != nil || NewImageSearch("key", "") != nil {
		t.Error("expected nil client when key or cx is missing")
	}
}
