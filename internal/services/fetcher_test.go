package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFetcherSendsBrowserHeaders(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte("imagedata"))
	}))
	defer srv.Close()

	f := NewFetcher(nil)
	data, err := f.Fetch(context.Background(), srv.URL+"/img.jpg")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if string(data) != "imagedata" {
		t.Errorf("body = %q", data)
	}
	if gotUA != browserUserAgent {
		t.Errorf("User-Agent = %q, want the browser UA", gotUA)
	}
}

func TestFetcherRetriesServerErrors(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := NewFetcher(nil)
	data, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("fetch after retries: %v", err)
	}
	if string(data) != "ok" || attempts != 3 {
		t.Errorf("data=%q attempts=%d", data, attempts)
	}
}

func TestFetcherGivesUpAfterRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewFetcher(nil)
	if _, err := f.Fetch(context.Background(), srv.URL); err == nil {
		t.Fatal("expected error after exhausting retries")
	}
}

func TestFetcherVerify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/good.jpg":
			w.Header().Set("Content-Type", "image/jpeg")
		case "/page.html":
			w.Header().Set("Content-Type", "text/html")
		case "/gone.jpg":
			w.WriteHeader(http.StatusNotFound)
		case "/no-head.jpg":
			if r.Method == http.MethodHead {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			w.Header().Set("Content-Type", "image/png")
		}
	}))
	defer srv.Close()

	f := NewFetcher(nil)
	ctx := context.Background()

	if !f.Verify(ctx, srv.URL+"/good.jpg") {
		t.Error("good image rejected")
	}
	if f.Verify(ctx, srv.URL+"/page.html") {
		t.Error("HTML page accepted as image")
	}
	if f.Verify(ctx, srv.URL+"/gone.jpg") {
		t.Error("404 accepted")
	}
	if !f.Verify(ctx, srv.URL+"/no-head.jpg") {
		t.Error("host rejecting HEAD should pass via ranged GET")
	}
}
