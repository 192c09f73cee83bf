package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"podcast-digest/pkg/domain"
)

func TestFetch_OK(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte("<rss></rss>"))
	}))
	defer server.Close()

	client := NewClient(CloudflareClient, 0)
	body, contentType, err := client.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if string(body) != "<rss></rss>" {
		t.Errorf("unexpected body %q", body)
	}
	if contentType != "application/rss+xml" {
		t.Errorf("unexpected content type %q", contentType)
	}
	if gotUA != "curl/8.7.1" {
		t.Errorf("expected curl user agent, got %q", gotUA)
	}
}

func TestFetch_StatusClassification(t *testing.T) {
	tests := []struct {
		status    int
		retryable bool
	}{
		{http.StatusServiceUnavailable, true},
		{http.StatusTooManyRequests, true},
		{http.StatusRequestTimeout, true},
		{http.StatusForbidden, false},
		{http.StatusNotFound, false},
	}

	for _, tt := range tests {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))

		_, _, err := NewClient(BrowserClient, 0).Fetch(context.Background(), server.URL)
		server.Close()

		if err == nil {
			t.Fatalf("status %d: expected error", tt.status)
		}
		if got := errors.Is(err, domain.ErrSourceUnavailable); got != tt.retryable {
			t.Errorf("status %d: retryable = %v, want %v", tt.status, got, tt.retryable)
		}
		if !IsStatus(err, tt.status) {
			t.Errorf("status %d: expected StatusError carrying the code, got %v", tt.status, err)
		}
	}
}

func TestFetch_NetworkErrorIsRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, _, err := NewClient(FeedClient, 0).Fetch(context.Background(), url)
	if !errors.Is(err, domain.ErrSourceUnavailable) {
		t.Errorf("expected ErrSourceUnavailable for a closed server, got %v", err)
	}
}

func TestFetch_BodyLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("a", 16)))
	}))
	defer server.Close()

	// Test Case 1: a body exactly at the limit is returned whole
	client := NewClient(BrowserClient, 0)
	client.maxBody = 16
	body, _, err := client.Fetch(context.Background(), server.URL)
	if err != nil || len(body) != 16 {
		t.Fatalf("Test Case 1: Fetch() = %d bytes, %v", len(body), err)
	}

	// Test Case 2: one byte over the limit fails instead of truncating
	client.maxBody = 15
	body, _, err = client.Fetch(context.Background(), server.URL)
	if !errors.Is(err, ErrBodyTooLarge) {
		t.Fatalf("Test Case 2: expected ErrBodyTooLarge, got %d bytes, %v", len(body), err)
	}
	if body != nil {
		t.Errorf("Test Case 2: expected no body, got %d bytes", len(body))
	}
	if errors.Is(err, domain.ErrSourceUnavailable) {
		t.Errorf("Test Case 2: an oversized body should not be retried: %v", err)
	}
}
