package transcribe

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"podcast-digest/pkg/domain"
	"podcast-digest/pkg/logging"
)

func TestWhisperClient_Transcribe(t *testing.T) {
	var gotPath, gotModel string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("expected multipart upload: %v", err)
		}
		gotModel = r.FormValue("model")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text":"hello from the episode"}`))
	}))
	defer server.Close()

	client := NewWhisperClient(Config{APIKey: "test", BaseURL: server.URL + "/"}, logging.NewNop())
	text, err := client.Transcribe(context.Background(), []byte{0xFF, 0xFB, 0x90, 0x00}, "chunk-000.mp3")
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if text != "hello from the episode" {
		t.Errorf("Transcribe() = %q", text)
	}
	if !strings.HasSuffix(gotPath, "/audio/transcriptions") {
		t.Errorf("request path = %q", gotPath)
	}
	if gotModel != "whisper-1" {
		t.Errorf("model = %q, want whisper-1", gotModel)
	}
}

func TestWhisperClient_ErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		retryable bool
	}{
		{"server error", http.StatusBadGateway, true},
		{"rate limited", http.StatusTooManyRequests, true},
		{"bad request", http.StatusBadRequest, false},
		{"unauthorized", http.StatusUnauthorized, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"error":{"message":"nope","type":"test"}}`))
			}))
			defer server.Close()

			client := NewWhisperClient(Config{APIKey: "test", BaseURL: server.URL + "/"}, nil)
			_, err := client.Transcribe(context.Background(), []byte("x"), "chunk.mp3")
			if err == nil {
				t.Fatal("expected an error")
			}
			if got := errors.Is(err, domain.ErrSourceUnavailable); got != tt.retryable {
				t.Errorf("errors.Is(err, ErrSourceUnavailable) = %v, want %v (err: %v)", got, tt.retryable, err)
			}
		})
	}
}
