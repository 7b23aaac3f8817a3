package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/imagetoprompts/naimeta/internal/providers"
)

func TestDescribeImage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("Unexpected authorization header %q", r.Header.Get("Authorization"))
		}
		var body struct {
			Messages []struct {
				Content []struct {
					Type     string `json:"type"`
					ImageURL struct {
						URL string `json:"url"`
					} `json:"image_url"`
				} `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("Failed to decode request: %v", err)
			return
		}
		if len(body.Messages) != 1 || len(body.Messages[0].Content) != 2 {
			t.Errorf("Unexpected message shape: %+v", body)
			return
		}
		if url := body.Messages[0].Content[1].ImageURL.URL; !strings.HasPrefix(url, "data:image/webp;base64,") {
			t.Errorf("Expected webp data URL, got %s", url)
		}
		_, _ = w.Write([]byte(`{"choices": [{"message": {"content": "1boy, armor"}}]}`))
	}))
	defer server.Close()

	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENAI_BASE_URL", server.URL)

	got, err := New().DescribeImage(context.Background(), providers.Config{
		Model:    "gpt-4o",
		Image:    []byte("img"),
		MIMEType: "image/webp",
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got != "1boy, armor" {
		t.Errorf("Expected caption, got %q", got)
	}
}

func TestDescribeImageRequiresKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	if _, err := New().DescribeImage(context.Background(), providers.Config{}); err == nil {
		t.Error("Expected error without API key")
	}
}
