package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestMistralOCRClient_ProcessImage(t *testing.T) {
	t.Run("successful OCR", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/ocr" {
				t.Errorf("unexpected path: %s", r.URL.Path)
			}
			if r.Method != "POST" {
				t.Errorf("unexpected method: %s", r.Method)
			}
			if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
				t.Errorf("unexpected authorization: %s", auth)
			}

			var req mistralOCRRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("failed to decode request: %v", err)
			}
			if req.Document.Type != "image_url" {
				t.Errorf("unexpected document type: %s", req.Document.Type)
			}
			if !strings.HasPrefix(req.Document.ImageURL.URL, "data:image/jpeg;base64,") {
				t.Error("image URL is not a base64 data URL")
			}

			resp := mistralOCRResponse{
				Model: "mistral-ocr-latest",
				Pages: []mistralOCRPage{
					{
						Index:      0,
						Markdown:   "Questão 1\n\nQual é a capital do Brasil?",
						Dimensions: mistralPageDimensions{Width: 1700, Height: 2200, DPI: 300},
					},
				},
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(resp)
		}))
		defer server.Close()

		client := NewMistralOCRClient(MistralOCRConfig{
			APIKey:  "test-key",
			BaseURL: server.URL,
		})

		result, err := client.ProcessImage(context.Background(), []byte("fake image data"), 3)
		if err != nil {
			t.Fatalf("ProcessImage() error = %v", err)
		}
		if !result.Success {
			t.Error("expected Success = true")
		}
		if result.Text != "Questão 1\n\nQual é a capital do Brasil?" {
			t.Errorf("unexpected text: %q", result.Text)
		}
		if result.Metadata["page_num"] != 3 {
			t.Errorf("unexpected page_num metadata: %v", result.Metadata["page_num"])
		}
	})

	t.Run("API error with message", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]string{"message": "invalid api key", "type": "auth_error"},
			})
		}))
		defer server.Close()

		client := NewMistralOCRClient(MistralOCRConfig{APIKey: "bad", BaseURL: server.URL})

		result, err := client.ProcessImage(context.Background(), []byte("img"), 1)
		if err == nil {
			t.Fatal("expected error")
		}
		if result.Success {
			t.Error("expected Success = false")
		}
		if !strings.Contains(err.Error(), "invalid api key") {
			t.Errorf("error should carry the API message, got: %v", err)
		}
	})

	t.Run("empty pages", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(mistralOCRResponse{Model: "mistral-ocr-latest"})
		}))
		defer server.Close()

		client := NewMistralOCRClient(MistralOCRConfig{APIKey: "k", BaseURL: server.URL})

		if _, err := client.ProcessImage(context.Background(), []byte("img"), 1); err == nil {
			t.Fatal("expected error for empty pages")
		}
	})
}

func TestMistralOCRClientDefaults(t *testing.T) {
	client := NewMistralOCRClient(MistralOCRConfig{APIKey: "k"})

	if client.Name() != MistralOCRName {
		t.Errorf("Name() = %q", client.Name())
	}
	if client.RequestsPerSecond() != 6.0 {
		t.Errorf("RequestsPerSecond() = %v, want 6.0", client.RequestsPerSecond())
	}
	if client.MaxRetries() != 3 {
		t.Errorf("MaxRetries() = %d, want 3", client.MaxRetries())
	}
}
