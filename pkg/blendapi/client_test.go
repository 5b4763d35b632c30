package blendapi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/carstage/carstage/pkg/types"
)

func TestBlend(t *testing.T) {
	want := []byte("fake-image-bytes")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/images/blend" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}

		var req blendRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req.Image == "" {
			t.Error("Expected image payload in request")
		}
		if req.Prompt != "blend the car into the scene" {
			t.Errorf("Unexpected prompt %q", req.Prompt)
		}

		json.NewEncoder(w).Encode(blendResponse{
			Image:    base64.StdEncoding.EncodeToString(want),
			MimeType: "image/jpeg",
		})
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	result, err := c.Blend(context.Background(), types.BlendRequest{
		Prompt:   "blend the car into the scene",
		ImageB64: base64.StdEncoding.EncodeToString([]byte("composite")),
	})
	if err != nil {
		t.Fatalf("Blend failed: %v", err)
	}

	if string(result.Data) != string(want) {
		t.Errorf("Unexpected result data %q", result.Data)
	}
	if result.MimeType != "image/jpeg" {
		t.Errorf("Unexpected mime type %q", result.MimeType)
	}
}

func TestBlendServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(blendResponse{Error: "model overloaded"})
	}))
	defer srv.Close()

	c, _ := NewClient(srv.URL)
	_, err := c.Blend(context.Background(), types.BlendRequest{ImageB64: "aGk="})
	if err == nil {
		t.Fatal("Expected error from service failure")
	}
}

func TestBlendHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, _ := NewClient(srv.URL)
	_, err := c.Blend(context.Background(), types.BlendRequest{ImageB64: "aGk="})
	if err == nil {
		t.Fatal("Expected error for HTTP 500")
	}
}

func TestBlendEmptyImage(t *testing.T) {
	c, _ := NewClient("http://localhost:1")
	if _, err := c.Blend(context.Background(), types.BlendRequest{}); err == nil {
		t.Fatal("Expected error for empty image")
	}
}

func TestRemoveBackground(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/images/remove-background" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(blendResponse{
			Image: base64.StdEncoding.EncodeToString([]byte("cutout")),
		})
	}))
	defer srv.Close()

	c, _ := NewClient(srv.URL)
	result, err := c.RemoveBackground(context.Background(), "aGk=")
	if err != nil {
		t.Fatalf("RemoveBackground failed: %v", err)
	}

	if string(result.Data) != "cutout" {
		t.Errorf("Unexpected cutout data %q", result.Data)
	}
	if result.MimeType != "image/png" {
		t.Errorf("Expected default mime type image/png, got %q", result.MimeType)
	}
}
