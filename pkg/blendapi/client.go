// Package blendapi is the HTTP client for the external image-generation
// service: it submits flattened composites for photorealistic blending
// and subject photos for background removal. The service is opaque; the
// only contract is the JSON request/response shape here.
package blendapi

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/carstage/carstage/pkg/types"
)

// Client talks to a blend server over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type blendRequest struct {
	Model  string `json:"model,omitempty"`
	Prompt string `json:"prompt,omitempty"`
	Image  string `json:"image"`
}

type blendResponse struct {
	Image    string `json:"image"`
	MimeType string `json:"mime_type,omitempty"`
	Error    string `json:"error,omitempty"`
}

// NewClient creates a blend client for the given server URL.
func NewClient(serverURL string) (*Client, error) {
	if serverURL == "" {
		serverURL = "http://localhost:8188"
	}

	return &Client{
		baseURL: strings.TrimSuffix(serverURL, "/"),
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}, nil
}

// Blend submits a flattened composite and returns the photorealistic
// result. There is no retry contract; the caller re-triggers on failure.
func (c *Client) Blend(ctx context.Context, req types.BlendRequest) (*types.BlendResult, error) {
	if req.ImageB64 == "" {
		return nil, fmt.Errorf("blend request has no image")
	}

	body := blendRequest{
		Model:  req.Model,
		Prompt: req.Prompt,
		Image:  req.ImageB64,
	}

	return c.postImage(ctx, "/v1/images/blend", body)
}

// RemoveBackground submits a subject photo and returns a cutout with a
// transparent background.
func (c *Client) RemoveBackground(ctx context.Context, imgB64 string) (*types.BlendResult, error) {
	if imgB64 == "" {
		return nil, fmt.Errorf("extraction request has no image")
	}

	body := blendRequest{Image: imgB64}

	return c.postImage(ctx, "/v1/images/remove-background", body)
}

func (c *Client) postImage(ctx context.Context, path string, body blendRequest) (*types.BlendResult, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 300*time.Second)
		defer cancel()
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("blend service request failed: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("blend service returned HTTP %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	var parsed blendResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse response: %v", err)
	}
	if parsed.Error != "" {
		return nil, fmt.Errorf("blend service error: %s", parsed.Error)
	}
	if parsed.Image == "" {
		return nil, fmt.Errorf("blend service returned no image")
	}

	data, err := base64.StdEncoding.DecodeString(parsed.Image)
	if err != nil {
		return nil, fmt.Errorf("blend service returned invalid base64: %v", err)
	}

	mime := parsed.MimeType
	if mime == "" {
		mime = "image/png"
	}

	return &types.BlendResult{Data: data, MimeType: mime}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
