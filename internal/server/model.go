package server

import (
	"github.com/carstage/carstage/pkg/depth"
	"github.com/carstage/carstage/pkg/types"
)

// ErrorResponse is the shape of every error reply.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// SessionResponse reports a session's state to the UI layer.
type SessionResponse struct {
	Success bool         `json:"success"`
	ID      string       `json:"id"`
	State   string       `json:"state"`
	Scale   float64      `json:"scale,omitempty"`
	Anchor  *types.Point `json:"anchor,omitempty"`
	Hint    *depth.Hint  `json:"hint,omitempty"`
}

// UploadResponse confirms an image upload with its native dimensions.
type UploadResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
}

// AnchorRequest carries a placement gesture in render-space pixels
// together with the render box the gesture was made against.
type AnchorRequest struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	BoxWidth  float64 `json:"box_width" binding:"required"`
	BoxHeight float64 `json:"box_height" binding:"required"`
}

// AnchorResponse echoes the mapped native anchor and the overlay hint.
type AnchorResponse struct {
	Success      bool        `json:"success"`
	NativeAnchor types.Point `json:"native_anchor"`
	Hint         depth.Hint  `json:"hint"`
}

// ScaleRequest carries a user scale override.
type ScaleRequest struct {
	Scale float64 `json:"scale" binding:"required"`
}
