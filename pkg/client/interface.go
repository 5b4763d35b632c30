package client

import (
	"context"

	"github.com/carstage/carstage/pkg/types"
)

// VisionClient talks to a vision model that can look at a scene and
// suggest where the subject should be placed.
type VisionClient interface {
	SimpleQuery(ctx context.Context, model, prompt, imgB64 string) (string, error)
	SuggestPlacement(ctx context.Context, model, prompt, imgB64 string) (*types.PlacementSuggestion, error)
}

// BlendClient is the request/response contract with the external
// image-generation service: it turns a flattened composite into a
// photorealistic blend, and extracts cutout foregrounds from subject
// photos. Both calls may fail with a service error; no retry contract
// is defined.
type BlendClient interface {
	Blend(ctx context.Context, req types.BlendRequest) (*types.BlendResult, error)
	RemoveBackground(ctx context.Context, imgB64 string) (*types.BlendResult, error)
}
