// Package advisor asks a vision model for a plausible placement of the
// subject in a scene. The suggestion is advisory: it seeds an anchor
// the user is free to move.
package advisor

import (
	"context"
	"strings"

	"github.com/carstage/carstage/pkg/client"
	"github.com/carstage/carstage/pkg/types"
)

// SimpleTestPrompt for testing if the model can see images.
const SimpleTestPrompt = `What do you see in this image? Describe it briefly.`

// DefaultPrompt asks the model for a ground-contact placement point.
const DefaultPrompt = `You are a scene placement assistant. A vehicle cutout will be
placed into this background photograph.

Return JSON only:
{
  "label": "string",
  "confidence": 0.0,
  "cx": 0.0,
  "cy": 0.0,
  "scale": 1.0,
  "reason": "short neutral sentence (<= 20 words)",
  "tags": ["tag1", "tag2", "tag3"]
}

HARD RULES
- cx and cy are normalized to [0,1] (NOT pixels) and mark where the
  vehicle's ground-contact center should sit.
- Prefer drivable ground: road, driveway, parking area, open pavement.
- cy should fall in the lower half of the frame unless the scene
  clearly demands otherwise.
- scale is a relative size factor in [0.5, 2.0]: below 1.0 for distant
  placements, above 1.0 for near ones.
- label names the surface chosen (e.g. "asphalt road").
- Tags: lowercase, concise, no punctuation or duplicates.
- If no sensible placement exists, return:
  {"label":"none","confidence":0.0,"cx":0.5,"cy":0.7,"scale":1.0,
   "reason":"no drivable ground found","tags":["none"]}
- JSON only. No markdown, no code fences, no comments, no trailing commas.`

// Advisor suggests placements using a vision model.
type Advisor struct {
	client client.VisionClient
}

// New creates an advisor with a vision client.
func New(client client.VisionClient) *Advisor {
	return &Advisor{client: client}
}

// SuggestAnchor asks the model for a placement and validates the answer.
func (a *Advisor) SuggestAnchor(ctx context.Context, model, imageB64 string) (*types.PlacementSuggestion, error) {
	return a.SuggestAnchorWithPrompt(ctx, model, imageB64, DefaultPrompt)
}

// SuggestAnchorWithPrompt asks the model with a custom prompt.
func (a *Advisor) SuggestAnchorWithPrompt(ctx context.Context, model, imageB64, prompt string) (*types.PlacementSuggestion, error) {
	result, err := a.client.SuggestPlacement(ctx, model, prompt, imageB64)
	if err != nil {
		return nil, err
	}

	return validateSuggestion(result), nil
}

// TestVision checks whether the model can actually see the image.
func (a *Advisor) TestVision(ctx context.Context, model, imageB64 string) (string, error) {
	return a.client.SimpleQuery(ctx, model, SimpleTestPrompt, imageB64)
}

// ToNativeAnchor converts a suggestion's normalized point into native
// pixel coordinates of the background.
func ToNativeAnchor(s *types.PlacementSuggestion, nativeWidth, nativeHeight float64) types.Point {
	return types.Point{
		X: clamp(s.Cx, 0, 1) * nativeWidth,
		Y: clamp(s.Cy, 0, 1) * nativeHeight,
	}
}

// validateSuggestion clamps coordinates and normalizes tags so a
// sloppy model answer cannot push the anchor off the frame.
func validateSuggestion(s *types.PlacementSuggestion) *types.PlacementSuggestion {
	s.Cx = clamp(s.Cx, 0, 1)
	s.Cy = clamp(s.Cy, 0, 1)
	s.Confidence = clamp(s.Confidence, 0, 1)

	if s.Scale <= 0 {
		s.Scale = 1.0
	}
	s.Scale = clamp(s.Scale, 0.5, 2.0)

	s.Tags = normalizeTags(s.Tags)

	// Degenerate answers collapse to the explicit none form.
	if strings.TrimSpace(s.Label) == "" {
		s.Label = "none"
		s.Confidence = 0
	}

	return s
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// normalizeTags cleans tags and limits them to 5 entries.
func normalizeTags(tags []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, 5)
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
		if len(out) == 5 {
			break
		}
	}
	return out
}
