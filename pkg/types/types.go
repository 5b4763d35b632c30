package types

// Point is a position in pixels. Whether it lives in render space or
// native image space depends on the producing function.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PlacementSuggestion is the vision model's opinion on where the
// subject should sit in the scene. Coordinates are normalized to [0,1]
// relative to the background's native dimensions.
type PlacementSuggestion struct {
	Label      string   `json:"label"`
	Confidence float64  `json:"confidence"`
	Cx         float64  `json:"cx"`
	Cy         float64  `json:"cy"`
	Scale      float64  `json:"scale"`
	Reason     string   `json:"reason"`
	Tags       []string `json:"tags"`
}

// BlendRequest carries the flattened composite to the blend service.
type BlendRequest struct {
	Model    string `json:"model,omitempty"`
	Prompt   string `json:"prompt,omitempty"`
	ImageB64 string `json:"image"`
}

// BlendResult is the photorealistic image returned by the blend service.
type BlendResult struct {
	Data     []byte `json:"-"`
	MimeType string `json:"mime_type"`
}
