package advisor

import (
	"context"
	"testing"

	"github.com/carstage/carstage/pkg/types"
)

// stubClient returns a canned suggestion.
type stubClient struct {
	suggestion *types.PlacementSuggestion
	prompt     string
}

func (s *stubClient) SimpleQuery(ctx context.Context, model, prompt, imgB64 string) (string, error) {
	return "a street scene", nil
}

func (s *stubClient) SuggestPlacement(ctx context.Context, model, prompt, imgB64 string) (*types.PlacementSuggestion, error) {
	s.prompt = prompt
	return s.suggestion, nil
}

func TestSuggestAnchor(t *testing.T) {
	stub := &stubClient{
		suggestion: &types.PlacementSuggestion{
			Label:      "asphalt road",
			Confidence: 0.9,
			Cx:         0.45,
			Cy:         0.72,
			Scale:      1.1,
			Tags:       []string{"Road", "road", " street ", ""},
		},
	}

	a := New(stub)
	got, err := a.SuggestAnchor(context.Background(), "test-model", "aGk=")
	if err != nil {
		t.Fatalf("SuggestAnchor failed: %v", err)
	}

	if got.Cx != 0.45 || got.Cy != 0.72 {
		t.Errorf("Unexpected coordinates (%f,%f)", got.Cx, got.Cy)
	}

	// Tags are lowercased, trimmed, deduped.
	if len(got.Tags) != 2 || got.Tags[0] != "road" || got.Tags[1] != "street" {
		t.Errorf("Unexpected tags %v", got.Tags)
	}

	if stub.prompt != DefaultPrompt {
		t.Error("Expected the default prompt to be used")
	}
}

func TestSuggestAnchorClampsSloppyAnswer(t *testing.T) {
	stub := &stubClient{
		suggestion: &types.PlacementSuggestion{
			Label:      "road",
			Confidence: 3.0,
			Cx:         1.8,
			Cy:         -0.4,
			Scale:      50,
		},
	}

	a := New(stub)
	got, err := a.SuggestAnchor(context.Background(), "test-model", "aGk=")
	if err != nil {
		t.Fatalf("SuggestAnchor failed: %v", err)
	}

	if got.Cx != 1 || got.Cy != 0 {
		t.Errorf("Expected coordinates clamped to (1,0), got (%f,%f)", got.Cx, got.Cy)
	}
	if got.Confidence != 1 {
		t.Errorf("Expected confidence clamped to 1, got %f", got.Confidence)
	}
	if got.Scale != 2.0 {
		t.Errorf("Expected scale clamped to 2.0, got %f", got.Scale)
	}
}

func TestSuggestAnchorEmptyLabel(t *testing.T) {
	stub := &stubClient{
		suggestion: &types.PlacementSuggestion{
			Label:      "  ",
			Confidence: 0.8,
			Cx:         0.5,
			Cy:         0.5,
			Scale:      1,
		},
	}

	a := New(stub)
	got, err := a.SuggestAnchor(context.Background(), "test-model", "aGk=")
	if err != nil {
		t.Fatalf("SuggestAnchor failed: %v", err)
	}

	if got.Label != "none" || got.Confidence != 0 {
		t.Errorf("Expected blank label to collapse to none, got %q conf=%f", got.Label, got.Confidence)
	}
}

func TestToNativeAnchor(t *testing.T) {
	s := &types.PlacementSuggestion{Cx: 0.5, Cy: 0.7}

	p := ToNativeAnchor(s, 1000, 500)
	if p.X != 500 || p.Y != 350 {
		t.Errorf("Expected native (500,350), got (%f,%f)", p.X, p.Y)
	}
}
