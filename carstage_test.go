package carstage

import (
	"context"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/carstage/carstage/pkg/session"
	"github.com/carstage/carstage/pkg/types"
)

func solidImage(width, height int, c color.NRGBA) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestStagerWorkflow(t *testing.T) {
	stager := New()

	stager.SetBackground(solidImage(1000, 500, color.NRGBA{50, 50, 50, 255}))
	stager.SetForeground(solidImage(200, 100, color.NRGBA{200, 0, 0, 255}))
	stager.SetViewport(400, 400)

	native, hint, err := stager.Place(types.Point{X: 200, Y: 200})
	if err != nil {
		t.Fatalf("Place failed: %v", err)
	}

	// 1000x500 pillarboxed in 400x400 renders as 400x200 with 100px bands.
	// The viewport center is the native center.
	if native.X != 500 || native.Y != 250 {
		t.Errorf("Expected native anchor (500, 250), got (%v, %v)", native.X, native.Y)
	}
	if hint.Scale <= 0 || hint.RotationDegrees <= 0 {
		t.Errorf("Expected a usable depth hint, got %+v", hint)
	}

	result, err := stager.Composite(context.Background())
	if err != nil {
		t.Fatalf("Composite failed: %v", err)
	}
	if result.Bounds().Dx() != 1000 || result.Bounds().Dy() != 500 {
		t.Errorf("Expected native-resolution output, got %dx%d",
			result.Bounds().Dx(), result.Bounds().Dy())
	}
	if stager.State() != session.StatePlaced {
		t.Errorf("Expected StatePlaced after composite, got %v", stager.State())
	}
}

func TestStagerPlaceWithoutViewport(t *testing.T) {
	stager := New()
	stager.SetBackground(solidImage(100, 100, color.NRGBA{0, 0, 0, 255}))

	if _, _, err := stager.Place(types.Point{X: 10, Y: 10}); err == nil {
		t.Error("Expected error when placing without a viewport")
	}
}

func TestStagerPlaceWithoutBackground(t *testing.T) {
	stager := New()
	stager.SetViewport(400, 400)

	if _, _, err := stager.Place(types.Point{X: 10, Y: 10}); err == nil {
		t.Error("Expected error when placing without a background")
	}
}

func TestStagerCompositeWithoutPlacement(t *testing.T) {
	stager := New()
	stager.SetBackground(solidImage(100, 100, color.NRGBA{0, 0, 0, 255}))
	stager.SetForeground(solidImage(10, 10, color.NRGBA{255, 255, 255, 255}))

	if _, err := stager.Composite(context.Background()); err != session.ErrNoAnchor {
		t.Errorf("Expected ErrNoAnchor, got %v", err)
	}
}

func TestStagerScaleRoundTrip(t *testing.T) {
	stager := New()
	stager.SetBackground(solidImage(1000, 500, color.NRGBA{0, 0, 0, 255}))
	stager.SetForeground(solidImage(200, 100, color.NRGBA{255, 255, 255, 255}))

	stager.SetScale(0.8)
	if got := stager.Scale(); math.Abs(got-0.8) > 1e-9 {
		t.Errorf("Expected scale 0.8, got %v", got)
	}

	// Out-of-range values are clamped rather than rejected.
	stager.SetScale(100)
	if got := stager.Scale(); got != 3.0 {
		t.Errorf("Expected scale clamped to 3.0, got %v", got)
	}
}

func TestDefaultScale(t *testing.T) {
	bg := solidImage(1000, 500, color.NRGBA{0, 0, 0, 255})
	fg := solidImage(200, 100, color.NRGBA{255, 255, 255, 255})

	if got := DefaultScale(bg, fg); math.Abs(got-1.25) > 1e-9 {
		t.Errorf("Expected default scale 1.25, got %v", got)
	}
}

func TestGetVersion(t *testing.T) {
	if GetVersion() != Version {
		t.Error("GetVersion should return the Version constant")
	}
}
