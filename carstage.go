// Package carstage provides coordinate-accurate image placement and compositing.
//
// The package resolves the coordinate mismatch between a scaled-to-fit preview
// and the full-resolution source image. A user clicks on a preview rendered
// with "contain" semantics (letterboxed or pillarboxed inside a viewport);
// carstage maps that click back to exact native pixel coordinates, derives a
// perspective-aware scale and rotation hint from the vertical position, and
// flattens a foreground cutout onto the background at native resolution.
//
// Basic usage:
//
//	package main
//
//	import (
//		"context"
//		"fmt"
//		"log"
//		"github.com/carstage/carstage"
//		"github.com/carstage/carstage/pkg/types"
//	)
//
//	func main() {
//		stager := carstage.New()
//
//		// Load the scene and the cutout to place in it.
//		if err := stager.LoadBackground("street.jpg"); err != nil {
//			log.Fatal(err)
//		}
//		if err := stager.LoadForeground("car_cutout.png"); err != nil {
//			log.Fatal(err)
//		}
//
//		// The preview viewport is 400x400; the user clicked at (200, 300).
//		stager.SetViewport(400, 400)
//		native, hint, err := stager.Place(types.Point{X: 200, Y: 300})
//		if err != nil {
//			log.Fatal(err)
//		}
//		fmt.Printf("Anchor: (%.0f, %.0f) scale=%.2f rotation=%.1f\n",
//			native.X, native.Y, hint.Scale, hint.RotationDegrees)
//
//		// Flatten at full resolution and save.
//		result, err := stager.Composite(context.Background())
//		if err != nil {
//			log.Fatal(err)
//		}
//		if err := stager.SaveImage(result, "staged.png"); err != nil {
//			log.Fatal(err)
//		}
//	}
//
// The package consists of four main components:
//
// 1. FitMap (pkg/fitmap): Maps viewport coordinates to native pixels under contain fit
// 2. Depth (pkg/depth): Estimates scale and rotation hints from vertical position
// 3. Compositor (pkg/compositor): Flattens the foreground onto the background
// 4. Session (pkg/session): Tracks placement state across uploads, clicks, and resizes
//
// Supporting packages handle image I/O (pkg/processing), AI placement
// suggestions via a vision model (pkg/advisor, pkg/ollama), and generative
// relighting through an external service (pkg/blendapi). An HTTP server
// exposing the same workflow lives under cmd/carstage-server.
package carstage

import (
	"context"
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/carstage/carstage/pkg/compositor"
	"github.com/carstage/carstage/pkg/depth"
	"github.com/carstage/carstage/pkg/processing"
	"github.com/carstage/carstage/pkg/session"
	"github.com/carstage/carstage/pkg/types"
)

// Version of the carstage library
const Version = "1.0.0"

// Stager provides a high-level interface for the placement workflow.
type Stager struct {
	session   *session.Session
	processor *processing.Processor

	viewportW float64
	viewportH float64
}

// New creates a new Stager with default configuration.
func New() *Stager {
	return &Stager{
		session:   session.New(),
		processor: processing.NewProcessor(),
	}
}

// NewWithConfig creates a new Stager with a custom depth mapping.
func NewWithConfig(depthConfig depth.Config) *Stager {
	return &Stager{
		session:   session.NewWithConfig(depthConfig),
		processor: processing.NewProcessor(),
	}
}

// LoadBackground loads the scene image from a file path or URL.
func (s *Stager) LoadBackground(source string) error {
	img, err := s.processor.LoadImageSmart(source)
	if err != nil {
		return fmt.Errorf("failed to load background: %w", err)
	}
	s.session.SetBackground(img)
	return nil
}

// LoadForeground loads the cutout image from a file path or URL.
func (s *Stager) LoadForeground(source string) error {
	img, err := s.processor.LoadImageSmart(source)
	if err != nil {
		return fmt.Errorf("failed to load foreground: %w", err)
	}
	s.session.SetForeground(img)
	return nil
}

// SetBackground sets an already-decoded scene image.
func (s *Stager) SetBackground(img image.Image) {
	s.session.SetBackground(img)
}

// SetForeground sets an already-decoded cutout image.
func (s *Stager) SetForeground(img image.Image) {
	s.session.SetForeground(img)
}

// SetViewport records the preview viewport dimensions. Placement clicks are
// interpreted relative to this box.
func (s *Stager) SetViewport(width, height float64) {
	s.viewportW = width
	s.viewportH = height
}

// Place maps a viewport click to native coordinates and records it as the
// placement anchor. It returns the native anchor and the depth hint for that
// position.
func (s *Stager) Place(click types.Point) (types.Point, depth.Hint, error) {
	if s.viewportW <= 0 || s.viewportH <= 0 {
		return types.Point{}, depth.Hint{}, fmt.Errorf("viewport not set: call SetViewport first")
	}
	if err := s.session.SetRenderBox(s.viewportW, s.viewportH); err != nil {
		return types.Point{}, depth.Hint{}, err
	}
	if err := s.session.SetAnchor(click); err != nil {
		return types.Point{}, depth.Hint{}, err
	}

	native, _ := s.session.Anchor()
	hint, err := s.session.DepthHint()
	if err != nil {
		return types.Point{}, depth.Hint{}, err
	}
	return native, hint, nil
}

// SetScale overrides the foreground scale factor. The value is clamped to the
// supported range.
func (s *Stager) SetScale(scale float64) {
	s.session.SetScale(scale)
}

// Scale returns the current foreground scale factor.
func (s *Stager) Scale() float64 {
	return s.session.Scale()
}

// State returns the current placement state.
func (s *Stager) State() session.State {
	return s.session.State()
}

// Composite flattens the foreground onto the background at native resolution.
// Place must have been called and both images must be loaded.
func (s *Stager) Composite(ctx context.Context) (*image.NRGBA, error) {
	return s.session.RequestComposite(ctx)
}

// SaveImage writes an image to disk, choosing the encoder from the extension.
func (s *Stager) SaveImage(img image.Image, outputPath string) error {
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(outputPath)), ".")
	if format == "" {
		format = "png"
	}
	return s.processor.SaveImage(img, outputPath, format, 90, false)
}

// DefaultScale computes the heuristic starting scale for the loaded pair.
func DefaultScale(background, foreground image.Image) float64 {
	return compositor.DefaultScale(background, foreground)
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
