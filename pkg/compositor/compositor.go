// Package compositor flattens a positioned, scaled foreground cutout
// onto a background photograph. The output raster always has the
// background's native resolution; the rendered view the user clicked on
// plays no part here.
package compositor

import (
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"

	"github.com/carstage/carstage/pkg/types"
)

// User scale bounds. Clamping to this range is the caller's job;
// Compose only rejects scales it cannot draw at all.
const (
	MinUserScale = 0.1
	MaxUserScale = 3.0
)

// DefaultWidthFraction sizes a freshly loaded foreground to roughly a
// quarter of the background's width.
const DefaultWidthFraction = 0.25

// Compose draws background at origin into a fresh raster of its native
// size, then draws foreground centered on nativeAnchor, scaled by
// userScale with Lanczos resampling. The foreground's own transparency
// is preserved; no additional blending is applied. Placement partially
// or fully off-canvas is allowed and silently clips at the raster
// edges.
func Compose(background, foreground image.Image, nativeAnchor types.Point, userScale float64) (*image.NRGBA, error) {
	if background == nil || foreground == nil {
		return nil, fmt.Errorf("compose requires both background and foreground images")
	}
	if userScale <= 0 {
		return nil, fmt.Errorf("invalid user scale %g", userScale)
	}

	bgBounds := background.Bounds()
	if bgBounds.Dx() == 0 || bgBounds.Dy() == 0 {
		return nil, fmt.Errorf("background has empty bounds %v", bgBounds)
	}
	fgBounds := foreground.Bounds()
	if fgBounds.Dx() == 0 || fgBounds.Dy() == 0 {
		return nil, fmt.Errorf("foreground has empty bounds %v", fgBounds)
	}

	// Exact float arithmetic until the final pixel sizes are consumed.
	drawWidth := float64(fgBounds.Dx()) * userScale
	drawHeight := float64(fgBounds.Dy()) * userScale

	w := int(math.Round(drawWidth))
	h := int(math.Round(drawHeight))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	scaled := imaging.Resize(foreground, w, h, imaging.Lanczos)

	pos := image.Pt(
		int(math.Round(nativeAnchor.X-drawWidth/2)),
		int(math.Round(nativeAnchor.Y-drawHeight/2)),
	)

	canvas := imaging.Clone(background)
	return imaging.Overlay(canvas, scaled, pos, 1.0), nil
}

// DefaultScale returns the user scale that makes the foreground occupy
// roughly DefaultWidthFraction of the background's native width.
func DefaultScale(background, foreground image.Image) float64 {
	if background == nil || foreground == nil {
		return 1.0
	}

	fgWidth := float64(foreground.Bounds().Dx())
	if fgWidth == 0 {
		return 1.0
	}

	scale := float64(background.Bounds().Dx()) * DefaultWidthFraction / fgWidth
	if scale < MinUserScale {
		return MinUserScale
	}
	if scale > MaxUserScale {
		return MaxUserScale
	}
	return scale
}

// ClampScale bounds a user-requested scale to the supported range.
func ClampScale(s float64) float64 {
	if s < MinUserScale {
		return MinUserScale
	}
	if s > MaxUserScale {
		return MaxUserScale
	}
	return s
}
