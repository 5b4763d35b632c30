// Package fitmap maps points between render space and native image
// space under "contain" fit semantics: the image is scaled uniformly to
// fit inside a box while preserving its aspect ratio, then centered,
// leaving letterbox or pillarbox padding on one axis.
package fitmap

import (
	"fmt"

	"github.com/carstage/carstage/pkg/types"
)

// Fit describes how an image of a given native size is laid out inside
// a render box under contain fit.
type Fit struct {
	RenderedWidth  float64
	RenderedHeight float64
	PaddingX       float64
	PaddingY       float64
}

// Contain computes the rendered dimensions and centered padding for an
// image of nativeWidth x nativeHeight displayed inside a box of
// boxWidth x boxHeight.
func Contain(nativeWidth, nativeHeight, boxWidth, boxHeight float64) (Fit, error) {
	if nativeWidth <= 0 || nativeHeight <= 0 {
		return Fit{}, fmt.Errorf("invalid native dimensions %gx%g", nativeWidth, nativeHeight)
	}
	if boxWidth <= 0 || boxHeight <= 0 {
		return Fit{}, fmt.Errorf("invalid box dimensions %gx%g", boxWidth, boxHeight)
	}

	nativeAspect := nativeWidth / nativeHeight
	boxAspect := boxWidth / boxHeight

	var fit Fit
	if nativeAspect > boxAspect {
		// Image is relatively wider than the box: width-bound, letterboxed.
		fit.RenderedWidth = boxWidth
		fit.RenderedHeight = boxWidth / nativeAspect
	} else {
		// Height-bound, pillarboxed.
		fit.RenderedHeight = boxHeight
		fit.RenderedWidth = boxHeight * nativeAspect
	}

	fit.PaddingX = (boxWidth - fit.RenderedWidth) / 2
	fit.PaddingY = (boxHeight - fit.RenderedHeight) / 2

	return fit, nil
}

// ToNativeSpace converts a render-space point (pixels from the box's
// top-left corner) into native image coordinates. The arithmetic stays
// in float64 the whole way; callers round only when they consume the
// coordinate. Points in the padding region map to coordinates outside
// [0, native) and are passed through without clamping.
func ToNativeSpace(p types.Point, boxWidth, boxHeight, nativeWidth, nativeHeight float64) (types.Point, error) {
	fit, err := Contain(nativeWidth, nativeHeight, boxWidth, boxHeight)
	if err != nil {
		return types.Point{}, err
	}

	imgX := p.X - fit.PaddingX
	imgY := p.Y - fit.PaddingY

	relX := imgX / fit.RenderedWidth
	relY := imgY / fit.RenderedHeight

	return types.Point{
		X: relX * nativeWidth,
		Y: relY * nativeHeight,
	}, nil
}

// ToRenderSpace is the inverse of ToNativeSpace: it converts a point in
// native image coordinates back into render-space pixels.
func ToRenderSpace(p types.Point, boxWidth, boxHeight, nativeWidth, nativeHeight float64) (types.Point, error) {
	fit, err := Contain(nativeWidth, nativeHeight, boxWidth, boxHeight)
	if err != nil {
		return types.Point{}, err
	}

	relX := p.X / nativeWidth
	relY := p.Y / nativeHeight

	return types.Point{
		X: relX*fit.RenderedWidth + fit.PaddingX,
		Y: relY*fit.RenderedHeight + fit.PaddingY,
	}, nil
}
