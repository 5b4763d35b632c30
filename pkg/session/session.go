// Package session holds the mutable interaction state of one placement
// workflow: the two rasters, the render box geometry, the anchor and
// the user scale. It orchestrates the pure geometry and compositing
// packages and is the only place that mutates between user actions.
package session

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/carstage/carstage/pkg/compositor"
	"github.com/carstage/carstage/pkg/depth"
	"github.com/carstage/carstage/pkg/fitmap"
	"github.com/carstage/carstage/pkg/types"
)

var (
	// ErrNoAnchor is returned when a composite is requested before any
	// placement gesture.
	ErrNoAnchor = errors.New("no anchor placed")

	// ErrImageNotReady is returned when a composite is requested before
	// both rasters are loaded.
	ErrImageNotReady = errors.New("background or foreground not loaded")
)

// State is the session's position in the placement workflow.
type State int

const (
	StateEmpty State = iota
	StatePlaced
	StateComposing
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StatePlaced:
		return "placed"
	case StateComposing:
		return "composing"
	default:
		return "unknown"
	}
}

// Session tracks one placement workflow. All methods are safe for
// concurrent use; composite requests serialize behind each other.
type Session struct {
	mu        sync.Mutex
	composeMu sync.Mutex

	state      State
	background image.Image
	foreground image.Image

	boxWidth  float64
	boxHeight float64

	// The anchor is re-anchored in native space the moment it is set,
	// so resizing the render box afterwards never shifts where the
	// foreground lands on the background.
	renderAnchor types.Point
	nativeAnchor types.Point
	hasAnchor    bool

	scale     float64
	userScale bool

	depthCfg depth.Config
}

// New creates an empty session with default depth tuning.
func New() *Session {
	return NewWithConfig(depth.DefaultConfig())
}

// NewWithConfig creates an empty session with custom depth tuning.
func NewWithConfig(cfg depth.Config) *Session {
	return &Session{
		state:    StateEmpty,
		scale:    1.0,
		depthCfg: cfg,
	}
}

// SetBackground installs a new background and resets the workflow: any
// prior anchor was expressed against the old image's geometry and is
// discarded.
func (s *Session) SetBackground(img image.Image) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.background = img
	s.hasAnchor = false
	s.state = StateEmpty
	s.refreshDefaultScale()
}

// SetForeground installs a new foreground cutout. The anchor survives;
// only the subject being placed changes.
func (s *Session) SetForeground(img image.Image) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.foreground = img
	s.refreshDefaultScale()
}

// SetRenderBox records the on-screen size of the background's render
// box. When an anchor exists its render-space position is recomputed
// from the stored native-space point, keeping the placement stable
// across layout changes.
func (s *Session) SetRenderBox(width, height float64) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid render box %gx%g", width, height)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.boxWidth = width
	s.boxHeight = height

	if s.hasAnchor && s.background != nil {
		bg := s.background.Bounds()
		p, err := fitmap.ToRenderSpace(s.nativeAnchor, width, height,
			float64(bg.Dx()), float64(bg.Dy()))
		if err != nil {
			return err
		}
		s.renderAnchor = p
	}

	return nil
}

// SetAnchor records a placement gesture. The render-space point is
// mapped to native space immediately so the anchor stays valid if the
// render box is resized later.
func (s *Session) SetAnchor(p types.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.background == nil {
		return ErrImageNotReady
	}
	if s.boxWidth <= 0 || s.boxHeight <= 0 {
		return fmt.Errorf("render box not set")
	}

	bg := s.background.Bounds()
	native, err := fitmap.ToNativeSpace(p, s.boxWidth, s.boxHeight,
		float64(bg.Dx()), float64(bg.Dy()))
	if err != nil {
		return err
	}

	s.renderAnchor = p
	s.nativeAnchor = native
	s.hasAnchor = true

	// An in-flight composite keeps its snapshot; the state machine only
	// leaves Composing when that call finishes.
	if s.state != StateComposing {
		s.state = StatePlaced
	}

	return nil
}

// SetScale records a user scale override, clamped to the supported
// range. Once set, loading new images no longer resets the scale.
func (s *Session) SetScale(scale float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.scale = compositor.ClampScale(scale)
	s.userScale = true
}

// Scale returns the effective user scale.
func (s *Session) Scale() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scale
}

// Anchor returns the native-space anchor and whether one is set.
func (s *Session) Anchor() (types.Point, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nativeAnchor, s.hasAnchor
}

// RenderAnchor returns the render-space anchor and whether one is set.
func (s *Session) RenderAnchor() (types.Point, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.renderAnchor, s.hasAnchor
}

// State returns the current workflow state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// DepthHint derives the shadow-halo styling for the current anchor.
func (s *Session) DepthHint() (depth.Hint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasAnchor {
		return depth.Hint{}, ErrNoAnchor
	}
	if s.background == nil {
		return depth.Hint{}, ErrImageNotReady
	}

	bg := s.background.Bounds()
	fit, err := fitmap.Contain(float64(bg.Dx()), float64(bg.Dy()), s.boxWidth, s.boxHeight)
	if err != nil {
		return depth.Hint{}, err
	}

	relY := (s.renderAnchor.Y - fit.PaddingY) / fit.RenderedHeight
	return s.depthCfg.Estimate(relY), nil
}

// RequestComposite flattens the current placement into a raster of the
// background's native size. Calls serialize: a second request queues
// behind an in-flight one rather than interleaving, since each call
// owns its canvas for the duration. The session always returns to the
// placed state, success or failure.
func (s *Session) RequestComposite(ctx context.Context) (*image.NRGBA, error) {
	s.composeMu.Lock()
	defer s.composeMu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if !s.hasAnchor {
		s.mu.Unlock()
		return nil, ErrNoAnchor
	}
	if s.background == nil || s.foreground == nil {
		s.mu.Unlock()
		return nil, ErrImageNotReady
	}

	background := s.background
	foreground := s.foreground
	anchor := s.nativeAnchor
	scale := s.scale
	s.state = StateComposing
	s.mu.Unlock()

	out, err := compositor.Compose(background, foreground, anchor, scale)

	s.mu.Lock()
	if s.state == StateComposing {
		s.state = StatePlaced
	}
	s.mu.Unlock()

	return out, err
}

// refreshDefaultScale recomputes the default scale when both images are
// present and the user has not chosen one. Caller holds s.mu.
func (s *Session) refreshDefaultScale() {
	if s.userScale {
		return
	}
	if s.background == nil || s.foreground == nil {
		return
	}
	s.scale = compositor.DefaultScale(s.background, s.foreground)
}
