// Package depth derives a cosmetic scale/rotation pair from a
// normalized vertical position, used to render a ground-contact shadow
// halo beneath a placed subject. The hint simulates perspective depth
// from a 2D anchor and never feeds the composite's pixel content.
package depth

// Config holds the estimator's tuning constants.
type Config struct {
	MinScale    float64
	MaxScale    float64
	MinRotation float64
	MaxRotation float64
}

// DefaultConfig returns the standard tuning: small and tilted-back near
// the horizon, large and upright near the bottom of the frame.
func DefaultConfig() Config {
	return Config{
		MinScale:    0.2,
		MaxScale:    1.2,
		MinRotation: 20,
		MaxRotation: 75,
	}
}

// Hint is the derived overlay styling for one anchor position.
type Hint struct {
	Scale           float64 `json:"scale"`
	RotationDegrees float64 `json:"rotation_degrees"`
}

// Estimate interpolates the hint for a vertical position. relY is the
// anchor's Y divided by the rendered image height; values outside [0,1]
// are clamped.
func (c Config) Estimate(relY float64) Hint {
	if relY < 0 {
		relY = 0
	}
	if relY > 1 {
		relY = 1
	}

	return Hint{
		Scale:           c.MinScale + (c.MaxScale-c.MinScale)*relY,
		RotationDegrees: c.MaxRotation - (c.MaxRotation-c.MinRotation)*relY,
	}
}

// Estimate applies the default configuration.
func Estimate(relY float64) Hint {
	return DefaultConfig().Estimate(relY)
}
