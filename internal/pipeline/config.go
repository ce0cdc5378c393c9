package pipeline

import (
	"fmt"

	"github.com/andresmejia3/facemap/internal/cropper"
	"github.com/andresmejia3/facemap/internal/landmarks"
	"github.com/andresmejia3/facemap/internal/locator"
)

// Config holds the tunables of a Pipeline.
type Config struct {
	// Padding is added around every detected face box, in pixels.
	Padding int
	// Stroke is the landmark polyline width, in pixels.
	Stroke float64
	// Overflow decides how crops past the image edge are handled.
	Overflow cropper.Policy
	// Workers bounds how many faces of one image are processed concurrently.
	Workers int
}

// DefaultConfig returns the reference settings.
func DefaultConfig() Config {
	return Config{
		Padding:  locator.DefaultPadding,
		Stroke:   landmarks.DefaultStroke,
		Overflow: cropper.Clamp,
		Workers:  1,
	}
}

// Validate rejects settings the pipeline cannot honor.
func (c Config) Validate() error {
	if c.Padding < 0 {
		return fmt.Errorf("padding must be >= 0, got %d", c.Padding)
	}
	if c.Stroke <= 0 {
		return fmt.Errorf("stroke must be > 0, got %f", c.Stroke)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be >= 1, got %d", c.Workers)
	}
	return nil
}
