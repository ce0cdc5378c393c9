//go:build !gocv

package haar

import (
	"context"
	"image"

	"github.com/andresmejia3/facemap/internal/geometry"
)

// Detector is a placeholder in builds without OpenCV.
type Detector struct{}

// New always fails without the gocv build tag.
func New(path string) (*Detector, error) {
	return nil, ErrUnavailable
}

func (d *Detector) DetectFaces(ctx context.Context, img image.Image) ([]geometry.DetectorBox, error) {
	return nil, ErrUnavailable
}

func (d *Detector) Close() {}
