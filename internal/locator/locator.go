package locator

import (
	"context"
	"image"

	"github.com/andresmejia3/facemap/internal/geometry"
)

// DefaultPadding is the number of pixels added around every detected face.
const DefaultPadding = 15

// FaceDetector finds face boxes in a whole image.
// An empty result means no faces; an error means the detector itself failed.
type FaceDetector interface {
	DetectFaces(ctx context.Context, img image.Image) ([]geometry.DetectorBox, error)
}

// Locator turns raw detector boxes into padded regions.
type Locator struct {
	Detector FaceDetector
	Padding  int
}

// New returns a Locator using the given padding.
func New(d FaceDetector, padding int) *Locator {
	return &Locator{Detector: d, Padding: padding}
}

// Locate returns one padded region per detected face, in detector order.
func (l *Locator) Locate(ctx context.Context, img image.Image) ([]geometry.Region, error) {
	boxes, err := l.Detector.DetectFaces(ctx, img)
	if err != nil {
		return nil, err
	}

	regions := make([]geometry.Region, 0, len(boxes))
	for _, b := range boxes {
		// Reorder before padding: padding assumes (left, top, right, bottom).
		regions = append(regions, geometry.Pad(geometry.Reorder(b), l.Padding))
	}
	return regions, nil
}
