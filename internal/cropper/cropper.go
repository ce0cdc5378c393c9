// Package cropper slices face regions out of a source image.
package cropper

import (
	"fmt"
	"image"
	"strings"

	"github.com/andresmejia3/facemap/internal/geometry"
	"github.com/disintegration/imaging"
)

// Policy decides what happens to regions that extend past the image bounds.
type Policy int

const (
	// Clamp intersects the region with the image and crops what is left.
	Clamp Policy = iota
	// Reject refuses any region that is not fully inside the image.
	Reject
)

// ParsePolicy maps "clamp" or "reject" to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "clamp", "":
		return Clamp, nil
	case "reject":
		return Reject, nil
	}
	return Clamp, fmt.Errorf("invalid overflow policy '%s'. Must be 'clamp' or 'reject'", s)
}

func (p Policy) String() string {
	if p == Reject {
		return "reject"
	}
	return "clamp"
}

// Cropper extracts sub-images.
type Cropper struct {
	Policy Policy
}

// Crop copies the pixels named by region into a new image whose bounds start at (0,0).
// The returned region is the one actually cropped, which differs from the
// requested one only when the clamp policy trimmed it.
// Both policies return geometry.ErrOverflow when the region has nothing inside the image.
func (c Cropper) Crop(img image.Image, region geometry.Region) (*image.NRGBA, geometry.Region, error) {
	bounds := img.Bounds()

	effective := region
	if !region.Within(bounds) {
		if c.Policy == Reject {
			return nil, region, fmt.Errorf("%w: %v vs %v", geometry.ErrOverflow, region, bounds)
		}
		clamped, err := geometry.Clamp(region, bounds)
		if err != nil {
			return nil, region, err
		}
		effective = clamped
	}

	return imaging.Crop(img, effective.Rect()), effective, nil
}
