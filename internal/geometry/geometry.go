// Package geometry holds the coordinate types shared by the face pipeline and
// the conversions between detector space, crop-local space and original-image space.
package geometry

import (
	"errors"
	"fmt"
	"image"
)

// ErrOverflow is returned when a region cannot be reconciled with the image bounds.
var ErrOverflow = errors.New("region outside image bounds")

// Point is a pixel coordinate.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// DetectorBox is a face box as returned by face detectors: [top, right, bottom, left].
type DetectorBox struct {
	Top, Right, Bottom, Left int
}

// Region is an axis-aligned rectangle in original-image pixel coordinates.
// Right and Bottom are exclusive, the same convention as image.Rectangle.
type Region struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
}

// Reorder converts a detector box into the canonical (left, top, right, bottom) order.
func Reorder(b DetectorBox) Region {
	return Region{Left: b.Left, Top: b.Top, Right: b.Right, Bottom: b.Bottom}
}

// Pad grows r by pixels on every side. Negative values shrink it.
// The result is not clamped to any image.
func Pad(r Region, pixels int) Region {
	return Region{
		Left:   r.Left - pixels,
		Top:    r.Top - pixels,
		Right:  r.Right + pixels,
		Bottom: r.Bottom + pixels,
	}
}

// ToOriginal maps a crop-local point to original-image coordinates.
func ToOriginal(r Region, p Point) Point {
	return Point{X: r.Left + p.X, Y: r.Top + p.Y}
}

// ToOriginalAll maps every point of a crop-local polyline.
func ToOriginalAll(r Region, pts []Point) []Point {
	out := make([]Point, len(pts))
	for i, p := range pts {
		out[i] = ToOriginal(r, p)
	}
	return out
}

// Width returns the horizontal extent.
func (r Region) Width() int { return r.Right - r.Left }

// Height returns the vertical extent.
func (r Region) Height() int { return r.Bottom - r.Top }

// Empty reports whether the region covers no pixels.
func (r Region) Empty() bool { return r.Left >= r.Right || r.Top >= r.Bottom }

// Rect converts to an image.Rectangle.
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.Left, r.Top, r.Right, r.Bottom)
}

// FromRect converts an image.Rectangle into a Region.
func FromRect(rect image.Rectangle) Region {
	return Region{Left: rect.Min.X, Top: rect.Min.Y, Right: rect.Max.X, Bottom: rect.Max.Y}
}

// Within reports whether r lies entirely inside bounds.
func (r Region) Within(bounds image.Rectangle) bool {
	return !r.Empty() && r.Rect().In(bounds)
}

// Clamp intersects r with bounds.
// It returns ErrOverflow when nothing of r is left inside bounds.
func Clamp(r Region, bounds image.Rectangle) (Region, error) {
	in := r.Rect().Intersect(bounds)
	if in.Empty() {
		return Region{}, fmt.Errorf("%w: %v vs %v", ErrOverflow, r, bounds)
	}
	return FromRect(in), nil
}

func (r Region) String() string {
	return fmt.Sprintf("(%d,%d)-(%d,%d)", r.Left, r.Top, r.Right, r.Bottom)
}
