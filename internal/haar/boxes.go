// Package haar is an alternative face detector backed by an OpenCV Haar cascade.
// It needs a binary built with -tags gocv; the default build reports that it is unavailable.
package haar

import (
	"errors"
	"image"
	"sort"

	"github.com/andresmejia3/facemap/internal/geometry"
)

// ErrUnavailable is returned by New in builds without OpenCV support.
var ErrUnavailable = errors.New("haar detector requires a build with -tags gocv")

// toBoxes converts cascade rectangles to detector boxes, ordered top to bottom
// then left to right so results are stable across OpenCV versions.
func toBoxes(rects []image.Rectangle) []geometry.DetectorBox {
	sorted := append([]image.Rectangle(nil), rects...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Min.Y != sorted[j].Min.Y {
			return sorted[i].Min.Y < sorted[j].Min.Y
		}
		return sorted[i].Min.X < sorted[j].Min.X
	})

	boxes := make([]geometry.DetectorBox, 0, len(sorted))
	for _, r := range sorted {
		if r.Empty() {
			continue
		}
		boxes = append(boxes, geometry.DetectorBox{Top: r.Min.Y, Right: r.Max.X, Bottom: r.Max.Y, Left: r.Min.X})
	}
	return boxes
}
