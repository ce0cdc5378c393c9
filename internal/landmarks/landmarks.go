// Package landmarks obtains facial landmarks for a crop and renders them,
// either over the crop itself or onto a blank canvas registered to the source photo.
package landmarks

import (
	"context"
	"image"
	"sort"

	"github.com/andresmejia3/facemap/internal/geometry"
)

// FeatureName names a facial feature outline, e.g. "chin" or "left_eye".
type FeatureName string

// Canonical feature names in the order face_recognition reports them.
const (
	Chin         FeatureName = "chin"
	LeftEyebrow  FeatureName = "left_eyebrow"
	RightEyebrow FeatureName = "right_eyebrow"
	NoseBridge   FeatureName = "nose_bridge"
	NoseTip      FeatureName = "nose_tip"
	LeftEye      FeatureName = "left_eye"
	RightEye     FeatureName = "right_eye"
	TopLip       FeatureName = "top_lip"
	BottomLip    FeatureName = "bottom_lip"
)

var canonicalOrder = map[FeatureName]int{
	Chin: 0, LeftEyebrow: 1, RightEyebrow: 2, NoseBridge: 3, NoseTip: 4,
	LeftEye: 5, RightEye: 6, TopLip: 7, BottomLip: 8,
}

// Set maps each feature to its outline points in crop-local coordinates.
type Set map[FeatureName][]geometry.Point

// Names returns the feature names, canonical features first, others alphabetically.
func (s Set) Names() []FeatureName {
	names := make([]FeatureName, 0, len(s))
	for n := range s {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool {
		oi, iok := canonicalOrder[names[i]]
		oj, jok := canonicalOrder[names[j]]
		switch {
		case iok && jok:
			return oi < oj
		case iok != jok:
			return iok
		}
		return names[i] < names[j]
	})
	return names
}

// Points returns the total number of points across all features.
func (s Set) Points() int {
	n := 0
	for _, pts := range s {
		n += len(pts)
	}
	return n
}

// Translate maps every point to original-image coordinates using region's origin.
func (s Set) Translate(region geometry.Region) Set {
	out := make(Set, len(s))
	for name, pts := range s {
		out[name] = geometry.ToOriginalAll(region, pts)
	}
	return out
}

// LandmarkDetector returns landmark sets for every face it finds in a crop.
// An empty result means "no landmarks"; an error means the detector failed.
type LandmarkDetector interface {
	DetectLandmarks(ctx context.Context, img image.Image) ([]Set, error)
}

// Extract returns the first landmark set the detector finds in crop.
// ok is false when the detector reported nothing usable.
func Extract(ctx context.Context, d LandmarkDetector, crop image.Image) (set Set, ok bool, err error) {
	sets, err := d.DetectLandmarks(ctx, crop)
	if err != nil {
		return nil, false, err
	}
	if len(sets) == 0 || len(sets[0]) == 0 {
		return nil, false, nil
	}
	return sets[0], true, nil
}
