package pipeline

import (
	"errors"
	"image"

	"github.com/andresmejia3/facemap/internal/fingerprint"
	"github.com/andresmejia3/facemap/internal/geometry"
	"github.com/andresmejia3/facemap/internal/landmarks"
)

var (
	// ErrLandmarkMissing marks a face the landmark detector returned nothing for, or failed on.
	ErrLandmarkMissing = errors.New("no landmarks detected")
	// ErrEncodingMissing marks a face the identity encoder returned nothing for, or failed on.
	ErrEncodingMissing = errors.New("no identity encoding")
	// ErrDecode wraps image-level load failures.
	ErrDecode = errors.New("unable to decode image")
)

// Record holds everything derived for one detected face.
type Record struct {
	// Index is the face's position in detector order.
	Index int
	// Requested is the padded region the locator produced.
	Requested geometry.Region
	// Region is what was actually cropped; it differs from Requested only when clamped.
	Region geometry.Region
	Crop   *image.NRGBA
	// CropHash is a perceptual hash of Crop, empty if it could not be computed.
	CropHash string

	// Landmarks are crop-local. Overlay and FeatureMap are nil unless landmarks were found.
	Landmarks  landmarks.Set
	Overlay    image.Image
	FeatureMap image.Image

	identity fingerprint.Identity
	issues   []error
}

// HasLandmarks reports whether the landmark stage succeeded for this face.
func (r *Record) HasLandmarks() bool { return len(r.Landmarks) > 0 }

// Identity returns the face encoding and its fingerprint, if the encoder produced one.
func (r *Record) Identity() (fingerprint.Identity, bool) {
	return r.identity, r.identity.Valid()
}

// Fingerprint is a shortcut for Identity().Fingerprint().
func (r *Record) Fingerprint() (string, bool) {
	return r.identity.Fingerprint(), r.identity.Valid()
}

// Issues lists the recoverable failures hit while processing this face.
func (r *Record) Issues() []error {
	return append([]error(nil), r.issues...)
}

func (r *Record) addIssue(err error) {
	r.issues = append(r.issues, err)
}
