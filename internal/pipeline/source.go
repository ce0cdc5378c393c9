package pipeline

import (
	"fmt"
	"image"
	"os"
	"time"

	"github.com/andresmejia3/facemap/internal/utils"
	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

// SourceImage is one input photograph and the faces found in it.
type SourceImage struct {
	Path string
	// ID is a deterministic hash of path, size and modification time. Empty for in-memory images.
	ID     string
	Pixels image.Image
	// TakenAt is the EXIF capture time, zero when unknown.
	TakenAt time.Time
	// Faces is populated by Pipeline.Run, in detector order.
	Faces []*Record
}

// NewSourceImage wraps an already decoded image.
func NewSourceImage(path string, img image.Image) *SourceImage {
	return &SourceImage{Path: path, Pixels: img}
}

// Load decodes the image at path, applying its EXIF orientation.
func Load(path string) (*SourceImage, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrDecode, path, err)
	}

	src := NewSourceImage(path, img)
	if id, err := utils.GenerateImageID(path); err == nil {
		src.ID = id
	}
	src.TakenAt = captureTime(path)
	return src, nil
}

// Bounds returns the pixel bounds of the photograph.
func (s *SourceImage) Bounds() image.Rectangle { return s.Pixels.Bounds() }

// WithLandmarks counts faces that produced landmark artifacts.
func (s *SourceImage) WithLandmarks() int {
	n := 0
	for _, f := range s.Faces {
		if f.HasLandmarks() {
			n++
		}
	}
	return n
}

// WithFingerprint counts faces that produced a fingerprint.
func (s *SourceImage) WithFingerprint() int {
	n := 0
	for _, f := range s.Faces {
		if _, ok := f.Fingerprint(); ok {
			n++
		}
	}
	return n
}

func captureTime(path string) time.Time {
	f, err := os.Open(path)
	if err != nil {
		return time.Time{}
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		return time.Time{}
	}
	t, err := x.DateTime()
	if err != nil {
		return time.Time{}
	}
	return t
}
