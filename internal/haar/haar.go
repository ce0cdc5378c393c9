//go:build gocv

package haar

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/andresmejia3/facemap/internal/geometry"
	"gocv.io/x/gocv"
)

// Detector finds faces with a Haar cascade. It implements locator.FaceDetector.
type Detector struct {
	mu  sync.Mutex
	cls gocv.CascadeClassifier
}

// New loads the cascade XML at path.
func New(path string) (*Detector, error) {
	if path == "" {
		return nil, fmt.Errorf("cascade path required")
	}
	cls := gocv.NewCascadeClassifier()
	if !cls.Load(path) {
		cls.Close()
		return nil, fmt.Errorf("failed to load cascade %s", path)
	}
	return &Detector{cls: cls}, nil
}

func (d *Detector) DetectFaces(ctx context.Context, img image.Image) ([]geometry.DetectorBox, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("convert image: %w", err)
	}
	defer mat.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(mat, &gray, gocv.ColorRGBToGray)

	d.mu.Lock()
	rects := d.cls.DetectMultiScale(gray)
	d.mu.Unlock()

	// Cascade rectangles are relative to the Mat, which starts at (0,0).
	origin := img.Bounds().Min
	for i := range rects {
		rects[i] = rects[i].Add(origin)
	}
	return toBoxes(rects), nil
}

func (d *Detector) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cls.Close()
}
