//go:build !gocv

package haar

import (
	"context"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnavailableWithoutGocv(t *testing.T) {
	_, err := New("haarcascade_frontalface_default.xml")
	assert.ErrorIs(t, err, ErrUnavailable)

	var d Detector
	_, err = d.DetectFaces(context.Background(), image.NewGray(image.Rect(0, 0, 1, 1)))
	assert.ErrorIs(t, err, ErrUnavailable)
}
