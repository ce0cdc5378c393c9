package locator

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/andresmejia3/facemap/internal/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedDetector struct {
	boxes []geometry.DetectorBox
	err   error
}

func (f fixedDetector) DetectFaces(ctx context.Context, img image.Image) ([]geometry.DetectorBox, error) {
	return f.boxes, f.err
}

func TestLocate(t *testing.T) {
	boxes := []geometry.DetectorBox{
		{Top: 20, Right: 80, Bottom: 90, Left: 30},
		{Top: 100, Right: 260, Bottom: 180, Left: 190},
		{Top: 0, Right: 10, Bottom: 10, Left: 0},
	}
	l := New(fixedDetector{boxes: boxes}, DefaultPadding)

	regions, err := l.Locate(context.Background(), image.NewRGBA(image.Rect(0, 0, 300, 200)))
	require.NoError(t, err)
	require.Len(t, regions, len(boxes))

	for i, b := range boxes {
		want := geometry.Region{
			Left:   b.Left - DefaultPadding,
			Top:    b.Top - DefaultPadding,
			Right:  b.Right + DefaultPadding,
			Bottom: b.Bottom + DefaultPadding,
		}
		assert.Equal(t, want, regions[i], "region %d", i)
	}
}

func TestLocateCustomPadding(t *testing.T) {
	l := New(fixedDetector{boxes: []geometry.DetectorBox{{Top: 10, Right: 40, Bottom: 50, Left: 20}}}, 4)

	regions, err := l.Locate(context.Background(), image.NewRGBA(image.Rect(0, 0, 64, 64)))
	require.NoError(t, err)
	assert.Equal(t, []geometry.Region{{Left: 16, Top: 6, Right: 44, Bottom: 54}}, regions)
}

func TestLocateNoFaces(t *testing.T) {
	l := New(fixedDetector{}, DefaultPadding)

	regions, err := l.Locate(context.Background(), image.NewRGBA(image.Rect(0, 0, 10, 10)))
	require.NoError(t, err)
	assert.Empty(t, regions)
}

func TestLocateDetectorError(t *testing.T) {
	boom := errors.New("detector gone")
	l := New(fixedDetector{err: boom}, DefaultPadding)

	_, err := l.Locate(context.Background(), image.NewRGBA(image.Rect(0, 0, 10, 10)))
	assert.ErrorIs(t, err, boom)
}
