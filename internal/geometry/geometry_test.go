package geometry

import (
	"errors"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReorder(t *testing.T) {
	got := Reorder(DetectorBox{Top: 10, Right: 50, Bottom: 60, Left: 20})
	assert.Equal(t, Region{Left: 20, Top: 10, Right: 50, Bottom: 60}, got)
}

func TestPadInverse(t *testing.T) {
	regions := []Region{
		{Left: 0, Top: 0, Right: 10, Bottom: 10},
		{Left: 100, Top: 40, Right: 180, Bottom: 140},
		{Left: -5, Top: -5, Right: 3, Bottom: 2},
	}
	for _, r := range regions {
		for _, p := range []int{0, 1, 15, 200} {
			assert.Equal(t, r, Pad(Pad(r, p), -p), "pad %d on %v", p, r)
		}
	}
}

func TestPadDoesNotClamp(t *testing.T) {
	got := Pad(Region{Left: 5, Top: 5, Right: 20, Bottom: 20}, 15)
	assert.Equal(t, Region{Left: -10, Top: -10, Right: 35, Bottom: 35}, got)
}

func TestToOriginal(t *testing.T) {
	r := Region{Left: 30, Top: 45, Right: 90, Bottom: 120}

	assert.Equal(t, Point{X: 30, Y: 45}, ToOriginal(r, Point{}), "crop origin maps back to region top-left")
	assert.Equal(t, Point{X: 35, Y: 52}, ToOriginal(r, Point{X: 5, Y: 7}))

	pts := ToOriginalAll(r, []Point{{X: 1, Y: 1}, {X: 2, Y: 3}})
	assert.Equal(t, []Point{{X: 31, Y: 46}, {X: 32, Y: 48}}, pts)
}

func TestClamp(t *testing.T) {
	bounds := image.Rect(0, 0, 100, 80)

	tests := []struct {
		name    string
		in      Region
		want    Region
		wantErr bool
	}{
		{"Inside", Region{10, 10, 50, 50}, Region{10, 10, 50, 50}, false},
		{"Straddles top-left", Region{-15, -15, 30, 30}, Region{0, 0, 30, 30}, false},
		{"Straddles bottom-right", Region{70, 60, 130, 95}, Region{70, 60, 100, 80}, false},
		{"Fully outside", Region{120, 10, 150, 40}, Region{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Clamp(tt.in, bounds)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrOverflow))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWithin(t *testing.T) {
	bounds := image.Rect(0, 0, 100, 100)
	assert.True(t, Region{0, 0, 100, 100}.Within(bounds))
	assert.False(t, Region{-1, 0, 100, 100}.Within(bounds))
	assert.False(t, Region{10, 10, 10, 20}.Within(bounds), "empty region is never within")
}

func TestRegionSize(t *testing.T) {
	r := Region{Left: 10, Top: 20, Right: 40, Bottom: 70}
	assert.Equal(t, 30, r.Width())
	assert.Equal(t, 50, r.Height())
	assert.Equal(t, image.Rect(10, 20, 40, 70), r.Rect())
	assert.Equal(t, r, FromRect(r.Rect()))
}
