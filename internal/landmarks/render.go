package landmarks

import (
	"image"
	"image/color"

	"github.com/andresmejia3/facemap/internal/geometry"
	"github.com/fogleman/gg"
)

// DefaultStroke is the polyline width in pixels.
const DefaultStroke = 3.0

// Renderer draws landmark polylines.
type Renderer struct {
	Stroke     float64
	Color      color.Color
	Background color.Color
}

// NewRenderer returns a white-on-black renderer with the given stroke width.
func NewRenderer(stroke float64) Renderer {
	return Renderer{Stroke: stroke, Color: color.White, Background: color.Black}
}

// DrawOverlay returns a copy of crop with every feature drawn on top in crop-local coordinates.
// crop is not modified. Crops are expected to start at (0,0), as cropper produces them.
func (r Renderer) DrawOverlay(crop image.Image, set Set) image.Image {
	dc := gg.NewContextForImage(crop)
	r.drawSet(dc, set, image.Point{})
	return dc.Image()
}

// DrawFeatureMap draws set onto a blank canvas the size of the original image.
// Points are translated out of crop-local space with region, so the sketch sits
// where the face was in the photo. Points outside the canvas are simply clipped.
func (r Renderer) DrawFeatureMap(original image.Rectangle, region geometry.Region, set Set) image.Image {
	dc := gg.NewContext(original.Dx(), original.Dy())
	dc.SetColor(r.background())
	dc.Clear()
	r.drawSet(dc, set.Translate(region), original.Min)
	return dc.Image()
}

func (r Renderer) drawSet(dc *gg.Context, set Set, origin image.Point) {
	dc.SetColor(r.color())
	dc.SetLineWidth(r.Stroke)
	dc.SetLineCap(gg.LineCapRound)
	dc.SetLineJoin(gg.LineJoinRound)

	for _, name := range set.Names() {
		pts := set[name]
		switch len(pts) {
		case 0:
			continue
		case 1:
			// A lone point would produce an empty stroke.
			dc.DrawPoint(float64(pts[0].X-origin.X), float64(pts[0].Y-origin.Y), r.Stroke/2)
			dc.Fill()
			continue
		}
		dc.MoveTo(float64(pts[0].X-origin.X), float64(pts[0].Y-origin.Y))
		for _, p := range pts[1:] {
			dc.LineTo(float64(p.X-origin.X), float64(p.Y-origin.Y))
		}
		dc.Stroke()
	}
}

func (r Renderer) color() color.Color {
	if r.Color == nil {
		return color.White
	}
	return r.Color
}

func (r Renderer) background() color.Color {
	if r.Background == nil {
		return color.Black
	}
	return r.Background
}
