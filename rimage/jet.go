package rimage

import (
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

type paletteAnchor struct {
	at    float64
	color colorful.Color
}

// jetAnchors follow the usual jet ramp: dark blue, blue, cyan, yellow, red, dark red.
var jetAnchors = []paletteAnchor{
	{0, colorful.Color{R: 0, G: 0, B: 0.5}},
	{0.125, colorful.Color{R: 0, G: 0, B: 1}},
	{0.375, colorful.Color{R: 0, G: 1, B: 1}},
	{0.625, colorful.Color{R: 1, G: 1, B: 0}},
	{0.875, colorful.Color{R: 1, G: 0, B: 0}},
	{1, colorful.Color{R: 0.5, G: 0, B: 0}},
}

var jetTable [256]color.RGBA

func init() {
	for i := range jetTable {
		jetTable[i] = computeJet(float64(i) / 255)
	}
}

func computeJet(t float64) color.RGBA {
	for i := 1; i < len(jetAnchors); i++ {
		from, to := jetAnchors[i-1], jetAnchors[i]
		if t <= to.at {
			c := from.color.BlendRgb(to.color, (t-from.at)/(to.at-from.at)).Clamped()
			r, g, b := c.RGB255()
			return color.RGBA{r, g, b, 255}
		}
	}
	r, g, b := jetAnchors[len(jetAnchors)-1].color.RGB255()
	return color.RGBA{r, g, b, 255}
}

// Jet maps v onto the jet palette, 0 being dark blue and 255 dark red.
func Jet(v uint8) color.RGBA {
	return jetTable[v]
}

// ApplyJet returns a new raster where every cell is the jet color of its first channel.
func ApplyJet(r *Raster) *Raster {
	out := NewRaster(r.Rows(), r.Cols())
	for row := 0; row < r.Rows(); row++ {
		for col := 0; col < r.Cols(); col++ {
			c := Jet(r.Get(row, col)[0])
			out.Set(row, col, [3]uint8{c.R, c.G, c.B})
		}
	}
	return out
}
