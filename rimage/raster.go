// Package rimage holds the rasters, palettes and image helpers shared by the fusion and matching
// code.
package rimage

import (
	"image"
	"image/color"
)

// EmptyPixel is the channel value marking a raster cell nothing was written to.
const EmptyPixel uint8 = 0

// Raster is a rows x cols grid of three channel uint8 cells stored row major. A cell is
// considered empty while its first channel equals EmptyPixel.
type Raster struct {
	rows, cols int
	pix        []uint8
}

// NewRaster returns a raster with every cell set to EmptyPixel. Non positive dimensions produce
// an empty raster.
func NewRaster(rows, cols int) *Raster {
	if rows < 0 {
		rows = 0
	}
	if cols < 0 {
		cols = 0
	}
	// EmptyPixel is zero so the fresh slice is already filled with it.
	return &Raster{rows: rows, cols: cols, pix: make([]uint8, rows*cols*3)}
}

// NewRasterFromImage copies img into a raster, channels in R, G, B order.
func NewRasterFromImage(img image.Image) *Raster {
	b := img.Bounds()
	r := NewRaster(b.Dy(), b.Dx())
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			c := color.RGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.RGBA)
			r.Set(y, x, [3]uint8{c.R, c.G, c.B})
		}
	}
	return r
}

// Rows returns the number of rows.
func (r *Raster) Rows() int {
	return r.rows
}

// Cols returns the number of columns.
func (r *Raster) Cols() int {
	return r.cols
}

// In reports whether (row, col) is inside the raster.
func (r *Raster) In(row, col int) bool {
	return row >= 0 && row < r.rows && col >= 0 && col < r.cols
}

func (r *Raster) k(row, col int) int {
	return (row*r.cols + col) * 3
}

// Get returns the three channels at (row, col).
func (r *Raster) Get(row, col int) [3]uint8 {
	k := r.k(row, col)
	return [3]uint8{r.pix[k], r.pix[k+1], r.pix[k+2]}
}

// Set writes all three channels at (row, col) at once.
func (r *Raster) Set(row, col int, c [3]uint8) {
	k := r.k(row, col)
	r.pix[k], r.pix[k+1], r.pix[k+2] = c[0], c[1], c[2]
}

// IsEmpty reports whether the cell at (row, col) still holds EmptyPixel.
func (r *Raster) IsEmpty(row, col int) bool {
	return r.pix[r.k(row, col)] == EmptyPixel
}

// CountEmpty returns the number of empty cells.
func (r *Raster) CountEmpty() int {
	n := 0
	for k := 0; k < len(r.pix); k += 3 {
		if r.pix[k] == EmptyPixel {
			n++
		}
	}
	return n
}

// Clone returns a deep copy.
func (r *Raster) Clone() *Raster {
	pix := make([]uint8, len(r.pix))
	copy(pix, r.pix)
	return &Raster{rows: r.rows, cols: r.cols, pix: pix}
}

// ColorModel implements image.Image.
func (r *Raster) ColorModel() color.Model {
	return color.RGBAModel
}

// Bounds implements image.Image; x runs along columns and y along rows.
func (r *Raster) Bounds() image.Rectangle {
	return image.Rect(0, 0, r.cols, r.rows)
}

// At implements image.Image.
func (r *Raster) At(x, y int) color.Color {
	if !r.In(y, x) {
		return color.RGBA{}
	}
	c := r.Get(y, x)
	return color.RGBA{c[0], c[1], c[2], 255}
}

// ToRGBA returns the raster as an *image.RGBA.
func (r *Raster) ToRGBA() *image.RGBA {
	img := image.NewRGBA(r.Bounds())
	for row := 0; row < r.rows; row++ {
		for col := 0; col < r.cols; col++ {
			c := r.Get(row, col)
			img.SetRGBA(col, row, color.RGBA{c[0], c[1], c[2], 255})
		}
	}
	return img
}
