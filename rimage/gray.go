package rimage

import (
	"image"
	"image/draw"
)

// SameImgSize compares images to see if they're the same size.
func SameImgSize(g1, g2 image.Image) bool {
	return g1.Bounds().Dx() == g2.Bounds().Dx() && g1.Bounds().Dy() == g2.Bounds().Dy()
}

// MakeGray takes an image and well... makes it gray (image.Gray). The result starts at the origin.
func MakeGray(pic image.Image) *image.Gray {
	if g, ok := pic.(*image.Gray); ok && g.Bounds().Min == (image.Point{}) {
		return g
	}
	b := pic.Bounds()
	result := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(result, result.Bounds(), pic, b.Min, draw.Src)
	return result
}
