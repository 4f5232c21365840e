package keypoints

import (
	"image"

	"github.com/fogleman/gg"

	"go.viam.com/lidarcalib/rimage"
)

// DrawMatches draws img1 and img2 side by side and joins every matched pair of keypoints with a
// line. A match referring to a missing keypoint is an error.
func DrawMatches(img1, img2 image.Image, kps1, kps2 KeyPoints, matches []DescriptorMatch) (image.Image, error) {
	from, to, err := GetMatchingKeyPoints(matches, kps1, kps2)
	if err != nil {
		return nil, err
	}
	b1, b2 := img1.Bounds(), img2.Bounds()
	w := b1.Dx() + b2.Dx()
	h := max(b1.Dy(), b2.Dy())
	if w == 0 || h == 0 {
		return image.NewRGBA(image.Rect(0, 0, w, h)), nil
	}
	dc := gg.NewContext(w, h)
	dc.SetRGB(0, 0, 0)
	dc.Clear()
	dc.DrawImage(img1, -b1.Min.X, -b1.Min.Y)
	dc.DrawImage(img2, b1.Dx()-b2.Min.X, -b2.Min.Y)

	offset := image.Point{b1.Dx(), 0}
	for i := range from {
		c := rimage.Jet(uint8((i * 47) % 256))
		p1, p2 := from[i], to[i].Add(offset)
		rimage.DrawLine(dc, p1, p2, c, 1)
		rimage.DrawFilledCircle(dc, float64(p1.X), float64(p1.Y), 2, c)
		rimage.DrawFilledCircle(dc, float64(p2.X), float64(p2.Y), 2, c)
	}
	return dc.Image(), nil
}
