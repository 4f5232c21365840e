package keypoints

import (
	"image"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"

	"go.viam.com/lidarcalib/rimage"
)

// ImagePyramid contains the successive downscaled images and their scale relative to the
// original.
type ImagePyramid struct {
	Images []*image.Gray
	Scales []int
}

// GetImagePyramid downscales img by downscaleFactor until either nLayers images exist or the next
// image would be smaller than minSize on a side. The first layer is the original image.
func GetImagePyramid(img *image.Gray, nLayers, downscaleFactor, minSize int) (*ImagePyramid, error) {
	if nLayers < 1 {
		return nil, errors.New("number of layers should be > 0")
	}
	if downscaleFactor < 2 {
		return nil, errors.New("downscale factor should be >= 2")
	}
	img = rimage.MakeGray(img)
	pyramid := &ImagePyramid{
		Images: []*image.Gray{img},
		Scales: []int{1},
	}
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	scale := 1
	for len(pyramid.Images) < nLayers {
		scale *= downscaleFactor
		lw, lh := w/scale, h/scale
		if lw < minSize || lh < minSize {
			break
		}
		resized := imaging.Resize(img, lw, lh, imaging.Linear)
		pyramid.Images = append(pyramid.Images, rimage.MakeGray(resized))
		pyramid.Scales = append(pyramid.Scales, scale)
	}
	return pyramid, nil
}
