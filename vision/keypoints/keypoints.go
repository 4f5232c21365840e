// Package keypoints contains the implementation of keypoints in an image. For now:
// - FAST keypoints
// - BRIEF descriptors
// - ORB keypoints and descriptors
// - brute force hamming matching.
package keypoints

import (
	"image"
	"image/color"
	"math"

	"github.com/fogleman/gg"

	"go.viam.com/lidarcalib/rimage"
)

type (
	// KeyPoint is an image.Point that contains coordinates of a kp.
	KeyPoint image.Point // keypoint type
	// KeyPoints is a slice of image.Point that contains several kps.
	KeyPoints []image.Point // set of keypoints type
)

// OrientedKeypoints contains keypoints with their corner scores and orientations.
type OrientedKeypoints struct {
	Points       KeyPoints
	Scores       []float64
	Orientations []float64
}

const orientationPatchSize = 31

// computeMaskOrientationFAST creates the circular mask used to compute orientations of corners.
func computeMaskOrientationFAST() *image.Gray {
	mask := image.NewGray(image.Rect(0, 0, orientationPatchSize, orientationPatchSize))
	indices := []int{15, 15, 15, 15, 14, 14, 14, 13, 13, 12, 11, 10, 9, 8, 6, 3}
	for i := -15; i < 16; i++ {
		for j := -indices[int(math.Abs(float64(i)))]; j < indices[int(math.Abs(float64(i)))]+1; j++ {
			mask.Set(j+15, i+15, color.Gray{1})
		}
	}
	return mask
}

// computeKeypointsOrientations returns the intensity centroid angle of each keypoint.
func computeKeypointsOrientations(img *image.Gray, kps KeyPoints) ([]float64, error) {
	orientations := make([]float64, len(kps))
	if len(kps) == 0 {
		return orientations, nil
	}
	nRows, nCols := orientationPatchSize, orientationPatchSize
	nRows2 := (nRows - 1) / 2
	nCols2 := (nCols - 1) / 2
	mask := computeMaskOrientationFAST()
	padded, err := rimage.PaddingGray(img, image.Point{nCols, nRows}, image.Point{nCols2, nRows2}, rimage.BorderConstant)
	if err != nil {
		return nil, err
	}
	for i, kp := range kps {
		m01, m10 := 0, 0
		for y := 0; y < nRows; y++ {
			m01Temp := 0
			for x := 0; x < nCols; x++ {
				if mask.GrayAt(x, y).Y > 0 {
					pixVal := int(padded.GrayAt(x+kp.X, y+kp.Y).Y)
					m10 += pixVal * (x - nCols2)
					m01Temp += pixVal
				}
			}
			m01 += m01Temp * (y - nRows2)
		}
		orientations[i] = math.Atan2(float64(m01), float64(m10))
	}
	return orientations, nil
}

// GetOrientedKeyPointsFromKeyPoints computes the orientation of keypoints in the corresponding image
// and return kps and corresponding orientations in a OrientedKeypoints struct.
func GetOrientedKeyPointsFromKeyPoints(img *image.Gray, kps KeyPoints) (*OrientedKeypoints, error) {
	orientations, err := computeKeypointsOrientations(img, kps)
	if err != nil {
		return nil, err
	}
	return &OrientedKeypoints{
		Points:       kps,
		Orientations: orientations,
	}, nil
}

// RescaleKeypoints multiplies the keypoint coordinates by scaleFactor.
func RescaleKeypoints(kps KeyPoints, scaleFactor int) KeyPoints {
	rescaled := make(KeyPoints, len(kps))
	for i, kp := range kps {
		rescaled[i] = kp.Mul(scaleFactor)
	}
	return rescaled
}

// PlotKeypoints draws keypoints on a copy of img.
func PlotKeypoints(img image.Image, kps KeyPoints) image.Image {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()

	dc := gg.NewContext(w, h)
	dc.DrawImage(img, -img.Bounds().Min.X, -img.Bounds().Min.Y)

	// draw keypoints on image
	dc.SetRGBA(0, 0, 1, 0.5)
	for _, p := range kps {
		dc.DrawCircle(float64(p.X), float64(p.Y), float64(3.0))
		dc.Fill()
	}
	return dc.Image()
}
