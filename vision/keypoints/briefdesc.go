package keypoints

import (
	"image"
	"math"
	"math/rand/v2"

	"github.com/pkg/errors"
	"go.viam.com/utils"
	"gonum.org/v1/gonum/stat/distuv"

	"go.viam.com/lidarcalib/rimage"
)

// Descriptor is a binary descriptor packed into 64 bit words.
type Descriptor []uint64

// Descriptors is a set of descriptors, one per keypoint.
type Descriptors []Descriptor

// SamplingType stores 0 if a sampling of image points for BRIEF is uniform, 1 if gaussian, 2 if
// regularly spaced.
type SamplingType int

const (
	uniform SamplingType = iota // 0
	normal                      // 1
	fixed                       // 2
)

// samplingSeed keeps the sample pattern identical between runs so descriptors of two images
// computed with the same config are comparable.
const samplingSeed = 0x1d4a2c

// SamplePairs are N pairs of points used to create the BRIEF Descriptors of a patch.
type SamplePairs struct {
	P0 []image.Point
	P1 []image.Point
	N  int
}

// GenerateSamplePairs generates n samples for a patch size with the chosen Sampling Type.
func GenerateSamplePairs(dist SamplingType, n, patchSize int) *SamplePairs {
	src := rand.NewPCG(samplingSeed, uint64(n*patchSize))
	// sample positions
	var xs0, ys0, xs1, ys1 []int
	if dist == fixed {
		xs0 = sampleIntegers(src, patchSize, n, dist)
		ys0 = sampleIntegers(src, patchSize, n, dist)
		xs1 = sampleIntegers(src, patchSize, n, dist)
		for i := 0; i < n; i++ {
			ys1 = append(ys1, -ys0[i])
			if i%2 == 0 {
				xs0[i] = 2 * xs0[i] / 3
				xs1[i] = -2 * xs1[i] / 3
				ys1[i] = ys0[i]
			}
		}
	} else {
		xs0 = sampleIntegers(src, patchSize, n, dist)
		ys0 = sampleIntegers(src, patchSize, n, dist)
		xs1 = sampleIntegers(src, patchSize, n, dist)
		ys1 = sampleIntegers(src, patchSize, n, dist)
	}
	p0 := make([]image.Point, 0, n)
	p1 := make([]image.Point, 0, n)
	for i := 0; i < n; i++ {
		p0 = append(p0, image.Point{X: xs0[i], Y: ys0[i]})
		p1 = append(p1, image.Point{X: xs1[i], Y: ys1[i]})
	}

	return &SamplePairs{P0: p0, P1: p1, N: n}
}

func sampleIntegers(src rand.Source, patchSize, n int, sampling SamplingType) []int {
	vMin := math.Round(-(float64(patchSize) - 2) / 2.)
	vMax := math.Round(float64(patchSize)/2.) - 1
	out := make([]int, n)
	switch sampling {
	case fixed:
		if n < 2 {
			break
		}
		for i := range out {
			out[i] = int(math.Round(vMin + float64(i)*(vMax-vMin)/float64(n-1)))
		}
	case normal:
		// isotropic gaussian with sigma^2 = S^2/25, from the BRIEF paper
		d := distuv.Normal{Mu: 0, Sigma: float64(patchSize) / 5, Src: src}
		for i := range out {
			out[i] = int(math.Round(math.Max(vMin, math.Min(vMax, d.Rand()))))
		}
	default:
		d := distuv.Uniform{Min: vMin, Max: vMax, Src: src}
		for i := range out {
			out[i] = int(math.Round(d.Rand()))
		}
	}
	return out
}

// BRIEFConfig stores the parameters.
type BRIEFConfig struct {
	N              int          `json:"n"` // number of samples taken
	Sampling       SamplingType `json:"sampling"`
	UseOrientation bool         `json:"use_orientation"`
	PatchSize      int          `json:"patch_size"`
}

// Validate ensures all parts of the BRIEFConfig are valid.
func (config *BRIEFConfig) Validate(path string) error {
	if config.N < 64 || config.N%64 != 0 {
		return utils.NewConfigValidationError(path, errors.New("n should be a positive multiple of 64"))
	}
	if config.Sampling < uniform || config.Sampling > fixed {
		return utils.NewConfigValidationError(path, errors.Errorf("unknown sampling type %d", config.Sampling))
	}
	if config.PatchSize < 5 {
		return utils.NewConfigValidationError(path, errors.New("patch_size should be >= 5"))
	}
	return nil
}

// ComputeBRIEFDescriptors computes BRIEF descriptors on image img at keypoints kps. Keypoints
// closer than half a patch to the border are dropped; the returned keypoints, scores and
// orientations line up with the returned descriptors.
func ComputeBRIEFDescriptors(
	img *image.Gray,
	sp *SamplePairs,
	kps *FASTKeypoints,
	cfg *BRIEFConfig,
) (Descriptors, *FASTKeypoints, error) {
	img = rimage.MakeGray(img)
	// blur image
	kernel, err := rimage.GetGaussianKernel(2, 7)
	if err != nil {
		return nil, nil, err
	}
	blurred, err := rimage.ConvolveGray(img, kernel, image.Point{3, 3}, rimage.BorderReflect)
	if err != nil {
		return nil, nil, err
	}

	halfSize := cfg.PatchSize / 2
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	descs := make(Descriptors, 0, len(kps.Points))
	kept := &FASTKeypoints{Points: make(KeyPoints, 0, len(kps.Points))}
	for k, kp := range kps.Points {
		if kp.X < halfSize || kp.Y < halfSize || kp.X >= w-halfSize || kp.Y >= h-halfSize {
			continue
		}
		cosTheta := 1.0
		sinTheta := 0.0
		// if use orientation and keypoints are oriented, compute rotation matrix
		if cfg.UseOrientation && kps.IsOriented() {
			angle := kps.Orientations[k]
			cosTheta = math.Cos(angle)
			sinTheta = math.Sin(angle)
		}
		// Divide by 64 since we store a descriptor as a uint64 array.
		descriptor := make(Descriptor, sp.N/64)
		for i := 0; i < sp.N; i++ {
			x0, y0 := float64(sp.P0[i].X), float64(sp.P0[i].Y)
			x1, y1 := float64(sp.P1[i].X), float64(sp.P1[i].Y)
			// compute rotated sampled coordinates (Identity matrix if no orientation s)
			outx0 := int(math.Round(cosTheta*x0 - sinTheta*y0))
			outy0 := int(math.Round(sinTheta*x0 + cosTheta*y0))
			outx1 := int(math.Round(cosTheta*x1 - sinTheta*y1))
			outy1 := int(math.Round(sinTheta*x1 + cosTheta*y1))
			// fill BRIEF descriptor; samples rotated out of the image read as 0
			p0Val := blurred.GrayAt(kp.X+outx0, kp.Y+outy0).Y
			p1Val := blurred.GrayAt(kp.X+outx1, kp.Y+outy1).Y
			if p0Val > p1Val {
				// This flips the bit at i%64 of word i/64 to 1.
				descriptor[i/64] |= 1 << (i % 64)
			}
		}
		descs = append(descs, descriptor)
		kept.Points = append(kept.Points, kp)
		if k < len(kps.Scores) {
			kept.Scores = append(kept.Scores, kps.Scores[k])
		}
		if kps.IsOriented() {
			kept.Orientations = append(kept.Orientations, kps.Orientations[k])
		}
	}
	return descs, kept, nil
}
