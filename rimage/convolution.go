package rimage

import (
	"image"
	"image/color"
	"math"

	"github.com/pkg/errors"

	"go.viam.com/lidarcalib/utils"
)

// BorderPad is the way pixels outside an image are made up when convolving near its edges.
type BorderPad int

const (
	// BorderConstant pads with zeros.
	BorderConstant BorderPad = iota
	// BorderReplicate repeats the edge pixel.
	BorderReplicate
	// BorderReflect mirrors the image at its edge, not repeating the edge pixel.
	BorderReflect
)

// Kernel is a 2D convolution matrix; Content is indexed [y][x].
type Kernel struct {
	Content [][]float64
	Width   int
	Height  int
}

// Size returns the kernel dimensions.
func (k *Kernel) Size() image.Point {
	return image.Point{k.Width, k.Height}
}

// At returns the kernel value at (x, y).
func (k *Kernel) At(x, y int) float64 {
	return k.Content[y][x]
}

// Normalize scales the kernel so its entries sum to one.
func (k *Kernel) Normalize() *Kernel {
	sum := 0.
	for _, row := range k.Content {
		for _, v := range row {
			sum += v
		}
	}
	if sum == 0 {
		return k
	}
	for _, row := range k.Content {
		for i := range row {
			row[i] /= sum
		}
	}
	return k
}

// makeRangeArray gives the offsets of a kernel of the given length from its center.
// If length is even, then the origin is to the right of middle i.e. 4 -> {-2, -1, 0, 1}.
func makeRangeArray(length int) []int {
	if length <= 0 {
		return make([]int, 0)
	}
	out := make([]int, length)
	for i := range out {
		out[i] = i - length/2
	}
	return out
}

// GaussianFunction2D takes in a sigma and returns an isotropic 2D gaussian.
func GaussianFunction2D(sigma float64) func(p1, p2 float64) float64 {
	if sigma <= 0. {
		return func(p1, p2 float64) float64 {
			return 1.
		}
	}
	return func(p1, p2 float64) float64 {
		return math.Exp(-0.5*(p1*p1+p2*p2)/math.Pow(sigma, 2)) / (sigma * sigma * 2. * math.Pi)
	}
}

// GetGaussianKernel returns a normalized size x size gaussian kernel centered in the window.
func GetGaussianKernel(sigma float64, size int) (*Kernel, error) {
	if size <= 0 || size%2 == 0 {
		return nil, errors.Errorf("gaussian kernel size must be odd and positive, got %d", size)
	}
	gaus2D := GaussianFunction2D(sigma)
	offsets := makeRangeArray(size)
	content := make([][]float64, size)
	for j, dy := range offsets {
		content[j] = make([]float64, size)
		for i, dx := range offsets {
			content[j][i] = gaus2D(float64(dx), float64(dy))
		}
	}
	k := &Kernel{Content: content, Width: size, Height: size}
	return k.Normalize(), nil
}

// PaddingGray pads img so that a kernel of kernelSize anchored at anchor can be applied to every
// original pixel.
func PaddingGray(img *image.Gray, kernelSize, anchor image.Point, border BorderPad) (*image.Gray, error) {
	if anchor.X < 0 || anchor.Y < 0 || anchor.X >= kernelSize.X || anchor.Y >= kernelSize.Y {
		return nil, errors.Errorf("anchor %v outside of kernel of size %v", anchor, kernelSize)
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil, errors.New("cannot pad an empty image")
	}
	left, top := anchor.X, anchor.Y
	padded := image.NewGray(image.Rect(0, 0, w+kernelSize.X-1, h+kernelSize.Y-1))
	for y := 0; y < padded.Bounds().Dy(); y++ {
		for x := 0; x < padded.Bounds().Dx(); x++ {
			sx, okX := borderIndex(x-left, w, border)
			sy, okY := borderIndex(y-top, h, border)
			if !okX || !okY {
				continue
			}
			padded.SetGray(x, y, img.GrayAt(b.Min.X+sx, b.Min.Y+sy))
		}
	}
	return padded, nil
}

func borderIndex(i, n int, border BorderPad) (int, bool) {
	if i >= 0 && i < n {
		return i, true
	}
	switch border {
	case BorderReplicate:
		return utils.MinInt(utils.MaxInt(i, 0), n-1), true
	case BorderReflect:
		if n == 1 {
			return 0, true
		}
		period := 2 * (n - 1)
		i = utils.AbsInt(i) % period
		if i >= n {
			i = period - i
		}
		return i, true
	default:
		return 0, false
	}
}

// ConvolveGray applies a convolution matrix (Kernel) to a grayscale image.
// Example of usage:
//
//	res, err := ConvolveGray(img, kernel, image.Point{1, 1}, BorderReflect)
//
// Note: the anchor represents a point inside the area of the kernel. After every step of the convolution the position
// specified by the anchor point gets updated on the result image.
func ConvolveGray(img *image.Gray, kernel *Kernel, anchor image.Point, border BorderPad) (*image.Gray, error) {
	kernelSize := kernel.Size()
	padded, err := PaddingGray(img, kernelSize, anchor, border)
	if err != nil {
		return nil, err
	}
	originalSize := img.Bounds().Size()
	resultImage := image.NewGray(image.Rect(0, 0, originalSize.X, originalSize.Y))
	utils.ParallelForEachPixel(originalSize, func(x, y int) {
		sum := float64(0)
		for ky := 0; ky < kernelSize.Y; ky++ {
			for kx := 0; kx < kernelSize.X; kx++ {
				pixel := padded.GrayAt(x+kx, y+ky)
				sum += float64(pixel.Y) * kernel.At(kx, ky)
			}
		}
		sum = utils.ClampF64(math.Round(sum), 0, 255)
		resultImage.SetGray(x, y, color.Gray{uint8(sum)})
	})
	return resultImage, nil
}
