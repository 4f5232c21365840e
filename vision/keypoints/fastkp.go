package keypoints

import (
	"encoding/json"
	"image"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.viam.com/utils"

	"go.viam.com/lidarcalib/rimage"
)

// FASTConfig holds the parameters of the FAST corner detector.
type FASTConfig struct {
	// Threshold is the minimum intensity difference, as a fraction of the full 0-255 range,
	// for a circle pixel to count as brighter or darker than the center.
	Threshold float64 `json:"threshold"`
	// NMatchesCircle is the number of contiguous circle pixels that must all be brighter or
	// all be darker.
	NMatchesCircle int `json:"n_matches"`
	// NMSWinSize is the side of the square window used for non maximum suppression.
	NMSWinSize int  `json:"nms_win_size"`
	Oriented   bool `json:"oriented"`
}

// Validate ensures all parts of the FASTConfig are valid.
func (config *FASTConfig) Validate(path string) error {
	if config.Threshold <= 0 || config.Threshold >= 1 {
		return utils.NewConfigValidationError(path, errors.New("threshold should be in (0, 1)"))
	}
	if config.NMatchesCircle < 1 || config.NMatchesCircle > len(CircleIdx) {
		return utils.NewConfigValidationError(path, errors.Errorf("n_matches should be in [1, %d]", len(CircleIdx)))
	}
	if config.NMSWinSize < 1 {
		return utils.NewConfigValidationError(path, errors.New("nms_win_size should be >= 1"))
	}
	return nil
}

// LoadFASTConfiguration loads a FASTConfig from a json file.
func LoadFASTConfiguration(file string) (*FASTConfig, error) {
	var config FASTConfig
	filePath := filepath.Clean(file)
	//nolint:gosec
	configFile, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer utils.UncheckedErrorFunc(configFile.Close)
	if err := json.NewDecoder(configFile).Decode(&config); err != nil {
		return nil, err
	}
	if err := config.Validate(file); err != nil {
		return nil, err
	}
	return &config, nil
}

// FASTKeypoints stores keypoints with their corner scores and, when computed, orientations.
type FASTKeypoints OrientedKeypoints

// IsOriented reports whether the keypoints carry orientations.
func (kps *FASTKeypoints) IsOriented() bool {
	return kps.Orientations != nil
}

// CrossIdx are the neighbors used for the FAST pre-test.
var CrossIdx = []image.Point{{0, 3}, {3, 0}, {0, -3}, {-3, 0}}

// CircleIdx is the Bresenham circle of radius 3 around a candidate, clockwise from the top.
var CircleIdx = []image.Point{
	{0, -3}, {1, -3}, {2, -2}, {3, -1}, {3, 0}, {3, 1}, {2, 2}, {1, 3},
	{0, 3}, {-1, 3}, {-2, 2}, {-3, 1}, {-3, 0}, {-3, -1}, {-2, -2}, {-1, -3},
}

const fastRadius = 3

// GetPointValuesInNeighborhood returns the gray values at p + each offset.
func GetPointValuesInNeighborhood(img *image.Gray, p image.Point, offsets []image.Point) []float64 {
	vals := make([]float64, len(offsets))
	for i, o := range offsets {
		vals[i] = float64(img.GrayAt(p.X+o.X, p.Y+o.Y).Y)
	}
	return vals
}

// isValidSliceVals reports whether s holds at least n contiguous ones, wrapping around.
func isValidSliceVals(s []float64, n int) bool {
	if n <= 0 || n > len(s) {
		return false
	}
	run := 0
	for i := 0; i < 2*len(s); i++ {
		if s[i%len(s)] > 0 {
			run++
			if run >= n {
				return true
			}
		} else {
			run = 0
		}
	}
	return false
}

func sumOfPositiveValuesSlice(s []float64) float64 {
	return lo.SumBy(s, func(v float64) float64 { return max(v, 0) })
}

func sumOfNegativeValuesSlice(s []float64) float64 {
	return lo.SumBy(s, func(v float64) float64 { return min(v, 0) })
}

// getBrighterValues flags the values strictly above t.
func getBrighterValues(s []float64, t float64) []float64 {
	return lo.Map(s, func(v float64, _ int) float64 {
		if v > t {
			return 1
		}
		return 0
	})
}

// getDarkerValues flags the values strictly below t.
func getDarkerValues(s []float64, t float64) []float64 {
	return lo.Map(s, func(v float64, _ int) float64 {
		if v < t {
			return 1
		}
		return 0
	})
}

// cornerScore returns the FAST score of p, or 0 if p is not a corner.
func cornerScore(img *image.Gray, p image.Point, threshold float64, nMatches int) float64 {
	center := float64(img.GrayAt(p.X, p.Y).Y)
	vals := GetPointValuesInNeighborhood(img, p, CircleIdx)
	brighter := getBrighterValues(vals, center+threshold)
	darker := getDarkerValues(vals, center-threshold)
	isBright := isValidSliceVals(brighter, nMatches)
	isDark := isValidSliceVals(darker, nMatches)
	if !isBright && !isDark {
		return 0
	}
	diffs := make([]float64, len(vals))
	for i, v := range vals {
		d := v - center
		switch {
		case brighter[i] > 0:
			diffs[i] = d - threshold
		case darker[i] > 0:
			diffs[i] = d + threshold
		}
	}
	return max(sumOfPositiveValuesSlice(diffs), -sumOfNegativeValuesSlice(diffs))
}

// computeFASTScores detects corners and returns them in raster order with their scores.
func computeFASTScores(img *image.Gray, cfg *FASTConfig) (KeyPoints, []float64) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	threshold := cfg.Threshold * 255
	scores := make([][]float64, h)
	for y := range scores {
		scores[y] = make([]float64, w)
	}
	candidates := make(KeyPoints, 0)
	for y := fastRadius; y < h-fastRadius; y++ {
		for x := fastRadius; x < w-fastRadius; x++ {
			p := image.Point{x, y}
			if s := cornerScore(img, p, threshold, cfg.NMatchesCircle); s > 0 {
				scores[y][x] = s
				candidates = append(candidates, p)
			}
		}
	}

	half := cfg.NMSWinSize / 2
	kps := make(KeyPoints, 0, len(candidates))
	kpScores := make([]float64, 0, len(candidates))
	for _, p := range candidates {
		s := scores[p.Y][p.X]
		isMax := true
		for dy := -half; dy <= half && isMax; dy++ {
			for dx := -half; dx <= half; dx++ {
				x, y := p.X+dx, p.Y+dy
				if (dx == 0 && dy == 0) || x < 0 || y < 0 || x >= w || y >= h {
					continue
				}
				other := scores[y][x]
				// ties go to the candidate seen first in raster order
				earlier := dy < 0 || (dy == 0 && dx < 0)
				if other > s || (other == s && earlier) {
					isMax = false
					break
				}
			}
		}
		if isMax {
			kps = append(kps, p)
			kpScores = append(kpScores, s)
		}
	}
	return kps, kpScores
}

// ComputeFAST computes the location of FAST keypoints, in raster order.
func ComputeFAST(img *image.Gray, cfg *FASTConfig) KeyPoints {
	kps, _ := computeFASTScores(rimage.MakeGray(img), cfg)
	return kps
}

// NewFASTKeypointsFromImage detects FAST keypoints and, if cfg.Oriented, their orientations.
func NewFASTKeypointsFromImage(img *image.Gray, cfg *FASTConfig) (*FASTKeypoints, error) {
	img = rimage.MakeGray(img)
	kps, scores := computeFASTScores(img, cfg)
	var orientations []float64
	if cfg.Oriented {
		var err error
		orientations, err = computeKeypointsOrientations(img, kps)
		if err != nil {
			return nil, err
		}
	}
	return &FASTKeypoints{Points: kps, Scores: scores, Orientations: orientations}, nil
}
