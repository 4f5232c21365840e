package cli

import (
	"encoding/json"
	"image"
	"math"
	"os"
	"path/filepath"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"go.viam.com/lidarcalib/calibration"
	"go.viam.com/lidarcalib/rimage"
)

const histogramBins = 16

// report is what gets written to <prefix>score.json.
type report struct {
	Score         *calibration.Score              `json:"score,omitempty"`
	Configuration calibration.SensorConfiguration `json:"sensor_configuration"`
	NumProjected  int                             `json:"num_projected"`
	FilledDepth   int                             `json:"filled_depth_cells"`
	FilledColor   int                             `json:"filled_color_cells"`
	Translation   [3]float64                      `json:"translation"`
	RPY           [3]float64                      `json:"rpy"`
}

func newReport(res *calibration.FusionResult, score *calibration.Score) report {
	t := res.Transform.Translation()
	roll, pitch, yaw := res.Transform.RPY()
	return report{
		Score:         score,
		Configuration: res.Configuration,
		NumProjected:  res.NumProjected,
		FilledDepth:   res.FilledDepth,
		FilledColor:   res.FilledColor,
		Translation:   [3]float64{t.X, t.Y, t.Z},
		RPY:           [3]float64{roll, pitch, yaw},
	}
}

// writeOutputs writes the rasters, plots and scores of one fusion into dir, every file name
// starting with prefix. artifact may be nil.
func writeOutputs(
	dir, prefix string,
	res *calibration.FusionResult,
	artifact *calibration.MatchArtifact,
	scale float64,
) (*report, error) {
	if err := ensureDir(dir); err != nil {
		return nil, err
	}
	path := func(name string) string {
		return filepath.Join(dir, prefix+name)
	}
	images := map[string]image.Image{
		"depth.png": res.Depth,
		"color.png": res.Color,
		"plot.png":  res.Plot,
	}
	var score *calibration.Score
	if artifact != nil {
		images["matches.png"] = artifact.Visualization
		s, err := artifact.Score()
		if err != nil {
			return nil, err
		}
		score = &s
		if distances := artifact.Distances(); len(distances) > 0 {
			if err := writeHistogram(path("match_distances.png"), distances); err != nil {
				return nil, err
			}
		}
	}
	for name, img := range images {
		if err := rimage.WriteImageToFile(path(name), scaleImage(img, scale)); err != nil {
			return nil, err
		}
	}

	rep := newReport(res, score)
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path("score.json"), data, 0o600); err != nil {
		return nil, errors.Wrap(err, "cannot write score")
	}
	return &rep, nil
}

// scaleImage resizes img by factor with nearest neighbour sampling, keeping raster cells sharp.
func scaleImage(img image.Image, factor float64) image.Image {
	if factor <= 0 || factor == 1 {
		return img
	}
	b := img.Bounds()
	w := uint(math.Max(1, math.Round(float64(b.Dx())*factor)))
	h := uint(math.Max(1, math.Round(float64(b.Dy())*factor)))
	return resize.Resize(w, h, img, resize.NearestNeighbor)
}

func writeHistogram(path string, distances []float64) error {
	p := plot.New()
	p.Title.Text = "Match distances"
	p.X.Label.Text = "hamming distance"
	p.Y.Label.Text = "matches"
	hist, err := plotter.NewHist(plotter.Values(distances), histogramBins)
	if err != nil {
		return errors.Wrap(err, "cannot build histogram")
	}
	p.Add(hist)
	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}
