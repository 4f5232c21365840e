package calibration

import (
	"image"

	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/lidarcalib/logging"
	"go.viam.com/lidarcalib/rimage"
	"go.viam.com/lidarcalib/vision/keypoints"
)

// MatcherConfig holds the feature matching parameters.
type MatcherConfig struct {
	ORB         *keypoints.ORBConfig
	Matching    *keypoints.MatchingConfig
	MaxFeatures int
	GoodMatches int
}

// MatchArtifact is the result of matching a depth raster against a color raster.
type MatchArtifact struct {
	// Matches are sorted by ascending hamming distance. Idx1 indexes DepthKeypoints and Idx2
	// ColorKeypoints.
	Matches        []keypoints.DescriptorMatch
	DepthKeypoints keypoints.KeyPoints
	ColorKeypoints keypoints.KeyPoints
	// DescriptorBits is the length of the descriptors the distances were measured on.
	DescriptorBits int
	// Visualization shows both rasters side by side with the matches joined by lines.
	Visualization image.Image
}

// Score summarizes a MatchArtifact.
type Score struct {
	NumMatches     int     `json:"num_matches"`
	MeanDistance   float64 `json:"mean_distance"`
	MedianDistance float64 `json:"median_distance"`
	MinDistance    float64 `json:"min_distance"`
	MaxDistance    float64 `json:"max_distance"`
	// Normalized is 1 - MeanDistance/DescriptorBits; 1 means every kept match is exact and 0
	// means there is no match at all.
	Normalized float64 `json:"normalized"`
}

// MatchRasters extracts ORB features from both rasters, pairs every depth feature with its
// nearest color feature and keeps the GoodMatches closest pairs. Rasters without features give
// an artifact with no matches.
func MatchRasters(depth, colors *rimage.Raster, cfg MatcherConfig, logger logging.Logger) (*MatchArtifact, error) {
	if cfg.ORB == nil {
		cfg.ORB = keypoints.DefaultORBConfig()
	}
	if cfg.Matching == nil {
		cfg.Matching = &keypoints.MatchingConfig{}
	}
	sp := cfg.ORB.SamplePairs()
	depthDesc, depthKps, err := keypoints.ComputeORBKeypoints(rimage.MakeGray(depth), sp, cfg.ORB, cfg.MaxFeatures)
	if err != nil {
		return nil, errors.Wrap(err, "cannot compute depth raster features")
	}
	colorDesc, colorKps, err := keypoints.ComputeORBKeypoints(rimage.MakeGray(colors), sp, cfg.ORB, cfg.MaxFeatures)
	if err != nil {
		return nil, errors.Wrap(err, "cannot compute color raster features")
	}
	matches, err := keypoints.MatchDescriptors(depthDesc, colorDesc, cfg.Matching, logger)
	if err != nil {
		return nil, err
	}
	kept := matches.Indices
	if cfg.GoodMatches > 0 && len(kept) > cfg.GoodMatches {
		kept = kept[:cfg.GoodMatches]
	}
	vis, err := keypoints.DrawMatches(depth, colors, depthKps, colorKps, kept)
	if err != nil {
		return nil, errors.Wrap(err, "cannot draw matches")
	}
	logger.Debugw("matched rasters",
		"depth_features", len(depthKps), "color_features", len(colorKps),
		"matches", len(matches.Indices), "kept", len(kept))
	return &MatchArtifact{
		Matches:        kept,
		DepthKeypoints: depthKps,
		ColorKeypoints: colorKps,
		DescriptorBits: cfg.ORB.BRIEFConf.N,
		Visualization:  vis,
	}, nil
}

// Distances returns the hamming distance of every match, in match order.
func (a *MatchArtifact) Distances() []float64 {
	return lo.Map(a.Matches, func(m keypoints.DescriptorMatch, _ int) float64 {
		return float64(m.Distance)
	})
}

// Score summarizes the matches of the artifact.
func (a *MatchArtifact) Score() (Score, error) {
	if len(a.Matches) == 0 {
		return Score{}, nil
	}
	data := stats.Float64Data(a.Distances())
	var s Score
	var err error
	s.NumMatches = len(a.Matches)
	if s.MeanDistance, err = data.Mean(); err != nil {
		return Score{}, errors.Wrap(err, "cannot compute mean distance")
	}
	if s.MedianDistance, err = data.Median(); err != nil {
		return Score{}, errors.Wrap(err, "cannot compute median distance")
	}
	if s.MinDistance, err = data.Min(); err != nil {
		return Score{}, errors.Wrap(err, "cannot compute min distance")
	}
	if s.MaxDistance, err = data.Max(); err != nil {
		return Score{}, errors.Wrap(err, "cannot compute max distance")
	}
	if a.DescriptorBits > 0 {
		s.Normalized = 1 - s.MeanDistance/float64(a.DescriptorBits)
	}
	return s, nil
}
