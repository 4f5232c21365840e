package keypoints

import (
	"image"
	"sort"

	"github.com/pkg/errors"
	"go.viam.com/utils"
)

// ORBConfig contains the parameters / configs needed to compute ORB features.
type ORBConfig struct {
	Layers          int          `json:"n_layers"`
	DownscaleFactor int          `json:"downscale_factor"`
	FastConf        *FASTConfig  `json:"fast"`
	BRIEFConf       *BRIEFConfig `json:"brief"`
}

// DefaultORBConfig mirrors the usual ORB settings: 256 bit descriptors on a 31 pixel patch, FAST-9
// with a threshold of 20 gray levels.
func DefaultORBConfig() *ORBConfig {
	return &ORBConfig{
		Layers:          3,
		DownscaleFactor: 2,
		FastConf: &FASTConfig{
			Threshold:      20. / 255,
			NMatchesCircle: 9,
			NMSWinSize:     3,
			Oriented:       true,
		},
		BRIEFConf: &BRIEFConfig{
			N:              256,
			Sampling:       normal,
			UseOrientation: true,
			PatchSize:      31,
		},
	}
}

// Validate ensures all parts of the ORBConfig are valid.
func (config *ORBConfig) Validate(path string) error {
	if config.Layers < 1 {
		return utils.NewConfigValidationError(path, errors.New("n_layers should be >= 1"))
	}
	if config.DownscaleFactor <= 1 {
		return utils.NewConfigValidationError(path, errors.New("downscale_factor should be greater than 1"))
	}
	if config.FastConf == nil {
		return utils.NewConfigValidationFieldRequiredError(path, "fast")
	}
	if err := config.FastConf.Validate(path + ".fast"); err != nil {
		return err
	}
	if config.BRIEFConf == nil {
		return utils.NewConfigValidationFieldRequiredError(path, "brief")
	}
	return config.BRIEFConf.Validate(path + ".brief")
}

// SamplePairs returns the BRIEF sampling pattern described by the config.
func (config *ORBConfig) SamplePairs() *SamplePairs {
	return GenerateSamplePairs(config.BRIEFConf.Sampling, config.BRIEFConf.N, config.BRIEFConf.PatchSize)
}

type orbFeature struct {
	point image.Point
	score float64
	desc  Descriptor
}

// ComputeORBKeypoints computes ORB keypoints on a gray image: FAST corners on every layer of an
// image pyramid, described with oriented BRIEF. At most maxFeatures keypoints are kept, strongest
// corner score first; maxFeatures <= 0 keeps them all. Keypoints are in original image
// coordinates. An image too small to hold a single patch yields no keypoints.
func ComputeORBKeypoints(im *image.Gray, sp *SamplePairs, cfg *ORBConfig, maxFeatures int) (Descriptors, KeyPoints, error) {
	if err := cfg.Validate(""); err != nil {
		return nil, nil, err
	}
	minSize := cfg.BRIEFConf.PatchSize
	b := im.Bounds()
	if b.Dx() < minSize || b.Dy() < minSize {
		return Descriptors{}, KeyPoints{}, nil
	}
	pyramid, err := GetImagePyramid(im, cfg.Layers, cfg.DownscaleFactor, minSize)
	if err != nil {
		return nil, nil, err
	}
	features := make([]orbFeature, 0)
	for i, currentImage := range pyramid.Images {
		fastKps, err := NewFASTKeypointsFromImage(currentImage, cfg.FastConf)
		if err != nil {
			return nil, nil, err
		}
		descs, kept, err := ComputeBRIEFDescriptors(currentImage, sp, fastKps, cfg.BRIEFConf)
		if err != nil {
			return nil, nil, err
		}
		rescaled := RescaleKeypoints(kept.Points, pyramid.Scales[i])
		for j := range descs {
			features = append(features, orbFeature{point: rescaled[j], score: kept.Scores[j], desc: descs[j]})
		}
	}
	sort.SliceStable(features, func(i, j int) bool {
		return features[i].score > features[j].score
	})
	if maxFeatures > 0 && len(features) > maxFeatures {
		features = features[:maxFeatures]
	}
	orbDescriptors := make(Descriptors, len(features))
	orbPoints := make(KeyPoints, len(features))
	for i, f := range features {
		orbDescriptors[i] = f.desc
		orbPoints[i] = f.point
	}
	return orbDescriptors, orbPoints, nil
}
