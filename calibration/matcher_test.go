package calibration

import (
	"image"
	"testing"

	"go.viam.com/test"

	"go.viam.com/lidarcalib/logging"
	"go.viam.com/lidarcalib/rimage"
	"go.viam.com/lidarcalib/vision/keypoints"
)

// blocksRaster paints a few filled rectangles of different intensities on an empty raster.
func blocksRaster(rows, cols int, offset image.Point) *rimage.Raster {
	r := rimage.NewRaster(rows, cols)
	blocks := []struct {
		rect image.Rectangle
		v    uint8
	}{
		{image.Rect(40, 40, 70, 60), 230},
		{image.Rect(100, 50, 115, 90), 160},
		{image.Rect(60, 90, 90, 100), 200},
		{image.Rect(130, 35, 150, 45), 120},
	}
	for _, b := range blocks {
		rect := b.rect.Add(offset)
		for y := rect.Min.Y; y < rect.Max.Y; y++ {
			for x := rect.Min.X; x < rect.Max.X; x++ {
				if r.In(y, x) {
					r.Set(y, x, [3]uint8{b.v, b.v, b.v})
				}
			}
		}
	}
	return r
}

func testMatcherConfig() MatcherConfig {
	orb := keypoints.DefaultORBConfig()
	orb.Layers = 1
	return MatcherConfig{
		ORB:         orb,
		Matching:    &keypoints.MatchingConfig{},
		MaxFeatures: DefaultMaxFeatures,
		GoodMatches: 10,
	}
}

func TestMatchRastersIdentical(t *testing.T) {
	logger := logging.NewTestLogger(t)
	r := blocksRaster(140, 200, image.Point{})

	artifact, err := MatchRasters(r, r.Clone(), testMatcherConfig(), logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(artifact.DepthKeypoints), test.ShouldBeGreaterThan, 0)
	test.That(t, len(artifact.ColorKeypoints), test.ShouldEqual, len(artifact.DepthKeypoints))
	test.That(t, len(artifact.Matches), test.ShouldBeGreaterThan, 0)
	test.That(t, len(artifact.Matches), test.ShouldBeLessThanOrEqualTo, 10)
	test.That(t, artifact.DescriptorBits, test.ShouldEqual, 256)
	for i := 1; i < len(artifact.Matches); i++ {
		test.That(t, artifact.Matches[i].Distance, test.ShouldBeGreaterThanOrEqualTo, artifact.Matches[i-1].Distance)
	}
	test.That(t, artifact.Matches[0].Distance, test.ShouldEqual, 0)

	b := artifact.Visualization.Bounds()
	test.That(t, b.Dx(), test.ShouldEqual, 400)
	test.That(t, b.Dy(), test.ShouldEqual, 140)

	score, err := artifact.Score()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, score.NumMatches, test.ShouldEqual, len(artifact.Matches))
	test.That(t, score.MinDistance, test.ShouldEqual, 0)
	test.That(t, score.MaxDistance, test.ShouldBeGreaterThanOrEqualTo, score.MedianDistance)
	test.That(t, score.MedianDistance, test.ShouldBeGreaterThanOrEqualTo, score.MinDistance)
	test.That(t, score.Normalized, test.ShouldBeGreaterThan, 0)
	test.That(t, score.Normalized, test.ShouldBeLessThanOrEqualTo, 1)
}

func TestMatchRastersNoFeatures(t *testing.T) {
	logger := logging.NewTestLogger(t)

	// too small for a single patch
	small := rimage.NewRaster(16, 1351)
	artifact, err := MatchRasters(small, small, testMatcherConfig(), logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, artifact.Matches, test.ShouldBeEmpty)
	score, err := artifact.Score()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, score, test.ShouldResemble, Score{})

	// large enough but flat
	flat := rimage.NewRaster(64, 64)
	artifact, err = MatchRasters(flat, blocksRaster(140, 200, image.Point{}), testMatcherConfig(), logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, artifact.DepthKeypoints, test.ShouldBeEmpty)
	test.That(t, artifact.Matches, test.ShouldBeEmpty)
	test.That(t, artifact.Visualization.Bounds().Dx(), test.ShouldEqual, 264)

	// degenerate rasters
	one := rimage.NewRaster(1, 1)
	artifact, err = MatchRasters(one, one, MatcherConfig{}, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, artifact.Matches, test.ShouldBeEmpty)
}

func TestMatchRastersTruncates(t *testing.T) {
	logger := logging.NewTestLogger(t)
	cfg := testMatcherConfig()
	cfg.GoodMatches = 2
	depth := blocksRaster(140, 200, image.Point{})
	colors := blocksRaster(140, 200, image.Point{X: 5, Y: 3})
	artifact, err := MatchRasters(depth, colors, cfg, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(artifact.Matches), test.ShouldBeLessThanOrEqualTo, 2)
	test.That(t, artifact.Distances(), test.ShouldHaveLength, len(artifact.Matches))
}

func TestScoreValues(t *testing.T) {
	a := &MatchArtifact{
		Matches: []keypoints.DescriptorMatch{
			{Idx1: 0, Idx2: 0, Distance: 0},
			{Idx1: 1, Idx2: 2, Distance: 32},
			{Idx1: 2, Idx2: 1, Distance: 64},
		},
		DescriptorBits: 256,
	}
	score, err := a.Score()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, score.NumMatches, test.ShouldEqual, 3)
	test.That(t, score.MeanDistance, test.ShouldEqual, 32)
	test.That(t, score.MedianDistance, test.ShouldEqual, 32)
	test.That(t, score.MinDistance, test.ShouldEqual, 0)
	test.That(t, score.MaxDistance, test.ShouldEqual, 64)
	test.That(t, score.Normalized, test.ShouldEqual, 0.875)
}
