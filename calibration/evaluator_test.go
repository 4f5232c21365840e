package calibration

import (
	"context"
	"image/color"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/lidarcalib/logging"
	"go.viam.com/lidarcalib/pointcloud"
	"go.viam.com/lidarcalib/referenceframe"
	"go.viam.com/lidarcalib/rimage/transform"
	"go.viam.com/lidarcalib/spatialmath"
	"go.viam.com/lidarcalib/vision/keypoints"
)

func identityLookup() *referenceframe.StaticLookup {
	lookup := referenceframe.NewStaticLookup()
	lookup.Set(DefaultCameraFrame, DefaultLidarFrame, spatialmath.NewIdentityTransform())
	return lookup
}

func scenarioInput() FusionInput {
	return FusionInput{
		Cloud: cloudOf(scenarioPoints()...),
		Image: uniformImage(100, 100, color.RGBA{200, 100, 50, 255}),
	}
}

func TestNewEvaluator(t *testing.T) {
	logger := logging.NewTestLogger(t)

	_, err := NewEvaluator(nil, nil, identityLookup(), logger)
	test.That(t, errors.Is(err, transform.ErrNoIntrinsics), test.ShouldBeTrue)

	_, err = NewEvaluator(nil, scenarioIntrinsics(), nil, logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "extrinsics")

	bad := NewDefaultConfig()
	bad.ColorFactor = -1
	_, err = NewEvaluator(bad, scenarioIntrinsics(), identityLookup(), logger)
	test.That(t, err, test.ShouldNotBeNil)

	// everything from the config
	cfg := &Config{IntrinsicParams: scenarioIntrinsics(), Extrinsics: &spatialmath.TransformConfig{}}
	e, err := NewEvaluator(cfg, nil, nil, logger)
	test.That(t, err, test.ShouldBeNil)
	res, err := e.Fuse(context.Background(), scenarioInput())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.NumProjected, test.ShouldEqual, 4)
	// the caller's config is not modified
	test.That(t, cfg.AzimuthResolution, test.ShouldEqual, 0)
}

func TestFuseScenario(t *testing.T) {
	logger := logging.NewTestLogger(t)
	e, err := NewEvaluator(nil, scenarioIntrinsics(), identityLookup(), logger)
	test.That(t, err, test.ShouldBeNil)

	res, err := e.Fuse(context.Background(), scenarioInput())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.NumProjected, test.ShouldEqual, 4)
	test.That(t, res.Configuration.NumAzimuthCells, test.ShouldEqual, 1351)
	test.That(t, res.Configuration.NumElevationCells, test.ShouldEqual, 1)
	test.That(t, e.Configuration(), test.ShouldResemble, res.Configuration)
	test.That(t, res.Transform.AlmostEqual(spatialmath.NewIdentityTransform(), 1e-9), test.ShouldBeTrue)

	// each populated cell fills its left and right neighbours, the edge cells only one
	test.That(t, res.FilledDepth, test.ShouldEqual, 6)
	test.That(t, res.FilledColor, test.ShouldEqual, 6)
	test.That(t, res.DepthValues.Get(0, 451), test.ShouldResemble, [3]uint8{4, 4, 4})
	test.That(t, res.Color.Get(0, 1), test.ShouldResemble, [3]uint8{200, 100, 50})
	test.That(t, res.DepthValues.IsEmpty(0, 700), test.ShouldBeTrue)

	test.That(t, res.Depth.Rows(), test.ShouldEqual, 1)
	test.That(t, res.Depth.Cols(), test.ShouldEqual, 1351)
	test.That(t, res.Plot.Bounds(), test.ShouldResemble, scenarioInput().Image.Bounds())
}

func TestFuseTransformsCloud(t *testing.T) {
	logger := logging.NewTestLogger(t)
	lookup := referenceframe.NewStaticLookup()
	// lidar x forward, y left, z up; camera z forward, x right, y down
	cameraToLidar := spatialmath.NewRigidTransformFromRPY(-math.Pi/2, 0, -math.Pi/2, r3.Vector{})
	lidarToCamera := cameraToLidar.Inverse()
	lookup.Set(DefaultCameraFrame, DefaultLidarFrame, lidarToCamera)
	e, err := NewEvaluator(nil, scenarioIntrinsics(), lookup, logger)
	test.That(t, err, test.ShouldBeNil)

	// straight ahead of the lidar
	cloud := cloudOf(r3.Vector{X: 30})
	img := uniformImage(100, 100, color.RGBA{9, 9, 9, 255})
	res, err := e.Fuse(context.Background(), FusionInput{Cloud: cloud, Image: img})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.NumProjected, test.ShouldEqual, 1)
	test.That(t, res.Configuration.MinAzimuth, test.ShouldAlmostEqual, 0)
	test.That(t, res.Configuration.MinElevation, test.ShouldAlmostEqual, 90)
	test.That(t, res.DepthValues.Get(0, 0), test.ShouldResemble, [3]uint8{127, 127, 127})
}

func TestFuseTransformUnavailable(t *testing.T) {
	logger := logging.NewTestLogger(t)

	t.Run("static", func(t *testing.T) {
		e, err := NewEvaluator(nil, scenarioIntrinsics(), referenceframe.NewStaticLookup(), logger)
		test.That(t, err, test.ShouldBeNil)
		res, err := e.Fuse(context.Background(), scenarioInput())
		test.That(t, errors.Is(err, referenceframe.ErrTransformUnavailable), test.ShouldBeTrue)
		test.That(t, res, test.ShouldBeNil)
		// nothing was applied
		test.That(t, e.Configuration(), test.ShouldResemble, SensorConfiguration{})
	})

	t.Run("buffer times out", func(t *testing.T) {
		buf := referenceframe.NewBuffer(referenceframe.DefaultCacheTime, logger)
		cfg := NewDefaultConfig()
		cfg.TransformTimeout = "20ms"
		e, err := NewEvaluator(cfg, scenarioIntrinsics(), buf, logger)
		test.That(t, err, test.ShouldBeNil)
		start := time.Now()
		_, err = e.Fuse(context.Background(), scenarioInput())
		test.That(t, errors.Is(err, referenceframe.ErrTransformUnavailable), test.ShouldBeTrue)
		test.That(t, time.Since(start), test.ShouldBeGreaterThanOrEqualTo, 20*time.Millisecond)
	})
}

func TestFuseEmptyCloud(t *testing.T) {
	logger := logging.NewTestLogger(t)
	e, err := NewEvaluator(nil, scenarioIntrinsics(), identityLookup(), logger)
	test.That(t, err, test.ShouldBeNil)

	in := FusionInput{Cloud: pointcloud.New(), Image: uniformImage(100, 100, color.RGBA{})}
	ev, err := e.Evaluate(context.Background(), in)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ev.Configuration.Degenerate, test.ShouldBeTrue)
	test.That(t, ev.Depth.Rows(), test.ShouldEqual, 1)
	test.That(t, ev.Depth.Cols(), test.ShouldEqual, 1)
	test.That(t, ev.Color.CountEmpty(), test.ShouldEqual, 1)
	test.That(t, ev.Matches.Matches, test.ShouldBeEmpty)
	test.That(t, ev.Score.NumMatches, test.ShouldEqual, 0)

	_, err = e.Fuse(context.Background(), FusionInput{Cloud: pointcloud.New()})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestEvaluatorReconfigure(t *testing.T) {
	logger := logging.NewTestLogger(t)
	e, err := NewEvaluator(nil, scenarioIntrinsics(), identityLookup(), logger)
	test.That(t, err, test.ShouldBeNil)

	test.That(t, e.Reconfigure(&Config{AzimuthResolution: 0.5}), test.ShouldBeNil)
	test.That(t, e.Config().AzimuthResolution, test.ShouldEqual, 0.5)
	test.That(t, e.Config().ElevationResolution, test.ShouldEqual, DefaultElevationResolution)

	res, err := e.Fuse(context.Background(), scenarioInput())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Configuration.NumAzimuthCells, test.ShouldEqual, 541)

	test.That(t, e.Reconfigure(&Config{ColorFactor: -1}), test.ShouldNotBeNil)
	test.That(t, e.Config().AzimuthResolution, test.ShouldEqual, 0.5)

	err = e.Reconfigure(nil)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "nil config")
	test.That(t, e.Config().AzimuthResolution, test.ShouldEqual, 0.5)
}

func TestEvaluatorConfigIsolation(t *testing.T) {
	logger := logging.NewTestLogger(t)
	cfg := &Config{IntrinsicParams: scenarioIntrinsics(), Extrinsics: &spatialmath.TransformConfig{}}
	e, err := NewEvaluator(cfg, nil, nil, logger)
	test.That(t, err, test.ShouldBeNil)

	// the caller keeps no handle on the evaluator's camera model
	cfg.IntrinsicParams.Fx = 1000
	res, err := e.Fuse(context.Background(), scenarioInput())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.NumProjected, test.ShouldEqual, 4)

	reconfigured := &Config{
		IntrinsicParams: scenarioIntrinsics(),
		Matching:        &keypoints.MatchingConfig{MaxDist: 100},
	}
	test.That(t, e.Reconfigure(reconfigured), test.ShouldBeNil)
	reconfigured.Matching.MaxDist = 3
	reconfigured.IntrinsicParams.Width = 1

	got := e.Config()
	test.That(t, got.Matching.MaxDist, test.ShouldEqual, 100)
	test.That(t, got.IntrinsicParams.Width, test.ShouldEqual, 100)

	// nor on the copies it hands out
	got.Matching.MaxDist = 7
	got.ORB.Layers = 9
	got.ORB.FastConf.NMatchesCircle = 2
	got.IntrinsicParams.Fx = 1000
	again := e.Config()
	test.That(t, again.Matching.MaxDist, test.ShouldEqual, 100)
	test.That(t, again.ORB.Layers, test.ShouldNotEqual, 9)
	test.That(t, again.ORB.FastConf.NMatchesCircle, test.ShouldNotEqual, 2)
	test.That(t, again.IntrinsicParams.Fx, test.ShouldEqual, 25)
	res, err = e.Fuse(context.Background(), scenarioInput())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.NumProjected, test.ShouldEqual, 4)
}

func TestEvaluatorConfigurationSnapshots(t *testing.T) {
	logger := logging.NewTestLogger(t)
	e, err := NewEvaluator(nil, scenarioIntrinsics(), identityLookup(), logger)
	test.That(t, err, test.ShouldBeNil)

	a := SensorConfiguration{NumAzimuthCells: 1, NumElevationCells: 1, Degenerate: true}
	b, err := NewSensorConfiguration(scenarioExtent(), 1, 1)
	test.That(t, err, test.ShouldBeNil)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if j%2 == 0 {
					e.ApplyConfiguration(a)
				} else {
					e.ApplyConfiguration(b)
				}
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				got := e.Configuration()
				// never a mix of two configurations
				if got.Degenerate {
					test.That(t, got, test.ShouldResemble, a)
				} else if got.NumAzimuthCells != 0 {
					test.That(t, got, test.ShouldResemble, b)
				}
			}
		}()
	}
	wg.Wait()
}
