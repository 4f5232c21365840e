package calibration

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/pkg/errors"

	"go.viam.com/lidarcalib/logging"
	"go.viam.com/lidarcalib/pointcloud"
	"go.viam.com/lidarcalib/referenceframe"
	"go.viam.com/lidarcalib/rimage"
	"go.viam.com/lidarcalib/rimage/transform"
	"go.viam.com/lidarcalib/spatialmath"
)

// FusionInput is one lidar sweep and the camera image captured with it.
type FusionInput struct {
	// Cloud is expressed in the lidar frame.
	Cloud *pointcloud.PointCloud
	Image image.Image
	// Stamp is the acquisition time the transform is looked up at; zero means latest.
	Stamp time.Time
}

// FusionResult holds the rasters built from one FusionInput.
type FusionResult struct {
	// Depth is the gap filled depth raster colored with the jet palette.
	Depth *rimage.Raster
	// DepthValues is the gap filled depth raster before coloring, one intensity per cell.
	DepthValues *rimage.Raster
	// Color is the gap filled color raster.
	Color *rimage.Raster
	// Plot is the camera image with a disc drawn for every projected point.
	Plot *image.RGBA

	Configuration SensorConfiguration
	Transform     *spatialmath.RigidTransform
	NumProjected  int
	FilledDepth   int
	FilledColor   int
}

// Evaluation is a FusionResult with the matches found between its rasters.
type Evaluation struct {
	*FusionResult
	Matches *MatchArtifact
	Score   Score
}

// Evaluator scores the calibration between a lidar and a camera. Fusion calls do not share
// state beyond the sensor configuration of the latest call, which is guarded by a lock.
type Evaluator struct {
	mu           sync.RWMutex
	cfg          *Config
	camera       transform.Projector
	ownCamera    bool
	lookup       referenceframe.TransformLookup
	sensorConfig SensorConfiguration
	logger       logging.Logger
}

// NewEvaluator returns an Evaluator. When camera is nil the intrinsics of cfg are used, and when
// lookup is nil the extrinsics of cfg are.
func NewEvaluator(
	cfg *Config,
	camera transform.Projector,
	lookup referenceframe.TransformLookup,
	logger logging.Logger,
) (*Evaluator, error) {
	if cfg == nil {
		cfg = NewDefaultConfig()
	}
	cfgCopy := cfg.Clone()
	cfgCopy.SetDefaults()
	if err := cfgCopy.Validate("config"); err != nil {
		return nil, err
	}
	e := &Evaluator{cfg: cfgCopy, camera: camera, lookup: lookup, logger: logger}
	if e.camera == nil {
		if cfgCopy.IntrinsicParams == nil {
			return nil, transform.NewNoIntrinsicsError("no camera model given and none configured")
		}
		e.camera = cfgCopy.IntrinsicParams
		e.ownCamera = true
	}
	if e.lookup == nil {
		if cfgCopy.Extrinsics == nil {
			return nil, errors.New("no transform lookup given and no extrinsics configured")
		}
		tf, err := cfgCopy.Extrinsics.RigidTransform()
		if err != nil {
			return nil, err
		}
		static := referenceframe.NewStaticLookup()
		static.Set(cfgCopy.CameraFrame, cfgCopy.LidarFrame, tf)
		e.lookup = static
	}
	return e, nil
}

// Config returns a deep copy of the current config.
func (e *Evaluator) Config() Config {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return *e.cfg.Clone()
}

// Reconfigure replaces the tunables. Zero valued fields take their defaults. Configured
// intrinsics replace the camera model only if the evaluator was built from configured ones.
func (e *Evaluator) Reconfigure(cfg *Config) error {
	if cfg == nil {
		return errors.New("cannot reconfigure with a nil config")
	}
	cfgCopy := cfg.Clone()
	cfgCopy.SetDefaults()
	if err := cfgCopy.Validate("config"); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg = cfgCopy
	if e.ownCamera && cfgCopy.IntrinsicParams != nil {
		e.camera = cfgCopy.IntrinsicParams
	}
	e.logger.Infow("reconfigured",
		"azimuth_resolution_deg", cfgCopy.AzimuthResolution,
		"elevation_resolution_deg", cfgCopy.ElevationResolution,
		"max_features", cfgCopy.MaxFeatures,
		"good_matches", cfgCopy.GoodMatches)
	return nil
}

// Configuration returns the sensor configuration of the latest fusion.
func (e *Evaluator) Configuration() SensorConfiguration {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.sensorConfig
}

// ApplyConfiguration replaces the held sensor configuration as a whole.
func (e *Evaluator) ApplyConfiguration(sc SensorConfiguration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sensorConfig = sc
}

func (e *Evaluator) snapshot() (Config, transform.Projector) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return *e.cfg.Clone(), e.camera
}

// Fuse builds the depth and color rasters of one sweep. If the lidar to camera transform is not
// available within the configured timeout the returned error wraps
// referenceframe.ErrTransformUnavailable and no rasters are built.
func (e *Evaluator) Fuse(ctx context.Context, in FusionInput) (*FusionResult, error) {
	if in.Image == nil {
		return nil, errors.New("fusion needs an image")
	}
	cloud := in.Cloud
	if cloud == nil {
		cloud = pointcloud.New()
	}
	cfg, camera := e.snapshot()

	tf, err := e.lookupTransform(ctx, cfg, in.Stamp)
	if err != nil {
		e.logger.Warnw("skipping fusion", "error", err)
		return nil, err
	}
	camCloud := cloud.Transform(tf.Apply)

	b := in.Image.Bounds()
	plot := rimage.CloneToRGBA(in.Image)
	proj, err := ProjectCloud(b.Dx(), b.Dy(), camCloud, cloud, camera, plot, cfg.ProjectionOptions(), e.logger)
	if err != nil {
		return nil, err
	}
	sc, err := NewSensorConfiguration(proj.Extent, cfg.AzimuthResolution, cfg.ElevationResolution)
	if err != nil {
		return nil, err
	}
	e.ApplyConfiguration(sc)

	depth, colors := SynthesizeRasters(proj, camCloud, cloud, in.Image, sc, cfg.ColorFactor)
	res := &FusionResult{
		DepthValues:   depth,
		Color:         colors,
		Plot:          plot,
		Configuration: sc,
		Transform:     tf,
		NumProjected:  proj.NumProjected,
	}
	res.FilledDepth = FillGaps(depth)
	res.FilledColor = FillGaps(colors)
	res.Depth = ApplyPalette(depth)
	e.logger.Debugw("fused",
		"points", cloud.Size(),
		"projected", proj.NumProjected,
		"rows", sc.Rows(), "cols", sc.Cols(),
		"degenerate", sc.Degenerate,
		"filled_depth", res.FilledDepth, "filled_color", res.FilledColor)
	return res, nil
}

func (e *Evaluator) lookupTransform(ctx context.Context, cfg Config, at time.Time) (*spatialmath.RigidTransform, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout())
	defer cancel()
	tf, err := e.lookup.LookupTransform(ctx, cfg.CameraFrame, cfg.LidarFrame, at)
	if err == nil {
		return tf, nil
	}
	if errors.Is(err, referenceframe.ErrTransformUnavailable) {
		return nil, err
	}
	return nil, referenceframe.NewTransformUnavailableError(cfg.CameraFrame, cfg.LidarFrame, at, err.Error())
}

// Match compares a depth raster against a color raster.
func (e *Evaluator) Match(depth, colors *rimage.Raster) (*MatchArtifact, error) {
	cfg, _ := e.snapshot()
	return MatchRasters(depth, colors, cfg.MatcherConfig(), e.logger)
}

// Evaluate fuses in and matches the resulting rasters.
func (e *Evaluator) Evaluate(ctx context.Context, in FusionInput) (*Evaluation, error) {
	res, err := e.Fuse(ctx, in)
	if err != nil {
		return nil, err
	}
	artifact, err := e.Match(res.Depth, res.Color)
	if err != nil {
		return nil, err
	}
	score, err := artifact.Score()
	if err != nil {
		return nil, err
	}
	e.logger.Infow("evaluated", "matches", score.NumMatches, "mean_distance", score.MeanDistance,
		"normalized_score", score.Normalized)
	return &Evaluation{FusionResult: res, Matches: artifact, Score: score}, nil
}
