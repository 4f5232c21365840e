package calibration

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"go.viam.com/lidarcalib/rimage/transform"
	"go.viam.com/lidarcalib/spatialmath"
	"go.viam.com/lidarcalib/vision/keypoints"
)

// Defaults applied to zero valued configuration fields.
const (
	DefaultAzimuthResolution   = 0.2
	DefaultElevationResolution = 2.0
	DefaultColorFactor         = 60.0
	DefaultMarkerRadius        = 3.0
	DefaultTransformTimeout    = time.Second / 30
	DefaultMaxFeatures         = 500
	DefaultGoodMatches         = 50
	DefaultCameraFrame         = "camera"
	DefaultLidarFrame          = "lidar"
)

// Config describes how rasters are built and compared.
type Config struct {
	AzimuthResolution   float64 `json:"azimuth_resolution_deg,omitempty"`
	ElevationResolution float64 `json:"elevation_resolution_deg,omitempty"`
	// ColorFactor is the depth, in the cloud's unit, mapped to the top of the palette.
	ColorFactor  float64 `json:"color_factor,omitempty"`
	MarkerRadius float64 `json:"marker_radius_px,omitempty"`
	// TransformTimeout bounds how long a fusion waits for the lidar to camera transform, as a
	// Go duration string.
	TransformTimeout string `json:"transform_timeout,omitempty"`
	CameraFrame      string `json:"camera_frame,omitempty"`
	LidarFrame       string `json:"lidar_frame,omitempty"`

	IntrinsicParams *transform.PinholeCameraIntrinsics `json:"intrinsic_parameters,omitempty"`
	// Extrinsics maps lidar frame coordinates into the camera frame. It is only used when no
	// other transform source is available.
	Extrinsics *spatialmath.TransformConfig `json:"extrinsics,omitempty"`

	ORB         *keypoints.ORBConfig      `json:"orb,omitempty"`
	Matching    *keypoints.MatchingConfig `json:"matching,omitempty"`
	MaxFeatures int                       `json:"max_features,omitempty"`
	GoodMatches int                       `json:"good_matches,omitempty"`
}

// NewDefaultConfig returns a config with every default filled in and no camera model.
func NewDefaultConfig() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}

// Clone returns a deep copy of cfg; the copy shares no pointers with it.
func (cfg *Config) Clone() *Config {
	out := *cfg
	out.IntrinsicParams = clonePtr(cfg.IntrinsicParams)
	if cfg.Extrinsics != nil {
		out.Extrinsics = clonePtr(cfg.Extrinsics)
		out.Extrinsics.RPY = clonePtr(cfg.Extrinsics.RPY)
		out.Extrinsics.Quaternion = clonePtr(cfg.Extrinsics.Quaternion)
	}
	if cfg.ORB != nil {
		out.ORB = clonePtr(cfg.ORB)
		out.ORB.FastConf = clonePtr(cfg.ORB.FastConf)
		out.ORB.BRIEFConf = clonePtr(cfg.ORB.BRIEFConf)
	}
	out.Matching = clonePtr(cfg.Matching)
	return &out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// SetDefaults fills zero valued fields with their defaults.
func (cfg *Config) SetDefaults() {
	if cfg.AzimuthResolution == 0 {
		cfg.AzimuthResolution = DefaultAzimuthResolution
	}
	if cfg.ElevationResolution == 0 {
		cfg.ElevationResolution = DefaultElevationResolution
	}
	if cfg.ColorFactor == 0 {
		cfg.ColorFactor = DefaultColorFactor
	}
	if cfg.MarkerRadius == 0 {
		cfg.MarkerRadius = DefaultMarkerRadius
	}
	if cfg.TransformTimeout == "" {
		cfg.TransformTimeout = DefaultTransformTimeout.String()
	}
	if cfg.CameraFrame == "" {
		cfg.CameraFrame = DefaultCameraFrame
	}
	if cfg.LidarFrame == "" {
		cfg.LidarFrame = DefaultLidarFrame
	}
	if cfg.ORB == nil {
		cfg.ORB = keypoints.DefaultORBConfig()
	}
	if cfg.Matching == nil {
		cfg.Matching = &keypoints.MatchingConfig{}
	}
	if cfg.MaxFeatures == 0 {
		cfg.MaxFeatures = DefaultMaxFeatures
	}
	if cfg.GoodMatches == 0 {
		cfg.GoodMatches = DefaultGoodMatches
	}
}

// Validate ensures all parts of the config are valid. Defaults must have been applied.
func (cfg *Config) Validate(path string) error {
	if !(cfg.AzimuthResolution > 0) {
		return utils.NewConfigValidationError(path, errors.New("azimuth_resolution_deg should be positive"))
	}
	if !(cfg.ElevationResolution > 0) {
		return utils.NewConfigValidationError(path, errors.New("elevation_resolution_deg should be positive"))
	}
	if !(cfg.ColorFactor > 0) {
		return utils.NewConfigValidationError(path, errors.New("color_factor should be positive"))
	}
	if cfg.MarkerRadius < 0 {
		return utils.NewConfigValidationError(path, errors.New("marker_radius_px should not be negative"))
	}
	timeout, err := time.ParseDuration(cfg.TransformTimeout)
	if err != nil {
		return utils.NewConfigValidationError(path, errors.Wrap(err, "invalid transform_timeout"))
	}
	if timeout <= 0 {
		return utils.NewConfigValidationError(path, errors.New("transform_timeout should be positive"))
	}
	if cfg.CameraFrame == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "camera_frame")
	}
	if cfg.LidarFrame == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "lidar_frame")
	}
	if cfg.IntrinsicParams != nil {
		if err := cfg.IntrinsicParams.CheckValid(); err != nil {
			return utils.NewConfigValidationError(path+".intrinsic_parameters", err)
		}
	}
	if cfg.Extrinsics != nil {
		if err := cfg.Extrinsics.Validate(); err != nil {
			return utils.NewConfigValidationError(path+".extrinsics", err)
		}
	}
	if cfg.ORB == nil {
		return utils.NewConfigValidationFieldRequiredError(path, "orb")
	}
	if err := cfg.ORB.Validate(path + ".orb"); err != nil {
		return err
	}
	if cfg.Matching == nil {
		return utils.NewConfigValidationFieldRequiredError(path, "matching")
	}
	if cfg.Matching.MaxDist < 0 {
		return utils.NewConfigValidationError(path+".matching", errors.New("max_dist should not be negative"))
	}
	if cfg.MaxFeatures < 0 {
		return utils.NewConfigValidationError(path, errors.New("max_features should not be negative"))
	}
	if cfg.GoodMatches < 0 {
		return utils.NewConfigValidationError(path, errors.New("good_matches should not be negative"))
	}
	return nil
}

// Timeout returns the parsed transform timeout, DefaultTransformTimeout if it cannot be parsed.
func (cfg *Config) Timeout() time.Duration {
	d, err := time.ParseDuration(cfg.TransformTimeout)
	if err != nil || d <= 0 {
		return DefaultTransformTimeout
	}
	return d
}

// MatcherConfig returns the matching part of the config.
func (cfg *Config) MatcherConfig() MatcherConfig {
	return MatcherConfig{
		ORB:         cfg.ORB,
		Matching:    cfg.Matching,
		MaxFeatures: cfg.MaxFeatures,
		GoodMatches: cfg.GoodMatches,
	}
}

// ProjectionOptions returns the plotting part of the config.
func (cfg *Config) ProjectionOptions() ProjectionOptions {
	return ProjectionOptions{ColorFactor: cfg.ColorFactor, MarkerRadius: cfg.MarkerRadius}
}

// LoadConfiguration reads a Config from a json file, applies defaults and validates it.
func LoadConfiguration(file string) (*Config, error) {
	var cfg Config
	filePath := filepath.Clean(file)
	//nolint:gosec
	configFile, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer utils.UncheckedErrorFunc(configFile.Close)
	if err := json.NewDecoder(configFile).Decode(&cfg); err != nil {
		return nil, errors.Wrapf(err, "cannot decode %s", file)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(file); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ConfigSchema returns the JSON schema of Config.
func ConfigSchema() ([]byte, error) {
	return json.MarshalIndent(jsonschema.Reflect(&Config{}), "", "  ")
}
