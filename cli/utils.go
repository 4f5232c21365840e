package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"go.viam.com/lidarcalib/calibration"
	"go.viam.com/lidarcalib/logging"
	"go.viam.com/lidarcalib/referenceframe"
	"go.viam.com/lidarcalib/rimage/transform"
	"go.viam.com/lidarcalib/spatialmath"
)

// printf prints a message with no prefix.
func printf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	fmt.Fprintf(w, format+"\n", a...)
}

// warningf prints a message prefixed with "Warning: ".
func warningf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	fmt.Fprintf(w, "Warning: "+format+"\n", a...)
}

func newLogger(c *cli.Context) logging.Logger {
	if c.Bool(debugFlag) {
		return logging.NewDebugLogger("lidarcalib")
	}
	return logging.NewLogger("lidarcalib")
}

// loadConfig reads the --config file, if any, and applies the --intrinsics override.
func loadConfig(c *cli.Context) (*calibration.Config, error) {
	cfg := calibration.NewDefaultConfig()
	if path := c.Path(configFlag); path != "" {
		var err error
		if cfg, err = calibration.LoadConfiguration(path); err != nil {
			return nil, err
		}
	}
	if path := c.Path(intrinsicsFlag); path != "" {
		intrinsics, err := transform.NewPinholeCameraIntrinsicsFromJSONFile(path)
		if err != nil {
			return nil, err
		}
		cfg.IntrinsicParams = intrinsics
	}
	return cfg, nil
}

// staticLookup returns the lookup given by --transform, or nil when the flag is not set.
func staticLookup(c *cli.Context, cfg *calibration.Config) (referenceframe.TransformLookup, error) {
	s := c.String(transformFlag)
	if s == "" {
		return nil, nil
	}
	tf, err := spatialmath.ParseTransform(s)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid --%s", transformFlag)
	}
	lookup := referenceframe.NewStaticLookup()
	lookup.Set(cfg.CameraFrame, cfg.LidarFrame, tf)
	return lookup, nil
}

func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return errors.Wrapf(err, "could not create directory: %s", dir)
	}
	return nil
}
