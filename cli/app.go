// Package cli contains the lidarcalib command line tool.
package cli

import (
	"io"

	"github.com/urfave/cli/v2"

	"go.viam.com/lidarcalib/calibration"
)

// Flags.
const (
	configFlag     = "config"
	debugFlag      = "debug"
	cloudFlag      = "cloud"
	imageFlag      = "image"
	intrinsicsFlag = "intrinsics"
	transformFlag  = "transform"
	outFlag        = "out"
	scaleFlag      = "scale"
	noMatchFlag    = "no-match"
	cloudTopicFlag = "cloud-topic"
	imageTopicFlag = "image-topic"
	infoTopicFlag  = "info-topic"
	limitFlag      = "limit"
	windowFlag     = "window"
)

var outputFlags = []cli.Flag{
	&cli.PathFlag{
		Name:  outFlag,
		Value: ".",
		Usage: "write rasters, plots and scores to `DIR`",
	},
	&cli.Float64Flag{
		Name:  scaleFlag,
		Value: 1,
		Usage: "scale factor applied to the written images",
	},
	&cli.BoolFlag{
		Name:  noMatchFlag,
		Usage: "only build the rasters",
	},
	&cli.StringFlag{
		Name:  transformFlag,
		Usage: "lidar to camera transform as \"x y z yaw pitch roll\" or \"x y z qx qy qz qw\"",
	},
	&cli.PathFlag{
		Name:  intrinsicsFlag,
		Usage: "load camera intrinsics from `FILE`",
	},
}

// NewApp returns a new app with the CLI API, Writer set to out, and ErrWriter
// set to errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	return &cli.App{
		Name:            "lidarcalib",
		Usage:           "score the extrinsic calibration between a lidar and a camera",
		HideHelpCommand: true,
		Writer:          out,
		ErrWriter:       errOut,
		Flags: []cli.Flag{
			&cli.PathFlag{
				Name:    configFlag,
				Aliases: []string{"c"},
				Usage:   "load configuration from `FILE`",
			},
			&cli.BoolFlag{
				Name:    debugFlag,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "fuse",
				Usage:     "fuse one point cloud with one image and score the result",
				UsageText: "lidarcalib fuse --cloud <pcd|las> --image <png|jpg|ppm|qoi> [other options]",
				Flags: append([]cli.Flag{
					&cli.PathFlag{
						Name:     cloudFlag,
						Required: true,
						Usage:    "point cloud in the lidar frame",
					},
					&cli.PathFlag{
						Name:     imageFlag,
						Required: true,
						Usage:    "camera image",
					},
				}, outputFlags...),
				Action: FuseAction,
			},
			{
				Name:      "bag",
				Usage:     "score every image of a ROS bag against the point cloud closest in time",
				ArgsUsage: "<bag file>",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:  cloudTopicFlag,
						Value: "/velodyne_points",
						Usage: "sensor_msgs/PointCloud2 topic",
					},
					&cli.StringFlag{
						Name:  imageTopicFlag,
						Value: "/camera/image_raw",
						Usage: "sensor_msgs/Image topic",
					},
					&cli.StringFlag{
						Name:  infoTopicFlag,
						Value: "/camera/camera_info",
						Usage: "sensor_msgs/CameraInfo topic",
					},
					&cli.IntFlag{
						Name:  limitFlag,
						Usage: "stop after this many images, 0 for all",
					},
					&cli.IntFlag{
						Name:  windowFlag,
						Value: 10,
						Usage: "number of images the rolling score is averaged over",
					},
				}, outputFlags...),
				Action: BagAction,
			},
			{
				Name:   "schema",
				Usage:  "print the JSON schema of the configuration file",
				Action: SchemaAction,
			},
		},
	}
}

// SchemaAction prints the configuration schema.
func SchemaAction(c *cli.Context) error {
	schema, err := calibration.ConfigSchema()
	if err != nil {
		return err
	}
	printf(c.App.Writer, "%s", schema)
	return nil
}
