package cli

import (
	"io"

	"github.com/urfave/cli/v2"

	"go.viam.com/lidarcalib/calibration"
	"go.viam.com/lidarcalib/pointcloud"
	"go.viam.com/lidarcalib/rimage"
)

// FuseAction fuses the cloud and image given on the command line.
func FuseAction(c *cli.Context) error {
	logger := newLogger(c)
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	lookup, err := staticLookup(c, cfg)
	if err != nil {
		return err
	}
	evaluator, err := calibration.NewEvaluator(cfg, nil, lookup, logger)
	if err != nil {
		return err
	}

	cloud, err := pointcloud.NewFromFile(c.Path(cloudFlag), logger)
	if err != nil {
		return err
	}
	img, err := rimage.ReadImageFromFile(c.Path(imageFlag))
	if err != nil {
		return err
	}

	res, err := evaluator.Fuse(c.Context, calibration.FusionInput{Cloud: cloud, Image: img})
	if err != nil {
		return err
	}
	var artifact *calibration.MatchArtifact
	if !c.Bool(noMatchFlag) {
		if artifact, err = evaluator.Match(res.Depth, res.Color); err != nil {
			return err
		}
	}
	rep, err := writeOutputs(c.Path(outFlag), "", res, artifact, c.Float64(scaleFlag))
	if err != nil {
		return err
	}
	printReport(c.App.Writer, c.App.ErrWriter, "", rep)
	return nil
}

func printReport(out, errOut io.Writer, name string, rep *report) {
	if rep.Configuration.Degenerate {
		warningf(errOut, "%sno point of the cloud projected into the image", name)
	}
	printf(out, "%sprojected %d points onto a %dx%d grid, filled %d depth cells",
		name, rep.NumProjected, rep.Configuration.NumElevationCells, rep.Configuration.NumAzimuthCells,
		rep.FilledDepth)
	if rep.Score != nil {
		printf(out, "%s%d matches, mean distance %.2f, score %.3f",
			name, rep.Score.NumMatches, rep.Score.MeanDistance, rep.Score.Normalized)
	}
}
