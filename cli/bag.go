package cli

import (
	"context"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/edaniels/gobag/rosbag"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"

	"go.viam.com/lidarcalib/calibration"
	"go.viam.com/lidarcalib/logging"
	"go.viam.com/lidarcalib/referenceframe"
	"go.viam.com/lidarcalib/ros"
	"go.viam.com/lidarcalib/utils"
)

var tfTopics = []struct {
	topic  string
	static bool
}{
	{"/tf_static", true},
	{"/tf", false},
}

// BagAction scores every image of a bag against the point cloud recorded closest to it.
func BagAction(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return errors.New("need to specify a rosbag file path")
	}
	logger := newLogger(c)
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	bagPath := c.Args().First()
	stopSlowLogger := utils.SlowLogger(c.Context, "reading bag", "path", bagPath, logger)
	rb, err := ros.ReadBag(bagPath)
	stopSlowLogger()
	if err != nil {
		return err
	}
	clouds, err := ros.MessagesForTopic[ros.Message[ros.PointCloud2]](rb, c.String(cloudTopicFlag))
	if err != nil {
		return err
	}
	images, err := ros.MessagesForTopic[ros.Message[ros.Image]](rb, c.String(imageTopicFlag))
	if err != nil {
		return err
	}
	if len(clouds) == 0 || len(images) == 0 {
		return errors.Errorf("bag has %d clouds and %d images", len(clouds), len(images))
	}
	slices.SortStableFunc(clouds, func(a, b ros.Message[ros.PointCloud2]) int {
		return a.Data.Header.Stamp.Time().Compare(b.Data.Header.Stamp.Time())
	})

	if cfg.IntrinsicParams == nil {
		infos, err := ros.MessagesForTopic[ros.Message[ros.CameraInfo]](rb, c.String(infoTopicFlag))
		if err != nil {
			return errors.Wrap(err, "no intrinsics configured and none in the bag")
		}
		if len(infos) == 0 {
			return errors.New("no intrinsics configured and none in the bag")
		}
		if cfg.IntrinsicParams, err = infos[0].Data.Intrinsics(); err != nil {
			return err
		}
	}
	if frame := images[0].Data.Header.FrameID; frame != "" {
		cfg.CameraFrame = frame
	}
	if frame := clouds[0].Data.Header.FrameID; frame != "" {
		cfg.LidarFrame = frame
	}

	lookup, err := staticLookup(c, cfg)
	if err != nil {
		return err
	}
	if lookup == nil && cfg.Extrinsics == nil {
		if lookup, err = bagTransforms(rb, logger); err != nil {
			return err
		}
	}
	evaluator, err := calibration.NewEvaluator(cfg, nil, lookup, logger)
	if err != nil {
		return err
	}

	scorer := &bagScorer{
		evaluator: evaluator,
		outDir:    c.Path(outFlag),
		scale:     c.Float64(scaleFlag),
		noMatch:   c.Bool(noMatchFlag),
		limit:     c.Int(limitFlag),
		window:    c.Int(windowFlag),
		out:       c.App.Writer,
		errOut:    c.App.ErrWriter,
	}
	_, _, err = scorer.score(c.Context, clouds, images)
	return err
}

// bagScorer fuses and scores the image and cloud pairs of a bag.
type bagScorer struct {
	evaluator   *calibration.Evaluator
	outDir      string
	scale       float64
	noMatch     bool
	limit       int
	window      int
	out, errOut io.Writer
}

// score pairs every image with the cloud stamped nearest to it and writes the outputs of each
// pair with a "%04d_" prefix. clouds must be sorted by stamp. Images whose transform is
// unavailable are skipped.
func (s *bagScorer) score(
	ctx context.Context,
	clouds []ros.Message[ros.PointCloud2],
	images []ros.Message[ros.Image],
) (fused, scored int, err error) {
	cloudStamps := lo.Map(clouds, func(m ros.Message[ros.PointCloud2], _ int) time.Time {
		return m.Data.Header.Stamp.Time()
	})
	rolling := utils.NewRollingAverage(s.window)
	for i, imgMsg := range images {
		if s.limit > 0 && i >= s.limit {
			break
		}
		name := fmt.Sprintf("%04d_", i)
		k := ros.NearestStamp(cloudStamps, imgMsg.Data.Header.Stamp.Time())
		cloud, err := clouds[k].Data.ToPointCloud()
		if err != nil {
			return fused, scored, errors.Wrapf(err, "cloud %d", k)
		}
		img, err := imgMsg.Data.ToImage()
		if err != nil {
			return fused, scored, errors.Wrapf(err, "image %d", i)
		}
		res, err := s.evaluator.Fuse(ctx, calibration.FusionInput{
			Cloud: cloud,
			Image: img,
			Stamp: cloudStamps[k],
		})
		if errors.Is(err, referenceframe.ErrTransformUnavailable) {
			warningf(s.errOut, "%sskipped: %v", name, err)
			continue
		}
		if err != nil {
			return fused, scored, err
		}
		var artifact *calibration.MatchArtifact
		if !s.noMatch {
			if artifact, err = s.evaluator.Match(res.Depth, res.Color); err != nil {
				return fused, scored, err
			}
		}
		rep, err := writeOutputs(s.outDir, name, res, artifact, s.scale)
		if err != nil {
			return fused, scored, err
		}
		printReport(s.out, s.errOut, name, rep)
		fused++
		if rep.Score != nil {
			scored++
			rolling.Add(rep.Score.Normalized)
			printf(s.out, "%srolling score over %d images: %.3f",
				name, min(scored, rolling.NumSamples()), rolling.Average())
		}
	}
	printf(s.out, "fused %d of %d images, scored %d", fused, len(images), scored)
	return fused, scored, nil
}

// bagTransforms loads /tf_static and /tf into a transform buffer holding the whole bag.
func bagTransforms(rb *rosbag.RosBag, logger logging.Logger) (*referenceframe.Buffer, error) {
	var static, dynamic []ros.TFMessage
	for _, t := range tfTopics {
		msgs, err := ros.MessagesForTopic[ros.Message[ros.TFMessage]](rb, t.topic)
		if err != nil {
			logger.Debugw("no transforms", "topic", t.topic, "error", err)
			continue
		}
		for _, m := range msgs {
			if t.static {
				static = append(static, m.Data)
			} else {
				dynamic = append(dynamic, m.Data)
			}
		}
	}
	return transformBuffer(static, dynamic, logger)
}

// transformBuffer returns a buffer holding every transform of the messages, with enough history
// to keep the oldest one. Transforms the buffer refuses are logged and dropped.
func transformBuffer(static, dynamic []ros.TFMessage, logger logging.Logger) (*referenceframe.Buffer, error) {
	var all []referenceframe.StampedTransform
	var isStatic []bool
	for _, group := range []struct {
		msgs   []ros.TFMessage
		static bool
	}{{static, true}, {dynamic, false}} {
		for _, m := range group.msgs {
			for _, st := range m.StampedTransforms() {
				all = append(all, st)
				isStatic = append(isStatic, group.static)
			}
		}
	}
	if len(all) == 0 {
		return nil, errors.New("bag has no transforms, pass --transform or configure extrinsics")
	}
	stamps := lo.Map(all, func(st referenceframe.StampedTransform, _ int) time.Time { return st.Stamp })
	span := lo.MaxBy(stamps, func(a, b time.Time) bool { return a.After(b) }).Sub(
		lo.MinBy(stamps, func(a, b time.Time) bool { return a.Before(b) }))
	buf := referenceframe.NewBuffer(span+referenceframe.DefaultCacheTime, logger)
	for i, st := range all {
		if err := buf.Add(st, isStatic[i]); err != nil {
			logger.Warnw("dropping transform", "parent", st.Parent, "child", st.Child, "error", err)
		}
	}
	logger.Infow("loaded transforms", "count", len(all), "frames", buf.Frames())
	return buf, nil
}
