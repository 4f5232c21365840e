package calibration

import (
	"image"
	"math"

	"github.com/fogleman/gg"
	"github.com/pkg/errors"

	"go.viam.com/lidarcalib/logging"
	"go.viam.com/lidarcalib/pointcloud"
	"go.viam.com/lidarcalib/rimage"
	"go.viam.com/lidarcalib/rimage/transform"
)

// ProjectionOptions control the diagnostic plot drawn while projecting.
type ProjectionOptions struct {
	// ColorFactor is the depth mapped to the top of the palette.
	ColorFactor float64
	// MarkerRadius is the radius in pixels of the disc drawn for every projected point.
	MarkerRadius float64
}

// Projection is the outcome of projecting a cloud onto an image.
type Projection struct {
	Index *CorrespondenceIndex
	// Extent covers the sensor frame directions of every point that landed in the image.
	Extent AngularExtent
	// NumProjected counts the points that landed in the image, including those later
	// overwritten by another point on the same pixel.
	NumProjected int
}

// ProjectCloud projects camCloud, expressed in the camera frame, onto a width x height image.
// sensorCloud holds the same points in the lidar frame and is only used for the angular extent.
// Points behind the camera or outside the image are dropped; when several points land on the
// same pixel the last one wins.
//
// If plot is not nil a disc colored by depth is drawn on it for every kept point. Drawing
// failures are logged and never fail the projection.
func ProjectCloud(
	width, height int,
	camCloud, sensorCloud *pointcloud.PointCloud,
	proj transform.Projector,
	plot *image.RGBA,
	opts ProjectionOptions,
	logger logging.Logger,
) (*Projection, error) {
	if proj == nil {
		return nil, transform.NewNoIntrinsicsError("cannot project without a camera model")
	}
	if camCloud.Size() != sensorCloud.Size() {
		return nil, errors.Errorf("camera frame cloud has %d points but sensor frame cloud has %d",
			camCloud.Size(), sensorCloud.Size())
	}
	if width <= 0 || height <= 0 {
		return nil, errors.Errorf("invalid image size %dx%d", width, height)
	}

	p := &Projection{
		Index:  NewCorrespondenceIndex(height, width),
		Extent: NewAngularExtent(),
	}
	marker := newMarkerPlotter(plot, opts, logger)
	w, h := float64(width), float64(height)
	camCloud.Iterate(0, 0, func(i int, pt pointcloud.Point) bool {
		if !(pt.Position.Z > 0) {
			return true
		}
		uv := proj.Project3DToPixel(pt.Position)
		if !(uv.X >= 0 && uv.Y >= 0 && uv.X < w && uv.Y < h) {
			return true
		}
		p.Index.Set(int(math.Trunc(uv.Y)), int(math.Trunc(uv.X)), i)
		p.Extent.AddPoint(sensorCloud.At(i).Position)
		p.NumProjected++
		marker.draw(uv.X, uv.Y, pt.Position.Z)
		return true
	})
	logger.Debugw("projected cloud", "points", camCloud.Size(), "in_image", p.NumProjected,
		"pixels", p.Index.Count())
	return p, nil
}

// markerPlotter draws the per point discs and stops at the first drawing failure.
type markerPlotter struct {
	dc     *gg.Context
	opts   ProjectionOptions
	logger logging.Logger
}

func newMarkerPlotter(plot *image.RGBA, opts ProjectionOptions, logger logging.Logger) *markerPlotter {
	mp := &markerPlotter{opts: opts, logger: logger}
	if plot != nil && opts.MarkerRadius > 0 && opts.ColorFactor > 0 {
		mp.dc = gg.NewContextForRGBA(plot)
	}
	return mp
}

func (mp *markerPlotter) draw(u, v, depth float64) {
	if mp.dc == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			mp.logger.Warnw("giving up on plot markers", "error", r)
			mp.dc = nil
		}
	}()
	rimage.DrawFilledCircle(mp.dc, u, v, mp.opts.MarkerRadius, DepthColor(depth, mp.opts.ColorFactor))
}
