// Package calibration fuses a lidar point cloud and a camera image into a pair of co-registered
// rasters on the lidar's angular grid and scores how well their structures line up.
//
// The pipeline is the one of Evaluator.Evaluate: the cloud is moved into the camera frame,
// projected through the camera model, each projected point is binned into an azimuth/elevation
// cell of the lidar, and the resulting depth and color rasters are compared with ORB features.
// A good extrinsic calibration produces many low distance matches.
package calibration

import (
	"math"

	"github.com/golang/geo/r3"

	"go.viam.com/lidarcalib/utils"
)

// Cartesian2SphericalInDegrees returns the range of p together with its azimuth, measured from
// +X towards +Y, and its elevation, measured from +Z. Both angles are in degrees in [0, 360).
// The origin maps to (0, 0, 0).
func Cartesian2SphericalInDegrees(p r3.Vector) (rng, azimuth, elevation float64) {
	rng = p.Norm()
	azimuth = wrapDegrees(utils.RadToDeg(math.Atan2(p.Y, p.X)))
	elevation = wrapDegrees(utils.RadToDeg(math.Atan2(math.Hypot(p.X, p.Y), p.Z)))
	return rng, azimuth, elevation
}

// wrapDegrees brings an atan2 result in degrees into [0, 360).
func wrapDegrees(deg float64) float64 {
	if deg < 0 {
		deg += 360
	}
	if deg >= 360 {
		deg -= 360
	}
	return deg
}

// SignedAzimuth maps an azimuth in [0, 360) onto (-180, 180].
func SignedAzimuth(azimuth float64) float64 {
	if azimuth > 180 {
		return azimuth - 360
	}
	return azimuth
}
