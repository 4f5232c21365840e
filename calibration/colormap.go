package calibration

import (
	"image/color"
	"math"

	"go.viam.com/lidarcalib/rimage"
	"go.viam.com/lidarcalib/utils"
)

// ColorMap scales a depth into [.., base]: depth/factor*base, capped at base. Depths at or beyond
// factor all map to base.
func ColorMap(depth, factor float64, base int) float64 {
	return math.Min(float64(base), depth/factor*float64(base))
}

// DepthToChannel maps a depth to a single channel intensity. Negative depths map to 0.
func DepthToChannel(depth, factor float64) uint8 {
	return utils.ClampUint8(ColorMap(depth, factor, 255))
}

// DepthColor returns the jet color of a depth.
func DepthColor(depth, factor float64) color.RGBA {
	return rimage.Jet(DepthToChannel(depth, factor))
}
