package calibration

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// maxGridCells bounds the rasters a configuration may ask for.
const maxGridCells = 1 << 26

// AngularExtent is the azimuth and elevation range, in degrees, covered by a set of points.
// Azimuths are signed, see SignedAzimuth.
type AngularExtent struct {
	MinAzimuth   float64 `json:"min_azimuth_deg"`
	MaxAzimuth   float64 `json:"max_azimuth_deg"`
	MinElevation float64 `json:"min_elevation_deg"`
	MaxElevation float64 `json:"max_elevation_deg"`
}

// NewAngularExtent returns an extent that contains nothing; the first Add defines it.
func NewAngularExtent() AngularExtent {
	return AngularExtent{
		MinAzimuth:   math.Inf(1),
		MaxAzimuth:   math.Inf(-1),
		MinElevation: math.Inf(1),
		MaxElevation: math.Inf(-1),
	}
}

// Add grows the extent to include the given direction.
func (e *AngularExtent) Add(azimuth, elevation float64) {
	e.MinAzimuth = math.Min(e.MinAzimuth, azimuth)
	e.MaxAzimuth = math.Max(e.MaxAzimuth, azimuth)
	e.MinElevation = math.Min(e.MinElevation, elevation)
	e.MaxElevation = math.Max(e.MaxElevation, elevation)
}

// AddPoint grows the extent to include the direction of p.
func (e *AngularExtent) AddPoint(p r3.Vector) {
	_, az, el := Cartesian2SphericalInDegrees(p)
	e.Add(SignedAzimuth(az), el)
}

// IsDegenerate reports whether the extent does not describe a range on both axes, as happens
// when no point was added.
func (e AngularExtent) IsDegenerate() bool {
	for _, v := range []float64{e.MinAzimuth, e.MaxAzimuth, e.MinElevation, e.MaxElevation} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return true
		}
	}
	return e.MinAzimuth > e.MaxAzimuth || e.MinElevation > e.MaxElevation
}

// SensorConfiguration is the angular grid the rasters are laid out on: one column per azimuth
// step and one row per elevation step. It is a value; copies are independent snapshots.
type SensorConfiguration struct {
	AngularExtent
	AzimuthResolution   float64 `json:"azimuth_resolution_deg"`
	ElevationResolution float64 `json:"elevation_resolution_deg"`
	NumAzimuthCells     int     `json:"num_azimuth_cells"`
	NumElevationCells   int     `json:"num_elevation_cells"`
	// Degenerate is set when the grid was built from an empty extent. Such a grid has a single
	// cell and no point maps into it.
	Degenerate bool `json:"degenerate"`
}

// InvalidCell is the (row, col) returned for points that fall outside the grid.
var InvalidCell = [2]int{-1, -1}

// NewSensorConfiguration builds the grid covering ext at the given resolutions. The number of
// cells along an axis is 1 + round((max - min) / resolution), the same rounding CellOf uses, so
// every direction inside the extent lands in a cell.
func NewSensorConfiguration(ext AngularExtent, azimuthRes, elevationRes float64) (SensorConfiguration, error) {
	if !(azimuthRes > 0) || math.IsInf(azimuthRes, 0) {
		return SensorConfiguration{}, errors.Errorf("azimuth resolution must be positive, got %v", azimuthRes)
	}
	if !(elevationRes > 0) || math.IsInf(elevationRes, 0) {
		return SensorConfiguration{}, errors.Errorf("elevation resolution must be positive, got %v", elevationRes)
	}
	cfg := SensorConfiguration{
		AzimuthResolution:   azimuthRes,
		ElevationResolution: elevationRes,
	}
	if ext.IsDegenerate() {
		cfg.NumAzimuthCells = 1
		cfg.NumElevationCells = 1
		cfg.Degenerate = true
		return cfg, nil
	}
	cfg.AngularExtent = ext
	azCells := 1 + math.Round((ext.MaxAzimuth-ext.MinAzimuth)/azimuthRes)
	elCells := 1 + math.Round((ext.MaxElevation-ext.MinElevation)/elevationRes)
	if azCells*elCells > maxGridCells {
		return SensorConfiguration{}, errors.Errorf(
			"grid of %v x %v cells is too large, raise the resolutions", elCells, azCells)
	}
	cfg.NumAzimuthCells = int(azCells)
	cfg.NumElevationCells = int(elCells)
	return cfg, nil
}

// Rows returns the number of raster rows, one per elevation cell.
func (c SensorConfiguration) Rows() int {
	return c.NumElevationCells
}

// Cols returns the number of raster columns, one per azimuth cell.
func (c SensorConfiguration) Cols() int {
	return c.NumAzimuthCells
}

// CellOf returns the grid cell the direction of p falls in. ok is false, and (row, col) is
// InvalidCell, when p lies outside the extent or rounds to an index outside the grid.
func (c SensorConfiguration) CellOf(p r3.Vector) (row, col int, ok bool) {
	if c.Degenerate {
		return InvalidCell[0], InvalidCell[1], false
	}
	_, az, el := Cartesian2SphericalInDegrees(p)
	az = SignedAzimuth(az)
	if az < c.MinAzimuth || az > c.MaxAzimuth || el < c.MinElevation || el > c.MaxElevation {
		return InvalidCell[0], InvalidCell[1], false
	}
	col = int(math.Round((az - c.MinAzimuth) / c.AzimuthResolution))
	row = int(math.Round((el - c.MinElevation) / c.ElevationResolution))
	if col < 0 || col >= c.NumAzimuthCells || row < 0 || row >= c.NumElevationCells {
		return InvalidCell[0], InvalidCell[1], false
	}
	return row, col, true
}
