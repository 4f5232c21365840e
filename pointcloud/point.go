package pointcloud

import (
	"github.com/golang/geo/r3"
)

// NewVector convenience method for creating a vector.
func NewVector(x, y, z float64) r3.Vector {
	return r3.Vector{X: x, Y: y, Z: z}
}

// Point is a single range return: a position in the frame of the sensor that produced it and the
// return intensity.
type Point struct {
	Position  r3.Vector
	Intensity float64
}

// NewPoint returns a point at x, y, z with the given intensity.
func NewPoint(x, y, z, intensity float64) Point {
	return Point{Position: NewVector(x, y, z), Intensity: intensity}
}

// Vectors is a series of three-dimensional vectors.
type Vectors []r3.Vector

// Len returns the number of vectors.
func (vs Vectors) Len() int {
	return len(vs)
}

// Swap swaps two vectors positionally.
func (vs Vectors) Swap(i, j int) {
	vs[i], vs[j] = vs[j], vs[i]
}

// Less returns which vector is less than the other based on
// r3.Vector.Cmp.
func (vs Vectors) Less(i, j int) bool {
	cmp := vs[i].Cmp(vs[j])
	if cmp == 0 {
		return false
	}
	return cmp < 0
}
