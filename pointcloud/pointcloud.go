// Package pointcloud defines an ordered point cloud as produced by a scanning range sensor.
//
// Unlike a spatially indexed cloud, the order of the points is significant: downstream code
// refers to points by their index, and transforming a cloud into another frame preserves both
// the order and the per point intensity.
package pointcloud

import (
	"math"

	"github.com/golang/geo/r3"
)

// MetaData is data about what's stored in the point cloud.
type MetaData struct {
	HasIntensity bool

	MinX, MaxX float64
	MinY, MaxY float64
	MinZ, MaxZ float64
}

// NewMetaData creates a new MetaData whose bounds are empty.
func NewMetaData() MetaData {
	return MetaData{
		MinX: math.MaxFloat64,
		MinY: math.MaxFloat64,
		MinZ: math.MaxFloat64,
		MaxX: -math.MaxFloat64,
		MaxY: -math.MaxFloat64,
		MaxZ: -math.MaxFloat64,
	}
}

// Merge updates the meta data with the new point.
func (meta *MetaData) Merge(p Point) {
	if p.Intensity != 0 {
		meta.HasIntensity = true
	}

	v := p.Position
	meta.MaxX = math.Max(meta.MaxX, v.X)
	meta.MaxY = math.Max(meta.MaxY, v.Y)
	meta.MaxZ = math.Max(meta.MaxZ, v.Z)
	meta.MinX = math.Min(meta.MinX, v.X)
	meta.MinY = math.Min(meta.MinY, v.Y)
	meta.MinZ = math.Min(meta.MinZ, v.Z)
}

// PointCloud is an ordered, append only sequence of points.
type PointCloud struct {
	points []Point
	meta   MetaData
}

// New returns a point cloud holding the given points in order.
func New(points ...Point) *PointCloud {
	cloud := NewWithPrealloc(len(points))
	for _, p := range points {
		cloud.Append(p)
	}
	return cloud
}

// NewWithPrealloc returns an empty point cloud with room for size points.
func NewWithPrealloc(size int) *PointCloud {
	return &PointCloud{
		points: make([]Point, 0, size),
		meta:   NewMetaData(),
	}
}

// Size returns the number of points in the cloud.
func (cloud *PointCloud) Size() int {
	if cloud == nil {
		return 0
	}
	return len(cloud.points)
}

// MetaData returns meta data.
func (cloud *PointCloud) MetaData() MetaData {
	return cloud.meta
}

// Append adds a point at the end of the cloud.
func (cloud *PointCloud) Append(p Point) {
	cloud.points = append(cloud.points, p)
	cloud.meta.Merge(p)
}

// At returns the i-th point of the cloud.
func (cloud *PointCloud) At(i int) Point {
	return cloud.points[i]
}

// Iterate calls fn for each point in order. If fn returns false, iteration stops.
// numBatches lets you divide up the work. 0 means don't divide;
// myBatch is used iff numBatches > 0 and is which batch you want.
func (cloud *PointCloud) Iterate(numBatches, myBatch int, fn func(i int, p Point) bool) {
	if cloud == nil {
		return
	}
	start, end := 0, len(cloud.points)
	if numBatches > 0 {
		batchSize := (end + numBatches - 1) / numBatches
		start = myBatch * batchSize
		end = start + batchSize
		if end > len(cloud.points) {
			end = len(cloud.points)
		}
	}
	for i := start; i < end; i++ {
		if !fn(i, cloud.points[i]) {
			return
		}
	}
}

// Transform returns a new cloud where every position went through fn. The order of the points
// and their intensities are preserved, so index i of the result is the image of index i here.
func (cloud *PointCloud) Transform(fn func(r3.Vector) r3.Vector) *PointCloud {
	out := NewWithPrealloc(cloud.Size())
	cloud.Iterate(0, 0, func(_ int, p Point) bool {
		out.Append(Point{Position: fn(p.Position), Intensity: p.Intensity})
		return true
	})
	return out
}
