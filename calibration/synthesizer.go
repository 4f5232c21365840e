package calibration

import (
	"image"
	"image/color"

	"go.viam.com/lidarcalib/pointcloud"
	"go.viam.com/lidarcalib/rimage"
)

// SynthesizeRasters lays the projected points out on the angular grid of cfg. Every pixel of img
// holding a correspondence fills the cell of its point in both rasters: the depth raster gets the
// camera frame depth mapped through ColorMap in all three channels, the color raster gets the
// pixel's R, G and B. Pixels are visited column by column and later writes to a cell replace
// earlier ones. Cells nothing maps to keep rimage.EmptyPixel.
//
// The grid cell of a point is taken from sensorCloud, its depth from camCloud.
func SynthesizeRasters(
	p *Projection,
	camCloud, sensorCloud *pointcloud.PointCloud,
	img image.Image,
	cfg SensorConfiguration,
	colorFactor float64,
) (depth, colors *rimage.Raster) {
	depth = rimage.NewRaster(cfg.Rows(), cfg.Cols())
	colors = rimage.NewRaster(cfg.Rows(), cfg.Cols())
	if cfg.Degenerate || p == nil {
		return depth, colors
	}
	b := img.Bounds()
	cols := min(p.Index.Cols(), b.Dx())
	rows := min(p.Index.Rows(), b.Dy())
	for x := 0; x < cols; x++ {
		for y := 0; y < rows; y++ {
			k := p.Index.At(y, x)
			if k == NoIndex || k >= camCloud.Size() || k >= sensorCloud.Size() {
				continue
			}
			row, col, ok := cfg.CellOf(sensorCloud.At(k).Position)
			if !ok {
				continue
			}
			d := DepthToChannel(camCloud.At(k).Position.Z, colorFactor)
			depth.Set(row, col, [3]uint8{d, d, d})
			c := color.RGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.RGBA)
			colors.Set(row, col, [3]uint8{c.R, c.G, c.B})
		}
	}
	return depth, colors
}
