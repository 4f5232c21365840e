package calibration

import (
	"go.viam.com/lidarcalib/rimage"
)

// FillGaps fills every empty cell of r that has at least one populated 8-neighbour with the per
// channel mean of those neighbours, truncated. Neighbours are read from the raster as it was
// before the call, so filled cells never feed other cells. It returns the number of cells filled.
func FillGaps(r *rimage.Raster) int {
	src := r.Clone()
	filled := 0
	for row := 0; row < src.Rows(); row++ {
		for col := 0; col < src.Cols(); col++ {
			if !src.IsEmpty(row, col) {
				continue
			}
			var sum [3]int
			n := 0
			for dr := -1; dr <= 1; dr++ {
				for dc := -1; dc <= 1; dc++ {
					nr, nc := row+dr, col+dc
					if (dr == 0 && dc == 0) || !src.In(nr, nc) || src.IsEmpty(nr, nc) {
						continue
					}
					c := src.Get(nr, nc)
					sum[0] += int(c[0])
					sum[1] += int(c[1])
					sum[2] += int(c[2])
					n++
				}
			}
			if n == 0 {
				continue
			}
			r.Set(row, col, [3]uint8{uint8(sum[0] / n), uint8(sum[1] / n), uint8(sum[2] / n)})
			filled++
		}
	}
	return filled
}

// ApplyPalette returns the depth raster colored with the jet palette.
func ApplyPalette(r *rimage.Raster) *rimage.Raster {
	return rimage.ApplyJet(r)
}
