package calibration

import (
	"testing"

	"go.viam.com/test"

	"go.viam.com/lidarcalib/rimage"
)

func TestFillGapsIsolatedCell(t *testing.T) {
	r := rimage.NewRaster(3, 3)
	r.Set(1, 1, [3]uint8{10, 20, 30})
	test.That(t, FillGaps(r), test.ShouldEqual, 8)
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			test.That(t, r.Get(row, col), test.ShouldResemble, [3]uint8{10, 20, 30})
		}
	}
	// nothing left to fill
	test.That(t, FillGaps(r), test.ShouldEqual, 0)
}

func TestFillGapsSinglePass(t *testing.T) {
	r := rimage.NewRaster(1, 5)
	r.Set(0, 0, [3]uint8{50, 50, 50})
	test.That(t, FillGaps(r), test.ShouldEqual, 1)
	test.That(t, r.Get(0, 1), test.ShouldResemble, [3]uint8{50, 50, 50})
	for col := 2; col < 5; col++ {
		test.That(t, r.IsEmpty(0, col), test.ShouldBeTrue)
	}
}

func TestFillGapsMean(t *testing.T) {
	r := rimage.NewRaster(1, 3)
	r.Set(0, 0, [3]uint8{10, 1, 255})
	r.Set(0, 2, [3]uint8{11, 2, 254})
	test.That(t, FillGaps(r), test.ShouldEqual, 1)
	// means are truncated
	test.That(t, r.Get(0, 1), test.ShouldResemble, [3]uint8{10, 1, 254})
}

func TestFillGapsIgnoresEmptyNeighbors(t *testing.T) {
	r := rimage.NewRaster(2, 2)
	// channel 0 decides emptiness, the other channels are not looked at
	r.Set(0, 0, [3]uint8{0, 200, 200})
	r.Set(1, 1, [3]uint8{40, 40, 40})
	test.That(t, FillGaps(r), test.ShouldEqual, 3)
	test.That(t, r.Get(0, 0), test.ShouldResemble, [3]uint8{40, 40, 40})
	test.That(t, r.Get(0, 1), test.ShouldResemble, [3]uint8{40, 40, 40})

	empty := rimage.NewRaster(4, 4)
	test.That(t, FillGaps(empty), test.ShouldEqual, 0)
	test.That(t, empty.CountEmpty(), test.ShouldEqual, 16)
}

func TestApplyPalette(t *testing.T) {
	r := rimage.NewRaster(1, 2)
	r.Set(0, 1, [3]uint8{200, 200, 200})
	out := ApplyPalette(r)
	j0, j200 := rimage.Jet(0), rimage.Jet(200)
	test.That(t, out.Get(0, 0), test.ShouldResemble, [3]uint8{j0.R, j0.G, j0.B})
	test.That(t, out.Get(0, 1), test.ShouldResemble, [3]uint8{j200.R, j200.G, j200.B})
	// the input is left alone
	test.That(t, r.Get(0, 1), test.ShouldResemble, [3]uint8{200, 200, 200})
}
