package calibration

import (
	"testing"

	"go.viam.com/test"

	"go.viam.com/lidarcalib/rimage"
)

func TestColorMap(t *testing.T) {
	test.That(t, ColorMap(30, 60, 255), test.ShouldEqual, 127.5)
	test.That(t, ColorMap(60, 60, 255), test.ShouldEqual, 255)
	test.That(t, ColorMap(120, 60, 255), test.ShouldEqual, 255)
	test.That(t, ColorMap(0, 60, 255), test.ShouldEqual, 0)
	test.That(t, ColorMap(-6, 60, 100), test.ShouldEqual, -10)

	test.That(t, DepthToChannel(30, 60), test.ShouldEqual, 127)
	test.That(t, DepthToChannel(1, 60), test.ShouldEqual, 4)
	test.That(t, DepthToChannel(-5, 60), test.ShouldEqual, 0)
	test.That(t, DepthToChannel(1000, 60), test.ShouldEqual, 255)

	test.That(t, DepthColor(30, 60), test.ShouldResemble, rimage.Jet(127))
}
