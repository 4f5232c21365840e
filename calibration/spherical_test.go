package calibration

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestCartesian2SphericalInDegrees(t *testing.T) {
	for _, tc := range []struct {
		name               string
		p                  r3.Vector
		rng, azimuth, elev float64
	}{
		{"origin", r3.Vector{}, 0, 0, 0},
		{"x axis", r3.Vector{X: 1}, 1, 0, 90},
		{"y axis", r3.Vector{Y: 2}, 2, 90, 90},
		{"negative x", r3.Vector{X: -1}, 1, 180, 90},
		{"negative y", r3.Vector{Y: -1}, 1, 270, 90},
		{"z axis", r3.Vector{Z: 1}, 1, 0, 0},
		{"negative z", r3.Vector{Z: -3}, 3, 0, 180},
		{"diagonal", r3.Vector{X: 3, Y: 4}, 5, 53.13010235415598, 90},
		{"forward", r3.Vector{X: 1, Z: 1}, 1.4142135623730951, 0, 45},
	} {
		t.Run(tc.name, func(t *testing.T) {
			rng, az, el := Cartesian2SphericalInDegrees(tc.p)
			test.That(t, rng, test.ShouldAlmostEqual, tc.rng)
			test.That(t, az, test.ShouldAlmostEqual, tc.azimuth)
			test.That(t, el, test.ShouldAlmostEqual, tc.elev)
			test.That(t, az, test.ShouldBeGreaterThanOrEqualTo, 0)
			test.That(t, az, test.ShouldBeLessThan, 360)
		})
	}
}

func TestSignedAzimuth(t *testing.T) {
	test.That(t, SignedAzimuth(0), test.ShouldEqual, 0)
	test.That(t, SignedAzimuth(90), test.ShouldEqual, 90)
	test.That(t, SignedAzimuth(180), test.ShouldEqual, 180)
	test.That(t, SignedAzimuth(270), test.ShouldEqual, -90)
	test.That(t, SignedAzimuth(359.5), test.ShouldEqual, -0.5)
}
