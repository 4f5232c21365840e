package spatialmath

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"gonum.org/v1/gonum/num/quat"
)

func vecAlmostEqual(t *testing.T, got, want r3.Vector) {
	t.Helper()
	test.That(t, got.X, test.ShouldAlmostEqual, want.X, 1e-9)
	test.That(t, got.Y, test.ShouldAlmostEqual, want.Y, 1e-9)
	test.That(t, got.Z, test.ShouldAlmostEqual, want.Z, 1e-9)
}

func TestIdentityTransform(t *testing.T) {
	tf := NewIdentityTransform()
	p := r3.Vector{X: 1, Y: -2, Z: 3}
	vecAlmostEqual(t, tf.Apply(p), p)
	vecAlmostEqual(t, tf.Translation(), r3.Vector{})

	zero := NewRigidTransform(quat.Number{}, r3.Vector{X: 1})
	vecAlmostEqual(t, zero.Apply(p), r3.Vector{X: 2, Y: -2, Z: 3})
}

func TestRigidTransformApply(t *testing.T) {
	translation := r3.Vector{X: 1, Y: 2, Z: 3}
	tf := NewRigidTransformFromRPY(0, 0, math.Pi/2, translation)
	vecAlmostEqual(t, tf.Translation(), translation)

	// yaw of 90 degrees maps +x onto +y
	vecAlmostEqual(t, tf.Apply(r3.Vector{X: 1}), r3.Vector{X: 1, Y: 3, Z: 3})
	vecAlmostEqual(t, tf.Apply(r3.Vector{Y: 1}), r3.Vector{X: 0, Y: 2, Z: 3})

	roll := NewRigidTransformFromRPY(math.Pi/2, 0, 0, r3.Vector{})
	vecAlmostEqual(t, roll.Apply(r3.Vector{Y: 1}), r3.Vector{Z: 1})

	pitch := NewRigidTransformFromRPY(0, math.Pi/2, 0, r3.Vector{})
	vecAlmostEqual(t, pitch.Apply(r3.Vector{Z: 1}), r3.Vector{X: 1})
}

func TestRigidTransformRPY(t *testing.T) {
	tf := NewRigidTransformFromRPY(0.1, -0.2, 0.3, r3.Vector{})
	roll, pitch, yaw := tf.RPY()
	test.That(t, roll, test.ShouldAlmostEqual, 0.1, 1e-9)
	test.That(t, pitch, test.ShouldAlmostEqual, -0.2, 1e-9)
	test.That(t, yaw, test.ShouldAlmostEqual, 0.3, 1e-9)
}

func TestRigidTransformComposeInverse(t *testing.T) {
	a := NewRigidTransformFromRPY(0.3, 0.1, -1.2, r3.Vector{X: 0.5, Y: -1, Z: 2})
	b := NewRigidTransformFromRPY(-0.7, 0.4, 2.1, r3.Vector{X: -3, Y: 0.25, Z: 1})
	p := r3.Vector{X: 4, Y: 5, Z: -6}

	vecAlmostEqual(t, a.Compose(b).Apply(p), a.Apply(b.Apply(p)))
	vecAlmostEqual(t, a.Inverse().Apply(a.Apply(p)), p)
	test.That(t, a.Compose(a.Inverse()).AlmostEqual(NewIdentityTransform(), 1e-9), test.ShouldBeTrue)
	test.That(t, a.AlmostEqual(b, 1e-9), test.ShouldBeFalse)

	c := a.Clone()
	c.SetTranslation(r3.Vector{})
	vecAlmostEqual(t, a.Translation(), r3.Vector{X: 0.5, Y: -1, Z: 2})
}

func TestRigidTransformNegatedQuaternion(t *testing.T) {
	q := quat.Number{Real: 0.5, Imag: 0.5, Jmag: 0.5, Kmag: 0.5}
	a := NewRigidTransform(q, r3.Vector{X: 1})
	b := NewRigidTransform(quat.Scale(-1, q), r3.Vector{X: 1})
	test.That(t, a.AlmostEqual(b, 1e-9), test.ShouldBeTrue)
}
