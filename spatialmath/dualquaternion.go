// Package spatialmath defines spatial mathematical operations
package spatialmath

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/dualquat"
	"gonum.org/v1/gonum/num/quat"
)

const (
	radToDeg = 180 / math.Pi
	degToRad = math.Pi / 180
)

// RigidTransform is a rotation followed by a translation, stored as a unit dual quaternion.
// A transform from frame A to frame B maps coordinates expressed in A into coordinates
// expressed in B.
type RigidTransform struct {
	Quat dualquat.Number
}

// NewIdentityTransform returns a transform that leaves points untouched.
// Since the real part of a dual quaternion should be a unit quaternion, not all zeroes, this
// should be used instead of &RigidTransform{}.
func NewIdentityTransform() *RigidTransform {
	return &RigidTransform{dualquat.Number{
		Real: quat.Number{Real: 1},
	}}
}

// NewRigidTransform returns the transform rotating by rotation, then translating by translation.
// The rotation is normalized; a zero quaternion is treated as the identity rotation.
func NewRigidTransform(rotation quat.Number, translation r3.Vector) *RigidTransform {
	n := quat.Abs(rotation)
	if n == 0 {
		rotation = quat.Number{Real: 1}
	} else {
		rotation = quat.Scale(1/n, rotation)
	}
	t := &RigidTransform{dualquat.Number{Real: rotation}}
	t.SetTranslation(translation)
	return t
}

// NewRigidTransformFromRPY returns a transform whose rotation is given as fixed axis roll, pitch
// and yaw in radians, applied in that order (the ZYX convention).
func NewRigidTransformFromRPY(roll, pitch, yaw float64, translation r3.Vector) *RigidTransform {
	q := mgl64.AnglesToQuat(yaw, pitch, roll, mgl64.ZYX)
	return NewRigidTransform(quat.Number{Real: q.W, Imag: q.X(), Jmag: q.Y(), Kmag: q.Z()}, translation)
}

// Clone returns a RigidTransform identical to this one.
func (t *RigidTransform) Clone() *RigidTransform {
	// No need for deep copies here, dualquats are primitives all the way down
	return &RigidTransform{Quat: t.Quat}
}

// Rotation returns the rotation quaternion.
func (t *RigidTransform) Rotation() quat.Number {
	return t.Quat.Real
}

// Translation returns the translation applied after the rotation.
func (t *RigidTransform) Translation() r3.Vector {
	tq := quat.Mul(quat.Scale(2, t.Quat.Dual), quat.Conj(t.Quat.Real))
	return r3.Vector{X: tq.Imag, Y: tq.Jmag, Z: tq.Kmag}
}

// SetTranslation correctly sets the translation quaternion against the rotation.
func (t *RigidTransform) SetTranslation(v r3.Vector) {
	t.Quat.Dual = quat.Mul(quat.Number{Imag: v.X / 2, Jmag: v.Y / 2, Kmag: v.Z / 2}, t.Quat.Real)
}

// Apply maps a point through the transform.
func (t *RigidTransform) Apply(p r3.Vector) r3.Vector {
	r := t.Quat.Real
	rotated := quat.Mul(quat.Mul(r, quat.Number{Imag: p.X, Jmag: p.Y, Kmag: p.Z}), quat.Conj(r))
	return r3.Vector{X: rotated.Imag, Y: rotated.Jmag, Z: rotated.Kmag}.Add(t.Translation())
}

// Compose returns the transform that applies other first and then t.
func (t *RigidTransform) Compose(other *RigidTransform) *RigidTransform {
	return &RigidTransform{Quat: dualquat.Mul(t.Quat, other.Quat)}
}

// Inverse returns the transform undoing t.
func (t *RigidTransform) Inverse() *RigidTransform {
	inv := quat.Conj(t.Quat.Real)
	tr := t.Translation()
	back := quat.Mul(quat.Mul(inv, quat.Number{Imag: -tr.X, Jmag: -tr.Y, Kmag: -tr.Z}), t.Quat.Real)
	return NewRigidTransform(inv, r3.Vector{X: back.Imag, Y: back.Jmag, Z: back.Kmag})
}

// RPY returns the fixed axis roll, pitch and yaw of the rotation in radians.
func (t *RigidTransform) RPY() (roll, pitch, yaw float64) {
	q := t.Quat.Real
	roll = math.Atan2(2*(q.Real*q.Imag+q.Jmag*q.Kmag), 1-2*(q.Imag*q.Imag+q.Jmag*q.Jmag))
	sinp := 2 * (q.Real*q.Jmag - q.Kmag*q.Imag)
	switch {
	case sinp >= 1:
		pitch = math.Pi / 2
	case sinp <= -1:
		pitch = -math.Pi / 2
	default:
		pitch = math.Asin(sinp)
	}
	yaw = math.Atan2(2*(q.Real*q.Kmag+q.Imag*q.Jmag), 1-2*(q.Jmag*q.Jmag+q.Kmag*q.Kmag))
	return roll, pitch, yaw
}

// AlmostEqual reports whether two transforms move points the same way within epsilon. q and -q
// describe the same rotation.
func (t *RigidTransform) AlmostEqual(other *RigidTransform, epsilon float64) bool {
	if t.Translation().Sub(other.Translation()).Norm() > epsilon {
		return false
	}
	a, b := t.Quat.Real, other.Quat.Real
	dot := a.Real*b.Real + a.Imag*b.Imag + a.Jmag*b.Jmag + a.Kmag*b.Kmag
	return 1-math.Abs(dot) <= epsilon
}
