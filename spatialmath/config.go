package spatialmath

import (
	"math"
	"strconv"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/num/quat"
)

// RPYDegrees is a fixed axis rotation in degrees.
type RPYDegrees struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

// Quaternion is the json form of a rotation quaternion.
type Quaternion struct {
	W float64 `json:"w"`
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// TransformConfig describes a rigid transform in a config file. At most one of RPY and
// Quaternion may be set; with neither the rotation is the identity.
type TransformConfig struct {
	Translation r3.Vector   `json:"translation"`
	RPY         *RPYDegrees `json:"rpy_degrees,omitempty"`
	Quaternion  *Quaternion `json:"quaternion,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (cfg *TransformConfig) Validate() error {
	if cfg.RPY != nil && cfg.Quaternion != nil {
		return errors.New("only one of rpy_degrees and quaternion may be set")
	}
	if cfg.Quaternion != nil {
		q := cfg.Quaternion
		if q.W == 0 && q.X == 0 && q.Y == 0 && q.Z == 0 {
			return errors.New("quaternion must not be zero")
		}
	}
	return nil
}

// RigidTransform converts the config into a transform.
func (cfg *TransformConfig) RigidTransform() (*RigidTransform, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch {
	case cfg.RPY != nil:
		return NewRigidTransformFromRPY(
			cfg.RPY.Roll*degToRad, cfg.RPY.Pitch*degToRad, cfg.RPY.Yaw*degToRad, cfg.Translation), nil
	case cfg.Quaternion != nil:
		q := cfg.Quaternion
		return NewRigidTransform(quat.Number{Real: q.W, Imag: q.X, Jmag: q.Y, Kmag: q.Z}, cfg.Translation), nil
	default:
		return NewRigidTransform(quat.Number{Real: 1}, cfg.Translation), nil
	}
}

// ParseTransform reads a transform from space delimited values, either "x y z yaw pitch roll"
// with angles in radians or "x y z qx qy qz qw".
func ParseTransform(s string) (*RigidTransform, error) {
	vals := spaceDelimitedStringToSlice(s)
	for _, v := range vals {
		if math.IsNaN(v) {
			return nil, errors.Errorf("invalid transform %q", s)
		}
	}
	translation := r3.Vector{}
	if len(vals) >= 3 {
		translation = r3.Vector{X: vals[0], Y: vals[1], Z: vals[2]}
	}
	switch len(vals) {
	case 6:
		return NewRigidTransformFromRPY(vals[5], vals[4], vals[3], translation), nil
	case 7:
		q := quat.Number{Real: vals[6], Imag: vals[3], Jmag: vals[4], Kmag: vals[5]}
		if quat.Abs(q) == 0 {
			return nil, errors.Errorf("invalid transform %q: zero quaternion", s)
		}
		return NewRigidTransform(q, translation), nil
	default:
		return nil, errors.Errorf("invalid transform %q: expected 6 or 7 values, got %d", s, len(vals))
	}
}

// spaceDelimitedStringToSlice is a helper method to split up space-delimited fields.
func spaceDelimitedStringToSlice(s string) []float64 {
	var converted []float64
	slice := strings.Fields(s)
	for _, value := range slice {
		value, err := strconv.ParseFloat(value, 64)
		if err != nil {
			value = math.NaN()
		}
		converted = append(converted, value)
	}
	return converted
}
