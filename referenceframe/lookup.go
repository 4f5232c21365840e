// Package referenceframe resolves rigid transforms between named coordinate frames.
package referenceframe

import (
	"context"
	"sync"
	"time"

	"go.viam.com/lidarcalib/spatialmath"
)

// TransformLookup finds the transform mapping coordinates expressed in the source frame into the
// target frame at a given time. Implementations may block until the transform becomes known or
// ctx is done.
type TransformLookup interface {
	LookupTransform(ctx context.Context, target, source string, at time.Time) (*spatialmath.RigidTransform, error)
}

type framePair struct {
	target, source string
}

// StaticLookup is a TransformLookup over transforms that do not change over time.
type StaticLookup struct {
	mu         sync.RWMutex
	transforms map[framePair]*spatialmath.RigidTransform
}

// NewStaticLookup returns an empty StaticLookup.
func NewStaticLookup() *StaticLookup {
	return &StaticLookup{transforms: map[framePair]*spatialmath.RigidTransform{}}
}

// Set registers the transform mapping source coordinates into target coordinates.
func (sl *StaticLookup) Set(target, source string, tf *spatialmath.RigidTransform) {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	sl.transforms[framePair{target, source}] = tf.Clone()
}

// LookupTransform returns the registered transform, or the inverse of the one registered in the
// opposite direction. A frame is always at identity to itself.
func (sl *StaticLookup) LookupTransform(
	ctx context.Context,
	target, source string,
	at time.Time,
) (*spatialmath.RigidTransform, error) {
	if target == source {
		return spatialmath.NewIdentityTransform(), nil
	}
	sl.mu.RLock()
	defer sl.mu.RUnlock()
	if tf, ok := sl.transforms[framePair{target, source}]; ok {
		return tf.Clone(), nil
	}
	if tf, ok := sl.transforms[framePair{source, target}]; ok {
		return tf.Inverse(), nil
	}
	return nil, NewTransformUnavailableError(target, source, at, "no static transform registered")
}
