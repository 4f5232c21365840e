package referenceframe

import (
	"time"

	"github.com/pkg/errors"
)

// ErrTransformUnavailable is returned when no transform between two frames is known at the
// requested time.
var ErrTransformUnavailable = errors.New("transform unavailable")

// NewTransformUnavailableError returns an error wrapping ErrTransformUnavailable that names the
// frames and time involved.
func NewTransformUnavailableError(target, source string, at time.Time, reason string) error {
	return errors.Wrapf(ErrTransformUnavailable, "%s <- %s at %s: %s", target, source, at.Format(time.RFC3339Nano), reason)
}

// NewParentFrameMissingError returns an error indicating that a frame is missing a parent.
func NewParentFrameMissingError(frame string) error {
	return errors.Errorf("frame %q has no parent", frame)
}
