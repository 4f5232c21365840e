package referenceframe

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.viam.com/utils"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/lidarcalib/logging"
	"go.viam.com/lidarcalib/spatialmath"
)

const (
	// DefaultCacheTime is how much history a Buffer keeps per frame.
	DefaultCacheTime = 10 * time.Second
	defaultPollRate  = 5 * time.Millisecond
)

// StampedTransform is the transform from the Child frame into the Parent frame valid at Stamp.
type StampedTransform struct {
	Parent    string
	Child     string
	Stamp     time.Time
	Transform *spatialmath.RigidTransform
}

type frameEdge struct {
	parent  string
	static  *spatialmath.RigidTransform
	samples []StampedTransform
}

// Buffer is a time indexed tree of frames. Each frame has at most one parent; dynamic edges keep
// a history of samples and are interpolated between them, static edges hold at all times.
type Buffer struct {
	mu        sync.RWMutex
	edges     map[string]*frameEdge
	cacheTime time.Duration
	pollRate  time.Duration
	logger    logging.Logger
}

// NewBuffer returns an empty Buffer keeping cacheTime of history. A non positive cacheTime
// means DefaultCacheTime.
func NewBuffer(cacheTime time.Duration, logger logging.Logger) *Buffer {
	if cacheTime <= 0 {
		cacheTime = DefaultCacheTime
	}
	return &Buffer{
		edges:     map[string]*frameEdge{},
		cacheTime: cacheTime,
		pollRate:  defaultPollRate,
		logger:    logger,
	}
}

// Add inserts a transform. Static transforms replace any earlier value for the child frame.
func (b *Buffer) Add(st StampedTransform, static bool) error {
	if st.Parent == "" || st.Child == "" {
		return errors.New("transform must name both a parent and a child frame")
	}
	if st.Parent == st.Child {
		return errors.Errorf("frame %q cannot be its own parent", st.Child)
	}
	if st.Transform == nil {
		return errors.Errorf("transform %s <- %s is nil", st.Parent, st.Child)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	edge, ok := b.edges[st.Child]
	if !ok || edge.parent != st.Parent {
		if ok {
			b.logger.Debugw("frame changed parent", "frame", st.Child, "old", edge.parent, "new", st.Parent)
		}
		edge = &frameEdge{parent: st.Parent}
		b.edges[st.Child] = edge
	}
	if static {
		edge.static = st.Transform.Clone()
		edge.samples = nil
		return nil
	}
	edge.static = nil

	st.Transform = st.Transform.Clone()
	idx := sort.Search(len(edge.samples), func(i int) bool {
		return !edge.samples[i].Stamp.Before(st.Stamp)
	})
	if idx < len(edge.samples) && edge.samples[idx].Stamp.Equal(st.Stamp) {
		edge.samples[idx] = st
	} else {
		edge.samples = slices.Insert(edge.samples, idx, st)
	}

	newest := edge.samples[len(edge.samples)-1].Stamp
	cutoff := sort.Search(len(edge.samples), func(i int) bool {
		return !edge.samples[i].Stamp.Before(newest.Add(-b.cacheTime))
	})
	edge.samples = edge.samples[cutoff:]
	return nil
}

// Frames returns the names of every frame known to the buffer, sorted.
func (b *Buffer) Frames() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	names := map[string]struct{}{}
	for child, edge := range b.edges {
		names[child] = struct{}{}
		names[edge.parent] = struct{}{}
	}
	out := lo.Keys(names)
	slices.Sort(out)
	return out
}

// CanTransform reports whether LookupTransform would currently succeed without waiting.
func (b *Buffer) CanTransform(target, source string, at time.Time) bool {
	_, err := b.lookup(target, source, at)
	return err == nil
}

// LookupTransform returns the transform mapping source coordinates into target coordinates at the
// given time; a zero time means the latest available. While the transform is unavailable the
// call keeps polling until ctx is done, then returns the last error.
func (b *Buffer) LookupTransform(
	ctx context.Context,
	target, source string,
	at time.Time,
) (*spatialmath.RigidTransform, error) {
	for {
		tf, err := b.lookup(target, source, at)
		if err == nil || !errors.Is(err, ErrTransformUnavailable) {
			return tf, err
		}
		if !utils.SelectContextOrWait(ctx, b.pollRate) {
			return nil, err
		}
	}
}

// WaitForTransform is LookupTransform bounded by timeout.
func (b *Buffer) WaitForTransform(
	ctx context.Context,
	target, source string,
	at time.Time,
	timeout time.Duration,
) (*spatialmath.RigidTransform, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return b.LookupTransform(ctx, target, source, at)
}

func (b *Buffer) lookup(target, source string, at time.Time) (*spatialmath.RigidTransform, error) {
	if target == source {
		return spatialmath.NewIdentityTransform(), nil
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	sourceChain := b.chainToRoot(source)
	targetChain := b.chainToRoot(target)
	targetIdx := make(map[string]int, len(targetChain))
	for i, f := range targetChain {
		targetIdx[f] = i
	}
	common := -1
	for i, f := range sourceChain {
		if _, ok := targetIdx[f]; ok {
			common = i
			break
		}
	}
	if common == -1 {
		return nil, NewTransformUnavailableError(target, source, at, "frames are not connected")
	}

	sourceToCommon, err := b.compose(sourceChain[:common+1], at)
	if err != nil {
		return nil, NewTransformUnavailableError(target, source, at, err.Error())
	}
	targetToCommon, err := b.compose(targetChain[:targetIdx[sourceChain[common]]+1], at)
	if err != nil {
		return nil, NewTransformUnavailableError(target, source, at, err.Error())
	}
	return targetToCommon.Inverse().Compose(sourceToCommon), nil
}

// chainToRoot returns frame followed by its ancestors.
func (b *Buffer) chainToRoot(frame string) []string {
	chain := []string{frame}
	for len(chain) <= len(b.edges) {
		edge, ok := b.edges[chain[len(chain)-1]]
		if !ok {
			break
		}
		chain = append(chain, edge.parent)
	}
	return chain
}

// compose returns the transform from chain[0] into chain[len-1].
func (b *Buffer) compose(chain []string, at time.Time) (*spatialmath.RigidTransform, error) {
	tf := spatialmath.NewIdentityTransform()
	for _, child := range chain[:len(chain)-1] {
		edgeTf, err := b.edges[child].at(at)
		if err != nil {
			return nil, errors.Wrapf(err, "frame %q", child)
		}
		tf = edgeTf.Compose(tf)
	}
	return tf, nil
}

func (e *frameEdge) at(at time.Time) (*spatialmath.RigidTransform, error) {
	if e.static != nil {
		return e.static, nil
	}
	if len(e.samples) == 0 {
		return nil, errors.New("no data")
	}
	if at.IsZero() {
		return e.samples[len(e.samples)-1].Transform, nil
	}
	first, last := e.samples[0].Stamp, e.samples[len(e.samples)-1].Stamp
	if at.Before(first) || at.After(last) {
		return nil, errors.Errorf("would require extrapolation, data spans [%s, %s]",
			first.Format(time.RFC3339Nano), last.Format(time.RFC3339Nano))
	}
	idx := sort.Search(len(e.samples), func(i int) bool {
		return !e.samples[i].Stamp.Before(at)
	})
	if e.samples[idx].Stamp.Equal(at) {
		return e.samples[idx].Transform, nil
	}
	prev, next := e.samples[idx-1], e.samples[idx]
	ratio := float64(at.Sub(prev.Stamp)) / float64(next.Stamp.Sub(prev.Stamp))
	return interpolate(prev.Transform, next.Transform, ratio), nil
}

func interpolate(from, to *spatialmath.RigidTransform, ratio float64) *spatialmath.RigidTransform {
	ta, tb := from.Translation(), to.Translation()
	translation := ta.Add(tb.Sub(ta).Mul(ratio))
	ra, rb := toMgl(from.Rotation()), toMgl(to.Rotation())
	if ra.Dot(rb) < 0 {
		rb = rb.Scale(-1)
	}
	r := mgl64.QuatSlerp(ra, rb, ratio)
	return spatialmath.NewRigidTransform(quat.Number{Real: r.W, Imag: r.X(), Jmag: r.Y(), Kmag: r.Z()}, translation)
}

func toMgl(q quat.Number) mgl64.Quat {
	return mgl64.Quat{W: q.Real, V: mgl64.Vec3{q.Imag, q.Jmag, q.Kmag}}
}
