package ros

import (
	"encoding/binary"
	"image"
	"image/color"
	"math"
	"sort"
	"time"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/lidarcalib/pointcloud"
	"go.viam.com/lidarcalib/referenceframe"
	"go.viam.com/lidarcalib/rimage/transform"
	"go.viam.com/lidarcalib/spatialmath"
)

// PointField datatypes.
const (
	Int8    = 1
	Uint8   = 2
	Int16   = 3
	Uint16  = 4
	Int32   = 5
	Uint32  = 6
	Float32 = 7
	Float64 = 8
)

var datatypeSizes = map[int]int{
	Int8: 1, Uint8: 1, Int16: 2, Uint16: 2, Int32: 4, Uint32: 4, Float32: 4, Float64: 8,
}

// ToPointCloud reads the x, y, z and, when present, intensity fields of every record. Records
// are kept in storage order, including invalid ones of non dense clouds.
func (msg *PointCloud2) ToPointCloud() (*pointcloud.PointCloud, error) {
	fields := map[string]PointField{}
	for _, f := range msg.Fields {
		if _, ok := datatypeSizes[f.Datatype]; !ok {
			continue
		}
		fields[f.Name] = f
	}
	for _, name := range []string{"x", "y", "z"} {
		if _, ok := fields[name]; !ok {
			return nil, errors.Errorf("point cloud has no %q field", name)
		}
	}
	n := msg.Width * msg.Height
	if msg.PointStep <= 0 {
		return nil, errors.Errorf("invalid point_step %d", msg.PointStep)
	}
	rowStep := msg.RowStep
	if rowStep == 0 {
		rowStep = msg.PointStep * msg.Width
	}
	for _, f := range fields {
		if f.Offset < 0 || f.Offset+datatypeSizes[f.Datatype] > msg.PointStep {
			return nil, errors.Errorf("field %q does not fit in a %d byte record", f.Name, msg.PointStep)
		}
	}
	if msg.Height > 0 && (msg.Height-1)*rowStep+msg.Width*msg.PointStep > len(msg.Data) {
		return nil, errors.Errorf("point cloud data has %d bytes, %d records of %d bytes expected",
			len(msg.Data), n, msg.PointStep)
	}

	var order binary.ByteOrder = binary.LittleEndian
	if msg.IsBigendian {
		order = binary.BigEndian
	}
	intensity, hasIntensity := fields["intensity"]
	cloud := pointcloud.NewWithPrealloc(n)
	for row := 0; row < msg.Height; row++ {
		for col := 0; col < msg.Width; col++ {
			rec := msg.Data[row*rowStep+col*msg.PointStep:]
			p := pointcloud.Point{Position: r3.Vector{
				X: readField(rec, fields["x"], order),
				Y: readField(rec, fields["y"], order),
				Z: readField(rec, fields["z"], order),
			}}
			if hasIntensity {
				p.Intensity = readField(rec, intensity, order)
			}
			cloud.Append(p)
		}
	}
	return cloud, nil
}

func readField(rec []byte, f PointField, order binary.ByteOrder) float64 {
	b := rec[f.Offset:]
	switch f.Datatype {
	case Int8:
		return float64(int8(b[0]))
	case Uint8:
		return float64(b[0])
	case Int16:
		return float64(int16(order.Uint16(b)))
	case Uint16:
		return float64(order.Uint16(b))
	case Int32:
		return float64(int32(order.Uint32(b)))
	case Uint32:
		return float64(order.Uint32(b))
	case Float32:
		return float64(math.Float32frombits(order.Uint32(b)))
	case Float64:
		return math.Float64frombits(order.Uint64(b))
	default:
		return math.NaN()
	}
}

// ToImage converts the message to an image. rgb8, bgr8, rgba8, bgra8 and mono8 are supported.
func (msg *Image) ToImage() (image.Image, error) {
	channels := map[string]int{"rgb8": 3, "bgr8": 3, "rgba8": 4, "bgra8": 4, "mono8": 1}
	nc, ok := channels[msg.Encoding]
	if !ok {
		return nil, errors.Errorf("unsupported image encoding %q", msg.Encoding)
	}
	step := msg.Step
	if step == 0 {
		step = msg.Width * nc
	}
	if msg.Width <= 0 || msg.Height <= 0 || step < msg.Width*nc {
		return nil, errors.Errorf("invalid image geometry %dx%d step %d", msg.Width, msg.Height, step)
	}
	if (msg.Height-1)*step+msg.Width*nc > len(msg.Data) {
		return nil, errors.Errorf("image data has %d bytes, too few for %dx%d %s",
			len(msg.Data), msg.Width, msg.Height, msg.Encoding)
	}
	if nc == 1 {
		img := image.NewGray(image.Rect(0, 0, msg.Width, msg.Height))
		for y := 0; y < msg.Height; y++ {
			copy(img.Pix[y*img.Stride:y*img.Stride+msg.Width], msg.Data[y*step:])
		}
		return img, nil
	}
	img := image.NewRGBA(image.Rect(0, 0, msg.Width, msg.Height))
	bgr := msg.Encoding == "bgr8" || msg.Encoding == "bgra8"
	for y := 0; y < msg.Height; y++ {
		for x := 0; x < msg.Width; x++ {
			px := msg.Data[y*step+x*nc:]
			c := color.RGBA{px[0], px[1], px[2], 255}
			if bgr {
				c.R, c.B = c.B, c.R
			}
			if nc == 4 {
				c.A = px[3]
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img, nil
}

// Intrinsics returns the pinhole model of the rectified image, read from the projection matrix.
func (msg *CameraInfo) Intrinsics() (*transform.PinholeCameraIntrinsics, error) {
	return transform.NewPinholeCameraIntrinsicsFromProjectionMatrix(msg.Width, msg.Height, msg.P)
}

// StampedTransforms converts the transforms of the message for a referenceframe.Buffer.
func (msg *TFMessage) StampedTransforms() []referenceframe.StampedTransform {
	out := make([]referenceframe.StampedTransform, 0, len(msg.Transforms))
	for _, t := range msg.Transforms {
		tr, rot := t.Transform.Translation, t.Transform.Rotation
		out = append(out, referenceframe.StampedTransform{
			Parent: t.Header.FrameID,
			Child:  t.ChildFrameID,
			Stamp:  t.Header.Stamp.Time(),
			Transform: spatialmath.NewRigidTransform(
				quat.Number{Real: rot.W, Imag: rot.X, Jmag: rot.Y, Kmag: rot.Z},
				r3.Vector{X: tr.X, Y: tr.Y, Z: tr.Z},
			),
		})
	}
	return out
}

// NearestStamp returns the index of the stamp closest to t, -1 for no stamps. stamps must be
// sorted in increasing order.
func NearestStamp(stamps []time.Time, t time.Time) int {
	if len(stamps) == 0 {
		return -1
	}
	i := sort.Search(len(stamps), func(i int) bool { return !stamps[i].Before(t) })
	switch {
	case i == 0:
		return 0
	case i == len(stamps):
		return len(stamps) - 1
	case t.Sub(stamps[i-1]) <= stamps[i].Sub(t):
		return i - 1
	default:
		return i
	}
}
