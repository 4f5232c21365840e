package pointcloud

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/lidarcalib/logging"
)

func TestPointCloudBasic(t *testing.T) {
	pc := New()
	test.That(t, pc.Size(), test.ShouldEqual, 0)

	p0 := NewPoint(0, 0, 0, 5)
	p1 := NewPoint(1, 0, 1, 17)
	p2 := NewPoint(-1, -2, 1, 0)
	pc.Append(p0)
	pc.Append(p1)
	pc.Append(p2)
	test.That(t, pc.Size(), test.ShouldEqual, 3)
	test.That(t, pc.At(0), test.ShouldResemble, p0)
	test.That(t, pc.At(1), test.ShouldResemble, p1)
	test.That(t, pc.At(2), test.ShouldResemble, p2)

	meta := pc.MetaData()
	test.That(t, meta.HasIntensity, test.ShouldBeTrue)
	test.That(t, meta.MinX, test.ShouldEqual, -1)
	test.That(t, meta.MaxX, test.ShouldEqual, 1)
	test.That(t, meta.MinY, test.ShouldEqual, -2)
	test.That(t, meta.MaxZ, test.ShouldEqual, 1)

	var seen []int
	pc.Iterate(0, 0, func(i int, p Point) bool {
		seen = append(seen, i)
		test.That(t, p, test.ShouldResemble, pc.At(i))
		return true
	})
	test.That(t, seen, test.ShouldResemble, []int{0, 1, 2})

	var nilCloud *PointCloud
	test.That(t, nilCloud.Size(), test.ShouldEqual, 0)
}

func TestPointCloudIterateBatches(t *testing.T) {
	pc := New()
	for i := 0; i < 10; i++ {
		pc.Append(NewPoint(float64(i), 0, 0, 0))
	}
	counts := make([]int, 3)
	total := 0
	for b := 0; b < 3; b++ {
		pc.Iterate(3, b, func(i int, p Point) bool {
			test.That(t, p.Position.X, test.ShouldEqual, float64(i))
			counts[b]++
			total++
			return true
		})
	}
	test.That(t, counts, test.ShouldResemble, []int{4, 4, 2})
	test.That(t, total, test.ShouldEqual, 10)

	stopped := 0
	pc.Iterate(0, 0, func(i int, p Point) bool {
		stopped++
		return i < 4
	})
	test.That(t, stopped, test.ShouldEqual, 5)
}

func TestPointCloudTransformKeepsOrder(t *testing.T) {
	pc := New(NewPoint(1, 2, 3, 7), NewPoint(4, 5, 6, 8))
	moved := pc.Transform(func(v r3.Vector) r3.Vector {
		return v.Add(r3.Vector{X: 10})
	})
	test.That(t, moved.Size(), test.ShouldEqual, 2)
	test.That(t, moved.At(0), test.ShouldResemble, NewPoint(11, 2, 3, 7))
	test.That(t, moved.At(1), test.ShouldResemble, NewPoint(14, 5, 6, 8))
	// source is untouched
	test.That(t, pc.At(0), test.ShouldResemble, NewPoint(1, 2, 3, 7))
}

func TestPCDRoundTrip(t *testing.T) {
	pc := New(
		NewPoint(1, 0, 1, 10),
		NewPoint(0, 1, 1, 20),
		NewPoint(-1, 0, 1, 30),
		NewPoint(0, -1, 1.5, 40),
	)
	for _, outType := range []PCDType{PCDAscii, PCDBinary} {
		var buf bytes.Buffer
		test.That(t, ToPCD(pc, &buf, outType), test.ShouldBeNil)
		got, err := ReadPCD(&buf)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, got.Size(), test.ShouldEqual, pc.Size())
		for i := 0; i < pc.Size(); i++ {
			test.That(t, got.At(i).Position.X, test.ShouldAlmostEqual, pc.At(i).Position.X)
			test.That(t, got.At(i).Position.Y, test.ShouldAlmostEqual, pc.At(i).Position.Y)
			test.That(t, got.At(i).Position.Z, test.ShouldAlmostEqual, pc.At(i).Position.Z)
			test.That(t, got.At(i).Intensity, test.ShouldAlmostEqual, pc.At(i).Intensity)
		}
	}

	var buf bytes.Buffer
	test.That(t, ToPCD(pc, &buf, PCDCompressed), test.ShouldNotBeNil)
}

func TestReadPCDXYZOnly(t *testing.T) {
	data := `# a comment
VERSION .7
FIELDS x y z
SIZE 4 4 4
TYPE F F F
COUNT 1 1 1
WIDTH 2
HEIGHT 1
VIEWPOINT 0 0 0 1 0 0 0
POINTS 2
DATA ascii
1.5 2 3
-4 5 6
`
	pc, err := ReadPCD(strings.NewReader(data))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pc.Size(), test.ShouldEqual, 2)
	test.That(t, pc.At(0), test.ShouldResemble, NewPoint(1.5, 2, 3, 0))
	test.That(t, pc.At(1), test.ShouldResemble, NewPoint(-4, 5, 6, 0))
	test.That(t, pc.MetaData().HasIntensity, test.ShouldBeFalse)
}

func TestReadPCDErrors(t *testing.T) {
	for _, tc := range []struct {
		name string
		data string
	}{
		{"bad version", "VERSION .6\n"},
		{"bad fields", "VERSION .7\nFIELDS x y z rgb\n"},
		{"points mismatch", "VERSION .7\nFIELDS x y z\nSIZE 4 4 4\nTYPE F F F\nCOUNT 1 1 1\nWIDTH 2\nHEIGHT 1\n" +
			"VIEWPOINT 0 0 0 1 0 0 0\nPOINTS 3\nDATA ascii\n"},
		{"truncated", "VERSION .7\nFIELDS x y z\nSIZE 4 4 4\nTYPE F F F\nCOUNT 1 1 1\nWIDTH 2\nHEIGHT 1\n" +
			"VIEWPOINT 0 0 0 1 0 0 0\nPOINTS 2\nDATA ascii\n1 2 3\n"},
		{"short point", "VERSION .7\nFIELDS x y z\nSIZE 4 4 4\nTYPE F F F\nCOUNT 1 1 1\nWIDTH 1\nHEIGHT 1\n" +
			"VIEWPOINT 0 0 0 1 0 0 0\nPOINTS 1\nDATA ascii\n1 2\n"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ReadPCD(strings.NewReader(tc.data))
			test.That(t, err, test.ShouldNotBeNil)
		})
	}
}

func TestNewFromFile(t *testing.T) {
	logger := logging.NewTestLogger(t)
	dir := t.TempDir()

	_, err := NewFromFile(filepath.Join(dir, "cloud.xyz"), logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "do not know how to read")

	_, err = NewFromFile(filepath.Join(dir, "missing.pcd"), logger)
	test.That(t, err, test.ShouldNotBeNil)

	pc := New(NewPoint(1, 2, 3, 4))
	var buf bytes.Buffer
	test.That(t, ToPCD(pc, &buf, PCDAscii), test.ShouldBeNil)
	fn := filepath.Join(dir, "cloud.pcd")
	test.That(t, os.WriteFile(fn, buf.Bytes(), 0o600), test.ShouldBeNil)
	got, err := NewFromFile(fn, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got.Size(), test.ShouldEqual, 1)
	test.That(t, got.At(0).Intensity, test.ShouldAlmostEqual, 4)
}
