package pointcloud

import (
	"path/filepath"
	"strings"

	"github.com/edaniels/lidario"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/lidarcalib/logging"
)

// NewFromFile reads a point cloud from a .pcd or .las file, chosen by extension.
func NewFromFile(fn string, logger logging.Logger) (*PointCloud, error) {
	switch strings.ToLower(filepath.Ext(fn)) {
	case ".pcd":
		return NewFromPCDFile(fn)
	case ".las":
		return NewFromLASFile(fn, logger)
	default:
		return nil, errors.Errorf("do not know how to read point cloud file %q", fn)
	}
}

// NewFromLASFile reads a LAS file. Points keep their record order and the LAS intensity is
// carried over as the point intensity.
func NewFromLASFile(fn string, logger logging.Logger) (*PointCloud, error) {
	lf, err := lidario.NewLasFile(fn, "r")
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open las file %q", fn)
	}
	defer func() {
		if err := lf.Close(); err != nil {
			logger.Debugw("failed to close las file", "file", fn, "error", err)
		}
	}()

	if len(lf.VlrData) != 0 {
		logger.Warnw("ignoring variable length records in las file", "file", fn, "records", len(lf.VlrData))
	}

	pc := NewWithPrealloc(lf.Header.NumberPoints)
	for i := 0; i < lf.Header.NumberPoints; i++ {
		p, err := lf.LasPoint(i)
		if err != nil {
			return nil, errors.Wrapf(err, "reading las point %d", i)
		}
		data := p.PointData()
		pc.Append(NewPoint(data.X, data.Y, data.Z, float64(data.Intensity)))
	}
	return pc, nil
}

// WriteToLASFile writes the cloud as LAS point format 0. Intensities are clamped to uint16.
func WriteToLASFile(cloud *PointCloud, fn string) (err error) {
	lf, err := lidario.NewLasFile(fn, "w")
	if err != nil {
		return errors.Wrapf(err, "unable to create las file %q", fn)
	}
	defer func() {
		err = multierr.Combine(err, lf.Close())
	}()

	if err := lf.AddHeader(lidario.LasHeader{PointFormatID: 0}); err != nil {
		return err
	}

	cloud.Iterate(0, 0, func(_ int, p Point) bool {
		intensity := p.Intensity
		if intensity < 0 {
			intensity = 0
		} else if intensity > 65535 {
			intensity = 65535
		}
		err = lf.AddLasPoint(&lidario.PointRecord0{
			X:         p.Position.X,
			Y:         p.Position.Y,
			Z:         p.Position.Z,
			Intensity: uint16(intensity),
			BitField: lidario.PointBitField{
				Value: (1) | (1 << 3),
			},
			PointSourceID: 1,
		})
		return err == nil
	})
	return err
}
