package pointcloud

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"go.viam.com/utils"
)

// PCDType is the format of a pcd file.
type PCDType int

const (
	// PCDAscii ascii format for pcd.
	PCDAscii PCDType = 0
	// PCDBinary binary format for pcd.
	PCDBinary PCDType = 1
	// PCDCompressed binary format for pcd.
	PCDCompressed PCDType = 2
)

type pcdFieldType int

const (
	pcdPointOnly      pcdFieldType = 3
	pcdPointIntensity pcdFieldType = 4
)

type pcdValType string

const (
	pcdValFloat pcdValType = "F"
	pcdValInt   pcdValType = "I"
	pcdValUInt  pcdValType = "U"
)

type pcdHeader struct {
	fields pcdFieldType
	size   []uint64
	type_  []pcdValType
	count  []uint64
	width  uint64
	height uint64
	points uint64
	data   PCDType
}

const pcdCommentChar = "#"

var pcdHeaderFields = []string{"VERSION", "FIELDS", "SIZE", "TYPE", "COUNT", "WIDTH", "HEIGHT", "VIEWPOINT", "POINTS", "DATA"}

// ToPCD writes the cloud out in the PCD v0.7 format with x y z intensity fields, keeping the
// order of the points.
func ToPCD(cloud *PointCloud, out io.Writer, outputType PCDType) error {
	var dataName string
	switch outputType {
	case PCDAscii:
		dataName = "ascii"
	case PCDBinary:
		dataName = "binary"
	case PCDCompressed:
		return errors.New("compressed PCD not yet implemented")
	default:
		return errors.Errorf("unknown pcd output type %d", outputType)
	}

	_, err := fmt.Fprintf(out, "VERSION .7\n"+
		"FIELDS x y z intensity\n"+
		"SIZE 4 4 4 4\n"+
		"TYPE F F F F\n"+
		"COUNT 1 1 1 1\n"+
		"WIDTH %d\n"+
		"HEIGHT 1\n"+
		"VIEWPOINT 0 0 0 1 0 0 0\n"+
		"POINTS %d\n"+
		"DATA %s\n",
		cloud.Size(), cloud.Size(), dataName)
	if err != nil {
		return err
	}

	cloud.Iterate(0, 0, func(_ int, p Point) bool {
		switch outputType {
		case PCDBinary:
			buf := make([]byte, 16)
			binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(p.Position.X)))
			binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(float32(p.Position.Y)))
			binary.LittleEndian.PutUint32(buf[8:], math.Float32bits(float32(p.Position.Z)))
			binary.LittleEndian.PutUint32(buf[12:], math.Float32bits(float32(p.Intensity)))
			_, err = out.Write(buf)
		default:
			_, err = fmt.Fprintf(out, "%f %f %f %f\n", p.Position.X, p.Position.Y, p.Position.Z, p.Intensity)
		}
		return err == nil
	})
	return err
}

// NewFromPCDFile reads a point cloud from a PCD file on disk.
func NewFromPCDFile(fn string) (*PointCloud, error) {
	//nolint:gosec
	f, err := os.Open(fn)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open pcd file %q", fn)
	}
	defer utils.UncheckedErrorFunc(f.Close)
	return ReadPCD(f)
}

func parsePCDHeaderLine(line string, index int, header *pcdHeader) error {
	var err error
	name := pcdHeaderFields[index]
	field, value, _ := strings.Cut(line, " ")
	value = strings.TrimSpace(value)
	tokens := strings.Fields(value)
	if field != name {
		return errors.Errorf("line is supposed to start with %s but is %s", name, line)
	}

	switch name {
	case "VERSION":
		if value != ".7" && value != "0.7" {
			return errors.Errorf("unsupported pcd version %s", value)
		}
	case "FIELDS":
		switch strings.Join(tokens, " ") {
		case "x y z":
			header.fields = pcdPointOnly
		case "x y z intensity":
			header.fields = pcdPointIntensity
		default:
			return errors.Errorf("unsupported pcd fields %s", value)
		}
	case "SIZE":
		if len(tokens) != int(header.fields) {
			return errors.New("unexpected number of fields in SIZE line")
		}
		header.size = make([]uint64, len(tokens))
		for i, token := range tokens {
			header.size[i], err = strconv.ParseUint(token, 10, 64)
			if err != nil {
				return errors.Errorf("invalid SIZE field %s", token)
			}
			if header.size[i] != 4 && header.size[i] != 8 {
				return errors.Errorf("unsupported SIZE %d, only 4 and 8 byte fields are supported", header.size[i])
			}
		}
	case "TYPE":
		if len(tokens) != int(header.fields) {
			return errors.New("unexpected number of fields in TYPE line")
		}
		header.type_ = make([]pcdValType, len(tokens))
		for i, token := range tokens {
			header.type_[i] = pcdValType(token)
			switch header.type_[i] {
			case pcdValFloat, pcdValInt, pcdValUInt:
			default:
				return errors.Errorf("invalid TYPE field %s", token)
			}
		}
	case "COUNT":
		if len(tokens) != int(header.fields) {
			return errors.New("unexpected number of fields in COUNT line")
		}
		header.count = make([]uint64, len(tokens))
		for i, token := range tokens {
			header.count[i], err = strconv.ParseUint(token, 10, 64)
			if err != nil {
				return errors.Wrapf(err, "invalid COUNT field %s", token)
			}
			if header.count[i] != 1 {
				return errors.Errorf("unsupported COUNT %d, only single element fields are supported", header.count[i])
			}
		}
	case "WIDTH":
		header.width, err = strconv.ParseUint(value, 10, 64)
		if err != nil {
			return errors.Wrapf(err, "invalid WIDTH field %s", value)
		}
	case "HEIGHT":
		header.height, err = strconv.ParseUint(value, 10, 64)
		if err != nil {
			return errors.Wrapf(err, "invalid HEIGHT field %s", value)
		}
	case "VIEWPOINT":
		if len(tokens) != 7 {
			return errors.Errorf("unexpected number of fields in VIEWPOINT line. Expected 7, got %d", len(tokens))
		}
	case "POINTS":
		header.points, err = strconv.ParseUint(value, 10, 64)
		if err != nil {
			return errors.Wrapf(err, "invalid POINTS field %s", value)
		}
		if header.points != header.width*header.height {
			return errors.Errorf("POINTS field %d does not match WIDTH*HEIGHT %d", header.points, header.width*header.height)
		}
	case "DATA":
		switch value {
		case "ascii":
			header.data = PCDAscii
		case "binary":
			header.data = PCDBinary
		case "binary_compressed":
			header.data = PCDCompressed
		default:
			return errors.Errorf("unsupported pcd data type %s", value)
		}
	}

	return nil
}

// ReadPCD reads a PCD stream with x y z or x y z intensity fields. Points keep the order in
// which they are stored.
func ReadPCD(inRaw io.Reader) (*PointCloud, error) {
	header := pcdHeader{}
	in := bufio.NewReader(inRaw)
	headerLineCount := 0
	for headerLineCount < len(pcdHeaderFields) {
		line, err := in.ReadString('\n')
		if err != nil {
			return nil, errors.Wrapf(err, "error reading header line %d", headerLineCount)
		}
		line, _, _ = strings.Cut(line, pcdCommentChar)
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if err := parsePCDHeaderLine(line, headerLineCount, &header); err != nil {
			return nil, err
		}
		headerLineCount++
	}
	switch header.data {
	case PCDAscii:
		return readPCDAscii(in, header)
	case PCDBinary:
		return readPCDBinary(in, header)
	case PCDCompressed:
		return nil, errors.New("compressed pcd not yet supported")
	default:
		return nil, errors.Errorf("unsupported pcd data type %v", header.data)
	}
}

func readPCDAscii(in *bufio.Reader, header pcdHeader) (*PointCloud, error) {
	pc := NewWithPrealloc(int(header.points))
	for i := 0; i < int(header.points); i++ {
		line, err := in.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return nil, errors.Wrapf(err, "reading point %d", i)
		}
		tokens := strings.Fields(line)
		if len(tokens) != int(header.fields) {
			return nil, errors.Errorf("unexpected number of fields in point %d", i)
		}
		values := make([]float64, len(tokens))
		for j, token := range tokens {
			values[j], err = strconv.ParseFloat(token, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "invalid point %d field %s", i, token)
			}
		}
		pc.Append(sliceToPoint(values))
	}
	return pc, nil
}

func readPCDBinary(in *bufio.Reader, header pcdHeader) (*PointCloud, error) {
	pc := NewWithPrealloc(int(header.points))
	for i := 0; i < int(header.points); i++ {
		values := make([]float64, int(header.fields))
		for j := 0; j < int(header.fields); j++ {
			buf := make([]byte, header.size[j])
			if _, err := io.ReadFull(in, buf); err != nil {
				return nil, errors.Wrapf(err, "reading point %d", i)
			}
			values[j] = decodeBinaryValue(buf, header.type_[j])
		}
		pc.Append(sliceToPoint(values))
	}
	return pc, nil
}

func decodeBinaryValue(buf []byte, valType pcdValType) float64 {
	switch len(buf) {
	case 8:
		bits := binary.LittleEndian.Uint64(buf)
		switch valType {
		case pcdValInt:
			return float64(int64(bits))
		case pcdValUInt:
			return float64(bits)
		default:
			return math.Float64frombits(bits)
		}
	default:
		bits := binary.LittleEndian.Uint32(buf)
		switch valType {
		case pcdValInt:
			return float64(int32(bits))
		case pcdValUInt:
			return float64(bits)
		default:
			return float64(math.Float32frombits(bits))
		}
	}
}

func sliceToPoint(values []float64) Point {
	p := Point{Position: NewVector(values[0], values[1], values[2])}
	if len(values) > 3 {
		p.Intensity = values[3]
	}
	return p
}
