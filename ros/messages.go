package ros

import (
	"encoding/base64"
	"reflect"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

// Stamp is a ROS time.
type Stamp struct {
	Secs  int64 `json:"secs"`
	Nsecs int64 `json:"nsecs"`
}

// Time converts the stamp to a time.Time.
func (s Stamp) Time() time.Time {
	return time.Unix(s.Secs, s.Nsecs)
}

// Header is the std_msgs/Header carried by stamped messages.
type Header struct {
	Seq     int    `json:"seq"`
	Stamp   Stamp  `json:"stamp"`
	FrameID string `json:"frame_id"`
}

// PointField describes one field of a PointCloud2 record.
type PointField struct {
	Name     string `json:"name"`
	Offset   int    `json:"offset"`
	Datatype int    `json:"datatype"`
	Count    int    `json:"count"`
}

// PointCloud2 is a sensor_msgs/PointCloud2.
type PointCloud2 struct {
	Header      Header       `json:"header"`
	Height      int          `json:"height"`
	Width       int          `json:"width"`
	Fields      []PointField `json:"fields"`
	IsBigendian bool         `json:"is_bigendian"`
	PointStep   int          `json:"point_step"`
	RowStep     int          `json:"row_step"`
	Data        []byte       `json:"data"`
	IsDense     bool         `json:"is_dense"`
}

// Image is a sensor_msgs/Image.
type Image struct {
	Header      Header `json:"header"`
	Height      int    `json:"height"`
	Width       int    `json:"width"`
	Encoding    string `json:"encoding"`
	IsBigendian bool   `json:"is_bigendian"`
	Step        int    `json:"step"`
	Data        []byte `json:"data"`
}

// CameraInfo is a sensor_msgs/CameraInfo.
type CameraInfo struct {
	Header          Header    `json:"header"`
	Height          int       `json:"height"`
	Width           int       `json:"width"`
	DistortionModel string    `json:"distortion_model"`
	D               []float64 `json:"D"`
	K               []float64 `json:"K"`
	R               []float64 `json:"R"`
	P               []float64 `json:"P"`
}

// Vector3 is a geometry_msgs/Vector3.
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Quaternion is a geometry_msgs/Quaternion.
type Quaternion struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	W float64 `json:"w"`
}

// Transform is a geometry_msgs/Transform.
type Transform struct {
	Translation Vector3    `json:"translation"`
	Rotation    Quaternion `json:"rotation"`
}

// TransformStamped is a geometry_msgs/TransformStamped. It maps child frame coordinates into
// the header's frame.
type TransformStamped struct {
	Header       Header    `json:"header"`
	ChildFrameID string    `json:"child_frame_id"`
	Transform    Transform `json:"transform"`
}

// TFMessage is a tf2_msgs/TFMessage as published on /tf and /tf_static.
type TFMessage struct {
	Transforms []TransformStamped `json:"transforms"`
}

// Message pairs a decoded message with the time it was recorded at.
type Message[T any] struct {
	Meta struct {
		Secs  int64 `json:"secs"`
		Nsecs int64 `json:"nsecs"`
	} `json:"meta"`
	Data T `json:"data"`
}

// Recorded returns the time the bag recorded the message at.
func (m Message[T]) Recorded() time.Time {
	return time.Unix(m.Meta.Secs, m.Meta.Nsecs)
}

// DecodeMessage decodes a message parsed by AllMessagesForTopic into out. Byte arrays come out
// of the bag base64 encoded and are decoded back.
func DecodeMessage(raw map[string]interface{}, out interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:    "json",
		Result:     out,
		DecodeHook: base64BytesHook,
	})
	if err != nil {
		return err
	}
	return errors.Wrap(decoder.Decode(raw), "cannot decode ros message")
}

var bytesType = reflect.TypeOf([]byte(nil))

func base64BytesHook(from, to reflect.Type, data interface{}) (interface{}, error) {
	if from.Kind() != reflect.String || to != bytesType {
		return data, nil
	}
	b, err := base64.StdEncoding.DecodeString(reflect.ValueOf(data).String())
	if err != nil {
		return nil, errors.Wrap(err, "byte array is not base64")
	}
	return b, nil
}
