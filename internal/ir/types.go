package ir

import "fmt"

// DataType is the type tag of an exchange file.
type DataType string

const (
	// DataBool carries 0/1 values.
	DataBool DataType = "bool"
	// DataInt carries signed integers.
	DataInt DataType = "int"
	// DataSComplex carries signed fixed-point complex values as a
	// real/imaginary integer pair per column.
	DataSComplex DataType = "scomplex"
	// DataReal carries real-valued numbers.
	DataReal DataType = "real"
)

// ParseDataType validates a type tag.
func ParseDataType(s string) (DataType, error) {
	switch DataType(s) {
	case DataBool, DataInt, DataSComplex, DataReal:
		return DataType(s), nil
	}
	return "", fmt.Errorf("unknown data type %q", s)
}

// Lanes returns how many on-file columns one logical column occupies.
func (t DataType) Lanes() int {
	if t == DataSComplex {
		return 2
	}
	return 1
}

// Direction is the direction of an exchange file relative to the backend.
type Direction string

const (
	// In files are written by dutkit and consumed by the backend.
	In Direction = "in"
	// Out files are produced by the backend and harvested by dutkit.
	Out Direction = "out"
)

// IOKind distinguishes discrete-time from continuous-time data.
type IOKind string

const (
	// KindSample is a sample-indexed digital vector.
	KindSample IOKind = "sample"
	// KindEvent is a time-indexed analog waveform.
	KindEvent IOKind = "event"
)
