package rasterblock

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// DataType identifies the element type of a band.
type DataType int

const (
	// Unknown is the unset data type.
	Unknown DataType = iota
	// Byte is an unsigned 8-bit integer.
	Byte
	// UInt16 is an unsigned 16-bit integer.
	UInt16
	// Int16 is a signed 16-bit integer.
	Int16
	// UInt32 is an unsigned 32-bit integer.
	UInt32
	// Int32 is a signed 32-bit integer.
	Int32
	// Float32 is an IEEE-754 single precision float.
	Float32
	// Float64 is an IEEE-754 double precision float.
	Float64

	numDataTypes
)

var dataTypeNames = [numDataTypes]string{
	Unknown: "Unknown",
	Byte:    "Byte",
	UInt16:  "UInt16",
	Int16:   "Int16",
	UInt32:  "UInt32",
	Int32:   "Int32",
	Float32: "Float32",
	Float64: "Float64",
}

// Element is the set of Go types a tile buffer may hold.
type Element interface {
	uint8 | uint16 | int16 | uint32 | int32 | float32 | float64
}

// DataTypeOf returns the data type matching the element type T.
func DataTypeOf[T Element]() DataType {
	var zero T
	switch any(zero).(type) {
	case uint8:
		return Byte
	case uint16:
		return UInt16
	case int16:
		return Int16
	case uint32:
		return UInt32
	case int32:
		return Int32
	case float32:
		return Float32
	case float64:
		return Float64
	}

	return Unknown
}

// String implements fmt.Stringer.
func (dt DataType) String() string {
	if !dt.Valid() && dt != Unknown {
		return fmt.Sprintf("DataType(%d)", int(dt))
	}

	return dataTypeNames[dt]
}

// Valid reports whether dt names a concrete element type.
func (dt DataType) Valid() bool {
	return dt > Unknown && dt < numDataTypes
}

// Size returns the element size in bytes, or 0 for Unknown.
func (dt DataType) Size() int {
	switch dt {
	case Byte:
		return 1
	case UInt16, Int16:
		return 2
	case UInt32, Int32, Float32:
		return 4
	case Float64:
		return 8
	default:
		return 0
	}
}

// ParseDataType parses a data type name, case-insensitively. "uint8" is accepted for Byte.
func ParseDataType(name string) (DataType, error) {
	if strings.EqualFold(name, "uint8") {
		return Byte, nil
	}
	for dt := Byte; dt < numDataTypes; dt++ {
		if strings.EqualFold(name, dataTypeNames[dt]) {
			return dt, nil
		}
	}

	return Unknown, fmt.Errorf("%w: %q", ErrUnknownDataType, name)
}

// Clamp converts v to the value range of dt. Integer types are rounded
// half away from zero and saturated; NaN becomes zero.
func (dt DataType) Clamp(v float64) float64 {
	if dt == Float64 {
		return v
	}
	if dt == Float32 {
		return float64(float32(v))
	}
	if math.IsNaN(v) {
		return 0
	}

	lo, hi := dt.bounds()
	v = math.Round(v)
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}

	return v
}

func (dt DataType) bounds() (float64, float64) {
	switch dt {
	case Byte:
		return 0, math.MaxUint8
	case UInt16:
		return 0, math.MaxUint16
	case Int16:
		return math.MinInt16, math.MaxInt16
	case UInt32:
		return 0, math.MaxUint32
	case Int32:
		return math.MinInt32, math.MaxInt32
	default:
		return -math.MaxFloat64, math.MaxFloat64
	}
}

// Decode reads element i of a little-endian encoded buffer as float64.
func (dt DataType) Decode(b []byte, i int) float64 {
	switch dt {
	case Byte:
		return float64(b[i])
	case UInt16:
		return float64(binary.LittleEndian.Uint16(b[i*2:]))
	case Int16:
		return float64(int16(binary.LittleEndian.Uint16(b[i*2:]))) // #nosec G115 -- reinterpretation
	case UInt32:
		return float64(binary.LittleEndian.Uint32(b[i*4:]))
	case Int32:
		return float64(int32(binary.LittleEndian.Uint32(b[i*4:]))) // #nosec G115 -- reinterpretation
	case Float32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:])))
	case Float64:
		return math.Float64frombits(binary.LittleEndian.Uint64(b[i*8:]))
	default:
		return 0
	}
}

// Encode stores v, clamped to dt, as element i of a little-endian buffer.
func (dt DataType) Encode(b []byte, i int, v float64) {
	v = dt.Clamp(v)
	switch dt {
	case Byte:
		b[i] = uint8(v)
	case UInt16:
		binary.LittleEndian.PutUint16(b[i*2:], uint16(v))
	case Int16:
		binary.LittleEndian.PutUint16(b[i*2:], uint16(int16(v))) // #nosec G115 -- clamped above
	case UInt32:
		binary.LittleEndian.PutUint32(b[i*4:], uint32(v))
	case Int32:
		binary.LittleEndian.PutUint32(b[i*4:], uint32(int32(v))) // #nosec G115 -- clamped above
	case Float32:
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(float32(v)))
	case Float64:
		binary.LittleEndian.PutUint64(b[i*8:], math.Float64bits(v))
	}
}

// BufferType reports the data type and length of a tile buffer.
// ok is false when buf is not a slice of an Element type.
func BufferType(buf any) (dt DataType, n int, ok bool) {
	switch b := buf.(type) {
	case []uint8:
		return Byte, len(b), true
	case []uint16:
		return UInt16, len(b), true
	case []int16:
		return Int16, len(b), true
	case []uint32:
		return UInt32, len(b), true
	case []int32:
		return Int32, len(b), true
	case []float32:
		return Float32, len(b), true
	case []float64:
		return Float64, len(b), true
	default:
		return Unknown, 0, false
	}
}

// CopyToFloat64 widens a tile buffer into dst. dst must be at least as long as src.
func CopyToFloat64(dst []float64, src any) error {
	switch s := src.(type) {
	case []uint8:
		return widen(dst, s)
	case []uint16:
		return widen(dst, s)
	case []int16:
		return widen(dst, s)
	case []uint32:
		return widen(dst, s)
	case []int32:
		return widen(dst, s)
	case []float32:
		return widen(dst, s)
	case []float64:
		return widen(dst, s)
	default:
		return fmt.Errorf("%w: %T", ErrBufferType, src)
	}
}

// CopyFromFloat64 narrows src into the tile buffer dst, rounding and
// saturating integer types. dst must not be longer than src.
func CopyFromFloat64(dst any, src []float64) error {
	switch d := dst.(type) {
	case []uint8:
		return narrow(d, src)
	case []uint16:
		return narrow(d, src)
	case []int16:
		return narrow(d, src)
	case []uint32:
		return narrow(d, src)
	case []int32:
		return narrow(d, src)
	case []float32:
		return narrow(d, src)
	case []float64:
		return narrow(d, src)
	default:
		return fmt.Errorf("%w: %T", ErrBufferType, dst)
	}
}

func widen[T Element](dst []float64, src []T) error {
	if len(dst) < len(src) {
		return fmt.Errorf("%w: destination holds %d of %d elements", ErrBufferType, len(dst), len(src))
	}
	for i, v := range src {
		dst[i] = float64(v)
	}

	return nil
}

func narrow[T Element](dst []T, src []float64) error {
	if len(src) < len(dst) {
		return fmt.Errorf("%w: source holds %d of %d elements", ErrBufferType, len(src), len(dst))
	}
	dt := DataTypeOf[T]()
	for i := range dst {
		dst[i] = T(dt.Clamp(src[i]))
	}

	return nil
}

// FromFloat64 converts v to T with the same rounding and saturation as CopyFromFloat64.
func FromFloat64[T Element](v float64) T {
	return T(DataTypeOf[T]().Clamp(v))
}

// DecodeRow decodes n elements of the little-endian buffer src, starting at
// element i and stored as dt, into the tile buffer dst starting at element j.
// Values are converted as by CopyFromFloat64 unless dst holds dt's own type,
// in which case they are copied as they are.
func DecodeRow(dst any, j int, src []byte, dt DataType, i, n int) error {
	switch d := dst.(type) {
	case []uint8:
		return decodeRow(d, j, src, dt, i, n)
	case []uint16:
		return decodeRow(d, j, src, dt, i, n)
	case []int16:
		return decodeRow(d, j, src, dt, i, n)
	case []uint32:
		return decodeRow(d, j, src, dt, i, n)
	case []int32:
		return decodeRow(d, j, src, dt, i, n)
	case []float32:
		return decodeRow(d, j, src, dt, i, n)
	case []float64:
		return decodeRow(d, j, src, dt, i, n)
	default:
		return fmt.Errorf("%w: %T", ErrBufferType, dst)
	}
}

// EncodeRow encodes n elements of the tile buffer src, starting at element
// j, into the little-endian buffer dst stored as dt, starting at element i.
// Values are clamped to dt as by Encode.
func EncodeRow(dst []byte, dt DataType, i int, src any, j, n int) error {
	switch s := src.(type) {
	case []uint8:
		return encodeRow(dst, dt, i, s, j, n)
	case []uint16:
		return encodeRow(dst, dt, i, s, j, n)
	case []int16:
		return encodeRow(dst, dt, i, s, j, n)
	case []uint32:
		return encodeRow(dst, dt, i, s, j, n)
	case []int32:
		return encodeRow(dst, dt, i, s, j, n)
	case []float32:
		return encodeRow(dst, dt, i, s, j, n)
	case []float64:
		return encodeRow(dst, dt, i, s, j, n)
	default:
		return fmt.Errorf("%w: %T", ErrBufferType, src)
	}
}

func decodeRow[T Element](dst []T, j int, src []byte, dt DataType, i, n int) error {
	size := dt.Size()
	if size == 0 || j < 0 || i < 0 || j+n > len(dst) || (i+n)*size > len(src) {
		return fmt.Errorf("%w: row of %d elements at %d/%d", ErrBufferType, n, j, i)
	}

	row := dst[j : j+n]
	if DataTypeOf[T]() == dt {
		if _, err := binary.Decode(src[i*size:(i+n)*size], binary.LittleEndian, row); err != nil {
			return fmt.Errorf("%w: %v", ErrBufferType, err)
		}
		return nil
	}
	for k := range row {
		row[k] = FromFloat64[T](dt.Decode(src, i+k))
	}

	return nil
}

func encodeRow[T Element](dst []byte, dt DataType, i int, src []T, j, n int) error {
	size := dt.Size()
	if size == 0 || j < 0 || i < 0 || j+n > len(src) || (i+n)*size > len(dst) {
		return fmt.Errorf("%w: row of %d elements at %d/%d", ErrBufferType, n, j, i)
	}

	row := src[j : j+n]
	if DataTypeOf[T]() == dt {
		if _, err := binary.Encode(dst[i*size:(i+n)*size], binary.LittleEndian, row); err != nil {
			return fmt.Errorf("%w: %v", ErrBufferType, err)
		}
		return nil
	}
	for k, v := range row {
		dt.Encode(dst, i+k, float64(v))
	}

	return nil
}
