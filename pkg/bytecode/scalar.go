package bytecode

import (
	"encoding/binary"
	"math"
)

// Unsigned is the set of Go types backing U8..U64.
type Unsigned interface {
	uint8 | uint16 | uint32 | uint64
}

// Signed is the set of Go types backing S8..S64.
type Signed interface {
	int8 | int16 | int32 | int64
}

// Float is the set of Go types backing F32 and F64.
type Float interface {
	float32 | float64
}

// Number is every type arithmetic is defined for.
type Number interface {
	Unsigned | Signed | Float
}

// Scalar is every Go type a stack slot can be read as.
type Scalar interface {
	Number | bool
}

// byteOrder is used for literals, addresses, jump targets and stack slots.
var byteOrder = binary.BigEndian

// sizeOf returns the encoded width of T.
func sizeOf[T Scalar]() int {
	var zero T
	switch any(zero).(type) {
	case bool, uint8, int8:
		return 1
	case uint16, int16:
		return 2
	case uint32, int32, float32:
		return 4
	default:
		return 8
	}
}

// decode reads a T from the first sizeOf[T]() bytes of b.
func decode[T Scalar](b []byte) T {
	var v T
	switch p := any(&v).(type) {
	case *bool:
		*p = b[0] != 0
	case *uint8:
		*p = b[0]
	case *int8:
		*p = int8(b[0])
	case *uint16:
		*p = byteOrder.Uint16(b)
	case *int16:
		*p = int16(byteOrder.Uint16(b))
	case *uint32:
		*p = byteOrder.Uint32(b)
	case *int32:
		*p = int32(byteOrder.Uint32(b))
	case *uint64:
		*p = byteOrder.Uint64(b)
	case *int64:
		*p = int64(byteOrder.Uint64(b))
	case *float32:
		*p = math.Float32frombits(byteOrder.Uint32(b))
	case *float64:
		*p = math.Float64frombits(byteOrder.Uint64(b))
	}
	return v
}

// encode writes v into the first sizeOf[T]() bytes of b.
func encode[T Scalar](b []byte, v T) {
	switch x := any(v).(type) {
	case bool:
		if x {
			b[0] = 1
		} else {
			b[0] = 0
		}
	case uint8:
		b[0] = x
	case int8:
		b[0] = byte(x)
	case uint16:
		byteOrder.PutUint16(b, x)
	case int16:
		byteOrder.PutUint16(b, uint16(x))
	case uint32:
		byteOrder.PutUint32(b, x)
	case int32:
		byteOrder.PutUint32(b, uint32(x))
	case uint64:
		byteOrder.PutUint64(b, x)
	case int64:
		byteOrder.PutUint64(b, uint64(x))
	case float32:
		byteOrder.PutUint32(b, math.Float32bits(x))
	case float64:
		byteOrder.PutUint64(b, math.Float64bits(x))
	}
}
