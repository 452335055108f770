// Package valueview implements a typed, non-owning window over a byte
// slice: the read/write/convert primitives every field access in the
// container runtime is built from. Byte order is always explicit
// little-endian, so buffers stay portable independent of host endianness.
package valueview

import (
	"encoding/binary"
	"encoding/hex"
	"math"
	"strconv"
	"unicode/utf16"

	"github.com/binobj/store/internal/fieldtype"
	"github.com/binobj/store/internal/migrate"
)

var leOrder = binary.LittleEndian

// ErrInvalidCast is returned by WriteFrom when the conversion matrix disallows
// the requested assignment.
var ErrInvalidCast = migrate.ErrInvalidCast

// Numeric constrains the primitive Go types ValueView can read and write.
type Numeric interface {
	~bool | ~uint8 | ~int8 | ~uint16 | ~int16 | ~uint32 | ~int32 | ~uint64 | ~int64 | ~float32 | ~float64
}

// ReadOnlyValueView is an immutable typed window over a byte slice.
type ReadOnlyValueView struct {
	tag fieldtype.ValueType
	b   []byte
}

// NewReadOnly wraps b as a read-only view tagged t.
func NewReadOnly(t fieldtype.ValueType, b []byte) ReadOnlyValueView {
	return ReadOnlyValueView{tag: t, b: b}
}

// Tag returns the view's value tag.
func (v ReadOnlyValueView) Tag() fieldtype.ValueType { return v.tag }

// Bytes returns the view's underlying slice.
func (v ReadOnlyValueView) Bytes() []byte { return v.b }

// Len returns the number of bytes backing the view.
func (v ReadOnlyValueView) Len() int { return len(v.b) }

// ValueView is a mutable typed window over a byte slice.
type ValueView struct {
	tag fieldtype.ValueType
	b   []byte
}

// New wraps b as a mutable view tagged t.
func New(t fieldtype.ValueType, b []byte) ValueView {
	return ValueView{tag: t, b: b}
}

// Tag returns the view's value tag.
func (v ValueView) Tag() fieldtype.ValueType { return v.tag }

// Bytes returns the view's underlying slice.
func (v ValueView) Bytes() []byte { return v.b }

// Len returns the number of bytes backing the view.
func (v ValueView) Len() int { return len(v.b) }

// ReadOnly returns a read-only view over the same bytes.
func (v ValueView) ReadOnly() ReadOnlyValueView { return ReadOnlyValueView{tag: v.tag, b: v.b} }

// SizeOf returns the fixed byte size sizeof(T) for a Numeric type T.
func SizeOf[T Numeric]() int { return sizeOf[T]() }

func sizeOf[T Numeric]() int {
	var z T
	switch any(z).(type) {
	case bool, uint8, int8:
		return 1
	case uint16, int16:
		return 2
	case uint32, int32, float32:
		return 4
	case uint64, int64, float64:
		return 8
	default:
		return 0
	}
}

func encode[T Numeric](v T, dst []byte) {
	switch x := any(v).(type) {
	case bool:
		if x {
			dst[0] = 1
		} else {
			dst[0] = 0
		}
	case uint8:
		dst[0] = x
	case int8:
		dst[0] = byte(x)
	case uint16:
		leOrder.PutUint16(dst, x)
	case int16:
		leOrder.PutUint16(dst, uint16(x))
	case uint32:
		leOrder.PutUint32(dst, x)
	case int32:
		leOrder.PutUint32(dst, uint32(x))
	case uint64:
		leOrder.PutUint64(dst, x)
	case int64:
		leOrder.PutUint64(dst, uint64(x))
	case float32:
		leOrder.PutUint32(dst, math.Float32bits(x))
	case float64:
		leOrder.PutUint64(dst, math.Float64bits(x))
	}
}

func decode[T Numeric](src []byte) T {
	var z T
	switch any(z).(type) {
	case bool:
		return any(src[0] != 0).(T)
	case uint8:
		return any(src[0]).(T)
	case int8:
		return any(int8(src[0])).(T)
	case uint16:
		return any(leOrder.Uint16(src)).(T)
	case int16:
		return any(int16(leOrder.Uint16(src))).(T)
	case uint32:
		return any(leOrder.Uint32(src)).(T)
	case int32:
		return any(int32(leOrder.Uint32(src))).(T)
	case uint64:
		return any(leOrder.Uint64(src)).(T)
	case int64:
		return any(int64(leOrder.Uint64(src))).(T)
	case float32:
		return any(math.Float32frombits(leOrder.Uint32(src))).(T)
	case float64:
		return any(math.Float64frombits(leOrder.Uint64(src))).(T)
	default:
		return z
	}
}

// Read reinterprets the view's bytes as T, ignoring any excess bytes
// beyond sizeof(T). ok is false if the view is shorter than sizeof(T).
func Read[T Numeric](v ReadOnlyValueView) (val T, ok bool) {
	n := sizeOf[T]()
	if n == 0 || len(v.b) < n {
		return val, false
	}
	return decode[T](v.b[:n]), true
}

// Write stores val as sizeof(T) little-endian bytes at the front of the
// view, zero-filling any trailing bytes. ok is false if the view is
// shorter than sizeof(T).
func Write[T Numeric](v ValueView, val T) (ok bool) {
	n := sizeOf[T]()
	if n == 0 || len(v.b) < n {
		return false
	}
	encode(val, v.b[:n])
	for i := n; i < len(v.b); i++ {
		v.b[i] = 0
	}
	return true
}

// WriteFrom performs the type-directed assignment described in spec §4.2:
// if src and v share a tag, bytes are copied with truncation/padding and
// the remainder of v is zeroed; otherwise the conversion matrix decides
// whether the cast is allowed, returning ErrInvalidCast if not.
func (v ValueView) WriteFrom(src ReadOnlyValueView, explicit bool) error {
	return migrate.ConvertScalar(src.b, v.b, src.tag, v.tag, explicit)
}

// IsNaN reports whether a float-tagged view holds NaN. Non-float tags and
// short buffers report false.
func (v ReadOnlyValueView) IsNaN() bool {
	switch v.tag {
	case fieldtype.Float32:
		f, ok := Read[float32](v)
		return ok && math.IsNaN(float64(f))
	case fieldtype.Float64:
		f, ok := Read[float64](v)
		return ok && math.IsNaN(f)
	default:
		return false
	}
}

// IsFinite reports whether a float-tagged view holds a finite value.
func (v ReadOnlyValueView) IsFinite() bool {
	switch v.tag {
	case fieldtype.Float32:
		f, ok := Read[float32](v)
		return ok && !math.IsNaN(float64(f)) && !math.IsInf(float64(f), 0)
	case fieldtype.Float64:
		f, ok := Read[float64](v)
		return ok && !math.IsNaN(f) && !math.IsInf(f, 0)
	default:
		return false
	}
}

// IsPositiveInfinity reports whether a float-tagged view holds +Inf.
func (v ReadOnlyValueView) IsPositiveInfinity() bool {
	switch v.tag {
	case fieldtype.Float32:
		f, ok := Read[float32](v)
		return ok && math.IsInf(float64(f), 1)
	case fieldtype.Float64:
		f, ok := Read[float64](v)
		return ok && math.IsInf(f, 1)
	default:
		return false
	}
}

// IsInfinity reports whether a float-tagged view holds +Inf or -Inf.
func (v ReadOnlyValueView) IsInfinity() bool {
	switch v.tag {
	case fieldtype.Float32:
		f, ok := Read[float32](v)
		return ok && math.IsInf(float64(f), 0)
	case fieldtype.Float64:
		f, ok := Read[float64](v)
		return ok && math.IsInf(f, 0)
	default:
		return false
	}
}

// String renders the view per spec §4.2: Char16 views decode the whole
// slice as UTF-16, Ref views that are malformed or hold id 0 render "null",
// and numeric views shorter than their tag's element size (or with a tag
// that has no element size) render as raw hex. Longer numeric views render
// only their leading element.
func (v ReadOnlyValueView) String() string {
	switch v.tag {
	case fieldtype.Char16:
		return decodeUTF16(v.b)
	case fieldtype.Ref:
		if len(v.b) != 8 {
			return "null"
		}
		id, _ := Read[uint64](v)
		if id == 0 {
			return "null"
		}
		return strconv.FormatUint(id, 10)
	default:
		n := fieldtype.ElemSize(v.tag)
		if n == 0 || len(v.b) < n {
			return "Raw: " + hex.EncodeToString(v.b)
		}
		return formatScalar(v)
	}
}

func formatScalar(v ReadOnlyValueView) string {
	switch v.tag {
	case fieldtype.Bool:
		b, _ := Read[bool](v)
		return strconv.FormatBool(b)
	case fieldtype.UInt8:
		x, _ := Read[uint8](v)
		return strconv.FormatUint(uint64(x), 10)
	case fieldtype.Int8:
		x, _ := Read[int8](v)
		return strconv.FormatInt(int64(x), 10)
	case fieldtype.UInt16:
		x, _ := Read[uint16](v)
		return strconv.FormatUint(uint64(x), 10)
	case fieldtype.Int16:
		x, _ := Read[int16](v)
		return strconv.FormatInt(int64(x), 10)
	case fieldtype.UInt32:
		x, _ := Read[uint32](v)
		return strconv.FormatUint(uint64(x), 10)
	case fieldtype.Int32:
		x, _ := Read[int32](v)
		return strconv.FormatInt(int64(x), 10)
	case fieldtype.UInt64:
		x, _ := Read[uint64](v)
		return strconv.FormatUint(x, 10)
	case fieldtype.Int64:
		x, _ := Read[int64](v)
		return strconv.FormatInt(x, 10)
	case fieldtype.Float32:
		x, _ := Read[float32](v)
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	case fieldtype.Float64:
		x, _ := Read[float64](v)
		return strconv.FormatFloat(x, 'g', -1, 64)
	default:
		return "Raw: " + hex.EncodeToString(v.b)
	}
}

func decodeUTF16(b []byte) string {
	units := make([]uint16, len(b)/2)
	for i := range units {
		units[i] = leOrder.Uint16(b[i*2:])
	}
	return string(utf16.Decode(units))
}
