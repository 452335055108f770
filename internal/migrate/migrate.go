// Package migrate implements the byte-to-byte conversions the container
// runtime uses whenever a field's value type changes: scalar-in-place
// conversion between two primitive tags, elementwise conversion of array
// fields, and the raw-copy fallback for untyped or malformed data.
package migrate

import (
	"encoding/binary"
	"math"

	"golang.org/x/xerrors"

	"github.com/binobj/store/internal/fieldtype"
)

// ErrInvalidCast is returned when a scalar conversion is disallowed by the
// policy below and the caller did not pass explicit=true for an
// explicit-only conversion.
var ErrInvalidCast = xerrors.New("migrate: invalid cast")

type policy int

const (
	polNever policy = iota
	polImplicit
	polExplicit
)

func isFloatTag(t fieldtype.ValueType) bool {
	return t == fieldtype.Float32 || t == fieldtype.Float64
}

func isUnsignedTag(t fieldtype.ValueType) bool {
	switch t {
	case fieldtype.Bool, fieldtype.UInt8, fieldtype.UInt16, fieldtype.Char16, fieldtype.UInt32, fieldtype.UInt64:
		return true
	default:
		return false
	}
}

func isSignedTag(t fieldtype.ValueType) bool {
	switch t {
	case fieldtype.Int8, fieldtype.Int16, fieldtype.Int32, fieldtype.Int64:
		return true
	default:
		return false
	}
}

// classify decides whether converting src -> dst is implicit (standard
// numeric widening), explicit-only (narrowing, or anything losing
// precision/sign information), or never allowed. See spec §4.2's
// conversion matrix.
func classify(src, dst fieldtype.ValueType) policy {
	srcFloat, dstFloat := isFloatTag(src), isFloatTag(dst)
	srcSize, dstSize := fieldtype.ElemSize(src), fieldtype.ElemSize(dst)

	switch {
	case srcFloat && !dstFloat:
		// any float -> integer is explicit only, including Char16.
		return polExplicit

	case srcFloat && dstFloat:
		if dstSize >= srcSize {
			return polImplicit // float32 -> float64
		}
		return polExplicit // float64 -> float32, narrowing

	case !srcFloat && dstFloat:
		if src == fieldtype.Bool {
			return polExplicit
		}
		if dstSize == 8 && srcSize <= 4 {
			return polImplicit // any <=32-bit integer fits exactly in float64
		}
		return polExplicit

	default: // integer-ish on both sides (includes Bool, Char16)
		if src == fieldtype.Bool || dst == fieldtype.Bool {
			return polExplicit
		}
		if dst == fieldtype.Char16 {
			return polExplicit
		}
		if src == fieldtype.Char16 {
			if isUnsignedTag(dst) && dstSize >= srcSize {
				return polImplicit
			}
			return polExplicit
		}
		sameSign := (isSignedTag(src) && isSignedTag(dst)) || (isUnsignedTag(src) && isUnsignedTag(dst))
		if sameSign && dstSize >= srcSize {
			return polImplicit
		}
		return polExplicit
	}
}

// Allowed reports whether converting a scalar value tagged src into a
// field tagged dst is permitted, given the caller's explicit flag.
func Allowed(src, dst fieldtype.ValueType, explicit bool) bool {
	if src == dst {
		return true
	}
	if src == fieldtype.Unknown || dst == fieldtype.Unknown ||
		src == fieldtype.Ref || dst == fieldtype.Ref ||
		src == fieldtype.Blob || dst == fieldtype.Blob {
		return false
	}
	switch classify(src, dst) {
	case polImplicit:
		return true
	case polExplicit:
		return explicit
	default:
		return false
	}
}

// numeric kind markers used by decode/encode below.
const (
	kindFloat = 'f'
	kindInt   = 's'
	kindUint  = 'u'
)

func decodeNumeric(tag fieldtype.ValueType, b []byte) (f float64, i int64, u uint64, kind byte) {
	switch tag {
	case fieldtype.Bool:
		if b[0] != 0 {
			u = 1
		}
		return 0, 0, u, kindUint
	case fieldtype.UInt8:
		return 0, 0, uint64(b[0]), kindUint
	case fieldtype.Int8:
		return 0, int64(int8(b[0])), 0, kindInt
	case fieldtype.UInt16, fieldtype.Char16:
		return 0, 0, uint64(binary.LittleEndian.Uint16(b)), kindUint
	case fieldtype.Int16:
		return 0, int64(int16(binary.LittleEndian.Uint16(b))), 0, kindInt
	case fieldtype.UInt32:
		return 0, 0, uint64(binary.LittleEndian.Uint32(b)), kindUint
	case fieldtype.Int32:
		return 0, int64(int32(binary.LittleEndian.Uint32(b))), 0, kindInt
	case fieldtype.UInt64:
		return 0, 0, binary.LittleEndian.Uint64(b), kindUint
	case fieldtype.Int64:
		return 0, int64(binary.LittleEndian.Uint64(b)), 0, kindInt
	case fieldtype.Float32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b))), 0, 0, kindFloat
	case fieldtype.Float64:
		return math.Float64frombits(binary.LittleEndian.Uint64(b)), 0, 0, kindFloat
	default:
		return 0, 0, 0, 0
	}
}

func asFloat(f float64, i int64, u uint64, kind byte) float64 {
	switch kind {
	case kindFloat:
		return f
	case kindInt:
		return float64(i)
	case kindUint:
		return float64(u)
	default:
		return 0
	}
}

func asInt(f float64, i int64, u uint64, kind byte) int64 {
	switch kind {
	case kindFloat:
		return int64(math.Trunc(f)) // truncate toward zero
	case kindInt:
		return i
	case kindUint:
		return int64(u)
	default:
		return 0
	}
}

func asUint(f float64, i int64, u uint64, kind byte) uint64 {
	switch kind {
	case kindFloat:
		return uint64(int64(math.Trunc(f)))
	case kindInt:
		return uint64(i)
	case kindUint:
		return u
	default:
		return 0
	}
}

func encodeNumeric(tag fieldtype.ValueType, dst []byte, f float64, i int64, u uint64, kind byte) {
	switch tag {
	case fieldtype.Bool:
		if asUint(f, i, u, kind) != 0 {
			dst[0] = 1
		} else {
			dst[0] = 0
		}
	case fieldtype.UInt8:
		dst[0] = byte(asUint(f, i, u, kind))
	case fieldtype.Int8:
		dst[0] = byte(int8(asInt(f, i, u, kind)))
	case fieldtype.UInt16, fieldtype.Char16:
		binary.LittleEndian.PutUint16(dst, uint16(asUint(f, i, u, kind)))
	case fieldtype.Int16:
		binary.LittleEndian.PutUint16(dst, uint16(int16(asInt(f, i, u, kind))))
	case fieldtype.UInt32:
		binary.LittleEndian.PutUint32(dst, uint32(asUint(f, i, u, kind)))
	case fieldtype.Int32:
		binary.LittleEndian.PutUint32(dst, uint32(int32(asInt(f, i, u, kind))))
	case fieldtype.UInt64:
		binary.LittleEndian.PutUint64(dst, asUint(f, i, u, kind))
	case fieldtype.Int64:
		binary.LittleEndian.PutUint64(dst, uint64(asInt(f, i, u, kind)))
	case fieldtype.Float32:
		binary.LittleEndian.PutUint32(dst, math.Float32bits(float32(asFloat(f, i, u, kind))))
	case fieldtype.Float64:
		binary.LittleEndian.PutUint64(dst, math.Float64bits(asFloat(f, i, u, kind)))
	}
}

// ConvertScalar converts the single value in src (tagged srcTag) into dst
// (tagged dstTag), zero-filling any trailing bytes of dst beyond the
// written value. If srcTag == dstTag this is a byte copy with truncation
// or zero-padding. Otherwise the conversion matrix decides whether the
// cast is allowed.
func ConvertScalar(src, dst []byte, srcTag, dstTag fieldtype.ValueType, explicit bool) error {
	if srcTag == dstTag {
		n := copy(dst, src)
		for i := n; i < len(dst); i++ {
			dst[i] = 0
		}
		return nil
	}
	if !Allowed(srcTag, dstTag, explicit) {
		return xerrors.Errorf("convert %s -> %s: %w", srcTag, dstTag, ErrInvalidCast)
	}
	f, i, u, kind := decodeNumeric(srcTag, src)
	tmp := make([]byte, fieldtype.ElemSize(dstTag))
	encodeNumeric(dstTag, tmp, f, i, u, kind)
	n := copy(dst, tmp)
	for j := n; j < len(dst); j++ {
		dst[j] = 0
	}
	return nil
}

// rawCopy copies min(len(src), len(dst)) bytes verbatim and zero-fills the
// remainder of dst. This is the fallback used whenever the tags involved
// are Unknown or the buffer length does not evenly divide the element
// size. Keeps layout evolution safe even across untyped blobs.
func rawCopy(src, dst []byte) error {
	n := copy(dst, src)
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}
	return nil
}

// Convert performs the full field-level migration described in spec §4.3:
// given the old and new field types and their backing byte slices, it
// raw-copies when either tag is Unknown or the element size does not
// divide the source length evenly; otherwise it converts elementwise for
// array fields (zero-filling any trailing destination elements) or
// in-place for scalar fields.
func Convert(src, dst []byte, srcFT, dstFT fieldtype.FieldType, explicit bool) error {
	srcTag, srcArray := fieldtype.Unpack(srcFT)
	dstTag, dstArray := fieldtype.Unpack(dstFT)
	srcElem := fieldtype.ElemSize(srcTag)
	dstElem := fieldtype.ElemSize(dstTag)

	if srcTag == fieldtype.Unknown || dstTag == fieldtype.Unknown ||
		srcElem == 0 || dstElem == 0 ||
		len(src)%srcElem != 0 {
		return rawCopy(src, dst)
	}

	if !srcArray && !dstArray {
		return ConvertScalar(src, dst, srcTag, dstTag, explicit)
	}

	srcCount := len(src) / srcElem
	dstCount := len(dst) / dstElem
	n := srcCount
	if dstCount < n {
		n = dstCount
	}
	for idx := 0; idx < n; idx++ {
		s := src[idx*srcElem : (idx+1)*srcElem]
		d := dst[idx*dstElem : (idx+1)*dstElem]
		if err := ConvertScalar(s, d, srcTag, dstTag, explicit); err != nil {
			return err
		}
	}
	for i := n * dstElem; i < len(dst); i++ {
		dst[i] = 0
	}
	return nil
}
