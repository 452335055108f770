// Package fieldtype defines the primitive value tags and the packed field
// type byte shared by every layer of the container format: one tag byte for
// the value kind, plus an inline-array bit, per the on-disk layout.
package fieldtype

import "fmt"

// ValueType is the 7-bit primitive tag stored in the low bits of a packed
// FieldType byte.
type ValueType uint8

const (
	Unknown ValueType = iota
	Bool
	UInt8
	Int8
	UInt16
	Int16
	UInt32
	Int32
	UInt64
	Int64
	Float32
	Float64
	Char16
	Ref
	Blob
)

func (t ValueType) String() string {
	switch t {
	case Unknown:
		return "Unknown"
	case Bool:
		return "Bool"
	case UInt8:
		return "UInt8"
	case Int8:
		return "Int8"
	case UInt16:
		return "UInt16"
	case Int16:
		return "Int16"
	case UInt32:
		return "UInt32"
	case Int32:
		return "Int32"
	case UInt64:
		return "UInt64"
	case Int64:
		return "Int64"
	case Float32:
		return "Float32"
	case Float64:
		return "Float64"
	case Char16:
		return "Char16"
	case Ref:
		return "Ref"
	case Blob:
		return "Blob"
	default:
		return fmt.Sprintf("ValueType(%d)", uint8(t))
	}
}

// ElemSize returns the fixed byte size of one element of the given tag. Ref
// is always 8 bytes (a container id); Blob is 1 (opaque bytes); Unknown is 0.
func ElemSize(t ValueType) int {
	switch t {
	case Bool, UInt8, Int8, Blob:
		return 1
	case UInt16, Int16, Char16:
		return 2
	case UInt32, Int32, Float32:
		return 4
	case UInt64, Int64, Float64, Ref:
		return 8
	default:
		return 0
	}
}

// FieldType packs a ValueType tag with the inline-array flag into one byte:
// low 7 bits are the tag, the high bit marks an inline array field.
type FieldType uint8

const arrayBit FieldType = 0x80

// Pack combines a primitive tag and the array flag into a FieldType byte.
func Pack(t ValueType, isArray bool) FieldType {
	ft := FieldType(t) & 0x7f
	if isArray {
		ft |= arrayBit
	}
	return ft
}

// Unpack splits a FieldType byte back into its tag and array flag.
func Unpack(ft FieldType) (ValueType, bool) {
	return ValueType(ft &^ arrayBit), ft&arrayBit != 0
}

// Tag returns the primitive tag encoded in ft.
func (ft FieldType) Tag() ValueType {
	t, _ := Unpack(ft)
	return t
}

// IsArray reports whether ft carries the inline-array flag.
func (ft FieldType) IsArray() bool {
	_, a := Unpack(ft)
	return a
}

// ElemSize returns the fixed byte size of one element of ft's tag.
func (ft FieldType) ElemSize() int {
	return ElemSize(ft.Tag())
}

func (ft FieldType) String() string {
	tag, isArray := Unpack(ft)
	if isArray {
		return tag.String() + "[]"
	}
	return tag.String()
}
