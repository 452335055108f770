package migrate

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/binobj/store/internal/fieldtype"
)

func encodeI16(v int16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, uint16(v))
	return b
}

func encodeI32(v int32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(v))
	return b
}

func encodeF32(v float32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, math.Float32bits(v))
	return b
}

func encodeF64(v float64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, math.Float64bits(v))
	return b
}

func TestAllowedWideningIsImplicit(t *testing.T) {
	cases := []struct {
		src, dst fieldtype.ValueType
	}{
		{fieldtype.Int16, fieldtype.Int32},
		{fieldtype.Int32, fieldtype.Int64},
		{fieldtype.Int32, fieldtype.Float64},
		{fieldtype.Float32, fieldtype.Float64},
	}
	for _, c := range cases {
		if !Allowed(c.src, c.dst, false) {
			t.Errorf("Allowed(%v, %v, explicit=false) = false, want true", c.src, c.dst)
		}
	}
}

func TestAllowedNarrowingRequiresExplicit(t *testing.T) {
	cases := []struct {
		src, dst fieldtype.ValueType
	}{
		{fieldtype.Float64, fieldtype.Float32},
		{fieldtype.Float64, fieldtype.Int32},
		{fieldtype.Float32, fieldtype.Int32},
		{fieldtype.Int32, fieldtype.Int16},
	}
	for _, c := range cases {
		if Allowed(c.src, c.dst, false) {
			t.Errorf("Allowed(%v, %v, explicit=false) = true, want false", c.src, c.dst)
		}
		if !Allowed(c.src, c.dst, true) {
			t.Errorf("Allowed(%v, %v, explicit=true) = false, want true", c.src, c.dst)
		}
	}
}

func TestConvertScalarWidenI16ToI32(t *testing.T) {
	src := encodeI16(-5)
	dst := make([]byte, 4)
	if err := ConvertScalar(src, dst, fieldtype.Int16, fieldtype.Int32, false); err != nil {
		t.Fatalf("ConvertScalar: %v", err)
	}
	got := int32(binary.LittleEndian.Uint32(dst))
	if got != -5 {
		t.Errorf("got %d, want -5", got)
	}
}

func TestConvertScalarFloatToIntTruncatesTowardZero(t *testing.T) {
	src := encodeF64(3.9)
	dst := make([]byte, 4)
	if err := ConvertScalar(src, dst, fieldtype.Float64, fieldtype.Int32, true); err != nil {
		t.Fatalf("ConvertScalar: %v", err)
	}
	if got := int32(binary.LittleEndian.Uint32(dst)); got != 3 {
		t.Errorf("got %d, want 3", got)
	}

	src = encodeF64(-3.9)
	if err := ConvertScalar(src, dst, fieldtype.Float64, fieldtype.Int32, true); err != nil {
		t.Fatalf("ConvertScalar: %v", err)
	}
	if got := int32(binary.LittleEndian.Uint32(dst)); got != -3 {
		t.Errorf("got %d, want -3", got)
	}
}

func TestConvertScalarFloatToIntWithoutExplicitFails(t *testing.T) {
	src := encodeF32(1.0)
	dst := make([]byte, 4)
	err := ConvertScalar(src, dst, fieldtype.Float32, fieldtype.Int32, false)
	if err == nil {
		t.Fatal("expected ErrInvalidCast, got nil")
	}
}

func TestConvertArrayElementwise(t *testing.T) {
	src := make([]byte, 0, 8)
	src = append(src, encodeI16(1)...)
	src = append(src, encodeI16(2)...)
	src = append(src, encodeI16(3)...)
	src = append(src, encodeI16(4)...)
	dst := make([]byte, 4*4) // Int32[4]
	if err := Convert(src, dst, fieldtype.Pack(fieldtype.Int16, true), fieldtype.Pack(fieldtype.Int32, true), false); err != nil {
		t.Fatalf("Convert: %v", err)
	}
	for i := 0; i < 4; i++ {
		got := int32(binary.LittleEndian.Uint32(dst[i*4:]))
		if got != int32(i+1) {
			t.Errorf("element %d = %d, want %d", i, got, i+1)
		}
	}
}

func TestConvertArrayShrinkKeepsLeadingElements(t *testing.T) {
	src := make([]byte, 0, 8)
	for i := 0; i < 4; i++ {
		src = append(src, encodeI32(int32(i+1))...)
	}
	dst := make([]byte, 2*4) // only room for 2 elements at the same element size
	if err := Convert(src, dst, fieldtype.Pack(fieldtype.Int32, true), fieldtype.Pack(fieldtype.Int32, true), false); err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if got := int32(binary.LittleEndian.Uint32(dst[0:])); got != 1 {
		t.Errorf("element 0 = %d, want 1", got)
	}
	if got := int32(binary.LittleEndian.Uint32(dst[4:])); got != 2 {
		t.Errorf("element 1 = %d, want 2", got)
	}
}

func TestConvertRawCopyFallbackForUnknownTag(t *testing.T) {
	src := []byte{1, 2, 3, 4, 5}
	dst := make([]byte, 8)
	if err := Convert(src, dst, fieldtype.Pack(fieldtype.Unknown, false), fieldtype.Pack(fieldtype.Int64, false), true); err != nil {
		t.Fatalf("Convert: %v", err)
	}
	want := []byte{1, 2, 3, 4, 5, 0, 0, 0}
	for i, b := range want {
		if dst[i] != b {
			t.Errorf("dst[%d] = %d, want %d", i, dst[i], b)
		}
	}
}

func TestConvertArrayFloat64ToFloat32OverflowsToInfinity(t *testing.T) {
	values := []float64{1.23456789012345, -2.5, 1e40}
	src := make([]byte, 0, len(values)*8)
	for _, v := range values {
		src = append(src, encodeF64(v)...)
	}
	dst := make([]byte, len(values)*4)
	if err := Convert(src, dst, fieldtype.Pack(fieldtype.Float64, true), fieldtype.Pack(fieldtype.Float32, true), true); err != nil {
		t.Fatalf("Convert: %v", err)
	}

	got0 := math.Float32frombits(binary.LittleEndian.Uint32(dst[0:]))
	if want := float32(values[0]); got0 != want {
		t.Errorf("element 0 = %v, want %v", got0, want)
	}
	got1 := math.Float32frombits(binary.LittleEndian.Uint32(dst[4:]))
	if want := float32(values[1]); got1 != want {
		t.Errorf("element 1 = %v, want %v", got1, want)
	}
	got2 := math.Float32frombits(binary.LittleEndian.Uint32(dst[8:]))
	if !math.IsInf(float64(got2), 1) {
		t.Errorf("element 2 = %v, want +Inf", got2)
	}
}

func TestConvertScalarSameTagCopiesAndZeroFills(t *testing.T) {
	src := encodeI32(42)
	dst := make([]byte, 6)
	dst[3] = 0xFF
	dst[5] = 0xFF
	if err := ConvertScalar(src, dst, fieldtype.Int32, fieldtype.Int32, false); err != nil {
		t.Fatalf("ConvertScalar: %v", err)
	}
	if got := int32(binary.LittleEndian.Uint32(dst)); got != 42 {
		t.Errorf("got %d, want 42", got)
	}
	if dst[4] != 0 || dst[5] != 0 {
		t.Errorf("trailing bytes = %#x %#x, want 0 0", dst[4], dst[5])
	}
}
