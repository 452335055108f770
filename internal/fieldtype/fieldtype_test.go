package fieldtype

import "testing"

func TestPackUnpack(t *testing.T) {
	cases := []struct {
		tag     ValueType
		isArray bool
	}{
		{Unknown, false},
		{Bool, true},
		{Int32, false},
		{Float64, true},
		{Ref, true},
		{Blob, false},
	}
	for _, c := range cases {
		ft := Pack(c.tag, c.isArray)
		tag, isArray := Unpack(ft)
		if tag != c.tag || isArray != c.isArray {
			t.Errorf("Pack(%v,%v) round trip = (%v,%v)", c.tag, c.isArray, tag, isArray)
		}
		if ft.Tag() != c.tag || ft.IsArray() != c.isArray {
			t.Errorf("FieldType accessors disagree with Unpack for %v", c)
		}
	}
}

func TestElemSize(t *testing.T) {
	cases := map[ValueType]int{
		Unknown: 0,
		Bool:    1,
		UInt8:   1,
		Int8:    1,
		UInt16:  2,
		Int16:   2,
		Char16:  2,
		UInt32:  4,
		Int32:   4,
		Float32: 4,
		UInt64:  8,
		Int64:   8,
		Float64: 8,
		Ref:     8,
		Blob:    1,
	}
	for tag, want := range cases {
		if got := ElemSize(tag); got != want {
			t.Errorf("ElemSize(%v) = %d, want %d", tag, got, want)
		}
	}
}

func TestFieldTypeString(t *testing.T) {
	if got := Pack(Int32, false).String(); got != "Int32" {
		t.Errorf("scalar String() = %q", got)
	}
	if got := Pack(Int32, true).String(); got != "Int32[]" {
		t.Errorf("array String() = %q", got)
	}
}
