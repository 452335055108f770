package store

import (
	"reflect"
	"testing"
)

func TestParsePathSimple(t *testing.T) {
	segs, err := ParseDefault("a.b.c")
	if err != nil {
		t.Fatal(err)
	}
	want := []Segment{{Name: "a"}, {Name: "b"}, {Name: "c"}}
	if !reflect.DeepEqual(segs, want) {
		t.Errorf("got %+v, want %+v", segs, want)
	}
}

func TestParsePathWithIndices(t *testing.T) {
	segs, err := ParseDefault("party[2].hp")
	if err != nil {
		t.Fatal(err)
	}
	want := []Segment{{Name: "party", Indices: []int{2}}, {Name: "hp"}}
	if !reflect.DeepEqual(segs, want) {
		t.Errorf("got %+v, want %+v", segs, want)
	}
}

func TestParsePathMultipleIndices(t *testing.T) {
	segs, err := ParseDefault("grid[1][2]")
	if err != nil {
		t.Fatal(err)
	}
	if len(segs) != 1 || segs[0].Name != "grid" || !reflect.DeepEqual(segs[0].Indices, []int{1, 2}) {
		t.Errorf("got %+v", segs)
	}
}

func TestParsePathRejectsEmptySegment(t *testing.T) {
	if _, err := ParseDefault("a..b"); err == nil {
		t.Fatal("expected error for empty segment")
	}
}

func TestParsePathRejectsUnterminatedIndex(t *testing.T) {
	if _, err := ParseDefault("a[1"); err == nil {
		t.Fatal("expected error for unterminated index")
	}
}

func TestParsePathCustomSeparator(t *testing.T) {
	segs, err := ParsePath("a/b", '/')
	if err != nil {
		t.Fatal(err)
	}
	if len(segs) != 2 || segs[0].Name != "a" || segs[1].Name != "b" {
		t.Errorf("got %+v", segs)
	}
}

func TestSegmentString(t *testing.T) {
	s := Segment{Name: "grid", Indices: []int{1, 2}}
	if got := s.String(); got != "grid[1][2]" {
		t.Errorf("String() = %q, want grid[1][2]", got)
	}
}
