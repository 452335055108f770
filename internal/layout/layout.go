// Package layout implements the ObjectBuilder/ContainerLayout pipeline:
// it turns a declared set of named, typed fields into the absolute
// header+directory+names+data offsets described in spec §4.4, and
// realizes that layout into a zero-initialized buffer.
//
// Buffers are assembled through an io.WriteSeeker, the same idiom
// internal/squashfs's Writer uses to build its superblock and tables,
// backed here by an in-memory writerseeker.WriterSeeker so a fresh scratch
// buffer can always be built and then swapped in without disturbing the
// container being rescheme'd until the new buffer is ready (spec §9).
package layout

import (
	"encoding/binary"
	"io"
	"sort"
	"unicode/utf16"

	"github.com/orcaman/writerseeker"
	"golang.org/x/exp/slices"
	"golang.org/x/xerrors"

	"github.com/binobj/store/internal/fieldtype"
)

// HeaderSize is the fixed byte size of a ContainerHeader.
const HeaderSize = 4 + 2 + 8 + 2 + 4 + 4 + 4 // magic,version,id,fieldCount,nameOffset,dataOffset,totalLength

// FieldHeaderSize is the fixed byte size of one FieldHeader directory entry.
const FieldHeaderSize = 1 + 1 + 4 + 2 + 4 + 4 // fieldType,elemSize,nameOffset,nameLength,dataOffset,length

// Magic identifies a container buffer. It is written into every header this
// package builds; wrapping a buffer as a container does not check it.
const Magic uint32 = 0x4f424a31 // "OBJ1"

// CurrentVersion is written into new headers.
const CurrentVersion uint16 = 1

// Header is the fixed-size header at the start of every container buffer.
// Its fields serialize via encoding/binary in declaration order with no
// padding, mirroring how internal/squashfs writes its superblock struct.
type Header struct {
	Magic       uint32
	Version     uint16
	ID          uint64
	FieldCount  uint16
	NameOffset  uint32
	DataOffset  uint32
	TotalLength uint32
}

// FieldHeader is one entry of the field directory, sorted by field name
// under ordinal UTF-16 comparison.
type FieldHeader struct {
	FieldType  fieldtype.FieldType
	ElemSize   uint8
	NameOffset uint32
	NameLength uint16
	DataOffset uint32
	Length     uint32
}

// FieldSpec is one field declaration accumulated by ObjectBuilder before a
// layout is computed.
type FieldSpec struct {
	Name    string
	Tag     fieldtype.ValueType
	IsArray bool
	Length  int    // byte length of the field's payload
	Initial []byte // optional initial bytes; nil means zero-fill
}

// ErrDuplicateField is returned by the ObjectBuilder Set* call that declares
// an already-declared field name when Strict(true) was requested.
var ErrDuplicateField = xerrors.New("layout: duplicate field name")

// ObjectBuilder accumulates field declarations for a single container
// schema. Duplicate declarations replace the earlier one by default;
// Strict(true) makes a duplicate declaration an error instead (spec §4.4,
// resolving the "replace vs reject" open question in favor of an explicit
// flag).
type ObjectBuilder struct {
	strict bool
	order  []string
	fields map[string]FieldSpec
}

// NewObjectBuilder returns an empty builder.
func NewObjectBuilder() *ObjectBuilder {
	return &ObjectBuilder{fields: make(map[string]FieldSpec)}
}

// Strict toggles whether re-declaring a field name is an error (true) or a
// replace (false, the default).
func (b *ObjectBuilder) Strict(strict bool) *ObjectBuilder {
	b.strict = strict
	return b
}

func (b *ObjectBuilder) set(spec FieldSpec) error {
	if _, exists := b.fields[spec.Name]; exists {
		if b.strict {
			return xerrors.Errorf("field %q: %w", spec.Name, ErrDuplicateField)
		}
	} else {
		b.order = append(b.order, spec.Name)
	}
	b.fields[spec.Name] = spec
	return nil
}

// SetScalar declares a single-element field of the given tag.
func (b *ObjectBuilder) SetScalar(name string, tag fieldtype.ValueType) error {
	return b.set(FieldSpec{Name: name, Tag: tag, Length: fieldtype.ElemSize(tag)})
}

// SetArray declares an inline array field of count elements of tag, zero
// initialized.
func (b *ObjectBuilder) SetArray(name string, tag fieldtype.ValueType, count int) error {
	return b.set(FieldSpec{Name: name, Tag: tag, IsArray: true, Length: count * fieldtype.ElemSize(tag)})
}

// SetArrayValues declares an inline array field whose initial payload is
// values; the element count is derived from len(values)/elemSize(tag).
func (b *ObjectBuilder) SetArrayValues(name string, tag fieldtype.ValueType, values []byte) error {
	buf := make([]byte, len(values))
	copy(buf, values)
	return b.set(FieldSpec{Name: name, Tag: tag, IsArray: true, Length: len(buf), Initial: buf})
}

// SetRef declares a single Ref field, initialized to the given container id
// (0 meaning "no reference").
func (b *ObjectBuilder) SetRef(name string, id uint64) error {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, id)
	return b.set(FieldSpec{Name: name, Tag: fieldtype.Ref, Length: 8, Initial: buf})
}

// SetRefArray declares an inline array of count Ref elements, all zero
// (no reference) initially.
func (b *ObjectBuilder) SetRefArray(name string, count int) error {
	return b.set(FieldSpec{Name: name, Tag: fieldtype.Ref, IsArray: true, Length: count * 8})
}

// SetBytes declares a field with an explicit field type and payload,
// useful for raw/Blob fields or for seeding array fields of arbitrary tag.
func (b *ObjectBuilder) SetBytes(name string, ft fieldtype.FieldType, payload []byte) error {
	tag, isArray := fieldtype.Unpack(ft)
	buf := make([]byte, len(payload))
	copy(buf, payload)
	return b.set(FieldSpec{Name: name, Tag: tag, IsArray: isArray, Length: len(buf), Initial: buf})
}

// utf16Less compares two names under ordinal UTF-16 comparison, per spec
// invariant 1 (directory sorted by name, enabling binary search).
func utf16Less(a, b string) bool {
	ua, ub := utf16.Encode([]rune(a)), utf16.Encode([]rune(b))
	n := len(ua)
	if len(ub) < n {
		n = len(ub)
	}
	for i := 0; i < n; i++ {
		if ua[i] != ub[i] {
			return ua[i] < ub[i]
		}
	}
	return len(ua) < len(ub)
}

// Layout is the realized, absolute-offset schema for a family of
// containers. It is immutable once built; Realize stamps out a fresh
// zero-initialized (plus any declared initial bytes) buffer from it.
type Layout struct {
	Header Header
	Fields []FieldHeader
	Names  []string // Names[i] is the field name for Fields[i]

	initial [][]byte // initial[i] is the initial payload for Fields[i], or nil
}

// Build sorts the declared fields by name, computes the absolute header,
// directory, names-segment and data-segment offsets, and returns the
// resulting Layout. Names are assembled as concatenated UTF-16 code units
// in directory order, with no separators or length prefixes; each field
// header instead carries its own NameLength.
func (b *ObjectBuilder) Build() (*Layout, error) {
	names := make([]string, 0, len(b.order))
	for _, n := range b.order {
		names = append(names, n)
	}
	slices.SortFunc(names, func(a, c string) bool { return utf16Less(a, c) })

	fieldCount := len(names)
	nameOffset := uint32(HeaderSize + fieldCount*FieldHeaderSize)

	fields := make([]FieldHeader, fieldCount)
	initial := make([][]byte, fieldCount)

	curNameOff := nameOffset
	nameUnitsTotal := 0
	for i, name := range names {
		spec := b.fields[name]
		units := utf16.Encode([]rune(name))
		fields[i] = FieldHeader{
			FieldType:  fieldtype.Pack(spec.Tag, spec.IsArray),
			ElemSize:   uint8(fieldtype.ElemSize(spec.Tag)),
			NameOffset: curNameOff,
			NameLength: uint16(len(units)),
			Length:     uint32(spec.Length),
		}
		initial[i] = spec.Initial
		curNameOff += uint32(len(units) * 2)
		nameUnitsTotal += len(units)
	}

	dataOffset := curNameOff
	curDataOff := dataOffset
	for i := range fields {
		fields[i].DataOffset = curDataOff
		curDataOff += fields[i].Length
	}

	hdr := Header{
		Magic:       Magic,
		Version:     CurrentVersion,
		ID:          0,
		FieldCount:  uint16(fieldCount),
		NameOffset:  nameOffset,
		DataOffset:  dataOffset,
		TotalLength: curDataOff,
	}

	return &Layout{Header: hdr, Fields: fields, Names: names, initial: initial}, nil
}

// Realize builds a fresh, zero-initialized buffer from the layout, with
// any declared initial field payloads written at their computed offsets.
// The buffer is assembled through an io.WriteSeeker the way
// internal/squashfs.Writer assembles its image, backed here by an
// in-memory writerseeker.WriterSeeker.
func (l *Layout) Realize() ([]byte, error) {
	ws := &writerseeker.WriterSeeker{}

	hdr := l.Header
	if err := binary.Write(ws, binary.LittleEndian, &hdr); err != nil {
		return nil, xerrors.Errorf("layout: write header: %w", err)
	}
	for i := range l.Fields {
		fh := l.Fields[i]
		if err := binary.Write(ws, binary.LittleEndian, &fh); err != nil {
			return nil, xerrors.Errorf("layout: write field header %d: %w", i, err)
		}
	}
	for _, name := range l.Names {
		units := utf16.Encode([]rune(name))
		if err := binary.Write(ws, binary.LittleEndian, units); err != nil {
			return nil, xerrors.Errorf("layout: write name: %w", err)
		}
	}
	// Data segment: zero bytes by default, with any declared initial
	// payload written at its field's offset.
	zero := make([]byte, 4096)
	for i, fh := range l.Fields {
		remaining := int(fh.Length)
		if init := l.initial[i]; init != nil {
			n := len(init)
			if n > remaining {
				n = remaining
			}
			if _, err := ws.Write(init[:n]); err != nil {
				return nil, xerrors.Errorf("layout: write field payload: %w", err)
			}
			remaining -= n
		}
		for remaining > 0 {
			n := remaining
			if n > len(zero) {
				n = len(zero)
			}
			if _, err := ws.Write(zero[:n]); err != nil {
				return nil, xerrors.Errorf("layout: write zero fill: %w", err)
			}
			remaining -= n
		}
	}

	buf := make([]byte, l.Header.TotalLength)
	if _, err := io.ReadFull(ws.Reader(), buf); err != nil {
		return nil, xerrors.Errorf("layout: materialize buffer: %w", err)
	}
	return buf, nil
}

// RealizeInto writes a freshly built buffer's bytes into dst, which must
// already be exactly Header.TotalLength bytes (typically a buffer popped
// from a Pool). It always builds the scratch buffer first and copies it
// into dst whole, so a pooled buffer is never left half-written.
func (l *Layout) RealizeInto(dst []byte) error {
	buf, err := l.Realize()
	if err != nil {
		return err
	}
	if len(dst) != len(buf) {
		return xerrors.Errorf("layout: RealizeInto: destination length %d != %d", len(dst), len(buf))
	}
	copy(dst, buf)
	return nil
}

// IndexOf binary-searches the directory for name, returning its index or
// -1. Matches spec invariant 1: the directory is sorted by name under
// ordinal UTF-16 comparison, so binary search applies directly.
func (l *Layout) IndexOf(name string) int {
	i := sort.Search(len(l.Names), func(i int) bool { return !utf16Less(l.Names[i], name) })
	if i < len(l.Names) && l.Names[i] == name {
		return i
	}
	return -1
}

// UTF16Less exports the ordinal UTF-16 comparison used for directory
// ordering, for callers outside this package that need to keep a
// consistent sort (e.g. the container's directory binary search).
func UTF16Less(a, b string) bool { return utf16Less(a, b) }
