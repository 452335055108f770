package store

import (
	"bytes"
	"encoding/binary"
	"unicode/utf16"

	"golang.org/x/exp/slices"
	"golang.org/x/xerrors"

	"github.com/binobj/store/internal/fieldtype"
	"github.com/binobj/store/internal/layout"
	"github.com/binobj/store/internal/migrate"
	"github.com/binobj/store/internal/pool"
	"github.com/binobj/store/internal/valueview"
)

// idOffset is Header.ID's absolute byte offset: Magic(4) + Version(2).
const idOffset = 6

// Container is a single realized buffer plus its parsed header and field
// directory: the runtime view of one object in the store. A Container with
// ID() == 0 is "wild": built but never registered.
type Container struct {
	buf    []byte
	header layout.Header
	fields []layout.FieldHeader
	names  []string

	disposed bool
	pool     *pool.Pool
	reg      *Registry
	bus      *eventBus
}

// FromLayout realizes l into a fresh buffer (reusing one from p if p is
// non-nil and sized for l) and wraps it as a wild container.
func FromLayout(l *layout.Layout, p *pool.Pool) (*Container, error) {
	var buf []byte
	if p != nil && p.Size() == int(l.Header.TotalLength) {
		buf = p.Get()
		if err := l.RealizeInto(buf); err != nil {
			return nil, err
		}
	} else {
		b, err := l.Realize()
		if err != nil {
			return nil, err
		}
		buf = b
	}
	return wrapContainer(buf, p)
}

// wrapContainer parses buf's header and directory and returns the Container
// wrapping it. buf is taken by reference, not copied.
func wrapContainer(buf []byte, p *pool.Pool) (*Container, error) {
	if len(buf) < layout.HeaderSize {
		return nil, xerrors.Errorf("container: buffer shorter than header: %w", ErrArgumentError)
	}
	var hdr layout.Header
	if err := binary.Read(bytes.NewReader(buf[:layout.HeaderSize]), binary.LittleEndian, &hdr); err != nil {
		return nil, xerrors.Errorf("container: parse header: %w", err)
	}
	fields := make([]layout.FieldHeader, hdr.FieldCount)
	r := bytes.NewReader(buf[layout.HeaderSize:])
	for i := range fields {
		if err := binary.Read(r, binary.LittleEndian, &fields[i]); err != nil {
			return nil, xerrors.Errorf("container: parse field header %d: %w", i, err)
		}
	}
	names := make([]string, len(fields))
	for i, fh := range fields {
		end := int(fh.NameOffset) + int(fh.NameLength)*2
		names[i] = decodeName(buf[fh.NameOffset:end])
	}
	return &Container{buf: buf, header: hdr, fields: fields, names: names, pool: p, bus: newEventBus()}, nil
}

func decodeName(b []byte) string {
	units := make([]uint16, len(b)/2)
	for i := range units {
		units[i] = binary.LittleEndian.Uint16(b[i*2:])
	}
	return string(utf16.Decode(units))
}

// ID returns the container's registry id, or 0 if it is wild.
func (c *Container) ID() uint64 { return c.header.ID }

// Disposed reports whether Dispose has been called.
func (c *Container) Disposed() bool { return c.disposed }

// Len returns the total buffer length in bytes.
func (c *Container) Len() int { return int(c.header.TotalLength) }

// Fields returns a copy of the directory's field names, in directory
// (sorted) order.
func (c *Container) Fields() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// IndexOf binary-searches the directory for name, returning its index or -1.
func (c *Container) IndexOf(name string) int { return c.indexOf(name) }

func (c *Container) indexOf(name string) int {
	idx, found := slices.BinarySearchFunc(c.names, name, func(a, b string) int {
		switch {
		case layout.UTF16Less(a, b):
			return -1
		case layout.UTF16Less(b, a):
			return 1
		default:
			return 0
		}
	})
	if !found {
		return -1
	}
	return idx
}

func (c *Container) fieldBytes(idx int) []byte {
	fh := c.fields[idx]
	return c.buf[fh.DataOffset : fh.DataOffset+fh.Length]
}

// GetFieldBytes returns the raw payload bytes for the field at directory
// index idx.
func (c *Container) GetFieldBytes(idx int) ([]byte, error) {
	if c.disposed {
		return nil, ErrObjectDisposed
	}
	if idx < 0 || idx >= len(c.fields) {
		return nil, xerrors.Errorf("container: field index %d: %w", idx, ErrIndexOutOfRange)
	}
	return c.fieldBytes(idx), nil
}

func (c *Container) setID(id uint64) {
	c.header.ID = id
	binary.LittleEndian.PutUint64(c.buf[idOffset:], id)
}

func (c *Container) notifyWrite(field string) {
	c.bus.dispatch(field, StorageEventArgs{Event: EventWrite, Path: field})
}

// Subscribe registers a container-scoped handler, notified of every event
// regardless of which field it touches.
func (c *Container) Subscribe(h Handler) *Subscription { return c.bus.subscribe(h) }

// SubscribeField registers a handler notified only of events dispatched under
// name exactly: writes and deletes of that field, and its rename, whose Path
// is the new name.
func (c *Container) SubscribeField(name string, h Handler) *Subscription {
	return c.bus.subscribeField(name, h)
}

// outgoingRefs collects every container id referenced by this container's
// Ref and Ref[] fields, used by Registry.Unregister to follow the object
// graph.
func (c *Container) outgoingRefs() []uint64 {
	var ids []uint64
	for i, fh := range c.fields {
		tag, isArray := fieldtype.Unpack(fh.FieldType)
		if tag != fieldtype.Ref {
			continue
		}
		data := c.fieldBytes(i)
		if isArray {
			for off := 0; off+8 <= len(data); off += 8 {
				if id := binary.LittleEndian.Uint64(data[off:]); id != 0 {
					ids = append(ids, id)
				}
			}
		} else if len(data) == 8 {
			if id := binary.LittleEndian.Uint64(data); id != 0 {
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// Read reinterprets the named field's bytes as T, ignoring the field's own
// declared tag, per spec §4.2's raw read<T>.
func Read[T valueview.Numeric](c *Container, name string) (T, error) {
	var zero T
	if c.disposed {
		return zero, ErrObjectDisposed
	}
	idx := c.indexOf(name)
	if idx < 0 {
		return zero, xerrors.Errorf("container: field %q: %w", name, ErrKeyNotFound)
	}
	view := valueview.NewReadOnly(c.fields[idx].FieldType.Tag(), c.fieldBytes(idx))
	v, ok := valueview.Read[T](view)
	if !ok {
		return zero, xerrors.Errorf("container: field %q: %w", name, ErrIndexOutOfRange)
	}
	return v, nil
}

// TryRead is Read without an error return; ok is false on any failure.
func TryRead[T valueview.Numeric](c *Container, name string) (T, bool) {
	v, err := Read[T](c, name)
	return v, err == nil
}

// Write stores val into the named field's bytes, zero-extending any
// trailing bytes. If val's natural size or tag does not fit the field as
// declared, Write fails unless allowRescheme is true, in which case the
// field is resized and/or retyped in place to match T before writing.
func Write[T valueview.Numeric](c *Container, name string, val T, allowRescheme bool) error {
	if err := rawWrite[T](c, name, val, allowRescheme); err != nil {
		return err
	}
	c.notifyWrite(name)
	return nil
}

// rawWrite is the shared Write implementation used directly by Container's
// public Write and, without the automatic per-field event, by Storage's
// path writes (which fire exactly one event themselves, against the root
// object, per spec §4.9).
func rawWrite[T valueview.Numeric](c *Container, name string, val T, allowRescheme bool) error {
	if c.disposed {
		return ErrObjectDisposed
	}
	idx := c.indexOf(name)
	if idx < 0 {
		return xerrors.Errorf("container: field %q: %w", name, ErrKeyNotFound)
	}
	fh := c.fields[idx]
	need := valueview.SizeOf[T]()
	wantTag := tagForType[T]()

	mismatch := int(fh.Length) < need || (!fh.FieldType.IsArray() && fh.FieldType.Tag() != wantTag && wantTag != fieldtype.Unknown)
	if mismatch {
		if !allowRescheme {
			return xerrors.Errorf("container: field %q does not fit %T: %w", name, val, ErrIndexOutOfRange)
		}
		if err := c.retypeAndResize(name, wantTag, false, need); err != nil {
			return err
		}
		idx = c.indexOf(name)
		fh = c.fields[idx]
	}

	view := valueview.New(fh.FieldType.Tag(), c.fieldBytes(idx))
	if !valueview.Write[T](view, val) {
		return xerrors.Errorf("container: field %q: %w", name, ErrIndexOutOfRange)
	}
	return nil
}

// TryWrite is Write without an error return.
func TryWrite[T valueview.Numeric](c *Container, name string, val T, allowRescheme bool) bool {
	return Write[T](c, name, val, allowRescheme) == nil
}

func tagForType[T valueview.Numeric]() fieldtype.ValueType {
	var z T
	switch any(z).(type) {
	case bool:
		return fieldtype.Bool
	case uint8:
		return fieldtype.UInt8
	case int8:
		return fieldtype.Int8
	case uint16:
		return fieldtype.UInt16
	case int16:
		return fieldtype.Int16
	case uint32:
		return fieldtype.UInt32
	case int32:
		return fieldtype.Int32
	case uint64:
		return fieldtype.UInt64
	case int64:
		return fieldtype.Int64
	case float32:
		return fieldtype.Float32
	case float64:
		return fieldtype.Float64
	default:
		return fieldtype.Unknown
	}
}

// GetFieldData decodes an array field as a []T, one element at a time.
func GetFieldData[T valueview.Numeric](c *Container, name string) ([]T, error) {
	if c.disposed {
		return nil, ErrObjectDisposed
	}
	idx := c.indexOf(name)
	if idx < 0 {
		return nil, xerrors.Errorf("container: field %q: %w", name, ErrKeyNotFound)
	}
	fh := c.fields[idx]
	elem := valueview.SizeOf[T]()
	if elem == 0 || int(fh.Length)%elem != 0 {
		return nil, xerrors.Errorf("container: field %q: %w", name, ErrArgumentError)
	}
	n := int(fh.Length) / elem
	data := c.fieldBytes(idx)
	out := make([]T, n)
	for i := 0; i < n; i++ {
		v, _ := valueview.Read[T](valueview.NewReadOnly(fh.FieldType.Tag(), data[i*elem:(i+1)*elem]))
		out[i] = v
	}
	return out, nil
}

// WriteBytes copies payload verbatim into the named field, which must be
// exactly len(payload) bytes long.
func (c *Container) WriteBytes(name string, payload []byte) error {
	if err := rawWriteBytes(c, name, payload); err != nil {
		return err
	}
	c.notifyWrite(name)
	return nil
}

func rawWriteBytes(c *Container, name string, payload []byte) error {
	if c.disposed {
		return ErrObjectDisposed
	}
	idx := c.indexOf(name)
	if idx < 0 {
		return xerrors.Errorf("container: field %q: %w", name, ErrKeyNotFound)
	}
	fb := c.fieldBytes(idx)
	if len(payload) != len(fb) {
		return xerrors.Errorf("container: field %q: payload length %d != field length %d: %w", name, len(payload), len(fb), ErrArgumentError)
	}
	copy(fb, payload)
	return nil
}

// TryWriteBytes is WriteBytes without an error return.
func (c *Container) TryWriteBytes(name string, payload []byte) bool {
	return c.WriteBytes(name, payload) == nil
}

// GetRef returns the id currently stored in a scalar Ref field.
func (c *Container) GetRef(name string) (uint64, error) {
	if c.disposed {
		return 0, ErrObjectDisposed
	}
	idx := c.indexOf(name)
	if idx < 0 {
		return 0, xerrors.Errorf("container: field %q: %w", name, ErrKeyNotFound)
	}
	if c.fields[idx].FieldType.Tag() != fieldtype.Ref || c.fields[idx].FieldType.IsArray() {
		return 0, xerrors.Errorf("container: field %q is not a scalar Ref: %w", name, ErrArgumentError)
	}
	v, ok := valueview.Read[uint64](valueview.NewReadOnly(fieldtype.Ref, c.fieldBytes(idx)))
	if !ok {
		return 0, ErrIndexOutOfRange
	}
	return v, nil
}

// WriteObject stores other's id into the named scalar Ref field.
func (c *Container) WriteObject(name string, other *Container) error {
	if c.disposed {
		return ErrObjectDisposed
	}
	idx := c.indexOf(name)
	if idx < 0 {
		return xerrors.Errorf("container: field %q: %w", name, ErrKeyNotFound)
	}
	if c.fields[idx].FieldType.Tag() != fieldtype.Ref || c.fields[idx].FieldType.IsArray() {
		return xerrors.Errorf("container: field %q is not a scalar Ref: %w", name, ErrArgumentError)
	}
	if !valueview.Write[uint64](valueview.New(fieldtype.Ref, c.fieldBytes(idx)), other.ID()) {
		return ErrIndexOutOfRange
	}
	c.notifyWrite(name)
	return nil
}

func (c *Container) writeRefRaw(name string, id uint64) error {
	idx := c.indexOf(name)
	if idx < 0 {
		return xerrors.Errorf("container: field %q: %w", name, ErrKeyNotFound)
	}
	if !valueview.Write[uint64](valueview.New(fieldtype.Ref, c.fieldBytes(idx)), id) {
		return ErrIndexOutOfRange
	}
	return nil
}

func (c *Container) writeRefArrayElem(name string, index int, id uint64) error {
	idx := c.indexOf(name)
	if idx < 0 {
		return xerrors.Errorf("container: field %q: %w", name, ErrKeyNotFound)
	}
	fb := c.fieldBytes(idx)
	off := index * 8
	if off+8 > len(fb) {
		return ErrIndexOutOfRange
	}
	binary.LittleEndian.PutUint64(fb[off:], id)
	return nil
}

func (c *Container) readRefArrayElem(name string, index int) (uint64, error) {
	idx := c.indexOf(name)
	if idx < 0 {
		return 0, xerrors.Errorf("container: field %q: %w", name, ErrKeyNotFound)
	}
	fb := c.fieldBytes(idx)
	off := index * 8
	if off+8 > len(fb) {
		return 0, ErrIndexOutOfRange
	}
	return binary.LittleEndian.Uint64(fb[off:]), nil
}

func (c *Container) refArrayLen(name string) (int, error) {
	idx := c.indexOf(name)
	if idx < 0 {
		return 0, xerrors.Errorf("container: field %q: %w", name, ErrKeyNotFound)
	}
	return int(c.fields[idx].Length) / 8, nil
}

// --- rescheme: every structural change rebuilds a fresh buffer in scratch
// and swaps it in atomically from the caller's point of view, per spec §9.

type fieldPlan struct {
	name    string
	tag     fieldtype.ValueType
	isArray bool
	length  int
}

// rebuild constructs a new layout from plans, realizes it, copies each
// plan's payload across from the field named by the matching entry in
// sources (by old name; "" means leave zero-filled, used for brand-new
// fields), converting via migrate.Convert when convert is true, and swaps
// the new buffer in. The container's id (if registered) is preserved.
func (c *Container) rebuild(plans []fieldPlan, sources []string, convert bool) error {
	b := layout.NewObjectBuilder()
	for _, p := range plans {
		var err error
		if p.isArray {
			elem := fieldtype.ElemSize(p.tag)
			count := 0
			if elem > 0 {
				count = p.length / elem
			}
			err = b.SetArray(p.name, p.tag, count)
		} else {
			err = b.SetScalar(p.name, p.tag)
		}
		if err != nil {
			return err
		}
	}
	l, err := b.Build()
	if err != nil {
		return err
	}
	newBuf, err := l.Realize()
	if err != nil {
		return err
	}

	for i, p := range plans {
		srcName := sources[i]
		if srcName == "" {
			continue
		}
		oldIdx := c.indexOf(srcName)
		if oldIdx < 0 {
			continue
		}
		oldFH := c.fields[oldIdx]
		newIdx := l.IndexOf(p.name)
		newFH := l.Fields[newIdx]
		oldBytes := c.buf[oldFH.DataOffset : oldFH.DataOffset+oldFH.Length]
		newBytes := newBuf[newFH.DataOffset : newFH.DataOffset+newFH.Length]
		if convert {
			if err := migrate.Convert(oldBytes, newBytes, oldFH.FieldType, newFH.FieldType, true); err != nil {
				return err
			}
		} else {
			n := copy(newBytes, oldBytes)
			for j := n; j < len(newBytes); j++ {
				newBytes[j] = 0
			}
		}
	}

	id := c.header.ID
	c.buf = newBuf
	c.header = l.Header
	c.fields = l.Fields
	c.names = l.Names
	if id != 0 {
		c.setID(id)
	}
	return nil
}

func (c *Container) currentPlans() ([]fieldPlan, []string) {
	plans := make([]fieldPlan, len(c.fields))
	sources := make([]string, len(c.fields))
	for i, fh := range c.fields {
		tag, isArray := fieldtype.Unpack(fh.FieldType)
		plans[i] = fieldPlan{name: c.names[i], tag: tag, isArray: isArray, length: int(fh.Length)}
		sources[i] = c.names[i]
	}
	return plans, sources
}

// retypeAndResize is the shared primitive behind RetypeField, ResizeField,
// and Write's allowRescheme path: it replaces one field's tag/array-ness/
// length, converting the existing bytes into the new tag when the tag
// changes (a genuine type change) and raw-copying otherwise (a pure
// resize).
func (c *Container) retypeAndResize(name string, tag fieldtype.ValueType, isArray bool, length int) error {
	plans, sources := c.currentPlans()
	idx := c.indexOf(name)
	if idx < 0 {
		return xerrors.Errorf("container: field %q: %w", name, ErrKeyNotFound)
	}
	oldTag, _ := fieldtype.Unpack(c.fields[idx].FieldType)
	plans[idx] = fieldPlan{name: name, tag: tag, isArray: isArray, length: length}
	return c.rebuild(plans, sources, oldTag != tag)
}

// ResizeField changes the named field's byte length in place, preserving
// its tag and zero-extending (or truncating) its payload.
func (c *Container) ResizeField(name string, newLength int) error {
	if c.disposed {
		return ErrObjectDisposed
	}
	idx := c.indexOf(name)
	if idx < 0 {
		return xerrors.Errorf("container: field %q: %w", name, ErrKeyNotFound)
	}
	tag, isArray := fieldtype.Unpack(c.fields[idx].FieldType)
	if isArray {
		elem := fieldtype.ElemSize(tag)
		if elem > 0 && newLength%elem != 0 {
			return xerrors.Errorf("container: field %q: length %d not a multiple of element size %d: %w", name, newLength, elem, ErrArgumentError)
		}
	}
	plans, sources := c.currentPlans()
	plans[idx].length = newLength
	return c.rebuild(plans, sources, false)
}

// RetypeField changes the named field's value type, converting its current
// bytes into the new type (narrowing/precision-losing conversions are
// always permitted here, since retyping is itself an explicit request).
func (c *Container) RetypeField(name string, newFT fieldtype.FieldType) error {
	if c.disposed {
		return ErrObjectDisposed
	}
	idx := c.indexOf(name)
	if idx < 0 {
		return xerrors.Errorf("container: field %q: %w", name, ErrKeyNotFound)
	}
	newTag, newIsArray := fieldtype.Unpack(newFT)
	oldFH := c.fields[idx]
	oldTag, oldIsArray := fieldtype.Unpack(oldFH.FieldType)
	newElem := fieldtype.ElemSize(newTag)

	var newLen int
	switch {
	case newIsArray && oldIsArray:
		oldElem := fieldtype.ElemSize(oldTag)
		count := 1
		if oldElem > 0 {
			count = int(oldFH.Length) / oldElem
		}
		newLen = count * newElem
	case newIsArray:
		newLen = newElem
	default:
		newLen = newElem
	}
	if newLen == 0 {
		newLen = newElem
	}

	plans, sources := c.currentPlans()
	plans[idx] = fieldPlan{name: name, tag: newTag, isArray: newIsArray, length: newLen}
	return c.rebuild(plans, sources, true)
}

// RenameField renames a field in place, preserving its bytes, tag, and
// length. Container-scoped and old-name-scoped subscribers receive a
// single Rename event with Path set to newName; they are not re-keyed to
// the new name (spec §4.9).
func (c *Container) RenameField(oldName, newName string) error {
	if err := c.renameFieldQuiet(oldName, newName); err != nil {
		return err
	}
	if oldName != newName {
		c.bus.notifyRename(oldName, newName)
	}
	return nil
}

func (c *Container) renameFieldQuiet(oldName, newName string) error {
	if c.disposed {
		return ErrObjectDisposed
	}
	if oldName == newName {
		return nil
	}
	idx := c.indexOf(oldName)
	if idx < 0 {
		return xerrors.Errorf("container: field %q: %w", oldName, ErrKeyNotFound)
	}
	if c.indexOf(newName) >= 0 {
		return xerrors.Errorf("container: field %q already exists: %w", newName, ErrArgumentError)
	}
	plans, sources := c.currentPlans()
	plans[idx].name = newName
	return c.rebuild(plans, sources, false)
}

// AddField declares and realizes a brand-new field, zero-initialized.
func (c *Container) AddField(name string, ft fieldtype.FieldType, length int) error {
	if c.disposed {
		return ErrObjectDisposed
	}
	if c.indexOf(name) >= 0 {
		return xerrors.Errorf("container: field %q already exists: %w", name, ErrArgumentError)
	}
	tag, isArray := fieldtype.Unpack(ft)
	plans, sources := c.currentPlans()
	plans = append(plans, fieldPlan{name: name, tag: tag, isArray: isArray, length: length})
	sources = append(sources, "")
	return c.rebuild(plans, sources, false)
}

// RemoveField drops a field entirely and fires a Delete event.
func (c *Container) RemoveField(name string) error {
	if err := c.removeFieldQuiet(name); err != nil {
		return err
	}
	c.bus.dispatch(name, StorageEventArgs{Event: EventDelete, Path: name})
	return nil
}

func (c *Container) removeFieldQuiet(name string) error {
	if c.disposed {
		return ErrObjectDisposed
	}
	idx := c.indexOf(name)
	if idx < 0 {
		return xerrors.Errorf("container: field %q: %w", name, ErrKeyNotFound)
	}
	allPlans, allSources := c.currentPlans()
	plans := make([]fieldPlan, 0, len(allPlans)-1)
	sources := make([]string, 0, len(allSources)-1)
	for i, p := range allPlans {
		if i == idx {
			continue
		}
		plans = append(plans, p)
		sources = append(sources, allSources[i])
	}
	return c.rebuild(plans, sources, false)
}

// Clone returns an independent deep copy of the container's buffer as a new
// wild container (id 0), unattached to any registry or pool.
func (c *Container) Clone() (*Container, error) {
	if c.disposed {
		return nil, ErrObjectDisposed
	}
	buf := make([]byte, len(c.buf))
	copy(buf, c.buf)
	cl, err := wrapContainer(buf, nil)
	if err != nil {
		return nil, err
	}
	cl.setID(0)
	return cl, nil
}

// CopyTo copies the entire buffer, including the header, into dst, which
// must be exactly Len() bytes.
func (c *Container) CopyTo(dst []byte) error {
	if c.disposed {
		return ErrObjectDisposed
	}
	if len(dst) != len(c.buf) {
		return xerrors.Errorf("container: CopyTo: destination length %d != %d: %w", len(dst), len(c.buf), ErrArgumentError)
	}
	copy(dst, c.buf)
	return nil
}

// CopyFrom overwrites this container's entire buffer, including its
// header, with src's. src must be exactly Len() bytes.
func (c *Container) CopyFrom(src *Container) error {
	if c.disposed {
		return ErrObjectDisposed
	}
	if len(src.buf) != len(c.buf) {
		return xerrors.Errorf("container: CopyFrom: source length %d != %d: %w", len(src.buf), len(c.buf), ErrArgumentError)
	}
	copy(c.buf, src.buf)
	return nil
}

// Clear zero-fills the data segment, leaving the header and directory
// untouched.
func (c *Container) Clear() error {
	if c.disposed {
		return ErrObjectDisposed
	}
	for i := int(c.header.DataOffset); i < len(c.buf); i++ {
		c.buf[i] = 0
	}
	return nil
}

// Dispose marks the container disposed and returns its buffer to the pool
// it was allocated from, if any. Subsequent calls of its error-returning
// methods return ErrObjectDisposed. Registered containers should be removed via
// Registry.Unregister, which calls Dispose internally after unlinking the
// container (and its descendants) from the registry.
func (c *Container) Dispose() error {
	if c.disposed {
		return nil
	}
	c.disposed = true
	if c.pool != nil {
		c.pool.Put(c.buf)
	}
	c.buf = nil
	return nil
}

// Dump renders a debug string summarizing the container's id and every
// field's name, type, and formatted value. Not part of the wire format;
// useful in tests and logs.
func (c *Container) Dump() string {
	var sb bytes.Buffer
	sb.WriteString("Container#")
	sb.WriteString(itoa(c.header.ID))
	sb.WriteString(" {\n")
	for i, fh := range c.fields {
		sb.WriteString("  ")
		sb.WriteString(c.names[i])
		sb.WriteString(": ")
		sb.WriteString(fh.FieldType.String())
		sb.WriteString(" = ")
		view := valueview.NewReadOnly(fh.FieldType.Tag(), c.fieldBytes(i))
		sb.WriteString(view.String())
		sb.WriteString("\n")
	}
	sb.WriteString("}")
	return sb.String()
}

func (c *Container) String() string { return c.Dump() }

func itoa(v uint64) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}
