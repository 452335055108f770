package store

import (
	"encoding/binary"
	"unicode/utf16"

	"golang.org/x/exp/maps"
	"golang.org/x/xerrors"

	"github.com/binobj/store/internal/fieldtype"
	"github.com/binobj/store/internal/layout"
	"github.com/binobj/store/internal/valueview"
)

// emptyObjectLayout is the schema-less object every auto-created
// intermediate and leaf object starts from: fields are added to it one at
// a time via Container.AddField as a path write walks through it.
var emptyObjectLayout = mustBuildEmptyLayout()

func mustBuildEmptyLayout() *layout.Layout {
	l, err := layout.NewObjectBuilder().Build()
	if err != nil {
		panic(err)
	}
	return l
}

// Storage is the path-addressed façade over a Registry: a root object plus
// every object reachable from it through Ref fields.
type Storage struct {
	Registry *Registry
	rootID   uint64
}

// NewStorage returns a Storage with a fresh, empty root object.
func NewStorage() *Storage {
	reg := NewRegistry()
	root, err := reg.CreateWild(emptyObjectLayout)
	if err != nil {
		panic(err)
	}
	id, err := reg.Register(root)
	if err != nil {
		panic(err)
	}
	return &Storage{Registry: reg, rootID: id}
}

// Root returns a handle to the store's root object.
func (s *Storage) Root() *StorageObject {
	return &StorageObject{reg: s.Registry, id: s.rootID}
}

// StorageObject is a path-addressed handle to one registered container. It
// holds only an id, not a *Container, so it stays valid across any number
// of rescheme operations on the underlying container.
type StorageObject struct {
	reg *Registry
	id  uint64
}

// ID returns the object's registry id.
func (o *StorageObject) ID() uint64 { return o.id }

func (o *StorageObject) container() (*Container, error) {
	c, ok := o.reg.GetContainer(o.id)
	if !ok {
		return nil, xerrors.Errorf("storage: object %d: %w", o.id, ErrNotFound)
	}
	return c, nil
}

// HasField reports whether name is declared directly on this object.
func (o *StorageObject) HasField(name string) bool {
	c, err := o.container()
	if err != nil {
		return false
	}
	return c.indexOf(name) >= 0
}

// Subscribe registers a container-scoped handler on this object.
func (o *StorageObject) Subscribe(h Handler) (*Subscription, error) {
	c, err := o.container()
	if err != nil {
		return nil, err
	}
	return c.Subscribe(h), nil
}

// SubscribeField registers a handler scoped to the literal key (a plain
// field name, or a full dotted path as used by the path-write methods
// below) on this object.
func (o *StorageObject) SubscribeField(key string, h Handler) (*Subscription, error) {
	c, err := o.container()
	if err != nil {
		return nil, err
	}
	return c.SubscribeField(key, h), nil
}

func (o *StorageObject) fire(path string, ev StorageEvent) error {
	c, err := o.container()
	if err != nil {
		return err
	}
	c.bus.dispatch(path, StorageEventArgs{Event: ev, Path: path})
	return nil
}

// fireRename notifies oldPath's subscribers (container-scoped and
// oldPath-keyed) of a rename to newPath, the same key/Path split
// Container.RenameField's notifyRename uses: the event is dispatched under
// the old key, but its Path names the new location (spec §4.9 rule 2).
func (o *StorageObject) fireRename(oldPath, newPath string) error {
	c, err := o.container()
	if err != nil {
		return err
	}
	c.bus.notifyRename(oldPath, newPath)
	return nil
}

// resolveParent walks every path segment but the last, starting at o,
// auto-creating intermediate Ref objects and growing Ref[] arrays as it
// goes when create is true. It returns the container holding the final
// segment's field and that final segment itself.
func (o *StorageObject) resolveParent(segs []Segment, create bool) (*Container, Segment, error) {
	c, err := o.container()
	if err != nil {
		return nil, Segment{}, err
	}
	for i := 0; i < len(segs)-1; i++ {
		c, err = o.step(c, segs[i], create)
		if err != nil {
			return nil, Segment{}, err
		}
	}
	return c, segs[len(segs)-1], nil
}

func (o *StorageObject) step(c *Container, seg Segment, create bool) (*Container, error) {
	idx := c.indexOf(seg.Name)
	if idx < 0 {
		if !create {
			return nil, xerrors.Errorf("storage: field %q: %w", seg.Name, ErrNotFound)
		}
		isArrayField := len(seg.Indices) > 0
		ft := fieldtype.Pack(fieldtype.Ref, isArrayField)
		length := 8
		if isArrayField {
			length = 0
		}
		if err := c.AddField(seg.Name, ft, length); err != nil {
			return nil, err
		}
		idx = c.indexOf(seg.Name)
	}

	fh := c.fields[idx]
	tag, isArrayField := fieldtype.Unpack(fh.FieldType)
	if tag != fieldtype.Ref {
		return nil, xerrors.Errorf("storage: field %q is not a reference: %w", seg.Name, ErrArgumentError)
	}

	if len(seg.Indices) == 0 {
		if isArrayField {
			return nil, xerrors.Errorf("storage: field %q is an array, an index is required: %w", seg.Name, ErrArgumentError)
		}
		id, err := c.GetRef(seg.Name)
		if err != nil {
			return nil, err
		}
		if id == EmptyID {
			if !create {
				return nil, xerrors.Errorf("storage: field %q: %w", seg.Name, ErrNotFound)
			}
			child, err := o.reg.CreateAt(emptyObjectLayout, func(newID uint64) { _ = c.writeRefRaw(seg.Name, newID) })
			if err != nil {
				return nil, err
			}
			return child, nil
		}
		child, ok := o.reg.GetContainer(id)
		if !ok {
			return nil, ErrNotFound
		}
		return child, nil
	}

	if !isArrayField {
		return nil, xerrors.Errorf("storage: field %q is not an array: %w", seg.Name, ErrArgumentError)
	}
	if len(seg.Indices) != 1 {
		return nil, xerrors.Errorf("storage: nested indices on field %q are unsupported: %w", seg.Name, ErrArgumentError)
	}
	index := seg.Indices[0]
	n, err := c.refArrayLen(seg.Name)
	if err != nil {
		return nil, err
	}
	if index >= n {
		if !create {
			return nil, xerrors.Errorf("storage: %s[%d]: %w", seg.Name, index, ErrIndexOutOfRange)
		}
		if err := c.ResizeField(seg.Name, (index+1)*8); err != nil {
			return nil, err
		}
	}
	id, err := c.readRefArrayElem(seg.Name, index)
	if err != nil {
		return nil, err
	}
	if id == EmptyID {
		if !create {
			return nil, xerrors.Errorf("storage: %s[%d]: %w", seg.Name, index, ErrNotFound)
		}
		child, err := o.reg.CreateAt(emptyObjectLayout, func(newID uint64) { _ = c.writeRefArrayElem(seg.Name, index, newID) })
		if err != nil {
			return nil, err
		}
		return child, nil
	}
	child, ok := o.reg.GetContainer(id)
	if !ok {
		return nil, ErrNotFound
	}
	return child, nil
}

func elementBytes(c *Container, name string, index int) ([]byte, fieldtype.ValueType, error) {
	idx := c.indexOf(name)
	if idx < 0 {
		return nil, 0, xerrors.Errorf("storage: field %q: %w", name, ErrKeyNotFound)
	}
	fh := c.fields[idx]
	tag, isArray := fieldtype.Unpack(fh.FieldType)
	if !isArray {
		return nil, 0, xerrors.Errorf("storage: field %q is not an array: %w", name, ErrArgumentError)
	}
	elem := fieldtype.ElemSize(tag)
	if elem == 0 {
		return nil, 0, xerrors.Errorf("storage: field %q: %w", name, ErrArgumentError)
	}
	data := c.fieldBytes(idx)
	off := index * elem
	if off+elem > len(data) {
		return nil, 0, ErrIndexOutOfRange
	}
	return data[off : off+elem], tag, nil
}

// WritePath writes value at path, auto-creating any intermediate objects
// and arrays the path traverses. Exactly one Write event, with Path set to
// the full path string, is fired against o's subscribers.
func WritePath[T valueview.Numeric](o *StorageObject, path string, value T) error {
	segs, err := ParseDefault(path)
	if err != nil {
		return err
	}
	parent, last, err := o.resolveParent(segs, true)
	if err != nil {
		return err
	}
	if err := writeTerminal[T](parent, last, value); err != nil {
		return err
	}
	return o.fire(path, EventWrite)
}

// writeTerminal writes value into the final path segment's field,
// declaring it (as a scalar, or as an array sized to fit an indexed
// write) if it does not exist yet, and growing an existing array if the
// index is out of its current range.
func writeTerminal[T valueview.Numeric](c *Container, seg Segment, value T) error {
	wantTag := tagForType[T]()

	if len(seg.Indices) == 0 {
		if c.indexOf(seg.Name) < 0 {
			if err := c.AddField(seg.Name, fieldtype.Pack(wantTag, false), valueview.SizeOf[T]()); err != nil {
				return err
			}
		}
		return rawWrite[T](c, seg.Name, value, true)
	}
	if len(seg.Indices) != 1 {
		return xerrors.Errorf("storage: nested indices on field %q are unsupported: %w", seg.Name, ErrArgumentError)
	}

	index := seg.Indices[0]
	elemSz := valueview.SizeOf[T]()
	idx := c.indexOf(seg.Name)
	switch {
	case idx < 0:
		if err := c.AddField(seg.Name, fieldtype.Pack(wantTag, true), (index+1)*elemSz); err != nil {
			return err
		}
	default:
		fh := c.fields[idx]
		fieldElemSz := fh.FieldType.ElemSize()
		if fieldElemSz == 0 {
			fieldElemSz = elemSz
		}
		count := int(fh.Length) / fieldElemSz
		if index >= count {
			if err := c.ResizeField(seg.Name, (index+1)*fieldElemSz); err != nil {
				return err
			}
		}
	}

	eb, tag, err := elementBytes(c, seg.Name, index)
	if err != nil {
		return err
	}
	if !valueview.Write[T](valueview.New(tag, eb), value) {
		return ErrIndexOutOfRange
	}
	return nil
}

// ReadPath reads the value at path.
func ReadPath[T valueview.Numeric](o *StorageObject, path string) (T, error) {
	var zero T
	segs, err := ParseDefault(path)
	if err != nil {
		return zero, err
	}
	parent, last, err := o.resolveParent(segs, false)
	if err != nil {
		return zero, err
	}
	return readTerminal[T](parent, last)
}

func readTerminal[T valueview.Numeric](c *Container, seg Segment) (T, error) {
	var zero T
	if len(seg.Indices) == 0 {
		return Read[T](c, seg.Name)
	}
	if len(seg.Indices) != 1 {
		return zero, xerrors.Errorf("storage: nested indices on field %q are unsupported: %w", seg.Name, ErrArgumentError)
	}
	eb, tag, err := elementBytes(c, seg.Name, seg.Indices[0])
	if err != nil {
		return zero, err
	}
	v, ok := valueview.Read[T](valueview.NewReadOnly(tag, eb))
	if !ok {
		return zero, ErrIndexOutOfRange
	}
	return v, nil
}

// TryReadPath is ReadPath without an error return.
func TryReadPath[T valueview.Numeric](o *StorageObject, path string) (T, bool) {
	v, err := ReadPath[T](o, path)
	return v, err == nil
}

// ReadStringPath reads a Char16 array field at path and decodes it as a
// Go string.
func ReadStringPath(o *StorageObject, path string) (string, error) {
	segs, err := ParseDefault(path)
	if err != nil {
		return "", err
	}
	parent, last, err := o.resolveParent(segs, false)
	if err != nil {
		return "", err
	}
	if len(last.Indices) != 0 {
		return "", xerrors.Errorf("storage: %q: indexed string field unsupported: %w", path, ErrArgumentError)
	}
	idx := parent.indexOf(last.Name)
	if idx < 0 {
		return "", xerrors.Errorf("storage: field %q: %w", last.Name, ErrKeyNotFound)
	}
	fh := parent.fields[idx]
	view := valueview.NewReadOnly(fh.FieldType.Tag(), parent.fieldBytes(idx))
	return view.String(), nil
}

// WriteStringPath encodes s as UTF-16 and writes it to a Char16 array field
// at path, resizing or declaring the field as needed.
func WriteStringPath(o *StorageObject, path, s string) error {
	segs, err := ParseDefault(path)
	if err != nil {
		return err
	}
	parent, last, err := o.resolveParent(segs, true)
	if err != nil {
		return err
	}
	if len(last.Indices) != 0 {
		return xerrors.Errorf("storage: %q: indexed string field unsupported: %w", path, ErrArgumentError)
	}
	units := utf16.Encode([]rune(s))
	payload := make([]byte, len(units)*2)
	for i, u := range units {
		binary.LittleEndian.PutUint16(payload[i*2:], u)
	}

	idx := parent.indexOf(last.Name)
	switch {
	case idx < 0:
		if err := parent.AddField(last.Name, fieldtype.Pack(fieldtype.Char16, true), len(payload)); err != nil {
			return err
		}
	case int(parent.fields[idx].Length) != len(payload):
		if err := parent.ResizeField(last.Name, len(payload)); err != nil {
			return err
		}
	}
	if err := rawWriteBytes(parent, last.Name, payload); err != nil {
		return err
	}
	return o.fire(path, EventWrite)
}

// WriteArrayPath writes values as an inline array field at path.
func WriteArrayPath[T valueview.Numeric](o *StorageObject, path string, values []T) error {
	segs, err := ParseDefault(path)
	if err != nil {
		return err
	}
	parent, last, err := o.resolveParent(segs, true)
	if err != nil {
		return err
	}
	if len(last.Indices) != 0 {
		return xerrors.Errorf("storage: %q: array path must not itself be indexed: %w", path, ErrArgumentError)
	}

	elem := valueview.SizeOf[T]()
	tag := tagForType[T]()
	payload := make([]byte, len(values)*elem)
	for i, v := range values {
		valueview.Write[T](valueview.New(tag, payload[i*elem:(i+1)*elem]), v)
	}

	ft := fieldtype.Pack(tag, true)
	idx := parent.indexOf(last.Name)
	switch {
	case idx < 0:
		if err := parent.AddField(last.Name, ft, len(payload)); err != nil {
			return err
		}
	case parent.fields[idx].FieldType != ft:
		if err := parent.RetypeField(last.Name, ft); err != nil {
			return err
		}
		if err := parent.ResizeField(last.Name, len(payload)); err != nil {
			return err
		}
	case int(parent.fields[idx].Length) != len(payload):
		if err := parent.ResizeField(last.Name, len(payload)); err != nil {
			return err
		}
	}
	if err := rawWriteBytes(parent, last.Name, payload); err != nil {
		return err
	}
	return o.fire(path, EventWrite)
}

// ReadArrayPath reads an inline array field at path as []T.
func ReadArrayPath[T valueview.Numeric](o *StorageObject, path string) ([]T, error) {
	segs, err := ParseDefault(path)
	if err != nil {
		return nil, err
	}
	parent, last, err := o.resolveParent(segs, false)
	if err != nil {
		return nil, err
	}
	if len(last.Indices) != 0 {
		return nil, xerrors.Errorf("storage: %q: array path must not itself be indexed: %w", path, ErrArgumentError)
	}
	return GetFieldData[T](parent, last.Name)
}

// Move relocates the field at srcPath to dstPath. Within the same parent
// object this is a pure rename; across parents the value is copied to the
// destination (creating or reshaping its field as needed) and the source
// field is removed. Fires a single Rename event, dispatched to srcPath's
// subscribers, with Path set to dstPath — unless srcPath equals dstPath, in
// which case the move is a no-op and no event fires (spec §4.8).
func (o *StorageObject) Move(srcPath, dstPath string) error {
	srcSegs, err := ParseDefault(srcPath)
	if err != nil {
		return err
	}
	dstSegs, err := ParseDefault(dstPath)
	if err != nil {
		return err
	}
	srcParent, srcLast, err := o.resolveParent(srcSegs, false)
	if err != nil {
		return err
	}
	if len(srcLast.Indices) != 0 {
		return xerrors.Errorf("storage: move: indexed source unsupported: %w", ErrArgumentError)
	}
	dstParent, dstLast, err := o.resolveParent(dstSegs, true)
	if err != nil {
		return err
	}
	if len(dstLast.Indices) != 0 {
		return xerrors.Errorf("storage: move: indexed destination unsupported: %w", ErrArgumentError)
	}

	if srcParent == dstParent {
		if err := srcParent.renameFieldQuiet(srcLast.Name, dstLast.Name); err != nil {
			return err
		}
		if srcPath == dstPath {
			return nil
		}
		return o.fireRename(srcPath, dstPath)
	}

	idx := srcParent.indexOf(srcLast.Name)
	if idx < 0 {
		return xerrors.Errorf("storage: field %q: %w", srcLast.Name, ErrKeyNotFound)
	}
	fh := srcParent.fields[idx]
	payload := append([]byte(nil), srcParent.fieldBytes(idx)...)

	dstIdx := dstParent.indexOf(dstLast.Name)
	switch {
	case dstIdx < 0:
		if err := dstParent.AddField(dstLast.Name, fh.FieldType, len(payload)); err != nil {
			return err
		}
	case dstParent.fields[dstIdx].FieldType != fh.FieldType:
		if err := dstParent.RetypeField(dstLast.Name, fh.FieldType); err != nil {
			return err
		}
		if err := dstParent.ResizeField(dstLast.Name, len(payload)); err != nil {
			return err
		}
	case int(dstParent.fields[dstIdx].Length) != len(payload):
		if err := dstParent.ResizeField(dstLast.Name, len(payload)); err != nil {
			return err
		}
	}
	if err := rawWriteBytes(dstParent, dstLast.Name, payload); err != nil {
		return err
	}
	if err := srcParent.removeFieldQuiet(srcLast.Name); err != nil {
		return err
	}
	return o.fireRename(srcPath, dstPath)
}

// TryMove is Move without an error return.
func (o *StorageObject) TryMove(srcPath, dstPath string) bool {
	return o.Move(srcPath, dstPath) == nil
}

// Delete removes the field at path, firing a single Delete event with Path
// set to path.
func (o *StorageObject) Delete(path string) error {
	segs, err := ParseDefault(path)
	if err != nil {
		return err
	}
	parent, last, err := o.resolveParent(segs, false)
	if err != nil {
		return err
	}
	if len(last.Indices) != 0 {
		return xerrors.Errorf("storage: delete: indexed field unsupported: %w", ErrArgumentError)
	}
	if err := parent.removeFieldQuiet(last.Name); err != nil {
		return err
	}
	return o.fire(path, EventDelete)
}

// GetObjectByPath resolves path to a child object handle, without creating
// anything along the way.
func (o *StorageObject) GetObjectByPath(path string) (*StorageObject, error) {
	segs, err := ParseDefault(path)
	if err != nil {
		return nil, err
	}
	parent, last, err := o.resolveParent(segs, false)
	if err != nil {
		return nil, err
	}
	return o.objectAt(parent, last, false)
}

// GetObject resolves a single field name (no path traversal) to a child
// object handle.
func (o *StorageObject) GetObject(fieldName string) (*StorageObject, error) {
	c, err := o.container()
	if err != nil {
		return nil, err
	}
	return o.objectAt(c, Segment{Name: fieldName}, false)
}

func (o *StorageObject) objectAt(c *Container, seg Segment, create bool) (*StorageObject, error) {
	child, err := o.step(c, seg, create)
	if err != nil {
		return nil, err
	}
	return &StorageObject{reg: o.reg, id: child.ID()}, nil
}

// GetArray resolves fieldName, which must be a Ref[] field, to a
// StorageArray handle.
func (o *StorageObject) GetArray(fieldName string) (*StorageArray, error) {
	c, err := o.container()
	if err != nil {
		return nil, err
	}
	idx := c.indexOf(fieldName)
	if idx < 0 {
		return nil, xerrors.Errorf("storage: field %q: %w", fieldName, ErrKeyNotFound)
	}
	tag, isArray := fieldtype.Unpack(c.fields[idx].FieldType)
	if tag != fieldtype.Ref || !isArray {
		return nil, xerrors.Errorf("storage: field %q is not a reference array: %w", fieldName, ErrArgumentError)
	}
	return &StorageArray{reg: o.reg, id: o.id, field: fieldName}, nil
}

// Clone deep-copies o and everything reachable from it through Ref fields
// into fresh ids on the same registry, rewriting every internal Ref to
// point at the corresponding clone. Returns a handle to the cloned root.
func (o *StorageObject) Clone() (*StorageObject, error) {
	rewritten := make(map[uint64]uint64)
	newID, err := o.cloneInto(o.id, rewritten)
	if err != nil {
		return nil, err
	}
	for _, id := range maps.Keys(rewritten) {
		clone, ok := o.reg.GetContainer(rewritten[id])
		if !ok {
			continue
		}
		o.rewriteRefs(clone, rewritten)
	}
	return &StorageObject{reg: o.reg, id: newID}, nil
}

func (o *StorageObject) cloneInto(id uint64, rewritten map[uint64]uint64) (uint64, error) {
	if newID, ok := rewritten[id]; ok {
		return newID, nil
	}
	src, ok := o.reg.GetContainer(id)
	if !ok {
		return 0, ErrNotFound
	}
	clone, err := src.Clone()
	if err != nil {
		return 0, err
	}
	newID, err := o.reg.Register(clone)
	if err != nil {
		return 0, err
	}
	rewritten[id] = newID
	for _, childID := range src.outgoingRefs() {
		if _, err := o.cloneInto(childID, rewritten); err != nil {
			return 0, err
		}
	}
	return newID, nil
}

func (o *StorageObject) rewriteRefs(c *Container, rewritten map[uint64]uint64) {
	for i, fh := range c.fields {
		tag, isArray := fieldtype.Unpack(fh.FieldType)
		if tag != fieldtype.Ref {
			continue
		}
		data := c.fieldBytes(i)
		if isArray {
			for off := 0; off+8 <= len(data); off += 8 {
				old := binary.LittleEndian.Uint64(data[off:])
				if newID, ok := rewritten[old]; ok {
					binary.LittleEndian.PutUint64(data[off:], newID)
				}
			}
		} else if len(data) == 8 {
			old := binary.LittleEndian.Uint64(data)
			if newID, ok := rewritten[old]; ok {
				binary.LittleEndian.PutUint64(data, newID)
			}
		}
	}
}

// StorageArray is a handle to one Ref[] field on a parent object.
type StorageArray struct {
	reg   *Registry
	id    uint64
	field string
}

func (a *StorageArray) container() (*Container, error) {
	c, ok := a.reg.GetContainer(a.id)
	if !ok {
		return nil, xerrors.Errorf("storage: object %d: %w", a.id, ErrNotFound)
	}
	return c, nil
}

// Len reports the array's element count.
func (a *StorageArray) Len() (int, error) {
	c, err := a.container()
	if err != nil {
		return 0, err
	}
	return c.refArrayLen(a.field)
}

// GetObject returns the object referenced at index, or ErrNotFound if the
// slot is empty.
func (a *StorageArray) GetObject(index int) (*StorageObject, error) {
	c, err := a.container()
	if err != nil {
		return nil, err
	}
	id, err := c.readRefArrayElem(a.field, index)
	if err != nil {
		return nil, err
	}
	if id == EmptyID {
		return nil, xerrors.Errorf("storage: %s[%d]: %w", a.field, index, ErrNotFound)
	}
	return &StorageObject{reg: a.reg, id: id}, nil
}

// SetObject stores obj's id at index, growing the array if needed.
func (a *StorageArray) SetObject(index int, obj *StorageObject) error {
	c, err := a.container()
	if err != nil {
		return err
	}
	n, err := c.refArrayLen(a.field)
	if err != nil {
		return err
	}
	if index >= n {
		if err := c.ResizeField(a.field, (index+1)*8); err != nil {
			return err
		}
	}
	if err := c.writeRefArrayElem(a.field, index, obj.id); err != nil {
		return err
	}
	c.notifyWrite(a.field)
	return nil
}
