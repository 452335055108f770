package store

import "testing"

func TestWritePathAutoCreatesIntermediateObjects(t *testing.T) {
	s := NewStorage()
	root := s.Root()
	if err := WritePath[int32](root, "a.b.c", 42); err != nil {
		t.Fatal(err)
	}
	got, err := ReadPath[int32](root, "a.b.c")
	if err != nil {
		t.Fatal(err)
	}
	if got != 42 {
		t.Errorf("a.b.c = %d, want 42", got)
	}
	if !root.HasField("a") {
		t.Error("expected intermediate field 'a' to have been created")
	}
}

func TestWritePathFiresExactlyOneEventWithFullPath(t *testing.T) {
	s := NewStorage()
	root := s.Root()

	var events []StorageEventArgs
	sub, err := root.Subscribe(func(a StorageEventArgs) { events = append(events, a) })
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Dispose()

	if err := WritePath[int32](root, "a.b.c", 1); err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want exactly 1: %+v", len(events), events)
	}
	if events[0].Event != EventWrite || events[0].Path != "a.b.c" {
		t.Errorf("event = %+v, want Write/a.b.c", events[0])
	}
}

func TestWritePathSingleSegmentMatchesDirectWrite(t *testing.T) {
	s := NewStorage()
	root := s.Root()
	var count int
	sub, err := root.Subscribe(func(StorageEventArgs) { count++ })
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Dispose()

	if err := WritePath[int32](root, "hp", 10); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}
}

func TestReadStringAndArrayPath(t *testing.T) {
	s := NewStorage()
	root := s.Root()
	if err := WriteStringPath(root, "profile.name", "nova"); err != nil {
		t.Fatal(err)
	}
	got, err := ReadStringPath(root, "profile.name")
	if err != nil {
		t.Fatal(err)
	}
	if got != "nova" {
		t.Errorf("name = %q, want nova", got)
	}

	if err := WriteArrayPath[int16](root, "inventory.slots", []int16{1, 2, 3}); err != nil {
		t.Fatal(err)
	}
	arr, err := ReadArrayPath[int16](root, "inventory.slots")
	if err != nil {
		t.Fatal(err)
	}
	if len(arr) != 3 || arr[0] != 1 || arr[2] != 3 {
		t.Errorf("got %v, want [1 2 3]", arr)
	}
}

func TestArrayPathIndexAutoCreatesObjects(t *testing.T) {
	s := NewStorage()
	root := s.Root()
	if err := WritePath[int32](root, "party[2].hp", 7); err != nil {
		t.Fatal(err)
	}
	arr, err := root.GetArray("party")
	if err != nil {
		t.Fatal(err)
	}
	n, err := arr.Len()
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Fatalf("Len() = %d, want 3", n)
	}
	obj, err := arr.GetObject(2)
	if err != nil {
		t.Fatal(err)
	}
	got, err := ReadPath[int32](obj, "hp")
	if err != nil {
		t.Fatal(err)
	}
	if got != 7 {
		t.Errorf("hp = %d, want 7", got)
	}
}

func TestMoveWithinSameParentRenames(t *testing.T) {
	s := NewStorage()
	root := s.Root()
	if err := WritePath[int32](root, "hp", 5); err != nil {
		t.Fatal(err)
	}
	if err := root.Move("hp", "health"); err != nil {
		t.Fatal(err)
	}
	if root.HasField("hp") {
		t.Error("hp should no longer exist")
	}
	got, err := ReadPath[int32](root, "health")
	if err != nil {
		t.Fatal(err)
	}
	if got != 5 {
		t.Errorf("health = %d, want 5", got)
	}
}

func TestMoveFiresRenameToSrcSubscriberWithDstPath(t *testing.T) {
	s := NewStorage()
	root := s.Root()
	if err := WritePath[int32](root, "src", 5); err != nil {
		t.Fatal(err)
	}

	var events []StorageEventArgs
	sub, err := root.SubscribeField("src", func(a StorageEventArgs) { events = append(events, a) })
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Dispose()

	if err := root.Move("src", "dst"); err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1: %+v", len(events), events)
	}
	if events[0].Event != EventRename || events[0].Path != "dst" {
		t.Errorf("event = %+v, want Rename/dst", events[0])
	}

	if err := WritePath[int32](root, "dst", 2); err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 {
		t.Errorf("write to dst after move should not notify the old src subscriber, got %+v", events)
	}
}

func TestMoveSameSourceAndDestinationIsNoopWithoutEvent(t *testing.T) {
	s := NewStorage()
	root := s.Root()
	if err := WritePath[int32](root, "hp", 5); err != nil {
		t.Fatal(err)
	}

	fired := false
	sub, err := root.Subscribe(func(StorageEventArgs) { fired = true })
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Dispose()

	if err := root.Move("hp", "hp"); err != nil {
		t.Fatal(err)
	}
	if fired {
		t.Error("same-name move must not fire an event")
	}
	got, err := ReadPath[int32](root, "hp")
	if err != nil {
		t.Fatal(err)
	}
	if got != 5 {
		t.Errorf("hp = %d, want 5", got)
	}
}

func TestDeleteFiresDeleteEvent(t *testing.T) {
	s := NewStorage()
	root := s.Root()
	if err := WritePath[int32](root, "hp", 5); err != nil {
		t.Fatal(err)
	}
	var got StorageEventArgs
	sub, err := root.Subscribe(func(a StorageEventArgs) { got = a })
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Dispose()

	if err := root.Delete("hp"); err != nil {
		t.Fatal(err)
	}
	if got.Event != EventDelete || got.Path != "hp" {
		t.Errorf("event = %+v, want Delete/hp", got)
	}
	if root.HasField("hp") {
		t.Error("hp should have been removed")
	}
}

func TestCloneRewritesInternalRefs(t *testing.T) {
	s := NewStorage()
	root := s.Root()
	if err := WritePath[int32](root, "child.hp", 9); err != nil {
		t.Fatal(err)
	}

	clone, err := root.Clone()
	if err != nil {
		t.Fatal(err)
	}
	if clone.ID() == root.ID() {
		t.Fatal("clone must have a distinct id from the original")
	}
	childClone, err := clone.GetObject("child")
	if err != nil {
		t.Fatal(err)
	}
	origChild, err := root.GetObject("child")
	if err != nil {
		t.Fatal(err)
	}
	if childClone.ID() == origChild.ID() {
		t.Fatal("cloned child must have a distinct id from the original child")
	}

	if err := WritePath[int32](clone, "child.hp", 1); err != nil {
		t.Fatal(err)
	}
	got, err := ReadPath[int32](root, "child.hp")
	if err != nil {
		t.Fatal(err)
	}
	if got != 9 {
		t.Errorf("original child.hp changed to %d after mutating the clone", got)
	}
}
