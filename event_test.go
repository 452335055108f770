package store

import "testing"

func TestContainerScopedSubscriberSeesEveryField(t *testing.T) {
	c := buildPlayerContainer(t)
	var events []StorageEventArgs
	sub := c.Subscribe(func(a StorageEventArgs) { events = append(events, a) })
	defer sub.Dispose()

	if err := Write[int32](c, "hp", 1, false); err != nil {
		t.Fatal(err)
	}
	if err := c.WriteBytes("name", make([]byte, 2)); err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
}

func TestSubscriptionDisposeStopsNotifications(t *testing.T) {
	c := buildPlayerContainer(t)
	var calls int
	sub := c.Subscribe(func(StorageEventArgs) { calls++ })
	if err := Write[int32](c, "hp", 1, false); err != nil {
		t.Fatal(err)
	}
	sub.Dispose()
	if err := Write[int32](c, "hp", 2, false); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestRenameDoesNotMigrateFieldScopedSubscribers(t *testing.T) {
	c := buildPlayerContainer(t)
	var calls int
	sub := c.SubscribeField("hp", func(StorageEventArgs) { calls++ })
	defer sub.Dispose()

	if err := c.RenameField("hp", "health"); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Fatalf("calls after rename = %d, want 1 (the rename notification itself)", calls)
	}
	if err := Write[int32](c, "health", 5, false); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Fatalf("calls after post-rename write = %d, want still 1 (old-name subscriber not migrated)", calls)
	}
}

func TestDisposeIsIdempotent(t *testing.T) {
	var called int
	sub := &Subscription{unsub: func() { called++ }}
	sub.Dispose()
	sub.Dispose()
	if called != 1 {
		t.Fatalf("unsub called %d times, want 1", called)
	}
}
