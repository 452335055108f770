package pool

import "testing"

func TestGetReturnsZeroedBufferOfSize(t *testing.T) {
	p := New(16, 0)
	buf := p.Get()
	if len(buf) != 16 {
		t.Fatalf("len = %d, want 16", len(buf))
	}
	for i, b := range buf {
		if b != 0 {
			t.Fatalf("buf[%d] = %d, want 0", i, b)
		}
	}
}

func TestPutGetReusesBuffer(t *testing.T) {
	p := New(8, 0)
	buf := p.Get()
	for i := range buf {
		buf[i] = 0xFF
	}
	p.Put(buf)
	if got := p.RetainedCount(); got != 1 {
		t.Fatalf("RetainedCount = %d, want 1", got)
	}
	reused := p.Get()
	if len(reused) != 8 {
		t.Fatalf("len = %d, want 8", len(reused))
	}
	for i, b := range reused {
		if b != 0 {
			t.Fatalf("reused[%d] = %d, want 0 (Get must clear buffers)", i, b)
		}
	}
	if got := p.RetainedCount(); got != 0 {
		t.Fatalf("RetainedCount after Get = %d, want 0", got)
	}
}

func TestPutWrongSizeIsDropped(t *testing.T) {
	p := New(8, 0)
	p.Put(make([]byte, 4))
	if got := p.RetainedCount(); got != 0 {
		t.Fatalf("RetainedCount = %d, want 0", got)
	}
}

func TestPutRespectsLimit(t *testing.T) {
	p := New(4, 1)
	p.Put(make([]byte, 4))
	p.Put(make([]byte, 4))
	if got := p.RetainedCount(); got != 1 {
		t.Fatalf("RetainedCount = %d, want 1 (limit should cap retention)", got)
	}
}
