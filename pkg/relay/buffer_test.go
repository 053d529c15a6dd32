package relay

import (
	"fmt"
	"testing"
)

func textMsg(id string, ts int64, body string) InboundMessage {
	return InboundMessage{
		ID:        id,
		ChatID:    "15551234567@s.whatsapp.net",
		SenderID:  "15551234567@s.whatsapp.net",
		BodyText:  body,
		Kind:      KindText,
		Timestamp: ts,
	}
}

func TestBufferDefaultCapacity(t *testing.T) {
	t.Parallel()

	if got := NewBuffer(0).Cap(); got != DefaultCapacity {
		t.Errorf("Cap: got %d, want %d", got, DefaultCapacity)
	}
	if got := NewBuffer(-5).Cap(); got != DefaultCapacity {
		t.Errorf("Cap with negative capacity: got %d, want %d", got, DefaultCapacity)
	}
}

func TestBufferNeverExceedsCapacity(t *testing.T) {
	t.Parallel()

	b := NewBuffer(DefaultCapacity)
	for i := 0; i < 500; i++ {
		b.Add(textMsg(fmt.Sprintf("m%d", i), int64(i+1), "x"))
		if b.Len() > DefaultCapacity {
			t.Fatalf("after %d adds: len %d exceeds capacity %d", i+1, b.Len(), DefaultCapacity)
		}
	}
	if b.Len() != DefaultCapacity {
		t.Errorf("final len: got %d, want %d", b.Len(), DefaultCapacity)
	}
}

func TestBufferRetainsMostRecent(t *testing.T) {
	t.Parallel()

	b := NewBuffer(DefaultCapacity)
	for i := 0; i < 250; i++ {
		b.Add(textMsg(fmt.Sprintf("m%d", i), int64(i+1), "x"))
	}

	out, latest := b.Since(0)
	if len(out) != DefaultCapacity {
		t.Fatalf("len: got %d, want %d", len(out), DefaultCapacity)
	}
	if out[0].ID != "m50" {
		t.Errorf("oldest retained: got %s, want m50", out[0].ID)
	}
	if out[len(out)-1].ID != "m249" {
		t.Errorf("newest retained: got %s, want m249", out[len(out)-1].ID)
	}
	if latest != 250 {
		t.Errorf("latest: got %d, want 250", latest)
	}
}

func TestBufferWrapAroundOrder(t *testing.T) {
	t.Parallel()

	b := NewBuffer(3)
	for i := 0; i < 5; i++ {
		b.Add(textMsg(fmt.Sprintf("m%d", i), int64(i+1), "x"))
	}

	out, _ := b.Since(0)
	want := []string{"m2", "m3", "m4"}
	if len(out) != len(want) {
		t.Fatalf("len: got %d, want %d", len(out), len(want))
	}
	for i, id := range want {
		if out[i].ID != id {
			t.Errorf("entry %d: got %s, want %s", i, out[i].ID, id)
		}
	}
}

func TestBufferSinceStrictlyGreater(t *testing.T) {
	t.Parallel()

	b := NewBuffer(DefaultCapacity)
	b.Add(textMsg("A1", 1000, "hello"))

	out, latest := b.Since(999)
	if len(out) != 1 {
		t.Fatalf("since 999: got %d messages, want 1", len(out))
	}
	if out[0].ID != "A1" || out[0].BodyText != "hello" || out[0].Kind != KindText {
		t.Errorf("since 999: got %+v, want id A1, body hello, kind text", out[0])
	}
	if latest != 1000 {
		t.Errorf("since 999 latest: got %d, want 1000", latest)
	}

	out, latest = b.Since(1000)
	if len(out) != 0 {
		t.Errorf("since 1000: got %d messages, want 0", len(out))
	}
	if latest != 1000 {
		t.Errorf("since 1000 latest: got %d, want 1000 unchanged", latest)
	}
}

func TestBufferSinceMonotonic(t *testing.T) {
	t.Parallel()

	b := NewBuffer(DefaultCapacity)
	for i := 0; i < 50; i++ {
		b.Add(textMsg(fmt.Sprintf("m%d", i), int64(i*10), "x"))
	}

	lower, _ := b.Since(100)
	higher, _ := b.Since(300)

	seen := make(map[string]bool, len(lower))
	for _, m := range lower {
		seen[m.ID] = true
	}
	for _, m := range higher {
		if !seen[m.ID] {
			t.Errorf("message %s returned for since=300 but not since=100", m.ID)
		}
	}
	if len(higher) >= len(lower) {
		t.Errorf("result sizes: since=300 has %d, since=100 has %d, want strict shrink here", len(higher), len(lower))
	}
}

func TestBufferKeepsDuplicates(t *testing.T) {
	t.Parallel()

	b := NewBuffer(DefaultCapacity)
	m := textMsg("A1", 1000, "hello")
	b.Add(m)
	b.Add(m)

	out, _ := b.Since(0)
	if len(out) != 2 {
		t.Fatalf("len: got %d, want 2 (no dedup)", len(out))
	}
	if out[0].Kind != out[1].Kind || out[0].BodyText != out[1].BodyText {
		t.Errorf("duplicate entries diverged: %+v vs %+v", out[0], out[1])
	}
}

func TestBufferLatestIsLastReturned(t *testing.T) {
	t.Parallel()

	// Timestamps can arrive out of order; the cursor tracks the last
	// returned entry, not the maximum.
	b := NewBuffer(DefaultCapacity)
	b.Add(textMsg("m0", 500, "x"))
	b.Add(textMsg("m1", 300, "x"))

	out, latest := b.Since(0)
	if len(out) != 2 {
		t.Fatalf("len: got %d, want 2", len(out))
	}
	if latest != 300 {
		t.Errorf("latest: got %d, want 300", latest)
	}
}

func TestBufferEmpty(t *testing.T) {
	t.Parallel()

	b := NewBuffer(DefaultCapacity)
	out, latest := b.Since(42)
	if len(out) != 0 {
		t.Errorf("len: got %d, want 0", len(out))
	}
	if latest != 42 {
		t.Errorf("latest: got %d, want 42 unchanged", latest)
	}
	if b.Len() != 0 {
		t.Errorf("Len: got %d, want 0", b.Len())
	}
}
