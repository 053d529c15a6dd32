package contacts

import (
	"testing"
	"time"
)

func TestStoreSetAndGet(t *testing.T) {
	t.Parallel()

	s := NewStore(t.TempDir())

	seen := time.Now()
	err := s.Set(Contact{
		JID:          "15551234567@s.whatsapp.net",
		DisplayName:  "Ada",
		MessageCount: 1,
		LastKind:     "text",
		FirstSeen:    seen,
		LastSeen:     seen,
	})
	if err != nil {
		t.Fatalf("Set: %v", err)
	}

	got := s.Get("15551234567@s.whatsapp.net")
	if got == nil {
		t.Fatal("Get returned nil for stored contact")
	}
	if got.DisplayName != "Ada" {
		t.Errorf("DisplayName = %q, want %q", got.DisplayName, "Ada")
	}
	if got.MessageCount != 1 {
		t.Errorf("MessageCount = %d, want 1", got.MessageCount)
	}

	if s.Get("unknown@s.whatsapp.net") != nil {
		t.Error("Get for unknown JID should return nil")
	}
}

func TestStoreUpdateKeepsFirstSeen(t *testing.T) {
	t.Parallel()

	s := NewStore(t.TempDir())

	first := time.Now().Add(-time.Hour)
	if err := s.Set(Contact{JID: "a@s.whatsapp.net", FirstSeen: first, LastSeen: first, MessageCount: 1}); err != nil {
		t.Fatalf("Set: %v", err)
	}

	later := time.Now()
	if err := s.Set(Contact{JID: "a@s.whatsapp.net", FirstSeen: later, LastSeen: later, MessageCount: 2}); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got := s.Get("a@s.whatsapp.net")
	if !got.FirstSeen.Equal(first) {
		t.Errorf("FirstSeen = %v, want %v", got.FirstSeen, first)
	}
	if !got.LastSeen.Equal(later) {
		t.Errorf("LastSeen = %v, want %v", got.LastSeen, later)
	}
	if got.MessageCount != 2 {
		t.Errorf("MessageCount = %d, want 2", got.MessageCount)
	}
}

func TestStoreUpdateKeepsDisplayName(t *testing.T) {
	t.Parallel()

	s := NewStore(t.TempDir())

	if err := s.Set(Contact{JID: "a@s.whatsapp.net", DisplayName: "Ada", MessageCount: 1}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set(Contact{JID: "a@s.whatsapp.net", DisplayName: "", MessageCount: 2}); err != nil {
		t.Fatalf("Set: %v", err)
	}

	if got := s.Get("a@s.whatsapp.net"); got.DisplayName != "Ada" {
		t.Errorf("DisplayName = %q, want %q after update without name", got.DisplayName, "Ada")
	}
}

func TestStoreListNewestFirst(t *testing.T) {
	t.Parallel()

	s := NewStore(t.TempDir())

	base := time.Now()
	for i, jid := range []string{"old@s.whatsapp.net", "mid@s.whatsapp.net", "new@s.whatsapp.net"} {
		seen := base.Add(time.Duration(i) * time.Minute)
		if err := s.Set(Contact{JID: jid, FirstSeen: seen, LastSeen: seen, MessageCount: 1}); err != nil {
			t.Fatalf("Set %s: %v", jid, err)
		}
	}

	list := s.List()
	if len(list) != 3 {
		t.Fatalf("List returned %d contacts, want 3", len(list))
	}
	if list[0].JID != "new@s.whatsapp.net" {
		t.Errorf("List[0].JID = %q, want newest first", list[0].JID)
	}
	if list[2].JID != "old@s.whatsapp.net" {
		t.Errorf("List[2].JID = %q, want oldest last", list[2].JID)
	}
}

func TestStoreDelete(t *testing.T) {
	t.Parallel()

	s := NewStore(t.TempDir())

	if err := s.Set(Contact{JID: "a@s.whatsapp.net", MessageCount: 1}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Delete("a@s.whatsapp.net"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if s.Get("a@s.whatsapp.net") != nil {
		t.Error("contact still present after Delete")
	}
	if err := s.Delete("a@s.whatsapp.net"); err == nil {
		t.Error("Delete of unknown contact should error")
	}
}

func TestStoreReload(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	s := NewStore(dir)
	if err := s.Set(Contact{JID: "a@s.whatsapp.net", DisplayName: "Ada", MessageCount: 3}); err != nil {
		t.Fatalf("Set: %v", err)
	}

	reopened := NewStore(dir)
	got := reopened.Get("a@s.whatsapp.net")
	if got == nil {
		t.Fatal("contact lost after reload")
	}
	if got.DisplayName != "Ada" || got.MessageCount != 3 {
		t.Errorf("reloaded contact = %q/%d, want Ada/3", got.DisplayName, got.MessageCount)
	}
	if reopened.Count() != 1 {
		t.Errorf("Count = %d, want 1", reopened.Count())
	}
}
