package contacts

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// Contact is one chat partner seen by the bridge. Group chats get an
// entry of their own, keyed by the group JID.
type Contact struct {
	JID          string    `json:"jid"`
	DisplayName  string    `json:"display_name,omitempty"`
	IsGroup      bool      `json:"is_group"`
	MessageCount int       `json:"message_count"`
	LastKind     string    `json:"last_kind,omitempty"`
	FirstSeen    time.Time `json:"first_seen"`
	LastSeen     time.Time `json:"last_seen"`
}

type Store struct {
	mu       sync.RWMutex
	contacts map[string]*Contact
	filePath string
}

func NewStore(workspace string) *Store {
	dir := filepath.Join(workspace, "contacts")
	os.MkdirAll(dir, 0755)

	s := &Store{
		contacts: make(map[string]*Contact),
		filePath: filepath.Join(dir, "directory.json"),
	}
	s.load()
	return s
}

func (s *Store) Get(jid string) *Contact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.contacts[jid]
}

func (s *Store) Set(c Contact) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.contacts[c.JID]
	if ok {
		if c.DisplayName != "" {
			existing.DisplayName = c.DisplayName
		}
		existing.IsGroup = c.IsGroup
		existing.MessageCount = c.MessageCount
		existing.LastKind = c.LastKind
		if c.LastSeen.After(existing.LastSeen) {
			existing.LastSeen = c.LastSeen
		}
	} else {
		if c.FirstSeen.IsZero() {
			c.FirstSeen = time.Now()
		}
		if c.LastSeen.IsZero() {
			c.LastSeen = c.FirstSeen
		}
		s.contacts[c.JID] = &c
	}
	return s.saveLocked()
}

func (s *Store) Delete(jid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.contacts[jid]; !ok {
		return fmt.Errorf("contact not found: %s", jid)
	}
	delete(s.contacts, jid)
	return s.saveLocked()
}

// List returns all contacts ordered by last seen, newest first.
func (s *Store) List() []Contact {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Contact, 0, len(s.contacts))
	for _, c := range s.contacts {
		result = append(result, *c)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].LastSeen.After(result[j].LastSeen)
	})
	return result
}

// Count returns the number of known contacts.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.contacts)
}

func (s *Store) load() {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return
	}

	var items []Contact
	if err := json.Unmarshal(data, &items); err != nil {
		return
	}

	for i := range items {
		s.contacts[items[i].JID] = &items[i]
	}
}

func (s *Store) saveLocked() error {
	items := make([]Contact, 0, len(s.contacts))
	for _, c := range s.contacts {
		items = append(items, *c)
	}

	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(s.filePath, data, 0644)
}
