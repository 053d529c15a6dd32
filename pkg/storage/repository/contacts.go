package repository

import (
	"context"
	"time"
)

// Contact is one chat partner the bridge has seen traffic from.
type Contact struct {
	JID          string    `json:"jid"`
	DisplayName  string    `json:"display_name,omitempty"`
	IsGroup      bool      `json:"is_group"`
	MessageCount int       `json:"message_count"`
	LastKind     string    `json:"last_kind,omitempty"`
	FirstSeen    time.Time `json:"first_seen"`
	LastSeen     time.Time `json:"last_seen"`
}

// ContactsRepository defines the interface for contact directory persistence.
type ContactsRepository interface {
	// Get retrieves a contact by JID.
	// Returns nil if the contact is not known.
	Get(ctx context.Context, jid string) (*Contact, error)

	// Set creates or updates a contact entry.
	// Handles timestamp management (FirstSeen is kept once set).
	Set(ctx context.Context, c Contact) error

	// Delete removes a contact entry.
	// Returns an error if the contact is not known.
	Delete(ctx context.Context, jid string) error

	// List returns all contacts, most recently seen first.
	List(ctx context.Context) ([]Contact, error)

	// Count returns the total number of known contacts.
	Count(ctx context.Context) (int, error)
}
