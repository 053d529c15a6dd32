package file

import (
	"context"

	"github.com/vkick/wabridge/pkg/contacts"
	"github.com/vkick/wabridge/pkg/storage/repository"
)

type contactsRepository struct {
	store *contacts.Store
}

// NewContactsRepository creates a new file-based contacts repository adapter.
func NewContactsRepository(store *contacts.Store) repository.ContactsRepository {
	return &contactsRepository{store: store}
}

func (r *contactsRepository) Get(ctx context.Context, jid string) (*repository.Contact, error) {
	c := r.store.Get(jid)
	if c == nil {
		return nil, nil // Return nil instead of error when not found
	}
	return convertToRepoContact(c), nil
}

func (r *contactsRepository) Set(ctx context.Context, c repository.Contact) error {
	return r.store.Set(*convertToStoreContact(&c))
}

func (r *contactsRepository) Delete(ctx context.Context, jid string) error {
	return r.store.Delete(jid)
}

func (r *contactsRepository) List(ctx context.Context) ([]repository.Contact, error) {
	storeContacts := r.store.List()

	repoContacts := make([]repository.Contact, len(storeContacts))
	for i, c := range storeContacts {
		repoContacts[i] = *convertToRepoContact(&c)
	}

	return repoContacts, nil
}

func (r *contactsRepository) Count(ctx context.Context) (int, error) {
	return r.store.Count(), nil
}

// Helper functions to convert between contact types

func convertToRepoContact(c *contacts.Contact) *repository.Contact {
	if c == nil {
		return nil
	}

	return &repository.Contact{
		JID:          c.JID,
		DisplayName:  c.DisplayName,
		IsGroup:      c.IsGroup,
		MessageCount: c.MessageCount,
		LastKind:     c.LastKind,
		FirstSeen:    c.FirstSeen,
		LastSeen:     c.LastSeen,
	}
}

func convertToStoreContact(c *repository.Contact) *contacts.Contact {
	if c == nil {
		return nil
	}

	return &contacts.Contact{
		JID:          c.JID,
		DisplayName:  c.DisplayName,
		IsGroup:      c.IsGroup,
		MessageCount: c.MessageCount,
		LastKind:     c.LastKind,
		FirstSeen:    c.FirstSeen,
		LastSeen:     c.LastSeen,
	}
}
