package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/vkick/wabridge/pkg/storage/repository"
)

// dbExecutor is an interface that works with both *sql.DB and *sql.Tx
type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type contactsRepository struct {
	db dbExecutor
}

// NewContactsRepository creates a new PostgreSQL contacts repository.
func NewContactsRepository(db dbExecutor) repository.ContactsRepository {
	return &contactsRepository{db: db}
}

func (r *contactsRepository) Get(ctx context.Context, jid string) (*repository.Contact, error) {
	query := `SELECT jid, display_name, is_group, message_count, last_kind, first_seen, last_seen
	          FROM contacts
	          WHERE jid = $1`

	var c repository.Contact
	err := r.db.QueryRowContext(ctx, query, jid).Scan(
		&c.JID,
		&c.DisplayName,
		&c.IsGroup,
		&c.MessageCount,
		&c.LastKind,
		&c.FirstSeen,
		&c.LastSeen,
	)

	if err == sql.ErrNoRows {
		return nil, nil // Return nil instead of error when not found
	}
	if err != nil {
		return nil, err
	}

	return &c, nil
}

func (r *contactsRepository) Set(ctx context.Context, c repository.Contact) error {
	now := time.Now()

	if c.FirstSeen.IsZero() {
		c.FirstSeen = now
	}
	if c.LastSeen.IsZero() {
		c.LastSeen = c.FirstSeen
	}

	query := `INSERT INTO contacts (jid, display_name, is_group, message_count, last_kind, first_seen, last_seen)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)
	          ON CONFLICT (jid) DO UPDATE SET
	              display_name = CASE WHEN EXCLUDED.display_name <> '' THEN EXCLUDED.display_name ELSE contacts.display_name END,
	              is_group = EXCLUDED.is_group,
	              message_count = EXCLUDED.message_count,
	              last_kind = EXCLUDED.last_kind,
	              last_seen = GREATEST(contacts.last_seen, EXCLUDED.last_seen)`

	_, err := r.db.ExecContext(ctx, query,
		c.JID,
		c.DisplayName,
		c.IsGroup,
		c.MessageCount,
		c.LastKind,
		c.FirstSeen,
		c.LastSeen,
	)

	return err
}

func (r *contactsRepository) Delete(ctx context.Context, jid string) error {
	query := `DELETE FROM contacts WHERE jid = $1`

	result, err := r.db.ExecContext(ctx, query, jid)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return sql.ErrNoRows
	}

	return nil
}

func (r *contactsRepository) List(ctx context.Context) ([]repository.Contact, error) {
	query := `SELECT jid, display_name, is_group, message_count, last_kind, first_seen, last_seen
	          FROM contacts
	          ORDER BY last_seen DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []repository.Contact
	for rows.Next() {
		var c repository.Contact
		if err := rows.Scan(&c.JID, &c.DisplayName, &c.IsGroup, &c.MessageCount, &c.LastKind, &c.FirstSeen, &c.LastSeen); err != nil {
			return nil, err
		}
		result = append(result, c)
	}

	return result, rows.Err()
}

func (r *contactsRepository) Count(ctx context.Context) (int, error) {
	query := `SELECT COUNT(*) FROM contacts`

	var count int
	err := r.db.QueryRowContext(ctx, query).Scan(&count)
	return count, err
}
