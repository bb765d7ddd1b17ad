package entry

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/enzyme/peek/internal/extract"
)

var ErrNotFound = errors.New("entry not found")

// Entry is a stored piece of host content.
type Entry struct {
	ID        string          `json:"id"`
	Content   json.RawMessage `json:"content"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Value decodes the content for URL extraction.
func (e *Entry) Value() (extract.Value, error) {
	return extract.Parse(e.Content)
}

// Repository handles entry persistence.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new Repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Put inserts or replaces an entry, keeping the original creation time.
func (r *Repository) Put(ctx context.Context, e *Entry) error {
	if !json.Valid(e.Content) {
		return fmt.Errorf("entry %s: content is not valid JSON", e.ID)
	}

	now := time.Now().UTC()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO entries (id, content, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET content = excluded.content, updated_at = excluded.updated_at
	`, e.ID, string(e.Content), e.CreatedAt.Format(time.RFC3339), e.UpdatedAt.Format(time.RFC3339))
	return err
}

// Get returns the entry with id, or ErrNotFound.
func (r *Repository) Get(ctx context.Context, id string) (*Entry, error) {
	var e Entry
	var content, createdAt, updatedAt string

	err := r.db.QueryRowContext(ctx, `
		SELECT id, content, created_at, updated_at FROM entries WHERE id = ?
	`, id).Scan(&e.ID, &content, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	e.Content = json.RawMessage(content)
	e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	e.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &e, nil
}

// List returns entry ids, most recently updated first.
func (r *Repository) List(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id FROM entries ORDER BY updated_at DESC, id ASC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Delete removes an entry. Deleting a missing entry returns ErrNotFound.
func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
