package seed

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/enzyme/peek/internal/entry"
)

// Entries are the sample documents stored by Run. They cover plain text,
// nested records and lists, and content with no links at all.
var Entries = []struct {
	ID      string
	Content any
}{
	{"welcome", map[string]any{
		"title": "Welcome",
		"body":  "Read the docs at https://go.dev/doc/ and the tour at https://go.dev/tour/.",
	}},
	{"reading-list", map[string]any{
		"owner": "alice",
		"items": []any{
			map[string]any{"note": "routing", "link": "https://github.com/go-chi/chi"},
			map[string]any{"note": "config", "link": "https://github.com/knadh/koanf"},
			map[string]any{"note": "again", "link": "https://github.com/go-chi/chi"},
		},
	}},
	{"release-notes", []any{
		"v1.2 ships today, see https://example.com/releases/v1.2",
		"Migration guide: http://example.com/migrate",
		42,
		true,
	}},
	{"plain", map[string]any{
		"title": "No links",
		"body":  "Nothing to preview here.",
	}},
}

// Run populates the database with sample entries for development.
// It is idempotent: if the first entry already exists, it logs and returns nil.
func Run(ctx context.Context, db *sql.DB) error {
	repo := entry.NewRepository(db)

	if _, err := repo.Get(ctx, Entries[0].ID); err == nil {
		slog.Info("database already seeded, skipping")
		return nil
	}

	slog.Info("seeding database...")

	for _, se := range Entries {
		data, err := json.Marshal(se.Content)
		if err != nil {
			return fmt.Errorf("marshal entry %s: %w", se.ID, err)
		}
		if err := repo.Put(ctx, &entry.Entry{ID: se.ID, Content: data}); err != nil {
			return fmt.Errorf("create entry %s: %w", se.ID, err)
		}
		slog.Info("created entry", "id", se.ID)
	}

	slog.Info("seeding complete", "entries", len(Entries))
	return nil
}
