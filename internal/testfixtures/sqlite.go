package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/studystem/tutoring/internal/persistence"
	"github.com/studystem/tutoring/internal/persistence/sqlite"
	"github.com/studystem/tutoring/internal/persistence/sqlite/migration"
)

// SQLiteHarness is a migrated temporary database for persistence and
// adapter tests.
type SQLiteHarness struct {
	Storage   *sqlite.Storage
	Profiles  persistence.ProfileRepository
	Events    persistence.EventRepository
	Notes     persistence.NoteRepository
	Materials persistence.MaterialRepository

	tb      testing.TB
	cleanup func()
}

// NewSQLiteHarness opens and migrates a database in a temporary directory.
// The database is closed when the test finishes.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	ctx := context.Background()
	path := filepath.Join(tb.TempDir(), "portal.db")

	storage, err := sqlite.Open(ctx, migration.TempFileTestSQLiteConfig(path))
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}

	if err := storage.Migrate(ctx); err != nil {
		_ = storage.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	harness := &SQLiteHarness{
		Storage:   storage,
		Profiles:  storage,
		Events:    storage,
		Notes:     storage,
		Materials: storage,
		tb:        tb,
		cleanup: func() {
			_ = storage.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}

// Close releases the database. It is safe to call more than once.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// SeedProfiles inserts the given profiles or fails the test.
func (h *SQLiteHarness) SeedProfiles(profiles ...ProfileFixture) {
	h.tb.Helper()
	for _, p := range profiles {
		if err := h.Profiles.CreateProfile(context.Background(), p.Persistence()); err != nil {
			h.tb.Fatalf("seed profile %s: %v", p.ID, err)
		}
	}
}

// SeedEvents inserts the given events or fails the test.
func (h *SQLiteHarness) SeedEvents(events ...EventFixture) {
	h.tb.Helper()
	for _, e := range events {
		if err := h.Events.CreateEvent(context.Background(), e.Persistence()); err != nil {
			h.tb.Fatalf("seed event %s: %v", e.ID, err)
		}
	}
}

// SeedNotes inserts the given notes or fails the test.
func (h *SQLiteHarness) SeedNotes(notes ...NoteFixture) {
	h.tb.Helper()
	for _, n := range notes {
		if err := h.Notes.CreateNote(context.Background(), n.Persistence()); err != nil {
			h.tb.Fatalf("seed note %s: %v", n.ID, err)
		}
	}
}

// SeedMaterials inserts the given materials or fails the test.
func (h *SQLiteHarness) SeedMaterials(materials ...MaterialFixture) {
	h.tb.Helper()
	for _, m := range materials {
		if err := h.Materials.CreateMaterial(context.Background(), m.Persistence()); err != nil {
			h.tb.Fatalf("seed material %s: %v", m.ID, err)
		}
	}
}
