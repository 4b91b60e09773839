package sqlite

import (
	"context"
	"fmt"

	"github.com/studystem/tutoring/internal/persistence/sqlite/migration"
)

// Storage bundles the SQLite repositories that share one connection pool.
type Storage struct {
	*ProfileRepository
	*EventRepository
	*NoteRepository
	*MaterialRepository

	pool *ConnectionPool
}

// Open connects to the configured database. Call Migrate before first use.
func Open(ctx context.Context, config migration.SQLiteConfig) (*Storage, error) {
	pool, err := NewConnectionPool(ctx, config)
	if err != nil {
		return nil, err
	}

	return &Storage{
		ProfileRepository:  NewProfileRepository(pool),
		EventRepository:    NewEventRepository(pool),
		NoteRepository:     NewNoteRepository(pool),
		MaterialRepository: NewMaterialRepository(pool),
		pool:               pool,
	}, nil
}

// Migrate applies the embedded schema migrations.
func (s *Storage) Migrate(ctx context.Context) error {
	if err := migration.Up(ctx, s.pool.DB()); err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}
	return nil
}

// Ping checks that the database is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Storage) Close() error {
	return s.pool.Close()
}
