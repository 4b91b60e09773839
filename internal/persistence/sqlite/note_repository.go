package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/studystem/tutoring/internal/persistence"
)

// NoteRepository implements persistence.NoteRepository using SQLite
type NoteRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewNoteRepository creates a new SQLite note repository
func NewNoteRepository(pool *ConnectionPool) *NoteRepository {
	return &NoteRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const noteColumns = `id, tutor_id, student_id, event_id, title, subject, content, created_at`

// CreateNote inserts a new note
func (r *NoteRepository) CreateNote(ctx context.Context, note persistence.Note) error {
	if note.ID == "" {
		return persistence.ErrConstraintViolation
	}
	if note.CreatedAt.IsZero() {
		note.CreatedAt = time.Now().UTC()
	}

	_, err := r.helper.Exec(ctx, `
		INSERT INTO notes (id, tutor_id, student_id, event_id, title, subject, content, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		note.ID,
		note.TutorID,
		note.StudentID,
		toNullString(note.EventID),
		note.Title,
		toNullString(note.Subject),
		note.Content,
		formatTime(note.CreatedAt),
	)
	return r.mapper.MapError(err)
}

// GetNote retrieves a note by ID
func (r *NoteRepository) GetNote(ctx context.Context, id string) (persistence.Note, error) {
	if id == "" {
		return persistence.Note{}, persistence.ErrNotFound
	}

	row := r.helper.QueryRow(ctx, `SELECT `+noteColumns+` FROM notes WHERE id = ?`, id)
	note, err := scanNote(row)
	if err != nil {
		return persistence.Note{}, r.mapper.MapError(err)
	}
	return note, nil
}

// ListNotes returns the owner's notes, newest first
func (r *NoteRepository) ListNotes(ctx context.Context, owner persistence.OwnerFilter) ([]persistence.Note, error) {
	if owner.Empty() {
		return []persistence.Note{}, nil
	}

	conditions, args := appendOwnerConditions(nil, nil, owner)
	query := `SELECT ` + noteColumns + ` FROM notes WHERE ` + joinConditions(conditions) +
		` ORDER BY created_at DESC, id ASC`

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	notes := []persistence.Note{}
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		notes = append(notes, note)
	}

	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return notes, nil
}

// DeleteNote removes a note and its attached materials in one transaction
// and returns the material rows that were removed.
func (r *NoteRepository) DeleteNote(ctx context.Context, id string) ([]persistence.Material, error) {
	if id == "" {
		return nil, persistence.ErrNotFound
	}

	var removed []persistence.Material
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		rows, err := r.helper.QueryTx(ctx, tx, `SELECT `+materialColumns+` FROM materials WHERE note_id = ? ORDER BY id`, id)
		if err != nil {
			return r.mapper.MapError(err)
		}
		materials, err := collectMaterials(rows)
		if err != nil {
			return r.mapper.MapError(err)
		}

		if _, err := r.helper.ExecTx(ctx, tx, `DELETE FROM materials WHERE note_id = ?`, id); err != nil {
			return r.mapper.MapError(err)
		}

		result, err := r.helper.ExecTx(ctx, tx, `DELETE FROM notes WHERE id = ?`, id)
		if err != nil {
			return r.mapper.MapError(err)
		}
		if err := requireRowsAffected(result); err != nil {
			return err
		}

		removed = materials
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

func scanNote(row rowScanner) (persistence.Note, error) {
	var (
		note             persistence.Note
		eventID, subject sql.NullString
		createdAt        string
	)

	if err := row.Scan(
		&note.ID,
		&note.TutorID,
		&note.StudentID,
		&eventID,
		&note.Title,
		&subject,
		&note.Content,
		&createdAt,
	); err != nil {
		return persistence.Note{}, err
	}

	note.EventID = fromNullString(eventID)
	note.Subject = fromNullString(subject)

	var err error
	if note.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.Note{}, err
	}
	return note, nil
}
