package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/studystem/tutoring/internal/persistence"
)

// MaterialRepository implements persistence.MaterialRepository using SQLite
type MaterialRepository struct {
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewMaterialRepository creates a new SQLite material repository
func NewMaterialRepository(pool *ConnectionPool) *MaterialRepository {
	return &MaterialRepository{
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const materialColumns = `id, tutor_id, student_id, note_id, event_id, storage_path, filename, size_bytes, mime_type, created_at`

// CreateMaterial inserts material metadata
func (r *MaterialRepository) CreateMaterial(ctx context.Context, material persistence.Material) error {
	if material.ID == "" || material.StoragePath == "" {
		return persistence.ErrConstraintViolation
	}
	if material.CreatedAt.IsZero() {
		material.CreatedAt = time.Now().UTC()
	}

	_, err := r.helper.Exec(ctx, `
		INSERT INTO materials (id, tutor_id, student_id, note_id, event_id, storage_path, filename, size_bytes, mime_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		material.ID,
		material.TutorID,
		material.StudentID,
		toNullString(material.NoteID),
		toNullString(material.EventID),
		material.StoragePath,
		material.Filename,
		material.SizeBytes,
		material.MimeType,
		formatTime(material.CreatedAt),
	)
	return r.mapper.MapError(err)
}

// GetMaterial retrieves material metadata by ID
func (r *MaterialRepository) GetMaterial(ctx context.Context, id string) (persistence.Material, error) {
	if id == "" {
		return persistence.Material{}, persistence.ErrNotFound
	}

	row := r.helper.QueryRow(ctx, `SELECT `+materialColumns+` FROM materials WHERE id = ?`, id)
	material, err := scanMaterial(row)
	if err != nil {
		return persistence.Material{}, r.mapper.MapError(err)
	}
	return material, nil
}

// ListMaterials returns the owner's materials, newest first
func (r *MaterialRepository) ListMaterials(ctx context.Context, owner persistence.OwnerFilter) ([]persistence.Material, error) {
	if owner.Empty() {
		return []persistence.Material{}, nil
	}

	conditions, args := appendOwnerConditions(nil, nil, owner)
	query := `SELECT ` + materialColumns + ` FROM materials WHERE ` + joinConditions(conditions) +
		` ORDER BY created_at DESC, id ASC`

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	materials, err := collectMaterials(rows)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	return materials, nil
}

// ListMaterialsForNotes returns the materials attached to any of the notes
func (r *MaterialRepository) ListMaterialsForNotes(ctx context.Context, noteIDs []string) ([]persistence.Material, error) {
	if len(noteIDs) == 0 {
		return []persistence.Material{}, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(noteIDs)), ", ")
	args := make([]any, len(noteIDs))
	for i, id := range noteIDs {
		args[i] = id
	}

	rows, err := r.helper.Query(ctx,
		`SELECT `+materialColumns+` FROM materials WHERE note_id IN (`+placeholders+`) ORDER BY created_at ASC, id ASC`,
		args...,
	)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	materials, err := collectMaterials(rows)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	return materials, nil
}

// DeleteMaterial removes material metadata by ID
func (r *MaterialRepository) DeleteMaterial(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	result, err := r.helper.Exec(ctx, `DELETE FROM materials WHERE id = ?`, id)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireRowsAffected(result)
}

// collectMaterials scans and closes rows.
func collectMaterials(rows *sql.Rows) ([]persistence.Material, error) {
	defer rows.Close()

	materials := []persistence.Material{}
	for rows.Next() {
		material, err := scanMaterial(rows)
		if err != nil {
			return nil, err
		}
		materials = append(materials, material)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return materials, nil
}

func scanMaterial(row rowScanner) (persistence.Material, error) {
	var (
		material        persistence.Material
		noteID, eventID sql.NullString
		createdAt       string
	)

	if err := row.Scan(
		&material.ID,
		&material.TutorID,
		&material.StudentID,
		&noteID,
		&eventID,
		&material.StoragePath,
		&material.Filename,
		&material.SizeBytes,
		&material.MimeType,
		&createdAt,
	); err != nil {
		return persistence.Material{}, err
	}

	material.NoteID = fromNullString(noteID)
	material.EventID = fromNullString(eventID)

	var err error
	if material.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.Material{}, err
	}
	return material, nil
}

func joinConditions(conditions []string) string {
	return strings.Join(conditions, " AND ")
}
