package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/studystem/tutoring/internal/persistence"
)

// ProfileRepository implements persistence.ProfileRepository using SQLite
type ProfileRepository struct {
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewProfileRepository creates a new SQLite profile repository
func NewProfileRepository(pool *ConnectionPool) *ProfileRepository {
	return &ProfileRepository{
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const profileColumns = `id, display_name, email, role, created_at, updated_at`

// CreateProfile inserts a new profile
func (r *ProfileRepository) CreateProfile(ctx context.Context, profile persistence.Profile) error {
	if profile.ID == "" || profile.Role == "" {
		return persistence.ErrConstraintViolation
	}

	now := time.Now().UTC()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	if profile.UpdatedAt.IsZero() {
		profile.UpdatedAt = profile.CreatedAt
	}

	var email *string
	if profile.Email != nil {
		normalized := normalizeEmail(*profile.Email)
		email = &normalized
	}

	_, err := r.helper.Exec(ctx, `
		INSERT INTO profiles (id, display_name, email, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		profile.ID,
		profile.DisplayName,
		toNullString(email),
		profile.Role,
		formatTime(profile.CreatedAt),
		formatTime(profile.UpdatedAt),
	)
	return r.mapper.MapError(err)
}

// GetProfile retrieves a profile by ID
func (r *ProfileRepository) GetProfile(ctx context.Context, id string) (persistence.Profile, error) {
	if id == "" {
		return persistence.Profile{}, persistence.ErrNotFound
	}

	row := r.helper.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = ?`, id)
	profile, err := scanProfile(row)
	if err != nil {
		return persistence.Profile{}, r.mapper.MapError(err)
	}
	return profile, nil
}

// ListProfiles returns profiles ordered by display name then ID. An empty
// role lists every profile.
func (r *ProfileRepository) ListProfiles(ctx context.Context, role string) ([]persistence.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles`
	var args []any
	if role != "" {
		query += ` WHERE role = ?`
		args = append(args, role)
	}
	query += ` ORDER BY display_name ASC, id ASC`

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	profiles := []persistence.Profile{}
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		profiles = append(profiles, profile)
	}

	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return profiles, nil
}

func scanProfile(row rowScanner) (persistence.Profile, error) {
	var (
		profile              persistence.Profile
		email                sql.NullString
		createdAt, updatedAt string
	)

	if err := row.Scan(&profile.ID, &profile.DisplayName, &email, &profile.Role, &createdAt, &updatedAt); err != nil {
		return persistence.Profile{}, err
	}

	profile.Email = fromNullString(email)

	var err error
	if profile.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.Profile{}, err
	}
	if profile.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return persistence.Profile{}, err
	}
	return profile, nil
}

// normalizeEmail normalizes email addresses for consistent storage and lookup
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
