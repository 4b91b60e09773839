package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/studystem/tutoring/internal/persistence"
)

// EventRepository implements persistence.EventRepository using SQLite
type EventRepository struct {
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewEventRepository creates a new SQLite event repository
func NewEventRepository(pool *ConnectionPool) *EventRepository {
	return &EventRepository{
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const eventColumns = `id, title, start_at, end_at, tutor_id, student_id, notes, created_at`

// CreateEvent inserts a single event row. The insert either succeeds as a
// whole or is rejected by the schema constraints.
func (r *EventRepository) CreateEvent(ctx context.Context, event persistence.Event) error {
	if event.ID == "" {
		return persistence.ErrConstraintViolation
	}
	if !event.End.After(event.Start) {
		return persistence.ErrConstraintViolation
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	_, err := r.helper.Exec(ctx, `
		INSERT INTO events (id, title, start_at, end_at, tutor_id, student_id, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		event.ID,
		event.Title,
		formatTime(event.Start),
		formatTime(event.End),
		event.TutorID,
		event.StudentID,
		toNullString(event.Notes),
		formatTime(event.CreatedAt),
	)
	return r.mapper.MapError(err)
}

// GetEvent retrieves an event by ID
func (r *EventRepository) GetEvent(ctx context.Context, id string) (persistence.Event, error) {
	if id == "" {
		return persistence.Event{}, persistence.ErrNotFound
	}

	row := r.helper.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	event, err := scanEvent(row)
	if err != nil {
		return persistence.Event{}, r.mapper.MapError(err)
	}
	return event, nil
}

// ListEvents returns the events owned by the filter's tutor or student,
// ordered by start then ID. An empty owner filter returns no rows.
func (r *EventRepository) ListEvents(ctx context.Context, filter persistence.EventFilter) ([]persistence.Event, error) {
	if filter.Owner.Empty() {
		return []persistence.Event{}, nil
	}

	query, args := buildEventListQuery(filter)

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	events := []persistence.Event{}
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return events, nil
}

// DeleteEvent removes an event by ID
func (r *EventRepository) DeleteEvent(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	result, err := r.helper.Exec(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireRowsAffected(result)
}

func buildEventListQuery(filter persistence.EventFilter) (string, []any) {
	var (
		conditions []string
		args       []any
	)

	conditions, args = appendOwnerConditions(conditions, args, filter.Owner)

	if filter.StartsAfter != nil {
		conditions = append(conditions, "start_at >= ?")
		args = append(args, formatTime(*filter.StartsAfter))
	}
	if filter.StartsBefore != nil {
		conditions = append(conditions, "start_at < ?")
		args = append(args, formatTime(*filter.StartsBefore))
	}

	query := `SELECT ` + eventColumns + ` FROM events WHERE ` + strings.Join(conditions, " AND ") +
		` ORDER BY start_at ASC, id ASC`
	return query, args
}

// appendOwnerConditions adds the owner predicates shared by every scoped list.
func appendOwnerConditions(conditions []string, args []any, owner persistence.OwnerFilter) ([]string, []any) {
	if owner.TutorID != "" {
		conditions = append(conditions, "tutor_id = ?")
		args = append(args, owner.TutorID)
	}
	if owner.StudentID != "" {
		conditions = append(conditions, "student_id = ?")
		args = append(args, owner.StudentID)
	}
	return conditions, args
}

func scanEvent(row rowScanner) (persistence.Event, error) {
	var (
		event                     persistence.Event
		notes                     sql.NullString
		startAt, endAt, createdAt string
	)

	if err := row.Scan(
		&event.ID,
		&event.Title,
		&startAt,
		&endAt,
		&event.TutorID,
		&event.StudentID,
		&notes,
		&createdAt,
	); err != nil {
		return persistence.Event{}, err
	}

	event.Notes = fromNullString(notes)

	var err error
	if event.Start, err = parseTime("start_at", startAt); err != nil {
		return persistence.Event{}, err
	}
	if event.End, err = parseTime("end_at", endAt); err != nil {
		return persistence.Event{}, err
	}
	if event.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.Event{}, err
	}
	return event, nil
}
