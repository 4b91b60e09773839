package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/studystem/tutoring/internal/calendar"
)

const maxTitleLength = 200

// EventRepository captures the persistence interactions needed by the service.
type EventRepository interface {
	CreateEvent(ctx context.Context, event SessionEvent) (SessionEvent, error)
	GetEvent(ctx context.Context, id string) (SessionEvent, error)
	ListEvents(ctx context.Context, filter EventRepositoryFilter) ([]SessionEvent, error)
	DeleteEvent(ctx context.Context, id string) error
}

// EventRepositoryFilter narrows queries issued to the event repository.
type EventRepositoryFilter struct {
	Owner        OwnerScope
	StartsAfter  *time.Time
	StartsBefore *time.Time
}

// ProfileDirectory exposes profile lookups used to resolve references.
type ProfileDirectory interface {
	GetProfile(ctx context.Context, id string) (Profile, error)
}

// EventService is the only writer of tutoring sessions. It enforces role and
// ownership rules before any store call and renders the calendar views.
type EventService struct {
	events      EventRepository
	profiles    ProfileDirectory
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewEventService wires dependencies for session operations.
func NewEventService(events EventRepository, profiles ProfileDirectory, idGenerator func() string, now func() time.Time) *EventService {
	return NewEventServiceWithLogger(events, profiles, idGenerator, now, nil)
}

// NewEventServiceWithLogger wires dependencies for session operations with a specified logger.
func NewEventServiceWithLogger(events EventRepository, profiles ProfileDirectory, idGenerator func() string, now func() time.Time, logger *slog.Logger) *EventService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &EventService{
		events:      events,
		profiles:    profiles,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *EventService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "EventService", operation, attrs...)
}

// CreateEvent schedules a session owned by the calling tutor.
func (s *EventService) CreateEvent(ctx context.Context, params CreateEventParams) (event SessionEvent, err error) {
	if s == nil {
		err = fmt.Errorf("EventService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateEvent",
		"principal_id", params.Principal.UserID,
		"student_id", params.Input.StudentID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create event", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("event_id", event.ID).InfoContext(ctx, "event created")
	}()

	if !params.Principal.CanManage() {
		err = newError(ErrUnauthorized, "only tutors and admins may schedule sessions")
		return
	}

	input := params.Input
	if vErr := validateEventInput(input); vErr.HasErrors() {
		err = vErr
		return
	}

	if err = ensureStudentProfile(ctx, s.profiles, input.StudentID); err != nil {
		return
	}

	start := input.Start
	event = SessionEvent{
		ID:        s.idGenerator(),
		Title:     strings.TrimSpace(input.Title),
		Start:     start,
		End:       start.Add(time.Duration(input.DurationMinutes) * time.Minute),
		TutorID:   params.Principal.UserID,
		StudentID: input.StudentID,
		Notes:     strings.TrimSpace(input.Notes),
		CreatedAt: s.now(),
	}

	if s.events == nil {
		err = fmt.Errorf("event repository not configured")
		return
	}

	var persisted SessionEvent
	persisted, err = s.events.CreateEvent(ctx, event)
	if err != nil {
		err = mapRepoError(err, "the session could not be saved")
		return
	}

	event = persisted
	return
}

// DeleteEvent removes a session by id. Students may never delete, tutors
// may delete only their own sessions and admins may delete any session.
func (s *EventService) DeleteEvent(ctx context.Context, principal Principal, eventID string) (err error) {
	if s == nil {
		return fmt.Errorf("EventService is nil")
	}

	logger := s.loggerWith(ctx, "DeleteEvent",
		"principal_id", principal.UserID,
		"event_id", eventID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete event", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "event deleted")
	}()

	if !principal.CanManage() {
		return newError(ErrUnauthorized, "students cannot delete sessions")
	}
	if s.events == nil {
		return fmt.Errorf("event repository not configured")
	}

	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return newError(ErrNotFound, "this session no longer exists")
	}

	existing, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return mapRepoError(err, "this session no longer exists")
	}

	if existing.TutorID != principal.UserID && !principal.IsAdmin() {
		return newError(ErrUnauthorized, "only the owning tutor may delete this session")
	}

	if err := s.events.DeleteEvent(ctx, eventID); err != nil {
		return mapRepoError(err, "this session no longer exists")
	}
	return nil
}

// ListEvents returns the sessions the principal may see in store order.
func (s *EventService) ListEvents(ctx context.Context, params AgendaParams) (events []SessionEvent, err error) {
	if s == nil {
		err = fmt.Errorf("EventService is nil")
		return
	}

	logger := s.loggerWith(ctx, "ListEvents", "principal_id", params.Principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list events", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("count", len(events)).DebugContext(ctx, "events listed")
	}()

	events, err = s.visibleEvents(ctx, params.Principal, EventRepositoryFilter{
		StartsAfter:  params.StartsAfter,
		StartsBefore: params.StartsBefore,
	})
	return
}

// MonthGrid renders the 6x7 month view for the principal.
func (s *EventService) MonthGrid(ctx context.Context, params MonthGridParams) (grid calendar.Grid, err error) {
	if s == nil {
		err = fmt.Errorf("EventService is nil")
		return
	}

	month := params.Month
	if month.IsZero() {
		month = s.now()
	}

	logger := s.loggerWith(ctx, "MonthGrid",
		"principal_id", params.Principal.UserID,
		"month", calendar.FormatMonth(month),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to build month grid", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	from, to := calendar.MonthRange(month)
	visible, err := s.visibleEvents(ctx, params.Principal, EventRepositoryFilter{StartsAfter: &from, StartsBefore: &to})
	if err != nil {
		return calendar.Grid{}, err
	}

	return calendar.BuildMonthGrid(toCalendarEvents(visible), month, s.now()), nil
}

// Agenda renders the chronological list for the principal.
func (s *EventService) Agenda(ctx context.Context, params AgendaParams) ([]calendar.ListEntry, error) {
	visible, err := s.ListEvents(ctx, params)
	if err != nil {
		return nil, err
	}
	return calendar.BuildList(toCalendarEvents(visible), s.now()), nil
}

// visibleEvents issues an owner scoped query and runs the visibility filter
// over the result as a second check.
func (s *EventService) visibleEvents(ctx context.Context, principal Principal, filter EventRepositoryFilter) ([]SessionEvent, error) {
	filter.Owner = principal.ownerScope()
	if filter.Owner.Empty() || principal.UserID == "" {
		return []SessionEvent{}, nil
	}
	if s.events == nil {
		return nil, fmt.Errorf("event repository not configured")
	}

	events, err := s.events.ListEvents(ctx, filter)
	if err != nil {
		return nil, mapRepoError(err, "the sessions could not be loaded")
	}

	byID := make(map[string]SessionEvent, len(events))
	for _, event := range events {
		byID[event.ID] = event
	}

	filtered := calendar.Filter(toCalendarEvents(events), principal.Viewer())
	visible := make([]SessionEvent, 0, len(filtered))
	for _, event := range filtered {
		visible = append(visible, byID[event.ID])
	}
	return visible, nil
}

func validateEventInput(input EventInput) *ValidationError {
	vErr := &ValidationError{}

	title := strings.TrimSpace(input.Title)
	switch {
	case title == "":
		vErr.add("title", "title is required")
	case utf8.RuneCountInString(title) > maxTitleLength:
		vErr.add("title", fmt.Sprintf("title must be at most %d characters", maxTitleLength))
	}

	if strings.TrimSpace(input.StudentID) == "" {
		vErr.add("student_id", "a student must be selected")
	}

	if input.Start.IsZero() {
		vErr.add("start", "start time is required")
	}

	if input.DurationMinutes <= 0 {
		vErr.add("duration_minutes", "duration must be greater than zero minutes")
		vErr.Kind = ErrInvalidInterval
	}

	return vErr
}

func toCalendarEvents(events []SessionEvent) []calendar.Event {
	converted := make([]calendar.Event, len(events))
	for i, event := range events {
		converted[i] = event.calendarEvent()
	}
	return converted
}
