package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/studystem/tutoring/internal/application"
	"github.com/studystem/tutoring/internal/calendar"
)

type eventService interface {
	CreateEvent(ctx context.Context, params application.CreateEventParams) (application.SessionEvent, error)
	DeleteEvent(ctx context.Context, principal application.Principal, eventID string) error
	MonthGrid(ctx context.Context, params application.MonthGridParams) (calendar.Grid, error)
	Agenda(ctx context.Context, params application.AgendaParams) ([]calendar.ListEntry, error)
}

// EventHandler serves the calendar views and session mutations. Month
// boundaries and rendered timestamps use the configured location.
type EventHandler struct {
	service   eventService
	location  *time.Location
	now       func() time.Time
	responder responder
}

func NewEventHandler(service eventService, location *time.Location, logger *slog.Logger) *EventHandler {
	if location == nil {
		location = time.UTC
	}
	return &EventHandler{
		service:   service,
		location:  location,
		now:       time.Now,
		responder: newResponder(logger, "EventHandler"),
	}
}

// List renders the month grid for view=grid and the chronological list otherwise.
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if strings.EqualFold(r.URL.Query().Get("view"), "grid") {
		h.Grid(w, r)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	from, ok := parseOptionalTime(r.URL.Query().Get("from"))
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRange)
		return
	}
	to, ok := parseOptionalTime(r.URL.Query().Get("to"))
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRange)
		return
	}

	entries, err := h.service.Agenda(r.Context(), application.AgendaParams{
		Principal:    principal,
		StartsAfter:  from,
		StartsBefore: to,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	response := listEventsResponse{Events: make([]listEntryDTO, 0, len(entries))}
	for _, entry := range entries {
		response.Events = append(response.Events, listEntryDTO{
			eventDTO: h.toEventDTO(entry.Event),
			IsPast:   entry.IsPast,
		})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, response)
}

// Grid renders the 42 cell month view. A missing month means the current one.
func (h *EventHandler) Grid(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	month := calendar.StartOfMonth(h.now().In(h.location))
	if value := strings.TrimSpace(r.URL.Query().Get("month")); value != "" {
		parsed, err := calendar.ParseMonth(value, h.location)
		if err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidMonth)
			return
		}
		month = parsed
	}

	principal, _ := PrincipalFromContext(r.Context())
	grid, err := h.service.MonthGrid(r.Context(), application.MonthGridParams{
		Principal: principal,
		Month:     month,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, h.toGridDTO(grid))
}

func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req createEventRequest
	if !h.responder.decodeJSON(w, r, &req) {
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	h.responder.operationLogger(r.Context(), "Create",
		"student_id", req.StudentID,
		"start", req.Start,
	).DebugContext(r.Context(), "session requested")

	event, err := h.service.CreateEvent(r.Context(), application.CreateEventParams{
		Principal: principal,
		Input:     req.toInput(),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, eventResponse{Event: h.toEventDTO(calendar.Event{
		ID:        event.ID,
		Title:     event.Title,
		Start:     event.Start,
		End:       event.End,
		TutorID:   event.TutorID,
		StudentID: event.StudentID,
		Notes:     event.Notes,
	})})
}

func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(eventID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	h.responder.operationLogger(r.Context(), "Delete", "event_id", eventID).DebugContext(r.Context(), "session removal requested")

	if err := h.service.DeleteEvent(r.Context(), principal, eventID); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *EventHandler) toEventDTO(event calendar.Event) eventDTO {
	return eventDTO{
		ID:              event.ID,
		Title:           event.Title,
		Start:           formatTime(event.Start, h.location),
		End:             formatTime(event.End, h.location),
		DurationMinutes: event.DurationMinutes(),
		TutorID:         event.TutorID,
		StudentID:       event.StudentID,
		Notes:           event.Notes,
	}
}

func (h *EventHandler) toGridDTO(grid calendar.Grid) gridDTO {
	first := time.Date(grid.Year, grid.Month, 1, 0, 0, 0, 0, h.location)
	dto := gridDTO{
		Title:    grid.Title(),
		Month:    calendar.FormatMonth(first),
		Previous: calendar.FormatMonth(calendar.ShiftMonth(first, -1)),
		Next:     calendar.FormatMonth(calendar.ShiftMonth(first, 1)),
		Weekdays: grid.Weekdays[:],
		Cells:    make([]cellDTO, 0, len(grid.Cells)),
	}
	for _, cell := range grid.Cells {
		cellEvents := make([]cellEventDTO, 0, len(cell.Events))
		for _, event := range cell.Events {
			cellEvents = append(cellEvents, cellEventDTO{
				eventDTO: h.toEventDTO(event.Event),
				Label:    event.Label,
			})
		}
		dto.Cells = append(dto.Cells, cellDTO{
			Date:    calendar.DateKey(cell.Date),
			Day:     cell.Day,
			InMonth: cell.InMonth,
			IsToday: cell.IsToday,
			Events:  cellEvents,
		})
	}
	return dto
}

type createEventRequest struct {
	Title           string `json:"title" validate:"required,max=200"`
	Start           string `json:"start" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	DurationMinutes int    `json:"duration_minutes"`
	StudentID       string `json:"student_id" validate:"required,max=64"`
	Notes           string `json:"notes" validate:"max=2000"`
}

func (r createEventRequest) toInput() application.EventInput {
	start, _ := parseOptionalTime(r.Start)
	input := application.EventInput{
		Title:           strings.TrimSpace(r.Title),
		DurationMinutes: r.DurationMinutes,
		StudentID:       strings.TrimSpace(r.StudentID),
		Notes:           r.Notes,
	}
	if start != nil {
		input.Start = *start
	}
	return input
}

type eventDTO struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Start           string `json:"start"`
	End             string `json:"end"`
	DurationMinutes int    `json:"duration_minutes"`
	TutorID         string `json:"tutor_id"`
	StudentID       string `json:"student_id"`
	Notes           string `json:"notes,omitempty"`
}

type eventResponse struct {
	Event eventDTO `json:"event"`
}

type listEntryDTO struct {
	eventDTO
	IsPast bool `json:"is_past"`
}

type listEventsResponse struct {
	Events []listEntryDTO `json:"events"`
}

type gridDTO struct {
	Title    string    `json:"title"`
	Month    string    `json:"month"`
	Previous string    `json:"previous_month"`
	Next     string    `json:"next_month"`
	Weekdays []string  `json:"weekdays"`
	Cells    []cellDTO `json:"cells"`
}

type cellDTO struct {
	Date    string         `json:"date"`
	Day     int            `json:"day"`
	InMonth bool           `json:"in_month"`
	IsToday bool           `json:"is_today"`
	Events  []cellEventDTO `json:"events"`
}

type cellEventDTO struct {
	eventDTO
	Label string `json:"label"`
}

// parseOptionalTime reads an RFC 3339 timestamp. An empty value is valid and
// yields nil.
func parseOptionalTime(value string) (*time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, true
	}
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return &ts, true
	}
	return nil, false
}

func formatTime(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	return t.In(loc).Format(time.RFC3339)
}
