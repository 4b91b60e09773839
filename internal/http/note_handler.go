package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/studystem/tutoring/internal/application"
)

type noteService interface {
	CreateNote(ctx context.Context, params application.CreateNoteParams) (application.Note, error)
	ListNotes(ctx context.Context, principal application.Principal) ([]application.Note, error)
	DeleteNote(ctx context.Context, principal application.Principal, noteID string) error
}

type NoteHandler struct {
	service   noteService
	location  *time.Location
	responder responder
}

func NewNoteHandler(service noteService, location *time.Location, logger *slog.Logger) *NoteHandler {
	if location == nil {
		location = time.UTC
	}
	return &NoteHandler{service: service, location: location, responder: newResponder(logger, "NoteHandler")}
}

func (h *NoteHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	notes, err := h.service.ListNotes(r.Context(), principal)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	response := listNotesResponse{Notes: make([]noteDTO, 0, len(notes))}
	for _, note := range notes {
		response.Notes = append(response.Notes, toNoteDTO(note, h.location))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, response)
}

func (h *NoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req createNoteRequest
	if !h.responder.decodeJSON(w, r, &req) {
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	h.responder.operationLogger(r.Context(), "Create", "student_id", req.StudentID).DebugContext(r.Context(), "note requested")

	note, err := h.service.CreateNote(r.Context(), application.CreateNoteParams{
		Principal: principal,
		Input: application.NoteInput{
			StudentID: req.StudentID,
			EventID:   req.EventID,
			Title:     req.Title,
			Subject:   req.Subject,
			Content:   req.Content,
		},
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, noteResponse{Note: toNoteDTO(note, h.location)})
}

// Delete removes a note together with its attached materials.
func (h *NoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	noteID, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(noteID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	h.responder.operationLogger(r.Context(), "Delete", "note_id", noteID).DebugContext(r.Context(), "note removal requested")

	if err := h.service.DeleteNote(r.Context(), principal, noteID); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type createNoteRequest struct {
	StudentID string `json:"student_id" validate:"required,max=64"`
	EventID   string `json:"event_id" validate:"max=64"`
	Title     string `json:"title" validate:"required,max=200"`
	Subject   string `json:"subject" validate:"max=100"`
	Content   string `json:"content" validate:"required"`
}

type noteDTO struct {
	ID        string        `json:"id"`
	TutorID   string        `json:"tutor_id"`
	StudentID string        `json:"student_id"`
	EventID   string        `json:"event_id,omitempty"`
	Title     string        `json:"title"`
	Subject   string        `json:"subject,omitempty"`
	Content   string        `json:"content"`
	CreatedAt string        `json:"created_at"`
	Materials []materialDTO `json:"materials"`
}

type noteResponse struct {
	Note noteDTO `json:"note"`
}

type listNotesResponse struct {
	Notes []noteDTO `json:"notes"`
}

func toNoteDTO(note application.Note, loc *time.Location) noteDTO {
	materials := make([]materialDTO, 0, len(note.Materials))
	for _, material := range note.Materials {
		materials = append(materials, toMaterialDTO(material, loc))
	}
	return noteDTO{
		ID:        note.ID,
		TutorID:   note.TutorID,
		StudentID: note.StudentID,
		EventID:   note.EventID,
		Title:     note.Title,
		Subject:   note.Subject,
		Content:   note.Content,
		CreatedAt: formatTime(note.CreatedAt, loc),
		Materials: materials,
	}
}
