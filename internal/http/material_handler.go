package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/studystem/tutoring/internal/application"
)

// multipartOverhead is the room left for form fields and part headers on
// top of the largest accepted file.
const multipartOverhead = 1 << 20

type materialService interface {
	UploadMaterial(ctx context.Context, params application.UploadMaterialParams) (application.Material, error)
	ListMaterials(ctx context.Context, principal application.Principal) ([]application.Material, error)
	MaterialLink(ctx context.Context, principal application.Principal, materialID string) (application.MaterialLink, error)
	DeleteMaterial(ctx context.Context, principal application.Principal, materialID string) error
}

type MaterialHandler struct {
	service   materialService
	maxBytes  int64
	location  *time.Location
	responder responder
}

// NewMaterialHandler builds the material endpoints. maxBytes bounds the size
// of an uploaded file and falls back to application.DefaultMaterialMaxBytes.
func NewMaterialHandler(service materialService, maxBytes int64, location *time.Location, logger *slog.Logger) *MaterialHandler {
	if maxBytes <= 0 {
		maxBytes = application.DefaultMaterialMaxBytes
	}
	if location == nil {
		location = time.UTC
	}
	return &MaterialHandler{
		service:   service,
		maxBytes:  maxBytes,
		location:  location,
		responder: newResponder(logger, "MaterialHandler"),
	}
}

func (h *MaterialHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	materials, err := h.service.ListMaterials(r.Context(), principal)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	response := listMaterialsResponse{Materials: make([]materialDTO, 0, len(materials))}
	for _, material := range materials {
		response.Materials = append(response.Materials, toMaterialDTO(material, h.location))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, response)
}

// Upload accepts a multipart form with a PDF in the "file" part.
func (h *MaterialHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+multipartOverhead)
	if err := r.ParseMultipartForm(h.maxBytes + multipartOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.responder.writeError(r.Context(), w, http.StatusRequestEntityTooLarge, errUploadTooLarge)
			return
		}
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadMultipart)
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	req := uploadMaterialRequest{
		StudentID: strings.TrimSpace(r.FormValue("student_id")),
		NoteID:    strings.TrimSpace(r.FormValue("note_id")),
		EventID:   strings.TrimSpace(r.FormValue("event_id")),
	}
	if !h.responder.validateRequest(w, r, &req) {
		return
	}

	params := application.UploadMaterialParams{
		StudentID: req.StudentID,
		NoteID:    req.NoteID,
		EventID:   req.EventID,
	}
	params.Principal, _ = PrincipalFromContext(r.Context())

	file, header, err := r.FormFile("file")
	switch {
	case err == nil:
		defer file.Close()
		params.Filename = header.Filename
		params.DeclaredType = header.Header.Get("Content-Type")
		if strings.EqualFold(params.DeclaredType, "application/octet-stream") {
			// Generic clients send no real type; the content sniff decides.
			params.DeclaredType = ""
		}
		params.Size = header.Size
		params.Body = file
	case errors.Is(err, http.ErrMissingFile):
		// The service reports the missing file as a field error.
	default:
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadMultipart)
		return
	}

	h.responder.operationLogger(r.Context(), "Upload",
		"filename", params.Filename,
		"size_bytes", params.Size,
	).DebugContext(r.Context(), "material upload received")

	material, err := h.service.UploadMaterial(r.Context(), params)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, materialResponse{Material: toMaterialDTO(material, h.location)})
}

// Link returns a time limited download URL.
func (h *MaterialHandler) Link(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	materialID, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(materialID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	h.responder.operationLogger(r.Context(), "Link", "material_id", materialID).DebugContext(r.Context(), "material link requested")

	link, err := h.service.MaterialLink(r.Context(), principal, materialID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, materialLinkResponse{
		URL:       link.URL,
		ExpiresAt: formatTime(link.ExpiresAt, h.location),
	})
}

func (h *MaterialHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	materialID, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(materialID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	h.responder.operationLogger(r.Context(), "Delete", "material_id", materialID).DebugContext(r.Context(), "material removal requested")

	if err := h.service.DeleteMaterial(r.Context(), principal, materialID); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type uploadMaterialRequest struct {
	StudentID string `form:"student_id" validate:"required,max=64"`
	NoteID    string `form:"note_id" validate:"max=64"`
	EventID   string `form:"event_id" validate:"max=64"`
}

type materialDTO struct {
	ID        string `json:"id"`
	TutorID   string `json:"tutor_id"`
	StudentID string `json:"student_id"`
	NoteID    string `json:"note_id,omitempty"`
	EventID   string `json:"event_id,omitempty"`
	Filename  string `json:"filename"`
	SizeBytes int64  `json:"size_bytes"`
	SizeLabel string `json:"size_label"`
	MimeType  string `json:"mime_type"`
	CreatedAt string `json:"created_at"`
}

type materialResponse struct {
	Material materialDTO `json:"material"`
}

type listMaterialsResponse struct {
	Materials []materialDTO `json:"materials"`
}

type materialLinkResponse struct {
	URL       string `json:"url"`
	ExpiresAt string `json:"expires_at"`
}

func toMaterialDTO(material application.Material, loc *time.Location) materialDTO {
	return materialDTO{
		ID:        material.ID,
		TutorID:   material.TutorID,
		StudentID: material.StudentID,
		NoteID:    material.NoteID,
		EventID:   material.EventID,
		Filename:  material.Filename,
		SizeBytes: material.SizeBytes,
		SizeLabel: application.FormatSize(material.SizeBytes),
		MimeType:  material.MimeType,
		CreatedAt: formatTime(material.CreatedAt, loc),
	}
}

