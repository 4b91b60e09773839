package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/studystem/tutoring/internal/application"
	"github.com/studystem/tutoring/internal/calendar"
)

type profileService interface {
	CreateProfile(ctx context.Context, params application.CreateProfileParams) (application.Profile, error)
	GetProfile(ctx context.Context, principal application.Principal, id string) (application.Profile, error)
	ListStudents(ctx context.Context, principal application.Principal) ([]application.Profile, error)
	ListProfiles(ctx context.Context, principal application.Principal) ([]application.Profile, error)
}

// ProfileHandler serves the student directory and admin profile management.
type ProfileHandler struct {
	service   profileService
	location  *time.Location
	responder responder
}

func NewProfileHandler(service profileService, location *time.Location, logger *slog.Logger) *ProfileHandler {
	if location == nil {
		location = time.UTC
	}
	return &ProfileHandler{service: service, location: location, responder: newResponder(logger, "ProfileHandler")}
}

// Me returns the caller's own profile.
func (h *ProfileHandler) Me(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	profile, err := h.service.GetProfile(r.Context(), principal, principal.UserID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, profileResponse{Profile: h.toProfileDTO(profile)})
}

// Students lists student profiles for tutors choosing a session owner.
func (h *ProfileHandler) Students(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, func(ctx context.Context, principal application.Principal) ([]application.Profile, error) {
		return h.service.ListStudents(ctx, principal)
	})
}

func (h *ProfileHandler) List(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, func(ctx context.Context, principal application.Principal) ([]application.Profile, error) {
		return h.service.ListProfiles(ctx, principal)
	})
}

func (h *ProfileHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req createProfileRequest
	if !h.responder.decodeJSON(w, r, &req) {
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	h.responder.operationLogger(r.Context(), "Create", "role", req.Role).DebugContext(r.Context(), "profile requested")

	profile, err := h.service.CreateProfile(r.Context(), application.CreateProfileParams{
		Principal: principal,
		Input: application.ProfileInput{
			DisplayName: req.DisplayName,
			Email:       req.Email,
			Role:        calendar.Role(req.Role),
		},
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, profileResponse{Profile: h.toProfileDTO(profile)})
}

func (h *ProfileHandler) list(w http.ResponseWriter, r *http.Request, load func(context.Context, application.Principal) ([]application.Profile, error)) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	profiles, err := load(r.Context(), principal)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	response := listProfilesResponse{Profiles: make([]profileDTO, 0, len(profiles))}
	for _, profile := range profiles {
		response.Profiles = append(response.Profiles, h.toProfileDTO(profile))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, response)
}

func (h *ProfileHandler) toProfileDTO(profile application.Profile) profileDTO {
	return profileDTO{
		ID:          profile.ID,
		DisplayName: profile.DisplayName,
		Email:       profile.Email,
		Role:        string(profile.Role),
		CreatedAt:   formatTime(profile.CreatedAt, h.location),
	}
}

type createProfileRequest struct {
	DisplayName string `json:"display_name" validate:"required,max=100"`
	Email       string `json:"email" validate:"omitempty,email"`
	Role        string `json:"role" validate:"required,oneof=tutor student admin"`
}

type profileDTO struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email,omitempty"`
	Role        string `json:"role"`
	CreatedAt   string `json:"created_at,omitempty"`
}

type profileResponse struct {
	Profile profileDTO `json:"profile"`
}

type listProfilesResponse struct {
	Profiles []profileDTO `json:"profiles"`
}
