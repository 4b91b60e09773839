package application

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"sort"
	"strings"
	"time"

	"github.com/studystem/tutoring/internal/calendar"
)

// ProfileRepository captures the persistence operations needed by the profile service.
type ProfileRepository interface {
	CreateProfile(ctx context.Context, profile Profile) (Profile, error)
	GetProfile(ctx context.Context, id string) (Profile, error)
	ListProfiles(ctx context.Context, role calendar.Role) ([]Profile, error)
}

// ProfileService manages the profile directory that backs role resolution.
type ProfileService struct {
	profiles    ProfileRepository
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewProfileService wires dependencies for the profile service.
func NewProfileService(profiles ProfileRepository, idGenerator func() string, now func() time.Time) *ProfileService {
	return NewProfileServiceWithLogger(profiles, idGenerator, now, nil)
}

// NewProfileServiceWithLogger wires dependencies for the profile service with a specified logger.
func NewProfileServiceWithLogger(profiles ProfileRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *ProfileService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &ProfileService{profiles: profiles, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

func (s *ProfileService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ProfileService", operation, attrs...)
}

// CreateProfile validates input and persists a new profile for administrators.
func (s *ProfileService) CreateProfile(ctx context.Context, params CreateProfileParams) (profile Profile, err error) {
	if s == nil {
		err = fmt.Errorf("ProfileService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateProfile", "principal_id", params.Principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create profile", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("profile_id", profile.ID, "role", string(profile.Role)).InfoContext(ctx, "profile created")
	}()

	if !params.Principal.IsAdmin() {
		err = newError(ErrUnauthorized, "only admins may create profiles")
		return
	}

	normalized := normalizeProfileInput(params.Input)
	if vErr := validateProfileInput(normalized); vErr.HasErrors() {
		err = vErr
		return
	}

	if s.profiles == nil {
		err = fmt.Errorf("profile repository not configured")
		return
	}

	profile = Profile{
		ID:          s.idGenerator(),
		DisplayName: normalized.DisplayName,
		Email:       normalized.Email,
		Role:        normalized.Role,
		CreatedAt:   s.now(),
	}
	profile.UpdatedAt = profile.CreatedAt

	var persisted Profile
	persisted, err = s.profiles.CreateProfile(ctx, profile)
	if err != nil {
		err = mapRepoError(err, "the profile could not be saved")
		return
	}

	profile = persisted
	return
}

// GetProfile returns a profile. Principals may read their own profile,
// managers may read student profiles and admins may read any profile.
func (s *ProfileService) GetProfile(ctx context.Context, principal Principal, id string) (Profile, error) {
	if s == nil {
		return Profile{}, fmt.Errorf("ProfileService is nil")
	}
	if principal.UserID == "" {
		return Profile{}, newError(ErrUnauthorized, "you are not allowed to view this profile")
	}
	if id != principal.UserID && !principal.CanManage() {
		return Profile{}, newError(ErrUnauthorized, "you are not allowed to view this profile")
	}
	if s.profiles == nil {
		return Profile{}, fmt.Errorf("profile repository not configured")
	}

	profile, err := s.profiles.GetProfile(ctx, id)
	if err != nil {
		return Profile{}, mapRepoError(err, "this profile does not exist")
	}
	if id != principal.UserID && !principal.IsAdmin() && profile.Role != calendar.RoleStudent {
		return Profile{}, newError(ErrUnauthorized, "you are not allowed to view this profile")
	}
	return profile, nil
}

// ListStudents returns the student directory used when scheduling sessions.
func (s *ProfileService) ListStudents(ctx context.Context, principal Principal) ([]Profile, error) {
	if s == nil {
		return nil, fmt.Errorf("ProfileService is nil")
	}
	if !principal.CanManage() {
		return nil, newError(ErrUnauthorized, "only tutors and admins may browse students")
	}
	return s.list(ctx, calendar.RoleStudent)
}

// ListProfiles returns every profile for administrators.
func (s *ProfileService) ListProfiles(ctx context.Context, principal Principal) ([]Profile, error) {
	if s == nil {
		return nil, fmt.Errorf("ProfileService is nil")
	}
	if !principal.IsAdmin() {
		return nil, newError(ErrUnauthorized, "only admins may list profiles")
	}
	return s.list(ctx, "")
}

func (s *ProfileService) list(ctx context.Context, role calendar.Role) ([]Profile, error) {
	if s.profiles == nil {
		return []Profile{}, nil
	}

	profiles, err := s.profiles.ListProfiles(ctx, role)
	if err != nil {
		return nil, mapRepoError(err, "profiles could not be loaded")
	}

	out := make([]Profile, len(profiles))
	copy(out, profiles)

	sort.SliceStable(out, func(i, j int) bool {
		if strings.EqualFold(out[i].DisplayName, out[j].DisplayName) {
			return out[i].ID < out[j].ID
		}
		return strings.ToLower(out[i].DisplayName) < strings.ToLower(out[j].DisplayName)
	})

	return out, nil
}

func normalizeProfileInput(input ProfileInput) ProfileInput {
	return ProfileInput{
		DisplayName: strings.TrimSpace(input.DisplayName),
		Email:       strings.ToLower(strings.TrimSpace(input.Email)),
		Role:        calendar.Role(strings.ToLower(strings.TrimSpace(string(input.Role)))),
	}
}

func validateProfileInput(input ProfileInput) *ValidationError {
	vErr := &ValidationError{}

	if input.DisplayName == "" {
		vErr.add("display_name", "display name is required")
	}

	if input.Email != "" {
		if _, err := mail.ParseAddress(input.Email); err != nil {
			vErr.add("email", "email is invalid")
		}
	}

	if !input.Role.Valid() {
		vErr.add("role", "role must be student, tutor, or admin")
	}

	return vErr
}
