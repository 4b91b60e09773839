package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"
)

// NoteRepository captures the persistence interactions needed by the note service.
type NoteRepository interface {
	CreateNote(ctx context.Context, note Note) (Note, error)
	GetNote(ctx context.Context, id string) (Note, error)
	ListNotes(ctx context.Context, owner OwnerScope) ([]Note, error)
	// DeleteNote removes the note and its materials atomically and returns
	// the material rows that were removed.
	DeleteNote(ctx context.Context, id string) ([]Material, error)
}

// MaterialLister loads the materials attached to a set of notes.
type MaterialLister interface {
	ListMaterialsForNotes(ctx context.Context, noteIDs []string) ([]Material, error)
}

// EventLookup resolves a session by id.
type EventLookup interface {
	GetEvent(ctx context.Context, id string) (SessionEvent, error)
}

// NoteService manages tutor notes and the materials attached to them.
type NoteService struct {
	notes       NoteRepository
	materials   MaterialLister
	events      EventLookup
	profiles    ProfileDirectory
	objects     ObjectStore
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NoteServiceDeps groups the collaborators of the note service.
type NoteServiceDeps struct {
	Notes     NoteRepository
	Materials MaterialLister
	Events    EventLookup
	Profiles  ProfileDirectory
	Objects   ObjectStore
}

// NewNoteService wires dependencies for note operations.
func NewNoteService(deps NoteServiceDeps, idGenerator func() string, now func() time.Time) *NoteService {
	return NewNoteServiceWithLogger(deps, idGenerator, now, nil)
}

// NewNoteServiceWithLogger wires dependencies for note operations with a specified logger.
func NewNoteServiceWithLogger(deps NoteServiceDeps, idGenerator func() string, now func() time.Time, logger *slog.Logger) *NoteService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &NoteService{
		notes:       deps.Notes,
		materials:   deps.Materials,
		events:      deps.Events,
		profiles:    deps.Profiles,
		objects:     deps.Objects,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *NoteService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "NoteService", operation, attrs...)
}

// CreateNote stores a note written by the calling tutor for one of their students.
func (s *NoteService) CreateNote(ctx context.Context, params CreateNoteParams) (note Note, err error) {
	if s == nil {
		err = fmt.Errorf("NoteService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateNote",
		"principal_id", params.Principal.UserID,
		"student_id", params.Input.StudentID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create note", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("note_id", note.ID).InfoContext(ctx, "note created")
	}()

	if !params.Principal.CanManage() {
		err = newError(ErrUnauthorized, "only tutors and admins may write notes")
		return
	}

	input := normalizeNoteInput(params.Input)
	if vErr := validateNoteInput(input); vErr.HasErrors() {
		err = vErr
		return
	}

	if err = ensureStudentProfile(ctx, s.profiles, input.StudentID); err != nil {
		return
	}
	if input.EventID != "" {
		if err = ensureLinkedEvent(ctx, s.events, params.Principal, input.EventID, input.StudentID); err != nil {
			return
		}
	}

	if s.notes == nil {
		err = fmt.Errorf("note repository not configured")
		return
	}

	note = Note{
		ID:        s.idGenerator(),
		TutorID:   params.Principal.UserID,
		StudentID: input.StudentID,
		EventID:   input.EventID,
		Title:     input.Title,
		Subject:   input.Subject,
		Content:   input.Content,
		CreatedAt: s.now(),
	}

	var persisted Note
	persisted, err = s.notes.CreateNote(ctx, note)
	if err != nil {
		err = mapRepoError(err, "the note could not be saved")
		return
	}

	note = persisted
	note.Materials = []Material{}
	return
}

// ListNotes returns the notes visible to the principal, newest first, with
// their materials attached.
func (s *NoteService) ListNotes(ctx context.Context, principal Principal) (notes []Note, err error) {
	if s == nil {
		err = fmt.Errorf("NoteService is nil")
		return
	}

	logger := s.loggerWith(ctx, "ListNotes", "principal_id", principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list notes", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	scope := principal.ownerScope()
	if scope.Empty() || principal.UserID == "" {
		return []Note{}, nil
	}
	if s.notes == nil {
		return nil, fmt.Errorf("note repository not configured")
	}

	stored, err := s.notes.ListNotes(ctx, scope)
	if err != nil {
		return nil, mapRepoError(err, "the notes could not be loaded")
	}

	viewer := principal.Viewer()
	notes = make([]Note, 0, len(stored))
	ids := make([]string, 0, len(stored))
	for _, note := range stored {
		if !viewer.CanSee(note.owners()) {
			continue
		}
		note.Materials = []Material{}
		notes = append(notes, note)
		ids = append(ids, note.ID)
	}

	if len(ids) == 0 || s.materials == nil {
		return notes, nil
	}

	attached, err := s.materials.ListMaterialsForNotes(ctx, ids)
	if err != nil {
		return nil, mapRepoError(err, "the materials could not be loaded")
	}

	index := make(map[string]int, len(notes))
	for i, note := range notes {
		index[note.ID] = i
	}
	for _, material := range attached {
		if i, ok := index[material.NoteID]; ok {
			notes[i].Materials = append(notes[i].Materials, material)
		}
	}
	return notes, nil
}

// DeleteNote removes a note and its materials. Tutors may delete only notes
// they wrote and admins may delete any note. Stored objects are removed after
// the metadata is gone; failures there are logged and do not fail the call.
func (s *NoteService) DeleteNote(ctx context.Context, principal Principal, noteID string) (err error) {
	if s == nil {
		return fmt.Errorf("NoteService is nil")
	}

	logger := s.loggerWith(ctx, "DeleteNote",
		"principal_id", principal.UserID,
		"note_id", noteID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete note", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "note deleted")
	}()

	if !principal.CanManage() {
		return newError(ErrUnauthorized, "students cannot delete notes")
	}
	if s.notes == nil {
		return fmt.Errorf("note repository not configured")
	}

	noteID = strings.TrimSpace(noteID)
	if noteID == "" {
		return newError(ErrNotFound, "this note no longer exists")
	}

	existing, err := s.notes.GetNote(ctx, noteID)
	if err != nil {
		return mapRepoError(err, "this note no longer exists")
	}
	if existing.TutorID != principal.UserID && !principal.IsAdmin() {
		return newError(ErrUnauthorized, "you can only delete notes that you wrote")
	}

	removed, err := s.notes.DeleteNote(ctx, noteID)
	if err != nil {
		return mapRepoError(err, "this note no longer exists")
	}

	removeObjects(ctx, s.objects, logger, removed)
	return nil
}

// removeObjects deletes stored files whose metadata is already gone.
func removeObjects(ctx context.Context, objects ObjectStore, logger *slog.Logger, materials []Material) {
	if objects == nil {
		return
	}
	for _, material := range materials {
		if material.StoragePath == "" {
			continue
		}
		if err := objects.DeleteObject(ctx, material.StoragePath); err != nil {
			logger.WarnContext(ctx, "failed to remove stored material",
				"material_id", material.ID,
				"storage_path", material.StoragePath,
				"error", err,
			)
		}
	}
}

func ensureStudentProfile(ctx context.Context, profiles ProfileDirectory, studentID string) error {
	if profiles == nil {
		return fmt.Errorf("profile directory not configured")
	}

	profile, err := profiles.GetProfile(ctx, studentID)
	if err != nil {
		if isNotFoundError(err) {
			return newError(ErrInvalidReference, "the selected student does not exist")
		}
		return mapRepoError(err, "the selected student does not exist")
	}
	if !profile.isStudent() {
		return newError(ErrInvalidReference, "the selected profile is not a student")
	}
	return nil
}

// ensureLinkedEvent checks that a note or material may be attached to the
// session: it must exist, involve the same student and be owned by the
// principal unless the principal is an admin.
func ensureLinkedEvent(ctx context.Context, events EventLookup, principal Principal, eventID, studentID string) error {
	if events == nil {
		return fmt.Errorf("event lookup not configured")
	}

	event, err := events.GetEvent(ctx, eventID)
	if err != nil {
		if isNotFoundError(err) {
			return newError(ErrInvalidReference, "the linked session does not exist")
		}
		return mapRepoError(err, "the linked session does not exist")
	}
	if event.StudentID != studentID {
		return newError(ErrInvalidReference, "the linked session belongs to another student")
	}
	if event.TutorID != principal.UserID && !principal.IsAdmin() {
		return newError(ErrUnauthorized, "you can only link sessions that you own")
	}
	return nil
}

func normalizeNoteInput(input NoteInput) NoteInput {
	return NoteInput{
		StudentID: strings.TrimSpace(input.StudentID),
		EventID:   strings.TrimSpace(input.EventID),
		Title:     strings.TrimSpace(input.Title),
		Subject:   strings.TrimSpace(input.Subject),
		Content:   strings.TrimSpace(input.Content),
	}
}

func validateNoteInput(input NoteInput) *ValidationError {
	vErr := &ValidationError{}

	switch {
	case input.Title == "":
		vErr.add("title", "title is required")
	case utf8.RuneCountInString(input.Title) > maxTitleLength:
		vErr.add("title", fmt.Sprintf("title must be at most %d characters", maxTitleLength))
	}

	if input.StudentID == "" {
		vErr.add("student_id", "a student must be selected")
	}
	if input.Content == "" {
		vErr.add("content", "content is required")
	}

	return vErr
}
