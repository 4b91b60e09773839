package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/studystem/tutoring/internal/application"
	"github.com/studystem/tutoring/internal/calendar"
	"github.com/studystem/tutoring/internal/persistence"
)

var (
	profileCounter  uint64
	eventCounter    uint64
	noteCounter     uint64
	materialCounter uint64
)

var referenceTime = time.Date(2024, time.February, 10, 9, 0, 0, 0, time.UTC)

// ReferenceTime is the baseline instant used by fixtures: Saturday
// 10 February 2024, 09:00 UTC.
func ReferenceTime() time.Time {
	return referenceTime
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

// ----------------------------- Profile fixtures -----------------------------

// ProfileFixture is a deterministic portal profile.
type ProfileFixture struct {
	ID          string
	DisplayName string
	Email       string
	Role        calendar.Role
	CreatedAt   time.Time
}

// ProfileOption configures a ProfileFixture.
type ProfileOption func(*ProfileFixture)

// NewProfileFixture returns a student profile unless overridden.
func NewProfileFixture(opts ...ProfileOption) ProfileFixture {
	idx := atomic.AddUint64(&profileCounter, 1)
	id := fmt.Sprintf("profile-%03d", idx)
	fixture := ProfileFixture{
		ID:          id,
		DisplayName: fmt.Sprintf("Profile %03d", idx),
		Email:       id + "@example.com",
		Role:        calendar.RoleStudent,
		CreatedAt:   referenceTime.Add(-time.Duration(idx) * time.Hour),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithProfileID overrides the generated id.
func WithProfileID(id string) ProfileOption {
	return func(f *ProfileFixture) { f.ID = id }
}

// WithRole overrides the role.
func WithRole(role calendar.Role) ProfileOption {
	return func(f *ProfileFixture) { f.Role = role }
}

// WithDisplayName overrides the display name.
func WithDisplayName(name string) ProfileOption {
	return func(f *ProfileFixture) { f.DisplayName = name }
}

// WithEmail overrides the email; an empty email is stored as NULL.
func WithEmail(email string) ProfileOption {
	return func(f *ProfileFixture) { f.Email = email }
}

// Tutor returns a tutor profile fixture.
func Tutor(opts ...ProfileOption) ProfileFixture {
	return NewProfileFixture(append([]ProfileOption{WithRole(calendar.RoleTutor)}, opts...)...)
}

// Student returns a student profile fixture.
func Student(opts ...ProfileOption) ProfileFixture {
	return NewProfileFixture(append([]ProfileOption{WithRole(calendar.RoleStudent)}, opts...)...)
}

// Admin returns an admin profile fixture.
func Admin(opts ...ProfileOption) ProfileFixture {
	return NewProfileFixture(append([]ProfileOption{WithRole(calendar.RoleAdmin)}, opts...)...)
}

// Application returns the fixture as an application.Profile.
func (f ProfileFixture) Application() application.Profile {
	return application.Profile{
		ID:          f.ID,
		DisplayName: f.DisplayName,
		Email:       f.Email,
		Role:        f.Role,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.CreatedAt,
	}
}

// Principal returns the fixture as the acting principal.
func (f ProfileFixture) Principal() application.Principal {
	return f.Application().Principal()
}

// Persistence returns the fixture as a persistence.Profile.
func (f ProfileFixture) Persistence() persistence.Profile {
	return persistence.Profile{
		ID:          f.ID,
		DisplayName: f.DisplayName,
		Email:       optionalString(f.Email),
		Role:        string(f.Role),
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.CreatedAt,
	}
}

// ----------------------------- Event fixtures -----------------------------

// EventFixture is a deterministic tutoring session.
type EventFixture struct {
	ID              string
	Title           string
	Start           time.Time
	DurationMinutes int
	TutorID         string
	StudentID       string
	Notes           string
	CreatedAt       time.Time
}

// EventOption configures an EventFixture.
type EventOption func(*EventFixture)

// NewEventFixture returns a one hour session on consecutive days after
// ReferenceTime. Tutor and student ids must be set by the caller when the
// record is persisted.
func NewEventFixture(opts ...EventOption) EventFixture {
	idx := atomic.AddUint64(&eventCounter, 1)
	fixture := EventFixture{
		ID:              fmt.Sprintf("event-%03d", idx),
		Title:           fmt.Sprintf("Session %03d", idx),
		Start:           referenceTime.AddDate(0, 0, int(idx)).Add(6 * time.Hour),
		DurationMinutes: 60,
		CreatedAt:       referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithEventID overrides the generated id.
func WithEventID(id string) EventOption {
	return func(f *EventFixture) { f.ID = id }
}

// WithTitle overrides the title.
func WithTitle(title string) EventOption {
	return func(f *EventFixture) { f.Title = title }
}

// WithStart overrides the start instant.
func WithStart(start time.Time) EventOption {
	return func(f *EventFixture) { f.Start = start }
}

// WithDuration overrides the length in minutes.
func WithDuration(minutes int) EventOption {
	return func(f *EventFixture) { f.DurationMinutes = minutes }
}

// WithOwners sets the tutor and student of the session.
func WithOwners(tutorID, studentID string) EventOption {
	return func(f *EventFixture) {
		f.TutorID = tutorID
		f.StudentID = studentID
	}
}

// End returns the derived end instant.
func (f EventFixture) End() time.Time {
	return f.Start.Add(time.Duration(f.DurationMinutes) * time.Minute)
}

// Input returns the fixture as caller supplied event input.
func (f EventFixture) Input() application.EventInput {
	return application.EventInput{
		Title:           f.Title,
		Start:           f.Start,
		DurationMinutes: f.DurationMinutes,
		StudentID:       f.StudentID,
		Notes:           f.Notes,
	}
}

// Application returns the fixture as an application.SessionEvent.
func (f EventFixture) Application() application.SessionEvent {
	return application.SessionEvent{
		ID:        f.ID,
		Title:     f.Title,
		Start:     f.Start,
		End:       f.End(),
		TutorID:   f.TutorID,
		StudentID: f.StudentID,
		Notes:     f.Notes,
		CreatedAt: f.CreatedAt,
	}
}

// Persistence returns the fixture as a persistence.Event.
func (f EventFixture) Persistence() persistence.Event {
	return persistence.Event{
		ID:        f.ID,
		Title:     f.Title,
		Start:     f.Start,
		End:       f.End(),
		TutorID:   f.TutorID,
		StudentID: f.StudentID,
		Notes:     optionalString(f.Notes),
		CreatedAt: f.CreatedAt,
	}
}

// ----------------------------- Note fixtures -----------------------------

// NoteFixture is a deterministic tutor note.
type NoteFixture struct {
	ID        string
	TutorID   string
	StudentID string
	EventID   string
	Title     string
	Subject   string
	Content   string
	CreatedAt time.Time
}

// NoteOption configures a NoteFixture.
type NoteOption func(*NoteFixture)

// NewNoteFixture returns a note created a minute after the previous one.
func NewNoteFixture(opts ...NoteOption) NoteFixture {
	idx := atomic.AddUint64(&noteCounter, 1)
	fixture := NoteFixture{
		ID:        fmt.Sprintf("note-%03d", idx),
		Title:     fmt.Sprintf("Note %03d", idx),
		Subject:   "Mathematics",
		Content:   "Worked through the practice set.",
		CreatedAt: referenceTime.Add(time.Duration(idx) * time.Minute),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithNoteID overrides the generated id.
func WithNoteID(id string) NoteOption {
	return func(f *NoteFixture) { f.ID = id }
}

// WithNoteOwners sets the tutor and student of the note.
func WithNoteOwners(tutorID, studentID string) NoteOption {
	return func(f *NoteFixture) {
		f.TutorID = tutorID
		f.StudentID = studentID
	}
}

// WithNoteEvent links the note to a session.
func WithNoteEvent(eventID string) NoteOption {
	return func(f *NoteFixture) { f.EventID = eventID }
}

// Input returns the fixture as caller supplied note input.
func (f NoteFixture) Input() application.NoteInput {
	return application.NoteInput{
		StudentID: f.StudentID,
		EventID:   f.EventID,
		Title:     f.Title,
		Subject:   f.Subject,
		Content:   f.Content,
	}
}

// Persistence returns the fixture as a persistence.Note.
func (f NoteFixture) Persistence() persistence.Note {
	return persistence.Note{
		ID:        f.ID,
		TutorID:   f.TutorID,
		StudentID: f.StudentID,
		EventID:   optionalString(f.EventID),
		Title:     f.Title,
		Subject:   optionalString(f.Subject),
		Content:   f.Content,
		CreatedAt: f.CreatedAt,
	}
}

// ----------------------------- Material fixtures -----------------------------

// MaterialFixture is deterministic PDF metadata.
type MaterialFixture struct {
	ID          string
	TutorID     string
	StudentID   string
	NoteID      string
	EventID     string
	StoragePath string
	Filename    string
	SizeBytes   int64
	CreatedAt   time.Time
}

// MaterialOption configures a MaterialFixture.
type MaterialOption func(*MaterialFixture)

// NewMaterialFixture returns PDF metadata with a unique storage path.
func NewMaterialFixture(opts ...MaterialOption) MaterialFixture {
	idx := atomic.AddUint64(&materialCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := MaterialFixture{
		ID:        fmt.Sprintf("material-%03d", idx),
		Filename:  fmt.Sprintf("worksheet-%03d.pdf", idx),
		SizeBytes: 2048,
		CreatedAt: created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	if fixture.StoragePath == "" {
		fixture.StoragePath = application.MaterialKey(fixture.StudentID, fixture.CreatedAt, fixture.ID)
	}
	return fixture
}

// WithMaterialID overrides the generated id.
func WithMaterialID(id string) MaterialOption {
	return func(f *MaterialFixture) { f.ID = id }
}

// WithMaterialOwners sets the tutor and student of the material.
func WithMaterialOwners(tutorID, studentID string) MaterialOption {
	return func(f *MaterialFixture) {
		f.TutorID = tutorID
		f.StudentID = studentID
	}
}

// WithMaterialNote attaches the material to a note.
func WithMaterialNote(noteID string) MaterialOption {
	return func(f *MaterialFixture) { f.NoteID = noteID }
}

// Application returns the fixture as an application.Material.
func (f MaterialFixture) Application() application.Material {
	return application.Material{
		ID:          f.ID,
		TutorID:     f.TutorID,
		StudentID:   f.StudentID,
		NoteID:      f.NoteID,
		EventID:     f.EventID,
		StoragePath: f.StoragePath,
		Filename:    f.Filename,
		SizeBytes:   f.SizeBytes,
		MimeType:    application.PDFMimeType,
		CreatedAt:   f.CreatedAt,
	}
}

// Persistence returns the fixture as a persistence.Material.
func (f MaterialFixture) Persistence() persistence.Material {
	return persistence.Material{
		ID:          f.ID,
		TutorID:     f.TutorID,
		StudentID:   f.StudentID,
		NoteID:      optionalString(f.NoteID),
		EventID:     optionalString(f.EventID),
		StoragePath: f.StoragePath,
		Filename:    f.Filename,
		SizeBytes:   f.SizeBytes,
		MimeType:    application.PDFMimeType,
		CreatedAt:   f.CreatedAt,
	}
}
