package application

import (
	"io"
	"time"

	"github.com/studystem/tutoring/internal/calendar"
)

// Principal represents the authenticated user invoking a service method.
// Role always comes from the stored profile.
type Principal struct {
	UserID      string
	DisplayName string
	Role        calendar.Role
}

// Viewer returns the principal as a calendar viewer.
func (p Principal) Viewer() calendar.Viewer {
	return calendar.Viewer{ID: p.UserID, Role: p.Role}
}

// CanManage reports whether the principal may create and delete records.
func (p Principal) CanManage() bool {
	return p.UserID != "" && p.Role.CanManage()
}

// IsAdmin reports whether the principal has the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == calendar.RoleAdmin
}

// ownerScope returns the store query scope that matches what the principal
// may see. Unknown roles get an empty scope, which matches nothing.
func (p Principal) ownerScope() OwnerScope {
	switch p.Role {
	case calendar.RoleTutor, calendar.RoleAdmin:
		return OwnerScope{TutorID: p.UserID}
	case calendar.RoleStudent:
		return OwnerScope{StudentID: p.UserID}
	default:
		return OwnerScope{}
	}
}

// OwnerScope narrows store queries to a tutor or a student.
type OwnerScope struct {
	TutorID   string
	StudentID string
}

// Empty reports whether the scope names no owner.
func (s OwnerScope) Empty() bool {
	return s.TutorID == "" && s.StudentID == ""
}

// Profile is a portal principal as stored in the profile directory.
type Profile struct {
	ID          string
	DisplayName string
	Email       string
	Role        calendar.Role
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Principal converts the profile into the acting principal.
func (p Profile) Principal() Principal {
	return Principal{UserID: p.ID, DisplayName: p.DisplayName, Role: p.Role}
}

func (p Profile) isStudent() bool {
	return p.Role == calendar.RoleStudent
}

// ProfileInput captures caller provided profile attributes.
type ProfileInput struct {
	DisplayName string
	Email       string
	Role        calendar.Role
}

// CreateProfileParams wraps the data required to create a profile.
type CreateProfileParams struct {
	Principal Principal
	Input     ProfileInput
}

// SessionEvent is a scheduled tutoring session with its server assigned id.
type SessionEvent struct {
	ID        string
	Title     string
	Start     time.Time
	End       time.Time
	TutorID   string
	StudentID string
	Notes     string
	CreatedAt time.Time
}

// DurationMinutes returns the session length in whole minutes.
func (e SessionEvent) DurationMinutes() int {
	return e.calendarEvent().DurationMinutes()
}

func (e SessionEvent) calendarEvent() calendar.Event {
	return calendar.Event{
		ID:        e.ID,
		Title:     e.Title,
		Start:     e.Start,
		End:       e.End,
		TutorID:   e.TutorID,
		StudentID: e.StudentID,
		Notes:     e.Notes,
	}
}

// EventInput captures caller provided session fields.
type EventInput struct {
	Title           string
	Start           time.Time
	DurationMinutes int
	StudentID       string
	Notes           string
}

// CreateEventParams wraps the data required to create a session.
type CreateEventParams struct {
	Principal Principal
	Input     EventInput
}

// MonthGridParams identifies the month a grid is rendered for. Month may be
// any instant inside the month; its location sets the day boundaries.
type MonthGridParams struct {
	Principal Principal
	Month     time.Time
}

// AgendaParams narrows the chronological list by session start. Nil bounds
// are open.
type AgendaParams struct {
	Principal    Principal
	StartsAfter  *time.Time
	StartsBefore *time.Time
}

// Note is a tutor written note with its attached materials.
type Note struct {
	ID        string
	TutorID   string
	StudentID string
	EventID   string
	Title     string
	Subject   string
	Content   string
	CreatedAt time.Time
	Materials []Material
}

func (n Note) owners() calendar.Ownership {
	return calendar.Ownership{TutorID: n.TutorID, StudentID: n.StudentID}
}

// NoteInput captures caller provided note fields.
type NoteInput struct {
	StudentID string
	EventID   string
	Title     string
	Subject   string
	Content   string
}

// CreateNoteParams wraps the data required to create a note.
type CreateNoteParams struct {
	Principal Principal
	Input     NoteInput
}

// Material is the metadata of an uploaded PDF.
type Material struct {
	ID          string
	TutorID     string
	StudentID   string
	NoteID      string
	EventID     string
	StoragePath string
	Filename    string
	SizeBytes   int64
	MimeType    string
	CreatedAt   time.Time
}

func (m Material) owners() calendar.Ownership {
	return calendar.Ownership{TutorID: m.TutorID, StudentID: m.StudentID}
}

// UploadMaterialParams wraps an uploaded file and its ownership.
type UploadMaterialParams struct {
	Principal    Principal
	StudentID    string
	NoteID       string
	EventID      string
	Filename     string
	DeclaredType string
	Size         int64
	Body         io.Reader
}

// MaterialLink is a time limited URL for viewing a material.
type MaterialLink struct {
	URL       string
	ExpiresAt time.Time
}
