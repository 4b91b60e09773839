package persistence

import "time"

// Profile is a portal principal and the authoritative source of its role.
type Profile struct {
	ID          string
	DisplayName string
	Email       *string
	Role        string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Event is a scheduled tutoring session.
type Event struct {
	ID        string
	Title     string
	Start     time.Time
	End       time.Time
	TutorID   string
	StudentID string
	Notes     *string
	CreatedAt time.Time
}

// Note is a tutor written note for a student, optionally tied to a session.
type Note struct {
	ID        string
	TutorID   string
	StudentID string
	EventID   *string
	Title     string
	Subject   *string
	Content   string
	CreatedAt time.Time
}

// Material is the metadata of an uploaded PDF. StoragePath is the object key
// in the material bucket.
type Material struct {
	ID          string
	TutorID     string
	StudentID   string
	NoteID      *string
	EventID     *string
	StoragePath string
	Filename    string
	SizeBytes   int64
	MimeType    string
	CreatedAt   time.Time
}
