package persistence

import (
	"context"
	"time"
)

// OwnerFilter scopes a query to records owned by a tutor or a student.
// Exactly one of TutorID and StudentID is expected to be set; an empty
// filter matches nothing.
type OwnerFilter struct {
	TutorID   string
	StudentID string
}

// Empty reports whether the filter names no owner.
func (f OwnerFilter) Empty() bool {
	return f.TutorID == "" && f.StudentID == ""
}

// EventFilter narrows event queries.
type EventFilter struct {
	Owner        OwnerFilter
	StartsAfter  *time.Time
	StartsBefore *time.Time
}

// ProfileRepository stores portal principals.
type ProfileRepository interface {
	CreateProfile(ctx context.Context, profile Profile) error
	GetProfile(ctx context.Context, id string) (Profile, error)
	ListProfiles(ctx context.Context, role string) ([]Profile, error)
}

// EventRepository stores tutoring sessions.
type EventRepository interface {
	CreateEvent(ctx context.Context, event Event) error
	GetEvent(ctx context.Context, id string) (Event, error)
	ListEvents(ctx context.Context, filter EventFilter) ([]Event, error)
	DeleteEvent(ctx context.Context, id string) error
}

// NoteRepository stores notes. DeleteNote removes the note together with its
// attached material rows in one transaction and returns the removed materials
// so their stored objects can be cleaned up.
type NoteRepository interface {
	CreateNote(ctx context.Context, note Note) error
	GetNote(ctx context.Context, id string) (Note, error)
	ListNotes(ctx context.Context, owner OwnerFilter) ([]Note, error)
	DeleteNote(ctx context.Context, id string) ([]Material, error)
}

// MaterialRepository stores uploaded material metadata.
type MaterialRepository interface {
	CreateMaterial(ctx context.Context, material Material) error
	GetMaterial(ctx context.Context, id string) (Material, error)
	ListMaterials(ctx context.Context, owner OwnerFilter) ([]Material, error)
	ListMaterialsForNotes(ctx context.Context, noteIDs []string) ([]Material, error)
	DeleteMaterial(ctx context.Context, id string) error
}
