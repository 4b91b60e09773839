package testfixtures

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/studystem/tutoring/internal/application"
	"github.com/studystem/tutoring/internal/calendar"
)

// MemoryStore is an in-memory implementation of every application level
// repository. It mirrors the SQLite store's ordering and cascade rules.
type MemoryStore struct {
	mu        sync.Mutex
	profiles  map[string]application.Profile
	events    map[string]application.SessionEvent
	notes     map[string]application.Note
	materials map[string]application.Material

	// Err, when set, is returned by every call.
	Err error
}

// NewMemoryStore returns an empty store seeded with profiles.
func NewMemoryStore(profiles ...ProfileFixture) *MemoryStore {
	store := &MemoryStore{
		profiles:  make(map[string]application.Profile),
		events:    make(map[string]application.SessionEvent),
		notes:     make(map[string]application.Note),
		materials: make(map[string]application.Material),
	}
	for _, p := range profiles {
		store.profiles[p.ID] = p.Application()
	}
	return store
}

// CreateProfile stores a profile.
func (s *MemoryStore) CreateProfile(ctx context.Context, profile application.Profile) (application.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return application.Profile{}, s.Err
	}
	s.profiles[profile.ID] = profile
	return profile, nil
}

// GetProfile returns a profile or application.ErrNotFound.
func (s *MemoryStore) GetProfile(ctx context.Context, id string) (application.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return application.Profile{}, s.Err
	}
	profile, ok := s.profiles[id]
	if !ok {
		return application.Profile{}, application.ErrNotFound
	}
	return profile, nil
}

// ListProfiles returns profiles with the role, or all when role is empty.
func (s *MemoryStore) ListProfiles(ctx context.Context, role calendar.Role) ([]application.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := []application.Profile{}
	for _, p := range s.profiles {
		if role == "" || p.Role == role {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// CreateEvent stores a session.
func (s *MemoryStore) CreateEvent(ctx context.Context, event application.SessionEvent) (application.SessionEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return application.SessionEvent{}, s.Err
	}
	s.events[event.ID] = event
	return event, nil
}

// GetEvent returns a session or application.ErrNotFound.
func (s *MemoryStore) GetEvent(ctx context.Context, id string) (application.SessionEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return application.SessionEvent{}, s.Err
	}
	event, ok := s.events[id]
	if !ok {
		return application.SessionEvent{}, application.ErrNotFound
	}
	return event, nil
}

// ListEvents returns owner scoped sessions ordered by start then id.
func (s *MemoryStore) ListEvents(ctx context.Context, filter application.EventRepositoryFilter) ([]application.SessionEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := []application.SessionEvent{}
	if filter.Owner.Empty() {
		return out, nil
	}
	for _, e := range s.events {
		if !ownedBy(filter.Owner, e.TutorID, e.StudentID) {
			continue
		}
		if filter.StartsAfter != nil && e.Start.Before(*filter.StartsAfter) {
			continue
		}
		if filter.StartsBefore != nil && !e.Start.Before(*filter.StartsBefore) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Start.Equal(out[j].Start) {
			return out[i].ID < out[j].ID
		}
		return out[i].Start.Before(out[j].Start)
	})
	return out, nil
}

// DeleteEvent removes a session and clears links to it.
func (s *MemoryStore) DeleteEvent(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, ok := s.events[id]; !ok {
		return application.ErrNotFound
	}
	delete(s.events, id)
	for key, n := range s.notes {
		if n.EventID == id {
			n.EventID = ""
			s.notes[key] = n
		}
	}
	for key, m := range s.materials {
		if m.EventID == id {
			m.EventID = ""
			s.materials[key] = m
		}
	}
	return nil
}

// EventCount reports how many sessions are stored.
func (s *MemoryStore) EventCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// CreateNote stores a note.
func (s *MemoryStore) CreateNote(ctx context.Context, note application.Note) (application.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return application.Note{}, s.Err
	}
	note.Materials = nil
	s.notes[note.ID] = note
	return note, nil
}

// GetNote returns a note or application.ErrNotFound.
func (s *MemoryStore) GetNote(ctx context.Context, id string) (application.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return application.Note{}, s.Err
	}
	note, ok := s.notes[id]
	if !ok {
		return application.Note{}, application.ErrNotFound
	}
	return note, nil
}

// ListNotes returns owner scoped notes, newest first.
func (s *MemoryStore) ListNotes(ctx context.Context, owner application.OwnerScope) ([]application.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := []application.Note{}
	if owner.Empty() {
		return out, nil
	}
	for _, n := range s.notes {
		if ownedBy(owner, n.TutorID, n.StudentID) {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// DeleteNote removes a note and its materials and returns the removed materials.
func (s *MemoryStore) DeleteNote(ctx context.Context, id string) ([]application.Material, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	if _, ok := s.notes[id]; !ok {
		return nil, application.ErrNotFound
	}
	delete(s.notes, id)

	removed := []application.Material{}
	for key, m := range s.materials {
		if m.NoteID == id {
			removed = append(removed, m)
			delete(s.materials, key)
		}
	}
	sort.Slice(removed, func(i, j int) bool { return removed[i].ID < removed[j].ID })
	return removed, nil
}

// CreateMaterial stores material metadata.
func (s *MemoryStore) CreateMaterial(ctx context.Context, material application.Material) (application.Material, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return application.Material{}, s.Err
	}
	s.materials[material.ID] = material
	return material, nil
}

// GetMaterial returns material metadata or application.ErrNotFound.
func (s *MemoryStore) GetMaterial(ctx context.Context, id string) (application.Material, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return application.Material{}, s.Err
	}
	material, ok := s.materials[id]
	if !ok {
		return application.Material{}, application.ErrNotFound
	}
	return material, nil
}

// ListMaterials returns owner scoped materials, newest first.
func (s *MemoryStore) ListMaterials(ctx context.Context, owner application.OwnerScope) ([]application.Material, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := []application.Material{}
	if owner.Empty() {
		return out, nil
	}
	for _, m := range s.materials {
		if ownedBy(owner, m.TutorID, m.StudentID) {
			out = append(out, m)
		}
	}
	sortMaterialsNewestFirst(out)
	return out, nil
}

// ListMaterialsForNotes returns materials attached to any of the notes.
func (s *MemoryStore) ListMaterialsForNotes(ctx context.Context, noteIDs []string) ([]application.Material, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	wanted := make(map[string]bool, len(noteIDs))
	for _, id := range noteIDs {
		wanted[id] = true
	}
	out := []application.Material{}
	for _, m := range s.materials {
		if wanted[m.NoteID] {
			out = append(out, m)
		}
	}
	sortMaterialsNewestFirst(out)
	return out, nil
}

// DeleteMaterial removes material metadata.
func (s *MemoryStore) DeleteMaterial(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, ok := s.materials[id]; !ok {
		return application.ErrNotFound
	}
	delete(s.materials, id)
	return nil
}

func sortMaterialsNewestFirst(materials []application.Material) {
	sort.Slice(materials, func(i, j int) bool {
		if materials[i].CreatedAt.Equal(materials[j].CreatedAt) {
			return materials[i].ID < materials[j].ID
		}
		return materials[i].CreatedAt.After(materials[j].CreatedAt)
	})
}

func ownedBy(owner application.OwnerScope, tutorID, studentID string) bool {
	if owner.TutorID != "" && tutorID != owner.TutorID {
		return false
	}
	if owner.StudentID != "" && studentID != owner.StudentID {
		return false
	}
	return true
}

// MemoryObjects is an in-memory object store.
type MemoryObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
}

// NewMemoryObjects returns an empty object store.
func NewMemoryObjects() *MemoryObjects {
	return &MemoryObjects{objects: make(map[string][]byte)}
}

// PutObject stores body under key.
func (o *MemoryObjects) PutObject(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return err
	}
	o.mu.Lock()
	o.objects[key] = buf.Bytes()
	o.mu.Unlock()
	return nil
}

// DeleteObject removes key.
func (o *MemoryObjects) DeleteObject(ctx context.Context, key string) error {
	o.mu.Lock()
	delete(o.objects, key)
	o.mu.Unlock()
	return nil
}

// PresignGet returns a fake signed URL for key.
func (o *MemoryObjects) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return "https://objects.test/" + strings.TrimPrefix(key, "/") + "?expires=" + ttl.String(), nil
}

// Has reports whether key is stored.
func (o *MemoryObjects) Has(key string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.objects[key]
	return ok
}
