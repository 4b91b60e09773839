package application

import (
	"context"
	"io"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/studystem/tutoring/internal/calendar"
)

var testNow = time.Date(2024, 2, 10, 9, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return testNow }

func sequentialIDs(prefix string) func() string {
	var (
		mu sync.Mutex
		n  int
	)
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return prefix + "-" + strconv.Itoa(n)
	}
}

var (
	tutorA  = Principal{UserID: "tutor-a", DisplayName: "Ada", Role: calendar.RoleTutor}
	tutorB  = Principal{UserID: "tutor-b", DisplayName: "Bea", Role: calendar.RoleTutor}
	admin   = Principal{UserID: "admin-1", DisplayName: "Root", Role: calendar.RoleAdmin}
	student = Principal{UserID: "student-1", DisplayName: "Sam", Role: calendar.RoleStudent}
)

type profileRepoStub struct {
	mu       sync.Mutex
	profiles map[string]Profile
	created  []Profile
	err      error
}

func newProfileRepoStub(profiles ...Profile) *profileRepoStub {
	stub := &profileRepoStub{profiles: make(map[string]Profile)}
	for _, p := range profiles {
		stub.profiles[p.ID] = p
	}
	return stub
}

func defaultProfiles() *profileRepoStub {
	return newProfileRepoStub(
		Profile{ID: tutorA.UserID, DisplayName: tutorA.DisplayName, Role: calendar.RoleTutor},
		Profile{ID: tutorB.UserID, DisplayName: tutorB.DisplayName, Role: calendar.RoleTutor},
		Profile{ID: admin.UserID, DisplayName: admin.DisplayName, Role: calendar.RoleAdmin},
		Profile{ID: student.UserID, DisplayName: student.DisplayName, Role: calendar.RoleStudent},
		Profile{ID: "student-2", DisplayName: "Ola", Role: calendar.RoleStudent},
	)
}

func (s *profileRepoStub) CreateProfile(ctx context.Context, profile Profile) (Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return Profile{}, s.err
	}
	s.profiles[profile.ID] = profile
	s.created = append(s.created, profile)
	return profile, nil
}

func (s *profileRepoStub) GetProfile(ctx context.Context, id string) (Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return Profile{}, s.err
	}
	profile, ok := s.profiles[id]
	if !ok {
		return Profile{}, ErrNotFound
	}
	return profile, nil
}

func (s *profileRepoStub) ListProfiles(ctx context.Context, role calendar.Role) ([]Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := []Profile{}
	for _, p := range s.profiles {
		if role == "" || p.Role == role {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// eventStoreStub keeps events in memory and honors the owner filter.
type eventStoreStub struct {
	mu        sync.Mutex
	events    map[string]SessionEvent
	err       error
	listErr   error
	lastQuery EventRepositoryFilter
}

func newEventStoreStub(events ...SessionEvent) *eventStoreStub {
	stub := &eventStoreStub{events: make(map[string]SessionEvent)}
	for _, e := range events {
		stub.events[e.ID] = e
	}
	return stub
}

func (s *eventStoreStub) CreateEvent(ctx context.Context, event SessionEvent) (SessionEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return SessionEvent{}, s.err
	}
	s.events[event.ID] = event
	return event, nil
}

func (s *eventStoreStub) GetEvent(ctx context.Context, id string) (SessionEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return SessionEvent{}, s.err
	}
	event, ok := s.events[id]
	if !ok {
		return SessionEvent{}, ErrNotFound
	}
	return event, nil
}

func (s *eventStoreStub) ListEvents(ctx context.Context, filter EventRepositoryFilter) ([]SessionEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastQuery = filter
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := []SessionEvent{}
	for _, e := range s.events {
		if filter.Owner.TutorID != "" && e.TutorID != filter.Owner.TutorID {
			continue
		}
		if filter.Owner.StudentID != "" && e.StudentID != filter.Owner.StudentID {
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
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *eventStoreStub) DeleteEvent(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if _, ok := s.events[id]; !ok {
		return ErrNotFound
	}
	delete(s.events, id)
	return nil
}

func (s *eventStoreStub) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

type noteStoreStub struct {
	mu        sync.Mutex
	notes     map[string]Note
	materials *materialStoreStub
	err       error
}

func newNoteStoreStub(materials *materialStoreStub, notes ...Note) *noteStoreStub {
	stub := &noteStoreStub{notes: make(map[string]Note), materials: materials}
	for _, n := range notes {
		stub.notes[n.ID] = n
	}
	return stub
}

func (s *noteStoreStub) CreateNote(ctx context.Context, note Note) (Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return Note{}, s.err
	}
	s.notes[note.ID] = note
	return note, nil
}

func (s *noteStoreStub) GetNote(ctx context.Context, id string) (Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	note, ok := s.notes[id]
	if !ok {
		return Note{}, ErrNotFound
	}
	return note, nil
}

func (s *noteStoreStub) ListNotes(ctx context.Context, owner OwnerScope) ([]Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := []Note{}
	for _, n := range s.notes {
		if owner.TutorID != "" && n.TutorID != owner.TutorID {
			continue
		}
		if owner.StudentID != "" && n.StudentID != owner.StudentID {
			continue
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *noteStoreStub) DeleteNote(ctx context.Context, id string) ([]Material, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	if _, ok := s.notes[id]; !ok {
		return nil, ErrNotFound
	}
	delete(s.notes, id)
	if s.materials == nil {
		return nil, nil
	}
	return s.materials.removeForNote(id), nil
}

type materialStoreStub struct {
	mu        sync.Mutex
	materials map[string]Material
	createErr error
	err       error
}

func newMaterialStoreStub(materials ...Material) *materialStoreStub {
	stub := &materialStoreStub{materials: make(map[string]Material)}
	for _, m := range materials {
		stub.materials[m.ID] = m
	}
	return stub
}

func (s *materialStoreStub) CreateMaterial(ctx context.Context, material Material) (Material, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return Material{}, s.createErr
	}
	s.materials[material.ID] = material
	return material, nil
}

func (s *materialStoreStub) GetMaterial(ctx context.Context, id string) (Material, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	material, ok := s.materials[id]
	if !ok {
		return Material{}, ErrNotFound
	}
	return material, nil
}

func (s *materialStoreStub) ListMaterials(ctx context.Context, owner OwnerScope) ([]Material, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := []Material{}
	for _, m := range s.materials {
		if owner.TutorID != "" && m.TutorID != owner.TutorID {
			continue
		}
		if owner.StudentID != "" && m.StudentID != owner.StudentID {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *materialStoreStub) ListMaterialsForNotes(ctx context.Context, noteIDs []string) ([]Material, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	wanted := make(map[string]bool, len(noteIDs))
	for _, id := range noteIDs {
		wanted[id] = true
	}
	out := []Material{}
	for _, m := range s.materials {
		if wanted[m.NoteID] {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *materialStoreStub) DeleteMaterial(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.materials[id]; !ok {
		return ErrNotFound
	}
	delete(s.materials, id)
	return nil
}

func (s *materialStoreStub) removeForNote(noteID string) []Material {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := []Material{}
	for id, m := range s.materials {
		if m.NoteID == noteID {
			removed = append(removed, m)
			delete(s.materials, id)
		}
	}
	return removed
}

func (s *materialStoreStub) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.materials)
}

type objectStoreStub struct {
	mu        sync.Mutex
	objects   map[string][]byte
	deleted   []string
	putErr    error
	deleteErr error
	signErr   error
	signedTTL time.Duration
}

func newObjectStoreStub() *objectStoreStub {
	return &objectStoreStub{objects: make(map[string][]byte)}
}

func (s *objectStoreStub) PutObject(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	if s.putErr != nil {
		return s.putErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return nil
}

func (s *objectStoreStub) DeleteObject(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, key)
	if s.deleteErr != nil {
		return s.deleteErr
	}
	delete(s.objects, key)
	return nil
}

func (s *objectStoreStub) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if s.signErr != nil {
		return "", s.signErr
	}
	s.mu.Lock()
	s.signedTTL = ttl
	s.mu.Unlock()
	return "https://objects.test/" + key + "?sig=abc", nil
}

func (s *objectStoreStub) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok
}
