package main

import (
	"context"
	"strings"

	"github.com/studystem/tutoring/internal/application"
	"github.com/studystem/tutoring/internal/calendar"
	"github.com/studystem/tutoring/internal/persistence"
)

type profileRepositoryAdapter struct {
	repo persistence.ProfileRepository
}

func newProfileRepositoryAdapter(repo persistence.ProfileRepository) *profileRepositoryAdapter {
	return &profileRepositoryAdapter{repo: repo}
}

func (a *profileRepositoryAdapter) CreateProfile(ctx context.Context, profile application.Profile) (application.Profile, error) {
	if err := a.repo.CreateProfile(ctx, toPersistenceProfile(profile)); err != nil {
		return application.Profile{}, err
	}
	return a.GetProfile(ctx, profile.ID)
}

func (a *profileRepositoryAdapter) GetProfile(ctx context.Context, id string) (application.Profile, error) {
	stored, err := a.repo.GetProfile(ctx, id)
	if err != nil {
		return application.Profile{}, err
	}
	return toApplicationProfile(stored), nil
}

func (a *profileRepositoryAdapter) ListProfiles(ctx context.Context, role calendar.Role) ([]application.Profile, error) {
	models, err := a.repo.ListProfiles(ctx, string(role))
	if err != nil {
		return nil, err
	}
	profiles := make([]application.Profile, 0, len(models))
	for _, model := range models {
		profiles = append(profiles, toApplicationProfile(model))
	}
	return profiles, nil
}

type eventRepositoryAdapter struct {
	repo persistence.EventRepository
}

func newEventRepositoryAdapter(repo persistence.EventRepository) *eventRepositoryAdapter {
	return &eventRepositoryAdapter{repo: repo}
}

func (a *eventRepositoryAdapter) CreateEvent(ctx context.Context, event application.SessionEvent) (application.SessionEvent, error) {
	if err := a.repo.CreateEvent(ctx, toPersistenceEvent(event)); err != nil {
		return application.SessionEvent{}, err
	}
	return a.GetEvent(ctx, event.ID)
}

func (a *eventRepositoryAdapter) GetEvent(ctx context.Context, id string) (application.SessionEvent, error) {
	stored, err := a.repo.GetEvent(ctx, id)
	if err != nil {
		return application.SessionEvent{}, err
	}
	return toApplicationEvent(stored), nil
}

func (a *eventRepositoryAdapter) ListEvents(ctx context.Context, filter application.EventRepositoryFilter) ([]application.SessionEvent, error) {
	models, err := a.repo.ListEvents(ctx, persistence.EventFilter{
		Owner:        toOwnerFilter(filter.Owner),
		StartsAfter:  filter.StartsAfter,
		StartsBefore: filter.StartsBefore,
	})
	if err != nil {
		return nil, err
	}
	events := make([]application.SessionEvent, 0, len(models))
	for _, model := range models {
		events = append(events, toApplicationEvent(model))
	}
	return events, nil
}

func (a *eventRepositoryAdapter) DeleteEvent(ctx context.Context, id string) error {
	return a.repo.DeleteEvent(ctx, id)
}

type noteRepositoryAdapter struct {
	repo persistence.NoteRepository
}

func newNoteRepositoryAdapter(repo persistence.NoteRepository) *noteRepositoryAdapter {
	return &noteRepositoryAdapter{repo: repo}
}

func (a *noteRepositoryAdapter) CreateNote(ctx context.Context, note application.Note) (application.Note, error) {
	if err := a.repo.CreateNote(ctx, toPersistenceNote(note)); err != nil {
		return application.Note{}, err
	}
	return a.GetNote(ctx, note.ID)
}

func (a *noteRepositoryAdapter) GetNote(ctx context.Context, id string) (application.Note, error) {
	stored, err := a.repo.GetNote(ctx, id)
	if err != nil {
		return application.Note{}, err
	}
	return toApplicationNote(stored), nil
}

func (a *noteRepositoryAdapter) ListNotes(ctx context.Context, owner application.OwnerScope) ([]application.Note, error) {
	models, err := a.repo.ListNotes(ctx, toOwnerFilter(owner))
	if err != nil {
		return nil, err
	}
	notes := make([]application.Note, 0, len(models))
	for _, model := range models {
		notes = append(notes, toApplicationNote(model))
	}
	return notes, nil
}

func (a *noteRepositoryAdapter) DeleteNote(ctx context.Context, id string) ([]application.Material, error) {
	removed, err := a.repo.DeleteNote(ctx, id)
	if err != nil {
		return nil, err
	}
	return toApplicationMaterials(removed), nil
}

type materialRepositoryAdapter struct {
	repo persistence.MaterialRepository
}

func newMaterialRepositoryAdapter(repo persistence.MaterialRepository) *materialRepositoryAdapter {
	return &materialRepositoryAdapter{repo: repo}
}

func (a *materialRepositoryAdapter) CreateMaterial(ctx context.Context, material application.Material) (application.Material, error) {
	if err := a.repo.CreateMaterial(ctx, toPersistenceMaterial(material)); err != nil {
		return application.Material{}, err
	}
	return a.GetMaterial(ctx, material.ID)
}

func (a *materialRepositoryAdapter) GetMaterial(ctx context.Context, id string) (application.Material, error) {
	stored, err := a.repo.GetMaterial(ctx, id)
	if err != nil {
		return application.Material{}, err
	}
	return toApplicationMaterial(stored), nil
}

func (a *materialRepositoryAdapter) ListMaterials(ctx context.Context, owner application.OwnerScope) ([]application.Material, error) {
	models, err := a.repo.ListMaterials(ctx, toOwnerFilter(owner))
	if err != nil {
		return nil, err
	}
	return toApplicationMaterials(models), nil
}

func (a *materialRepositoryAdapter) ListMaterialsForNotes(ctx context.Context, noteIDs []string) ([]application.Material, error) {
	models, err := a.repo.ListMaterialsForNotes(ctx, noteIDs)
	if err != nil {
		return nil, err
	}
	return toApplicationMaterials(models), nil
}

func (a *materialRepositoryAdapter) DeleteMaterial(ctx context.Context, id string) error {
	return a.repo.DeleteMaterial(ctx, id)
}

func toOwnerFilter(owner application.OwnerScope) persistence.OwnerFilter {
	return persistence.OwnerFilter{TutorID: owner.TutorID, StudentID: owner.StudentID}
}

func toApplicationProfile(model persistence.Profile) application.Profile {
	return application.Profile{
		ID:          model.ID,
		DisplayName: model.DisplayName,
		Email:       derefString(model.Email),
		Role:        calendar.Role(model.Role),
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}

func toPersistenceProfile(profile application.Profile) persistence.Profile {
	return persistence.Profile{
		ID:          profile.ID,
		DisplayName: profile.DisplayName,
		Email:       optionalString(profile.Email),
		Role:        string(profile.Role),
		CreatedAt:   profile.CreatedAt,
		UpdatedAt:   profile.UpdatedAt,
	}
}

func toApplicationEvent(model persistence.Event) application.SessionEvent {
	return application.SessionEvent{
		ID:        model.ID,
		Title:     model.Title,
		Start:     model.Start,
		End:       model.End,
		TutorID:   model.TutorID,
		StudentID: model.StudentID,
		Notes:     derefString(model.Notes),
		CreatedAt: model.CreatedAt,
	}
}

func toPersistenceEvent(event application.SessionEvent) persistence.Event {
	return persistence.Event{
		ID:        event.ID,
		Title:     event.Title,
		Start:     event.Start,
		End:       event.End,
		TutorID:   event.TutorID,
		StudentID: event.StudentID,
		Notes:     optionalString(event.Notes),
		CreatedAt: event.CreatedAt,
	}
}

func toApplicationNote(model persistence.Note) application.Note {
	return application.Note{
		ID:        model.ID,
		TutorID:   model.TutorID,
		StudentID: model.StudentID,
		EventID:   derefString(model.EventID),
		Title:     model.Title,
		Subject:   derefString(model.Subject),
		Content:   model.Content,
		CreatedAt: model.CreatedAt,
	}
}

func toPersistenceNote(note application.Note) persistence.Note {
	return persistence.Note{
		ID:        note.ID,
		TutorID:   note.TutorID,
		StudentID: note.StudentID,
		EventID:   optionalString(note.EventID),
		Title:     note.Title,
		Subject:   optionalString(note.Subject),
		Content:   note.Content,
		CreatedAt: note.CreatedAt,
	}
}

func toApplicationMaterial(model persistence.Material) application.Material {
	return application.Material{
		ID:          model.ID,
		TutorID:     model.TutorID,
		StudentID:   model.StudentID,
		NoteID:      derefString(model.NoteID),
		EventID:     derefString(model.EventID),
		StoragePath: model.StoragePath,
		Filename:    model.Filename,
		SizeBytes:   model.SizeBytes,
		MimeType:    model.MimeType,
		CreatedAt:   model.CreatedAt,
	}
}

func toApplicationMaterials(models []persistence.Material) []application.Material {
	materials := make([]application.Material, 0, len(models))
	for _, model := range models {
		materials = append(materials, toApplicationMaterial(model))
	}
	return materials
}

func toPersistenceMaterial(material application.Material) persistence.Material {
	return persistence.Material{
		ID:          material.ID,
		TutorID:     material.TutorID,
		StudentID:   material.StudentID,
		NoteID:      optionalString(material.NoteID),
		EventID:     optionalString(material.EventID),
		StoragePath: material.StoragePath,
		Filename:    material.Filename,
		SizeBytes:   material.SizeBytes,
		MimeType:    material.MimeType,
		CreatedAt:   material.CreatedAt,
	}
}

func optionalString(value string) *string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return &value
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
