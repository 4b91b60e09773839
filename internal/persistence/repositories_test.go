package persistence_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studystem/tutoring/internal/persistence"
	"github.com/studystem/tutoring/internal/testfixtures"
)

func TestRepositories_OwnerScopedEventListing(t *testing.T) {
	h := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	tutorA := testfixtures.Tutor()
	tutorB := testfixtures.Tutor()
	student := testfixtures.Student()
	other := testfixtures.Student()
	h.SeedProfiles(tutorA, tutorB, student, other)

	day := time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC)
	late := testfixtures.NewEventFixture(testfixtures.WithOwners(tutorA.ID, student.ID), testfixtures.WithStart(day.Add(16*time.Hour)))
	early := testfixtures.NewEventFixture(testfixtures.WithOwners(tutorB.ID, student.ID), testfixtures.WithStart(day.Add(9*time.Hour)))
	foreign := testfixtures.NewEventFixture(testfixtures.WithOwners(tutorA.ID, other.ID), testfixtures.WithStart(day.Add(12*time.Hour)))
	h.SeedEvents(late, early, foreign)

	forStudent, err := h.Events.ListEvents(ctx, persistence.EventFilter{Owner: persistence.OwnerFilter{StudentID: student.ID}})
	require.NoError(t, err)
	require.Len(t, forStudent, 2)
	assert.Equal(t, early.ID, forStudent[0].ID)
	assert.Equal(t, late.ID, forStudent[1].ID)

	forTutor, err := h.Events.ListEvents(ctx, persistence.EventFilter{Owner: persistence.OwnerFilter{TutorID: tutorA.ID}})
	require.NoError(t, err)
	require.Len(t, forTutor, 2)
	assert.Equal(t, foreign.ID, forTutor[0].ID)

	none, err := h.Events.ListEvents(ctx, persistence.EventFilter{})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRepositories_CreateEventRoundTrip(t *testing.T) {
	h := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	tutor := testfixtures.Tutor()
	student := testfixtures.Student()
	h.SeedProfiles(tutor, student)

	event := testfixtures.NewEventFixture(
		testfixtures.WithOwners(tutor.ID, student.ID),
		testfixtures.WithStart(time.Date(2024, time.March, 10, 14, 0, 0, 0, time.UTC)),
		testfixtures.WithDuration(90),
	)
	h.SeedEvents(event)

	stored, err := h.Events.GetEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.True(t, stored.End.Equal(time.Date(2024, time.March, 10, 15, 30, 0, 0, time.UTC)))
	assert.Equal(t, tutor.ID, stored.TutorID)
}

func TestRepositories_DeleteEventKeepsNotesAndMaterials(t *testing.T) {
	h := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	tutor := testfixtures.Tutor()
	student := testfixtures.Student()
	h.SeedProfiles(tutor, student)

	event := testfixtures.NewEventFixture(testfixtures.WithOwners(tutor.ID, student.ID))
	h.SeedEvents(event)

	note := testfixtures.NewNoteFixture(testfixtures.WithNoteOwners(tutor.ID, student.ID), testfixtures.WithNoteEvent(event.ID))
	h.SeedNotes(note)

	require.NoError(t, h.Events.DeleteEvent(ctx, event.ID))
	assert.ErrorIs(t, h.Events.DeleteEvent(ctx, event.ID), persistence.ErrNotFound)

	stored, err := h.Notes.GetNote(ctx, note.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.EventID)
}

func TestRepositories_DeleteNoteReturnsRemovedMaterials(t *testing.T) {
	h := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	tutor := testfixtures.Tutor()
	student := testfixtures.Student()
	h.SeedProfiles(tutor, student)

	note := testfixtures.NewNoteFixture(testfixtures.WithNoteOwners(tutor.ID, student.ID))
	h.SeedNotes(note)

	attached := testfixtures.NewMaterialFixture(testfixtures.WithMaterialOwners(tutor.ID, student.ID), testfixtures.WithMaterialNote(note.ID))
	loose := testfixtures.NewMaterialFixture(testfixtures.WithMaterialOwners(tutor.ID, student.ID))
	h.SeedMaterials(attached, loose)

	removed, err := h.Notes.DeleteNote(ctx, note.ID)
	require.NoError(t, err)
	require.Len(t, removed, 1)
	assert.Equal(t, attached.StoragePath, removed[0].StoragePath)

	remaining, err := h.Materials.ListMaterials(ctx, persistence.OwnerFilter{StudentID: student.ID})
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, loose.ID, remaining[0].ID)
}

func TestRepositories_RejectDanglingReferences(t *testing.T) {
	h := testfixtures.NewSQLiteHarness(t)

	tutor := testfixtures.Tutor()
	h.SeedProfiles(tutor)

	event := testfixtures.NewEventFixture(testfixtures.WithOwners(tutor.ID, "missing-student"))
	err := h.Events.CreateEvent(context.Background(), event.Persistence())
	assert.ErrorIs(t, err, persistence.ErrForeignKeyViolation)
}
