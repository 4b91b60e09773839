package http

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studystem/tutoring/internal/testfixtures"
)

const samplePDF = "%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n"

type portalHarness struct {
	handler      http.Handler
	store        *testfixtures.MemoryStore
	objects      *testfixtures.MemoryObjects
	tutor        testfixtures.ProfileFixture
	otherTutor   testfixtures.ProfileFixture
	student      testfixtures.ProfileFixture
	otherStudent testfixtures.ProfileFixture
	admin        testfixtures.ProfileFixture
}

func newPortalHarness(t *testing.T) *portalHarness {
	t.Helper()

	h := &portalHarness{
		tutor:        testfixtures.Tutor(testfixtures.WithDisplayName("Tanaka")),
		otherTutor:   testfixtures.Tutor(testfixtures.WithDisplayName("Mori")),
		student:      testfixtures.Student(testfixtures.WithDisplayName("Aiko")),
		otherStudent: testfixtures.Student(testfixtures.WithDisplayName("Ben")),
		admin:        testfixtures.Admin(testfixtures.WithDisplayName("Root")),
		objects:      testfixtures.NewMemoryObjects(),
	}
	h.store = testfixtures.NewMemoryStore(h.tutor, h.otherTutor, h.student, h.otherStudent, h.admin)

	tokens := testfixtures.StaticTokens{
		"tutor-token":         h.tutor.ID,
		"other-tutor-token":   h.otherTutor.ID,
		"student-token":       h.student.ID,
		"other-student-token": h.otherStudent.ID,
		"admin-token":         h.admin.ID,
	}
	services := testfixtures.NewServiceFactory().NewServices(h.store, h.objects, tokens)

	h.handler = NewRouter(RouterConfig{
		Events:    NewEventHandler(services.Events, time.UTC, nil),
		Notes:     NewNoteHandler(services.Notes, time.UTC, nil),
		Materials: NewMaterialHandler(services.Materials, 0, time.UTC, nil),
		Profiles:  NewProfileHandler(services.Profiles, time.UTC, nil),
		Resolver:  services.Resolver,
	})
	return h
}

func (h *portalHarness) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	recorder := httptest.NewRecorder()
	h.handler.ServeHTTP(recorder, req)
	return recorder
}

func (h *portalHarness) upload(t *testing.T, token, studentID, noteID, filename, contentType, content string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("student_id", studentID))
	if noteID != "" {
		require.NoError(t, writer.WriteField("note_id", noteID))
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/materials", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	recorder := httptest.NewRecorder()
	h.handler.ServeHTTP(recorder, req)
	return recorder
}

func decode[T any](t *testing.T, recorder *httptest.ResponseRecorder) T {
	t.Helper()
	var value T
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &value), recorder.Body.String())
	return value
}

func (h *portalHarness) createEvent(t *testing.T, token, title, start string, minutes int, studentID string) eventDTO {
	t.Helper()
	recorder := h.do(t, http.MethodPost, "/events", token, map[string]any{
		"title":            title,
		"start":            start,
		"duration_minutes": minutes,
		"student_id":       studentID,
	})
	require.Equal(t, http.StatusCreated, recorder.Code, recorder.Body.String())
	return decode[eventResponse](t, recorder).Event
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	h := newPortalHarness(t)
	recorder := h.do(t, http.MethodGet, "/healthz", "", nil)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "ok", decode[healthResponse](t, recorder).Status)
}

func TestEventHandlers(t *testing.T) {
	t.Parallel()

	t.Run("requires a session", func(t *testing.T) {
		t.Parallel()
		h := newPortalHarness(t)

		assert.Equal(t, http.StatusUnauthorized, h.do(t, http.MethodGet, "/events", "", nil).Code)
		assert.Equal(t, http.StatusUnauthorized, h.do(t, http.MethodGet, "/events", "forged", nil).Code)
	})

	t.Run("tutor schedules a session that the student sees in the grid", func(t *testing.T) {
		t.Parallel()
		h := newPortalHarness(t)

		created := h.createEvent(t, "tutor-token", "Algebra", "2024-03-10T14:00:00Z", 90, h.student.ID)
		assert.Equal(t, "2024-03-10T15:30:00Z", created.End)
		assert.Equal(t, h.tutor.ID, created.TutorID)
		assert.Equal(t, 90, created.DurationMinutes)

		recorder := h.do(t, http.MethodGet, "/events?view=grid&month=2024-03", "student-token", nil)
		require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())

		grid := decode[gridDTO](t, recorder)
		assert.Equal(t, "March 2024", grid.Title)
		assert.Equal(t, "2024-03", grid.Month)
		assert.Equal(t, "2024-02", grid.Previous)
		assert.Equal(t, "2024-04", grid.Next)
		require.Len(t, grid.Cells, 42)

		// March 2024 starts on a Friday, so five leading cells come first.
		tenth := grid.Cells[5+9]
		assert.Equal(t, "2024-03-10", tenth.Date)
		assert.True(t, tenth.InMonth)
		require.Len(t, tenth.Events, 1)
		assert.Equal(t, "Algebra - 14:00", tenth.Events[0].Label)
		assert.Equal(t, created.ID, tenth.Events[0].ID)
	})

	t.Run("other students never see the session", func(t *testing.T) {
		t.Parallel()
		h := newPortalHarness(t)
		h.createEvent(t, "tutor-token", "Algebra", "2024-03-10T14:00:00Z", 60, h.student.ID)

		grid := decode[gridDTO](t, h.do(t, http.MethodGet, "/events?view=grid&month=2024-03", "other-student-token", nil))
		for _, cell := range grid.Cells {
			assert.Empty(t, cell.Events)
		}

		list := decode[listEventsResponse](t, h.do(t, http.MethodGet, "/events", "other-tutor-token", nil))
		assert.Empty(t, list.Events)
	})

	t.Run("list is chronological and marks past sessions", func(t *testing.T) {
		t.Parallel()
		h := newPortalHarness(t)

		later := h.createEvent(t, "tutor-token", "Later", "2024-02-20T10:00:00Z", 60, h.student.ID)
		earlier := h.createEvent(t, "tutor-token", "Earlier", "2024-02-05T10:00:00Z", 60, h.student.ID)

		recorder := h.do(t, http.MethodGet, "/events?view=list", "student-token", nil)
		require.Equal(t, http.StatusOK, recorder.Code)

		list := decode[listEventsResponse](t, recorder)
		require.Len(t, list.Events, 2)
		assert.Equal(t, earlier.ID, list.Events[0].ID)
		assert.True(t, list.Events[0].IsPast)
		assert.Equal(t, later.ID, list.Events[1].ID)
		assert.False(t, list.Events[1].IsPast)

		bounded := decode[listEventsResponse](t, h.do(t, http.MethodGet, "/events?from=2024-02-10T00:00:00Z", "student-token", nil))
		require.Len(t, bounded.Events, 1)
		assert.Equal(t, later.ID, bounded.Events[0].ID)
	})

	t.Run("rejects malformed query parameters", func(t *testing.T) {
		t.Parallel()
		h := newPortalHarness(t)

		assert.Equal(t, http.StatusBadRequest, h.do(t, http.MethodGet, "/events?view=grid&month=03-2024", "tutor-token", nil).Code)
		assert.Equal(t, http.StatusBadRequest, h.do(t, http.MethodGet, "/events?from=yesterday", "tutor-token", nil).Code)
	})

	t.Run("maps service errors to status codes", func(t *testing.T) {
		t.Parallel()
		h := newPortalHarness(t)

		tests := []struct {
			name   string
			token  string
			body   map[string]any
			status int
			field  string
		}{
			{
				name:   "students cannot schedule",
				token:  "student-token",
				body:   map[string]any{"title": "Self study", "start": "2024-03-10T14:00:00Z", "duration_minutes": 60, "student_id": h.student.ID},
				status: http.StatusForbidden,
			},
			{
				name:   "non positive duration",
				token:  "tutor-token",
				body:   map[string]any{"title": "Algebra", "start": "2024-03-10T14:00:00Z", "duration_minutes": 0, "student_id": h.student.ID},
				status: http.StatusUnprocessableEntity,
				field:  "duration_minutes",
			},
			{
				name:   "unknown student",
				token:  "tutor-token",
				body:   map[string]any{"title": "Algebra", "start": "2024-03-10T14:00:00Z", "duration_minutes": 60, "student_id": "ghost"},
				status: http.StatusUnprocessableEntity,
			},
			{
				name:   "start is not a timestamp",
				token:  "tutor-token",
				body:   map[string]any{"title": "Algebra", "start": "tomorrow", "duration_minutes": 60, "student_id": h.student.ID},
				status: http.StatusUnprocessableEntity,
				field:  "start",
			},
			{
				name:   "unknown json field",
				token:  "tutor-token",
				body:   map[string]any{"title": "Algebra", "room": "A"},
				status: http.StatusBadRequest,
			},
		}

		for _, tc := range tests {
			recorder := h.do(t, http.MethodPost, "/events", tc.token, tc.body)
			assert.Equal(t, tc.status, recorder.Code, tc.name)

			body := decode[errorResponse](t, recorder)
			assert.NotEmpty(t, body.Message, tc.name)
			if tc.field != "" {
				assert.Contains(t, body.Fields, tc.field, tc.name)
			}
		}
		assert.Equal(t, 0, h.store.EventCount())
	})

	t.Run("delete is limited to the owning tutor", func(t *testing.T) {
		t.Parallel()
		h := newPortalHarness(t)
		created := h.createEvent(t, "tutor-token", "Algebra", "2024-03-10T14:00:00Z", 60, h.student.ID)

		assert.Equal(t, http.StatusForbidden, h.do(t, http.MethodDelete, "/events/"+created.ID, "student-token", nil).Code)
		assert.Equal(t, http.StatusForbidden, h.do(t, http.MethodDelete, "/events/"+created.ID, "other-tutor-token", nil).Code)
		assert.Equal(t, http.StatusNoContent, h.do(t, http.MethodDelete, "/events/"+created.ID, "tutor-token", nil).Code)
		assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodDelete, "/events/"+created.ID, "tutor-token", nil).Code)
	})

	t.Run("unsupported methods are rejected", func(t *testing.T) {
		t.Parallel()
		h := newPortalHarness(t)

		recorder := h.do(t, http.MethodPut, "/events", "tutor-token", nil)
		assert.Equal(t, http.StatusMethodNotAllowed, recorder.Code)
		assert.Equal(t, "GET, POST", recorder.Header().Get("Allow"))
	})
}

func TestNoteAndMaterialHandlers(t *testing.T) {
	t.Parallel()

	t.Run("uploaded material is listed and linked for the student", func(t *testing.T) {
		t.Parallel()
		h := newPortalHarness(t)

		recorder := h.upload(t, "tutor-token", h.student.ID, "", "worksheet.pdf", "application/pdf", samplePDF)
		require.Equal(t, http.StatusCreated, recorder.Code, recorder.Body.String())

		material := decode[materialResponse](t, recorder).Material
		assert.Equal(t, "worksheet.pdf", material.Filename)
		assert.Equal(t, int64(len(samplePDF)), material.SizeBytes)
		assert.Equal(t, "77 Bytes", material.SizeLabel)

		listed := decode[listMaterialsResponse](t, h.do(t, http.MethodGet, "/materials", "student-token", nil))
		require.Len(t, listed.Materials, 1)

		linkRecorder := h.do(t, http.MethodGet, "/materials/"+material.ID+"/url", "student-token", nil)
		require.Equal(t, http.StatusOK, linkRecorder.Code, linkRecorder.Body.String())
		link := decode[materialLinkResponse](t, linkRecorder)
		assert.True(t, strings.HasPrefix(link.URL, "https://objects.test/"+h.student.ID+"/"))
		assert.Equal(t, "2024-02-10T10:00:00Z", link.ExpiresAt)

		assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodGet, "/materials/"+material.ID+"/url", "other-student-token", nil).Code)
	})

	t.Run("uploads must be pdf documents", func(t *testing.T) {
		t.Parallel()
		h := newPortalHarness(t)

		recorder := h.upload(t, "tutor-token", h.student.ID, "", "notes.pdf", "application/octet-stream", "plain text, not a pdf")
		assert.Equal(t, http.StatusUnprocessableEntity, recorder.Code)
		assert.Contains(t, decode[errorResponse](t, recorder).Fields, "file")

		recorder = h.upload(t, "student-token", h.student.ID, "", "worksheet.pdf", "application/pdf", samplePDF)
		assert.Equal(t, http.StatusForbidden, recorder.Code)
	})

	t.Run("deleting a note removes its materials", func(t *testing.T) {
		t.Parallel()
		h := newPortalHarness(t)

		recorder := h.do(t, http.MethodPost, "/notes", "tutor-token", map[string]any{
			"student_id": h.student.ID,
			"title":      "Quadratics",
			"subject":    "Math",
			"content":    "Practice factoring.",
		})
		require.Equal(t, http.StatusCreated, recorder.Code, recorder.Body.String())
		note := decode[noteResponse](t, recorder).Note

		uploaded := h.upload(t, "tutor-token", h.student.ID, note.ID, "factoring.pdf", "application/pdf", samplePDF)
		require.Equal(t, http.StatusCreated, uploaded.Code, uploaded.Body.String())

		notes := decode[listNotesResponse](t, h.do(t, http.MethodGet, "/notes", "student-token", nil))
		require.Len(t, notes.Notes, 1)
		require.Len(t, notes.Notes[0].Materials, 1)
		assert.Equal(t, "factoring.pdf", notes.Notes[0].Materials[0].Filename)

		assert.Equal(t, http.StatusForbidden, h.do(t, http.MethodDelete, "/notes/"+note.ID, "student-token", nil).Code)
		assert.Equal(t, http.StatusNoContent, h.do(t, http.MethodDelete, "/notes/"+note.ID, "tutor-token", nil).Code)

		remaining := decode[listMaterialsResponse](t, h.do(t, http.MethodGet, "/materials", "tutor-token", nil))
		assert.Empty(t, remaining.Materials)
	})

	t.Run("unknown material paths return 404", func(t *testing.T) {
		t.Parallel()
		h := newPortalHarness(t)

		assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodGet, "/materials/abc/preview", "tutor-token", nil).Code)
		assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodDelete, "/materials/missing", "tutor-token", nil).Code)
	})
}

func TestProfileHandlers(t *testing.T) {
	t.Parallel()

	t.Run("student directory is for tutors and admins", func(t *testing.T) {
		t.Parallel()
		h := newPortalHarness(t)

		assert.Equal(t, http.StatusForbidden, h.do(t, http.MethodGet, "/students", "student-token", nil).Code)

		recorder := h.do(t, http.MethodGet, "/students", "tutor-token", nil)
		require.Equal(t, http.StatusOK, recorder.Code)
		students := decode[listProfilesResponse](t, recorder).Profiles
		require.Len(t, students, 2)
		assert.Equal(t, "Aiko", students[0].DisplayName)
		assert.Equal(t, "Ben", students[1].DisplayName)
	})

	t.Run("admin creates profiles", func(t *testing.T) {
		t.Parallel()
		h := newPortalHarness(t)

		body := map[string]any{"display_name": "Chika", "email": "chika@example.com", "role": "student"}
		assert.Equal(t, http.StatusForbidden, h.do(t, http.MethodPost, "/profiles", "tutor-token", body).Code)

		recorder := h.do(t, http.MethodPost, "/profiles", "admin-token", body)
		require.Equal(t, http.StatusCreated, recorder.Code, recorder.Body.String())
		created := decode[profileResponse](t, recorder).Profile
		assert.Equal(t, "student", created.Role)
		assert.NotEmpty(t, created.ID)

		invalid := h.do(t, http.MethodPost, "/profiles", "admin-token", map[string]any{"display_name": "X", "role": "parent"})
		assert.Equal(t, http.StatusUnprocessableEntity, invalid.Code)
		assert.Contains(t, decode[errorResponse](t, invalid).Fields, "role")

		all := decode[listProfilesResponse](t, h.do(t, http.MethodGet, "/profiles", "admin-token", nil))
		assert.Len(t, all.Profiles, 6)
	})

	t.Run("me returns the caller", func(t *testing.T) {
		t.Parallel()
		h := newPortalHarness(t)

		recorder := h.do(t, http.MethodGet, "/me", "student-token", nil)
		require.Equal(t, http.StatusOK, recorder.Code)
		assert.Equal(t, h.student.ID, decode[profileResponse](t, recorder).Profile.ID)
	})
}

func TestHandlersLogWithRequestContext(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	tutor := testfixtures.Tutor()
	services := testfixtures.NewServiceFactory().NewServices(
		testfixtures.NewMemoryStore(tutor),
		testfixtures.NewMemoryObjects(),
		testfixtures.StaticTokens{"tutor-token": tutor.ID},
	)
	handler := NewRouter(RouterConfig{
		Events:     NewEventHandler(services.Events, time.UTC, logger),
		Resolver:   services.Resolver,
		Logger:     logger,
		Middleware: []func(http.Handler) http.Handler{RequestLogger(logger)},
	})

	req := httptest.NewRequest(http.MethodDelete, "/events/missing", nil)
	req.Header.Set("Authorization", "Bearer tutor-token")
	req.Header.Set("X-Request-ID", "req-7")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	require.Equal(t, http.StatusNotFound, recorder.Code)
	var entry map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var candidate map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &candidate))
		if candidate["msg"] == "session removal requested" {
			entry = candidate
		}
	}
	require.NotNil(t, entry, "expected a handler log entry in %s", buf.String())
	assert.Equal(t, "EventHandler", entry["handler"])
	assert.Equal(t, "Delete", entry["operation"])
	assert.Equal(t, "missing", entry["event_id"])
	assert.Equal(t, "req-7", entry["request_id"])
	assert.Equal(t, tutor.ID, entry["principal_id"])
}
