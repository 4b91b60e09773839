package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studystem/tutoring/internal/application"
	"github.com/studystem/tutoring/internal/calendar"
)

type fakeResolver struct {
	principal application.Principal
	err       error
	tokens    []string
}

func (f *fakeResolver) Resolve(ctx context.Context, token string) (application.Principal, error) {
	f.tokens = append(f.tokens, token)
	return f.principal, f.err
}

func TestSessionMiddleware(t *testing.T) {
	t.Parallel()

	t.Run("rejects requests without valid session tokens", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name           string
			cookie         *http.Cookie
			header         string
			resolveErr     error
			expectedStatus int
		}{
			{name: "missing credentials", expectedStatus: http.StatusUnauthorized},
			{name: "non bearer header", header: "Basic abc", expectedStatus: http.StatusUnauthorized},
			{
				name:           "unresolvable token",
				cookie:         &http.Cookie{Name: sessionCookieName, Value: "expired-token"},
				resolveErr:     application.ErrUnauthenticated,
				expectedStatus: http.StatusUnauthorized,
			},
			{
				name:           "profile with unknown role",
				header:         "Bearer valid",
				resolveErr:     application.ErrUnauthorized,
				expectedStatus: http.StatusForbidden,
			},
			{
				name:           "profile store down",
				header:         "Bearer valid",
				resolveErr:     application.ErrUpstreamUnavailable,
				expectedStatus: http.StatusServiceUnavailable,
			},
		}

		for _, tc := range tests {
			tc := tc
			t.Run(tc.name, func(t *testing.T) {
				t.Parallel()

				req := httptest.NewRequest(http.MethodGet, "/protected", nil)
				if tc.cookie != nil {
					req.AddCookie(tc.cookie)
				}
				if tc.header != "" {
					req.Header.Set("Authorization", tc.header)
				}
				recorder := httptest.NewRecorder()

				resolver := &fakeResolver{err: tc.resolveErr}
				handler := RequireSession(resolver, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					t.Error("next handler should not be called when authentication fails")
				}))
				handler.ServeHTTP(recorder, req)

				assert.Equal(t, tc.expectedStatus, recorder.Code)

				var body errorResponse
				require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
				assert.NotEmpty(t, body.Message)
			})
		}
	})

	t.Run("attaches authenticated principal to request context", func(t *testing.T) {
		t.Parallel()

		principal := application.Principal{UserID: "tutor-1", Role: calendar.RoleTutor}
		resolver := &fakeResolver{principal: principal}

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "bearer  signed-token ")
		recorder := httptest.NewRecorder()

		var captured application.Principal
		handler := RequireSession(resolver, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			require.True(t, ok)
			captured = p
			w.WriteHeader(http.StatusOK)
		}))
		handler.ServeHTTP(recorder, req)

		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.Equal(t, principal, captured)
		assert.Equal(t, []string{"signed-token"}, resolver.tokens)
	})

	t.Run("reads the session cookie when no header is sent", func(t *testing.T) {
		t.Parallel()

		resolver := &fakeResolver{principal: application.Principal{UserID: "student-1", Role: calendar.RoleStudent}}
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "cookie-token"})
		recorder := httptest.NewRecorder()

		RequireSession(resolver, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})).ServeHTTP(recorder, req)

		assert.Equal(t, http.StatusNoContent, recorder.Code)
		assert.Equal(t, []string{"cookie-token"}, resolver.tokens)
	})

	t.Run("maps unexpected resolver failures to 500", func(t *testing.T) {
		t.Parallel()

		resolver := &fakeResolver{err: errors.New("boom")}
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer token")
		recorder := httptest.NewRecorder()

		RequireSession(resolver, nil)(http.NotFoundHandler()).ServeHTTP(recorder, req)
		assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	})
}

func TestRequestLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	var fromContext *slog.Logger
	handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fromContext = LoggerFromContext(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	t.Run("generates a request id", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/events", nil))

		require.NotNil(t, fromContext)
		assert.Len(t, recorder.Header().Get("X-Request-ID"), 36)
		assert.Contains(t, buf.String(), `"status":418`)
		assert.Contains(t, buf.String(), `"path":"/events"`)
	})

	t.Run("keeps a caller supplied request id", func(t *testing.T) {
		buf.Reset()
		req := httptest.NewRequest(http.MethodGet, "/notes", nil)
		req.Header.Set("X-Request-ID", "req-42")
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, req)

		assert.Equal(t, "req-42", recorder.Header().Get("X-Request-ID"))
		assert.Contains(t, buf.String(), `"request_id":"req-42"`)
	})
}
