package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/studystem/tutoring/internal/application"
)

var (
	errBadRequestBody      = errors.New("the request body is not valid JSON")
	errInvalidResourceID   = errors.New("the record id is missing from the path")
	errInvalidMonth        = errors.New("month must use the YYYY-MM format")
	errInvalidRange        = errors.New("from and to must be RFC 3339 timestamps")
	errMissingSessionToken = errors.New("a session token is required")
	errUploadTooLarge      = errors.New("the upload is larger than the allowed size")
	errBadMultipart        = errors.New("the upload must be a multipart form")
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// requestValidator returns the shared DTO validator. Field errors are keyed
// by the JSON name of the field.
func requestValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
			if name == "" {
				name = strings.SplitN(field.Tag.Get("form"), ",", 2)[0]
			}
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

type responder struct {
	logger *slog.Logger
	name   string
}

func newResponder(logger *slog.Logger, name string) responder {
	return responder{logger: defaultLogger(logger), name: name}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := http.StatusText(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).WarnContext(ctx, "request rejected", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

// decodeJSON reads a JSON body into dst and validates it. It writes the
// error response itself and reports whether the handler may continue.
func (r responder) decodeJSON(w http.ResponseWriter, req *http.Request, dst any) bool {
	decoder := json.NewDecoder(req.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		r.writeError(req.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return false
	}
	return r.validateRequest(w, req, dst)
}

func (r responder) validateRequest(w http.ResponseWriter, req *http.Request, dst any) bool {
	err := requestValidator().Struct(dst)
	if err == nil {
		return true
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		r.writeError(req.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return false
	}

	r.writeJSON(req.Context(), w, http.StatusUnprocessableEntity, errorResponse{
		Message: "the request contains invalid fields",
		Fields:  describeFieldErrors(fieldErrs),
	})
	return false
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	payload := errorResponse{Message: application.Message(err)}
	var vErr *application.ValidationError
	if errors.As(err, &vErr) && vErr.HasErrors() {
		payload.Fields = vErr.FieldErrors
	}

	status := statusForError(err)
	if status >= http.StatusInternalServerError {
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err)
	}
	r.writeJSON(ctx, w, status, payload)
}

func statusForError(err error) int {
	var vErr *application.ValidationError
	switch {
	case errors.Is(err, application.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, application.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, application.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, application.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, application.ErrInvalidReference),
		errors.Is(err, application.ErrInvalidInterval),
		errors.As(err, &vErr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, application.ErrUpstreamUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	return handlerLogger(ctx, r.logger, r.name, "")
}

// operationLogger returns the handler's logger tagged with one operation.
func (r responder) operationLogger(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, r.logger, r.name, operation, attrs...)
}

func describeFieldErrors(errs validator.ValidationErrors) map[string]string {
	fields := make(map[string]string, len(errs))
	for _, fieldErr := range errs {
		fields[fieldErr.Field()] = describeFieldError(fieldErr)
	}
	return fields
}

func describeFieldError(fieldErr validator.FieldError) string {
	name := strings.ReplaceAll(fieldErr.Field(), "_", " ")
	switch fieldErr.Tag() {
	case "required":
		return name + " is required"
	case "max":
		return name + " must be at most " + fieldErr.Param() + " characters"
	case "email":
		return name + " must be a valid email address"
	case "oneof":
		return name + " must be one of: " + fieldErr.Param()
	case "datetime":
		return name + " must be an RFC 3339 timestamp"
	case "gte", "min":
		return name + " must be at least " + fieldErr.Param()
	default:
		return name + " is invalid"
	}
}

type errorResponse struct {
	Message string            `json:"error"`
	Fields  map[string]string `json:"fields,omitempty"`
}
