package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

// HealthChecker reports whether the backing store is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

type RouterConfig struct {
	Events     *EventHandler
	Notes      *NoteHandler
	Materials  *MaterialHandler
	Profiles   *ProfileHandler
	Resolver   PrincipalResolver
	Health     HealthChecker
	Logger     *slog.Logger
	Middleware []func(http.Handler) http.Handler
}

// NewRouter mounts every handler. Routes other than /healthz sit behind
// RequireSession when a resolver is configured.
func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	if cfg.Events != nil {
		mux.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Events.List(w, r)
			case http.MethodPost:
				cfg.Events.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		mux.HandleFunc("/events/", withResourceID("/events/", func(w http.ResponseWriter, r *http.Request, rest string) {
			if rest != "" {
				http.NotFound(w, r)
				return
			}
			if r.Method != http.MethodDelete {
				methodNotAllowed(w, http.MethodDelete)
				return
			}
			cfg.Events.Delete(w, r)
		}))
	}

	if cfg.Notes != nil {
		mux.HandleFunc("/notes", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Notes.List(w, r)
			case http.MethodPost:
				cfg.Notes.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		mux.HandleFunc("/notes/", withResourceID("/notes/", func(w http.ResponseWriter, r *http.Request, rest string) {
			if rest != "" {
				http.NotFound(w, r)
				return
			}
			if r.Method != http.MethodDelete {
				methodNotAllowed(w, http.MethodDelete)
				return
			}
			cfg.Notes.Delete(w, r)
		}))
	}

	if cfg.Materials != nil {
		mux.HandleFunc("/materials", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Materials.List(w, r)
			case http.MethodPost:
				cfg.Materials.Upload(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		mux.HandleFunc("/materials/", withResourceID("/materials/", func(w http.ResponseWriter, r *http.Request, rest string) {
			switch {
			case rest == "url" && r.Method == http.MethodGet:
				cfg.Materials.Link(w, r)
			case rest == "url":
				methodNotAllowed(w, http.MethodGet)
			case rest != "":
				http.NotFound(w, r)
			case r.Method == http.MethodDelete:
				cfg.Materials.Delete(w, r)
			default:
				methodNotAllowed(w, http.MethodDelete)
			}
		}))
	}

	if cfg.Profiles != nil {
		mux.HandleFunc("/students", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Profiles.Students(w, r)
		})
		mux.HandleFunc("/profiles", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Profiles.List(w, r)
			case http.MethodPost:
				cfg.Profiles.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		mux.HandleFunc("/me", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Profiles.Me(w, r)
		})
	}

	var protected http.Handler = mux
	if cfg.Resolver != nil {
		protected = RequireSession(cfg.Resolver, cfg.Logger)(mux)
	}

	root := http.NewServeMux()
	root.HandleFunc("/healthz", healthHandler(cfg.Health, newResponder(cfg.Logger, "HealthCheck")))
	root.Handle("/", protected)

	var handler http.Handler = root
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		if cfg.Middleware[i] != nil {
			handler = cfg.Middleware[i](handler)
		}
	}
	return handler
}

// withResourceID strips prefix, stores the first path segment as the
// resource id, and hands the remaining path to next.
func withResourceID(prefix string, next func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, rest, _ := strings.Cut(strings.TrimPrefix(r.URL.Path, prefix), "/")
		if id == "" {
			http.NotFound(w, r)
			return
		}
		r = r.WithContext(ContextWithResourceID(r.Context(), id))
		next(w, r, strings.Trim(rest, "/"))
	}
}

func healthHandler(checker HealthChecker, responder responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		if checker != nil {
			if err := checker.Ping(r.Context()); err != nil {
				responder.loggerFor(r.Context()).ErrorContext(r.Context(), "health check failed", "error", err)
				responder.writeJSON(r.Context(), w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
				return
			}
		}
		responder.writeJSON(r.Context(), w, http.StatusOK, healthResponse{Status: "ok"})
	}
}

type healthResponse struct {
	Status string `json:"status"`
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
