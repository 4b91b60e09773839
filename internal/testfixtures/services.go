package testfixtures

import (
	"errors"
	"log/slog"
	"time"

	"github.com/studystem/tutoring/internal/application"
)

// ServiceFactory builds application services with a controllable clock and
// predictable identifiers.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
	Logger      *slog.Logger
}

// ServiceFactoryOption configures a ServiceFactory.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory returns a factory starting at ReferenceTime with "id-N" identifiers.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	return factory
}

// WithClock overrides the factory clock.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the factory identifier generator.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// WithLogger sets the logger handed to every service.
func WithLogger(logger *slog.Logger) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Logger = logger
	}
}

// Services groups the application services wired over one store.
type Services struct {
	Events    *application.EventService
	Profiles  *application.ProfileService
	Notes     *application.NoteService
	Materials *application.MaterialService
	Resolver  *application.RoleResolver
}

// NewServices wires every service over store and objects. tokens may be nil
// when the resolver is not needed.
func (f *ServiceFactory) NewServices(store *MemoryStore, objects *MemoryObjects, tokens application.TokenVerifier) Services {
	idGen := f.IDGenerator.NextFunc()
	now := f.Clock.NowFunc()

	return Services{
		Events:   application.NewEventServiceWithLogger(store, store, idGen, now, f.Logger),
		Profiles: application.NewProfileServiceWithLogger(store, idGen, now, f.Logger),
		Notes: application.NewNoteServiceWithLogger(application.NoteServiceDeps{
			Notes:     store,
			Materials: store,
			Events:    store,
			Profiles:  store,
			Objects:   objects,
		}, idGen, now, f.Logger),
		Materials: application.NewMaterialServiceWithLogger(application.MaterialServiceDeps{
			Materials: store,
			Notes:     store,
			Events:    store,
			Profiles:  store,
			Objects:   objects,
		}, application.MaterialOptions{}, idGen, now, f.Logger),
		Resolver: application.NewRoleResolverWithLogger(tokens, store, 0, now, f.Logger),
	}
}

// StaticTokens maps bearer tokens to profile ids.
type StaticTokens map[string]string

// VerifyToken returns the profile id registered for token.
func (t StaticTokens) VerifyToken(token string) (string, error) {
	subject, ok := t[token]
	if !ok {
		return "", errors.New("unknown token")
	}
	return subject, nil
}
