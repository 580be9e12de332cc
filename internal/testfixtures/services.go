package testfixtures

import (
	"io"
	"log/slog"
	"time"

	"github.com/example/campus-portal/internal/application"
	"github.com/example/campus-portal/internal/recurrence"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
	Suffixes    *IDGenerator
	Logger      *slog.Logger
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
		Suffixes:    NewIDGenerator(""),
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
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
	if factory.Suffixes == nil {
		factory.Suffixes = NewIDGenerator("")
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// WithLogger overrides the logger handed to services.
func WithLogger(logger *slog.Logger) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Logger = logger
	}
}

// NewDocumentRequestService builds a document request service, filling unset
// identifiers, clock and logger from the factory.
func (f *ServiceFactory) NewDocumentRequestService(deps application.DocumentRequestDeps) *application.DocumentRequestService {
	if deps.IDGenerator == nil {
		deps.IDGenerator = f.IDGenerator.NextFunc()
	}
	if deps.SuffixGenerator == nil {
		deps.SuffixGenerator = f.Suffixes.NextHex
	}
	if deps.Now == nil {
		deps.Now = f.Clock.NowFunc()
	}
	if deps.Logger == nil {
		deps.Logger = f.Logger
	}
	return application.NewDocumentRequestService(deps)
}

// NewScholarshipService builds a scholarship service with factory defaults.
func (f *ServiceFactory) NewScholarshipService(deps application.ScholarshipDeps) *application.ScholarshipService {
	if deps.IDGenerator == nil {
		deps.IDGenerator = f.IDGenerator.NextFunc()
	}
	if deps.Now == nil {
		deps.Now = f.Clock.NowFunc()
	}
	if deps.Logger == nil {
		deps.Logger = f.Logger
	}
	return application.NewScholarshipService(deps)
}

// NewEventService builds an event service whose recurrence engine shares the
// factory clock.
func (f *ServiceFactory) NewEventService(deps application.EventServiceDeps) *application.EventService {
	if deps.IDGenerator == nil {
		deps.IDGenerator = f.IDGenerator.NextFunc()
	}
	if deps.Now == nil {
		deps.Now = f.Clock.NowFunc()
	}
	if deps.Engine == nil {
		deps.Engine = recurrence.NewEngine(time.UTC, deps.Now)
	}
	if deps.Logger == nil {
		deps.Logger = f.Logger
	}
	return application.NewEventService(deps)
}
