package application

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/example/campus-portal/internal/persistence"
	"github.com/example/campus-portal/internal/recurrence"
)

// EventServiceDeps captures dependencies for constructing an EventService.
type EventServiceDeps struct {
	Events      persistence.EventRepository
	Engine      *recurrence.Engine
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger

	// MaxOccurrences caps Occurrences regardless of the caller's limit.
	MaxOccurrences int
}

// EventService manages organizer calendars and expands their recurrence rules.
type EventService struct {
	events      persistence.EventRepository
	engine      *recurrence.Engine
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
	maxOccur    int
}

// NewEventService constructs the service with the provided dependencies.
func NewEventService(deps EventServiceDeps) *EventService {
	s := &EventService{
		events:      deps.Events,
		engine:      deps.Engine,
		idGenerator: deps.IDGenerator,
		now:         deps.Now,
		logger:      defaultLogger(deps.Logger),
		maxOccur:    deps.MaxOccurrences,
	}
	if s.maxOccur <= 0 {
		s.maxOccur = recurrence.DefaultMaxOccurrences
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.engine == nil {
		s.engine = recurrence.NewEngine(time.UTC, s.now)
	}
	if s.idGenerator == nil {
		s.idGenerator = func() string { return "" }
	}
	return s
}

func (s *EventService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "EventService", operation, attrs...)
}

// CreateEvent stores a draft event after validating its schedule and rule.
func (s *EventService) CreateEvent(ctx context.Context, principal Principal, input EventInput) (event persistence.Event, err error) {
	logger := s.loggerWith(ctx, "CreateEvent", "principal_id", principal.UserID, "organizer", input.Organizer)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create event", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "event created", "event_id", event.ID)
	}()

	if !principal.IsStaff {
		err = ErrUnauthorized
		return
	}
	if err = s.validateInput(input); err != nil {
		return
	}

	now := s.now()
	event = persistence.Event{
		ID:             s.idGenerator(),
		Title:          strings.TrimSpace(input.Title),
		Description:    strings.TrimSpace(input.Description),
		Location:       strings.TrimSpace(input.Location),
		Organizer:      input.Organizer,
		Start:          input.Start,
		End:            input.End,
		RecurrenceRule: normalizedRule(input.RecurrenceRule),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err = s.events.CreateEvent(ctx, event); err != nil {
		err = mapEventRepoError(err)
		event = persistence.Event{}
	}
	return
}

// UpdateEvent replaces an event's details. Once published, an event's start,
// end and recurrence rule are fixed.
func (s *EventService) UpdateEvent(ctx context.Context, principal Principal, id string, input EventInput) (event persistence.Event, err error) {
	logger := s.loggerWith(ctx, "UpdateEvent", "event_id", id, "principal_id", principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update event", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "event updated")
	}()

	if !principal.IsStaff {
		err = ErrUnauthorized
		return
	}
	if err = s.validateInput(input); err != nil {
		return
	}

	var existing persistence.Event
	existing, err = s.events.GetEvent(ctx, id)
	if err != nil {
		err = mapEventRepoError(err)
		return
	}

	rule := normalizedRule(input.RecurrenceRule)
	if existing.PublishedAt != nil &&
		(!existing.Start.Equal(input.Start) || !existing.End.Equal(input.End) || existing.RecurrenceRule != rule) {
		err = ErrEventPublished
		return
	}

	event = existing
	event.Title = strings.TrimSpace(input.Title)
	event.Description = strings.TrimSpace(input.Description)
	event.Location = strings.TrimSpace(input.Location)
	event.Organizer = input.Organizer
	event.Start = input.Start
	event.End = input.End
	event.RecurrenceRule = rule
	event.UpdatedAt = s.now()

	if err = s.events.UpdateEvent(ctx, event); err != nil {
		err = mapEventRepoError(err)
		event = persistence.Event{}
	}
	return
}

// PublishEvent makes an event visible on the organizer calendar. Publishing
// an already published event is a no-op.
func (s *EventService) PublishEvent(ctx context.Context, principal Principal, id string) (event persistence.Event, err error) {
	logger := s.loggerWith(ctx, "PublishEvent", "event_id", id, "principal_id", principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to publish event", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "event published")
	}()

	if !principal.IsStaff {
		err = ErrUnauthorized
		return
	}
	event, err = s.events.GetEvent(ctx, id)
	if err != nil {
		err = mapEventRepoError(err)
		return
	}
	if event.PublishedAt != nil {
		return
	}
	if _, err = s.recurrenceEvent(event); err != nil {
		return
	}

	now := s.now()
	event.PublishedAt = &now
	event.UpdatedAt = now
	if err = s.events.UpdateEvent(ctx, event); err != nil {
		err = mapEventRepoError(err)
	}
	return
}

// DeleteEvent removes a draft event. Published events stay on the calendar.
func (s *EventService) DeleteEvent(ctx context.Context, principal Principal, id string) error {
	if !principal.IsStaff {
		return ErrUnauthorized
	}
	event, err := s.events.GetEvent(ctx, id)
	if err != nil {
		return mapEventRepoError(err)
	}
	if event.PublishedAt != nil {
		return ErrEventPublished
	}
	if err := s.events.DeleteEvent(ctx, id); err != nil {
		return mapEventRepoError(err)
	}
	s.loggerWith(ctx, "DeleteEvent", "event_id", id, "principal_id", principal.UserID).InfoContext(ctx, "event deleted")
	return nil
}

// GetEvent returns a stored event.
func (s *EventService) GetEvent(ctx context.Context, id string) (persistence.Event, error) {
	event, err := s.events.GetEvent(ctx, id)
	if err != nil {
		return persistence.Event{}, mapEventRepoError(err)
	}
	return event, nil
}

// ListEvents returns events matching filter.
func (s *EventService) ListEvents(ctx context.Context, filter persistence.EventFilter) ([]persistence.Event, error) {
	events, err := s.events.ListEvents(ctx, filter)
	if err != nil {
		return nil, mapEventRepoError(err)
	}
	return events, nil
}

// Occurrences expands the stored event into at most max occurrences. A
// non-positive max, or one above the service cap, uses the cap.
func (s *EventService) Occurrences(ctx context.Context, id string, max int) ([]recurrence.Occurrence, error) {
	event, err := s.loadRecurrence(ctx, id)
	if err != nil {
		return nil, err
	}
	if max <= 0 || max > s.maxOccur {
		max = s.maxOccur
	}
	seq, err := s.engine.Expand(event, max)
	if err != nil {
		return nil, err
	}
	return seq.Slice(), nil
}

// NextOccurrence returns the event's next occurrence after the current time.
func (s *EventService) NextOccurrence(ctx context.Context, id string) (recurrence.Occurrence, bool, error) {
	event, err := s.loadRecurrence(ctx, id)
	if err != nil {
		return recurrence.Occurrence{}, false, err
	}
	return s.engine.NextOccurrence(event, s.now())
}

// OccursOn reports whether the event has an occurrence on date's calendar day.
func (s *EventService) OccursOn(ctx context.Context, id string, date time.Time) (bool, error) {
	event, err := s.loadRecurrence(ctx, id)
	if err != nil {
		return false, err
	}
	return s.engine.IsOccurrence(date, event)
}

// DescribeRecurrence returns a human readable summary of the event's rule.
// Unlike the expansion methods it falls back to a generic label for a rule
// that does not parse.
func (s *EventService) DescribeRecurrence(ctx context.Context, id string) (string, error) {
	stored, err := s.events.GetEvent(ctx, id)
	if err != nil {
		return "", mapEventRepoError(err)
	}
	event, err := s.recurrenceEvent(stored)
	if err != nil {
		return recurrence.DescribeText(stored.RecurrenceRule), nil
	}
	return recurrence.DescribeEvent(event), nil
}

func (s *EventService) loadRecurrence(ctx context.Context, id string) (recurrence.Event, error) {
	stored, err := s.events.GetEvent(ctx, id)
	if err != nil {
		return recurrence.Event{}, mapEventRepoError(err)
	}
	return s.recurrenceEvent(stored)
}

// recurrenceEvent converts a stored event. A rule that no longer parses is
// reported rather than treated as a one-off event.
func (s *EventService) recurrenceEvent(stored persistence.Event) (recurrence.Event, error) {
	event := recurrence.Event{Start: stored.Start, End: stored.End}
	if stored.RecurrenceRule == "" {
		return event, nil
	}
	rule, err := recurrence.ParseRule(stored.RecurrenceRule)
	if err != nil {
		return recurrence.Event{}, err
	}
	event.Recurring = true
	event.Rule = rule
	return event, nil
}

func (s *EventService) validateInput(input EventInput) error {
	vErr := validateStruct(input)
	if rule := normalizedRule(input.RecurrenceRule); rule != "" {
		if _, err := recurrence.ParseRule(rule); err != nil {
			if !vErr.HasErrors() {
				return err
			}
			vErr.add("recurrence_rule", err.Error())
		}
	}
	if vErr.HasErrors() {
		return vErr
	}
	return nil
}

func normalizedRule(rule string) string {
	rule = strings.TrimSpace(rule)
	return strings.TrimPrefix(rule, "RRULE:")
}

func mapEventRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		return ErrAlreadyExists
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		return fieldError("event", "violates a data constraint")
	}
	return err
}
