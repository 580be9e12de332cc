package recurrence

import (
	"errors"
	"iter"
	"time"
)

// DefaultMaxOccurrences caps expansion when the caller does not supply a limit.
const DefaultMaxOccurrences = 100

// ErrInvalidDuration indicates the event ends before it starts.
var ErrInvalidDuration = errors.New("recurrence: event end must not precede start")

// Event is the recurrence view of a calendar item.
type Event struct {
	Start     time.Time
	End       time.Time
	Recurring bool
	Rule      *Rule
}

// Occurrence represents one concrete instance of an event.
type Occurrence struct {
	Start time.Time
	End   time.Time
}

// Engine expands recurrence rules into occurrences.
type Engine struct {
	location *time.Location
	now      func() time.Time
	limit    int
}

// NewEngine constructs an Engine that performs calendar arithmetic in loc.
// If loc is nil, UTC is used. If now is nil, time.Now is used.
func NewEngine(loc *time.Location, now func() time.Time) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &Engine{location: loc, now: now, limit: DefaultMaxOccurrences}
}

// WithLimit returns a copy of the engine whose lookups (NextOccurrence,
// IsOccurrence) stop after limit occurrences.
func (e *Engine) WithLimit(limit int) *Engine {
	clone := *e
	if limit <= 0 {
		limit = DefaultMaxOccurrences
	}
	clone.limit = limit
	return &clone
}

// Location returns the zone calendar arithmetic is performed in.
func (e *Engine) Location() *time.Location {
	if e == nil || e.location == nil {
		return time.UTC
	}
	return e.location
}

// Sequence is a finite, restartable series of occurrences in chronological
// order. The zero Sequence is empty.
type Sequence struct {
	start    time.Time
	duration time.Duration
	rule     *Rule
	limit    int
	expanded bool
}

// Expand validates the event and returns its occurrences. The sequence stops
// at the first of the rule's Count, its Until bound, or maxOccurrences
// (DefaultMaxOccurrences when maxOccurrences <= 0). A non-recurring event
// yields exactly its own start and end.
func (e *Engine) Expand(event Event, maxOccurrences int) (Sequence, error) {
	loc := e.Location()

	start := event.Start.In(loc)
	end := event.End.In(loc)
	if end.Before(start) {
		return Sequence{}, ErrInvalidDuration
	}
	if maxOccurrences <= 0 {
		maxOccurrences = DefaultMaxOccurrences
	}

	seq := Sequence{start: start, duration: end.Sub(start), limit: maxOccurrences, expanded: true}
	if !event.Recurring {
		return seq, nil
	}

	if event.Rule == nil {
		return Sequence{}, &RuleParseError{Field: "FREQ", Reason: "recurring event has no rule", Err: ErrMissingRule}
	}
	if err := event.Rule.Validate(); err != nil {
		return Sequence{}, err
	}

	rule := *event.Rule
	rule.ByWeekday = sortedWeekdays(rule.ByWeekday)
	if rule.Until != nil {
		until := rule.Until.In(loc)
		rule.Until = &until
	}
	seq.rule = &rule
	return seq, nil
}

// GenerateOccurrences expands start/end under rule into a slice. A nil rule
// describes a non-recurring event.
func (e *Engine) GenerateOccurrences(start, end time.Time, rule *Rule, maxOccurrences int) ([]Occurrence, error) {
	seq, err := e.Expand(Event{Start: start, End: end, Recurring: rule != nil, Rule: rule}, maxOccurrences)
	if err != nil {
		return nil, err
	}
	return seq.Slice(), nil
}

// NextOccurrence returns the first occurrence starting strictly after after.
// The boolean is false when the event has no such occurrence within the
// engine's limit.
func (e *Engine) NextOccurrence(event Event, after time.Time) (Occurrence, bool, error) {
	seq, err := e.Expand(event, e.limit)
	if err != nil {
		return Occurrence{}, false, err
	}
	for occ := range seq.All() {
		if occ.Start.After(after) {
			return occ, true, nil
		}
	}
	return Occurrence{}, false, nil
}

// NextOccurrenceFromNow is NextOccurrence relative to the engine clock.
func (e *Engine) NextOccurrenceFromNow(event Event) (Occurrence, bool, error) {
	return e.NextOccurrence(event, e.now())
}

// IsOccurrence reports whether date falls on the same calendar day, in the
// engine location, as the start of one of the event's occurrences.
func (e *Engine) IsOccurrence(date time.Time, event Event) (bool, error) {
	seq, err := e.Expand(event, e.limit)
	if err != nil {
		return false, err
	}
	target := dayKey(date.In(e.Location()))
	for occ := range seq.All() {
		key := dayKey(occ.Start)
		if key == target {
			return true, nil
		}
		if key > target {
			return false, nil
		}
	}
	return false, nil
}

// All yields the occurrences in ascending order. Each call restarts the series.
func (s Sequence) All() iter.Seq[Occurrence] {
	return func(yield func(Occurrence) bool) {
		if !s.expanded {
			return
		}
		if s.rule == nil {
			yield(Occurrence{Start: s.start, End: s.start.Add(s.duration)})
			return
		}

		limit := s.limit
		if s.rule.Count > 0 && s.rule.Count < limit {
			limit = s.rule.Count
		}

		emitted := 0
		for candidate := range s.candidates() {
			if s.rule.Until != nil && candidate.After(*s.rule.Until) {
				return
			}
			if !yield(Occurrence{Start: candidate, End: candidate.Add(s.duration)}) {
				return
			}
			emitted++
			if emitted >= limit {
				return
			}
		}
	}
}

// Slice collects the sequence.
func (s Sequence) Slice() []Occurrence {
	out := make([]Occurrence, 0)
	for occ := range s.All() {
		out = append(out, occ)
	}
	return out
}

// candidates yields unbounded start times for the rule; All applies the bounds.
func (s Sequence) candidates() iter.Seq[time.Time] {
	rule := s.rule
	start := s.start

	switch rule.Frequency {
	case FrequencyDaily:
		return func(yield func(time.Time) bool) {
			for i := 0; ; i++ {
				candidate := start.AddDate(0, 0, i)
				if len(rule.ByWeekday) > 0 && !containsWeekday(rule.ByWeekday, candidate.Weekday()) {
					continue
				}
				if !yield(candidate) {
					return
				}
			}
		}
	case FrequencyWeekly:
		if len(rule.ByWeekday) == 0 {
			return func(yield func(time.Time) bool) {
				for i := 0; ; i++ {
					if !yield(start.AddDate(0, 0, 7*i)) {
						return
					}
				}
			}
		}
		weekStart := start.AddDate(0, 0, -mondayIndex(start.Weekday()))
		return func(yield func(time.Time) bool) {
			for week := 0; ; week++ {
				for _, day := range rule.ByWeekday {
					candidate := weekStart.AddDate(0, 0, 7*week+mondayIndex(day))
					if candidate.Before(start) {
						continue
					}
					if !yield(candidate) {
						return
					}
				}
			}
		}
	default:
		return func(yield func(time.Time) bool) {
			for i := 0; ; i++ {
				if !yield(addMonthsClamped(start, i)) {
					return
				}
			}
		}
	}
}

// addMonthsClamped moves t forward by months calendar months, keeping the
// day-of-month unless the target month is shorter.
func addMonthsClamped(t time.Time, months int) time.Time {
	loc := t.Location()
	first := time.Date(t.Year(), t.Month()+time.Month(months), 1, 0, 0, 0, 0, loc)
	last := time.Date(first.Year(), first.Month()+1, 0, 0, 0, 0, 0, loc).Day()
	day := t.Day()
	if day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc)
}

func containsWeekday(days []time.Weekday, day time.Weekday) bool {
	for _, d := range days {
		if d == day {
			return true
		}
	}
	return false
}

func dayKey(t time.Time) int {
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}
