package recurrence

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Frequency represents supported recurrence intervals.
type Frequency string

const (
	// FrequencyDaily advances one calendar day per step.
	FrequencyDaily Frequency = "DAILY"
	// FrequencyWeekly advances one week per step, or walks the selected weekdays.
	FrequencyWeekly Frequency = "WEEKLY"
	// FrequencyMonthly advances one calendar month per step, clamping the day.
	FrequencyMonthly Frequency = "MONTHLY"
)

// Valid reports whether the frequency is one the engine can expand.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return true
	default:
		return false
	}
}

// Rule describes how an event repeats. A zero Count and nil Until leave the
// rule unbounded; expansion is then limited by the caller's cap.
type Rule struct {
	Frequency Frequency
	ByWeekday []time.Weekday
	Count     int
	Until     *time.Time
}

// ErrMalformedRule is matched by every RuleParseError.
var ErrMalformedRule = errors.New("recurrence: malformed rule")

// ErrMissingRule indicates a recurring event was supplied without a rule.
var ErrMissingRule = errors.New("recurrence: recurring event has no rule")

// RuleParseError reports a recurrence rule that cannot be parsed or expanded.
type RuleParseError struct {
	Input  string
	Field  string
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *RuleParseError) Error() string {
	if e == nil {
		return ""
	}
	msg := "recurrence: invalid rule"
	if e.Field != "" {
		msg += " field " + e.Field
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Input != "" {
		msg += fmt.Sprintf(" (%q)", e.Input)
	}
	return msg
}

// Unwrap returns the underlying cause, if any.
func (e *RuleParseError) Unwrap() error {
	return e.Err
}

// Is lets callers match any parse failure with errors.Is(err, ErrMalformedRule).
func (e *RuleParseError) Is(target error) bool {
	return target == ErrMalformedRule
}

var weekdayTokens = map[string]time.Weekday{
	"MO": time.Monday,
	"TU": time.Tuesday,
	"WE": time.Wednesday,
	"TH": time.Thursday,
	"FR": time.Friday,
	"SA": time.Saturday,
	"SU": time.Sunday,
}

var untilLayouts = []string{
	"20060102T150405Z",
	"20060102T150405",
	"20060102",
	time.RFC3339,
}

// ParseRule parses the RRULE subset stored alongside events, for example
// "FREQ=WEEKLY;BYDAY=MO,WE,FR;COUNT=5" or "FREQ=MONTHLY;UNTIL=20240630T235959Z".
func ParseRule(text string) (*Rule, error) {
	input := strings.TrimSpace(text)
	body := strings.TrimPrefix(strings.TrimPrefix(input, "RRULE:"), "rrule:")
	if body == "" {
		return nil, &RuleParseError{Input: text, Reason: "empty rule"}
	}

	rule := &Rule{}
	seen := make(map[string]struct{})
	for _, part := range strings.Split(body, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			return nil, &RuleParseError{Input: text, Field: part, Reason: "expected KEY=VALUE"}
		}
		key = strings.ToUpper(strings.TrimSpace(key))
		value = strings.TrimSpace(value)
		if _, dup := seen[key]; dup {
			return nil, &RuleParseError{Input: text, Field: key, Reason: "specified more than once"}
		}
		seen[key] = struct{}{}

		switch key {
		case "FREQ":
			rule.Frequency = Frequency(strings.ToUpper(value))
			if !rule.Frequency.Valid() {
				return nil, &RuleParseError{Input: text, Field: key, Reason: "unsupported frequency " + value}
			}
		case "BYDAY":
			days, err := parseWeekdays(value)
			if err != nil {
				return nil, &RuleParseError{Input: text, Field: key, Reason: err.Error()}
			}
			rule.ByWeekday = days
		case "COUNT":
			count, err := strconv.Atoi(value)
			if err != nil || count <= 0 {
				return nil, &RuleParseError{Input: text, Field: key, Reason: "must be a positive integer"}
			}
			rule.Count = count
		case "UNTIL":
			until, err := parseUntil(value)
			if err != nil {
				return nil, &RuleParseError{Input: text, Field: key, Reason: "unrecognised timestamp"}
			}
			rule.Until = &until
		case "INTERVAL":
			if value != "1" {
				return nil, &RuleParseError{Input: text, Field: key, Reason: "only an interval of 1 is supported"}
			}
		default:
			return nil, &RuleParseError{Input: text, Field: key, Reason: "unsupported field"}
		}
	}

	if rule.Frequency == "" {
		return nil, &RuleParseError{Input: text, Field: "FREQ", Reason: "frequency is required"}
	}
	return rule, nil
}

// Validate checks the rule can be expanded.
func (r *Rule) Validate() error {
	if r == nil {
		return &RuleParseError{Field: "FREQ", Reason: "rule is missing", Err: ErrMissingRule}
	}
	if !r.Frequency.Valid() {
		return &RuleParseError{Field: "FREQ", Reason: fmt.Sprintf("unsupported frequency %q", string(r.Frequency))}
	}
	if r.Count < 0 {
		return &RuleParseError{Field: "COUNT", Reason: "must not be negative"}
	}
	for _, day := range r.ByWeekday {
		if day < time.Sunday || day > time.Saturday {
			return &RuleParseError{Field: "BYDAY", Reason: fmt.Sprintf("weekday %d out of range", int(day))}
		}
	}
	return nil
}

// String renders the rule in the same RRULE subset ParseRule accepts.
func (r *Rule) String() string {
	if r == nil {
		return ""
	}
	parts := []string{"FREQ=" + string(r.Frequency)}
	if days := sortedWeekdays(r.ByWeekday); len(days) > 0 {
		tokens := make([]string, 0, len(days))
		for _, day := range days {
			tokens = append(tokens, weekdayToken(day))
		}
		parts = append(parts, "BYDAY="+strings.Join(tokens, ","))
	}
	if r.Count > 0 {
		parts = append(parts, "COUNT="+strconv.Itoa(r.Count))
	}
	if r.Until != nil {
		parts = append(parts, "UNTIL="+r.Until.UTC().Format("20060102T150405Z"))
	}
	return strings.Join(parts, ";")
}

func parseWeekdays(value string) ([]time.Weekday, error) {
	if value == "" {
		return nil, errors.New("at least one weekday is required")
	}
	days := make([]time.Weekday, 0, 7)
	for _, token := range strings.Split(value, ",") {
		token = strings.ToUpper(strings.TrimSpace(token))
		day, ok := weekdayTokens[token]
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q", token)
		}
		days = append(days, day)
	}
	return sortedWeekdays(days), nil
}

func parseUntil(value string) (time.Time, error) {
	var lastErr error
	for _, layout := range untilLayouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			if layout == "20060102" {
				// A date-only bound covers the whole day.
				t = t.Add(24*time.Hour - time.Nanosecond)
			}
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func weekdayToken(day time.Weekday) string {
	for token, d := range weekdayTokens {
		if d == day {
			return token
		}
	}
	return ""
}

// mondayIndex orders weekdays Monday-first (Monday = 0, Sunday = 6).
func mondayIndex(day time.Weekday) int {
	return (int(day) + 6) % 7
}

// sortedWeekdays returns a de-duplicated Monday-first copy of days.
func sortedWeekdays(days []time.Weekday) []time.Weekday {
	if len(days) == 0 {
		return nil
	}
	out := make([]time.Weekday, 0, len(days))
	for _, day := range days {
		if !slices.Contains(out, day) {
			out = append(out, day)
		}
	}
	slices.SortFunc(out, func(a, b time.Weekday) int {
		return mondayIndex(a) - mondayIndex(b)
	})
	return out
}
