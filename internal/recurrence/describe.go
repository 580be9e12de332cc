package recurrence

import (
	"fmt"
	"strings"
	"time"
)

const (
	describeNone     = "Does not repeat"
	describeFallback = "Custom recurrence"
)

// Describe renders a short human readable summary of the rule. It never
// fails: rules it cannot interpret yield a generic label.
func Describe(rule *Rule) string {
	if rule == nil {
		return describeNone
	}
	if err := rule.Validate(); err != nil {
		return describeFallback
	}

	var b strings.Builder
	switch rule.Frequency {
	case FrequencyDaily:
		b.WriteString("Daily")
	case FrequencyWeekly:
		b.WriteString("Weekly")
	case FrequencyMonthly:
		b.WriteString("Monthly")
	}
	if days := sortedWeekdays(rule.ByWeekday); len(days) > 0 && rule.Frequency != FrequencyMonthly {
		b.WriteString(" on ")
		b.WriteString(weekdayList(days))
	}
	writeBounds(&b, rule)
	return b.String()
}

// DescribeText parses a stored rule and describes it. Empty text means the
// event does not repeat.
func DescribeText(text string) string {
	if strings.TrimSpace(text) == "" {
		return describeNone
	}
	rule, err := ParseRule(text)
	if err != nil {
		return describeFallback
	}
	return Describe(rule)
}

// DescribeEvent is Describe with the event's start filling in details the
// rule leaves implicit (the weekday of a plain weekly rule, the day of a
// monthly rule).
func DescribeEvent(event Event) string {
	if !event.Recurring {
		return describeNone
	}
	rule := event.Rule
	if rule == nil || rule.Validate() != nil {
		return describeFallback
	}
	if event.Start.IsZero() {
		return Describe(rule)
	}

	var b strings.Builder
	switch {
	case rule.Frequency == FrequencyWeekly && len(rule.ByWeekday) == 0:
		b.WriteString("Weekly on " + weekdayList([]time.Weekday{event.Start.Weekday()}))
	case rule.Frequency == FrequencyMonthly:
		fmt.Fprintf(&b, "Monthly on day %d", event.Start.Day())
	default:
		return Describe(rule)
	}
	writeBounds(&b, rule)
	return b.String()
}

func writeBounds(b *strings.Builder, rule *Rule) {
	switch {
	case rule.Count == 1:
		b.WriteString(", once")
	case rule.Count > 1:
		fmt.Fprintf(b, ", %d times", rule.Count)
	}
	if rule.Until != nil {
		b.WriteString(", until " + rule.Until.Format("Jan 2, 2006"))
	}
}

func weekdayList(days []time.Weekday) string {
	names := make([]string, 0, len(days))
	for _, day := range days {
		names = append(names, day.String()[:3])
	}
	return strings.Join(names, ", ")
}
