package recurrence

import (
	"testing"
	"time"
)

func TestDescribe(t *testing.T) {
	t.Parallel()

	until := time.Date(2024, time.June, 30, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		name string
		rule *Rule
		want string
	}{
		{name: "nil rule", rule: nil, want: "Does not repeat"},
		{name: "daily", rule: &Rule{Frequency: FrequencyDaily}, want: "Daily"},
		{name: "weekly with days", rule: &Rule{Frequency: FrequencyWeekly, ByWeekday: []time.Weekday{time.Friday, time.Monday, time.Wednesday}}, want: "Weekly on Mon, Wed, Fri"},
		{name: "monthly", rule: &Rule{Frequency: FrequencyMonthly}, want: "Monthly"},
		{name: "count", rule: &Rule{Frequency: FrequencyDaily, Count: 3}, want: "Daily, 3 times"},
		{name: "single count", rule: &Rule{Frequency: FrequencyWeekly, Count: 1}, want: "Weekly, once"},
		{name: "until", rule: &Rule{Frequency: FrequencyMonthly, Until: &until}, want: "Monthly, until Jun 30, 2024"},
		{name: "invalid frequency", rule: &Rule{Frequency: "HOURLY"}, want: "Custom recurrence"},
	}

	for _, tc := range cases {
		if got := Describe(tc.rule); got != tc.want {
			t.Fatalf("%s: expected %q, got %q", tc.name, tc.want, got)
		}
	}
}

func TestDescribeText(t *testing.T) {
	t.Parallel()

	if got := DescribeText("  "); got != "Does not repeat" {
		t.Fatalf("expected blank rule to not repeat, got %q", got)
	}
	if got := DescribeText("FREQ=WEEKLY;BYDAY=MO,WE,FR"); got != "Weekly on Mon, Wed, Fri" {
		t.Fatalf("unexpected description %q", got)
	}
	if got := DescribeText("garbage"); got != "Custom recurrence" {
		t.Fatalf("expected fallback for unparseable rule, got %q", got)
	}
}

func TestDescribeEvent(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, time.January, 31, 10, 0, 0, 0, time.UTC)

	if got := DescribeEvent(Event{Start: start}); got != "Does not repeat" {
		t.Fatalf("unexpected description %q", got)
	}
	if got := DescribeEvent(Event{Start: start, Recurring: true, Rule: &Rule{Frequency: FrequencyMonthly, Count: 6}}); got != "Monthly on day 31, 6 times" {
		t.Fatalf("unexpected description %q", got)
	}
	if got := DescribeEvent(Event{Start: start, Recurring: true, Rule: &Rule{Frequency: FrequencyWeekly}}); got != "Weekly on Wed" {
		t.Fatalf("unexpected description %q", got)
	}
	if got := DescribeEvent(Event{Start: start, Recurring: true}); got != "Custom recurrence" {
		t.Fatalf("expected fallback for missing rule, got %q", got)
	}
}
