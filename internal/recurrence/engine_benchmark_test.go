package recurrence

import (
	"testing"
	"time"
)

func BenchmarkEngine_GenerateOccurrences(b *testing.B) {
	engine := NewEngine(time.UTC, nil)
	start := time.Date(2024, time.January, 1, 8, 0, 0, 0, time.UTC)
	rule := &Rule{
		Frequency: FrequencyWeekly,
		ByWeekday: []time.Weekday{time.Monday, time.Wednesday, time.Friday},
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := engine.GenerateOccurrences(start, start.Add(90*time.Minute), rule, DefaultMaxOccurrences); err != nil {
			b.Fatalf("GenerateOccurrences returned error: %v", err)
		}
	}
}
