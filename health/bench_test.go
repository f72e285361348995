package health

import (
	"context"
	"testing"

	"github.com/jonwraymond/toolexec/resilience"
)

func BenchmarkBreakerChecker_Check(b *testing.B) {
	states := make(staticStates, 50)
	for i := 0; i < 50; i++ {
		states[string(rune('a'+i%26))+"tool"] = resilience.StateClosed
	}
	checker := NewBreakerChecker(states)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		checker.Check(ctx)
	}
}

func BenchmarkAggregator_CheckAll(b *testing.B) {
	agg := NewAggregator()
	agg.Register("a", staticChecker("a", Healthy("fine")))
	agg.Register("b", staticChecker("b", Healthy("fine")))
	agg.Register("c", staticChecker("c", Degraded("wobbly")))
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		agg.CheckAll(ctx)
	}
}

func BenchmarkAggregator_OverallStatus(b *testing.B) {
	agg := NewAggregator()
	results := map[string]Result{
		"a": {Status: StatusHealthy},
		"b": {Status: StatusDegraded},
		"c": {Status: StatusUnhealthy},
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		agg.OverallStatus(results)
	}
}
