package resilience

import (
	"context"
	"testing"
	"time"
)

func BenchmarkCircuitBreaker_AllowRecord(b *testing.B) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{})

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if err := cb.Allow(); err == nil {
			cb.Record(nil)
		}
	}
}

func BenchmarkCircuitBreaker_RefusalPath(b *testing.B) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 1, Cooldown: time.Hour})
	cb.Record(context.DeadlineExceeded)

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = cb.Allow()
	}
}

func BenchmarkRetry_Delay(b *testing.B) {
	r := NewRetry(RetryConfig{Strategy: BackoffUniform})

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = r.Delay(1)
	}
}

func BenchmarkBulkhead_Execute(b *testing.B) {
	bh := NewBulkhead(BulkheadConfig{MaxConcurrent: 100})
	op := func(ctx context.Context) error { return nil }

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = bh.Execute(context.Background(), op)
	}
}
