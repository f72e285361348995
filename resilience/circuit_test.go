package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func TestNewCircuitBreaker_Defaults(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{})

	if cb.State() != StateClosed {
		t.Errorf("Initial state = %v, want closed", cb.State())
	}
	if cb.config.MaxFailures != 5 {
		t.Errorf("MaxFailures = %d, want 5", cb.config.MaxFailures)
	}
	if cb.config.Window != 60*time.Second {
		t.Errorf("Window = %v, want 60s", cb.config.Window)
	}
	if cb.config.Cooldown != 30*time.Second {
		t.Errorf("Cooldown = %v, want 30s", cb.config.Cooldown)
	}
}

func TestCircuitBreaker_OpenAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		MaxFailures: 3,
		Window:      time.Minute,
		Cooldown:    30 * time.Second,
		Clock:       clockwork.NewFakeClock(),
	})

	testErr := errors.New("test error")

	// First 2 failures should not open
	for i := 0; i < 2; i++ {
		if err := cb.Allow(); err != nil {
			t.Fatalf("Allow() error = %v", err)
		}
		cb.Record(testErr)
		if cb.State() != StateClosed {
			t.Errorf("After %d failures, state = %v, want closed", i+1, cb.State())
		}
	}

	// Third failure should open
	if err := cb.Allow(); err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	cb.Record(testErr)
	if cb.State() != StateOpen {
		t.Errorf("After 3 failures, state = %v, want open", cb.State())
	}

	// Next attempt is refused without invoking anything
	if err := cb.Allow(); err != ErrCircuitOpen {
		t.Errorf("Allow() when open = %v, want ErrCircuitOpen", err)
	}
}

func TestCircuitBreaker_WindowRestartsCount(t *testing.T) {
	clock := clockwork.NewFakeClock()
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		MaxFailures: 3,
		Window:      time.Minute,
		Clock:       clock,
	})

	testErr := errors.New("test error")

	// Two failures, then let the window elapse
	cb.Record(testErr)
	cb.Record(testErr)
	clock.Advance(61 * time.Second)

	// A failure after the window restarts the count at one
	cb.Record(testErr)
	if cb.State() != StateClosed {
		t.Fatalf("State = %v, want closed after window reset", cb.State())
	}

	// Two more inside the fresh window reach the threshold
	cb.Record(testErr)
	cb.Record(testErr)
	if cb.State() != StateOpen {
		t.Errorf("State = %v, want open", cb.State())
	}
}

func TestCircuitBreaker_RetryAfter(t *testing.T) {
	clock := clockwork.NewFakeClock()
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		MaxFailures: 1,
		Cooldown:    time.Minute,
		Clock:       clock,
	})

	cb.Record(errors.New("test error"))

	if got := cb.RetryAfter(); got != time.Minute {
		t.Errorf("RetryAfter() = %v, want 1m", got)
	}

	clock.Advance(40 * time.Second)
	if got := cb.RetryAfter(); got != 20*time.Second {
		t.Errorf("RetryAfter() after 40s = %v, want 20s", got)
	}

	clock.Advance(30 * time.Second)
	if got := cb.RetryAfter(); got != 0 {
		t.Errorf("RetryAfter() past cooldown = %v, want 0", got)
	}
}

func TestCircuitBreaker_HalfOpenAfterCooldown(t *testing.T) {
	clock := clockwork.NewFakeClock()
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		MaxFailures: 1,
		Cooldown:    30 * time.Second,
		Clock:       clock,
	})

	cb.Record(errors.New("test error"))
	if cb.State() != StateOpen {
		t.Fatalf("State = %v, want open", cb.State())
	}

	clock.Advance(30 * time.Second)

	// Lazy transition on the next attempt
	if err := cb.Allow(); err != nil {
		t.Errorf("Allow() after cooldown = %v, want probe permitted", err)
	}
	if cb.State() != StateHalfOpen {
		t.Errorf("State = %v, want half-open", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenSingleProbe(t *testing.T) {
	clock := clockwork.NewFakeClock()
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		MaxFailures: 1,
		Cooldown:    time.Second,
		Clock:       clock,
	})

	cb.Record(errors.New("test error"))
	clock.Advance(time.Second)

	// First probe permitted
	if err := cb.Allow(); err != nil {
		t.Fatalf("Allow() probe = %v", err)
	}

	// Concurrent call while the probe is outstanding is refused
	if err := cb.Allow(); err != ErrCircuitOpen {
		t.Errorf("Allow() second probe = %v, want ErrCircuitOpen", err)
	}
}

func TestCircuitBreaker_ProbeSuccessCloses(t *testing.T) {
	clock := clockwork.NewFakeClock()
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		MaxFailures: 1,
		Cooldown:    time.Second,
		Clock:       clock,
	})

	cb.Record(errors.New("test error"))
	clock.Advance(time.Second)

	if err := cb.Allow(); err != nil {
		t.Fatalf("Allow() probe = %v", err)
	}
	cb.Record(nil)

	if cb.State() != StateClosed {
		t.Errorf("State = %v, want closed after successful probe", cb.State())
	}
}

func TestCircuitBreaker_ProbeFailureReopens(t *testing.T) {
	clock := clockwork.NewFakeClock()
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		MaxFailures: 1,
		Cooldown:    time.Minute,
		Clock:       clock,
	})

	cb.Record(errors.New("test error"))
	clock.Advance(time.Minute)

	if err := cb.Allow(); err != nil {
		t.Fatalf("Allow() probe = %v", err)
	}
	cb.Record(errors.New("still failing"))

	if cb.State() != StateOpen {
		t.Fatalf("State = %v, want open after failed probe", cb.State())
	}

	// Cooldown restarts from the failed probe
	if got := cb.RetryAfter(); got != time.Minute {
		t.Errorf("RetryAfter() = %v, want full cooldown again", got)
	}
}

func TestCircuitBreaker_AbandonReleasesProbe(t *testing.T) {
	clock := clockwork.NewFakeClock()
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		MaxFailures: 1,
		Cooldown:    time.Second,
		Clock:       clock,
	})

	cb.Record(errors.New("test error"))
	clock.Advance(time.Second)

	if err := cb.Allow(); err != nil {
		t.Fatalf("Allow() probe = %v", err)
	}

	// Probe cancelled before completing; slot is released
	cb.Abandon()

	if err := cb.Allow(); err != nil {
		t.Errorf("Allow() after Abandon = %v, want probe permitted", err)
	}
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		MaxFailures: 3,
		Clock:       clockwork.NewFakeClock(),
	})

	testErr := errors.New("test error")

	cb.Record(testErr)
	cb.Record(testErr)
	cb.Record(nil)
	cb.Record(testErr)
	cb.Record(testErr)

	if cb.State() != StateClosed {
		t.Errorf("State = %v, want closed", cb.State())
	}
}

func TestCircuitBreaker_Execute(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		MaxFailures: 1,
		Cooldown:    time.Hour,
		Clock:       clockwork.NewFakeClock(),
	})

	testErr := errors.New("test error")

	err := cb.Execute(context.Background(), func(ctx context.Context) error {
		return testErr
	})
	if err != testErr {
		t.Errorf("Execute() error = %v, want %v", err, testErr)
	}

	err = cb.Execute(context.Background(), func(ctx context.Context) error {
		t.Error("Should not be called when circuit is open")
		return nil
	})
	if err != ErrCircuitOpen {
		t.Errorf("Execute() when open = %v, want ErrCircuitOpen", err)
	}
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		MaxFailures: 1,
		Cooldown:    time.Hour,
		Clock:       clockwork.NewFakeClock(),
	})

	cb.Record(errors.New("test error"))
	if cb.State() != StateOpen {
		t.Fatalf("State = %v, want open", cb.State())
	}

	cb.Reset()
	if cb.State() != StateClosed {
		t.Errorf("After reset, state = %v, want closed", cb.State())
	}
}

func TestCircuitBreaker_OnStateChange(t *testing.T) {
	var transitions []struct {
		from, to State
	}
	var mu sync.Mutex

	clock := clockwork.NewFakeClock()
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		MaxFailures: 1,
		Cooldown:    time.Second,
		Clock:       clock,
		OnStateChange: func(from, to State) {
			mu.Lock()
			transitions = append(transitions, struct{ from, to State }{from, to})
			mu.Unlock()
		},
	})

	cb.Record(errors.New("test error"))
	clock.Advance(time.Second)
	_ = cb.Allow()
	cb.Record(nil)

	mu.Lock()
	defer mu.Unlock()

	want := []struct{ from, to State }{
		{StateClosed, StateOpen},
		{StateOpen, StateHalfOpen},
		{StateHalfOpen, StateClosed},
	}
	if len(transitions) != len(want) {
		t.Fatalf("got %d transitions, want %d", len(transitions), len(want))
	}
	for i, tr := range transitions {
		if tr != want[i] {
			t.Errorf("transition %d: %v -> %v, want %v -> %v", i, tr.from, tr.to, want[i].from, want[i].to)
		}
	}
}

func TestCircuitBreaker_Snapshot(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		MaxFailures: 5,
		Clock:       clockwork.NewFakeClock(),
	})

	testErr := errors.New("test error")
	cb.Record(testErr)
	cb.Record(testErr)

	snap := cb.Snapshot()
	if snap.State != StateClosed {
		t.Errorf("Snapshot.State = %v, want closed", snap.State)
	}
	if snap.Failures != 2 {
		t.Errorf("Snapshot.Failures = %d, want 2", snap.Failures)
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateClosed, "closed"},
		{StateOpen, "open"},
		{StateHalfOpen, "half-open"},
		{State(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.state.String(); got != tt.want {
				t.Errorf("State.String() = %v, want %v", got, tt.want)
			}
		})
	}
}
