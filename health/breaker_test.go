package health

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jonwraymond/toolexec/resilience"
)

// staticStates is a StateSource with fixed breaker states.
type staticStates map[string]resilience.State

func (s staticStates) BreakerStates() map[string]resilience.State {
	return s
}

func TestBreakerChecker_AllClosed(t *testing.T) {
	checker := NewBreakerChecker(staticStates{
		"weather": resilience.StateClosed,
		"fx":      resilience.StateClosed,
	})

	result := checker.Check(context.Background())

	if result.Status != StatusHealthy {
		t.Errorf("status = %v, want healthy", result.Status)
	}
	if result.Details["weather"] != "closed" {
		t.Errorf("weather detail = %v, want closed", result.Details["weather"])
	}
}

func TestBreakerChecker_HalfOpenDegrades(t *testing.T) {
	checker := NewBreakerChecker(staticStates{
		"weather": resilience.StateHalfOpen,
		"fx":      resilience.StateClosed,
	})

	result := checker.Check(context.Background())

	if result.Status != StatusDegraded {
		t.Errorf("status = %v, want degraded", result.Status)
	}
	if !strings.Contains(result.Message, "weather") {
		t.Errorf("message %q should name the recovering tool", result.Message)
	}
}

func TestBreakerChecker_OpenIsUnhealthy(t *testing.T) {
	checker := NewBreakerChecker(staticStates{
		"weather": resilience.StateOpen,
		"fx":      resilience.StateHalfOpen,
		"geo":     resilience.StateClosed,
	})

	result := checker.Check(context.Background())

	if result.Status != StatusUnhealthy {
		t.Errorf("status = %v, want unhealthy (open outranks half-open)", result.Status)
	}
	if !errors.Is(result.Error, ErrBreakerOpen) {
		t.Errorf("error = %v, want ErrBreakerOpen", result.Error)
	}
	if !strings.Contains(result.Message, "weather") {
		t.Errorf("message %q should name the open tool", result.Message)
	}
}

func TestBreakerChecker_NoTools(t *testing.T) {
	checker := NewBreakerChecker(staticStates{})

	result := checker.Check(context.Background())
	if result.Status != StatusHealthy {
		t.Errorf("status = %v, want healthy for empty state set", result.Status)
	}
}

func TestBreakerChecker_Name(t *testing.T) {
	checker := NewBreakerChecker(staticStates{})
	if checker.Name() != "breakers" {
		t.Errorf("Name() = %q, want breakers", checker.Name())
	}
}
