package ratelimit

import (
	"testing"
	"time"
)

func TestState_IsStale(t *testing.T) {
	tests := []struct {
		name     string
		state    *State
		maxAge   time.Duration
		expected bool
	}{
		{
			name:     "fresh state",
			state:    &State{ObservedAt: time.Now(), ResetAt: time.Now().Add(time.Minute)},
			maxAge:   5 * time.Minute,
			expected: false,
		},
		{
			name:     "old observation",
			state:    &State{ObservedAt: time.Now().Add(-10 * time.Minute), ResetAt: time.Now().Add(time.Minute)},
			maxAge:   5 * time.Minute,
			expected: true,
		},
		{
			name:     "window already reset",
			state:    &State{ObservedAt: time.Now(), ResetAt: time.Now().Add(-time.Second)},
			maxAge:   5 * time.Minute,
			expected: true,
		},
		{
			name:     "no reset reported",
			state:    &State{ObservedAt: time.Now()},
			maxAge:   5 * time.Minute,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.IsStale(tt.maxAge); got != tt.expected {
				t.Errorf("IsStale() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestState_ExhaustedAndLow(t *testing.T) {
	tests := []struct {
		remaining     int
		wantExhausted bool
		wantLow       bool
	}{
		{remaining: 100, wantExhausted: false, wantLow: false},
		{remaining: ThresholdWarning, wantExhausted: false, wantLow: false},
		{remaining: ThresholdWarning - 1, wantExhausted: false, wantLow: true},
		{remaining: ThresholdCritical, wantExhausted: false, wantLow: true},
		{remaining: 0, wantExhausted: true, wantLow: false},
	}

	for _, tt := range tests {
		s := &State{Remaining: tt.remaining}
		if got := s.Exhausted(); got != tt.wantExhausted {
			t.Errorf("Exhausted() = %v, want %v (remaining=%d)", got, tt.wantExhausted, tt.remaining)
		}
		if got := s.Low(); got != tt.wantLow {
			t.Errorf("Low() = %v, want %v (remaining=%d)", got, tt.wantLow, tt.remaining)
		}
	}
}

func TestState_TimeUntilReset(t *testing.T) {
	future := &State{ResetAt: time.Now().Add(5 * time.Minute)}
	if d := future.TimeUntilReset(); d < 4*time.Minute || d > 5*time.Minute {
		t.Errorf("TimeUntilReset() = %v, want ~5m", d)
	}

	past := &State{ResetAt: time.Now().Add(-5 * time.Minute)}
	if d := past.TimeUntilReset(); d != 0 {
		t.Errorf("TimeUntilReset() = %v, want 0", d)
	}
}

func TestThresholdOrdering(t *testing.T) {
	if ThresholdCritical >= ThresholdWarning {
		t.Errorf("ThresholdCritical (%d) must be less than ThresholdWarning (%d)",
			ThresholdCritical, ThresholdWarning)
	}
}
