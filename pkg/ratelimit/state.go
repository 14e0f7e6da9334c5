// Package ratelimit tracks the catalogue server's request quota and gates
// outgoing requests. It reads the RateLimit-Remaining / RateLimit-Reset
// headers (and their X-RateLimit-* variants) and shares the state through a
// Store, so several client processes pointed at one Redis see the same quota.
package ratelimit

import (
	"time"
)

// Redis key for the shared quota state.
const RedisKeyState = "aiod:rate_limit:state"

// Thresholds for gating decisions.
const (
	// ThresholdCritical blocks requests until the window resets when the
	// remaining quota falls below this value.
	ThresholdCritical = 1

	// ThresholdWarning throttles requests when the remaining quota falls
	// below this value.
	ThresholdWarning = 10
)

// State is the last observed server quota.
type State struct {
	// Remaining is the number of requests left in the current window.
	Remaining int `json:"remaining"`

	// Limit is the window size, 0 when the server did not report it.
	Limit int `json:"limit"`

	// ResetAt is when the current window ends.
	ResetAt time.Time `json:"reset_at"`

	// ObservedAt is when the headers were read.
	ObservedAt time.Time `json:"observed_at"`
}

// IsStale reports whether the state is older than maxAge or its window has
// already reset.
func (s *State) IsStale(maxAge time.Duration) bool {
	if time.Since(s.ObservedAt) > maxAge {
		return true
	}
	return !s.ResetAt.IsZero() && time.Now().After(s.ResetAt)
}

// Exhausted reports whether requests must wait for the window to reset.
func (s *State) Exhausted() bool {
	return s.Remaining < ThresholdCritical
}

// Low reports whether requests should be throttled.
func (s *State) Low() bool {
	return s.Remaining < ThresholdWarning && !s.Exhausted()
}

// TimeUntilReset returns the duration until the window resets, or 0.
func (s *State) TimeUntilReset() time.Duration {
	d := time.Until(s.ResetAt)
	if d < 0 {
		return 0
	}
	return d
}
