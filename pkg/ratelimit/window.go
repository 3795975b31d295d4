// Package ratelimit enforces the openFDA request quotas (per-minute and
// per-day) by blocking callers until a request slot is free in both
// windows. State lives in process memory for the lifetime of one client
// session; it is not persisted across restarts.
package ratelimit

import (
	"time"
)

// Quota sentinel: a window configured with max <= 0 never blocks.
const Unlimited = 0

// Window tracks request timestamps against one rolling time window.
// Both quota windows roll backward from "now"; the day window is a
// rolling 24 hours, not a calendar day that resets at midnight.
//
// Window is not safe for concurrent use; the Limiter serializes access.
type Window struct {
	max      int
	duration time.Duration
	stamps   []time.Time
}

// NewWindow creates a window allowing max requests per duration.
// max <= 0 means the window is uncapped.
func NewWindow(max int, duration time.Duration) *Window {
	return &Window{
		max:      max,
		duration: duration,
	}
}

// Unlimited reports whether this window is uncapped.
func (w *Window) Unlimited() bool {
	return w.max <= Unlimited
}

// Prune drops timestamps that have fallen out of the window as of now.
func (w *Window) Prune(now time.Time) {
	cutoff := now.Add(-w.duration)

	i := 0
	for i < len(w.stamps) && !w.stamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		w.stamps = append(w.stamps[:0], w.stamps[i:]...)
	}
}

// HasCapacity reports whether a request may be recorded right now.
// Callers must Prune first.
func (w *Window) HasCapacity() bool {
	if w.Unlimited() {
		return true
	}
	return len(w.stamps) < w.max
}

// Record appends a request timestamp. Uncapped windows keep no history.
func (w *Window) Record(now time.Time) {
	if w.Unlimited() {
		return
	}
	w.stamps = append(w.stamps, now)
}

// FreeAt returns the earliest time at which the oldest recorded request
// will leave the window, freeing one slot. Only meaningful when the
// window is full; returns now for an empty or uncapped window.
func (w *Window) FreeAt(now time.Time) time.Time {
	if w.Unlimited() || len(w.stamps) == 0 {
		return now
	}
	return w.stamps[0].Add(w.duration)
}

// Len returns the number of timestamps currently inside the window.
func (w *Window) Len() int {
	return len(w.stamps)
}
