// Package ui provides debouncing utilities for event handling.
package ui

import (
	"sync"
	"time"
)

// Debouncer coalesces rapid events like window resizes.
type Debouncer struct {
	mu       sync.Mutex
	timer    *time.Timer
	duration time.Duration
}

// NewDebouncer creates a new debouncer with the specified duration.
func NewDebouncer(duration time.Duration) *Debouncer {
	return &Debouncer{duration: duration}
}

// Debounce executes fn after the debounce duration has elapsed without any
// new calls. Rapid successive calls reset the timer.
func (d *Debouncer) Debounce(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.duration, fn)
}

// Cancel cancels any pending debounced call.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// ResizeDebouncer is a specialized debouncer for window resize events.
type ResizeDebouncer struct {
	mu            sync.Mutex
	debouncer     *Debouncer
	pendingWidth  int
	pendingHeight int
}

// NewResizeDebouncer creates a debouncer for resize events.
func NewResizeDebouncer(duration time.Duration) *ResizeDebouncer {
	return &ResizeDebouncer{debouncer: NewDebouncer(duration)}
}

// Resize debounces a resize event, calling handler with the final size once
// the burst settles.
func (rd *ResizeDebouncer) Resize(width, height int, handler func(int, int)) {
	rd.mu.Lock()
	rd.pendingWidth = width
	rd.pendingHeight = height
	rd.mu.Unlock()

	rd.debouncer.Debounce(func() {
		rd.mu.Lock()
		w, h := rd.pendingWidth, rd.pendingHeight
		rd.mu.Unlock()
		handler(w, h)
	})
}

// Cancel cancels any pending resize.
func (rd *ResizeDebouncer) Cancel() {
	rd.debouncer.Cancel()
}

// DefaultResizeDuration is the recommended debounce duration for resizes.
const DefaultResizeDuration = 300 * time.Millisecond
