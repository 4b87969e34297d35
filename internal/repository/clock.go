/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package repository

import (
	"sync"
	"time"
)

// MonotonicClock hands out wall-clock timestamps that never go backwards,
// even if the system clock does. One instance is shared by every message
// repository of a StorageManager.
type MonotonicClock struct {
	last  time.Time
	mutex sync.Mutex
	now   func() time.Time
}

// NewMonotonicClock creates a clock reading from time.Now
func NewMonotonicClock() *MonotonicClock {
	return NewMonotonicClockFrom(time.Now)
}

// NewMonotonicClockFrom creates a clock reading from the given source
func NewMonotonicClockFrom(now func() time.Time) *MonotonicClock {
	return &MonotonicClock{now: now}
}

// Next returns the current UTC time, or the last returned one if the source went back.
func (c *MonotonicClock) Next() time.Time {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	t := c.now().UTC()
	if t.Before(c.last) {
		t = c.last
	}
	c.last = t
	return t
}
