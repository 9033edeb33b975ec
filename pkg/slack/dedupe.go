/**
 * Copyright 2025 uk
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package slack

import (
	"sync"
	"time"
)

const (
	DefaultDedupeWindow = 10 * time.Minute
	dedupePruneEvery    = time.Minute
	dedupePruneJob      = "slack-event-dedupe"
)

// Scheduler runs fn periodically. Satisfied by job.JobManager.
type Scheduler interface {
	Schedule(name string, every time.Duration, fn func()) error
}

// Deduper drops Slack event ids already seen within the window. Slack redelivers events it
// believes were not acknowledged in time.
type Deduper struct {
	window time.Duration
	seen   map[string]time.Time
	now    func() time.Time
	lock   sync.Mutex
}

func NewDeduper(window time.Duration) *Deduper {
	if window <= 0 {
		window = DefaultDedupeWindow
	}
	return &Deduper{window: window, seen: map[string]time.Time{}, now: time.Now}
}

// Seen records id and reports whether it was already recorded inside the window. Empty ids
// are never treated as duplicates.
func (d *Deduper) Seen(id string) bool {
	if id == "" {
		return false
	}
	d.lock.Lock()
	defer d.lock.Unlock()
	now := d.now()
	if at, ok := d.seen[id]; ok && now.Sub(at) < d.window {
		return true
	}
	d.seen[id] = now
	return false
}

func (d *Deduper) Prune() int {
	d.lock.Lock()
	defer d.lock.Unlock()
	now := d.now()
	removed := 0
	for id, at := range d.seen {
		if now.Sub(at) >= d.window {
			delete(d.seen, id)
			removed++
		}
	}
	return removed
}

func (d *Deduper) Size() int {
	d.lock.Lock()
	defer d.lock.Unlock()
	return len(d.seen)
}

func (d *Deduper) SchedulePrune(s Scheduler) error {
	return s.Schedule(dedupePruneJob, dedupePruneEvery, func() { d.Prune() })
}
