// Package controller implements the registration table, one-shot start
// barrier, and REST API that coordinate a constellation's worker
// processes.
package controller

import (
	"sync"
	"time"
)

// Key is the Satellite Interval Key: the triple (plane, ordinal, interval)
// that uniquely identifies one producer thread. A worker with N distinct
// delivery intervals registers N keys, one per interval.
type Key struct {
	Plane    int     `json:"plane"`
	Ordinal  int     `json:"ordinal"`
	Interval float64 `json:"interval"`
}

// Worker is one registered worker's bookkeeping.
type Worker struct {
	Key          Key       `json:"-"`
	Plane        int       `json:"plane"`
	Ordinal      int       `json:"ordinal"`
	Interval     float64   `json:"interval"`
	Class        string    `json:"class"`
	RegisteredAt time.Time `json:"registered_at"`
	Debug        bool      `json:"debug"`
	Exfilt       bool      `json:"exfilt"`
}

// Table holds the registration map and the one-shot start barrier. It is
// safe for concurrent use.
//
// The barrier fires exactly once: when the number of *distinct* keys ever
// seen first reaches Target, StartTime is latched and never changed again.
// Re-registering an already-known key updates that worker's bookkeeping
// but does not count toward the barrier a second time — an idempotent
// registration must never re-arm or re-fire start.
type Table struct {
	mu sync.Mutex

	Target    int
	workers   map[Key]*Worker
	seenKeys  map[Key]struct{}
	startTime time.Time
	stopped   bool
}

// NewTable creates a table with the given barrier target.
func NewTable(target int) *Table {
	return &Table{
		Target:   target,
		workers:  make(map[Key]*Worker),
		seenKeys: make(map[Key]struct{}),
	}
}

// Register inserts or updates a worker's entry. It reports whether this
// registration caused the barrier to fire just now (so the caller can
// decide to publish "start" exactly once) and the latched start time,
// which is non-zero once the barrier has ever fired.
func (t *Table) Register(key Key, class string) (fired bool, startTime time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, alreadySeen := t.seenKeys[key]
	t.seenKeys[key] = struct{}{}

	t.workers[key] = &Worker{
		Key:          key,
		Plane:        key.Plane,
		Ordinal:      key.Ordinal,
		Interval:     key.Interval,
		Class:        class,
		RegisteredAt: time.Now().UTC(),
	}

	if !alreadySeen && t.startTime.IsZero() && len(t.seenKeys) >= t.Target {
		t.startTime = time.Now().UTC()
		return true, t.startTime
	}
	return false, t.startTime
}

// Unregister removes a worker's entry. It does not affect the barrier:
// once fired, StartTime stays latched regardless of later departures.
func (t *Table) Unregister(key Key) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.workers, key)
}

// SetSidecar updates the debug/exfilt flags recorded for a registered
// worker, purely for status reporting; the actual toggle is delivered to
// the worker over the bus.
func (t *Table) SetSidecar(key Key, debug, exfilt *bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	w, ok := t.workers[key]
	if !ok {
		return
	}
	if debug != nil {
		w.Debug = *debug
	}
	if exfilt != nil {
		w.Exfilt = *exfilt
	}
}

// SetSidecarFiltered applies SetSidecar to every currently registered
// worker whose key satisfies match, mirroring the same plane/ordinal
// filter the corresponding bus broadcast carries to workers.
func (t *Table) SetSidecarFiltered(match func(Key) bool, debug, exfilt *bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for key, w := range t.workers {
		if !match(key) {
			continue
		}
		if debug != nil {
			w.Debug = *debug
		}
		if exfilt != nil {
			w.Exfilt = *exfilt
		}
	}
}

// Stop mutates the table to the stopped state, clearing every
// registration. This must run, and be observably complete, before the
// caller publishes "stop" on the bus: a concurrent Snapshot taken after
// the bus subscriber sees the publish must never show pre-stop state.
func (t *Table) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	t.workers = make(map[Key]*Worker)
}

// StartTime reports the barrier's latched start time, if any.
func (t *Table) StartTime() (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.startTime, !t.startTime.IsZero()
}

// Snapshot is a point-in-time view of the table for the status endpoint.
type Snapshot struct {
	Target    int       `json:"target"`
	Workers   []Worker  `json:"workers"`
	StartTime time.Time `json:"start_time,omitzero"`
	Started   bool      `json:"started"`
	Stopped   bool      `json:"stopped"`
}

// Snapshot returns the table's current state.
func (t *Table) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	workers := make([]Worker, 0, len(t.workers))
	for _, w := range t.workers {
		workers = append(workers, *w)
	}

	return Snapshot{
		Target:    t.Target,
		Workers:   workers,
		StartTime: t.startTime,
		Started:   !t.startTime.IsZero(),
		Stopped:   t.stopped,
	}
}
