// Package worker implements the constellation orbit worker and the
// third-party worker, the two kinds of process that register with a
// Controller, wait for its start barrier, and emit or run on its behalf.
package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/skyline-labs/constellation-sim/internal/bus"
	"github.com/skyline-labs/constellation-sim/internal/geo"
	"github.com/skyline-labs/constellation-sim/internal/sink"
	"github.com/skyline-labs/constellation-sim/internal/telemetry"
)

// leosatLabel formats a worker's Geo Sample label, "leosat-PP-SS".
func leosatLabel(plane, ordinal int) string {
	return fmt.Sprintf("leosat-%02d-%02d", plane, ordinal)
}

// registerBackoff is the fixed retry interval for the one retry-forever
// path in the system: registering with the Controller.
const registerBackoff = 2 * time.Second

// OrbitConfig configures one orbit worker's producer loop.
type OrbitConfig struct {
	Plane, Ordinal int
	Geometry       geo.Geometry

	ControllerURL string // e.g. "http://10.0.0.1:9000"
	BusAddr       string // e.g. "10.0.0.1:9001"

	Schedule *sink.Schedule
	Logger   *log.Logger

	// IsHIL marks a worker resolved from the HIL table, for sample color
	// derivation: a HIL node shows green when neither sidecar is active.
	IsHIL bool

	// PositionFunc, when non-nil, replaces the idealized kinematic kernel
	// for position; velocity components are then reported as zero. orbitd
	// never sets it: its realistic TLE mode only substitutes the TLE's
	// inclination into Geometry.
	PositionFunc func(elapsed time.Duration) geo.LLA
}

// OrbitRunner drives one (plane, ordinal) orbit worker end to end:
// register, wait for the start barrier, then emit samples on the
// configured Schedule until stopped.
type OrbitRunner struct {
	cfg OrbitConfig

	stopped       atomic.Bool
	debugSidecar  atomic.Pointer[DebugSidecar]
	exfiltSidecar atomic.Pointer[ExfiltSidecar]

	// pendingStart receives the start time from a "start" broadcast, for a
	// worker whose registrations returned no start time because the
	// barrier had not yet fired.
	pendingStart chan time.Time
}

// NewOrbitRunner creates a runner for the given configuration.
func NewOrbitRunner(cfg OrbitConfig) *OrbitRunner {
	return &OrbitRunner{cfg: cfg}
}

// Run opens the bus subscription, registers with the Controller once per
// distinct delivery interval, waits for the latched start time, then
// drives the producer and sink loops until ctx is cancelled or a "stop"
// broadcast arrives.
//
// The subscription is opened before registering: the bus gives no
// delivery guarantee to late joiners, so a worker that registered before
// it was listening could permanently miss a "start" that fired in the
// gap. pendingStart is armed before connecting so any "start" delivered
// over the subscription, including one that arrives while registration is
// still retrying, is captured.
func (r *OrbitRunner) Run(ctx context.Context) error {
	r.pendingStart = make(chan time.Time, 1)

	sub := bus.NewSubscriber("", r.handleBusMessage)
	if err := sub.Connect(r.cfg.BusAddr); err != nil {
		return fmt.Errorf("connect to bus: %w", err)
	}
	defer sub.Close()

	startTime, err := r.registerWithBackoff(ctx)
	if err != nil {
		return err // only returns on ctx cancellation
	}

	if startTime.IsZero() {
		r.cfg.Logger.Printf("orbit %d/%d: waiting for start broadcast", r.cfg.Plane, r.cfg.Ordinal)
		select {
		case <-ctx.Done():
			return nil
		case st := <-r.pendingStart:
			startTime = st
		}
	}

	r.cfg.Logger.Printf("orbit %d/%d: starting at %s", r.cfg.Plane, r.cfg.Ordinal, startTime.Format(time.RFC3339))

	go sink.Run(ctx, r.cfg.Schedule, func(interval time.Duration) any {
		return r.currentSample(startTime, interval)
	}, r.cfg.Logger)

	r.sidecarLoop(ctx, startTime)

	r.unregister()
	return nil
}

// currentSample computes (or delegates to PositionFunc for) the worker's
// position and velocity at the current wall-clock time and applies every
// active sidecar.
func (r *OrbitRunner) currentSample(startTime time.Time, interval time.Duration) telemetry.GeoSample {
	elapsed := time.Since(startTime)

	var pos geo.LLA
	var vx, vy, vz float64
	if r.cfg.PositionFunc != nil {
		pos = r.cfg.PositionFunc(elapsed)
	} else {
		pos = geo.OrbitPosition(r.cfg.Plane, r.cfg.Ordinal, elapsed.Seconds(), r.cfg.Geometry)
		vx, vy, vz = geo.OrbitVelocity(r.cfg.Plane, r.cfg.Ordinal, elapsed.Seconds(), r.cfg.Geometry)
	}

	debug := r.debugSidecar.Load()
	exfilt := r.exfiltSidecar.Load()

	class := telemetry.ClassOrbit
	if r.cfg.IsHIL {
		class = telemetry.ClassHIL
	}

	sample := telemetry.GeoSample{
		Label:    leosatLabel(r.cfg.Plane, r.cfg.Ordinal),
		Plane:    r.cfg.Plane,
		Ordinal:  r.cfg.Ordinal,
		Interval: interval.Seconds(),
		TS:       telemetry.NowTS(),
		Lat:      pos.LatDeg,
		Lon:      pos.LonDeg,
		Alt:      pos.AltKm,
		DelX:     vx,
		DelY:     vy,
		DelZ:     vz,
		Class:    class,
		Color:    Color(debug != nil, exfilt != nil, r.cfg.IsHIL),
	}

	if debug != nil {
		if err := debug.Apply(sample); err != nil {
			r.cfg.Logger.Printf("orbit %d/%d: sidecar debug: %v", r.cfg.Plane, r.cfg.Ordinal, err)
		}
	}
	if exfilt != nil {
		if err := exfilt.Apply(sample); err != nil {
			r.cfg.Logger.Printf("orbit %d/%d: sidecar exfilt: %v", r.cfg.Plane, r.cfg.Ordinal, err)
		}
	}

	return sample
}

// sidecarLoop blocks until stop is signalled, keeping the process alive
// while the sink and bus goroutines run in the background.
func (r *OrbitRunner) sidecarLoop(ctx context.Context, _ time.Time) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if r.stopped.Load() {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(500 * time.Millisecond):
		}
	}
}

// handleBusMessage dispatches a bus message to the appropriate sidecar or
// lifecycle action, filtering debug/exfilt broadcasts by the optional
// plane/ordinal range each may carry. Other topics, including
// "thirdParty", are ignored.
func (r *OrbitRunner) handleBusMessage(topic string, payload []byte) {
	switch topic {
	case "start":
		var msg struct {
			StartTime time.Time `json:"start_time"`
		}
		if err := json.Unmarshal(payload, &msg); err == nil && r.pendingStart != nil {
			select {
			case r.pendingStart <- msg.StartTime:
			default:
			}
		}

	case "stop":
		r.stopped.Store(true)

	case "debug":
		var msg struct {
			Filter
			On   bool   `json:"on"`
			Path string `json:"path"`
		}
		if err := json.Unmarshal(payload, &msg); err != nil || !msg.Matches(r.cfg.Plane, r.cfg.Ordinal) {
			return
		}
		if msg.On {
			r.debugSidecar.Store(&DebugSidecar{Path: msg.Path})
		} else {
			r.debugSidecar.Store(nil)
		}

	case "exfilt":
		var msg struct {
			Filter
			On       bool   `json:"on"`
			Endpoint string `json:"endpoint"`
			Command  string `json:"command"`
		}
		if err := json.Unmarshal(payload, &msg); err != nil || !msg.Matches(r.cfg.Plane, r.cfg.Ordinal) {
			return
		}
		if msg.On {
			r.exfiltSidecar.Store(&ExfiltSidecar{Endpoint: msg.Endpoint, Command: msg.Command, Logger: r.cfg.Logger})
		} else {
			r.exfiltSidecar.Store(nil)
		}
	}
}

// registrationIntervals returns the distinct delivery intervals this
// worker must register one Satellite Interval Key for — one per producer
// thread the schedule implies, matching spec's (plane, ordinal, interval)
// registration identity. A worker with no configured endpoints registers
// nothing and never crosses the barrier on its own.
func (r *OrbitRunner) registrationIntervals() []time.Duration {
	if r.cfg.Schedule == nil {
		return nil
	}
	return r.cfg.Schedule.Intervals()
}

// registerWithBackoff registers once per distinct interval in the
// worker's schedule, each via the sole retry-forever path in the system:
// POSTing to the Controller's registration endpoint every 2 seconds until
// it succeeds or ctx is cancelled. It returns the latched start time if
// any of the registrations observed the barrier having already fired.
func (r *OrbitRunner) registerWithBackoff(ctx context.Context) (time.Time, error) {
	var startTime time.Time
	for _, interval := range r.registrationIntervals() {
		st, err := r.registerOneWithBackoff(ctx, interval)
		if err != nil {
			return time.Time{}, err
		}
		if !st.IsZero() {
			startTime = st
		}
	}
	return startTime, nil
}

func (r *OrbitRunner) registerOneWithBackoff(ctx context.Context, interval time.Duration) (time.Time, error) {
	body, _ := json.Marshal(map[string]any{
		"plane":    r.cfg.Plane,
		"ordinal":  r.cfg.Ordinal,
		"class":    string(telemetry.ClassOrbit),
		"interval": interval.Seconds(),
	})

	for {
		start, err := r.tryRegister(body)
		if err == nil {
			return start, nil
		}
		r.cfg.Logger.Printf("orbit %d/%d: registration (interval=%s) failed (%v), retrying in %s", r.cfg.Plane, r.cfg.Ordinal, interval, err, registerBackoff)

		select {
		case <-ctx.Done():
			return time.Time{}, ctx.Err()
		case <-time.After(registerBackoff):
		}
	}
}

func (r *OrbitRunner) tryRegister(body []byte) (time.Time, error) {
	resp, err := http.Post(r.cfg.ControllerURL+"/nodes", "application/json", bytes.NewReader(body))
	if err != nil {
		return time.Time{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return time.Time{}, fmt.Errorf("HTTP %s", resp.Status)
	}

	var result struct {
		StartTime time.Time `json:"start_time"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return time.Time{}, err
	}
	return result.StartTime, nil
}

// unregister tells the Controller this worker is leaving, once per
// distinct interval it registered under. Failure is logged and
// non-fatal, per the system's transport error policy.
func (r *OrbitRunner) unregister() {
	for _, interval := range r.registrationIntervals() {
		body, _ := json.Marshal(map[string]any{
			"plane":    r.cfg.Plane,
			"ordinal":  r.cfg.Ordinal,
			"interval": interval.Seconds(),
		})
		req, err := http.NewRequest(http.MethodDelete, r.cfg.ControllerURL+"/nodes", bytes.NewReader(body))
		if err != nil {
			r.cfg.Logger.Printf("orbit %d/%d: unregister build request: %v", r.cfg.Plane, r.cfg.Ordinal, err)
			continue
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			r.cfg.Logger.Printf("orbit %d/%d: unregister failed: %v", r.cfg.Plane, r.cfg.Ordinal, err)
			continue
		}
		resp.Body.Close()
	}
}

// Filter is the optional plane/ordinal range a broadcast may carry to
// narrow which workers act on it.
type Filter struct {
	Plane   *rangePair `json:"plane,omitempty"`
	Ordinal *rangePair `json:"ordinal,omitempty"`
}

type rangePair struct {
	Lo float64 `json:"lo"`
	Hi float64 `json:"hi"`
}

// Matches reports whether plane/ordinal fall within the filter, treating
// an absent bound as "match everything" — and, matching the original
// worker's nested-optionality rule, an absent plane filter means the
// ordinal filter is not even considered.
func (f Filter) Matches(plane, ordinal int) bool {
	if f.Plane == nil {
		return true
	}
	if float64(plane) < f.Plane.Lo || float64(plane) > f.Plane.Hi {
		return false
	}
	if f.Ordinal == nil {
		return true
	}
	return float64(ordinal) >= f.Ordinal.Lo && float64(ordinal) <= f.Ordinal.Hi
}
