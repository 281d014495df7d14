package controller

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/skyline-labs/constellation-sim/internal/bus"
	"github.com/skyline-labs/constellation-sim/internal/ctlhub"
)

// Controller owns the registration table and the bus publisher that every
// worker subscribes to, and exposes the REST API workers and satctl use to
// register, unregister, toggle sidecars, and stop the constellation.
type Controller struct {
	Table *Table
	Pub   *bus.Publisher
	Hub   *ctlhub.Hub

	NumPlanes int
	NumSats   int
}

// New wires a Controller around an already-bound bus Publisher. numPlanes
// and numSats bound the valid plane/ordinal range accepted by handleNodes.
func New(target int, pub *bus.Publisher, hub *ctlhub.Hub, numPlanes, numSats int) *Controller {
	return &Controller{
		Table:     NewTable(target),
		Pub:       pub,
		Hub:       hub,
		NumPlanes: numPlanes,
		NumSats:   numSats,
	}
}

// Routes registers the Controller's handlers on mux.
func (c *Controller) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", c.handleHealthz)
	mux.HandleFunc("/status", c.handleStatus)
	mux.HandleFunc("/nodes", c.handleNodes)
	mux.HandleFunc("/nodes/_start", c.handleNodesStart)
	mux.HandleFunc("/nodes/debug", c.handleDebug)
	mux.HandleFunc("/nodes/exfilt", c.handleExfilt)
	mux.HandleFunc("/nodes/thirdParty", c.handleThirdParty)
	mux.HandleFunc("/stop", c.handleStop)
}

func (c *Controller) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (c *Controller) handleStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(c.Table.Snapshot())
}

type registerRequest struct {
	Plane    int     `json:"plane"`
	Ordinal  int     `json:"ordinal"`
	Interval float64 `json:"interval"`
	Class    string  `json:"class"`
}

// validateSatInt checks a Satellite Interval Key against the
// constellation's configured geometry: plane in [1, numPlanes], ordinal
// in [1, numSats], interval > 0. It returns an empty string when valid,
// or the message to report in a 400 response.
func validateSatInt(numPlanes, numSats, plane, ordinal int, interval float64) string {
	if plane < 1 || plane > numPlanes {
		return fmt.Sprintf("plane %d out of range [1,%d]", plane, numPlanes)
	}
	if ordinal < 1 || ordinal > numSats {
		return fmt.Sprintf("ordinal %d out of range [1,%d]", ordinal, numSats)
	}
	if interval <= 0 {
		return fmt.Sprintf("interval %v must be > 0", interval)
	}
	return ""
}

// handleNodes registers (POST) or unregisters (DELETE) a worker.
//
// A POST whose (plane, ordinal, interval) is already registered replaces
// that worker's bookkeeping but, per the barrier's idempotent-registration
// rule, can never re-fire "start" for a constellation that has already
// started.
func (c *Controller) handleNodes(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "bad request: "+err.Error(), http.StatusBadRequest)
		return
	}
	if msg := validateSatInt(c.NumPlanes, c.NumSats, req.Plane, req.Ordinal, req.Interval); msg != "" {
		jsonError(w, msg, http.StatusBadRequest)
		return
	}
	key := Key{Plane: req.Plane, Ordinal: req.Ordinal, Interval: req.Interval}

	switch r.Method {
	case http.MethodPost:
		if req.Class == "" {
			req.Class = "orbit"
		}
		fired, startTime := c.Table.Register(key, req.Class)
		if fired {
			_ = c.Pub.Publish("start", startMsg{StartTime: startTime})
			c.emitHub("start", map[string]any{"start_time": startTime.Format(time.RFC3339Nano)})
		}
		c.emitHub("registered", map[string]any{"plane": key.Plane, "ordinal": key.Ordinal, "interval": key.Interval, "class": req.Class})
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":         true,
			"start_time": c.Table.Snapshot().StartTime,
		})

	case http.MethodDelete:
		c.Table.Unregister(key)
		c.emitHub("unregistered", map[string]any{"plane": key.Plane, "ordinal": key.Ordinal, "interval": key.Interval})
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})

	default:
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleNodesStart is a debug aid: it forces a re-broadcast of "start"
// with the already-latched start time, so a worker that missed the
// original broadcast can recover it. It is a no-op if the barrier has not
// yet fired — unlike the legacy action it replaces, it never fabricates a
// start time on its own.
func (c *Controller) handleNodesStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	startTime, started := c.Table.StartTime()
	if started {
		_ = c.Pub.Publish("start", startMsg{StartTime: startTime})
		c.emitHub("start", map[string]any{"start_time": startTime.Format(time.RFC3339Nano)})
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"ok":         true,
		"started":    started,
		"start_time": startTime,
	})
}

type startMsg struct {
	StartTime time.Time `json:"start_time"`
}

// sidecarFilter narrows a broadcast to a plane/ordinal range. Both fields
// are optional; an absent field matches everything.
type sidecarFilter struct {
	Plane   *rangeField `json:"plane,omitempty"`
	Ordinal *rangeField `json:"ordinal,omitempty"`
}

type rangeField struct {
	Lo float64 `json:"lo"`
	Hi float64 `json:"hi"`
}

// Matches reports whether key falls within the filter, treating an
// absent plane as "match everything" and, when present, only then
// consulting the ordinal bound — the same nested optionality the bus
// message carries to every worker.
func (f sidecarFilter) Matches(key Key) bool {
	if f.Plane == nil {
		return true
	}
	if float64(key.Plane) < f.Plane.Lo || float64(key.Plane) > f.Plane.Hi {
		return false
	}
	if f.Ordinal == nil {
		return true
	}
	return float64(key.Ordinal) >= f.Ordinal.Lo && float64(key.Ordinal) <= f.Ordinal.Hi
}

type debugRequest struct {
	sidecarFilter
	On   bool   `json:"on"`
	Path string `json:"path,omitempty"`
}

func (c *Controller) handleDebug(w http.ResponseWriter, r *http.Request) {
	var req debugRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "bad request: "+err.Error(), http.StatusBadRequest)
		return
	}
	_ = c.Pub.Publish("debug", req)
	on := req.On
	c.Table.SetSidecarFiltered(req.sidecarFilter.Matches, &on, nil)
	c.emitHub("sidecar", map[string]any{"kind": "debug", "on": req.On})
	writeOK(w)
}

type exfiltRequest struct {
	sidecarFilter
	On       bool   `json:"on"`
	Endpoint string `json:"endpoint,omitempty"`
	Command  string `json:"command,omitempty"`
}

func (c *Controller) handleExfilt(w http.ResponseWriter, r *http.Request) {
	var req exfiltRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "bad request: "+err.Error(), http.StatusBadRequest)
		return
	}
	_ = c.Pub.Publish("exfilt", req)
	on := req.On
	c.Table.SetSidecarFiltered(req.sidecarFilter.Matches, nil, &on)
	c.emitHub("sidecar", map[string]any{"kind": "exfilt", "on": req.On})
	writeOK(w)
}

type thirdPartyRequest struct {
	sidecarFilter
}

func (c *Controller) handleThirdParty(w http.ResponseWriter, r *http.Request) {
	var req thirdPartyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "bad request: "+err.Error(), http.StatusBadRequest)
		return
	}
	_ = c.Pub.Publish("thirdParty", req)
	c.emitHub("thirdParty", map[string]any{})
	writeOK(w)
}

// handleStop mutates the table to the stopped state and only then
// publishes "stop" on the bus, so no observer of the publish can see
// pre-stop table state.
func (c *Controller) handleStop(w http.ResponseWriter, _ *http.Request) {
	c.Table.Stop()
	_ = c.Pub.Publish("stop", struct{}{})
	c.emitHub("stop", map[string]any{})
	writeOK(w)
}

func (c *Controller) emitHub(eventType string, payload map[string]any) {
	if c.Hub == nil {
		return
	}
	payload["type"] = eventType
	payload["ts"] = time.Now().UTC().Format(time.RFC3339Nano)
	payload["component"] = "controller"
	c.Hub.BroadcastJSON(payload)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": msg})
}

func writeOK(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
}
