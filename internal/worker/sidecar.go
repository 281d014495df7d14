package worker

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/skyline-labs/constellation-sim/internal/telemetry"
)

// Sidecar is an optional behavior attached to a worker's producer loop.
// debugSink and exfiltSink are two independent instances of this
// interface: each can be toggled on or off without affecting the other,
// and a sample's color is derived from which of the two are active.
type Sidecar interface {
	// Apply runs the sidecar's side effect for one emitted sample. Errors
	// are logged by the caller and never abort the producer loop.
	Apply(sample telemetry.GeoSample) error
	// Name identifies the sidecar kind for status reporting.
	Name() string
}

// Color maps a worker's sidecar combination, plus whether it is a HIL
// node, to the badge class the watch dashboard renders it with. Both
// sidecars active takes priority over either alone; HIL status only
// shows through when neither sidecar is active.
func Color(debugOn, exfiltOn, isHIL bool) string {
	switch {
	case debugOn && exfiltOn:
		return "bg-pink-500"
	case debugOn:
		return "bg-yellow-500"
	case exfiltOn:
		return "bg-red-500"
	case isHIL:
		return "bg-green-500"
	default:
		return ""
	}
}

// DebugSidecar lazily opens a per-worker CSV writer on first use and
// appends one row per sample.
type DebugSidecar struct {
	Path string

	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

func (d *DebugSidecar) Name() string { return "debug" }

func (d *DebugSidecar) Apply(sample telemetry.GeoSample) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.writer == nil {
		f, err := os.OpenFile(d.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open debug csv %s: %w", d.Path, err)
		}
		d.file = f
		d.writer = csv.NewWriter(f)
	}

	row := []string{
		sample.TS,
		strconv.Itoa(sample.Plane),
		strconv.Itoa(sample.Ordinal),
		strconv.FormatFloat(sample.Lat, 'f', 6, 64),
		strconv.FormatFloat(sample.Lon, 'f', 6, 64),
		strconv.FormatFloat(sample.Alt, 'f', 3, 64),
		string(sample.Class),
	}
	if err := d.writer.Write(row); err != nil {
		return err
	}
	d.writer.Flush()
	return d.writer.Error()
}

// Close flushes and closes the underlying debug file, if opened.
func (d *DebugSidecar) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.writer != nil {
		d.writer.Flush()
	}
	if d.file != nil {
		return d.file.Close()
	}
	return nil
}

var exfiltClient = &http.Client{Timeout: 5 * time.Second}

// ExfiltSidecar delivers every sample to an alternate destination instead
// of (or in addition to) the worker's normal endpoint schedule: either an
// HTTP endpoint (constellation workers) or by shelling out to an external
// uploader command (HIL workers), matching the two exfiltration paths the
// original worker types support.
type ExfiltSidecar struct {
	Endpoint string // HTTP POST target, mutually exclusive with Command
	Command  string // external command; sample JSON is piped to its stdin
	Logger   *log.Logger
}

func (e *ExfiltSidecar) Name() string { return "exfilt" }

func (e *ExfiltSidecar) Apply(sample telemetry.GeoSample) error {
	body, err := json.Marshal(sample)
	if err != nil {
		return err
	}

	if e.Endpoint != "" {
		resp, err := exfiltClient.Post(e.Endpoint, "application/json", bytes.NewReader(body))
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("exfilt HTTP %s", resp.Status)
		}
		return nil
	}

	if e.Command != "" {
		cmd := exec.Command("sh", "-c", e.Command)
		cmd.Stdin = bytes.NewReader(body)
		return cmd.Run()
	}

	return nil
}
