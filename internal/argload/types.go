// Package argload resolves process configuration from either native CLI
// flags or a JSON file whose keys mirror the CLI's long-option names,
// selected by the presence of the CLI environment variable. Typed
// validators below back both paths so a value is checked identically no
// matter which one supplied it.
package argload

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
)

// CLIEnvVar is the environment variable whose presence selects CLI-flag
// parsing over JSON-file parsing.
const CLIEnvVar = "CLI"

// UseCLI reports whether the CLI environment variable is set, meaning
// configuration should come from the command line rather than a JSON file.
func UseCLI() bool {
	return os.Getenv(CLIEnvVar) != ""
}

// RangeOrScalar models a field that may be a bare value or a "lo..hi"
// (also accepts "lo,hi", "lo:hi", "lo hi") inclusive range. A bare value
// is returned as a degenerate range where Lo == Hi.
type RangeOrScalar struct {
	Lo, Hi float64
}

// ParseRangeOrScalar parses s as either a single number or a two-part
// range, validating both (or the one) value fall within [min, max].
func ParseRangeOrScalar(s string, min, max float64) (RangeOrScalar, error) {
	parts := splitRange(s)

	vals := make([]float64, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return RangeOrScalar{}, fmt.Errorf("invalid number %q in range %q: %w", part, s, err)
		}
		if v < min || v > max {
			return RangeOrScalar{}, fmt.Errorf("%v not in closed range (%v..%v)", v, min, max)
		}
		vals = append(vals, v)
	}

	switch len(vals) {
	case 1:
		return RangeOrScalar{Lo: vals[0], Hi: vals[0]}, nil
	case 2:
		if vals[0] > vals[1] {
			return RangeOrScalar{}, fmt.Errorf("range %q is not ordered low..high", s)
		}
		return RangeOrScalar{Lo: vals[0], Hi: vals[1]}, nil
	default:
		return RangeOrScalar{}, fmt.Errorf("invalid range %q", s)
	}
}

// splitRange tries each accepted separator in turn, matching the original
// parser's ordered list of separator candidates.
func splitRange(s string) []string {
	for _, sep := range []string{", ", ": ", ",", ":", "..", " "} {
		if parts := strings.Split(s, sep); len(parts) == 2 {
			return parts
		}
	}
	return []string{s}
}

// Contains reports whether v falls within the inclusive range.
func (r RangeOrScalar) Contains(v float64) bool {
	return r.Lo <= v && v <= r.Hi
}

// String renders the range back to its canonical "lo..hi" form, or a bare
// number when degenerate.
func (r RangeOrScalar) String() string {
	if r.Lo == r.Hi {
		return strconv.FormatFloat(r.Lo, 'g', -1, 64)
	}
	return fmt.Sprintf("%v..%v", r.Lo, r.Hi)
}

// ParseDurationHMS parses an "hh:mm:ss", "mm:ss", or "ss" string into
// seconds, matching the original duration flag's zero-padding rules: each
// missing leading component defaults to zero and the trailing components
// are bounds-checked against 0..59.
func ParseDurationHMS(s string) (int, error) {
	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("bad duration %q", s)
	}

	type bound struct {
		mul      int
		hasRange bool
		lo, hi   int
	}
	specs := []bound{{mul: 3600}, {mul: 60, hasRange: true, lo: 0, hi: 59}, {mul: 1, hasRange: true, lo: 0, hi: 59}}
	specs = specs[3-len(parts):]

	total := 0
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || v < 0 {
			return 0, fmt.Errorf("bad duration %q", s)
		}
		spec := specs[i]
		if i > 0 && spec.hasRange && (v < spec.lo || v > spec.hi) {
			return 0, fmt.Errorf("%d not in closed range (%d..%d)", v, spec.lo, spec.hi)
		}
		total += v * spec.mul
	}
	return total, nil
}

// EndpointSpec is a validated endpoint: the original string, resolved
// host, and port.
type EndpointSpec struct {
	Raw  string
	Host string
	Port int
}

// ParseEndpoint validates ep as a URL of the given scheme with a resolvable
// host and a registered port (1024-49151).
func ParseEndpoint(ep, scheme string) (EndpointSpec, error) {
	u, err := url.Parse(ep)
	if err != nil || u.Scheme != scheme || u.Host == "" {
		return EndpointSpec{}, fmt.Errorf("invalid %q endpoint (%q)", scheme, ep)
	}

	hostport := strings.SplitN(u.Host, ":", 2)
	if len(hostport) != 2 {
		return EndpointSpec{}, fmt.Errorf("invalid %q endpoint (%q): missing port", scheme, ep)
	}

	if _, err := net.LookupHost(hostport[0]); err != nil {
		return EndpointSpec{}, fmt.Errorf("invalid %q endpoint (%q): %w", scheme, ep, err)
	}

	port, err := strconv.Atoi(hostport[1])
	if err != nil || port < 1024 || port > 49151 {
		return EndpointSpec{}, fmt.Errorf("invalid %q endpoint (%q): port out of registered range", scheme, ep)
	}

	return EndpointSpec{Raw: ep, Host: hostport[0], Port: port}, nil
}

// TimedEndpoint is an HTTP endpoint with an optional per-endpoint sample
// interval override (in seconds). IntervalSet is false when the caller
// should fall back to the constellation-wide default interval.
type TimedEndpoint struct {
	URL         string
	Interval    float64
	IntervalSet bool
}

// ParseTimedHTTPEndpoint parses "url" or "url,interval" into a
// TimedEndpoint, validating the URL as an http:// endpoint.
func ParseTimedHTTPEndpoint(s string) (TimedEndpoint, error) {
	parts := strings.SplitN(s, ",", 2)
	if len(parts) > 2 {
		return TimedEndpoint{}, fmt.Errorf("invalid timed HTTP endpoint (%q)", s)
	}

	ep, err := ParseEndpoint(parts[0], "http")
	if err != nil {
		return TimedEndpoint{}, err
	}

	te := TimedEndpoint{URL: ep.Raw}
	if len(parts) == 2 {
		interval, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil || interval < 0 {
			return TimedEndpoint{}, fmt.Errorf("invalid interval in %q", s)
		}
		te.Interval = interval
		te.IntervalSet = true
	}
	return te, nil
}

// HILEntry maps one HIL host identifier to a fixed (plane, ordinal).
type HILEntry struct {
	NodeID string
	Plane  int
	Ordinal int
}

// ParseHIL parses "nodeID|ordinal" or "nodeID|plane,ordinal" into a
// HILEntry. A bare ordinal implies plane 1.
func ParseHIL(s string) (HILEntry, error) {
	keyVal := strings.SplitN(s, "|", 2)
	if len(keyVal) != 2 {
		return HILEntry{}, fmt.Errorf("invalid HIL (%q)", s)
	}

	nodeID := strings.TrimSpace(keyVal[0])
	poParts := strings.Split(keyVal[1], ",")
	if len(poParts) > 2 {
		return HILEntry{}, fmt.Errorf("invalid HIL (%q)", s)
	}

	nums := make([]int, 0, 2)
	for _, p := range poParts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return HILEntry{}, fmt.Errorf("invalid HIL (%q)", s)
		}
		nums = append(nums, n)
	}

	if len(nums) == 1 {
		return HILEntry{NodeID: nodeID, Plane: 1, Ordinal: nums[0]}, nil
	}
	return HILEntry{NodeID: nodeID, Plane: nums[0], Ordinal: nums[1]}, nil
}
