// Package telemetry defines the typed wire structs exchanged between
// workers and the endpoint sink. These types serve as documentation for
// the sample schema; ambient observability events (the ones flowing over
// the satctl watch WebSocket feed) still use map[string]any for
// flexibility, matching the rest of this codebase's event broadcasting
// convention.
package telemetry

import "time"

// Class identifies what kind of worker produced a GeoSample.
type Class string

const (
	ClassOrbit      Class = "orbit"
	ClassHIL        Class = "hil"
	ClassThirdParty Class = "thirdParty"
)

// GeoSample is one ground-track position report, delivered by the
// endpoint sink to every URL subscribed at the sample's interval.
type GeoSample struct {
	Label    string  `json:"label"`
	Plane    int     `json:"plane"`
	Ordinal  int     `json:"ordinal"`
	Interval float64 `json:"interval"`
	TS       string  `json:"time"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Alt      float64 `json:"alt"`
	DelX     float64 `json:"delx"`
	DelY     float64 `json:"dely"`
	DelZ     float64 `json:"delz"`
	Class    Class   `json:"class"`
	Color    string  `json:"color,omitempty"`
}

// NowTS returns the current UTC time as an RFC 3339 nano string, matching
// the timestamp format used across every event and sample in this system.
func NowTS() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
