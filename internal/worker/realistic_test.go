package worker

import (
	"testing"

	"github.com/skyline-labs/constellation-sim/internal/geo"
)

func TestResolveGeometryNilConfigPassesThrough(t *testing.T) {
	g := geo.Geometry{NumPlanes: 4, NumSats: 8, InclinationDeg: 53, AltitudeKm: 550}
	got, err := ResolveGeometry(g, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != g {
		t.Errorf("expected geometry to pass through unchanged, got %+v", got)
	}
}

func TestResolveGeometryMissingNoradIDErrors(t *testing.T) {
	g := geo.Geometry{NumPlanes: 1, NumSats: 1, AltitudeKm: 550}
	_, err := ResolveGeometry(g, &RealisticConfig{
		TLEURL:       "http://127.0.0.1:0/does-not-exist",
		DataRoot:     t.TempDir(),
		RefreshHours: 1,
		NoradID:      99999,
	})
	if err == nil {
		t.Fatal("expected an error when the NORAD ID is absent from every available TLE source")
	}
}
