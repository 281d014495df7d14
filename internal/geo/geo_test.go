package geo

import (
	"math"
	"testing"
)

func TestLLAECEFRoundTrip(t *testing.T) {
	cases := []LLA{
		{LatDeg: 0, LonDeg: 0, AltKm: 500},
		{LatDeg: 45, LonDeg: 90, AltKm: 780},
		{LatDeg: -89, LonDeg: -179.9, AltKm: 400},
		{LatDeg: 51.5, LonDeg: 179.999, AltKm: 600},
	}

	for _, want := range cases {
		got := ECEFToLLA(LLAToECEF(want))
		if math.Abs(got.LatDeg-want.LatDeg) > 1e-6 {
			t.Errorf("lat round-trip: got %v want %v", got.LatDeg, want.LatDeg)
		}
		if math.Abs(got.LonDeg-want.LonDeg) > 1e-6 {
			t.Errorf("lon round-trip: got %v want %v", got.LonDeg, want.LonDeg)
		}
		if math.Abs(got.AltKm-want.AltKm) > 1e-6 {
			t.Errorf("alt round-trip: got %v want %v", got.AltKm, want.AltKm)
		}
	}
}

func TestWrapLonDeg(t *testing.T) {
	cases := []struct {
		in, want float64
	}{
		{0, 0},
		{180, 180},
		{-180, 180},
		{181, -179},
		{-181, 179},
		{360, 0},
		{540, 180}, // 540 -> 180
	}
	for _, c := range cases {
		got := WrapLonDeg(c.in)
		if got <= -180 || got > 180 {
			t.Errorf("WrapLonDeg(%v) = %v, outside (-180,180]", c.in, got)
		}
		if got != c.want {
			t.Errorf("WrapLonDeg(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestOrbitPositionAltitudeHeld(t *testing.T) {
	g := Geometry{NumPlanes: 2, NumSats: 4, InclinationDeg: 53, StartLonDeg: 0, AltitudeKm: 550}
	for _, elapsed := range []float64{0, 300, 2700, 6000} {
		p := OrbitPosition(1, 1, elapsed, g)
		if math.Abs(p.AltKm-550) > 1e-9 {
			t.Errorf("altitude drifted at t=%v: got %v", elapsed, p.AltKm)
		}
		if p.LonDeg <= -180 || p.LonDeg > 180 {
			t.Errorf("longitude out of range at t=%v: got %v", elapsed, p.LonDeg)
		}
	}
}

func TestOrbitPositionPlanesDiffer(t *testing.T) {
	g := Geometry{NumPlanes: 3, NumSats: 2, InclinationDeg: 60, StartLonDeg: 10, AltitudeKm: 700}
	a := OrbitPosition(1, 1, 0, g)
	b := OrbitPosition(2, 1, 0, g)
	if a.LonDeg == b.LonDeg {
		t.Errorf("expected distinct planes to start at different longitudes, both %v", a.LonDeg)
	}
}

func TestPeriodIncreasesWithAltitude(t *testing.T) {
	low := Geometry{AltitudeKm: 400}
	high := Geometry{AltitudeKm: 1200}
	if low.Period() >= high.Period() {
		t.Errorf("expected higher altitude to have longer period: low=%v high=%v", low.Period(), high.Period())
	}
}
