package worker

import (
	"log"
	"os"
	"testing"
	"time"

	"github.com/skyline-labs/constellation-sim/internal/geo"
)

func TestFilterMatchesAbsentPlaneMatchesEverything(t *testing.T) {
	var f Filter
	if !f.Matches(1, 1) || !f.Matches(99, 99) {
		t.Fatal("expected empty filter to match any plane/ordinal")
	}
}

func TestFilterMatchesPlaneInRangeOrdinalUnset(t *testing.T) {
	f := Filter{Plane: &rangePair{Lo: 2, Hi: 4}}
	if !f.Matches(3, 100) {
		t.Error("expected plane within range to match regardless of ordinal")
	}
	if f.Matches(5, 1) {
		t.Error("expected plane outside range to not match")
	}
}

func TestFilterMatchesPlaneAndOrdinalBothInRange(t *testing.T) {
	f := Filter{
		Plane:   &rangePair{Lo: 1, Hi: 1},
		Ordinal: &rangePair{Lo: 2, Hi: 3},
	}
	if !f.Matches(1, 2) {
		t.Error("expected plane 1, ordinal 2 to match")
	}
	if f.Matches(1, 5) {
		t.Error("expected plane 1, ordinal 5 to not match")
	}
}

func TestCurrentSampleUsesPositionFunc(t *testing.T) {
	r := NewOrbitRunner(OrbitConfig{
		Plane:   1,
		Ordinal: 1,
		Logger:  log.New(os.Stderr, "test ", 0),
		PositionFunc: func(elapsed time.Duration) geo.LLA {
			return geo.LLA{LatDeg: 10, LonDeg: 20, AltKm: 550}
		},
	})

	sample := r.currentSample(time.Now(), 5*time.Second)
	if sample.Lat != 10 || sample.Lon != 20 || sample.Alt != 550 {
		t.Errorf("expected overridden position, got %+v", sample)
	}
	if sample.Plane != 1 || sample.Ordinal != 1 {
		t.Errorf("expected plane/ordinal to be stamped, got %+v", sample)
	}
}
