package worker

import (
	"fmt"

	"github.com/skyline-labs/constellation-sim/internal/geo"
	"github.com/skyline-labs/constellation-sim/internal/predict"
)

// RealisticConfig points at a live TLE source and a NORAD catalog number to
// enrich an idealized orbit plane with a real-world inclination, for
// operators who want the constellation's ground tracks to be seeded from an
// actual satellite's current elements instead of a purely idealized figure.
type RealisticConfig struct {
	TLEURL       string
	DataRoot     string
	RefreshHours int
	NoradID      int
}

// ResolveGeometry returns g unchanged unless cfg is non-nil, in which case
// it fetches the referenced TLE (via internal/predict's tiered
// cache/network/stale/embedded fallback TLEStore) and substitutes its
// inclination into g, leaving altitude and plane/ordinal spacing idealized.
func ResolveGeometry(g geo.Geometry, cfg *RealisticConfig) (geo.Geometry, error) {
	if cfg == nil {
		return g, nil
	}

	store := predict.NewTLEStore(cfg.TLEURL, cfg.DataRoot, cfg.RefreshHours)
	tles, err := store.Fetch([]int{cfg.NoradID})
	if err != nil {
		return geo.Geometry{}, fmt.Errorf("realistic mode: fetch TLEs: %w", err)
	}

	tle, ok := tles[cfg.NoradID]
	if !ok {
		return geo.Geometry{}, fmt.Errorf("realistic mode: no TLE for NORAD %d", cfg.NoradID)
	}

	g.InclinationDeg = tle.Inclination
	return g, nil
}
