// Orbitd is the worker daemon for a satellite constellation simulation. In
// its default (constellation-wide) mode it spawns one producer goroutine
// per (plane, ordinal) in the configured geometry; with HZN_NODE_ID set it
// instead pins a single fixed identity from the HIL table; with
// --third-party-command set it runs as a third-party worker that has no
// orbit producer of its own and only reacts to Controller broadcasts.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/skyline-labs/constellation-sim/internal/argload"
	"github.com/skyline-labs/constellation-sim/internal/geo"
	"github.com/skyline-labs/constellation-sim/internal/hil"
	"github.com/skyline-labs/constellation-sim/internal/sink"
	"github.com/skyline-labs/constellation-sim/internal/worker"
)

func main() {
	fs := pflag.NewFlagSet("orbitd", pflag.ExitOnError)
	var (
		numPlanes      = fs.Int("num-planes", 1, "Number of orbital planes")
		numSats        = fs.Int("num-sats", 1, "Number of satellites per plane")
		inclination    = fs.String("inclination", "53", "Inclination in degrees; a lo..hi range is accepted but only its low end is used, for every plane")
		longitude      = fs.String("longitude", "0", "Ascending-node longitude of plane 1 in degrees; a lo..hi range is accepted but only its low end is used")
		altitude       = fs.Float64("altitude", 550, "Altitude in kilometers (200, 2000)")
		interval       = fs.Float64("interval", 5, "Default sample interval in seconds, when an --endpoint omits one")
		endpoints      = fs.StringSlice("endpoint", nil, "Target URL for delivered samples, repeatable; \"url[,interval]\"")
		endpointSched  = fs.String("endpoint-schedule", "", "Optional TOML file of bulk endpoints to add to the schedule")
		hilEntries     = fs.StringSlice("HIL", nil, "HIL entry \"nodeID|plane,ordinal\", repeatable")
		controllerURL  = fs.String("controller", "http://127.0.0.1:9000", "Controller base URL")
		busAddr        = fs.String("bus-addr", "127.0.0.1:9001", "Controller event bus TCP address")
		duration       = fs.String("duration", "", "Optional [[hh:]mm:]ss run duration; empty runs until stopped")
		thirdPartyCmd  = fs.String("third-party-command", "", "External command to run once per thirdParty broadcast (third-party mode)")
		tleURL         = fs.String("tle-url", "", "TLE feed URL for realistic mode (requires --tle-norad-id)")
		tleNoradID     = fs.Int("tle-norad-id", 0, "NORAD catalog number to seed inclination from, in realistic mode")
		tleDataRoot    = fs.String("tle-data-root", ".", "Directory for the TLE disk cache, in realistic mode")
		tleRefreshHour = fs.Int("tle-refresh-hours", 12, "TLE cache refresh interval, in hours, in realistic mode")
	)

	if err := argload.Load(fs, os.Args[1:]); err != nil {
		log.Fatalf("argument load failed: %v", err)
	}

	logger := log.New(os.Stdout, "orbitd ", log.LstdFlags|log.Lmicroseconds)

	incRange, err := argload.ParseRangeOrScalar(*inclination, -90, 90)
	if err != nil {
		log.Fatalf("bad --inclination: %v", err)
	}
	lonRange, err := argload.ParseRangeOrScalar(*longitude, -180, 180)
	if err != nil {
		log.Fatalf("bad --longitude: %v", err)
	}
	if *altitude <= 200 || *altitude >= 2000 {
		log.Fatalf("--altitude must be in (200, 2000) km, got %v", *altitude)
	}

	geometry := geo.Geometry{
		NumPlanes:      *numPlanes,
		NumSats:        *numSats,
		InclinationDeg: incRange.Lo,
		StartLonDeg:    lonRange.Lo,
		AltitudeKm:     *altitude,
	}

	var realisticCfg *worker.RealisticConfig
	if *tleURL != "" || *tleNoradID != 0 {
		realisticCfg = &worker.RealisticConfig{
			TLEURL:       *tleURL,
			DataRoot:     *tleDataRoot,
			RefreshHours: *tleRefreshHour,
			NoradID:      *tleNoradID,
		}
	}
	if realisticCfg != nil {
		geometry, err = worker.ResolveGeometry(geometry, realisticCfg)
		if err != nil {
			log.Fatalf("realistic mode: %v", err)
		}
	}

	schedule := sink.NewSchedule()
	defaultInterval := time.Duration(*interval * float64(time.Second))
	for _, ep := range *endpoints {
		te, err := argload.ParseTimedHTTPEndpoint(ep)
		if err != nil {
			log.Fatalf("bad --endpoint %q: %v", ep, err)
		}
		d := defaultInterval
		if te.IntervalSet {
			d = time.Duration(te.Interval * float64(time.Second))
		}
		schedule.Add(te.URL, d)
	}
	if *endpointSched != "" {
		if err := sink.LoadTOML(*endpointSched, schedule, defaultInterval); err != nil {
			log.Fatalf("--endpoint-schedule: %v", err)
		}
	}

	var hilTable hil.Table
	if len(*hilEntries) > 0 {
		entries := make([]argload.HILEntry, 0, len(*hilEntries))
		for _, spec := range *hilEntries {
			e, err := argload.ParseHIL(spec)
			if err != nil {
				log.Fatalf("bad --HIL %q: %v", spec, err)
			}
			entries = append(entries, e)
		}
		hilTable = hil.NewTable(entries)
	}

	var runCtx = context.Background()
	ctx, stop := signal.NotifyContext(runCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *duration != "" {
		secs, err := argload.ParseDurationHMS(*duration)
		if err != nil {
			log.Fatalf("bad --duration: %v", err)
		}
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(secs)*time.Second)
		defer cancel()
	}

	switch {
	case *thirdPartyCmd != "":
		runThirdParty(ctx, logger, hilTable, *busAddr, *thirdPartyCmd)

	case os.Getenv("HZN_NODE_ID") != "":
		runHIL(ctx, logger, hilTable, geometry, schedule, *controllerURL, *busAddr)

	default:
		runConstellation(ctx, logger, geometry, schedule, *controllerURL, *busAddr)
	}

	// Brief pause so in-flight log writes can flush before exit.
	time.Sleep(50 * time.Millisecond)
}

// runConstellation spawns one OrbitRunner per (plane, ordinal) in the
// configured geometry and blocks until every runner returns.
func runConstellation(ctx context.Context, logger *log.Logger, geometry geo.Geometry, schedule *sink.Schedule, controllerURL, busAddr string) {
	var wg sync.WaitGroup
	for plane := 1; plane <= geometry.NumPlanes; plane++ {
		for ordinal := 1; ordinal <= geometry.NumSats; ordinal++ {
			wg.Add(1)
			go func(plane, ordinal int) {
				defer wg.Done()
				r := worker.NewOrbitRunner(worker.OrbitConfig{
					Plane:         plane,
					Ordinal:       ordinal,
					Geometry:      geometry,
					ControllerURL: controllerURL,
					BusAddr:       busAddr,
					Schedule:      schedule,
					Logger:        logger,
				})
				if err := r.Run(ctx); err != nil {
					logger.Printf("orbit %d/%d: %v", plane, ordinal, err)
				}
			}(plane, ordinal)
		}
	}
	wg.Wait()
}

// runHIL resolves this process's single fixed identity from the HIL table
// and runs exactly one OrbitRunner for it. A missing or unmapped
// HZN_NODE_ID is a fatal startup error.
func runHIL(ctx context.Context, logger *log.Logger, hilTable hil.Table, geometry geo.Geometry, schedule *sink.Schedule, controllerURL, busAddr string) {
	id, err := hilTable.Resolve()
	if err != nil {
		log.Fatalf("HIL identity resolution: %v", err)
	}
	logger.Printf("HIL identity resolved: plane=%d ordinal=%d", id.Plane, id.Ordinal)

	r := worker.NewOrbitRunner(worker.OrbitConfig{
		Plane:         id.Plane,
		Ordinal:       id.Ordinal,
		Geometry:      geometry,
		ControllerURL: controllerURL,
		BusAddr:       busAddr,
		Schedule:      schedule,
		Logger:        logger,
		IsHIL:         true,
	})
	if err := r.Run(ctx); err != nil {
		logger.Printf("HIL %d/%d: %v", id.Plane, id.Ordinal, err)
	}
}

// runThirdParty resolves this process's fixed identity from the HIL table
// and runs a ThirdPartyRunner, which has no orbit producer and only reacts
// to "thirdParty"/"stop" broadcasts.
func runThirdParty(ctx context.Context, logger *log.Logger, hilTable hil.Table, busAddr, command string) {
	id, err := hilTable.Resolve()
	if err != nil {
		log.Fatalf("HIL identity resolution: %v", err)
	}
	logger.Printf("third-party identity resolved: plane=%d ordinal=%d", id.Plane, id.Ordinal)

	r := worker.NewThirdPartyRunner(worker.ThirdPartyConfig{
		Identity: id,
		BusAddr:  busAddr,
		Command:  command,
		Logger:   logger,
	})
	if err := r.Run(ctx); err != nil {
		logger.Printf("third-party %d/%d: %v", id.Plane, id.Ordinal, err)
	}
}
