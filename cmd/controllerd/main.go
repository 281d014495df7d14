// Controllerd is the registration barrier and command fan-out daemon for a
// satellite constellation simulation. It serves the REST API orbit workers
// use to register/unregister, the TCP event bus they subscribe to for
// start/stop/sidecar broadcasts, and an ambient WebSocket feed satctl watch
// tails for live observability.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/skyline-labs/constellation-sim/internal/argload"
	"github.com/skyline-labs/constellation-sim/internal/bus"
	"github.com/skyline-labs/constellation-sim/internal/controller"
	"github.com/skyline-labs/constellation-sim/internal/ctlhub"
	"github.com/skyline-labs/constellation-sim/internal/sink"
)

func main() {
	fs := pflag.NewFlagSet("controllerd", pflag.ExitOnError)
	var (
		numPlanes     = fs.Int("num-planes", 1, "Number of orbital planes in the constellation")
		numSats       = fs.Int("num-sats", 1, "Number of satellites per plane")
		bind          = fs.String("bind", "0.0.0.0:9000", "HTTP bind address for the REST API and /ws feed")
		busAddr       = fs.String("bus-addr", "0.0.0.0:9001", "TCP bind address for the event bus publisher")
		interval      = fs.Float64("interval", 5, "Default sample interval in seconds, when an --endpoint omits one")
		endpoints     = fs.StringSlice("endpoint", nil, "Endpoint URL workers deliver to, repeatable; \"url[,interval]\" (used here only to learn the distinct interval count for the barrier target)")
		endpointSched = fs.String("endpoint-schedule", "", "Optional TOML file of bulk endpoints, mirroring orbitd's --endpoint-schedule")
	)

	// CLI env var selects flag parsing; its absence selects a JSON config
	// file named by the single remaining argument, mirroring orbitd.
	if err := argload.Load(fs, os.Args[1:]); err != nil {
		log.Fatalf("argument load failed: %v", err)
	}

	logger := log.New(os.Stdout, "controllerd ", log.LstdFlags|log.Lmicroseconds)

	if *numPlanes < 1 || *numSats < 1 {
		log.Fatalf("num-planes and num-sats must each be >= 1")
	}

	// The barrier target is num_planes * num_sats * |intervals|: every
	// producer thread (one per configured endpoint interval) registers
	// its own Satellite Interval Key, so the Controller must parse the
	// same endpoint/interval configuration the workers do to know how
	// many distinct intervals to expect.
	defaultInterval := time.Duration(*interval * float64(time.Second))
	schedule := sink.NewSchedule()
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
	intervalCount := len(schedule.Intervals())
	if intervalCount == 0 {
		intervalCount = 1
	}
	target := *numPlanes * *numSats * intervalCount

	pub, err := bus.NewPublisher(*busAddr)
	if err != nil {
		log.Fatalf("bind event bus on %s: %v", *busAddr, err)
	}
	defer pub.Close()
	logger.Printf("event bus publisher listening on %s", pub.Addr())

	hub := ctlhub.NewHub()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go hub.Run(ctx)

	ctrl := controller.New(target, pub, hub, *numPlanes, *numSats)

	mux := http.NewServeMux()
	ctrl.Routes(mux)
	mux.Handle("/ws", hub.Handler())

	srv := &http.Server{Addr: *bind, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Printf("barrier target: %d satellite interval keys (%d planes x %d sats x %d intervals)", target, *numPlanes, *numSats, intervalCount)
	logger.Printf("REST API listening on %s", *bind)

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("controllerd failed: %v", err)
	}

	// Brief pause so in-flight log writes can flush before exit.
	time.Sleep(50 * time.Millisecond)
}
