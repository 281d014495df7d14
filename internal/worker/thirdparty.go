package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os/exec"
	"sync/atomic"
	"time"

	"github.com/skyline-labs/constellation-sim/internal/bus"
	"github.com/skyline-labs/constellation-sim/internal/hil"
)

// thirdPartyPollInterval bounds how long ThirdPartyRunner waits between
// checks of its stop flag while idle between "thirdParty" broadcasts.
const thirdPartyPollInterval = 2 * time.Second

// ThirdPartyConfig configures a ThirdPartyRunner.
type ThirdPartyConfig struct {
	Identity hil.Identity

	BusAddr string
	Command string // external routine invoked once per "thirdParty" broadcast

	Logger *log.Logger
}

// ThirdPartyRunner acts for a fixed (plane, ordinal) that the caller has
// already resolved from the HIL identity table: it subscribes to the bus
// and runs Command once for every applicable "thirdParty" broadcast, until
// a "stop" broadcast arrives.
type ThirdPartyRunner struct {
	cfg ThirdPartyConfig

	trigger chan struct{}
	stopped atomic.Bool
}

// NewThirdPartyRunner creates a runner for an already-resolved identity.
func NewThirdPartyRunner(cfg ThirdPartyConfig) *ThirdPartyRunner {
	return &ThirdPartyRunner{
		cfg:     cfg,
		trigger: make(chan struct{}, 1),
	}
}

// Run subscribes to the bus and drives the runner's wait/trigger/run loop
// until ctx is cancelled or a "stop" broadcast arrives.
func (r *ThirdPartyRunner) Run(ctx context.Context) error {
	sub := bus.NewSubscriber("", r.handleBusMessage)
	if err := sub.Connect(r.cfg.BusAddr); err != nil {
		return fmt.Errorf("connect to bus: %w", err)
	}
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-r.trigger:
			if r.stopped.Load() {
				return nil
			}
			if err := r.runOnce(ctx); err != nil {
				r.cfg.Logger.Printf("thirdParty %d/%d: %v", r.cfg.Identity.Plane, r.cfg.Identity.Ordinal, err)
			}
		case <-time.After(thirdPartyPollInterval):
			if r.stopped.Load() {
				return nil
			}
		}
	}
}

// runOnce invokes the external routine exactly once, matching the
// original's one-shot-per-notification semantics.
func (r *ThirdPartyRunner) runOnce(ctx context.Context) error {
	if r.cfg.Command == "" {
		return nil
	}
	cmd := exec.CommandContext(ctx, "sh", "-c", r.cfg.Command)
	return cmd.Run()
}

// handleBusMessage reacts to the two topics this worker cares about:
// "thirdParty" (filtered by this worker's plane/ordinal range) arms the
// trigger, and "stop" (unfiltered, matching the Controller's unconditional
// stop broadcast) sets the stop flag.
func (r *ThirdPartyRunner) handleBusMessage(topic string, payload []byte) {
	switch topic {
	case "thirdParty":
		var filter Filter
		if err := json.Unmarshal(payload, &filter); err != nil {
			return
		}
		if !filter.Matches(r.cfg.Identity.Plane, r.cfg.Identity.Ordinal) {
			return
		}
		select {
		case r.trigger <- struct{}{}:
		default:
		}

	case "stop":
		r.stopped.Store(true)
	}
}
