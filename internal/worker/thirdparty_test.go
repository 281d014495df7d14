package worker

import (
	"encoding/json"
	"testing"

	"github.com/skyline-labs/constellation-sim/internal/hil"
)

func newTestThirdPartyRunner(plane, ordinal int) *ThirdPartyRunner {
	return NewThirdPartyRunner(ThirdPartyConfig{
		Identity: hil.Identity{Plane: plane, Ordinal: ordinal},
	})
}

func TestThirdPartyRunnerTriggersOnMatchingPlane(t *testing.T) {
	r := newTestThirdPartyRunner(2, 3)
	payload, _ := json.Marshal(Filter{Plane: &rangePair{Lo: 1, Hi: 2}})
	r.handleBusMessage("thirdParty", payload)

	select {
	case <-r.trigger:
	default:
		t.Fatal("expected trigger to be armed for plane within range")
	}
}

func TestThirdPartyRunnerIgnoresNonMatchingPlane(t *testing.T) {
	r := newTestThirdPartyRunner(5, 1)
	payload, _ := json.Marshal(Filter{Plane: &rangePair{Lo: 1, Hi: 2}})
	r.handleBusMessage("thirdParty", payload)

	select {
	case <-r.trigger:
		t.Fatal("did not expect trigger to be armed for plane outside range")
	default:
	}
}

func TestThirdPartyRunnerUnfilteredTriggerMatchesEveryone(t *testing.T) {
	r := newTestThirdPartyRunner(9, 9)
	r.handleBusMessage("thirdParty", []byte(`{}`))

	select {
	case <-r.trigger:
	default:
		t.Fatal("expected trigger to be armed when no filter is present")
	}
}

func TestThirdPartyRunnerStopIsUnconditional(t *testing.T) {
	r := newTestThirdPartyRunner(1, 1)
	r.handleBusMessage("stop", []byte(`{}`))
	if !r.stopped.Load() {
		t.Fatal("expected stop broadcast to set stopped flag")
	}
}
