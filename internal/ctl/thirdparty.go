package ctl

import (
	"fmt"
	"strings"

	"github.com/skyline-labs/constellation-sim/internal/argload"
)

// ThirdPartyOptions configures the thirdParty trigger command.
type ThirdPartyOptions struct {
	Plane   *argload.RangeOrScalar
	Ordinal *argload.RangeOrScalar
	JSON    bool
}

// ThirdParty broadcasts a "thirdParty" trigger, prompting every matching
// HIL worker to run its external routine once.
func ThirdParty(baseURL string, opts ThirdPartyOptions) error {
	baseURL = strings.TrimRight(baseURL, "/")

	body := map[string]any{
		"plane":   toRangeField(opts.Plane),
		"ordinal": toRangeField(opts.Ordinal),
	}

	var resp struct {
		OK bool `json:"ok"`
	}
	if err := postJSON(baseURL, "/nodes/thirdParty", body, &resp); err != nil {
		return err
	}

	if opts.JSON {
		return printJSON(resp)
	}

	fmt.Println()
	fmt.Printf("  %s  broadcast sent\n", colorize(eventColor("thirdParty"), "THIRDPARTY"))
	fmt.Println()

	return nil
}
