package ctl

import (
	"fmt"
	"strings"

	"github.com/skyline-labs/constellation-sim/internal/argload"
)

// DebugOptions configures the debug sidecar toggle command.
type DebugOptions struct {
	Plane   *argload.RangeOrScalar
	Ordinal *argload.RangeOrScalar
	On      bool
	Path    string
	JSON    bool
}

// rangeFieldJSON mirrors the Controller's optional plane/ordinal filter
// wire shape.
type rangeFieldJSON struct {
	Lo float64 `json:"lo"`
	Hi float64 `json:"hi"`
}

func toRangeField(r *argload.RangeOrScalar) *rangeFieldJSON {
	if r == nil {
		return nil
	}
	return &rangeFieldJSON{Lo: r.Lo, Hi: r.Hi}
}

// Debug toggles the debug sidecar (per-worker CSV capture) on or off for
// every worker matching the optional plane/ordinal filter.
func Debug(baseURL string, opts DebugOptions) error {
	baseURL = strings.TrimRight(baseURL, "/")

	body := map[string]any{
		"plane":   toRangeField(opts.Plane),
		"ordinal": toRangeField(opts.Ordinal),
		"on":      opts.On,
		"path":    opts.Path,
	}

	var resp struct {
		OK bool `json:"ok"`
	}
	if err := postJSON(baseURL, "/nodes/debug", body, &resp); err != nil {
		return err
	}

	if opts.JSON {
		return printJSON(resp)
	}

	state := "disabled"
	if opts.On {
		state = "enabled"
	}
	fmt.Println()
	fmt.Printf("  %s  debug sidecar %s\n", colorize(eventColor("sidecar"), "SIDECAR"), state)
	fmt.Println()

	return nil
}
