package ctl

import (
	"fmt"
	"strings"

	"github.com/skyline-labs/constellation-sim/internal/argload"
)

// ExfiltOptions configures the exfilt sidecar toggle command.
type ExfiltOptions struct {
	Plane    *argload.RangeOrScalar
	Ordinal  *argload.RangeOrScalar
	On       bool
	Endpoint string
	Command  string
	JSON     bool
}

// Exfilt toggles the exfiltration sidecar (alternate HTTP or command
// delivery) on or off for every worker matching the optional plane/ordinal
// filter.
func Exfilt(baseURL string, opts ExfiltOptions) error {
	baseURL = strings.TrimRight(baseURL, "/")

	body := map[string]any{
		"plane":    toRangeField(opts.Plane),
		"ordinal":  toRangeField(opts.Ordinal),
		"on":       opts.On,
		"endpoint": opts.Endpoint,
		"command":  opts.Command,
	}

	var resp struct {
		OK bool `json:"ok"`
	}
	if err := postJSON(baseURL, "/nodes/exfilt", body, &resp); err != nil {
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
	fmt.Printf("  %s  exfilt sidecar %s\n", colorize(eventColor("sidecar"), "SIDECAR"), state)
	fmt.Println()

	return nil
}
