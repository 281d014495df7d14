package ctl

import (
	"fmt"
	"strings"
)

// UnregisterOptions configures the unregister command.
type UnregisterOptions struct {
	Plane   int
	Ordinal int
	JSON    bool
}

// Unregister tells the Controller that a worker at (Plane, Ordinal) has
// left.
func Unregister(baseURL string, opts UnregisterOptions) error {
	baseURL = strings.TrimRight(baseURL, "/")

	body := map[string]any{"plane": opts.Plane, "ordinal": opts.Ordinal}

	var resp struct {
		OK bool `json:"ok"`
	}
	if err := deleteJSON(baseURL, "/nodes", body, &resp); err != nil {
		return err
	}

	if opts.JSON {
		return printJSON(resp)
	}

	fmt.Println()
	fmt.Printf("  %s  plane=%d ordinal=%d\n", colorize(red, "UNREGISTERED"), opts.Plane, opts.Ordinal)
	fmt.Println()

	return nil
}
