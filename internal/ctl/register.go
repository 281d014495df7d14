package ctl

import (
	"fmt"
	"strings"
	"time"
)

// RegisterOptions configures the register command.
type RegisterOptions struct {
	Plane   int
	Ordinal int
	Class   string
	JSON    bool
}

// registerResponse mirrors POST /nodes's JSON response.
type registerResponse struct {
	OK        bool      `json:"ok"`
	StartTime time.Time `json:"start_time"`
}

// Register tells the Controller that a worker at (Plane, Ordinal) is up.
func Register(baseURL string, opts RegisterOptions) error {
	baseURL = strings.TrimRight(baseURL, "/")

	body := map[string]any{
		"plane":   opts.Plane,
		"ordinal": opts.Ordinal,
		"class":   opts.Class,
	}

	var resp registerResponse
	if err := postJSON(baseURL, "/nodes", body, &resp); err != nil {
		return err
	}

	if opts.JSON {
		return printJSON(resp)
	}

	fmt.Println()
	fmt.Printf("  %s  plane=%d ordinal=%d\n", colorize(green, "REGISTERED"), opts.Plane, opts.Ordinal)
	if !resp.StartTime.IsZero() {
		fmt.Printf("  %-14s %s\n", colorize(dim, "Start time:"), resp.StartTime.Format(time.RFC3339))
	} else {
		fmt.Printf("  %-14s %s\n", colorize(dim, "Start time:"), colorize(yellow, "waiting for barrier"))
	}
	fmt.Println()

	return nil
}
