package ctl

import (
	"fmt"
	"strings"
)

// Stop tells the Controller to mutate its table to the stopped state and
// broadcast "stop" to every worker.
func Stop(baseURL string, jsonOutput bool) error {
	baseURL = strings.TrimRight(baseURL, "/")

	var resp struct {
		OK bool `json:"ok"`
	}
	if err := postJSON(baseURL, "/stop", nil, &resp); err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(resp)
	}

	fmt.Println()
	fmt.Printf("  %s\n", colorize(eventColor("stop"), "STOPPED"))
	fmt.Println()

	return nil
}
