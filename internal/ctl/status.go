package ctl

import (
	"fmt"
	"strings"
	"time"
)

// WorkerStatus mirrors one entry of the Controller's registration table.
type WorkerStatus struct {
	Plane        int       `json:"plane"`
	Ordinal      int       `json:"ordinal"`
	Class        string    `json:"class"`
	RegisteredAt time.Time `json:"registered_at"`
	Debug        bool      `json:"debug"`
	Exfilt       bool      `json:"exfilt"`
}

// StatusResponse mirrors the JSON returned by GET /status.
type StatusResponse struct {
	Target    int            `json:"target"`
	Workers   []WorkerStatus `json:"workers"`
	StartTime time.Time      `json:"start_time"`
	Started   bool           `json:"started"`
	Stopped   bool           `json:"stopped"`
}

// Status fetches the Controller's registration snapshot and prints a
// formatted summary, including a progress bar toward the start barrier.
func Status(baseURL string, jsonOutput bool) error {
	baseURL = strings.TrimRight(baseURL, "/")

	var s StatusResponse
	if err := getJSON(baseURL, "/status", &s); err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(s)
	}

	pct := 0
	if s.Target > 0 {
		pct = (len(s.Workers) * 100) / s.Target
	}

	fmt.Println()
	fmt.Println(header("  CONSTELLATION STATUS"))
	fmt.Println(colorize(dim, "  "+strings.Repeat("─", 38)))
	fmt.Printf("  %-14s %d / %d  [%s]\n", colorize(dim, "Registered:"), len(s.Workers), s.Target, progressBar(pct, 20))
	if s.Started {
		fmt.Printf("  %-14s %s\n", colorize(dim, "Started:"), colorize(green, s.StartTime.Format(time.RFC3339)))
	} else {
		fmt.Printf("  %-14s %s\n", colorize(dim, "Started:"), colorize(yellow, "waiting for barrier"))
	}
	if s.Stopped {
		fmt.Printf("  %-14s %s\n", colorize(dim, "Stopped:"), colorize(red, "yes"))
	}
	fmt.Printf("  %-14s %s\n", colorize(dim, "Host:"), baseURL)
	fmt.Println()

	if len(s.Workers) > 0 {
		fmt.Printf("  %-8s %-8s %-12s %-8s %-8s\n", "PLANE", "ORDINAL", "CLASS", "DEBUG", "EXFILT")
		for _, w := range s.Workers {
			fmt.Printf("  %-8d %-8d %-12s %-8v %-8v\n", w.Plane, w.Ordinal, w.Class, w.Debug, w.Exfilt)
		}
		fmt.Println()
	}

	return nil
}
