// Package sink delivers geodetic samples to one or more configured HTTP
// endpoints. Endpoints sharing the same delivery interval are grouped so a
// single ticking loop serves all of them.
package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

var httpClient = &http.Client{Timeout: 5 * time.Second}

// Schedule groups endpoint URLs by their delivery interval.
type Schedule struct {
	byInterval map[time.Duration][]string
}

// NewSchedule builds an empty schedule.
func NewSchedule() *Schedule {
	return &Schedule{byInterval: make(map[time.Duration][]string)}
}

// Add registers url for delivery at interval. Calling Add multiple times
// with the same interval groups the URLs into one delivery loop.
func (s *Schedule) Add(url string, interval time.Duration) {
	s.byInterval[interval] = append(s.byInterval[interval], url)
}

// Intervals returns the distinct delivery intervals configured.
func (s *Schedule) Intervals() []time.Duration {
	out := make([]time.Duration, 0, len(s.byInterval))
	for d := range s.byInterval {
		out = append(out, d)
	}
	return out
}

// URLsAt returns the URLs registered at the given interval.
func (s *Schedule) URLsAt(interval time.Duration) []string {
	return s.byInterval[interval]
}

// SampleFunc produces the current sample to deliver for the given
// interval group. It is called once per tick per interval group, so a
// caller recomputing position continuously (e.g. from elapsed wall-clock
// time) sees a fresh value at each interval group's own cadence,
// independent of the other groups, and can stamp the sample with the
// interval that produced it.
type SampleFunc func(interval time.Duration) any

// Run starts one delivery loop per distinct interval in schedule and blocks
// until ctx is cancelled. Delivery failures are logged and non-fatal,
// matching the bus/transport error-handling policy used everywhere else in
// this system.
func Run(ctx context.Context, schedule *Schedule, sample SampleFunc, logger *log.Logger) {
	intervals := schedule.Intervals()
	if len(intervals) == 0 {
		<-ctx.Done()
		return
	}

	done := make(chan struct{}, len(intervals))
	for _, interval := range intervals {
		go func(interval time.Duration, urls []string) {
			defer func() { done <- struct{}{} }()
			deliverLoop(ctx, interval, urls, sample, logger)
		}(interval, schedule.URLsAt(interval))
	}

	for range intervals {
		<-done
	}
}

func deliverLoop(ctx context.Context, interval time.Duration, urls []string, sample SampleFunc, logger *log.Logger) {
	if interval <= 0 {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			v := sample(interval)
			for _, url := range urls {
				if err := post(url, v); err != nil {
					logger.Printf("sink: delivery to %s failed: %v", url, err)
				}
			}
		}
	}
}

func post(url string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	resp, err := httpClient.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("HTTP %s", resp.Status)
	}
	return nil
}
