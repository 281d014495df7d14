package sink

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"
)

func TestScheduleGroupsByInterval(t *testing.T) {
	s := NewSchedule()
	s.Add("http://a", 5*time.Second)
	s.Add("http://b", 5*time.Second)
	s.Add("http://c", 10*time.Second)

	if got := s.URLsAt(5 * time.Second); len(got) != 2 {
		t.Errorf("expected 2 URLs grouped at 5s, got %v", got)
	}
	if got := s.URLsAt(10 * time.Second); len(got) != 1 {
		t.Errorf("expected 1 URL grouped at 10s, got %v", got)
	}
	if len(s.Intervals()) != 2 {
		t.Errorf("expected 2 distinct intervals, got %v", s.Intervals())
	}
}

func TestRunDeliversToEndpoint(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewSchedule()
	s.Add(srv.URL, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	logger := log.New(os.Stderr, "test ", 0)
	Run(ctx, s, func(interval time.Duration) any { return map[string]any{"lat": 1.0, "interval": interval.Seconds()} }, logger)

	if atomic.LoadInt32(&hits) == 0 {
		t.Error("expected at least one delivery to the test endpoint")
	}
}
