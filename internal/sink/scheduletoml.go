package sink

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// fileSchedule mirrors an optional bulk endpoint-schedule TOML file, used
// to supplement the repeatable --endpoint flag for operators who want a
// large fan-out list checked into source control instead of repeated on
// the command line.
//
//	[[endpoint]]
//	url = "http://10.0.0.1:9000/samples"
//	interval_seconds = 5
//
//	[[endpoint]]
//	url = "http://10.0.0.2:9000/samples"
//	interval_seconds = 5
type fileSchedule struct {
	Endpoint []fileEndpoint `toml:"endpoint"`
}

type fileEndpoint struct {
	URL             string  `toml:"url"`
	IntervalSeconds float64 `toml:"interval_seconds"`
}

// LoadTOML reads a bulk endpoint schedule file and adds every entry to
// schedule, falling back to defaultInterval for entries that omit
// interval_seconds.
func LoadTOML(path string, schedule *Schedule, defaultInterval time.Duration) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read endpoint schedule %s: %w", path, err)
	}

	var fs fileSchedule
	if err := toml.Unmarshal(b, &fs); err != nil {
		return fmt.Errorf("parse endpoint schedule %s: %w", path, err)
	}

	for _, e := range fs.Endpoint {
		if e.URL == "" {
			return fmt.Errorf("endpoint schedule %s: entry missing url", path)
		}
		interval := defaultInterval
		if e.IntervalSeconds > 0 {
			interval = time.Duration(e.IntervalSeconds * float64(time.Second))
		}
		schedule.Add(e.URL, interval)
	}
	return nil
}
