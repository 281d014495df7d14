package argload

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
)

func TestLoadFromJSONScalarAndSlice(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "config.json")
	body := `{
		"num-sats": 4,
		"num-planes": 2,
		"debug": true,
		"endpoint": ["http://10.0.0.1:9000", "http://10.0.0.2:9000"]
	}`
	if err := os.WriteFile(jsonPath, []byte(body), 0o644); err != nil {
		t.Fatalf("write json: %v", err)
	}

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	numSats := fs.Int("num-sats", 0, "")
	numPlanes := fs.Int("num-planes", 1, "")
	debug := fs.Bool("debug", false, "")
	endpoints := fs.StringArray("endpoint", nil, "")

	if err := Load(fs, []string{jsonPath}); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if *numSats != 4 {
		t.Errorf("num-sats = %d, want 4", *numSats)
	}
	if *numPlanes != 2 {
		t.Errorf("num-planes = %d, want 2", *numPlanes)
	}
	if !*debug {
		t.Errorf("debug = false, want true")
	}
	if len(*endpoints) != 2 {
		t.Errorf("endpoint = %v, want 2 entries", *endpoints)
	}
}

func TestLoadFromJSONDictExpandsToKeyPipeValue(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "config.json")
	body := `{"HIL": {"node-a": [1, 2], "node-b": 3}}`
	if err := os.WriteFile(jsonPath, []byte(body), 0o644); err != nil {
		t.Fatalf("write json: %v", err)
	}

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	hil := fs.StringArray("HIL", nil, "")

	if err := Load(fs, []string{jsonPath}); err != nil {
		t.Fatalf("Load: %v", err)
	}

	want := map[string]bool{"node-a|1": false, "node-a|2": false, "node-b|3": false}
	if len(*hil) != 3 {
		t.Fatalf("HIL = %v, want 3 entries", *hil)
	}
	for _, v := range *hil {
		if _, ok := want[v]; !ok {
			t.Errorf("unexpected HIL entry %q", v)
		}
		want[v] = true
	}
	for k, seen := range want {
		if !seen {
			t.Errorf("missing expected HIL entry %q", k)
		}
	}
}

func TestParseRangeOrScalar(t *testing.T) {
	cases := []struct {
		in      string
		wantLo  float64
		wantHi  float64
		wantErr bool
	}{
		{"45", 45, 45, false},
		{"10..20", 10, 20, false},
		{"10,20", 10, 20, false},
		{"20..10", 0, 0, true},
		{"-95", 0, 0, true},
	}
	for _, c := range cases {
		got, err := ParseRangeOrScalar(c.in, -90, 90)
		if c.wantErr {
			if err == nil {
				t.Errorf("ParseRangeOrScalar(%q): expected error", c.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseRangeOrScalar(%q): unexpected error %v", c.in, err)
			continue
		}
		if got.Lo != c.wantLo || got.Hi != c.wantHi {
			t.Errorf("ParseRangeOrScalar(%q) = %+v, want lo=%v hi=%v", c.in, got, c.wantLo, c.wantHi)
		}
	}
}

func TestParseDurationHMS(t *testing.T) {
	cases := map[string]int{
		"30":       30,
		"1:30":     90,
		"1:00:00":  3600,
		"0:01:05":  65,
	}
	for in, want := range cases {
		got, err := ParseDurationHMS(in)
		if err != nil {
			t.Errorf("ParseDurationHMS(%q): unexpected error %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseDurationHMS(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestParseHIL(t *testing.T) {
	got, err := ParseHIL("node-a|2,5")
	if err != nil {
		t.Fatalf("ParseHIL: %v", err)
	}
	if got.NodeID != "node-a" || got.Plane != 2 || got.Ordinal != 5 {
		t.Errorf("ParseHIL = %+v, want node-a plane=2 ordinal=5", got)
	}

	got2, err := ParseHIL("node-b|7")
	if err != nil {
		t.Fatalf("ParseHIL: %v", err)
	}
	if got2.Plane != 1 || got2.Ordinal != 7 {
		t.Errorf("ParseHIL bare ordinal = %+v, want plane=1 ordinal=7", got2)
	}
}
