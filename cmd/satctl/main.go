// Satctl is the command-line client for monitoring and controlling a
// running controllerd instance. It connects over HTTP and WebSocket to
// register/unregister workers, toggle sidecars, and stream live events.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/skyline-labs/constellation-sim/internal/argload"
	"github.com/skyline-labs/constellation-sim/internal/ctl"
)

func main() {
	var (
		host    = pflag.StringP("host", "H", "http://127.0.0.1:9000", "Controller URL (e.g. http://10.0.0.1:9000)")
		jsonOut = pflag.Bool("json", false, "Output raw JSON instead of formatted text")
		filter  = pflag.StringSlice("filter", nil, "Event types to show in watch (e.g. --filter start,stop)")
	)

	// Stop parsing global flags at the first non-flag argument (the command
	// name), so subcommand-specific flags like --plane are not rejected.
	pflag.CommandLine.SetInterspersed(false)
	pflag.Parse()

	if pflag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	cmd := pflag.Arg(0)
	subArgs := pflag.Args()[1:]

	var err error
	switch cmd {
	case "status":
		err = ctl.Status(*host, *jsonOut)

	case "register":
		opts := ctl.RegisterOptions{JSON: *jsonOut, Class: "orbit"}
		fs := pflag.NewFlagSet("register", pflag.ContinueOnError)
		fs.IntVar(&opts.Plane, "plane", 0, "Plane number (1-indexed)")
		fs.IntVar(&opts.Ordinal, "ordinal", 0, "Ordinal within the plane (1-indexed)")
		fs.StringVar(&opts.Class, "class", "orbit", "Worker class (orbit, hil, thirdParty)")
		_ = fs.Parse(subArgs)
		err = ctl.Register(*host, opts)

	case "unregister":
		opts := ctl.UnregisterOptions{JSON: *jsonOut}
		fs := pflag.NewFlagSet("unregister", pflag.ContinueOnError)
		fs.IntVar(&opts.Plane, "plane", 0, "Plane number")
		fs.IntVar(&opts.Ordinal, "ordinal", 0, "Ordinal within the plane")
		_ = fs.Parse(subArgs)
		err = ctl.Unregister(*host, opts)

	case "debug":
		opts := ctl.DebugOptions{JSON: *jsonOut}
		fs := pflag.NewFlagSet("debug", pflag.ContinueOnError)
		planeStr := fs.String("plane", "", "Plane number or range (e.g. 2..4)")
		ordinalStr := fs.String("ordinal", "", "Ordinal number or range")
		fs.BoolVar(&opts.On, "on", true, "Enable (true) or disable (false) the debug sidecar")
		fs.StringVar(&opts.Path, "path", "debug.csv", "Debug CSV output path on each worker")
		_ = fs.Parse(subArgs)
		if opts.Plane, err = optionalRange(*planeStr); err != nil {
			fatal(err)
		}
		if opts.Ordinal, err = optionalRange(*ordinalStr); err != nil {
			fatal(err)
		}
		err = ctl.Debug(*host, opts)

	case "exfilt":
		opts := ctl.ExfiltOptions{JSON: *jsonOut}
		fs := pflag.NewFlagSet("exfilt", pflag.ContinueOnError)
		planeStr := fs.String("plane", "", "Plane number or range (e.g. 2..4)")
		ordinalStr := fs.String("ordinal", "", "Ordinal number or range")
		fs.BoolVar(&opts.On, "on", true, "Enable (true) or disable (false) the exfilt sidecar")
		fs.StringVar(&opts.Endpoint, "endpoint", "", "HTTP endpoint to POST samples to")
		fs.StringVar(&opts.Command, "command", "", "Shell command to pipe sample JSON into")
		_ = fs.Parse(subArgs)
		if opts.Plane, err = optionalRange(*planeStr); err != nil {
			fatal(err)
		}
		if opts.Ordinal, err = optionalRange(*ordinalStr); err != nil {
			fatal(err)
		}
		err = ctl.Exfilt(*host, opts)

	case "thirdParty":
		opts := ctl.ThirdPartyOptions{JSON: *jsonOut}
		fs := pflag.NewFlagSet("thirdParty", pflag.ContinueOnError)
		planeStr := fs.String("plane", "", "Plane number or range")
		ordinalStr := fs.String("ordinal", "", "Ordinal number or range")
		_ = fs.Parse(subArgs)
		if opts.Plane, err = optionalRange(*planeStr); err != nil {
			fatal(err)
		}
		if opts.Ordinal, err = optionalRange(*ordinalStr); err != nil {
			fatal(err)
		}
		err = ctl.ThirdParty(*host, opts)

	case "stop":
		err = ctl.Stop(*host, *jsonOut)

	case "watch":
		err = ctl.Watch(*host, ctl.WatchOptions{
			Filter: *filter,
			JSON:   *jsonOut,
		})

	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// optionalRange parses a plane/ordinal flag value into a RangeOrScalar,
// returning nil when the flag was left empty (meaning "match everything").
func optionalRange(s string) (*argload.RangeOrScalar, error) {
	if s == "" {
		return nil, nil
	}
	r, err := argload.ParseRangeOrScalar(s, 1, 1<<20)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}

func usage() {
	fmt.Print(`
  satctl — constellation control CLI

  USAGE
    satctl [flags] <command> [command-flags]

  COMMANDS
    status          Show registration table, barrier state, and sidecar flags
    register        Register a worker (plane, ordinal, class) with the Controller
    unregister      Unregister a worker
    debug           Toggle the debug CSV sidecar for a plane/ordinal range
    exfilt          Toggle the exfiltration sidecar for a plane/ordinal range
    thirdParty      Trigger HIL workers in a plane/ordinal range to run once
    stop            Stop the constellation (mutate table, then broadcast stop)
    watch           Stream live Controller events (Ctrl-C to stop)

  GLOBAL FLAGS
    -H, --host URL      Controller base URL (default: http://127.0.0.1:9000)
        --json          Output raw JSON instead of formatted text
        --filter TYPE   Event types to show in watch (comma-separated)

  COMMAND FLAGS
    register:
        --plane N       Plane number
        --ordinal N     Ordinal within the plane
        --class NAME    Worker class (default: orbit)

    unregister:
        --plane N       Plane number
        --ordinal N     Ordinal within the plane

    debug / exfilt / thirdParty:
        --plane SPEC      Plane number or range (e.g. 2..4), omit for all
        --ordinal SPEC    Ordinal number or range, omit for all

    debug:
        --on=BOOL       Enable or disable (default: true)
        --path FILE     Debug CSV path on each worker (default: debug.csv)

    exfilt:
        --on=BOOL         Enable or disable (default: true)
        --endpoint URL    HTTP endpoint to POST samples to
        --command CMD     Shell command to pipe sample JSON into

  EXAMPLES
    satctl status
    satctl register --plane 1 --ordinal 1
    satctl debug --plane 1..2 --on true
    satctl exfilt --plane 3 --endpoint http://10.0.0.9:9100/ingest
    satctl thirdParty --plane 2
    satctl stop
    satctl watch --filter start,stop

`)
}
