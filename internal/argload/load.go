package argload

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/pflag"
)

// Load parses process arguments into fs. If the CLI environment variable is
// set, args is parsed directly as flags. Otherwise args must be a single
// element naming a JSON file whose keys mirror fs's long flag names; the
// JSON is translated into an equivalent flag argument list and parsed
// through the same FlagSet, so both paths validate identically.
func Load(fs *pflag.FlagSet, args []string) error {
	if UseCLI() {
		return fs.Parse(args)
	}

	if len(args) != 1 {
		return fmt.Errorf("expected a single JSON configuration file argument")
	}

	b, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read JSON config: %w", err)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(b, &doc); err != nil {
		return fmt.Errorf("parse JSON config: %w", err)
	}

	flagArgs, err := translate(fs, doc)
	if err != nil {
		return err
	}

	return fs.Parse(flagArgs)
}

// translate walks the decoded JSON object and re-synthesizes the
// equivalent "--flag value" argument list. Only the bool case looks at the
// flag's declared type; every other case is chosen by the shape of the
// JSON value:
//
//   - a flag whose Value.Type() is "bool" is set only when the JSON value
//     is true (mirrors store_true)
//   - a JSON list gives one flag occurrence per element
//   - a JSON object gives one "key|value" occurrence per object entry,
//     list-valued entries expanding to one occurrence per list element —
//     the dict form is how a JSON config attaches several values to the
//     same repeatable key (such as --HIL), e.g. multiple ordinals per HIL
//     host.
//   - any other JSON scalar sets the flag once.
func translate(fs *pflag.FlagSet, doc map[string]json.RawMessage) ([]string, error) {
	var flagArgs []string

	for key, raw := range doc {
		f := fs.Lookup(key)
		if f == nil {
			continue
		}
		dashKey := "--" + key

		var asBool bool
		if err := json.Unmarshal(raw, &asBool); err == nil {
			if f.Value.Type() == "bool" {
				if asBool {
					flagArgs = append(flagArgs, dashKey)
				}
				continue
			}
		}

		var asList []json.RawMessage
		if err := json.Unmarshal(raw, &asList); err == nil {
			for _, elem := range asList {
				s, err := scalarString(elem)
				if err != nil {
					return nil, fmt.Errorf("field %q: %w", key, err)
				}
				flagArgs = append(flagArgs, dashKey, s)
			}
			continue
		}

		var asDict map[string]json.RawMessage
		if err := json.Unmarshal(raw, &asDict); err == nil {
			for dictKey, dictVal := range asDict {
				var subList []json.RawMessage
				if err := json.Unmarshal(dictVal, &subList); err == nil {
					for _, elem := range subList {
						s, err := scalarString(elem)
						if err != nil {
							return nil, fmt.Errorf("field %q.%q: %w", key, dictKey, err)
						}
						flagArgs = append(flagArgs, dashKey, dictKey+"|"+s)
					}
					continue
				}
				s, err := scalarString(dictVal)
				if err != nil {
					return nil, fmt.Errorf("field %q.%q: %w", key, dictKey, err)
				}
				flagArgs = append(flagArgs, dashKey, dictKey+"|"+s)
			}
			continue
		}

		s, err := scalarString(raw)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		flagArgs = append(flagArgs, dashKey, s)
	}

	return flagArgs, nil
}

// scalarString renders a JSON scalar (string, number, or bool) as its flag
// argument string form.
func scalarString(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return fmt.Sprintf("%v", f), nil
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return fmt.Sprintf("%v", b), nil
	}
	return "", fmt.Errorf("unsupported JSON value %s", string(raw))
}
