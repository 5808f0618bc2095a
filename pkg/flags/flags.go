// Package flags parses the daemon's pass-through flags, the arguments given after
// "--" on the command line, into named Dynamic Values that plugins can read.
package flags

import (
	"fmt"
	"strings"

	"github.com/platinummonkey/resetd/pkg/pluginapi"
	"github.com/platinummonkey/resetd/pkg/variant"
)

// Flag is one named pass-through flag. Value holds variant.Empty() when the flag had
// no values, a string for one value and a []string for several.
type Flag struct {
	Name  string
	Value variant.Variant
}

// Flags keeps flags in command-line order
type Flags []Flag

// IsFlag reports whether token is "-x" or "--xy" shaped
func IsFlag(token string) bool {
	if strings.HasPrefix(token, "--") {
		return len(token) > 2
	}
	return strings.HasPrefix(token, "-") && len(token) > 1
}

// Parse groups args into flags. Each flag takes the values up to the next flag.
// Tokens that appear where a flag is expected are reported and skipped.
func Parse(args []string) (Flags, []error) {
	var (
		out  Flags
		errs []error
	)

	for i := 0; i < len(args); {
		token := args[i]
		i++
		if !IsFlag(token) {
			errs = append(errs, fmt.Errorf("expected a flag, got a regular string instead: %s", token))
			continue
		}

		var values []string
		for i < len(args) && !IsFlag(args[i]) {
			values = append(values, args[i])
			i++
		}

		var value variant.Variant
		switch len(values) {
		case 0:
			value = variant.Empty()
		case 1:
			value = variant.Wrap(values[0])
		default:
			value = variant.Wrap(values)
		}
		out = append(out, Flag{Name: strings.TrimLeft(token, "-"), Value: value})
	}

	return out, errs
}

// Lookup returns the last flag called name
func (f Flags) Lookup(name string) (variant.Variant, bool) {
	for i := len(f) - 1; i >= 0; i-- {
		if f[i].Name == name {
			return f[i].Value, true
		}
	}
	return variant.Variant{}, false
}

// Names returns the flag names in order
func (f Flags) Names() []string {
	names := make([]string, len(f))
	for i, flag := range f {
		names[i] = flag.Name
	}
	return names
}

// Data returns the flags as plugin data, later flags replacing earlier ones
func (f Flags) Data() pluginapi.Data {
	data := pluginapi.NewData()
	for _, flag := range f {
		data.Set(flag.Name, flag.Value.Clone())
	}
	return data
}
