package pluginapi

import (
	"maps"
	"slices"

	"github.com/platinummonkey/resetd/pkg/variant"
)

// Data is plugin-owned state exposed next to its interfaces: named Dynamic Values
type Data map[string]variant.Variant

// NewData returns an empty Data
func NewData() Data {
	return make(Data)
}

// Set stores value under key
func (d Data) Set(key string, value variant.Variant) {
	d[key] = value
}

// Get returns the value under key
func (d Data) Get(key string) (variant.Variant, bool) {
	v, ok := d[key]
	return v, ok
}

// Keys returns the keys in sorted order
func (d Data) Keys() []string {
	return slices.Sorted(maps.Keys(d))
}

// Clone deep-copies every value
func (d Data) Clone() Data {
	out := make(Data, len(d))
	for k, v := range d {
		out[k] = v.Clone()
	}
	return out
}
