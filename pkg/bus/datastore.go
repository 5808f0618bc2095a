package bus

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/godbus/dbus/v5"

	"github.com/platinummonkey/resetd/pkg/observability"
	"github.com/platinummonkey/resetd/pkg/pluginapi"
	"github.com/platinummonkey/resetd/pkg/variant"
)

// Bus error names returned by the data interface
const (
	ErrorUnknownPlugin = "org.Xetibo.ReSet.Error.UnknownPlugin"
	ErrorUnknownKey    = "org.Xetibo.ReSet.Error.UnknownKey"
	ErrorNoValue       = "org.Xetibo.ReSet.Error.NoValue"
	ErrorUnsupported   = "org.Xetibo.ReSet.Error.UnsupportedValue"
)

var (
	// ErrUnknownPlugin is returned for a plugin without data
	ErrUnknownPlugin = errors.New("unknown plugin")
	// ErrUnknownKey is returned for a key the plugin did not insert
	ErrUnknownKey = errors.New("unknown key")
)

// DataStore holds the Data inserted by each plugin
type DataStore struct {
	mu   sync.RWMutex
	data map[string]pluginapi.Data
}

// NewDataStore returns an empty store
func NewDataStore() *DataStore {
	return &DataStore{data: make(map[string]pluginapi.Data)}
}

// Put merges data into the plugin's entry. Values are cloned.
func (s *DataStore) Put(plugin string, data pluginapi.Data) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.data[plugin]
	if !ok {
		entry = pluginapi.NewData()
		s.data[plugin] = entry
	}
	for k, v := range data {
		entry[k] = v.Clone()
	}
}

// Plugins returns the names of plugins with data, sorted
func (s *DataStore) Plugins() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.data))
}

// Keys returns the keys stored for plugin
func (s *DataStore) Keys(plugin string) ([]string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.data[plugin]
	if !ok {
		return nil, false
	}
	return entry.Keys(), true
}

// Get returns a copy of one value
func (s *DataStore) Get(plugin, key string) (variant.Variant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.data[plugin]
	if !ok {
		return variant.Variant{}, fmt.Errorf("%w %q", ErrUnknownPlugin, plugin)
	}
	v, ok := entry.Get(key)
	if !ok {
		return variant.Variant{}, fmt.Errorf("%w %q for plugin %q", ErrUnknownKey, key, plugin)
	}
	return v.Clone(), nil
}

// Spec returns the bus interface serving this store
func (s *DataStore) Spec() InterfaceSpec {
	return InterfaceSpec{
		Name: DataInterface,
		Methods: map[string]any{
			"Plugins": func() ([]string, *dbus.Error) {
				return s.Plugins(), nil
			},
			"Keys": func(plugin string) ([]string, *dbus.Error) {
				keys, ok := s.Keys(plugin)
				if !ok {
					return nil, dbus.NewError(ErrorUnknownPlugin, []any{plugin})
				}
				return keys, nil
			},
			"Get": func(plugin, key string) (dbus.Variant, *dbus.Error) {
				v, err := s.Get(plugin, key)
				switch {
				case errors.Is(err, ErrUnknownPlugin):
					return dbus.Variant{}, dbus.NewError(ErrorUnknownPlugin, []any{plugin})
				case errors.Is(err, ErrUnknownKey):
					return dbus.Variant{}, dbus.NewError(ErrorUnknownKey, []any{key})
				}
				return ToWire(v)
			},
		},
	}
}

// ToWire converts a Dynamic Value to a bus variant. Values without a bus signature,
// like empty ones, are reported as bus errors.
func ToWire(v variant.Variant) (wire dbus.Variant, dbusErr *dbus.Error) {
	if v.IsEmpty() {
		return dbus.Variant{}, dbus.NewError(ErrorNoValue, nil)
	}

	err := observability.SafeCall(func() {
		wire = dbus.MakeVariant(v.Any())
	})
	if err != nil {
		return dbus.Variant{}, dbus.NewError(ErrorUnsupported, []any{v.Type().String()})
	}
	return wire, nil
}
