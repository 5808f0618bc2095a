package bus

import (
	"errors"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"sort"
	"sync"
)

const (
	// BusName is the well-known name owned by the daemon
	BusName = "org.Xetibo.ReSet.Daemon"
	// PluginObjectPath is the only object path plugins can export on
	PluginObjectPath = "/org/Xetibo/ReSet/Plugins"
	// DataInterface serves plugin state at PluginObjectPath
	DataInterface = "org.Xetibo.ReSet.PluginData"
)

var (
	// ErrAlreadyExported is returned when an interface already exists at a path
	ErrAlreadyExported = errors.New("interface already exported")
	// ErrNotExported is returned for calls to unknown interfaces or methods
	ErrNotExported = errors.New("not exported")
)

// InterfaceSpec is one interface ready to be exported
type InterfaceSpec struct {
	Name    string
	Methods map[string]any
	Signals []string
}

// Dispatcher exports interfaces on object paths and emits their signals
type Dispatcher interface {
	Export(path string, spec InterfaceSpec) error
	Emit(path, iface, signal string, values ...any) error
	Close() error
}

// Signal is one signal emitted through a MemoryDispatcher
type Signal struct {
	Path      string
	Interface string
	Name      string
	Values    []any
}

// MemoryDispatcher keeps exported interfaces and emitted signals in memory
type MemoryDispatcher struct {
	mu      sync.RWMutex
	exports map[string]map[string]InterfaceSpec
	signals []Signal
	closed  bool
}

// NewMemoryDispatcher returns an empty MemoryDispatcher
func NewMemoryDispatcher() *MemoryDispatcher {
	return &MemoryDispatcher{exports: make(map[string]map[string]InterfaceSpec)}
}

// Export records spec at path
func (m *MemoryDispatcher) Export(path string, spec InterfaceSpec) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return errors.New("dispatcher closed")
	}
	ifaces, ok := m.exports[path]
	if !ok {
		ifaces = make(map[string]InterfaceSpec)
		m.exports[path] = ifaces
	}
	if _, dup := ifaces[spec.Name]; dup {
		return fmt.Errorf("%s at %s: %w", spec.Name, path, ErrAlreadyExported)
	}
	ifaces[spec.Name] = InterfaceSpec{
		Name:    spec.Name,
		Methods: maps.Clone(spec.Methods),
		Signals: slices.Clone(spec.Signals),
	}
	return nil
}

// Paths returns every path with at least one interface
func (m *MemoryDispatcher) Paths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	paths := slices.Collect(maps.Keys(m.exports))
	sort.Strings(paths)
	return paths
}

// Interfaces returns the interface names exported at path
func (m *MemoryDispatcher) Interfaces(path string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := slices.Collect(maps.Keys(m.exports[path]))
	sort.Strings(names)
	return names
}

// Call invokes an exported method. A non-nil error in the last return position is
// returned as the error.
func (m *MemoryDispatcher) Call(path, iface, method string, args ...any) ([]any, error) {
	m.mu.RLock()
	spec, ok := m.exports[path][iface]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%s at %s: %w", iface, path, ErrNotExported)
	}
	fn, ok := spec.Methods[method]
	if !ok {
		return nil, fmt.Errorf("%s.%s: %w", iface, method, ErrNotExported)
	}

	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func {
		return nil, fmt.Errorf("%s.%s is not a function", iface, method)
	}
	t := v.Type()
	if t.NumIn() != len(args) {
		return nil, fmt.Errorf("%s.%s takes %d arguments, got %d", iface, method, t.NumIn(), len(args))
	}

	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		av := reflect.ValueOf(arg)
		if !av.IsValid() || !av.Type().AssignableTo(t.In(i)) {
			return nil, fmt.Errorf("%s.%s argument %d: want %s, got %T", iface, method, i, t.In(i), arg)
		}
		in[i] = av
	}

	out := v.Call(in)
	results := make([]any, 0, len(out))
	for i, o := range out {
		if i == len(out)-1 && t.Out(i).Implements(errorType) {
			if !o.IsNil() {
				return results, o.Interface().(error)
			}
			break
		}
		results = append(results, o.Interface())
	}
	return results, nil
}

// Emit records a signal of an exported interface
func (m *MemoryDispatcher) Emit(path, iface, signal string, values ...any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return errors.New("dispatcher closed")
	}
	spec, ok := m.exports[path][iface]
	if !ok {
		return fmt.Errorf("%s at %s: %w", iface, path, ErrNotExported)
	}
	if !slices.Contains(spec.Signals, signal) {
		return fmt.Errorf("signal %s.%s: %w", iface, signal, ErrNotExported)
	}
	m.signals = append(m.signals, Signal{
		Path:      path,
		Interface: iface,
		Name:      signal,
		Values:    slices.Clone(values),
	})
	return nil
}

// Signals returns the emitted signals in order
func (m *MemoryDispatcher) Signals() []Signal {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.signals)
}

// Close marks the dispatcher closed
func (m *MemoryDispatcher) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

var errorType = reflect.TypeFor[error]()
