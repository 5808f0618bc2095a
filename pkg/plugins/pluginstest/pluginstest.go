// Package pluginstest provides in-memory plugin libraries for tests that need a
// populated plugins.Runtime without building shared objects.
package pluginstest

import (
	"errors"
	"maps"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/platinummonkey/resetd/pkg/pluginapi"
	"github.com/platinummonkey/resetd/pkg/plugins"
)

// Library serves symbols from a map
type Library struct {
	path    string
	symbols map[string]any
}

// NewLibrary returns a library at path exporting symbols
func NewLibrary(path string, symbols map[string]any) *Library {
	return &Library{path: path, symbols: symbols}
}

// Path implements plugins.Library
func (l *Library) Path() string { return l.path }

// Lookup implements plugins.Library
func (l *Library) Lookup(symbol string) (any, error) {
	if sym, ok := l.symbols[symbol]; ok {
		return sym, nil
	}
	return nil, plugins.ErrSymbolNotFound
}

// Opener opens files whose base name was added and fails on the rest
type Opener struct {
	mu     sync.Mutex
	libs   map[string]map[string]any
	opened []string
}

// NewOpener returns an Opener with no libraries
func NewOpener() *Opener {
	return &Opener{libs: make(map[string]map[string]any)}
}

// Add registers the symbols served for file
func (o *Opener) Add(file string, symbols map[string]any) *Opener {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.libs[file] = symbols
	return o
}

// Open implements plugins.Opener
func (o *Opener) Open(path string) (plugins.Library, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.opened = append(o.opened, filepath.Base(path))
	symbols, ok := o.libs[filepath.Base(path)]
	if !ok {
		return nil, errors.New("invalid ELF header")
	}
	return NewLibrary(path, symbols), nil
}

// Opened returns the base names passed to Open, in order
func (o *Opener) Opened() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.opened...)
}

// Backend describes a backend plugin. Nil hooks become no-ops.
type Backend struct {
	Name          string
	Implements    pluginapi.Implementation
	Capabilities  []string
	Startup       func()
	Shutdown      func()
	DBusInterface func(pluginapi.Registrar)
	Tests         func() []pluginapi.Test
}

// Symbols returns the backend contract symbols
func (b Backend) Symbols() map[string]any {
	noop := func() {}
	startup, shutdown := b.Startup, b.Shutdown
	if startup == nil {
		startup = noop
	}
	if shutdown == nil {
		shutdown = noop
	}
	iface := b.DBusInterface
	if iface == nil {
		iface = func(pluginapi.Registrar) {}
	}
	tests := b.Tests
	if tests == nil {
		tests = func() []pluginapi.Test { return nil }
	}
	caps := pluginapi.NewCapabilities(b.Implements, b.Capabilities...)

	return map[string]any{
		pluginapi.SymbolCapabilities:    pluginapi.CapabilitiesFunc(func() pluginapi.Capabilities { return caps }),
		pluginapi.SymbolName:            pluginapi.NameFunc(func() string { return b.Name }),
		pluginapi.SymbolBackendStartup:  pluginapi.LifecycleFunc(startup),
		pluginapi.SymbolBackendShutdown: pluginapi.LifecycleFunc(shutdown),
		pluginapi.SymbolDBusInterface:   pluginapi.InterfaceFunc(iface),
		pluginapi.SymbolBackendTests:    pluginapi.TestsFunc(tests),
	}
}

// Frontend describes a frontend plugin. Nil hooks become no-ops.
type Frontend struct {
	Name         string
	// Implements defaults to ImplementsFrontend when left at the zero value
	Implements   pluginapi.Implementation
	Capabilities []string
	Sidebar      pluginapi.SidebarInfo
	Tests        func() []pluginapi.Test
}

// Symbols returns the frontend contract symbols
func (f Frontend) Symbols() map[string]any {
	tests := f.Tests
	if tests == nil {
		tests = func() []pluginapi.Test { return nil }
	}
	impl := f.Implements
	if impl == pluginapi.ImplementsBackend {
		impl = pluginapi.ImplementsFrontend
	}
	caps := pluginapi.NewCapabilities(impl, f.Capabilities...)
	sidebar := f.Sidebar

	return map[string]any{
		pluginapi.SymbolCapabilities:     pluginapi.CapabilitiesFunc(func() pluginapi.Capabilities { return caps }),
		pluginapi.SymbolFrontendName:     pluginapi.NameFunc(func() string { return f.Name }),
		pluginapi.SymbolFrontendStartup:  pluginapi.LifecycleFunc(func() {}),
		pluginapi.SymbolFrontendShutdown: pluginapi.LifecycleFunc(func() {}),
		pluginapi.SymbolFrontendData:     pluginapi.FrontendDataFunc(func() (pluginapi.SidebarInfo, []any) { return sidebar, nil }),
		pluginapi.SymbolFrontendTests:    pluginapi.TestsFunc(tests),
	}
}

// Merge combines symbol maps, later maps winning
func Merge(symbols ...map[string]any) map[string]any {
	out := make(map[string]any)
	for _, s := range symbols {
		maps.Copy(out, s)
	}
	return out
}

// WriteFiles creates empty files named names in dir
func WriteFiles(tb testing.TB, dir string, names ...string) {
	tb.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			tb.Fatalf("write %s: %v", name, err)
		}
	}
}
