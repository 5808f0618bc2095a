package plugins

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/resetd/pkg/pluginapi"
)

// fakeLibrary serves symbols from a map
type fakeLibrary struct {
	path    string
	symbols map[string]any
}

func (f *fakeLibrary) Path() string { return f.path }

func (f *fakeLibrary) Lookup(symbol string) (any, error) {
	if sym, ok := f.symbols[symbol]; ok {
		return sym, nil
	}
	return nil, ErrSymbolNotFound
}

// fakeOpener opens files whose base name is registered in libs and fails on the rest
type fakeOpener struct {
	libs  map[string]map[string]any
	delay time.Duration

	mu     sync.Mutex
	opened []string
}

func newFakeOpener() *fakeOpener {
	return &fakeOpener{libs: make(map[string]map[string]any)}
}

func (o *fakeOpener) add(file string, symbols map[string]any) *fakeOpener {
	o.libs[file] = symbols
	return o
}

func (o *fakeOpener) Open(path string) (Library, error) {
	if o.delay > 0 {
		time.Sleep(o.delay)
	}

	o.mu.Lock()
	o.opened = append(o.opened, filepath.Base(path))
	o.mu.Unlock()

	symbols, ok := o.libs[filepath.Base(path)]
	if !ok {
		return nil, errors.New("invalid ELF header")
	}
	return &fakeLibrary{path: path, symbols: symbols}, nil
}

func (o *fakeOpener) openedFiles() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.opened...)
}

func backendSymbols(name string, impl pluginapi.Implementation, caps ...string) map[string]any {
	return map[string]any{
		pluginapi.SymbolCapabilities:    func() pluginapi.Capabilities { return pluginapi.NewCapabilities(impl, caps...) },
		pluginapi.SymbolName:            func() string { return name },
		pluginapi.SymbolBackendStartup:  func() {},
		pluginapi.SymbolBackendShutdown: func() {},
		pluginapi.SymbolDBusInterface:   func(pluginapi.Registrar) {},
		pluginapi.SymbolBackendTests:    func() []pluginapi.Test { return nil },
	}
}

func frontendSymbols(name string, impl pluginapi.Implementation, caps ...string) map[string]any {
	return map[string]any{
		pluginapi.SymbolCapabilities:     func() pluginapi.Capabilities { return pluginapi.NewCapabilities(impl, caps...) },
		pluginapi.SymbolFrontendName:     func() string { return name },
		pluginapi.SymbolFrontendStartup:  func() {},
		pluginapi.SymbolFrontendShutdown: func() {},
		pluginapi.SymbolFrontendData: func() (pluginapi.SidebarInfo, []any) {
			return pluginapi.SidebarInfo{Name: name, IconName: "network-wireless"}, nil
		},
		pluginapi.SymbolFrontendTests: func() []pluginapi.Test { return nil },
	}
}

func merge(maps ...map[string]any) map[string]any {
	out := make(map[string]any)
	for _, m := range maps {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("\x7fELF"), 0o644))
	}
}

func handleFor(t *testing.T, file string, symbols map[string]any) *Handle {
	t.Helper()
	return NewArena().Adopt(&fakeLibrary{path: filepath.Join("/plugins", file), symbols: symbols})
}
