//go:build (linux || darwin || freebsd) && cgo

package plugins

import (
	"fmt"
	"plugin"
)

// goPlugin is a Library backed by the Go plugin runtime
type goPlugin struct {
	path string
	p    *plugin.Plugin
}

func (g *goPlugin) Path() string {
	return g.path
}

func (g *goPlugin) Lookup(symbol string) (any, error) {
	sym, err := g.p.Lookup(symbol)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSymbolNotFound, err)
	}
	return sym, nil
}

// NativeOpener opens Go plugins with the plugin package
func NativeOpener() Opener {
	return OpenerFunc(func(path string) (Library, error) {
		p, err := plugin.Open(path)
		if err != nil {
			return nil, err
		}
		return &goPlugin{path: path, p: p}, nil
	})
}
