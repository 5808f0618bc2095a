//go:build !((linux || darwin || freebsd) && cgo)

package plugins

import (
	"errors"
)

// ErrPluginsUnsupported is returned when the binary was built without plugin support
var ErrPluginsUnsupported = errors.New("plugins are not supported on this platform")

// NativeOpener returns an opener that fails for every file
func NativeOpener() Opener {
	return OpenerFunc(func(path string) (Library, error) {
		return nil, ErrPluginsUnsupported
	})
}
