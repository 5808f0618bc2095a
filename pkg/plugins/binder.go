package plugins

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/platinummonkey/resetd/pkg/observability"
	"github.com/platinummonkey/resetd/pkg/pluginapi"
)

// BindResult is the outcome of binding one library
type BindResult struct {
	// Recognized is false when the library exports no usable Capabilities
	Recognized   bool
	Capabilities pluginapi.Capabilities

	Backend  *BackendFunctions
	Frontend *FrontendFunctions
	// Errors holds one error per role that failed, or a CapabilitiesError
	Errors []error
}

// Bind resolves the contracts declared by a library. The backend contract is bound
// before the frontend contract and each role succeeds or fails on its own.
func Bind(h *Handle) BindResult {
	var result BindResult

	sym, err := h.Lookup(pluginapi.SymbolCapabilities)
	if err != nil {
		// not a plugin
		return result
	}
	capsFn, ok := asFunc[pluginapi.CapabilitiesFunc](sym)
	if !ok {
		result.Errors = append(result.Errors, &CapabilitiesError{
			Path:   h.Path,
			Reason: fmt.Sprintf("unexpected signature %T", sym),
		})
		return result
	}

	caps, err := callCapabilities(capsFn)
	if err != nil {
		result.Errors = append(result.Errors, &CapabilitiesError{Path: h.Path, Reason: err.Error()})
		return result
	}

	result.Recognized = true
	result.Capabilities = caps

	if caps.Implements().Backend() {
		backend, err := bindBackend(h, caps)
		if err != nil {
			result.Errors = append(result.Errors, err)
		} else {
			result.Backend = backend
		}
	}

	if caps.Implements().Frontend() {
		frontend, err := bindFrontend(h, caps)
		if err != nil {
			result.Errors = append(result.Errors, err)
		} else {
			result.Frontend = frontend
		}
	}

	return result
}

func bindBackend(h *Handle, caps pluginapi.Capabilities) (*BackendFunctions, error) {
	r := &symbolResolver{handle: h}

	table := &BackendFunctions{
		Capabilities:  caps.Names(),
		Library:       h,
		Name:          resolve[pluginapi.NameFunc](r, pluginapi.SymbolName),
		Startup:       resolve[pluginapi.LifecycleFunc](r, pluginapi.SymbolBackendStartup),
		Shutdown:      resolve[pluginapi.LifecycleFunc](r, pluginapi.SymbolBackendShutdown),
		DBusInterface: resolve[pluginapi.InterfaceFunc](r, pluginapi.SymbolDBusInterface),
		Tests:         resolve[pluginapi.TestsFunc](r, pluginapi.SymbolBackendTests),
	}
	if len(r.missing) > 0 {
		return nil, &BindError{Path: h.Path, Role: RoleBackend, Missing: r.missing}
	}

	table.PluginName = pluginName(h, table.Name)
	return table, nil
}

func bindFrontend(h *Handle, caps pluginapi.Capabilities) (*FrontendFunctions, error) {
	r := &symbolResolver{handle: h}

	table := &FrontendFunctions{
		Capabilities: caps.Names(),
		Library:      h,
		Name:         resolve[pluginapi.NameFunc](r, pluginapi.SymbolFrontendName),
		Startup:      resolve[pluginapi.LifecycleFunc](r, pluginapi.SymbolFrontendStartup),
		Shutdown:     resolve[pluginapi.LifecycleFunc](r, pluginapi.SymbolFrontendShutdown),
		Data:         resolve[pluginapi.FrontendDataFunc](r, pluginapi.SymbolFrontendData),
		Tests:        resolve[pluginapi.TestsFunc](r, pluginapi.SymbolFrontendTests),
	}
	if len(r.missing) > 0 {
		return nil, &BindError{Path: h.Path, Role: RoleFrontend, Missing: r.missing}
	}

	table.PluginName = pluginName(h, table.Name)
	return table, nil
}

// symbolResolver collects every symbol of a contract that fails to resolve
type symbolResolver struct {
	handle  *Handle
	missing []string
}

func resolve[T any](r *symbolResolver, name string) T {
	var zero T

	sym, err := r.handle.Lookup(name)
	if err != nil {
		r.missing = append(r.missing, name)
		return zero
	}
	fn, ok := asFunc[T](sym)
	if !ok {
		r.missing = append(r.missing, fmt.Sprintf("%s (has type %T)", name, sym))
		return zero
	}
	return fn
}

// asFunc accepts an exported function or an exported variable holding one
func asFunc[T any](sym any) (T, bool) {
	var zero T

	switch v := sym.(type) {
	case T:
		if isNilFunc(v) {
			return zero, false
		}
		return v, true
	case *T:
		if v == nil || isNilFunc(*v) {
			return zero, false
		}
		return *v, true
	default:
		return zero, false
	}
}

func isNilFunc(fn any) bool {
	v := reflect.ValueOf(fn)
	return !v.IsValid() || (v.Kind() == reflect.Func && v.IsNil())
}

func callCapabilities(fn pluginapi.CapabilitiesFunc) (caps pluginapi.Capabilities, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = observability.MustRecover(r)
		}
	}()
	return fn(), nil
}

// pluginName calls the plugin's name function, falling back to the file name when it
// panics or returns nothing
func pluginName(h *Handle, fn pluginapi.NameFunc) string {
	name, err := func() (name string, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = observability.MustRecover(r)
			}
		}()
		return fn(), nil
	}()
	if err != nil || name == "" {
		return h.Name()
	}
	return name
}

// IsBindError reports whether err is a contract failure
func IsBindError(err error) bool {
	var bindErr *BindError
	return errors.As(err, &bindErr)
}
