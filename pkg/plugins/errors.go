package plugins

import (
	"fmt"
	"strings"
)

// LoadError is a file in the plugin directory that could not be opened
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to open plugin library %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// BindError is a recognized plugin that does not satisfy a declared contract
type BindError struct {
	Path    string
	Role    Role
	Missing []string
}

func (e *BindError) Error() string {
	return fmt.Sprintf("plugin %s does not satisfy the %s contract: unresolved %s",
		e.Path, e.Role, strings.Join(e.Missing, ", "))
}

// CapabilitiesError is a library whose Capabilities symbol is unusable
type CapabilitiesError struct {
	Path   string
	Reason string
}

func (e *CapabilitiesError) Error() string {
	return fmt.Sprintf("plugin %s: invalid capabilities: %s", e.Path, e.Reason)
}
