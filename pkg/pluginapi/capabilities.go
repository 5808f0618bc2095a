package pluginapi

import (
	"fmt"
	"slices"
	"strings"
)

// Implementation declares which roles a plugin fills
type Implementation int

const (
	// ImplementsBackend - bus-facing role only
	ImplementsBackend Implementation = iota
	// ImplementsFrontend - UI-facing role only
	ImplementsFrontend
	// ImplementsBoth - both roles
	ImplementsBoth
)

func (i Implementation) String() string {
	switch i {
	case ImplementsBackend:
		return "backend"
	case ImplementsFrontend:
		return "frontend"
	case ImplementsBoth:
		return "both"
	default:
		return fmt.Sprintf("Implementation(%d)", int(i))
	}
}

// Backend reports whether the backend contract applies
func (i Implementation) Backend() bool {
	return i == ImplementsBackend || i == ImplementsBoth
}

// Frontend reports whether the frontend contract applies
func (i Implementation) Frontend() bool {
	return i == ImplementsFrontend || i == ImplementsBoth
}

// Capabilities is the declared feature set of one plugin. Names keep their declared
// order and may repeat.
type Capabilities struct {
	names      []string
	implements Implementation
}

// NewCapabilities builds a capability descriptor
func NewCapabilities(implements Implementation, names ...string) Capabilities {
	return Capabilities{
		names:      slices.Clone(names),
		implements: implements,
	}
}

// Names returns a copy of the capability names
func (c Capabilities) Names() []string {
	return slices.Clone(c.names)
}

// Implements returns the declared roles
func (c Capabilities) Implements() Implementation {
	return c.implements
}

// Has reports whether name was declared
func (c Capabilities) Has(name string) bool {
	return slices.Contains(c.names, name)
}

func (c Capabilities) String() string {
	return fmt.Sprintf("%s [%s]", c.implements, strings.Join(c.names, ", "))
}
