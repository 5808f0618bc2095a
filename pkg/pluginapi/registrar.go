package pluginapi

import (
	"maps"
	"slices"
)

// Registrar is the narrow bus handle passed to a backend plugin's DBusInterface. Every
// inserted interface ends up on the daemon's single plugin object path.
type Registrar interface {
	// Register defines one interface and returns a token for it
	Register(name string, build func(*InterfaceBuilder)) InterfaceToken
	// Insert attaches registered interfaces and plugin state to the plugin object path
	Insert(tokens []InterfaceToken, data Data) error
	// Emit sends a signal declared on an inserted interface
	Emit(token InterfaceToken, signal string, values ...any) error
}

// InterfaceToken identifies an interface registered through a Registrar
type InterfaceToken struct {
	name   string
	serial uint64
}

// NewInterfaceToken is used by Registrar implementations
func NewInterfaceToken(name string, serial uint64) InterfaceToken {
	return InterfaceToken{name: name, serial: serial}
}

// Name returns the interface name
func (t InterfaceToken) Name() string { return t.name }

// Serial returns the registrar-local serial number
func (t InterfaceToken) Serial() uint64 { return t.serial }

// InterfaceBuilder collects the methods and signals of one interface.
// Method handlers follow godbus conventions: the last return value is a *dbus.Error.
type InterfaceBuilder struct {
	name    string
	methods map[string]any
	signals []string
}

// NewInterfaceBuilder starts an interface definition
func NewInterfaceBuilder(name string) *InterfaceBuilder {
	return &InterfaceBuilder{
		name:    name,
		methods: make(map[string]any),
	}
}

// Method adds or replaces a method handler
func (b *InterfaceBuilder) Method(name string, fn any) *InterfaceBuilder {
	b.methods[name] = fn
	return b
}

// Signal declares a signal name
func (b *InterfaceBuilder) Signal(name string) *InterfaceBuilder {
	if !slices.Contains(b.signals, name) {
		b.signals = append(b.signals, name)
	}
	return b
}

// Name returns the interface name
func (b *InterfaceBuilder) Name() string { return b.name }

// Methods returns a copy of the method table
func (b *InterfaceBuilder) Methods() map[string]any {
	return maps.Clone(b.methods)
}

// Signals returns the declared signals in declaration order
func (b *InterfaceBuilder) Signals() []string {
	return slices.Clone(b.signals)
}
