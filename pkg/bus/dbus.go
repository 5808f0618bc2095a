package bus

import (
	"fmt"
	"reflect"
	"slices"
	"sort"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
	"github.com/sirupsen/logrus"
)

// Bus kinds accepted by Connect
const (
	KindSession = "session"
	KindSystem  = "system"
	KindNone    = "none"
)

// DBusDispatcher exports interfaces on a godbus connection and keeps the
// Introspectable data of each path current
type DBusDispatcher struct {
	conn *dbus.Conn
	log  *logrus.Logger

	mu    sync.Mutex
	nodes map[dbus.ObjectPath]*introspect.Node
}

// Connect opens a session or system bus connection and claims BusName
func Connect(kind string, log *logrus.Logger) (*DBusDispatcher, error) {
	var (
		conn *dbus.Conn
		err  error
	)
	switch kind {
	case KindSession:
		conn, err = dbus.ConnectSessionBus()
	case KindSystem:
		conn, err = dbus.ConnectSystemBus()
	default:
		return nil, fmt.Errorf("unknown bus kind %q", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s bus: %w", kind, err)
	}

	reply, err := conn.RequestName(BusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to request name %s: %w", BusName, err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		conn.Close()
		return nil, fmt.Errorf("name %s already taken", BusName)
	}

	return NewDBusDispatcher(conn, log), nil
}

// NewDBusDispatcher wraps an existing connection
func NewDBusDispatcher(conn *dbus.Conn, log *logrus.Logger) *DBusDispatcher {
	if log == nil {
		log = logrus.New()
	}
	return &DBusDispatcher{
		conn:  conn,
		log:   log,
		nodes: make(map[dbus.ObjectPath]*introspect.Node),
	}
}

// Export exports the method table of spec at path
func (d *DBusDispatcher) Export(path string, spec InterfaceSpec) error {
	objPath := dbus.ObjectPath(path)
	if !objPath.IsValid() {
		return fmt.Errorf("invalid object path %q", path)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	node, ok := d.nodes[objPath]
	if !ok {
		node = &introspect.Node{
			Name:       path,
			Interfaces: []introspect.Interface{introspect.IntrospectData},
		}
		d.nodes[objPath] = node
	}
	for _, iface := range node.Interfaces {
		if iface.Name == spec.Name {
			return fmt.Errorf("%s at %s: %w", spec.Name, path, ErrAlreadyExported)
		}
	}

	if err := d.conn.ExportMethodTable(spec.Methods, objPath, spec.Name); err != nil {
		return fmt.Errorf("failed to export %s at %s: %w", spec.Name, path, err)
	}

	node.Interfaces = append(node.Interfaces, describe(spec))
	if err := d.conn.Export(introspect.NewIntrospectable(node), objPath, "org.freedesktop.DBus.Introspectable"); err != nil {
		return fmt.Errorf("failed to export introspection at %s: %w", path, err)
	}

	d.log.WithFields(logrus.Fields{
		"path":      path,
		"interface": spec.Name,
		"methods":   len(spec.Methods),
	}).Debug("Exported bus interface")
	return nil
}

// Emit sends a signal from path
func (d *DBusDispatcher) Emit(path, iface, signal string, values ...any) error {
	return d.conn.Emit(dbus.ObjectPath(path), iface+"."+signal, values...)
}

// Close releases the connection
func (d *DBusDispatcher) Close() error {
	return d.conn.Close()
}

// describe builds introspection data from the handler signatures
func describe(spec InterfaceSpec) introspect.Interface {
	iface := introspect.Interface{Name: spec.Name}

	names := make([]string, 0, len(spec.Methods))
	for name := range spec.Methods {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		iface.Methods = append(iface.Methods, introspect.Method{
			Name: name,
			Args: methodArgs(spec.Methods[name]),
		})
	}
	for _, signal := range slices.Clone(spec.Signals) {
		iface.Signals = append(iface.Signals, introspect.Signal{Name: signal})
	}
	return iface
}

var dbusErrorType = reflect.TypeFor[*dbus.Error]()

// methodArgs describes the in and out arguments of a handler. Types without a bus
// signature are left out.
func methodArgs(fn any) (args []introspect.Arg) {
	t := reflect.TypeOf(fn)
	if t == nil || t.Kind() != reflect.Func {
		return nil
	}
	defer func() {
		if recover() != nil {
			args = nil
		}
	}()

	for i := 0; i < t.NumIn(); i++ {
		args = append(args, introspect.Arg{
			Name:      fmt.Sprintf("arg%d", i),
			Type:      dbus.SignatureOfType(t.In(i)).String(),
			Direction: "in",
		})
	}
	for i := 0; i < t.NumOut(); i++ {
		if t.Out(i) == dbusErrorType {
			continue
		}
		args = append(args, introspect.Arg{
			Name:      fmt.Sprintf("out%d", i),
			Type:      dbus.SignatureOfType(t.Out(i)).String(),
			Direction: "out",
		})
	}
	return args
}
