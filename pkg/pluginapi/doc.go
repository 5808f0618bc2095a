// Package pluginapi defines the contract between resetd and its dynamically loaded plugins.
//
// # Overview
//
// A plugin is a Go plugin (`go build -buildmode=plugin`) that exports a fixed set of
// functions. The host resolves them by name at run time; nothing else is shared.
//
// # Backend Contract
//
//	func Capabilities() pluginapi.Capabilities
//	func Name() string
//	func BackendStartup()
//	func BackendShutdown()
//	func DBusInterface(r pluginapi.Registrar)
//	func BackendTests() []pluginapi.Test
//
// # Frontend Contract
//
//	func Capabilities() pluginapi.Capabilities
//	func FrontendName() string
//	func FrontendStartup()
//	func FrontendShutdown()
//	func FrontendData() (pluginapi.SidebarInfo, []any)
//	func FrontendTests() []pluginapi.Test
//
// A library that does not export Capabilities is not a plugin and is ignored. A library
// that exports Capabilities but misses a symbol of a declared contract is reported and
// contributes nothing for that role.
//
// # Usage Example
//
//	func Capabilities() pluginapi.Capabilities {
//		return pluginapi.NewCapabilities(pluginapi.ImplementsBackend, "wifi")
//	}
//
//	func DBusInterface(r pluginapi.Registrar) {
//		token := r.Register("org.Xetibo.ReSet.Wifi", func(b *pluginapi.InterfaceBuilder) {
//			b.Method("Scan", func() (bool, *dbus.Error) { return true, nil })
//			b.Signal("ScanFinished")
//		})
//		_ = r.Insert([]pluginapi.InterfaceToken{token}, pluginapi.NewData())
//		_ = r.Emit(token, "ScanFinished", uint32(2))
//	}
package pluginapi
