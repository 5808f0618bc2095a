package pluginapi

// Exported symbol names resolved from a plugin library. Resolution is by exact name.
const (
	SymbolCapabilities = "Capabilities"

	SymbolName            = "Name"
	SymbolBackendStartup  = "BackendStartup"
	SymbolBackendShutdown = "BackendShutdown"
	SymbolDBusInterface   = "DBusInterface"
	SymbolBackendTests    = "BackendTests"

	SymbolFrontendName     = "FrontendName"
	SymbolFrontendStartup  = "FrontendStartup"
	SymbolFrontendShutdown = "FrontendShutdown"
	SymbolFrontendData     = "FrontendData"
	SymbolFrontendTests    = "FrontendTests"
)

// Signatures of the contract symbols. These are aliases so that a symbol looked up
// from a library can be asserted against them directly.
type (
	CapabilitiesFunc = func() Capabilities
	NameFunc         = func() string
	LifecycleFunc    = func()
	InterfaceFunc    = func(Registrar)
	TestsFunc        = func() []Test
	FrontendDataFunc = func() (SidebarInfo, []any)
)

// BackendContract lists the symbols a backend plugin must export besides Capabilities
var BackendContract = []string{
	SymbolName,
	SymbolBackendStartup,
	SymbolBackendShutdown,
	SymbolDBusInterface,
	SymbolBackendTests,
}

// FrontendContract lists the symbols a frontend plugin must export besides Capabilities
var FrontendContract = []string{
	SymbolFrontendName,
	SymbolFrontendStartup,
	SymbolFrontendShutdown,
	SymbolFrontendData,
	SymbolFrontendTests,
}
