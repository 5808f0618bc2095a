package plugins

import (
	"fmt"

	"github.com/platinummonkey/resetd/pkg/pluginapi"
)

// Role is one side of the plugin contract
type Role int

const (
	// RoleBackend - bus-facing contract
	RoleBackend Role = iota
	// RoleFrontend - UI-facing contract
	RoleFrontend
)

func (r Role) String() string {
	switch r {
	case RoleBackend:
		return "backend"
	case RoleFrontend:
		return "frontend"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

// BackendFunctions is the bound backend contract of one plugin
type BackendFunctions struct {
	// PluginName is the result of Name(), captured at bind time
	PluginName   string
	Capabilities []string
	Library      *Handle

	Name          pluginapi.NameFunc
	Startup       pluginapi.LifecycleFunc
	Shutdown      pluginapi.LifecycleFunc
	DBusInterface pluginapi.InterfaceFunc
	Tests         pluginapi.TestsFunc
}

// FrontendFunctions is the bound frontend contract of one plugin
type FrontendFunctions struct {
	// PluginName is the result of FrontendName(), captured at bind time
	PluginName   string
	Capabilities []string
	Library      *Handle

	Name     pluginapi.NameFunc
	Startup  pluginapi.LifecycleFunc
	Shutdown pluginapi.LifecycleFunc
	Data     pluginapi.FrontendDataFunc
	Tests    pluginapi.TestsFunc
}

// Severity classifies pipeline failures in logs
type Severity string

const (
	SeverityRecoverable Severity = "recoverable"
	SeverityPartial     Severity = "partial"
	SeverityCritical    Severity = "critical"
)
