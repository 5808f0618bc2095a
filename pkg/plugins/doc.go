// Package plugins discovers, opens and binds resetd plugins.
//
// # Overview
//
// A plugin is a shared object built with `go build -buildmode=plugin`. At startup the
// Runtime resolves the plugin directory, opens every allow-listed file into an Arena,
// and binds each library against the backend and frontend contracts declared in
// pkg/pluginapi. The result is two read-only collections of function tables.
//
// # Pipeline
//
// Resolver: picks the configured directory or creates `<config-home>/reset/plugins`
// Loader: opens files into the Arena, skipping anything that fails to open
// Binder: resolves contract symbols per role and builds BackendFunctions / FrontendFunctions
// Runtime: runs the pipeline exactly once, on first access, from any goroutine
// Watcher: reports plugin directory changes (loaded plugins are never replaced)
//
// # Failure Isolation
//
// Every unit fails on its own. A file that is not a plugin library is logged and
// skipped; a library without a Capabilities symbol is ignored; a library that misses
// part of a declared contract yields no table for that role. The pipeline always
// completes with whatever subset succeeded.
//
// # Usage Example
//
//	rt := plugins.NewRuntime(plugins.Options{
//		PluginPath: cfg.PluginPath,
//		AllowList:  plugins.AllowOnly(cfg.Plugins...),
//	}, plugins.WithLogger(log))
//
//	for _, backend := range rt.Backends() {
//		backend.Startup()
//	}
//
// # Related Packages
//
//   - pkg/pluginapi: the contract plugins compile against
//   - pkg/bus: the Registrar handed to DBusInterface
//   - pkg/selftest: runs the Tests of each function table
package plugins
