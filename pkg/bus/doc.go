// Package bus attaches plugin-contributed interfaces to the daemon's D-Bus object.
//
// Backend plugins never see the connection. They receive a CrossWrapper, register
// interface shapes with it and insert them; every insert lands on PluginObjectPath.
// Plugin state inserted alongside is served by the DataStore on DataInterface.
//
// Two dispatchers are provided: DBusDispatcher exports through a godbus connection and
// MemoryDispatcher keeps exports in memory for tests and for running without a bus.
package bus
