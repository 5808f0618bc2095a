// Package config loads the daemon configuration.
//
// The configuration lives in <config-home>/reset/ReSet.toml, where config-home is
// $XDG_CONFIG_HOME or the platform user config directory. A missing file is created
// with the defaults. Values are resolved by viper with this precedence: command-line
// flag, RESET_* environment variable, file, default.
//
//	plugin_path = "/usr/lib/reset/plugins"
//	plugins = ["libwifi.so", "libaudio.so"]
//	log_level = "info"
//	bus = "session"
//	admin_addr = "127.0.0.1:9281"
//	watch_plugins = true
//	selftest_on_start = false
//	selftest_schedule = "@every 6h"
//	shutdown_timeout = "10s"
//
//	[otel]
//	enabled = false
//	endpoint = "localhost:4317"
//	service_name = "resetd"
//	insecure = true
//	sample_ratio = 1.0
//
// Leaving plugins out loads every file in the plugin directory. An empty list loads
// nothing.
package config
