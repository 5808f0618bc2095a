// Package cli implements the resetd command line.
//
// # Commands
//
// resetd: run the daemon until SIGINT or SIGTERM
//
//	resetd --plugins ~/.config/reset/plugins --admin-addr 127.0.0.1:9090 -- --debug
//
// plugins list: print bound backends, frontends and load errors
//
//	resetd plugins list -o yaml
//
// plugins test: run plugin self-tests, exiting non-zero on failures
//
//	resetd plugins test wifi audio
//
// version: print the build version
//
// # Configuration
//
// Every command reads ReSet.toml through package config. The persistent flags
// --config, --plugins, --log-level, --admin-addr and --bus override the file and
// RESET_* environment variables.
package cli
