// Package api serves the daemon's admin HTTP surface.
//
// Endpoints:
//
//	GET  /healthz                  liveness
//	GET  /readyz                   200 once the plugin registry is built, 503 before
//	GET  /metrics                  Prometheus exposition
//	GET  /plugins                  bound backends and frontends
//	POST /plugins/{name}/selftest  run one plugin's self-tests, text report
//	GET  /plugins/{name}/selftest  latest stored report of that plugin
//	GET  /flags                    pass-through daemon flags
package api
