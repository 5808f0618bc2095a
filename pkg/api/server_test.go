package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/resetd/pkg/flags"
	"github.com/platinummonkey/resetd/pkg/observability"
	"github.com/platinummonkey/resetd/pkg/pluginapi"
	"github.com/platinummonkey/resetd/pkg/plugins"
	"github.com/platinummonkey/resetd/pkg/plugins/pluginstest"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func wifiRuntime(t *testing.T) *plugins.Runtime {
	t.Helper()
	dir := t.TempDir()
	pluginstest.WriteFiles(t, dir, "libwifi.so")

	opener := pluginstest.NewOpener().Add("libwifi.so", pluginstest.Backend{
		Name:         "wifi",
		Capabilities: []string{"wifi"},
		Tests: func() []pluginapi.Test {
			return []pluginapi.Test{
				pluginapi.NewTest("scan", func() error { return nil }),
				pluginapi.NewTest("connect", func() error { return pluginapi.Failf("no access point") }),
			}
		},
	}.Symbols())

	return plugins.NewRuntime(plugins.Options{PluginPath: dir},
		plugins.WithOpener(opener), plugins.WithLogger(quietLogger()))
}

func serve(h http.Handler, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestServer_Readiness(t *testing.T) {
	rt := wifiRuntime(t)
	s := NewServer(Config{Registry: rt, Logger: quietLogger()})

	assert.Equal(t, http.StatusOK, serve(s, http.MethodGet, "/healthz").Code)
	assert.Equal(t, http.StatusServiceUnavailable, serve(s, http.MethodGet, "/readyz").Code)
	assert.Equal(t, http.StatusServiceUnavailable, serve(s, http.MethodGet, "/plugins").Code)

	rt.Backends()

	w := serve(s, http.MethodGet, "/readyz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "1 backends, 0 frontends")
}

func TestServer_ListPlugins(t *testing.T) {
	rt := wifiRuntime(t)
	rt.Backends()
	s := NewServer(Config{Registry: rt, Logger: quietLogger()})

	w := serve(s, http.MethodGet, "/plugins")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	var listing PluginListing
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listing))
	assert.Equal(t, rt.PluginDir(), listing.PluginDir)
	require.Len(t, listing.Backends, 1)
	assert.Equal(t, "wifi", listing.Backends[0].Name)
	assert.Equal(t, []string{"wifi"}, listing.Backends[0].Capabilities)
	assert.Equal(t, rt.Backends()[0].Library.ID.String(), listing.Backends[0].LibraryID)
	assert.Empty(t, listing.Frontends)
}

func TestServer_Selftest(t *testing.T) {
	rt := wifiRuntime(t)
	rt.Backends()

	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)
	s := NewServer(Config{Registry: rt, Logger: quietLogger(), Metrics: metrics, Prometheus: reg})

	assert.Equal(t, http.StatusNotFound, serve(s, http.MethodGet, "/plugins/wifi/selftest").Code)

	w := serve(s, http.MethodPost, "/plugins/wifi/selftest")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "failed", w.Header().Get(SelftestResultHeader))
	body := w.Body.String()
	assert.Contains(t, body, "----- tests for plugin wifi -----")
	assert.Contains(t, body, "running 2 tests:")
	assert.Contains(t, body, "connect: no access point")

	assert.Equal(t, http.StatusNotFound, serve(s, http.MethodPost, "/plugins/bluetooth/selftest").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, serve(s, http.MethodDelete, "/plugins/wifi/selftest").Code)

	last := serve(s, http.MethodGet, "/plugins/wifi/selftest")
	require.Equal(t, http.StatusOK, last.Code)
	assert.Equal(t, body, last.Body.String())
	assert.Equal(t, "failed", last.Header().Get(SelftestResultHeader))
	assert.NotEmpty(t, last.Header().Get("Last-Modified"))

	m := serve(s, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, m.Code)
	assert.Contains(t, m.Body.String(), `resetd_plugin_selftest_results_total{outcome="failed",plugin="wifi"} 1`)
}

func TestServer_Flags(t *testing.T) {
	parsed, errs := flags.Parse([]string{"--something", "a", "b", "--debug", "--mode", "x"})
	require.Empty(t, errs)

	s := NewServer(Config{Registry: wifiRuntime(t), Flags: parsed, Logger: quietLogger()})

	w := serve(s, http.MethodGet, "/flags")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"something":["a","b"],"debug":null,"mode":"x"}`, w.Body.String())
}

type brokenRegistry struct{}

func (brokenRegistry) State() plugins.State                    { return plugins.StateLoaded }
func (brokenRegistry) PluginDir() string                       { return "" }
func (brokenRegistry) Backends() []*plugins.BackendFunctions   { panic("registry corrupted") }
func (brokenRegistry) Frontends() []*plugins.FrontendFunctions { return nil }
func (brokenRegistry) Errors() []error                         { return []error{errors.New("x")} }

func TestServer_RecoversHandlerPanic(t *testing.T) {
	s := NewServer(Config{Registry: brokenRegistry{}, Logger: quietLogger()})

	w := serve(s, http.MethodGet, "/plugins")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "Internal Server Error"))
}
