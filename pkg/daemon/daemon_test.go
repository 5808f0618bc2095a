package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/resetd/pkg/api"
	"github.com/platinummonkey/resetd/pkg/bus"
	"github.com/platinummonkey/resetd/pkg/config"
	"github.com/platinummonkey/resetd/pkg/flags"
	"github.com/platinummonkey/resetd/pkg/pluginapi"
	"github.com/platinummonkey/resetd/pkg/plugins/pluginstest"
	"github.com/platinummonkey/resetd/pkg/variant"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

type hookCounts struct {
	startup, shutdown atomic.Int32
}

func wifiBackend(counts *hookCounts) pluginstest.Backend {
	return pluginstest.Backend{
		Name:         "wifi",
		Capabilities: []string{"wifi"},
		Startup:      func() { counts.startup.Add(1) },
		Shutdown:     func() { counts.shutdown.Add(1) },
		DBusInterface: func(r pluginapi.Registrar) {
			tok := r.Register("org.Xetibo.ReSet.Wifi", func(b *pluginapi.InterfaceBuilder) {
				b.Method("Scan", func() (bool, *dbus.Error) { return true, nil })
			})
			data := pluginapi.NewData()
			data.Set("strength", variant.Wrap(int32(70)))
			if err := r.Insert([]pluginapi.InterfaceToken{tok}, data); err != nil {
				panic(err)
			}
		},
		Tests: func() []pluginapi.Test {
			return []pluginapi.Test{
				pluginapi.NewTest("scan", func() error { return nil }),
				pluginapi.NewTest("crash", func() error { panic("driver gone") }),
			}
		},
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.PluginPath = t.TempDir()
	cfg.Bus = bus.KindNone
	cfg.WatchPlugins = false
	cfg.ShutdownTimeout = 5 * time.Second
	return cfg
}

func TestDaemon_StartStop(t *testing.T) {
	cfg := testConfig(t)
	cfg.AdminAddr = "127.0.0.1:0"
	cfg.WatchPlugins = true
	pluginstest.WriteFiles(t, cfg.PluginPath, "libwifi.so", "libcrashy.so")

	var wifi, crashy hookCounts
	crashyBackend := pluginstest.Backend{
		Name:     "crashy",
		Startup:  func() { crashy.startup.Add(1); panic("startup failed") },
		Shutdown: func() { crashy.shutdown.Add(1) },
	}
	opener := pluginstest.NewOpener().
		Add("libwifi.so", wifiBackend(&wifi).Symbols()).
		Add("libcrashy.so", crashyBackend.Symbols())

	dispatcher := bus.NewMemoryDispatcher()
	d := New(cfg, nil, WithOpener(opener), WithDispatcher(dispatcher), WithLogger(quietLogger()))

	require.NoError(t, d.Start(context.Background()))
	assert.Error(t, d.Start(context.Background()), "second start is rejected")

	assert.Equal(t, int32(1), wifi.startup.Load())
	assert.Equal(t, int32(1), crashy.startup.Load())
	assert.Equal(t, 1.0, testutil.ToFloat64(d.metrics.HookPanicsTotal.WithLabelValues("crashy", HookStartup)))

	assert.Equal(t, []string{bus.PluginObjectPath}, dispatcher.Paths())
	assert.ElementsMatch(t, []string{bus.DataInterface, "org.Xetibo.ReSet.Wifi"}, dispatcher.Interfaces(bus.PluginObjectPath))

	out, err := dispatcher.Call(bus.PluginObjectPath, bus.DataInterface, "Get", "wifi", "strength")
	require.NoError(t, err)
	assert.Equal(t, []any{dbus.MakeVariant(int32(70))}, out)

	resp, err := http.Get("http://" + d.AdminAddr() + "/plugins")
	require.NoError(t, err)
	var listing api.PluginListing
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listing))
	resp.Body.Close()
	var names []string
	for _, b := range listing.Backends {
		names = append(names, b.Name)
	}
	assert.ElementsMatch(t, []string{"wifi", "crashy"}, names)

	require.NoError(t, d.Stop(context.Background()))
	assert.Equal(t, int32(1), wifi.shutdown.Load())
	assert.Equal(t, int32(0), crashy.shutdown.Load(), "a backend whose startup panicked is not shut down")

	_, err = http.Get("http://" + d.AdminAddr() + "/healthz")
	assert.Error(t, err, "admin server is closed")

	require.NoError(t, d.Stop(context.Background()))
	assert.Equal(t, int32(1), wifi.shutdown.Load(), "stop runs once")
}

func TestDaemon_ShutdownPanicIsolated(t *testing.T) {
	cfg := testConfig(t)
	pluginstest.WriteFiles(t, cfg.PluginPath, "libbad.so", "libwifi.so")

	var wifi hookCounts
	bad := pluginstest.Backend{Name: "bad", Shutdown: func() { panic("shutdown failed") }}
	opener := pluginstest.NewOpener().
		Add("libbad.so", bad.Symbols()).
		Add("libwifi.so", wifiBackend(&wifi).Symbols())

	d := New(cfg, nil, WithOpener(opener), WithDispatcher(bus.NewMemoryDispatcher()), WithLogger(quietLogger()))
	require.NoError(t, d.Start(context.Background()))

	err := d.Stop(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad")
	assert.Equal(t, int32(1), wifi.shutdown.Load())
}

func TestNew_SelftestOutputDefaultsToStdout(t *testing.T) {
	d := New(testConfig(t), nil, WithLogger(quietLogger()))
	assert.Same(t, os.Stdout, d.selftestOut)

	var buf bytes.Buffer
	d = New(testConfig(t), nil, WithLogger(quietLogger()), WithSelftestOutput(&buf))
	assert.Same(t, &buf, d.selftestOut)
}

func TestDaemon_SelftestOnStart(t *testing.T) {
	cfg := testConfig(t)
	cfg.SelftestOnStart = true
	pluginstest.WriteFiles(t, cfg.PluginPath, "libwifi.so")

	var wifi hookCounts
	opener := pluginstest.NewOpener().Add("libwifi.so", wifiBackend(&wifi).Symbols())

	var out bytes.Buffer
	d := New(cfg, nil, WithOpener(opener), WithDispatcher(bus.NewMemoryDispatcher()),
		WithLogger(quietLogger()), WithSelftestOutput(&out))
	require.NoError(t, d.Start(context.Background()))
	defer d.Stop(context.Background())

	assert.Contains(t, out.String(), "----- tests for plugin wifi -----")
	assert.Contains(t, out.String(), "crashed 1 tests:")
	assert.Contains(t, out.String(), "crash: driver gone")
}

func TestDaemon_SelftestSchedule(t *testing.T) {
	cfg := testConfig(t)
	cfg.SelftestSchedule = "@every 1s"
	pluginstest.WriteFiles(t, cfg.PluginPath, "libwifi.so")

	var wifi hookCounts
	opener := pluginstest.NewOpener().Add("libwifi.so", wifiBackend(&wifi).Symbols())

	d := New(cfg, nil, WithOpener(opener), WithLogger(quietLogger()), WithSelftestOutput(io.Discard))
	require.NoError(t, d.Start(context.Background()))

	require.Eventually(t, func() bool {
		_, ok := d.runner.History.Last("wifi")
		return ok
	}, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, d.Stop(context.Background()))
	assert.Equal(t, int32(1), wifi.shutdown.Load())
}

func TestDaemon_SelftestScheduleInvalid(t *testing.T) {
	cfg := testConfig(t)
	cfg.SelftestSchedule = "sometimes"

	d := New(cfg, nil, WithOpener(pluginstest.NewOpener()), WithLogger(quietLogger()))
	err := d.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid self-test schedule")
	require.NoError(t, d.Stop(context.Background()))
}

func TestDaemon_FlagsExported(t *testing.T) {
	parsed, errs := flags.Parse([]string{"--something", "a", "b"})
	require.Empty(t, errs)

	d := New(testConfig(t), parsed, WithOpener(pluginstest.NewOpener()), WithLogger(quietLogger()))
	require.NoError(t, d.Start(context.Background()))
	defer d.Stop(context.Background())

	_, ok := d.Dispatcher().(*bus.MemoryDispatcher)
	assert.True(t, ok, "bus none keeps interfaces in memory")

	v, err := d.Store().Get(DataName, "something")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, variant.MustGet[[]string](v))
}

func TestDaemon_AllowListEmpty(t *testing.T) {
	cfg := testConfig(t)
	cfg.Plugins = []string{}
	cfg.AllowListSet = true
	pluginstest.WriteFiles(t, cfg.PluginPath, "libwifi.so")

	var wifi hookCounts
	opener := pluginstest.NewOpener().Add("libwifi.so", wifiBackend(&wifi).Symbols())

	d := New(cfg, nil, WithOpener(opener), WithLogger(quietLogger()))
	require.NoError(t, d.Start(context.Background()))
	defer d.Stop(context.Background())

	assert.Empty(t, d.Runtime().Backends())
	assert.Empty(t, opener.Opened())
	assert.Equal(t, int32(0), wifi.startup.Load())
}

func TestDaemon_NoPluginDirectory(t *testing.T) {
	cfg := testConfig(t)
	cfg.PluginPath = ""

	d := New(cfg, nil,
		WithOpener(pluginstest.NewOpener()),
		WithLogger(quietLogger()),
		WithConfigHome(func() (string, error) { return "", errors.New("no home") }),
	)
	require.NoError(t, d.Start(context.Background()))
	defer d.Stop(context.Background())

	assert.Empty(t, d.Runtime().PluginDir())
	assert.Empty(t, d.Runtime().Backends())
	assert.NotEmpty(t, d.Runtime().Errors())
}

func TestDaemon_AdminListenFailure(t *testing.T) {
	cfg := testConfig(t)
	cfg.AdminAddr = "256.0.0.1:99999"

	d := New(cfg, nil, WithOpener(pluginstest.NewOpener()), WithLogger(quietLogger()))
	err := d.Run(context.Background())
	assert.ErrorContains(t, err, "failed to listen")
}

func TestDaemon_RunStopsOnCancel(t *testing.T) {
	cfg := testConfig(t)
	pluginstest.WriteFiles(t, cfg.PluginPath, "libwifi.so")

	var wifi hookCounts
	opener := pluginstest.NewOpener().Add("libwifi.so", wifiBackend(&wifi).Symbols())
	d := New(cfg, nil, WithOpener(opener), WithLogger(quietLogger()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	require.Eventually(t, func() bool { return wifi.startup.Load() == 1 }, 5*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
	assert.Equal(t, int32(1), wifi.shutdown.Load())
}
