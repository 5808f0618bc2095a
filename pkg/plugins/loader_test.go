package plugins

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/resetd/pkg/observability"
	"github.com/platinummonkey/resetd/pkg/pluginapi"
)

func TestNewLoader(t *testing.T) {
	loader := NewLoader(nil, nil, nil)

	assert.NotNil(t, loader)
	assert.NotNil(t, loader.log)
	assert.NotNil(t, loader.opener)
	assert.NotNil(t, loader.arena)
}

func TestNewLoader_WithCustomLogger(t *testing.T) {
	customLogger := logrus.New()
	customLogger.SetLevel(logrus.DebugLevel)

	loader := NewLoader(newFakeOpener(), NewArena(), customLogger)
	assert.Equal(t, customLogger, loader.log)
}

func TestLoadAll_InvalidFileDoesNotAbort(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a_readme.txt", "libwifi.so", "z_libaudio.so")

	opener := newFakeOpener().
		add("libwifi.so", backendSymbols("WiFi", pluginapi.ImplementsBackend, "wifi")).
		add("z_libaudio.so", backendSymbols("Audio", pluginapi.ImplementsBackend, "audio"))
	arena := NewArena()

	handles, errs, err := NewLoader(opener, arena, nil).LoadAll(context.Background(), dir, AllowAll())
	require.NoError(t, err)

	require.Len(t, handles, 2)
	assert.Equal(t, "libwifi.so", handles[0].Name())
	assert.Equal(t, "z_libaudio.so", handles[1].Name())
	assert.Equal(t, 2, arena.Len())

	require.Len(t, errs, 1)
	var loadErr *LoadError
	require.True(t, errors.As(errs[0], &loadErr))
	assert.Equal(t, filepath.Join(dir, "a_readme.txt"), loadErr.Path)
	assert.Contains(t, loadErr.Error(), "invalid ELF header")
}

func TestLoadAll_AllowList(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "libwifi.so", "libaudio.so", "libbt.so")

	opener := newFakeOpener().
		add("libwifi.so", backendSymbols("WiFi", pluginapi.ImplementsBackend, "wifi")).
		add("libaudio.so", backendSymbols("Audio", pluginapi.ImplementsBackend, "audio")).
		add("libbt.so", backendSymbols("Bluetooth", pluginapi.ImplementsBackend, "bluetooth"))

	t.Run("only listed files are opened", func(t *testing.T) {
		handles, errs, err := NewLoader(opener, NewArena(), nil).
			LoadAll(context.Background(), dir, AllowOnly("libaudio.so", "missing.so"))
		require.NoError(t, err)
		assert.Empty(t, errs)
		require.Len(t, handles, 1)
		assert.Equal(t, "libaudio.so", handles[0].Name())
	})

	t.Run("empty allow-list opens nothing", func(t *testing.T) {
		handles, errs, err := NewLoader(opener, NewArena(), nil).
			LoadAll(context.Background(), dir, AllowOnly())
		require.NoError(t, err)
		assert.Empty(t, errs)
		assert.Empty(t, handles)
	})
}

func TestLoadAll_SkipsDirectories(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "libwifi.so"), 0o755))

	opener := newFakeOpener().add("libwifi.so", backendSymbols("WiFi", pluginapi.ImplementsBackend, "wifi"))
	handles, errs, err := NewLoader(opener, NewArena(), nil).LoadAll(context.Background(), dir, nil)

	require.NoError(t, err)
	assert.Empty(t, handles)
	assert.Empty(t, errs)
	assert.Empty(t, opener.openedFiles())
}

func TestLoadAll_MissingDirectory(t *testing.T) {
	_, _, err := NewLoader(newFakeOpener(), NewArena(), nil).
		LoadAll(context.Background(), filepath.Join(t.TempDir(), "nope"), nil)
	assert.Error(t, err)
}

func TestLoadAll_Cancelled(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "libwifi.so")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	handles, _, err := NewLoader(newFakeOpener(), NewArena(), nil).LoadAll(ctx, dir, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, handles)
}

func TestLoadAll_Metrics(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "bad.so", "libwifi.so")

	metrics := observability.NewMetrics(prometheus.NewRegistry())
	opener := newFakeOpener().add("libwifi.so", backendSymbols("WiFi", pluginapi.ImplementsBackend, "wifi"))

	loader := NewLoader(opener, NewArena(), nil)
	loader.SetMetrics(metrics)
	_, _, err := loader.LoadAll(context.Background(), dir, nil)
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.LoadErrorsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.LibrariesLoaded))
}

func TestAllowList(t *testing.T) {
	assert.True(t, AllowAll().Permits("anything.so"))
	assert.False(t, AllowOnly().Permits("anything.so"))
	assert.True(t, AllowOnly("a.so").Permits("a.so"))
	assert.False(t, AllowOnly("a.so").Permits("b.so"))
}

func TestArena(t *testing.T) {
	arena := NewArena()
	a := arena.Adopt(&fakeLibrary{path: "/plugins/a.so"})
	b := arena.Adopt(&fakeLibrary{path: "/plugins/b.so"})

	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, []*Handle{a, b}, arena.Handles())
	assert.Equal(t, 2, arena.Len())
	assert.Equal(t, "a.so", a.Name())
	assert.Contains(t, a.String(), a.ID.String())

	_, err := a.Lookup("Capabilities")
	assert.ErrorIs(t, err, ErrSymbolNotFound)

	// callers cannot shrink the arena through the returned slice
	handles := arena.Handles()
	handles[0] = nil
	assert.Same(t, a, arena.Handles()[0])
}
