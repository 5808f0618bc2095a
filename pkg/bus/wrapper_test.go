package bus

import (
	"errors"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/resetd/pkg/pluginapi"
	"github.com/platinummonkey/resetd/pkg/variant"
)

func wifiInterface(b *pluginapi.InterfaceBuilder) {
	b.Method("Scan", func() (bool, *dbus.Error) { return true, nil }).
		Method("Connect", func(ssid string) (string, *dbus.Error) {
			if ssid == "" {
				return "", dbus.NewError("org.Xetibo.ReSet.Error.NoSSID", nil)
			}
			return "connected to " + ssid, nil
		}).
		Signal("AccessPointAdded")
}

func TestCrossWrapper_InsertAtFixedPath(t *testing.T) {
	dispatcher := NewMemoryDispatcher()
	w := NewCrossWrapper("wifi", dispatcher, nil, nil)

	wifi := w.Register("org.Xetibo.ReSet.Wifi", wifiInterface)
	status := w.Register("org.Xetibo.ReSet.WifiStatus", nil)

	require.NoError(t, w.Insert([]pluginapi.InterfaceToken{wifi, status}, nil))

	assert.Equal(t, []string{PluginObjectPath}, dispatcher.Paths())
	assert.Equal(t, []string{"org.Xetibo.ReSet.Wifi", "org.Xetibo.ReSet.WifiStatus"}, dispatcher.Interfaces(PluginObjectPath))

	out, err := dispatcher.Call(PluginObjectPath, "org.Xetibo.ReSet.Wifi", "Connect", "home")
	require.NoError(t, err)
	assert.Equal(t, []any{"connected to home"}, out)

	_, err = dispatcher.Call(PluginObjectPath, "org.Xetibo.ReSet.Wifi", "Connect", "")
	var dbusErr *dbus.Error
	require.True(t, errors.As(err, &dbusErr))
	assert.Equal(t, "org.Xetibo.ReSet.Error.NoSSID", dbusErr.Name)
}

func TestCrossWrapper_UnknownToken(t *testing.T) {
	dispatcher := NewMemoryDispatcher()
	w := NewCrossWrapper("wifi", dispatcher, nil, nil)
	other := NewCrossWrapper("audio", dispatcher, nil, nil)

	valid := w.Register("org.Xetibo.ReSet.Wifi", wifiInterface)
	foreign := other.Register("org.Xetibo.ReSet.Audio", nil)

	err := w.Insert([]pluginapi.InterfaceToken{valid, foreign}, nil)
	assert.ErrorIs(t, err, ErrUnknownToken)
	assert.Empty(t, dispatcher.Paths(), "nothing is exported when a token is invalid")

	forged := pluginapi.NewInterfaceToken("org.Xetibo.ReSet.Other", valid.Serial())
	assert.ErrorIs(t, w.Insert([]pluginapi.InterfaceToken{forged}, nil), ErrUnknownToken)
}

func TestCrossWrapper_DoubleInsert(t *testing.T) {
	w := NewCrossWrapper("wifi", NewMemoryDispatcher(), nil, nil)
	tok := w.Register("org.Xetibo.ReSet.Wifi", wifiInterface)

	require.NoError(t, w.Insert([]pluginapi.InterfaceToken{tok}, nil))
	assert.ErrorIs(t, w.Insert([]pluginapi.InterfaceToken{tok}, nil), ErrAlreadyExported)
}

func TestCrossWrapper_DuplicateTokenInOneInsert(t *testing.T) {
	dispatcher := NewMemoryDispatcher()
	w := NewCrossWrapper("wifi", dispatcher, nil, nil)
	tok := w.Register("org.Xetibo.ReSet.Wifi", wifiInterface)

	err := w.Insert([]pluginapi.InterfaceToken{tok, tok}, nil)
	assert.ErrorIs(t, err, ErrAlreadyExported)
	assert.Empty(t, dispatcher.Paths(), "nothing is exported when a token repeats")

	require.NoError(t, w.Insert([]pluginapi.InterfaceToken{tok}, nil))
}

func TestCrossWrapper_Emit(t *testing.T) {
	dispatcher := NewMemoryDispatcher()
	w := NewCrossWrapper("wifi", dispatcher, nil, nil)
	tok := w.Register("org.Xetibo.ReSet.Wifi", wifiInterface)

	assert.ErrorIs(t, w.Emit(tok, "AccessPointAdded", "home"), ErrNotInserted)

	require.NoError(t, w.Insert([]pluginapi.InterfaceToken{tok}, nil))
	require.NoError(t, w.Emit(tok, "AccessPointAdded", "home"))
	assert.Error(t, w.Emit(tok, "Undeclared"))

	other := NewCrossWrapper("audio", dispatcher, nil, nil)
	assert.ErrorIs(t, other.Emit(tok, "AccessPointAdded"), ErrUnknownToken)

	assert.Equal(t, []Signal{{
		Path:      PluginObjectPath,
		Interface: "org.Xetibo.ReSet.Wifi",
		Name:      "AccessPointAdded",
		Values:    []any{"home"},
	}}, dispatcher.Signals())
}

func TestCrossWrapper_InterfaceCollisionBetweenPlugins(t *testing.T) {
	dispatcher := NewMemoryDispatcher()
	a := NewCrossWrapper("a", dispatcher, nil, nil)
	b := NewCrossWrapper("b", dispatcher, nil, nil)

	require.NoError(t, a.Insert([]pluginapi.InterfaceToken{a.Register("org.Xetibo.ReSet.Same", nil)}, nil))
	err := b.Insert([]pluginapi.InterfaceToken{b.Register("org.Xetibo.ReSet.Same", nil)}, nil)
	assert.ErrorIs(t, err, ErrAlreadyExported)
	assert.Contains(t, err.Error(), "plugin b")
}

func TestCrossWrapper_EmptyName(t *testing.T) {
	w := NewCrossWrapper("wifi", NewMemoryDispatcher(), nil, nil)
	tok := w.Register("", nil)
	assert.Error(t, w.Insert([]pluginapi.InterfaceToken{tok}, nil))
}

func TestCrossWrapper_StoresData(t *testing.T) {
	dispatcher := NewMemoryDispatcher()
	store := NewDataStore()
	require.NoError(t, dispatcher.Export(PluginObjectPath, store.Spec()))

	w := NewCrossWrapper("wifi", dispatcher, store, nil)
	data := pluginapi.NewData()
	data.Set("strength", variant.Wrap(int32(70)))
	data.Set("networks", variant.Wrap([]string{"home", "office"}))

	require.NoError(t, w.Insert(nil, data))

	// later changes by the plugin do not leak into the store
	ref, err := variant.Ref[[]string](data["networks"])
	require.NoError(t, err)
	(*ref)[0] = "changed"

	out, err := dispatcher.Call(PluginObjectPath, DataInterface, "Plugins")
	require.NoError(t, err)
	assert.Equal(t, []any{[]string{"wifi"}}, out)

	out, err = dispatcher.Call(PluginObjectPath, DataInterface, "Keys", "wifi")
	require.NoError(t, err)
	assert.Equal(t, []any{[]string{"networks", "strength"}}, out)

	out, err = dispatcher.Call(PluginObjectPath, DataInterface, "Get", "wifi", "networks")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, dbus.MakeVariant([]string{"home", "office"}), out[0])
}

func TestMemoryDispatcher_CallErrors(t *testing.T) {
	d := NewMemoryDispatcher()
	require.NoError(t, d.Export("/a", InterfaceSpec{
		Name:    "org.example.A",
		Methods: map[string]any{"Add": func(a, b int) int { return a + b }, "Bad": 42},
	}))

	out, err := d.Call("/a", "org.example.A", "Add", 1, 2)
	require.NoError(t, err)
	assert.Equal(t, []any{3}, out)

	_, err = d.Call("/b", "org.example.A", "Add")
	assert.ErrorIs(t, err, ErrNotExported)
	_, err = d.Call("/a", "org.example.A", "Sub")
	assert.ErrorIs(t, err, ErrNotExported)
	_, err = d.Call("/a", "org.example.A", "Add", 1)
	assert.ErrorContains(t, err, "takes 2 arguments")
	_, err = d.Call("/a", "org.example.A", "Add", 1, "2")
	assert.ErrorContains(t, err, "argument 1")
	_, err = d.Call("/a", "org.example.A", "Bad")
	assert.ErrorContains(t, err, "not a function")

	require.NoError(t, d.Close())
	assert.Error(t, d.Export("/c", InterfaceSpec{Name: "org.example.C"}))
}
