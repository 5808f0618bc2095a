package bus

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/resetd/pkg/pluginapi"
)

var (
	// ErrUnknownToken is returned for tokens this wrapper did not issue
	ErrUnknownToken = errors.New("unknown interface token")
	// ErrNotInserted is returned by Emit before the token's interface is inserted
	ErrNotInserted = errors.New("interface not inserted")
)

// CrossWrapper is the Registrar handed to one backend plugin. Whatever the plugin
// inserts is exported at PluginObjectPath.
type CrossWrapper struct {
	plugin     string
	dispatcher Dispatcher
	store      *DataStore
	log        *logrus.Logger

	mu       sync.Mutex
	serial   uint64
	builders map[uint64]*pluginapi.InterfaceBuilder
	inserted map[uint64]bool
}

var _ pluginapi.Registrar = (*CrossWrapper)(nil)

// NewCrossWrapper creates the wrapper for one plugin. store may be nil when plugin
// data is not served.
func NewCrossWrapper(plugin string, dispatcher Dispatcher, store *DataStore, log *logrus.Logger) *CrossWrapper {
	if log == nil {
		log = logrus.New()
	}
	return &CrossWrapper{
		plugin:     plugin,
		dispatcher: dispatcher,
		store:      store,
		log:        log,
		builders:   make(map[uint64]*pluginapi.InterfaceBuilder),
		inserted:   make(map[uint64]bool),
	}
}

// Register defines an interface. Nothing is exported until Insert.
func (w *CrossWrapper) Register(name string, build func(*pluginapi.InterfaceBuilder)) pluginapi.InterfaceToken {
	b := pluginapi.NewInterfaceBuilder(name)
	if build != nil {
		build(b)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.serial++
	w.builders[w.serial] = b
	return pluginapi.NewInterfaceToken(name, w.serial)
}

// Insert exports the interfaces behind tokens at PluginObjectPath and stores data.
// Tokens are validated before anything is exported.
func (w *CrossWrapper) Insert(tokens []pluginapi.InterfaceToken, data pluginapi.Data) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	specs := make([]InterfaceSpec, 0, len(tokens))
	seen := make(map[uint64]bool, len(tokens))
	for _, tok := range tokens {
		b, ok := w.builders[tok.Serial()]
		if !ok || b.Name() != tok.Name() {
			return fmt.Errorf("%s: %w", tok.Name(), ErrUnknownToken)
		}
		if b.Name() == "" {
			return errors.New("interface name must not be empty")
		}
		if w.inserted[tok.Serial()] || seen[tok.Serial()] {
			return fmt.Errorf("%s at %s: %w", tok.Name(), PluginObjectPath, ErrAlreadyExported)
		}
		seen[tok.Serial()] = true
		specs = append(specs, InterfaceSpec{
			Name:    b.Name(),
			Methods: b.Methods(),
			Signals: b.Signals(),
		})
	}

	for i, spec := range specs {
		if err := w.dispatcher.Export(PluginObjectPath, spec); err != nil {
			return fmt.Errorf("plugin %s: %w", w.plugin, err)
		}
		w.inserted[tokens[i].Serial()] = true
		w.log.WithFields(logrus.Fields{
			"plugin":    w.plugin,
			"interface": spec.Name,
			"path":      PluginObjectPath,
		}).Info("Plugin interface inserted")
	}

	if w.store != nil && len(data) > 0 {
		w.store.Put(w.plugin, data)
	}
	return nil
}

// Emit sends signal on the interface behind token. The interface must be inserted and
// must declare the signal.
func (w *CrossWrapper) Emit(token pluginapi.InterfaceToken, signal string, values ...any) error {
	w.mu.Lock()
	b, ok := w.builders[token.Serial()]
	inserted := w.inserted[token.Serial()]
	w.mu.Unlock()

	if !ok || b.Name() != token.Name() {
		return fmt.Errorf("%s: %w", token.Name(), ErrUnknownToken)
	}
	if !inserted {
		return fmt.Errorf("%s: %w", token.Name(), ErrNotInserted)
	}
	if !slices.Contains(b.Signals(), signal) {
		return fmt.Errorf("%s does not declare signal %s", token.Name(), signal)
	}
	return w.dispatcher.Emit(PluginObjectPath, token.Name(), signal, values...)
}
