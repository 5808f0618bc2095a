package plugins

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/resetd/pkg/observability"
)

// DirEvent is a change to a file in the plugin directory
type DirEvent struct {
	File string
	Op   string
}

// Watcher reports changes to the plugin directory. Opened libraries can never be
// unloaded, so changes only take effect after a restart.
type Watcher struct {
	dir     string
	allow   AllowList
	log     *logrus.Logger
	metrics *observability.Metrics
	notify  func(DirEvent)
}

// NewWatcher creates a watcher for dir. notify may be nil.
func NewWatcher(dir string, allow AllowList, log *logrus.Logger, notify func(DirEvent)) *Watcher {
	if log == nil {
		log = logrus.New()
	}
	return &Watcher{
		dir:    dir,
		allow:  allow,
		log:    log,
		notify: notify,
	}
}

// SetMetrics enables event metrics
func (w *Watcher) SetMetrics(m *observability.Metrics) {
	w.metrics = m
}

// Run watches until ctx is done
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}

	w.log.WithField("dir", w.dir).Info("Watching plugin directory")

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			w.handle(event)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.log.WithError(err).Warn("Plugin directory watcher error")
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}

	file := filepath.Base(event.Name)
	if !w.allow.Permits(file) {
		return
	}

	op := strings.ToLower(event.Op.String())
	if w.metrics != nil {
		w.metrics.PluginDirEventsTotal.WithLabelValues(op).Inc()
	}
	w.log.WithFields(logrus.Fields{
		"file": file,
		"op":   op,
	}).Warn("Plugin directory changed, restart resetd to apply")

	if w.notify != nil {
		w.notify(DirEvent{File: file, Op: op})
	}
}
