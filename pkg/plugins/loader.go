package plugins

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/resetd/pkg/observability"
)

// AllowList restricts which file names in the plugin directory are opened. A nil
// AllowList permits every file; an empty non-nil one permits none.
type AllowList map[string]struct{}

// AllowAll returns the nil AllowList
func AllowAll() AllowList {
	return nil
}

// AllowOnly permits exactly the given file names
func AllowOnly(names ...string) AllowList {
	a := make(AllowList, len(names))
	for _, name := range names {
		a[name] = struct{}{}
	}
	return a
}

// Permits reports whether name may be opened
func (a AllowList) Permits(name string) bool {
	if a == nil {
		return true
	}
	_, ok := a[name]
	return ok
}

// Loader opens plugin libraries from a directory into an Arena
type Loader struct {
	opener  Opener
	arena   *Arena
	metrics *observability.Metrics
	log     *logrus.Logger
}

// NewLoader creates a new plugin loader
func NewLoader(opener Opener, arena *Arena, log *logrus.Logger) *Loader {
	if log == nil {
		log = logrus.New()
	}
	if opener == nil {
		opener = NativeOpener()
	}
	if arena == nil {
		arena = NewArena()
	}

	return &Loader{
		opener: opener,
		arena:  arena,
		log:    log,
	}
}

// SetMetrics enables load metrics
func (l *Loader) SetMetrics(m *observability.Metrics) {
	l.metrics = m
}

// LoadAll opens every permitted regular file in dir. Files that fail to open are
// returned as LoadErrors and do not stop the scan. The returned error is only set when
// the directory itself cannot be read.
func (l *Loader) LoadAll(ctx context.Context, dir string, allow AllowList) ([]*Handle, []error, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read plugin directory %s: %w", dir, err)
	}

	var (
		handles []*Handle
		errs    []error
	)

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return handles, errs, err
		}
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if !allow.Permits(name) {
			l.log.WithField("file", name).Debug("Skipping plugin file not on the allow-list")
			continue
		}

		path := filepath.Join(dir, name)
		lib, err := l.open(path)
		if err != nil {
			loadErr := &LoadError{Path: path, Err: err}
			l.log.WithFields(logrus.Fields{
				"severity": SeverityRecoverable,
				"path":     path,
				"error":    err,
			}).Warn("Failed to open plugin library")
			if l.metrics != nil {
				l.metrics.LoadErrorsTotal.Inc()
			}
			errs = append(errs, loadErr)
			continue
		}

		h := l.arena.Adopt(lib)
		l.log.WithFields(logrus.Fields{
			"path": path,
			"id":   h.ID,
		}).Debug("Opened plugin library")
		handles = append(handles, h)
	}

	if l.metrics != nil {
		l.metrics.LibrariesLoaded.Set(float64(l.arena.Len()))
	}

	return handles, errs, nil
}

// open runs package initialisers of the library, so a panic there is returned as an
// error for that file alone
func (l *Loader) open(path string) (lib Library, err error) {
	defer observability.RecoverPanicWithCallback(l.log, "open "+path, func(r any) {
		lib, err = nil, observability.MustRecover(r)
	})
	return l.opener.Open(path)
}
