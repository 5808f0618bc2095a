package plugins

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

const (
	// AppDirName is the per-user configuration directory of resetd
	AppDirName = "reset"
	// PluginDirName is the plugin subdirectory of AppDirName
	PluginDirName = "plugins"
)

// Resolver determines the directory scanned for plugin libraries
type Resolver struct {
	// Override is used verbatim when it names an existing directory
	Override string
	// ConfigHome returns the user configuration root, e.g. ~/.config
	ConfigHome func() (string, error)

	log *logrus.Logger
}

// NewResolver creates a resolver. A nil configHome falls back to os.UserConfigDir.
func NewResolver(override string, configHome func() (string, error), log *logrus.Logger) *Resolver {
	if log == nil {
		log = logrus.New()
	}
	if configHome == nil {
		configHome = os.UserConfigDir
	}
	return &Resolver{
		Override:   override,
		ConfigHome: configHome,
		log:        log,
	}
}

// Resolve returns the plugin directory, creating the default one when needed. An
// error means plugin loading must be skipped for this process.
func (r *Resolver) Resolve() (string, error) {
	if r.Override != "" {
		info, err := os.Stat(r.Override)
		if err == nil && info.IsDir() {
			return r.Override, nil
		}
		r.log.WithField("plugin_path", r.Override).Warn("Configured plugin path is not a directory, using default")
	}

	dir, err := r.defaultDir()
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"severity": SeverityCritical,
			"error":    err,
		}).Error("Failed to set up plugin directory, plugins disabled")
		return "", err
	}
	return dir, nil
}

func (r *Resolver) defaultDir() (string, error) {
	home, err := r.ConfigHome()
	if err != nil {
		return "", fmt.Errorf("failed to determine config directory: %w", err)
	}

	appDir := filepath.Join(home, AppDirName)
	if err := os.MkdirAll(appDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", appDir, err)
	}

	dir := filepath.Join(appDir, PluginDirName)
	if err := os.Mkdir(dir, 0o755); err != nil {
		if !errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("failed to create %s: %w", dir, err)
		}
		info, statErr := os.Stat(dir)
		if statErr != nil {
			return "", fmt.Errorf("failed to stat %s: %w", dir, statErr)
		}
		if !info.IsDir() {
			return "", fmt.Errorf("%s exists and is not a directory", dir)
		}
	}
	return dir, nil
}
