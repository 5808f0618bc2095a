package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/platinummonkey/resetd/pkg/bus"
	"github.com/platinummonkey/resetd/pkg/selftest"
)

const (
	// Project is the directory created under the config home
	Project = "reset"
	// FileName is the config file inside the project directory
	FileName = "ReSet.toml"
	// EnvPrefix prefixes every environment override, e.g. RESET_LOG_LEVEL
	EnvPrefix = "RESET"

	flatpakConfig = "var/app/org.Xetibo.ReSet/config"
)

// Config keys
const (
	KeyPluginPath       = "plugin_path"
	KeyPlugins          = "plugins"
	KeyLogLevel         = "log_level"
	KeyBus              = "bus"
	KeyAdminAddr        = "admin_addr"
	KeyWatchPlugins     = "watch_plugins"
	KeySelftestOnStart  = "selftest_on_start"
	KeySelftestSchedule = "selftest_schedule"
	KeyShutdownTimeout  = "shutdown_timeout"
	KeyOTelEnabled      = "otel.enabled"
	KeyOTelEndpoint     = "otel.endpoint"
	KeyOTelServiceName  = "otel.service_name"
	KeyOTelInsecure     = "otel.insecure"
	KeyOTelSampleRatio  = "otel.sample_ratio"
)

// Flag names bound onto config keys by BindFlags
const (
	FlagConfig    = "config"
	FlagPlugins   = "plugins"
	FlagLogLevel  = "log-level"
	FlagAdminAddr = "admin-addr"
	FlagBus       = "bus"
)

// Config holds the daemon configuration
type Config struct {
	// PluginPath overrides the plugin directory when it names an existing directory
	PluginPath string `mapstructure:"plugin_path" toml:"plugin_path,omitempty"`
	// Plugins lists the file names allowed to load
	Plugins []string `mapstructure:"plugins" toml:"plugins,omitempty"`
	// AllowListSet is true when the plugins key was present, even if empty
	AllowListSet bool `mapstructure:"-" toml:"-"`

	LogLevel        string        `mapstructure:"log_level" toml:"log_level"`
	Bus             string        `mapstructure:"bus" toml:"bus"`
	AdminAddr       string        `mapstructure:"admin_addr" toml:"admin_addr"`
	WatchPlugins    bool          `mapstructure:"watch_plugins" toml:"watch_plugins"`
	SelftestOnStart bool          `mapstructure:"selftest_on_start" toml:"selftest_on_start"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" toml:"shutdown_timeout"`

	// SelftestSchedule is a cron spec for periodic self-tests, empty disables them
	SelftestSchedule string `mapstructure:"selftest_schedule" toml:"selftest_schedule"`

	OTel OTelConfig `mapstructure:"otel" toml:"otel"`

	// File is the config file the values were read from
	File string `mapstructure:"-" toml:"-"`

	// Ignored is a requested config file that did not exist, so File is the default
	Ignored string `mapstructure:"-" toml:"-"`
}

// OTelConfig holds OpenTelemetry export settings
type OTelConfig struct {
	Enabled     bool   `mapstructure:"enabled" toml:"enabled"`
	Endpoint    string `mapstructure:"endpoint" toml:"endpoint"`
	ServiceName string `mapstructure:"service_name" toml:"service_name"`
	Insecure    bool   `mapstructure:"insecure" toml:"insecure"`
	// SampleRatio is the fraction of traces kept, 1 keeps all
	SampleRatio float64 `mapstructure:"sample_ratio" toml:"sample_ratio"`
}

// Default returns the configuration written to a fresh config file
func Default() *Config {
	return &Config{
		LogLevel:        "info",
		Bus:             bus.KindSession,
		AdminAddr:       "",
		WatchPlugins:    true,
		SelftestOnStart: false,
		ShutdownTimeout: 10 * time.Second,
		OTel: OTelConfig{
			Enabled:     false,
			Endpoint:    "localhost:4317",
			ServiceName: "resetd",
			Insecure:    true,
			SampleRatio: 1,
		},
	}
}

// AllowList returns the allowed plugin file names and whether a list was configured
func (c *Config) AllowList() ([]string, bool) {
	return c.Plugins, c.AllowListSet
}

// Validate checks the configuration and returns every problem found
func (c *Config) Validate() []error {
	var errs []error

	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("invalid log_level %q", c.LogLevel))
	}

	switch c.Bus {
	case bus.KindSession, bus.KindSystem, bus.KindNone:
	default:
		errs = append(errs, fmt.Errorf("invalid bus %q (must be %s, %s or %s)", c.Bus, bus.KindSession, bus.KindSystem, bus.KindNone))
	}

	for _, name := range c.Plugins {
		if name == "" || name != filepath.Base(name) {
			errs = append(errs, fmt.Errorf("plugins entry %q must be a plain file name", name))
		}
	}

	if c.SelftestSchedule != "" {
		if err := selftest.ParseSchedule(c.SelftestSchedule); err != nil {
			errs = append(errs, err)
		}
	}

	if c.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("shutdown_timeout must be positive"))
	}

	if c.OTel.Enabled {
		if c.OTel.Endpoint == "" {
			errs = append(errs, errors.New("otel.endpoint is required when otel is enabled"))
		}
		if c.OTel.ServiceName == "" {
			errs = append(errs, errors.New("otel.service_name is required when otel is enabled"))
		}
		if c.OTel.SampleRatio < 0 || c.OTel.SampleRatio > 1 {
			errs = append(errs, fmt.Errorf("otel.sample_ratio %v must be between 0 and 1", c.OTel.SampleRatio))
		}
	}

	return errs
}

// AddFlags registers the config-backed flags on fs
func AddFlags(fs *pflag.FlagSet) {
	def := Default()
	fs.String(FlagConfig, "", "Path to the config file (default <config-home>/reset/ReSet.toml).")
	fs.String(FlagPlugins, "", "Plugin directory, overrides plugin_path.")
	fs.String(FlagLogLevel, def.LogLevel, "Log level (debug, info, warn, error).")
	fs.String(FlagAdminAddr, def.AdminAddr, "Listen address of the admin HTTP server, empty disables it.")
	fs.String(FlagBus, def.Bus, "Bus to connect to (session, system, none).")
}

// BindFlags binds the flags added by AddFlags onto their config keys
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	bindings := map[string]string{
		KeyPluginPath: FlagPlugins,
		KeyLogLevel:   FlagLogLevel,
		KeyAdminAddr:  FlagAdminAddr,
		KeyBus:        FlagBus,
	}
	for key, name := range bindings {
		flag := fs.Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("failed to bind flag --%s: %w", name, err)
		}
	}
	return nil
}

// Load reads file into v and decodes it. Precedence is flag, environment, file, default.
// An empty or missing file uses EnsureFile on the default directory; a missing file is
// reported in Config.Ignored.
func Load(v *viper.Viper, file string) (*Config, error) {
	var ignored string
	if file != "" {
		if _, err := os.Stat(file); errors.Is(err, fs.ErrNotExist) {
			ignored, file = file, ""
		}
	}
	if file == "" {
		dir, err := Dir(Project)
		if err != nil {
			return nil, err
		}
		if file, err = EnsureFile(dir); err != nil {
			return nil, err
		}
	}

	def := Default()
	v.SetDefault(KeyLogLevel, def.LogLevel)
	v.SetDefault(KeyBus, def.Bus)
	v.SetDefault(KeyAdminAddr, def.AdminAddr)
	v.SetDefault(KeyWatchPlugins, def.WatchPlugins)
	v.SetDefault(KeySelftestOnStart, def.SelftestOnStart)
	v.SetDefault(KeySelftestSchedule, def.SelftestSchedule)
	v.SetDefault(KeyShutdownTimeout, def.ShutdownTimeout)
	v.SetDefault(KeyOTelEnabled, def.OTel.Enabled)
	v.SetDefault(KeyOTelEndpoint, def.OTel.Endpoint)
	v.SetDefault(KeyOTelServiceName, def.OTel.ServiceName)
	v.SetDefault(KeyOTelInsecure, def.OTel.Insecure)
	v.SetDefault(KeyOTelSampleRatio, def.OTel.SampleRatio)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// plugin_path and plugins have no default, so AutomaticEnv alone would not see them
	_ = v.BindEnv(KeyPluginPath)
	_ = v.BindEnv(KeyPlugins)

	v.SetConfigFile(file)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", file, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", file, err)
	}
	cfg.AllowListSet = v.IsSet(KeyPlugins)
	if !cfg.AllowListSet {
		cfg.Plugins = nil
	}
	cfg.File = file
	cfg.Ignored = ignored

	return cfg, nil
}

// Home returns the user config directory: $XDG_CONFIG_HOME, else os.UserConfigDir,
// with the flatpak sandbox path rewritten.
func Home() (string, error) {
	home := os.Getenv("XDG_CONFIG_HOME")
	if home == "" {
		var err error
		if home, err = os.UserConfigDir(); err != nil {
			return "", fmt.Errorf("no config directory: %w", err)
		}
	}
	return FlatpakFix(home), nil
}

// FlatpakFix maps the sandboxed flatpak config directory onto the host one
func FlatpakFix(path string) string {
	return strings.Replace(path, flatpakConfig, "config", 1)
}

// Dir creates <config-home>/<project> when needed and returns it
func Dir(project string) (string, error) {
	home, err := Home()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, project)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory %s: %w", dir, err)
	}
	return dir, nil
}

// EnsureFile returns dir/ReSet.toml, writing the defaults when it does not exist
func EnsureFile(dir string) (string, error) {
	path := filepath.Join(dir, FileName)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("failed to stat %s: %w", path, err)
	}

	data, err := toml.Marshal(Default())
	if err != nil {
		return "", fmt.Errorf("failed to encode default config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}
