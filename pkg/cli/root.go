package cli

import (
	"errors"
	"fmt"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/platinummonkey/resetd/pkg/config"
	"github.com/platinummonkey/resetd/pkg/daemon"
	"github.com/platinummonkey/resetd/pkg/flags"
	"github.com/platinummonkey/resetd/pkg/observability"
	"github.com/platinummonkey/resetd/pkg/plugins"
)

// Options carries what the commands need from main and from tests
type Options struct {
	Version string
	// Opener replaces the native plugin opener
	Opener plugins.Opener
	// ConfigHome replaces config.Home when resolving the default plugin directory
	ConfigHome func() (string, error)
}

// NewRootCommand creates the resetd command tree
func NewRootCommand(opts Options) *cobra.Command {
	if opts.Version == "" {
		opts.Version = "dev"
	}

	root := &cobra.Command{
		Use:   "resetd [flags] [-- daemon-flags...]",
		Short: "ReSet settings daemon",
		Long: heredoc.Doc(`
			resetd loads ReSet plugins from the plugin directory, starts their backends
			and exports their interfaces on the session bus.

			Arguments after "--" are daemon flags. They are parsed into name/value pairs
			and published to plugins under the "resetd" data entry, for example:

			  resetd -- --something a b --debug
		`),
		Version:       opts.Version,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd, args, opts)
		},
	}

	config.AddFlags(root.PersistentFlags())

	root.AddCommand(newPluginsCommand(opts))
	root.AddCommand(newVersionCommand(opts))

	return root
}

// loadConfig reads the layered configuration for cmd and builds its logger
func loadConfig(cmd *cobra.Command) (*config.Config, *logrus.Logger, error) {
	v := viper.New()
	if err := config.BindFlags(v, cmd.Flags()); err != nil {
		return nil, nil, err
	}

	file, err := cmd.Flags().GetString(config.FlagConfig)
	if err != nil {
		return nil, nil, err
	}

	cfg, err := config.Load(v, file)
	if err != nil {
		return nil, nil, err
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, nil, fmt.Errorf("invalid configuration %s: %w", cfg.File, errors.Join(errs...))
	}

	log := observability.NewLogger(cfg.LogLevel, observability.TextFormat, cmd.ErrOrStderr())
	if cfg.Ignored != "" {
		log.WithFields(logrus.Fields{
			"requested": cfg.Ignored,
			"file":      cfg.File,
		}).Warn("Config file not found, using the default")
	}
	return cfg, log, nil
}

func newDaemon(cmd *cobra.Command, opts Options, passthrough flags.Flags) (*daemon.Daemon, *logrus.Logger, error) {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}

	daemonOpts := []daemon.Option{
		daemon.WithLogger(log),
		daemon.WithVersion(opts.Version),
		daemon.WithSelftestOutput(cmd.OutOrStdout()),
	}
	if opts.Opener != nil {
		daemonOpts = append(daemonOpts, daemon.WithOpener(opts.Opener))
	}
	if opts.ConfigHome != nil {
		daemonOpts = append(daemonOpts, daemon.WithConfigHome(opts.ConfigHome))
	}

	return daemon.New(cfg, passthrough, daemonOpts...), log, nil
}

// passthroughArgs returns the arguments given after "--"
func passthroughArgs(cmd *cobra.Command, args []string) ([]string, error) {
	dash := cmd.ArgsLenAtDash()
	if dash < 0 {
		if len(args) > 0 {
			return nil, fmt.Errorf("unexpected argument %q, daemon flags go after \"--\"", args[0])
		}
		return nil, nil
	}
	if dash > 0 {
		return nil, fmt.Errorf("unexpected argument %q, daemon flags go after \"--\"", args[0])
	}
	return args[dash:], nil
}

func runDaemon(cmd *cobra.Command, args []string, opts Options) error {
	rest, err := passthroughArgs(cmd, args)
	if err != nil {
		return err
	}

	passthrough, parseErrs := flags.Parse(rest)

	d, log, err := newDaemon(cmd, opts, passthrough)
	if err != nil {
		return err
	}
	for _, perr := range parseErrs {
		log.WithError(perr).Warn("Ignoring daemon flag")
	}

	log.WithFields(logrus.Fields{
		"version": opts.Version,
		"flags":   passthrough.Names(),
	}).Info("Starting resetd")

	return d.Run(cmd.Context())
}
