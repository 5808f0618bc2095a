package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/resetd/pkg/api"
	"github.com/platinummonkey/resetd/pkg/selftest"
)

// Output formats of plugins list
const (
	OutputTable = "table"
	OutputYAML  = "yaml"
	OutputJSON  = "json"
)

// ErrSelftestFailed is returned by plugins test when a test failed or crashed
var ErrSelftestFailed = errors.New("plugin self-tests failed")

func newPluginsCommand(opts Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plugins",
		Short: "Inspect and test installed plugins",
	}
	cmd.AddCommand(newPluginsListCommand(opts))
	cmd.AddCommand(newPluginsTestCommand(opts))
	return cmd
}

func newPluginsListCommand(opts Options) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the plugins resetd would load",
		Long: heredoc.Doc(`
			Scan the plugin directory the same way the daemon does and print every bound
			backend and frontend together with load errors. No plugin hook is called.
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, _, err := newDaemon(cmd, opts, nil)
			if err != nil {
				return err
			}
			return writeListing(cmd.OutOrStdout(), api.Listing(d.Runtime()), output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", OutputTable, "Output format (table, yaml, json).")
	return cmd
}

func newPluginsTestCommand(opts Options) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "test [NAME...]",
		Short: "Run plugin self-tests",
		Long: heredoc.Doc(`
			Run the self-tests of every loaded plugin, or only of the named ones, and print
			one report per plugin. Exits non-zero when any test failed or crashed.
		`),
		RunE: func(cmd *cobra.Command, names []string) error {
			d, log, err := newDaemon(cmd, opts, nil)
			if err != nil {
				return err
			}

			rt := d.Runtime()
			suites := selftest.Suites(rt.Backends(), rt.Frontends(), names...)
			if len(suites) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no plugins to test")
				return nil
			}

			runner := selftest.NewRunner(log, nil, nil)
			runner.Limit = limit
			reports, err := runner.RunAll(cmd.Context(), suites, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			for _, r := range reports {
				if r != nil && !r.OK() {
					return ErrSelftestFailed
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "parallel", 0, "Maximum plugins tested at once, 0 for no limit.")
	return cmd
}

func newVersionCommand(opts Options) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the resetd version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "resetd %s\n", opts.Version)
		},
	}
}

func writeListing(w io.Writer, listing api.PluginListing, output string) error {
	switch strings.ToLower(output) {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(listing)
	case OutputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(listing); err != nil {
			return err
		}
		return enc.Close()
	case OutputTable, "":
		return writeTable(w, listing)
	default:
		return fmt.Errorf("unknown output format %q", output)
	}
}

func writeTable(w io.Writer, listing api.PluginListing) error {
	table := uitable.New()
	table.MaxColWidth = 60
	table.Wrap = true

	table.AddRow("ROLE", "NAME", "CAPABILITIES", "LIBRARY")
	for _, b := range listing.Backends {
		table.AddRow("backend", b.Name, strings.Join(b.Capabilities, ","), b.Library)
	}
	for _, f := range listing.Frontends {
		table.AddRow("frontend", f.Name, strings.Join(f.Capabilities, ","), f.Library)
	}

	if _, err := fmt.Fprintf(w, "Plugin directory: %s\n\n%s\n", listing.PluginDir, table); err != nil {
		return err
	}
	if len(listing.Errors) == 0 {
		return nil
	}

	if _, err := fmt.Fprintln(w, "\nErrors:"); err != nil {
		return err
	}
	for _, e := range listing.Errors {
		if _, err := fmt.Fprintf(w, "  %s\n", e); err != nil {
			return err
		}
	}
	return nil
}
