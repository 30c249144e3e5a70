package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/scigo-automl/plugin"
	"github.com/YuminosukeSato/scigo-automl/plugin/builtin"
)

func newPluginsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plugins",
		Short: "Inspect and seed the plugin directory",
	}
	cmd.AddCommand(newPluginsListCommand(a), newPluginsInitCommand(a))
	return cmd
}

func newPluginsListCommand(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every unit in the plugin directory and whether it loads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg := plugin.NewRegistry(plugin.WithFactories(builtin.Factories()))
			units, err := reg.Inspect(a.cfg.Plugins.Dir)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), units)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tTASK TYPES\tVALID\tFILE\tREASON")
			for _, u := range units {
				types := make([]string, len(u.TaskTypes))
				for i, t := range u.TaskTypes {
					types[i] = string(t)
				}
				fmt.Fprintf(tw, "%s\t%s\t%t\t%s\t%s\n", u.Name, strings.Join(types, ","), u.Valid, u.File, u.Reason)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

func newPluginsInitCommand(a *app) *cobra.Command {
	var overwrite bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the built-in plugin manifests into the plugin directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			written, err := builtin.WriteManifests(a.cfg.Plugins.Dir, overwrite)
			if err != nil {
				return err
			}
			for _, path := range written {
				fmt.Fprintln(cmd.OutOrStdout(), "wrote", path)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d manifests written to %s\n", len(written), a.cfg.Plugins.Dir)
			return nil
		},
	}
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "replace existing manifests")
	return cmd
}
