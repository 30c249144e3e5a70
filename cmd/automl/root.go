package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/scigo-automl/config"
	"github.com/YuminosukeSato/scigo-automl/pkg/log"
	"github.com/YuminosukeSato/scigo-automl/store"
)

// app carries state shared by the subcommands.
type app struct {
	configPath string
	logLevel   string
	logFormat  string
	cfg        *config.Config
}

// NewRootCommand builds the automl command tree.
func NewRootCommand(version, commit, date string) *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "automl",
		Short: "Train every model plugin on a dataset and select the best",
		Long: `automl cleans and featurizes a CSV table, trains every plugin that
supports the inferred task type, scores them on the validation split and
reports the best model.

Settings come from defaults, an optional YAML file (--config) and
AUTOML_SECTION_FIELD environment variables, e.g. AUTOML_PLUGINS_WORKERS=4.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "YAML config file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error); overrides the config")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "log format (console, json); overrides the config")

	root.AddCommand(
		newRunCommand(a),
		newPrepareCommand(a),
		newPluginsCommand(a),
		newHistoryCommand(a),
		newServeCommand(a),
		newVersionCommand(version, commit, date),
	)
	return root
}

func (a *app) setup() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Log.Format = a.logFormat
	}
	if err := log.SetupLogger(cfg.Log.Level, cfg.Log.Format); err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

// openStore opens the history database, or returns nil when it is disabled.
func (a *app) openStore() (*store.Store, error) {
	if a.cfg.Store.Path == "" {
		return nil, nil
	}
	return store.Open(a.cfg.Store.Path)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
