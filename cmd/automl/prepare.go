package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/scigo-automl/pipeline"
)

func newPrepareCommand(a *app) *cobra.Command {
	var (
		req pipeline.Request
		out string
	)
	cmd := &cobra.Command{
		Use:   "prepare",
		Short: "Clean and featurize a file into a processed dataset directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			runner, err := pipeline.New(a.cfg)
			if err != nil {
				return err
			}
			if out == "" {
				out = a.cfg.Paths.ProcessedDir
			}
			ds, cleanReport, err := runner.Prepare(req, out)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "problem type: %s\n", ds.Metadata.ProblemType)
			fmt.Fprintf(w, "features: %d, train rows: %d, validation rows: %d\n",
				ds.Metadata.NFeatures, ds.Metadata.TrainSamples, ds.Metadata.ValSamples)
			fmt.Fprintf(w, "removed rows: %d duplicates, %d outliers\n",
				cleanReport.DuplicatesFound, cleanReport.OutliersRemoved)
			fmt.Fprintf(w, "written to %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&req.File, "file", "f", "", "input CSV or ZIP file")
	cmd.Flags().StringVarP(&req.Target, "target", "t", "", "target column")
	cmd.Flags().StringVarP(&req.ProblemType, "problem", "p", "", "task type; inferred when empty")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output directory (default paths.processed_dir)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
