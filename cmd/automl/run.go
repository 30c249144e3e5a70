package main

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/scigo-automl/pipeline"
)

func newRunCommand(a *app) *cobra.Command {
	var (
		req      pipeline.Request
		asJSON   bool
		noRecord bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full pipeline on a file",
		Example: `  automl run --file houses.csv --target price
  automl run --file iris.zip --target species --problem classification --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := []pipeline.Option{}
			if !noRecord {
				history, err := a.openStore()
				if err != nil {
					return err
				}
				if history != nil {
					defer history.Close()
					opts = append(opts, pipeline.WithStore(history))
				}
			}
			runner, err := pipeline.New(a.cfg, opts...)
			if err != nil {
				return err
			}
			rep, runErr := runner.Run(cmd.Context(), req)
			if rep != nil && rep.Results != nil {
				if asJSON {
					if err := printJSON(cmd.OutOrStdout(), rep.Results); err != nil {
						return err
					}
				} else {
					printReport(cmd.OutOrStdout(), rep)
				}
			}
			return runErr
		},
	}
	cmd.Flags().StringVarP(&req.File, "file", "f", "", "input CSV or ZIP file")
	cmd.Flags().StringVarP(&req.Target, "target", "t", "", "target column")
	cmd.Flags().StringVarP(&req.ProblemType, "problem", "p", "", "task type (regression, classification); inferred when empty")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the results document as JSON")
	cmd.Flags().BoolVar(&noRecord, "no-history", false, "do not record the run in the history database")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func printReport(w io.Writer, rep *pipeline.Report) {
	rr := rep.Results
	fmt.Fprintf(w, "run %s (%s)\n", rep.RunID, rep.Metadata.ProblemType)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PLUGIN\tSCORE\tSTATUS")
	for _, r := range rr.Results {
		status := "ok"
		if r.Failed() {
			status = "failed: " + r.Error
		}
		score := "-"
		if s, ok := rr.ModelScores[r.Name]; ok {
			score = fmt.Sprintf("%.6g", s)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Name, score, status)
	}
	tw.Flush()

	if rr.BestModel != "" {
		fmt.Fprintf(w, "best model: %s\n", rr.BestModel)
	}
	if rep.Summary != nil && len(rep.Summary.Coefficients) > 0 {
		names := make([]string, 0, len(rep.Summary.Coefficients))
		for name := range rep.Summary.Coefficients {
			names = append(names, name)
		}
		sort.Strings(names)
		fmt.Fprintln(w, "coefficients:")
		for _, name := range names {
			fmt.Fprintf(w, "  %s = %.6g\n", name, rep.Summary.Coefficients[name])
		}
	}
	fmt.Fprintf(w, "results: %s\n", rep.RunDir)
}
