package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/scigo-automl/pkg/errors"
)

func newHistoryCommand(a *app) *cobra.Command {
	var (
		limit  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show recorded runs, or one run in full",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			history, err := a.openStore()
			if err != nil {
				return err
			}
			if history == nil {
				return errors.New("run history is disabled (store.path is empty)")
			}
			defer history.Close()

			ctx := cmd.Context()
			if len(args) == 1 {
				run, err := history.Get(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), run)
			}

			runs, err := history.List(ctx, limit)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), runs)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RUN\tCREATED\tDATASET\tTASK\tBEST\tSCORE\tSTATUS")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%.6g\t%s\n",
					r.ID, r.CreatedAt.Local().Format(time.DateTime), r.Dataset, r.ProblemType, r.BestModel, r.BestScore, r.Status)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "most recent runs to show (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}
