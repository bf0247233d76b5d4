package main

import (
	"github.com/aristath/folio/internal/report"
	"github.com/spf13/cobra"
)

func newHoldingsCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "holdings FILE",
		Short: "List holdings with average cost and current value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			service, f, err := opts.loadService(args[0])
			if err != nil {
				return err
			}

			ctx, cancel := opts.context()
			defer cancel()

			holdings, err := service.Holdings(ctx, f.Owner)
			if err != nil {
				return err
			}

			md, err := report.MarkdownHoldings(holdings)
			if err != nil {
				return err
			}
			return opts.print(cmd.OutOrStdout(), md)
		},
	}
	addReportFlags(cmd, opts)
	return cmd
}
