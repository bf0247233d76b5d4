package main

import (
	"github.com/aristath/folio/internal/report"
	"github.com/spf13/cobra"
)

func newSummaryCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary FILE",
		Short: "Show the USD valuation of every holding and cash account",
		Long: `Show the USD valuation of every holding and cash account.

Holdings without a quote are valued at zero and the summary is marked
incomplete. Currencies missing from the file's rates are valued 1:1 with USD
and reported as warnings.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			service, f, err := opts.loadService(args[0])
			if err != nil {
				return err
			}

			ctx, cancel := opts.context()
			defer cancel()

			summary, err := service.Summary(ctx, f.Owner)
			if err != nil {
				return err
			}

			md, err := report.MarkdownSummary(summary)
			if err != nil {
				return err
			}
			return opts.print(cmd.OutOrStdout(), md)
		},
	}
	addReportFlags(cmd, opts)
	return cmd
}
