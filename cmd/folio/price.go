package main

import (
	"fmt"
	"strings"

	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/modules/pricing"
	"github.com/aristath/folio/internal/report"
	"github.com/spf13/cobra"
)

func newPriceCmd(opts *options) *cobra.Command {
	var assetType string

	cmd := &cobra.Command{
		Use:   "price TICKER",
		Short: "Look up the current USD quote of a ticker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			at := domain.AssetType(strings.ToLower(assetType))
			if !at.Valid() {
				return fmt.Errorf("unsupported --type %q (use stock|crypto)", assetType)
			}

			lookup := pricing.NewLookup(opts.liveProviders(), pricing.WithLogger(opts.log))

			ctx, cancel := opts.context()
			defer cancel()

			price, err := lookup.GetPrice(ctx, args[0], at)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", domain.NormalizeTicker(args[0]), report.FormatMoney(price, domain.ReportingCurrency))
			return nil
		},
	}
	cmd.Flags().StringVar(&assetType, "type", string(domain.AssetTypeStock), "asset type (stock|crypto)")
	return cmd
}
