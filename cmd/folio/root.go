package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aristath/folio/internal/clients/crypto"
	"github.com/aristath/folio/internal/clients/yahoo"
	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/modules/portfolio"
	"github.com/aristath/folio/internal/modules/pricing"
	"github.com/aristath/folio/internal/portfoliofile"
	"github.com/aristath/folio/internal/report"
	"github.com/aristath/folio/pkg/logger"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// options are the flags shared by every subcommand.
type options struct {
	logLevel string
	timeout  time.Duration
	offline  bool
	plain    bool
	width    int

	log zerolog.Logger
	// providers overrides the live quote providers. Used by tests.
	providers map[domain.AssetType]domain.PriceProvider
}

func newRootCmd() *cobra.Command {
	return newRootCmdWith(&options{})
}

func newRootCmdWith(opts *options) *cobra.Command {
	root := &cobra.Command{
		Use:           "folio",
		Short:         "Value a portfolio of stocks, crypto and cash in USD",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			opts.log = logger.New(logger.Config{
				Level:  opts.logLevel,
				Pretty: true,
				Output: cmd.ErrOrStderr(),
			})
		},
	}

	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "overall timeout for quote lookups")

	root.AddCommand(newHoldingsCmd(opts))
	root.AddCommand(newSummaryCmd(opts))
	root.AddCommand(newPriceCmd(opts))
	return root
}

// addReportFlags registers the flags of commands that print a report.
func addReportFlags(cmd *cobra.Command, opts *options) {
	cmd.Flags().BoolVar(&opts.offline, "offline", false, "use the prices listed in the file instead of live quotes")
	cmd.Flags().BoolVar(&opts.plain, "plain", false, "print raw markdown")
	cmd.Flags().IntVar(&opts.width, "width", 100, "word wrap width of the rendered report")
}

// liveProviders returns the network quote providers.
func (o *options) liveProviders() map[domain.AssetType]domain.PriceProvider {
	if o.providers != nil {
		return o.providers
	}
	return map[domain.AssetType]domain.PriceProvider{
		domain.AssetTypeStock:  yahoo.NewClient(o.log),
		domain.AssetTypeCrypto: crypto.NewClient(crypto.Config{QuoteSuffix: crypto.DefaultQuoteSuffix}, o.log),
	}
}

// loadService reads the file and builds a portfolio service over it.
func (o *options) loadService(path string) (*portfolio.PortfolioService, *portfoliofile.File, error) {
	f, err := portfoliofile.Load(path)
	if err != nil {
		return nil, nil, err
	}
	ledger, err := f.LedgerReader()
	if err != nil {
		return nil, nil, err
	}
	rates, err := f.RateTable()
	if err != nil {
		return nil, nil, err
	}

	providers := o.liveProviders()
	if o.offline {
		offline := f.OfflinePrices()
		providers = map[domain.AssetType]domain.PriceProvider{
			domain.AssetTypeStock:  offline,
			domain.AssetTypeCrypto: offline,
		}
	}
	lookup := pricing.NewLookup(providers, pricing.WithLogger(o.log))

	return portfolio.NewPortfolioService(ledger, lookup, rates, o.log), f, nil
}

func (o *options) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), o.timeout)
}

// print writes markdown, rendered for the terminal unless --plain.
func (o *options) print(w io.Writer, markdown string) error {
	if o.plain {
		_, err := io.WriteString(w, markdown)
		return err
	}
	out, err := report.Render(markdown, o.width)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(w, out)
	return err
}
