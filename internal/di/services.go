package di

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/aristath/folio/internal/clientdata"
	"github.com/aristath/folio/internal/clients/crypto"
	"github.com/aristath/folio/internal/clients/exchangerate"
	"github.com/aristath/folio/internal/clients/yahoo"
	"github.com/aristath/folio/internal/config"
	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/modules/currency"
	"github.com/aristath/folio/internal/modules/ledger"
	"github.com/aristath/folio/internal/modules/portfolio"
	"github.com/aristath/folio/internal/modules/pricing"
	"github.com/aristath/folio/internal/reliability"
	"github.com/rs/zerolog"
)

// InitializeRepositories creates the repositories over the open databases.
func InitializeRepositories(container *Container, log zerolog.Logger) error {
	if container.LedgerDB == nil || container.ClientDataDB == nil {
		return fmt.Errorf("databases must be initialized first")
	}

	container.AccountRepo = ledger.NewAccountRepository(container.LedgerDB.Conn(), log)
	container.TradeRepo = ledger.NewTradeRepository(container.LedgerDB.Conn(), log)
	container.ClientDataRepo = clientdata.NewRepository(container.ClientDataDB.Conn())

	log.Info().Msg("Repositories initialized")
	return nil
}

// InitializeServices creates clients and services.
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	// Clients
	container.YahooClient = yahoo.NewClient(log)
	container.CryptoClient = crypto.NewClient(crypto.Config{
		URLTemplate: cfg.Crypto.URLTemplate,
		PricePath:   cfg.Crypto.PricePath,
		QuoteSuffix: cfg.Crypto.QuoteSuffix,
	}, log)
	container.ExchangeRateClient = exchangerate.NewClient(container.ClientDataRepo, log)

	// Ledger
	container.LedgerService = ledger.NewService(container.AccountRepo, container.TradeRepo, log)

	// Price lookup: memory cache backed by client_data.db
	container.PriceLookup = pricing.NewLookup(
		map[domain.AssetType]domain.PriceProvider{
			domain.AssetTypeStock:  container.YahooClient,
			domain.AssetTypeCrypto: container.CryptoClient,
		},
		pricing.WithTTL(cfg.PriceCacheTTL),
		pricing.WithFetchTimeout(cfg.PriceFetchTimeout),
		pricing.WithStore(clientdata.NewPriceStore(container.ClientDataRepo)),
		pricing.WithLogger(log),
	)

	// Currency
	var fetcher currency.RatesFetcher
	if cfg.Currency.RefreshEnabled {
		fetcher = container.ExchangeRateClient
	}
	container.CurrencyService = currency.NewService(cfg.Currency.Rates, fetcher, log)

	// Portfolio
	container.PortfolioService = portfolio.NewPortfolioService(
		container.LedgerService,
		container.PriceLookup,
		container.CurrencyService,
		log,
		portfolio.WithFetchConcurrency(cfg.PriceFetchConcurrency),
	)

	// Backups
	var uploader reliability.Uploader
	if cfg.Backup.Enabled {
		s3Uploader, err := reliability.NewS3Uploader(context.Background(), reliability.S3Config{
			Bucket:          cfg.Backup.Bucket,
			Endpoint:        cfg.Backup.Endpoint,
			Region:          cfg.Backup.Region,
			AccessKeyID:     cfg.Backup.AccessKeyID,
			SecretAccessKey: cfg.Backup.SecretAccessKey,
		})
		if err != nil {
			return fmt.Errorf("failed to create backup uploader: %w", err)
		}
		uploader = s3Uploader
	}
	container.BackupService = reliability.NewBackupService(
		container.LedgerDB,
		uploader,
		cfg.Backup.Bucket,
		cfg.Backup.Prefix,
		filepath.Join(cfg.DataDir, "backup-staging"),
		log,
	)

	log.Info().
		Bool("rate_refresh", cfg.Currency.RefreshEnabled).
		Bool("backups", cfg.Backup.Enabled).
		Msg("Services initialized")
	return nil
}
