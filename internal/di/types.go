/**
 * Package di provides dependency injection type definitions.
 *
 * The Container holds every long-lived instance. It is built by Wire() and
 * handed to the server and the command entry points.
 */
package di

import (
	"github.com/aristath/folio/internal/clientdata"
	"github.com/aristath/folio/internal/clients/crypto"
	"github.com/aristath/folio/internal/clients/exchangerate"
	"github.com/aristath/folio/internal/clients/yahoo"
	"github.com/aristath/folio/internal/database"
	"github.com/aristath/folio/internal/modules/currency"
	"github.com/aristath/folio/internal/modules/ledger"
	"github.com/aristath/folio/internal/modules/portfolio"
	"github.com/aristath/folio/internal/modules/pricing"
	"github.com/aristath/folio/internal/reliability"
	"github.com/aristath/folio/internal/scheduler"
)

// Container holds all dependencies for the application.
type Container struct {
	// Databases
	LedgerDB     *database.DB // accounts, trades
	ClientDataDB *database.DB // cached quotes and exchange rates

	// Clients
	YahooClient        *yahoo.Client
	CryptoClient       *crypto.Client
	ExchangeRateClient *exchangerate.Client

	// Repositories
	AccountRepo    *ledger.AccountRepository
	TradeRepo      *ledger.TradeRepository
	ClientDataRepo *clientdata.Repository

	// Services
	LedgerService    *ledger.Service
	PriceLookup      *pricing.Lookup
	CurrencyService  *currency.Service
	PortfolioService *portfolio.PortfolioService
	BackupService    *reliability.BackupService
}

// Databases returns the open databases in a stable order.
func (c *Container) Databases() []*database.DB {
	var dbs []*database.DB
	for _, db := range []*database.DB{c.LedgerDB, c.ClientDataDB} {
		if db != nil {
			dbs = append(dbs, db)
		}
	}
	return dbs
}

// Close closes all databases.
func (c *Container) Close() error {
	var firstErr error
	for _, db := range c.Databases() {
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// JobInstances holds the scheduled jobs so they can also be triggered manually.
type JobInstances struct {
	CacheCleanup scheduler.Job
	Maintenance  scheduler.Job
	RateRefresh  scheduler.Job // nil when exchange rate refresh is disabled
	Backup       scheduler.Job // nil when backups are disabled
}

// All returns the non-nil jobs.
func (j *JobInstances) All() []scheduler.Job {
	var jobs []scheduler.Job
	for _, job := range []scheduler.Job{j.CacheCleanup, j.Maintenance, j.RateRefresh, j.Backup} {
		if job != nil {
			jobs = append(jobs, job)
		}
	}
	return jobs
}
