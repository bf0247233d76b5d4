package clientdata

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// CleanupResult counts the rows a cleanup run removed.
type CleanupResult struct {
	Quotes int64 `json:"quotes"`
	Rates  int64 `json:"rates"`
}

// CleanupJob drops expired quotes and exchange-rate tables from client_data.db.
type CleanupJob struct {
	repo *Repository
	log  zerolog.Logger

	mu   sync.Mutex
	last CleanupResult
}

// NewCleanupJob creates the cleanup job over repo.
func NewCleanupJob(repo *Repository, log zerolog.Logger) *CleanupJob {
	return &CleanupJob{
		repo: repo,
		log:  log.With().Str("job", "client_data_cleanup").Logger(),
	}
}

// Name returns the job name.
func (j *CleanupJob) Name() string {
	return "client_data_cleanup"
}

// Run deletes expired rows from current_prices and exchangerate.
func (j *CleanupJob) Run() error {
	deleted, err := j.repo.DeleteAllExpired()
	if err != nil {
		j.log.Error().Err(err).Msg("Cache cleanup failed")
		return fmt.Errorf("cache cleanup: %w", err)
	}

	result := CleanupResult{
		Quotes: deleted[TableCurrentPrices],
		Rates:  deleted[TableExchangeRate],
	}
	j.mu.Lock()
	j.last = result
	j.mu.Unlock()

	evt := j.log.Debug()
	if result.Quotes+result.Rates > 0 {
		evt = j.log.Info()
	}
	evt.Int64("quotes", result.Quotes).Int64("rates", result.Rates).Msg("Expired cache entries removed")
	return nil
}

// LastResult returns the counts of the most recent successful run.
func (j *CleanupJob) LastResult() CleanupResult {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.last
}
