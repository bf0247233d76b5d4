package clientdata

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanupJobName(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	job := NewCleanupJob(NewRepository(db), zerolog.Nop())
	assert.Equal(t, "client_data_cleanup", job.Name())
}

func TestCleanupJobRun(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	now := time.Now()
	expiredAt := now.Add(-time.Hour).Unix()
	freshAt := now.Add(time.Hour).Unix()

	for _, table := range AllTables {
		_, err := db.Exec("INSERT INTO "+table+" (key, data, expires_at) VALUES (?, ?, ?)", "expired", []byte{0xc0}, expiredAt)
		require.NoError(t, err)
		_, err = db.Exec("INSERT INTO "+table+" (key, data, expires_at) VALUES (?, ?, ?)", "fresh", []byte{0xc0}, freshAt)
		require.NoError(t, err)
	}

	job := NewCleanupJob(NewRepository(db), zerolog.Nop())
	require.NoError(t, job.Run())
	assert.Equal(t, CleanupResult{Quotes: 1, Rates: 1}, job.LastResult())

	for _, table := range AllTables {
		var keys []string
		rows, err := db.Query("SELECT key FROM " + table)
		require.NoError(t, err)
		for rows.Next() {
			var k string
			require.NoError(t, rows.Scan(&k))
			keys = append(keys, k)
		}
		require.NoError(t, rows.Close())
		assert.Equal(t, []string{"fresh"}, keys, table)
	}
}

func TestCleanupJobRun_EmptyTables(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	job := NewCleanupJob(NewRepository(db), zerolog.Nop())
	assert.NoError(t, job.Run())
	assert.Equal(t, CleanupResult{}, job.LastResult())
}

func TestCleanupJobRun_ClosedDatabase(t *testing.T) {
	db := setupTestDB(t)
	job := NewCleanupJob(NewRepository(db), zerolog.Nop())
	require.NoError(t, db.Close())

	assert.ErrorContains(t, job.Run(), "cache cleanup")
}
