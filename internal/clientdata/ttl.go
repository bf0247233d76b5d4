package clientdata

import "time"

// TTL constants added to now when storing to calculate expires_at.
const (
	TTLExchangeRate = time.Hour
	TTLCurrentPrice = 15 * time.Minute
)
