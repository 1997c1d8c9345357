package models

import "time"

// Challenge is the stored, time-bounded, attempt-limited record linking an
// identity to the keyed digest of its current one-time code. At most one
// challenge is live per identity; issuing a new code overwrites it.
type Challenge struct {
	Digest    string `db:"digest"`
	Attempts  int    `db:"attempts"`
	CreatedAt int64  `db:"created_at"` // unix seconds
	ExpiresAt int64  `db:"expires_at"` // unix seconds, CreatedAt + OTP TTL
}

// Expired reports whether the challenge is past its expiry at now.
func (c *Challenge) Expired(now time.Time) bool {
	return now.Unix() > c.ExpiresAt
}

// Age returns how long ago the challenge was created.
func (c *Challenge) Age(now time.Time) time.Duration {
	return now.Sub(time.Unix(c.CreatedAt, 0))
}
