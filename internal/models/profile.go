package models

import "time"

// Profile is the minimal user record this subsystem touches in the identity
// store. The store owns the full schema; we only upsert contact fields
// set-if-absent and maintain login metadata.
type Profile struct {
	Identifier  string    `db:"identifier"` // normalized identity value
	Kind        string    `db:"kind"`       // EMAIL or PHONE
	Email       string    `db:"email"`
	Phone       string    `db:"phone"`
	CreatedAt   time.Time `db:"created_at"`
	LastLoginAt time.Time `db:"last_login_at"`
	LoginCount  int64     `db:"login_count"`
}
