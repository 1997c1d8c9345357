package models

import "time"

// Auth event types emitted on the event stream and written to the audit log.
const (
	EventOTPIssued      = "otp.issued"
	EventOTPRejected    = "otp.rejected"
	EventLoginSucceeded = "login.succeeded"
)

// AuthEvent is a single authentication lifecycle event. IdentityHash is a
// murmur3 hash of the identity key; raw emails and phone numbers never
// enter the stream.
type AuthEvent struct {
	EventID      string    `db:"event_id" json:"event_id"`
	EventType    string    `db:"event_type" json:"event_type"`
	EventTime    time.Time `db:"event_time" json:"event_time"`
	IdentityKind string    `db:"identity_kind" json:"identity_kind"`
	IdentityHash uint64    `db:"identity_hash" json:"identity_hash"`
	Detail       string    `db:"detail" json:"detail,omitempty"`
}
