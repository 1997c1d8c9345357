package scylla

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"otp-auth-service/internal/identity"
	"otp-auth-service/internal/util"
)

// Expected schema:
//
//	CREATE TABLE profiles (
//	    identifier    text PRIMARY KEY,
//	    kind          text,
//	    email         text,
//	    phone         text,
//	    created_at    timestamp,
//	    last_login_at timestamp
//	);
//	CREATE TABLE login_counts (
//	    identifier text PRIMARY KEY,
//	    logins     counter
//	);
//
// login_counts is separate because CQL counter columns cannot share a table
// with regular columns.
const (
	insertProfileCQL = `INSERT INTO profiles (identifier, kind, email, phone, created_at)
		VALUES (?, ?, ?, ?, ?) IF NOT EXISTS`
	updateLastLoginCQL  = `UPDATE profiles SET last_login_at = ? WHERE identifier = ?`
	incrementLoginsCQL  = `UPDATE login_counts SET logins = logins + 1 WHERE identifier = ?`
	selectLoginCountCQL = `SELECT logins FROM login_counts WHERE identifier = ?`
)

// ProfileRepository is the identity-store collaborator. The service layer
// only ever upserts minimal contact fields set-if-absent and maintains
// login metadata; the wider profile schema belongs to its owning service.
type ProfileRepository struct {
	client *ScyllaClient
	logger *zap.Logger
}

func NewProfileRepository(client *ScyllaClient, logger *zap.Logger) *ProfileRepository {
	return &ProfileRepository{client: client, logger: logger}
}

// UpsertContact creates a minimal profile for the identity if none exists.
// The LWT makes this set-if-absent: an existing profile is left untouched.
func (r *ProfileRepository) UpsertContact(ctx context.Context, id identity.Identity) error {
	var email, phone string
	if id.Kind == identity.KindEmail {
		email = id.Value
	} else {
		phone = id.Value
	}

	applied, err := r.client.Session.Query(insertProfileCQL,
		id.Value, string(id.Kind), email, phone, time.Now().UTC(),
	).WithContext(ctx).MapScanCAS(map[string]interface{}{})
	if err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}

	if applied {
		r.logger.Debug("profile created",
			util.Uint64("identity_hash", id.LogKey()),
			util.String("kind", string(id.Kind)),
		)
	}
	return nil
}

// RecordLogin stamps last_login_at and bumps the login counter.
func (r *ProfileRepository) RecordLogin(ctx context.Context, id identity.Identity, now time.Time) error {
	if err := r.client.Session.Query(updateLastLoginCQL,
		now.UTC(), id.Value,
	).WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}

	if err := r.client.Session.Query(incrementLoginsCQL,
		id.Value,
	).WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("failed to increment login count: %w", err)
	}
	return nil
}

// LoginCount reads the login counter, used by operational tooling.
func (r *ProfileRepository) LoginCount(ctx context.Context, id identity.Identity) (int64, error) {
	var count int64
	if err := r.client.Session.Query(selectLoginCountCQL,
		id.Value,
	).WithContext(ctx).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to read login count: %w", err)
	}
	return count, nil
}
