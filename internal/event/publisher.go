package event

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"otp-auth-service/internal/client"
	"otp-auth-service/internal/identity"
	"otp-auth-service/internal/models"
	"otp-auth-service/internal/util"
)

// Publisher records authentication lifecycle events. Publishing is strictly
// best-effort: a broken event pipeline must never fail a login, so the
// contract returns nothing and failures are only logged.
type Publisher interface {
	Publish(event *models.AuthEvent)
}

// NewAuthEvent builds an event for the given identity.
func NewAuthEvent(eventType string, id identity.Identity, detail string) *models.AuthEvent {
	return &models.AuthEvent{
		EventID:      uuid.New().String(),
		EventType:    eventType,
		EventTime:    time.Now().UTC(),
		IdentityKind: string(id.Kind),
		IdentityHash: id.LogKey(),
		Detail:       detail,
	}
}

// Recorder fans events out to the Kafka stream and the ClickHouse audit
// table. Either sink may be nil when not configured.
type Recorder struct {
	producer *client.KafkaProducer
	audit    *client.ClickHouseClient
	logger   *zap.Logger
}

const insertAuditEventSQL = `INSERT INTO auth_events
	(event_id, event_type, event_time, identity_kind, identity_hash, detail)
	VALUES (?, ?, ?, ?, ?, ?)`

func NewRecorder(producer *client.KafkaProducer, audit *client.ClickHouseClient, logger *zap.Logger) *Recorder {
	return &Recorder{producer: producer, audit: audit, logger: logger}
}

func (r *Recorder) Publish(event *models.AuthEvent) {
	// Detached from the request: the caller has already answered by the
	// time slow sinks would matter.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if r.producer != nil {
			if err := r.producer.PublishAuthEvent(ctx, event); err != nil {
				r.logger.Warn("auth event publish failed",
					util.String("event_type", event.EventType),
					util.ErrorField(err),
				)
			}
		}

		if r.audit != nil {
			err := r.audit.Exec(ctx, insertAuditEventSQL,
				event.EventID,
				event.EventType,
				event.EventTime,
				event.IdentityKind,
				event.IdentityHash,
				event.Detail,
			)
			if err != nil {
				r.logger.Warn("auth event audit insert failed",
					util.String("event_type", event.EventType),
					util.ErrorField(err),
				)
			}
		}
	}()
}

// Noop discards events; used when neither sink is configured and in tests.
type Noop struct{}

func (Noop) Publish(*models.AuthEvent) {}
