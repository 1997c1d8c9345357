package factory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"otp-auth-service/internal/client"
	"otp-auth-service/internal/config"
	"otp-auth-service/internal/delivery"
	"otp-auth-service/internal/event"
	"otp-auth-service/internal/repository/memory"
	redisrepo "otp-auth-service/internal/repository/redis"
	"otp-auth-service/internal/repository/scylla"
	"otp-auth-service/internal/secret"
	"otp-auth-service/internal/service"
	"otp-auth-service/internal/tls"
	"otp-auth-service/internal/util"
)

// Factory manages the lifecycle of all application dependencies
type Factory struct {
	config     *config.Config
	tlsManager *tls.TLSManager

	// Clients
	redisClient      *client.RedisClient
	scyllaClient     *scylla.ScyllaClient
	kafkaProducer    *client.KafkaProducer
	clickhouseClient *client.ClickHouseClient

	// Wiring
	secretCache    *secret.Cache
	challengeStore service.ChallengeStore
	profileStore   service.ProfileStore
	events         event.Publisher
	sender         delivery.Sender

	// Services
	issuer   *service.Issuer
	verifier *service.Verifier
	sessions *service.SessionTokenService

	closeOnce sync.Once
	closed    chan struct{}
}

// NewFactory creates and initializes all application dependencies
func NewFactory() (*Factory, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	util.Init(cfg.Environment, cfg.Logging.Level, cfg.Logging.Format)

	factory := &Factory{
		config: cfg,
		closed: make(chan struct{}),
	}

	if cfg.Server.EnableTLS {
		tlsConfig := &tls.TLSConfig{
			EnableTLS:   cfg.Server.EnableTLS,
			AutoCert:    cfg.Server.AutoCert,
			Domain:      cfg.Server.Domain,
			CertFile:    cfg.Server.CertFile,
			KeyFile:     cfg.Server.KeyFile,
			AutoCertDir: cfg.Server.AutoCertDir,
			Email:       cfg.Server.Email,
			Environment: cfg.Environment,
		}
		factory.tlsManager = tls.NewTLSManager(tlsConfig)
	}

	if err := factory.initializeClients(); err != nil {
		return nil, fmt.Errorf("failed to initialize clients: %w", err)
	}

	if err := factory.initializeSecrets(); err != nil {
		return nil, fmt.Errorf("failed to initialize secrets: %w", err)
	}

	factory.initializeStores()
	if err := factory.initializeDelivery(); err != nil {
		return nil, fmt.Errorf("failed to initialize delivery: %w", err)
	}
	factory.initializeServices()

	util.Info("Factory initialized successfully",
		util.String("environment", cfg.Environment),
		util.Bool("tls_enabled", cfg.Server.EnableTLS),
		util.Int("max_auths_per_day", cfg.Auth.MaxAuthsPerDay),
	)

	return factory, nil
}

// initializeClients initializes all external service clients with health checks
func (f *Factory) initializeClients() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var initErrors []error

	// Redis
	if redisClient, err := client.NewRedisClient(f.config, util.Get()); err != nil {
		initErrors = append(initErrors, fmt.Errorf("redis: %w", err))
	} else {
		f.redisClient = redisClient
		if err := f.redisClient.HealthCheck(ctx); err != nil {
			initErrors = append(initErrors, fmt.Errorf("redis health check: %w", err))
		} else {
			util.Info("Redis client initialized and healthy")
		}
	}

	// ScyllaDB
	if scyllaClient, err := scylla.NewScyllaClient(f.config, util.Get()); err != nil {
		initErrors = append(initErrors, fmt.Errorf("scylla: %w", err))
	} else {
		f.scyllaClient = scyllaClient
		if err := f.scyllaClient.HealthCheck(); err != nil {
			initErrors = append(initErrors, fmt.Errorf("scylla health check: %w", err))
		} else {
			util.Info("ScyllaDB client initialized and healthy")
		}
	}

	// Kafka, best effort
	if producer, err := client.NewKafkaProducer(f.config, util.Get()); err != nil {
		util.Warn("Kafka producer initialization failed - proceeding without Kafka", util.ErrorField(err))
	} else {
		f.kafkaProducer = producer
		util.Info("Kafka producer initialized")
	}

	// ClickHouse, best effort
	if chClient, err := client.NewClickHouseClient(f.config, util.Get()); err != nil {
		util.Warn("ClickHouse initialization failed - proceeding without audit sink", util.ErrorField(err))
	} else {
		f.clickhouseClient = chClient
		if err := f.clickhouseClient.HealthCheck(ctx); err != nil {
			util.Warn("ClickHouse health check failed", util.ErrorField(err))
		} else {
			util.Info("ClickHouse client initialized and healthy")
		}
	}

	if len(initErrors) > 0 {
		if f.config.IsProduction() {
			return fmt.Errorf("critical service initialization failed: %v", initErrors)
		}
		for _, err := range initErrors {
			util.Warn("Service initialization warning", util.ErrorField(err))
		}
	}

	return nil
}

// initializeSecrets wires the secret cache over AWS Secrets Manager, seeded
// with any direct values from the environment. Placeholder values are
// discarded by the cache, so a misconfigured deployment fails closed on the
// first issuance rather than signing with a known key.
func (f *Factory) initializeSecrets() error {
	refs := map[secret.Purpose]string{}
	if f.config.AWS.OTPSecretARN != "" {
		refs[secret.PurposeOTP] = f.config.AWS.OTPSecretARN
	}
	if f.config.AWS.JWTSecretARN != "" {
		refs[secret.PurposeJWT] = f.config.AWS.JWTSecretARN
	}

	var fetcher secret.Fetcher
	if len(refs) > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		secretsClient, err := client.NewSecretsClient(ctx, f.config.AWS.Region)
		if err != nil {
			if f.config.IsProduction() {
				return fmt.Errorf("secrets manager: %w", err)
			}
			util.Warn("Secrets Manager client initialization failed", util.ErrorField(err))
		} else {
			fetcher = secretsClient
			util.Info("Secrets Manager client initialized")
		}
	}

	f.secretCache = secret.NewCache(fetcher, refs, map[secret.Purpose]string{
		secret.PurposeOTP: f.config.AWS.OTPSecret,
		secret.PurposeJWT: f.config.AWS.JWTSecret,
	})
	return nil
}

// initializeStores binds the challenge and profile stores to Redis and
// Scylla. In development a missing backend falls back to the in-memory
// implementation so the service can run standalone.
func (f *Factory) initializeStores() {
	if f.redisClient != nil {
		f.challengeStore = redisrepo.NewChallengeStore(f.redisClient)
	} else {
		util.Warn("Using in-memory challenge store; challenges do not survive restarts")
		f.challengeStore = memory.NewChallengeStore()
	}

	if f.scyllaClient != nil {
		f.profileStore = scylla.NewProfileRepository(f.scyllaClient, util.Get())
	} else {
		util.Warn("Using in-memory profile store; profiles do not survive restarts")
		f.profileStore = memory.NewProfileStore()
	}

	if f.kafkaProducer != nil || f.clickhouseClient != nil {
		f.events = event.NewRecorder(f.kafkaProducer, f.clickhouseClient, util.Get())
	} else {
		f.events = event.Noop{}
	}
}

func (f *Factory) initializeDelivery() error {
	if f.config.Delivery.DevMode || f.config.IsDevelopment() {
		f.sender = delivery.NewDevSender(util.Get())
		util.Info("Delivery running in development mode; codes are logged masked")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	emailSender, err := delivery.NewSESSender(ctx, f.config.AWS.Region, f.config.Delivery.SESFromAddress, util.Get())
	if err != nil {
		return fmt.Errorf("ses: %w", err)
	}
	smsSender, err := delivery.NewSNSSender(ctx, f.config.AWS.Region, f.config.Delivery.SNSSenderID, util.Get())
	if err != nil {
		return fmt.Errorf("sns: %w", err)
	}

	f.sender = &delivery.Router{Email: emailSender, SMS: smsSender}
	util.Info("SES and SNS delivery initialized", util.String("region", f.config.AWS.Region))
	return nil
}

func (f *Factory) initializeServices() {
	f.sessions = service.NewSessionTokenService(f.secretCache)
	f.issuer = service.NewIssuer(
		f.challengeStore,
		f.profileStore,
		f.secretCache,
		f.sender,
		f.events,
		util.Get(),
	)
	f.verifier = service.NewVerifier(
		f.challengeStore,
		f.profileStore,
		f.secretCache,
		f.sessions,
		f.events,
		f.config.Auth.MaxAuthsPerDay,
		util.Get(),
	)
}

// ==============================
// Health Checks
// ==============================

func (f *Factory) HealthCheck(ctx context.Context) map[string]error {
	healthErrors := make(map[string]error)

	if f.redisClient != nil {
		if err := f.redisClient.HealthCheck(ctx); err != nil {
			healthErrors["redis"] = err
		}
	}

	if f.scyllaClient != nil {
		if err := f.scyllaClient.HealthCheck(); err != nil {
			healthErrors["scylla"] = err
		}
	}

	if f.clickhouseClient != nil {
		if err := f.clickhouseClient.HealthCheck(ctx); err != nil {
			healthErrors["clickhouse"] = err
		}
	}

	return healthErrors
}

func (f *Factory) IsHealthy(ctx context.Context) bool {
	healthErrors := f.HealthCheck(ctx)
	delete(healthErrors, "clickhouse")
	return len(healthErrors) == 0
}

func (f *Factory) Close() error {
	f.closeOnce.Do(func() {
		close(f.closed)
		util.Info("Shutting down factory...")

		if f.clickhouseClient != nil {
			if err := f.clickhouseClient.Close(); err != nil {
				util.Error("Failed to close ClickHouse client", util.ErrorField(err))
			} else {
				util.Info("ClickHouse client closed")
			}
		}

		if f.kafkaProducer != nil {
			if err := f.kafkaProducer.Close(); err != nil {
				util.Error("Failed to close Kafka producer", util.ErrorField(err))
			} else {
				util.Info("Kafka producer closed")
			}
		}

		if f.scyllaClient != nil {
			f.scyllaClient.Close()
			util.Info("ScyllaDB client closed")
		}

		if f.redisClient != nil {
			if err := f.redisClient.Close(); err != nil {
				util.Error("Failed to close Redis client", util.ErrorField(err))
			} else {
				util.Info("Redis client closed")
			}
		}

		util.Sync()
		util.Info("Factory shutdown completed")
	})

	return nil
}

func (f *Factory) WaitForClose() {
	<-f.closed
}

func (f *Factory) Config() *config.Config {
	return f.config
}

func (f *Factory) TLSManager() *tls.TLSManager {
	return f.tlsManager
}

func (f *Factory) Issuer() *service.Issuer {
	return f.issuer
}

func (f *Factory) Verifier() *service.Verifier {
	return f.verifier
}

func (f *Factory) Sessions() *service.SessionTokenService {
	return f.sessions
}
