package config

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application level configuration loaded from environment and flags.
type Config struct {
	RunAddress      string
	DatabaseURI     string
	JWTSecret       string
	ShutdownTimeout time.Duration
	LogLevel        slog.Level
	// InternalBrands lists restaurant names exempt from commission.
	InternalBrands []string

	Stripe StripeConfig
	Kafka  KafkaConfig
	AMQP   AMQPConfig
	SMTP   SMTPConfig
	APNs   APNsConfig
	FCM    FCMConfig
	Notify NotifyConfig
	Outbox OutboxConfig
}

// StripeConfig configures the payment processor client.
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	// APIURL overrides the processor endpoint, used against local mocks.
	APIURL  string
	Timeout time.Duration
}

// KafkaConfig configures the order event stream. No brokers disables the relay.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// AMQPConfig configures the receipt print queue. An empty URL disables it.
type AMQPConfig struct {
	URL      string
	Exchange string
}

// SMTPConfig configures transactional email. An empty host disables it.
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// APNsConfig configures iOS push delivery.
type APNsConfig struct {
	KeyFile    string
	KeyID      string
	TeamID     string
	Topic      string
	Production bool
}

// FCMConfig configures Android push delivery.
type FCMConfig struct {
	CredentialsFile string
	ProjectID       string
}

// NotifyConfig sizes the detached notification dispatcher.
type NotifyConfig struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration
}

// OutboxConfig drives the outbox relay.
type OutboxConfig struct {
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
}

const (
	defaultRunAddress         = ":8080"
	defaultJWTSecret          = "change-me-in-production"
	defaultShutdownTimeout    = 10 * time.Second
	defaultInternalBrands     = "cvneat"
	defaultProcessorTimeout   = 15 * time.Second
	defaultKafkaTopic         = "order-events"
	defaultReceiptExchange    = "receipts"
	defaultSMTPPort           = 587
	defaultNotifyWorkers      = 4
	defaultNotifyQueueSize    = 256
	defaultNotifyTimeout      = 10 * time.Second
	defaultOutboxPollInterval = 2 * time.Second
	defaultOutboxBatchSize    = 32
	defaultOutboxMaxAttempts  = 5
)

// Load parses configuration from flags and environment variables.
func Load() (*Config, error) {
	return load(os.Args[1:], os.LookupEnv)
}

type envLookup func(string) (string, bool)

func load(args []string, lookup envLookup) (*Config, error) {
	cfg := &Config{
		RunAddress:      getString(lookup, "RUN_ADDRESS", defaultRunAddress),
		DatabaseURI:     getString(lookup, "DATABASE_URI", ""),
		JWTSecret:       getString(lookup, "JWT_SECRET", defaultJWTSecret),
		ShutdownTimeout: getDuration(lookup, "SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
		Stripe: StripeConfig{
			SecretKey:     getString(lookup, "STRIPE_SECRET_KEY", ""),
			WebhookSecret: getString(lookup, "STRIPE_WEBHOOK_SECRET", ""),
			APIURL:        getString(lookup, "STRIPE_API_URL", ""),
			Timeout:       getDuration(lookup, "PROCESSOR_TIMEOUT", defaultProcessorTimeout),
		},
		Kafka: KafkaConfig{
			Topic: getString(lookup, "KAFKA_TOPIC", defaultKafkaTopic),
		},
		AMQP: AMQPConfig{
			URL:      getString(lookup, "AMQP_URL", ""),
			Exchange: getString(lookup, "RECEIPT_EXCHANGE", defaultReceiptExchange),
		},
		SMTP: SMTPConfig{
			Host:     getString(lookup, "SMTP_HOST", ""),
			Port:     getInt(lookup, "SMTP_PORT", defaultSMTPPort),
			User:     getString(lookup, "SMTP_USER", ""),
			Password: getString(lookup, "SMTP_PASSWORD", ""),
			From:     getString(lookup, "SMTP_FROM", ""),
		},
		APNs: APNsConfig{
			KeyFile:    getString(lookup, "APNS_KEY_FILE", ""),
			KeyID:      getString(lookup, "APNS_KEY_ID", ""),
			TeamID:     getString(lookup, "APNS_TEAM_ID", ""),
			Topic:      getString(lookup, "APNS_TOPIC", ""),
			Production: getBool(lookup, "APNS_PRODUCTION", false),
		},
		FCM: FCMConfig{
			CredentialsFile: getString(lookup, "FCM_CREDENTIALS_FILE", ""),
			ProjectID:       getString(lookup, "FCM_PROJECT_ID", ""),
		},
		Notify: NotifyConfig{
			Workers:   getInt(lookup, "NOTIFY_WORKERS", defaultNotifyWorkers),
			QueueSize: getInt(lookup, "NOTIFY_QUEUE_SIZE", defaultNotifyQueueSize),
			Timeout:   getDuration(lookup, "NOTIFY_TIMEOUT", defaultNotifyTimeout),
		},
		Outbox: OutboxConfig{
			PollInterval: getDuration(lookup, "OUTBOX_POLL_INTERVAL", defaultOutboxPollInterval),
			BatchSize:    getInt(lookup, "OUTBOX_BATCH_SIZE", defaultOutboxBatchSize),
			MaxAttempts:  getInt(lookup, "OUTBOX_MAX_ATTEMPTS", defaultOutboxMaxAttempts),
		},
	}

	fs := flag.NewFlagSet("orderflow", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		shutdownTimeoutStr = cfg.ShutdownTimeout.String()
		processorTimeout   = cfg.Stripe.Timeout.String()
		brokers            = getString(lookup, "KAFKA_BROKERS", "")
		brands             = getString(lookup, "INTERNAL_BRANDS", defaultInternalBrands)
		logLevel           = getString(lookup, "LOG_LEVEL", "info")
	)

	fs.StringVar(&cfg.RunAddress, "a", cfg.RunAddress, "HTTP server listen address")
	fs.StringVar(&cfg.DatabaseURI, "d", cfg.DatabaseURI, "PostgreSQL DSN")
	fs.StringVar(&cfg.JWTSecret, "jwt-secret", cfg.JWTSecret, "Secret for verifying auth tokens")
	fs.StringVar(&shutdownTimeoutStr, "shutdown-timeout", shutdownTimeoutStr, "Graceful shutdown timeout")
	fs.StringVar(&processorTimeout, "processor-timeout", processorTimeout, "Payment processor call timeout")
	fs.StringVar(&brokers, "kafka-brokers", brokers, "Comma separated Kafka brokers")
	fs.StringVar(&cfg.AMQP.URL, "amqp", cfg.AMQP.URL, "RabbitMQ URL for receipt printing")
	fs.IntVar(&cfg.Notify.Workers, "notify-workers", cfg.Notify.Workers, "Number of notification workers")
	fs.IntVar(&cfg.Outbox.BatchSize, "outbox-batch", cfg.Outbox.BatchSize, "Maximum outbox events per relay batch")
	fs.StringVar(&logLevel, "log-level", logLevel, "Log level")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	var err error

	if cfg.ShutdownTimeout, err = time.ParseDuration(shutdownTimeoutStr); err != nil {
		return nil, fmt.Errorf("invalid shutdown timeout: %w", err)
	}

	if cfg.Stripe.Timeout, err = time.ParseDuration(processorTimeout); err != nil {
		return nil, fmt.Errorf("invalid processor timeout: %w", err)
	}

	if err = cfg.LogLevel.UnmarshalText([]byte(logLevel)); err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	cfg.Kafka.Brokers = splitList(brokers)
	cfg.InternalBrands = splitList(brands)

	secrets := []struct {
		key    string
		target *string
	}{
		{"JWT_SECRET_FILE", &cfg.JWTSecret},
		{"STRIPE_SECRET_KEY_FILE", &cfg.Stripe.SecretKey},
		{"STRIPE_WEBHOOK_SECRET_FILE", &cfg.Stripe.WebhookSecret},
		{"SMTP_PASSWORD_FILE", &cfg.SMTP.Password},
	}
	for _, s := range secrets {
		if err := readSecret(lookup, s.key, s.target); err != nil {
			return nil, err
		}
	}

	normalize(cfg)

	if cfg.DatabaseURI == "" {
		return nil, fmt.Errorf("database URI must be provided")
	}

	if cfg.Stripe.SecretKey == "" {
		return nil, fmt.Errorf("stripe secret key must be provided")
	}

	return cfg, nil
}

func normalize(cfg *Config) {
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	if cfg.Stripe.Timeout <= 0 {
		cfg.Stripe.Timeout = defaultProcessorTimeout
	}

	if cfg.SMTP.Port <= 0 {
		cfg.SMTP.Port = defaultSMTPPort
	}

	if cfg.Notify.Workers <= 0 {
		cfg.Notify.Workers = defaultNotifyWorkers
	}

	if cfg.Notify.QueueSize <= 0 {
		cfg.Notify.QueueSize = defaultNotifyQueueSize
	}

	if cfg.Notify.Timeout <= 0 {
		cfg.Notify.Timeout = defaultNotifyTimeout
	}

	if cfg.Outbox.PollInterval <= 0 {
		cfg.Outbox.PollInterval = defaultOutboxPollInterval
	}

	if cfg.Outbox.BatchSize <= 0 {
		cfg.Outbox.BatchSize = defaultOutboxBatchSize
	}

	if cfg.Outbox.MaxAttempts <= 0 {
		cfg.Outbox.MaxAttempts = defaultOutboxMaxAttempts
	}
}

func readSecret(lookup envLookup, key string, target *string) error {
	path, ok := lookup(key)
	if !ok || path == "" {
		return nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", strings.ToLower(key), err)
	}
	*target = strings.TrimSpace(string(content))
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getString(lookup envLookup, key, def string) string {
	if v, ok := lookup(key); ok && v != "" {
		return v
	}
	return def
}

func getInt(lookup envLookup, key string, def int) int {
	if v, ok := lookup(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getBool(lookup envLookup, key string, def bool) bool {
	if v, ok := lookup(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getDuration(lookup envLookup, key string, def time.Duration) time.Duration {
	if v, ok := lookup(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
