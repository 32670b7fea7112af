package bootstrap

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Collinsarusei/giftme-sub000/internal/adapters/gateway"
	"github.com/Collinsarusei/giftme-sub000/internal/domain"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type GatewayConfig struct {
	Name        string
	BaseURL     string
	SecretKey   string
	TransferFee int64
}

type Config struct {
	ServiceID   string
	Environment string

	HTTPPort int
	GRPCPort int

	DatabaseURL  string
	RedisURL     string
	KafkaBrokers []string
	MaxDBConns   int32

	KafkaTopicGiftRecorded    string
	KafkaTopicPayoutCompleted string
	KafkaTopicPayoutFailed    string
	KafkaTopicEventExpired    string
	KafkaTopicAlerts          string

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	SweepInterval      time.Duration
	SweepBatchSize     int

	PlatformFeeBps    int64
	DefaultCurrency   string
	PendingPaymentTTL time.Duration
	IdempotencyTTL    time.Duration
	GatewayTimeout    time.Duration
	ReserveAttempts   int
	DefaultGateway    string
	Gateways          []GatewayConfig
	SandboxFallback   bool

	JWTPublicKeyPEM     string
	JWTSecret           string
	JWTIssuer           string
	OperatorKeys        []string
	CardWebhookSecret   string
	PushWebhookSecret   string
	PayoutWebhookSecret string
}

type configFile struct {
	Service struct {
		ID          string `yaml:"id"`
		Environment string `yaml:"environment"`
		HTTPPort    int    `yaml:"http_port"`
		GRPCPort    int    `yaml:"grpc_port"`
	} `yaml:"service"`
	Dependencies struct {
		PostgresURL               string   `yaml:"postgres_url"`
		RedisURL                  string   `yaml:"redis_url"`
		KafkaBrokers              []string `yaml:"kafka_brokers"`
		KafkaTopicGiftRecorded    string   `yaml:"kafka_topic_gift_recorded"`
		KafkaTopicPayoutCompleted string   `yaml:"kafka_topic_payout_completed"`
		KafkaTopicPayoutFailed    string   `yaml:"kafka_topic_payout_failed"`
		KafkaTopicEventExpired    string   `yaml:"kafka_topic_event_expired"`
		KafkaTopicAlerts          string   `yaml:"kafka_topic_alerts"`
	} `yaml:"dependencies"`
	Ledger struct {
		PlatformFeeBps    *int64 `yaml:"platform_fee_bps"`
		DefaultCurrency   string `yaml:"default_currency"`
		PendingTTLMinutes int    `yaml:"pending_payment_ttl_minutes"`
		IdempotencyTTLMin int    `yaml:"idempotency_ttl_minutes"`
		GatewayTimeoutSec int    `yaml:"gateway_timeout_seconds"`
		SweepIntervalMin  int    `yaml:"sweep_interval_minutes"`
		DefaultGateway    string `yaml:"default_gateway"`
		SandboxFallback   bool   `yaml:"sandbox_fallback"`
		Gateways          []struct {
			Name        string `yaml:"name"`
			BaseURL     string `yaml:"base_url"`
			TransferFee int64  `yaml:"transfer_fee"`
		} `yaml:"gateways"`
	} `yaml:"ledger"`
}

// LoadConfig reads defaults, then the YAML file at path, then .env files,
// then the process environment. Later sources win.
func LoadConfig(path string) (Config, error) {
	cfg := Config{
		ServiceID:                 "gift-ledger-service",
		Environment:               "development",
		HTTPPort:                  8080,
		GRPCPort:                  9090,
		MaxDBConns:                20,
		KafkaTopicGiftRecorded:    "ledger.gift_recorded",
		KafkaTopicPayoutCompleted: "ledger.payout_completed",
		KafkaTopicPayoutFailed:    "ledger.payout_failed",
		KafkaTopicEventExpired:    "ledger.event_expired",
		KafkaTopicAlerts:          "ledger.alerts",
		OutboxPollInterval:        2 * time.Second,
		OutboxBatchSize:           100,
		SweepInterval:             time.Hour,
		SweepBatchSize:            500,
		PlatformFeeBps:            300,
		DefaultCurrency:           "KES",
		PendingPaymentTTL:         24 * time.Hour,
		IdempotencyTTL:            24 * time.Hour,
		GatewayTimeout:            15 * time.Second,
		ReserveAttempts:           3,
	}

	raw, err := os.ReadFile(path)
	if err == nil {
		var f configFile
		if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
			return Config{}, fmt.Errorf("parse config file: %w", unmarshalErr)
		}
		applyConfigFile(&cfg, f)
	}

	for _, name := range []string{".env", ".env.local"} {
		_ = godotenv.Load(name)
	}

	cfg.ServiceID = envOrDefault("SERVICE_ID", cfg.ServiceID)
	cfg.Environment = envOrDefault("ENVIRONMENT", envOrDefault("APP_ENV", cfg.Environment))
	cfg.DatabaseURL = envOrDefault("DB_URL", envOrDefault("POSTGRES_URL", cfg.DatabaseURL))
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.KafkaBrokers = envCSV("KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.KafkaTopicAlerts = envOrDefault("KAFKA_TOPIC_ALERTS", cfg.KafkaTopicAlerts)
	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.GRPCPort = envInt("GRPC_PORT", cfg.GRPCPort)
	cfg.MaxDBConns = int32(envInt("DB_MAX_CONNS", int(cfg.MaxDBConns)))
	cfg.OutboxPollInterval = time.Duration(envInt("OUTBOX_POLL_SECONDS", int(cfg.OutboxPollInterval.Seconds()))) * time.Second
	cfg.OutboxBatchSize = envInt("OUTBOX_BATCH_SIZE", cfg.OutboxBatchSize)
	cfg.SweepInterval = time.Duration(envInt("SWEEP_INTERVAL_MINUTES", int(cfg.SweepInterval.Minutes()))) * time.Minute
	cfg.SweepBatchSize = envInt("SWEEP_BATCH_SIZE", cfg.SweepBatchSize)
	cfg.PlatformFeeBps = int64(envInt("PLATFORM_FEE_BPS", int(cfg.PlatformFeeBps)))
	cfg.DefaultCurrency = strings.ToUpper(envOrDefault("DEFAULT_CURRENCY", cfg.DefaultCurrency))
	cfg.PendingPaymentTTL = time.Duration(envInt("PENDING_PAYMENT_TTL_MINUTES", int(cfg.PendingPaymentTTL.Minutes()))) * time.Minute
	cfg.IdempotencyTTL = time.Duration(envInt("IDEMPOTENCY_TTL_MINUTES", int(cfg.IdempotencyTTL.Minutes()))) * time.Minute
	cfg.GatewayTimeout = time.Duration(envInt("GATEWAY_TIMEOUT_SECONDS", int(cfg.GatewayTimeout.Seconds()))) * time.Second
	cfg.ReserveAttempts = envInt("RESERVE_ATTEMPTS", cfg.ReserveAttempts)
	cfg.SandboxFallback = envBool("PAYOUT_SANDBOX_FALLBACK", cfg.SandboxFallback)
	cfg.JWTPublicKeyPEM = envOrDefault("JWT_PUBLIC_KEY", cfg.JWTPublicKeyPEM)
	cfg.JWTSecret = envOrDefault("JWT_SECRET", cfg.JWTSecret)
	cfg.JWTIssuer = envOrDefault("JWT_ISSUER", cfg.JWTIssuer)
	cfg.OperatorKeys = envCSV("OPERATOR_KEYS", cfg.OperatorKeys)
	cfg.CardWebhookSecret = envOrDefault("CARD_WEBHOOK_SECRET", cfg.CardWebhookSecret)
	cfg.PushWebhookSecret = envOrDefault("PUSH_WEBHOOK_SECRET", cfg.PushWebhookSecret)
	cfg.PayoutWebhookSecret = envOrDefault("PAYOUT_WEBHOOK_SECRET", cfg.PayoutWebhookSecret)
	applyGatewayEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyConfigFile(cfg *Config, f configFile) {
	if f.Service.ID != "" {
		cfg.ServiceID = f.Service.ID
	}
	if f.Service.Environment != "" {
		cfg.Environment = f.Service.Environment
	}
	if f.Service.HTTPPort > 0 {
		cfg.HTTPPort = f.Service.HTTPPort
	}
	if f.Service.GRPCPort > 0 {
		cfg.GRPCPort = f.Service.GRPCPort
	}
	if f.Dependencies.PostgresURL != "" {
		cfg.DatabaseURL = f.Dependencies.PostgresURL
	}
	if f.Dependencies.RedisURL != "" {
		cfg.RedisURL = f.Dependencies.RedisURL
	}
	if len(f.Dependencies.KafkaBrokers) > 0 {
		cfg.KafkaBrokers = trimNonEmpty(f.Dependencies.KafkaBrokers)
	}
	if f.Dependencies.KafkaTopicGiftRecorded != "" {
		cfg.KafkaTopicGiftRecorded = f.Dependencies.KafkaTopicGiftRecorded
	}
	if f.Dependencies.KafkaTopicPayoutCompleted != "" {
		cfg.KafkaTopicPayoutCompleted = f.Dependencies.KafkaTopicPayoutCompleted
	}
	if f.Dependencies.KafkaTopicPayoutFailed != "" {
		cfg.KafkaTopicPayoutFailed = f.Dependencies.KafkaTopicPayoutFailed
	}
	if f.Dependencies.KafkaTopicEventExpired != "" {
		cfg.KafkaTopicEventExpired = f.Dependencies.KafkaTopicEventExpired
	}
	if f.Dependencies.KafkaTopicAlerts != "" {
		cfg.KafkaTopicAlerts = f.Dependencies.KafkaTopicAlerts
	}
	if f.Ledger.PlatformFeeBps != nil {
		cfg.PlatformFeeBps = *f.Ledger.PlatformFeeBps
	}
	if f.Ledger.DefaultCurrency != "" {
		cfg.DefaultCurrency = strings.ToUpper(f.Ledger.DefaultCurrency)
	}
	if f.Ledger.PendingTTLMinutes > 0 {
		cfg.PendingPaymentTTL = time.Duration(f.Ledger.PendingTTLMinutes) * time.Minute
	}
	if f.Ledger.IdempotencyTTLMin > 0 {
		cfg.IdempotencyTTL = time.Duration(f.Ledger.IdempotencyTTLMin) * time.Minute
	}
	if f.Ledger.GatewayTimeoutSec > 0 {
		cfg.GatewayTimeout = time.Duration(f.Ledger.GatewayTimeoutSec) * time.Second
	}
	if f.Ledger.SweepIntervalMin > 0 {
		cfg.SweepInterval = time.Duration(f.Ledger.SweepIntervalMin) * time.Minute
	}
	cfg.DefaultGateway = strings.ToLower(strings.TrimSpace(f.Ledger.DefaultGateway))
	cfg.SandboxFallback = f.Ledger.SandboxFallback
	for _, gw := range f.Ledger.Gateways {
		cfg.Gateways = append(cfg.Gateways, GatewayConfig{
			Name:        strings.ToLower(strings.TrimSpace(gw.Name)),
			BaseURL:     strings.TrimSpace(gw.BaseURL),
			TransferFee: gw.TransferFee,
		})
	}
}

// applyGatewayEnv fills gateway secrets from <NAME>_SECRET_KEY and lets
// <NAME>_BASE_URL and <NAME>_TRANSFER_FEE override the file. PAYOUT_GATEWAY_*
// adds a gateway that is not in the file.
func applyGatewayEnv(cfg *Config) {
	if name := strings.ToLower(strings.TrimSpace(os.Getenv("PAYOUT_GATEWAY_NAME"))); name != "" {
		found := false
		for _, gw := range cfg.Gateways {
			if gw.Name == name {
				found = true
				break
			}
		}
		if !found {
			cfg.Gateways = append(cfg.Gateways, GatewayConfig{
				Name:        name,
				BaseURL:     os.Getenv("PAYOUT_GATEWAY_URL"),
				SecretKey:   os.Getenv("PAYOUT_GATEWAY_SECRET"),
				TransferFee: int64(envInt("PAYOUT_GATEWAY_TRANSFER_FEE", 0)),
			})
		}
	}
	for i := range cfg.Gateways {
		prefix := envPrefix(cfg.Gateways[i].Name)
		cfg.Gateways[i].BaseURL = envOrDefault(prefix+"_BASE_URL", cfg.Gateways[i].BaseURL)
		cfg.Gateways[i].SecretKey = envOrDefault(prefix+"_SECRET_KEY", cfg.Gateways[i].SecretKey)
		cfg.Gateways[i].TransferFee = int64(envInt(prefix+"_TRANSFER_FEE", int(cfg.Gateways[i].TransferFee)))
	}
	cfg.DefaultGateway = strings.ToLower(envOrDefault("DEFAULT_PAYOUT_GATEWAY", cfg.DefaultGateway))
}

func (c Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("missing DB_URL/POSTGRES_URL")
	}
	if c.PlatformFeeBps < 0 || c.PlatformFeeBps > 10_000 {
		return fmt.Errorf("platform fee %d bps out of range [0, 10000]", c.PlatformFeeBps)
	}
	seen := make(map[string]bool, len(c.Gateways))
	for _, gw := range c.Gateways {
		if gw.Name == "" {
			return errors.New("payout gateway without a name")
		}
		if seen[gw.Name] {
			return fmt.Errorf("payout gateway %s configured twice", gw.Name)
		}
		seen[gw.Name] = true
		if gw.TransferFee < 0 {
			return fmt.Errorf("payout gateway %s: negative transfer fee", gw.Name)
		}
	}
	if c.DefaultGateway != "" && !seen[c.DefaultGateway] {
		return fmt.Errorf("default payout gateway %s is not configured", c.DefaultGateway)
	}
	if gateway.IsProduction(c.Environment) {
		if c.SandboxFallback {
			return fmt.Errorf("payout sandbox fallback cannot be enabled in %s", c.Environment)
		}
		for name, secret := range map[string]string{
			"CARD_WEBHOOK_SECRET":   c.CardWebhookSecret,
			"PUSH_WEBHOOK_SECRET":   c.PushWebhookSecret,
			"PAYOUT_WEBHOOK_SECRET": c.PayoutWebhookSecret,
		} {
			if strings.TrimSpace(secret) == "" {
				return fmt.Errorf("missing %s in %s", name, c.Environment)
			}
		}
	}
	return nil
}

func (c Config) TransferFees() map[string]int64 {
	out := make(map[string]int64, len(c.Gateways))
	for _, gw := range c.Gateways {
		out[gw.Name] = gw.TransferFee
	}
	return out
}

func (c Config) TopicByEvent() map[string]string {
	return map[string]string{
		domain.EventGiftRecorded:    c.KafkaTopicGiftRecorded,
		domain.EventPayoutCompleted: c.KafkaTopicPayoutCompleted,
		domain.EventPayoutFailed:    c.KafkaTopicPayoutFailed,
		domain.EventEventsExpired:   c.KafkaTopicEventExpired,
	}
}

func envPrefix(name string) string {
	return strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(name))
}

func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	switch strings.ToLower(raw) {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	default:
		return fallback
	}
}

func envCSV(name string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	return trimNonEmpty(strings.Split(raw, ","))
}

func trimNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
